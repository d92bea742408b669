package routes

import (
	"log/slog"
	"time"

	"collab-service/internal/api/handlers"
	"collab-service/internal/api/middleware"
	"collab-service/internal/config"
	"collab-service/internal/relay"
	"collab-service/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

type Router struct {
	engine          *gin.Engine
	wsHandler       *handlers.WSHandler
	authHandler     *handlers.AuthHandler
	documentHandler *handlers.DocumentHandler
	rateLimitMW     *middleware.RateLimitMiddleware
	authMW          *middleware.AuthMiddleware
}

func NewRouter(
	cfg *config.Config,
	relayEngine *relay.Engine,
	redisService *services.RedisService,
	userService *services.UserService,
	documentService *services.DocumentService,
	log *slog.Logger,
) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	engine.Use(middleware.LogApi())

	upgrader := relay.NewUpgrader(cfg.Server.AllowedOrigins)

	return &Router{
		engine:          engine,
		wsHandler:       handlers.NewWSHandler(relayEngine, upgrader, log),
		authHandler:     handlers.NewAuthHandler(userService),
		documentHandler: handlers.NewDocumentHandler(documentService),
		rateLimitMW:     middleware.NewRateLimitMiddleware(redisService),
		authMW:          middleware.NewAuthMiddleware(cfg.JWT.Secret),
	}
}

func (r *Router) SetupRoutes() {
	r.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.engine.Group("/api/v1")

	// Realtime collaboration endpoint; the token rides in the query string
	api.GET("/ws",
		r.authMW.RequireAuth(),
		r.wsHandler.HandleWebSocket,
	)

	// Authenticated routes
	auth := api.Group("/")
	auth.Use(r.authMW.RequireAuth())
	{
		users := auth.Group("/users")
		users.Use(r.rateLimitMW.RateLimit(100, time.Minute))
		{
			users.GET("/profile", r.authHandler.GetProfile)
		}

		documents := auth.Group("/documents")
		documents.Use(r.rateLimitMW.RateLimit(200, time.Minute))
		{
			documents.GET("/", r.documentHandler.ListDocuments)
			documents.POST("/", r.documentHandler.CreateDocument)
			documents.GET("/:id", r.documentHandler.GetDocument)
			documents.PUT("/:id/snapshot", r.documentHandler.SaveSnapshot)
			documents.DELETE("/:id", r.documentHandler.DeleteDocument)
		}
	}

	// Public routes
	public := api.Group("/auth")
	public.Use(r.rateLimitMW.RateLimitIP(50, time.Minute))
	{
		public.POST("/register", r.authHandler.Register)
		public.POST("/login", r.authHandler.Login)
	}
}

func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
