package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Kafka    KafkaConfig
	Storage  StorageConfig
}

type ServerConfig struct {
	Host           string
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// URI renders the postgres connection string
func (d DatabaseConfig) URI() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode)
}

type RedisConfig struct {
	Host         string
	Port         string
	Password     string
	DB           int
	MaxRetries   int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
	MinIdleConns int
}

type JWTConfig struct {
	Secret         string
	ExpirationTime time.Duration
}

type KafkaConfig struct {
	Enabled bool
	Brokers []string
	Topic   string
}

type StorageConfig struct {
	Enabled   bool
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

func LoadConfig() (*Config, error) {
	viper.SetDefault("COLLAB_HOST", "")
	viper.SetDefault("COLLAB_PORT", "8080")
	viper.SetDefault("COLLAB_READ_TIMEOUT", 30*time.Second)
	viper.SetDefault("COLLAB_WRITE_TIMEOUT", 30*time.Second)
	viper.SetDefault("COLLAB_IDLE_TIMEOUT", 60*time.Second)
	viper.SetDefault("COLLAB_ALLOWED_ORIGINS", "http://localhost:3000")
	viper.SetDefault("COLLAB_JWT_SECRET", "dev-secret-change")
	viper.SetDefault("COLLAB_JWT_EXPIRE", "24h")
	viper.SetDefault("POSTGRES_HOST", "localhost")
	viper.SetDefault("POSTGRES_PORT", "5432")
	viper.SetDefault("POSTGRES_USER", "postgres")
	viper.SetDefault("POSTGRES_PASSWORD", "password")
	viper.SetDefault("POSTGRES_DB", "collab")
	viper.SetDefault("POSTGRES_SSLMODE", "disable")
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("REDIS_MAX_RETRIES", 3)
	viper.SetDefault("REDIS_DIAL_TIMEOUT", 5*time.Second)
	viper.SetDefault("REDIS_READ_TIMEOUT", 3*time.Second)
	viper.SetDefault("REDIS_WRITE_TIMEOUT", 3*time.Second)
	viper.SetDefault("REDIS_POOL_SIZE", 100)
	viper.SetDefault("REDIS_MIN_IDLE_CONNS", 10)
	viper.SetDefault("KAFKA_ENABLED", false)
	viper.SetDefault("KAFKA_BROKERS", "localhost:9092")
	viper.SetDefault("KAFKA_TOPIC", "collab-activity")
	viper.SetDefault("MINIO_ENABLED", false)
	viper.SetDefault("MINIO_ENDPOINT", "localhost:9000")
	viper.SetDefault("MINIO_ACCESS_KEY", "minioadmin")
	viper.SetDefault("MINIO_SECRET_KEY", "minioadmin")
	viper.SetDefault("MINIO_BUCKET", "doc-snapshots")
	viper.SetDefault("MINIO_USE_SSL", false)
	viper.AutomaticEnv()

	cfg := &Config{
		Server: ServerConfig{
			Host:           viper.GetString("COLLAB_HOST"),
			Port:           viper.GetString("COLLAB_PORT"),
			ReadTimeout:    viper.GetDuration("COLLAB_READ_TIMEOUT"),
			WriteTimeout:   viper.GetDuration("COLLAB_WRITE_TIMEOUT"),
			IdleTimeout:    viper.GetDuration("COLLAB_IDLE_TIMEOUT"),
			AllowedOrigins: splitCSV(viper.GetString("COLLAB_ALLOWED_ORIGINS")),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("POSTGRES_HOST"),
			Port:     viper.GetString("POSTGRES_PORT"),
			User:     viper.GetString("POSTGRES_USER"),
			Password: viper.GetString("POSTGRES_PASSWORD"),
			DBName:   viper.GetString("POSTGRES_DB"),
			SSLMode:  viper.GetString("POSTGRES_SSLMODE"),
		},
		Redis: RedisConfig{
			Host:         viper.GetString("REDIS_HOST"),
			Port:         viper.GetString("REDIS_PORT"),
			Password:     viper.GetString("REDIS_PASSWORD"),
			DB:           viper.GetInt("REDIS_DB"),
			MaxRetries:   viper.GetInt("REDIS_MAX_RETRIES"),
			DialTimeout:  viper.GetDuration("REDIS_DIAL_TIMEOUT"),
			ReadTimeout:  viper.GetDuration("REDIS_READ_TIMEOUT"),
			WriteTimeout: viper.GetDuration("REDIS_WRITE_TIMEOUT"),
			PoolSize:     viper.GetInt("REDIS_POOL_SIZE"),
			MinIdleConns: viper.GetInt("REDIS_MIN_IDLE_CONNS"),
		},
		JWT: JWTConfig{
			Secret:         viper.GetString("COLLAB_JWT_SECRET"),
			ExpirationTime: viper.GetDuration("COLLAB_JWT_EXPIRE"),
		},
		Kafka: KafkaConfig{
			Enabled: viper.GetBool("KAFKA_ENABLED"),
			Brokers: splitCSV(viper.GetString("KAFKA_BROKERS")),
			Topic:   viper.GetString("KAFKA_TOPIC"),
		},
		Storage: StorageConfig{
			Enabled:   viper.GetBool("MINIO_ENABLED"),
			Endpoint:  viper.GetString("MINIO_ENDPOINT"),
			AccessKey: viper.GetString("MINIO_ACCESS_KEY"),
			SecretKey: viper.GetString("MINIO_SECRET_KEY"),
			Bucket:    viper.GetString("MINIO_BUCKET"),
			UseSSL:    viper.GetBool("MINIO_USE_SSL"),
		},
	}

	return cfg, nil
}

// splitCSV trims and filters a comma-separated list
func splitCSV(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
