package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"collab-service/internal/models"
	"collab-service/internal/services"

	"github.com/gin-gonic/gin"
)

type DocumentHandler struct {
	documentService *services.DocumentService
}

func NewDocumentHandler(documentService *services.DocumentService) *DocumentHandler {
	return &DocumentHandler{documentService: documentService}
}

// CreateDocument godoc
// @Summary Create a document
// @Tags documents
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.CreateDocumentRequest true "Document metadata"
// @Success 201 {object} models.DocumentResponse
// @Failure 400 {object} models.ErrorResponse "Invalid input"
// @Router /documents [post]
func (h *DocumentHandler) CreateDocument(c *gin.Context) {
	var req models.CreateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "Invalid input data",
			Details: err.Error(),
		})
		return
	}

	doc, err := h.documentService.Create(c.GetUint("user_id"), &req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "Failed to create document",
		})
		return
	}

	c.JSON(http.StatusCreated, doc)
}

// ListDocuments godoc
// @Summary List the caller's documents
// @Tags documents
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.DocumentResponse
// @Router /documents [get]
func (h *DocumentHandler) ListDocuments(c *gin.Context) {
	docs, err := h.documentService.ListByOwner(c.GetUint("user_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "Failed to list documents",
		})
		return
	}

	c.JSON(http.StatusOK, docs)
}

// GetDocument godoc
// @Summary Fetch a document with its latest snapshot
// @Tags documents
// @Produce json
// @Security BearerAuth
// @Param id path int true "Document ID"
// @Success 200 {object} models.DocumentResponse
// @Failure 404 {object} models.ErrorResponse "Document not found"
// @Router /documents/{id} [get]
func (h *DocumentHandler) GetDocument(c *gin.Context) {
	id, ok := h.documentID(c)
	if !ok {
		return
	}

	doc, err := h.documentService.Get(id)
	if err != nil {
		if errors.Is(err, services.ErrDocumentNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Code:    http.StatusNotFound,
				Message: "Document not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "Failed to load document",
		})
		return
	}

	c.JSON(http.StatusOK, doc)
}

// SaveSnapshot godoc
// @Summary Store the latest document snapshot
// @Description Called by the editor on its own save timer, independent of the live relay
// @Tags documents
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Document ID"
// @Param request body models.SaveSnapshotRequest true "Full document snapshot"
// @Success 204 "Snapshot stored"
// @Failure 404 {object} models.ErrorResponse "Document not found"
// @Router /documents/{id}/snapshot [put]
func (h *DocumentHandler) SaveSnapshot(c *gin.Context) {
	id, ok := h.documentID(c)
	if !ok {
		return
	}

	var req models.SaveSnapshotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "Invalid snapshot payload",
			Details: err.Error(),
		})
		return
	}

	err := h.documentService.SaveSnapshot(c.Request.Context(), id, c.GetUint("user_id"), req.Content)
	if err != nil {
		if errors.Is(err, services.ErrDocumentNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Code:    http.StatusNotFound,
				Message: "Document not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "Failed to save snapshot",
		})
		return
	}

	c.Status(http.StatusNoContent)
}

// DeleteDocument godoc
// @Summary Delete a document
// @Tags documents
// @Produce json
// @Security BearerAuth
// @Param id path int true "Document ID"
// @Success 204 "Deleted"
// @Failure 403 {object} models.ErrorResponse "Not the owner"
// @Failure 404 {object} models.ErrorResponse "Document not found"
// @Router /documents/{id} [delete]
func (h *DocumentHandler) DeleteDocument(c *gin.Context) {
	id, ok := h.documentID(c)
	if !ok {
		return
	}

	err := h.documentService.Delete(id, c.GetUint("user_id"))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrDocumentNotFound):
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Code:    http.StatusNotFound,
				Message: "Document not found",
			})
		case errors.Is(err, services.ErrNotDocumentOwner):
			c.JSON(http.StatusForbidden, models.ErrorResponse{
				Code:    http.StatusForbidden,
				Message: "Only the owner can delete a document",
			})
		default:
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{
				Code:    http.StatusInternalServerError,
				Message: "Failed to delete document",
			})
		}
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *DocumentHandler) documentID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "Invalid document id",
		})
		return 0, false
	}
	return uint(id), true
}
