package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	services "github.com/tieubaoca/embedding-be/service"
	"github.com/tieubaoca/embedding-be/types"
)

type DocumentHandler struct {
	embedding *services.EmbeddingService
}

func NewDocumentHandler(embedding *services.EmbeddingService) *DocumentHandler {
	return &DocumentHandler{
		embedding: embedding,
	}
}

// DeleteDocumentHandler removes every chunk of a document by its
// document id (the file hash).
func (h *DocumentHandler) DeleteDocumentHandler(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, types.DataResponse{
			Status:  "error",
			Message: "Document id is required",
		})
		return
	}

	if err := h.embedding.DeleteDocument(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, types.DataResponse{
			Status:  "error",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, types.DataResponse{
		Status:  "success",
		Message: "Document deleted",
	})
}

// CollectionInfoHandler reports schema and object count of the chunk
// collection.
func (h *DocumentHandler) CollectionInfoHandler(c *gin.Context) {
	info, err := h.embedding.CollectionInfo(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.DataResponse{
			Status:  "error",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, types.DataResponse{
		Status: "success",
		Data:   info,
	})
}

// DocumentMetadataHandler returns the stored metadata of a document.
func (h *DocumentHandler) DocumentMetadataHandler(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, types.DataResponse{
			Status:  "error",
			Message: "Document id is required",
		})
		return
	}

	metadata, err := h.embedding.DocumentMetadata(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, types.ErrNoTextExtracted) {
			c.JSON(http.StatusNotFound, types.DataResponse{
				Status:  "error",
				Message: "Document not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, types.DataResponse{
			Status:  "error",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, types.DataResponse{
		Status: "success",
		Data:   metadata,
	})
}
