package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	services "github.com/tieubaoca/embedding-be/service"
	"github.com/tieubaoca/embedding-be/types"
)

type SearchHandler struct {
	embedding *services.EmbeddingService
}

func NewSearchHandler(embedding *services.EmbeddingService) *SearchHandler {
	return &SearchHandler{
		embedding: embedding,
	}
}

// HandleSearch embeds the query and returns the most similar stored
// chunks, optionally filtered by subject, grade or document.
func (h *SearchHandler) HandleSearch(c *gin.Context) {
	var req types.SearchRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.DataResponse{
			Status:  "error",
			Message: "Invalid request",
		})
		return
	}
	if req.Query == "" {
		c.JSON(http.StatusBadRequest, types.DataResponse{
			Status:  "error",
			Message: "Query is required",
		})
		return
	}

	response, err := h.embedding.Search(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.DataResponse{
			Status:  "error",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, types.DataResponse{
		Status: "success",
		Data:   response,
	})
}
