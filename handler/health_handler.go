package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tieubaoca/embedding-be/database"
	"github.com/tieubaoca/embedding-be/types"
)

// HealthHandler reports liveness of the vector store the pipeline
// writes to.
type HealthHandler struct {
	store database.VectorDatabase
}

func NewHealthHandler(store database.VectorDatabase) *HealthHandler {
	return &HealthHandler{store: store}
}

func (h *HealthHandler) HandleHealth(c *gin.Context) {
	if err := h.store.Live(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, types.DataResponse{
			Status:  "error",
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, types.DataResponse{
		Status:  "success",
		Message: "ok",
	})
}
