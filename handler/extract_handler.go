package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	services "github.com/tieubaoca/embedding-be/service"
	"github.com/tieubaoca/embedding-be/types"
	"github.com/tieubaoca/embedding-be/utils"
)

// ExtractHandler runs extraction only, without chunking or embedding.
// Useful for inspecting what the pipeline sees in a file.
type ExtractHandler struct {
	documents *services.DocumentService
	embedding *services.EmbeddingService
}

func NewExtractHandler(documents *services.DocumentService, embedding *services.EmbeddingService) *ExtractHandler {
	return &ExtractHandler{
		documents: documents,
		embedding: embedding,
	}
}

func (h *ExtractHandler) HandleExtract(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, types.DataResponse{
			Status:  "error",
			Message: "Invalid file",
		})
		return
	}
	defer file.Close()

	content, err := readUpload(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, types.DataResponse{
			Status:  "error",
			Message: "Failed to read file",
		})
		return
	}
	if err := h.embedding.Validate(content, header.Filename); err != nil {
		c.JSON(http.StatusBadRequest, types.DataResponse{
			Status:  "error",
			Message: err.Error(),
		})
		return
	}

	mimeType := utils.MIMETypeFromFilename(header.Filename)
	response := types.ExtractResponse{
		Filename: header.Filename,
		FileType: mimeType,
	}

	if mimeType == "application/pdf" {
		text, pages, err := h.documents.ExtractPDFWithPages(content)
		if err != nil {
			c.JSON(extractStatus(err), types.DataResponse{
				Status:  "error",
				Message: err.Error(),
			})
			return
		}
		response.Text = text
		response.PageInfo = pages
		response.TotalPage = len(pages)
	} else {
		text, err := h.documents.ExtractText(content, header.Filename)
		if err != nil {
			c.JSON(extractStatus(err), types.DataResponse{
				Status:  "error",
				Message: err.Error(),
			})
			return
		}
		response.Text = text
	}

	c.JSON(http.StatusOK, types.DataResponse{
		Status: "success",
		Data:   response,
	})
}

func extractStatus(err error) int {
	switch {
	case errors.Is(err, types.ErrUnsupportedFileType),
		errors.Is(err, types.ErrSizeLimitExceeded):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrNoTextExtracted):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
