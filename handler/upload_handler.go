package handler

import (
	"context"
	"io"
	"log"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	services "github.com/tieubaoca/embedding-be/service"
	"github.com/tieubaoca/embedding-be/types"
)

// UploadHandler accepts document uploads and hands them to the worker
// pool. Processing is asynchronous: the response carries a job id the
// client polls or streams over websocket.
type UploadHandler struct {
	embedding *services.EmbeddingService
	jobs      *services.JobService
	pool      *services.WorkerPool
}

func NewUploadHandler(embedding *services.EmbeddingService, jobs *services.JobService, pool *services.WorkerPool) *UploadHandler {
	return &UploadHandler{
		embedding: embedding,
		jobs:      jobs,
		pool:      pool,
	}
}

func (h *UploadHandler) UploadDocumentHandler(c *gin.Context) {
	h.handleUpload(c, false)
}

func (h *UploadHandler) UploadTextbookHandler(c *gin.Context) {
	h.handleUpload(c, true)
}

func (h *UploadHandler) handleUpload(c *gin.Context, textbook bool) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, types.DataResponse{
			Status:  "error",
			Message: "Invalid file",
		})
		return
	}
	defer file.Close()

	metadata := c.Request.FormValue("metadata")

	var info types.TextbookInfo
	if textbook {
		info = types.TextbookInfo{
			BookName:    c.Request.FormValue("book_name"),
			Publisher:   c.Request.FormValue("publisher"),
			Grade:       c.Request.FormValue("grade"),
			ProductName: c.Request.FormValue("product_name"),
		}
		if info.BookName == "" || info.Publisher == "" {
			c.JSON(http.StatusBadRequest, types.DataResponse{
				Status:  "error",
				Message: "book_name and publisher are required",
			})
			return
		}
		if !services.MatchesTextbookNaming(header.Filename) {
			log.Printf("textbook %q does not start with a SGK_/SBT_/STK_ code, filename-derived fields will be empty", header.Filename)
		}
	}

	content, err := readUpload(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, types.DataResponse{
			Status:  "error",
			Message: "Failed to read file",
		})
		return
	}

	// Reject bad uploads before queuing so the client gets an
	// immediate error instead of a failed job.
	if err := h.embedding.Validate(content, header.Filename); err != nil {
		c.JSON(http.StatusBadRequest, types.DataResponse{
			Status:  "error",
			Message: err.Error(),
		})
		return
	}

	job := h.jobs.Create(header.Filename)
	task := h.processTask(job.ID, content, header.Filename, metadata, textbook, info)
	if err := h.pool.Submit(task); err != nil {
		h.jobs.Fail(job.ID, err)
		c.JSON(http.StatusServiceUnavailable, types.DataResponse{
			Status:  "error",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, types.DataResponse{
		Status:  "success",
		Message: "Document queued for processing",
		Data: types.UploadResponse{
			JobID:        job.ID,
			OriginalName: header.Filename,
		},
	})
}

// BatchUploadDocumentHandler queues every file of a multipart batch
// and returns one job id per file.
func (h *UploadHandler) BatchUploadDocumentHandler(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, types.DataResponse{
			Status:  "error",
			Message: "Invalid multipart form",
		})
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, types.DataResponse{
			Status:  "error",
			Message: "No files provided",
		})
		return
	}
	metadata := c.Request.FormValue("metadata")

	responses := make([]types.UploadResponse, 0, len(files))
	for _, header := range files {
		file, err := header.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, types.DataResponse{
				Status:  "error",
				Message: "Failed to read " + header.Filename,
			})
			return
		}
		content, err := readUpload(file)
		file.Close()
		if err != nil {
			c.JSON(http.StatusBadRequest, types.DataResponse{
				Status:  "error",
				Message: "Failed to read " + header.Filename,
			})
			return
		}
		if err := h.embedding.Validate(content, header.Filename); err != nil {
			c.JSON(http.StatusBadRequest, types.DataResponse{
				Status:  "error",
				Message: header.Filename + ": " + err.Error(),
			})
			return
		}

		job := h.jobs.Create(header.Filename)
		task := h.processTask(job.ID, content, header.Filename, metadata, false, types.TextbookInfo{})
		if err := h.pool.Submit(task); err != nil {
			h.jobs.Fail(job.ID, err)
			c.JSON(http.StatusServiceUnavailable, types.DataResponse{
				Status:  "error",
				Message: err.Error(),
			})
			return
		}
		responses = append(responses, types.UploadResponse{
			JobID:        job.ID,
			OriginalName: header.Filename,
		})
	}

	c.JSON(http.StatusAccepted, types.DataResponse{
		Status:  "success",
		Message: "Documents queued for processing",
		Data:    responses,
	})
}

func (h *UploadHandler) processTask(jobID string, content []byte, filename, metadata string, textbook bool, info types.TextbookInfo) func(ctx context.Context) {
	return func(ctx context.Context) {
		progress := func(stage string, p float64) {
			h.jobs.Update(jobID, types.JobStatusProcessing, stage, p)
		}

		var documentID string
		var err error
		if textbook {
			var result *types.TextbookResult
			result, err = h.embedding.ProcessTextbook(ctx, content, filename, info, metadata, progress)
			if result != nil {
				documentID = result.DocumentID
			}
		} else {
			var result *types.ProcessResult
			result, err = h.embedding.ProcessDocument(ctx, content, filename, metadata, progress)
			if result != nil {
				documentID = result.DocumentID
			}
		}

		if err != nil {
			h.jobs.Fail(jobID, err)
			return
		}
		h.jobs.Complete(jobID, documentID)
	}
}

func readUpload(file multipart.File) ([]byte, error) {
	return io.ReadAll(file)
}
