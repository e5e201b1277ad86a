package handler

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	services "github.com/tieubaoca/embedding-be/service"
	"github.com/tieubaoca/embedding-be/types"
)

type JobHandler struct {
	jobs     *services.JobService
	upgrader websocket.Upgrader
}

func NewJobHandler(jobs *services.JobService) *JobHandler {
	return &JobHandler{
		jobs: jobs,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins (adjust for production)
			},
		},
	}
}

// JobStatusHandler returns the current state of a processing job.
func (h *JobHandler) JobStatusHandler(c *gin.Context) {
	job, err := h.jobs.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, types.DataResponse{
				Status:  "error",
				Message: "Job not found",
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
		Data:   job,
	})
}

// JobStreamHandler upgrades to a websocket and pushes job updates
// until the job finishes or the client disconnects.
func (h *JobHandler) JobStreamHandler(c *gin.Context) {
	id := c.Param("id")
	updates, cancel, err := h.jobs.Subscribe(id)
	if err != nil {
		c.JSON(http.StatusNotFound, types.DataResponse{
			Status:  "error",
			Message: "Job not found",
		})
		return
	}
	defer cancel()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Println("Upgrade error:", err)
		return
	}
	defer conn.Close()

	conn.SetReadLimit(512 * 1024) // 512KB max message size
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	// Drain reads so close frames and pongs are processed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("WebSocket read error: %v", err)
				}
				return
			}
		}
	}()

	// Send the current state first so late subscribers are not stuck
	// waiting for the next transition.
	if job, err := h.jobs.Get(id); err == nil {
		update := types.JobUpdate{
			JobID:    job.ID,
			Status:   job.Status,
			Message:  job.Message,
			Progress: job.Progress,
		}
		if err := conn.WriteJSON(update); err != nil {
			return
		}
		if jobFinished(job.Status) {
			return
		}
	}

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case update := <-updates:
			if err := conn.WriteJSON(update); err != nil {
				log.Println("Write error:", err)
				return
			}
			if jobFinished(update.Status) {
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
		}
	}
}

func jobFinished(status types.JobStatus) bool {
	return status == types.JobStatusCompleted || status == types.JobStatusFailed
}
