package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"productradar/models"
	"productradar/radar/storage"
	"productradar/radar/worker"
)

type Handler struct {
	store *storage.MongoStorage
	queue *worker.WorkQueue
}

func NewHandler(store *storage.MongoStorage, queue *worker.WorkQueue) *Handler {
	return &Handler{store: store, queue: queue}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type startJobRequest struct {
	URL      string `json:"url"`
	MaxItems int    `json:"max_items"`
}

// StartJob queues a scrape of one listing URL.
func (h *Handler) StartJob(c *gin.Context) {
	var req startJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	now := time.Now().UTC()
	job := &models.ScrapeJob{
		ID:        uuid.NewString(),
		URL:       req.URL,
		MaxItems:  req.MaxItems,
		Status:    models.JobPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.store.SaveJob(c.Request.Context(), job); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	h.queue.Enqueue(job)
	c.JSON(http.StatusAccepted, job)
}

func (h *Handler) GetJob(c *gin.Context) {
	id := c.Param("id")
	job, err := h.store.GetJob(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	c.JSON(http.StatusOK, job)
}

func (h *Handler) ListResults(c *gin.Context) {
	limit, err := strconv.ParseInt(c.DefaultQuery("limit", "50"), 10, 64)
	if err != nil || limit <= 0 {
		limit = 50
	}
	results, err := h.store.ListResults(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, results)
}
