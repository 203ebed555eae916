package api

import (
	"github.com/gin-gonic/gin"

	"productradar/radar/storage"
	"productradar/radar/worker"
)

func SetupRouter(store *storage.MongoStorage, queue *worker.WorkQueue) *gin.Engine {
	r := gin.Default()
	h := NewHandler(store, queue)

	r.GET("/healthz", h.Health)
	r.POST("/jobs", h.StartJob)
	r.GET("/jobs/:id", h.GetJob)
	r.GET("/results", h.ListResults)

	return r
}
