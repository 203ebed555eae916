package radar

import (
	"context"
	"os"
	"os/signal"

	"go.uber.org/zap"

	"productradar/api"
	"productradar/radar/config"
	"productradar/radar/sheet"
	"productradar/radar/storage"
	"productradar/radar/worker"
)

// StartServer runs service mode: an HTTP API that queues scrape jobs onto a
// worker pool, with MongoDB as the job and result archive.
func StartServer(cfg config.Config) {
	store, err := storage.NewMongoStorage(cfg.MongoURI, cfg.Database)
	if err != nil {
		zap.L().Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	defer store.Close()

	cells, err := sheet.NewGoogleCells(context.Background(), cfg.CredentialsFile, cfg.SpreadsheetID)
	if err != nil {
		zap.L().Fatal("Failed to connect to spreadsheet", zap.Error(err))
	}

	runner := NewJobRunner(cfg, store, cells, zap.L())
	queue := worker.NewWorkQueue(cfg.Workers, runner)
	defer queue.Stop()

	router := api.SetupRouter(store, queue)
	go func() {
		if err := router.Run(":" + cfg.HTTPPort); err != nil {
			zap.L().Fatal("Failed to start server", zap.Error(err))
		}
	}()
	zap.L().Info("listening", zap.String("port", cfg.HTTPPort))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	<-sigChan
	zap.L().Info("Shutting down...")
}
