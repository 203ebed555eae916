package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"productradar/export"
	"productradar/radar/config"
	"productradar/radar/storage"
)

var (
	exportOut   string
	exportLimit int64
	exportShare bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export archived results to CSV",
	Long:  `Reads archived scrape results from MongoDB, writes them to a CSV file, and optionally uploads the file to Google Drive with a shareable link.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		ctx := context.Background()

		store, err := storage.NewMongoStorage(cfg.MongoURI, cfg.Database)
		if err != nil {
			zap.L().Fatal("Failed to connect to MongoDB", zap.Error(err))
		}
		defer store.Close()

		results, err := store.ListResults(ctx, exportLimit)
		if err != nil {
			zap.L().Fatal("Failed to load results", zap.Error(err))
		}
		if err := export.WriteCSV(exportOut, results); err != nil {
			zap.L().Fatal("Failed to write CSV", zap.Error(err))
		}
		zap.L().Info("export written",
			zap.String("path", exportOut),
			zap.Int("results", len(results)))

		if !exportShare {
			return
		}
		uploader, err := export.NewDriveUploader(ctx, cfg.CredentialsFile, zap.L())
		if err != nil {
			zap.L().Fatal("Failed to connect to Drive", zap.Error(err))
		}
		name := fmt.Sprintf("productradar-%s.csv", time.Now().Format("2006-01-02"))
		link, err := uploader.Upload(ctx, exportOut, name)
		if err != nil {
			zap.L().Fatal("Failed to upload export", zap.Error(err))
		}
		fmt.Println(link)
	},
}

func init() {
	RootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVar(&exportOut, "out", "results.csv", "output CSV path")
	exportCmd.Flags().Int64Var(&exportLimit, "limit", 500, "maximum results to export")
	exportCmd.Flags().BoolVar(&exportShare, "share", false, "upload to Google Drive and print a shareable link")
}
