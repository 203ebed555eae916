package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"productradar/radar"
	"productradar/radar/config"
)

var (
	scrapeURL      string
	scrapeProducts int
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Run one scrape of the configured listing",
	Long: `Opens a browser session, logs into the dashboard, mines the listing
for products and their top advertisements, and writes the results to the
spreadsheet.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		if scrapeProducts > 0 {
			cfg.MaxProducts = scrapeProducts
		}
		listing := scrapeURL
		if listing == "" {
			listing = cfg.DashboardURL
		}
		if err := radar.RunOnce(context.Background(), cfg, listing); err != nil {
			zap.L().Fatal("scrape failed", zap.Error(err))
		}
	},
}

func init() {
	RootCmd.AddCommand(scrapeCmd)

	scrapeCmd.Flags().StringVar(&scrapeURL, "url", "", "listing URL to mine (defaults to DASHBOARD_URL)")
	scrapeCmd.Flags().IntVar(&scrapeProducts, "max-products", 0, "override the number of products to process")
}
