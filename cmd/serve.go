package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"productradar/radar"
	"productradar/radar/config"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "scraper service",
	Long:  `Starts a http server that queues and runs scrape jobs`,
	Run: func(cmd *cobra.Command, args []string) {
		radar.StartServer(config.Load())
	},
}

func init() {
	RootCmd.AddCommand(serveCmd)

	viper.SetDefault("port", "3001")
	viper.SetDefault("LOG_LEVEL", "debug")
}
