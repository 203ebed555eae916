package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var RootCmd = &cobra.Command{
	Use:   "productradar",
	Short: "Ad intelligence dashboard miner",
	Long: `productradar mines a browser-driven ad intelligence dashboard for
winning product advertisements and keeps a spreadsheet of the results.`,
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	viper.AutomaticEnv()
}
