package main

import (
	"os"

	"docuchat/internal/tui"

	"github.com/spf13/cobra"
)

var flagServer string

var rootCmd = &cobra.Command{
	Use:   "docuchat",
	Short: "Terminal chat for a docuchat server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return tui.Run(tui.Config{ServerURL: flagServer})
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagServer, "server", "http://localhost:8000", "docuchat server base URL")
}
