package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/crimengo/crimengo/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "crimengo",
	Short: "Crime-incident dashboard backend",
	Long:  "Ingests the public Chicago incident feed, generates synthetic incidents inside named zones, and serves incident lists, hotspot buckets, and zone boundaries over HTTP.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
