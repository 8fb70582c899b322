package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/placescan/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "placescan",
	Short: "Photo-to-place discovery engine",
	Long:  "Scans a photo library, clusters geotagged photos by location, resolves clusters to countries and states via reverse geocoding with an offline boundary fallback, and emits a deduplicated list of discovered locations.",
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
