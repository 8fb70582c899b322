package main

import (
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sells-group/placescan/internal/boundary"
)

var (
	boundariesDir       string
	boundariesCountries string
)

var boundariesCmd = &cobra.Command{
	Use:   "boundaries",
	Short: "Download offline boundary data for the fallback matcher",
	Long:  "Downloads Natural Earth country polygons and splits per-country subdivision polygons out of the global admin-1 set, installing them in the boundary data directory.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		dir := boundariesDir
		if dir == "" {
			dir = cfg.Boundary.DataDir
		}

		var countries []string
		for _, cc := range strings.Split(boundariesCountries, ",") {
			if cc = strings.TrimSpace(cc); cc != "" {
				countries = append(countries, cc)
			}
		}

		client := &http.Client{Timeout: 5 * time.Minute}
		return boundary.Fetch(ctx, client, dir, countries)
	},
}

func init() {
	boundariesCmd.Flags().StringVar(&boundariesDir, "dir", "", "boundary data directory (default from config)")
	boundariesCmd.Flags().StringVar(&boundariesCountries, "countries", "us,ca,au", "comma-separated country codes to extract subdivisions for")
	rootCmd.AddCommand(boundariesCmd)
}
