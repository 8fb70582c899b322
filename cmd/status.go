package main

import (
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report whether an interrupted scan is resumable",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := buildEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if env.Coordinator.HasPendingScan(ctx) {
			cmd.Println("a pending scan exists; run 'placescan resume' to continue it")
		} else {
			cmd.Println("no pending scan")
		}

		if t, err := env.Store.LastScanTime(ctx); err == nil && t != nil {
			cmd.Printf("last completed scan: %s\n", t.Format("2006-01-02 15:04:05 MST"))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
