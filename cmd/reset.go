package main

import (
	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Discard any persisted scan progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := buildEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.Coordinator.Reset(ctx); err != nil {
			return err
		}
		cmd.Println("scan progress cleared")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(resetCmd)
}
