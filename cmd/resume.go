package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/placescan/internal/scan"
)

var (
	resumeExisting string
	resumeOutput   string
)

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume a previously interrupted scan",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := buildEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		existing, err := loadExistingPlaces(resumeExisting)
		if err != nil {
			return err
		}

		go func() {
			<-ctx.Done()
			env.Coordinator.Cancel()
		}()

		done := watchStates(env.Coordinator)

		if err := env.Coordinator.Resume(ctx, existing); err != nil {
			if eris.Is(err, scan.ErrNoPendingScan) {
				cmd.Println("no pending scan to resume")
				return nil
			}
			return err
		}

		final := <-done
		return writeResult(final, resumeOutput)
	},
}

func init() {
	resumeCmd.Flags().StringVar(&resumeExisting, "existing", "", "JSON file of already-visited location keys to exclude")
	resumeCmd.Flags().StringVar(&resumeOutput, "output", "locations.json", "file to write the completed scan result to")
	rootCmd.AddCommand(resumeCmd)
}
