package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/placescan/internal/scan"
)

var (
	scanIncremental bool
	scanExisting    string
	scanOutput      string
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run a full photo library scan",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := buildEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		existing, err := loadExistingPlaces(scanExisting)
		if err != nil {
			return err
		}

		// A signal cancels the coordinator, which checkpoints and stops.
		go func() {
			<-ctx.Done()
			env.Coordinator.Cancel()
		}()

		done := watchStates(env.Coordinator)

		if err := env.Coordinator.Scan(ctx, existing, scanIncremental); err != nil {
			return err
		}

		final := <-done
		return writeResult(final, scanOutput)
	},
}

// watchStates logs state transitions and delivers the terminal state once
// the scan stops.
func watchStates(coord *scan.Coordinator) <-chan scan.State {
	states := coord.Subscribe()
	done := make(chan scan.State, 1)
	go func() {
		var last scan.State
		started := false
		for s := range states {
			last = s
			switch s.Phase {
			case scan.PhaseCollecting:
				started = true
				if s.PhotosProcessed%1000 == 0 {
					zap.L().Info("collecting", zap.Int("photos", s.PhotosProcessed))
				}
			case scan.PhaseScanning, scan.PhaseBackgrounded:
				started = true
				zap.L().Debug("scanning",
					zap.Int("processed", s.ClustersProcessed),
					zap.Int("total", s.TotalClusters),
					zap.Int("locations", s.LocationsFound),
				)
			case scan.PhaseRequestingPermission:
				started = true
			case scan.PhaseCompleted, scan.PhaseError:
				done <- last
				return
			case scan.PhaseIdle:
				// The initial subscription snapshot is idle; only a return to
				// idle after starting means a cancelled scan.
				if started {
					done <- last
					return
				}
			}
		}
		done <- last
	}()
	return done
}

// writeResult writes the completed scan's locations and statistics to the
// output file, if the scan completed.
func writeResult(s scan.State, path string) error {
	if s.Phase != scan.PhaseCompleted {
		zap.L().Info("scan did not complete", zap.String("phase", string(s.Phase)))
		return nil
	}

	zap.L().Info("scan complete",
		zap.Int("locations", s.TotalFound),
		zap.Int("already_visited", s.AlreadyVisited),
	)

	if path == "" {
		return nil
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return eris.Wrap(err, "marshal result")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrap(err, "write result")
	}
	zap.L().Info("result written", zap.String("path", path))
	return nil
}

func init() {
	scanCmd.Flags().BoolVar(&scanIncremental, "incremental", false, "only scan photos captured after the last completed scan")
	scanCmd.Flags().StringVar(&scanExisting, "existing", "", "JSON file of already-visited location keys to exclude")
	scanCmd.Flags().StringVar(&scanOutput, "output", "locations.json", "file to write the completed scan result to")
	rootCmd.AddCommand(scanCmd)
}
