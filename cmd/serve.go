package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/placescan/internal/scan"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start an HTTP server exposing scan control and state",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := buildEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: buildRouter(ctx, env),
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			// Give a running scan the chance to checkpoint before exit.
			env.Coordinator.Expire()
			_ = srv.Shutdown(context.Background())
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// buildRouter wires the scan control API. Scans launched over HTTP run
// asynchronously; callers observe them through /scan/state.
func buildRouter(ctx context.Context, env *engine) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/scan/state", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, env.Coordinator.CurrentState())
	})

	r.Get("/scan/pending", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{
			"pending": env.Coordinator.HasPendingScan(req.Context()),
		})
	})

	r.Post("/scan", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Incremental bool   `json:"incremental"`
			Resume      bool   `json:"resume"`
			Existing    string `json:"existing"`
		}
		if req.Body != nil {
			_ = json.NewDecoder(req.Body).Decode(&body)
		}

		existing, err := loadExistingPlaces(body.Existing)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}

		go func() {
			var err error
			if body.Resume {
				err = env.Coordinator.Resume(ctx, existing)
			} else {
				err = env.Coordinator.Scan(ctx, existing, body.Incremental)
			}
			if err != nil && !eris.Is(err, scan.ErrScanActive) && !eris.Is(err, scan.ErrNoPendingScan) {
				zap.L().Error("scan failed", zap.Error(err))
			}
		}()

		writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
	})

	r.Post("/scan/cancel", func(w http.ResponseWriter, _ *http.Request) {
		env.Coordinator.Cancel()
		writeJSON(w, http.StatusOK, map[string]string{"status": "cancelling"})
	})

	// App-lifecycle signals from a host shell.
	r.Post("/scan/background", func(w http.ResponseWriter, _ *http.Request) {
		env.Coordinator.EnterBackground()
		writeJSON(w, http.StatusOK, map[string]string{"status": "backgrounded"})
	})
	r.Post("/scan/foreground", func(w http.ResponseWriter, _ *http.Request) {
		env.Coordinator.EnterForeground()
		writeJSON(w, http.StatusOK, map[string]string{"status": "foregrounded"})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
