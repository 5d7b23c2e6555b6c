package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"subsync/internal/archive"
	"subsync/internal/dnssync"
	"subsync/internal/logging"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run an HTTP trigger for sync runs",
	Long: `Start a small HTTP server that triggers sync runs: POST /v1/sync runs one
reconcile and returns the run report, GET /v1/status reports the last run, and
GET /healthz answers liveness probes. Only one run executes at a time; an
optional interval triggers runs on a schedule.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host address to bind to")
	serveCmd.Flags().Duration("interval", 0, "Trigger a sync on this interval (0 = manual only)")
	serveCmd.Flags().Bool("archive", false, "Upload a snapshot before each applied run")
	serveCmd.Flags().String("archive-format", "json", "Snapshot format for --archive (json|yaml)")

	viper.BindPFlag("port", serveCmd.Flags().Lookup("port"))
	viper.BindPFlag("host", serveCmd.Flags().Lookup("host"))
	viper.BindPFlag("interval", serveCmd.Flags().Lookup("interval"))
}

// server triggers sync runs over HTTP, one at a time. Submissions and live
// records are re-read on every trigger; only the root domain resolution is
// done once at startup.
type server struct {
	pipe          *pipeline
	log           logging.Logger
	timeout       time.Duration
	archive       bool
	archiveFormat string

	mu      sync.Mutex
	running bool
	lastRun *dnssync.Results
}

func runServe(cmd *cobra.Command, _ []string) error {
	if err := loadEnvFromFlag(cmd); err != nil {
		return err
	}
	log := newLogger()

	startCtx, cancel := commandContext(cmd)
	pipe, err := newPipeline(startCtx, log)
	cancel()
	if err != nil {
		return err
	}

	srv := &server{
		pipe:          pipe,
		log:           log,
		timeout:       mustGetDurationFlag(cmd, "timeout"),
		archive:       mustGetBoolFlag(cmd, "archive"),
		archiveFormat: mustGetStringFlag(cmd, "archive-format"),
	}

	router := srv.routes()

	if interval := viper.GetDuration("interval"); interval > 0 {
		log.Infof("scheduled sync every %s", interval)
		go srv.intervalWorker(interval)
	}

	addr := fmt.Sprintf("%s:%s", viper.GetString("host"), viper.GetString("port"))
	log.Infof("listening on http://%s", addr)

	httpSrv := &http.Server{
		Addr:        addr,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// No write timeout: POST /v1/sync responds only after the full run
		// completes.
	}
	return httpSrv.ListenAndServe()
}

func (s *server) routes() *mux.Router {
	router := mux.NewRouter()
	router.Use(s.loggingMiddleware)
	router.HandleFunc("/healthz", s.handleHealth).Methods("GET")
	router.HandleFunc("/v1/sync", s.handleSync).Methods("POST")
	router.HandleFunc("/v1/status", s.handleStatus).Methods("GET")
	return router
}

// beginRun claims the single run slot. The caller must endRun when done.
func (s *server) beginRun() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false
	}
	s.running = true
	return true
}

func (s *server) endRun(results *dnssync.Results) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	if results != nil {
		s.lastRun = results
	}
}

func (s *server) runOnce(parent context.Context) (*dnssync.Results, error) {
	ctx, cancel := s.runContext(parent)
	defer cancel()

	plan, live, rejections, err := s.pipe.build(ctx)
	if err != nil {
		return nil, err
	}
	warnRejections(s.log, rejections)

	if s.archive {
		store, err := archive.New(s.pipe.cfg.Archive, s.log)
		if err != nil {
			return nil, err
		}
		snapshot := dnssync.NewSnapshot(s.pipe.cfg.ZoneID, s.pipe.root, live)
		if _, err := store.Archive(ctx, snapshot, s.archiveFormat); err != nil {
			return nil, fmt.Errorf("pre-apply archive: %w", err)
		}
	}

	reconciler := dnssync.NewReconciler(s.pipe.client, s.log, s.pipe.cfg.Concurrency)
	return reconciler.Run(ctx, plan), nil
}

func (s *server) runContext(parent context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, s.timeout)
}

func (s *server) handleSync(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())
	if !s.beginRun() {
		writeJSON(w, http.StatusConflict, map[string]any{
			"status":  "busy",
			"message": "a sync run is already in progress",
		})
		return
	}

	// The run is decoupled from the request context so a dropped client
	// cannot interrupt mutations halfway through a phase.
	results, err := s.runOnce(context.Background())
	s.endRun(results)
	if err != nil {
		log.Errorf("triggered sync failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"status": "error",
			"error":  err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, results)
}

func (s *server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	status := map[string]any{
		"running":  s.running,
		"last_run": s.lastRun,
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, status)
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *server) intervalWorker(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		if !s.beginRun() {
			s.log.Warn("skipping scheduled sync, a run is already in progress")
			continue
		}
		s.log.Info("scheduled sync starting")
		results, err := s.runOnce(context.Background())
		s.endRun(results)
		if err != nil {
			s.log.Errorf("scheduled sync failed: %v", err)
			continue
		}
		s.log.Infof("scheduled sync finished: %s", summarizeResults(results))
	}
}

func (s *server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r.WithContext(logging.WithLogger(r.Context(), s.log)))

		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}
		s.log.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.statusCode,
			"duration", time.Since(start).String(),
			"ip", clientIP)
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, status int, doc any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(doc)
}
