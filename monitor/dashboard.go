package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultQueryLimit = 50
	maxQueryLimit     = 1000
)

// StatusSource reports the loop's progress. *Runner implements it.
type StatusSource interface {
	LastResult() (CycleResult, bool)
	Cycles() int
}

// DashboardDeps are the read-only views the query surface serves from.
type DashboardDeps struct {
	Archive      HeadlineArchive
	Journal      ErrorJournal
	Fingerprints FingerprintStore
	Checkpoint   CheckpointStore
	// Status may be nil when no loop runs in this process.
	Status StatusSource
	Logger zerolog.Logger
}

// Dashboard serves snapshots of the archive, the journal and the loop status
// as JSON. It never mutates state.
type Dashboard struct {
	deps    DashboardDeps
	started time.Time
}

func NewDashboard(deps DashboardDeps) (*Dashboard, error) {
	if deps.Archive == nil || deps.Journal == nil || deps.Fingerprints == nil || deps.Checkpoint == nil {
		return nil, ErrNotConfigured
	}
	return &Dashboard{deps: deps, started: time.Now()}, nil
}

func (d *Dashboard) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", d.healthHandler)
	mux.HandleFunc("GET /api/headlines", d.headlinesHandler)
	mux.HandleFunc("GET /api/errors", d.errorsHandler)
	mux.HandleFunc("GET /api/status", d.statusHandler)
	return mux
}

// Serve listens on addr until ctx is cancelled.
func (d *Dashboard) Serve(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           d.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()
	d.deps.Logger.Info().Str("addr", addr).Msg("dashboard listening")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("dashboard: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shutdown dashboard: %w", err)
		}
		return nil
	}
}

func (d *Dashboard) healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (d *Dashboard) headlinesHandler(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	items := d.deps.Archive.Recent(limit)
	if items == nil {
		items = []HeadlineRecord{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (d *Dashboard) errorsHandler(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	items := d.deps.Journal.Recent(limit)
	if items == nil {
		items = []ErrorEvent{}
	}
	writeJSON(w, http.StatusOK, items)
}

type statusPayload struct {
	StartedAt    time.Time    `json:"started_at"`
	Checkpoint   *time.Time   `json:"checkpoint,omitempty"`
	Fingerprints int          `json:"fingerprints"`
	Archived     int          `json:"archived"`
	Errors       int          `json:"errors"`
	Cycles       int          `json:"cycles"`
	LastCycle    *CycleResult `json:"last_cycle,omitempty"`
}

func (d *Dashboard) statusHandler(w http.ResponseWriter, _ *http.Request) {
	p := statusPayload{
		StartedAt:    d.started,
		Fingerprints: d.deps.Fingerprints.Len(),
		Archived:     d.deps.Archive.Len(),
		Errors:       d.deps.Journal.Len(),
	}
	if at, ok := d.deps.Checkpoint.Current(); ok {
		p.Checkpoint = &at
	}
	if d.deps.Status != nil {
		p.Cycles = d.deps.Status.Cycles()
		if last, ok := d.deps.Status.LastResult(); ok {
			p.LastCycle = &last
		}
	}
	writeJSON(w, http.StatusOK, p)
}

func queryLimit(r *http.Request) (int, error) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return defaultQueryLimit, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid limit %q", v)
	}
	if n > maxQueryLimit {
		n = maxQueryLimit
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
