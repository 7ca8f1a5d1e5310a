package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"git.home.luguber.info/inful/nearwatch/internal/config"
	"git.home.luguber.info/inful/nearwatch/internal/history"
	"git.home.luguber.info/inful/nearwatch/internal/logfields"
	"git.home.luguber.info/inful/nearwatch/internal/state"
	"git.home.luguber.info/inful/nearwatch/internal/tracker"
)

// historyWindowMax caps the bucket count a single request may ask for.
const historyWindowMax = 366

// HTTPServer serves the local status and metrics endpoints.
type HTTPServer struct {
	cfg        config.ServerConfig
	store      *state.Store
	tracker    *tracker.Tracker
	aggregator *history.Aggregator
	metricsH   http.Handler
	startTime  time.Time
	server     *http.Server
}

// NewHTTPServer creates the server. metricsHandler may be nil when
// Prometheus metrics are disabled; the endpoint then returns 404.
func NewHTTPServer(cfg config.ServerConfig, store *state.Store, tr *tracker.Tracker, agg *history.Aggregator, metricsHandler http.Handler) *HTTPServer {
	return &HTTPServer{
		cfg:        cfg,
		store:      store,
		tracker:    tr,
		aggregator: agg,
		metricsH:   metricsHandler,
		startTime:  time.Now(),
	}
}

// Start binds the listen address and begins serving. Binding failures are
// returned synchronously so startup fails fast instead of logging an
// 'address already in use' line from a goroutine.
func (s *HTTPServer) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return fmt.Errorf("bind %s: %w", s.cfg.Listen, err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	if s.metricsH != nil {
		mux.Handle("/metrics", s.metricsH)
	}
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/history", s.handleHistory)

	s.server = &http.Server{
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	go func() {
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error",
				logfields.Component("server"), logfields.Error(err))
		}
	}()

	slog.Info("HTTP server started",
		logfields.Component("server"), slog.String("listen", s.cfg.Listen))
	return nil
}

// Stop gracefully shuts the server down.
func (s *HTTPServer) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.startTime).Round(time.Second).String(),
	})
}

// statusResponse is the live-state view served at /api/v1/status.
type statusResponse struct {
	AccumulatedSeconds uint64  `json:"accumulated_seconds"`
	ScreenTime         string  `json:"screen_time"`
	TargetSeconds      uint64  `json:"target_seconds"`
	OverTarget         bool    `json:"over_target"`
	LiveDistanceCm     float64 `json:"live_distance_cm"`
	DistanceAvailable  bool    `json:"distance_available"`
	DistanceTargetCm   uint16  `json:"distance_target_cm"`
	ViolationsToday    uint32  `json:"violations_today"`
	TrackerActive      bool    `json:"tracker_active"`
	OverlayEnabled     bool    `json:"overlay_enabled"`
	Docked             bool    `json:"docked"`
}

func (s *HTTPServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snap := s.store.Current()
	target := uint64(snap.TargetDuration() / time.Second)
	resp := statusResponse{
		AccumulatedSeconds: snap.AccumulatedSeconds,
		ScreenTime: fmt.Sprintf("%dh %02dm",
			snap.AccumulatedSeconds/3600, snap.AccumulatedSeconds%3600/60),
		TargetSeconds:     target,
		OverTarget:        target > 0 && snap.AccumulatedSeconds >= target,
		LiveDistanceCm:    snap.LiveDistanceCm,
		DistanceAvailable: snap.DistanceAvailable(),
		DistanceTargetCm:  snap.DistanceTargetCm,
		ViolationsToday:   s.tracker.ViolationCount(r.Context()),
		TrackerActive:     snap.TrackerActive,
		OverlayEnabled:    snap.OverlayEnabled,
		Docked:            snap.Docked,
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleHistory serves rollups: /api/v1/history?period=day|week|month|year&n=30
func (s *HTTPServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	n := 30
	if raw := r.URL.Query().Get("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > historyWindowMax {
			http.Error(w, fmt.Sprintf("n must be 1..%d", historyWindowMax), http.StatusBadRequest)
			return
		}
		n = parsed
	}

	ctx := r.Context()
	var (
		payload any
		err     error
	)
	switch period := r.URL.Query().Get("period"); period {
	case "", "day":
		payload, err = s.aggregator.LastDays(ctx, n)
	case "week":
		payload, err = s.aggregator.LastWeeks(ctx, n)
	case "month":
		payload, err = s.aggregator.LastMonths(ctx, n)
	case "year":
		payload, err = s.aggregator.LastYears(ctx, n)
	default:
		http.Error(w, "period must be day, week, month or year", http.StatusBadRequest)
		return
	}
	if err != nil {
		slog.Error("History query failed",
			logfields.Component("server"), logfields.Error(err))
		http.Error(w, "history unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("Encoding response failed",
			logfields.Component("server"), logfields.Error(err))
	}
}
