// Package server exposes the tracker's status surface over HTTP.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"price-drop-tracker/internal/alert"
	"price-drop-tracker/internal/commands"
	"price-drop-tracker/internal/logs"
	"price-drop-tracker/internal/market"
	"price-drop-tracker/internal/types"
)

const serviceName = "price-drop-tracker"

type Tracker interface {
	RunCycle(ctx context.Context) (*types.Snapshot, error)
	LastResult() (*types.Snapshot, bool)
	Symbols() []types.Symbol
}

type Notifier interface {
	Notify(ctx context.Context, text string) error
}

type PhotoSender interface {
	SendPhoto(ctx context.Context, png []byte, caption string) error
}

type ChartRenderer interface {
	Render(snapshot *types.Snapshot) ([]byte, error)
}

type AlertHistory interface {
	GetAlertsByDay(day string) ([]types.AlertRecord, error)
}

// Options wires the server to the tracker. Only Tracker and Notifier are required.
type Options struct {
	Tracker  Tracker
	Notifier Notifier
	Photos   PhotoSender
	Charts   ChartRenderer
	History  AlertHistory
	Metrics  http.Handler
	LogDir   string
	// Now defaults to time.Now
	Now func() time.Time
}

type Server struct {
	opts Options
	mux  *http.ServeMux
}

func New(o Options) *Server {
	if o.Now == nil {
		o.Now = time.Now
	}
	s := &Server{opts: o, mux: http.NewServeMux()}

	s.mux.HandleFunc("GET /health", s.health)
	s.mux.HandleFunc("POST /check-prices", s.checkPrices)
	s.mux.HandleFunc("GET /status", s.status)
	s.mux.HandleFunc("GET /logs", s.logs)
	s.mux.HandleFunc("GET /symbols", s.symbols)
	s.mux.HandleFunc("POST /send-status-telegram", s.sendStatus)
	if o.History != nil {
		s.mux.HandleFunc("GET /alerts", s.alerts)
	}
	if o.Metrics != nil {
		s.mux.Handle("GET /metrics", o.Metrics)
	}
	return s
}

// Handler returns the routes wrapped in request logging
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			log.Debugf("%s %s from %s", r.Method, r.URL.Path, r.RemoteAddr)
		}
		s.mux.ServeHTTP(w, r)
	})
}

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Infof("Launching status endpoint on %s", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return errors.Wrap(err, "status server failed")
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("Failed to write response: %v", err)
	}
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": s.opts.Now().Format(time.RFC3339),
		"service":   serviceName,
	})
}

func (s *Server) checkPrices(w http.ResponseWriter, r *http.Request) {
	log.Info("Manual price check triggered via API")

	message := "Price check completed"
	var nextOpen string
	_, err := s.opts.Tracker.RunCycle(r.Context())
	switch {
	case errors.Is(err, market.ErrMarketClosed):
		message = "Market is closed, check skipped"
		var closed *market.ClosedError
		if errors.As(err, &closed) {
			nextOpen = closed.NextOpen.Format(time.RFC3339)
		}
	case err != nil:
		var critical *alert.CriticalError
		if !errors.As(err, &critical) {
			writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"error": err.Error()})
			return
		}
		message = "Price check failed"
	}

	last, _ := s.opts.Tracker.LastResult()
	body := map[string]interface{}{
		"message":    message,
		"last_check": last,
	}
	if nextOpen != "" {
		body["next_open"] = nextOpen
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) status(w http.ResponseWriter, _ *http.Request) {
	last, ok := s.opts.Tracker.LastResult()
	if !ok {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":  "no_checks_yet",
			"message": "No price checks have been performed yet",
		})
		return
	}
	writeJSON(w, http.StatusOK, last)
}

func (s *Server) logs(w http.ResponseWriter, _ *http.Request) {
	today := alert.Day(s.opts.Now())
	lines := []string{}
	if s.opts.LogDir != "" {
		var err error
		if lines, err = logs.Tail(s.opts.LogDir, today); err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"error": err.Error()})
			return
		}
	}

	resp := map[string]interface{}{
		"date":  today,
		"logs":  lines,
		"count": len(lines),
	}
	if len(lines) == 0 {
		resp["message"] = "No logs for today"
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) symbols(w http.ResponseWriter, _ *http.Request) {
	symbols := s.opts.Tracker.Symbols()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"symbols": symbols,
		"count":   len(symbols),
	})
}

func (s *Server) sendStatus(w http.ResponseWriter, r *http.Request) {
	last, ok := s.opts.Tracker.LastResult()
	if !ok {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"message":     "No price data available yet",
			"status_sent": false,
		})
		return
	}
	if len(last.Results) == 0 {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"message":     "No results to send",
			"status_sent": false,
		})
		return
	}

	if err := s.opts.Notifier.Notify(r.Context(), commands.CommandStatus(last, s.opts.Now())); err != nil {
		log.Errorf("Error sending status to Telegram: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"error":       err.Error(),
			"status_sent": false,
		})
		return
	}
	log.Info("Status sent to Telegram via endpoint")

	if s.opts.Photos != nil && s.opts.Charts != nil {
		if png, err := s.opts.Charts.Render(last); err != nil {
			log.Debugf("chart unavailable: %v", err)
		} else if err := s.opts.Photos.SendPhoto(r.Context(), png, ""); err != nil {
			log.Warnf("Failed to send status chart: %v", err)
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":     "Status sent to Telegram successfully",
		"status_sent": true,
	})
}

func (s *Server) alerts(w http.ResponseWriter, r *http.Request) {
	day := r.URL.Query().Get("day")
	if day == "" {
		day = alert.Day(s.opts.Now())
	} else if _, err := time.Parse("2006-01-02", day); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": "day must be YYYY-MM-DD"})
		return
	}

	records, err := s.opts.History.GetAlertsByDay(day)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"date":   day,
		"alerts": records,
		"count":  len(records),
	})
}
