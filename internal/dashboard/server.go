// Package dashboard serves the ratio table and the volume chart over HTTP.
package dashboard

import (
	"context"
	"net/http"
	"time"

	"github.com/appleyytsai/Dashboard/internal/model"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Provider owns the current snapshot. *scheduler.Scheduler satisfies it.
type Provider interface {
	Snapshot() *model.Snapshot
	Refresh(ctx context.Context) *model.Snapshot
}

// DefaultRefreshTimeout bounds a refresh started over HTTP.
const DefaultRefreshTimeout = 5 * time.Minute

// Server is the dashboard HTTP surface.
type Server struct {
	Provider       Provider
	Title          string
	RefreshTimeout time.Duration
}

// NewServer creates a dashboard over p.
func NewServer(p Provider) *Server {
	return &Server{Provider: p, Title: "Valuation & Volume Dashboard", RefreshTimeout: DefaultRefreshTimeout}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleIndex)
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/export/ratios.xlsx", s.handleExport)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Get("/ratios", s.handleRatios)
		r.Get("/volume", s.handleVolume)
		r.Post("/refresh", s.handleRefresh)
	})
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("http request")
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]interface{}{"status": "ok"}
	if snap := s.Provider.Snapshot(); snap != nil {
		body["refreshed_at"] = snap.RefreshedAt.Format(time.RFC3339)
		body["run_id"] = snap.RunID
	}
	render.JSON(w, r, body)
}

func (s *Server) handleRatios(w http.ResponseWriter, r *http.Request) {
	snap := s.Provider.Snapshot()
	if snap == nil {
		notReady(w, r)
		return
	}
	render.JSON(w, r, newRatioResponse(snap))
}

func (s *Server) handleVolume(w http.ResponseWriter, r *http.Request) {
	snap := s.Provider.Snapshot()
	if snap == nil {
		notReady(w, r)
		return
	}
	if snap.Volume == nil {
		render.Status(r, http.StatusBadGateway)
		render.JSON(w, r, map[string]string{"error": snap.VolumeErr})
		return
	}
	render.JSON(w, r, newVolumeResponse(snap.Volume))
}

// handleRefresh runs the refresh detached from the request. A client that
// disconnects must not cancel the batch and publish a snapshot of skipped tickers.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), s.RefreshTimeout)
	defer cancel()
	snap := s.Provider.Refresh(ctx)
	render.JSON(w, r, map[string]interface{}{
		"run_id":       snap.RunID,
		"refreshed_at": snap.RefreshedAt.Format(time.RFC3339),
		"ratios":       len(snap.Ratios),
		"skipped":      len(snap.Skipped),
		"volume_ok":    snap.Volume != nil,
	})
}

func notReady(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusServiceUnavailable)
	render.JSON(w, r, map[string]string{"error": "no data yet"})
}
