// Package api exposes the read-side HTTP surface: level lookups, top-ten
// snapshots, health and metrics.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	levelservice "github.com/skybound-club/isle-level/app/modules/level/application"
	sharedtypes "github.com/skybound-club/isle-level/app/shared/types"
)

type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer builds the HTTP server. The prometheus registry may be nil, in
// which case /metrics is not mounted.
func NewServer(addr string, svc levelservice.Service, logger *slog.Logger, registry *prometheus.Registry) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	if registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/groups/{group}", func(r chi.Router) {
		r.Get("/top", getTopTen(svc, logger))
		r.Get("/owners/{owner}/level", getOwnerLevel(svc, logger))
	})

	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// Handler returns the mounted routes, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe blocks until the server stops.
func (s *Server) ListenAndServe() error {
	s.logger.Info("HTTP API listening", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

type levelResponse struct {
	GroupName sharedtypes.GroupName `json:"group_name"`
	OwnerID   sharedtypes.OwnerID   `json:"owner_id"`
	Level     sharedtypes.Level     `json:"level"`
}

type topTenResponse struct {
	GroupName sharedtypes.GroupName    `json:"group_name"`
	Entries   []sharedtypes.BoardEntry `json:"entries"`
}

func getOwnerLevel(svc levelservice.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		group := sharedtypes.GroupName(chi.URLParam(r, "group"))
		owner, err := sharedtypes.ParseOwnerID(chi.URLParam(r, "owner"))
		if err != nil {
			http.Error(w, "invalid owner id", http.StatusBadRequest)
			return
		}

		level := svc.GetLevel(r.Context(), group, owner)
		writeJSON(w, logger, levelResponse{
			GroupName: group,
			OwnerID:   owner,
			Level:     level,
		})
	}
}

func getTopTen(svc levelservice.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		group := sharedtypes.GroupName(chi.URLParam(r, "group"))
		entries := svc.GetTopTen(r.Context(), group)
		if entries == nil {
			entries = []sharedtypes.BoardEntry{}
		}
		writeJSON(w, logger, topTenResponse{
			GroupName: group,
			Entries:   entries,
		})
	}
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("Failed to encode response", slog.Any("error", err))
	}
}
