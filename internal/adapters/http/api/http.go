// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/funnel/internal/domain/model"
)

// DefaultMaxUploadBytes bounds a multipart body when no limit is configured.
const DefaultMaxUploadBytes = 32 << 20

// Renderer renders funnels from raw action logs.
type Renderer interface {
	Render(ctx context.Context, primary, baseline []model.Record, opts model.Options) (*model.Funnel, error)
	Defaults() model.Options
}

// ActionLister lists the actions of a raw action log.
type ActionLister interface {
	Actions(ctx context.Context, records []model.Record, engine string) (model.ActionListing, error)
}

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	Renderer
	ActionLister
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	funnelHandler  *FunnelHandler
	actionsHandler *ActionsHandler
}

// Option configures a Server.
type Option func(*serverOptions)

type serverOptions struct {
	maxUploadBytes int64
}

// WithMaxUploadBytes caps the multipart body accepted by upload routes.
func WithMaxUploadBytes(n int64) Option {
	return func(o *serverOptions) {
		if n > 0 {
			o.maxUploadBytes = n
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	o := serverOptions{maxUploadBytes: DefaultMaxUploadBytes}
	for _, opt := range opts {
		opt(&o)
	}
	return &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(statsProvider),
		funnelHandler:  NewFunnelHandler(deps, o.maxUploadBytes),
		actionsHandler: NewActionsHandler(deps, o.maxUploadBytes),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/funnel", MetricsMiddleware(s.funnelHandler.HandlePostFunnel, "funnel"))
	mux.HandleFunc("/actions", MetricsMiddleware(s.actionsHandler.HandlePostActions, "actions"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
