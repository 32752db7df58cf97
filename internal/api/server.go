package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"SignalDesk/internal/collector"
	"SignalDesk/internal/metrics"
	"SignalDesk/internal/model"
	"SignalDesk/internal/recorder"
	"SignalDesk/internal/scheduler"
)

// GroupService is what the API needs from the scheduler.
type GroupService interface {
	Groups() []model.Group
	RunNow(ctx context.Context, groupID string) (*model.GroupAnalysisResult, error)
	Latest(ctx context.Context, groupID string) (*model.GroupAnalysisResult, error)
}

// SymbolAnalyzer analyzes one ad-hoc symbol.
type SymbolAnalyzer interface {
	Analyze(ctx context.Context, cfg model.SymbolConfig) *model.SymbolAnalysisResult
}

// Server serves the HTTP API.
type Server struct {
	groups   GroupService
	analyzer SymbolAnalyzer
	metrics  *metrics.Metrics
	jwt      *JWTManager
	hub      *Hub
	router   chi.Router
}

// NewServer builds the router. An empty jwtSecret leaves /api and /ws open.
func NewServer(groups GroupService, analyzer SymbolAnalyzer, m *metrics.Metrics, jwtSecret string) *Server {
	s := &Server{
		groups:   groups,
		analyzer: analyzer,
		metrics:  m,
		hub:      NewHub(),
	}
	if jwtSecret != "" {
		s.jwt = NewJWTManager(jwtSecret)
	}
	s.router = s.routes()
	return s
}

func (s *Server) Hub() *Hub             { return s.hub }
func (s *Server) Handler() http.Handler { return s.router }
func (s *Server) JWT() *JWTManager      { return s.jwt }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}
	r.Group(func(r chi.Router) {
		if s.jwt != nil {
			r.Use(s.jwt.Middleware)
		}
		r.Get("/ws", s.hub.ServeWS)
	})

	r.Route("/api", func(r chi.Router) {
		if s.jwt != nil {
			r.Use(s.jwt.Middleware)
		}
		r.Get("/groups", s.handleGroups)
		r.Post("/groups/{id}/analyze", s.handleAnalyzeGroup)
		r.Get("/groups/{id}/latest", s.handleLatest)
		r.Get("/symbols/{symbol}", s.handleSymbol)
	})
	return r
}

type groupView struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Enabled     bool     `json:"enabled"`
	Cron        string   `json:"cron,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Symbols     int      `json:"symbols"`
	Active      int      `json:"active_symbols"`
}

func (s *Server) handleGroups(w http.ResponseWriter, r *http.Request) {
	groups := s.groups.Groups()
	out := make([]groupView, 0, len(groups))
	for _, g := range groups {
		out = append(out, groupView{
			ID: g.ID, Name: g.Name, Description: g.Description, Enabled: g.Enabled,
			Cron: g.Cron, Tags: g.Tags, Symbols: len(g.Symbols), Active: len(g.EnabledSymbols()),
		})
	}
	WriteJSON(w, http.StatusOK, out)
}

func (s *Server) handleAnalyzeGroup(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	res, err := s.groups.RunNow(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, res)
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	res, err := s.groups.Latest(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, res)
}

func (s *Server) handleSymbol(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	cfg := model.SymbolConfig{
		Symbol:    chi.URLParam(r, "symbol"),
		AssetType: orDefault(q.Get("asset_type"), model.AssetStocks),
		Timeframe: orDefault(q.Get("timeframe"), "1d"),
		Period:    orDefault(q.Get("period"), "1y"),
		Strategy:  q.Get("strategy"),
		Enabled:   true,
	}
	if _, err := collector.ParseTimeframe(cfg.Timeframe); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := collector.ParsePeriod(cfg.Period); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()
	res := s.analyzer.Analyze(ctx, cfg)
	if !res.Success {
		WriteJSON(w, http.StatusBadGateway, res)
		return
	}
	WriteJSON(w, http.StatusOK, res)
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, scheduler.ErrUnknownGroup), errors.Is(err, recorder.ErrNotFound):
		WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, scheduler.ErrGroupDisabled):
		WriteError(w, http.StatusConflict, err.Error())
	default:
		log.Printf("[ERROR] api: %v", err)
		WriteError(w, http.StatusInternalServerError, err.Error())
	}
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[ERROR] encode response: %v", err)
	}
}

// WriteError writes {"error": msg}.
func WriteError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, map[string]string{"error": msg})
}
