// Package api exposes the engine over HTTP with a chi router.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/alexanderramin/waypoint/internal/domain"
	"github.com/alexanderramin/waypoint/internal/pivot"
	"github.com/alexanderramin/waypoint/internal/service"
	"github.com/alexanderramin/waypoint/internal/trust"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Engine is the slice of the service layer the HTTP surface calls.
type Engine interface {
	ListPivots(ctx context.Context, principal domain.Principal, tripID string, status domain.PivotStatus) ([]*domain.PivotEvent, error)
	Pivot(ctx context.Context, principal domain.Principal, pivotID string) (*domain.PivotEvent, error)
	Decide(ctx context.Context, principal domain.Principal, req pivot.DecideRequest) (*pivot.Decision, error)
	EvaluateTrip(ctx context.Context, principal domain.Principal, tripID string) (*service.Evaluation, error)
	SubmitPrompt(ctx context.Context, principal domain.Principal, tripID, text string) (*service.PromptOutcome, error)
	Flag(ctx context.Context, principal domain.Principal, rep trust.Report) (*trust.Outcome, error)
	ReviewQueue(ctx context.Context, principal domain.Principal) (*trust.Queue, error)
	Audit(ctx context.Context, principal domain.Principal, tripID string, limit int) ([]*domain.AuditRecord, error)
}

var _ Engine = (*service.Engine)(nil)

// maxBodyBytes bounds request bodies; prompts are cut to 500 runes anyway.
const maxBodyBytes = 16 << 10

const defaultAuditLimit = 100

type Server struct {
	engine Engine
	logger *slog.Logger
}

// NewHandler builds the router. metrics may be nil.
func NewHandler(engine Engine, metrics http.Handler, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{engine: engine, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(authenticate)
		r.Get("/trips/{tripID}/pivots", s.listPivots)
		r.Post("/trips/{tripID}/evaluate", s.evaluate)
		r.Post("/trips/{tripID}/prompts", s.submitPrompt)
		r.Get("/trips/{tripID}/audit", s.audit)
		r.Get("/pivots/{pivotID}/candidates", s.candidates)
		r.Post("/pivots/{pivotID}/decision", s.decide)
		r.Post("/slots/{slotID}/flags", s.flag)
		r.Get("/admin/review-queue", s.reviewQueue)
	})
	return r
}

func (s *Server) listPivots(w http.ResponseWriter, r *http.Request) {
	status := domain.PivotStatus(r.URL.Query().Get("status"))
	if status != "" && status != domain.PivotProposed && !status.IsTerminal() {
		s.writeError(w, r, domain.NewValidationError("unknown status "+string(status)))
		return
	}
	ps, err := s.engine.ListPivots(r.Context(), principalFrom(r.Context()), chi.URLParam(r, "tripID"), status)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]pivotJSON, 0, len(ps))
	for _, p := range ps {
		out = append(out, toPivotJSON(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{"pivots": out})
}

func (s *Server) candidates(w http.ResponseWriter, r *http.Request) {
	p, err := s.engine.Pivot(r.Context(), principalFrom(r.Context()), chi.URLParam(r, "pivotID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"pivot_id":   p.ID,
		"status":     p.Status,
		"candidates": toCandidatesJSON(p.Candidates),
	})
}

type decisionRequest struct {
	Accept bool `json:"accept"`
	Rank   int  `json:"rank"`
}

func (s *Server) decide(w http.ResponseWriter, r *http.Request) {
	var body decisionRequest
	if !s.decode(w, r, &body) {
		return
	}
	d, err := s.engine.Decide(r.Context(), principalFrom(r.Context()), pivot.DecideRequest{
		PivotID: chi.URLParam(r, "pivotID"),
		Accept:  body.Accept,
		Rank:    body.Rank,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDecisionJSON(d))
}

func (s *Server) evaluate(w http.ResponseWriter, r *http.Request) {
	ev, err := s.engine.EvaluateTrip(r.Context(), principalFrom(r.Context()), chi.URLParam(r, "tripID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	results := make([]triggerResultJSON, 0, len(ev.Results))
	for _, res := range ev.Results {
		results = append(results, toTriggerResultJSON(res))
	}
	writeJSON(w, http.StatusOK, map[string]any{"trip_id": ev.TripID, "results": results})
}

type promptRequest struct {
	Text string `json:"text"`
}

func (s *Server) submitPrompt(w http.ResponseWriter, r *http.Request) {
	var body promptRequest
	if !s.decode(w, r, &body) {
		return
	}
	out, err := s.engine.SubmitPrompt(r.Context(), principalFrom(r.Context()), chi.URLParam(r, "tripID"), body.Text)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPromptJSON(out))
}

type flagRequest struct {
	Kind string `json:"kind"`
	Note string `json:"note"`
}

func (s *Server) flag(w http.ResponseWriter, r *http.Request) {
	var body flagRequest
	if !s.decode(w, r, &body) {
		return
	}
	out, err := s.engine.Flag(r.Context(), principalFrom(r.Context()), trust.Report{
		SlotID: chi.URLParam(r, "slotID"),
		Kind:   trust.Kind(body.Kind),
		Note:   body.Note,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"kind":             out.Kind,
		"slot_id":          out.SlotID,
		"activity_node_id": out.NodeID,
		"flag_id":          out.FlagID,
		"signaled":         out.Signaled,
	})
}

func (s *Server) reviewQueue(w http.ResponseWriter, r *http.Request) {
	q, err := s.engine.ReviewQueue(r.Context(), principalFrom(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toQueueJSON(q))
}

func (s *Server) audit(w http.ResponseWriter, r *http.Request) {
	limit := defaultAuditLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			s.writeError(w, r, domain.NewValidationError("limit must be a positive integer"))
			return
		}
		limit = n
	}
	records, err := s.engine.Audit(r.Context(), principalFrom(r.Context()), chi.URLParam(r, "tripID"), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]auditJSON, 0, len(records))
	for _, a := range records {
		out = append(out, toAuditJSON(a))
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": out})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		s.writeError(w, r, domain.NewValidationError("invalid request body: "+err.Error()))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Info("http_request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
