package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"rgehrsitz/draftcheck/internal/facts"
	"rgehrsitz/draftcheck/internal/rules"
	"rgehrsitz/draftcheck/internal/runtime"
	"rgehrsitz/draftcheck/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Evaluator defines the engine operations the handler needs.
type Evaluator interface {
	Evaluate(input map[string]interface{}) (*runtime.Verdict, error)
	EvaluateBatch(ctx context.Context, subjects []runtime.Subject) ([]runtime.BatchResult, error)
	Catalog() *rules.Catalog
}

// AuditLog stores verdicts. It is optional.
type AuditLog interface {
	Record(ctx context.Context, subjectID string, v *runtime.Verdict) error
	Get(ctx context.Context, runID string) (*store.Record, error)
	ListBySubject(ctx context.Context, subjectID string, limit int) ([]*store.Record, error)
}

// Handler wires evaluation endpoints to the engine.
type Handler struct {
	engine Evaluator
	audit  AuditLog
}

// New constructs a handler. audit may be nil.
func New(engine Evaluator, audit AuditLog) *Handler {
	return &Handler{engine: engine, audit: audit}
}

// Register mounts the endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/healthz", h.HandleHealth)
	r.Post("/v1/evaluate", h.HandleEvaluate)
	r.Post("/v1/evaluate/batch", h.HandleEvaluateBatch)
	r.Get("/v1/catalog", h.HandleCatalog)
	r.Get("/v1/verdicts/{runID}", h.HandleGetVerdict)
	r.Get("/v1/subjects/{subjectID}/verdicts", h.HandleListVerdicts)
}

// NewRouter builds the full HTTP router including /metrics.
func NewRouter(h *Handler, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	h.Register(r)
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// NewServer builds an HTTP server with sane defaults for this project.
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// EvaluateRequest is the body of POST /v1/evaluate.
type EvaluateRequest struct {
	SubjectID string                 `json:"subjectId"`
	Facts     map[string]interface{} `json:"facts"`
}

// BatchRequest is the body of POST /v1/evaluate/batch.
type BatchRequest struct {
	Subjects []runtime.Subject `json:"subjects"`
}

// BatchItem is one entry of a batch response.
type BatchItem struct {
	SubjectID string           `json:"subjectId"`
	Verdict   *runtime.Verdict `json:"verdict,omitempty"`
	Error     string           `json:"error,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// HandleHealth handles GET /healthz.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "catalog": h.engine.Catalog().Fingerprint})
}

// HandleEvaluate handles POST /v1/evaluate.
func (h *Handler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if !decode(w, r, &req) {
		return
	}

	verdict, err := h.engine.Evaluate(req.Facts)
	if err != nil {
		writeInputError(w, err)
		return
	}
	h.record(r.Context(), req.SubjectID, verdict)

	writeJSON(w, http.StatusOK, verdict)
}

// HandleEvaluateBatch handles POST /v1/evaluate/batch.
func (h *Handler) HandleEvaluateBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if !decode(w, r, &req) {
		return
	}

	results, err := h.engine.EvaluateBatch(r.Context(), req.Subjects)
	if err != nil {
		log.Error().Err(err).Msg("Batch evaluation aborted")
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		return
	}

	items := make([]BatchItem, len(results))
	for i, res := range results {
		items[i] = BatchItem{SubjectID: res.SubjectID, Verdict: res.Verdict}
		if res.Err != nil {
			items[i].Error = res.Err.Error()
			continue
		}
		h.record(r.Context(), res.SubjectID, res.Verdict)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"results": items})
}

// HandleCatalog handles GET /v1/catalog.
func (h *Handler) HandleCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, SummarizeCatalog(h.engine.Catalog()))
}

// HandleGetVerdict handles GET /v1/verdicts/{runID}.
func (h *Handler) HandleGetVerdict(w http.ResponseWriter, r *http.Request) {
	if h.audit == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "audit log is disabled"})
		return
	}
	rec, err := h.audit.Get(r.Context(), chi.URLParam(r, "runID"))
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("Failed to read verdict")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// HandleListVerdicts handles GET /v1/subjects/{subjectID}/verdicts.
func (h *Handler) HandleListVerdicts(w http.ResponseWriter, r *http.Request) {
	if h.audit == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "audit log is disabled"})
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = n
	}

	records, err := h.audit.ListBySubject(r.Context(), chi.URLParam(r, "subjectID"), limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list verdicts")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}
	if records == nil {
		records = []*store.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"verdicts": records})
}

func (h *Handler) record(ctx context.Context, subjectID string, v *runtime.Verdict) {
	if h.audit == nil {
		return
	}
	// The verdict is still returned when the audit write fails.
	if err := h.audit.Record(ctx, subjectID, v); err != nil {
		log.Error().Err(err).Str("run_id", v.RunID).Msg("Failed to record verdict")
	}
}

func decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return false
	}
	return true
}

func writeInputError(w http.ResponseWriter, err error) {
	if errors.Is(err, facts.ErrUnsupportedValue) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	log.Error().Err(err).Msg("Evaluation failed")
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("Failed to write response")
	}
}
