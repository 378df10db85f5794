package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"pywr/internal/apperror"
	"pywr/internal/logging"
	"pywr/internal/obsmetrics"
	"pywr/internal/recorder"
	"pywr/internal/runcache"
	"pywr/internal/runstore"
	"pywr/internal/schema"
	"pywr/internal/simulator"
)

// Handlers implements the HTTP endpoints Server.New registers.
type Handlers struct {
	store   *runstore.Store
	cache   runcache.Cache
	tokens  *TokenManager
	metrics *obsmetrics.Metrics
}

func (h *Handlers) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.tokens.cfg.SecretKey == "" {
			// No secret configured: `pywr serve` is running as a local,
			// unauthenticated dev tool. Matches original §6's scope of a
			// local job-submission API, not a hardened multi-tenant one.
			next(w, r)
			return
		}
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			writeError(w, apperror.New(apperror.CodeUnauthenticated, "missing bearer token"))
			return
		}
		if _, err := h.tokens.Verify(token); err != nil {
			writeError(w, apperror.New(apperror.CodeUnauthenticated, "invalid bearer token"))
			return
		}
		next(w, r)
	}
}

func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

type submitResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// handleSubmitRun decodes a model document, builds and runs it
// synchronously relative to the request (one Engine per request — this
// is a single-process job API, not a queue), and returns its run ID plus
// final status. Per-metric-set aggregated values are persisted via the
// run store when one is configured.
func (h *Handlers) handleSubmitRun(w http.ResponseWriter, r *http.Request) {
	var doc schema.Document
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeError(w, apperror.Wrap(err, apperror.CodeSchemaError, "decode model document"))
		return
	}

	model, store, err := schema.Build(&doc)
	if err != nil {
		writeError(w, err)
		return
	}

	var runID uuid.UUID
	if h.store != nil {
		runID, err = h.store.Create(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		_ = h.store.SetRunning(r.Context(), runID)
	} else {
		runID = uuid.New()
	}

	eng, err := simulator.New(model, store, nil)
	if err != nil {
		h.fail(r, runID, err)
		writeError(w, err)
		return
	}

	scalars := make(map[string]*recorder.AggregatedScalarRecorder, len(model.MetricSets))
	for _, ms := range model.MetricSets {
		rec := recorder.NewAggregatedScalarRecorder(ms.Name)
		scalars[ms.Name] = rec
		eng.AddRecorder(rec)
	}

	if runErr := eng.RunScenarios(r.Context(), nil); runErr != nil && runErr.HasFailures() {
		h.metrics.RecordRun("failed", 0)
		appErr := runErr.Failures[0].Err
		h.fail(r, runID, appErr)
		writeError(w, appErr)
		return
	}
	h.metrics.RecordRun("complete", 0)

	results := make(map[string]float64)
	for name, rec := range scalars {
		for metric, v := range collectResults(rec) {
			results[name+"."+metric] = v
		}
	}

	if h.store != nil {
		if err := h.store.Complete(r.Context(), runID, results); err != nil {
			logging.Log.Warn("failed to persist run results", "run", runID, "error", err)
		}
	}

	writeJSON(w, http.StatusOK, submitResponse{ID: runID.String(), Status: string(runstore.StatusComplete)})
}

// collectResults reads every metric the engine already reduced via its own
// end-of-run Finalize call (see simulator/run.go).
func collectResults(rec *recorder.AggregatedScalarRecorder) map[string]float64 {
	return rec.Results()
}

func (h *Handlers) fail(r *http.Request, runID uuid.UUID, err error) {
	if h.store == nil {
		return
	}
	if ferr := h.store.Fail(r.Context(), runID, err); ferr != nil {
		logging.Log.Warn("failed to persist run failure", "run", runID, "error", ferr)
	}
}

func (h *Handlers) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, apperror.New(apperror.CodeBuildError, "pywr serve has no run store configured"))
		return
	}
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, apperror.New(apperror.CodeInvalidArgument, "invalid run id"))
		return
	}
	m, err := h.store.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var appErr *apperror.Error
	if errAs(err, &appErr) {
		status = appErr.HTTPStatus()
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func errAs(err error, target **apperror.Error) bool {
	e, ok := err.(*apperror.Error)
	if ok {
		*target = e
	}
	return ok
}
