package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/obsidianstack/upperlimit/internal/store"
)

// Handler is the HTTP handler for all /api/v1/* endpoints.
// It reads analysis results from the store and returns JSON responses.
type Handler struct {
	store *store.Store
	mux   *http.ServeMux
	now   func() time.Time
}

// New creates a Handler wired to the given result store and registers all routes.
func New(st *store.Store) http.Handler {
	h := &Handler{store: st, mux: http.NewServeMux(), now: time.Now}

	h.mux.HandleFunc("/api/v1/health", h.health)
	h.mux.HandleFunc("/api/v1/analyses", h.listAnalyses)
	h.mux.HandleFunc("/api/v1/analyses/", h.getAnalysis) // subtree, extracts {name}
	h.mux.HandleFunc("/api/v1/snapshot", h.snapshot)

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// health returns GET /api/v1/health: ok when every analysis succeeded.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	entries := h.store.List()
	resp := HealthResponse{
		AnalysisCount: len(entries),
		Generation:    h.store.Generation(),
	}
	for _, e := range entries {
		if e.Result.OK() {
			resp.OKCount++
		} else {
			resp.ErrorCount++
		}
	}
	switch {
	case len(entries) == 0:
		resp.State = "unknown"
	case resp.ErrorCount > 0:
		resp.State = "degraded"
	default:
		resp.State = "ok"
	}
	jsonResp(w, http.StatusOK, resp)
}

// listAnalyses returns GET /api/v1/analyses.
func (h *Handler) listAnalyses(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, h.all())
}

// getAnalysis returns GET /api/v1/analyses/{name}. With ?confidence=c only
// the upper limit at that level is returned.
func (h *Handler) getAnalysis(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	name := strings.TrimPrefix(r.URL.Path, "/api/v1/analyses/")
	if name == "" {
		h.listAnalyses(w, r)
		return
	}

	e, ok := h.store.Get(name)
	if !ok {
		jsonErr(w, http.StatusNotFound, "analysis not found")
		return
	}
	if q := r.URL.Query().Get("confidence"); q != "" {
		h.upperAt(w, e, q)
		return
	}
	jsonResp(w, http.StatusOK, toAnalysisResponse(e))
}

func (h *Handler) upperAt(w http.ResponseWriter, e *store.Entry, q string) {
	c, err := strconv.ParseFloat(q, 64)
	if err != nil {
		jsonErr(w, http.StatusBadRequest, "confidence must be a number")
		return
	}
	if !e.Result.OK() {
		jsonErr(w, http.StatusConflict, e.Result.ErrorMessage)
		return
	}
	up, ok := e.Result.UpperAt(c)
	if !ok {
		jsonErr(w, http.StatusNotFound, "confidence level not computed")
		return
	}
	jsonResp(w, http.StatusOK, UpperResponse{Name: e.Result.Analysis, Confidence: c, Upper: up})
}

// snapshot returns GET /api/v1/snapshot.
func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, SnapshotResponse{
		Analyses:    h.all(),
		GeneratedAt: h.now().UTC().Format(time.RFC3339),
	})
}

// --- helpers ----------------------------------------------------------------

func (h *Handler) all() []AnalysisResponse {
	entries := h.store.List()
	out := make([]AnalysisResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toAnalysisResponse(e))
	}
	return out
}

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}

// toAnalysisResponse maps a store.Entry to its JSON representation.
func toAnalysisResponse(e *store.Entry) AnalysisResponse {
	res := e.Result
	out := AnalysisResponse{
		Name:        res.Analysis,
		State:       "ok",
		Fingerprint: res.Fingerprint,
		ComputedAt:  res.ComputedAt.UTC().Format(time.RFC3339),
		DurationMs:  float64(res.Duration) / float64(time.Millisecond),
		Cached:      res.Cached,
		GridPoints:  res.GridPoints,
		MaxRate:     res.MaxRate,
		Searches:    make([]SearchResponse, 0, len(res.Searches)),
		Limits:      make([]LimitResponse, 0, len(res.Limits)),
		LastUpdated: e.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if !res.OK() {
		out.State = "error"
		out.Error = res.ErrorMessage
		if out.Error == "" {
			out.Error = res.Err.Error()
		}
	}
	for _, s := range res.Searches {
		out.Searches = append(out.Searches, SearchResponse{
			Name:        s.Name,
			Kind:        s.Kind,
			Livetime:    s.Livetime,
			Volume:      s.Sensitivity.Volume,
			VolumeError: s.Sensitivity.VolumeError,
			Background:  s.Sensitivity.Background,
		})
	}
	for _, l := range res.Limits {
		out.Limits = append(out.Limits, LimitResponse{
			Confidence:   l.Confidence,
			Upper:        l.Upper,
			MinWidth:     [2]float64{l.MinWidth.Lower, l.MinWidth.Upper},
			HPD:          [2]float64{l.HPD.Lower, l.HPD.Upper},
			HPDThreshold: l.HPD.Threshold,
		})
	}
	return out
}
