package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/gasket/pkg/buildinfo"
	"github.com/matzehuels/gasket/pkg/errors"
	"github.com/matzehuels/gasket/pkg/gasket"
	"github.com/matzehuels/gasket/pkg/pipeline"
	"github.com/matzehuels/gasket/pkg/seed"
	"github.com/matzehuels/gasket/pkg/store"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 64 << 10

// GenerateRequest is the body of POST /api/gaskets.
type GenerateRequest struct {
	Curvatures []string `json:"curvatures" validate:"min=3,max=4,dive,required,max=256,curvature"`
	MaxDepth   int      `json:"max_depth" validate:"omitempty,min=1"`
	Refresh    bool     `json:"refresh"`
}

// GasketResponse is a gasket with its circles.
type GasketResponse struct {
	*store.Gasket
	Circles    []gasket.View `json:"circles"`
	Source     string        `json:"source"`
	DurationMS int64         `json:"duration_ms"`
}

// Sources of a GasketResponse.
const (
	SourceCache     = "cache"
	SourceStore     = "store"
	SourceGenerated = "generated"
)

func newGasketResponse(res *pipeline.Result) GasketResponse {
	source := SourceGenerated
	switch {
	case res.CacheHit:
		source = SourceCache
	case res.StoreHit:
		source = SourceStore
	}
	return GasketResponse{
		Gasket:     res.Gasket,
		Circles:    gasket.Views(res.Circles),
		Source:     source,
		DurationMS: res.Duration.Milliseconds(),
	}
}

// SeedView is one integral root quintet.
type SeedView struct {
	Curvatures [5]int64 `json:"curvatures"`
	B          int64    `json:"b"`
	Mu         int64    `json:"mu"`
	K          int64    `json:"k"`
	N          int64    `json:"n"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"build":  buildinfo.Get(),
	})
}

func (s *Server) handleCreateGasket(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.runner.Execute(r.Context(), pipeline.Options{
		Curvatures: req.Curvatures,
		MaxDepth:   req.MaxDepth,
		Refresh:    req.Refresh,
		DepthLimit: s.opts.DepthLimit,
		Tolerance:  s.opts.Tolerance,
		Logger:     s.opts.Logger,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newGasketResponse(res))
}

func (s *Server) handleListGaskets(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 50)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	gaskets, err := s.runner.List(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if gaskets == nil {
		gaskets = []*store.Gasket{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"gaskets": gaskets})
}

func (s *Server) handleGetGasket(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	depth, err := queryInt(r, "max_depth", 0)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.runner.Get(r.Context(), id, depth)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newGasketResponse(res))
}

func (s *Server) handleDeleteGasket(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.runner.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleIntegralSeeds(w http.ResponseWriter, r *http.Request) {
	maxB, err := queryInt(r, "max", pipeline.DefaultSeedBound)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	quintets, hit, err := s.runner.Seeds(r.Context(), int64(maxB))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"max":       maxB,
		"count":     len(quintets),
		"cache_hit": hit,
		"seeds":     seedViews(quintets),
	})
}

func seedViews(qs []seed.Quintet) []SeedView {
	out := make([]SeedView, len(qs))
	for i, q := range qs {
		out[i] = SeedView{Curvatures: q.Curvatures(), B: q.B, Mu: q.Mu, K: q.K, N: q.N}
	}
	return out
}

// =============================================================================
// Helpers
// =============================================================================

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid request body")
	}
	return s.check(v)
}

func pathID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, errors.New(errors.ErrCodeInvalidInput, "invalid gasket id %q", raw)
	}
	return id, nil
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New(errors.ErrCodeInvalidInput, "query parameter %s must be an integer, got %q", name, raw)
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
