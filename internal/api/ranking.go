package api

import (
	"encoding/json"
	"net/http"

	"github.com/MikeSquared-Agency/Reidentify/internal/fuzzy"
	"github.com/MikeSquared-Agency/Reidentify/internal/ranking"
	"github.com/MikeSquared-Agency/Reidentify/internal/runner"
	"github.com/MikeSquared-Agency/Reidentify/internal/scoring"
	"github.com/MikeSquared-Agency/Reidentify/internal/stfn"
)

// RankingHandler exposes the ranking methods and fuzzy number construction without
// running a fit.
type RankingHandler struct{}

func NewRankingHandler() *RankingHandler { return &RankingHandler{} }

type RankRequest struct {
	Matrix  [][]float64 `json:"matrix"`
	Weights []float64   `json:"weights"`
	Types   []float64   `json:"types,omitempty"`
	Method  string      `json:"method,omitempty"`

	// Target and Distance are optional; when a target is given the response carries the
	// distance between it and the computed ranking.
	Target   []float64 `json:"target,omitempty"`
	Distance string    `json:"distance,omitempty"`
}

type RankResponse struct {
	Method      string    `json:"method"`
	Weights     []float64 `json:"weights"`
	Preferences []float64 `json:"preferences"`
	Ranking     []float64 `json:"ranking"`
	Distance    *float64  `json:"distance,omitempty"`
}

func (h *RankingHandler) Rank(w http.ResponseWriter, r *http.Request) {
	var req RankRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	matrix, err := runner.Matrix(req.Matrix)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	method, err := scoring.ByName(req.Method)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	weights, err := scoring.Normalize(req.Weights)
	if err == nil {
		err = scoring.Validate(weights)
	}
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	types := req.Types
	if types == nil {
		_, cols := matrix.Dims()
		types = scoring.CriteriaTypes(cols)
	}

	pref, err := method.Score(matrix, weights, types)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	resp := RankResponse{
		Method:      method.Name(),
		Weights:     weights,
		Preferences: pref,
		Ranking:     method.Rank(pref),
	}

	if req.Target != nil {
		if len(req.Target) != len(resp.Ranking) {
			writeError(w, http.StatusBadRequest, "target must rank every alternative")
			return
		}
		dist, err := ranking.ByName(req.Distance)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		d := dist(resp.Ranking, req.Target)
		resp.Distance = &d
	}
	writeJSON(w, http.StatusOK, resp)
}

type FuzzyRequest struct {
	Bounds [][]float64 `json:"bounds"`
	Cores  []float64   `json:"cores"`
}

// FuzzyResponse reports, per criterion, the fuzzy number, its centroid and whether its
// core lies inside the bounds. Cores outside the bounds are returned as given.
type FuzzyResponse struct {
	Numbers   []fuzzy.TFN `json:"numbers"`
	Centroids []float64   `json:"centroids"`
	Valid     []bool      `json:"valid"`
}

func (h *RankingHandler) Fuzzy(w http.ResponseWriter, r *http.Request) {
	var req FuzzyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	m, err := runner.Matrix(req.Bounds)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	bounds, err := stfn.NewBounds(m)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	numbers, err := bounds.FuzzyNumbers(req.Cores)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	resp := FuzzyResponse{
		Numbers:   numbers,
		Centroids: make([]float64, len(numbers)),
		Valid:     make([]bool, len(numbers)),
	}
	for i, n := range numbers {
		resp.Centroids[i] = n.Centroid()
		resp.Valid[i] = n.Valid()
	}
	writeJSON(w, http.StatusOK, resp)
}
