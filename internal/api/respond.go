package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/MikeSquared-Agency/Reidentify/internal/runner"
	"github.com/MikeSquared-Agency/Reidentify/internal/scoring"
	"github.com/MikeSquared-Agency/Reidentify/internal/stfn"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, runner.ErrInvalidSpec),
		errors.Is(err, stfn.ErrShape),
		errors.Is(err, scoring.ErrDimension),
		errors.Is(err, scoring.ErrZeroSum),
		errors.Is(err, scoring.ErrInvalidWeights),
		errors.Is(err, scoring.ErrCriterionType):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
