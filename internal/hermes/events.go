package hermes

import (
	"time"

	"github.com/MikeSquared-Agency/Reidentify/internal/fuzzy"
	"github.com/MikeSquared-Agency/Reidentify/internal/store"
)

// FitRequestEvent asks the service to fit weights. It carries the same payload as
// POST /api/v1/fits.
type FitRequestEvent struct {
	store.FitSpec
}

type FitQueuedEvent struct {
	RunID        string `json:"run_id"`
	Alternatives int    `json:"alternatives"`
	Criteria     int    `json:"criteria"`
	Source       string `json:"source,omitempty"`
}

type FitStartedEvent struct {
	RunID     string `json:"run_id"`
	Method    string `json:"method"`
	Distance  string `json:"distance"`
	Optimizer string `json:"optimizer"`
}

type FitCompletedEvent struct {
	RunID        string      `json:"run_id"`
	Weights      []float64   `json:"weights"`
	FuzzyWeights []fuzzy.TFN `json:"fuzzy_weights"`
	Fitness      float64     `json:"fitness"`
	Evaluations  int         `json:"evaluations"`
	DurationMs   int64       `json:"duration_ms"`
}

type FitFailedEvent struct {
	RunID string `json:"run_id"`
	Error string `json:"error"`
}

type FitTimeoutEvent struct {
	RunID          string `json:"run_id"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

type StatsEvent struct {
	Pending   int       `json:"pending"`
	Running   int       `json:"running"`
	Completed int       `json:"completed"`
	Failed    int       `json:"failed"`
	TimedOut  int       `json:"timed_out"`
	AvgMs     float64   `json:"avg_completion_ms"`
	Timestamp time.Time `json:"timestamp"`
}
