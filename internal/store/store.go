package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Reidentify/internal/fuzzy"
)

type RunStatus string

const (
	StatusPending   RunStatus = "pending"
	StatusRunning   RunStatus = "running"
	StatusCompleted RunStatus = "completed"
	StatusFailed    RunStatus = "failed"
	StatusTimedOut  RunStatus = "timed_out"
)

// Terminal reports whether a run in this status will never change again.
func (s RunStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusTimedOut
}

// FitSpec is a weight identification request: a decision matrix, the reference ranking
// of its rows and the search interval of every criterion weight. Empty method, distance
// and optimizer fields fall back to the service configuration.
type FitSpec struct {
	Matrix  [][]float64 `json:"matrix"`
	Target  []float64   `json:"target"`
	Bounds  [][]float64 `json:"bounds"`
	Types   []float64   `json:"types,omitempty"`
	Weights []float64   `json:"weights,omitempty"`

	Method    string  `json:"method,omitempty"`
	Distance  string  `json:"distance,omitempty"`
	Penalty   float64 `json:"penalty,omitempty"`
	Optimizer string  `json:"optimizer,omitempty"`
	Epochs    int     `json:"epochs,omitempty"`
	PopSize   int     `json:"pop_size,omitempty"`
	Seed      *uint64 `json:"seed,omitempty"`
	Workers   int     `json:"workers,omitempty"`

	TimeoutSeconds int    `json:"timeout_seconds,omitempty"`
	Source         string `json:"source,omitempty"`
}

type Run struct {
	ID     uuid.UUID `json:"run_id"`
	Status RunStatus `json:"status"`
	Spec   FitSpec   `json:"spec"`

	// Result
	Weights      []float64   `json:"weights,omitempty"`
	Solution     []float64   `json:"solution,omitempty"`
	FuzzyWeights []fuzzy.TFN `json:"fuzzy_weights,omitempty"`
	Fitness      *float64    `json:"fitness,omitempty"`
	Evaluations  int         `json:"evaluations"`
	Error        string      `json:"error,omitempty"`

	// Timestamps
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type RunFilter struct {
	Status *RunStatus
	Source string
	Limit  int
	Offset int
}

type RunEvent struct {
	ID        uuid.UUID              `json:"id"`
	RunID     uuid.UUID              `json:"run_id"`
	Event     string                 `json:"event"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

type RunStats struct {
	TotalPending    int     `json:"total_pending"`
	TotalRunning    int     `json:"total_running"`
	TotalCompleted  int     `json:"total_completed"`
	TotalFailed     int     `json:"total_failed"`
	TotalTimedOut   int     `json:"total_timed_out"`
	AvgCompletionMs float64 `json:"avg_completion_ms"`
}

// Store keeps fit runs. GetRun returns nil, nil for unknown IDs.
type Store interface {
	CreateRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, id uuid.UUID) (*Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]*Run, error)
	UpdateRun(ctx context.Context, run *Run) error
	// TransitionRun stores run only while the stored status is still from, and fails
	// with ErrStatusChanged otherwise.
	TransitionRun(ctx context.Context, run *Run, from RunStatus) error

	GetPendingRuns(ctx context.Context) ([]*Run, error)
	GetActiveRuns(ctx context.Context) ([]*Run, error)

	CreateRunEvent(ctx context.Context, event *RunEvent) error
	GetRunEvents(ctx context.Context, runID uuid.UUID) ([]*RunEvent, error)

	GetStats(ctx context.Context) (*RunStats, error)

	Close() error
}
