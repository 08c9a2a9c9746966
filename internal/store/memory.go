package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
)

var (
	// ErrNotFound is returned by UpdateRun for a run that was never created or has been
	// evicted.
	ErrNotFound = errors.New("run not found")
	// ErrStatusChanged is returned by TransitionRun when another writer moved the run
	// first.
	ErrStatusChanged = errors.New("run status changed")
)

// MemoryStore keeps the most recent runs in a bounded LRU. Events of an evicted run are
// dropped with it. Values are copied on the way in and out, so callers never share
// slices with the store.
type MemoryStore struct {
	mu     sync.Mutex
	runs   *lru.Cache[uuid.UUID, *Run]
	events map[uuid.UUID][]*RunEvent
}

func NewMemoryStore(capacity int) (*MemoryStore, error) {
	s := &MemoryStore{events: make(map[uuid.UUID][]*RunEvent)}
	// onEvict runs inside runs.Add, which is only called with s.mu held.
	cache, err := lru.NewWithEvict[uuid.UUID, *Run](capacity, func(id uuid.UUID, _ *Run) {
		delete(s.events, id)
	})
	if err != nil {
		return nil, fmt.Errorf("create run cache: %w", err)
	}
	s.runs = cache
	return s, nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs.Purge()
	clear(s.events)
	return nil
}

func (s *MemoryStore) CreateRun(_ context.Context, run *Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if s.runs.Contains(run.ID) {
		return fmt.Errorf("run %s already exists", run.ID)
	}
	if run.Status == "" {
		run.Status = StatusPending
	}
	now := time.Now().UTC()
	run.CreatedAt = now
	run.UpdatedAt = now
	s.runs.Add(run.ID, cloneRun(run))
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, id uuid.UUID) (*Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.runs.Get(id)
	if !ok {
		return nil, nil
	}
	return cloneRun(r), nil
}

func (s *MemoryStore) UpdateRun(_ context.Context, run *Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.runs.Peek(run.ID)
	if !ok {
		return fmt.Errorf("update %s: %w", run.ID, ErrNotFound)
	}
	s.put(prev, run)
	return nil
}

func (s *MemoryStore) TransitionRun(_ context.Context, run *Run, from RunStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.runs.Peek(run.ID)
	if !ok {
		return fmt.Errorf("transition %s: %w", run.ID, ErrNotFound)
	}
	if prev.Status != from {
		return fmt.Errorf("transition %s from %s, stored %s: %w", run.ID, from, prev.Status, ErrStatusChanged)
	}
	s.put(prev, run)
	return nil
}

// put replaces prev with run. Callers hold s.mu.
func (s *MemoryStore) put(prev, run *Run) {
	run.CreatedAt = prev.CreatedAt
	run.UpdatedAt = time.Now().UTC()
	s.runs.Add(run.ID, cloneRun(run))
}

// ListRuns returns matching runs, newest first. Limit defaults to 100.
func (s *MemoryStore) ListRuns(_ context.Context, filter RunFilter) ([]*Run, error) {
	runs := s.collect(func(r *Run) bool {
		if filter.Status != nil && r.Status != *filter.Status {
			return false
		}
		return filter.Source == "" || r.Spec.Source == filter.Source
	})
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	if filter.Offset >= len(runs) {
		return []*Run{}, nil
	}
	runs = runs[max(filter.Offset, 0):]
	if len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// GetPendingRuns returns pending runs, oldest first.
func (s *MemoryStore) GetPendingRuns(_ context.Context) ([]*Run, error) {
	runs := s.collect(func(r *Run) bool { return r.Status == StatusPending })
	sortOldestFirst(runs)
	return runs, nil
}

func (s *MemoryStore) GetActiveRuns(_ context.Context) ([]*Run, error) {
	runs := s.collect(func(r *Run) bool { return r.Status == StatusRunning })
	sortOldestFirst(runs)
	return runs, nil
}

func (s *MemoryStore) CreateRunEvent(_ context.Context, event *RunEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.runs.Contains(event.RunID) {
		return fmt.Errorf("event for %s: %w", event.RunID, ErrNotFound)
	}
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	event.CreatedAt = time.Now().UTC()
	e := *event
	s.events[event.RunID] = append(s.events[event.RunID], &e)
	return nil
}

func (s *MemoryStore) GetRunEvents(_ context.Context, runID uuid.UUID) ([]*RunEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	events := make([]*RunEvent, 0, len(s.events[runID]))
	for _, e := range s.events[runID] {
		c := *e
		events = append(events, &c)
	}
	return events, nil
}

func (s *MemoryStore) GetStats(_ context.Context) (*RunStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := &RunStats{}
	var totalMs float64
	var finished int
	for _, r := range s.runs.Values() {
		switch r.Status {
		case StatusPending:
			stats.TotalPending++
		case StatusRunning:
			stats.TotalRunning++
		case StatusCompleted:
			stats.TotalCompleted++
			if r.StartedAt != nil && r.CompletedAt != nil {
				totalMs += float64(r.CompletedAt.Sub(*r.StartedAt).Milliseconds())
				finished++
			}
		case StatusFailed:
			stats.TotalFailed++
		case StatusTimedOut:
			stats.TotalTimedOut++
		}
	}
	if finished > 0 {
		stats.AvgCompletionMs = totalMs / float64(finished)
	}
	return stats, nil
}

func (s *MemoryStore) collect(keep func(*Run) bool) []*Run {
	s.mu.Lock()
	defer s.mu.Unlock()

	var runs []*Run
	for _, r := range s.runs.Values() {
		if keep(r) {
			runs = append(runs, cloneRun(r))
		}
	}
	return runs
}

func sortOldestFirst(runs []*Run) {
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].CreatedAt.Before(runs[j].CreatedAt)
	})
}

func cloneRun(r *Run) *Run {
	c := *r
	c.Spec = cloneSpec(r.Spec)
	c.Weights = cloneFloats(r.Weights)
	c.Solution = cloneFloats(r.Solution)
	if r.FuzzyWeights != nil {
		c.FuzzyWeights = append(c.FuzzyWeights[:0:0], r.FuzzyWeights...)
	}
	if r.Fitness != nil {
		f := *r.Fitness
		c.Fitness = &f
	}
	if r.StartedAt != nil {
		t := *r.StartedAt
		c.StartedAt = &t
	}
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

func cloneSpec(s FitSpec) FitSpec {
	c := s
	if s.Matrix != nil {
		c.Matrix = make([][]float64, len(s.Matrix))
		for i, row := range s.Matrix {
			c.Matrix[i] = cloneFloats(row)
		}
	}
	if s.Bounds != nil {
		c.Bounds = make([][]float64, len(s.Bounds))
		for i, row := range s.Bounds {
			c.Bounds[i] = cloneFloats(row)
		}
	}
	c.Target = cloneFloats(s.Target)
	c.Types = cloneFloats(s.Types)
	c.Weights = cloneFloats(s.Weights)
	if s.Seed != nil {
		seed := *s.Seed
		c.Seed = &seed
	}
	return c
}

func cloneFloats(v []float64) []float64 {
	if v == nil {
		return nil
	}
	return append([]float64(nil), v...)
}
