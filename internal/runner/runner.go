// Package runner executes queued fit runs in the background. A tick loop moves pending
// runs to running, fits their weights under a per-run timeout and publishes the
// lifecycle over hermes.
package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/MikeSquared-Agency/Reidentify/internal/config"
	"github.com/MikeSquared-Agency/Reidentify/internal/hermes"
	"github.com/MikeSquared-Agency/Reidentify/internal/metrics"
	"github.com/MikeSquared-Agency/Reidentify/internal/optim"
	"github.com/MikeSquared-Agency/Reidentify/internal/stfn"
	"github.com/MikeSquared-Agency/Reidentify/internal/store"
)

type Runner struct {
	store   store.Store
	hermes  hermes.Client
	metrics *metrics.Metrics
	cfg     *config.Config
	logger  *slog.Logger

	sem *semaphore.Weighted

	inflightMu sync.Mutex
	inflight   map[uuid.UUID]context.CancelFunc

	cancel   context.CancelFunc
	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// New wires a runner. h and m may be nil.
func New(s store.Store, h hermes.Client, m *metrics.Metrics, cfg *config.Config, logger *slog.Logger) *Runner {
	return &Runner{
		store:    s,
		hermes:   h,
		metrics:  m,
		cfg:      cfg,
		logger:   logger,
		sem:      semaphore.NewWeighted(int64(max(cfg.Runner.MaxConcurrent, 1))),
		inflight: make(map[uuid.UUID]context.CancelFunc),
		stopCh:   make(chan struct{}),
	}
}

func (r *Runner) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	r.wg.Add(2)
	go r.dispatchLoop(ctx)
	go r.timeoutLoop(ctx)
}

// Stop ends both loops, cancels running fits and waits for them to record their outcome.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopCh)
		if r.cancel != nil {
			r.cancel()
		}
	})
	r.wg.Wait()
}

// Submit validates spec and queues a run for it.
func (r *Runner) Submit(ctx context.Context, spec store.FitSpec) (*store.Run, error) {
	plan, err := NewPlan(spec, r.cfg)
	if err != nil {
		if r.metrics != nil {
			r.metrics.RequestsRejected.WithLabelValues(orDefault(spec.Source, "api")).Inc()
		}
		return nil, err
	}

	run := &store.Run{Spec: spec, Status: store.StatusPending}
	if err := r.store.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}
	_ = r.store.CreateRunEvent(ctx, &store.RunEvent{RunID: run.ID, Event: "queued"})

	rows, cols := plan.Matrix.Dims()
	r.publish(hermes.SubjectFitQueued(run.ID.String()), hermes.FitQueuedEvent{
		RunID:        run.ID.String(),
		Alternatives: rows,
		Criteria:     cols,
		Source:       spec.Source,
	})
	r.logger.Info("fit queued", "run_id", run.ID, "alternatives", rows, "criteria", cols, "source", spec.Source)
	return run, nil
}

func (r *Runner) dispatchLoop(ctx context.Context) {
	defer r.wg.Done()
	ticker := time.NewTicker(r.cfg.TickInterval())
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.processPendingRuns(ctx)
		}
	}
}

func (r *Runner) processPendingRuns(ctx context.Context) {
	runs, err := r.store.GetPendingRuns(ctx)
	if err != nil {
		r.logger.Error("failed to get pending runs", "error", err)
		return
	}
	if r.metrics != nil {
		r.metrics.QueueDepth.Set(float64(len(runs)))
	}
	if len(runs) == 0 {
		return
	}

	r.logger.Debug("processing pending runs", "count", len(runs))
	for _, run := range runs {
		if !r.sem.TryAcquire(1) {
			return
		}
		if err := r.startRun(ctx, run); err != nil {
			r.sem.Release(1)
			r.logger.Warn("failed to start run", "run_id", run.ID, "error", err)
		}
	}
}

// startRun marks run as running and fits it on its own goroutine. The caller holds a
// semaphore slot that the goroutine releases.
func (r *Runner) startRun(ctx context.Context, run *store.Run) error {
	now := time.Now().UTC()
	run.Status = store.StatusRunning
	run.StartedAt = &now
	if err := r.store.TransitionRun(ctx, run, store.StatusPending); err != nil {
		return err
	}
	_ = r.store.CreateRunEvent(ctx, &store.RunEvent{RunID: run.ID, Event: "started"})

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.sem.Release(1)
		r.execute(ctx, run)
	}()
	return nil
}

// execute fits one run and records its outcome.
func (r *Runner) execute(ctx context.Context, run *store.Run) {
	logger := r.logger.With("run_id", run.ID)
	plan, err := NewPlan(run.Spec, r.cfg)
	if err != nil {
		r.fail(run, plan, err, 0, 0)
		return
	}

	r.publish(hermes.SubjectFitStarted(run.ID.String()), hermes.FitStartedEvent{
		RunID:     run.ID.String(),
		Method:    plan.MethodName,
		Distance:  plan.DistanceName,
		Optimizer: plan.OptimizerName,
	})

	fitCtx, cancel := context.WithTimeout(ctx, plan.Timeout)
	defer cancel()
	r.track(run.ID, cancel)
	defer r.untrack(run.ID)

	start := time.Now()
	outcome, err := Fit(fitCtx, plan, logger)
	elapsed := time.Since(start)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			r.timeout(run, plan, elapsed, outcome.Evaluations)
			return
		}
		r.fail(run, plan, err, elapsed, outcome.Evaluations)
		return
	}

	r.complete(run, plan, outcome, elapsed)
}

// Outcome is everything a successful fit produces.
type Outcome struct {
	Model       *stfn.Model
	Weights     []float64
	Solution    []float64
	Fitness     float64
	Evaluations int
}

// Fit builds a model from plan and fits it. Evaluations are reported even when the fit
// fails.
func Fit(ctx context.Context, plan *Plan, logger *slog.Logger) (Outcome, error) {
	var out Outcome
	inner, err := optim.New(plan.OptimizerName, plan.Optimizer, logger)
	if err != nil {
		return out, err
	}
	solve := func(ctx context.Context, p optim.Problem) (optim.Result, error) {
		res, err := inner(ctx, p)
		out.Evaluations = res.Evaluations
		return res, err
	}

	model, err := stfn.New(solve, plan.Method, plan.Bounds, plan.Weights,
		stfn.WithCriteriaTypes(plan.Types),
		stfn.WithDistance(plan.Distance),
		stfn.WithPenalty(plan.Penalty),
		stfn.WithLogger(logger),
	)
	if err != nil {
		return out, err
	}
	if err := model.Fit(ctx, plan.Matrix, plan.Target); err != nil {
		return out, err
	}

	out.Model = model
	if out.Weights, err = model.Weights(); err != nil {
		return out, err
	}
	if out.Solution, err = model.Solution(); err != nil {
		return out, err
	}
	if out.Fitness, err = model.Fitness(out.Solution); err != nil {
		return out, err
	}
	return out, nil
}

func (r *Runner) complete(run *store.Run, plan *Plan, out Outcome, elapsed time.Duration) {
	fuzzyWeights, err := out.Model.FuzzyNumbers(out.Solution)
	if err != nil {
		r.fail(run, plan, err, elapsed, out.Evaluations)
		return
	}
	if !r.finalize(run, func(cur *store.Run) {
		cur.Status = store.StatusCompleted
		cur.Weights = out.Weights
		cur.Solution = out.Solution
		cur.FuzzyWeights = fuzzyWeights
		cur.Fitness = &out.Fitness
		cur.Evaluations = out.Evaluations
	}) {
		return
	}

	r.record(plan, store.StatusCompleted, elapsed, out.Evaluations)
	if r.metrics != nil {
		r.metrics.RecordFitness(plan.MethodName, out.Fitness)
	}
	r.publish(hermes.SubjectFitCompleted(run.ID.String()), hermes.FitCompletedEvent{
		RunID:        run.ID.String(),
		Weights:      out.Weights,
		FuzzyWeights: fuzzyWeights,
		Fitness:      out.Fitness,
		Evaluations:  out.Evaluations,
		DurationMs:   elapsed.Milliseconds(),
	})
	r.logger.Info("fit completed", "run_id", run.ID, "fitness", out.Fitness,
		"evaluations", out.Evaluations, "duration_ms", elapsed.Milliseconds())
}

func (r *Runner) fail(run *store.Run, plan *Plan, cause error, elapsed time.Duration, evaluations int) {
	if !r.finalize(run, func(cur *store.Run) {
		cur.Status = store.StatusFailed
		cur.Error = cause.Error()
		cur.Evaluations = evaluations
	}) {
		return
	}
	if plan != nil {
		r.record(plan, store.StatusFailed, elapsed, evaluations)
	}
	r.publish(hermes.SubjectFitFailed(run.ID.String()), hermes.FitFailedEvent{
		RunID: run.ID.String(),
		Error: cause.Error(),
	})
	r.logger.Warn("fit failed", "run_id", run.ID, "error", cause)
}

func (r *Runner) timeout(run *store.Run, plan *Plan, elapsed time.Duration, evaluations int) {
	if !r.finalize(run, func(cur *store.Run) {
		cur.Status = store.StatusTimedOut
		cur.Error = fmt.Sprintf("fit timed out after %s", plan.Timeout)
		cur.Evaluations = evaluations
	}) {
		return
	}
	r.record(plan, store.StatusTimedOut, elapsed, evaluations)
	r.publish(hermes.SubjectFitTimeout(run.ID.String()), hermes.FitTimeoutEvent{
		RunID:          run.ID.String(),
		TimeoutSeconds: int(plan.Timeout.Seconds()),
	})
	r.logger.Warn("fit timed out", "run_id", run.ID, "timeout", plan.Timeout)
}

// finalize applies set to the stored run unless another path already finished it, and
// reports whether it did. Outcomes are written with a background context so a cancelled
// runner still records them.
func (r *Runner) finalize(run *store.Run, set func(*store.Run)) bool {
	ctx := context.Background()
	cur, err := r.store.GetRun(ctx, run.ID)
	if err != nil || cur == nil {
		r.logger.Warn("run vanished before its outcome was recorded", "run_id", run.ID, "error", err)
		return false
	}
	if cur.Status.Terminal() {
		return false
	}
	from := cur.Status
	now := time.Now().UTC()
	set(cur)
	cur.CompletedAt = &now
	if err := r.store.TransitionRun(ctx, cur, from); err != nil {
		if !errors.Is(err, store.ErrStatusChanged) {
			r.logger.Error("failed to record run outcome", "run_id", run.ID, "error", err)
		}
		return false
	}
	*run = *cur
	_ = r.store.CreateRunEvent(ctx, &store.RunEvent{RunID: run.ID, Event: string(cur.Status)})
	return true
}

func (r *Runner) record(plan *Plan, status store.RunStatus, elapsed time.Duration, evaluations int) {
	if r.metrics == nil {
		return
	}
	r.metrics.RecordFit(plan.MethodName, plan.OptimizerName, string(status), elapsed, evaluations)
}

func (r *Runner) publish(subject string, data interface{}) {
	if r.hermes == nil {
		return
	}
	if err := r.hermes.Publish(subject, data); err != nil {
		r.logger.Warn("failed to publish event", "subject", subject, "error", err)
	}
}

func (r *Runner) track(id uuid.UUID, cancel context.CancelFunc) {
	r.inflightMu.Lock()
	r.inflight[id] = cancel
	r.inflightMu.Unlock()
}

func (r *Runner) untrack(id uuid.UUID) {
	r.inflightMu.Lock()
	delete(r.inflight, id)
	r.inflightMu.Unlock()
}

// Cancel aborts a running fit. It reports false when the run is not executing here.
func (r *Runner) Cancel(id uuid.UUID) bool {
	r.inflightMu.Lock()
	cancel, ok := r.inflight[id]
	r.inflightMu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

// SetupSubscriptions accepts fit requests published on hermes.
func (r *Runner) SetupSubscriptions() {
	if r.hermes == nil {
		return
	}

	err := r.hermes.Subscribe(hermes.SubjectFitRequest, func(_ string, data []byte) {
		var req hermes.FitRequestEvent
		if err := json.Unmarshal(data, &req); err != nil {
			r.logger.Warn("invalid fit request event", "error", err)
			return
		}
		spec := req.FitSpec
		if spec.Source == "" {
			spec.Source = "nats"
		}
		if _, err := r.Submit(context.Background(), spec); err != nil {
			r.logger.Warn("rejected fit request from NATS", "error", err)
		}
	})
	if err != nil {
		r.logger.Error("failed to subscribe", "subject", hermes.SubjectFitRequest, "error", err)
	}
}
