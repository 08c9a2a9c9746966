package runner

import (
	"context"
	"errors"
	"time"

	"github.com/MikeSquared-Agency/Reidentify/internal/hermes"
	"github.com/MikeSquared-Agency/Reidentify/internal/store"
)

const sweepInterval = 5 * time.Second

// timeoutGrace is added to a run's timeout before the sweeper gives up on it, leaving
// the executing goroutine time to record the timeout itself.
const timeoutGrace = 2 * time.Second

func (r *Runner) timeoutLoop(ctx context.Context) {
	defer r.wg.Done()
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.checkTimeouts(ctx)
			r.publishStats(ctx)
		}
	}
}

// checkTimeouts marks running runs whose fit overran its timeout as timed out and
// cancels them if they are still executing here.
func (r *Runner) checkTimeouts(ctx context.Context) {
	runs, err := r.store.GetActiveRuns(ctx)
	if err != nil {
		r.logger.Error("failed to get active runs for timeout check", "error", err)
		return
	}

	now := time.Now()
	for _, run := range runs {
		if run.StartedAt == nil {
			continue
		}
		timeout := r.cfg.DefaultTimeout()
		if run.Spec.TimeoutSeconds > 0 {
			timeout = time.Duration(run.Spec.TimeoutSeconds) * time.Second
		}
		if now.Sub(*run.StartedAt) <= timeout+timeoutGrace {
			continue
		}

		completedAt := now.UTC()
		run.Status = store.StatusTimedOut
		run.CompletedAt = &completedAt
		run.Error = "fit abandoned after timeout"
		if err := r.store.TransitionRun(ctx, run, store.StatusRunning); err != nil {
			if errors.Is(err, store.ErrStatusChanged) {
				// the fit recorded its own outcome after the scan
				continue
			}
			r.logger.Error("failed to mark run as timed out", "run_id", run.ID, "error", err)
			continue
		}
		r.logger.Warn("run overran its timeout", "run_id", run.ID, "timeout", timeout)
		r.Cancel(run.ID)
		_ = r.store.CreateRunEvent(ctx, &store.RunEvent{RunID: run.ID, Event: "timeout_sweep"})
		r.publish(hermes.SubjectFitTimeout(run.ID.String()), hermes.FitTimeoutEvent{
			RunID:          run.ID.String(),
			TimeoutSeconds: int(timeout.Seconds()),
		})
	}
}

func (r *Runner) publishStats(ctx context.Context) {
	if r.hermes == nil {
		return
	}
	stats, err := r.store.GetStats(ctx)
	if err != nil {
		r.logger.Warn("failed to get run stats", "error", err)
		return
	}
	r.publish(hermes.SubjectStats, hermes.StatsEvent{
		Pending:   stats.TotalPending,
		Running:   stats.TotalRunning,
		Completed: stats.TotalCompleted,
		Failed:    stats.TotalFailed,
		TimedOut:  stats.TotalTimedOut,
		AvgMs:     stats.AvgCompletionMs,
		Timestamp: time.Now().UTC(),
	})
}
