package saga

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/airlift-ota/airlift/internal/saga/outbox"
)

// ReconcilerConfig holds the tuning knobs of the background cleanup loop.
type ReconcilerConfig struct {
	// TickInterval is how often the outbox is polled.
	TickInterval time.Duration

	// MaxJobsPerRun bounds how many entries one tick processes.
	MaxJobsPerRun int

	// MaxAttempts bounds retries per entry. Entries that reach it stay in
	// the table permanently for manual intervention; they are never deleted.
	MaxAttempts int

	// MinRetryInterval is the minimum gap between two attempts on the same
	// entry.
	MinRetryInterval time.Duration
}

// DefaultReconcilerConfig returns the production defaults.
func DefaultReconcilerConfig() ReconcilerConfig {
	return ReconcilerConfig{
		TickInterval:     time.Minute,
		MaxJobsPerRun:    10,
		MaxAttempts:      5,
		MinRetryInterval: 5 * time.Minute,
	}
}

// Reconciler retries failed cleanups from the outbox on a fixed tick. It
// owns its own compensator (and through it, its own client handles) rather
// than borrowing them from any request. Run a single instance; if several
// run anyway, duplicate attempts are harmless because every compensation
// action is idempotent.
type Reconciler struct {
	cfg  ReconcilerConfig
	repo outbox.Repository
	comp *Compensator

	// now is swappable for tests.
	now func() time.Time
}

func NewReconciler(cfg ReconcilerConfig, repo outbox.Repository, comp *Compensator) *Reconciler {
	return &Reconciler{cfg: cfg, repo: repo, comp: comp, now: time.Now}
}

// Start runs the polling loop until ctx is cancelled. Cancellation is
// checked between ticks only: a started batch always finishes, which is
// safe because each entry's outcome is recorded individually.
func (r *Reconciler) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(r.cfg.TickInterval)
		defer ticker.Stop()

		slog.InfoContext(ctx, "cleanup reconciler started",
			"tick_interval", r.cfg.TickInterval,
			"max_jobs_per_run", r.cfg.MaxJobsPerRun,
			"max_attempts", r.cfg.MaxAttempts,
		)

		for {
			select {
			case <-ctx.Done():
				slog.InfoContext(ctx, "cleanup reconciler stopped")
				return
			case <-ticker.C:
				if err := r.Tick(context.WithoutCancel(ctx)); err != nil {
					slog.ErrorContext(ctx, "cleanup outbox processing failed", "error", err)
				}
			}
		}
	}()
}

// Tick processes one batch of due entries: replay the ledger snapshot
// through the compensator, delete on full success, bump the attempt
// bookkeeping otherwise.
func (r *Reconciler) Tick(ctx context.Context) error {
	now := r.now()

	entries, err := r.repo.SelectDue(ctx, now, r.cfg.MaxAttempts, r.cfg.MaxJobsPerRun, r.cfg.MinRetryInterval)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "processing cleanup outbox", "pending", len(entries))

	for _, entry := range entries {
		var snap Snapshot
		if err := json.Unmarshal(entry.State, &snap); err != nil {
			// Undecodable state will never succeed; let the attempt counter
			// age it out into a permanent operator-visible row.
			slog.ErrorContext(ctx, "undecodable outbox state",
				"operation_id", entry.OperationID, "error", err)
			r.markAttempt(ctx, entry.OperationID, now)
			continue
		}

		if r.comp.Run(ctx, snap) {
			slog.InfoContext(ctx, "cleanup succeeded, removing outbox entry",
				"operation_id", entry.OperationID,
				"entity_kind", entry.EntityKind,
				"entity_name", entry.EntityName,
			)
			if err := r.repo.Delete(ctx, entry.OperationID); err != nil {
				slog.ErrorContext(ctx, "failed to delete outbox entry",
					"operation_id", entry.OperationID, "error", err)
			}
			continue
		}

		slog.WarnContext(ctx, "cleanup still incomplete",
			"operation_id", entry.OperationID,
			"attempts", entry.Attempts+1,
			"max_attempts", r.cfg.MaxAttempts,
		)
		r.markAttempt(ctx, entry.OperationID, now)
	}
	return nil
}

func (r *Reconciler) markAttempt(ctx context.Context, operationID string, at time.Time) {
	if err := r.repo.MarkAttempt(ctx, operationID, at); err != nil {
		slog.ErrorContext(ctx, "failed to record cleanup attempt",
			"operation_id", operationID, "error", err)
	}
}
