package sweep

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	orderapp "orderlife/application/order"
	"orderlife/domain/identity"
	"orderlife/domain/order"
	"orderlife/pkg/logger"
)

// DefaultBatchSize is the page size the cancel sweep reads eligible
// orders with.
const DefaultBatchSize = 100

// CancelOptions tunes one cancel-sweep run.
type CancelOptions struct {
	// DryRun reports what would happen without mutating anything.
	DryRun bool

	// BatchSize is the page size; zero means DefaultBatchSize.
	BatchSize int

	// Limit caps how many orders the run processes; zero means no cap.
	Limit int

	// Rate limits cancellations per second; zero means unpaced.
	Rate rate.Limit

	// Burst is the rate limiter burst; zero means 1.
	Burst int
}

// CancelExpiredJob cancels unpaid orders whose auto-cancel deadline
// has passed. It re-queries between batches instead of snapshotting,
// so orders paid or cancelled mid-run drop out on their own; the
// offset only ever skips orders that failed and therefore stayed in
// the eligible set.
type CancelExpiredJob struct {
	repo   order.Repository
	svc    *orderapp.LifecycleService
	actors identity.Provider
	now    func() time.Time

	mu    sync.Mutex
	actor *identity.Identity
}

// NewCancelExpiredJob wires the job.
func NewCancelExpiredJob(repo order.Repository, svc *orderapp.LifecycleService, actors identity.Provider) *CancelExpiredJob {
	return &CancelExpiredJob{repo: repo, svc: svc, actors: actors, now: time.Now}
}

// Run executes one sweep. A returned error means the run could not
// proceed at all (bad cutoff query, unresolvable system actor); per-
// order failures land in the report instead.
func (j *CancelExpiredJob) Run(ctx context.Context, opts CancelOptions) (*Report, error) {
	cutoff := j.now()
	report := &Report{DryRun: opts.DryRun}

	if opts.DryRun {
		return j.dryRun(ctx, cutoff, opts.Limit, report)
	}

	actor, err := j.systemActor(ctx)
	if err != nil {
		return nil, err
	}

	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}
	var limiter *rate.Limiter
	if opts.Rate > 0 {
		limiter = rate.NewLimiter(opts.Rate, burst)
	}

	offset := 0
	for {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if opts.Limit > 0 && report.Processed >= opts.Limit {
			break
		}

		pageSize := batchSize
		if opts.Limit > 0 && opts.Limit-report.Processed < pageSize {
			pageSize = opts.Limit - report.Processed
		}
		batch, err := j.repo.FindEligibleForCancel(ctx, cutoff, offset, pageSize)
		if err != nil {
			return report, fmt.Errorf("query eligible orders: %w", err)
		}
		if len(batch) == 0 {
			break
		}

		for _, o := range batch {
			if limiter != nil {
				if err := limiter.Wait(ctx); err != nil {
					return report, err
				}
			}
			report.Processed++
			_, err := j.svc.CancelOrderForTimeout(ctx, o.ID(), actor.ID())
			switch {
			case err == nil:
				report.Succeeded++
			case orderapp.IsSubscriberFailure(err):
				// The cancel itself committed, so the order left the
				// eligible set; only the side effect failed.
				report.recordFailure(o.ID(), o.Serial(), err)
				logger.Warn("cancel committed but subscriber failed",
					zap.String("order_id", o.ID()), zap.Error(err))
			default:
				// Still eligible; skip past it on the next page.
				report.recordFailure(o.ID(), o.Serial(), err)
				offset++
				logger.Warn("cancel failed",
					zap.String("order_id", o.ID()),
					zap.String("serial", o.Serial()),
					zap.Error(err))
			}
		}

		j.repo.ClearSession()
	}

	logger.Info("cancel-expired sweep finished",
		zap.Int("processed", report.Processed),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", len(report.Failures)))
	return report, nil
}

// dryRun reports what a live run with the same limit would process: a
// limit caps both the would-be-cancelled count and the preview.
func (j *CancelExpiredJob) dryRun(ctx context.Context, cutoff time.Time, limit int, report *Report) (*Report, error) {
	count, err := j.repo.CountEligibleForCancel(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("count eligible orders: %w", err)
	}
	if limit > 0 && int64(limit) < count {
		count = int64(limit)
	}
	report.Eligible = count

	previewSize := PreviewLimit
	if count < int64(previewSize) {
		previewSize = int(count)
	}
	if previewSize == 0 {
		return report, nil
	}
	preview, err := j.repo.FindEligibleForCancel(ctx, cutoff, 0, previewSize)
	if err != nil {
		return nil, fmt.Errorf("preview eligible orders: %w", err)
	}
	for _, o := range preview {
		report.Preview = append(report.Preview, o.Serial())
	}
	return report, nil
}

// systemActor resolves the identity the sweep acts as, once per job
// instance.
func (j *CancelExpiredJob) systemActor(ctx context.Context) (*identity.Identity, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.actor != nil {
		return j.actor, nil
	}
	actor, err := j.actors.ResolveOrCreateSystemActor(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", identity.ErrIdentityResolutionFailed, err)
	}
	j.actor = actor
	return actor, nil
}
