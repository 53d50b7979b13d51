package sweep

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	orderapp "orderlife/application/order"
	"orderlife/domain/identity"
	"orderlife/domain/order"
	"orderlife/pkg/logger"
)

// ExpireUnreceivedJob expires paid orders whose receipt-confirmation
// deadline passed without the buyer confirming. Orders stream through
// in batches and each one is handled in isolation: a failed expiry is
// recorded and the stream moves on.
type ExpireUnreceivedJob struct {
	repo      order.Repository
	svc       *orderapp.LifecycleService
	actors    identity.Provider
	batchSize int
	now       func() time.Time

	mu    sync.Mutex
	actor *identity.Identity
}

// NewExpireUnreceivedJob wires the job. batchSize <= 0 falls back to
// DefaultBatchSize.
func NewExpireUnreceivedJob(repo order.Repository, svc *orderapp.LifecycleService, actors identity.Provider, batchSize int) *ExpireUnreceivedJob {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &ExpireUnreceivedJob{
		repo:      repo,
		svc:       svc,
		actors:    actors,
		batchSize: batchSize,
		now:       time.Now,
	}
}

// Run executes one sweep over every order past its receipt deadline.
func (j *ExpireUnreceivedJob) Run(ctx context.Context) (*Report, error) {
	cutoff := j.now()
	report := &Report{}

	actor, err := j.systemActor(ctx)
	if err != nil {
		return nil, err
	}

	err = j.repo.ForEachEligibleReceiptExpiry(ctx, cutoff, j.batchSize, func(o *order.Order) error {
		report.Processed++
		if _, err := j.svc.MarkExpired(ctx, o.ID(), actor.ID()); err != nil {
			report.recordFailure(o.ID(), o.Serial(), err)
			logger.Warn("expire failed",
				zap.String("order_id", o.ID()),
				zap.String("serial", o.Serial()),
				zap.Error(err))
			return nil
		}
		report.Succeeded++
		return nil
	})
	if err != nil {
		return report, fmt.Errorf("stream eligible orders: %w", err)
	}

	logger.Info("expire-no-received sweep finished",
		zap.Int("processed", report.Processed),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", len(report.Failures)))
	return report, nil
}

func (j *ExpireUnreceivedJob) systemActor(ctx context.Context) (*identity.Identity, error) {
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
