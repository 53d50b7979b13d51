package sweep

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	orderapp "orderlife/application/order"
	"orderlife/domain/identity"
	"orderlife/domain/order"
	"orderlife/domain/shared"
)

func (r *sweepRepo) addPaid(t *testing.T, userID string, receiveDeadline time.Time) string {
	t.Helper()
	o, err := order.NewOrder(userID,
		[]order.ProductRequest{{SKUID: "sku-1", Quantity: 1, UnitPrice: shared.MustMoney(100, "CNY")}},
		nil, time.Now().Add(time.Hour), nil)
	require.NoError(t, err)
	require.NoError(t, o.MarkPaid("trade-1", shared.MustMoney(100, "CNY"), time.Now(), receiveDeadline))
	o.PullEvents()
	r.stored[o.ID()] = o.ToReconstructionDTO()
	return o.ID()
}

func (r *sweepRepo) addShipped(t *testing.T, userID string, receiveDeadline time.Time) string {
	t.Helper()
	id := r.addPaid(t, userID, receiveDeadline)
	o, err := order.RebuildFromDTO(r.stored[id])
	require.NoError(t, err)
	require.NoError(t, o.MarkShipped())
	r.stored[id] = o.ToReconstructionDTO()
	return id
}

func newExpireFixture(t *testing.T, batchSize int) (*sweepRepo, *fakeActors, *ExpireUnreceivedJob) {
	t.Helper()
	repo := newSweepRepo()
	actors := &fakeActors{}
	svc := orderapp.NewLifecycleService(repo, shared.NewEventBus(), nil)
	job := NewExpireUnreceivedJob(repo, svc, actors, batchSize)
	return repo, actors, job
}

func TestExpireSweepExpiresOverdueOrders(t *testing.T) {
	repo, actors, job := newExpireFixture(t, 2)
	past := time.Now().Add(-time.Hour)
	var overdue []string
	for i := 0; i < 5; i++ {
		overdue = append(overdue, repo.addPaid(t, "user-1", past))
	}
	// Deadline in the future; must survive the sweep untouched.
	pending := repo.addPaid(t, "user-1", time.Now().Add(time.Hour))
	// Unpaid order; not in the receipt-expirable states at all.
	unpaid := repo.add(t, "user-1", time.Now().Add(time.Hour))

	report, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, report.Processed)
	assert.Equal(t, 5, report.Succeeded)
	assert.False(t, report.Failed())
	assert.Equal(t, 1, actors.resolved)

	for _, id := range overdue {
		assert.Equal(t, string(order.StateExpired), repo.stored[id].State)
	}
	assert.Equal(t, string(order.StatePaid), repo.stored[pending].State)
	assert.Equal(t, string(order.StateInit), repo.stored[unpaid].State)
}

func TestExpireSweepScopedToPaidOnly(t *testing.T) {
	repo, _, job := newExpireFixture(t, 10)
	past := time.Now().Add(-time.Hour)
	overdue := repo.addPaid(t, "user-1", past)
	// A shipped order keeps its stale deadline but waits for an
	// explicit receipt confirmation; the sweep must not touch it.
	shipped := repo.addShipped(t, "user-1", past)

	report, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, string(order.StateExpired), repo.stored[overdue].State)
	assert.Equal(t, string(order.StateShipped), repo.stored[shipped].State)
}

func TestExpireSweepDeadlineAtCutoffIsDue(t *testing.T) {
	repo, _, job := newExpireFixture(t, 10)
	cutoff := time.Now().Truncate(time.Second)
	job.now = func() time.Time { return cutoff }
	id := repo.addPaid(t, "user-1", cutoff)

	report, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, string(order.StateExpired), repo.stored[id].State)
}

func TestExpireSweepIsolatesFailures(t *testing.T) {
	repo, _, job := newExpireFixture(t, 10)
	past := time.Now().Add(-time.Hour)
	ids := []string{
		repo.addPaid(t, "user-1", past),
		repo.addPaid(t, "user-1", past),
		repo.addPaid(t, "user-1", past),
	}
	repo.failSave[ids[1]] = errors.New("connection reset")

	report, err := job.Run(context.Background())
	require.NoError(t, err, "a failed order must not stop the stream")
	assert.Equal(t, 3, report.Processed)
	assert.Equal(t, 2, report.Succeeded)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, ids[1], report.Failures[0].OrderID)
	assert.Equal(t, string(order.StatePaid), repo.stored[ids[1]].State)
}

func TestExpireSweepAbortsOnIdentityFailure(t *testing.T) {
	repo, actors, job := newExpireFixture(t, 10)
	actors.err = errors.New("identity store down")
	id := repo.addPaid(t, "user-1", time.Now().Add(-time.Hour))

	_, err := job.Run(context.Background())
	assert.ErrorIs(t, err, identity.ErrIdentityResolutionFailed)
	assert.Equal(t, string(order.StatePaid), repo.stored[id].State)
}
