package sweep

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	orderapp "orderlife/application/order"
	"orderlife/domain/identity"
	"orderlife/domain/order"
	"orderlife/domain/shared"
)

// sweepRepo is an in-memory order store with the live-requery
// eligibility semantics of the real repository: successfully cancelled
// orders drop out of the eligible set, failed ones stay in it.
type sweepRepo struct {
	stored   map[string]order.ReconstructionDTO
	failSave map[string]error
	queries  int
	clears   int
}

func newSweepRepo() *sweepRepo {
	return &sweepRepo{
		stored:   make(map[string]order.ReconstructionDTO),
		failSave: make(map[string]error),
	}
}

func (r *sweepRepo) add(t *testing.T, userID string, autoCancelAt time.Time) string {
	t.Helper()
	o, err := order.NewOrder(userID,
		[]order.ProductRequest{{SKUID: "sku-1", Quantity: 1, UnitPrice: shared.MustMoney(100, "CNY")}},
		nil, autoCancelAt, nil)
	require.NoError(t, err)
	o.PullEvents()
	r.stored[o.ID()] = o.ToReconstructionDTO()
	return o.ID()
}

func (r *sweepRepo) NextIdentity() string { return "order-test" }

func (r *sweepRepo) Save(_ context.Context, o *order.Order) error {
	if err := r.failSave[o.ID()]; err != nil {
		return err
	}
	current, ok := r.stored[o.ID()]
	if !ok {
		return order.NewOrderNotFoundError(o.ID())
	}
	if current.LockVersion != o.Version() {
		return order.NewConcurrentModificationError(o.ID())
	}
	dto := o.ToReconstructionDTO()
	dto.LockVersion = o.Version() + 1
	r.stored[o.ID()] = dto
	o.IncrementVersionForSave()
	return nil
}

func (r *sweepRepo) FindByID(_ context.Context, id string) (*order.Order, error) {
	dto, ok := r.stored[id]
	if !ok {
		return nil, order.NewOrderNotFoundError(id)
	}
	return order.RebuildFromDTO(dto)
}

func (r *sweepRepo) FindBySerial(_ context.Context, serial string) (*order.Order, error) {
	for _, dto := range r.stored {
		if dto.Serial == serial {
			return order.RebuildFromDTO(dto)
		}
	}
	return nil, order.NewOrderNotFoundError(serial)
}

func (r *sweepRepo) eligible(cutoff time.Time) []order.ReconstructionDTO {
	var out []order.ReconstructionDTO
	for _, dto := range r.stored {
		if !order.State(dto.State).CanCancel() {
			continue
		}
		if dto.AutoCancelTime == nil || dto.AutoCancelTime.After(cutoff) {
			continue
		}
		out = append(out, dto)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].AutoCancelTime.Before(*out[j].AutoCancelTime)
	})
	return out
}

func (r *sweepRepo) FindEligibleForCancel(_ context.Context, cutoff time.Time, offset, limit int) ([]*order.Order, error) {
	r.queries++
	all := r.eligible(cutoff)
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit < len(all) {
		all = all[:limit]
	}
	orders := make([]*order.Order, 0, len(all))
	for _, dto := range all {
		o, err := order.RebuildFromDTO(dto)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, nil
}

func (r *sweepRepo) CountEligibleForCancel(_ context.Context, cutoff time.Time) (int64, error) {
	return int64(len(r.eligible(cutoff))), nil
}

func (r *sweepRepo) ForEachEligibleReceiptExpiry(_ context.Context, cutoff time.Time, _ int, fn func(*order.Order) error) error {
	var eligible []order.ReconstructionDTO
	for _, dto := range r.stored {
		if order.State(dto.State) != order.StatePaid {
			continue
		}
		if dto.ExpireReceiveTime == nil || dto.ExpireReceiveTime.After(cutoff) {
			continue
		}
		eligible = append(eligible, dto)
	}
	sort.Slice(eligible, func(i, j int) bool { return eligible[i].ID < eligible[j].ID })
	for _, dto := range eligible {
		o, err := order.RebuildFromDTO(dto)
		if err != nil {
			return err
		}
		if err := fn(o); err != nil {
			return err
		}
	}
	return nil
}

func (r *sweepRepo) ClearSession() { r.clears++ }

var _ order.Repository = (*sweepRepo)(nil)

type fakeActors struct {
	err      error
	resolved int
}

func (f *fakeActors) ResolveOrCreateSystemActor(context.Context) (*identity.Identity, error) {
	f.resolved++
	if f.err != nil {
		return nil, f.err
	}
	return identity.RebuildFromDTO(identity.ReconstructionDTO{
		ID: "sys-1", Name: identity.SystemActorName, Kind: string(identity.KindSystem),
	}), nil
}

func (f *fakeActors) FindByID(context.Context, string) (*identity.Identity, error) {
	return nil, identity.ErrIdentityResolutionFailed
}

func newCancelFixture(t *testing.T) (*sweepRepo, *fakeActors, *CancelExpiredJob) {
	t.Helper()
	repo := newSweepRepo()
	actors := &fakeActors{}
	svc := orderapp.NewLifecycleService(repo, shared.NewEventBus(), nil)
	job := NewCancelExpiredJob(repo, svc, actors)
	return repo, actors, job
}

func TestCancelSweepDryRunMutatesNothing(t *testing.T) {
	repo, _, job := newCancelFixture(t)
	past := time.Now().Add(-time.Hour)
	for i := 0; i < 15; i++ {
		repo.add(t, "user-1", past.Add(time.Duration(i)*time.Minute))
	}

	report, err := job.Run(context.Background(), CancelOptions{DryRun: true})
	require.NoError(t, err)
	assert.True(t, report.DryRun)
	assert.Equal(t, int64(15), report.Eligible)
	assert.Len(t, report.Preview, PreviewLimit)
	assert.Zero(t, report.Processed)
	assert.False(t, report.Failed())

	for _, dto := range repo.stored {
		assert.Equal(t, string(order.StateInit), dto.State, "dry run must not mutate")
	}
}

func TestCancelSweepDryRunHonorsLimit(t *testing.T) {
	repo, _, job := newCancelFixture(t)
	past := time.Now().Add(-time.Hour)
	for i := 0; i < 20; i++ {
		repo.add(t, "user-1", past.Add(time.Duration(i)*time.Minute))
	}

	report, err := job.Run(context.Background(), CancelOptions{DryRun: true, Limit: 5})
	require.NoError(t, err)
	assert.Equal(t, int64(5), report.Eligible,
		"a limited run would cancel only this many")
	assert.Len(t, report.Preview, 5)
}

func TestCancelSweepDeadlineAtCutoffIsDue(t *testing.T) {
	repo, _, job := newCancelFixture(t)
	cutoff := time.Now().Truncate(time.Second)
	job.now = func() time.Time { return cutoff }
	id := repo.add(t, "user-1", cutoff)

	report, err := job.Run(context.Background(), CancelOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, string(order.StateCanceled), repo.stored[id].State,
		"a deadline exactly at the cutoff must not wait for the next tick")
}

func TestCancelSweepProcessesInBatches(t *testing.T) {
	repo, _, job := newCancelFixture(t)
	past := time.Now().Add(-time.Hour)
	for i := 0; i < 7; i++ {
		repo.add(t, "user-1", past.Add(time.Duration(i)*time.Minute))
	}
	// Not yet due; must be left alone.
	fresh := repo.add(t, "user-1", time.Now().Add(time.Hour))

	report, err := job.Run(context.Background(), CancelOptions{BatchSize: 3})
	require.NoError(t, err)
	assert.Equal(t, 7, report.Processed)
	assert.Equal(t, 7, report.Succeeded)
	assert.False(t, report.Failed())
	assert.GreaterOrEqual(t, repo.clears, 2, "session must be cleared between batches")

	for id, dto := range repo.stored {
		if id == fresh {
			assert.Equal(t, string(order.StateInit), dto.State)
			continue
		}
		assert.Equal(t, string(order.StateCanceled), dto.State)
		assert.Contains(t, dto.CancelReason, order.TimeoutCancelReason)
	}
}

func TestCancelSweepIdempotent(t *testing.T) {
	repo, _, job := newCancelFixture(t)
	past := time.Now().Add(-time.Hour)
	for i := 0; i < 4; i++ {
		repo.add(t, "user-1", past)
	}

	first, err := job.Run(context.Background(), CancelOptions{})
	require.NoError(t, err)
	assert.Equal(t, 4, first.Succeeded)

	second, err := job.Run(context.Background(), CancelOptions{})
	require.NoError(t, err)
	assert.Zero(t, second.Processed, "second run must find nothing to do")
}

func TestCancelSweepHonorsLimit(t *testing.T) {
	repo, _, job := newCancelFixture(t)
	past := time.Now().Add(-time.Hour)
	for i := 0; i < 20; i++ {
		repo.add(t, "user-1", past.Add(time.Duration(i)*time.Minute))
	}

	report, err := job.Run(context.Background(), CancelOptions{BatchSize: 3, Limit: 5})
	require.NoError(t, err)
	assert.Equal(t, 5, report.Processed)
	assert.Equal(t, 5, report.Succeeded)

	remaining, err := repo.CountEligibleForCancel(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(15), remaining)
}

func TestCancelSweepIsolatesFailures(t *testing.T) {
	repo, _, job := newCancelFixture(t)
	past := time.Now().Add(-time.Hour)
	var ids []string
	for i := 0; i < 5; i++ {
		ids = append(ids, repo.add(t, "user-1", past.Add(time.Duration(i)*time.Minute)))
	}
	repo.failSave[ids[1]] = errors.New("row lock wait timeout")
	repo.failSave[ids[3]] = errors.New("row lock wait timeout")

	report, err := job.Run(context.Background(), CancelOptions{BatchSize: 2})
	require.NoError(t, err, "per-order failures must not abort the run")
	assert.Equal(t, 5, report.Processed)
	assert.Equal(t, 3, report.Succeeded)
	require.Len(t, report.Failures, 2)
	assert.True(t, report.Failed())

	assert.Equal(t, string(order.StateInit), repo.stored[ids[1]].State)
	assert.Equal(t, string(order.StateCanceled), repo.stored[ids[0]].State)
}

func TestCancelSweepMemoizesSystemActor(t *testing.T) {
	repo, actors, job := newCancelFixture(t)
	past := time.Now().Add(-time.Hour)
	for i := 0; i < 6; i++ {
		repo.add(t, "user-1", past)
	}

	_, err := job.Run(context.Background(), CancelOptions{BatchSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 1, actors.resolved, "system actor must be resolved once, not per order")
}

func TestCancelSweepAbortsOnIdentityFailure(t *testing.T) {
	repo, actors, job := newCancelFixture(t)
	actors.err = errors.New("identity store down")
	repo.add(t, "user-1", time.Now().Add(-time.Hour))

	_, err := job.Run(context.Background(), CancelOptions{})
	assert.ErrorIs(t, err, identity.ErrIdentityResolutionFailed)

	for _, dto := range repo.stored {
		assert.Equal(t, string(order.StateInit), dto.State)
	}
}

func TestCancelSweepTimeoutMarkerScenario(t *testing.T) {
	repo, _, job := newCancelFixture(t)
	deadline := time.Now().Add(-25 * time.Minute)
	id := repo.add(t, "user-1", deadline)

	report, err := job.Run(context.Background(), CancelOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Succeeded)

	dto := repo.stored[id]
	assert.Equal(t, string(order.StateCanceled), dto.State)
	assert.Contains(t, dto.CancelReason, order.TimeoutCancelReason)
	assert.Contains(t, dto.CancelReason, deadline.Format(time.RFC3339))
}
