package sweep

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderlife/domain/order"
)

type fakeSalesQuery struct {
	totals []order.SKUSales
	err    error
}

func (f *fakeSalesQuery) RealSalesBySKU(context.Context) ([]order.SKUSales, error) {
	return f.totals, f.err
}

// fakeSalesStore mimics the raise-only counter store.
type fakeSalesStore struct {
	counters map[string]int64
	failSKU  string
}

func newFakeSalesStore() *fakeSalesStore {
	return &fakeSalesStore{counters: make(map[string]int64)}
}

func (s *fakeSalesStore) SetIfHigher(_ context.Context, skuID string, total int64) (bool, error) {
	if skuID == s.failSKU {
		return false, errors.New("store unavailable")
	}
	if total <= s.counters[skuID] {
		return false, nil
	}
	s.counters[skuID] = total
	return true, nil
}

func (s *fakeSalesStore) IncrBy(_ context.Context, skuID string, delta int64) (int64, error) {
	s.counters[skuID] += delta
	return s.counters[skuID], nil
}

func (s *fakeSalesStore) Get(_ context.Context, skuID string) (int64, error) {
	return s.counters[skuID], nil
}

func TestSyncRealSalesPublishesTotals(t *testing.T) {
	store := newFakeSalesStore()
	sales := &fakeSalesQuery{totals: []order.SKUSales{
		{SKUID: "sku-a", Quantity: 12},
		{SKUID: "sku-b", Quantity: 3},
	}}
	job := NewSyncRealSalesJob(sales, store)

	report, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Processed)
	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, int64(12), store.counters["sku-a"])
	assert.Equal(t, int64(3), store.counters["sku-b"])
}

func TestSyncRealSalesNeverLowersCounters(t *testing.T) {
	store := newFakeSalesStore()
	// Concurrent purchases already pushed the live counter ahead of
	// what the recomputation will see.
	store.counters["sku-a"] = 20
	sales := &fakeSalesQuery{totals: []order.SKUSales{{SKUID: "sku-a", Quantity: 12}}}
	job := NewSyncRealSalesJob(sales, store)

	report, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, int64(20), store.counters["sku-a"])
}

func TestSyncRealSalesIsolatesStoreFailures(t *testing.T) {
	store := newFakeSalesStore()
	store.failSKU = "sku-b"
	sales := &fakeSalesQuery{totals: []order.SKUSales{
		{SKUID: "sku-a", Quantity: 5},
		{SKUID: "sku-b", Quantity: 7},
		{SKUID: "sku-c", Quantity: 9},
	}}
	job := NewSyncRealSalesJob(sales, store)

	report, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, report.Processed)
	assert.Equal(t, 2, report.Succeeded)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "sku-b", report.Failures[0].OrderID)
	assert.Equal(t, int64(5), store.counters["sku-a"])
	assert.Equal(t, int64(9), store.counters["sku-c"])
}

func TestSyncRealSalesQueryFailureAborts(t *testing.T) {
	sales := &fakeSalesQuery{err: errors.New("db gone")}
	job := NewSyncRealSalesJob(sales, newFakeSalesStore())

	_, err := job.Run(context.Background())
	assert.Error(t, err)
}
