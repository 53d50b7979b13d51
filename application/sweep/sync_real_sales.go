package sweep

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"orderlife/domain/order"
	"orderlife/domain/stock"
	"orderlife/pkg/logger"
)

// SyncRealSalesJob recomputes per-SKU sold totals from committed
// orders and publishes them to the counter store. Publishing is
// raise-only: a recomputed total never lowers a counter that
// concurrent purchases already pushed higher.
type SyncRealSalesJob struct {
	sales order.SalesQuery
	store stock.RealSalesStore
}

// NewSyncRealSalesJob wires the job.
func NewSyncRealSalesJob(sales order.SalesQuery, store stock.RealSalesStore) *SyncRealSalesJob {
	return &SyncRealSalesJob{sales: sales, store: store}
}

// Run recomputes and publishes every SKU's total. Per-SKU store
// failures are isolated into the report.
func (j *SyncRealSalesJob) Run(ctx context.Context) (*Report, error) {
	totals, err := j.sales.RealSalesBySKU(ctx)
	if err != nil {
		return nil, fmt.Errorf("aggregate real sales: %w", err)
	}

	report := &Report{}
	for _, t := range totals {
		report.Processed++
		raised, err := j.store.SetIfHigher(ctx, t.SKUID, t.Quantity)
		if err != nil {
			report.recordFailure(t.SKUID, t.SKUID, err)
			logger.Warn("real-sales publish failed",
				zap.String("sku_id", t.SKUID), zap.Error(err))
			continue
		}
		report.Succeeded++
		if !raised {
			logger.Debug("counter already ahead of recomputed total",
				zap.String("sku_id", t.SKUID),
				zap.Int64("total", t.Quantity))
		}
	}

	logger.Info("sync-sku-sales-real-total finished",
		zap.Int("skus", report.Processed),
		zap.Int("failed", len(report.Failures)))
	return report, nil
}
