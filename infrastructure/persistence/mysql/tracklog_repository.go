package mysql

import (
	"context"

	"gorm.io/gorm"

	"orderlife/domain/order"
	"orderlife/infrastructure/persistence"
	"orderlife/infrastructure/persistence/mysql/po"
)

// TrackLogRepository MySQL/GORM implementation of the audit trail
type TrackLogRepository struct {
	db *gorm.DB
}

// NewTrackLogRepository Create track log repository
func NewTrackLogRepository(db *gorm.DB) *TrackLogRepository {
	return &TrackLogRepository{db: db}
}

func (r *TrackLogRepository) getDB(ctx context.Context) *gorm.DB {
	return persistence.Session(ctx, r.db)
}

// Append Insert one audit row; rows are never updated or deleted
func (r *TrackLogRepository) Append(ctx context.Context, log *order.TrackLog) error {
	return r.getDB(ctx).Create(po.FromTrackLogDomain(log)).Error
}

// FindByOrderID List the audit trail of one order, oldest first
func (r *TrackLogRepository) FindByOrderID(ctx context.Context, orderID string) ([]*order.TrackLog, error) {
	var logPOs []po.OrderLogPO
	if err := r.getDB(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&logPOs).Error; err != nil {
		return nil, err
	}

	logs := make([]*order.TrackLog, len(logPOs))
	for i := range logPOs {
		logs[i] = logPOs[i].ToDomain()
	}
	return logs, nil
}

var _ order.TrackLogRepository = (*TrackLogRepository)(nil)
