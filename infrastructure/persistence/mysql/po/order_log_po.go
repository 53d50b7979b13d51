package po

import (
	"time"

	"orderlife/domain/order"
)

// OrderLogPO Audit-trail persistence object, append-only
type OrderLogPO struct {
	ID        string    `gorm:"primaryKey;size:64"`
	OrderID   string    `gorm:"size:64;index;not null"`
	ActorID   string    `gorm:"size:64;not null"`
	EventName string    `gorm:"size:64;not null"`
	FromState string    `gorm:"size:32"`
	ToState   string    `gorm:"size:32;not null"`
	Remark    string    `gorm:"size:500"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// TableName Specify table name
func (OrderLogPO) TableName() string {
	return "order_logs"
}

// FromTrackLogDomain Convert domain model to persistence object
func FromTrackLogDomain(t *order.TrackLog) *OrderLogPO {
	return &OrderLogPO{
		ID:        t.ID(),
		OrderID:   t.OrderID(),
		ActorID:   t.ActorID(),
		EventName: t.EventName(),
		FromState: string(t.FromState()),
		ToState:   string(t.ToState()),
		Remark:    t.Remark(),
		CreatedAt: t.CreatedAt(),
	}
}

// ToDomain Convert persistence object to domain model
func (po *OrderLogPO) ToDomain() *order.TrackLog {
	return order.RebuildTrackLogFromDTO(order.TrackLogReconstructionDTO{
		ID:        po.ID,
		OrderID:   po.OrderID,
		ActorID:   po.ActorID,
		EventName: po.EventName,
		FromState: po.FromState,
		ToState:   po.ToState,
		Remark:    po.Remark,
		CreatedAt: po.CreatedAt,
	})
}
