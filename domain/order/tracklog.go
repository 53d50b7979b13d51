package order

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TrackLog is one audit-trail row for an order: which actor moved the
// order between which states, and when. Rows are append-only.
type TrackLog struct {
	id        string
	orderID   string
	actorID   string
	eventName string
	fromState State
	toState   State
	remark    string
	createdAt time.Time
}

// NewTrackLog creates an audit row for a committed transition.
func NewTrackLog(orderID, actorID, eventName string, from, to State, remark string) *TrackLog {
	return &TrackLog{
		id:        uuid.NewString(),
		orderID:   orderID,
		actorID:   actorID,
		eventName: eventName,
		fromState: from,
		toState:   to,
		remark:    remark,
		createdAt: time.Now(),
	}
}

func (t *TrackLog) ID() string           { return t.id }
func (t *TrackLog) OrderID() string      { return t.orderID }
func (t *TrackLog) ActorID() string      { return t.actorID }
func (t *TrackLog) EventName() string    { return t.eventName }
func (t *TrackLog) FromState() State     { return t.fromState }
func (t *TrackLog) ToState() State       { return t.toState }
func (t *TrackLog) Remark() string       { return t.remark }
func (t *TrackLog) CreatedAt() time.Time { return t.createdAt }

// TrackLogReconstructionDTO rebuilds a TrackLog from storage.
// Repository-layer use only.
type TrackLogReconstructionDTO struct {
	ID        string
	OrderID   string
	ActorID   string
	EventName string
	FromState string
	ToState   string
	Remark    string
	CreatedAt time.Time
}

// RebuildTrackLogFromDTO reconstructs an audit row. Repository-layer use only.
func RebuildTrackLogFromDTO(dto TrackLogReconstructionDTO) *TrackLog {
	return &TrackLog{
		id:        dto.ID,
		orderID:   dto.OrderID,
		actorID:   dto.ActorID,
		eventName: dto.EventName,
		fromState: State(dto.FromState),
		toState:   State(dto.ToState),
		remark:    dto.Remark,
		createdAt: dto.CreatedAt,
	}
}

// TrackLogRepository persists the audit trail.
type TrackLogRepository interface {
	Append(ctx context.Context, log *TrackLog) error
	FindByOrderID(ctx context.Context, orderID string) ([]*TrackLog, error)
}
