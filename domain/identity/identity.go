// Package identity resolves the actors that appear on audit rows and
// notifications: buyers, suppliers, and the synthetic system identity
// batch jobs act as.
package identity

import (
	"context"
	"errors"
	"time"
)

// Kind distinguishes the actor classes.
type Kind string

const (
	KindUser     Kind = "user"
	KindSupplier Kind = "supplier"
	KindSystem   Kind = "system"
)

// SystemActorName is the reserved name of the identity sweep jobs act
// as. There is at most one row with this name.
const SystemActorName = "system"

// ErrIdentityResolutionFailed marks a failed lookup or creation of an
// actor identity. Sweep jobs abort before processing any orders when
// the system actor cannot be resolved.
var ErrIdentityResolutionFailed = errors.New("identity resolution failed")

// Identity is an actor known to the order lifecycle.
type Identity struct {
	id        string
	name      string
	kind      Kind
	createdAt time.Time
}

func (i *Identity) ID() string           { return i.id }
func (i *Identity) Name() string         { return i.name }
func (i *Identity) Kind() Kind           { return i.kind }
func (i *Identity) CreatedAt() time.Time { return i.createdAt }

// ReconstructionDTO rebuilds an Identity from storage.
// Repository-layer use only.
type ReconstructionDTO struct {
	ID        string
	Name      string
	Kind      string
	CreatedAt time.Time
}

// RebuildFromDTO reconstructs an identity. Repository-layer use only.
func RebuildFromDTO(dto ReconstructionDTO) *Identity {
	return &Identity{
		id:        dto.ID,
		name:      dto.Name,
		kind:      Kind(dto.Kind),
		createdAt: dto.CreatedAt,
	}
}

// Provider resolves actor identities.
type Provider interface {
	// ResolveOrCreateSystemActor returns the singleton system
	// identity, creating it on first use. Races between concurrent
	// creators resolve to the same row.
	ResolveOrCreateSystemActor(ctx context.Context) (*Identity, error)

	// FindByID looks up any actor.
	FindByID(ctx context.Context, id string) (*Identity, error)
}
