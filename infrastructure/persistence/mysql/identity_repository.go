package mysql

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"orderlife/domain/identity"
	"orderlife/infrastructure/persistence"
	"orderlife/infrastructure/persistence/mysql/po"
)

// IdentityRepository MySQL/GORM implementation of the actor identity provider
type IdentityRepository struct {
	db *gorm.DB
}

// NewIdentityRepository Create identity repository
func NewIdentityRepository(db *gorm.DB) *IdentityRepository {
	return &IdentityRepository{db: db}
}

func (r *IdentityRepository) getDB(ctx context.Context) *gorm.DB {
	return persistence.Session(ctx, r.db)
}

// ResolveOrCreateSystemActor Return the singleton system identity, creating it on first use
// The unique index on name arbitrates creation races: the loser of the
// insert re-reads the winner's row.
func (r *IdentityRepository) ResolveOrCreateSystemActor(ctx context.Context) (*identity.Identity, error) {
	db := r.getDB(ctx)

	var idPO po.IdentityPO
	result := db.First(&idPO, "name = ?", identity.SystemActorName)
	if result.Error == nil {
		return idPO.ToDomain(), nil
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, result.Error
	}

	idPO = po.IdentityPO{
		ID:   "identity-" + uuid.New().String(),
		Name: identity.SystemActorName,
		Kind: string(identity.KindSystem),
	}
	if err := db.Create(&idPO).Error; err != nil {
		if isDuplicateKeyError(err) {
			if err := db.First(&idPO, "name = ?", identity.SystemActorName).Error; err != nil {
				return nil, err
			}
			return idPO.ToDomain(), nil
		}
		return nil, err
	}
	return idPO.ToDomain(), nil
}

// FindByID Look up any actor
func (r *IdentityRepository) FindByID(ctx context.Context, id string) (*identity.Identity, error) {
	var idPO po.IdentityPO
	result := r.getDB(ctx).First(&idPO, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, identity.ErrIdentityResolutionFailed
		}
		return nil, result.Error
	}
	return idPO.ToDomain(), nil
}

var _ identity.Provider = (*IdentityRepository)(nil)
