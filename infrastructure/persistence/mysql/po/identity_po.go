package po

import (
	"time"

	"orderlife/domain/identity"
)

// IdentityPO Actor identity persistence object
type IdentityPO struct {
	ID        string    `gorm:"primaryKey;size:64"`
	Name      string    `gorm:"size:64;uniqueIndex;not null"`
	Kind      string    `gorm:"size:20;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// TableName Specify table name
func (IdentityPO) TableName() string {
	return "identities"
}

// ToDomain Convert persistence object to domain model
func (po *IdentityPO) ToDomain() *identity.Identity {
	return identity.RebuildFromDTO(identity.ReconstructionDTO{
		ID:        po.ID,
		Name:      po.Name,
		Kind:      po.Kind,
		CreatedAt: po.CreatedAt,
	})
}
