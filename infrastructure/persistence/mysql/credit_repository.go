package mysql

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"orderlife/domain/credit"
	"orderlife/domain/shared"
	"orderlife/infrastructure/persistence"
	"orderlife/infrastructure/persistence/mysql/po"
)

// CreditRepository MySQL/GORM implementation of the loyalty-points service
// Balances change through conditional UPDATEs so a concurrent spender
// can never push an account negative.
type CreditRepository struct {
	db *gorm.DB
}

// NewCreditRepository Create credit repository
func NewCreditRepository(db *gorm.DB) *CreditRepository {
	return &CreditRepository{db: db}
}

func (r *CreditRepository) getDB(ctx context.Context) *gorm.DB {
	return persistence.Session(ctx, r.db)
}

// Balance Read the user's current points balance; an unknown user reads as zero
func (r *CreditRepository) Balance(ctx context.Context, userID string) (int64, error) {
	var accountPO po.CreditAccountPO
	result := r.getDB(ctx).First(&accountPO, "user_id = ?", userID)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return 0, nil
		}
		return 0, result.Error
	}
	return accountPO.Balance, nil
}

// Deduct Spend points against an order; insufficient balance fails the whole deduction
func (r *CreditRepository) Deduct(ctx context.Context, userID, orderID string, points int64) error {
	if points <= 0 {
		return fmt.Errorf("points to deduct must be positive, got %d", points)
	}

	result := r.getDB(ctx).Model(&po.CreditAccountPO{}).
		Where("user_id = ? AND balance >= ?", userID, points).
		Update("balance", gorm.Expr("balance - ?", points))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("insufficient credit balance for user %s", userID)
	}
	return nil
}

// Refund Return points for a refunded amount; one point per minor currency unit
func (r *CreditRepository) Refund(ctx context.Context, userID, orderID string, amount shared.Money) error {
	points := amount.Amount()
	if points <= 0 {
		return nil
	}

	db := r.getDB(ctx)
	result := db.Model(&po.CreditAccountPO{}).
		Where("user_id = ?", userID).
		Update("balance", gorm.Expr("balance + ?", points))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return db.Create(&po.CreditAccountPO{UserID: userID, Balance: points}).Error
	}
	return nil
}

var _ credit.Service = (*CreditRepository)(nil)
