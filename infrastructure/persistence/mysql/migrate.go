package mysql

import (
	"gorm.io/gorm"

	"orderlife/infrastructure/persistence/mysql/po"
)

// AutoMigrate creates or updates the schema. Development convenience
// only; production schemas are managed by migrations.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&po.OrderPO{},
		&po.OrderProductPO{},
		&po.OrderPricePO{},
		&po.PayOrderPO{},
		&po.OrderLogPO{},
		&po.IdentityPO{},
		&po.CreditAccountPO{},
	)
}
