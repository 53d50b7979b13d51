package po

import "time"

// CreditAccountPO Loyalty-points balance persistence object
type CreditAccountPO struct {
	UserID    string    `gorm:"primaryKey;size:64"`
	Balance   int64     `gorm:"not null;default:0"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName Specify table name
func (CreditAccountPO) TableName() string {
	return "credit_accounts"
}
