package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Account holds the authoritative FPT balance for one user. The balance is
// never assigned directly; every change flows through the ledger as a
// transaction row. Accounts are soft-retained for audit, never deleted.
type Account struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	DisplayName   string          `gorm:"column:display_name"`
	Balance       decimal.Decimal `gorm:"column:balance;type:numeric(12,2);not null;default:0"`
	DeactivatedAt *time.Time      `gorm:"column:deactivated_at"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
