package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/financialpress/fpt-ledger/pkg/enums"
)

// RewardRule maps an engagement kind to the FPT amount it pays. Kind is the
// primary key, so "multiple active rules for one kind" cannot be represented;
// conflicting writes are rejected at the data layer instead of resolved at
// read time.
type RewardRule struct {
	Kind      enums.EngagementKind `gorm:"column:kind;type:engagement_kind_enum;primaryKey"`
	Amount    decimal.Decimal      `gorm:"column:amount;type:numeric(12,2);not null"`
	Active    bool                 `gorm:"column:active;not null;default:false"`
	UpdatedAt time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
