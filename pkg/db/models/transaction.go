package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/financialpress/fpt-ledger/pkg/enums"
)

// Transaction is one immutable, append-only ledger row. Amount is signed:
// positive for credits, negative for debits, never zero. BalanceAfter records
// the account balance the moment the row committed, which lets an idempotent
// retry replay the original result without touching the balance again.
type Transaction struct {
	ID             uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	AccountID      uuid.UUID             `gorm:"column:account_id;type:uuid;not null;index:idx_transactions_account_created,priority:1;uniqueIndex:idx_transactions_account_idem,priority:1"`
	Amount         decimal.Decimal       `gorm:"column:amount;type:numeric(12,2);not null"`
	BalanceAfter   decimal.Decimal       `gorm:"column:balance_after;type:numeric(12,2);not null"`
	Kind           enums.TransactionKind `gorm:"column:kind;type:transaction_kind_enum;not null"`
	Description    string                `gorm:"column:description"`
	Metadata       json.RawMessage       `gorm:"column:metadata;type:jsonb"`
	IdempotencyKey *string               `gorm:"column:idempotency_key;uniqueIndex:idx_transactions_account_idem,priority:2"`
	CreatedAt      time.Time             `gorm:"column:created_at;autoCreateTime;index:idx_transactions_account_created,priority:2,sort:desc"`
}
