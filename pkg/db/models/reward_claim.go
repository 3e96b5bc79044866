package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/financialpress/fpt-ledger/pkg/enums"
)

// RewardClaim marks that an (account, post, kind) combination has already been
// paid. The unique index is the idempotency barrier that stops a rapid
// like/unlike/like toggle from earning twice.
type RewardClaim struct {
	ID        uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	AccountID uuid.UUID            `gorm:"column:account_id;type:uuid;not null;uniqueIndex:idx_reward_claims_natural,priority:1"`
	PostID    string               `gorm:"column:post_id;not null;uniqueIndex:idx_reward_claims_natural,priority:2"`
	Kind      enums.EngagementKind `gorm:"column:kind;type:engagement_kind_enum;not null;uniqueIndex:idx_reward_claims_natural,priority:3"`
	EventID   uuid.UUID            `gorm:"column:event_id;type:uuid"`
	CreatedAt time.Time            `gorm:"column:created_at;autoCreateTime"`
}
