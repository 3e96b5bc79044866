package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/financialpress/fpt-ledger/pkg/enums"
)

// EngagementEvent records a raw interaction with a post, independent of
// whether it earned a reward. Platforms is populated for share events with the
// outlets the post was shared to.
type EngagementEvent struct {
	ID        uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	AccountID uuid.UUID            `gorm:"column:account_id;type:uuid;not null;index:idx_engagement_events_account"`
	PostID    string               `gorm:"column:post_id;not null;index:idx_engagement_events_post"`
	Kind      enums.EngagementKind `gorm:"column:kind;type:engagement_kind_enum;not null"`
	Platforms pq.StringArray       `gorm:"column:platforms;type:text[]"`
	Metadata  json.RawMessage      `gorm:"column:metadata;type:jsonb"`
	CreatedAt time.Time            `gorm:"column:created_at;autoCreateTime"`
}
