package rewards

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/financialpress/fpt-ledger/pkg/db/models"
	"github.com/financialpress/fpt-ledger/pkg/enums"
)

// Repository manages reward rules and the claims that guard double payouts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	GetRule(ctx context.Context, kind enums.EngagementKind) (*models.RewardRule, error)
	UpsertRule(ctx context.Context, rule *models.RewardRule) error
	ListRules(ctx context.Context) ([]models.RewardRule, error)
	CreateClaim(ctx context.Context, claim *models.RewardClaim) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a rewards repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// GetRule returns nil without error when no rule exists for the kind.
func (r *repository) GetRule(ctx context.Context, kind enums.EngagementKind) (*models.RewardRule, error) {
	var rule models.RewardRule
	err := r.db.WithContext(ctx).
		Where("kind = ?", kind).
		First(&rule).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *repository) UpsertRule(ctx context.Context, rule *models.RewardRule) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "kind"}},
			DoUpdates: clause.AssignmentColumns([]string{"amount", "active", "updated_at"}),
		}).
		Create(rule).Error
}

func (r *repository) ListRules(ctx context.Context) ([]models.RewardRule, error) {
	var rules []models.RewardRule
	if err := r.db.WithContext(ctx).
		Order("kind ASC").
		Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *repository) CreateClaim(ctx context.Context, claim *models.RewardClaim) error {
	if claim.ID == uuid.Nil {
		claim.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(claim).Error
}
