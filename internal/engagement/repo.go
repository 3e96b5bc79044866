package engagement

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/financialpress/fpt-ledger/pkg/db/models"
	pkgerrors "github.com/financialpress/fpt-ledger/pkg/errors"
)

// Repository manages persistence for engagement events.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateEvent(ctx context.Context, event *models.EngagementEvent) error
	FindAccount(ctx context.Context, accountID uuid.UUID) (*models.Account, error)
	ListEventsByPost(ctx context.Context, postID string) ([]models.EngagementEvent, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an engagement repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateEvent(ctx context.Context, event *models.EngagementEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repository) FindAccount(ctx context.Context, accountID uuid.UUID) (*models.Account, error) {
	var account models.Account
	err := r.db.WithContext(ctx).
		Where("id = ?", accountID).
		First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *repository) ListEventsByPost(ctx context.Context, postID string) ([]models.EngagementEvent, error) {
	var events []models.EngagementEvent
	if err := r.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("created_at ASC").
		Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}
