package engagement

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/financialpress/fpt-ledger/internal/rewards"
	"github.com/financialpress/fpt-ledger/pkg/db/models"
	"github.com/financialpress/fpt-ledger/pkg/enums"
	pkgerrors "github.com/financialpress/fpt-ledger/pkg/errors"
)

const maxPostIDLength = 255

// Service records engagement events and runs the reward pipeline on them.
type Service interface {
	Record(ctx context.Context, input RecordInput) (*RecordResult, error)
	ListByPost(ctx context.Context, postID string) ([]models.EngagementEvent, error)
}

// RecordInput captures one engagement with a post.
type RecordInput struct {
	AccountID uuid.UUID
	PostID    string
	Kind      enums.EngagementKind
	Platforms []string
	Metadata  json.RawMessage
}

// RecordResult carries the persisted event plus the reward decision.
type RecordResult struct {
	EventID  uuid.UUID
	Rewarded bool
	Reason   string
	Amount   decimal.Decimal
	Balance  decimal.Decimal
}

type service struct {
	repo    Repository
	rewards rewards.Service
}

// NewService wires the engagement recorder with the reward calculator.
func NewService(repo Repository, rewardSvc rewards.Service) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("engagement repository required")
	}
	if rewardSvc == nil {
		return nil, fmt.Errorf("rewards service required")
	}
	return &service{repo: repo, rewards: rewardSvc}, nil
}

// Record persists the event first in its own transaction, then evaluates the
// reward. The event is the audit trail: it stays even when the engagement does
// not pay out.
func (s *service) Record(ctx context.Context, input RecordInput) (*RecordResult, error) {
	if input.AccountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	if input.PostID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "post id is required")
	}
	if len(input.PostID) > maxPostIDLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "post id too long").
			WithDetails(map[string]any{"max_length": maxPostIDLength})
	}
	if !input.Kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid engagement kind %q", input.Kind))
	}

	account, err := s.repo.FindAccount(ctx, input.AccountID)
	if err != nil {
		return nil, err
	}
	if account.DeactivatedAt != nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "account is deactivated")
	}

	event := &models.EngagementEvent{
		AccountID: input.AccountID,
		PostID:    input.PostID,
		Kind:      input.Kind,
		Platforms: pq.StringArray(input.Platforms),
		Metadata:  input.Metadata,
	}
	if err := s.repo.CreateEvent(ctx, event); err != nil {
		return nil, err
	}

	decision, err := s.rewards.RewardFor(ctx, rewards.RewardInput{
		AccountID: input.AccountID,
		PostID:    input.PostID,
		Kind:      input.Kind,
		EventID:   event.ID,
	})
	if err != nil {
		return nil, err
	}

	result := &RecordResult{
		EventID:  event.ID,
		Rewarded: decision.Rewarded,
		Reason:   decision.Reason,
	}
	if decision.Rewarded {
		result.Amount = decision.Amount
		result.Balance = decision.Transaction.BalanceAfter
	}
	return result, nil
}

// ListByPost returns a post's recorded events oldest-first, the audit view of
// who engaged and when.
func (s *service) ListByPost(ctx context.Context, postID string) ([]models.EngagementEvent, error) {
	if postID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "post id is required")
	}
	if len(postID) > maxPostIDLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "post id too long").
			WithDetails(map[string]any{"max_length": maxPostIDLength})
	}
	return s.repo.ListEventsByPost(ctx, postID)
}
