package rewards

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/financialpress/fpt-ledger/internal/ledger"
	"github.com/financialpress/fpt-ledger/pkg/db"
	"github.com/financialpress/fpt-ledger/pkg/db/models"
	"github.com/financialpress/fpt-ledger/pkg/enums"
	pkgerrors "github.com/financialpress/fpt-ledger/pkg/errors"
	"github.com/financialpress/fpt-ledger/pkg/metrics"
)

// Reasons a reward decision came back unpaid.
const (
	ReasonExempt       = "exempt"
	ReasonNoActiveRule = "no_active_rule"
	ReasonDuplicate    = "already_claimed"
)

// Service decides whether an engagement earns FPT and pays it out.
type Service interface {
	RewardFor(ctx context.Context, input RewardInput) (*RewardResult, error)
	UpsertRule(ctx context.Context, input UpsertRuleInput) (*models.RewardRule, error)
	ListRules(ctx context.Context) ([]models.RewardRule, error)
}

// RewardInput identifies one engagement the calculator should evaluate.
type RewardInput struct {
	AccountID uuid.UUID
	PostID    string
	Kind      enums.EngagementKind
	EventID   uuid.UUID
}

// RewardResult reports whether the engagement was paid. When Rewarded is false,
// Reason explains the decision; a duplicate claim is a decision, not an error.
type RewardResult struct {
	Rewarded    bool
	Reason      string
	Amount      decimal.Decimal
	Transaction *models.Transaction
}

// UpsertRuleInput captures an admin write to the reward table.
type UpsertRuleInput struct {
	Kind   enums.EngagementKind
	Amount decimal.Decimal
	Active bool
}

type service struct {
	repo     Repository
	ledger   ledger.Service
	dbClient *db.Client
	metrics  *metrics.LedgerMetrics
}

// NewService wires the reward calculator.
func NewService(repo Repository, ledgerSvc ledger.Service, dbClient *db.Client, metr *metrics.LedgerMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("rewards repository required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	return &service{repo: repo, ledger: ledgerSvc, dbClient: dbClient, metrics: metr}, nil
}

func (s *service) RewardFor(ctx context.Context, input RewardInput) (*RewardResult, error) {
	if input.AccountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	if input.PostID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "post id is required")
	}
	if !input.Kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid engagement kind %q", input.Kind))
	}

	if input.Kind.RewardExempt() {
		s.metrics.IncReward(string(input.Kind), "exempt")
		return &RewardResult{Reason: ReasonExempt}, nil
	}

	rule, err := s.repo.GetRule(ctx, input.Kind)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load reward rule")
	}
	if rule == nil || !rule.Active || !rule.Amount.IsPositive() {
		s.metrics.IncReward(string(input.Kind), "no_rule")
		return &RewardResult{Reason: ReasonNoActiveRule}, nil
	}

	// Claim insert and credit share one transaction: the unique claim index is
	// the idempotency barrier, the credit is the payout. Either both land or
	// neither does.
	var txn *models.Transaction
	err = s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		claim := &models.RewardClaim{
			AccountID: input.AccountID,
			PostID:    input.PostID,
			Kind:      input.Kind,
			EventID:   input.EventID,
		}
		if err := s.repo.WithTx(tx).CreateClaim(ctx, claim); err != nil {
			return err
		}

		created, err := s.ledger.WithTx(tx).Credit(ctx, ledger.MutationInput{
			AccountID:   input.AccountID,
			Amount:      rule.Amount,
			Kind:        enums.TransactionKindEngagementReward,
			Description: fmt.Sprintf("%s reward", input.Kind),
		})
		if err != nil {
			return err
		}
		txn = created
		return nil
	})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			s.metrics.IncReward(string(input.Kind), "duplicate")
			return &RewardResult{Reason: ReasonDuplicate}, nil
		}
		return nil, err
	}

	s.metrics.IncReward(string(input.Kind), "granted")
	return &RewardResult{
		Rewarded:    true,
		Amount:      rule.Amount,
		Transaction: txn,
	}, nil
}

func (s *service) UpsertRule(ctx context.Context, input UpsertRuleInput) (*models.RewardRule, error) {
	if !input.Kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid engagement kind %q", input.Kind))
	}
	if input.Kind.RewardExempt() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("engagement kind %q is reward-exempt", input.Kind))
	}
	if input.Amount.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must not be negative")
	}

	rule := &models.RewardRule{
		Kind:   input.Kind,
		Amount: input.Amount,
		Active: input.Active,
	}
	if err := s.repo.UpsertRule(ctx, rule); err != nil {
		return nil, err
	}
	return rule, nil
}

func (s *service) ListRules(ctx context.Context) ([]models.RewardRule, error) {
	return s.repo.ListRules(ctx)
}
