package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/financialpress/fpt-ledger/pkg/db"
	"github.com/financialpress/fpt-ledger/pkg/db/models"
	"github.com/financialpress/fpt-ledger/pkg/enums"
	pkgerrors "github.com/financialpress/fpt-ledger/pkg/errors"
	"github.com/financialpress/fpt-ledger/pkg/metrics"
	"github.com/financialpress/fpt-ledger/pkg/pagination"
)

// Service defines the balance mutations and reads of the token ledger.
type Service interface {
	// WithTx rebinds the service to an in-flight transaction so callers can
	// compose ledger writes with their own rows atomically.
	WithTx(tx *gorm.DB) Service
	Credit(ctx context.Context, input MutationInput) (*models.Transaction, error)
	Debit(ctx context.Context, input MutationInput) (*models.Transaction, error)
	GetBalance(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error)
	ListTransactions(ctx context.Context, input ListTransactionsInput) ([]models.Transaction, string, error)
}

// MutationInput captures one credit or debit against a single account.
type MutationInput struct {
	AccountID      uuid.UUID
	Amount         decimal.Decimal
	Kind           enums.TransactionKind
	Description    string
	Metadata       json.RawMessage
	IdempotencyKey string
}

// ListTransactionsInput filters and pages the transaction history.
type ListTransactionsInput struct {
	AccountID uuid.UUID
	Kind      *enums.TransactionKind
	Limit     int
	Cursor    string
}

type service struct {
	repo     Repository
	dbClient *db.Client
	maxScale int32
	metrics  *metrics.LedgerMetrics
}

// NewService wires a ledger service with the provided repository and database client.
func NewService(repo Repository, dbClient *db.Client, maxScale int32, metr *metrics.LedgerMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if maxScale < 0 {
		return nil, fmt.Errorf("max scale must not be negative")
	}
	return &service{repo: repo, dbClient: dbClient, maxScale: maxScale, metrics: metr}, nil
}

func (s *service) WithTx(tx *gorm.DB) Service {
	if tx == nil {
		return s
	}
	return &service{
		repo:     s.repo.WithTx(tx),
		dbClient: nil,
		maxScale: s.maxScale,
		metrics:  s.metrics,
	}
}

func (s *service) Credit(ctx context.Context, input MutationInput) (*models.Transaction, error) {
	if err := s.validate(input); err != nil {
		return nil, err
	}
	return s.mutate(ctx, input, input.Amount, false)
}

func (s *service) Debit(ctx context.Context, input MutationInput) (*models.Transaction, error) {
	if err := s.validate(input); err != nil {
		return nil, err
	}
	return s.mutate(ctx, input, input.Amount.Neg(), true)
}

func (s *service) GetBalance(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	if accountID == uuid.Nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	account, err := s.repo.FindAccount(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	return account.Balance, nil
}

func (s *service) ListTransactions(ctx context.Context, input ListTransactionsInput) ([]models.Transaction, string, error) {
	if input.AccountID == uuid.Nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	if input.Kind != nil && !input.Kind.IsValid() {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "invalid transaction kind filter")
	}
	if _, err := s.repo.FindAccount(ctx, input.AccountID); err != nil {
		return nil, "", err
	}

	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(input.Limit)
	txns, err := s.repo.ListTransactions(ctx, input.AccountID, input.Kind, cursor, limit+1)
	if err != nil {
		return nil, "", err
	}

	nextCursor := ""
	if len(txns) > limit {
		txns = txns[:limit]
		last := txns[len(txns)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return txns, nextCursor, nil
}

func (s *service) validate(input MutationInput) error {
	if input.AccountID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	if !input.Amount.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if input.Amount.Exponent() < -s.maxScale {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount has too many decimal places").
			WithDetails(map[string]any{"max_scale": s.maxScale})
	}
	if !input.Kind.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid transaction kind %q", input.Kind))
	}
	return nil
}

func (s *service) mutate(ctx context.Context, input MutationInput, delta decimal.Decimal, requireFunds bool) (*models.Transaction, error) {
	start := time.Now()
	operation := "credit"
	if requireFunds {
		operation = "debit"
	}

	if input.IdempotencyKey != "" {
		existing, err := s.repo.FindTransactionByIdempotencyKey(ctx, input.AccountID, input.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return s.replay(existing, delta)
		}
	}

	var key *string
	if input.IdempotencyKey != "" {
		key = &input.IdempotencyKey
	}

	var txn *models.Transaction
	apply := func(repo Repository) error {
		account, err := repo.AdjustBalance(ctx, input.AccountID, delta, requireFunds)
		if err != nil {
			return err
		}
		txn = &models.Transaction{
			AccountID:      input.AccountID,
			Amount:         delta,
			BalanceAfter:   account.Balance,
			Kind:           input.Kind,
			Description:    input.Description,
			Metadata:       input.Metadata,
			IdempotencyKey: key,
		}
		return repo.CreateTransaction(ctx, txn)
	}

	var err error
	if s.dbClient != nil {
		err = s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
			return apply(s.repo.WithTx(tx))
		})
	} else {
		err = apply(s.repo)
	}

	if err != nil {
		if input.IdempotencyKey != "" && db.IsUniqueViolation(err, "") {
			existing, findErr := s.repo.FindTransactionByIdempotencyKey(ctx, input.AccountID, input.IdempotencyKey)
			if findErr == nil && existing != nil {
				return s.replay(existing, delta)
			}
		}
		s.metrics.IncTransaction(string(input.Kind), "error")
		return nil, err
	}

	s.metrics.IncTransaction(string(input.Kind), "ok")
	s.metrics.ObserveDuration(operation, time.Since(start))
	return txn, nil
}

// replay returns the transaction a retried request already created, refusing
// the key when the retried amount disagrees with what was recorded.
func (s *service) replay(existing *models.Transaction, delta decimal.Decimal) (*models.Transaction, error) {
	if !existing.Amount.Equal(delta) {
		return nil, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with a different amount").
			WithDetails(map[string]string{
				"recorded":  existing.Amount.String(),
				"requested": delta.String(),
			})
	}
	return existing, nil
}
