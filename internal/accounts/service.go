package accounts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/financialpress/fpt-ledger/internal/ledger"
	"github.com/financialpress/fpt-ledger/pkg/db"
	"github.com/financialpress/fpt-ledger/pkg/db/models"
	"github.com/financialpress/fpt-ledger/pkg/enums"
	pkgerrors "github.com/financialpress/fpt-ledger/pkg/errors"
)

const maxDisplayNameLength = 120

// Service manages the account lifecycle.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Account, error)
	Get(ctx context.Context, accountID uuid.UUID) (*models.Account, error)
	Deactivate(ctx context.Context, accountID uuid.UUID) (*models.Account, error)
}

// CreateInput captures the data needed to open an account.
type CreateInput struct {
	DisplayName string
}

type service struct {
	repo         Repository
	ledger       ledger.Service
	dbClient     *db.Client
	welcomeBonus decimal.Decimal
}

// NewService wires an accounts service. The welcome bonus is credited through
// the ledger inside the same transaction that creates the account row.
func NewService(repo Repository, ledgerSvc ledger.Service, dbClient *db.Client, welcomeBonus decimal.Decimal) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("accounts repository required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if welcomeBonus.IsNegative() {
		return nil, fmt.Errorf("welcome bonus must not be negative")
	}
	return &service{
		repo:         repo,
		ledger:       ledgerSvc,
		dbClient:     dbClient,
		welcomeBonus: welcomeBonus,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Account, error) {
	name := strings.TrimSpace(input.DisplayName)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "display name is required")
	}
	if len(name) > maxDisplayNameLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "display name too long").
			WithDetails(map[string]any{"max_length": maxDisplayNameLength})
	}

	account := &models.Account{
		ID:          uuid.New(),
		DisplayName: name,
		Balance:     decimal.Zero,
	}

	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, account); err != nil {
			return err
		}
		if !s.welcomeBonus.IsPositive() {
			return nil
		}
		bonus, err := s.ledger.WithTx(tx).Credit(ctx, ledger.MutationInput{
			AccountID:      account.ID,
			Amount:         s.welcomeBonus,
			Kind:           enums.TransactionKindWelcomeBonus,
			Description:    "welcome bonus",
			IdempotencyKey: fmt.Sprintf("welcome:%s", account.ID),
		})
		if err != nil {
			return err
		}
		account.Balance = bonus.BalanceAfter
		return nil
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

func (s *service) Get(ctx context.Context, accountID uuid.UUID) (*models.Account, error) {
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	return s.repo.Find(ctx, accountID)
}

func (s *service) Deactivate(ctx context.Context, accountID uuid.UUID) (*models.Account, error) {
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}

	account, err := s.repo.Find(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.DeactivatedAt != nil {
		return account, nil
	}

	now := time.Now().UTC()
	if _, err := s.repo.Deactivate(ctx, accountID, now); err != nil {
		return nil, err
	}
	account.DeactivatedAt = &now
	return account, nil
}
