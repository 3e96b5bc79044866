package tips

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/financialpress/fpt-ledger/internal/ledger"
	"github.com/financialpress/fpt-ledger/pkg/db"
	"github.com/financialpress/fpt-ledger/pkg/db/models"
	"github.com/financialpress/fpt-ledger/pkg/enums"
	pkgerrors "github.com/financialpress/fpt-ledger/pkg/errors"
)

const maxMessageLength = 500

// Service moves FPT directly between two accounts.
type Service interface {
	Send(ctx context.Context, input SendInput) (*TipResult, error)
}

// SendInput captures one tip from sender to recipient.
type SendInput struct {
	SenderID       uuid.UUID
	RecipientID    uuid.UUID
	PostID         string
	Amount         decimal.Decimal
	Message        string
	IdempotencyKey string
}

// TipResult reports the completed transfer.
type TipResult struct {
	TipID         uuid.UUID
	SenderBalance decimal.Decimal
}

type tipMetadata struct {
	TipID     string `json:"tip_id"`
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
	PostID    string `json:"post_id,omitempty"`
	Message   string `json:"message,omitempty"`
}

type service struct {
	ledger   ledger.Service
	dbClient *db.Client
}

// NewService wires the tip service on top of the ledger.
func NewService(ledgerSvc ledger.Service, dbClient *db.Client) (Service, error) {
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	return &service{ledger: ledgerSvc, dbClient: dbClient}, nil
}

// Send runs both legs in one transaction. The debit can fail on funds and the
// credit can fail on a missing recipient; either way the other leg rolls back
// and no one is left half paid.
func (s *service) Send(ctx context.Context, input SendInput) (*TipResult, error) {
	if input.SenderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sender id is required")
	}
	if input.RecipientID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "recipient id is required")
	}
	if input.SenderID == input.RecipientID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot tip yourself")
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if len(input.Message) > maxMessageLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "message too long").
			WithDetails(map[string]any{"max_length": maxMessageLength})
	}

	tipID := uuid.New()
	message := strings.TrimSpace(input.Message)
	metadata, err := json.Marshal(tipMetadata{
		TipID:     tipID.String(),
		Sender:    input.SenderID.String(),
		Recipient: input.RecipientID.String(),
		PostID:    input.PostID,
		Message:   message,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode tip metadata")
	}

	var sentKey, recvKey string
	if input.IdempotencyKey != "" {
		sentKey = input.IdempotencyKey + ":sent"
		recvKey = input.IdempotencyKey + ":recv"
	}

	debitInput := ledger.MutationInput{
		AccountID:      input.SenderID,
		Amount:         input.Amount,
		Kind:           enums.TransactionKindTipSent,
		Description:    fmt.Sprintf("tip to %s", input.RecipientID),
		Metadata:       metadata,
		IdempotencyKey: sentKey,
	}
	creditInput := ledger.MutationInput{
		AccountID:      input.RecipientID,
		Amount:         input.Amount,
		Kind:           enums.TransactionKindTipReceived,
		Description:    fmt.Sprintf("tip from %s", input.SenderID),
		Metadata:       metadata,
		IdempotencyKey: recvKey,
	}

	var debitTxn *models.Transaction
	err = s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		bound := s.ledger.WithTx(tx)

		// Legs run in ascending account-id order so two crossing tips cannot
		// deadlock on row locks.
		if input.SenderID.String() < input.RecipientID.String() {
			txn, err := bound.Debit(ctx, debitInput)
			if err != nil {
				return err
			}
			debitTxn = txn
			_, err = bound.Credit(ctx, creditInput)
			return err
		}

		if _, err := bound.Credit(ctx, creditInput); err != nil {
			return err
		}
		txn, err := bound.Debit(ctx, debitInput)
		if err != nil {
			return err
		}
		debitTxn = txn
		return nil
	})
	if err != nil {
		return nil, err
	}

	// A retried send replays the original debit; its metadata carries the tip
	// id minted on the first attempt.
	resultID := tipID
	if debitTxn != nil && len(debitTxn.Metadata) > 0 {
		var meta tipMetadata
		if jsonErr := json.Unmarshal(debitTxn.Metadata, &meta); jsonErr == nil && meta.TipID != "" {
			if parsed, parseErr := uuid.Parse(meta.TipID); parseErr == nil {
				resultID = parsed
			}
		}
	}

	return &TipResult{
		TipID:         resultID,
		SenderBalance: debitTxn.BalanceAfter,
	}, nil
}
