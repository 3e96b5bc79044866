package controllers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/financialpress/fpt-ledger/api/middleware"
	"github.com/financialpress/fpt-ledger/pkg/db/models"
	"github.com/financialpress/fpt-ledger/pkg/enums"
	pkgerrors "github.com/financialpress/fpt-ledger/pkg/errors"
)

type accountResponse struct {
	ID            uuid.UUID  `json:"id"`
	DisplayName   string     `json:"display_name"`
	Balance       string     `json:"balance"`
	DeactivatedAt *time.Time `json:"deactivated_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func toAccountResponse(account *models.Account) accountResponse {
	return accountResponse{
		ID:            account.ID,
		DisplayName:   account.DisplayName,
		Balance:       account.Balance.StringFixed(2),
		DeactivatedAt: account.DeactivatedAt,
		CreatedAt:     account.CreatedAt,
	}
}

type transactionResponse struct {
	ID           uuid.UUID       `json:"id"`
	AccountID    uuid.UUID       `json:"account_id"`
	Amount       string          `json:"amount"`
	BalanceAfter string          `json:"balance_after"`
	Kind         string          `json:"kind"`
	Description  string          `json:"description,omitempty"`
	Metadata     json.RawMessage `json:"metadata,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

func toTransactionResponse(txn *models.Transaction) transactionResponse {
	return transactionResponse{
		ID:           txn.ID,
		AccountID:    txn.AccountID,
		Amount:       txn.Amount.StringFixed(2),
		BalanceAfter: txn.BalanceAfter.StringFixed(2),
		Kind:         string(txn.Kind),
		Description:  txn.Description,
		Metadata:     txn.Metadata,
		CreatedAt:    txn.CreatedAt,
	}
}

type mutationResponse struct {
	Balance     string              `json:"balance"`
	Transaction transactionResponse `json:"transaction"`
}

func toMutationResponse(txn *models.Transaction) mutationResponse {
	return mutationResponse{
		Balance:     txn.BalanceAfter.StringFixed(2),
		Transaction: toTransactionResponse(txn),
	}
}

func parseAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid amount")
	}
	return amount, nil
}

// authorizeAccount lets an account act on its own resources. Admin and
// service tokens act on any account.
func authorizeAccount(r *http.Request, accountID uuid.UUID) error {
	switch middleware.RoleFromContext(r.Context()) {
	case string(enums.AccountRoleAdmin), string(enums.AccountRoleService):
		return nil
	}
	if middleware.AccountIDFromContext(r.Context()) != accountID.String() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "account mismatch")
	}
	return nil
}

// actorAccountID resolves the authenticated account from the request context.
func actorAccountID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.AccountIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account context missing")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid account context")
	}
	return id, nil
}
