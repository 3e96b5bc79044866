package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/financialpress/fpt-ledger/api/responses"
	"github.com/financialpress/fpt-ledger/api/validators"
	"github.com/financialpress/fpt-ledger/internal/balancecache"
	"github.com/financialpress/fpt-ledger/internal/ledger"
	"github.com/financialpress/fpt-ledger/pkg/db/models"
	"github.com/financialpress/fpt-ledger/pkg/enums"
	pkgerrors "github.com/financialpress/fpt-ledger/pkg/errors"
	"github.com/financialpress/fpt-ledger/pkg/logger"
)

const (
	defaultTransactionPageSize = 20
	maxTransactionPageSize     = 100
)

type mutationRequest struct {
	Amount         string          `json:"amount" validate:"required"`
	Kind           string          `json:"kind" validate:"required"`
	Description    string          `json:"description,omitempty" validate:"omitempty,max=500"`
	Metadata       json.RawMessage `json:"metadata,omitempty"`
	IdempotencyKey string          `json:"idempotency_key,omitempty" validate:"omitempty,max=255"`
}

func (req mutationRequest) toInput(r *http.Request) (ledger.MutationInput, error) {
	accountID, err := validators.ParsePathUUID(r, "accountId")
	if err != nil {
		return ledger.MutationInput{}, err
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		return ledger.MutationInput{}, err
	}

	kind, err := enums.ParseTransactionKind(req.Kind)
	if err != nil {
		return ledger.MutationInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid kind")
	}

	key := req.IdempotencyKey
	if key == "" {
		key = strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	}

	return ledger.MutationInput{
		AccountID:      accountID,
		Amount:         amount,
		Kind:           kind,
		Description:    validators.SanitizeString(req.Description, 500),
		Metadata:       req.Metadata,
		IdempotencyKey: key,
	}, nil
}

// LedgerCredit adds FPT to an account and returns the new balance.
func LedgerCredit(svc ledger.Service, cache balancecache.Service, logg *logger.Logger) http.HandlerFunc {
	var apply func(context.Context, ledger.MutationInput) (*models.Transaction, error)
	if svc != nil {
		apply = svc.Credit
	}
	return mutationHandler(apply, cache, logg)
}

// LedgerDebit removes FPT from an account; a short balance maps to 402.
func LedgerDebit(svc ledger.Service, cache balancecache.Service, logg *logger.Logger) http.HandlerFunc {
	var apply func(context.Context, ledger.MutationInput) (*models.Transaction, error)
	if svc != nil {
		apply = svc.Debit
	}
	return mutationHandler(apply, cache, logg)
}

func mutationHandler(
	apply func(context.Context, ledger.MutationInput) (*models.Transaction, error),
	cache balancecache.Service,
	logg *logger.Logger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if apply == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		var payload mutationRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := authorizeAccount(r, input.AccountID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		txn, err := apply(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if cache != nil {
			cache.Invalidate(r.Context(), input.AccountID)
		}

		responses.WriteSuccess(w, toMutationResponse(txn))
	}
}

// LedgerTransactions pages the account history newest-first.
func LedgerTransactions(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		accountID, err := validators.ParsePathUUID(r, "accountId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := authorizeAccount(r, accountID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", defaultTransactionPageSize, 1, maxTransactionPageSize)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var kind *enums.TransactionKind
		if raw := strings.TrimSpace(r.URL.Query().Get("kind")); raw != "" {
			parsed, err := enums.ParseTransactionKind(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid kind filter"))
				return
			}
			kind = &parsed
		}

		txns, nextCursor, err := svc.ListTransactions(r.Context(), ledger.ListTransactionsInput{
			AccountID: accountID,
			Kind:      kind,
			Limit:     limit,
			Cursor:    strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]transactionResponse, 0, len(txns))
		for i := range txns {
			items = append(items, toTransactionResponse(&txns[i]))
		}

		responses.WriteSuccess(w, map[string]any{
			"transactions": items,
			"next_cursor":  nextCursor,
		})
	}
}
