package controllers

import (
	"net/http"

	"github.com/financialpress/fpt-ledger/api/responses"
	"github.com/financialpress/fpt-ledger/api/validators"
	"github.com/financialpress/fpt-ledger/internal/accounts"
	"github.com/financialpress/fpt-ledger/internal/balancecache"
	pkgerrors "github.com/financialpress/fpt-ledger/pkg/errors"
	"github.com/financialpress/fpt-ledger/pkg/logger"
)

type accountCreateRequest struct {
	DisplayName string `json:"display_name" validate:"required,min=1,max=120"`
}

// AccountCreate opens an account and credits the welcome bonus.
func AccountCreate(svc accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "accounts service unavailable"))
			return
		}

		var payload accountCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		account, err := svc.Create(r.Context(), accounts.CreateInput{DisplayName: payload.DisplayName})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, toAccountResponse(account))
	}
}

// AccountGet returns the account profile with its authoritative balance.
func AccountGet(svc accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "accounts service unavailable"))
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

		account, err := svc.Get(r.Context(), accountID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toAccountResponse(account))
	}
}

// AccountBalance returns the current balance. With ?cached=true the redis
// mirror answers when fresh; the response marks where the value came from.
func AccountBalance(cache balancecache.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cache == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "balance service unavailable"))
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

		balance, cached, err := cache.Cached(r.Context(), accountID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"account_id": accountID,
			"balance":    balance.StringFixed(2),
			"cached":     cached,
		})
	}
}

// AccountDeactivate freezes the account. Repeat calls are no-ops.
func AccountDeactivate(svc accounts.Service, cache balancecache.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "accounts service unavailable"))
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

		account, err := svc.Deactivate(r.Context(), accountID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if cache != nil {
			cache.Invalidate(r.Context(), accountID)
		}

		responses.WriteSuccess(w, toAccountResponse(account))
	}
}
