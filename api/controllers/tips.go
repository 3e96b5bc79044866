package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/financialpress/fpt-ledger/api/responses"
	"github.com/financialpress/fpt-ledger/api/validators"
	"github.com/financialpress/fpt-ledger/internal/balancecache"
	"github.com/financialpress/fpt-ledger/internal/tips"
	pkgerrors "github.com/financialpress/fpt-ledger/pkg/errors"
	"github.com/financialpress/fpt-ledger/pkg/logger"
)

type tipRequest struct {
	RecipientID    string `json:"recipient_id" validate:"required,uuid4"`
	PostID         string `json:"post_id,omitempty" validate:"omitempty,max=255"`
	Amount         string `json:"amount" validate:"required"`
	Message        string `json:"message,omitempty" validate:"omitempty,max=500"`
	IdempotencyKey string `json:"idempotency_key,omitempty" validate:"omitempty,max=255"`
}

type tipResponse struct {
	TipID         uuid.UUID `json:"tip_id"`
	SenderBalance string    `json:"sender_balance"`
}

// TipSend moves FPT from the authenticated account to the recipient.
func TipSend(svc tips.Service, cache balancecache.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "tips service unavailable"))
			return
		}

		senderID, err := actorAccountID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload tipRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		recipientID, err := uuid.Parse(payload.RecipientID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid recipient id"))
			return
		}

		amount, err := parseAmount(payload.Amount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		key := payload.IdempotencyKey
		if key == "" {
			key = strings.TrimSpace(r.Header.Get("Idempotency-Key"))
		}

		result, err := svc.Send(r.Context(), tips.SendInput{
			SenderID:       senderID,
			RecipientID:    recipientID,
			PostID:         payload.PostID,
			Amount:         amount,
			Message:        validators.SanitizeString(payload.Message, 500),
			IdempotencyKey: key,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if cache != nil {
			cache.Invalidate(r.Context(), senderID)
			cache.Invalidate(r.Context(), recipientID)
		}

		responses.WriteSuccess(w, tipResponse{
			TipID:         result.TipID,
			SenderBalance: result.SenderBalance.StringFixed(2),
		})
	}
}
