package controllers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/financialpress/fpt-ledger/api/responses"
	"github.com/financialpress/fpt-ledger/api/validators"
	"github.com/financialpress/fpt-ledger/internal/balancecache"
	"github.com/financialpress/fpt-ledger/internal/engagement"
	"github.com/financialpress/fpt-ledger/pkg/enums"
	pkgerrors "github.com/financialpress/fpt-ledger/pkg/errors"
	"github.com/financialpress/fpt-ledger/pkg/logger"
)

type engagementRequest struct {
	AccountID string          `json:"account_id,omitempty" validate:"omitempty,uuid4"`
	PostID    string          `json:"post_id" validate:"required,max=255"`
	Kind      string          `json:"kind" validate:"required"`
	Platforms []string        `json:"platforms,omitempty" validate:"omitempty,max=10,dive,min=1,max=50"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
}

type engagementResponse struct {
	EventID  uuid.UUID `json:"event_id"`
	Rewarded bool      `json:"rewarded"`
	Reason   string    `json:"reason,omitempty"`
	Amount   string    `json:"amount,omitempty"`
	Balance  string    `json:"balance,omitempty"`
}

// EngagementRecord stores an engagement event and reports the reward decision.
// Members record their own engagements; service tokens record on behalf of any
// account by naming it in the body.
func EngagementRecord(svc engagement.Service, cache balancecache.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "engagement service unavailable"))
			return
		}

		var payload engagementRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		accountID, err := actorAccountID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if payload.AccountID != "" {
			target, parseErr := uuid.Parse(payload.AccountID)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid account id"))
				return
			}
			if authErr := authorizeAccount(r, target); authErr != nil {
				responses.WriteError(r.Context(), logg, w, authErr)
				return
			}
			accountID = target
		}

		kind, err := enums.ParseEngagementKind(payload.Kind)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid kind"))
			return
		}

		result, err := svc.Record(r.Context(), engagement.RecordInput{
			AccountID: accountID,
			PostID:    payload.PostID,
			Kind:      kind,
			Platforms: payload.Platforms,
			Metadata:  payload.Metadata,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := engagementResponse{
			EventID:  result.EventID,
			Rewarded: result.Rewarded,
			Reason:   result.Reason,
		}
		if result.Rewarded {
			resp.Amount = result.Amount.StringFixed(2)
			resp.Balance = result.Balance.StringFixed(2)
			if cache != nil {
				cache.Invalidate(r.Context(), accountID)
			}
		}

		responses.WriteSuccess(w, resp)
	}
}

type engagementEventResponse struct {
	EventID   uuid.UUID       `json:"event_id"`
	AccountID uuid.UUID       `json:"account_id"`
	PostID    string          `json:"post_id"`
	Kind      string          `json:"kind"`
	Platforms []string        `json:"platforms,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// EngagementListByPost returns the audit trail for a post, oldest event first.
func EngagementListByPost(svc engagement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "engagement service unavailable"))
			return
		}

		postID := validators.PathParam(r, "postId")
		events, err := svc.ListByPost(r.Context(), postID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]engagementEventResponse, 0, len(events))
		for i := range events {
			event := &events[i]
			items = append(items, engagementEventResponse{
				EventID:   event.ID,
				AccountID: event.AccountID,
				PostID:    event.PostID,
				Kind:      string(event.Kind),
				Platforms: event.Platforms,
				Metadata:  event.Metadata,
				CreatedAt: event.CreatedAt,
			})
		}

		responses.WriteSuccess(w, map[string]any{"events": items})
	}
}
