package controllers

import (
	"net/http"
	"time"

	"github.com/financialpress/fpt-ledger/api/responses"
	"github.com/financialpress/fpt-ledger/api/validators"
	"github.com/financialpress/fpt-ledger/internal/rewards"
	"github.com/financialpress/fpt-ledger/pkg/db/models"
	"github.com/financialpress/fpt-ledger/pkg/enums"
	pkgerrors "github.com/financialpress/fpt-ledger/pkg/errors"
	"github.com/financialpress/fpt-ledger/pkg/logger"
)

type rewardRuleResponse struct {
	Kind      string    `json:"kind"`
	Amount    string    `json:"amount"`
	Active    bool      `json:"active"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toRewardRuleResponse(rule *models.RewardRule) rewardRuleResponse {
	return rewardRuleResponse{
		Kind:      string(rule.Kind),
		Amount:    rule.Amount.StringFixed(2),
		Active:    rule.Active,
		UpdatedAt: rule.UpdatedAt,
	}
}

// RewardRulesList returns every configured rule, active or not.
func RewardRulesList(svc rewards.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "rewards service unavailable"))
			return
		}

		rules, err := svc.ListRules(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]rewardRuleResponse, 0, len(rules))
		for i := range rules {
			items = append(items, toRewardRuleResponse(&rules[i]))
		}

		responses.WriteSuccess(w, map[string]any{"rules": items})
	}
}

type rewardRuleUpsertRequest struct {
	Amount string `json:"amount" validate:"required"`
	Active bool   `json:"active"`
}

// RewardRuleUpsert writes the rule for the kind named in the path. One rule
// per kind; a second write replaces the first.
func RewardRuleUpsert(svc rewards.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "rewards service unavailable"))
			return
		}

		kind, err := enums.ParseEngagementKind(validators.PathParam(r, "kind"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid kind"))
			return
		}

		var payload rewardRuleUpsertRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		amount, err := parseAmount(payload.Amount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rule, err := svc.UpsertRule(r.Context(), rewards.UpsertRuleInput{
			Kind:   kind,
			Amount: amount,
			Active: payload.Active,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toRewardRuleResponse(rule))
	}
}
