package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/financialpress/fpt-ledger/api/middleware"
	"github.com/financialpress/fpt-ledger/internal/accounts"
	"github.com/financialpress/fpt-ledger/internal/ledger"
	"github.com/financialpress/fpt-ledger/internal/rewards"
	"github.com/financialpress/fpt-ledger/internal/tips"
	"github.com/financialpress/fpt-ledger/pkg/db/models"
	"github.com/financialpress/fpt-ledger/pkg/enums"
)

func withRouteParam(req *http.Request, key, value string) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func withActor(req *http.Request, accountID uuid.UUID, role enums.AccountRole) *http.Request {
	ctx := middleware.WithAccountID(req.Context(), accountID.String())
	ctx = middleware.WithRole(ctx, string(role))
	return req.WithContext(ctx)
}

func record(handler http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

type stubAccountsService struct {
	account *models.Account
	err     error
}

func (s stubAccountsService) Create(context.Context, accounts.CreateInput) (*models.Account, error) {
	return s.account, s.err
}

func (s stubAccountsService) Get(context.Context, uuid.UUID) (*models.Account, error) {
	return s.account, s.err
}

func (s stubAccountsService) Deactivate(context.Context, uuid.UUID) (*models.Account, error) {
	return s.account, s.err
}

type stubLedgerService struct {
	txn        *models.Transaction
	txns       []models.Transaction
	nextCursor string
	err        error
	lastInput  ledger.MutationInput
	listInput  ledger.ListTransactionsInput
}

func (s *stubLedgerService) WithTx(*gorm.DB) ledger.Service { return s }

func (s *stubLedgerService) Credit(_ context.Context, input ledger.MutationInput) (*models.Transaction, error) {
	s.lastInput = input
	return s.txn, s.err
}

func (s *stubLedgerService) Debit(_ context.Context, input ledger.MutationInput) (*models.Transaction, error) {
	s.lastInput = input
	return s.txn, s.err
}

func (s *stubLedgerService) GetBalance(context.Context, uuid.UUID) (decimal.Decimal, error) {
	return decimal.Zero, s.err
}

func (s *stubLedgerService) ListTransactions(_ context.Context, input ledger.ListTransactionsInput) ([]models.Transaction, string, error) {
	s.listInput = input
	return s.txns, s.nextCursor, s.err
}

type stubCacheService struct {
	balance     decimal.Decimal
	hit         bool
	err         error
	invalidated []uuid.UUID
}

func (s *stubCacheService) Cached(_ context.Context, _ uuid.UUID) (decimal.Decimal, bool, error) {
	return s.balance, s.hit, s.err
}

func (s *stubCacheService) Invalidate(_ context.Context, accountID uuid.UUID) {
	s.invalidated = append(s.invalidated, accountID)
}

type stubTipsService struct {
	result    *tips.TipResult
	err       error
	lastInput tips.SendInput
}

func (s *stubTipsService) Send(_ context.Context, input tips.SendInput) (*tips.TipResult, error) {
	s.lastInput = input
	return s.result, s.err
}

type stubRewardsService struct {
	rule  *models.RewardRule
	rules []models.RewardRule
	err   error
}

func (s stubRewardsService) RewardFor(context.Context, rewards.RewardInput) (*rewards.RewardResult, error) {
	return nil, s.err
}

func (s stubRewardsService) UpsertRule(context.Context, rewards.UpsertRuleInput) (*models.RewardRule, error) {
	return s.rule, s.err
}

func (s stubRewardsService) ListRules(context.Context) ([]models.RewardRule, error) {
	return s.rules, s.err
}

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }
