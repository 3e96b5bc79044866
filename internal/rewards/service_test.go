package rewards

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/financialpress/fpt-ledger/internal/ledger"
	"github.com/financialpress/fpt-ledger/pkg/db"
	"github.com/financialpress/fpt-ledger/pkg/db/models"
	"github.com/financialpress/fpt-ledger/pkg/enums"
	pkgerrors "github.com/financialpress/fpt-ledger/pkg/errors"
)

var testDBCounter atomic.Int64

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:rewards_test_%d?mode=memory&cache=shared", testDBCounter.Add(1))
	silent := gormlogger.New(
		log.New(io.Discard, "", log.LstdFlags),
		gormlogger.Config{LogLevel: gormlogger.Silent},
	)
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 silent,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := conn.AutoMigrate(
		&models.Account{},
		&models.Transaction{},
		&models.RewardRule{},
		&models.RewardClaim{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return conn
}

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()

	conn := newTestDB(t)
	client := db.NewWithConn(conn)
	ledgerSvc, err := ledger.NewService(ledger.NewRepository(conn), client, 2, nil)
	if err != nil {
		t.Fatalf("new ledger service: %v", err)
	}
	svc, err := NewService(NewRepository(conn), ledgerSvc, client, nil)
	if err != nil {
		t.Fatalf("new rewards service: %v", err)
	}
	return svc, conn
}

func seedAccount(t *testing.T, conn *gorm.DB) *models.Account {
	t.Helper()

	account := &models.Account{ID: uuid.New(), DisplayName: "engager", Balance: decimal.Zero}
	if err := conn.Create(account).Error; err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return account
}

func seedRule(t *testing.T, conn *gorm.DB, kind enums.EngagementKind, amount string, active bool) {
	t.Helper()

	rule := &models.RewardRule{
		Kind:   kind,
		Amount: decimal.RequireFromString(amount),
		Active: active,
	}
	if err := conn.Create(rule).Error; err != nil {
		t.Fatalf("seed rule: %v", err)
	}
}

func TestRewardForPaysActiveRule(t *testing.T) {
	ctx := context.Background()
	svc, conn := newTestService(t)
	account := seedAccount(t, conn)
	seedRule(t, conn, enums.EngagementKindLike, "0.10", true)

	result, err := svc.RewardFor(ctx, RewardInput{
		AccountID: account.ID,
		PostID:    "post-1",
		Kind:      enums.EngagementKindLike,
	})
	if err != nil {
		t.Fatalf("reward for: %v", err)
	}
	if !result.Rewarded {
		t.Fatalf("expected reward, got reason %q", result.Reason)
	}
	if !result.Amount.Equal(decimal.RequireFromString("0.10")) {
		t.Fatalf("unexpected amount %s", result.Amount)
	}
	if result.Transaction == nil || result.Transaction.Kind != enums.TransactionKindEngagementReward {
		t.Fatalf("expected engagement_reward transaction, got %+v", result.Transaction)
	}

	var updated models.Account
	if err := conn.First(&updated, "id = ?", account.ID).Error; err != nil {
		t.Fatalf("reload account: %v", err)
	}
	if !updated.Balance.Equal(decimal.RequireFromString("0.10")) {
		t.Fatalf("expected credited balance, got %s", updated.Balance)
	}
}

func TestRewardForDuplicateClaimDoesNotPayTwice(t *testing.T) {
	ctx := context.Background()
	svc, conn := newTestService(t)
	account := seedAccount(t, conn)
	seedRule(t, conn, enums.EngagementKindLike, "0.10", true)

	input := RewardInput{AccountID: account.ID, PostID: "post-1", Kind: enums.EngagementKindLike}

	first, err := svc.RewardFor(ctx, input)
	if err != nil {
		t.Fatalf("first reward: %v", err)
	}
	if !first.Rewarded {
		t.Fatalf("first engagement should pay, reason %q", first.Reason)
	}

	second, err := svc.RewardFor(ctx, input)
	if err != nil {
		t.Fatalf("second reward: %v", err)
	}
	if second.Rewarded {
		t.Fatal("like/unlike/like toggle must not pay twice")
	}
	if second.Reason != ReasonDuplicate {
		t.Fatalf("unexpected reason %q", second.Reason)
	}

	var updated models.Account
	if err := conn.First(&updated, "id = ?", account.ID).Error; err != nil {
		t.Fatalf("reload account: %v", err)
	}
	if !updated.Balance.Equal(decimal.RequireFromString("0.10")) {
		t.Fatalf("balance should hold one payout, got %s", updated.Balance)
	}

	var claims int64
	if err := conn.Model(&models.RewardClaim{}).Count(&claims).Error; err != nil {
		t.Fatalf("count claims: %v", err)
	}
	if claims != 1 {
		t.Fatalf("expected one claim row, got %d", claims)
	}
}

func TestRewardForSamePostDifferentKinds(t *testing.T) {
	ctx := context.Background()
	svc, conn := newTestService(t)
	account := seedAccount(t, conn)
	seedRule(t, conn, enums.EngagementKindLike, "0.10", true)
	seedRule(t, conn, enums.EngagementKindComment, "0.25", true)

	for _, kind := range []enums.EngagementKind{enums.EngagementKindLike, enums.EngagementKindComment} {
		result, err := svc.RewardFor(ctx, RewardInput{AccountID: account.ID, PostID: "post-1", Kind: kind})
		if err != nil {
			t.Fatalf("reward %s: %v", kind, err)
		}
		if !result.Rewarded {
			t.Fatalf("kind %s should pay independently, reason %q", kind, result.Reason)
		}
	}

	var updated models.Account
	if err := conn.First(&updated, "id = ?", account.ID).Error; err != nil {
		t.Fatalf("reload account: %v", err)
	}
	if !updated.Balance.Equal(decimal.RequireFromString("0.35")) {
		t.Fatalf("expected 0.35 total, got %s", updated.Balance)
	}
}

func TestRewardForInactiveOrMissingRule(t *testing.T) {
	ctx := context.Background()
	svc, conn := newTestService(t)
	account := seedAccount(t, conn)
	seedRule(t, conn, enums.EngagementKindView, "0.01", false)

	cases := []struct {
		name string
		kind enums.EngagementKind
	}{
		{name: "inactive rule", kind: enums.EngagementKindView},
		{name: "missing rule", kind: enums.EngagementKindShare},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := svc.RewardFor(ctx, RewardInput{AccountID: account.ID, PostID: "post-x", Kind: tc.kind})
			if err != nil {
				t.Fatalf("reward for: %v", err)
			}
			if result.Rewarded {
				t.Fatal("expected no payout")
			}
			if result.Reason != ReasonNoActiveRule {
				t.Fatalf("unexpected reason %q", result.Reason)
			}
		})
	}
}

func TestRewardForTipIsExempt(t *testing.T) {
	ctx := context.Background()
	svc, conn := newTestService(t)
	account := seedAccount(t, conn)

	result, err := svc.RewardFor(ctx, RewardInput{AccountID: account.ID, PostID: "post-1", Kind: enums.EngagementKindTip})
	if err != nil {
		t.Fatalf("reward for: %v", err)
	}
	if result.Rewarded || result.Reason != ReasonExempt {
		t.Fatalf("tips must not earn rewards, got %+v", result)
	}
}

func TestUpsertRuleValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	cases := []struct {
		name  string
		input UpsertRuleInput
	}{
		{name: "unknown kind", input: UpsertRuleInput{Kind: "bogus", Amount: decimal.RequireFromString("1.00"), Active: true}},
		{name: "exempt kind", input: UpsertRuleInput{Kind: enums.EngagementKindTip, Amount: decimal.RequireFromString("1.00"), Active: true}},
		{name: "negative amount", input: UpsertRuleInput{Kind: enums.EngagementKindLike, Amount: decimal.RequireFromString("-1.00"), Active: true}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.UpsertRule(ctx, tc.input)
			typed := pkgerrors.As(err)
			if typed == nil || typed.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected VALIDATION_ERROR, got %v", err)
			}
		})
	}
}

func TestUpsertRuleReplacesExisting(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	if _, err := svc.UpsertRule(ctx, UpsertRuleInput{
		Kind:   enums.EngagementKindLike,
		Amount: decimal.RequireFromString("0.10"),
		Active: true,
	}); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	if _, err := svc.UpsertRule(ctx, UpsertRuleInput{
		Kind:   enums.EngagementKindLike,
		Amount: decimal.RequireFromString("0.20"),
		Active: false,
	}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	rules, err := svc.ListRules(ctx)
	if err != nil {
		t.Fatalf("list rules: %v", err)
	}
	if len(rules) != 1 {
		t.Fatalf("one rule per kind, got %d", len(rules))
	}
	if !rules[0].Amount.Equal(decimal.RequireFromString("0.20")) || rules[0].Active {
		t.Fatalf("upsert did not replace rule: %+v", rules[0])
	}
}
