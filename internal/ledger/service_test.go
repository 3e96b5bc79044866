package ledger

import (
	"context"
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/financialpress/fpt-ledger/pkg/db"
	"github.com/financialpress/fpt-ledger/pkg/enums"
	pkgerrors "github.com/financialpress/fpt-ledger/pkg/errors"
)

func mustDecimal(t *testing.T, value string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(value)
	if err != nil {
		t.Fatalf("parse decimal %q: %v", value, err)
	}
	return d
}

func TestCreditIncreasesBalanceAndLogsTransaction(t *testing.T) {
	ctx := context.Background()
	conn := newTestDB(t)
	repo := NewRepository(conn)
	svc, err := NewService(repo, db.NewWithConn(conn), 2, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	account := seedAccount(t, conn, "10.00")

	txn, err := svc.Credit(ctx, MutationInput{
		AccountID: account.ID,
		Amount:    mustDecimal(t, "2.50"),
		Kind:      enums.TransactionKindEngagementReward,
	})
	if err != nil {
		t.Fatalf("credit: %v", err)
	}

	if !txn.Amount.Equal(mustDecimal(t, "2.50")) {
		t.Fatalf("unexpected amount %s", txn.Amount)
	}
	if !txn.BalanceAfter.Equal(mustDecimal(t, "12.50")) {
		t.Fatalf("unexpected balance_after %s", txn.BalanceAfter)
	}

	balance, err := svc.GetBalance(ctx, account.ID)
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if !balance.Equal(mustDecimal(t, "12.50")) {
		t.Fatalf("unexpected balance %s", balance)
	}
}

func TestDebitRejectsInsufficientBalance(t *testing.T) {
	ctx := context.Background()
	conn := newTestDB(t)
	repo := NewRepository(conn)
	svc, err := NewService(repo, db.NewWithConn(conn), 2, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	account := seedAccount(t, conn, "1.00")

	_, err = svc.Debit(ctx, MutationInput{
		AccountID: account.ID,
		Amount:    mustDecimal(t, "5.00"),
		Kind:      enums.TransactionKindTipSent,
	})
	if err == nil {
		t.Fatal("expected insufficient balance error")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInsufficientBalance {
		t.Fatalf("expected INSUFFICIENT_BALANCE, got %v", err)
	}

	balance, err := svc.GetBalance(ctx, account.ID)
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if !balance.Equal(mustDecimal(t, "1.00")) {
		t.Fatalf("failed debit must not move the balance, got %s", balance)
	}
}

func TestDebitExactBalanceSucceeds(t *testing.T) {
	ctx := context.Background()
	conn := newTestDB(t)
	repo := NewRepository(conn)
	svc, err := NewService(repo, db.NewWithConn(conn), 2, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	account := seedAccount(t, conn, "5.00")

	txn, err := svc.Debit(ctx, MutationInput{
		AccountID: account.ID,
		Amount:    mustDecimal(t, "5.00"),
		Kind:      enums.TransactionKindSubscription,
	})
	if err != nil {
		t.Fatalf("debit to zero: %v", err)
	}
	if !txn.BalanceAfter.Equal(decimal.Zero) {
		t.Fatalf("expected zero balance_after, got %s", txn.BalanceAfter)
	}
}

func TestMutationValidation(t *testing.T) {
	ctx := context.Background()
	conn := newTestDB(t)
	repo := NewRepository(conn)
	svc, err := NewService(repo, db.NewWithConn(conn), 2, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	account := seedAccount(t, conn, "10.00")

	cases := []struct {
		name  string
		input MutationInput
	}{
		{
			name: "zero amount",
			input: MutationInput{
				AccountID: account.ID,
				Amount:    decimal.Zero,
				Kind:      enums.TransactionKindAdjustment,
			},
		},
		{
			name: "negative amount",
			input: MutationInput{
				AccountID: account.ID,
				Amount:    mustDecimal(t, "-1.00"),
				Kind:      enums.TransactionKindAdjustment,
			},
		},
		{
			name: "too many decimal places",
			input: MutationInput{
				AccountID: account.ID,
				Amount:    mustDecimal(t, "1.001"),
				Kind:      enums.TransactionKindAdjustment,
			},
		},
		{
			name: "invalid kind",
			input: MutationInput{
				AccountID: account.ID,
				Amount:    mustDecimal(t, "1.00"),
				Kind:      enums.TransactionKind("bogus"),
			},
		},
		{
			name: "missing account",
			input: MutationInput{
				Amount: mustDecimal(t, "1.00"),
				Kind:   enums.TransactionKindAdjustment,
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Credit(ctx, tc.input)
			typed := pkgerrors.As(err)
			if typed == nil || typed.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected VALIDATION_ERROR, got %v", err)
			}
		})
	}
}

func TestCreditUnknownAccountReturnsNotFound(t *testing.T) {
	ctx := context.Background()
	conn := newTestDB(t)
	repo := NewRepository(conn)
	svc, err := NewService(repo, db.NewWithConn(conn), 2, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	_, err = svc.Credit(ctx, MutationInput{
		AccountID: uuid.New(),
		Amount:    mustDecimal(t, "1.00"),
		Kind:      enums.TransactionKindAdjustment,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestDeactivatedAccountRejectsMutations(t *testing.T) {
	ctx := context.Background()
	conn := newTestDB(t)
	repo := NewRepository(conn)
	svc, err := NewService(repo, db.NewWithConn(conn), 2, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	account := seedAccount(t, conn, "10.00")
	if err := conn.Model(account).Update("deactivated_at", conn.NowFunc()).Error; err != nil {
		t.Fatalf("deactivate account: %v", err)
	}

	_, err = svc.Credit(ctx, MutationInput{
		AccountID: account.ID,
		Amount:    mustDecimal(t, "1.00"),
		Kind:      enums.TransactionKindAdjustment,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected CONFLICT for deactivated account, got %v", err)
	}
}

func TestIdempotentCreditReplaysOriginalResult(t *testing.T) {
	ctx := context.Background()
	conn := newTestDB(t)
	repo := NewRepository(conn)
	svc, err := NewService(repo, db.NewWithConn(conn), 2, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	account := seedAccount(t, conn, "0.00")

	input := MutationInput{
		AccountID:      account.ID,
		Amount:         mustDecimal(t, "3.00"),
		Kind:           enums.TransactionKindInviteReward,
		IdempotencyKey: "invite-abc",
	}

	first, err := svc.Credit(ctx, input)
	if err != nil {
		t.Fatalf("first credit: %v", err)
	}
	second, err := svc.Credit(ctx, input)
	if err != nil {
		t.Fatalf("retried credit: %v", err)
	}

	if first.ID != second.ID {
		t.Fatalf("retry must return the original transaction, got %s and %s", first.ID, second.ID)
	}
	if !second.BalanceAfter.Equal(first.BalanceAfter) {
		t.Fatalf("replayed balance_after mismatch")
	}

	balance, err := svc.GetBalance(ctx, account.ID)
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if !balance.Equal(mustDecimal(t, "3.00")) {
		t.Fatalf("retry must not double-credit, balance %s", balance)
	}
}

func TestIdempotencyKeyReuseWithDifferentAmount(t *testing.T) {
	ctx := context.Background()
	conn := newTestDB(t)
	repo := NewRepository(conn)
	svc, err := NewService(repo, db.NewWithConn(conn), 2, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	account := seedAccount(t, conn, "0.00")

	if _, err := svc.Credit(ctx, MutationInput{
		AccountID:      account.ID,
		Amount:         mustDecimal(t, "3.00"),
		Kind:           enums.TransactionKindInviteReward,
		IdempotencyKey: "invite-abc",
	}); err != nil {
		t.Fatalf("first credit: %v", err)
	}

	_, err = svc.Credit(ctx, MutationInput{
		AccountID:      account.ID,
		Amount:         mustDecimal(t, "9.00"),
		Kind:           enums.TransactionKindInviteReward,
		IdempotencyKey: "invite-abc",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeIdempotency {
		t.Fatalf("expected IDEMPOTENCY_KEY_REUSED, got %v", err)
	}
}

func TestSameIdempotencyKeyOnDifferentAccounts(t *testing.T) {
	ctx := context.Background()
	conn := newTestDB(t)
	repo := NewRepository(conn)
	svc, err := NewService(repo, db.NewWithConn(conn), 2, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	first := seedAccount(t, conn, "0.00")
	second := seedAccount(t, conn, "0.00")

	for _, account := range []uuid.UUID{first.ID, second.ID} {
		if _, err := svc.Credit(ctx, MutationInput{
			AccountID:      account,
			Amount:         mustDecimal(t, "1.00"),
			Kind:           enums.TransactionKindAdjustment,
			IdempotencyKey: "shared-key",
		}); err != nil {
			t.Fatalf("credit account %s: %v", account, err)
		}
	}
}

func TestBalanceMatchesTransactionSumAfterRandomSequence(t *testing.T) {
	ctx := context.Background()
	conn := newTestDB(t)
	repo := NewRepository(conn)
	svc, err := NewService(repo, db.NewWithConn(conn), 2, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	account := seedAccount(t, conn, "0.00")

	rng := rand.New(rand.NewSource(42))
	expected := decimal.Zero
	for i := 0; i < 60; i++ {
		amount := decimal.NewFromInt(int64(rng.Intn(900) + 1)).Div(decimal.NewFromInt(100))
		if rng.Intn(2) == 0 {
			txn, err := svc.Credit(ctx, MutationInput{
				AccountID: account.ID,
				Amount:    amount,
				Kind:      enums.TransactionKindAdjustment,
			})
			if err != nil {
				t.Fatalf("credit %d: %v", i, err)
			}
			expected = expected.Add(amount)
			if !txn.BalanceAfter.Equal(expected) {
				t.Fatalf("credit %d balance_after %s, want %s", i, txn.BalanceAfter, expected)
			}
		} else {
			txn, err := svc.Debit(ctx, MutationInput{
				AccountID: account.ID,
				Amount:    amount,
				Kind:      enums.TransactionKindAdjustment,
			})
			if amount.GreaterThan(expected) {
				typed := pkgerrors.As(err)
				if typed == nil || typed.Code() != pkgerrors.CodeInsufficientBalance {
					t.Fatalf("debit %d beyond balance should fail with 402, got %v", i, err)
				}
				continue
			}
			if err != nil {
				t.Fatalf("debit %d: %v", i, err)
			}
			expected = expected.Sub(amount)
			if !txn.BalanceAfter.Equal(expected) {
				t.Fatalf("debit %d balance_after %s, want %s", i, txn.BalanceAfter, expected)
			}
		}
		if expected.IsNegative() {
			t.Fatalf("expected balance went negative at step %d", i)
		}
	}

	balance, err := svc.GetBalance(ctx, account.ID)
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if !balance.Equal(expected) {
		t.Fatalf("final balance %s does not match transaction sum %s", balance, expected)
	}
}

func TestListTransactionsPaginatesAndFilters(t *testing.T) {
	ctx := context.Background()
	conn := newTestDB(t)
	repo := NewRepository(conn)
	svc, err := NewService(repo, db.NewWithConn(conn), 2, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	account := seedAccount(t, conn, "0.00")

	for i := 0; i < 7; i++ {
		kind := enums.TransactionKindEngagementReward
		if i%2 == 1 {
			kind = enums.TransactionKindAdjustment
		}
		if _, err := svc.Credit(ctx, MutationInput{
			AccountID: account.ID,
			Amount:    mustDecimal(t, "1.00"),
			Kind:      kind,
		}); err != nil {
			t.Fatalf("seed credit %d: %v", i, err)
		}
	}

	var seen int
	cursor := ""
	for page := 0; page < 5; page++ {
		txns, next, err := svc.ListTransactions(ctx, ListTransactionsInput{
			AccountID: account.ID,
			Limit:     3,
			Cursor:    cursor,
		})
		if err != nil {
			t.Fatalf("list page %d: %v", page, err)
		}
		seen += len(txns)
		if next == "" {
			break
		}
		cursor = next
	}
	if seen != 7 {
		t.Fatalf("expected 7 transactions across pages, saw %d", seen)
	}

	rewardKind := enums.TransactionKindEngagementReward
	rewards, _, err := svc.ListTransactions(ctx, ListTransactionsInput{
		AccountID: account.ID,
		Kind:      &rewardKind,
		Limit:     10,
	})
	if err != nil {
		t.Fatalf("list filtered: %v", err)
	}
	if len(rewards) != 4 {
		t.Fatalf("expected 4 reward rows, got %d", len(rewards))
	}
	for _, txn := range rewards {
		if txn.Kind != rewardKind {
			t.Fatalf("filter leaked kind %s", txn.Kind)
		}
	}
}

func TestListTransactionsUnknownAccount(t *testing.T) {
	ctx := context.Background()
	conn := newTestDB(t)
	repo := NewRepository(conn)
	svc, err := NewService(repo, db.NewWithConn(conn), 2, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	_, _, err = svc.ListTransactions(ctx, ListTransactionsInput{AccountID: uuid.New()})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}
