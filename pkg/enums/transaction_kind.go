package enums

import "fmt"

// TransactionKind maps to the transaction_kind_enum enum in Postgres.
type TransactionKind string

const (
	TransactionKindEngagementReward TransactionKind = "engagement_reward"
	TransactionKindInviteReward     TransactionKind = "invite_reward"
	TransactionKindTipSent          TransactionKind = "tip_sent"
	TransactionKindTipReceived      TransactionKind = "tip_received"
	TransactionKindSubscription     TransactionKind = "subscription"
	TransactionKindWelcomeBonus     TransactionKind = "welcome_bonus"
	TransactionKindAdjustment       TransactionKind = "adjustment"
)

var validTransactionKinds = []TransactionKind{
	TransactionKindEngagementReward,
	TransactionKindInviteReward,
	TransactionKindTipSent,
	TransactionKindTipReceived,
	TransactionKindSubscription,
	TransactionKindWelcomeBonus,
	TransactionKindAdjustment,
}

// IsValid reports whether the value matches the canonical transaction kind enum.
func (k TransactionKind) IsValid() bool {
	for _, candidate := range validTransactionKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseTransactionKind converts raw input into TransactionKind.
func ParseTransactionKind(value string) (TransactionKind, error) {
	for _, candidate := range validTransactionKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transaction kind %q", value)
}
