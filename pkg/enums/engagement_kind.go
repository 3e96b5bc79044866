package enums

import "fmt"

// EngagementKind identifies the raw user interaction recorded against a post.
type EngagementKind string

const (
	EngagementKindLike    EngagementKind = "like"
	EngagementKindComment EngagementKind = "comment"
	EngagementKindShare   EngagementKind = "share"
	EngagementKindView    EngagementKind = "view"
	EngagementKindInvite  EngagementKind = "invite"
	EngagementKindTip     EngagementKind = "tip"
)

var validEngagementKinds = []EngagementKind{
	EngagementKindLike,
	EngagementKindComment,
	EngagementKindShare,
	EngagementKindView,
	EngagementKindInvite,
	EngagementKindTip,
}

// IsValid reports whether the value matches the canonical engagement kind enum.
func (k EngagementKind) IsValid() bool {
	for _, candidate := range validEngagementKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// RewardExempt reports whether the kind never produces an engagement reward.
// Tip transactions are reward-exempt so a tip cannot trigger a further payout.
func (k EngagementKind) RewardExempt() bool {
	return k == EngagementKindTip
}

// ParseEngagementKind converts raw input into EngagementKind.
func ParseEngagementKind(value string) (EngagementKind, error) {
	for _, candidate := range validEngagementKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid engagement kind %q", value)
}
