// Package ledger answers whether a project budget can absorb a new
// commitment and classifies how much headroom is left.
package ledger

import (
	"fmt"

	"giglane/internal/money"
)

// Tier is the display classification of a budget's remaining headroom.
type Tier string

const (
	TierHealthy   Tier = "healthy"
	TierWarning   Tier = "warning"
	TierExhausted Tier = "exhausted"
)

// DefaultWarnPct is the warning threshold: below this percentage of the
// total remaining, the budget is classified as warning.
const DefaultWarnPct = 30

// Ledger is a snapshot of a budget-bearing parent. It is read-only; the
// engine mutates Allocated inside the same transaction that creates or
// cancels a child commitment.
type Ledger struct {
	Total     money.Cents
	Allocated money.Cents
	// WarnPct overrides DefaultWarnPct when > 0.
	WarnPct int64
}

func (l Ledger) warnPct() int64 {
	if l.WarnPct > 0 {
		return l.WarnPct
	}
	return DefaultWarnPct
}

// Remaining is total minus allocated. It can be negative if the stored
// allocation overshot the total (e.g. after a budget reduction).
func (l Ledger) Remaining() money.Cents {
	return l.Total - l.Allocated
}

// Tier classifies remaining headroom. Boundaries: remaining >= warn% of
// total is healthy, 0 < remaining < warn% is warning, remaining <= 0 is
// exhausted. Comparison is integer-only.
func (l Ledger) Tier() Tier {
	rem := l.Remaining()
	if rem <= 0 {
		return TierExhausted
	}
	if int64(rem)*100 >= int64(l.Total)*l.warnPct() {
		return TierHealthy
	}
	return TierWarning
}

// WouldExceed reports whether committing cost would overdraw the budget.
func (l Ledger) WouldExceed(cost money.Cents) bool {
	return cost > l.Remaining()
}

// Check returns an *ExceededError when cost does not fit, nil otherwise.
// The ledger itself is never mutated.
func (l Ledger) Check(cost money.Cents) error {
	if !l.WouldExceed(cost) {
		return nil
	}
	rem := l.Remaining()
	return &ExceededError{
		Remaining: rem,
		Proposed:  cost,
		OverBy:    cost - rem,
	}
}

// ExceededError carries enough context for the caller to correct the input.
type ExceededError struct {
	Remaining money.Cents
	Proposed  money.Cents
	OverBy    money.Cents
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("budget exceeded: %s remaining, %s proposed (over by %s)",
		e.Remaining, e.Proposed, e.OverBy)
}
