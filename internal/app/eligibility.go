package app

import (
	"time"

	"promo_rotation_bot/internal/domain/participant"
)

const (
	DefaultPremiumInterval  = 180 * time.Second
	DefaultStandardInterval = 390 * time.Second
)

// Intervals holds the minimum time between two broadcasts of one sender, per plan.
type Intervals struct {
	Premium  time.Duration
	Standard time.Duration
}

// DefaultIntervals returns the production broadcast intervals.
func DefaultIntervals() Intervals {
	return Intervals{Premium: DefaultPremiumInterval, Standard: DefaultStandardInterval}
}

// For returns the interval that applies to plan.
func (iv Intervals) For(plan participant.PlanTier) time.Duration {
	if plan.IsPremium() {
		return iv.Premium
	}
	return iv.Standard
}

// Eligibility is the outcome of a due check for one sender.
type Eligibility struct {
	Due      bool
	Interval time.Duration
}

// CheckEligibility reports whether a sender last broadcast at lastBroadcastAt is due at now.
// A zero lastBroadcastAt is treated as the Unix epoch, so a sender that never broadcast is due.
func (iv Intervals) CheckEligibility(now, lastBroadcastAt time.Time, plan participant.PlanTier) Eligibility {
	interval := iv.For(plan)
	if lastBroadcastAt.IsZero() {
		lastBroadcastAt = time.Unix(0, 0)
	}
	return Eligibility{
		Due:      now.Sub(lastBroadcastAt) >= interval,
		Interval: interval,
	}
}

// CheckEligibility applies the default intervals.
func CheckEligibility(now, lastBroadcastAt time.Time, plan participant.PlanTier) Eligibility {
	return DefaultIntervals().CheckEligibility(now, lastBroadcastAt, plan)
}
