package participant

import (
	"context"
)

// Repository defines the operations the core needs on Participant records.
// Creation and deletion belong to the onboarding workflow and are not exposed here.
type Repository interface {
	GetIdentity(ctx context.Context, communityID int64) (*Identity, error)
	GetCounters(ctx context.Context, communityID int64) (Counters, error)
	ListEnabled(ctx context.Context) ([]*Participant, error)

	// UpdateCounters writes daily counters, counters date and last broadcast time only.
	UpdateCounters(ctx context.Context, communityID int64, c Counters) error
	// ResetDailyCounters zeroes the daily counters and stamps day. A no-op when the
	// stored date already equals day.
	ResetDailyCounters(ctx context.Context, communityID int64, day Day) error
	SetEnabled(ctx context.Context, communityID int64, enabled bool) error
	// EnableWithReset turns promotion on and zeroes the daily counters stamped with day,
	// in one statement.
	EnableWithReset(ctx context.Context, communityID int64, day Day) error
}
