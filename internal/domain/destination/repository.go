package destination

import "context"

// Repository defines operations for persisting and retrieving Destination rows.
type Repository interface {
	ListAll(ctx context.Context) ([]*Destination, error)
	GetChannel(ctx context.Context, communityID int64) (int64, error)
	// Upsert inserts or replaces the channel of d.CommunityID.
	Upsert(ctx context.Context, d *Destination) error
}
