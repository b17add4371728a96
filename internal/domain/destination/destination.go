package destination

import "time"

// Destination is the single channel configured to receive promotions for one community.
// Corresponds to the 'destinations' table.
type Destination struct {
	CommunityID int64
	ChannelID   int64
	UpdatedAt   time.Time
}

// Lookup is a cacheable channel lookup result; Configured is false when the community
// has no destination row.
type Lookup struct {
	ChannelID  int64
	Configured bool
}

// ChannelRef returns the channel id or nil when none is configured.
func (l Lookup) ChannelRef() *int64 {
	if !l.Configured {
		return nil
	}
	id := l.ChannelID
	return &id
}
