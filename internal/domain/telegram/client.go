package telegram

import (
	"context"

	"promo_rotation_bot/internal/domain/participant"
)

// Channel is a resolved chat the bot may post into.
type Channel struct {
	ID    int64
	Title string
	Type  string
}

// Client defines the messaging operations the distribution core depends on.
type Client interface {
	// ResolveChannel returns nil without error when the chat does not exist or is not visible.
	ResolveChannel(ctx context.Context, channelID int64) (*Channel, error)
	// CanPost reports whether the bot can view the channel and send messages to it.
	CanPost(ctx context.Context, ch *Channel) (bool, error)
	SendPromotion(ctx context.Context, ch *Channel, communityID int64, content participant.Content) error
}
