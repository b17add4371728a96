package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"promo_rotation_bot/internal/domain/destination"
	"promo_rotation_bot/internal/domain/participant"
	domainTelegram "promo_rotation_bot/internal/domain/telegram"
	"promo_rotation_bot/internal/infra/cache"
	idb "promo_rotation_bot/internal/infra/database"
)

// PanelView is the status of one community as shown on its control panel.
type PanelView struct {
	CommunityID          int64
	DisplayName          string
	Enabled              bool
	DestinationChannelID *int64
	Received             int64
	Sent                 int64
	TotalReceived        int64
}

// PanelService assembles panel views and applies the panel's actions.
// Identity and enablement are always read from the store; counters and the
// destination channel go through the cache.
type PanelService struct {
	participants participant.Repository
	destinations destination.Repository
	client       domainTelegram.Client
	cache        *cache.Layer
	logger       *logrus.Entry
	now          func() time.Time
}

// NewPanelService builds the service; a nil cacheLayer gets a private one with the default TTL.
func NewPanelService(
	pr participant.Repository,
	dr destination.Repository,
	client domainTelegram.Client,
	cacheLayer *cache.Layer,
	logger *logrus.Entry,
	now func() time.Time,
) *PanelService {
	if now == nil {
		now = time.Now
	}
	if cacheLayer == nil {
		cacheLayer = cache.NewLayer(cache.DefaultTTL, now)
	}
	return &PanelService{
		participants: pr,
		destinations: dr,
		client:       client,
		cache:        cacheLayer,
		logger:       logger,
		now:          now,
	}
}

// RenderPanel returns the current view of communityID, resetting stale daily counters
// on the way. It fails with idb.ErrParticipantNotFound for unknown communities.
func (s *PanelService) RenderPanel(ctx context.Context, communityID int64) (*PanelView, error) {
	identity, err := s.participants.GetIdentity(ctx, communityID)
	if err != nil {
		return nil, fmt.Errorf("failed to get participant %d: %w", communityID, err)
	}

	counters, err := s.counters(ctx, communityID)
	if err != nil {
		return nil, err
	}
	lookup, err := s.channel(ctx, communityID)
	if err != nil {
		return nil, err
	}

	today := participant.Today(s.now())
	if participant.NeedsReset(counters.Date, today) {
		if err := s.participants.ResetDailyCounters(ctx, communityID, today); err != nil {
			return nil, fmt.Errorf("failed to reset daily counters for %d: %w", communityID, err)
		}
		counters = counters.ResetFor(today)
		s.cache.Counters.Set(communityID, counters)
		s.logger.WithFields(logrus.Fields{
			"community_id": communityID,
			"day":          today.String(),
		}).Debug("Daily counters reset")
	}

	return &PanelView{
		CommunityID:          communityID,
		DisplayName:          identity.Name,
		Enabled:              identity.Enabled,
		DestinationChannelID: lookup.ChannelRef(),
		Received:             counters.Received,
		Sent:                 counters.Sent,
		TotalReceived:        counters.TotalReceived,
	}, nil
}

// Refresh drops the cached values of communityID and renders from the store.
func (s *PanelService) Refresh(ctx context.Context, communityID int64) (*PanelView, error) {
	s.cache.Counters.Invalidate(communityID)
	s.cache.Channels.Invalidate(communityID)
	return s.RenderPanel(ctx, communityID)
}

// Toggle flips the enabled flag. Enabling requires a configured destination channel
// and starts the day with zeroed counters.
func (s *PanelService) Toggle(ctx context.Context, communityID int64) (*PanelView, error) {
	identity, err := s.participants.GetIdentity(ctx, communityID)
	if err != nil {
		return nil, fmt.Errorf("failed to get participant %d: %w", communityID, err)
	}
	enable := !identity.Enabled

	if enable {
		lookup, err := s.channel(ctx, communityID)
		if err != nil {
			return nil, err
		}
		if !lookup.Configured {
			return nil, ErrChannelNotConfigured
		}
		if err := s.participants.EnableWithReset(ctx, communityID, participant.Today(s.now())); err != nil {
			return nil, fmt.Errorf("failed to enable %d: %w", communityID, err)
		}
		s.cache.Counters.Invalidate(communityID)
	} else if err := s.participants.SetEnabled(ctx, communityID, false); err != nil {
		return nil, fmt.Errorf("failed to disable %d: %w", communityID, err)
	}
	s.logger.WithFields(logrus.Fields{
		"community_id": communityID,
		"enabled":      enable,
	}).Info("Promotion toggled")

	return s.RenderPanel(ctx, communityID)
}

// ConfigureChannel sets channelID as the community's promotion destination after
// checking the bot can post there.
func (s *PanelService) ConfigureChannel(ctx context.Context, communityID, channelID int64) (*PanelView, error) {
	if _, err := s.participants.GetIdentity(ctx, communityID); err != nil {
		return nil, fmt.Errorf("failed to get participant %d: %w", communityID, err)
	}

	ch, err := s.client.ResolveChannel(ctx, channelID)
	if err != nil || ch == nil {
		return nil, ErrChannelNotPostable
	}
	allowed, err := s.client.CanPost(ctx, ch)
	if err != nil || !allowed {
		return nil, ErrChannelNotPostable
	}

	d := &destination.Destination{CommunityID: communityID, ChannelID: channelID}
	if err := s.destinations.Upsert(ctx, d); err != nil {
		return nil, fmt.Errorf("failed to save destination for %d: %w", communityID, err)
	}
	s.cache.Channels.Set(communityID, destination.Lookup{ChannelID: channelID, Configured: true})
	s.logger.WithFields(logrus.Fields{
		"community_id": communityID,
		"channel_id":   channelID,
	}).Info("Promotion channel configured")

	return s.RenderPanel(ctx, communityID)
}

func (s *PanelService) counters(ctx context.Context, communityID int64) (participant.Counters, error) {
	if c, ok := s.cache.Counters.Get(communityID); ok {
		return c, nil
	}
	c, err := s.participants.GetCounters(ctx, communityID)
	if err != nil {
		return participant.Counters{}, fmt.Errorf("failed to get counters for %d: %w", communityID, err)
	}
	s.cache.Counters.Set(communityID, c)
	return c, nil
}

func (s *PanelService) channel(ctx context.Context, communityID int64) (destination.Lookup, error) {
	if l, ok := s.cache.Channels.Get(communityID); ok {
		return l, nil
	}
	var lookup destination.Lookup
	channelID, err := s.destinations.GetChannel(ctx, communityID)
	switch {
	case err == nil:
		lookup = destination.Lookup{ChannelID: channelID, Configured: true}
	case errors.Is(err, idb.ErrDestinationNotFound):
		// cached as "not configured" too
	default:
		return destination.Lookup{}, fmt.Errorf("failed to get destination for %d: %w", communityID, err)
	}
	s.cache.Channels.Set(communityID, lookup)
	return lookup, nil
}
