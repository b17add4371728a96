package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"promo_rotation_bot/internal/domain/participant"
	"promo_rotation_bot/internal/infra/cache"
)

func TestAggregatorAppliesDeltasInMemory(t *testing.T) {
	now := time.Date(2026, 7, 3, 9, 0, 0, 0, time.UTC)
	today := participant.Today(now)
	yesterday := participant.Today(now.Add(-24 * time.Hour))

	agg := NewCounterAggregator([]*participant.Participant{
		{CommunityID: 1, Counters: participant.Counters{Received: 5, TotalReceived: 50, Date: yesterday}},
		{CommunityID: 2, Counters: participant.Counters{Sent: 1, Date: today}},
	})

	require.True(t, agg.ApplyReceived(1, today))
	require.True(t, agg.ApplySent(2, 3, today, now))
	require.True(t, agg.ApplyReceived(1, today))
	require.False(t, agg.ApplyReceived(99, today), "unknown communities are ignored")
	require.False(t, agg.ApplySent(2, 0, today, now), "zero deliveries are not a send")

	c1, _ := agg.Counters(1)
	require.Equal(t, int64(2), c1.Received)
	require.Equal(t, int64(52), c1.TotalReceived)
	c2, _ := agg.Counters(2)
	require.Equal(t, int64(4), c2.Sent)
	require.Equal(t, now, c2.LastBroadcastAt)

	require.Equal(t, []int64{1, 2}, agg.Touched())
}

func TestCommitIsolatesFailures(t *testing.T) {
	now := time.Date(2026, 7, 3, 9, 0, 0, 0, time.UTC)
	today := participant.Today(now)
	ps := []*participant.Participant{
		{CommunityID: 1, Enabled: true},
		{CommunityID: 2, Enabled: true},
		{CommunityID: 3, Enabled: true},
	}
	repo := newMemParticipants(ps...)
	repo.failUpdate[2] = errors.New("connection reset")

	clock := &testClock{t: now}
	counters := cache.NewTTL[participant.Counters](time.Minute, clock.Now)
	counters.Set(2, participant.Counters{Received: 100})

	agg := NewCounterAggregator(ps)
	agg.ApplyReceived(1, today)
	agg.ApplyReceived(2, today)
	agg.ApplySent(3, 1, today, now)

	res := agg.Commit(context.Background(), repo, counters, now, 2)

	require.ElementsMatch(t, []int64{1, 3}, res.Written)
	require.Len(t, res.Failed, 1)
	require.Contains(t, res.Failed, int64(2))

	require.Equal(t, 1, repo.updates[1])
	require.Equal(t, 1, repo.updates[3])
	require.Equal(t, 0, repo.updates[2])

	got, ok := counters.Get(1)
	require.True(t, ok)
	require.Equal(t, int64(1), got.Received)
	_, ok = counters.Get(2)
	require.False(t, ok, "failed community must be re-read from the store")
}

func TestCommitWithNothingTouchedWritesNothing(t *testing.T) {
	repo := newMemParticipants(&participant.Participant{CommunityID: 1, Enabled: true})
	agg := NewCounterAggregator([]*participant.Participant{{CommunityID: 1}})
	res := agg.Commit(context.Background(), repo, nil, time.Now(), 0)
	require.Empty(t, res.Written)
	require.Empty(t, res.Failed)
	require.Zero(t, repo.totalWrites())
}
