package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"promo_rotation_bot/internal/domain/destination"
	"promo_rotation_bot/internal/domain/participant"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) Now() time.Time          { return f.t }
func (f *fakeClock) Advance(d time.Duration) { f.t = f.t.Add(d) }

func TestTTLBoundary(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	c := NewTTL[int](5*time.Minute, clock.Now)

	c.Set(1, 42)

	clock.Advance(299999 * time.Millisecond)
	v, ok := c.Get(1)
	require.True(t, ok)
	require.Equal(t, 42, v)

	clock.Advance(2 * time.Millisecond) // t0+300001ms
	_, ok = c.Get(1)
	require.False(t, ok)
}

func TestTTLExactlyAtTTLIsMiss(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	c := NewTTL[string](time.Minute, clock.Now)
	c.Set(7, "x")
	clock.Advance(time.Minute)
	_, ok := c.Get(7)
	require.False(t, ok)
}

func TestSetAtAndInvalidate(t *testing.T) {
	clock := &fakeClock{t: time.Unix(5000, 0)}
	c := NewTTL[int](time.Minute, clock.Now)

	c.SetAt(1, 10, clock.Now().Add(-2*time.Minute))
	_, ok := c.Get(1)
	require.False(t, ok, "entry stamped in the past beyond TTL must be stale")

	c.Set(2, 20)
	c.Invalidate(2)
	_, ok = c.Get(2)
	require.False(t, ok)
	require.Equal(t, 1, c.Len())
}

func TestNewTTLDefaults(t *testing.T) {
	c := NewTTL[int](0, nil)
	require.Equal(t, DefaultTTL, c.ttl)
	c.Set(3, 3)
	v, ok := c.Get(3)
	require.True(t, ok)
	require.Equal(t, 3, v)
}

func TestLayerKeepsIndependentMaps(t *testing.T) {
	l := NewLayer(time.Minute, nil)
	l.Counters.Set(9, participant.Counters{Received: 2})
	l.Channels.Set(9, destination.Lookup{ChannelID: -100, Configured: true})

	l.Channels.Invalidate(9)
	got, ok := l.Counters.Get(9)
	require.True(t, ok)
	require.Equal(t, int64(2), got.Received)
	_, ok = l.Channels.Get(9)
	require.False(t, ok)
}
