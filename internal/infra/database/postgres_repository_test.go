package database

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"promo_rotation_bot/internal/domain/destination"
	"promo_rotation_bot/internal/domain/participant"
)

// openTestDB connects to TEST_DATABASE_URL, migrates it and empties both tables.
// Tests are skipped when the variable is unset.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	db, err := NewPostgresConnection(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	version, err := Migrate(ctx, db)
	require.NoError(t, err)
	require.Equal(t, uint(2), version)

	_, err = db.ExecContext(ctx, `TRUNCATE participants, destinations`)
	require.NoError(t, err)
	return db
}

func insertParticipant(t *testing.T, db *sql.DB, id int64, name string, enabled bool, plan string) {
	t.Helper()
	_, err := db.Exec(`INSERT INTO participants (community_id, name, enabled, plan_type, status, link_valid, title, invite_url)
	                   VALUES ($1, $2, $3, $4, 'approved', TRUE, $2, 'https://t.me/+x')`, id, name, enabled, plan)
	require.NoError(t, err)
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	version, err := Migrate(context.Background(), db)
	require.NoError(t, err)
	require.Equal(t, uint(2), version)
}

func TestParticipantRepository(t *testing.T) {
	db := openTestDB(t)
	repo := NewPostgresParticipantRepository(db)
	ctx := context.Background()

	insertParticipant(t, db, -1001, "Gophers", true, "pro_monthly")
	insertParticipant(t, db, -1002, "Rustaceans", false, "free")

	_, err := repo.GetIdentity(ctx, -9)
	require.ErrorIs(t, err, ErrParticipantNotFound)
	_, err = repo.GetCounters(ctx, -9)
	require.ErrorIs(t, err, ErrParticipantNotFound)

	id, err := repo.GetIdentity(ctx, -1001)
	require.NoError(t, err)
	require.Equal(t, "Gophers", id.Name)
	require.True(t, id.Enabled)

	fresh, err := repo.GetCounters(ctx, -1001)
	require.NoError(t, err)
	require.True(t, fresh.Date.IsZero())
	require.True(t, fresh.LastBroadcastAt.IsZero())

	enabled, err := repo.ListEnabled(ctx)
	require.NoError(t, err)
	require.Len(t, enabled, 1)
	require.Equal(t, participant.PlanTier("pro_monthly"), enabled[0].Plan)
	require.True(t, enabled[0].CanBroadcast())

	day := participant.Day{Year: 2026, Month: time.September, Day: 2}
	at := time.Date(2026, 9, 2, 23, 30, 0, 0, time.UTC)
	require.NoError(t, repo.UpdateCounters(ctx, -1001, participant.Counters{
		Received: 2, Sent: 3, TotalReceived: 9, Date: day, LastBroadcastAt: at,
	}))
	got, err := repo.GetCounters(ctx, -1001)
	require.NoError(t, err)
	require.Equal(t, int64(2), got.Received)
	require.Equal(t, int64(3), got.Sent)
	require.Equal(t, int64(9), got.TotalReceived)
	require.Equal(t, day, got.Date)
	require.True(t, at.Equal(got.LastBroadcastAt))

	require.ErrorIs(t, repo.UpdateCounters(ctx, -9, got), ErrParticipantNotFound)

	next := participant.Day{Year: 2026, Month: time.September, Day: 3}
	require.NoError(t, repo.ResetDailyCounters(ctx, -1001, next))
	got, err = repo.GetCounters(ctx, -1001)
	require.NoError(t, err)
	require.Zero(t, got.Received)
	require.Zero(t, got.Sent)
	require.Equal(t, int64(9), got.TotalReceived)
	require.Equal(t, next, got.Date)

	// A repeated reset on the same day leaves later increments alone.
	got.Received = 1
	require.NoError(t, repo.UpdateCounters(ctx, -1001, got))
	require.NoError(t, repo.ResetDailyCounters(ctx, -1001, next))
	got, err = repo.GetCounters(ctx, -1001)
	require.NoError(t, err)
	require.Equal(t, int64(1), got.Received)

	require.NoError(t, repo.SetEnabled(ctx, -1002, true))
	enabled, err = repo.ListEnabled(ctx)
	require.NoError(t, err)
	require.Len(t, enabled, 2)
	require.ErrorIs(t, repo.SetEnabled(ctx, -9, true), ErrParticipantNotFound)

	require.NoError(t, repo.SetEnabled(ctx, -1002, false))
	later := participant.Day{Year: 2026, Month: time.September, Day: 4}
	require.NoError(t, repo.UpdateCounters(ctx, -1002, participant.Counters{Received: 4, Sent: 4, TotalReceived: 6, Date: next}))
	require.NoError(t, repo.EnableWithReset(ctx, -1002, later))
	id, err = repo.GetIdentity(ctx, -1002)
	require.NoError(t, err)
	require.True(t, id.Enabled)
	got, err = repo.GetCounters(ctx, -1002)
	require.NoError(t, err)
	require.Zero(t, got.Received)
	require.Zero(t, got.Sent)
	require.Equal(t, int64(6), got.TotalReceived)
	require.Equal(t, later, got.Date)
	require.ErrorIs(t, repo.EnableWithReset(ctx, -9, later), ErrParticipantNotFound)
}

func TestDestinationRepository(t *testing.T) {
	db := openTestDB(t)
	repo := NewPostgresDestinationRepository(db)
	ctx := context.Background()

	_, err := repo.GetChannel(ctx, -1001)
	require.ErrorIs(t, err, ErrDestinationNotFound)

	d := &destination.Destination{CommunityID: -1001, ChannelID: -100500}
	require.NoError(t, repo.Upsert(ctx, d))
	require.False(t, d.UpdatedAt.IsZero())

	// Upsert replaces the single row of a community.
	require.NoError(t, repo.Upsert(ctx, &destination.Destination{CommunityID: -1001, ChannelID: -100600}))
	require.NoError(t, repo.Upsert(ctx, &destination.Destination{CommunityID: -1002, ChannelID: -100700}))

	ch, err := repo.GetChannel(ctx, -1001)
	require.NoError(t, err)
	require.Equal(t, int64(-100600), ch)

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, int64(-1002), all[0].CommunityID)
	require.Equal(t, int64(-1001), all[1].CommunityID)
}
