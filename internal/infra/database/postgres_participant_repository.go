package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"promo_rotation_bot/internal/domain/participant"
)

// Custom errors
var ErrParticipantNotFound = errors.New("participant not found")

type PostgresParticipantRepository struct {
	db *sql.DB
}

func NewPostgresParticipantRepository(db *sql.DB) *PostgresParticipantRepository {
	return &PostgresParticipantRepository{db: db}
}

func (r *PostgresParticipantRepository) GetIdentity(ctx context.Context, communityID int64) (*participant.Identity, error) {
	query := `SELECT community_id, name, enabled FROM participants WHERE community_id = $1`
	id := &participant.Identity{}
	err := r.db.QueryRowContext(ctx, query, communityID).Scan(&id.CommunityID, &id.Name, &id.Enabled)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrParticipantNotFound
		}
		return nil, fmt.Errorf("error getting participant identity: %w", err)
	}
	return id, nil
}

func (r *PostgresParticipantRepository) GetCounters(ctx context.Context, communityID int64) (participant.Counters, error) {
	query := `SELECT received_count, sent_count, total_received, counters_date, last_broadcast_at
               FROM participants WHERE community_id = $1`
	var (
		c             participant.Counters
		countersDate  sql.NullTime
		lastBroadcast sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, communityID).Scan(&c.Received, &c.Sent, &c.TotalReceived, &countersDate, &lastBroadcast)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return participant.Counters{}, ErrParticipantNotFound
		}
		return participant.Counters{}, fmt.Errorf("error getting participant counters: %w", err)
	}
	c.Date = dayFromNull(countersDate)
	c.LastBroadcastAt = timeFromNull(lastBroadcast)
	return c, nil
}

func (r *PostgresParticipantRepository) ListEnabled(ctx context.Context) ([]*participant.Participant, error) {
	query := `SELECT community_id, name, enabled, plan_type, status, link_valid,
                     received_count, sent_count, total_received, counters_date, last_broadcast_at,
                     title, short_description, logo_url, banner_url, category, tags, invite_url,
                     created_at, updated_at
               FROM participants WHERE enabled = TRUE ORDER BY community_id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error listing enabled participants: %w", err)
	}
	defer rows.Close()

	participants := make([]*participant.Participant, 0)
	for rows.Next() {
		var (
			p             participant.Participant
			countersDate  sql.NullTime
			lastBroadcast sql.NullTime
		)
		if err := rows.Scan(
			&p.CommunityID, &p.Name, &p.Enabled, &p.Plan, &p.Status, &p.LinkValid,
			&p.Counters.Received, &p.Counters.Sent, &p.Counters.TotalReceived, &countersDate, &lastBroadcast,
			&p.Content.Title, &p.Content.Description, &p.Content.LogoURL, &p.Content.BannerURL,
			&p.Content.Category, &p.Content.Tags, &p.Content.InviteURL,
			&p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("error scanning enabled participant: %w", err)
		}
		p.Counters.Date = dayFromNull(countersDate)
		p.Counters.LastBroadcastAt = timeFromNull(lastBroadcast)
		participants = append(participants, &p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating enabled participants: %w", err)
	}
	return participants, nil
}

func (r *PostgresParticipantRepository) UpdateCounters(ctx context.Context, communityID int64, c participant.Counters) error {
	query := `UPDATE participants
               SET received_count = $1, sent_count = $2, total_received = $3,
                   counters_date = $4::date, last_broadcast_at = $5, updated_at = NOW()
               WHERE community_id = $6`

	res, err := r.db.ExecContext(ctx, query, c.Received, c.Sent, c.TotalReceived, nullDay(c.Date), nullTime(c.LastBroadcastAt), communityID)
	if err != nil {
		return fmt.Errorf("error updating participant counters: %w", err)
	}
	return requireOneRow(res)
}

func (r *PostgresParticipantRepository) ResetDailyCounters(ctx context.Context, communityID int64, day participant.Day) error {
	// The date guard makes a repeated reset on the same day a no-op.
	query := `UPDATE participants
               SET received_count = 0, sent_count = 0, counters_date = $1::date, updated_at = NOW()
               WHERE community_id = $2 AND counters_date IS DISTINCT FROM $1::date`

	if _, err := r.db.ExecContext(ctx, query, day.String(), communityID); err != nil {
		return fmt.Errorf("error resetting daily counters: %w", err)
	}
	return nil
}

func (r *PostgresParticipantRepository) SetEnabled(ctx context.Context, communityID int64, enabled bool) error {
	query := `UPDATE participants SET enabled = $1, updated_at = NOW() WHERE community_id = $2`

	res, err := r.db.ExecContext(ctx, query, enabled, communityID)
	if err != nil {
		return fmt.Errorf("error updating participant enabled flag: %w", err)
	}
	return requireOneRow(res)
}

func (r *PostgresParticipantRepository) EnableWithReset(ctx context.Context, communityID int64, day participant.Day) error {
	query := `UPDATE participants
               SET enabled = TRUE, received_count = 0, sent_count = 0,
                   counters_date = $1::date, updated_at = NOW()
               WHERE community_id = $2`

	res, err := r.db.ExecContext(ctx, query, day.String(), communityID)
	if err != nil {
		return fmt.Errorf("error enabling participant: %w", err)
	}
	return requireOneRow(res)
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading affected rows: %w", err)
	}
	if n == 0 {
		return ErrParticipantNotFound
	}
	return nil
}

func dayFromNull(t sql.NullTime) participant.Day {
	if !t.Valid {
		return participant.Day{}
	}
	return participant.DayFromTime(t.Time)
}

func timeFromNull(t sql.NullTime) time.Time {
	if !t.Valid {
		return time.Time{}
	}
	return t.Time
}

// nullDay encodes d as a plain date literal so the session time zone never shifts it.
func nullDay(d participant.Day) sql.NullString {
	if d.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}
