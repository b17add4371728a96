package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"promo_rotation_bot/internal/domain/destination"
)

var ErrDestinationNotFound = errors.New("destination not configured")

type PostgresDestinationRepository struct {
	db *sql.DB
}

func NewPostgresDestinationRepository(db *sql.DB) *PostgresDestinationRepository {
	return &PostgresDestinationRepository{db: db}
}

func (r *PostgresDestinationRepository) ListAll(ctx context.Context) ([]*destination.Destination, error) {
	query := `SELECT community_id, channel_id, updated_at FROM destinations ORDER BY community_id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error listing destinations: %w", err)
	}
	defer rows.Close()

	destinations := make([]*destination.Destination, 0)
	for rows.Next() {
		d := &destination.Destination{}
		if err := rows.Scan(&d.CommunityID, &d.ChannelID, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("error scanning destination: %w", err)
		}
		destinations = append(destinations, d)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating destinations: %w", err)
	}
	return destinations, nil
}

func (r *PostgresDestinationRepository) GetChannel(ctx context.Context, communityID int64) (int64, error) {
	query := `SELECT channel_id FROM destinations WHERE community_id = $1`
	var channelID int64
	err := r.db.QueryRowContext(ctx, query, communityID).Scan(&channelID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrDestinationNotFound
		}
		return 0, fmt.Errorf("error getting destination channel: %w", err)
	}
	return channelID, nil
}

func (r *PostgresDestinationRepository) Upsert(ctx context.Context, d *destination.Destination) error {
	query := `INSERT INTO destinations (community_id, channel_id)
               VALUES ($1, $2)
               ON CONFLICT (community_id) DO UPDATE SET channel_id = EXCLUDED.channel_id, updated_at = NOW()
               RETURNING updated_at`

	if err := r.db.QueryRowContext(ctx, query, d.CommunityID, d.ChannelID).Scan(&d.UpdatedAt); err != nil {
		return fmt.Errorf("error upserting destination: %w", err)
	}
	return nil
}
