package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	masterdata "solarwatch/internal/masterdata/domain"
)

const defaultChannelsTable = "channels"

// ChannelRepository is a Postgres implementation for channels.
type ChannelRepository struct {
	db    DBTX
	table string
}

// NewChannelRepository constructs a repository.
func NewChannelRepository(db DBTX, opts ...ChannelOption) *ChannelRepository {
	repo := &ChannelRepository{db: db, table: defaultChannelsTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// ChannelOption configures the repository.
type ChannelOption func(*ChannelRepository)

// WithChannelTable overrides the default table name.
func WithChannelTable(table string) ChannelOption {
	return func(repo *ChannelRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// ListActiveByPlant returns active channels of a plant.
func (r *ChannelRepository) ListActiveByPlant(ctx context.Context, plantID string) ([]masterdata.Channel, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("channel repo: nil db")
	}
	if plantID == "" {
		return nil, errors.New("channel repo: empty plant id")
	}

	query := fmt.Sprintf(`
SELECT id, plant_id, device_id, name, channel_type, installed_capacity_wp, is_active
FROM %s
WHERE plant_id = $1 AND is_active
ORDER BY id ASC`, r.table)

	rows, err := r.db.QueryContext(ctx, query, plantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var channels []masterdata.Channel
	for rows.Next() {
		var channel masterdata.Channel
		var deviceID sql.NullString
		var capacity sql.NullFloat64
		if err := rows.Scan(
			&channel.ID,
			&channel.PlantID,
			&deviceID,
			&channel.Name,
			&channel.ChannelType,
			&capacity,
			&channel.Active,
		); err != nil {
			return nil, err
		}
		if deviceID.Valid {
			channel.DeviceID = deviceID.String
		}
		if capacity.Valid {
			channel.CapacityWp = capacity.Float64
		}
		channels = append(channels, channel)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return channels, nil
}
