package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	telemetry "solarwatch/internal/telemetry/domain"
)

const defaultReadingsTable = "readings"

// defaultRowCap bounds memory and latency for one evaluation pass.
const defaultRowCap = 1000

// ReadingQuery is a Postgres query implementation for telemetry readings.
type ReadingQuery struct {
	db     *sql.DB
	table  string
	rowCap int
}

// NewReadingQuery constructs a query with default table name and row cap.
func NewReadingQuery(db *sql.DB, opts ...ReadingQueryOption) *ReadingQuery {
	query := &ReadingQuery{db: db, table: defaultReadingsTable, rowCap: defaultRowCap}
	for _, opt := range opts {
		opt(query)
	}
	return query
}

// ReadingQueryOption configures the reading query.
type ReadingQueryOption func(*ReadingQuery)

// WithReadingsTable overrides the default table name.
func WithReadingsTable(table string) ReadingQueryOption {
	return func(q *ReadingQuery) {
		if table != "" {
			q.table = table
		}
	}
}

// WithRowCap overrides the per-pass row cap.
func WithRowCap(rowCap int) ReadingQueryOption {
	return func(q *ReadingQuery) {
		if rowCap > 0 {
			q.rowCap = rowCap
		}
	}
}

// WindowByPlant returns readings for a plant within [from, to), oldest
// first, capped at the configured row limit.
func (q *ReadingQuery) WindowByPlant(ctx context.Context, tenantID, plantID string, from, to time.Time) ([]telemetry.Reading, error) {
	if q == nil || q.db == nil {
		return nil, errors.New("reading query: nil db")
	}
	if tenantID == "" || plantID == "" || from.IsZero() || to.IsZero() {
		return nil, errors.New("reading query: invalid arguments")
	}

	query := fmt.Sprintf(`
SELECT r.plant_id, r.device_id, r.channel_id, r.ts, r.power_w, r.energy_kwh
FROM %s r
JOIN plants p ON p.id = r.plant_id
WHERE p.tenant_id = $1
	AND r.plant_id = $2
	AND r.ts >= $3
	AND r.ts < $4
ORDER BY r.ts ASC
LIMIT $5`, q.table)

	rows, err := q.db.QueryContext(ctx, query, tenantID, plantID, from, to, q.rowCap)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var readings []telemetry.Reading
	for rows.Next() {
		var reading telemetry.Reading
		var deviceID, channelID sql.NullString
		var power, energy sql.NullFloat64
		if err := rows.Scan(
			&reading.PlantID,
			&deviceID,
			&channelID,
			&reading.At,
			&power,
			&energy,
		); err != nil {
			return nil, err
		}
		reading.At = reading.At.UTC()
		if deviceID.Valid {
			reading.DeviceID = deviceID.String
		}
		if channelID.Valid {
			reading.ChannelID = channelID.String
		}
		if power.Valid {
			reading.PowerW = power.Float64
		}
		if energy.Valid {
			reading.EnergyKWh = energy.Float64
		}
		readings = append(readings, reading)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return readings, nil
}
