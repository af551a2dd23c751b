package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	masterdata "solarwatch/internal/masterdata/domain"
)

const defaultPlantsTable = "plants"

// PlantRepository is a Postgres implementation for plants.
type PlantRepository struct {
	db    DBTX
	table string
}

// NewPlantRepository constructs a repository.
func NewPlantRepository(db DBTX, opts ...PlantOption) *PlantRepository {
	repo := &PlantRepository{db: db, table: defaultPlantsTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// PlantOption configures the repository.
type PlantOption func(*PlantRepository)

// WithPlantTable overrides the default table name.
func WithPlantTable(table string) PlantOption {
	return func(repo *PlantRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// Get loads a plant by id.
func (r *PlantRepository) Get(ctx context.Context, id string) (*masterdata.Plant, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("plant repo: nil db")
	}
	if id == "" {
		return nil, errors.New("plant repo: empty id")
	}

	query := fmt.Sprintf(`
SELECT id, tenant_id, name, installed_capacity_kw, last_contact_at, created_at, updated_at
FROM %s
WHERE id = $1
LIMIT 1`, r.table)

	plant, err := scanPlant(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}
	return plant, nil
}

// ListByTenant returns all plants owned by a tenant.
func (r *PlantRepository) ListByTenant(ctx context.Context, tenantID string) ([]masterdata.Plant, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("plant repo: nil db")
	}
	if tenantID == "" {
		return nil, errors.New("plant repo: empty tenant id")
	}

	query := fmt.Sprintf(`
SELECT id, tenant_id, name, installed_capacity_kw, last_contact_at, created_at, updated_at
FROM %s
WHERE tenant_id = $1
ORDER BY created_at ASC, id ASC`, r.table)

	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plants []masterdata.Plant
	for rows.Next() {
		plant, err := scanPlant(rows)
		if err != nil {
			return nil, err
		}
		plants = append(plants, *plant)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return plants, nil
}

type plantScanner interface {
	Scan(dest ...any) error
}

func scanPlant(row plantScanner) (*masterdata.Plant, error) {
	var plant masterdata.Plant
	var capacity sql.NullFloat64
	var lastContact sql.NullTime
	var createdAt, updatedAt sql.NullTime
	if err := row.Scan(
		&plant.ID,
		&plant.TenantID,
		&plant.Name,
		&capacity,
		&lastContact,
		&createdAt,
		&updatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if capacity.Valid {
		plant.CapacityKW = capacity.Float64
	}
	if lastContact.Valid {
		plant.LastContactAt = lastContact.Time.UTC()
	}
	if createdAt.Valid {
		plant.CreatedAt = createdAt.Time.UTC()
	}
	if updatedAt.Valid {
		plant.UpdatedAt = updatedAt.Time.UTC()
	}
	return &plant, nil
}
