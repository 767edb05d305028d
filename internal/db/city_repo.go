package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"precipwatch/internal/types"
)

// CityRepository provides data access for the cities table.
type CityRepository struct {
	db DBTX
}

// NewCityRepository creates a new CityRepository backed by the given database
// connection (pool or transaction).
func NewCityRepository(db DBTX) *CityRepository {
	return &CityRepository{db: db}
}

// cityColumns is the standard column set for city queries. Used consistently
// across all query methods to avoid column drift.
const cityColumns = `c.id, c.name, c.latitude, c.longitude, c.created_at`

// scanCity scans a single city row. The columns must match cityColumns order.
func scanCity(row pgx.Row) (*types.City, error) {
	var city types.City
	err := row.Scan(
		&city.ID,
		&city.Name,
		&city.Latitude,
		&city.Longitude,
		&city.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &city, nil
}

// Create inserts a new city record. The caller must set the ID and validate
// coordinates before calling.
func (r *CityRepository) Create(ctx context.Context, city *types.City) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO cities (id, name, latitude, longitude, created_at)
		 VALUES ($1, $2, $3, $4, COALESCE($5, NOW()))`,
		city.ID,
		city.Name,
		city.Latitude,
		city.Longitude,
		nilIfZeroTime(city.CreatedAt),
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create city", err)
	}
	return nil
}

// GetByID retrieves a city by ID. Returns ErrCodeNotFoundCity when absent.
func (r *CityRepository) GetByID(ctx context.Context, id string) (*types.City, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+cityColumns+` FROM cities c WHERE c.id = $1`,
		id,
	)

	city, err := scanCity(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundCity, "city not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve city", err)
	}
	return city, nil
}

// List returns all cities ordered by name.
func (r *CityRepository) List(ctx context.Context) ([]*types.City, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+cityColumns+` FROM cities c ORDER BY c.name`,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list cities", err)
	}
	defer rows.Close()

	var cities []*types.City
	for rows.Next() {
		city, err := scanCity(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan city", err)
		}
		cities = append(cities, city)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to iterate cities", err)
	}
	return cities, nil
}

// Update rewrites the mutable fields of a city.
func (r *CityRepository) Update(ctx context.Context, city *types.City) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE cities SET name = $1, latitude = $2, longitude = $3 WHERE id = $4`,
		city.Name,
		city.Latitude,
		city.Longitude,
		city.ID,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to update city", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundCity, "city not found", nil)
	}
	return nil
}

// Delete removes a city. Alert configs cascade at the schema level.
func (r *CityRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM cities WHERE id = $1`,
		id,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to delete city", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundCity, "city not found", nil)
	}
	return nil
}
