package db

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"precipwatch/internal/types"
)

// SnapshotRepository provides data access for the forecast_snapshots table.
// The normalized forecast body is stored as JSONB.
type SnapshotRepository struct {
	db DBTX
}

// NewSnapshotRepository creates a new SnapshotRepository.
func NewSnapshotRepository(db DBTX) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Save persists one normalized forecast snapshot.
func (r *SnapshotRepository) Save(ctx context.Context, snap *types.ForecastSnapshot) error {
	data, err := json.Marshal(snap.Data)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "failed to encode forecast snapshot", err)
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO forecast_snapshots (id, provider, latitude, longitude, fetched_at, data)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		snap.ID,
		snap.Provider,
		snap.Latitude,
		snap.Longitude,
		snap.FetchedAt,
		data,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to save forecast snapshot", err)
	}
	return nil
}

// GetLatest returns the most recent snapshot for a coordinate, regardless of
// provider. Returns nil without error when no snapshot exists yet.
func (r *SnapshotRepository) GetLatest(ctx context.Context, lat, lon float64) (*types.ForecastSnapshot, error) {
	row := r.db.QueryRow(ctx,
		`SELECT s.id, s.provider, s.latitude, s.longitude, s.fetched_at, s.data
		 FROM forecast_snapshots s
		 WHERE s.latitude = $1 AND s.longitude = $2
		 ORDER BY s.fetched_at DESC
		 LIMIT 1`,
		lat, lon,
	)

	var snap types.ForecastSnapshot
	var data []byte
	err := row.Scan(
		&snap.ID,
		&snap.Provider,
		&snap.Latitude,
		&snap.Longitude,
		&snap.FetchedAt,
		&data,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve forecast snapshot", err)
	}

	if err := json.Unmarshal(data, &snap.Data); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to decode forecast snapshot", err)
	}
	return &snap, nil
}

// DeleteBefore removes snapshots fetched before the cutoff and reports how
// many rows were removed. Snapshots share the retention window with history.
func (r *SnapshotRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM forecast_snapshots WHERE fetched_at < $1`,
		cutoff,
	)
	if err != nil {
		return 0, types.NewAppError(types.ErrCodeInternalDB, "failed to delete expired forecast snapshots", err)
	}
	return tag.RowsAffected(), nil
}
