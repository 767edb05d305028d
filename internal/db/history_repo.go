package db

import (
	"context"
	"time"

	"precipwatch/internal/types"
)

// HistoryRepository provides data access for the append-only alert_history
// table. Rows are inserted by the snooze gate and removed only by retention.
type HistoryRepository struct {
	db DBTX
}

// NewHistoryRepository creates a new HistoryRepository.
func NewHistoryRepository(db DBTX) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Append inserts one surfaced notification record.
func (r *HistoryRepository) Append(ctx context.Context, entry *types.AlertHistory) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO alert_history (id, alert_id, triggered_at, weather_value_mm, threshold_mm, city_name, category)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.ID,
		entry.AlertID,
		entry.TriggeredAt,
		entry.WeatherValueMM,
		entry.ThresholdMM,
		entry.CityName,
		entry.Category,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to append alert history", err)
	}
	return nil
}

// List returns history entries newest first, capped at limit.
func (r *HistoryRepository) List(ctx context.Context, limit int) ([]*types.AlertHistory, error) {
	rows, err := r.db.Query(ctx,
		`SELECT h.id, h.alert_id, h.triggered_at, h.weather_value_mm, h.threshold_mm, h.city_name, h.category
		 FROM alert_history h
		 ORDER BY h.triggered_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list alert history", err)
	}
	defer rows.Close()

	var entries []*types.AlertHistory
	for rows.Next() {
		var e types.AlertHistory
		err := rows.Scan(
			&e.ID,
			&e.AlertID,
			&e.TriggeredAt,
			&e.WeatherValueMM,
			&e.ThresholdMM,
			&e.CityName,
			&e.Category,
		)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan alert history", err)
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to iterate alert history", err)
	}
	return entries, nil
}

// ListBefore returns entries older than the cutoff, oldest first. Retention
// uses this to export rows before deleting them.
func (r *HistoryRepository) ListBefore(ctx context.Context, cutoff time.Time) ([]*types.AlertHistory, error) {
	rows, err := r.db.Query(ctx,
		`SELECT h.id, h.alert_id, h.triggered_at, h.weather_value_mm, h.threshold_mm, h.city_name, h.category
		 FROM alert_history h
		 WHERE h.triggered_at < $1
		 ORDER BY h.triggered_at`,
		cutoff,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list expired alert history", err)
	}
	defer rows.Close()

	var entries []*types.AlertHistory
	for rows.Next() {
		var e types.AlertHistory
		err := rows.Scan(
			&e.ID,
			&e.AlertID,
			&e.TriggeredAt,
			&e.WeatherValueMM,
			&e.ThresholdMM,
			&e.CityName,
			&e.Category,
		)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan alert history", err)
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to iterate alert history", err)
	}
	return entries, nil
}

// DeleteBefore removes entries older than the cutoff and reports how many
// rows were removed.
func (r *HistoryRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM alert_history WHERE triggered_at < $1`,
		cutoff,
	)
	if err != nil {
		return 0, types.NewAppError(types.ErrCodeInternalDB, "failed to delete expired alert history", err)
	}
	return tag.RowsAffected(), nil
}
