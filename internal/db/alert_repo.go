package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"precipwatch/internal/types"
)

// AlertRepository provides data access for the alert_configs table.
type AlertRepository struct {
	db DBTX
}

// NewAlertRepository creates a new AlertRepository backed by the given
// database connection (pool or transaction).
func NewAlertRepository(db DBTX) *AlertRepository {
	return &AlertRepository{db: db}
}

// alertColumns is the standard column set for alert queries, joined with the
// owning city so the check cycle loads everything in one pass.
const alertColumns = `a.id, a.city_id, a.category, a.threshold_mm, a.snoozed_until,
	a.created_at, a.updated_at,
	c.id, c.name, c.latitude, c.longitude, c.created_at`

// scanAlert scans one joined alert+city row. The columns must match the
// order defined in alertColumns.
func scanAlert(row pgx.Row) (*types.AlertConfig, error) {
	var alert types.AlertConfig
	var city types.City

	err := row.Scan(
		&alert.ID,
		&alert.CityID,
		&alert.Category,
		&alert.ThresholdMM,
		&alert.SnoozedUntil,
		&alert.CreatedAt,
		&alert.UpdatedAt,
		&city.ID,
		&city.Name,
		&city.Latitude,
		&city.Longitude,
		&city.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	alert.City = &city
	return &alert, nil
}

// Create inserts a new alert config. The caller must set the ID and validate
// the config before calling.
func (r *AlertRepository) Create(ctx context.Context, alert *types.AlertConfig) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO alert_configs (id, city_id, category, threshold_mm, snoozed_until, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, COALESCE($6, NOW()), COALESCE($7, NOW()))`,
		alert.ID,
		alert.CityID,
		alert.Category,
		alert.ThresholdMM,
		alert.SnoozedUntil,
		nilIfZeroTime(alert.CreatedAt),
		nilIfZeroTime(alert.UpdatedAt),
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create alert config", err)
	}
	return nil
}

// GetByID retrieves one alert config with its city hydrated.
func (r *AlertRepository) GetByID(ctx context.Context, id string) (*types.AlertConfig, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+alertColumns+`
		 FROM alert_configs a
		 JOIN cities c ON c.id = a.city_id
		 WHERE a.id = $1`,
		id,
	)

	alert, err := scanAlert(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundAlert, "alert config not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve alert config", err)
	}
	return alert, nil
}

// List returns every alert config with its city hydrated, ordered by
// creation time. This is the check cycle's load query.
func (r *AlertRepository) List(ctx context.Context) ([]*types.AlertConfig, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+alertColumns+`
		 FROM alert_configs a
		 JOIN cities c ON c.id = a.city_id
		 ORDER BY a.created_at`,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list alert configs", err)
	}
	defer rows.Close()

	var alerts []*types.AlertConfig
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan alert config", err)
		}
		alerts = append(alerts, alert)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to iterate alert configs", err)
	}
	return alerts, nil
}

// ListByCity returns the alert configs attached to one city.
func (r *AlertRepository) ListByCity(ctx context.Context, cityID string) ([]*types.AlertConfig, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+alertColumns+`
		 FROM alert_configs a
		 JOIN cities c ON c.id = a.city_id
		 WHERE a.city_id = $1
		 ORDER BY a.created_at`,
		cityID,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list alert configs", err)
	}
	defer rows.Close()

	var alerts []*types.AlertConfig
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan alert config", err)
		}
		alerts = append(alerts, alert)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to iterate alert configs", err)
	}
	return alerts, nil
}

// Update rewrites the mutable fields (category, threshold) of an alert.
func (r *AlertRepository) Update(ctx context.Context, alert *types.AlertConfig) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE alert_configs
		 SET category = $1, threshold_mm = $2, updated_at = NOW()
		 WHERE id = $3`,
		alert.Category,
		alert.ThresholdMM,
		alert.ID,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to update alert config", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundAlert, "alert config not found", nil)
	}
	return nil
}

// UpdateSnoozedUntil sets or clears the snooze instant for an alert.
// A nil until clears the snooze.
func (r *AlertRepository) UpdateSnoozedUntil(ctx context.Context, id string, until *time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE alert_configs SET snoozed_until = $1, updated_at = NOW() WHERE id = $2`,
		until,
		id,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to update alert snooze", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundAlert, "alert config not found", nil)
	}
	return nil
}

// Delete removes an alert config.
func (r *AlertRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM alert_configs WHERE id = $1`,
		id,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to delete alert config", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundAlert, "alert config not found", nil)
	}
	return nil
}
