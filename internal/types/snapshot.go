package types

import "time"

// ForecastSnapshot is a persisted normalized forecast. One snapshot is saved
// per provider fetch before any alert evaluation runs, so a cycle that fails
// mid-evaluation still leaves the fetched data inspectable.
type ForecastSnapshot struct {
	ID        string       `json:"id" db:"id"`
	Provider  ProviderKind `json:"provider" db:"provider"`
	Latitude  float64      `json:"latitude" db:"latitude"`
	Longitude float64      `json:"longitude" db:"longitude"`
	FetchedAt time.Time    `json:"fetched_at" db:"fetched_at"`
	Data      ForecastData `json:"data" db:"data"`
}
