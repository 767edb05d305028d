// Package checker runs the periodic check cycle: load every alert, fetch and
// normalize the forecast for each distinct coordinate once, evaluate
// thresholds, and pass triggers through the snooze gate to the notifier.
package checker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"precipwatch/internal/alerts"
	"precipwatch/internal/notify"
	"precipwatch/internal/types"
)

// ForecastFetcher retrieves the normalized forecast for a coordinate.
// Satisfied by providers.Fetcher.
type ForecastFetcher interface {
	Fetch(ctx context.Context, lat, lon float64) (*types.ForecastData, error)
	ActiveKind() types.ProviderKind
}

// AlertLister loads the full alert set with cities hydrated. Satisfied by
// db.AlertRepository.
type AlertLister interface {
	List(ctx context.Context) ([]*types.AlertConfig, error)
}

// SnapshotSaver persists normalized forecasts. Satisfied by
// db.SnapshotRepository.
type SnapshotSaver interface {
	Save(ctx context.Context, snap *types.ForecastSnapshot) error
}

// Stats summarizes one completed cycle for logging and tests.
type Stats struct {
	Alerts     int
	Fetches    int
	Triggered  int
	Notified   int
	Suppressed int
	Failed     int
	Duration   time.Duration
}

// Cycle wires the per-run pipeline. One Cycle value is reused across runs;
// all per-run state lives in the Run call.
type Cycle struct {
	alerts      AlertLister
	fetcher     ForecastFetcher
	gate        *alerts.Gate
	notifier    notify.Notifier
	metrics     notify.Metrics
	snapshots   SnapshotSaver
	clock       types.Clock
	logger      types.Logger
	concurrency int
}

// NewCycle creates a Cycle. Concurrency bounds the number of alerts processed
// in parallel; values below 1 are clamped to 1.
func NewCycle(
	lister AlertLister,
	fetcher ForecastFetcher,
	gate *alerts.Gate,
	notifier notify.Notifier,
	metrics notify.Metrics,
	snapshots SnapshotSaver,
	clock types.Clock,
	logger types.Logger,
	concurrency int,
) *Cycle {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Cycle{
		alerts:      lister,
		fetcher:     fetcher,
		gate:        gate,
		notifier:    notifier,
		metrics:     metrics,
		snapshots:   snapshots,
		clock:       clock,
		logger:      logger,
		concurrency: concurrency,
	}
}

// fetchResult is one coalesced forecast fetch outcome, shared by every alert
// on the same coordinate within a single run.
type fetchResult struct {
	data *types.ForecastData
	err  error
}

// coordKey identifies one distinct fetch within a cycle. Coordinates are
// rounded to 4 decimal places (~11m) so float noise from different sources
// still coalesces.
func coordKey(provider types.ProviderKind, lat, lon float64) string {
	return fmt.Sprintf("%s:%.4f:%.4f", provider, lat, lon)
}

// Run executes one full check cycle. Failures are isolated per alert: one
// provider or delivery error never aborts the remaining alerts. The forecast
// cache lives only for this run; the next cycle always refetches.
func (c *Cycle) Run(ctx context.Context) Stats {
	start := c.clock.Now()
	provider := c.fetcher.ActiveKind()

	log := c.logger.With("provider", string(provider))
	log.Info("check cycle started")

	configs, err := c.alerts.List(ctx)
	if err != nil {
		log.Error("check cycle aborted: failed to load alerts", "error", err)
		return Stats{Duration: c.clock.Now().Sub(start)}
	}

	var (
		mu      sync.Mutex
		flight  singleflight.Group
		cache   = make(map[string]fetchResult)
		stats   = Stats{Alerts: len(configs)}
		fetches int
	)

	fetchOnce := func(lat, lon float64) fetchResult {
		key := coordKey(provider, lat, lon)

		mu.Lock()
		if res, ok := cache[key]; ok {
			mu.Unlock()
			return res
		}
		mu.Unlock()

		v, err, _ := flight.Do(key, func() (any, error) {
			data, fetchErr := c.fetcher.Fetch(ctx, lat, lon)
			if fetchErr != nil {
				return nil, fetchErr
			}

			mu.Lock()
			fetches++
			mu.Unlock()

			// Persist the snapshot before any evaluation so a failed
			// cycle still leaves the fetched data inspectable. A write
			// failure is logged and does not block evaluation.
			snap := &types.ForecastSnapshot{
				ID:        uuid.NewString(),
				Provider:  provider,
				Latitude:  data.Latitude,
				Longitude: data.Longitude,
				FetchedAt: c.clock.Now(),
				Data:      *data,
			}
			if saveErr := c.snapshots.Save(ctx, snap); saveErr != nil {
				log.Error("failed to persist forecast snapshot",
					"latitude", lat,
					"longitude", lon,
					"error", saveErr,
				)
			}
			return data, nil
		})

		res := fetchResult{err: err}
		if err == nil {
			res.data = v.(*types.ForecastData)
		}

		mu.Lock()
		cache[key] = res
		mu.Unlock()
		return res
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for _, alert := range configs {
		alert := alert
		g.Go(func() error {
			if alert.City == nil {
				mu.Lock()
				stats.Failed++
				mu.Unlock()
				log.Error("alert has no city attached", "alert_id", alert.ID)
				return nil
			}

			res := fetchOnce(alert.City.Latitude, alert.City.Longitude)
			if res.err != nil {
				mu.Lock()
				stats.Failed++
				mu.Unlock()
				log.Error("skipping alert: forecast unavailable",
					"alert_id", alert.ID,
					"city", alert.City.Name,
					"error", res.err,
				)
				return nil
			}

			eval := alerts.Evaluate(alert, res.data)
			if !eval.Triggered {
				return nil
			}

			mu.Lock()
			stats.Triggered++
			mu.Unlock()

			event := alerts.NewTriggerEvent(alert, eval)
			c.metrics.RecordTrigger(gctx, alert.Category, provider)

			decision := c.gate.Admit(gctx, alert, event)
			if !decision.Notify {
				mu.Lock()
				stats.Suppressed++
				mu.Unlock()
				return nil
			}

			notification := notify.Render(decision.Tag, event)
			if sendErr := c.notifier.Send(gctx, notification); sendErr != nil {
				mu.Lock()
				stats.Failed++
				mu.Unlock()
				c.metrics.RecordDelivery(gctx, notify.ResultFailure)
				log.Error("notification delivery failed",
					"alert_id", alert.ID,
					"tag", decision.Tag,
					"error", sendErr,
				)
				return nil
			}

			mu.Lock()
			stats.Notified++
			mu.Unlock()
			c.metrics.RecordDelivery(gctx, notify.ResultSuccess)
			return nil
		})
	}

	// Workers always return nil; errors are isolated above.
	_ = g.Wait()

	stats.Fetches = fetches
	stats.Duration = c.clock.Now().Sub(start)
	c.metrics.RecordCycleDuration(ctx, provider, stats.Duration)

	log.Info("check cycle finished",
		"alerts", stats.Alerts,
		"fetches", stats.Fetches,
		"triggered", stats.Triggered,
		"notified", stats.Notified,
		"suppressed", stats.Suppressed,
		"failed", stats.Failed,
		"duration_ms", stats.Duration.Milliseconds(),
	)
	return stats
}
