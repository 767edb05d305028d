package checker

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/gzip"

	"precipwatch/internal/config"
	"precipwatch/internal/types"
)

// HistoryStore is the retention job's view of the history repository.
type HistoryStore interface {
	ListBefore(ctx context.Context, cutoff time.Time) ([]*types.AlertHistory, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// SnapshotPruner removes old forecast snapshots.
type SnapshotPruner interface {
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Retention archives expired alert history to gzip-compressed JSON Lines
// files and then bulk-deletes the rows, along with old forecast snapshots.
// Rows are exported before deletion; an archive failure aborts the delete.
type Retention struct {
	cfg       config.RetentionConfig
	history   HistoryStore
	snapshots SnapshotPruner
	clock     types.Clock
	logger    types.Logger
}

// NewRetention creates a Retention job.
func NewRetention(cfg config.RetentionConfig, history HistoryStore, snapshots SnapshotPruner, clock types.Clock, logger types.Logger) *Retention {
	return &Retention{
		cfg:       cfg,
		history:   history,
		snapshots: snapshots,
		clock:     clock,
		logger:    logger,
	}
}

// Run executes one retention pass.
func (r *Retention) Run(ctx context.Context) {
	cutoff := r.clock.Now().Add(-r.cfg.MaxAge)

	expired, err := r.history.ListBefore(ctx, cutoff)
	if err != nil {
		r.logger.Error("retention aborted: failed to list expired history", "error", err)
		return
	}

	if len(expired) > 0 {
		path, err := r.archive(expired)
		if err != nil {
			r.logger.Error("retention aborted: failed to archive history", "error", err)
			return
		}

		deleted, err := r.history.DeleteBefore(ctx, cutoff)
		if err != nil {
			r.logger.Error("failed to delete expired history", "error", err)
			return
		}
		r.logger.Info("alert history archived",
			"rows", deleted,
			"archive", path,
			"cutoff", cutoff,
		)
	}

	pruned, err := r.snapshots.DeleteBefore(ctx, cutoff)
	if err != nil {
		r.logger.Error("failed to prune forecast snapshots", "error", err)
		return
	}
	if pruned > 0 {
		r.logger.Info("forecast snapshots pruned", "rows", pruned)
	}
}

// archive writes the expired rows as gzip-compressed JSON Lines and returns
// the file path.
func (r *Retention) archive(entries []*types.AlertHistory) (string, error) {
	if err := os.MkdirAll(r.cfg.ArchiveDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create archive dir: %w", err)
	}

	name := fmt.Sprintf("alert-history-%s.jsonl.gz", r.clock.Now().Format("20060102T150405"))
	path := filepath.Join(r.cfg.ArchiveDir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create archive file: %w", err)
	}

	gz := gzip.NewWriter(f)
	enc := json.NewEncoder(gz)
	for _, entry := range entries {
		if err := enc.Encode(entry); err != nil {
			gz.Close()
			f.Close()
			return "", fmt.Errorf("failed to encode history entry: %w", err)
		}
	}
	if err := gz.Close(); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to finalize archive: %w", err)
	}
	return path, f.Close()
}
