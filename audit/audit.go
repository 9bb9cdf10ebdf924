// Package audit prunes the append-only scan log. Appending happens on the
// ingest path (recon); the sweep here is an independent maintenance job
// that never blocks ingestion.
package audit

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"timeclock/models"
)

type Sweeper struct {
	db        *gorm.DB
	retention time.Duration
	log       *zap.Logger
}

func NewSweeper(db *gorm.DB, retentionDays int, log *zap.Logger) *Sweeper {
	return &Sweeper{
		db:        db,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		log:       log,
	}
}

// Sweep hard-deletes audit rows older than the retention window and returns
// the number removed.
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-s.retention)
	res := s.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&models.ScanLog{})
	if res.Error != nil {
		return 0, fmt.Errorf("sweeping audit trail: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		s.log.Info("audit trail swept",
			zap.Time("cutoff", cutoff),
			zap.Int64("deleted", res.RowsAffected))
	}
	return res.RowsAffected, nil
}

// Run sweeps once immediately, then daily, until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	if _, err := s.Sweep(ctx); err != nil {
		s.log.Error("audit sweep failed", zap.Error(err))
	}
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.log.Error("audit sweep failed", zap.Error(err))
			}
		}
	}
}
