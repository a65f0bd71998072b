package maintenance

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/aurorasociety/clubhouse/internal/models"
	"github.com/aurorasociety/clubhouse/pkg/logger"
)

const (
	defaultSchedule       = "@hourly"
	defaultClickRetention = 90 * 24 * time.Hour
)

// Cleaner coordinates background maintenance: deactivating expired referral
// links and pruning old click audit rows.
type Cleaner struct {
	db        *gorm.DB
	cron      *cron.Cron
	now       func() time.Time
	log       *zap.Logger
	schedule  string
	retention time.Duration
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock used for expiry and retention comparisons.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithSchedule overrides the cron specification for the cleanup job.
func WithSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.schedule = spec
		}
	}
}

// WithClickRetention adjusts how long click audit rows are retained.
func WithClickRetention(retention time.Duration) Option {
	return func(cleaner *Cleaner) {
		if retention > 0 {
			cleaner.retention = retention
		}
	}
}

// NewCleaner constructs a Cleaner with sensible defaults.
func NewCleaner(db *gorm.DB, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		db:        db,
		now:       time.Now,
		schedule:  defaultSchedule,
		retention: defaultClickRetention,
		log:       logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return cleaner
}

// Start registers the cleanup job with the cron scheduler and launches it.
func (c *Cleaner) Start() error {
	if c.db == nil {
		return nil
	}

	if _, err := c.cron.AddFunc(c.schedule, func() {
		if err := c.RunOnce(context.Background()); err != nil {
			c.log.Warn("cleanup run failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes all cleanup routines sequentially. Also used during
// graceful shutdown and in tests.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error

	deactivated, err := DeactivateExpiredLinks(ctx, c.db, c.now())
	if err != nil {
		errs = multierr.Append(errs, err)
	} else if deactivated > 0 {
		c.log.Info("expired links deactivated", zap.Int64("count", deactivated))
	}

	pruned, err := PruneClickAudit(ctx, c.db, c.now().Add(-c.retention))
	if err != nil {
		errs = multierr.Append(errs, err)
	} else if pruned > 0 {
		c.log.Info("click audit rows pruned", zap.Int64("count", pruned))
	}

	return errs
}

// DeactivateExpiredLinks flips is_active off for links whose expiry has
// passed. The services also reject expired links at read time; this keeps the
// stored state in line with what listings show.
func DeactivateExpiredLinks(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	if db == nil {
		return 0, fmt.Errorf("maintenance: db is nil")
	}

	result := db.WithContext(ctx).Model(&models.ReferralLink{}).
		Where("is_active = ? AND expires_at IS NOT NULL AND expires_at <= ?", true, now).
		Update("is_active", false)
	if result.Error != nil {
		return 0, fmt.Errorf("maintenance: deactivate expired links: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// PruneClickAudit deletes click rows created before the cutoff.
func PruneClickAudit(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	if db == nil {
		return 0, fmt.Errorf("maintenance: db is nil")
	}

	result := db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&models.ReferralLinkClick{})
	if result.Error != nil {
		return 0, fmt.Errorf("maintenance: prune click audit: %w", result.Error)
	}
	return result.RowsAffected, nil
}
