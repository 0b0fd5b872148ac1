// Package scheduler ties the payroll batch to the calendar. A monthly
// cron entry disburses salaries, a daily entry retries failed payments,
// and both paths are reachable synchronously for operator triggers.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"rnrspay/internal/services/payroll"
)

// PayrollRunner is the slice of the payroll service the scheduler drives.
type PayrollRunner interface {
	Run(ctx context.Context, month, year int) (*payroll.RunSummary, error)
	RetryFailed(ctx context.Context) (*payroll.RunSummary, error)
}

// Config holds the calendar rules.
type Config struct {
	// PayrollSpec is a cron expression for the monthly disbursement.
	PayrollSpec string
	// RetrySpec is a cron expression for the failed-payment retry pass.
	RetrySpec string
	// Timezone anchors both expressions.
	Timezone string
}

func (c Config) withDefaults() Config {
	if c.PayrollSpec == "" {
		c.PayrollSpec = "0 6 28 * *"
	}
	if c.RetrySpec == "" {
		c.RetrySpec = "0 7 * * *"
	}
	if c.Timezone == "" {
		c.Timezone = "Africa/Kigali"
	}
	return c
}

// Scheduler owns the cron lifecycle.
type Scheduler struct {
	cron  *cron.Cron
	batch PayrollRunner
	loc   *time.Location
	log   *logrus.Logger
}

// New builds a scheduler with the monthly payroll and daily retry
// entries registered but not started.
func New(batch PayrollRunner, cfg Config, log *logrus.Logger) (*Scheduler, error) {
	if batch == nil {
		panic("payroll runner is required")
	}
	if log == nil {
		log = logrus.New()
	}
	cfg = cfg.withDefaults()

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid scheduler timezone %q: %w", cfg.Timezone, err)
	}

	s := &Scheduler{
		cron:  cron.New(cron.WithLocation(loc)),
		batch: batch,
		loc:   loc,
		log:   log,
	}

	if _, err := s.cron.AddFunc(cfg.PayrollSpec, s.runMonthly); err != nil {
		return nil, fmt.Errorf("invalid payroll cron spec %q: %w", cfg.PayrollSpec, err)
	}
	if _, err := s.cron.AddFunc(cfg.RetrySpec, s.runRetry); err != nil {
		return nil, fmt.Errorf("invalid retry cron spec %q: %w", cfg.RetrySpec, err)
	}
	return s, nil
}

// Start begins firing cron entries.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("payroll scheduler started")
}

// Stop halts the cron and returns a context that is done once running
// jobs finish.
func (s *Scheduler) Stop() context.Context {
	s.log.Info("payroll scheduler stopping")
	return s.cron.Stop()
}

// TriggerPayroll runs the batch for (month, year) synchronously. Used by
// the manual endpoint; same code path as the cron entry.
func (s *Scheduler) TriggerPayroll(ctx context.Context, month, year int) (*payroll.RunSummary, error) {
	return s.batch.Run(ctx, month, year)
}

// TriggerRetry resubmits failed payments synchronously.
func (s *Scheduler) TriggerRetry(ctx context.Context) (*payroll.RunSummary, error) {
	return s.batch.RetryFailed(ctx)
}

func (s *Scheduler) runMonthly() {
	now := time.Now().In(s.loc)
	summary, err := s.batch.Run(context.Background(), int(now.Month()), now.Year())
	if err != nil {
		if errors.Is(err, payroll.ErrRunInProgress) {
			s.log.Warn("scheduled payroll skipped: run already in progress")
			return
		}
		s.log.WithError(err).Error("scheduled payroll run failed")
		return
	}
	s.log.WithFields(logrus.Fields{
		"month":     summary.Month,
		"year":      summary.Year,
		"processed": summary.Processed,
		"failed":    summary.Failed,
	}).Info("scheduled payroll run completed")
}

func (s *Scheduler) runRetry() {
	summary, err := s.batch.RetryFailed(context.Background())
	if err != nil {
		s.log.WithError(err).Error("scheduled payment retry failed")
		return
	}
	if summary.Processed > 0 || summary.Failed > 0 {
		s.log.WithFields(logrus.Fields{
			"recovered": summary.Processed,
			"failed":    summary.Failed,
		}).Info("scheduled payment retry completed")
	}
}
