// Package scheduler re-runs account analyses on a cron schedule.
package scheduler

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/vadiminshakov/orderband/internal/domain"
)

// Runner analyzes one account as of a date.
type Runner interface {
	Run(ctx context.Context, accountID string, asOf, since time.Time) (*domain.AccountReport, error)
}

// Sink receives every report produced by a scheduled run.
type Sink func(report *domain.AccountReport)

// Scheduler manages the cron jobs of watch mode.
type Scheduler struct {
	cron     *cron.Cron
	runner   Runner
	accounts []string
	since    time.Time
	sink     Sink
	logger   *zap.Logger
	ctx      context.Context
	now      func() time.Time
}

// New creates a scheduler for the given accounts. since may be zero.
func New(ctx context.Context, runner Runner, accounts []string, since time.Time, sink Sink, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithSeconds()),
		runner:   runner,
		accounts: accounts,
		since:    since,
		sink:     sink,
		logger:   logger,
		ctx:      ctx,
		now:      time.Now,
	}
}

// Register schedules a run of every account with a six-field cron spec.
func (s *Scheduler) Register(spec string) error {
	if len(s.accounts) == 0 {
		return errors.New("no accounts to watch")
	}
	if _, err := s.cron.AddFunc(spec, s.RunNow); err != nil {
		return errors.Wrapf(err, "register analysis job %q", spec)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", zap.Int("accounts", len(s.accounts)))
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// RunNow analyzes every account as of today's UTC date. A failing account is logged and
// does not stop the others.
func (s *Scheduler) RunNow() {
	asOf := domain.Day(s.now())
	for _, account := range s.accounts {
		if err := s.ctx.Err(); err != nil {
			return
		}

		report, err := s.runner.Run(s.ctx, account, asOf, s.since)
		if err != nil {
			s.logger.Error("scheduled analysis failed", zap.String("account", account), zap.Error(err))
			continue
		}
		if s.sink != nil {
			s.sink(report)
		}
	}
}
