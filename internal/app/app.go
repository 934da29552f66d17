// Package app wires configuration into a running analyzer.
package app

import (
	"context"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/vadiminshakov/orderband/config"
	"github.com/vadiminshakov/orderband/internal/domain"
	"github.com/vadiminshakov/orderband/internal/metrics"
	"github.com/vadiminshakov/orderband/internal/pipeline"
	"github.com/vadiminshakov/orderband/internal/scheduler"
	"github.com/vadiminshakov/orderband/internal/services/market/collector"
	"github.com/vadiminshakov/orderband/internal/services/pricer"
	"github.com/vadiminshakov/orderband/internal/storage/reports"
	"github.com/vadiminshakov/orderband/internal/storage/sqlstore"
	"github.com/vadiminshakov/orderband/internal/web"
	"github.com/vadiminshakov/orderband/pkg/retrier"
)

const shutdownTimeout = 5 * time.Second

// App owns the order store, price catalog, report journal and analyzer of one process.
type App struct {
	cfg      config.Config
	store    *sqlstore.Store
	journal  *reports.WALStore
	registry *prometheus.Registry
	analyzer *pipeline.Analyzer
	logger   *zap.Logger
	closers  []io.Closer
}

// New opens every backend named by cfg and builds the analyzer.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: logger, registry: prometheus.NewRegistry()}
	retry := connectRetrier(logger)

	store, err := retrier.DoWithData(retry, ctx, func(ctx context.Context) (*sqlstore.Store, error) {
		s, err := sqlstore.Open(ctx, cfg.Driver, cfg.DSN, logger)
		if errors.Is(err, sqlstore.ErrUnsupportedDriver) {
			return nil, retrier.Permanent(err)
		}
		return s, err
	})
	if err != nil {
		return nil, errors.Wrap(err, "open order store")
	}
	a.store = store
	a.closers = append(a.closers, store)

	catalog, err := newCatalog(ctx, cfg, store, retry, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	if rc, ok := catalog.(*pricer.RedisCatalog); ok {
		a.closers = append(a.closers, rc)
	}

	opts := []pipeline.Option{
		pipeline.WithCollector(collector.NewOrderCollector(store, logger)),
		pipeline.WithWorkers(cfg.Workers),
		pipeline.WithMetrics(metrics.New(a.registry)),
	}
	if catalog != nil {
		opts = append(opts, pipeline.WithCatalog(catalog))
	}
	if cfg.JournalDir != "" {
		journal, err := reports.NewWALStore(cfg.JournalDir)
		if err != nil {
			a.Close()
			return nil, errors.Wrap(err, "open report journal")
		}
		a.journal = journal
		a.closers = append(a.closers, journal)
		opts = append(opts, pipeline.WithJournal(journal))
	}

	a.analyzer, err = pipeline.NewAnalyzer(cfg.Params, logger, opts...)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// newCatalog returns the price catalog named by cfg.Catalog, nil for none.
func newCatalog(ctx context.Context, cfg config.Config, store *sqlstore.Store, retry *retrier.Retrier, logger *zap.Logger) (pricer.Catalog, error) {
	switch cfg.Catalog {
	case config.CatalogNone:
		return nil, nil
	case config.CatalogSQL:
		return store, nil
	case config.CatalogStatic:
		return pricer.StaticCatalog(cfg.StaticPrices), nil
	case config.CatalogRedis:
		c, err := retrier.DoWithData(retry, ctx, func(ctx context.Context) (*pricer.RedisCatalog, error) {
			return pricer.NewRedisCatalog(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisKey, logger)
		})
		if err != nil {
			return nil, errors.Wrap(err, "connect redis catalog")
		}
		return c, nil
	default:
		return nil, errors.Errorf("unsupported catalog: %s", cfg.Catalog)
	}
}

func connectRetrier(logger *zap.Logger) *retrier.Retrier {
	return retrier.New(retrier.WithOnRetry(func(attempt int, err error, wait time.Duration) {
		logger.Warn("backend not reachable, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err))
	}))
}

// Store returns the order store.
func (a *App) Store() *sqlstore.Store {
	return a.store
}

// Journal returns the report journal, nil when disabled.
func (a *App) Journal() *reports.WALStore {
	return a.journal
}

// Analyze runs one analysis per configured account. asOf defaults to today.
func (a *App) Analyze(ctx context.Context) ([]*domain.AccountReport, error) {
	if len(a.cfg.Accounts) == 0 {
		return nil, errors.New("no accounts configured (--account, 'accounts' or ORDERBAND_ACCOUNT)")
	}

	asOf := a.cfg.AsOf
	if asOf.IsZero() {
		asOf = domain.Day(time.Now())
	}

	out := make([]*domain.AccountReport, 0, len(a.cfg.Accounts))
	for _, account := range a.cfg.Accounts {
		report, err := a.analyzer.Run(ctx, account, asOf, a.cfg.Since)
		if err != nil {
			return out, errors.Wrapf(err, "analyze account %s", account)
		}
		out = append(out, report)
	}
	return out, nil
}

// Watch analyzes every account on the configured schedule until ctx is done, serving
// metrics and journaled reports meanwhile. Every report is passed to sink.
func (a *App) Watch(ctx context.Context, sink scheduler.Sink) error {
	s := scheduler.New(ctx, a.analyzer, a.cfg.Accounts, a.cfg.Since, sink, a.logger)
	if err := s.Register(a.cfg.WatchCron); err != nil {
		return err
	}

	srv := metrics.NewServer(a.cfg.MetricsAddr, a.registry, a.logger)
	srv.Start()

	if a.cfg.WebAddr != "" && a.journal != nil {
		reportSrv := web.NewServer(a.cfg.WebAddr, a.journal, a.logger)
		go func() {
			if err := reportSrv.Start(ctx); err != nil {
				a.logger.Error("report server failed", zap.Error(err))
			}
		}()
	}

	s.RunNow()
	s.Start()

	<-ctx.Done()

	s.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		a.logger.Warn("metrics server shutdown", zap.Error(err))
	}
	return nil
}

// Close releases every backend in reverse opening order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.logger.Warn("close backend", zap.Error(err))
		}
	}
	a.closers = nil
}
