// Package pipeline runs one analysis request end to end: order normalization, candles,
// indicators, price resolution and recommendations for every product of an account.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vadiminshakov/orderband/internal/domain"
	"github.com/vadiminshakov/orderband/internal/services/market/analysis"
	"github.com/vadiminshakov/orderband/internal/services/market/candles"
	"github.com/vadiminshakov/orderband/internal/services/market/collector"
	"github.com/vadiminshakov/orderband/internal/services/opportunity"
	"github.com/vadiminshakov/orderband/internal/services/pricer"
	"github.com/vadiminshakov/orderband/internal/services/recommender"
)

const defaultWorkers = 4

// Metrics receives the outcome of every finished run.
type Metrics interface {
	ObserveRun(report *domain.AccountReport, elapsed time.Duration)
}

// Journal persists finished reports.
type Journal interface {
	Save(report domain.AccountReport) (uint64, error)
}

// Request one analysis request.
type Request struct {
	AccountID string
	Raw       []domain.RawOrder
	// AsOf is the analysis date. Required.
	AsOf time.Time
	// Since optionally anchors the first candle.
	Since time.Time
}

// Analyzer runs analysis requests.
type Analyzer struct {
	params    domain.AnalysisParams
	engine    *analysis.Engine
	collector *collector.OrderCollector
	catalog   pricer.Catalog
	metrics   Metrics
	journal   Journal
	workers   int
	logger    *zap.Logger
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithCollector sets the order source used by Run.
func WithCollector(c *collector.OrderCollector) Option {
	return func(a *Analyzer) { a.collector = c }
}

// WithCatalog sets the current-price catalog tried before historical averages.
func WithCatalog(c pricer.Catalog) Option {
	return func(a *Analyzer) { a.catalog = c }
}

// WithMetrics sets the run metrics sink.
func WithMetrics(m Metrics) Option {
	return func(a *Analyzer) { a.metrics = m }
}

// WithJournal sets the report journal.
func WithJournal(j Journal) Option {
	return func(a *Analyzer) { a.journal = j }
}

// WithWorkers bounds how many products are analyzed concurrently.
func WithWorkers(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.workers = n
		}
	}
}

// NewAnalyzer creates an analyzer.
func NewAnalyzer(params domain.AnalysisParams, logger *zap.Logger, opts ...Option) (*Analyzer, error) {
	if params.PeriodDays <= 0 {
		return nil, errors.Errorf("period_days must be positive, got %d", params.PeriodDays)
	}
	if params.WindowDays <= 0 {
		return nil, errors.Errorf("window_days must be positive, got %d", params.WindowDays)
	}

	engine, err := analysis.NewEngine(analysis.ParamsFrom(params), logger)
	if err != nil {
		return nil, errors.Wrap(err, "create indicator engine")
	}

	a := &Analyzer{
		params:  params,
		engine:  engine,
		workers: defaultWorkers,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Run loads the account's order history through the collector and analyzes it.
func (a *Analyzer) Run(ctx context.Context, accountID string, asOf, since time.Time) (*domain.AccountReport, error) {
	if a.collector == nil {
		return nil, errors.New("no order source configured")
	}

	from := time.Time{}
	if !since.IsZero() {
		from = a.params.WarmupStart(since)
	}
	to := domain.Day(asOf).AddDate(0, 0, 1).Add(-time.Nanosecond)

	raw, err := a.collector.Fetch(ctx, accountID, from, to)
	if err != nil {
		return nil, err
	}

	return a.Analyze(ctx, Request{AccountID: accountID, Raw: raw, AsOf: asOf, Since: since})
}

// Analyze runs the pipeline over the given raw order lines.
//
// Only request-level problems are returned as errors. Each product's failure is recorded as
// its status and does not stop the others.
func (a *Analyzer) Analyze(ctx context.Context, req Request) (*domain.AccountReport, error) {
	if req.AsOf.IsZero() {
		return nil, errors.New("as_of is required")
	}
	started := time.Now()

	events, discarded := collector.Normalize(req.Raw)
	if visible := collector.Until(events, req.AsOf); len(visible) < len(events) {
		a.logger.Debug("ignoring order lines after as_of",
			zap.String("account", req.AccountID),
			zap.Int("ignored", len(events)-len(visible)),
		)
		events = visible
	}
	if discarded > 0 {
		a.logger.Warn("discarded malformed order lines",
			zap.String("account", req.AccountID),
			zap.Int("discarded", discarded),
		)
	}

	report := &domain.AccountReport{
		RunID:     uuid.NewString(),
		AccountID: req.AccountID,
		AsOf:      domain.Day(req.AsOf),
		Params:    a.params,
		Discarded: discarded,
		Products:  []domain.ProductReport{},
	}

	cp := candles.Params{
		PeriodDays: a.params.PeriodDays,
		WindowDays: a.params.WindowDays,
		AsOf:       req.AsOf,
		Since:      req.Since,
	}
	if !req.Since.IsZero() {
		cp.Start = a.params.WarmupStart(req.Since)
	}

	scope := domain.Scope{AccountID: req.AccountID}
	account, err := a.timeframe(events, cp)
	if err != nil {
		return nil, errors.Wrapf(err, "timeframe of %s", scope.String())
	}
	report.Account = account.Timeframe
	if latest, ok := report.Account.LatestIndicator(); ok {
		report.AccountRSITrend = analysis.TrendFor(latest.RSI)
	}

	// every product shares the account's first day so product histories line up
	if start, ok := account.series.Start(); ok {
		cp.Start = start
	}

	byProduct := collector.GroupByProduct(events)
	ids := collector.ProductIDs(byProduct)

	strategies := make([]pricer.Strategy, 0, 2)
	if a.catalog != nil {
		strategies = append(strategies, pricer.NewCatalogStrategy(a.catalog))
	}
	strategies = append(strategies, pricer.NewHistoricalAverage(byProduct))
	prices, unresolved := pricer.NewChain(a.logger, strategies...).Resolve(ctx, ids)
	report.Unresolved = unresolved

	products := make([]domain.ProductReport, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for i, id := range ids {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			var price *domain.PriceEntry
			if p, ok := prices[id]; ok {
				price = &p
			}
			products[i] = a.analyzeProduct(domain.Scope{AccountID: req.AccountID, ProductID: id}, byProduct[id], price, cp)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "analyze products")
	}

	report.Products = products
	report.Opportunities = opportunity.Rank(products)
	if len(report.Account.Candles) > 0 {
		report.Overview = a.overview(report, account.series)
	}

	a.logger.Info("analysis finished",
		zap.String("run_id", report.RunID),
		zap.String("account", req.AccountID),
		zap.Int("products", len(products)),
		zap.Int("unresolved", len(unresolved)),
		zap.Int("discarded", discarded),
	)

	if a.metrics != nil {
		a.metrics.ObserveRun(report, time.Since(started))
	}
	if a.journal != nil {
		if _, err := a.journal.Save(*report); err != nil {
			a.logger.Warn("failed to journal report", zap.String("run_id", report.RunID), zap.Error(err))
		}
	}

	return report, nil
}

type seriesTimeframe struct {
	domain.Timeframe
	series domain.DailySeries
}

func (a *Analyzer) timeframe(events []domain.OrderEvent, cp candles.Params) (seriesTimeframe, error) {
	series, err := candles.BuildDailySeries(events, cp)
	if err != nil {
		return seriesTimeframe{}, err
	}
	cs, err := candles.FromSeries(series, cp)
	if err != nil {
		return seriesTimeframe{}, err
	}
	points, err := a.engine.Compute(cs)
	if err != nil {
		return seriesTimeframe{}, err
	}
	return seriesTimeframe{
		Timeframe: domain.Timeframe{Candles: cs, Indicators: points},
		series:    series,
	}, nil
}

func (a *Analyzer) analyzeProduct(scope domain.Scope, events []domain.OrderEvent, price *domain.PriceEntry, cp candles.Params) domain.ProductReport {
	id := scope.ProductID
	pr := domain.ProductReport{ProductID: id, Price: price, AvgContribution: decimal.Zero}
	logger := a.logger.With(zap.Stringer("scope", &scope))

	fail := func(err error) domain.ProductReport {
		pr.Status = domain.StatusFor(err)
		pr.Error = err.Error()
		logger.Warn("product analysis incomplete", zap.String("status", string(pr.Status)), zap.Error(err))
		return pr
	}

	tf, err := a.timeframe(events, cp)
	if err != nil {
		return fail(err)
	}
	pr.Timeframe = tf.Timeframe
	pr.AvgContribution = averageDaily(tf.series)
	pr.OrderIntervalDays = analysis.AverageOrderInterval(events)

	latest, ok := pr.Timeframe.LatestIndicator()
	if !ok {
		return fail(errors.Wrapf(domain.ErrInsufficientHistory, "%s has fewer than %d days of history", id, a.params.PeriodDays))
	}
	pr.RSITrend = analysis.TrendFor(latest.RSI)
	pr.Forecast = analysis.Forecast(pr.Timeframe.Candles, latest, a.params.PeriodDays)

	if price == nil {
		return fail(errors.Wrapf(domain.ErrPriceUnresolved, "%s has no catalog price and no order history", id))
	}

	recs, err := recommender.Recommend(latest, *price, a.params.WindowDays)
	pr.Recommendations = recs
	if err != nil {
		return fail(err)
	}

	pr.Status = domain.StatusOK
	return pr
}

func (a *Analyzer) overview(report *domain.AccountReport, series domain.DailySeries) *domain.AccountOverview {
	horizon := a.params.WindowDays
	ov := opportunity.NewOverview(report.AsOf, horizon, report.Products, report.Opportunities)
	ov.MACDTrend = analysis.MACDTrendFor(report.Account.Indicators)
	ov.VolumeTrend = analysis.VolumeTrendFor(domain.Volumes(report.Account.Candles), analysis.VolumeTrendPeriods)
	ov.TrailingSpend = trailingSpend(series, report.AsOf, horizon)
	return &ov
}

// trailingSpend sums the order value placed in the days ending at asOf.
func trailingSpend(series domain.DailySeries, asOf time.Time, days int) decimal.Decimal {
	from := domain.Day(asOf).AddDate(0, 0, -days)
	total := decimal.Zero
	for _, p := range series {
		if p.Date.After(from) && !p.Date.After(asOf) {
			total = total.Add(p.Notional)
		}
	}
	return total
}

func averageDaily(series domain.DailySeries) decimal.Decimal {
	if len(series) == 0 {
		return decimal.Zero
	}
	total := decimal.Zero
	for _, p := range series {
		total = total.Add(p.Notional)
	}
	return total.Div(decimal.NewFromInt(int64(len(series))))
}
