package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vadiminshakov/orderband/internal/domain"
	"github.com/vadiminshakov/orderband/internal/services/market/collector"
	"github.com/vadiminshakov/orderband/internal/services/pricer"
)

var day1 = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func dayN(n int) time.Time {
	return day1.AddDate(0, 0, n-1)
}

func raw(day int, product string, qty, price float64) domain.RawOrder {
	ts := dayN(day).Add(14 * time.Hour)
	q := decimal.NewFromFloat(qty)
	p := decimal.NewFromFloat(price)
	return domain.RawOrder{Timestamp: &ts, AccountID: "acc-1", ProductID: product, Quantity: &q, UnitPrice: &p}
}

// history builds 200 days of orders:
//   - WIDGET: irregular orders every third day
//   - STEADY: one unit every day, a perfectly flat rolling average
//   - SAMPLE: only zero-quantity lines, nothing to average a price from
//   - FREEBIE: priced at zero by the catalog
func history() []domain.RawOrder {
	var out []domain.RawOrder
	for d := 1; d <= 200; d++ {
		if d%3 == 0 {
			out = append(out, raw(d, "WIDGET", float64(d%7+1), 12))
		}
		out = append(out, raw(d, "STEADY", 1, 10))
		if d%20 == 0 {
			out = append(out, raw(d, "SAMPLE", 0, 5))
			out = append(out, raw(d, "FREEBIE", 2, 4))
		}
	}
	return out
}

func malformed() []domain.RawOrder {
	noTime := raw(10, "WIDGET", 1, 1)
	noTime.Timestamp = nil
	noProduct := raw(10, "", 1, 1)
	negative := raw(10, "WIDGET", -1, 1)
	noPrice := raw(10, "WIDGET", 1, 1)
	noPrice.UnitPrice = nil
	return []domain.RawOrder{noTime, noProduct, negative, noPrice}
}

type failingCatalog struct{}

func (failingCatalog) Prices(context.Context, []string) (map[string]decimal.Decimal, error) {
	return nil, assert.AnError
}

type recordingMetrics struct {
	mu   sync.Mutex
	runs []*domain.AccountReport
}

func (m *recordingMetrics) ObserveRun(report *domain.AccountReport, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, report)
}

type memoryJournal struct {
	saved []domain.AccountReport
	err   error
}

func (j *memoryJournal) Save(report domain.AccountReport) (uint64, error) {
	if j.err != nil {
		return 0, j.err
	}
	j.saved = append(j.saved, report)
	return uint64(len(j.saved)), nil
}

type stubSource struct {
	orders   []domain.RawOrder
	from, to time.Time
}

func (s *stubSource) Orders(_ context.Context, _ string, from, to time.Time) ([]domain.RawOrder, error) {
	s.from, s.to = from, to
	return s.orders, nil
}

func newAnalyzer(t *testing.T, opts ...Option) *Analyzer {
	t.Helper()
	a, err := NewAnalyzer(domain.DefaultAnalysisParams(), zap.NewNop(), opts...)
	require.NoError(t, err)
	return a
}

func catalog() pricer.StaticCatalog {
	return pricer.StaticCatalog{
		"WIDGET":  decimal.NewFromInt(15),
		"FREEBIE": decimal.Zero,
	}
}

func TestAnalyze_PerProductStatuses(t *testing.T) {
	metrics := &recordingMetrics{}
	journal := &memoryJournal{}
	a := newAnalyzer(t, WithCatalog(catalog()), WithMetrics(metrics), WithJournal(journal), WithWorkers(2))

	report, err := a.Analyze(context.Background(), Request{
		AccountID: "acc-1",
		Raw:       append(history(), malformed()...),
		AsOf:      dayN(200),
	})
	require.NoError(t, err)

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, "acc-1", report.AccountID)
	assert.Equal(t, 4, report.Discarded)
	assert.Equal(t, []string{"SAMPLE"}, report.Unresolved)
	assert.True(t, report.AsOf.Equal(dayN(200)))

	require.Len(t, report.Products, 4)
	ids := make([]string, len(report.Products))
	for i, p := range report.Products {
		ids[i] = p.ProductID
	}
	assert.Equal(t, []string{"FREEBIE", "SAMPLE", "STEADY", "WIDGET"}, ids)

	freebie, _ := report.Product("FREEBIE")
	assert.Equal(t, domain.StatusInvalidPrice, freebie.Status)
	assert.Empty(t, freebie.Recommendations)
	assert.NotEmpty(t, freebie.Error)

	sample, _ := report.Product("SAMPLE")
	assert.Equal(t, domain.StatusPriceUnresolved, sample.Status)
	assert.Nil(t, sample.Price)

	steady, _ := report.Product("STEADY")
	assert.Equal(t, domain.StatusDegenerateBand, steady.Status)
	require.NotNil(t, steady.Price)
	assert.Equal(t, domain.PriceSourceHistoricalAverage, steady.Price.Source)
	assert.True(t, steady.Price.UnitPrice.Equal(decimal.NewFromInt(10)))
	require.Len(t, steady.Recommendations, 3)
	for _, r := range steady.Recommendations {
		assert.True(t, r.Quantity.IsZero())
	}

	widget, _ := report.Product("WIDGET")
	assert.Equal(t, domain.StatusOK, widget.Status, widget.Error)
	require.NotNil(t, widget.Price)
	assert.Equal(t, domain.PriceSourceCatalog, widget.Price.Source)
	require.Len(t, widget.Recommendations, 3)
	for i := 1; i < 3; i++ {
		assert.True(t, widget.Recommendations[i].Quantity.GreaterThanOrEqual(widget.Recommendations[i-1].Quantity))
	}
	assert.NotNil(t, widget.Forecast)
	require.NotNil(t, widget.OrderIntervalDays)
	assert.Equal(t, 3, *widget.OrderIntervalDays)
	assert.True(t, widget.AvgContribution.IsPositive())

	for _, p := range report.Products {
		require.NotEmpty(t, p.Timeframe.Candles, p.ProductID)
		require.Len(t, p.Timeframe.Indicators, len(p.Timeframe.Candles))
		assert.True(t, p.Timeframe.Candles[0].PeriodStart.Equal(report.Account.Candles[0].PeriodStart),
			"%s candles line up with the account", p.ProductID)
	}

	require.NotEmpty(t, report.Account.Candles)
	assert.True(t, report.Account.Candles[len(report.Account.Candles)-1].Live)
	assert.NotEmpty(t, report.AccountRSITrend)

	for _, o := range report.Opportunities {
		p, ok := report.Product(o.ProductID)
		require.True(t, ok)
		assert.Equal(t, domain.StatusOK, p.Status)
	}

	require.NotNil(t, report.Overview)
	assert.Equal(t, 90, report.Overview.HorizonDays)
	assert.Len(t, report.Overview.Weeks, 13)
	assert.True(t, report.Overview.Weeks[0].Start.Equal(dayN(200)))
	assert.NotEmpty(t, report.Overview.MACDTrend)
	assert.NotEmpty(t, report.Overview.VolumeTrend)

	trailing := decimal.Zero
	for _, o := range history() {
		if !o.Timestamp.Before(dayN(111)) {
			trailing = trailing.Add(o.Quantity.Mul(*o.UnitPrice))
		}
	}
	assert.True(t, trailing.Equal(report.Overview.TrailingSpend), report.Overview.TrailingSpend.String())

	planned := decimal.Zero
	for _, w := range report.Overview.Weeks {
		planned = planned.Add(w.Targets.Balanced)
	}
	assert.True(t, planned.Equal(report.Overview.Targets.Balanced))

	require.Len(t, metrics.runs, 1)
	assert.Equal(t, report, metrics.runs[0])
	require.Len(t, journal.saved, 1)
	assert.Equal(t, report.RunID, journal.saved[0].RunID)
}

func TestAnalyze_CatalogFailureFallsBack(t *testing.T) {
	a := newAnalyzer(t, WithCatalog(failingCatalog{}))

	report, err := a.Analyze(context.Background(), Request{AccountID: "acc-1", Raw: history(), AsOf: dayN(200)})
	require.NoError(t, err)

	widget, _ := report.Product("WIDGET")
	require.NotNil(t, widget.Price)
	assert.Equal(t, domain.PriceSourceHistoricalAverage, widget.Price.Source)
	assert.True(t, widget.Price.UnitPrice.Equal(decimal.NewFromInt(12)))

	freebie, _ := report.Product("FREEBIE")
	require.NotNil(t, freebie.Price)
	assert.True(t, freebie.Price.UnitPrice.Equal(decimal.NewFromInt(4)))
	assert.NotEqual(t, domain.StatusInvalidPrice, freebie.Status)
}

func TestAnalyze_IgnoresOrdersAfterAsOf(t *testing.T) {
	a := newAnalyzer(t)
	orders := append(history(),
		raw(300, "STEADY", 1000, 1000),
		raw(300, "FUTURE", 5, 99),
		raw(400, "WIDGET", 3, 500),
	)

	report, err := a.Analyze(context.Background(), Request{AccountID: "acc-1", Raw: orders, AsOf: dayN(200)})
	require.NoError(t, err)

	_, ok := report.Product("FUTURE")
	assert.False(t, ok, "products first ordered after as_of are not reported")
	assert.Len(t, report.Products, 4)

	steady, _ := report.Product("STEADY")
	require.NotNil(t, steady.Price)
	assert.True(t, steady.Price.UnitPrice.Equal(decimal.NewFromInt(10)), steady.Price.UnitPrice.String())

	widget, _ := report.Product("WIDGET")
	require.NotNil(t, widget.Price)
	assert.True(t, widget.Price.UnitPrice.Equal(decimal.NewFromInt(12)), widget.Price.UnitPrice.String())
	require.NotNil(t, widget.OrderIntervalDays)
	assert.Equal(t, 3, *widget.OrderIntervalDays)

	baseline, err := a.Analyze(context.Background(), Request{AccountID: "acc-1", Raw: history(), AsOf: dayN(200)})
	require.NoError(t, err)
	assert.Equal(t, baseline.Products, report.Products)
	assert.Equal(t, baseline.Account, report.Account)
	assert.Equal(t, baseline.Overview, report.Overview)
}

func TestAnalyze_Idempotent(t *testing.T) {
	a := newAnalyzer(t, WithCatalog(catalog()))
	req := Request{AccountID: "acc-1", Raw: history(), AsOf: dayN(180)}

	first, err := a.Analyze(context.Background(), req)
	require.NoError(t, err)
	second, err := a.Analyze(context.Background(), req)
	require.NoError(t, err)

	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, first.Products, second.Products)
	assert.Equal(t, first.Account, second.Account)
	assert.Equal(t, first.Opportunities, second.Opportunities)
}

func TestAnalyze_ShortHistory(t *testing.T) {
	a := newAnalyzer(t)
	report, err := a.Analyze(context.Background(), Request{
		AccountID: "acc-1",
		Raw:       []domain.RawOrder{raw(1, "WIDGET", 3, 2), raw(5, "WIDGET", 1, 2), raw(6, "GADGET", 2, 9)},
		AsOf:      dayN(10),
	})
	require.NoError(t, err)
	require.Len(t, report.Products, 2)
	for _, p := range report.Products {
		assert.Equal(t, domain.StatusInsufficientHistory, p.Status, p.ProductID)
		assert.NotNil(t, p.Price)
		for _, ip := range p.Timeframe.Indicators {
			assert.False(t, ip.HasBands())
		}
	}
	assert.Empty(t, report.Opportunities)
}

func TestAnalyze_NoEvents(t *testing.T) {
	a := newAnalyzer(t)
	report, err := a.Analyze(context.Background(), Request{AccountID: "acc-1", Raw: malformed(), AsOf: dayN(10)})
	require.NoError(t, err)
	assert.Empty(t, report.Products)
	assert.Empty(t, report.Account.Candles)
	assert.Equal(t, 4, report.Discarded)
}

func TestAnalyze_RequiresAsOf(t *testing.T) {
	a := newAnalyzer(t)
	_, err := a.Analyze(context.Background(), Request{AccountID: "acc-1", Raw: history()})
	assert.Error(t, err)
}

func TestAnalyze_JournalFailureDoesNotFailRun(t *testing.T) {
	a := newAnalyzer(t, WithJournal(&memoryJournal{err: assert.AnError}))
	report, err := a.Analyze(context.Background(), Request{AccountID: "acc-1", Raw: history(), AsOf: dayN(200)})
	require.NoError(t, err)
	assert.NotEmpty(t, report.Products)
}

func TestAnalyze_SinceAnchorsCandles(t *testing.T) {
	a := newAnalyzer(t)
	report, err := a.Analyze(context.Background(), Request{
		AccountID: "acc-1",
		Raw:       history(),
		AsOf:      dayN(200),
		Since:     dayN(101),
	})
	require.NoError(t, err)
	require.NotEmpty(t, report.Account.Candles)
	assert.True(t, report.Account.Candles[0].PeriodStart.Equal(dayN(101)))
}

func TestRun_UsesCollector(t *testing.T) {
	source := &stubSource{orders: history()}
	a := newAnalyzer(t, WithCollector(collector.NewOrderCollector(source, zap.NewNop())))

	report, err := a.Run(context.Background(), "acc-1", dayN(200), time.Time{})
	require.NoError(t, err)
	assert.Len(t, report.Products, 4)
	assert.True(t, source.from.IsZero())
	assert.True(t, source.to.Equal(dayN(201).Add(-time.Nanosecond)), source.to.String())

	_, err = newAnalyzer(t).Run(context.Background(), "acc-1", dayN(200), time.Time{})
	assert.Error(t, err)
}

func TestNewAnalyzer_InvalidParams(t *testing.T) {
	params := domain.DefaultAnalysisParams()
	params.PeriodDays = 0
	_, err := NewAnalyzer(params, zap.NewNop())
	assert.Error(t, err)

	params = domain.DefaultAnalysisParams()
	params.BBK = decimal.Zero
	_, err = NewAnalyzer(params, zap.NewNop())
	assert.Error(t, err)
}
