package analysis

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vadiminshakov/orderband/internal/domain"
)

var start = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func candlesFrom(closes ...float64) []domain.Candle {
	out := make([]domain.Candle, len(closes))
	for i, c := range closes {
		v := decimal.NewFromFloat(c)
		out[i] = domain.Candle{
			PeriodStart: start.AddDate(0, 0, 3*i),
			PeriodEnd:   start.AddDate(0, 0, 3*i+2),
			Open:        v,
			High:        v,
			Low:         v,
			Close:       v,
			Volume:      decimal.NewFromInt(int64(i % 4)),
		}
	}
	if len(out) > 0 {
		out[len(out)-1].Live = true
	}
	return out
}

func zigzag(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 + float64(i%5)*3 - float64(i%3)*2
	}
	return out
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(ParamsFrom(domain.DefaultAnalysisParams()), zap.NewNop())
	require.NoError(t, err)
	return e
}

func TestEngine_Compute_Availability(t *testing.T) {
	e := newTestEngine(t)
	candles := candlesFrom(zigzag(30)...)

	points, err := e.Compute(candles)
	require.NoError(t, err)
	require.Len(t, points, len(candles))

	for i, p := range points {
		assert.True(t, p.Close.Equal(candles[i].Close))
		if i < 19 {
			assert.False(t, p.HasBands(), "index %d must not have bands", i)
			assert.False(t, p.PositionPct.Valid)
		} else {
			assert.True(t, p.HasBands(), "index %d must have bands", i)
			assert.True(t, p.BBUpper.Decimal.GreaterThanOrEqual(p.BBMiddle.Decimal))
			assert.True(t, p.BBMiddle.Decimal.GreaterThanOrEqual(p.BBLower.Decimal))
		}
		if i < 14 {
			assert.False(t, p.RSI.Valid, "index %d must not have RSI", i)
		}
		if p.RSI.Valid {
			assert.True(t, p.RSI.Decimal.GreaterThanOrEqual(decimal.Zero))
			assert.True(t, p.RSI.Decimal.LessThanOrEqual(decimal.NewFromInt(100)))
		}
		if p.PositionPct.Valid {
			assert.True(t, p.PositionPct.Decimal.GreaterThanOrEqual(decimal.Zero))
			assert.True(t, p.PositionPct.Decimal.LessThanOrEqual(decimal.NewFromInt(1)))
		}
	}
	assert.True(t, points[29].RSI.Valid)
	assert.True(t, points[29].MovingAverage().Valid)
}

func TestEngine_Compute_ShortSeries(t *testing.T) {
	e := newTestEngine(t)
	points, err := e.Compute(candlesFrom(zigzag(12)...))
	require.NoError(t, err)
	for _, p := range points {
		assert.False(t, p.HasBands())
		assert.False(t, p.RSI.Valid)
	}

	points, err = e.Compute(nil)
	require.NoError(t, err)
	assert.Empty(t, points)
}

func TestEngine_Compute_FlatCloses(t *testing.T) {
	e := newTestEngine(t)
	flat := make([]float64, 22)
	for i := range flat {
		flat[i] = 42
	}

	points, err := e.Compute(candlesFrom(flat...))
	require.NoError(t, err)
	last := points[len(points)-1]
	require.True(t, last.HasBands())
	assert.True(t, last.BBUpper.Decimal.Equal(last.BBLower.Decimal))
	assert.False(t, last.PositionPct.Valid, "zero-width band has no position")
}

func TestEngine_Compute_LiveCloseParticipates(t *testing.T) {
	e := newTestEngine(t)
	closes := zigzag(25)

	before, err := e.Compute(candlesFrom(closes...))
	require.NoError(t, err)

	closes[len(closes)-1] += 50
	after, err := e.Compute(candlesFrom(closes...))
	require.NoError(t, err)

	last := len(closes) - 1
	assert.True(t, after[last].BBMiddle.Decimal.GreaterThan(before[last].BBMiddle.Decimal))
	assert.True(t, after[last].RSI.Decimal.GreaterThan(before[last].RSI.Decimal))
	assert.Equal(t, before[last-1], after[last-1], "closed candles are unaffected")
}

func TestNewEngine_InvalidParams(t *testing.T) {
	tests := []struct {
		name   string
		params Params
	}{
		{name: "bb window", params: Params{BBWindow: 1, BBK: decimal.NewFromInt(2), RSIWindow: 14}},
		{name: "bb k", params: Params{BBWindow: 20, BBK: decimal.Zero, RSIWindow: 14}},
		{name: "rsi window", params: Params{BBWindow: 20, BBK: decimal.NewFromInt(2), RSIWindow: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEngine(tt.params, zap.NewNop())
			assert.Error(t, err)
		})
	}
}

func TestPositionInBand(t *testing.T) {
	lower := domain.Valid(decimal.NewFromInt(10))
	upper := domain.Valid(decimal.NewFromInt(20))

	tests := []struct {
		name     string
		value    int64
		lower    decimal.NullDecimal
		upper    decimal.NullDecimal
		expected decimal.NullDecimal
	}{
		{name: "inside", value: 15, lower: lower, upper: upper, expected: domain.Valid(decimal.NewFromFloat(0.5))},
		{name: "below floor", value: 5, lower: lower, upper: upper, expected: domain.Valid(decimal.Zero)},
		{name: "above ceiling", value: 25, lower: lower, upper: upper, expected: domain.Valid(decimal.NewFromInt(1))},
		{name: "missing band", value: 15, lower: decimal.NullDecimal{}, upper: upper, expected: decimal.NullDecimal{}},
		{name: "zero width", value: 15, lower: lower, upper: lower, expected: decimal.NullDecimal{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PositionInBand(decimal.NewFromInt(tt.value), tt.lower, tt.upper)
			assert.Equal(t, tt.expected.Valid, got.Valid)
			if tt.expected.Valid {
				assert.True(t, tt.expected.Decimal.Equal(got.Decimal), got.Decimal.String())
			}
		})
	}
}

func TestTrendFor(t *testing.T) {
	tests := []struct {
		rsi      float64
		expected domain.RSITrend
	}{
		{rsi: 12, expected: domain.RSITrendVeryOpen},
		{rsi: 35, expected: domain.RSITrendOpen},
		{rsi: 42, expected: domain.RSITrendNeutral},
		{rsi: 47, expected: domain.RSITrendResistant},
		{rsi: 80, expected: domain.RSITrendStronglyResistant},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, TrendFor(domain.Valid(decimal.NewFromFloat(tt.rsi))))
	}
	assert.Equal(t, domain.RSITrend(""), TrendFor(decimal.NullDecimal{}))
}
