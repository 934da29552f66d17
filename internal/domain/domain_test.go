package domain

import (
	"fmt"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ProductStatus
	}{
		{name: "nil", err: nil, want: StatusOK},
		{name: "insufficient history", err: errors.Wrap(ErrInsufficientHistory, "A"), want: StatusInsufficientHistory},
		{name: "degenerate band", err: ErrDegenerateBand, want: StatusDegenerateBand},
		{name: "price unresolved", err: fmt.Errorf("B: %w", ErrPriceUnresolved), want: StatusPriceUnresolved},
		{name: "invalid price", err: errors.Wrapf(ErrInvalidPrice, "price %s", "0"), want: StatusInvalidPrice},
		{name: "anything else", err: errors.New("disk full"), want: StatusFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.err))
		})
	}
}

func TestTier_TargetValue(t *testing.T) {
	lower := decimal.NewFromInt(80)
	middle := decimal.NewFromInt(101)
	upper := decimal.NewFromInt(120)

	tests := []struct {
		tier Tier
		want decimal.Decimal
	}{
		// conservative is the middle band, not the range midpoint (100)
		{tier: TierConservative, want: decimal.NewFromInt(101)},
		// 80 + 40*0.7
		{tier: TierBalanced, want: decimal.NewFromInt(108)},
		{tier: TierAggressive, want: decimal.NewFromInt(120)},
		{tier: Tier("reckless"), want: decimal.NewFromInt(80)},
	}

	for _, tt := range tests {
		t.Run(string(tt.tier), func(t *testing.T) {
			got := tt.tier.TargetValue(lower, middle, upper)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestDailySeries_At(t *testing.T) {
	day := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	series := DailySeries{
		{Date: day, Value: decimal.NewFromInt(1)},
		{Date: day.AddDate(0, 0, 1), Value: decimal.NewFromInt(2)},
		{Date: day.AddDate(0, 0, 2), Value: decimal.NewFromInt(3)},
	}

	p, ok := series.At(day.Add(36 * time.Hour))
	require.True(t, ok)
	assert.True(t, p.Value.Equal(decimal.NewFromInt(2)))

	_, ok = series.At(day.AddDate(0, 0, -1))
	assert.False(t, ok)
	_, ok = series.At(day.AddDate(0, 0, 3))
	assert.False(t, ok)
	_, ok = DailySeries(nil).At(day)
	assert.False(t, ok)
}

func TestTimeframe_Latest(t *testing.T) {
	var nilTF *Timeframe
	_, ok := nilTF.LatestCandle()
	assert.False(t, ok)

	tf := &Timeframe{
		Candles:    []Candle{{Close: decimal.NewFromInt(1)}, {Close: decimal.NewFromInt(2)}},
		Indicators: []IndicatorPoint{{Close: decimal.NewFromInt(1)}},
	}
	c, ok := tf.LatestCandle()
	require.True(t, ok)
	assert.True(t, c.Close.Equal(decimal.NewFromInt(2)))

	// misaligned indicators are not trusted
	_, ok = tf.LatestIndicator()
	assert.False(t, ok)
}

func TestScope(t *testing.T) {
	account := Scope{AccountID: "acc-1"}
	product := Scope{AccountID: "acc-1", ProductID: "WIDGET"}

	assert.True(t, account.IsAccount())
	assert.Equal(t, "acc-1", account.String())
	assert.False(t, product.IsAccount())
	assert.Equal(t, "acc-1_WIDGET", product.String())
}

func TestAnalysisParams_WarmupStart(t *testing.T) {
	p := DefaultAnalysisParams()
	since := time.Date(2025, 4, 1, 15, 30, 0, 0, time.UTC)
	assert.True(t, p.WarmupStart(since).Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestDaysBetween(t *testing.T) {
	a := time.Date(2025, 3, 1, 23, 0, 0, 0, time.UTC)
	b := time.Date(2025, 3, 4, 1, 0, 0, 0, time.UTC)
	assert.Equal(t, 3, DaysBetween(a, b))
	assert.Equal(t, -3, DaysBetween(b, a))
}
