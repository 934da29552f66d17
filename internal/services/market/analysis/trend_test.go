package analysis

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/vadiminshakov/orderband/internal/domain"
)

func macdPoint(macd, signal float64) domain.IndicatorPoint {
	return domain.IndicatorPoint{
		MACD:       domain.Valid(decimal.NewFromFloat(macd)),
		MACDSignal: domain.Valid(decimal.NewFromFloat(signal)),
	}
}

func TestMACDTrendFor(t *testing.T) {
	tests := []struct {
		name     string
		points   []domain.IndicatorPoint
		expected domain.MACDTrend
	}{
		{name: "below signal, gap closing", points: []domain.IndicatorPoint{macdPoint(-3, 0), macdPoint(-1, 0)}, expected: domain.MACDApproachingBullish},
		{name: "above signal, gap closing", points: []domain.IndicatorPoint{macdPoint(3, 0), macdPoint(1, 0)}, expected: domain.MACDApproachingBearish},
		{name: "above signal, gap widening", points: []domain.IndicatorPoint{macdPoint(1, 0), macdPoint(3, 0)}, expected: domain.MACDBullish},
		{name: "below signal, gap widening", points: []domain.IndicatorPoint{macdPoint(-1, 0), macdPoint(-3, 0)}, expected: domain.MACDTrendingLower},
		{name: "unchanged gap", points: []domain.IndicatorPoint{macdPoint(2, 1), macdPoint(2, 1)}, expected: domain.MACDBullish},
		{name: "single point", points: []domain.IndicatorPoint{macdPoint(1, 0)}, expected: ""},
		{name: "warm-up", points: []domain.IndicatorPoint{{}, macdPoint(1, 0)}, expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MACDTrendFor(tt.points))
		})
	}
}

func TestVolumeTrendFor(t *testing.T) {
	vols := func(values ...int64) []decimal.Decimal {
		out := make([]decimal.Decimal, len(values))
		for i, v := range values {
			out[i] = decimal.NewFromInt(v)
		}
		return out
	}

	tests := []struct {
		name     string
		volumes  []decimal.Decimal
		expected domain.VolumeTrend
	}{
		{name: "rising", volumes: vols(50, 10, 11, 12, 13, 14), expected: domain.VolumeIncreasing},
		{name: "falling", volumes: vols(14, 13, 12, 11, 10), expected: domain.VolumeDecreasing},
		{name: "flat", volumes: vols(10, 10, 10, 10, 10), expected: domain.VolumeStable},
		// slope 0.3 over 5 periods on a mean of 100.4 is about 1.5%
		{name: "drift below threshold", volumes: vols(100, 100, 100, 101, 101), expected: domain.VolumeStable},
		{name: "no volume", volumes: vols(0, 0, 0, 0, 0), expected: domain.VolumeStable},
		{name: "too short", volumes: vols(1, 2, 3), expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, VolumeTrendFor(tt.volumes, VolumeTrendPeriods))
		})
	}
}
