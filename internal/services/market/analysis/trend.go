package analysis

import (
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/orderband/internal/domain"
)

// VolumeTrendPeriods is how many trailing candles VolumeTrendFor fits.
const VolumeTrendPeriods = 5

var volumeTrendThreshold = decimal.NewFromInt(5)

// MACDTrendFor reads the last two points with MACD and signal. A narrowing gap is an
// approaching crossover; otherwise the side of the signal line gives the trend.
func MACDTrendFor(points []domain.IndicatorPoint) domain.MACDTrend {
	if len(points) < 2 {
		return ""
	}
	last, prev := points[len(points)-1], points[len(points)-2]
	if !last.MACD.Valid || !last.MACDSignal.Valid || !prev.MACD.Valid || !prev.MACDSignal.Valid {
		return ""
	}

	macd, signal := last.MACD.Decimal, last.MACDSignal.Decimal
	gap := macd.Sub(signal).Abs()
	prevGap := prev.MACD.Decimal.Sub(prev.MACDSignal.Decimal).Abs()

	if gap.LessThan(prevGap) {
		if macd.LessThan(signal) {
			return domain.MACDApproachingBullish
		}
		return domain.MACDApproachingBearish
	}
	if macd.GreaterThan(signal) {
		return domain.MACDBullish
	}
	return domain.MACDTrendingLower
}

// VolumeTrendFor fits a least-squares line through the last periods volumes and compares the
// change it predicts over those periods with their mean: beyond ±5% is a trend.
func VolumeTrendFor(volumes []decimal.Decimal, periods int) domain.VolumeTrend {
	if periods < 2 || len(volumes) < periods {
		return ""
	}
	recent := volumes[len(volumes)-periods:]
	n := decimal.NewFromInt(int64(periods))

	sum := decimal.Zero
	for _, v := range recent {
		sum = sum.Add(v)
	}
	mean := sum.Div(n)
	if mean.IsZero() {
		return domain.VolumeStable
	}

	xMean := decimal.NewFromInt(int64(periods - 1)).Div(decimal.NewFromInt(2))
	num, den := decimal.Zero, decimal.Zero
	for i, v := range recent {
		dx := decimal.NewFromInt(int64(i)).Sub(xMean)
		num = num.Add(dx.Mul(v.Sub(mean)))
		den = den.Add(dx.Mul(dx))
	}
	slope := num.Div(den)

	pct := slope.Mul(n).Div(mean).Mul(decimal.NewFromInt(100))
	switch {
	case pct.GreaterThan(volumeTrendThreshold):
		return domain.VolumeIncreasing
	case pct.LessThan(volumeTrendThreshold.Neg()):
		return domain.VolumeDecreasing
	default:
		return domain.VolumeStable
	}
}
