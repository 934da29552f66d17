// Package indicators provides technical analysis indicators (SMA, Bollinger Bands, RSI, MACD)
// over decimal series.
//
// Every function returns a slice aligned with its input: index i of the result belongs to
// index i of the input, and entries inside the warm-up period are not Valid.
package indicators

import (
	"fmt"
	"math"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/momentum"
	"github.com/cinar/indicator/v2/trend"
	"github.com/shopspring/decimal"
)

const (
	macdSlowPeriod   = 26
	macdSignalPeriod = 9
)

// Bands Bollinger Bands aligned with the input closes.
type Bands struct {
	Upper  []decimal.NullDecimal
	Middle []decimal.NullDecimal
	Lower  []decimal.NullDecimal
}

// CalculateSMA calculates the Simple Moving Average for the given period.
func CalculateSMA(values []decimal.Decimal, period int) ([]decimal.NullDecimal, error) {
	if period <= 0 {
		return nil, fmt.Errorf("period must be positive, got %d", period)
	}
	if len(values) < period {
		return unavailable(len(values)), nil
	}

	sma := trend.NewSmaWithPeriod[float64](period)
	out := helper.ChanToSlice(sma.Compute(helper.SliceToChan(decimalsToFloat64(values))))

	return alignTail(out, len(values), period-1), nil
}

// CalculateSMANullable calculates the SMA of a series with a leading unavailable run.
func CalculateSMANullable(values []decimal.NullDecimal, period int) ([]decimal.NullDecimal, error) {
	first := len(values)
	for i, v := range values {
		if v.Valid {
			first = i
			break
		}
	}
	dense := make([]decimal.Decimal, 0, len(values)-first)
	for _, v := range values[first:] {
		if !v.Valid {
			return nil, fmt.Errorf("series has a gap at index %d", first+len(dense))
		}
		dense = append(dense, v.Decimal)
	}

	sma, err := CalculateSMA(dense, period)
	if err != nil {
		return nil, err
	}

	return append(unavailable(first), sma...), nil
}

// CalculateBollinger calculates Bollinger Bands with k population standard deviations over the
// given period. A candle gets bands only when a full period of closes ends at it.
//
// Computed in decimal so that a flat window yields upper == lower exactly.
func CalculateBollinger(closes []decimal.Decimal, period int, k decimal.Decimal) (Bands, error) {
	if period <= 1 {
		return Bands{}, fmt.Errorf("bollinger period must be greater than 1, got %d", period)
	}
	if !k.IsPositive() {
		return Bands{}, fmt.Errorf("bollinger k must be positive, got %s", k.String())
	}

	n := len(closes)
	bands := Bands{Upper: unavailable(n), Middle: unavailable(n), Lower: unavailable(n)}
	p := decimal.NewFromInt(int64(period))

	for idx := period - 1; idx < n; idx++ {
		window := closes[idx-period+1 : idx+1]

		sum := decimal.Zero
		for _, c := range window {
			sum = sum.Add(c)
		}
		mid := sum.Div(p)

		variance := decimal.Zero
		for _, c := range window {
			d := c.Sub(mid)
			variance = variance.Add(d.Mul(d))
		}
		variance = variance.Div(p)

		std := decimal.Zero
		if variance.IsPositive() {
			f, _ := variance.Float64()
			std = decimal.NewFromFloat(math.Sqrt(f))
		}
		width := std.Mul(k)

		bands.Middle[idx] = valid(mid)
		bands.Upper[idx] = valid(mid.Add(width))
		bands.Lower[idx] = valid(mid.Sub(width))
	}

	return bands, nil
}

// CalculateRSI calculates the Wilder Relative Strength Index for the given period.
// The first value is produced once period changes (period+1 closes) are available.
func CalculateRSI(closes []decimal.Decimal, period int) ([]decimal.NullDecimal, error) {
	if period <= 0 {
		return nil, fmt.Errorf("period must be positive, got %d", period)
	}
	if len(closes) < period+1 {
		return unavailable(len(closes)), nil
	}

	rsi := momentum.NewRsiWithPeriod[float64](period)
	out := helper.ChanToSlice(rsi.Compute(helper.SliceToChan(decimalsToFloat64(closes))))

	result := alignTail(out, len(closes), period)
	for i, v := range result {
		if !v.Valid {
			continue
		}
		result[i] = valid(clampRSI(v.Decimal))
	}

	// flat windows give 0/0 in the library; no gains and no losses reads as neutral
	offset := len(closes) - len(out)
	for i, f := range out {
		idx := offset + i
		if idx >= period && math.IsNaN(f) {
			result[idx] = valid(decimal.NewFromInt(50))
		}
	}

	return result, nil
}

// CalculateMACD calculates MACD line, signal line and histogram with the standard 12/26/9 periods.
func CalculateMACD(closes []decimal.Decimal) (macd, signal, hist []decimal.NullDecimal, _ error) {
	n := len(closes)
	if n < macdSlowPeriod {
		return unavailable(n), unavailable(n), unavailable(n), nil
	}

	m := trend.NewMacd[float64]()
	macdChan, signalChan := m.Compute(helper.SliceToChan(decimalsToFloat64(closes)))

	var signalFloat []float64
	done := make(chan struct{})
	go func() {
		signalFloat = helper.ChanToSlice(signalChan)
		close(done)
	}()
	macdFloat := helper.ChanToSlice(macdChan)
	<-done

	macd = alignTail(macdFloat, n, macdSlowPeriod-1)
	signal = alignTail(signalFloat, n, macdSlowPeriod+macdSignalPeriod-2)
	hist = unavailable(n)
	for i := range hist {
		if macd[i].Valid && signal[i].Valid {
			hist[i] = valid(macd[i].Decimal.Sub(signal[i].Decimal))
		}
	}

	return macd, signal, hist, nil
}

// alignTail places library output at the end of an n-long series; indices below minIdx stay unavailable.
func alignTail(out []float64, n, minIdx int) []decimal.NullDecimal {
	result := unavailable(n)
	offset := n - len(out)
	for i, f := range out {
		idx := offset + i
		if idx < 0 || idx < minIdx || !finite(f) {
			continue
		}
		result[idx] = valid(decimal.NewFromFloat(f))
	}
	return result
}

func clampRSI(v decimal.Decimal) decimal.Decimal {
	hundred := decimal.NewFromInt(100)
	if v.IsNegative() {
		return decimal.Zero
	}
	if v.GreaterThan(hundred) {
		return hundred
	}
	return v
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func unavailable(n int) []decimal.NullDecimal {
	return make([]decimal.NullDecimal, n)
}

func valid(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

// decimalsToFloat64 converts a slice of decimal.Decimal to []float64.
func decimalsToFloat64(decimals []decimal.Decimal) []float64 {
	result := make([]float64, len(decimals))
	for i, d := range decimals {
		result[i], _ = d.Float64()
	}
	return result
}
