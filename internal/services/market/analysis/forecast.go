package analysis

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/orderband/internal/domain"
)

const (
	forecastLookback   = 90
	forecastMaxPeriods = 90
)

// Forecast estimates how many days of no new orders it takes for the trailing mean of
// closes to fall to the lower and middle bands of the latest point. Nil when bands are
// unavailable.
func Forecast(candles []domain.Candle, latest domain.IndicatorPoint, periodDays int) *domain.BreachForecast {
	if len(candles) == 0 || !latest.HasBands() {
		return nil
	}

	closes := domain.Closes(candles)
	if len(closes) > forecastLookback {
		closes = closes[len(closes)-forecastLookback:]
	}

	return &domain.BreachForecast{
		DaysUntilLower:  periodsUntil(closes, latest.Close, latest.BBLower.Decimal) * periodDays,
		DaysUntilMiddle: periodsUntil(closes, latest.Close, latest.BBMiddle.Decimal) * periodDays,
	}
}

// periodsUntil shifts empty periods into the window until its mean drops to level.
func periodsUntil(closes []decimal.Decimal, current, level decimal.Decimal) int {
	if !current.GreaterThan(level) || len(closes) == 0 {
		return 0
	}

	window := make([]decimal.Decimal, len(closes))
	copy(window, closes)
	n := decimal.NewFromInt(int64(len(window)))

	sum := decimal.Zero
	for _, c := range window {
		sum = sum.Add(c)
	}

	periods := 0
	for periods < forecastMaxPeriods {
		sum = sum.Sub(window[0])
		window = append(window[1:], decimal.Zero)
		if !sum.Div(n).GreaterThan(level) {
			break
		}
		periods++
	}
	return periods
}

// AverageOrderInterval returns the mean number of days between distinct order days,
// nil with fewer than two order days.
func AverageOrderInterval(events []domain.OrderEvent) *int {
	seen := make(map[int64]struct{})
	days := make([]int64, 0, len(events))
	for _, e := range events {
		if !e.Quantity.IsPositive() {
			continue
		}
		d := e.Day().Unix()
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		days = append(days, d)
	}
	if len(days) < 2 {
		return nil
	}

	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })
	span := (days[len(days)-1] - days[0]) / 86400
	avg := int(span) / (len(days) - 1)
	return &avg
}
