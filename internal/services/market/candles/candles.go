// Package candles turns order events into a smoothed daily series and buckets that series
// into fixed-period candles.
package candles

import (
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/orderband/internal/domain"
)

// Params candle construction settings.
type Params struct {
	// PeriodDays is the candle length in days.
	PeriodDays int
	// WindowDays is the trailing window of the rolling average.
	WindowDays int
	// AsOf is the analysis date; events after it are ignored.
	AsOf time.Time
	// Start optionally extends the series back before the first event.
	Start time.Time
	// Since optionally anchors the first candle; earlier days only feed the rolling average.
	Since time.Time
}

// Validate checks the settings.
func (p Params) Validate() error {
	if p.PeriodDays <= 0 {
		return errors.Errorf("period_days must be positive, got %d", p.PeriodDays)
	}
	if p.WindowDays <= 0 {
		return errors.Errorf("window_days must be positive, got %d", p.WindowDays)
	}
	if p.AsOf.IsZero() {
		return errors.New("as_of is required")
	}
	return nil
}

// BuildDailySeries aggregates events into daily notional order value and smooths it with a
// trailing WindowDays average. Days without orders contribute zero, as do days before the
// series start. The series runs from the earlier of Start and the first event day through AsOf.
func BuildDailySeries(events []domain.OrderEvent, p Params) (domain.DailySeries, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	asOf := domain.Day(p.AsOf)
	start := time.Time{}
	if !p.Start.IsZero() {
		start = domain.Day(p.Start)
	}
	for _, e := range events {
		day := e.Day()
		if day.After(asOf) {
			continue
		}
		if start.IsZero() || day.Before(start) {
			start = day
		}
	}
	if start.IsZero() || start.After(asOf) {
		return nil, nil
	}

	days := domain.DaysBetween(start, asOf) + 1
	notional := make([]decimal.Decimal, days)
	volume := make([]decimal.Decimal, days)
	for i := range notional {
		notional[i] = decimal.Zero
		volume[i] = decimal.Zero
	}
	for _, e := range events {
		idx := domain.DaysBetween(start, e.Day())
		if idx < 0 || idx >= days {
			continue
		}
		notional[idx] = notional[idx].Add(e.Notional())
		volume[idx] = volume[idx].Add(e.Quantity)
	}

	window := decimal.NewFromInt(int64(p.WindowDays))
	series := make(domain.DailySeries, days)
	running := decimal.Zero
	for i := 0; i < days; i++ {
		running = running.Add(notional[i])
		if i >= p.WindowDays {
			running = running.Sub(notional[i-p.WindowDays])
		}
		series[i] = domain.DailyPoint{
			Date:     start.AddDate(0, 0, i),
			Value:    running.Div(window),
			Volume:   volume[i],
			Notional: notional[i],
		}
	}

	return series, nil
}

// BuildCandles buckets the daily series of events into consecutive PeriodDays candles,
// oldest first.
//
// A bucket whose last day is on or before AsOf is closed and closes at that day's value.
// Otherwise it is the live candle: it closes at the AsOf value and its high and low only
// cover days through AsOf. Fewer than PeriodDays of history yields no candles.
func BuildCandles(events []domain.OrderEvent, p Params) ([]domain.Candle, error) {
	series, err := BuildDailySeries(events, p)
	if err != nil {
		return nil, err
	}
	return FromSeries(series, p)
}

// FromSeries buckets an already built daily series.
func FromSeries(series domain.DailySeries, p Params) ([]domain.Candle, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if len(series) == 0 {
		return nil, nil
	}

	anchor := 0
	if !p.Since.IsZero() {
		anchor = domain.DaysBetween(series[0].Date, p.Since)
		if anchor < 0 {
			anchor = 0
		}
	}
	if len(series)-anchor < p.PeriodDays {
		return nil, nil
	}

	last := len(series) - 1
	candles := make([]domain.Candle, 0, (len(series)-anchor+p.PeriodDays-1)/p.PeriodDays)
	for startIdx := anchor; startIdx <= last; startIdx += p.PeriodDays {
		endIdx := startIdx + p.PeriodDays - 1
		live := endIdx > last
		throughIdx := endIdx
		if live {
			throughIdx = last
		}

		high := series[startIdx].Value
		low := series[startIdx].Value
		vol := decimal.Zero
		for i := startIdx; i <= throughIdx; i++ {
			v := series[i].Value
			if v.GreaterThan(high) {
				high = v
			}
			if v.LessThan(low) {
				low = v
			}
			vol = vol.Add(series[i].Volume)
		}

		periodStart := series[startIdx].Date
		candles = append(candles, domain.Candle{
			PeriodStart: periodStart,
			PeriodEnd:   periodStart.AddDate(0, 0, p.PeriodDays-1),
			Open:        series[startIdx].Value,
			High:        high,
			Low:         low,
			Close:       series[throughIdx].Value,
			Volume:      vol,
			Live:        live,
		})
	}

	return candles, nil
}
