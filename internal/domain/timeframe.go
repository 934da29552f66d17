package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DailyPoint one day of a daily series.
type DailyPoint struct {
	Date time.Time
	// Value is the trailing rolling average of daily notional order value.
	Value decimal.Decimal
	// Volume is the quantity ordered on this day.
	Volume decimal.Decimal
	// Notional is the raw order value placed on this day.
	Notional decimal.Decimal
}

// DailySeries contiguous, date-ascending daily points.
type DailySeries []DailyPoint

// Start returns the first date of the series.
func (s DailySeries) Start() (time.Time, bool) {
	if len(s) == 0 {
		return time.Time{}, false
	}
	return s[0].Date, true
}

// At returns the point for the given day.
func (s DailySeries) At(day time.Time) (DailyPoint, bool) {
	start, ok := s.Start()
	if !ok {
		return DailyPoint{}, false
	}
	idx := DaysBetween(start, day)
	if idx < 0 || idx >= len(s) {
		return DailyPoint{}, false
	}
	return s[idx], true
}

// Candle one fixed-length slice of a daily series.
//
// Live is decided by the candle constructor only: a live candle is the last one of a
// sequence and its period has not yet elapsed relative to the analysis date. Its Close is
// the series value at the analysis date; a closed candle's Close is the value at PeriodEnd.
type Candle struct {
	PeriodStart time.Time       `json:"period_start"`
	PeriodEnd   time.Time       `json:"period_end"`
	Open        decimal.Decimal `json:"open"`
	High        decimal.Decimal `json:"high"`
	Low         decimal.Decimal `json:"low"`
	Close       decimal.Decimal `json:"close"`
	Volume      decimal.Decimal `json:"volume"`
	Live        bool            `json:"is_live"`
}

// Closes returns the close of every candle.
func Closes(candles []Candle) []decimal.Decimal {
	out := make([]decimal.Decimal, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

// Volumes returns the volume of every candle.
func Volumes(candles []Candle) []decimal.Decimal {
	out := make([]decimal.Decimal, len(candles))
	for i, c := range candles {
		out[i] = c.Volume
	}
	return out
}

// Timeframe candles with their aligned indicator points.
type Timeframe struct {
	Candles    []Candle         `json:"candles"`
	Indicators []IndicatorPoint `json:"indicators"`
}

// LatestCandle returns the most recent candle.
func (t *Timeframe) LatestCandle() (Candle, bool) {
	if t == nil || len(t.Candles) == 0 {
		return Candle{}, false
	}
	return t.Candles[len(t.Candles)-1], true
}

// LatestIndicator returns the indicator point of the most recent candle.
func (t *Timeframe) LatestIndicator() (IndicatorPoint, bool) {
	if t == nil || len(t.Indicators) == 0 || len(t.Indicators) != len(t.Candles) {
		return IndicatorPoint{}, false
	}
	return t.Indicators[len(t.Indicators)-1], true
}
