package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	DefaultPeriodDays = 3
	DefaultWindowDays = 90
	DefaultBBWindow   = 20
	DefaultRSIWindow  = 14
)

// DefaultBBK default number of standard deviations between the middle and outer bands.
var DefaultBBK = decimal.NewFromInt(2)

// AnalysisParams tuning of the candle and indicator stages.
type AnalysisParams struct {
	PeriodDays int             `json:"period_days" yaml:"period_days"`
	WindowDays int             `json:"window_days" yaml:"window_days"`
	BBWindow   int             `json:"bb_window" yaml:"bb_window"`
	BBK        decimal.Decimal `json:"bb_k" yaml:"bb_k"`
	RSIWindow  int             `json:"rsi_window" yaml:"rsi_window"`
}

// DefaultAnalysisParams returns the stock parameters.
func DefaultAnalysisParams() AnalysisParams {
	return AnalysisParams{
		PeriodDays: DefaultPeriodDays,
		WindowDays: DefaultWindowDays,
		BBWindow:   DefaultBBWindow,
		BBK:        DefaultBBK,
		RSIWindow:  DefaultRSIWindow,
	}
}

// WarmupStart returns how far before since order history must reach for the
// rolling average to be fully populated at since.
func (p AnalysisParams) WarmupStart(since time.Time) time.Time {
	return Day(since).AddDate(0, 0, -p.WindowDays)
}
