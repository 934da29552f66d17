package domain

import "github.com/shopspring/decimal"

// IndicatorPoint indicator values derived for one candle.
//
// A field that is not Valid was not computed because the trailing window it needs is
// longer than the available history.
type IndicatorPoint struct {
	Close decimal.Decimal `json:"close"`
	// BBMiddle is the simple moving average of closes, also reported as the moving average.
	BBMiddle    decimal.NullDecimal `json:"bb_middle"`
	BBUpper     decimal.NullDecimal `json:"bb_upper"`
	BBLower     decimal.NullDecimal `json:"bb_lower"`
	RSI         decimal.NullDecimal `json:"rsi"`
	PositionPct decimal.NullDecimal `json:"position_pct"`
	RSIMA       decimal.NullDecimal `json:"rsi_ma"`
	VolumeSMA   decimal.NullDecimal `json:"volume_sma"`
	MACD        decimal.NullDecimal `json:"macd"`
	MACDSignal  decimal.NullDecimal `json:"macd_signal"`
	MACDHist    decimal.NullDecimal `json:"macd_hist"`
}

// MovingAverage returns the moving average of closes.
func (p IndicatorPoint) MovingAverage() decimal.NullDecimal {
	return p.BBMiddle
}

// HasBands reports whether all Bollinger values are available.
func (p IndicatorPoint) HasBands() bool {
	return p.BBUpper.Valid && p.BBMiddle.Valid && p.BBLower.Valid
}

// Valid wraps d as an available value.
func Valid(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

// RSITrend plain-language reading of an RSI value.
type RSITrend string

const (
	RSITrendVeryOpen          RSITrend = "very_open"
	RSITrendOpen              RSITrend = "open"
	RSITrendNeutral           RSITrend = "neutral"
	RSITrendResistant         RSITrend = "resistant"
	RSITrendStronglyResistant RSITrend = "strongly_resistant"
)

// Title returns a human-readable representation.
func (t RSITrend) Title() string {
	switch t {
	case RSITrendVeryOpen:
		return "Very open to ordering"
	case RSITrendOpen:
		return "Open to ordering"
	case RSITrendNeutral:
		return "Neutral"
	case RSITrendResistant:
		return "Resistant to ordering"
	case RSITrendStronglyResistant:
		return "Strongly resistant to ordering"
	default:
		return "Unknown"
	}
}

// BreachForecast days until the account's trailing level decays to a Bollinger level with no new orders.
type BreachForecast struct {
	DaysUntilLower  int `json:"days_until_lower"`
	DaysUntilMiddle int `json:"days_until_middle"`
}
