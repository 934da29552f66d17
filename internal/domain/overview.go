package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MACDTrend reading of the last two MACD / signal pairs.
type MACDTrend string

const (
	MACDApproachingBullish MACDTrend = "approaching_bullish_crossover"
	MACDApproachingBearish MACDTrend = "approaching_bearish_crossover"
	MACDBullish            MACDTrend = "bullish"
	MACDTrendingLower      MACDTrend = "trending_lower"
)

// Title returns a human-readable representation.
func (t MACDTrend) Title() string {
	switch t {
	case MACDApproachingBullish:
		return "MACD approaching bullish crossover"
	case MACDApproachingBearish:
		return "MACD approaching bearish crossover"
	case MACDBullish:
		return "MACD confirms bullish trend"
	case MACDTrendingLower:
		return "MACD trending lower"
	default:
		return "Unknown"
	}
}

// VolumeTrend direction of recent ordered quantities.
type VolumeTrend string

const (
	VolumeIncreasing VolumeTrend = "increasing"
	VolumeDecreasing VolumeTrend = "decreasing"
	VolumeStable     VolumeTrend = "stable"
)

// SpendingTargets account-wide order value per tier over the overview horizon.
type SpendingTargets struct {
	Conservative decimal.Decimal `json:"conservative"`
	Balanced     decimal.Decimal `json:"balanced"`
	Aggressive   decimal.Decimal `json:"aggressive"`
}

// Add accumulates the dollar value of a recommendation into its tier.
func (s *SpendingTargets) Add(rec Recommendation) {
	switch rec.Tier {
	case TierConservative:
		s.Conservative = s.Conservative.Add(rec.DollarValue)
	case TierBalanced:
		s.Balanced = s.Balanced.Add(rec.DollarValue)
	case TierAggressive:
		s.Aggressive = s.Aggressive.Add(rec.DollarValue)
	}
}

// WeekBucket products expected to reorder within one week after as_of.
type WeekBucket struct {
	// Number is 1 for the week starting at as_of.
	Number int       `json:"number"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	// Products in priority order.
	Products []string        `json:"products,omitempty"`
	Targets  SpendingTargets `json:"targets"`
	// Position is the mean band position of the week's products.
	Position decimal.NullDecimal `json:"position"`
}

// AccountOverview account-level summary of the opportunities ahead.
type AccountOverview struct {
	HorizonDays int         `json:"horizon_days"`
	MACDTrend   MACDTrend   `json:"macd_trend,omitempty"`
	VolumeTrend VolumeTrend `json:"volume_trend,omitempty"`
	// Targets sums every week of the timeline.
	Targets SpendingTargets `json:"targets"`
	// TrailingSpend is the order value placed in the HorizonDays up to as_of.
	TrailingSpend decimal.Decimal `json:"trailing_spend"`
	Weeks         []WeekBucket    `json:"weeks"`
	// FocusWeek is the Number of the week with the highest balanced target, 0 when no week has products.
	FocusWeek int `json:"focus_week,omitempty"`
}
