package domain

import "github.com/shopspring/decimal"

// Tier target confidence level of a recommendation.
type Tier string

const (
	TierConservative Tier = "conservative"
	TierBalanced     Tier = "balanced"
	TierAggressive   Tier = "aggressive"
)

// Tiers lists tiers in ascending target percentile.
var Tiers = []Tier{TierConservative, TierBalanced, TierAggressive}

// Percentile returns the share of the Bollinger range the tier targets.
func (t Tier) Percentile() decimal.Decimal {
	switch t {
	case TierConservative:
		return decimal.NewFromFloat(0.5)
	case TierBalanced:
		return decimal.NewFromFloat(0.7)
	case TierAggressive:
		return decimal.NewFromInt(1)
	default:
		return decimal.Zero
	}
}

// TargetValue returns the band level the tier aims for.
// Conservative targets the middle band itself rather than the arithmetic midpoint.
func (t Tier) TargetValue(lower, middle, upper decimal.Decimal) decimal.Decimal {
	switch t {
	case TierConservative:
		return middle
	case TierAggressive:
		return upper
	default:
		return lower.Add(upper.Sub(lower).Mul(t.Percentile()))
	}
}

// Recommendation order size needed to lift a product to a tier's target.
type Recommendation struct {
	ProductID   string          `json:"product_id"`
	Tier        Tier            `json:"tier"`
	TargetValue decimal.Decimal `json:"target_value"`
	Quantity    decimal.Decimal `json:"quantity"`
	DollarValue decimal.Decimal `json:"dollar_value"`
}
