// Package recommender sizes reorders that lift a product's rolling order value to a band target.
package recommender

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/orderband/internal/domain"
)

// Recommend returns one recommendation per tier for the latest indicator point.
//
// A single order placed today is spread over windowDays once it rolls through the trailing
// average, so the required order value is the gap to the target times windowDays.
//
// Errors: ErrInvalidPrice when the unit price is not positive, ErrInsufficientHistory when
// the point has no bands. A degenerate band yields zero-quantity recommendations together
// with ErrDegenerateBand.
func Recommend(ip domain.IndicatorPoint, price domain.PriceEntry, windowDays int) ([]domain.Recommendation, error) {
	if !price.UnitPrice.IsPositive() {
		return nil, errors.Wrapf(domain.ErrInvalidPrice, "%s unit price %s", price.ProductID, price.UnitPrice.String())
	}
	if windowDays <= 0 {
		return nil, errors.Errorf("window_days must be positive, got %d", windowDays)
	}
	if !ip.HasBands() {
		return nil, errors.Wrapf(domain.ErrInsufficientHistory, "%s has no bollinger bands yet", price.ProductID)
	}

	lower, middle, upper := ip.BBLower.Decimal, ip.BBMiddle.Decimal, ip.BBUpper.Decimal
	degenerate := !upper.GreaterThan(lower)
	window := decimal.NewFromInt(int64(windowDays))

	recs := make([]domain.Recommendation, 0, len(domain.Tiers))
	for _, tier := range domain.Tiers {
		rec := domain.Recommendation{
			ProductID:   price.ProductID,
			Tier:        tier,
			TargetValue: tier.TargetValue(lower, middle, upper),
			Quantity:    decimal.Zero,
			DollarValue: decimal.Zero,
		}
		if !degenerate {
			rec.Quantity = Quantity(rec.TargetValue, ip.Close, window, price.UnitPrice)
			rec.DollarValue = rec.Quantity.Mul(price.UnitPrice)
		}
		recs = append(recs, rec)
	}

	if degenerate {
		return recs, errors.Wrapf(domain.ErrDegenerateBand, "%s band %s..%s", price.ProductID, lower.String(), upper.String())
	}
	return recs, nil
}

// Quantity returns the whole units needed to move current up to target, rounded half to even
// and never negative.
func Quantity(target, current, window, unitPrice decimal.Decimal) decimal.Decimal {
	if !current.LessThan(target) {
		return decimal.Zero
	}
	qty := target.Sub(current).Mul(window).Div(unitPrice).RoundBank(0)
	if qty.IsNegative() {
		return decimal.Zero
	}
	return qty
}
