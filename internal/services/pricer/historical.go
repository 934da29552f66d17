package pricer

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/orderband/internal/domain"
)

// HistoricalAverage prices a product at the quantity-weighted mean unit price of its past
// order lines. A product with no quantity on record stays unresolved.
type HistoricalAverage struct {
	byProduct map[string][]domain.OrderEvent
}

// NewHistoricalAverage creates the fallback strategy over a request's order events.
func NewHistoricalAverage(byProduct map[string][]domain.OrderEvent) *HistoricalAverage {
	return &HistoricalAverage{byProduct: byProduct}
}

func (h *HistoricalAverage) Name() string {
	return string(domain.PriceSourceHistoricalAverage)
}

// Resolve never fails; it only prices what the history covers.
func (h *HistoricalAverage) Resolve(_ context.Context, productIDs []string) (map[string]domain.PriceEntry, error) {
	out := make(map[string]domain.PriceEntry, len(productIDs))
	for _, id := range productIDs {
		price, ok := WeightedAverage(h.byProduct[id])
		if !ok {
			continue
		}
		out[id] = domain.PriceEntry{ProductID: id, UnitPrice: price, Source: domain.PriceSourceHistoricalAverage}
	}
	return out, nil
}

// WeightedAverage returns Σ(quantity·unit_price) / Σquantity, false when Σquantity is zero.
func WeightedAverage(events []domain.OrderEvent) (decimal.Decimal, bool) {
	notional := decimal.Zero
	quantity := decimal.Zero
	for _, e := range events {
		notional = notional.Add(e.Notional())
		quantity = quantity.Add(e.Quantity)
	}
	if !quantity.IsPositive() {
		return decimal.Zero, false
	}
	return notional.Div(quantity), true
}
