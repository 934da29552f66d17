package opportunity

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/orderband/internal/domain"
)

const daysPerWeek = 7

// Timeline places every opportunity in the week after asOf when its next order is due,
// asOf plus its average order interval, and sums its tier dollar values into that week.
// Weeks cover horizonDays from asOf; opportunities due later, or without an order
// interval or recommendations, are left out.
func Timeline(asOf time.Time, horizonDays int, products []domain.ProductReport, opps []domain.Opportunity) []domain.WeekBucket {
	if horizonDays <= 0 {
		return nil
	}
	start := domain.Day(asOf)
	weeks := make([]domain.WeekBucket, (horizonDays+daysPerWeek-1)/daysPerWeek)
	for i := range weeks {
		weeks[i] = domain.WeekBucket{
			Number: i + 1,
			Start:  start.AddDate(0, 0, i*daysPerWeek),
			End:    start.AddDate(0, 0, i*daysPerWeek+daysPerWeek-1),
		}
	}

	byID := make(map[string]domain.ProductReport, len(products))
	for _, p := range products {
		byID[p.ProductID] = p
	}

	positions := make([]decimal.Decimal, len(weeks))
	for _, o := range opps {
		p, ok := byID[o.ProductID]
		if !ok || p.OrderIntervalDays == nil || len(p.Recommendations) == 0 {
			continue
		}
		w := *p.OrderIntervalDays / daysPerWeek
		if w < 0 || w >= len(weeks) {
			continue
		}

		weeks[w].Products = append(weeks[w].Products, o.ProductID)
		for _, rec := range p.Recommendations {
			weeks[w].Targets.Add(rec)
		}
		positions[w] = positions[w].Add(o.PositionPct)
	}

	for i := range weeks {
		if n := len(weeks[i].Products); n > 0 {
			weeks[i].Position = domain.Valid(positions[i].Div(decimal.NewFromInt(int64(n))))
		}
	}
	return weeks
}

// NewOverview summarizes the opportunities of an account over horizonDays after asOf.
// Trend labels and trailing spend come from the account series and are left to the caller.
func NewOverview(asOf time.Time, horizonDays int, products []domain.ProductReport, opps []domain.Opportunity) domain.AccountOverview {
	ov := domain.AccountOverview{
		HorizonDays: horizonDays,
		Weeks:       Timeline(asOf, horizonDays, products, opps),
	}

	focus := -1
	for i, w := range ov.Weeks {
		ov.Targets.Conservative = ov.Targets.Conservative.Add(w.Targets.Conservative)
		ov.Targets.Balanced = ov.Targets.Balanced.Add(w.Targets.Balanced)
		ov.Targets.Aggressive = ov.Targets.Aggressive.Add(w.Targets.Aggressive)
		if focus < 0 || w.Targets.Balanced.GreaterThan(ov.Weeks[focus].Targets.Balanced) {
			focus = i
		}
	}
	if focus >= 0 && len(ov.Weeks[focus].Products) > 0 {
		ov.FocusWeek = ov.Weeks[focus].Number
	}
	return ov
}
