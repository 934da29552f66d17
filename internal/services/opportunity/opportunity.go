// Package opportunity ranks an account's products by how worthwhile a reorder push is.
package opportunity

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/orderband/internal/domain"
)

var (
	minContributionShare = decimal.NewFromFloat(0.01)
	maxRSI               = decimal.NewFromInt(75)
	maxPosition          = decimal.NewFromFloat(0.9)

	rankWeight     = decimal.NewFromFloat(0.5)
	rsiWeight      = decimal.NewFromFloat(0.3)
	positionWeight = decimal.NewFromFloat(0.2)
)

// ContributionRanks ranks products by average daily contribution, 1 being the largest.
// Products contributing no more than 1% of the top product are left out.
func ContributionRanks(products []domain.ProductReport) map[string]int {
	top := decimal.Zero
	for _, p := range products {
		if p.AvgContribution.GreaterThan(top) {
			top = p.AvgContribution
		}
	}
	if !top.IsPositive() {
		return map[string]int{}
	}

	floor := top.Mul(minContributionShare)
	ranked := make([]domain.ProductReport, 0, len(products))
	for _, p := range products {
		if p.AvgContribution.GreaterThan(floor) {
			ranked = append(ranked, p)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if !ranked[i].AvgContribution.Equal(ranked[j].AvgContribution) {
			return ranked[i].AvgContribution.GreaterThan(ranked[j].AvgContribution)
		}
		return ranked[i].ProductID < ranked[j].ProductID
	})

	ranks := make(map[string]int, len(ranked))
	for i, p := range ranked {
		ranks[p.ProductID] = i + 1
	}
	return ranks
}

// Rank returns the products worth pushing, lowest priority score first.
//
// score = 0.5·rank/ranked + 0.3·rsi/75 + 0.2·position. Candidates must be fully analyzed,
// with RSI at most 75 and the close no higher than 90% of the band. ranked counts every
// product with a contribution rank, including those that are not candidates.
func Rank(products []domain.ProductReport) []domain.Opportunity {
	ranks := ContributionRanks(products)
	if len(ranks) == 0 {
		return nil
	}
	n := decimal.NewFromInt(int64(len(ranks)))

	var out []domain.Opportunity
	for _, p := range products {
		rank, ok := ranks[p.ProductID]
		if !ok || p.Status != domain.StatusOK {
			continue
		}
		latest, ok := p.Timeframe.LatestIndicator()
		if !ok || !latest.RSI.Valid || !latest.PositionPct.Valid {
			continue
		}
		if latest.RSI.Decimal.GreaterThan(maxRSI) || latest.PositionPct.Decimal.GreaterThan(maxPosition) {
			continue
		}

		score := rankWeight.Mul(decimal.NewFromInt(int64(rank)).Div(n)).
			Add(rsiWeight.Mul(latest.RSI.Decimal.Div(maxRSI))).
			Add(positionWeight.Mul(latest.PositionPct.Decimal))

		out = append(out, domain.Opportunity{
			ProductID:        p.ProductID,
			ContributionRank: rank,
			PriorityScore:    score,
			RSI:              latest.RSI.Decimal,
			PositionPct:      latest.PositionPct.Decimal,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].PriorityScore.Equal(out[j].PriorityScore) {
			return out[i].PriorityScore.LessThan(out[j].PriorityScore)
		}
		return out[i].ProductID < out[j].ProductID
	})
	return out
}
