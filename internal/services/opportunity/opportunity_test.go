package opportunity

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/orderband/internal/domain"
)

func product(id string, contribution, rsi, position float64, status domain.ProductStatus) domain.ProductReport {
	return domain.ProductReport{
		ProductID:       id,
		Status:          status,
		AvgContribution: decimal.NewFromFloat(contribution),
		Timeframe: domain.Timeframe{
			Candles: []domain.Candle{{Close: decimal.NewFromInt(1)}},
			Indicators: []domain.IndicatorPoint{{
				Close:       decimal.NewFromInt(1),
				RSI:         domain.Valid(decimal.NewFromFloat(rsi)),
				PositionPct: domain.Valid(decimal.NewFromFloat(position)),
			}},
		},
	}
}

func TestContributionRanks(t *testing.T) {
	ranks := ContributionRanks([]domain.ProductReport{
		product("small", 0.5, 40, 0.2, domain.StatusOK),
		product("big", 100, 40, 0.2, domain.StatusOK),
		product("mid", 20, 40, 0.2, domain.StatusOK),
		product("tie", 20, 40, 0.2, domain.StatusOK),
		product("edge", 1, 40, 0.2, domain.StatusOK),
		product("above", 1.5, 40, 0.2, domain.StatusOK),
	})

	// exactly 1% of the top product is not enough
	assert.Equal(t, map[string]int{"big": 1, "mid": 2, "tie": 3, "above": 4}, ranks)
	assert.Empty(t, ContributionRanks(nil))
	assert.Empty(t, ContributionRanks([]domain.ProductReport{product("zero", 0, 40, 0.2, domain.StatusOK)}))
}

func TestRank(t *testing.T) {
	products := []domain.ProductReport{
		product("A", 100, 30, 0.1, domain.StatusOK),
		product("B", 50, 60, 0.5, domain.StatusOK),
		product("C", 25, 20, 0.0, domain.StatusOK),
		product("hot", 80, 80, 0.2, domain.StatusOK),
		product("high", 70, 30, 0.95, domain.StatusOK),
		product("failed", 90, 10, 0.1, domain.StatusPriceUnresolved),
	}

	opps := Rank(products)
	require.Len(t, opps, 3)

	ids := []string{opps[0].ProductID, opps[1].ProductID, opps[2].ProductID}
	assert.Equal(t, []string{"A", "C", "B"}, ids)

	// A is rank 1 of 6, the failed, hot and high products still count: 0.5/6 + 0.3*30/75 + 0.2*0.1
	expected := decimal.NewFromFloat(0.5).Div(decimal.NewFromInt(6)).
		Add(decimal.NewFromFloat(0.12)).
		Add(decimal.NewFromFloat(0.02))
	assert.Equal(t, 1, opps[0].ContributionRank)
	assert.True(t, opps[0].PriorityScore.Sub(expected).Abs().LessThan(decimal.NewFromFloat(1e-12)), opps[0].PriorityScore.String())

	for i := 1; i < len(opps); i++ {
		assert.True(t, opps[i].PriorityScore.GreaterThanOrEqual(opps[i-1].PriorityScore))
	}
}

func TestRank_SkipsProductsWithoutIndicators(t *testing.T) {
	p := product("A", 10, 30, 0.1, domain.StatusOK)
	p.Timeframe.Indicators[0].PositionPct = decimal.NullDecimal{}

	assert.Empty(t, Rank([]domain.ProductReport{p}))
	assert.Empty(t, Rank(nil))
}
