package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductReport analysis outcome for one product of an account.
type ProductReport struct {
	ProductID string        `json:"product_id"`
	Status    ProductStatus `json:"status"`
	// Error describes why Status is not ok.
	Error             string           `json:"error,omitempty"`
	Timeframe         Timeframe        `json:"timeframe"`
	Price             *PriceEntry      `json:"price,omitempty"`
	Recommendations   []Recommendation `json:"recommendations,omitempty"`
	Forecast          *BreachForecast  `json:"forecast,omitempty"`
	OrderIntervalDays *int             `json:"order_interval_days,omitempty"`
	RSITrend          RSITrend         `json:"rsi_trend,omitempty"`
	// AvgContribution is the mean daily order value of the product.
	AvgContribution decimal.Decimal `json:"avg_contribution"`
}

// Opportunity ranked product worth reordering.
type Opportunity struct {
	ProductID        string          `json:"product_id"`
	ContributionRank int             `json:"contribution_rank"`
	PriorityScore    decimal.Decimal `json:"priority_score"`
	RSI              decimal.Decimal `json:"rsi"`
	PositionPct      decimal.Decimal `json:"position_pct"`
}

// AccountReport full result of one analysis request.
type AccountReport struct {
	RunID     string         `json:"run_id"`
	AccountID string         `json:"account_id"`
	AsOf      time.Time      `json:"as_of"`
	Params    AnalysisParams `json:"params"`
	// Account is the account-wide timeframe across all products.
	Account         Timeframe       `json:"account"`
	AccountRSITrend RSITrend        `json:"account_rsi_trend,omitempty"`
	Products        []ProductReport `json:"products"`
	// Discarded counts malformed input events that were dropped.
	Discarded     int              `json:"discarded"`
	Unresolved    []string         `json:"unresolved,omitempty"`
	Opportunities []Opportunity    `json:"opportunities,omitempty"`
	Overview      *AccountOverview `json:"overview,omitempty"`
}

// Product returns the report of a product.
func (r *AccountReport) Product(productID string) (ProductReport, bool) {
	if r == nil {
		return ProductReport{}, false
	}
	for _, p := range r.Products {
		if p.ProductID == productID {
			return p, true
		}
	}
	return ProductReport{}, false
}

// AccountReportRecord bundles a journaled report with its index.
type AccountReportRecord struct {
	Index  uint64
	Report AccountReport
}
