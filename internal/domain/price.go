package domain

import "github.com/shopspring/decimal"

// PriceSource origin of a resolved unit price.
type PriceSource string

const (
	// PriceSourceCatalog current catalog price.
	PriceSourceCatalog PriceSource = "catalog"
	// PriceSourceHistoricalAverage quantity-weighted average of past order lines.
	PriceSourceHistoricalAverage PriceSource = "historical_average"
)

// PriceEntry authoritative unit price of a product for one analysis run.
type PriceEntry struct {
	ProductID string          `json:"product_id"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Source    PriceSource     `json:"source"`
}
