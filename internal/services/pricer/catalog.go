package pricer

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/orderband/internal/domain"
)

// Catalog is a batched source of current unit prices. Products without a price are absent
// from the returned map.
type Catalog interface {
	Prices(ctx context.Context, productIDs []string) (map[string]decimal.Decimal, error)
}

// CatalogStrategy prices products from a catalog in a single call.
type CatalogStrategy struct {
	catalog Catalog
}

// NewCatalogStrategy creates a catalog-backed strategy.
func NewCatalogStrategy(catalog Catalog) *CatalogStrategy {
	return &CatalogStrategy{catalog: catalog}
}

func (s *CatalogStrategy) Name() string {
	return string(domain.PriceSourceCatalog)
}

// Resolve looks up all products in one catalog request.
func (s *CatalogStrategy) Resolve(ctx context.Context, productIDs []string) (map[string]domain.PriceEntry, error) {
	prices, err := s.catalog.Prices(ctx, productIDs)
	if err != nil {
		return nil, errors.Wrap(err, "catalog lookup")
	}

	out := make(map[string]domain.PriceEntry, len(prices))
	for _, id := range productIDs {
		price, ok := prices[id]
		if !ok {
			continue
		}
		out[id] = domain.PriceEntry{ProductID: id, UnitPrice: price, Source: domain.PriceSourceCatalog}
	}
	return out, nil
}

// StaticCatalog in-memory catalog, e.g. loaded from the config file.
type StaticCatalog map[string]decimal.Decimal

// Prices returns the known prices among productIDs.
func (c StaticCatalog) Prices(_ context.Context, productIDs []string) (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal, len(productIDs))
	for _, id := range productIDs {
		if p, ok := c[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}
