// Package pricer resolves the unit price each product is valued at during one analysis run.
package pricer

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/vadiminshakov/orderband/internal/domain"
)

// Strategy resolves prices for a batch of products. Products it cannot price are left out of
// the result; an error means the whole batch failed.
type Strategy interface {
	Name() string
	Resolve(ctx context.Context, productIDs []string) (map[string]domain.PriceEntry, error)
}

// Chain tries strategies in order. Each strategy only sees the products still unresolved by
// the ones before it.
type Chain struct {
	strategies []Strategy
	logger     *zap.Logger
}

// NewChain creates a resolver chain.
func NewChain(logger *zap.Logger, strategies ...Strategy) *Chain {
	return &Chain{strategies: strategies, logger: logger}
}

// Resolve returns a price for every product some strategy could price, plus the sorted ids of
// the products none could.
func (c *Chain) Resolve(ctx context.Context, productIDs []string) (map[string]domain.PriceEntry, []string) {
	resolved := make(map[string]domain.PriceEntry, len(productIDs))
	pending := uniqueSorted(productIDs)

	for _, s := range c.strategies {
		if len(pending) == 0 {
			break
		}
		if err := ctx.Err(); err != nil {
			c.logger.Warn("price resolution interrupted", zap.Error(err))
			break
		}

		prices, err := s.Resolve(ctx, pending)
		if err != nil {
			c.logger.Warn("price strategy failed, falling through",
				zap.String("strategy", s.Name()),
				zap.Int("products", len(pending)),
				zap.Error(err),
			)
			continue
		}

		next := pending[:0:0]
		for _, id := range pending {
			entry, ok := prices[id]
			if !ok {
				next = append(next, id)
				continue
			}
			entry.ProductID = id
			resolved[id] = entry
		}
		pending = next
	}

	for _, id := range pending {
		c.logger.Warn("price unresolved", zap.String("product", id))
	}

	return resolved, pending
}

func uniqueSorted(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
