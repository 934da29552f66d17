// Package collector provides utilities for collecting order lines from an order source
// and turning them into validated order events.
package collector

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/orderband/internal/domain"
)

const fetchTimeout = 30 * time.Second

// OrderSource defines the interface for fetching raw order lines of an account.
type OrderSource interface {
	// Orders returns order lines shipped in [from, to]. A zero from means no lower bound.
	Orders(ctx context.Context, accountID string, from, to time.Time) ([]domain.RawOrder, error)
}

// OrderCollector fetches and normalizes the order history of an account.
type OrderCollector struct {
	source OrderSource
	logger *zap.Logger
}

// NewOrderCollector creates a new order collector.
func NewOrderCollector(source OrderSource, logger *zap.Logger) *OrderCollector {
	return &OrderCollector{source: source, logger: logger}
}

// Fetch loads raw order lines for the account.
func (c *OrderCollector) Fetch(ctx context.Context, accountID string, from, to time.Time) ([]domain.RawOrder, error) {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	raw, err := c.source.Orders(ctxWithTimeout, accountID, from, to)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch orders for account %s", accountID)
	}

	c.logger.Debug("orders fetched",
		zap.String("account", accountID),
		zap.Int("lines", len(raw)),
	)

	return raw, nil
}

// Normalize validates raw order lines. Lines missing a timestamp or product, or with a
// missing or negative quantity or unit price, are dropped and counted.
// The result is sorted by timestamp.
func Normalize(raw []domain.RawOrder) (events []domain.OrderEvent, discarded int) {
	events = make([]domain.OrderEvent, 0, len(raw))
	for _, r := range raw {
		if r.Timestamp == nil || r.Timestamp.IsZero() || r.ProductID == "" {
			discarded++
			continue
		}
		if r.Quantity == nil || r.UnitPrice == nil || r.Quantity.IsNegative() || r.UnitPrice.IsNegative() {
			discarded++
			continue
		}

		events = append(events, domain.OrderEvent{
			Timestamp: *r.Timestamp,
			AccountID: r.AccountID,
			ProductID: r.ProductID,
			Quantity:  *r.Quantity,
			UnitPrice: *r.UnitPrice,
		})
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})

	return events, discarded
}

// Until keeps the events whose UTC day is not after asOf's day. Events must be sorted by timestamp.
func Until(events []domain.OrderEvent, asOf time.Time) []domain.OrderEvent {
	last := domain.Day(asOf)
	n := sort.Search(len(events), func(i int) bool {
		return events[i].Day().After(last)
	})
	return events[:n]
}

// GroupByProduct splits events per product, keeping timestamp order.
func GroupByProduct(events []domain.OrderEvent) map[string][]domain.OrderEvent {
	grouped := make(map[string][]domain.OrderEvent)
	for _, e := range events {
		grouped[e.ProductID] = append(grouped[e.ProductID], e)
	}
	return grouped
}

// ProductIDs returns the sorted product ids of grouped events.
func ProductIDs(grouped map[string][]domain.OrderEvent) []string {
	ids := make([]string, 0, len(grouped))
	for id := range grouped {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
