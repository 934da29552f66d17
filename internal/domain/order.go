package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderEvent single validated order line.
type OrderEvent struct {
	Timestamp time.Time
	AccountID string
	ProductID string
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
}

// Notional returns quantity times unit price.
func (o OrderEvent) Notional() decimal.Decimal {
	return o.Quantity.Mul(o.UnitPrice)
}

// Day returns the UTC calendar day of the event.
func (o OrderEvent) Day() time.Time {
	return Day(o.Timestamp)
}

// RawOrder order line as delivered by an order source. Any field may be missing.
type RawOrder struct {
	Timestamp *time.Time
	AccountID string
	ProductID string
	Quantity  *decimal.Decimal
	UnitPrice *decimal.Decimal
}

// Day truncates t to midnight of its UTC calendar day.
func Day(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of whole days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}
