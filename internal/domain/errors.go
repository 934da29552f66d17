package domain

import "github.com/pkg/errors"

var (
	// ErrInsufficientHistory not enough candles for the indicator window.
	ErrInsufficientHistory = errors.New("insufficient history")
	// ErrDegenerateBand Bollinger upper band does not exceed the lower band.
	ErrDegenerateBand = errors.New("degenerate bollinger band")
	// ErrPriceUnresolved neither a catalog price nor order history to average.
	ErrPriceUnresolved = errors.New("price unresolved")
	// ErrInvalidPrice resolved unit price is not positive.
	ErrInvalidPrice = errors.New("invalid unit price")
)

// ProductStatus outcome of one product's unit of work.
type ProductStatus string

const (
	StatusOK                  ProductStatus = "ok"
	StatusInsufficientHistory ProductStatus = "insufficient_history"
	StatusDegenerateBand      ProductStatus = "degenerate_band"
	StatusPriceUnresolved     ProductStatus = "price_unresolved"
	StatusInvalidPrice        ProductStatus = "invalid_price"
	StatusFailed              ProductStatus = "failed"
)

// StatusFor maps an error of a product's unit of work to its status.
func StatusFor(err error) ProductStatus {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, ErrInsufficientHistory):
		return StatusInsufficientHistory
	case errors.Is(err, ErrDegenerateBand):
		return StatusDegenerateBand
	case errors.Is(err, ErrPriceUnresolved):
		return StatusPriceUnresolved
	case errors.Is(err, ErrInvalidPrice):
		return StatusInvalidPrice
	default:
		return StatusFailed
	}
}
