// Package domain defines core data structures used throughout the order analysis pipeline.
package domain

import "fmt"

// Scope identifies the unit a series is built for: a whole account or one product of it.
type Scope struct {
	// AccountID account the orders belong to.
	AccountID string
	// ProductID product filter, empty for the account-wide series.
	ProductID string
}

// String returns the string representation.
func (s *Scope) String() string {
	if s.ProductID == "" {
		return s.AccountID
	}
	return fmt.Sprintf("%s_%s", s.AccountID, s.ProductID)
}

// IsAccount reports whether the scope covers every product of the account.
func (s *Scope) IsAccount() bool {
	return s.ProductID == ""
}
