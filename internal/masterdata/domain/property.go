package masterdata

import "github.com/shopspring/decimal"

// Property is a plot/building owned by exactly one member. ShareWeight is the
// allocation key: the property's proportional claim on budgeted costs. A nil
// weight excludes the property from allocation runs.
type Property struct {
	ID             int64
	Name           string
	OwnerID        int64
	ShareWeight    *decimal.Decimal
	IsActive       bool
	IsConservation bool
}

// Allocatable reports whether the property takes part in allocation runs.
func (p Property) Allocatable() bool {
	return p.IsActive && p.ShareWeight != nil
}
