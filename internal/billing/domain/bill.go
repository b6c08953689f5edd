package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// BillType classifies what a bill charges for.
type BillType string

const (
	// TypeMain is the general budget charge paid by all active owners.
	TypeMain BillType = "main"
	// TypeConservation is the additional charge for the conservation pool.
	TypeConservation BillType = "conservation"
	// TypeElectricity is an individual per-property metered charge.
	TypeElectricity BillType = "electricity"
	// TypeSharedElectricity is the communal electricity cost split by weight.
	TypeSharedElectricity BillType = "shared_electricity"
)

// TargetKind says whether a bill is charged to an account or a property.
type TargetKind string

const (
	TargetAccount  TargetKind = "account"
	TargetProperty TargetKind = "property"
)

// BillTarget is the tagged recipient of a bill. Exactly one of account or
// property is authoritative; the storage layer maps the variant onto its two
// foreign keys.
type BillTarget struct {
	Kind TargetKind
	ID   int64
}

// AccountTarget targets an account.
func AccountTarget(accountID int64) BillTarget {
	return BillTarget{Kind: TargetAccount, ID: accountID}
}

// PropertyTarget targets a property.
func PropertyTarget(propertyID int64) BillTarget {
	return BillTarget{Kind: TargetProperty, ID: propertyID}
}

// Bill is one charge within a service period. Bills are created once per
// allocation run and never mutated; corrections go through a new period.
type Bill struct {
	ID              int64
	ServicePeriodID int64
	Target          BillTarget
	Type            BillType
	Amount          decimal.Decimal
	Comment         string
	CreatedAt       time.Time
}
