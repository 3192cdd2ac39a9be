package persistence

import (
	"time"

	"github.com/shopspring/decimal"
)

// Unit is the read-mostly catalog snapshot of a rentable unit. The engines
// never mutate units; the record exists so stores can answer lookups.
type Unit struct {
	ID          string
	PropertyID  string
	Name        string
	IsAvailable bool
	BasePrice   decimal.Decimal
	Currency    string
	MaxGuests   int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// AvailabilityBlock marks a unit unavailable (or explicitly available) for a
// date range. Blocks are never hard-deleted: release and overwrite paths set
// IsDeleted/DeletedAt and every read filters them out.
type AvailabilityBlock struct {
	ID        string
	UnitID    string
	BookingID *string
	StartDate time.Time
	EndDate   time.Time
	Status    string
	Reason    string
	Notes     *string
	CreatedAt time.Time
	DeletedAt *time.Time
	IsDeleted bool
}

// PricingRule overrides a unit's base nightly price for a date range, either
// with an absolute amount or a signed percentage of the base price.
//
// PricingTier orders rules: the lexicographically lowest tier wins, ties
// broken by earliest StartDate, then ID. The string comparison ("10" < "2")
// matches the system this store replaced; see DESIGN.md before changing it.
type PricingRule struct {
	ID               string
	UnitID           string
	StartDate        time.Time
	EndDate          time.Time
	StartTime        *string
	EndTime          *string
	PriceType        string
	PriceAmount      decimal.Decimal
	PercentageChange *decimal.Decimal
	PricingTier      string
	MinPrice         *decimal.Decimal
	MaxPrice         *decimal.Decimal
	Currency         string
	Description      *string
	CreatedAt        time.Time
	DeletedAt        *time.Time
	IsDeleted        bool
}
