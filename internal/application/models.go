package application

import (
	"time"

	"github.com/shopspring/decimal"
)

// Block statuses. Any other status string is treated as blocking; only
// "Available" (case-insensitive) leaves the range open.
const (
	StatusAvailable   = "Available"
	StatusBooked      = "Booked"
	StatusBlocked     = "Blocked"
	StatusMaintenance = "Maintenance"
)

// Unit is the catalog snapshot the engines read. Units are managed elsewhere;
// the services never mutate them.
type Unit struct {
	ID          string
	PropertyID  string
	Name        string
	IsAvailable bool
	BasePrice   decimal.Decimal
	Currency    string
	MaxGuests   int
}

// Block represents an availability block on a unit's calendar.
type Block struct {
	ID        string
	UnitID    string
	BookingID *string
	StartDate time.Time
	EndDate   time.Time
	Status    string
	Reason    string
	Notes     *string
}

// ReserveParams wraps the data required to reserve a stay.
type ReserveParams struct {
	UnitID    string
	BookingID string
	CheckIn   time.Time
	CheckOut  time.Time
	Notes     *string
}

// AvailabilityPeriod is one date range in a bulk availability update.
type AvailabilityPeriod struct {
	StartDate time.Time
	EndDate   time.Time
	Status    string
	Reason    string
	Notes     *string
	// OverwriteExisting clears blocks overlapping the period (inclusive of
	// touching end dates) before the new block is written.
	OverwriteExisting bool
}

// BulkAvailabilityInput wraps the data required to apply availability periods.
type BulkAvailabilityInput struct {
	UnitID  string
	Periods []AvailabilityPeriod
}

// PricingPeriod is one date range in a bulk pricing update.
type PricingPeriod struct {
	StartDate time.Time
	EndDate   time.Time
	Price     decimal.Decimal
	PriceType string
	// Tier orders overlapping rules; blank defaults to "1", the highest
	// priority under lexicographic ordering.
	Tier              string
	MinPrice          *decimal.Decimal
	MaxPrice          *decimal.Decimal
	Description       *string
	OverwriteExisting bool
}

// BulkPricingInput wraps the data required to apply pricing periods.
type BulkPricingInput struct {
	UnitID   string
	Currency string
	Periods  []PricingPeriod
}

// Season is one named pricing window in a seasonal template.
type Season struct {
	Name             string
	StartDate        time.Time
	EndDate          time.Time
	Price            decimal.Decimal
	PriceType        string
	PercentageChange *decimal.Decimal
	// Priority becomes the rule tier; lower values win.
	Priority int
}

// SeasonalPricingInput wraps the data required to apply a seasonal template.
// Seasons are applied additively; existing rules are left in place.
type SeasonalPricingInput struct {
	UnitID   string
	Currency string
	Seasons  []Season
}

// DayPrice is the resolved nightly price for a single date.
type DayPrice struct {
	Date  time.Time
	Price decimal.Decimal
	// PriceType is "Base" when no rule covers the date.
	PriceType   string
	Description string
}

// PricingBreakdown itemizes a stay's cost per night. SubTotal is the sum of
// the nightly prices; Total equals SubTotal until taxes and fees are layered
// on top by a downstream collaborator.
type PricingBreakdown struct {
	UnitID      string
	CheckIn     time.Time
	CheckOut    time.Time
	Currency    string
	TotalNights int
	Days        []DayPrice
	SubTotal    decimal.Decimal
	Total       decimal.Decimal
}
