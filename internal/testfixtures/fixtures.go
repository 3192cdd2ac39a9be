package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/booking-engine/internal/application"
	"github.com/example/booking-engine/internal/persistence"
)

var (
	unitCounter  uint64
	blockCounter uint64
	ruleCounter  uint64
)

var referenceTime = time.Date(2026, time.January, 2, 15, 4, 5, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

func referenceDate(offsetDays int) time.Time {
	base := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)
	return base.AddDate(0, 0, offsetDays)
}

// ----------------------------- Unit fixtures -----------------------------

// UnitFixture represents a deterministic unit record that can be materialised
// for application or persistence tests.
type UnitFixture struct {
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

// UnitOption configures the generated unit fixture.
type UnitOption func(*UnitFixture)

// NewUnitFixture returns a deterministic unit fixture with optional overrides.
func NewUnitFixture(opts ...UnitOption) UnitFixture {
	idx := atomic.AddUint64(&unitCounter, 1)
	id := fmt.Sprintf("unit-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := UnitFixture{
		ID:          id,
		PropertyID:  "property-001",
		Name:        fmt.Sprintf("Unit %03d", idx),
		IsAvailable: true,
		BasePrice:   decimal.NewFromInt(100),
		Currency:    "USD",
		MaxGuests:   int(2 + idx%4),
		CreatedAt:   created,
		UpdatedAt:   created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithUnitID overrides the generated unit ID.
func WithUnitID(id string) UnitOption {
	return func(f *UnitFixture) {
		f.ID = id
	}
}

// WithUnitProperty sets the owning property ID.
func WithUnitProperty(propertyID string) UnitOption {
	return func(f *UnitFixture) {
		f.PropertyID = propertyID
	}
}

// WithUnitName overrides the generated unit name.
func WithUnitName(name string) UnitOption {
	return func(f *UnitFixture) {
		f.Name = name
	}
}

// WithUnitAvailable toggles the catalog availability flag.
func WithUnitAvailable(available bool) UnitOption {
	return func(f *UnitFixture) {
		f.IsAvailable = available
	}
}

// WithUnitBasePrice sets the nightly base price.
func WithUnitBasePrice(price decimal.Decimal) UnitOption {
	return func(f *UnitFixture) {
		f.BasePrice = price
	}
}

// WithUnitCurrency overrides the currency code.
func WithUnitCurrency(currency string) UnitOption {
	return func(f *UnitFixture) {
		f.Currency = currency
	}
}

// WithUnitMaxGuests sets the guest capacity.
func WithUnitMaxGuests(maxGuests int) UnitOption {
	return func(f *UnitFixture) {
		f.MaxGuests = maxGuests
	}
}

// WithUnitTimestamps sets both created and updated timestamps.
func WithUnitTimestamps(created, updated time.Time) UnitOption {
	return func(f *UnitFixture) {
		f.CreatedAt = created
		f.UpdatedAt = updated
	}
}

// Application returns the fixture as an application.Unit value.
func (f UnitFixture) Application() application.Unit {
	return application.Unit{
		ID:          f.ID,
		PropertyID:  f.PropertyID,
		Name:        f.Name,
		IsAvailable: f.IsAvailable,
		BasePrice:   f.BasePrice,
		Currency:    f.Currency,
		MaxGuests:   f.MaxGuests,
	}
}

// Persistence returns the fixture as a persistence.Unit value.
func (f UnitFixture) Persistence() persistence.Unit {
	return persistence.Unit{
		ID:          f.ID,
		PropertyID:  f.PropertyID,
		Name:        f.Name,
		IsAvailable: f.IsAvailable,
		BasePrice:   f.BasePrice,
		Currency:    f.Currency,
		MaxGuests:   f.MaxGuests,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

// ----------------------------- Block fixtures ----------------------------

// BlockFixture represents a deterministic availability block record.
type BlockFixture struct {
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

// BlockOption configures the generated block fixture.
type BlockOption func(*BlockFixture)

// NewBlockFixture returns a deterministic block fixture with optional overrides.
// Successive fixtures occupy consecutive non-overlapping three-night windows.
func NewBlockFixture(opts ...BlockOption) BlockFixture {
	idx := atomic.AddUint64(&blockCounter, 1)
	id := fmt.Sprintf("block-%03d", idx)
	start := referenceDate(int(idx-1) * 3)
	fixture := BlockFixture{
		ID:        id,
		UnitID:    "unit-001",
		StartDate: start,
		EndDate:   start.AddDate(0, 0, 3),
		Status:    application.StatusBlocked,
		Reason:    "Owner Hold",
		CreatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithBlockID overrides the block ID.
func WithBlockID(id string) BlockOption {
	return func(f *BlockFixture) {
		f.ID = id
	}
}

// WithBlockUnit sets the unit the block belongs to.
func WithBlockUnit(unitID string) BlockOption {
	return func(f *BlockFixture) {
		f.UnitID = unitID
	}
}

// WithBlockBooking attaches a booking ID and switches the block to a booking.
func WithBlockBooking(bookingID string) BlockOption {
	return func(f *BlockFixture) {
		id := bookingID
		f.BookingID = &id
		f.Status = application.StatusBooked
		f.Reason = "Customer Booking"
	}
}

// WithBlockDates sets the block date range.
func WithBlockDates(start, end time.Time) BlockOption {
	return func(f *BlockFixture) {
		f.StartDate = start
		f.EndDate = end
	}
}

// WithBlockStatus overrides the block status.
func WithBlockStatus(status string) BlockOption {
	return func(f *BlockFixture) {
		f.Status = status
	}
}

// WithBlockReason overrides the block reason.
func WithBlockReason(reason string) BlockOption {
	return func(f *BlockFixture) {
		f.Reason = reason
	}
}

// WithBlockNotes sets the optional notes field.
func WithBlockNotes(notes string) BlockOption {
	return func(f *BlockFixture) {
		value := notes
		f.Notes = &value
	}
}

// WithBlockDeleted marks the fixture as soft deleted at the given time.
func WithBlockDeleted(at time.Time) BlockOption {
	return func(f *BlockFixture) {
		deleted := at
		f.DeletedAt = &deleted
		f.IsDeleted = true
	}
}

// Application returns the fixture as an application.Block value.
func (f BlockFixture) Application() application.Block {
	return application.Block{
		ID:        f.ID,
		UnitID:    f.UnitID,
		BookingID: copyStringPtr(f.BookingID),
		StartDate: f.StartDate,
		EndDate:   f.EndDate,
		Status:    f.Status,
		Reason:    f.Reason,
		Notes:     copyStringPtr(f.Notes),
	}
}

// Persistence returns the fixture as a persistence.AvailabilityBlock value.
func (f BlockFixture) Persistence() persistence.AvailabilityBlock {
	var deleted *time.Time
	if f.DeletedAt != nil {
		t := *f.DeletedAt
		deleted = &t
	}
	return persistence.AvailabilityBlock{
		ID:        f.ID,
		UnitID:    f.UnitID,
		BookingID: copyStringPtr(f.BookingID),
		StartDate: f.StartDate,
		EndDate:   f.EndDate,
		Status:    f.Status,
		Reason:    f.Reason,
		Notes:     copyStringPtr(f.Notes),
		CreatedAt: f.CreatedAt,
		DeletedAt: deleted,
		IsDeleted: f.IsDeleted,
	}
}

// ----------------------------- Rule fixtures -----------------------------

// RuleFixture represents a deterministic pricing rule record.
type RuleFixture struct {
	ID               string
	UnitID           string
	StartDate        time.Time
	EndDate          time.Time
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

// RuleOption configures the generated pricing rule fixture.
type RuleOption func(*RuleFixture)

// NewRuleFixture returns a deterministic pricing rule fixture with optional
// overrides. Successive fixtures occupy consecutive week-long windows.
func NewRuleFixture(opts ...RuleOption) RuleFixture {
	idx := atomic.AddUint64(&ruleCounter, 1)
	id := fmt.Sprintf("rule-%03d", idx)
	start := referenceDate(int(idx-1) * 7)
	fixture := RuleFixture{
		ID:          id,
		UnitID:      "unit-001",
		StartDate:   start,
		EndDate:     start.AddDate(0, 0, 6),
		PriceType:   "Custom",
		PriceAmount: decimal.NewFromInt(120),
		PricingTier: "1",
		Currency:    "USD",
		CreatedAt:   referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithRuleID overrides the rule ID.
func WithRuleID(id string) RuleOption {
	return func(f *RuleFixture) {
		f.ID = id
	}
}

// WithRuleUnit sets the unit the rule belongs to.
func WithRuleUnit(unitID string) RuleOption {
	return func(f *RuleFixture) {
		f.UnitID = unitID
	}
}

// WithRuleDates sets the rule date range.
func WithRuleDates(start, end time.Time) RuleOption {
	return func(f *RuleFixture) {
		f.StartDate = start
		f.EndDate = end
	}
}

// WithRulePrice sets the flat nightly amount.
func WithRulePrice(amount decimal.Decimal) RuleOption {
	return func(f *RuleFixture) {
		f.PriceAmount = amount
	}
}

// WithRulePriceType overrides the price type label.
func WithRulePriceType(priceType string) RuleOption {
	return func(f *RuleFixture) {
		f.PriceType = priceType
	}
}

// WithRulePercentageChange sets a percentage adjustment, which takes
// precedence over the flat amount during resolution.
func WithRulePercentageChange(pct decimal.Decimal) RuleOption {
	return func(f *RuleFixture) {
		value := pct
		f.PercentageChange = &value
	}
}

// WithRuleTier sets the priority tier.
func WithRuleTier(tier string) RuleOption {
	return func(f *RuleFixture) {
		f.PricingTier = tier
	}
}

// WithRuleBounds sets the clamp bounds.
func WithRuleBounds(minPrice, maxPrice decimal.Decimal) RuleOption {
	return func(f *RuleFixture) {
		low := minPrice
		high := maxPrice
		f.MinPrice = &low
		f.MaxPrice = &high
	}
}

// WithRuleCurrency overrides the currency code.
func WithRuleCurrency(currency string) RuleOption {
	return func(f *RuleFixture) {
		f.Currency = currency
	}
}

// WithRuleDescription sets the optional description field.
func WithRuleDescription(description string) RuleOption {
	return func(f *RuleFixture) {
		value := description
		f.Description = &value
	}
}

// WithRuleDeleted marks the fixture as soft deleted at the given time.
func WithRuleDeleted(at time.Time) RuleOption {
	return func(f *RuleFixture) {
		deleted := at
		f.DeletedAt = &deleted
		f.IsDeleted = true
	}
}

// Persistence returns the fixture as a persistence.PricingRule value.
func (f RuleFixture) Persistence() persistence.PricingRule {
	var deleted *time.Time
	if f.DeletedAt != nil {
		t := *f.DeletedAt
		deleted = &t
	}
	return persistence.PricingRule{
		ID:               f.ID,
		UnitID:           f.UnitID,
		StartDate:        f.StartDate,
		EndDate:          f.EndDate,
		PriceType:        f.PriceType,
		PriceAmount:      f.PriceAmount,
		PercentageChange: copyDecimalPtr(f.PercentageChange),
		PricingTier:      f.PricingTier,
		MinPrice:         copyDecimalPtr(f.MinPrice),
		MaxPrice:         copyDecimalPtr(f.MaxPrice),
		Currency:         f.Currency,
		Description:      copyStringPtr(f.Description),
		CreatedAt:        f.CreatedAt,
		DeletedAt:        deleted,
		IsDeleted:        f.IsDeleted,
	}
}

// helper to deep copy optional strings.
func copyStringPtr(src *string) *string {
	if src == nil {
		return nil
	}
	value := *src
	return &value
}

func copyDecimalPtr(src *decimal.Decimal) *decimal.Decimal {
	if src == nil {
		return nil
	}
	value := *src
	return &value
}
