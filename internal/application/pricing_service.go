package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/booking-engine/internal/calendar"
	"github.com/example/booking-engine/internal/persistence"
)

// Rule is a pricing rule as seen by the pricing service.
type Rule struct {
	ID               string
	UnitID           string
	StartDate        time.Time
	EndDate          time.Time
	PriceType        string
	PriceAmount      decimal.Decimal
	PercentageChange *decimal.Decimal
	Tier             string
	MinPrice         *decimal.Decimal
	MaxPrice         *decimal.Decimal
	Currency         string
	Description      *string
}

// RuleStore captures the persistence interactions needed by the pricing service.
//
// ActiveRule and RulesInRange order rules by (tier, start date, id) ascending
// with the tier compared as text; the first rule covering a date wins.
type RuleStore interface {
	BulkInsertRules(ctx context.Context, rules []Rule) error
	// ActiveRule returns persistence.ErrNotFound when no rule covers the date.
	ActiveRule(ctx context.Context, unitID string, date time.Time) (Rule, error)
	RulesInRange(ctx context.Context, unitID string, start, end time.Time) ([]Rule, error)
	DeleteRange(ctx context.Context, unitID string, start, end time.Time, at time.Time) (int, error)
}

// PricingService resolves nightly prices and manages pricing rules.
//
// Unlike availability checks, pricing fails loud: a missing unit or a store
// error surfaces to the caller instead of degrading to a default price.
type PricingService struct {
	units       UnitCatalog
	rules       RuleStore
	locks       *unitLocks
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewPricingService wires dependencies for pricing operations.
func NewPricingService(units UnitCatalog, rules RuleStore, idGenerator func() string, now func() time.Time, logger *slog.Logger) *PricingService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &PricingService{
		units:       units,
		rules:       rules,
		locks:       newUnitLocks(),
		idGenerator: idGenerator,
		now:         now,
		logger:      logger,
	}
}

// GetDayPrice resolves the nightly price for a single date. With no covering
// rule the unit's base price applies and the price type is "Base".
func (s *PricingService) GetDayPrice(ctx context.Context, unitID string, date time.Time) (DayPrice, error) {
	if s == nil {
		return DayPrice{}, fmt.Errorf("PricingService is nil")
	}
	if s.units == nil || s.rules == nil {
		return DayPrice{}, fmt.Errorf("pricing stores not configured")
	}

	date = calendar.DateOnly(date)

	unit, err := s.units.GetUnit(ctx, unitID)
	if err != nil {
		return DayPrice{}, mapPricingStoreError(err)
	}

	rule, err := s.rules.ActiveRule(ctx, unitID, date)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return basePrice(unit, date), nil
		}
		return DayPrice{}, err
	}

	return resolveDayPrice(unit, rule, date), nil
}

// CalculatePrice totals the nightly prices over [checkIn, checkOut). A stay
// of zero nights costs zero.
func (s *PricingService) CalculatePrice(ctx context.Context, unitID string, checkIn, checkOut time.Time) (decimal.Decimal, error) {
	breakdown, err := s.GetPricingBreakdown(ctx, unitID, checkIn, checkOut)
	if err != nil {
		return decimal.Zero, err
	}
	return breakdown.Total, nil
}

// GetPricingBreakdown itemizes a stay's cost per night over [checkIn, checkOut).
func (s *PricingService) GetPricingBreakdown(ctx context.Context, unitID string, checkIn, checkOut time.Time) (PricingBreakdown, error) {
	if s == nil {
		return PricingBreakdown{}, fmt.Errorf("PricingService is nil")
	}
	if s.units == nil || s.rules == nil {
		return PricingBreakdown{}, fmt.Errorf("pricing stores not configured")
	}

	checkIn = calendar.DateOnly(checkIn)
	checkOut = calendar.DateOnly(checkOut)

	unit, err := s.units.GetUnit(ctx, unitID)
	if err != nil {
		return PricingBreakdown{}, mapPricingStoreError(err)
	}

	breakdown := PricingBreakdown{
		UnitID:   unitID,
		CheckIn:  checkIn,
		CheckOut: checkOut,
		Currency: unit.Currency,
		Days:     []DayPrice{},
		SubTotal: decimal.Zero,
		Total:    decimal.Zero,
	}

	days := calendar.StayDays(checkIn, checkOut)
	if len(days) == 0 {
		return breakdown, nil
	}

	// One range query covers every night; the last night is checkOut - 1 day.
	rules, err := s.rules.RulesInRange(ctx, unitID, days[0], days[len(days)-1])
	if err != nil {
		return PricingBreakdown{}, err
	}

	for _, day := range days {
		dayPrice := resolveFromRules(unit, rules, day)
		breakdown.Days = append(breakdown.Days, dayPrice)
		breakdown.SubTotal = breakdown.SubTotal.Add(dayPrice.Price)
	}
	breakdown.Total = breakdown.SubTotal
	breakdown.TotalNights = len(days)

	return breakdown, nil
}

// GetPricingCalendar resolves one price per day of the month, ordered by date.
func (s *PricingService) GetPricingCalendar(ctx context.Context, unitID string, year int, month time.Month) ([]DayPrice, error) {
	if s == nil {
		return nil, fmt.Errorf("PricingService is nil")
	}
	if s.units == nil || s.rules == nil {
		return nil, fmt.Errorf("pricing stores not configured")
	}

	vErr := &ValidationError{}
	if unitID == "" {
		vErr.add("unit_id", "unit id is required")
	}
	if month < time.January || month > time.December {
		vErr.add("month", "month must be between 1 and 12")
	}
	if year < 1 {
		vErr.add("year", "year is required")
	}
	if vErr.HasErrors() {
		return nil, vErr
	}

	unit, err := s.units.GetUnit(ctx, unitID)
	if err != nil {
		return nil, mapPricingStoreError(err)
	}

	first, last := calendar.MonthBounds(year, month)
	rules, err := s.rules.RulesInRange(ctx, unitID, first, last)
	if err != nil {
		return nil, err
	}

	days := calendar.MonthDays(year, month)
	prices := make([]DayPrice, 0, len(days))
	for _, day := range days {
		prices = append(prices, resolveFromRules(unit, rules, day))
	}

	return prices, nil
}

// ApplyBulkPricing writes a set of pricing periods for a unit. Periods
// flagged OverwriteExisting first clear rules overlapping the period,
// touching end dates included. All new rules are inserted as one batch.
func (s *PricingService) ApplyBulkPricing(ctx context.Context, input BulkPricingInput) error {
	if s == nil {
		return fmt.Errorf("PricingService is nil")
	}
	if s.units == nil || s.rules == nil {
		return fmt.Errorf("pricing stores not configured")
	}

	vErr := &ValidationError{}
	if input.UnitID == "" {
		vErr.add("unit_id", "unit id is required")
	}
	if len(input.Periods) == 0 {
		vErr.add("periods", "at least one period is required")
	}
	for i, period := range input.Periods {
		validatePeriodDates(calendar.DateOnly(period.StartDate), calendar.DateOnly(period.EndDate), fmt.Sprintf("periods[%d]", i), vErr)
		if period.Price.IsNegative() {
			vErr.add(fmt.Sprintf("periods[%d].price", i), "price must not be negative")
		}
	}
	if vErr.HasErrors() {
		return vErr
	}

	unit, err := s.units.GetUnit(ctx, input.UnitID)
	if err != nil {
		return mapPricingStoreError(err)
	}

	currency := input.Currency
	if currency == "" {
		currency = unit.Currency
	}

	unlock := s.locks.lock(input.UnitID)
	defer unlock()

	now := s.now().UTC()
	pending := make([]Rule, 0, len(input.Periods))

	for _, period := range input.Periods {
		start := calendar.DateOnly(period.StartDate)
		end := calendar.DateOnly(period.EndDate)

		if period.OverwriteExisting {
			if _, err := s.rules.DeleteRange(ctx, input.UnitID, start, end, now); err != nil {
				return err
			}
		}

		tier := strings.TrimSpace(period.Tier)
		if tier == "" {
			tier = "1"
		}
		priceType := period.PriceType
		if priceType == "" {
			priceType = "Custom"
		}

		pending = append(pending, Rule{
			ID:          s.idGenerator(),
			UnitID:      input.UnitID,
			StartDate:   start,
			EndDate:     end,
			PriceType:   priceType,
			PriceAmount: period.Price,
			Tier:        tier,
			MinPrice:    period.MinPrice,
			MaxPrice:    period.MaxPrice,
			Currency:    currency,
			Description: period.Description,
		})
	}

	if err := s.rules.BulkInsertRules(ctx, pending); err != nil {
		return err
	}

	return nil
}

// ApplySeasonalPricing layers a seasonal template on top of existing rules.
// Seasons never clear what is already there; the season's priority becomes
// the rule tier so lower-priority seasons lose to existing lower tiers.
func (s *PricingService) ApplySeasonalPricing(ctx context.Context, input SeasonalPricingInput) error {
	if s == nil {
		return fmt.Errorf("PricingService is nil")
	}
	if s.units == nil || s.rules == nil {
		return fmt.Errorf("pricing stores not configured")
	}

	vErr := &ValidationError{}
	if input.UnitID == "" {
		vErr.add("unit_id", "unit id is required")
	}
	if len(input.Seasons) == 0 {
		vErr.add("seasons", "at least one season is required")
	}
	for i, season := range input.Seasons {
		validatePeriodDates(calendar.DateOnly(season.StartDate), calendar.DateOnly(season.EndDate), fmt.Sprintf("seasons[%d]", i), vErr)
		if season.Price.IsNegative() {
			vErr.add(fmt.Sprintf("seasons[%d].price", i), "price must not be negative")
		}
		if season.Priority < 0 {
			vErr.add(fmt.Sprintf("seasons[%d].priority", i), "priority must not be negative")
		}
	}
	if vErr.HasErrors() {
		return vErr
	}

	unit, err := s.units.GetUnit(ctx, input.UnitID)
	if err != nil {
		return mapPricingStoreError(err)
	}

	currency := input.Currency
	if currency == "" {
		currency = unit.Currency
	}

	pending := make([]Rule, 0, len(input.Seasons))
	for _, season := range input.Seasons {
		priceType := season.PriceType
		if priceType == "" {
			priceType = "Seasonal"
		}

		rule := Rule{
			ID:               s.idGenerator(),
			UnitID:           input.UnitID,
			StartDate:        calendar.DateOnly(season.StartDate),
			EndDate:          calendar.DateOnly(season.EndDate),
			PriceType:        priceType,
			PriceAmount:      season.Price,
			PercentageChange: season.PercentageChange,
			Tier:             strconv.Itoa(season.Priority),
			Currency:         currency,
		}
		if season.Name != "" {
			name := season.Name
			rule.Description = &name
		}
		pending = append(pending, rule)
	}

	if err := s.rules.BulkInsertRules(ctx, pending); err != nil {
		return err
	}

	return nil
}

// resolveFromRules picks the first rule covering day; rules arrive already
// ordered by priority.
func resolveFromRules(unit Unit, rules []Rule, day time.Time) DayPrice {
	for _, rule := range rules {
		if calendar.Covers(rule.StartDate, rule.EndDate, day) {
			return resolveDayPrice(unit, rule, day)
		}
	}
	return basePrice(unit, day)
}

// resolveDayPrice applies a rule to the unit's base price. A percentage
// change adjusts the base price and takes precedence over the rule's flat
// amount; bounds declared on the rule clamp the result.
func resolveDayPrice(unit Unit, rule Rule, day time.Time) DayPrice {
	var price decimal.Decimal
	if rule.PercentageChange != nil {
		price = unit.BasePrice.Add(unit.BasePrice.Mul(*rule.PercentageChange).Div(decimal.NewFromInt(100)))
	} else {
		price = rule.PriceAmount
	}

	if rule.MinPrice != nil && price.LessThan(*rule.MinPrice) {
		price = *rule.MinPrice
	}
	if rule.MaxPrice != nil && price.GreaterThan(*rule.MaxPrice) {
		price = *rule.MaxPrice
	}

	dayPrice := DayPrice{
		Date:      day,
		Price:     price,
		PriceType: rule.PriceType,
	}
	if rule.Description != nil {
		dayPrice.Description = *rule.Description
	}
	return dayPrice
}

func basePrice(unit Unit, day time.Time) DayPrice {
	return DayPrice{
		Date:      day,
		Price:     unit.BasePrice,
		PriceType: "Base",
	}
}

func mapPricingStoreError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, persistence.ErrNotFound) {
		return ErrUnitNotFound
	}
	return err
}
