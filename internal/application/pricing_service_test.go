package application

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/booking-engine/internal/calendar"
	"github.com/example/booking-engine/internal/persistence"
)

type stubRuleStore struct {
	mu          sync.Mutex
	rules       []Rule
	deleteCalls int
}

func (s *stubRuleStore) BulkInsertRules(ctx context.Context, rules []Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = append(s.rules, rules...)
	return nil
}

func (s *stubRuleStore) sorted() []Rule {
	ordered := make([]Rule, len(s.rules))
	copy(ordered, s.rules)
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Tier != ordered[j].Tier {
			return ordered[i].Tier < ordered[j].Tier
		}
		if !ordered[i].StartDate.Equal(ordered[j].StartDate) {
			return ordered[i].StartDate.Before(ordered[j].StartDate)
		}
		return ordered[i].ID < ordered[j].ID
	})
	return ordered
}

func (s *stubRuleStore) ActiveRule(ctx context.Context, unitID string, day time.Time) (Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rule := range s.sorted() {
		if rule.UnitID == unitID && calendar.Covers(rule.StartDate, rule.EndDate, day) {
			return rule, nil
		}
	}
	return Rule{}, persistence.ErrNotFound
}

func (s *stubRuleStore) RulesInRange(ctx context.Context, unitID string, start, end time.Time) ([]Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	matched := make([]Rule, 0)
	for _, rule := range s.sorted() {
		if rule.UnitID == unitID && calendar.OverlapsClosed(rule.StartDate, rule.EndDate, start, end) {
			matched = append(matched, rule)
		}
	}
	return matched, nil
}

func (s *stubRuleStore) DeleteRange(ctx context.Context, unitID string, start, end time.Time, at time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteCalls++
	kept := s.rules[:0]
	deleted := 0
	for _, rule := range s.rules {
		if rule.UnitID == unitID && calendar.OverlapsClosed(rule.StartDate, rule.EndDate, start, end) {
			deleted++
			continue
		}
		kept = append(kept, rule)
	}
	s.rules = kept
	return deleted, nil
}

func newPricingService(units *stubUnitCatalog, rules *stubRuleStore) *PricingService {
	return NewPricingService(units, rules, sequentialIDs("rule"), fixedNow, nil)
}

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func TestGetDayPrice_BasePriceWhenNoRule(t *testing.T) {
	svc := newPricingService(testUnits(), &stubRuleStore{})

	price, err := svc.GetDayPrice(context.Background(), "unit1", date(2024, 3, 15))
	if err != nil {
		t.Fatalf("GetDayPrice failed: %v", err)
	}
	if !price.Price.Equal(dec("100")) {
		t.Errorf("Expected base price 100, got %s", price.Price)
	}
	if price.PriceType != "Base" {
		t.Errorf("Expected price type 'Base', got %q", price.PriceType)
	}
}

func TestGetDayPrice_PercentageChangeAdjustsBase(t *testing.T) {
	pct := dec("-30")
	rules := &stubRuleStore{rules: []Rule{{
		ID: "r1", UnitID: "unit1",
		StartDate: date(2024, 3, 1), EndDate: date(2024, 3, 31),
		PriceType: "Discount", PriceAmount: dec("999"), PercentageChange: &pct, Tier: "1",
	}}}
	svc := newPricingService(testUnits(), rules)

	price, err := svc.GetDayPrice(context.Background(), "unit1", date(2024, 3, 15))
	if err != nil {
		t.Fatalf("GetDayPrice failed: %v", err)
	}
	// Base 100 with -30% yields 70; the flat amount is ignored.
	if !price.Price.Equal(dec("70")) {
		t.Errorf("Expected 70, got %s", price.Price)
	}
	if price.PriceType != "Discount" {
		t.Errorf("Expected price type 'Discount', got %q", price.PriceType)
	}
}

func TestGetDayPrice_FlatAmount(t *testing.T) {
	rules := &stubRuleStore{rules: []Rule{{
		ID: "r1", UnitID: "unit1",
		StartDate: date(2024, 3, 1), EndDate: date(2024, 3, 31),
		PriceType: "Custom", PriceAmount: dec("145.50"), Tier: "1",
	}}}
	svc := newPricingService(testUnits(), rules)

	price, err := svc.GetDayPrice(context.Background(), "unit1", date(2024, 3, 15))
	if err != nil {
		t.Fatalf("GetDayPrice failed: %v", err)
	}
	if !price.Price.Equal(dec("145.50")) {
		t.Errorf("Expected 145.50, got %s", price.Price)
	}
}

func TestGetDayPrice_TierPriority(t *testing.T) {
	rules := &stubRuleStore{rules: []Rule{
		{ID: "r1", UnitID: "unit1", StartDate: date(2024, 3, 1), EndDate: date(2024, 3, 31), PriceAmount: dec("200"), Tier: "2"},
		{ID: "r2", UnitID: "unit1", StartDate: date(2024, 3, 1), EndDate: date(2024, 3, 31), PriceAmount: dec("150"), Tier: "1"},
	}}
	svc := newPricingService(testUnits(), rules)

	price, err := svc.GetDayPrice(context.Background(), "unit1", date(2024, 3, 15))
	if err != nil {
		t.Fatalf("GetDayPrice failed: %v", err)
	}
	if !price.Price.Equal(dec("150")) {
		t.Errorf("Expected tier '1' price 150, got %s", price.Price)
	}
}

func TestGetDayPrice_ClampsToBounds(t *testing.T) {
	pct := dec("-90")
	minPrice := dec("40")
	rules := &stubRuleStore{rules: []Rule{{
		ID: "r1", UnitID: "unit1",
		StartDate: date(2024, 3, 1), EndDate: date(2024, 3, 31),
		PercentageChange: &pct, MinPrice: &minPrice, Tier: "1",
	}}}
	svc := newPricingService(testUnits(), rules)

	price, err := svc.GetDayPrice(context.Background(), "unit1", date(2024, 3, 15))
	if err != nil {
		t.Fatalf("GetDayPrice failed: %v", err)
	}
	// -90% of 100 is 10, clamped up to the rule's floor of 40.
	if !price.Price.Equal(dec("40")) {
		t.Errorf("Expected clamped price 40, got %s", price.Price)
	}
}

func TestGetDayPrice_UnknownUnitFailsLoud(t *testing.T) {
	svc := newPricingService(testUnits(), &stubRuleStore{})

	_, err := svc.GetDayPrice(context.Background(), "missing", date(2024, 3, 15))
	if !errors.Is(err, ErrUnitNotFound) {
		t.Errorf("Expected ErrUnitNotFound, got %v", err)
	}
}

func TestCalculatePrice_SumsNights(t *testing.T) {
	pct := dec("-30")
	rules := &stubRuleStore{rules: []Rule{{
		ID: "r1", UnitID: "unit1",
		StartDate: date(2024, 3, 12), EndDate: date(2024, 3, 12),
		PercentageChange: &pct, Tier: "1",
	}}}
	svc := newPricingService(testUnits(), rules)

	// Nights of 10, 11, 12: 100 + 100 + 70.
	total, err := svc.CalculatePrice(context.Background(), "unit1", date(2024, 3, 10), date(2024, 3, 13))
	if err != nil {
		t.Fatalf("CalculatePrice failed: %v", err)
	}
	if !total.Equal(dec("270")) {
		t.Errorf("Expected total 270, got %s", total)
	}
}

func TestCalculatePrice_SameDayStayIsZero(t *testing.T) {
	svc := newPricingService(testUnits(), &stubRuleStore{})

	total, err := svc.CalculatePrice(context.Background(), "unit1", date(2024, 3, 10), date(2024, 3, 10))
	if err != nil {
		t.Fatalf("CalculatePrice failed: %v", err)
	}
	if !total.IsZero() {
		t.Errorf("Expected zero total for same-day stay, got %s", total)
	}
}

func TestGetPricingBreakdown(t *testing.T) {
	rules := &stubRuleStore{rules: []Rule{{
		ID: "r1", UnitID: "unit1",
		StartDate: date(2024, 3, 11), EndDate: date(2024, 3, 12),
		PriceType: "Weekend", PriceAmount: dec("130"), Tier: "1",
	}}}
	svc := newPricingService(testUnits(), rules)

	breakdown, err := svc.GetPricingBreakdown(context.Background(), "unit1", date(2024, 3, 10), date(2024, 3, 13))
	if err != nil {
		t.Fatalf("GetPricingBreakdown failed: %v", err)
	}

	if breakdown.TotalNights != 3 {
		t.Fatalf("Expected 3 nights, got %d", breakdown.TotalNights)
	}
	if len(breakdown.Days) != 3 {
		t.Fatalf("Expected 3 day entries, got %d", len(breakdown.Days))
	}
	if breakdown.Days[0].PriceType != "Base" || !breakdown.Days[0].Price.Equal(dec("100")) {
		t.Errorf("Night 1: expected base 100, got %s (%s)", breakdown.Days[0].Price, breakdown.Days[0].PriceType)
	}
	if breakdown.Days[1].PriceType != "Weekend" || !breakdown.Days[1].Price.Equal(dec("130")) {
		t.Errorf("Night 2: expected weekend 130, got %s (%s)", breakdown.Days[1].Price, breakdown.Days[1].PriceType)
	}
	if !breakdown.SubTotal.Equal(dec("360")) {
		t.Errorf("Expected sub total 360, got %s", breakdown.SubTotal)
	}
	if !breakdown.Total.Equal(breakdown.SubTotal) {
		t.Errorf("Expected total to equal sub total before taxes and fees, got %s vs %s", breakdown.Total, breakdown.SubTotal)
	}
	if breakdown.Currency != "USD" {
		t.Errorf("Expected currency USD, got %q", breakdown.Currency)
	}
}

func TestGetPricingBreakdown_EmptyStay(t *testing.T) {
	svc := newPricingService(testUnits(), &stubRuleStore{})

	breakdown, err := svc.GetPricingBreakdown(context.Background(), "unit1", date(2024, 3, 10), date(2024, 3, 10))
	if err != nil {
		t.Fatalf("GetPricingBreakdown failed: %v", err)
	}
	if breakdown.TotalNights != 0 || len(breakdown.Days) != 0 {
		t.Errorf("Expected empty breakdown, got %d nights, %d days", breakdown.TotalNights, len(breakdown.Days))
	}
	if !breakdown.SubTotal.IsZero() || !breakdown.Total.IsZero() {
		t.Errorf("Expected zero totals, got sub total %s, total %s", breakdown.SubTotal, breakdown.Total)
	}
}

func TestGetPricingCalendar_CoversWholeMonth(t *testing.T) {
	rules := &stubRuleStore{rules: []Rule{{
		ID: "r1", UnitID: "unit1",
		StartDate: date(2024, 2, 10), EndDate: date(2024, 2, 12),
		PriceType: "Custom", PriceAmount: dec("150"), Tier: "1",
	}}}
	svc := newPricingService(testUnits(), rules)
	ctx := context.Background()

	prices, err := svc.GetPricingCalendar(ctx, "unit1", 2024, time.February)
	if err != nil {
		t.Fatalf("GetPricingCalendar failed: %v", err)
	}
	if len(prices) != 29 {
		t.Fatalf("Expected 29 entries for Feb 2024, got %d", len(prices))
	}
	if !prices[9].Price.Equal(dec("150")) {
		t.Errorf("Feb 10: expected 150, got %s", prices[9].Price)
	}
	if !prices[0].Price.Equal(dec("100")) || prices[0].PriceType != "Base" {
		t.Errorf("Feb 1: expected base 100, got %s (%s)", prices[0].Price, prices[0].PriceType)
	}

	prices, err = svc.GetPricingCalendar(ctx, "unit1", 2023, time.February)
	if err != nil {
		t.Fatalf("GetPricingCalendar failed: %v", err)
	}
	if len(prices) != 28 {
		t.Errorf("Expected 28 entries for Feb 2023, got %d", len(prices))
	}
}

func TestApplyBulkPricing_DefaultsAndOverwrite(t *testing.T) {
	rules := &stubRuleStore{rules: []Rule{{
		ID: "old", UnitID: "unit1",
		StartDate: date(2024, 3, 1), EndDate: date(2024, 3, 5),
		PriceAmount: dec("90"), Tier: "1",
	}}}
	svc := newPricingService(testUnits(), rules)

	err := svc.ApplyBulkPricing(context.Background(), BulkPricingInput{
		UnitID: "unit1",
		Periods: []PricingPeriod{
			{StartDate: date(2024, 3, 5), EndDate: date(2024, 3, 10), Price: dec("120"), OverwriteExisting: true},
		},
	})
	if err != nil {
		t.Fatalf("ApplyBulkPricing failed: %v", err)
	}

	if rules.deleteCalls != 1 {
		t.Errorf("Expected 1 delete call, got %d", rules.deleteCalls)
	}
	if len(rules.rules) != 1 {
		t.Fatalf("Expected the touching rule to be overwritten, got %d rules", len(rules.rules))
	}

	inserted := rules.rules[0]
	if inserted.Tier != "1" {
		t.Errorf("Expected blank tier to default to '1', got %q", inserted.Tier)
	}
	if inserted.PriceType != "Custom" {
		t.Errorf("Expected default price type 'Custom', got %q", inserted.PriceType)
	}
	if inserted.Currency != "USD" {
		t.Errorf("Expected currency to default to the unit's USD, got %q", inserted.Currency)
	}
}

func TestApplyBulkPricing_RejectsNegativePrice(t *testing.T) {
	svc := newPricingService(testUnits(), &stubRuleStore{})

	err := svc.ApplyBulkPricing(context.Background(), BulkPricingInput{
		UnitID: "unit1",
		Periods: []PricingPeriod{
			{StartDate: date(2024, 3, 1), EndDate: date(2024, 3, 5), Price: dec("-10")},
		},
	})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("Expected ValidationError, got %v", err)
	}
}

func TestApplySeasonalPricing_AdditiveWithPriorityTiers(t *testing.T) {
	rules := &stubRuleStore{rules: []Rule{{
		ID: "existing", UnitID: "unit1",
		StartDate: date(2024, 6, 1), EndDate: date(2024, 6, 30),
		PriceAmount: dec("110"), Tier: "1",
	}}}
	svc := newPricingService(testUnits(), rules)

	err := svc.ApplySeasonalPricing(context.Background(), SeasonalPricingInput{
		UnitID: "unit1",
		Seasons: []Season{
			{Name: "High Season", StartDate: date(2024, 6, 15), EndDate: date(2024, 8, 31), Price: dec("180"), Priority: 2},
		},
	})
	if err != nil {
		t.Fatalf("ApplySeasonalPricing failed: %v", err)
	}

	if rules.deleteCalls != 0 {
		t.Errorf("Expected no deletes for seasonal apply, got %d", rules.deleteCalls)
	}
	if len(rules.rules) != 2 {
		t.Fatalf("Expected existing rule to survive, got %d rules", len(rules.rules))
	}

	season := rules.rules[1]
	if season.Tier != "2" {
		t.Errorf("Expected priority 2 to become tier '2', got %q", season.Tier)
	}
	if season.Description == nil || *season.Description != "High Season" {
		t.Errorf("Expected season name as description, got %v", season.Description)
	}
	if season.PriceType != "Seasonal" {
		t.Errorf("Expected default price type 'Seasonal', got %q", season.PriceType)
	}

	// Inside June the pre-existing tier "1" rule still wins.
	price, err := svc.GetDayPrice(context.Background(), "unit1", date(2024, 6, 20))
	if err != nil {
		t.Fatalf("GetDayPrice failed: %v", err)
	}
	if !price.Price.Equal(dec("110")) {
		t.Errorf("Expected existing tier '1' rule to win, got %s", price.Price)
	}

	// In July only the season applies.
	price, err = svc.GetDayPrice(context.Background(), "unit1", date(2024, 7, 10))
	if err != nil {
		t.Fatalf("GetDayPrice failed: %v", err)
	}
	if !price.Price.Equal(dec("180")) {
		t.Errorf("Expected season price 180, got %s", price.Price)
	}
}
