package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/booking-engine/internal/persistence"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func block(id string, start, end time.Time, status string) persistence.AvailabilityBlock {
	return persistence.AvailabilityBlock{
		ID:        id,
		UnitID:    "unit1",
		StartDate: start,
		EndDate:   end,
		Status:    status,
		Reason:    "test",
		CreatedAt: time.Now().UTC(),
	}
}

func TestUnitStore_CreateAndGetUnit(t *testing.T) {
	units := NewUnitStore(NewStore())
	ctx := context.Background()

	unit := persistence.Unit{
		ID:         "unit1",
		PropertyID: "prop1",
		Name:       "Garden Room",
		BasePrice:  decimal.NewFromInt(100),
		Currency:   "USD",
	}
	if err := units.CreateUnit(ctx, unit); err != nil {
		t.Fatalf("CreateUnit failed: %v", err)
	}

	if err := units.CreateUnit(ctx, unit); !errors.Is(err, persistence.ErrDuplicate) {
		t.Errorf("Expected ErrDuplicate on repeat create, got %v", err)
	}

	got, err := units.GetUnit(ctx, "unit1")
	if err != nil {
		t.Fatalf("GetUnit failed: %v", err)
	}
	if got.Name != "Garden Room" {
		t.Errorf("Expected name 'Garden Room', got '%s'", got.Name)
	}

	if _, err := units.GetUnit(ctx, "missing"); !errors.Is(err, persistence.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestUnitStore_GetUnitsByProperty_Ordering(t *testing.T) {
	units := NewUnitStore(NewStore())
	ctx := context.Background()

	for _, u := range []persistence.Unit{
		{ID: "u2", PropertyID: "prop1", Name: "B"},
		{ID: "u1", PropertyID: "prop1", Name: "A"},
		{ID: "u3", PropertyID: "prop2", Name: "C"},
	} {
		if err := units.CreateUnit(ctx, u); err != nil {
			t.Fatalf("CreateUnit failed: %v", err)
		}
	}

	got, err := units.GetUnitsByProperty(ctx, "prop1")
	if err != nil {
		t.Fatalf("GetUnitsByProperty failed: %v", err)
	}
	if len(got) != 2 || got[0].ID != "u1" || got[1].ID != "u2" {
		t.Errorf("Expected [u1 u2], got %v", got)
	}
}

func TestAvailabilityStore_IsRangeBlocked_HalfOpenBoundary(t *testing.T) {
	blocks := NewAvailabilityStore(NewStore())
	ctx := context.Background()

	if err := blocks.InsertBlock(ctx, block("b1", date(2024, 3, 10), date(2024, 3, 14), "Booked")); err != nil {
		t.Fatalf("InsertBlock failed: %v", err)
	}

	blocked, err := blocks.IsRangeBlocked(ctx, "unit1", date(2024, 3, 14), date(2024, 3, 18))
	if err != nil {
		t.Fatalf("IsRangeBlocked failed: %v", err)
	}
	if blocked {
		t.Error("Expected back-to-back range not to be blocked")
	}

	blocked, err = blocks.IsRangeBlocked(ctx, "unit1", date(2024, 3, 13), date(2024, 3, 18))
	if err != nil {
		t.Fatalf("IsRangeBlocked failed: %v", err)
	}
	if !blocked {
		t.Error("Expected overlapping range to be blocked")
	}
}

func TestAvailabilityStore_ReserveBlock_SingleWinnerUnderContention(t *testing.T) {
	blocks := NewAvailabilityStore(NewStore())
	ctx := context.Background()

	const attempts = 16
	var wg sync.WaitGroup
	errs := make([]error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = blocks.ReserveBlock(ctx, block(
				fmt.Sprintf("b%d", i), date(2024, 3, 10), date(2024, 3, 14), "Booked"))
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else if !errors.Is(err, persistence.ErrRangeConflict) {
			t.Errorf("Unexpected error: %v", err)
		}
	}
	if winners != 1 {
		t.Errorf("Expected exactly 1 winning reservation, got %d", winners)
	}
}

func TestAvailabilityStore_SoftDeleteByBooking_Idempotent(t *testing.T) {
	blocks := NewAvailabilityStore(NewStore())
	ctx := context.Background()

	bookingID := "booking1"
	b := block("b1", date(2024, 3, 10), date(2024, 3, 14), "Booked")
	b.BookingID = &bookingID
	if err := blocks.InsertBlock(ctx, b); err != nil {
		t.Fatalf("InsertBlock failed: %v", err)
	}

	touched, err := blocks.SoftDeleteByBooking(ctx, "booking1", time.Now().UTC())
	if err != nil || touched != 1 {
		t.Fatalf("Expected 1 touched, got %d (err %v)", touched, err)
	}

	touched, err = blocks.SoftDeleteByBooking(ctx, "booking1", time.Now().UTC())
	if err != nil || touched != 0 {
		t.Fatalf("Expected 0 touched on repeat, got %d (err %v)", touched, err)
	}
}

func TestAvailabilityStore_SoftDeleteRange_ClosedBoundary(t *testing.T) {
	blocks := NewAvailabilityStore(NewStore())
	ctx := context.Background()

	if err := blocks.InsertBlock(ctx, block("b1", date(2024, 3, 10), date(2024, 3, 14), "Blocked")); err != nil {
		t.Fatalf("InsertBlock failed: %v", err)
	}

	touched, err := blocks.SoftDeleteRange(ctx, "unit1", date(2024, 3, 5), date(2024, 3, 10), time.Now().UTC())
	if err != nil {
		t.Fatalf("SoftDeleteRange failed: %v", err)
	}
	if touched != 1 {
		t.Errorf("Expected touching range to clear the block, got %d", touched)
	}
}

func TestAvailabilityStore_GetCalendar_Defaults(t *testing.T) {
	blocks := NewAvailabilityStore(NewStore())
	ctx := context.Background()

	if err := blocks.InsertBlock(ctx, block("b1", date(2024, 2, 10), date(2024, 2, 12), "Booked")); err != nil {
		t.Fatalf("InsertBlock failed: %v", err)
	}

	cal, err := blocks.GetCalendar(ctx, "unit1", 2024, time.February)
	if err != nil {
		t.Fatalf("GetCalendar failed: %v", err)
	}
	if len(cal) != 29 {
		t.Fatalf("Expected 29 entries, got %d", len(cal))
	}
	if cal[date(2024, 2, 11)] != "Booked" {
		t.Errorf("Feb 11: expected 'Booked', got '%s'", cal[date(2024, 2, 11)])
	}
	if cal[date(2024, 2, 1)] != "Available" {
		t.Errorf("Feb 1: expected 'Available', got '%s'", cal[date(2024, 2, 1)])
	}
}

func TestPricingStore_PriorityOrder(t *testing.T) {
	pricing := NewPricingStore(NewStore())
	ctx := context.Background()

	rules := []persistence.PricingRule{
		{ID: "r1", UnitID: "unit1", StartDate: date(2024, 3, 1), EndDate: date(2024, 3, 31), PricingTier: "2", PriceAmount: decimal.NewFromInt(200), Currency: "USD"},
		{ID: "r2", UnitID: "unit1", StartDate: date(2024, 3, 1), EndDate: date(2024, 3, 31), PricingTier: "1", PriceAmount: decimal.NewFromInt(150), Currency: "USD"},
	}
	if err := pricing.BulkInsertRules(ctx, rules); err != nil {
		t.Fatalf("BulkInsertRules failed: %v", err)
	}

	rule, err := pricing.GetActiveRule(ctx, "unit1", date(2024, 3, 15))
	if err != nil {
		t.Fatalf("GetActiveRule failed: %v", err)
	}
	if rule.ID != "r2" {
		t.Errorf("Expected tier '1' rule to win, got %s", rule.ID)
	}

	if _, err := pricing.GetActiveRule(ctx, "unit1", date(2024, 5, 1)); !errors.Is(err, persistence.ErrNotFound) {
		t.Errorf("Expected ErrNotFound outside rule range, got %v", err)
	}
}

func TestPricingStore_BulkInsertRules_RejectsDuplicateWithoutPartialWrite(t *testing.T) {
	pricing := NewPricingStore(NewStore())
	ctx := context.Background()

	first := persistence.PricingRule{ID: "r1", UnitID: "unit1", StartDate: date(2024, 3, 1), EndDate: date(2024, 3, 31), PricingTier: "1", PriceAmount: decimal.NewFromInt(100), Currency: "USD"}
	if err := pricing.BulkInsertRules(ctx, []persistence.PricingRule{first}); err != nil {
		t.Fatalf("BulkInsertRules failed: %v", err)
	}

	batch := []persistence.PricingRule{
		{ID: "r2", UnitID: "unit1", StartDate: date(2024, 4, 1), EndDate: date(2024, 4, 30), PricingTier: "1", PriceAmount: decimal.NewFromInt(110), Currency: "USD"},
		first,
	}
	if err := pricing.BulkInsertRules(ctx, batch); !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("Expected ErrDuplicate, got %v", err)
	}

	// The failed batch must not have written r2.
	if _, err := pricing.GetActiveRule(ctx, "unit1", date(2024, 4, 15)); !errors.Is(err, persistence.ErrNotFound) {
		t.Errorf("Expected no rule for April after failed batch, got %v", err)
	}
}
