package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/booking-engine/internal/persistence"
)

func newTestBlock(id, unitID string, start, end time.Time, status string) persistence.AvailabilityBlock {
	return persistence.AvailabilityBlock{
		ID:        id,
		UnitID:    unitID,
		StartDate: start,
		EndDate:   end,
		Status:    status,
		Reason:    "test",
		CreatedAt: time.Now().UTC(),
	}
}

func TestAvailabilityRepository_InsertAndGetBlocks(t *testing.T) {
	pool := setupTestPool(t)
	createTestUnit(t, pool, "unit1", "prop1")
	repo := NewAvailabilityRepository(pool)
	ctx := context.Background()

	bookingID := "booking1"
	block := newTestBlock("block1", "unit1", testDate(2024, 3, 10), testDate(2024, 3, 14), "Booked")
	block.BookingID = &bookingID

	if err := repo.InsertBlock(ctx, block); err != nil {
		t.Fatalf("InsertBlock failed: %v", err)
	}

	blocks, err := repo.GetBlocksByUnit(ctx, "unit1")
	if err != nil {
		t.Fatalf("GetBlocksByUnit failed: %v", err)
	}
	if len(blocks) != 1 {
		t.Fatalf("Expected 1 block, got %d", len(blocks))
	}
	if blocks[0].BookingID == nil || *blocks[0].BookingID != "booking1" {
		t.Errorf("Expected booking id 'booking1', got %v", blocks[0].BookingID)
	}
	if !blocks[0].StartDate.Equal(testDate(2024, 3, 10)) {
		t.Errorf("Expected start 2024-03-10, got %s", blocks[0].StartDate.Format(time.DateOnly))
	}
}

func TestAvailabilityRepository_IsRangeBlocked_HalfOpenBoundary(t *testing.T) {
	pool := setupTestPool(t)
	createTestUnit(t, pool, "unit1", "prop1")
	repo := NewAvailabilityRepository(pool)
	ctx := context.Background()

	if err := repo.InsertBlock(ctx, newTestBlock("block1", "unit1", testDate(2024, 3, 10), testDate(2024, 3, 14), "Booked")); err != nil {
		t.Fatalf("InsertBlock failed: %v", err)
	}

	// A stay starting on the existing checkout day does not conflict.
	blocked, err := repo.IsRangeBlocked(ctx, "unit1", testDate(2024, 3, 14), testDate(2024, 3, 18))
	if err != nil {
		t.Fatalf("IsRangeBlocked failed: %v", err)
	}
	if blocked {
		t.Error("Expected back-to-back range not to be blocked")
	}

	blocked, err = repo.IsRangeBlocked(ctx, "unit1", testDate(2024, 3, 13), testDate(2024, 3, 18))
	if err != nil {
		t.Fatalf("IsRangeBlocked failed: %v", err)
	}
	if !blocked {
		t.Error("Expected overlapping range to be blocked")
	}
}

func TestAvailabilityRepository_IsRangeBlocked_IgnoresAvailableAndDeleted(t *testing.T) {
	pool := setupTestPool(t)
	createTestUnit(t, pool, "unit1", "prop1")
	repo := NewAvailabilityRepository(pool)
	ctx := context.Background()

	// "available" blocks (any casing) do not block the range.
	if err := repo.InsertBlock(ctx, newTestBlock("block1", "unit1", testDate(2024, 3, 10), testDate(2024, 3, 14), "AVAILABLE")); err != nil {
		t.Fatalf("InsertBlock failed: %v", err)
	}

	blocked, err := repo.IsRangeBlocked(ctx, "unit1", testDate(2024, 3, 11), testDate(2024, 3, 13))
	if err != nil {
		t.Fatalf("IsRangeBlocked failed: %v", err)
	}
	if blocked {
		t.Error("Expected 'AVAILABLE' block not to count as blocking")
	}

	// Soft-deleted blocking entries do not count either.
	if err := repo.InsertBlock(ctx, newTestBlock("block2", "unit1", testDate(2024, 3, 10), testDate(2024, 3, 14), "Maintenance")); err != nil {
		t.Fatalf("InsertBlock failed: %v", err)
	}
	if _, err := repo.SoftDeleteRange(ctx, "unit1", testDate(2024, 3, 10), testDate(2024, 3, 14), time.Now().UTC()); err != nil {
		t.Fatalf("SoftDeleteRange failed: %v", err)
	}

	blocked, err = repo.IsRangeBlocked(ctx, "unit1", testDate(2024, 3, 11), testDate(2024, 3, 13))
	if err != nil {
		t.Fatalf("IsRangeBlocked failed: %v", err)
	}
	if blocked {
		t.Error("Expected soft-deleted block not to count as blocking")
	}
}

func TestAvailabilityRepository_ReserveBlock_Conflict(t *testing.T) {
	pool := setupTestPool(t)
	createTestUnit(t, pool, "unit1", "prop1")
	repo := NewAvailabilityRepository(pool)
	ctx := context.Background()

	first := newTestBlock("block1", "unit1", testDate(2024, 3, 10), testDate(2024, 3, 14), "Booked")
	if err := repo.ReserveBlock(ctx, first); err != nil {
		t.Fatalf("First ReserveBlock failed: %v", err)
	}

	second := newTestBlock("block2", "unit1", testDate(2024, 3, 12), testDate(2024, 3, 16), "Booked")
	err := repo.ReserveBlock(ctx, second)
	if !errors.Is(err, persistence.ErrRangeConflict) {
		t.Fatalf("Expected ErrRangeConflict, got %v", err)
	}

	// The losing reservation must leave no row behind.
	blocks, err := repo.GetBlocksByUnit(ctx, "unit1")
	if err != nil {
		t.Fatalf("GetBlocksByUnit failed: %v", err)
	}
	if len(blocks) != 1 {
		t.Errorf("Expected 1 block after conflict, got %d", len(blocks))
	}
}

func TestAvailabilityRepository_SoftDeleteByBooking(t *testing.T) {
	pool := setupTestPool(t)
	createTestUnit(t, pool, "unit1", "prop1")
	repo := NewAvailabilityRepository(pool)
	ctx := context.Background()

	bookingID := "booking1"
	block := newTestBlock("block1", "unit1", testDate(2024, 3, 10), testDate(2024, 3, 14), "Booked")
	block.BookingID = &bookingID
	if err := repo.InsertBlock(ctx, block); err != nil {
		t.Fatalf("InsertBlock failed: %v", err)
	}

	touched, err := repo.SoftDeleteByBooking(ctx, "booking1", time.Now().UTC())
	if err != nil {
		t.Fatalf("SoftDeleteByBooking failed: %v", err)
	}
	if touched != 1 {
		t.Errorf("Expected 1 block touched, got %d", touched)
	}

	// Releasing again is a no-op, not an error.
	touched, err = repo.SoftDeleteByBooking(ctx, "booking1", time.Now().UTC())
	if err != nil {
		t.Fatalf("Second SoftDeleteByBooking failed: %v", err)
	}
	if touched != 0 {
		t.Errorf("Expected 0 blocks touched on repeat release, got %d", touched)
	}

	blocks, err := repo.GetBlocksByUnit(ctx, "unit1")
	if err != nil {
		t.Fatalf("GetBlocksByUnit failed: %v", err)
	}
	if len(blocks) != 0 {
		t.Errorf("Expected no active blocks after release, got %d", len(blocks))
	}
}

func TestAvailabilityRepository_SoftDeleteRange_ClosedBoundary(t *testing.T) {
	pool := setupTestPool(t)
	createTestUnit(t, pool, "unit1", "prop1")
	repo := NewAvailabilityRepository(pool)
	ctx := context.Background()

	if err := repo.InsertBlock(ctx, newTestBlock("block1", "unit1", testDate(2024, 3, 10), testDate(2024, 3, 14), "Blocked")); err != nil {
		t.Fatalf("InsertBlock failed: %v", err)
	}
	if err := repo.InsertBlock(ctx, newTestBlock("block2", "unit1", testDate(2024, 3, 20), testDate(2024, 3, 25), "Blocked")); err != nil {
		t.Fatalf("InsertBlock failed: %v", err)
	}

	// A range ending exactly on block1's start day clears it (closed overlap)
	// but leaves the disjoint block2 alone.
	touched, err := repo.SoftDeleteRange(ctx, "unit1", testDate(2024, 3, 5), testDate(2024, 3, 10), time.Now().UTC())
	if err != nil {
		t.Fatalf("SoftDeleteRange failed: %v", err)
	}
	if touched != 1 {
		t.Errorf("Expected 1 block touched, got %d", touched)
	}

	blocks, err := repo.GetBlocksByUnit(ctx, "unit1")
	if err != nil {
		t.Fatalf("GetBlocksByUnit failed: %v", err)
	}
	if len(blocks) != 1 || blocks[0].ID != "block2" {
		t.Errorf("Expected only block2 to remain, got %v", blocks)
	}
}

func TestAvailabilityRepository_GetCalendar(t *testing.T) {
	pool := setupTestPool(t)
	createTestUnit(t, pool, "unit1", "prop1")
	repo := NewAvailabilityRepository(pool)
	ctx := context.Background()

	if err := repo.InsertBlock(ctx, newTestBlock("block1", "unit1", testDate(2024, 2, 10), testDate(2024, 2, 12), "Booked")); err != nil {
		t.Fatalf("InsertBlock failed: %v", err)
	}
	// Spans the month boundary; only the February days show up.
	if err := repo.InsertBlock(ctx, newTestBlock("block2", "unit1", testDate(2024, 1, 30), testDate(2024, 2, 2), "Maintenance")); err != nil {
		t.Fatalf("InsertBlock failed: %v", err)
	}

	cal, err := repo.GetCalendar(ctx, "unit1", 2024, time.February)
	if err != nil {
		t.Fatalf("GetCalendar failed: %v", err)
	}

	if len(cal) != 29 {
		t.Fatalf("Expected 29 entries for Feb 2024, got %d", len(cal))
	}
	if got := cal[testDate(2024, 2, 1)]; got != "Maintenance" {
		t.Errorf("Feb 1: expected 'Maintenance', got '%s'", got)
	}
	if got := cal[testDate(2024, 2, 11)]; got != "Booked" {
		t.Errorf("Feb 11: expected 'Booked', got '%s'", got)
	}
	if got := cal[testDate(2024, 2, 12)]; got != "Booked" {
		t.Errorf("Feb 12: expected 'Booked' on inclusive end date, got '%s'", got)
	}
	if got := cal[testDate(2024, 2, 20)]; got != "Available" {
		t.Errorf("Feb 20: expected default 'Available', got '%s'", got)
	}
}
