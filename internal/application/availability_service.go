package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/booking-engine/internal/calendar"
	"github.com/example/booking-engine/internal/persistence"
)

// UnitCatalog exposes unit lookup operations.
type UnitCatalog interface {
	GetUnit(ctx context.Context, id string) (Unit, error)
	UnitsByProperty(ctx context.Context, propertyID string) ([]Unit, error)
}

// BlockStore captures the persistence interactions needed by the availability service.
type BlockStore interface {
	InsertBlock(ctx context.Context, block Block) error
	BulkInsertBlocks(ctx context.Context, blocks []Block) error
	IsRangeBlocked(ctx context.Context, unitID string, start, end time.Time) (bool, error)
	// ReserveBlock atomically re-checks the range and inserts the block,
	// returning persistence.ErrRangeConflict when the range is taken.
	ReserveBlock(ctx context.Context, block Block) error
	ReleaseByBooking(ctx context.Context, bookingID string, at time.Time) (int, error)
	DeleteRange(ctx context.Context, unitID string, start, end time.Time, at time.Time) (int, error)
	Calendar(ctx context.Context, unitID string, year int, month time.Month) (map[time.Time]string, error)
}

// AvailabilityService orchestrates validation and persistence for unit
// calendar operations.
//
// Read paths fail closed: a unit that cannot be resolved, or a store error
// during an availability check, reports the unit as unavailable rather than
// surfacing the failure. Mutating paths return errors normally.
type AvailabilityService struct {
	units       UnitCatalog
	blocks      BlockStore
	locks       *unitLocks
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewAvailabilityService wires dependencies for availability operations.
func NewAvailabilityService(units UnitCatalog, blocks BlockStore, idGenerator func() string, now func() time.Time, logger *slog.Logger) *AvailabilityService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &AvailabilityService{
		units:       units,
		blocks:      blocks,
		locks:       newUnitLocks(),
		idGenerator: idGenerator,
		now:         now,
		logger:      logger,
	}
}

// CheckAvailability reports whether the unit can host a stay over
// [checkIn, checkOut). Any lookup failure yields false.
func (s *AvailabilityService) CheckAvailability(ctx context.Context, unitID string, checkIn, checkOut time.Time) bool {
	if s == nil || s.units == nil || s.blocks == nil {
		return false
	}

	logger := serviceLogger(ctx, s.logger, "availability", "check_availability", "unit_id", unitID)

	checkIn = calendar.DateOnly(checkIn)
	checkOut = calendar.DateOnly(checkOut)
	if unitID == "" || !checkIn.Before(checkOut) {
		return false
	}

	unit, err := s.units.GetUnit(ctx, unitID)
	if err != nil {
		if !errors.Is(err, persistence.ErrNotFound) {
			logger.ErrorContext(ctx, "unit lookup failed, reporting unavailable", "error", err)
		}
		return false
	}
	if !unit.IsAvailable {
		return false
	}

	blocked, err := s.blocks.IsRangeBlocked(ctx, unitID, checkIn, checkOut)
	if err != nil {
		logger.ErrorContext(ctx, "range check failed, reporting unavailable", "error", err)
		return false
	}

	return !blocked
}

// Reserve atomically claims [checkIn, checkOut) for a booking. It returns
// ErrRangeConflict when the range is already taken, so two concurrent
// reservations for overlapping dates cannot both succeed.
func (s *AvailabilityService) Reserve(ctx context.Context, params ReserveParams) (Block, error) {
	if s == nil {
		return Block{}, fmt.Errorf("AvailabilityService is nil")
	}
	if s.units == nil || s.blocks == nil {
		return Block{}, fmt.Errorf("availability stores not configured")
	}

	if err := validateStayParams(params); err != nil {
		return Block{}, err
	}

	checkIn := calendar.DateOnly(params.CheckIn)
	checkOut := calendar.DateOnly(params.CheckOut)

	unit, err := s.units.GetUnit(ctx, params.UnitID)
	if err != nil {
		return Block{}, mapAvailabilityStoreError(err)
	}
	if !unit.IsAvailable {
		return Block{}, ErrRangeConflict
	}

	unlock := s.locks.lock(params.UnitID)
	defer unlock()

	bookingID := params.BookingID
	block := Block{
		ID:        s.idGenerator(),
		UnitID:    params.UnitID,
		BookingID: &bookingID,
		StartDate: checkIn,
		EndDate:   checkOut,
		Status:    StatusBooked,
		Reason:    "Customer Booking",
		Notes:     params.Notes,
	}

	if err := s.blocks.ReserveBlock(ctx, block); err != nil {
		return Block{}, mapAvailabilityStoreError(err)
	}

	return block, nil
}

// BlockForBooking records a booking block without re-checking the range. It
// is the write half for callers that already hold a confirmed booking.
func (s *AvailabilityService) BlockForBooking(ctx context.Context, params ReserveParams) (Block, error) {
	if s == nil {
		return Block{}, fmt.Errorf("AvailabilityService is nil")
	}
	if s.units == nil || s.blocks == nil {
		return Block{}, fmt.Errorf("availability stores not configured")
	}

	if err := validateStayParams(params); err != nil {
		return Block{}, err
	}

	if _, err := s.units.GetUnit(ctx, params.UnitID); err != nil {
		return Block{}, mapAvailabilityStoreError(err)
	}

	bookingID := params.BookingID
	block := Block{
		ID:        s.idGenerator(),
		UnitID:    params.UnitID,
		BookingID: &bookingID,
		StartDate: calendar.DateOnly(params.CheckIn),
		EndDate:   calendar.DateOnly(params.CheckOut),
		Status:    StatusBooked,
		Reason:    "Customer Booking",
		Notes:     params.Notes,
	}

	if err := s.blocks.InsertBlock(ctx, block); err != nil {
		return Block{}, mapAvailabilityStoreError(err)
	}

	return block, nil
}

// ReleaseBooking clears every active block held by the booking and returns
// the number of blocks released. Releasing an unknown or already released
// booking is a no-op.
func (s *AvailabilityService) ReleaseBooking(ctx context.Context, bookingID string) (int, error) {
	if s == nil {
		return 0, fmt.Errorf("AvailabilityService is nil")
	}
	if s.blocks == nil {
		return 0, fmt.Errorf("availability stores not configured")
	}

	if strings.TrimSpace(bookingID) == "" {
		vErr := &ValidationError{}
		vErr.add("booking_id", "booking id is required")
		return 0, vErr
	}

	released, err := s.blocks.ReleaseByBooking(ctx, bookingID, s.now().UTC())
	if err != nil {
		return 0, mapAvailabilityStoreError(err)
	}

	if released > 0 {
		serviceLogger(ctx, s.logger, "availability", "release_booking", "booking_id", bookingID).
			InfoContext(ctx, "booking released", "blocks_released", released)
	}

	return released, nil
}

// ApplyBulkAvailability writes a set of availability periods for a unit.
// Periods flagged OverwriteExisting first clear overlapping blocks, touching
// end dates included. All new blocks are inserted as one batch after every
// overwrite has run.
func (s *AvailabilityService) ApplyBulkAvailability(ctx context.Context, input BulkAvailabilityInput) error {
	if s == nil {
		return fmt.Errorf("AvailabilityService is nil")
	}
	if s.units == nil || s.blocks == nil {
		return fmt.Errorf("availability stores not configured")
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
		if strings.TrimSpace(period.Status) == "" {
			vErr.add(fmt.Sprintf("periods[%d].status", i), "status is required")
		}
	}
	if vErr.HasErrors() {
		return vErr
	}

	if _, err := s.units.GetUnit(ctx, input.UnitID); err != nil {
		return mapAvailabilityStoreError(err)
	}

	unlock := s.locks.lock(input.UnitID)
	defer unlock()

	now := s.now().UTC()
	pending := make([]Block, 0, len(input.Periods))

	for _, period := range input.Periods {
		start := calendar.DateOnly(period.StartDate)
		end := calendar.DateOnly(period.EndDate)

		if period.OverwriteExisting {
			if _, err := s.blocks.DeleteRange(ctx, input.UnitID, start, end, now); err != nil {
				return mapAvailabilityStoreError(err)
			}
		}

		pending = append(pending, Block{
			ID:        s.idGenerator(),
			UnitID:    input.UnitID,
			StartDate: start,
			EndDate:   end,
			Status:    period.Status,
			Reason:    period.Reason,
			Notes:     period.Notes,
		})
	}

	if err := s.blocks.BulkInsertBlocks(ctx, pending); err != nil {
		return mapAvailabilityStoreError(err)
	}

	return nil
}

// GetMonthlyCalendar returns one status entry per day of the month, with
// uncovered days reported as "Available".
func (s *AvailabilityService) GetMonthlyCalendar(ctx context.Context, unitID string, year int, month time.Month) (map[time.Time]string, error) {
	if s == nil {
		return nil, fmt.Errorf("AvailabilityService is nil")
	}
	if s.units == nil || s.blocks == nil {
		return nil, fmt.Errorf("availability stores not configured")
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

	if _, err := s.units.GetUnit(ctx, unitID); err != nil {
		return nil, mapAvailabilityStoreError(err)
	}

	cal, err := s.blocks.Calendar(ctx, unitID, year, month)
	if err != nil {
		return nil, mapAvailabilityStoreError(err)
	}

	return cal, nil
}

// GetAvailableUnitsInProperty lists the property's units open over
// [checkIn, checkOut). Units whose checks fail are omitted rather than
// failing the listing. guestCount is accepted for API compatibility and does
// not filter results.
func (s *AvailabilityService) GetAvailableUnitsInProperty(ctx context.Context, propertyID string, checkIn, checkOut time.Time, guestCount int) ([]Unit, error) {
	if s == nil {
		return nil, fmt.Errorf("AvailabilityService is nil")
	}
	if s.units == nil || s.blocks == nil {
		return nil, fmt.Errorf("availability stores not configured")
	}

	vErr := &ValidationError{}
	if propertyID == "" {
		vErr.add("property_id", "property id is required")
	}
	if checkIn.IsZero() || checkOut.IsZero() {
		vErr.add("dates", "check-in and check-out dates are required")
	} else if !calendar.DateOnly(checkIn).Before(calendar.DateOnly(checkOut)) {
		vErr.add("dates", "check-in must be before check-out")
	}
	if vErr.HasErrors() {
		return nil, vErr
	}

	units, err := s.units.UnitsByProperty(ctx, propertyID)
	if err != nil {
		return nil, mapAvailabilityStoreError(err)
	}

	available := make([]Unit, 0, len(units))
	for _, unit := range units {
		if s.CheckAvailability(ctx, unit.ID, checkIn, checkOut) {
			available = append(available, unit)
		}
	}

	return available, nil
}

func validateStayParams(params ReserveParams) error {
	vErr := &ValidationError{}
	if params.UnitID == "" {
		vErr.add("unit_id", "unit id is required")
	}
	if strings.TrimSpace(params.BookingID) == "" {
		vErr.add("booking_id", "booking id is required")
	}

	checkIn := calendar.DateOnly(params.CheckIn)
	checkOut := calendar.DateOnly(params.CheckOut)
	if params.CheckIn.IsZero() {
		vErr.add("check_in", "check-in date is required")
	}
	if params.CheckOut.IsZero() {
		vErr.add("check_out", "check-out date is required")
	}
	if !params.CheckIn.IsZero() && !params.CheckOut.IsZero() && !checkIn.Before(checkOut) {
		vErr.add("dates", "check-in must be before check-out")
	}

	if vErr.HasErrors() {
		return vErr
	}
	return nil
}

// validatePeriodDates records date errors for a closed period; equal start
// and end is a valid single-day period.
func validatePeriodDates(start, end time.Time, field string, vErr *ValidationError) {
	if start.IsZero() {
		vErr.add(field+".start_date", "start date is required")
	}
	if end.IsZero() {
		vErr.add(field+".end_date", "end date is required")
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		vErr.add(field, "end date must not be before start date")
	}
}

func mapAvailabilityStoreError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, persistence.ErrNotFound) {
		return ErrUnitNotFound
	}
	if errors.Is(err, persistence.ErrRangeConflict) {
		return ErrRangeConflict
	}
	return err
}
