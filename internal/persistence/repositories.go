package persistence

import (
	"context"
	"time"
)

// UnitRepository exposes catalog lookups plus the create used by seeding and
// fixtures. The engines only ever read units.
type UnitRepository interface {
	CreateUnit(ctx context.Context, unit Unit) error
	GetUnit(ctx context.Context, id string) (Unit, error)
	GetUnitsByProperty(ctx context.Context, propertyID string) ([]Unit, error)
}

// AvailabilityRepository stores availability blocks for units.
//
// Every read filters soft-deleted records. IsRangeBlocked uses half-open
// range semantics ([start, end)); SoftDeleteRange uses closed semantics
// ([start, end]) — the asymmetry is part of the contract.
type AvailabilityRepository interface {
	InsertBlock(ctx context.Context, block AvailabilityBlock) error
	BulkInsertBlocks(ctx context.Context, blocks []AvailabilityBlock) error
	UpdateBlock(ctx context.Context, block AvailabilityBlock) error
	GetBlocksByUnit(ctx context.Context, unitID string) ([]AvailabilityBlock, error)

	// IsRangeBlocked reports whether any active block with a non-"Available"
	// status (case-insensitive) overlaps [start, end).
	IsRangeBlocked(ctx context.Context, unitID string, start, end time.Time) (bool, error)

	// ReserveBlock atomically re-runs the IsRangeBlocked check and inserts the
	// block, returning ErrRangeConflict when the range is already taken. This
	// is the store half of the double-booking guarantee.
	ReserveBlock(ctx context.Context, block AvailabilityBlock) error

	// SoftDeleteByBooking marks every active block carrying the booking id as
	// deleted in one atomic mutation and returns the number of blocks touched.
	SoftDeleteByBooking(ctx context.Context, bookingID string, deletedAt time.Time) (int, error)

	// SoftDeleteRange marks every active block overlapping [start, end]
	// (closed) as deleted and returns the number of blocks touched.
	SoftDeleteRange(ctx context.Context, unitID string, start, end time.Time, deletedAt time.Time) (int, error)

	// GetCalendar materializes one status entry per day of the month. The
	// first active block covering a day, ordered by (StartDate, ID), supplies
	// the status; uncovered days default to "Available".
	GetCalendar(ctx context.Context, unitID string, year int, month time.Month) (map[time.Time]string, error)
}

// PricingRepository stores pricing rules for units.
type PricingRepository interface {
	BulkInsertRules(ctx context.Context, rules []PricingRule) error

	// GetActiveRule returns the highest-priority active rule covering date —
	// lowest PricingTier first (lexicographic), then earliest StartDate, then
	// ID — or ErrNotFound when no rule covers it.
	GetActiveRule(ctx context.Context, unitID string, date time.Time) (PricingRule, error)

	// GetRulesInRange returns active rules overlapping [start, end] (closed),
	// ordered by the same priority key as GetActiveRule.
	GetRulesInRange(ctx context.Context, unitID string, start, end time.Time) ([]PricingRule, error)

	// SoftDeleteRange marks every active rule overlapping [start, end]
	// (closed) as deleted and returns the number of rules touched.
	SoftDeleteRange(ctx context.Context, unitID string, start, end time.Time, deletedAt time.Time) (int, error)
}
