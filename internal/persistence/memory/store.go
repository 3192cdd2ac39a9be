// Package memory provides an in-memory implementation of the persistence
// contracts for tests and tooling that do not need a database file.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/example/booking-engine/internal/calendar"
	"github.com/example/booking-engine/internal/persistence"
)

// Store holds the shared mutex-guarded state behind the in-memory
// repositories, playing the role the connection pool plays for SQLite.
type Store struct {
	mu     sync.RWMutex
	units  map[string]persistence.Unit
	blocks map[string]persistence.AvailabilityBlock
	rules  map[string]persistence.PricingRule
}

// NewStore returns an empty in-memory store.
func NewStore() *Store {
	return &Store{
		units:  make(map[string]persistence.Unit),
		blocks: make(map[string]persistence.AvailabilityBlock),
		rules:  make(map[string]persistence.PricingRule),
	}
}

// Close releases resources held by the store. No-op for the in-memory implementation.
func (s *Store) Close() error {
	return nil
}

// Migrate initialises the store. No-op for the in-memory implementation.
func (s *Store) Migrate(context.Context) error {
	return nil
}

// UnitStore implements persistence.UnitRepository over a Store.
type UnitStore struct {
	store *Store
}

// NewUnitStore returns a unit repository backed by the store.
func NewUnitStore(store *Store) *UnitStore {
	return &UnitStore{store: store}
}

// CreateUnit stores a new unit catalog entry.
func (r *UnitStore) CreateUnit(ctx context.Context, unit persistence.Unit) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if unit.ID == "" {
		return persistence.ErrConstraintViolation
	}
	if _, ok := s.units[unit.ID]; ok {
		return fmt.Errorf("memory: unit %s: %w", unit.ID, persistence.ErrDuplicate)
	}

	s.units[unit.ID] = unit
	return nil
}

// GetUnit retrieves a unit by ID.
func (r *UnitStore) GetUnit(ctx context.Context, id string) (persistence.Unit, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	unit, ok := s.units[id]
	if !ok {
		return persistence.Unit{}, persistence.ErrNotFound
	}
	return unit, nil
}

// GetUnitsByProperty returns all units of a property ordered by name, then ID.
func (r *UnitStore) GetUnitsByProperty(ctx context.Context, propertyID string) ([]persistence.Unit, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	units := make([]persistence.Unit, 0)
	for _, unit := range s.units {
		if unit.PropertyID == propertyID {
			units = append(units, unit)
		}
	}

	sort.Slice(units, func(i, j int) bool {
		if units[i].Name == units[j].Name {
			return units[i].ID < units[j].ID
		}
		return units[i].Name < units[j].Name
	})

	return units, nil
}

// AvailabilityStore implements persistence.AvailabilityRepository over a Store.
type AvailabilityStore struct {
	store *Store
}

// NewAvailabilityStore returns an availability repository backed by the store.
func NewAvailabilityStore(store *Store) *AvailabilityStore {
	return &AvailabilityStore{store: store}
}

// InsertBlock stores a new availability block.
func (r *AvailabilityStore) InsertBlock(ctx context.Context, block persistence.AvailabilityBlock) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertBlockLocked(block)
}

// BulkInsertBlocks stores a batch of availability blocks.
func (r *AvailabilityStore) BulkInsertBlocks(ctx context.Context, blocks []persistence.AvailabilityBlock) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, block := range blocks {
		if err := s.insertBlockLocked(block); err != nil {
			return err
		}
	}
	return nil
}

// UpdateBlock replaces an existing availability block.
func (r *AvailabilityStore) UpdateBlock(ctx context.Context, block persistence.AvailabilityBlock) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.blocks[block.ID]; !ok {
		return persistence.ErrNotFound
	}
	s.blocks[block.ID] = cloneBlock(block)
	return nil
}

// GetBlocksByUnit returns active blocks for a unit ordered by (StartDate, ID).
func (r *AvailabilityStore) GetBlocksByUnit(ctx context.Context, unitID string) ([]persistence.AvailabilityBlock, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	blocks := make([]persistence.AvailabilityBlock, 0)
	for _, block := range s.blocks {
		if block.UnitID != unitID || block.IsDeleted {
			continue
		}
		blocks = append(blocks, cloneBlock(block))
	}

	sortBlocks(blocks)
	return blocks, nil
}

// IsRangeBlocked reports whether any active non-"Available" block overlaps
// [start, end) for the unit.
func (r *AvailabilityStore) IsRangeBlocked(ctx context.Context, unitID string, start, end time.Time) (bool, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRangeBlockedLocked(unitID, start, end), nil
}

// ReserveBlock re-checks the range and inserts the block under one write
// lock, so two concurrent reservations for overlapping ranges cannot both
// succeed.
func (r *AvailabilityStore) ReserveBlock(ctx context.Context, block persistence.AvailabilityBlock) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRangeBlockedLocked(block.UnitID, block.StartDate, block.EndDate) {
		return persistence.ErrRangeConflict
	}
	return s.insertBlockLocked(block)
}

// SoftDeleteByBooking marks every active block for the booking as deleted.
func (r *AvailabilityStore) SoftDeleteByBooking(ctx context.Context, bookingID string, deletedAt time.Time) (int, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	touched := 0
	for id, block := range s.blocks {
		if block.IsDeleted || block.BookingID == nil || *block.BookingID != bookingID {
			continue
		}
		when := deletedAt
		block.IsDeleted = true
		block.DeletedAt = &when
		s.blocks[id] = block
		touched++
	}
	return touched, nil
}

// SoftDeleteRange marks every active block overlapping [start, end] (closed)
// as deleted.
func (r *AvailabilityStore) SoftDeleteRange(ctx context.Context, unitID string, start, end time.Time, deletedAt time.Time) (int, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	touched := 0
	for id, block := range s.blocks {
		if block.IsDeleted || block.UnitID != unitID {
			continue
		}
		if !calendar.OverlapsClosed(block.StartDate, block.EndDate, start, end) {
			continue
		}
		when := deletedAt
		block.IsDeleted = true
		block.DeletedAt = &when
		s.blocks[id] = block
		touched++
	}
	return touched, nil
}

// GetCalendar materializes one status entry per day of the month.
func (r *AvailabilityStore) GetCalendar(ctx context.Context, unitID string, year int, month time.Month) (map[time.Time]string, error) {
	s := r.store
	first, last := calendar.MonthBounds(year, month)

	s.mu.RLock()
	covering := make([]persistence.AvailabilityBlock, 0)
	for _, block := range s.blocks {
		if block.IsDeleted || block.UnitID != unitID {
			continue
		}
		if !calendar.OverlapsClosed(block.StartDate, block.EndDate, first, last) {
			continue
		}
		covering = append(covering, cloneBlock(block))
	}
	s.mu.RUnlock()

	sortBlocks(covering)

	result := make(map[time.Time]string, calendar.DaysInMonth(year, month))
	for _, day := range calendar.MonthDays(year, month) {
		status := "Available"
		for _, block := range covering {
			if calendar.Covers(block.StartDate, block.EndDate, day) {
				status = block.Status
				break
			}
		}
		result[day] = status
	}
	return result, nil
}

// PricingStore implements persistence.PricingRepository over a Store.
type PricingStore struct {
	store *Store
}

// NewPricingStore returns a pricing repository backed by the store.
func NewPricingStore(store *Store) *PricingStore {
	return &PricingStore{store: store}
}

// BulkInsertRules stores a batch of pricing rules.
func (r *PricingStore) BulkInsertRules(ctx context.Context, rules []persistence.PricingRule) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rule := range rules {
		if rule.ID == "" {
			return persistence.ErrConstraintViolation
		}
		if _, ok := s.rules[rule.ID]; ok {
			return fmt.Errorf("memory: rule %s: %w", rule.ID, persistence.ErrDuplicate)
		}
	}
	for _, rule := range rules {
		s.rules[rule.ID] = cloneRule(rule)
	}
	return nil
}

// GetActiveRule returns the highest-priority active rule covering date.
func (r *PricingStore) GetActiveRule(ctx context.Context, unitID string, date time.Time) (persistence.PricingRule, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := make([]persistence.PricingRule, 0)
	for _, rule := range s.rules {
		if rule.IsDeleted || rule.UnitID != unitID {
			continue
		}
		if !calendar.Covers(rule.StartDate, rule.EndDate, date) {
			continue
		}
		matches = append(matches, cloneRule(rule))
	}

	if len(matches) == 0 {
		return persistence.PricingRule{}, persistence.ErrNotFound
	}

	sortRules(matches)
	return matches[0], nil
}

// GetRulesInRange returns active rules overlapping [start, end] in priority order.
func (r *PricingStore) GetRulesInRange(ctx context.Context, unitID string, start, end time.Time) ([]persistence.PricingRule, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	rules := make([]persistence.PricingRule, 0)
	for _, rule := range s.rules {
		if rule.IsDeleted || rule.UnitID != unitID {
			continue
		}
		if !calendar.OverlapsClosed(rule.StartDate, rule.EndDate, start, end) {
			continue
		}
		rules = append(rules, cloneRule(rule))
	}

	sortRules(rules)
	return rules, nil
}

// SoftDeleteRange marks every active rule overlapping [start, end] (closed)
// as deleted.
func (r *PricingStore) SoftDeleteRange(ctx context.Context, unitID string, start, end time.Time, deletedAt time.Time) (int, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	touched := 0
	for id, rule := range s.rules {
		if rule.IsDeleted || rule.UnitID != unitID {
			continue
		}
		if !calendar.OverlapsClosed(rule.StartDate, rule.EndDate, start, end) {
			continue
		}
		when := deletedAt
		rule.IsDeleted = true
		rule.DeletedAt = &when
		s.rules[id] = rule
		touched++
	}
	return touched, nil
}

// --- Helpers ---

func (s *Store) insertBlockLocked(block persistence.AvailabilityBlock) error {
	if block.ID == "" {
		return persistence.ErrConstraintViolation
	}
	if _, ok := s.blocks[block.ID]; ok {
		return fmt.Errorf("memory: block %s: %w", block.ID, persistence.ErrDuplicate)
	}
	s.blocks[block.ID] = cloneBlock(block)
	return nil
}

func (s *Store) isRangeBlockedLocked(unitID string, start, end time.Time) bool {
	for _, block := range s.blocks {
		if block.IsDeleted || block.UnitID != unitID {
			continue
		}
		if strings.EqualFold(block.Status, "Available") {
			continue
		}
		if calendar.OverlapsHalfOpen(block.StartDate, block.EndDate, start, end) {
			return true
		}
	}
	return false
}

func sortBlocks(blocks []persistence.AvailabilityBlock) {
	sort.Slice(blocks, func(i, j int) bool {
		if blocks[i].StartDate.Equal(blocks[j].StartDate) {
			return blocks[i].ID < blocks[j].ID
		}
		return blocks[i].StartDate.Before(blocks[j].StartDate)
	})
}

func sortRules(rules []persistence.PricingRule) {
	sort.Slice(rules, func(i, j int) bool {
		if rules[i].PricingTier != rules[j].PricingTier {
			return rules[i].PricingTier < rules[j].PricingTier
		}
		if !rules[i].StartDate.Equal(rules[j].StartDate) {
			return rules[i].StartDate.Before(rules[j].StartDate)
		}
		return rules[i].ID < rules[j].ID
	})
}

func cloneBlock(block persistence.AvailabilityBlock) persistence.AvailabilityBlock {
	block.BookingID = cloneString(block.BookingID)
	block.Notes = cloneString(block.Notes)
	block.DeletedAt = cloneTime(block.DeletedAt)
	return block
}

func cloneRule(rule persistence.PricingRule) persistence.PricingRule {
	rule.StartTime = cloneString(rule.StartTime)
	rule.EndTime = cloneString(rule.EndTime)
	rule.Description = cloneString(rule.Description)
	rule.DeletedAt = cloneTime(rule.DeletedAt)
	if rule.PercentageChange != nil {
		pct := *rule.PercentageChange
		rule.PercentageChange = &pct
	}
	if rule.MinPrice != nil {
		min := *rule.MinPrice
		rule.MinPrice = &min
	}
	if rule.MaxPrice != nil {
		max := *rule.MaxPrice
		rule.MaxPrice = &max
	}
	return rule
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}
