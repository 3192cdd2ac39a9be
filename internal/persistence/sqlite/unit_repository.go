package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/booking-engine/internal/persistence"
)

// UnitRepository implements persistence.UnitRepository using SQLite.
type UnitRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewUnitRepository creates a new SQLite unit repository.
func NewUnitRepository(pool *ConnectionPool) *UnitRepository {
	return &UnitRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreateUnit inserts a new unit into the database.
func (r *UnitRepository) CreateUnit(ctx context.Context, unit persistence.Unit) error {
	if unit.ID == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO units (id, property_id, name, is_available, base_price, currency, max_guests, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.helper.Exec(ctx, query,
		unit.ID,
		unit.PropertyID,
		unit.Name,
		boolToInt(unit.IsAvailable),
		unit.BasePrice.String(),
		unit.Currency,
		unit.MaxGuests,
		unit.CreatedAt.UTC().Format(time.RFC3339),
		unit.UpdatedAt.UTC().Format(time.RFC3339),
	)

	if err != nil {
		if containsAny(err.Error(), []string{"UNIQUE constraint failed"}) {
			return persistence.ErrDuplicate
		}
		return r.mapper.MapError(err)
	}

	return nil
}

// GetUnit retrieves a unit by ID from the database.
func (r *UnitRepository) GetUnit(ctx context.Context, id string) (persistence.Unit, error) {
	if id == "" {
		return persistence.Unit{}, persistence.ErrNotFound
	}

	query := `
		SELECT id, property_id, name, is_available, base_price, currency, max_guests, created_at, updated_at
		FROM units
		WHERE id = ?
	`

	unit, err := scanUnit(r.helper.QueryRow(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return persistence.Unit{}, persistence.ErrNotFound
		}
		return persistence.Unit{}, r.mapper.MapError(err)
	}

	return unit, nil
}

// GetUnitsByProperty lists a property's units ordered by name, then ID.
func (r *UnitRepository) GetUnitsByProperty(ctx context.Context, propertyID string) ([]persistence.Unit, error) {
	query := `
		SELECT id, property_id, name, is_available, base_price, currency, max_guests, created_at, updated_at
		FROM units
		WHERE property_id = ?
		ORDER BY name ASC, id ASC
	`

	rows, err := r.helper.Query(ctx, query, propertyID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	units := make([]persistence.Unit, 0)
	for rows.Next() {
		unit, err := scanUnit(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		units = append(units, unit)
	}

	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return units, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scan helpers.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUnit(row rowScanner) (persistence.Unit, error) {
	var unit persistence.Unit
	var isAvailable int
	var basePriceStr, createdAtStr, updatedAtStr string

	err := row.Scan(
		&unit.ID,
		&unit.PropertyID,
		&unit.Name,
		&isAvailable,
		&basePriceStr,
		&unit.Currency,
		&unit.MaxGuests,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		return persistence.Unit{}, err
	}

	unit.IsAvailable = isAvailable != 0

	if unit.BasePrice, err = decimal.NewFromString(basePriceStr); err != nil {
		return persistence.Unit{}, fmt.Errorf("failed to parse base_price: %w", err)
	}
	if unit.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
		return persistence.Unit{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if unit.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr); err != nil {
		return persistence.Unit{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return unit, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// formatDate renders a date-only column value.
func formatDate(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}

// parseDate reads a date-only column value back into a UTC midnight time.
func parseDate(s string) (time.Time, error) {
	return time.ParseInLocation(time.DateOnly, s, time.UTC)
}
