package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/booking-engine/internal/calendar"
	"github.com/example/booking-engine/internal/persistence"
)

// AvailabilityRepository implements persistence.AvailabilityRepository using
// SQLite. Range checks against bookings use half-open date comparison so a
// checkout day can double as the next stay's checkin day; overwrite deletion
// uses closed comparison so touching blocks are cleared too.
type AvailabilityRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewAvailabilityRepository creates a new SQLite availability repository.
func NewAvailabilityRepository(pool *ConnectionPool) *AvailabilityRepository {
	return &AvailabilityRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const insertBlockQuery = `
	INSERT INTO unit_blocks (id, unit_id, booking_id, start_date, end_date, status, reason, notes, created_at, deleted_at, is_deleted)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, NULL, 0)
`

// blockedRangeQuery counts active non-"Available" blocks overlapping a
// half-open [start, end) range. LOWER() mirrors the case-insensitive status
// comparison used everywhere else.
const blockedRangeQuery = `
	SELECT COUNT(*)
	FROM unit_blocks
	WHERE unit_id = ?
	  AND is_deleted = 0
	  AND LOWER(status) != 'available'
	  AND start_date < ?
	  AND end_date > ?
`

// InsertBlock inserts a new availability block into the database.
func (r *AvailabilityRepository) InsertBlock(ctx context.Context, block persistence.AvailabilityBlock) error {
	if block.ID == "" {
		return persistence.ErrConstraintViolation
	}

	_, err := r.helper.Exec(ctx, insertBlockQuery, blockInsertArgs(block)...)
	if err != nil {
		return r.mapBlockError(err)
	}
	return nil
}

// BulkInsertBlocks inserts a batch of blocks in one transaction.
func (r *AvailabilityRepository) BulkInsertBlocks(ctx context.Context, blocks []persistence.AvailabilityBlock) error {
	if len(blocks) == 0 {
		return nil
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		for _, block := range blocks {
			if block.ID == "" {
				return persistence.ErrConstraintViolation
			}
			if _, err := r.helper.ExecTx(tx, insertBlockQuery, blockInsertArgs(block)...); err != nil {
				return r.mapBlockError(err)
			}
		}
		return nil
	})
}

// UpdateBlock replaces an existing block's fields.
func (r *AvailabilityRepository) UpdateBlock(ctx context.Context, block persistence.AvailabilityBlock) error {
	if block.ID == "" {
		return persistence.ErrNotFound
	}

	query := `
		UPDATE unit_blocks
		SET unit_id = ?, booking_id = ?, start_date = ?, end_date = ?, status = ?, reason = ?, notes = ?, deleted_at = ?, is_deleted = ?
		WHERE id = ?
	`

	var deletedAt sql.NullString
	if block.DeletedAt != nil {
		deletedAt.String = block.DeletedAt.UTC().Format(time.RFC3339)
		deletedAt.Valid = true
	}

	result, err := r.helper.Exec(ctx, query,
		block.UnitID,
		nullString(block.BookingID),
		formatDate(block.StartDate),
		formatDate(block.EndDate),
		block.Status,
		block.Reason,
		nullString(block.Notes),
		deletedAt,
		boolToInt(block.IsDeleted),
		block.ID,
	)
	if err != nil {
		return r.mapBlockError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// GetBlocksByUnit returns active blocks for a unit ordered by (start_date, id).
func (r *AvailabilityRepository) GetBlocksByUnit(ctx context.Context, unitID string) ([]persistence.AvailabilityBlock, error) {
	query := `
		SELECT id, unit_id, booking_id, start_date, end_date, status, reason, notes, created_at, deleted_at, is_deleted
		FROM unit_blocks
		WHERE unit_id = ? AND is_deleted = 0
		ORDER BY start_date ASC, id ASC
	`

	rows, err := r.helper.Query(ctx, query, unitID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	return scanBlocks(rows)
}

// IsRangeBlocked reports whether any active non-"Available" block overlaps
// [start, end) for the unit.
func (r *AvailabilityRepository) IsRangeBlocked(ctx context.Context, unitID string, start, end time.Time) (bool, error) {
	var count int
	err := r.helper.QueryRow(ctx, blockedRangeQuery, unitID, formatDate(end), formatDate(start)).Scan(&count)
	if err != nil {
		return false, r.mapper.MapError(err)
	}
	return count > 0, nil
}

// ReserveBlock re-checks the range and inserts the block inside a single
// transaction, so two concurrent reservations for overlapping ranges cannot
// both succeed.
func (r *AvailabilityRepository) ReserveBlock(ctx context.Context, block persistence.AvailabilityBlock) error {
	if block.ID == "" {
		return persistence.ErrConstraintViolation
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		var count int
		err := r.helper.QueryRowTx(tx, blockedRangeQuery,
			block.UnitID, formatDate(block.EndDate), formatDate(block.StartDate)).Scan(&count)
		if err != nil {
			return r.mapper.MapError(err)
		}
		if count > 0 {
			return persistence.ErrRangeConflict
		}

		if _, err := r.helper.ExecTx(tx, insertBlockQuery, blockInsertArgs(block)...); err != nil {
			return r.mapBlockError(err)
		}
		return nil
	})
}

// SoftDeleteByBooking marks every active block for the booking as deleted in
// one statement and returns the number of blocks touched.
func (r *AvailabilityRepository) SoftDeleteByBooking(ctx context.Context, bookingID string, deletedAt time.Time) (int, error) {
	query := `
		UPDATE unit_blocks
		SET is_deleted = 1, deleted_at = ?
		WHERE booking_id = ? AND is_deleted = 0
	`

	result, err := r.helper.Exec(ctx, query, deletedAt.UTC().Format(time.RFC3339), bookingID)
	if err != nil {
		return 0, r.mapper.MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(rowsAffected), nil
}

// SoftDeleteRange marks every active block overlapping [start, end] (closed)
// as deleted and returns the number of blocks touched.
func (r *AvailabilityRepository) SoftDeleteRange(ctx context.Context, unitID string, start, end time.Time, deletedAt time.Time) (int, error) {
	query := `
		UPDATE unit_blocks
		SET is_deleted = 1, deleted_at = ?
		WHERE unit_id = ? AND is_deleted = 0
		  AND start_date <= ? AND end_date >= ?
	`

	result, err := r.helper.Exec(ctx, query,
		deletedAt.UTC().Format(time.RFC3339), unitID, formatDate(end), formatDate(start))
	if err != nil {
		return 0, r.mapper.MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(rowsAffected), nil
}

// GetCalendar materializes one status entry per day of the month. The first
// active block covering a day, in (start_date, id) order, supplies the
// status; uncovered days default to "Available".
func (r *AvailabilityRepository) GetCalendar(ctx context.Context, unitID string, year int, month time.Month) (map[time.Time]string, error) {
	first, last := calendar.MonthBounds(year, month)

	query := `
		SELECT id, unit_id, booking_id, start_date, end_date, status, reason, notes, created_at, deleted_at, is_deleted
		FROM unit_blocks
		WHERE unit_id = ? AND is_deleted = 0
		  AND start_date <= ? AND end_date >= ?
		ORDER BY start_date ASC, id ASC
	`

	rows, err := r.helper.Query(ctx, query, unitID, formatDate(last), formatDate(first))
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	blocks, err := scanBlocks(rows)
	if err != nil {
		return nil, err
	}

	result := make(map[time.Time]string, calendar.DaysInMonth(year, month))
	for _, day := range calendar.MonthDays(year, month) {
		status := "Available"
		for _, block := range blocks {
			if calendar.Covers(block.StartDate, block.EndDate, day) {
				status = block.Status
				break
			}
		}
		result[day] = status
	}
	return result, nil
}

func blockInsertArgs(block persistence.AvailabilityBlock) []interface{} {
	return []interface{}{
		block.ID,
		block.UnitID,
		nullString(block.BookingID),
		formatDate(block.StartDate),
		formatDate(block.EndDate),
		block.Status,
		block.Reason,
		nullString(block.Notes),
		block.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func scanBlocks(rows *sql.Rows) ([]persistence.AvailabilityBlock, error) {
	blocks := make([]persistence.AvailabilityBlock, 0)

	for rows.Next() {
		var block persistence.AvailabilityBlock
		var bookingID, notes, deletedAtStr sql.NullString
		var startDateStr, endDateStr, createdAtStr string
		var isDeleted int

		err := rows.Scan(
			&block.ID,
			&block.UnitID,
			&bookingID,
			&startDateStr,
			&endDateStr,
			&block.Status,
			&block.Reason,
			&notes,
			&createdAtStr,
			&deletedAtStr,
			&isDeleted,
		)
		if err != nil {
			return nil, err
		}

		if bookingID.Valid {
			block.BookingID = &bookingID.String
		}
		if notes.Valid {
			block.Notes = &notes.String
		}
		block.IsDeleted = isDeleted != 0

		if block.StartDate, err = parseDate(startDateStr); err != nil {
			return nil, fmt.Errorf("failed to parse start_date: %w", err)
		}
		if block.EndDate, err = parseDate(endDateStr); err != nil {
			return nil, fmt.Errorf("failed to parse end_date: %w", err)
		}
		if block.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
		if deletedAtStr.Valid {
			deletedAt, err := time.Parse(time.RFC3339, deletedAtStr.String)
			if err != nil {
				return nil, fmt.Errorf("failed to parse deleted_at: %w", err)
			}
			block.DeletedAt = &deletedAt
		}

		blocks = append(blocks, block)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return blocks, nil
}

func nullString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}

// mapBlockError maps SQLite errors to persistence errors for block writes.
func (r *AvailabilityRepository) mapBlockError(err error) error {
	if err == nil {
		return nil
	}

	errStr := err.Error()

	if containsAny(errStr, []string{"UNIQUE constraint failed"}) {
		return persistence.ErrDuplicate
	}
	if containsAny(errStr, []string{"FOREIGN KEY constraint failed", "CHECK constraint failed"}) {
		return persistence.ErrConstraintViolation
	}

	return r.mapper.MapError(err)
}
