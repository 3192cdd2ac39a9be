package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/booking-engine/internal/persistence"
)

// PricingRepository implements persistence.PricingRepository using SQLite.
//
// Rule priority is (pricing_tier, start_date, id) ascending. pricing_tier is
// a TEXT column compared lexicographically; see persistence.PricingRule.
type PricingRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewPricingRepository creates a new SQLite pricing repository.
func NewPricingRepository(pool *ConnectionPool) *PricingRepository {
	return &PricingRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const ruleColumns = `id, unit_id, start_date, end_date, start_time, end_time, price_type, price_amount, percentage_change, pricing_tier, min_price, max_price, currency, description, created_at, deleted_at, is_deleted`

// BulkInsertRules inserts a batch of pricing rules in one transaction.
func (r *PricingRepository) BulkInsertRules(ctx context.Context, rules []persistence.PricingRule) error {
	if len(rules) == 0 {
		return nil
	}

	query := `
		INSERT INTO pricing_rules (` + ruleColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL, 0)
	`

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		for _, rule := range rules {
			if rule.ID == "" {
				return persistence.ErrConstraintViolation
			}

			_, err := r.helper.ExecTx(tx, query,
				rule.ID,
				rule.UnitID,
				formatDate(rule.StartDate),
				formatDate(rule.EndDate),
				nullString(rule.StartTime),
				nullString(rule.EndTime),
				rule.PriceType,
				rule.PriceAmount.String(),
				nullDecimal(rule.PercentageChange),
				rule.PricingTier,
				nullDecimal(rule.MinPrice),
				nullDecimal(rule.MaxPrice),
				rule.Currency,
				nullString(rule.Description),
				rule.CreatedAt.UTC().Format(time.RFC3339),
			)
			if err != nil {
				return r.mapRuleError(err)
			}
		}
		return nil
	})
}

// GetActiveRule returns the highest-priority active rule covering date, or
// persistence.ErrNotFound when none does.
func (r *PricingRepository) GetActiveRule(ctx context.Context, unitID string, date time.Time) (persistence.PricingRule, error) {
	query := `
		SELECT ` + ruleColumns + `
		FROM pricing_rules
		WHERE unit_id = ? AND is_deleted = 0
		  AND start_date <= ? AND end_date >= ?
		ORDER BY pricing_tier ASC, start_date ASC, id ASC
		LIMIT 1
	`

	day := formatDate(date)
	rule, err := scanRule(r.helper.QueryRow(ctx, query, unitID, day, day))
	if err != nil {
		if err == sql.ErrNoRows {
			return persistence.PricingRule{}, persistence.ErrNotFound
		}
		return persistence.PricingRule{}, r.mapper.MapError(err)
	}

	return rule, nil
}

// GetRulesInRange returns active rules overlapping [start, end] (closed) in
// priority order.
func (r *PricingRepository) GetRulesInRange(ctx context.Context, unitID string, start, end time.Time) ([]persistence.PricingRule, error) {
	query := `
		SELECT ` + ruleColumns + `
		FROM pricing_rules
		WHERE unit_id = ? AND is_deleted = 0
		  AND start_date <= ? AND end_date >= ?
		ORDER BY pricing_tier ASC, start_date ASC, id ASC
	`

	rows, err := r.helper.Query(ctx, query, unitID, formatDate(end), formatDate(start))
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	rules := make([]persistence.PricingRule, 0)
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		rules = append(rules, rule)
	}

	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return rules, nil
}

// SoftDeleteRange marks every active rule overlapping [start, end] (closed)
// as deleted and returns the number of rules touched.
func (r *PricingRepository) SoftDeleteRange(ctx context.Context, unitID string, start, end time.Time, deletedAt time.Time) (int, error) {
	query := `
		UPDATE pricing_rules
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

func scanRule(row rowScanner) (persistence.PricingRule, error) {
	var rule persistence.PricingRule
	var startDateStr, endDateStr, priceAmountStr, createdAtStr string
	var startTime, endTime, percentageChange, minPrice, maxPrice, description, deletedAtStr sql.NullString
	var isDeleted int

	err := row.Scan(
		&rule.ID,
		&rule.UnitID,
		&startDateStr,
		&endDateStr,
		&startTime,
		&endTime,
		&rule.PriceType,
		&priceAmountStr,
		&percentageChange,
		&rule.PricingTier,
		&minPrice,
		&maxPrice,
		&rule.Currency,
		&description,
		&createdAtStr,
		&deletedAtStr,
		&isDeleted,
	)
	if err != nil {
		return persistence.PricingRule{}, err
	}

	if startTime.Valid {
		rule.StartTime = &startTime.String
	}
	if endTime.Valid {
		rule.EndTime = &endTime.String
	}
	if description.Valid {
		rule.Description = &description.String
	}
	rule.IsDeleted = isDeleted != 0

	if rule.StartDate, err = parseDate(startDateStr); err != nil {
		return persistence.PricingRule{}, fmt.Errorf("failed to parse start_date: %w", err)
	}
	if rule.EndDate, err = parseDate(endDateStr); err != nil {
		return persistence.PricingRule{}, fmt.Errorf("failed to parse end_date: %w", err)
	}
	if rule.PriceAmount, err = decimal.NewFromString(priceAmountStr); err != nil {
		return persistence.PricingRule{}, fmt.Errorf("failed to parse price_amount: %w", err)
	}
	if rule.PercentageChange, err = parseNullDecimal(percentageChange, "percentage_change"); err != nil {
		return persistence.PricingRule{}, err
	}
	if rule.MinPrice, err = parseNullDecimal(minPrice, "min_price"); err != nil {
		return persistence.PricingRule{}, err
	}
	if rule.MaxPrice, err = parseNullDecimal(maxPrice, "max_price"); err != nil {
		return persistence.PricingRule{}, err
	}
	if rule.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
		return persistence.PricingRule{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if deletedAtStr.Valid {
		deletedAt, err := time.Parse(time.RFC3339, deletedAtStr.String)
		if err != nil {
			return persistence.PricingRule{}, fmt.Errorf("failed to parse deleted_at: %w", err)
		}
		rule.DeletedAt = &deletedAt
	}

	return rule, nil
}

func nullDecimal(value *decimal.Decimal) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: value.String(), Valid: true}
}

func parseNullDecimal(value sql.NullString, column string) (*decimal.Decimal, error) {
	if !value.Valid {
		return nil, nil
	}
	d, err := decimal.NewFromString(value.String)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", column, err)
	}
	return &d, nil
}

// mapRuleError maps SQLite errors to persistence errors for rule writes.
func (r *PricingRepository) mapRuleError(err error) error {
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
