package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/booking-engine/internal/persistence"
)

// setupTestPool opens a migrated temp-file database for repository tests.
func setupTestPool(t *testing.T) *ConnectionPool {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	pool, err := NewConnectionPool(DefaultConfig(dbPath))
	if err != nil {
		t.Fatalf("Failed to create connection pool: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	if err := pool.Migrate(context.Background()); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	return pool
}

func createTestUnit(t *testing.T, pool *ConnectionPool, id, propertyID string) {
	t.Helper()

	repo := NewUnitRepository(pool)
	now := time.Now().UTC()

	err := repo.CreateUnit(context.Background(), persistence.Unit{
		ID:          id,
		PropertyID:  propertyID,
		Name:        "Unit " + id,
		IsAvailable: true,
		BasePrice:   decimal.NewFromInt(100),
		Currency:    "USD",
		MaxGuests:   4,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		t.Fatalf("Failed to create test unit %s: %v", id, err)
	}
}

func testDate(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestMigrate_IsIdempotent(t *testing.T) {
	pool := setupTestPool(t)

	// Running migrations again must be a no-op.
	if err := pool.Migrate(context.Background()); err != nil {
		t.Fatalf("Second Migrate failed: %v", err)
	}

	var count int
	err := pool.DB().QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	if err != nil {
		t.Fatalf("Failed to count migrations: %v", err)
	}
	if count != len(migrations) {
		t.Errorf("Expected %d applied migrations, got %d", len(migrations), count)
	}
}

func TestConnectionPool_Ping(t *testing.T) {
	pool := setupTestPool(t)

	if err := pool.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}
