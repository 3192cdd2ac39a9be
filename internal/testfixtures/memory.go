package testfixtures

import (
	"github.com/example/booking-engine/internal/persistence"
	"github.com/example/booking-engine/internal/persistence/memory"
)

// MemoryHarness provides repository access backed by the in-memory store for
// tests that do not need a real database file.
type MemoryHarness struct {
	Units        persistence.UnitRepository
	Availability persistence.AvailabilityRepository
	Pricing      persistence.PricingRepository
}

// NewMemoryHarness constructs a MemoryHarness over a fresh in-memory store.
func NewMemoryHarness() *MemoryHarness {
	store := memory.NewStore()
	return &MemoryHarness{
		Units:        memory.NewUnitStore(store),
		Availability: memory.NewAvailabilityStore(store),
		Pricing:      memory.NewPricingStore(store),
	}
}
