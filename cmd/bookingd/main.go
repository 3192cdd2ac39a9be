package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/example/booking-engine/internal/application"
	"github.com/example/booking-engine/internal/config"
	httptransport "github.com/example/booking-engine/internal/http"
	"github.com/example/booking-engine/internal/persistence"
	"github.com/example/booking-engine/internal/persistence/sqlite"
)

func main() {
	// A missing .env file is fine; the environment still applies.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel(cfg.LogLevel)}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := sqlite.NewConnectionPool(sqlite.Config{
		Path:        cfg.SQLiteDSN,
		BusyTimeout: cfg.BusyTimeout,
	})
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := pool.Close(); cerr != nil {
			logger.Error("failed to close database", "error", cerr)
		}
	}()

	if err := pool.Migrate(context.Background()); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	idGenerator := uuid.NewString
	now := time.Now

	unitCatalog := newUnitCatalogAdapter(sqlite.NewUnitRepository(pool))
	blockStore := newBlockStoreAdapter(sqlite.NewAvailabilityRepository(pool), now)
	ruleStore := newRuleStoreAdapter(sqlite.NewPricingRepository(pool), now)

	availabilityService := application.NewAvailabilityService(unitCatalog, blockStore, idGenerator, now, logger)
	pricingService := application.NewPricingService(unitCatalog, ruleStore, idGenerator, now, logger)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Availability: httptransport.NewAvailabilityHandler(availabilityService, logger),
		Pricing:      httptransport.NewPricingHandler(pricingService, logger),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
		},
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("booking API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

func logLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

type unitCatalogAdapter struct {
	repo persistence.UnitRepository
}

func newUnitCatalogAdapter(repo persistence.UnitRepository) *unitCatalogAdapter {
	return &unitCatalogAdapter{repo: repo}
}

func (a *unitCatalogAdapter) GetUnit(ctx context.Context, id string) (application.Unit, error) {
	stored, err := a.repo.GetUnit(ctx, id)
	if err != nil {
		return application.Unit{}, err
	}
	return toApplicationUnit(stored), nil
}

func (a *unitCatalogAdapter) UnitsByProperty(ctx context.Context, propertyID string) ([]application.Unit, error) {
	models, err := a.repo.GetUnitsByProperty(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	units := make([]application.Unit, 0, len(models))
	for _, model := range models {
		units = append(units, toApplicationUnit(model))
	}
	return units, nil
}

type blockStoreAdapter struct {
	repo persistence.AvailabilityRepository
	now  func() time.Time
}

func newBlockStoreAdapter(repo persistence.AvailabilityRepository, now func() time.Time) *blockStoreAdapter {
	if now == nil {
		now = time.Now
	}
	return &blockStoreAdapter{repo: repo, now: now}
}

func (a *blockStoreAdapter) InsertBlock(ctx context.Context, block application.Block) error {
	return a.repo.InsertBlock(ctx, a.toPersistenceBlock(block))
}

func (a *blockStoreAdapter) BulkInsertBlocks(ctx context.Context, blocks []application.Block) error {
	models := make([]persistence.AvailabilityBlock, 0, len(blocks))
	for _, block := range blocks {
		models = append(models, a.toPersistenceBlock(block))
	}
	return a.repo.BulkInsertBlocks(ctx, models)
}

func (a *blockStoreAdapter) IsRangeBlocked(ctx context.Context, unitID string, start, end time.Time) (bool, error) {
	return a.repo.IsRangeBlocked(ctx, unitID, start, end)
}

func (a *blockStoreAdapter) ReserveBlock(ctx context.Context, block application.Block) error {
	return a.repo.ReserveBlock(ctx, a.toPersistenceBlock(block))
}

func (a *blockStoreAdapter) ReleaseByBooking(ctx context.Context, bookingID string, at time.Time) (int, error) {
	return a.repo.SoftDeleteByBooking(ctx, bookingID, at)
}

func (a *blockStoreAdapter) DeleteRange(ctx context.Context, unitID string, start, end time.Time, at time.Time) (int, error) {
	return a.repo.SoftDeleteRange(ctx, unitID, start, end, at)
}

func (a *blockStoreAdapter) Calendar(ctx context.Context, unitID string, year int, month time.Month) (map[time.Time]string, error) {
	return a.repo.GetCalendar(ctx, unitID, year, month)
}

func (a *blockStoreAdapter) toPersistenceBlock(block application.Block) persistence.AvailabilityBlock {
	return persistence.AvailabilityBlock{
		ID:        block.ID,
		UnitID:    block.UnitID,
		BookingID: cloneString(block.BookingID),
		StartDate: block.StartDate,
		EndDate:   block.EndDate,
		Status:    block.Status,
		Reason:    block.Reason,
		Notes:     cloneString(block.Notes),
		CreatedAt: a.now().UTC(),
	}
}

type ruleStoreAdapter struct {
	repo persistence.PricingRepository
	now  func() time.Time
}

func newRuleStoreAdapter(repo persistence.PricingRepository, now func() time.Time) *ruleStoreAdapter {
	if now == nil {
		now = time.Now
	}
	return &ruleStoreAdapter{repo: repo, now: now}
}

func (a *ruleStoreAdapter) BulkInsertRules(ctx context.Context, rules []application.Rule) error {
	models := make([]persistence.PricingRule, 0, len(rules))
	createdAt := a.now().UTC()
	for _, rule := range rules {
		models = append(models, persistence.PricingRule{
			ID:               rule.ID,
			UnitID:           rule.UnitID,
			StartDate:        rule.StartDate,
			EndDate:          rule.EndDate,
			PriceType:        rule.PriceType,
			PriceAmount:      rule.PriceAmount,
			PercentageChange: cloneDecimal(rule.PercentageChange),
			PricingTier:      rule.Tier,
			MinPrice:         cloneDecimal(rule.MinPrice),
			MaxPrice:         cloneDecimal(rule.MaxPrice),
			Currency:         rule.Currency,
			Description:      cloneString(rule.Description),
			CreatedAt:        createdAt,
		})
	}
	return a.repo.BulkInsertRules(ctx, models)
}

func (a *ruleStoreAdapter) ActiveRule(ctx context.Context, unitID string, date time.Time) (application.Rule, error) {
	stored, err := a.repo.GetActiveRule(ctx, unitID, date)
	if err != nil {
		return application.Rule{}, err
	}
	return toApplicationRule(stored), nil
}

func (a *ruleStoreAdapter) RulesInRange(ctx context.Context, unitID string, start, end time.Time) ([]application.Rule, error) {
	models, err := a.repo.GetRulesInRange(ctx, unitID, start, end)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	rules := make([]application.Rule, 0, len(models))
	for _, model := range models {
		rules = append(rules, toApplicationRule(model))
	}
	return rules, nil
}

func (a *ruleStoreAdapter) DeleteRange(ctx context.Context, unitID string, start, end time.Time, at time.Time) (int, error) {
	return a.repo.SoftDeleteRange(ctx, unitID, start, end, at)
}

func toApplicationUnit(model persistence.Unit) application.Unit {
	return application.Unit{
		ID:          model.ID,
		PropertyID:  model.PropertyID,
		Name:        model.Name,
		IsAvailable: model.IsAvailable,
		BasePrice:   model.BasePrice,
		Currency:    model.Currency,
		MaxGuests:   model.MaxGuests,
	}
}

func toApplicationRule(model persistence.PricingRule) application.Rule {
	return application.Rule{
		ID:               model.ID,
		UnitID:           model.UnitID,
		StartDate:        model.StartDate,
		EndDate:          model.EndDate,
		PriceType:        model.PriceType,
		PriceAmount:      model.PriceAmount,
		PercentageChange: cloneDecimal(model.PercentageChange),
		Tier:             model.PricingTier,
		MinPrice:         cloneDecimal(model.MinPrice),
		MaxPrice:         cloneDecimal(model.MaxPrice),
		Currency:         model.Currency,
		Description:      cloneString(model.Description),
	}
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}

func cloneDecimal(value *decimal.Decimal) *decimal.Decimal {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}
