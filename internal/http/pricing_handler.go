package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/example/booking-engine/internal/application"
)

type pricingService interface {
	GetPricingBreakdown(ctx context.Context, unitID string, checkIn, checkOut time.Time) (application.PricingBreakdown, error)
	GetPricingCalendar(ctx context.Context, unitID string, year int, month time.Month) ([]application.DayPrice, error)
	ApplyBulkPricing(ctx context.Context, input application.BulkPricingInput) error
	ApplySeasonalPricing(ctx context.Context, input application.SeasonalPricingInput) error
}

type PricingHandler struct {
	service   pricingService
	responder responder
	validate  *validator.Validate
	logger    *slog.Logger
}

func NewPricingHandler(service pricingService, logger *slog.Logger) *PricingHandler {
	base := defaultLogger(logger)
	return &PricingHandler{
		service:   service,
		responder: newResponder(base),
		validate:  validator.New(),
		logger:    base,
	}
}

func (h *PricingHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "PricingHandler", operation, attrs...)
}

// Quote handles GET /units/{id}/pricing/quote.
func (h *PricingHandler) Quote(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	unitID, ok := UnitIDFromContext(r.Context())
	if !ok || strings.TrimSpace(unitID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidUnitID)
		return
	}

	checkIn, checkOut, err := stayQueryDates(r)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	breakdown, err := h.service.GetPricingBreakdown(r.Context(), unitID, checkIn, checkOut)
	if err != nil {
		h.log(r.Context(), "Quote", "unit_id", unitID).ErrorContext(r.Context(), "quote failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, quoteResponse{
		UnitID:      unitID,
		CheckIn:     breakdown.CheckIn.Format(time.DateOnly),
		CheckOut:    breakdown.CheckOut.Format(time.DateOnly),
		Currency:    breakdown.Currency,
		TotalNights: breakdown.TotalNights,
		Total:       breakdown.Total.String(),
	})
}

// Breakdown handles GET /units/{id}/pricing/breakdown.
func (h *PricingHandler) Breakdown(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	unitID, ok := UnitIDFromContext(r.Context())
	if !ok || strings.TrimSpace(unitID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidUnitID)
		return
	}

	checkIn, checkOut, err := stayQueryDates(r)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	breakdown, err := h.service.GetPricingBreakdown(r.Context(), unitID, checkIn, checkOut)
	if err != nil {
		h.log(r.Context(), "Breakdown", "unit_id", unitID).ErrorContext(r.Context(), "breakdown failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, breakdownResponse{
		UnitID:      unitID,
		CheckIn:     breakdown.CheckIn.Format(time.DateOnly),
		CheckOut:    breakdown.CheckOut.Format(time.DateOnly),
		Currency:    breakdown.Currency,
		TotalNights: breakdown.TotalNights,
		Days:        toDayPriceDTOs(breakdown.Days),
		SubTotal:    breakdown.SubTotal.String(),
		Total:       breakdown.Total.String(),
	})
}

// Calendar handles GET /units/{id}/pricing/calendar.
func (h *PricingHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	unitID, ok := UnitIDFromContext(r.Context())
	if !ok || strings.TrimSpace(unitID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidUnitID)
		return
	}

	year, month, err := monthQuery(r)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	prices, err := h.service.GetPricingCalendar(r.Context(), unitID, year, month)
	if err != nil {
		h.log(r.Context(), "Calendar", "unit_id", unitID).ErrorContext(r.Context(), "pricing calendar failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, pricingCalendarResponse{
		UnitID: unitID,
		Year:   year,
		Month:  int(month),
		Days:   toDayPriceDTOs(prices),
	})
}

// Apply handles PUT /units/{id}/pricing.
func (h *PricingHandler) Apply(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	unitID, ok := UnitIDFromContext(r.Context())
	if !ok || strings.TrimSpace(unitID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidUnitID)
		return
	}

	var req bulkPricingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Apply", "unit_id", unitID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode pricing request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.responder.writeJSON(r.Context(), w, http.StatusUnprocessableEntity, errorResponse{
			Message: "validation failed",
			Errors:  validatorFieldErrors(err),
		})
		return
	}

	input, err := req.toInput(unitID)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	logger := h.log(r.Context(), "Apply", "unit_id", unitID, "period_count", len(input.Periods))

	if err := h.service.ApplyBulkPricing(r.Context(), input); err != nil {
		logger.ErrorContext(r.Context(), "pricing update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "pricing updated")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// ApplySeasons handles POST /units/{id}/pricing/seasons.
func (h *PricingHandler) ApplySeasons(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	unitID, ok := UnitIDFromContext(r.Context())
	if !ok || strings.TrimSpace(unitID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidUnitID)
		return
	}

	var req seasonalPricingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "ApplySeasons", "unit_id", unitID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode seasonal pricing request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.responder.writeJSON(r.Context(), w, http.StatusUnprocessableEntity, errorResponse{
			Message: "validation failed",
			Errors:  validatorFieldErrors(err),
		})
		return
	}

	input, err := req.toInput(unitID)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	logger := h.log(r.Context(), "ApplySeasons", "unit_id", unitID, "season_count", len(input.Seasons))

	if err := h.service.ApplySeasonalPricing(r.Context(), input); err != nil {
		logger.ErrorContext(r.Context(), "seasonal pricing failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "seasonal pricing applied")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type quoteResponse struct {
	UnitID      string `json:"unit_id"`
	CheckIn     string `json:"check_in"`
	CheckOut    string `json:"check_out"`
	Currency    string `json:"currency"`
	TotalNights int    `json:"total_nights"`
	Total       string `json:"total"`
}

type breakdownResponse struct {
	UnitID      string        `json:"unit_id"`
	CheckIn     string        `json:"check_in"`
	CheckOut    string        `json:"check_out"`
	Currency    string        `json:"currency"`
	TotalNights int           `json:"total_nights"`
	Days        []dayPriceDTO `json:"days"`
	SubTotal    string        `json:"sub_total"`
	Total       string        `json:"total"`
}

type pricingCalendarResponse struct {
	UnitID string        `json:"unit_id"`
	Year   int           `json:"year"`
	Month  int           `json:"month"`
	Days   []dayPriceDTO `json:"days"`
}

type dayPriceDTO struct {
	Date        string `json:"date"`
	Price       string `json:"price"`
	PriceType   string `json:"price_type"`
	Description string `json:"description,omitempty"`
}

func toDayPriceDTOs(days []application.DayPrice) []dayPriceDTO {
	out := make([]dayPriceDTO, 0, len(days))
	for _, day := range days {
		out = append(out, dayPriceDTO{
			Date:        day.Date.Format(time.DateOnly),
			Price:       day.Price.String(),
			PriceType:   day.PriceType,
			Description: day.Description,
		})
	}
	return out
}

type pricingPeriodRequest struct {
	StartDate         string  `json:"start_date" validate:"required"`
	EndDate           string  `json:"end_date" validate:"required"`
	Price             string  `json:"price" validate:"required"`
	PriceType         string  `json:"price_type"`
	Tier              string  `json:"tier"`
	MinPrice          *string `json:"min_price"`
	MaxPrice          *string `json:"max_price"`
	Description       *string `json:"description"`
	OverwriteExisting bool    `json:"overwrite_existing"`
}

type bulkPricingRequest struct {
	Currency string                 `json:"currency"`
	Periods  []pricingPeriodRequest `json:"periods" validate:"required,min=1,dive"`
}

func (r bulkPricingRequest) toInput(unitID string) (application.BulkPricingInput, error) {
	periods := make([]application.PricingPeriod, 0, len(r.Periods))
	for _, period := range r.Periods {
		start, err := parseDateField(period.StartDate)
		if err != nil {
			return application.BulkPricingInput{}, errInvalidDate
		}
		end, err := parseDateField(period.EndDate)
		if err != nil {
			return application.BulkPricingInput{}, errInvalidDate
		}
		price, err := decimal.NewFromString(strings.TrimSpace(period.Price))
		if err != nil {
			return application.BulkPricingInput{}, errBadRequestBody
		}
		minPrice, err := parseOptionalDecimal(period.MinPrice)
		if err != nil {
			return application.BulkPricingInput{}, errBadRequestBody
		}
		maxPrice, err := parseOptionalDecimal(period.MaxPrice)
		if err != nil {
			return application.BulkPricingInput{}, errBadRequestBody
		}

		periods = append(periods, application.PricingPeriod{
			StartDate:         start,
			EndDate:           end,
			Price:             price,
			PriceType:         strings.TrimSpace(period.PriceType),
			Tier:              strings.TrimSpace(period.Tier),
			MinPrice:          minPrice,
			MaxPrice:          maxPrice,
			Description:       period.Description,
			OverwriteExisting: period.OverwriteExisting,
		})
	}
	return application.BulkPricingInput{
		UnitID:   unitID,
		Currency: strings.TrimSpace(r.Currency),
		Periods:  periods,
	}, nil
}

type seasonRequest struct {
	Name             string  `json:"name"`
	StartDate        string  `json:"start_date" validate:"required"`
	EndDate          string  `json:"end_date" validate:"required"`
	Price            string  `json:"price" validate:"required"`
	PriceType        string  `json:"price_type"`
	PercentageChange *string `json:"percentage_change"`
	Priority         int     `json:"priority" validate:"gte=0"`
}

type seasonalPricingRequest struct {
	Currency string          `json:"currency"`
	Seasons  []seasonRequest `json:"seasons" validate:"required,min=1,dive"`
}

func (r seasonalPricingRequest) toInput(unitID string) (application.SeasonalPricingInput, error) {
	seasons := make([]application.Season, 0, len(r.Seasons))
	for _, season := range r.Seasons {
		start, err := parseDateField(season.StartDate)
		if err != nil {
			return application.SeasonalPricingInput{}, errInvalidDate
		}
		end, err := parseDateField(season.EndDate)
		if err != nil {
			return application.SeasonalPricingInput{}, errInvalidDate
		}
		price, err := decimal.NewFromString(strings.TrimSpace(season.Price))
		if err != nil {
			return application.SeasonalPricingInput{}, errBadRequestBody
		}
		pct, err := parseOptionalDecimal(season.PercentageChange)
		if err != nil {
			return application.SeasonalPricingInput{}, errBadRequestBody
		}

		seasons = append(seasons, application.Season{
			Name:             strings.TrimSpace(season.Name),
			StartDate:        start,
			EndDate:          end,
			Price:            price,
			PriceType:        strings.TrimSpace(season.PriceType),
			PercentageChange: pct,
			Priority:         season.Priority,
		})
	}
	return application.SeasonalPricingInput{
		UnitID:   unitID,
		Currency: strings.TrimSpace(r.Currency),
		Seasons:  seasons,
	}, nil
}

func parseOptionalDecimal(value *string) (*decimal.Decimal, error) {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil, nil
	}
	parsed, err := decimal.NewFromString(strings.TrimSpace(*value))
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
