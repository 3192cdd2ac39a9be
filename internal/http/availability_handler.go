package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/example/booking-engine/internal/application"
)

type availabilityService interface {
	CheckAvailability(ctx context.Context, unitID string, checkIn, checkOut time.Time) bool
	Reserve(ctx context.Context, params application.ReserveParams) (application.Block, error)
	ReleaseBooking(ctx context.Context, bookingID string) (int, error)
	ApplyBulkAvailability(ctx context.Context, input application.BulkAvailabilityInput) error
	GetMonthlyCalendar(ctx context.Context, unitID string, year int, month time.Month) (map[time.Time]string, error)
	GetAvailableUnitsInProperty(ctx context.Context, propertyID string, checkIn, checkOut time.Time, guestCount int) ([]application.Unit, error)
}

type AvailabilityHandler struct {
	service   availabilityService
	responder responder
	validate  *validator.Validate
	logger    *slog.Logger
}

func NewAvailabilityHandler(service availabilityService, logger *slog.Logger) *AvailabilityHandler {
	base := defaultLogger(logger)
	return &AvailabilityHandler{
		service:   service,
		responder: newResponder(base),
		validate:  validator.New(),
		logger:    base,
	}
}

func (h *AvailabilityHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "AvailabilityHandler", operation, attrs...)
}

// Check handles GET /units/{id}/availability.
func (h *AvailabilityHandler) Check(w http.ResponseWriter, r *http.Request) {
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

	available := h.service.CheckAvailability(r.Context(), unitID, checkIn, checkOut)

	h.responder.writeJSON(r.Context(), w, http.StatusOK, availabilityResponse{
		UnitID:    unitID,
		CheckIn:   checkIn.Format(time.DateOnly),
		CheckOut:  checkOut.Format(time.DateOnly),
		Available: available,
	})
}

// Reserve handles POST /units/{id}/reservations.
func (h *AvailabilityHandler) Reserve(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	unitID, ok := UnitIDFromContext(r.Context())
	if !ok || strings.TrimSpace(unitID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidUnitID)
		return
	}

	var req reservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Reserve", "unit_id", unitID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode reservation request", "error", err)
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

	checkIn, err := parseDateField(req.CheckIn)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDate)
		return
	}
	checkOut, err := parseDateField(req.CheckOut)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDate)
		return
	}

	logger := h.log(r.Context(), "Reserve", "unit_id", unitID, "booking_id", req.BookingID)

	block, err := h.service.Reserve(r.Context(), application.ReserveParams{
		UnitID:    unitID,
		BookingID: req.BookingID,
		CheckIn:   checkIn,
		CheckOut:  checkOut,
		Notes:     req.Notes,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "reservation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("block_id", block.ID).InfoContext(r.Context(), "reservation created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, reservationResponse{Block: toBlockDTO(block)})
}

// Release handles DELETE /reservations/{bookingID}.
func (h *AvailabilityHandler) Release(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	bookingID, ok := BookingIDFromContext(r.Context())
	if !ok || strings.TrimSpace(bookingID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidBookingID)
		return
	}

	logger := h.log(r.Context(), "Release", "booking_id", bookingID)

	released, err := h.service.ReleaseBooking(r.Context(), bookingID)
	if err != nil {
		logger.ErrorContext(r.Context(), "release failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("blocks_released", released).InfoContext(r.Context(), "booking released")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, releaseResponse{
		BookingID:      bookingID,
		BlocksReleased: released,
	})
}

// Apply handles PUT /units/{id}/availability.
func (h *AvailabilityHandler) Apply(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	unitID, ok := UnitIDFromContext(r.Context())
	if !ok || strings.TrimSpace(unitID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidUnitID)
		return
	}

	var req bulkAvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Apply", "unit_id", unitID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode availability request", "error", err)
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
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDate)
		return
	}

	logger := h.log(r.Context(), "Apply", "unit_id", unitID, "period_count", len(input.Periods))

	if err := h.service.ApplyBulkAvailability(r.Context(), input); err != nil {
		logger.ErrorContext(r.Context(), "availability update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "availability updated")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// Calendar handles GET /units/{id}/availability/calendar.
func (h *AvailabilityHandler) Calendar(w http.ResponseWriter, r *http.Request) {
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

	cal, err := h.service.GetMonthlyCalendar(r.Context(), unitID, year, month)
	if err != nil {
		h.log(r.Context(), "Calendar", "unit_id", unitID).ErrorContext(r.Context(), "calendar lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	days := make(map[string]string, len(cal))
	for day, status := range cal {
		days[day.Format(time.DateOnly)] = status
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, availabilityCalendarResponse{
		UnitID: unitID,
		Year:   year,
		Month:  int(month),
		Days:   days,
	})
}

// AvailableUnits handles GET /properties/{id}/available-units.
func (h *AvailabilityHandler) AvailableUnits(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	propertyID, ok := PropertyIDFromContext(r.Context())
	if !ok || strings.TrimSpace(propertyID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidUnitID)
		return
	}

	checkIn, checkOut, err := stayQueryDates(r)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	guestCount := 0
	if raw := r.URL.Query().Get("guests"); raw != "" {
		guestCount, err = strconv.Atoi(raw)
		if err != nil || guestCount < 0 {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
			return
		}
	}

	logger := h.log(r.Context(), "AvailableUnits", "property_id", propertyID)

	units, err := h.service.GetAvailableUnitsInProperty(r.Context(), propertyID, checkIn, checkOut, guestCount)
	if err != nil {
		logger.ErrorContext(r.Context(), "available units lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(units)).InfoContext(r.Context(), "available units listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, availableUnitsResponse{
		PropertyID: propertyID,
		CheckIn:    checkIn.Format(time.DateOnly),
		CheckOut:   checkOut.Format(time.DateOnly),
		Units:      toUnitDTOs(units),
	})
}

func stayQueryDates(r *http.Request) (time.Time, time.Time, error) {
	checkIn, err := parseDateField(r.URL.Query().Get("check_in"))
	if err != nil {
		return time.Time{}, time.Time{}, errInvalidDate
	}
	checkOut, err := parseDateField(r.URL.Query().Get("check_out"))
	if err != nil {
		return time.Time{}, time.Time{}, errInvalidDate
	}
	return checkIn, checkOut, nil
}

func monthQuery(r *http.Request) (int, time.Month, error) {
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil || year < 1 {
		return 0, 0, errInvalidMonth
	}
	month, err := strconv.Atoi(r.URL.Query().Get("month"))
	if err != nil || month < 1 || month > 12 {
		return 0, 0, errInvalidMonth
	}
	return year, time.Month(month), nil
}

func parseDateField(value string) (time.Time, error) {
	return time.ParseInLocation(time.DateOnly, strings.TrimSpace(value), time.UTC)
}

// validatorFieldErrors flattens validator violations into a field -> message map.
func validatorFieldErrors(err error) map[string]string {
	fields := make(map[string]string)

	var violations validator.ValidationErrors
	if !errors.As(err, &violations) {
		fields["body"] = "is invalid"
		return fields
	}

	for _, violation := range violations {
		name := strings.ToLower(violation.Field())
		switch violation.Tag() {
		case "required":
			fields[name] = "is required"
		case "min":
			fields[name] = "needs at least " + violation.Param() + " entries"
		case "gte":
			fields[name] = "must be at least " + violation.Param()
		default:
			fields[name] = "is invalid"
		}
	}
	return fields
}

type reservationRequest struct {
	BookingID string  `json:"booking_id" validate:"required"`
	CheckIn   string  `json:"check_in" validate:"required"`
	CheckOut  string  `json:"check_out" validate:"required"`
	Notes     *string `json:"notes"`
}

type reservationResponse struct {
	Block blockDTO `json:"block"`
}

type releaseResponse struct {
	BookingID      string `json:"booking_id"`
	BlocksReleased int    `json:"blocks_released"`
}

type availabilityResponse struct {
	UnitID    string `json:"unit_id"`
	CheckIn   string `json:"check_in"`
	CheckOut  string `json:"check_out"`
	Available bool   `json:"available"`
}

type availabilityPeriodRequest struct {
	StartDate         string  `json:"start_date" validate:"required"`
	EndDate           string  `json:"end_date" validate:"required"`
	Status            string  `json:"status" validate:"required"`
	Reason            string  `json:"reason"`
	Notes             *string `json:"notes"`
	OverwriteExisting bool    `json:"overwrite_existing"`
}

type bulkAvailabilityRequest struct {
	Periods []availabilityPeriodRequest `json:"periods" validate:"required,min=1,dive"`
}

func (r bulkAvailabilityRequest) toInput(unitID string) (application.BulkAvailabilityInput, error) {
	periods := make([]application.AvailabilityPeriod, 0, len(r.Periods))
	for _, period := range r.Periods {
		start, err := parseDateField(period.StartDate)
		if err != nil {
			return application.BulkAvailabilityInput{}, err
		}
		end, err := parseDateField(period.EndDate)
		if err != nil {
			return application.BulkAvailabilityInput{}, err
		}
		periods = append(periods, application.AvailabilityPeriod{
			StartDate:         start,
			EndDate:           end,
			Status:            strings.TrimSpace(period.Status),
			Reason:            strings.TrimSpace(period.Reason),
			Notes:             period.Notes,
			OverwriteExisting: period.OverwriteExisting,
		})
	}
	return application.BulkAvailabilityInput{UnitID: unitID, Periods: periods}, nil
}

type availabilityCalendarResponse struct {
	UnitID string            `json:"unit_id"`
	Year   int               `json:"year"`
	Month  int               `json:"month"`
	Days   map[string]string `json:"days"`
}

type availableUnitsResponse struct {
	PropertyID string    `json:"property_id"`
	CheckIn    string    `json:"check_in"`
	CheckOut   string    `json:"check_out"`
	Units      []unitDTO `json:"units"`
}

type blockDTO struct {
	ID        string  `json:"id"`
	UnitID    string  `json:"unit_id"`
	BookingID *string `json:"booking_id,omitempty"`
	StartDate string  `json:"start_date"`
	EndDate   string  `json:"end_date"`
	Status    string  `json:"status"`
	Reason    string  `json:"reason,omitempty"`
	Notes     *string `json:"notes,omitempty"`
}

func toBlockDTO(block application.Block) blockDTO {
	return blockDTO{
		ID:        block.ID,
		UnitID:    block.UnitID,
		BookingID: block.BookingID,
		StartDate: block.StartDate.Format(time.DateOnly),
		EndDate:   block.EndDate.Format(time.DateOnly),
		Status:    block.Status,
		Reason:    block.Reason,
		Notes:     block.Notes,
	}
}

type unitDTO struct {
	ID         string `json:"id"`
	PropertyID string `json:"property_id"`
	Name       string `json:"name"`
	BasePrice  string `json:"base_price"`
	Currency   string `json:"currency"`
	MaxGuests  int    `json:"max_guests"`
}

func toUnitDTOs(units []application.Unit) []unitDTO {
	if len(units) == 0 {
		return nil
	}
	out := make([]unitDTO, 0, len(units))
	for _, unit := range units {
		out = append(out, unitDTO{
			ID:         unit.ID,
			PropertyID: unit.PropertyID,
			Name:       unit.Name,
			BasePrice:  unit.BasePrice.String(),
			Currency:   unit.Currency,
			MaxGuests:  unit.MaxGuests,
		})
	}
	return out
}
