package http

import "context"

type contextKey string

const (
	unitIDContextKey     contextKey = "unit_id"
	propertyIDContextKey contextKey = "property_id"
	bookingIDContextKey  contextKey = "booking_id"
)

// ContextWithUnitID injects the unit identifier resolved from the request path.
func ContextWithUnitID(ctx context.Context, unitID string) context.Context {
	return context.WithValue(ctx, unitIDContextKey, unitID)
}

// UnitIDFromContext extracts a unit identifier previously associated with the context.
func UnitIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(unitIDContextKey).(string)
	return id, ok
}

// ContextWithPropertyID injects the property identifier resolved from the request path.
func ContextWithPropertyID(ctx context.Context, propertyID string) context.Context {
	return context.WithValue(ctx, propertyIDContextKey, propertyID)
}

// PropertyIDFromContext extracts a property identifier previously associated with the context.
func PropertyIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(propertyIDContextKey).(string)
	return id, ok
}

// ContextWithBookingID injects the booking identifier resolved from the request path.
func ContextWithBookingID(ctx context.Context, bookingID string) context.Context {
	return context.WithValue(ctx, bookingIDContextKey, bookingID)
}

// BookingIDFromContext extracts a booking identifier previously associated with the context.
func BookingIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(bookingIDContextKey).(string)
	return id, ok
}
