// Package http provides HTTP handlers and middleware for the booking engine API.
//
// The router exposes the following endpoints:
//   - GET /units/{id}/availability?check_in=&check_out=: reports whether the unit
//     is open for the half-open [check_in, check_out) stay.
//   - PUT /units/{id}/availability: bulk-applies availability periods. Body:
//     {"periods":[{"start_date","end_date","status","reason","notes","overwrite_existing"}]}.
//   - GET /units/{id}/availability/calendar?year=&month=: per-day status map for
//     one calendar month.
//   - POST /units/{id}/reservations: atomically reserves the stay for a booking.
//     Returns 201 with the created block, or 409 when the dates are taken.
//   - DELETE /reservations/{bookingID}: releases every block held by the booking
//     and reports how many were released. Idempotent.
//   - GET /properties/{id}/available-units?check_in=&check_out=&guests=: lists the
//     property's units open for the stay.
//   - GET /units/{id}/pricing/quote and /breakdown: stay totals, the breakdown
//     variant includes the per-night prices.
//   - GET /units/{id}/pricing/calendar?year=&month=: nightly prices for one month.
//   - PUT /units/{id}/pricing: bulk-applies pricing periods exchanging the
//     `pricingPeriodRequest` payload defined in pricing_handler.go.
//   - POST /units/{id}/pricing/seasons: layers seasonal adjustments on top of the
//     existing rules, ordered by season priority.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
