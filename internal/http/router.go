package http

import (
	"net/http"
	"strings"
)

type RouterConfig struct {
	Availability *AvailabilityHandler
	Pricing      *PricingHandler
	Middleware   []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/units/", func(w http.ResponseWriter, r *http.Request) {
		unitID, rest := splitResourcePath(r.URL.Path, "/units/")
		if unitID == "" {
			http.NotFound(w, r)
			return
		}
		r = r.WithContext(ContextWithUnitID(r.Context(), unitID))

		switch rest {
		case "availability":
			if cfg.Availability == nil {
				http.NotFound(w, r)
				return
			}
			switch r.Method {
			case http.MethodGet:
				cfg.Availability.Check(w, r)
			case http.MethodPut:
				cfg.Availability.Apply(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPut)
			}
		case "availability/calendar":
			if cfg.Availability == nil {
				http.NotFound(w, r)
				return
			}
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Availability.Calendar(w, r)
		case "reservations":
			if cfg.Availability == nil {
				http.NotFound(w, r)
				return
			}
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Availability.Reserve(w, r)
		case "pricing":
			if cfg.Pricing == nil {
				http.NotFound(w, r)
				return
			}
			if r.Method != http.MethodPut {
				methodNotAllowed(w, http.MethodPut)
				return
			}
			cfg.Pricing.Apply(w, r)
		case "pricing/quote":
			if cfg.Pricing == nil {
				http.NotFound(w, r)
				return
			}
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Pricing.Quote(w, r)
		case "pricing/breakdown":
			if cfg.Pricing == nil {
				http.NotFound(w, r)
				return
			}
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Pricing.Breakdown(w, r)
		case "pricing/calendar":
			if cfg.Pricing == nil {
				http.NotFound(w, r)
				return
			}
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Pricing.Calendar(w, r)
		case "pricing/seasons":
			if cfg.Pricing == nil {
				http.NotFound(w, r)
				return
			}
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Pricing.ApplySeasons(w, r)
		default:
			http.NotFound(w, r)
		}
	})

	if cfg.Availability != nil {
		mux.HandleFunc("/reservations/", func(w http.ResponseWriter, r *http.Request) {
			bookingID := strings.TrimPrefix(r.URL.Path, "/reservations/")
			if bookingID == "" || strings.Contains(bookingID, "/") {
				http.NotFound(w, r)
				return
			}
			if r.Method != http.MethodDelete {
				methodNotAllowed(w, http.MethodDelete)
				return
			}
			r = r.WithContext(ContextWithBookingID(r.Context(), bookingID))
			cfg.Availability.Release(w, r)
		})

		mux.HandleFunc("/properties/", func(w http.ResponseWriter, r *http.Request) {
			propertyID, rest := splitResourcePath(r.URL.Path, "/properties/")
			if propertyID == "" || rest != "available-units" {
				http.NotFound(w, r)
				return
			}
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			r = r.WithContext(ContextWithPropertyID(r.Context(), propertyID))
			cfg.Availability.AvailableUnits(w, r)
		})
	}

	var handler http.Handler = mux
	if len(cfg.Middleware) > 0 {
		for i := len(cfg.Middleware) - 1; i >= 0; i-- {
			if cfg.Middleware[i] != nil {
				handler = cfg.Middleware[i](handler)
			}
		}
	}

	return handler
}

// splitResourcePath trims prefix and splits the remainder into the resource ID
// and the sub-resource path after it.
func splitResourcePath(path, prefix string) (string, string) {
	trimmed := strings.TrimPrefix(path, prefix)
	if trimmed == "" {
		return "", ""
	}
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], strings.TrimSuffix(parts[1], "/")
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
