package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"slotbooking/internal/delivery/http/controllers"
	"slotbooking/internal/delivery/http/helpers"
	"slotbooking/internal/delivery/http/middleware"
	"slotbooking/internal/domain"

	httpSwagger "github.com/swaggo/http-swagger"
)

// HealthCheck reports whether a backing dependency is reachable.
type HealthCheck func(ctx context.Context) error

// RouterDeps collects what the router wires together.
type RouterDeps struct {
	Logger       *slog.Logger
	Verifier     domain.TokenVerifier
	Limiter      middleware.RateLimiter
	Booking      *controllers.BookingController
	Availability *controllers.AvailabilityController
	Catalog      *controllers.CatalogController
	Health       HealthCheck
}

// NewRouter initializes the HTTP router with all application routes
func NewRouter(d RouterDeps) *http.ServeMux {
	mux := http.NewServeMux()

	auth := middleware.RequireAuth(d.Verifier, d.Logger)
	limited := middleware.RateLimit(d.Limiter, d.Logger)
	booking := func(h http.HandlerFunc) http.HandlerFunc { return auth(limited(h)) }
	admin := func(h http.HandlerFunc) http.HandlerFunc { return auth(middleware.RequireRole(domain.RoleAdmin)(h)) }

	// Booking
	mux.HandleFunc("POST /slots/{slotID}/register", booking(d.Booking.Register))
	mux.HandleFunc("DELETE /slots/{slotID}/register", booking(d.Booking.Cancel))
	mux.HandleFunc("POST /slots/{slotID}/check-in", booking(d.Booking.CheckIn))
	mux.HandleFunc("POST /slots/{slotID}/check-out", booking(d.Booking.CheckOut))
	mux.HandleFunc("GET /me/reservations", auth(d.Booking.ListMyReservations))

	// Read model
	mux.HandleFunc("GET /slots/{slotID}/availability", d.Availability.Availability)
	mux.HandleFunc("GET /slots/{slotID}/registration", auth(d.Availability.Registration))
	mux.HandleFunc("GET /events/{eventID}/schedule", d.Availability.Schedule)

	// Catalog administration
	mux.HandleFunc("POST /events/{eventID}/rooms", admin(d.Catalog.CreateRoom))
	mux.HandleFunc("PATCH /rooms/{roomID}", admin(d.Catalog.UpdateRoom))
	mux.HandleFunc("POST /events/{eventID}/slots", admin(d.Catalog.CreateSlot))
	mux.HandleFunc("PATCH /slots/{slotID}/capacity", admin(d.Catalog.SetSlotCapacity))
	mux.HandleFunc("POST /events/{eventID}/import/sessionize/{sessionizeID}", admin(d.Catalog.ImportSessionize))

	mux.HandleFunc("GET /healthz", healthz(d.Health, d.Logger))

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}

func healthz(check HealthCheck, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				logger.WarnContext(r.Context(), "health check failed", "err", err)
				helpers.WriteJSONError(w, http.StatusServiceUnavailable, helpers.ErrCodeInternalError, "unhealthy")
				return
			}
		}
		helpers.WriteJSONSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
