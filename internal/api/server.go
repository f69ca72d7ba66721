// Package api exposes the booking core over HTTP. Authentication is an
// external collaborator: requests arrive with verified X-User-ID and
// X-User-Role headers, which the core trusts.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"courtside/internal/booking"
	"courtside/internal/database"
	"courtside/internal/models"
)

// Server routes HTTP requests into the booking service.
type Server struct {
	svc    *booking.Service
	db     *database.DB
	logger zerolog.Logger
}

// NewServer creates the HTTP server facade.
func NewServer(svc *booking.Service, db *database.DB, logger zerolog.Logger) *Server {
	return &Server{
		svc:    svc,
		db:     db,
		logger: logger.With().Str("component", "api").Logger(),
	}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/availability", s.handleCheckAvailability)
	mux.HandleFunc("POST /api/price", s.handleQuotePrice)
	mux.HandleFunc("GET /api/slots", s.handleListSlots)

	mux.HandleFunc("POST /api/bookings", s.handleCreateBooking)
	mux.HandleFunc("GET /api/bookings", s.handleListBookings)
	mux.HandleFunc("POST /api/bookings/{id}/cancel", s.handleCancelBooking)
	mux.HandleFunc("POST /api/waitlist", s.handleJoinWaitlist)

	mux.HandleFunc("GET /api/courts", s.handleListCourts)
	mux.HandleFunc("POST /api/courts", s.handleCreateCourt)
	mux.HandleFunc("PUT /api/courts/{id}", s.handleUpdateCourt)
	mux.HandleFunc("GET /api/coaches", s.handleListCoaches)
	mux.HandleFunc("POST /api/coaches", s.handleCreateCoach)
	mux.HandleFunc("PUT /api/coaches/{id}", s.handleUpdateCoach)
	mux.HandleFunc("GET /api/equipment", s.handleListEquipment)
	mux.HandleFunc("POST /api/equipment", s.handleCreateEquipment)
	mux.HandleFunc("PUT /api/equipment/{id}", s.handleUpdateEquipment)
	mux.HandleFunc("GET /api/rules", s.handleListRules)
	mux.HandleFunc("POST /api/rules", s.handleCreateRule)
	mux.HandleFunc("PUT /api/rules/{id}", s.handleUpdateRule)
	mux.HandleFunc("DELETE /api/rules/{id}", s.handleDeactivateRule)

	mux.HandleFunc("GET /api/reports/bookings.xlsx", s.handleBookingsReport)

	return s.logRequests(mux)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)
		s.logger.Debug().Str("method", r.Method).Str("path", r.URL.Path).Msg("request")
	})
}

// identity extracts the externally verified user id and role.
func identity(r *http.Request) (userID int64, isAdmin bool, err error) {
	raw := r.Header.Get("X-User-ID")
	if raw == "" {
		return 0, false, fmt.Errorf("missing X-User-ID header")
	}
	userID, err = strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("invalid X-User-ID header")
	}
	return userID, r.Header.Get("X-User-Role") == "admin", nil
}

func decodeJSON(r *http.Request, v any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

// writeServiceError maps engine errors onto HTTP statuses.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	if ce, ok := models.AsConflictError(err); ok {
		writeJSON(w, http.StatusConflict, map[string]any{
			"message":   "Resources not available",
			"conflicts": ce.Conflicts,
		})
		return
	}
	switch {
	case errors.Is(err, models.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, models.ErrAlreadyCancelled), errors.Is(err, models.ErrAlreadyWaiting):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error().Err(err).Msg("internal error")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id in path")
	}
	return id, nil
}
