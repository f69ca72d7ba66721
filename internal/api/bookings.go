package api

import (
	"net/http"
	"strconv"
	"time"

	"courtside/internal/booking"
	"courtside/internal/database"
	"courtside/internal/models"
	"courtside/internal/slots"
)

func (s *Server) handleCheckAvailability(w http.ResponseWriter, r *http.Request) {
	var req booking.Request
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := s.svc.CheckAvailability(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleQuotePrice(w http.ResponseWriter, r *http.Request) {
	var req booking.Request
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	breakdown, err := s.svc.QuotePrice(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, breakdown)
}

func (s *Server) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	userID, _, err := identity(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var req booking.Request
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	b, err := s.svc.CreateBooking(r.Context(), userID, req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Booking created successfully",
		"booking": b,
	})
}

func (s *Server) handleCancelBooking(w http.ResponseWriter, r *http.Request) {
	userID, isAdmin, err := identity(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	b, notified, err := s.svc.CancelBooking(r.Context(), id, userID, isAdmin)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":           "Booking cancelled successfully",
		"booking":           b,
		"waitlist_notified": notified,
	})
}

func (s *Server) handleJoinWaitlist(w http.ResponseWriter, r *http.Request) {
	userID, _, err := identity(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var req booking.Request
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	entry, err := s.svc.JoinWaitlist(r.Context(), userID, req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message":        "Added to waitlist successfully",
		"waitlist_entry": entry,
	})
}

func (s *Server) handleListSlots(w http.ResponseWriter, r *http.Request) {
	courtID, err := queryID(r, "court_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "court_id is required")
		return
	}
	rawDate := r.URL.Query().Get("date")
	date, err := time.ParseInLocation("2006-01-02", rawDate, time.Local)
	if err != nil {
		writeError(w, http.StatusBadRequest, "date is required in YYYY-MM-DD format")
		return
	}
	grid, err := s.svc.ListAvailableSlots(r.Context(), courtID, date)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"slots": slots.ToSlotInfo(grid)})
}

func (s *Server) handleListBookings(w http.ResponseWriter, r *http.Request) {
	userID, isAdmin, err := identity(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	filter := database.BookingFilter{
		Status: models.BookingStatus(r.URL.Query().Get("status")),
	}
	if isAdmin {
		if id, err := queryID(r, "court_id"); err == nil {
			filter.CourtID = id
		}
		if rawDate := r.URL.Query().Get("date"); rawDate != "" {
			if date, err := time.ParseInLocation("2006-01-02", rawDate, time.Local); err == nil {
				filter.Date = date
			}
		}
		if id, err := queryID(r, "user_id"); err == nil {
			filter.UserID = id
		}
	} else {
		// Non-admins see only their own bookings.
		filter.UserID = userID
	}

	bookings, err := s.svc.ListBookings(r.Context(), filter)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
}

func queryID(r *http.Request, key string) (int64, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, models.ErrInvalidInput
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, models.ErrInvalidInput
	}
	return id, nil
}
