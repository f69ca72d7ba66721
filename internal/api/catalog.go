package api

import (
	"fmt"
	"net/http"
	"time"

	"courtside/internal/database"
	"courtside/internal/models"
	"courtside/internal/report"
)

// requireAdmin rejects non-admin callers.
func requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	_, isAdmin, err := identity(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return false
	}
	if !isAdmin {
		writeError(w, http.StatusForbidden, "admin role required")
		return false
	}
	return true
}

func (s *Server) handleListCourts(w http.ResponseWriter, r *http.Request) {
	_, isAdmin, _ := identity(r)
	courts, err := s.db.ListCourts(r.Context(), isAdmin)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"courts": courts})
}

func (s *Server) handleCreateCourt(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}
	var c models.Court
	if err := decodeJSON(r, &c); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	c.IsActive = true
	if err := s.db.CreateCourt(r.Context(), &c); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleUpdateCourt(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var c models.Court
	if err := decodeJSON(r, &c); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	c.ID = id
	if err := s.db.UpdateCourt(r.Context(), &c); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleListCoaches(w http.ResponseWriter, r *http.Request) {
	_, isAdmin, _ := identity(r)
	coaches, err := s.db.ListCoaches(r.Context(), isAdmin)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"coaches": coaches})
}

func (s *Server) handleCreateCoach(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}
	var c models.Coach
	if err := decodeJSON(r, &c); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	c.IsActive = true
	if err := s.db.CreateCoach(r.Context(), &c); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleUpdateCoach(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var c models.Coach
	if err := decodeJSON(r, &c); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	c.ID = id
	if err := s.db.UpdateCoach(r.Context(), &c); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleListEquipment(w http.ResponseWriter, r *http.Request) {
	_, isAdmin, _ := identity(r)
	items, err := s.db.ListEquipment(r.Context(), isAdmin)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"equipment": items})
}

func (s *Server) handleCreateEquipment(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}
	var e models.Equipment
	if err := decodeJSON(r, &e); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	e.IsActive = true
	if err := s.db.CreateEquipment(r.Context(), &e); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) handleUpdateEquipment(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var e models.Equipment
	if err := decodeJSON(r, &e); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	e.ID = id
	if err := s.db.UpdateEquipment(r.Context(), &e); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}
	rules, err := s.db.ListRules(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rules": rules})
}

func (s *Server) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}
	var rule models.PricingRule
	if err := decodeJSON(r, &rule); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rule.IsActive = true
	if err := s.db.CreateRule(r.Context(), &rule); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rule)
}

func (s *Server) handleUpdateRule(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var rule models.PricingRule
	if err := decodeJSON(r, &rule); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rule.ID = id
	if err := s.db.UpdateRule(r.Context(), &rule); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

func (s *Server) handleDeactivateRule(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.db.DeactivateRule(r.Context(), id); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "rule deactivated"})
}

func (s *Server) handleBookingsReport(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}
	filter := database.BookingFilter{
		Status: models.BookingStatus(r.URL.Query().Get("status")),
	}
	if rawDate := r.URL.Query().Get("date"); rawDate != "" {
		date, err := time.ParseInLocation("2006-01-02", rawDate, time.Local)
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		filter.Date = date
	}

	bookings, err := s.db.ListBookings(r.Context(), filter)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "bookings.xlsx"))
	if err := report.WriteBookings(w, "Bookings", bookings); err != nil {
		s.logger.Error().Err(err).Msg("write bookings report")
	}
}
