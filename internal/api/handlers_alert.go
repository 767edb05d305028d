package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"precipwatch/internal/alerts"
	"precipwatch/internal/types"
)

// alertRequest is the create/update payload for an alert config.
type alertRequest struct {
	CityID      string  `json:"city_id,omitempty"`
	Category    string  `json:"category"`
	ThresholdMM float32 `json:"threshold_mm"`
}

// snoozeRequest selects one of the supported snooze options.
type snoozeRequest struct {
	Option string `json:"option"`
}

func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	configs, err := s.alerts.List(r.Context())
	if err != nil {
		Error(w, r, err)
		return
	}
	if configs == nil {
		configs = []*types.AlertConfig{}
	}
	JSON(w, r, http.StatusOK, APIResponse{Data: configs})
}

func (s *Server) handleCreateAlert(w http.ResponseWriter, r *http.Request) {
	var req alertRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		Error(w, r, err)
		return
	}

	// The city must exist before an alert can reference it.
	city, err := s.cities.GetByID(r.Context(), req.CityID)
	if err != nil {
		Error(w, r, err)
		return
	}

	now := s.clock.Now()
	alert := &types.AlertConfig{
		ID:          uuid.NewString(),
		CityID:      req.CityID,
		Category:    types.Category(req.Category),
		ThresholdMM: req.ThresholdMM,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := alert.Validate(); err != nil {
		Error(w, r, err)
		return
	}
	if err := s.alerts.Create(r.Context(), alert); err != nil {
		Error(w, r, err)
		return
	}

	alert.City = city
	JSON(w, r, http.StatusCreated, APIResponse{Data: alert})
}

func (s *Server) handleGetAlert(w http.ResponseWriter, r *http.Request) {
	alert, err := s.alerts.GetByID(r.Context(), chi.URLParam(r, "alertID"))
	if err != nil {
		Error(w, r, err)
		return
	}
	JSON(w, r, http.StatusOK, APIResponse{Data: alert})
}

func (s *Server) handleUpdateAlert(w http.ResponseWriter, r *http.Request) {
	var req alertRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		Error(w, r, err)
		return
	}

	alert, err := s.alerts.GetByID(r.Context(), chi.URLParam(r, "alertID"))
	if err != nil {
		Error(w, r, err)
		return
	}

	alert.Category = types.Category(req.Category)
	alert.ThresholdMM = req.ThresholdMM
	if err := alert.Validate(); err != nil {
		Error(w, r, err)
		return
	}
	if err := s.alerts.Update(r.Context(), alert); err != nil {
		Error(w, r, err)
		return
	}
	JSON(w, r, http.StatusOK, APIResponse{Data: alert})
}

func (s *Server) handleDeleteAlert(w http.ResponseWriter, r *http.Request) {
	if err := s.alerts.Delete(r.Context(), chi.URLParam(r, "alertID")); err != nil {
		Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSnoozeAlert sets the alert's wake-up instant from a snooze option.
func (s *Server) handleSnoozeAlert(w http.ResponseWriter, r *http.Request) {
	var req snoozeRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		Error(w, r, err)
		return
	}

	alertID := chi.URLParam(r, "alertID")
	alert, err := s.alerts.GetByID(r.Context(), alertID)
	if err != nil {
		Error(w, r, err)
		return
	}

	until, err := alerts.SnoozeUntil(types.SnoozeOption(req.Option), s.clock.Now(), s.zone)
	if err != nil {
		Error(w, r, err)
		return
	}

	if err := s.alerts.UpdateSnoozedUntil(r.Context(), alertID, &until); err != nil {
		Error(w, r, err)
		return
	}

	alert.SnoozedUntil = &until
	JSON(w, r, http.StatusOK, APIResponse{Data: alert})
}

// handleClearSnooze wakes the alert back up immediately.
func (s *Server) handleClearSnooze(w http.ResponseWriter, r *http.Request) {
	alertID := chi.URLParam(r, "alertID")
	if err := s.alerts.UpdateSnoozedUntil(r.Context(), alertID, nil); err != nil {
		Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
