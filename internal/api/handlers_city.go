package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"precipwatch/internal/types"
)

// cityRequest is the create/update payload for a city.
type cityRequest struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (s *Server) handleListCities(w http.ResponseWriter, r *http.Request) {
	cities, err := s.cities.List(r.Context())
	if err != nil {
		Error(w, r, err)
		return
	}
	if cities == nil {
		cities = []*types.City{}
	}
	JSON(w, r, http.StatusOK, APIResponse{Data: cities})
}

func (s *Server) handleCreateCity(w http.ResponseWriter, r *http.Request) {
	var req cityRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		Error(w, r, err)
		return
	}

	city := &types.City{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		CreatedAt: s.clock.Now(),
	}
	if err := city.Validate(); err != nil {
		Error(w, r, err)
		return
	}
	if err := s.cities.Create(r.Context(), city); err != nil {
		Error(w, r, err)
		return
	}
	JSON(w, r, http.StatusCreated, APIResponse{Data: city})
}

func (s *Server) handleGetCity(w http.ResponseWriter, r *http.Request) {
	city, err := s.cities.GetByID(r.Context(), chi.URLParam(r, "cityID"))
	if err != nil {
		Error(w, r, err)
		return
	}
	JSON(w, r, http.StatusOK, APIResponse{Data: city})
}

func (s *Server) handleUpdateCity(w http.ResponseWriter, r *http.Request) {
	var req cityRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		Error(w, r, err)
		return
	}

	city := &types.City{
		ID:        chi.URLParam(r, "cityID"),
		Name:      req.Name,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
	}
	if err := city.Validate(); err != nil {
		Error(w, r, err)
		return
	}
	if err := s.cities.Update(r.Context(), city); err != nil {
		Error(w, r, err)
		return
	}
	JSON(w, r, http.StatusOK, APIResponse{Data: city})
}

func (s *Server) handleDeleteCity(w http.ResponseWriter, r *http.Request) {
	if err := s.cities.Delete(r.Context(), chi.URLParam(r, "cityID")); err != nil {
		Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListCityAlerts(w http.ResponseWriter, r *http.Request) {
	cityID := chi.URLParam(r, "cityID")
	if _, err := s.cities.GetByID(r.Context(), cityID); err != nil {
		Error(w, r, err)
		return
	}

	alerts, err := s.alerts.ListByCity(r.Context(), cityID)
	if err != nil {
		Error(w, r, err)
		return
	}
	if alerts == nil {
		alerts = []*types.AlertConfig{}
	}
	JSON(w, r, http.StatusOK, APIResponse{Data: alerts})
}

// handleGetCityForecast returns the latest persisted forecast snapshot for
// the city's coordinate, or 404 when no cycle has fetched it yet.
func (s *Server) handleGetCityForecast(w http.ResponseWriter, r *http.Request) {
	city, err := s.cities.GetByID(r.Context(), chi.URLParam(r, "cityID"))
	if err != nil {
		Error(w, r, err)
		return
	}

	snap, err := s.snapshots.GetLatest(r.Context(), city.Latitude, city.Longitude)
	if err != nil {
		Error(w, r, err)
		return
	}
	if snap == nil {
		Error(w, r, types.NewAppError(
			types.ErrCodeNotFoundCity,
			"no forecast snapshot for this city yet",
			nil,
		))
		return
	}
	JSON(w, r, http.StatusOK, APIResponse{Data: snap})
}
