package api

import (
	"context"
	"net/http"
	"strconv"

	"precipwatch/internal/types"
)

// defaultHistoryLimit caps history listings when the caller does not specify
// a limit.
const defaultHistoryLimit = 100

// maxHistoryLimit is the hard cap on one history page.
const maxHistoryLimit = 1000

func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			Error(w, r, types.NewAppError(
				types.ErrCodeValidationMissingField,
				"limit must be a positive integer",
				err,
			))
			return
		}
		limit = parsed
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	entries, err := s.history.List(r.Context(), limit)
	if err != nil {
		Error(w, r, err)
		return
	}
	if entries == nil {
		entries = []*types.AlertHistory{}
	}
	JSON(w, r, http.StatusOK, APIResponse{Data: entries})
}

// handleRunCheck triggers one check cycle outside the schedule. The cycle
// runs in the background; the response only acknowledges the start.
func (s *Server) handleRunCheck(w http.ResponseWriter, r *http.Request) {
	go s.cycle.Run(context.Background())
	JSON(w, r, http.StatusAccepted, APIResponse{Data: map[string]string{"status": "started"}})
}

// healthResponse is the /healthz body.
type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	JSON(w, r, http.StatusOK, healthResponse{
		Status:  "ok",
		Version: s.build.Version,
		Commit:  s.build.Commit,
	})
}
