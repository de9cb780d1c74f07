package api

import (
	"net/http"
)

// handleGetProfile returns the assembled profile for a wallet: athlete
// profile, aggregate stats, badges, recent runs, and disclosed identity
// fields.
func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	address := walletParam(w, r)
	if address == "" {
		return
	}

	view, err := s.onboarding.Profile(r.Context(), address)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, view)
}
