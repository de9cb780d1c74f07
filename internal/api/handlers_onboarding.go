package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"

	"github.com/pace-club/internal/onboarding"
)

// walletParam extracts and validates the wallet address path variable.
// The empty return signals that an error response was already written.
func walletParam(w http.ResponseWriter, r *http.Request) string {
	address := mux.Vars(r)["address"]
	if !common.IsHexAddress(address) {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "invalid wallet address", map[string]interface{}{
			"address": address,
		})
		return ""
	}
	return address
}

// handleGetOnboarding returns the current onboarding state for a wallet.
func (s *Server) handleGetOnboarding(w http.ResponseWriter, r *http.Request) {
	address := walletParam(w, r)
	if address == "" {
		return
	}

	status, err := s.onboarding.Evaluate(r.Context(), address)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, status)
}

// handleBeginVerification returns the verification request material: the
// request object, its universal link, and the QR payload.
func (s *Server) handleBeginVerification(w http.ResponseWriter, r *http.Request) {
	address := walletParam(w, r)
	if address == "" {
		return
	}

	prompt, err := s.onboarding.BeginVerification(r.Context(), address)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, prompt)
}

// verificationCallbackRequest is the body of the verification callback.
// An empty body means success; the error callback carries a status of
// "error" and an optional reason.
type verificationCallbackRequest struct {
	Status string `json:"status,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// handleVerificationCallback handles the protocol's success or error
// callback for a wallet.
func (s *Server) handleVerificationCallback(w http.ResponseWriter, r *http.Request) {
	address := walletParam(w, r)
	if address == "" {
		return
	}

	var req verificationCallbackRequest
	if err := parseJSONBody(r, &req); err != nil && err != io.EOF {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "invalid request body", nil)
		return
	}

	var (
		status *onboarding.Status
		err    error
	)
	if req.Status == "error" {
		status, err = s.onboarding.FailVerification(r.Context(), address, req.Reason)
	} else {
		status, err = s.onboarding.CompleteVerification(r.Context(), address)
	}
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, status)
}

// handleCompleteLink persists the fitness account for a wallet. The body
// carries either an authorization code or the token fields directly; both
// converge on the same stored account.
func (s *Server) handleCompleteLink(w http.ResponseWriter, r *http.Request) {
	address := walletParam(w, r)
	if address == "" {
		return
	}

	// Decoded leniently: a forwarded athlete carries the provider's full
	// payload, well beyond the fields this service persists.
	var input onboarding.LinkInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "invalid request body", nil)
		return
	}

	status, err := s.onboarding.CompleteLink(r.Context(), address, &input)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, status)
}

// handleWipe clears every persisted value for a wallet.
func (s *Server) handleWipe(w http.ResponseWriter, r *http.Request) {
	address := walletParam(w, r)
	if address == "" {
		return
	}

	if err := s.onboarding.Wipe(r.Context(), address); err != nil {
		respondServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
