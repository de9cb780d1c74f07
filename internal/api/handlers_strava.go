package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"

	"github.com/pace-club/internal/logging"
)

// handleStravaLogin issues a single-use state nonce and sends the client
// to the provider authorize page.
func (s *Server) handleStravaLogin(w http.ResponseWriter, r *http.Request) {
	state := uuid.New().String()
	if err := s.stateStore.PutOAuthState(r.Context(), state); err != nil {
		respondServiceError(w, err)
		return
	}

	http.Redirect(w, r, s.provider.AuthorizeURL(s.config.CallbackURI, state), http.StatusFound)
}

// handleStravaCallback exchanges the authorization code and forwards the
// token fields to the frontend as query parameters, with the athlete
// profile URI-encoded as JSON. Provider denials and exchange failures
// forward an error parameter instead; the linking state is untouched.
func (s *Server) handleStravaCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	logger := logging.FromContext(r.Context())

	if denied := q.Get("error"); denied != "" {
		logger.WithField("error", denied).Warn("Provider denied authorization")
		s.forwardError(w, r, "access_denied")
		return
	}

	// The nonce is single-use: a second callback with the same state fails
	if state := q.Get("state"); state != "" {
		ok, err := s.stateStore.TakeOAuthState(r.Context(), state)
		if err != nil {
			respondServiceError(w, err)
			return
		}
		if !ok {
			respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "unknown or already-used state", nil)
			return
		}
	}

	code := q.Get("code")
	if code == "" {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "missing authorization code", nil)
		return
	}

	grant, err := s.provider.ExchangeCode(r.Context(), code, s.config.CallbackURI)
	if err != nil {
		logger.WithError(err).Error("Token exchange failed")
		s.forwardError(w, r, "token_exchange_failed")
		return
	}

	athleteJSON, err := json.Marshal(grant.Athlete)
	if err != nil {
		respondError(w, http.StatusInternalServerError, ErrCodeInternalError, "could not encode athlete profile", nil)
		return
	}

	forward := url.Values{
		"access_token":  {grant.AccessToken},
		"refresh_token": {grant.RefreshToken},
		"expires_at":    {strconv.FormatInt(grant.ExpiresAt, 10)},
		"athlete":       {string(athleteJSON)},
	}
	http.Redirect(w, r, s.config.ForwardURL+"?"+forward.Encode(), http.StatusFound)
}

func (s *Server) forwardError(w http.ResponseWriter, r *http.Request, reason string) {
	forward := url.Values{"error": {reason}}
	http.Redirect(w, r, s.config.ForwardURL+"?"+forward.Encode(), http.StatusFound)
}
