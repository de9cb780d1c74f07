// Package api provides the HTTP API server implementation.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/pace-club/internal/logging"
	"github.com/pace-club/internal/onboarding"
	"github.com/pace-club/internal/strava"
)

// Service interfaces for dependency injection and testing

// OnboardingServiceInterface defines the interface for onboarding operations
type OnboardingServiceInterface interface {
	Evaluate(ctx context.Context, walletAddress string) (*onboarding.Status, error)
	BeginVerification(ctx context.Context, walletAddress string) (*onboarding.VerificationPrompt, error)
	CompleteVerification(ctx context.Context, walletAddress string) (*onboarding.Status, error)
	FailVerification(ctx context.Context, walletAddress, reason string) (*onboarding.Status, error)
	CompleteLink(ctx context.Context, walletAddress string, input *onboarding.LinkInput) (*onboarding.Status, error)
	Profile(ctx context.Context, walletAddress string) (*onboarding.ProfileView, error)
	Wipe(ctx context.Context, walletAddress string) error
}

// OAuthProviderInterface defines the provider operations the proxy routes use
type OAuthProviderInterface interface {
	AuthorizeURL(redirectURI, state string) string
	ExchangeCode(ctx context.Context, code, redirectURI string) (*strava.TokenGrant, error)
}

// StateStoreInterface records issued authorize-redirect nonces
type StateStoreInterface interface {
	PutOAuthState(ctx context.Context, state string) error
	TakeOAuthState(ctx context.Context, state string) (bool, error)
}

// Server represents the HTTP API server.
type Server struct {
	router     *mux.Router
	httpServer *http.Server
	onboarding OnboardingServiceInterface
	provider   OAuthProviderInterface
	stateStore StateStoreInterface
	config     *ServerConfig
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	ClientRPS       int // Requests per second per client

	// CallbackURI is the provider-facing OAuth redirect target
	CallbackURI string
	// ForwardURL is the frontend route the callback forwards token fields to
	ForwardURL string
}

// NewServer creates a new API server instance.
func NewServer(
	config *ServerConfig,
	onboardingService OnboardingServiceInterface,
	provider OAuthProviderInterface,
	stateStore StateStoreInterface,
) *Server {
	s := &Server{
		router:     mux.NewRouter(),
		onboarding: onboardingService,
		provider:   provider,
		stateStore: stateStore,
		config:     config,
	}

	s.setupRouter()

	return s
}

// setupRouter configures the router with middleware and routes
func (s *Server) setupRouter() {
	rateLimiter := NewRateLimiter(s.config.ClientRPS)

	// Set up middleware (order matters!)
	s.router.Use(LoggingMiddleware)
	s.router.Use(RecoveryMiddleware)
	s.router.Use(CORSMiddleware)
	s.router.Use(RateLimitMiddleware(rateLimiter)) // Rate limiting after CORS

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.config.Host, s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	// Health check endpoint
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()

	// OAuth proxy endpoints
	api.HandleFunc("/strava/login", s.handleStravaLogin).Methods("GET")
	api.HandleFunc("/strava/callback", s.handleStravaCallback).Methods("GET")

	// Onboarding endpoints
	api.HandleFunc("/onboarding/{address}", s.handleGetOnboarding).Methods("GET")
	api.HandleFunc("/onboarding/{address}/verification", s.handleBeginVerification).Methods("GET")
	api.HandleFunc("/onboarding/{address}/verification", s.handleVerificationCallback).Methods("POST")
	api.HandleFunc("/onboarding/{address}/link", s.handleCompleteLink).Methods("POST")
	api.HandleFunc("/onboarding/{address}", s.handleWipe).Methods("DELETE")

	// Profile endpoint
	api.HandleFunc("/profile/{address}", s.handleGetProfile).Methods("GET")
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "pace-club",
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	logging.GetGlobalLogger().WithField("addr", s.httpServer.Addr).Info("Starting API server")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.GetGlobalLogger().Info("Shutting down API server")
	return s.httpServer.Shutdown(ctx)
}
