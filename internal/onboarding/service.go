package onboarding

import (
	"context"
	"errors"
	"time"

	"github.com/pace-club/internal/aggregate"
	apperrors "github.com/pace-club/internal/errors"
	"github.com/pace-club/internal/logging"
	"github.com/pace-club/internal/models"
	"github.com/pace-club/internal/storage"
	"github.com/pace-club/internal/strava"
	"github.com/pace-club/internal/types"
	"github.com/pace-club/internal/verify"
)

// ProfileRedirectDelayMS is the user-visible confirmation pause before a
// client should navigate to the profile view once onboarding completes.
const ProfileRedirectDelayMS = 1200

// recentRunLimit is how many runs the profile view shows
const recentRunLimit = 3

// credentialExpirySlack refreshes credentials that expire this close to now
const credentialExpirySlack = 60 * time.Second

// Repository persists the per-wallet onboarding record
type Repository interface {
	Get(ctx context.Context, walletAddress string) (*models.Identity, error)
	SetVerified(ctx context.Context, walletAddress string, disclosed map[string]string) error
	SetFitnessAccount(ctx context.Context, walletAddress string, account *models.FitnessAccount) error
	Delete(ctx context.Context, walletAddress string) error
}

// DisclosureReader reads disclosed attributes from the verification contract
type DisclosureReader interface {
	ReadDisclosure(ctx context.Context, walletAddress string) (map[string]string, error)
}

// FitnessProvider is the subset of the Strava client the service uses
type FitnessProvider interface {
	ExchangeCode(ctx context.Context, code, redirectURI string) (*strava.TokenGrant, error)
	Refresh(ctx context.Context, refreshToken string) (models.Credential, error)
	ListActivities(ctx context.Context, accessToken string, perPage int) ([]models.Activity, error)
}

// Cache stores fetched activity blobs for provider-failure fallback
type Cache interface {
	SetActivities(ctx context.Context, walletAddress string, activities []models.Activity) error
	GetActivities(ctx context.Context, walletAddress string) ([]models.Activity, error)
	SetRecentRuns(ctx context.Context, walletAddress string, runs []models.RecentRun) error
	GetRecentRuns(ctx context.Context, walletAddress string) ([]models.RecentRun, error)
	Wipe(ctx context.Context, walletAddress string) error
}

// Service orchestrates the onboarding steps for a wallet address. Every
// decision derives from the persisted record, so re-entering a step with
// its flag already set is a no-op.
type Service struct {
	repo        Repository
	verifier    *verify.Builder
	chain       DisclosureReader
	provider    FitnessProvider
	cache       Cache
	redirectURI string
	perPage     int
	now         func() time.Time
}

// ServiceConfig holds the service dependencies
type ServiceConfig struct {
	Repo        Repository
	Verifier    *verify.Builder
	Chain       DisclosureReader
	Provider    FitnessProvider
	Cache       Cache
	RedirectURI string
	PerPage     int
}

// NewService creates an onboarding service
func NewService(cfg *ServiceConfig) *Service {
	return &Service{
		repo:        cfg.Repo,
		verifier:    cfg.Verifier,
		chain:       cfg.Chain,
		provider:    cfg.Provider,
		cache:       cfg.Cache,
		redirectURI: cfg.RedirectURI,
		perPage:     cfg.PerPage,
		now:         time.Now,
	}
}

// Status is the externally visible onboarding position for a wallet
type Status struct {
	WalletAddress   string          `json:"walletAddress"`
	State           State           `json:"state"`
	Verified        bool            `json:"verified"`
	Linked          bool            `json:"linked"`
	Athlete         *models.Athlete `json:"athlete,omitempty"`
	RedirectTo      string          `json:"redirectTo,omitempty"`
	RedirectDelayMS int             `json:"redirectDelayMs,omitempty"`
}

// loadIdentity fetches the record for a wallet, mapping absence onto an
// empty record so the state machine can derive from it.
func (s *Service) loadIdentity(ctx context.Context, walletAddress string) (*models.Identity, error) {
	identity, err := s.repo.Get(ctx, walletAddress)
	if err != nil {
		if errors.Is(err, storage.ErrIdentityNotFound) {
			return &models.Identity{WalletAddress: walletAddress}, nil
		}
		return nil, apperrors.NewStoreError("get identity", err)
	}
	return identity, nil
}

func (s *Service) status(identity *models.Identity) *Status {
	st := &Status{
		WalletAddress: identity.WalletAddress,
		State:         DeriveState(identity),
		Verified:      identity.Verified,
		Linked:        identity.Linked(),
	}
	if identity.Linked() {
		athlete := identity.FitnessAccount.Athlete
		st.Athlete = &athlete
	}
	// Completion schedules a short, user-visible pause before the client
	// navigates on.
	if st.State == StateComplete {
		st.RedirectTo = "/profile"
		st.RedirectDelayMS = ProfileRedirectDelayMS
	}
	return st
}

// Evaluate derives the current onboarding state for a wallet from the
// persisted record alone.
func (s *Service) Evaluate(ctx context.Context, walletAddress string) (*Status, error) {
	identity, err := s.loadIdentity(ctx, walletAddress)
	if err != nil {
		return nil, err
	}
	return s.status(identity), nil
}

// VerificationPrompt is the material a client needs to run the
// verification step.
type VerificationPrompt struct {
	AlreadyVerified bool            `json:"alreadyVerified"`
	Request         *verify.Request `json:"request,omitempty"`
	UniversalLink   string          `json:"universalLink,omitempty"`
	QRPayload       string          `json:"qrPayload,omitempty"`
}

// BeginVerification builds the verification request for a wallet. For an
// already-verified wallet no request is built; the step is complete.
func (s *Service) BeginVerification(ctx context.Context, walletAddress string) (*VerificationPrompt, error) {
	identity, err := s.loadIdentity(ctx, walletAddress)
	if err != nil {
		return nil, err
	}
	if identity.Verified {
		return &VerificationPrompt{AlreadyVerified: true}, nil
	}

	req, err := s.verifier.Build(walletAddress)
	if err != nil {
		return nil, err
	}
	return &VerificationPrompt{
		Request:       req,
		UniversalLink: req.UniversalLink(),
		QRPayload:     req.QRPayload(),
	}, nil
}

// CompleteVerification handles the protocol's success callback: the
// disclosed attributes are read from the contract and persisted together
// with the verified flag. Calling it again for a verified wallet is a
// no-op.
func (s *Service) CompleteVerification(ctx context.Context, walletAddress string) (*Status, error) {
	identity, err := s.loadIdentity(ctx, walletAddress)
	if err != nil {
		return nil, err
	}
	if identity.Verified {
		return s.status(identity), nil
	}

	disclosed, err := s.chain.ReadDisclosure(ctx, walletAddress)
	if err != nil {
		// State stays put; the client retries by re-opening the step
		return nil, apperrors.NewVerificationError("could not read disclosed attributes", err)
	}

	if err := s.repo.SetVerified(ctx, walletAddress, disclosed); err != nil {
		return nil, apperrors.NewStoreError("set verified", err)
	}

	identity.Verified = true
	identity.Disclosed = disclosed
	logging.FromContext(ctx).WithField("wallet", walletAddress).Info("Wallet verified")
	return s.status(identity), nil
}

// FailVerification handles the protocol's error callback. The failure is
// logged and the state is left unchanged for retry.
func (s *Service) FailVerification(ctx context.Context, walletAddress, reason string) (*Status, error) {
	identity, err := s.loadIdentity(ctx, walletAddress)
	if err != nil {
		return nil, err
	}
	logging.FromContext(ctx).WithFields(map[string]interface{}{
		"wallet": walletAddress,
		"reason": reason,
	}).Warn("Verification failed")
	return s.status(identity), nil
}

// LinkInput carries either redirect flow's material: an authorization
// code, or the token fields forwarded directly.
type LinkInput struct {
	Code         string          `json:"code,omitempty"`
	AccessToken  string          `json:"access_token,omitempty"`
	RefreshToken string          `json:"refresh_token,omitempty"`
	ExpiresAt    int64           `json:"expires_at,omitempty"`
	Athlete      *models.Athlete `json:"athlete,omitempty"`
}

// CompleteLink converges both redirect flows on one persisted account.
// A wallet that is already linked keeps its account untouched.
func (s *Service) CompleteLink(ctx context.Context, walletAddress string, input *LinkInput) (*Status, error) {
	identity, err := s.loadIdentity(ctx, walletAddress)
	if err != nil {
		return nil, err
	}
	if identity.Linked() {
		return s.status(identity), nil
	}

	account, err := s.resolveAccount(ctx, input)
	if err != nil {
		return nil, err
	}

	if err := s.repo.SetFitnessAccount(ctx, walletAddress, account); err != nil {
		return nil, apperrors.NewStoreError("set fitness account", err)
	}

	identity.FitnessAccount = account
	logging.FromContext(ctx).WithFields(map[string]interface{}{
		"wallet":  walletAddress,
		"athlete": account.Athlete.Username,
	}).Info("Fitness account linked")
	return s.status(identity), nil
}

func (s *Service) resolveAccount(ctx context.Context, input *LinkInput) (*models.FitnessAccount, error) {
	switch {
	case input == nil:
		return nil, apperrors.NewInvalidParameterError("body", "missing link material")

	case input.AccessToken != "":
		// Token-forwarding flow: fields arrive directly
		if input.Athlete == nil {
			return nil, apperrors.NewInvalidParameterError("athlete", "missing athlete profile")
		}
		return &models.FitnessAccount{
			Athlete: *input.Athlete,
			Credential: models.Credential{
				AccessToken:  input.AccessToken,
				RefreshToken: input.RefreshToken,
				ExpiresAt:    input.ExpiresAt,
			},
			LinkedAt: s.now(),
		}, nil

	case input.Code != "":
		// Code flow: a server-side exchange produces the same fields
		grant, err := s.provider.ExchangeCode(ctx, input.Code, s.redirectURI)
		if err != nil {
			return nil, err
		}
		return &models.FitnessAccount{
			Athlete:    grant.Athlete,
			Credential: grant.Credential(),
			LinkedAt:   s.now(),
		}, nil

	default:
		return nil, apperrors.NewInvalidParameterError("body", "neither code nor token material present")
	}
}

// ProfileView is the assembled social-fitness profile for a wallet
type ProfileView struct {
	WalletAddress string             `json:"walletAddress"`
	State         State              `json:"state"`
	Athlete       *models.Athlete    `json:"athlete,omitempty"`
	Identity      map[string]string  `json:"identity"`
	Summary       aggregate.Summary  `json:"summary"`
	RecentRuns    []models.RecentRun `json:"recentRuns"`
}

// Profile assembles the profile view. Provider failures fall back to the
// cached activity blobs; with nothing cached the view renders zero state.
// No failure on this path is fatal.
func (s *Service) Profile(ctx context.Context, walletAddress string) (*ProfileView, error) {
	identity, err := s.loadIdentity(ctx, walletAddress)
	if err != nil {
		return nil, err
	}
	logger := logging.FromContext(ctx).WithField("wallet", walletAddress)

	view := &ProfileView{
		WalletAddress: walletAddress,
		State:         DeriveState(identity),
		Identity:      s.disclosedView(identity),
		Summary:       aggregate.Summarize(nil, ""),
		RecentRuns:    []models.RecentRun{},
	}
	if !identity.Linked() {
		return view, nil
	}

	account := identity.FitnessAccount
	athlete := account.Athlete
	view.Athlete = &athlete

	credential := s.freshCredential(ctx, walletAddress, account, logger)

	activities, err := s.provider.ListActivities(ctx, credential.AccessToken, s.perPage)
	if err != nil {
		logger.WithError(err).Warn("Activity fetch failed, falling back to cache")
		cached, cacheErr := s.cache.GetActivities(ctx, walletAddress)
		if cacheErr != nil {
			// Zero state: stats reset, no badges. The derived recent-run
			// blob may outlive the activity blob, so it is still served.
			view.Summary = aggregate.Summarize(nil, athlete.City)
			if runs, runsErr := s.cache.GetRecentRuns(ctx, walletAddress); runsErr == nil {
				view.RecentRuns = runs
			}
			return view, nil
		}
		activities = cached
	} else {
		if cacheErr := s.cache.SetActivities(ctx, walletAddress, activities); cacheErr != nil {
			logger.WithError(cacheErr).Warn("Could not cache activities")
		}
	}

	view.Summary = aggregate.Summarize(activities, athlete.City)
	view.RecentRuns = aggregate.RecentRuns(activities, s.now(), recentRunLimit)
	if cacheErr := s.cache.SetRecentRuns(ctx, walletAddress, view.RecentRuns); cacheErr != nil {
		logger.WithError(cacheErr).Warn("Could not cache recent runs")
	}
	return view, nil
}

// freshCredential refreshes a credential that is about to expire and
// persists the replacement. A failed refresh keeps the old credential;
// the provider call that follows decides whether it still works.
func (s *Service) freshCredential(ctx context.Context, walletAddress string, account *models.FitnessAccount, logger *logging.Logger) models.Credential {
	credential := account.Credential
	if credential.RefreshToken == "" || !credential.ExpiresWithin(s.now(), credentialExpirySlack) {
		return credential
	}

	refreshed, err := s.provider.Refresh(ctx, credential.RefreshToken)
	if err != nil {
		logger.WithError(err).Warn("Credential refresh failed")
		return credential
	}

	account.Credential = refreshed
	if err := s.repo.SetFitnessAccount(ctx, walletAddress, account); err != nil {
		logger.WithError(err).Warn("Could not persist refreshed credential")
	}
	return refreshed
}

func (s *Service) disclosedView(identity *models.Identity) map[string]string {
	view := make(map[string]string, len(types.DisclosureSet))
	for _, field := range types.DisclosureSet {
		view[string(field)] = identity.DisclosedField(field)
	}
	return view
}

// Wipe clears every persisted value for a wallet: the identity record and
// the cached activity blobs.
func (s *Service) Wipe(ctx context.Context, walletAddress string) error {
	if err := s.repo.Delete(ctx, walletAddress); err != nil {
		return apperrors.NewStoreError("delete identity", err)
	}
	if err := s.cache.Wipe(ctx, walletAddress); err != nil {
		return apperrors.NewStoreError("wipe cache", err)
	}
	logging.FromContext(ctx).WithField("wallet", walletAddress).Info("Wallet data wiped")
	return nil
}
