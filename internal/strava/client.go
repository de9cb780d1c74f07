// Package strava implements the fitness-provider collaborator: the OAuth
// authorize/exchange/refresh dance and the activity listing endpoint.
// Every provider response is treated as an untyped payload and converted
// into typed records at this boundary; records failing validation are
// dropped rather than propagated.
package strava

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/pace-club/internal/config"
	"github.com/pace-club/internal/errors"
	"github.com/pace-club/internal/models"
	"github.com/pace-club/internal/retry"
	"github.com/pace-club/internal/types"
)

const (
	defaultAPIBaseURL   = "https://www.strava.com/api/v3"
	defaultOAuthBaseURL = "https://www.strava.com/oauth"

	// activityScope is the fixed read-only scope requested at authorize time
	activityScope = "activity:read"

	// maxPages bounds the listing loop against pathological accounts
	maxPages = 10
)

// Client talks to the Strava OAuth and REST endpoints
type Client struct {
	clientID     string
	clientSecret string
	apiBaseURL   string
	oauthBaseURL string
	httpClient   *http.Client
	limiter      *rate.Limiter
	retryCfg     *retry.Config
}

// Option customizes a Client
type Option func(*Client)

// WithBaseURLs overrides the provider endpoints (used by tests)
func WithBaseURLs(apiBaseURL, oauthBaseURL string) Option {
	return func(c *Client) {
		c.apiBaseURL = apiBaseURL
		c.oauthBaseURL = oauthBaseURL
	}
}

// WithHTTPClient overrides the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRetryConfig overrides the retry policy for provider calls
func WithRetryConfig(cfg *retry.Config) Option {
	return func(c *Client) { c.retryCfg = cfg }
}

// NewClient creates a Strava client
func NewClient(cfg *config.StravaConfig, opts ...Option) *Client {
	c := &Client{
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		apiBaseURL:   defaultAPIBaseURL,
		oauthBaseURL: defaultOAuthBaseURL,
		httpClient:   &http.Client{Timeout: 15 * time.Second},
		limiter:      rate.NewLimiter(rate.Limit(5), 10),
		retryCfg:     retry.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AuthorizeURL builds the provider authorize redirect for the fixed
// read-only activity scope.
func (c *Client) AuthorizeURL(redirectURI, state string) string {
	params := url.Values{
		"client_id":       {c.clientID},
		"response_type":   {"code"},
		"redirect_uri":    {redirectURI},
		"approval_prompt": {"force"},
		"scope":           {activityScope},
	}
	if state != "" {
		params.Set("state", state)
	}
	return c.oauthBaseURL + "/authorize?" + params.Encode()
}

// TokenGrant is the result of a successful code exchange
type TokenGrant struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	ExpiresAt    int64          `json:"expires_at"`
	Athlete      models.Athlete `json:"athlete"`
}

// Credential converts the grant into the stored credential form
func (g *TokenGrant) Credential() models.Credential {
	return models.Credential{
		AccessToken:  g.AccessToken,
		RefreshToken: g.RefreshToken,
		ExpiresAt:    g.ExpiresAt,
	}
}

// ExchangeCode exchanges an authorization code for a token grant
func (c *Client) ExchangeCode(ctx context.Context, code, redirectURI string) (*TokenGrant, error) {
	form := url.Values{
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
		"code":          {code},
		"grant_type":    {"authorization_code"},
		"redirect_uri":  {redirectURI},
	}

	var grant TokenGrant
	if err := c.postToken(ctx, form, &grant); err != nil {
		return nil, errors.NewTokenExchangeError(err)
	}
	if grant.AccessToken == "" {
		return nil, errors.NewTokenExchangeError(fmt.Errorf("provider returned no access token"))
	}
	return &grant, nil
}

// Refresh exchanges a refresh token for a fresh credential
func (c *Client) Refresh(ctx context.Context, refreshToken string) (models.Credential, error) {
	form := url.Values{
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
		"refresh_token": {refreshToken},
		"grant_type":    {"refresh_token"},
	}

	var grant TokenGrant
	if err := c.postToken(ctx, form, &grant); err != nil {
		return models.Credential{}, errors.NewTokenExchangeError(err)
	}
	if grant.AccessToken == "" {
		return models.Credential{}, errors.NewTokenExchangeError(fmt.Errorf("provider returned no access token"))
	}
	return grant.Credential(), nil
}

func (c *Client) postToken(ctx context.Context, form url.Values, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.oauthBaseURL+"/token", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// rawActivity is the untyped provider payload before boundary validation
type rawActivity struct {
	Type               string  `json:"type"`
	Name               string  `json:"name"`
	Distance           float64 `json:"distance"`
	MovingTime         int64   `json:"moving_time"`
	TotalElevationGain float64 `json:"total_elevation_gain"`
	StartDateLocal     string  `json:"start_date_local"`
	LocationCity       string  `json:"location_city"`
	WorkoutType        *int    `json:"workout_type"`
}

// ListActivities fetches the athlete's activities with the bearer token,
// following pages until a short page. Records without a type tag are
// dropped; missing numeric fields stay zero and contribute nothing
// downstream.
func (c *Client) ListActivities(ctx context.Context, accessToken string, perPage int) ([]models.Activity, error) {
	if perPage <= 0 {
		perPage = 100
	}

	var activities []models.Activity
	for page := 1; page <= maxPages; page++ {
		batch, err := c.listPage(ctx, accessToken, perPage, page)
		if err != nil {
			return nil, err
		}

		for _, raw := range batch {
			if act, ok := convertActivity(raw); ok {
				activities = append(activities, act)
			}
		}

		if len(batch) < perPage {
			break
		}
	}
	return activities, nil
}

func (c *Client) listPage(ctx context.Context, accessToken string, perPage, page int) ([]rawActivity, error) {
	endpoint := fmt.Sprintf("%s/athlete/activities?per_page=%d&page=%d", c.apiBaseURL, perPage, page)

	var batch []rawActivity
	err := retry.WithExponentialBackoff(ctx, c.retryCfg, func(ctx context.Context, attempt int) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+accessToken)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			return fmt.Errorf("activities endpoint returned %d: %s", resp.StatusCode, string(body))
		}

		batch = batch[:0]
		return json.NewDecoder(resp.Body).Decode(&batch)
	})
	if err != nil {
		return nil, errors.NewProviderError("strava", err)
	}
	return batch, nil
}

// convertActivity validates one raw record and converts it to the typed
// internal form. The start timestamp is best-effort: an unparseable value
// yields a zero time, which the aggregator skips for bucketing.
func convertActivity(raw rawActivity) (models.Activity, bool) {
	if raw.Type == "" {
		return models.Activity{}, false
	}

	act := models.Activity{
		Type:          types.ActivityType(raw.Type),
		Name:          raw.Name,
		Distance:      raw.Distance,
		MovingTime:    raw.MovingTime,
		ElevationGain: raw.TotalElevationGain,
		LocationCity:  raw.LocationCity,
		WorkoutType:   raw.WorkoutType,
	}
	if raw.Distance < 0 {
		act.Distance = 0
	}
	if raw.MovingTime < 0 {
		act.MovingTime = 0
	}

	if raw.StartDateLocal != "" {
		if start, err := time.Parse(time.RFC3339, raw.StartDateLocal); err == nil {
			act.StartDateLocal = start
		}
	}
	return act, true
}

// ParseAthleteParam decodes the URI-encoded athlete JSON carried on the
// token-forwarding redirect.
func ParseAthleteParam(encoded string) (models.Athlete, error) {
	decoded, err := url.QueryUnescape(encoded)
	if err != nil {
		return models.Athlete{}, errors.NewInvalidParameterError("athlete", "not URI-encoded")
	}
	var athlete models.Athlete
	if err := json.Unmarshal([]byte(decoded), &athlete); err != nil {
		return models.Athlete{}, errors.NewInvalidParameterError("athlete", "not valid JSON")
	}
	return athlete, nil
}

// ParseExpiresAt parses the expires_at query value
func ParseExpiresAt(value string) (int64, error) {
	expiresAt, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, errors.NewInvalidParameterError("expires_at", "not an integer")
	}
	return expiresAt, nil
}
