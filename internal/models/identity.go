// Package models provides data models for the Pace Club onboarding system.
package models

import (
	"time"

	"github.com/pace-club/internal/types"
)

// Identity is the per-wallet onboarding record. The wallet address is the
// stable primary key; the verified flag is set once by a successful
// verification callback and never cleared except by an explicit wipe.
type Identity struct {
	WalletAddress  string            `json:"walletAddress" db:"wallet_address"`
	Verified       bool              `json:"verified" db:"verified"`
	Disclosed      map[string]string `json:"disclosed,omitempty" db:"disclosed"`
	FitnessAccount *FitnessAccount   `json:"fitnessAccount,omitempty" db:"fitness_account"`
	CreatedAt      time.Time         `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time         `json:"updatedAt" db:"updated_at"`
}

// Linked reports whether a fitness account has been connected
func (i *Identity) Linked() bool {
	return i != nil && i.FitnessAccount != nil
}

// DisclosedField returns a disclosed attribute, or "N/A" when absent.
// Absence of a value is a display concern, not an error.
func (i *Identity) DisclosedField(field types.DisclosureField) string {
	if i == nil || i.Disclosed == nil {
		return "N/A"
	}
	if v, ok := i.Disclosed[string(field)]; ok && v != "" {
		return v
	}
	return "N/A"
}

// FitnessAccount is the linked Strava account: athlete profile plus the
// access credential from the OAuth exchange.
type FitnessAccount struct {
	Athlete    Athlete    `json:"athlete"`
	Credential Credential `json:"credential"`
	LinkedAt   time.Time  `json:"linkedAt"`
}

// Athlete is the provider-side profile of the linked account
type Athlete struct {
	ID        int64  `json:"id,omitempty"`
	Firstname string `json:"firstname,omitempty"`
	Lastname  string `json:"lastname,omitempty"`
	Username  string `json:"username,omitempty"`
	Profile   string `json:"profile,omitempty"`
	City      string `json:"city,omitempty"`
	Bio       string `json:"bio,omitempty"`
}

// Credential is the OAuth access credential for the fitness provider
type Credential struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresAt    int64  `json:"expiresAt"`
}

// ExpiresWithin reports whether the credential expires within d of now.
// A zero expiry means the provider never reported one; the credential is
// used as-is rather than treated as expired.
func (c Credential) ExpiresWithin(now time.Time, d time.Duration) bool {
	if c.ExpiresAt == 0 {
		return false
	}
	return c.ExpiresAt <= now.Add(d).Unix()
}
