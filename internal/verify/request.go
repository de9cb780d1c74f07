// Package verify builds identity-verification requests for the Self
// protocol. The protocol itself is a black box: this package produces the
// request object, its shareable universal link, and the QR payload; the
// success or error callback arrives over the HTTP API.
package verify

import (
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/pace-club/internal/config"
	"github.com/pace-club/internal/errors"
	"github.com/pace-club/internal/types"
)

const (
	// requestVersion is the protocol request version in use
	requestVersion = 2

	// universalLinkBase is the protocol's deep-link host
	universalLinkBase = "https://redirect.self.xyz"
)

// Request is a verification request scoped to one wallet address with the
// fixed disclosure set.
type Request struct {
	Version         int                     `json:"version"`
	SessionID       string                  `json:"sessionId"`
	AppName         string                  `json:"appName"`
	Scope           string                  `json:"scope"`
	Endpoint        string                  `json:"endpoint"`
	EndpointType    string                  `json:"endpointType"`
	UserID          string                  `json:"userId"`
	UserIDType      string                  `json:"userIdType"`
	UserDefinedData string                  `json:"userDefinedData"`
	Disclosures     []types.DisclosureField `json:"disclosures"`
}

// Builder creates verification requests from service configuration
type Builder struct {
	appName      string
	scope        string
	endpoint     string
	endpointType string
}

// NewBuilder creates a request builder. The endpoint is the verification
// contract address the protocol will write results to.
func NewBuilder(cfg *config.VerificationConfig, contractAddress string) *Builder {
	return &Builder{
		appName:      cfg.AppName,
		scope:        cfg.Scope,
		endpoint:     contractAddress,
		endpointType: cfg.EndpointType,
	}
}

// Build creates a request for a wallet address. Every request carries the
// full fixed disclosure set; there is no partial disclosure.
func (b *Builder) Build(walletAddress string) (*Request, error) {
	if walletAddress == "" {
		return nil, errors.NewInvalidParameterError("walletAddress", "must not be empty")
	}

	return &Request{
		Version:         requestVersion,
		SessionID:       uuid.New().String(),
		AppName:         b.appName,
		Scope:           b.scope,
		Endpoint:        b.endpoint,
		EndpointType:    b.endpointType,
		UserID:          strings.ToLower(walletAddress),
		UserIDType:      "hex",
		UserDefinedData: "0x00",
		Disclosures:     types.DisclosureSet,
	}, nil
}

// UniversalLink returns the shareable deep link for the request
func (r *Request) UniversalLink() string {
	disclosures := make([]string, len(r.Disclosures))
	for i, d := range r.Disclosures {
		disclosures[i] = string(d)
	}

	params := url.Values{
		"sessionId":    {r.SessionID},
		"appName":      {r.AppName},
		"scope":        {r.Scope},
		"endpoint":     {r.Endpoint},
		"endpointType": {r.EndpointType},
		"userId":       {r.UserID},
		"userIdType":   {r.UserIDType},
		"data":         {r.UserDefinedData},
		"disclosures":  {strings.Join(disclosures, ",")},
	}
	return universalLinkBase + "?" + params.Encode()
}

// QRPayload returns the scannable surface for the request. The payload is
// the universal link itself; scanning and tapping are the same URI.
func (r *Request) QRPayload() string {
	return r.UniversalLink()
}
