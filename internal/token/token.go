// Package token decodes the identity provider's bearer cookie into claims.
//
// Decoding is deliberately unverified: the provider validated the token at
// issuance and the http-only cookie is the trusted channel. Nothing here may
// be treated as cryptographically proven identity; it is a hint the gating
// middleware acts on. Signature verification against the provider's JWKS
// would slot in here if that trust boundary ever changes.
package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Providers the site distinguishes. The identity provider reports email OTP
// sign-ins as "email"; the funnel calls that "magiclink".
const (
	ProviderMagicLink = "magiclink"
	ProviderGoogle    = "google"
)

// Claims is the decoded bearer payload, reduced to the fields the site uses.
type Claims struct {
	Subject   string
	Email     string
	Provider  string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type rawClaims struct {
	jwt.RegisteredClaims
	Email       string `json:"email"`
	AppMetadata struct {
		Provider  string   `json:"provider"`
		Providers []string `json:"providers"`
	} `json:"app_metadata"`
}

// Decode parses a compact token without verifying its signature. Returns nil
// on any malformed input: wrong segment count, bad base64, bad JSON. Never
// panics.
func Decode(raw string) *Claims {
	if raw == "" {
		return nil
	}
	var rc rawClaims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &rc); err != nil {
		return nil
	}
	c := &Claims{
		Subject:  rc.RegisteredClaims.Subject,
		Email:    rc.Email,
		Provider: providerOf(&rc),
	}
	if rc.IssuedAt != nil {
		c.IssuedAt = rc.IssuedAt.Time
	}
	if rc.ExpiresAt != nil {
		c.ExpiresAt = rc.ExpiresAt.Time
	}
	return c
}

// DecodeSubject is a convenience projection of Decode for callers that only
// need the subject id. Returns "" when the token is malformed.
func DecodeSubject(raw string) string {
	c := Decode(raw)
	if c == nil {
		return ""
	}
	return c.Subject
}

func providerOf(rc *rawClaims) string {
	if p := rc.AppMetadata.Provider; p != "" {
		if p == "email" {
			return ProviderMagicLink
		}
		return p
	}
	for _, p := range rc.AppMetadata.Providers {
		if p == ProviderGoogle {
			return ProviderGoogle
		}
	}
	return ProviderMagicLink
}
