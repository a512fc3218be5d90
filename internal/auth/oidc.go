// Package auth implements admin sign-in through an OpenID Connect provider
// and the encrypted cookies that carry the resulting session.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/stagehand-music/stagehand/internal/config"
)

// Claims are the ID token claims the admin session needs.
type Claims struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

// OIDCProvider wraps provider discovery, the OAuth2 code flow and ID token
// verification.
type OIDCProvider struct {
	oauth2Config   *oauth2.Config
	verifier       *oidc.IDTokenVerifier
	allowedDomains []string
}

// NewOIDCProvider discovers the issuer and builds the code flow config.
func NewOIDCProvider(ctx context.Context, cfg *config.OIDCConfig) (*OIDCProvider, error) {
	provider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create OIDC provider: %w", err)
	}

	return &OIDCProvider{
		oauth2Config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       cfg.GetScopes(),
		},
		verifier:       provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		allowedDomains: cfg.GetAllowedDomains(),
	}, nil
}

// AuthCodeURL returns the provider login URL for one attempt.
func (p *OIDCProvider) AuthCodeURL(state, nonce string) string {
	return p.oauth2Config.AuthCodeURL(state, oidc.Nonce(nonce))
}

// Exchange trades an authorization code for a verified ID token and
// returns its claims.
func (p *OIDCProvider) Exchange(ctx context.Context, code, nonce string) (*Claims, error) {
	token, err := p.oauth2Config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return nil, fmt.Errorf("no id_token in token response")
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("failed to verify ID token: %w", err)
	}
	if idToken.Nonce != nonce {
		return nil, fmt.Errorf("nonce mismatch")
	}

	var claims Claims
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("failed to parse claims: %w", err)
	}
	return &claims, nil
}

// ValidateClaims enforces the email domain allow-list.
func (p *OIDCProvider) ValidateClaims(claims *Claims) error {
	return checkEmailDomain(claims.Email, p.allowedDomains)
}

func checkEmailDomain(email string, allowed []string) error {
	if email == "" {
		return fmt.Errorf("email claim is required")
	}
	if len(allowed) == 0 {
		return nil
	}
	_, host, ok := strings.Cut(email, "@")
	if !ok || host == "" || strings.Contains(host, "@") {
		return fmt.Errorf("invalid email format")
	}
	for _, d := range allowed {
		if strings.EqualFold(d, host) {
			return nil
		}
	}
	return fmt.Errorf("email domain %s is not allowed", strings.ToLower(host))
}

// GenerateSecureString returns length random bytes, base64url encoded.
func GenerateSecureString(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
