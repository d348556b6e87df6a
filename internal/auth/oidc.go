package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/evaka-go/apigw/internal/config"
)

// OIDCProvider terminates the strong citizen authentication flow
// against the national identity broker. The ID token is the proof of
// identity; its claims are mapped into the citizen attribute profile.
type OIDCProvider struct {
	provider *oidc.Provider
	verifier *oidc.IDTokenVerifier
	oauth    *oauth2.Config
	ssnClaim string
}

// NewOIDCProvider discovers the issuer configuration and prepares the
// OAuth2 code flow. Discovery failure is a startup error.
func NewOIDCProvider(ctx context.Context, cfg *config.OIDCAuth) (*OIDCProvider, error) {
	if !cfg.Enabled {
		return nil, ErrOIDCDisabled
	}

	provider, err := oidc.NewProvider(ctx, cfg.ProviderURL)
	if err != nil {
		return nil, errors.Wrap(err, "discovering OIDC provider")
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{oidc.ScopeOpenID, "profile"}
	}

	p := &OIDCProvider{
		provider: provider,
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       scopes,
		},
		ssnClaim: cfg.SSNClaim,
	}

	log.Debug().Str("issuer", cfg.ProviderURL).Msg("OIDC provider configured")

	return p, nil
}

// GenerateStateToken returns a fresh random state value for the
// authorization redirect.
func (p *OIDCProvider) GenerateStateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, "generating state token")
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// AuthURL builds the authorization redirect for the given state.
func (p *OIDCProvider) AuthURL(state string) string {
	return p.oauth.AuthCodeURL(state)
}

// HandleCallback exchanges the authorization code, verifies the ID
// token and maps its claims into the citizen attribute profile.
func (p *OIDCProvider) HandleCallback(ctx context.Context, code string) (Attributes, error) {
	token, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, errors.Wrap(err, "exchanging authorization code")
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return nil, ErrNoIDToken
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, errors.Wrap(err, "verifying ID token")
	}

	var claims map[string]interface{}
	if err := idToken.Claims(&claims); err != nil {
		return nil, errors.Wrap(err, "decoding ID token claims")
	}

	attrs := Attributes{}
	attrs.Set("socialSecurityNumber", stringClaim(claims, p.ssnClaim))
	attrs.Set("firstName", stringClaim(claims, "given_name"))
	attrs.Set("lastName", stringClaim(claims, "family_name"))

	return attrs, nil
}

func stringClaim(claims map[string]interface{}, name string) string {
	if value, ok := claims[name].(string); ok {
		return value
	}

	return ""
}
