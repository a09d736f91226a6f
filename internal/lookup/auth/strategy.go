// Package auth turns a provider config's opaque secret into request
// credentials. One strategy per supported scheme; the lookup client asks the
// factory for the right one at call time.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"enrollgate/internal/provider/models"
)

// Strategy injects credentials into an outbound provider request.
type Strategy interface {
	Apply(ctx context.Context, req *http.Request) error
}

// SecretResolver resolves an opaque secret handle into credential material.
// The default resolver reads from the environment; tests substitute a map.
type SecretResolver func(ref string) (string, error)

// EnvSecretResolver resolves secret handles as environment variable names.
func EnvSecretResolver(ref string) (string, error) {
	secret := os.Getenv(ref)
	if secret == "" {
		return "", fmt.Errorf("secret %q is not set", ref)
	}
	return secret, nil
}

// Factory builds strategies per provider config, sharing the OAuth token
// cache across calls so tokens are reused until expiry.
type Factory struct {
	resolve SecretResolver
	oauth   *tokenSource
}

// NewFactory creates a strategy factory. httpClient is used for OAuth token
// endpoint calls only.
func NewFactory(resolve SecretResolver, httpClient *http.Client) *Factory {
	if resolve == nil {
		resolve = EnvSecretResolver
	}
	return &Factory{
		resolve: resolve,
		oauth:   newTokenSource(httpClient),
	}
}

// For returns the strategy matching the config's auth scheme.
func (f *Factory) For(cfg *models.ProviderConfig) (Strategy, error) {
	switch cfg.AuthScheme {
	case models.AuthSchemeAPIKey:
		return &apiKeyStrategy{resolve: f.resolve, ref: cfg.SecretRef}, nil
	case models.AuthSchemeBearer:
		return &staticBearerStrategy{resolve: f.resolve, ref: cfg.SecretRef}, nil
	case models.AuthSchemeBasic:
		return &basicStrategy{resolve: f.resolve, ref: cfg.SecretRef}, nil
	case models.AuthSchemeOAuth:
		return &oauthStrategy{source: f.oauth, resolve: f.resolve, ref: cfg.SecretRef, tokenURL: cfg.TokenURL}, nil
	default:
		return nil, fmt.Errorf("unsupported auth scheme %q", cfg.AuthScheme)
	}
}

// apiKeyStrategy sends the secret in the X-API-Key header.
type apiKeyStrategy struct {
	resolve SecretResolver
	ref     string
}

func (s *apiKeyStrategy) Apply(_ context.Context, req *http.Request) error {
	secret, err := s.resolve(s.ref)
	if err != nil {
		return err
	}
	req.Header.Set("X-API-Key", secret)
	return nil
}

// staticBearerStrategy sends the secret as a fixed bearer token.
type staticBearerStrategy struct {
	resolve SecretResolver
	ref     string
}

func (s *staticBearerStrategy) Apply(_ context.Context, req *http.Request) error {
	secret, err := s.resolve(s.ref)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+secret)
	return nil
}

// basicStrategy expects the secret as "username:password".
type basicStrategy struct {
	resolve SecretResolver
	ref     string
}

func (s *basicStrategy) Apply(_ context.Context, req *http.Request) error {
	secret, err := s.resolve(s.ref)
	if err != nil {
		return err
	}
	username, password, ok := strings.Cut(secret, ":")
	if !ok {
		return fmt.Errorf("basic auth secret must be username:password")
	}
	req.SetBasicAuth(username, password)
	return nil
}

// oauthStrategy fetches a client-credentials token lazily and reuses it
// until expiry minus a safety margin.
type oauthStrategy struct {
	source   *tokenSource
	resolve  SecretResolver
	ref      string
	tokenURL string
}

func (s *oauthStrategy) Apply(ctx context.Context, req *http.Request) error {
	secret, err := s.resolve(s.ref)
	if err != nil {
		return err
	}
	clientID, clientSecret, ok := strings.Cut(secret, ":")
	if !ok {
		return fmt.Errorf("oauth secret must be client_id:client_secret")
	}
	token, err := s.source.token(ctx, s.tokenURL, clientID, clientSecret)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}
