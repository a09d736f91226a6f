package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// expiryMargin is subtracted from declared token lifetimes so a token close
// to expiring is never sent upstream.
const expiryMargin = 30 * time.Second

// defaultTokenTTL applies when the token endpoint declares no lifetime and
// the token carries no exp claim.
const defaultTokenTTL = 5 * time.Minute

// cachedToken is one endpoint+client credential slot. Its mutex serializes
// refreshes for that slot only, so a slow token endpoint never blocks other
// providers.
type cachedToken struct {
	mu        sync.Mutex
	value     string
	expiresAt time.Time
}

// tokenSource caches one client-credentials token per token endpoint +
// client ID. Tokens are refreshed lazily on first use after expiry; nothing
// is pre-warmed.
type tokenSource struct {
	httpClient *http.Client

	mu     sync.Mutex
	tokens map[string]*cachedToken
}

func newTokenSource(httpClient *http.Client) *tokenSource {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &tokenSource{
		httpClient: httpClient,
		tokens:     make(map[string]*cachedToken),
	}
}

func (ts *tokenSource) token(ctx context.Context, tokenURL, clientID, clientSecret string) (string, error) {
	key := tokenURL + "|" + clientID

	ts.mu.Lock()
	slot, ok := ts.tokens[key]
	if !ok {
		slot = &cachedToken{}
		ts.tokens[key] = slot
	}
	ts.mu.Unlock()

	slot.mu.Lock()
	defer slot.mu.Unlock()

	if slot.value != "" && time.Now().Before(slot.expiresAt) {
		return slot.value, nil
	}

	token, expiresAt, err := ts.fetch(ctx, tokenURL, clientID, clientSecret)
	if err != nil {
		return "", err
	}
	slot.value = token
	slot.expiresAt = expiresAt
	return token, nil
}

func (ts *tokenSource) fetch(ctx context.Context, tokenURL, clientID, clientSecret string) (string, time.Time, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", clientID)
	form.Set("client_secret", clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := ts.httpClient.Do(req)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("read token response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return "", time.Time{}, fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", time.Time{}, fmt.Errorf("decode token response: %w", err)
	}
	if payload.AccessToken == "" {
		return "", time.Time{}, fmt.Errorf("token endpoint returned no access_token")
	}

	return payload.AccessToken, tokenExpiry(payload.AccessToken, payload.ExpiresIn), nil
}

// tokenExpiry prefers the declared expires_in, falls back to the token's own
// exp claim when it parses as a JWT, then to a conservative default.
func tokenExpiry(token string, expiresIn int64) time.Time {
	now := time.Now()
	if expiresIn > 0 {
		return now.Add(time.Duration(expiresIn)*time.Second - expiryMargin)
	}

	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			return exp.Time.Add(-expiryMargin)
		}
	}
	return now.Add(defaultTokenTTL - expiryMargin)
}
