package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/oauth2/clientcredentials"

	apperrors "github.com/vitalsign/go-session-store/internal/errors"
)

// TokenSource obtains a fresh access token from the upstream platform.
type TokenSource interface {
	FetchToken(ctx context.Context) (token string, expiresAt time.Time, err error)
}

// PasswordSource authenticates against the upstream platform's login endpoint
// (POST {base}/api/auth/login) with a service account. The login response
// carries no expiry, so TokenTTL bounds how long a fetched token is trusted.
type PasswordSource struct {
	BaseURL    string
	Username   string
	Password   string
	TokenTTL   time.Duration
	HTTPClient *http.Client
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// FetchToken implements TokenSource.
func (s *PasswordSource) FetchToken(ctx context.Context) (string, time.Time, error) {
	body, err := json.Marshal(loginRequest{Username: s.Username, Password: s.Password})
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, "[PasswordSource.FetchToken] marshal login request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.BaseURL+"/api/auth/login", bytes.NewReader(body))
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, "[PasswordSource.FetchToken] build login request")
	}
	req.Header.Set("Content-Type", "application/json")

	httpClient := s.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", time.Time{}, apperrors.Wrapf(apperrors.ErrUpstreamUnavailable, "[PasswordSource.FetchToken] %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", time.Time{}, fmt.Errorf("[PasswordSource.FetchToken] login returned %d: %w", resp.StatusCode, apperrors.ErrUpstreamUnavailable)
	}

	var lr loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return "", time.Time{}, errors.Wrap(err, "[PasswordSource.FetchToken] decode login response")
	}
	if lr.Token == "" {
		return "", time.Time{}, errors.New("[PasswordSource.FetchToken] login response missing token")
	}

	return lr.Token, time.Now().Add(s.TokenTTL), nil
}

// ClientCredentialsSource obtains tokens via the OAuth2 client credentials
// grant, for upstream platforms fronted by a standard authorization server.
type ClientCredentialsSource struct {
	Config *clientcredentials.Config
}

// FetchToken implements TokenSource.
func (s *ClientCredentialsSource) FetchToken(ctx context.Context) (string, time.Time, error) {
	tok, err := s.Config.Token(ctx)
	if err != nil {
		return "", time.Time{}, apperrors.Wrapf(apperrors.ErrUpstreamUnavailable, "[ClientCredentialsSource.FetchToken] %v", err)
	}
	return tok.AccessToken, tok.Expiry, nil
}

// Client is a read-through wrapper combining a TokenSource with the Cache:
// Token serves from the cache when possible and otherwise fetches, caches and
// returns a fresh token.
type Client struct {
	source TokenSource
	cache  *Cache
}

// NewClient creates a read-through upstream token client.
func NewClient(source TokenSource, cache *Cache) (*Client, error) {
	if source == nil {
		return nil, errors.New("[NewClient] source is required")
	}
	if cache == nil {
		return nil, errors.New("[NewClient] cache is required")
	}
	return &Client{source: source, cache: cache}, nil
}

// Token returns a bearer token for calls made on behalf of userID.
func (c *Client) Token(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", apperrors.Wrapf(apperrors.ErrInvalidArgument, "[Client.Token] empty user id")
	}
	if tok, ok := c.cache.Fetch(userID); ok {
		return tok, nil
	}

	tok, expiresAt, err := c.source.FetchToken(ctx)
	if err != nil {
		return "", errors.Wrap(err, "[Client.Token] upstream fetch")
	}

	c.cache.Save(userID, tok, expiresAt)
	return tok, nil
}

// Invalidate drops the cached token for userID so the next Token call fetches
// a fresh one. Called when the upstream platform rejects the token.
func (c *Client) Invalidate(userID string) {
	c.cache.Invalidate(userID)
}
