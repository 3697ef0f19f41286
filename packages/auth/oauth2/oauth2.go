// Package oauth2 fetches and caches OAuth2 access tokens for requests whose
// auth type is oauth2.
package oauth2

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

// GrantType represents the OAuth2 grant type
type GrantType string

const (
	// ClientCredentials is the client_credentials grant type
	ClientCredentials GrantType = "client_credentials"
	// Password is the password (resource owner) grant type
	Password GrantType = "password"
)

// expirySkew is subtracted from expires_in to account for clock skew.
const expirySkew = 30 * time.Second

// Config identifies a token: the same Config always maps to the same cached
// token.
type Config struct {
	GrantType    GrantType
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scope        string // space separated
	Username     string // password grant
	Password     string // password grant
}

func (c Config) key() string {
	return strings.Join([]string{string(c.grantType()), c.TokenURL, c.ClientID, c.Scope, c.Username}, "\x00")
}

func (c Config) grantType() GrantType {
	if c.GrantType == "" {
		return ClientCredentials
	}
	return c.GrantType
}

// Token represents an OAuth2 access token
type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int       `json:"expires_in"`
	Scope       string    `json:"scope,omitempty"`
	ExpiresAt   time.Time `json:"-"`
}

// IsExpired reports whether the token should be fetched again.
func (t *Token) IsExpired() bool {
	if t.ExpiresAt.IsZero() {
		return false
	}
	return !time.Now().Before(t.ExpiresAt)
}

// HeaderValue renders the Authorization header value.
func (t *Token) HeaderValue() string {
	typ := t.TokenType
	if typ == "" || strings.EqualFold(typ, "bearer") {
		typ = "Bearer"
	}
	return typ + " " + t.AccessToken
}

// Source hands out tokens, fetching each distinct Config once until it
// expires. Concurrent callers asking for the same Config share one fetch.
type Source struct {
	httpClient *http.Client
	cache      *TokenCache
	group      singleflight.Group
}

// NewSource creates a token source that sends token requests with client.
func NewSource(client *http.Client) *Source {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Source{httpClient: client, cache: NewTokenCache()}
}

// Token returns a valid access token for cfg.
func (s *Source) Token(ctx context.Context, cfg Config) (*Token, error) {
	if cfg.TokenURL == "" {
		return nil, fmt.Errorf("oauth2: token url is empty")
	}
	if token := s.cache.Valid(cfg); token != nil {
		return token, nil
	}

	v, err, _ := s.group.Do(cfg.key(), func() (any, error) {
		if token := s.cache.Valid(cfg); token != nil {
			return token, nil
		}
		token, err := s.fetchToken(ctx, cfg)
		if err != nil {
			return nil, err
		}
		s.cache.Store(cfg, token)
		return token, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Token), nil
}

// Invalidate forgets the token for cfg so the next Token call fetches a new
// one.
func (s *Source) Invalidate(cfg Config) {
	s.cache.Evict(cfg)
}

func (s *Source) fetchToken(ctx context.Context, cfg Config) (*Token, error) {
	data := url.Values{}
	switch cfg.grantType() {
	case ClientCredentials:
		data.Set("grant_type", string(ClientCredentials))
	case Password:
		data.Set("grant_type", string(Password))
		data.Set("username", cfg.Username)
		data.Set("password", cfg.Password)
	default:
		return nil, fmt.Errorf("oauth2: unsupported grant type %q", cfg.GrantType)
	}
	if cfg.Scope != "" {
		data.Set("scope", cfg.Scope)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	if cfg.ClientID != "" {
		auth := base64.StdEncoding.EncodeToString([]byte(url.QueryEscape(cfg.ClientID) + ":" + url.QueryEscape(cfg.ClientSecret)))
		req.Header.Set("Authorization", "Basic "+auth)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp struct {
			Error            string `json:"error"`
			ErrorDescription string `json:"error_description"`
		}
		if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
			return nil, fmt.Errorf("token request failed: %s - %s", errResp.Error, errResp.ErrorDescription)
		}
		return nil, fmt.Errorf("token request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var token Token
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("token response has no access_token")
	}

	if token.ExpiresIn > 0 {
		token.ExpiresAt = time.Now().Add(time.Duration(token.ExpiresIn)*time.Second - expirySkew)
	}
	return &token, nil
}
