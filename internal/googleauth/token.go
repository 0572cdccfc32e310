// Package googleauth exchanges a signed service-account assertion for a
// short-lived bearer token. Tokens are not cached: each logical operation
// reacquires, so callers that want caching layer it themselves.
package googleauth

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sethvargo/go-retry"

	"github.com/shutterdesk/shutterdesk/internal/errs"
)

const grantType = "urn:ietf:params:oauth:grant-type:jwt-bearer"

// TokenProvider yields a bearer token for one outgoing request. Both the
// sheets and calendar clients accept one.
type TokenProvider func(ctx context.Context) (string, error)

// Credentials is the parsed service-account key material.
type Credentials struct {
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
	TokenURI    string `json:"token_uri"`

	key *rsa.PrivateKey
}

// LoadCredentials reads and validates a JSON service-account key file.
// Any defect in the material is ErrBadCredentials: fail fast, never retry.
func LoadCredentials(path string) (*Credentials, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", errs.ErrBadCredentials, path, err)
	}
	return ParseCredentials(raw)
}

// ParseCredentials validates raw JSON key material.
func ParseCredentials(raw []byte) (*Credentials, error) {
	var c Credentials
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrBadCredentials, err)
	}
	if c.ClientEmail == "" || c.PrivateKey == "" || c.TokenURI == "" {
		return nil, fmt.Errorf("%w: missing client_email/private_key/token_uri", errs.ErrBadCredentials)
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(c.PrivateKey))
	if err != nil {
		return nil, fmt.Errorf("%w: private key: %v", errs.ErrBadCredentials, err)
	}
	c.key = key
	return &c, nil
}

// TokenSource acquires access tokens for a fixed scope set.
type TokenSource struct {
	creds  *Credentials
	scopes []string
	http   *http.Client

	Timeout    time.Duration // overall budget for one Token call, attempts included
	MaxRetries int           // retries after the first attempt
	RetryDelay time.Duration // base of the linear backoff (delay * attempt)
}

// NewTokenSource constructs a source with the default retry policy.
func NewTokenSource(creds *Credentials, scopes []string, httpClient *http.Client) *TokenSource {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 20 * time.Second}
	}
	return &TokenSource{
		creds:      creds,
		scopes:     scopes,
		http:       httpClient,
		Timeout:    30 * time.Second,
		MaxRetries: 3,
		RetryDelay: 500 * time.Millisecond,
	}
}

type claims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

func (s *TokenSource) assertion(now time.Time) (string, error) {
	c := claims{
		Scope: strings.Join(s.scopes, " "),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.creds.ClientEmail,
			Audience:  jwt.ClaimStrings{s.creds.TokenURI},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodRS256, c).SignedString(s.creds.key)
}

// Token acquires a bearer token. Transient failures (network, non-2xx,
// malformed success body) are retried with linearly increasing delay; the
// whole call, sleeps included, races the configured Timeout. Whichever
// settles first wins: an expired budget cancels the in-flight attempt.
func (s *TokenSource) Token(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	backoff := retry.WithMaxRetries(uint64(s.MaxRetries), linear(s.RetryDelay))

	var token string
	attempts := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		tok, err := s.exchange(ctx)
		if err != nil {
			return retry.RetryableError(err)
		}
		token = tok
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("acquire token (attempt %d): %w", attempts, err)
	}
	return token, nil
}

// Provider adapts the source to the TokenProvider shape clients consume.
func (s *TokenSource) Provider() TokenProvider {
	return func(ctx context.Context) (string, error) { return s.Token(ctx) }
}

func (s *TokenSource) exchange(ctx context.Context) (string, error) {
	assertion, err := s.assertion(time.Now())
	if err != nil {
		return "", err
	}

	form := url.Values{}
	form.Set("grant_type", grantType)
	form.Set("assertion", assertion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.creds.TokenURI,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.http.Do(req)
	if err != nil {
		return "", err
	}
	body, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return "", readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &errs.APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("token response: %w", err)
	}
	if out.AccessToken == "" {
		return "", fmt.Errorf("token response: no access_token")
	}
	return out.AccessToken, nil
}

// linear is a backoff whose nth delay is n*step.
func linear(step time.Duration) retry.Backoff {
	attempt := 0
	return retry.BackoffFunc(func() (time.Duration, bool) {
		attempt++
		return time.Duration(attempt) * step, false
	})
}
