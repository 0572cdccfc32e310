// Package identity removes auxiliary login accounts from the external
// identity provider when their firm is purged.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shutterdesk/shutterdesk/internal/errs"
	"github.com/shutterdesk/shutterdesk/internal/googleauth"
)

const defaultBaseURL = "https://identitytoolkit.googleapis.com/v1"

// Options configures a Client.
type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	Token      googleauth.TokenProvider
}

// Client talks to the identity provider's admin surface.
type Client struct {
	baseURL string
	http    *http.Client
	token   googleauth.TokenProvider
}

// NewClient constructs a Client.
func NewClient(opts Options) *Client {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = defaultBaseURL
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: base, http: hc, token: opts.Token}
}

// DeleteUser removes one account. An unknown account is a no-op so purge
// stays idempotent.
func (c *Client) DeleteUser(ctx context.Context, uid string) error {
	payload, err := json.Marshal(map[string]string{"localId": uid})
	if err != nil {
		return err
	}
	token, err := c.token(ctx)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/accounts:delete", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &errs.APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
		if errors.Is(apiErr, errs.ErrNotFound) {
			return nil
		}
		return apiErr
	}
	return nil
}
