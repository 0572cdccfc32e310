// Package calendar creates, shares, and deletes per-firm calendar resources.
package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shutterdesk/shutterdesk/internal/errs"
	"github.com/shutterdesk/shutterdesk/internal/googleauth"
)

const defaultBaseURL = "https://www.googleapis.com/calendar/v3"

// Options configures a Client. Zero values get production defaults.
type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	Token      googleauth.TokenProvider
}

// Client talks to the calendar API.
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

// Create makes a new calendar resource and returns its id.
func (c *Client) Create(ctx context.Context, summary, description, timeZone string) (string, error) {
	body := map[string]string{
		"summary":     summary,
		"description": description,
		"timeZone":    timeZone,
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := c.post(ctx, "/calendars", body, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", fmt.Errorf("calendar create: no id in response")
	}
	return out.ID, nil
}

// Share grants writer access to the given account.
func (c *Client) Share(ctx context.Context, calendarID, email string) error {
	body := map[string]any{
		"role": "writer",
		"scope": map[string]string{
			"type":  "user",
			"value": email,
		},
	}
	return c.post(ctx, "/calendars/"+calendarID+"/acl", body, nil)
}

// Delete removes a calendar. An already-deleted calendar is a no-op.
func (c *Client) Delete(ctx context.Context, calendarID string) error {
	err := c.do(ctx, http.MethodDelete, "/calendars/"+calendarID, nil, nil)
	if errors.Is(err, errs.ErrNotFound) {
		return nil
	}
	return err
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, path, payload, out)
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte, out any) error {
	token, err := c.token(ctx)
	if err != nil {
		return err
	}
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
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
		return &errs.APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	if out != nil {
		return json.Unmarshal(raw, out)
	}
	return nil
}
