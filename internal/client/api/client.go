// Package api is the business client of the holdings service. Every call
// goes through the guarded http.Client, so credentials and renewal are
// handled below this layer.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/famwealth/internal/common"
)

// Client calls the holdings service API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client. httpClient is expected to carry the request guard.
func New(baseURL string, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// ErrorResponse is the error body returned by the service.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Msg     string `json:"msg,omitempty"`
}

func (e ErrorResponse) text() string {
	switch {
	case e.Error != "":
		return e.Error
	case e.Message != "":
		return e.Message
	default:
		return e.Msg
	}
}

// Profile calls GET /auth/me.
func (c *Client) Profile(ctx context.Context) (*Profile, error) {
	var p Profile
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ChangePassword calls PUT /auth/password.
func (c *Client) ChangePassword(ctx context.Context, current, next string) error {
	body := map[string]string{"current_password": current, "new_password": next}
	return c.do(ctx, http.MethodPut, "/auth/password", body, nil)
}

// Dashboard calls GET /dashboard for one family.
func (c *Client) Dashboard(ctx context.Context, familyID int64) (*Dashboard, error) {
	q := url.Values{"family_id": []string{strconv.FormatInt(familyID, 10)}}
	var d Dashboard
	if err := c.do(ctx, http.MethodGet, "/dashboard?"+q.Encode(), nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		// bytes.Reader lets the guard replay the body on retry
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.handleRequestError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return handleErrorResponse(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", common.ErrMalformedResponse, err)
	}
	return nil
}

func (c *Client) handleRequestError(ctx context.Context, err error) error {
	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		return fmt.Errorf("request canceled: %w", ctx.Err())
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("request timed out: %w", ctx.Err())
	default:
		return fmt.Errorf("%w: cannot reach %s: %v", common.ErrNetwork, c.baseURL, err)
	}
}

// handleErrorResponse maps a non-2xx status. A 401 reaching this layer has
// already survived the guard's renewal, so the session is gone.
func handleErrorResponse(resp *http.Response) error {
	var errResp ErrorResponse
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&errResp)
	msg := errResp.text()
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: %s", common.ErrUnauthorized, msg)
	}
	return &StatusError{Code: resp.StatusCode, Message: msg}
}

// StatusError is any other non-2xx answer.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("service error %d: %s", e.Code, e.Message)
}
