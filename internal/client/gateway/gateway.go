// Package gateway performs the authentication calls against the remote
// holdings service: login, refresh and logout. It never retries; renewal
// and retry policy belong to the session manager and the request guard.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/famwealth/internal/client/models"
	"github.com/dmitrijs2005/famwealth/internal/common"
	"github.com/dmitrijs2005/famwealth/internal/logging"
)

const maxBodyBytes = 1 << 20

// LoginResult is a successful login, already normalized: the principal is
// always complete regardless of which response shape the server used.
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	Principal    models.Principal
}

// HTTPGateway talks JSON over HTTP. Its http.Client must NOT be wrapped by
// the request guard, otherwise a rejected refresh would recurse into itself.
type HTTPGateway struct {
	baseURL    string
	httpClient *http.Client
	log        logging.Logger
}

func New(baseURL string, httpClient *http.Client, log logging.Logger) *HTTPGateway {
	return &HTTPGateway{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		log:        log.With("component", "gateway"),
	}
}

// Login exchanges email and password for a credential pair.
func (g *HTTPGateway) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	resp, err := g.post(ctx, "/auth/login", "", map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case isSuccess(resp.StatusCode):
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: %s", common.ErrInvalidCredentials, serverMessage(resp))
	default:
		return nil, statusError("login", resp)
	}

	var lr loginResponse
	if err := decode(resp, &lr); err != nil {
		return nil, err
	}
	if lr.AccessToken == "" || lr.RefreshToken == "" {
		return nil, fmt.Errorf("%w: login response without tokens", common.ErrMalformedResponse)
	}

	p, err := lr.principal(email)
	if err != nil {
		return nil, err
	}

	return &LoginResult{AccessToken: lr.AccessToken, RefreshToken: lr.RefreshToken, Principal: p}, nil
}

// Refresh mints a new access credential. The call is authorized with the
// refresh credential itself.
func (g *HTTPGateway) Refresh(ctx context.Context, refreshToken string) (string, error) {
	resp, err := g.post(ctx, "/auth/refresh", refreshToken, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch {
	case isSuccess(resp.StatusCode):
	case resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusForbidden,
		resp.StatusCode == http.StatusUnprocessableEntity:
		return "", fmt.Errorf("%w: %s", common.ErrRefreshRejected, serverMessage(resp))
	default:
		return "", statusError("refresh", resp)
	}

	var rr struct {
		AccessToken string `json:"access_token"`
	}
	if err := decode(resp, &rr); err != nil {
		return "", err
	}
	if rr.AccessToken == "" {
		return "", fmt.Errorf("%w: refresh response without access_token", common.ErrMalformedResponse)
	}
	return rr.AccessToken, nil
}

// Logout asks the server to invalidate accessToken. Callers treat any error
// as non-fatal.
func (g *HTTPGateway) Logout(ctx context.Context, accessToken string) error {
	resp, err := g.post(ctx, "/auth/logout", accessToken, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))

	if !isSuccess(resp.StatusCode) {
		return statusError("logout", resp)
	}
	return nil
}

func (g *HTTPGateway) post(ctx context.Context, path, bearer string, body any) (*http.Response, error) {
	var rdr io.Reader = http.NoBody
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal %s body: %w", path, err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, rdr)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerValue(bearer))
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		g.log.Debug(ctx, "auth call failed", "path", path, "error", err)
		return nil, fmt.Errorf("%w: POST %s: %w", common.ErrNetwork, path, err)
	}
	return resp, nil
}

func isSuccess(code int) bool {
	return code >= 200 && code < 300
}

func decode(resp *http.Response, v any) error {
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(v); err != nil {
		return fmt.Errorf("%w: %w", common.ErrMalformedResponse, err)
	}
	return nil
}

func statusError(op string, resp *http.Response) error {
	return fmt.Errorf("%w: %s returned status %d: %s", common.ErrNetwork, op, resp.StatusCode, serverMessage(resp))
}

// serverMessage extracts the human-readable reason from an error body. The
// service uses "error", "message" or "msg" depending on which layer answered.
func serverMessage(resp *http.Response) string {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
		Msg     string `json:"msg"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&body); err != nil {
		return http.StatusText(resp.StatusCode)
	}
	for _, m := range []string{body.Error, body.Message, body.Msg} {
		if m != "" {
			return m
		}
	}
	return http.StatusText(resp.StatusCode)
}
