// Package guard wraps every business HTTP call: it attaches the current
// access credential and transparently renews it once when the service
// rejects a request.
package guard

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/famwealth/internal/common"
	"github.com/dmitrijs2005/famwealth/internal/logging"
)

// Authority supplies and renews access credentials. *session.Manager
// implements it.
type Authority interface {
	AccessCredential() string
	Renew(ctx context.Context, stale string) (string, error)
}

type retriedKey struct{}

// markRetried returns ctx flagged so that the guard never refreshes for it
// again.
func markRetried(ctx context.Context) context.Context {
	return context.WithValue(ctx, retriedKey{}, true)
}

func alreadyRetried(ctx context.Context) bool {
	v, _ := ctx.Value(retriedKey{}).(bool)
	return v
}

type Option func(*Transport)

// WithAuthFailure replaces the predicate that classifies a response as an
// authorization failure. The default matches 401 only.
func WithAuthFailure(fn func(*http.Response) bool) Option {
	return func(t *Transport) {
		if fn != nil {
			t.isAuthFailure = fn
		}
	}
}

// Transport is an http.RoundTripper implementing the 401, renew, retry once
// protocol.
type Transport struct {
	base          http.RoundTripper
	auth          Authority
	log           logging.Logger
	isAuthFailure func(*http.Response) bool
}

// New wraps base, http.DefaultTransport when nil.
func New(base http.RoundTripper, auth Authority, log logging.Logger, opts ...Option) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	t := &Transport{
		base:          base,
		auth:          auth,
		log:           log.With("component", "guard"),
		isAuthFailure: isUnauthorized,
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Client returns an http.Client routed through t.
func (t *Transport) Client(timeout time.Duration) *http.Client {
	return &http.Client{Transport: t, Timeout: timeout}
}

func isUnauthorized(resp *http.Response) bool {
	return resp.StatusCode == http.StatusUnauthorized
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	token := t.auth.AccessCredential()

	first := authorize(req.Clone(ctx), token)
	log := t.log.With(
		"request_id", first.Header.Get(common.RequestIDHeaderName),
		"method", req.Method,
		"path", req.URL.Path,
	)

	resp, err := t.base.RoundTrip(first)
	if err != nil || !t.isAuthFailure(resp) {
		return resp, err
	}

	if alreadyRetried(ctx) {
		log.Debug(ctx, "authorization failed on a retried request")
		return resp, nil
	}

	fresh, err := t.auth.Renew(ctx, token)
	if err != nil {
		log.Info(ctx, "credential renewal failed", "error", err)
		return resp, nil
	}

	retry := first.Clone(markRetried(ctx))
	if req.Body != nil && req.Body != http.NoBody {
		if req.GetBody == nil {
			log.Warn(ctx, "request body cannot be replayed, not retrying")
			return resp, nil
		}
		body, err := req.GetBody()
		if err != nil {
			log.Warn(ctx, "failed to rewind request body, not retrying", "error", err)
			return resp, nil
		}
		retry.Body = body
	}
	retry.Header.Set(common.AuthorizationHeaderName, common.BearerValue(fresh))

	drain(resp)
	log.Debug(ctx, "retrying with renewed credential")
	return t.base.RoundTrip(retry)
}

// authorize sets the credential and request id on a cloned request. Without
// a session the request goes out as the caller built it.
func authorize(req *http.Request, token string) *http.Request {
	if token != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerValue(token))
	}
	if req.Header.Get(common.RequestIDHeaderName) == "" {
		req.Header.Set(common.RequestIDHeaderName, uuid.NewString())
	}
	return req
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}
