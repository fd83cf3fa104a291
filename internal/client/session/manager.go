package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dmitrijs2005/famwealth/internal/client/gateway"
	"github.com/dmitrijs2005/famwealth/internal/client/models"
	"github.com/dmitrijs2005/famwealth/internal/common"
	"github.com/dmitrijs2005/famwealth/internal/logging"
)

const defaultRefreshTimeout = 10 * time.Second

// Gateway is the subset of the auth gateway the manager relies on.
type Gateway interface {
	Login(ctx context.Context, email, password string) (*gateway.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Logout(ctx context.Context, accessToken string) error
}

// CredentialStore persists the session across restarts.
type CredentialStore interface {
	Load(ctx context.Context) (*models.Session, error)
	Save(ctx context.Context, sess *models.Session) error
	Clear(ctx context.Context) error
}

type Option func(*Manager)

// WithRefreshTimeout bounds a single shared refresh call.
func WithRefreshTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.refreshTimeout = d
		}
	}
}

// Manager is the single source of truth for who is logged in.
type Manager struct {
	gw             Gateway
	store          CredentialStore
	log            logging.Logger
	refreshTimeout time.Duration

	mu      sync.Mutex
	session *models.Session
	epoch   uint64
	phase   Phase
	pending []Event

	flights singleflight.Group

	notifyMu sync.Mutex
	subMu    sync.Mutex
	subs     []subscriber
	nextSub  uint64
}

func NewManager(gw Gateway, store CredentialStore, log logging.Logger, opts ...Option) *Manager {
	m := &Manager{
		gw:             gw,
		store:          store,
		log:            log.With("component", "session"),
		refreshTimeout: defaultRefreshTimeout,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Restore loads a persisted session. It is meant to run once at startup,
// before any request is issued. An empty or corrupt store is not an error.
func (m *Manager) Restore(ctx context.Context) error {
	sess, err := m.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("restore session: %w", err)
	}
	if sess == nil {
		m.log.Debug(ctx, "no persisted session")
		return nil
	}

	m.mu.Lock()
	m.session = sess
	m.epoch++
	m.setPhaseLocked(ctx, PhaseAuthorized)
	m.enqueueLocked(EventRestored, nil)
	m.mu.Unlock()

	m.log.Info(ctx, "session restored", "user_id", sess.Principal.ID)
	m.flush()
	return nil
}

// Login authenticates against the gateway and installs the new session.
// On failure the previous state, in memory and on disk, is left untouched.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	res, err := m.gw.Login(ctx, email, password)
	if err != nil {
		m.log.Info(ctx, "login failed", "error", err)
		return err
	}

	principal := res.Principal
	sess := &models.Session{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		Principal:    &principal,
	}

	m.mu.Lock()
	if err := m.store.Save(ctx, sess); err != nil {
		m.mu.Unlock()
		return fmt.Errorf("persist session: %w", err)
	}
	m.session = sess
	m.epoch++
	m.setPhaseLocked(ctx, PhaseAuthorized)
	m.enqueueLocked(EventLoggedIn, nil)
	m.mu.Unlock()

	m.log.Info(ctx, "logged in", "user_id", principal.ID)
	m.flush()
	return nil
}

// Logout tells the server to revoke the session, then destroys it locally
// whatever the server said. Clearing the store is attempted twice. Only a
// failure to clear it is returned; the in-memory session is gone even then,
// but the next Restore would bring the persisted one back.
func (m *Manager) Logout(ctx context.Context) error {
	if access := m.AccessCredential(); access != "" {
		if err := m.gw.Logout(ctx, access); err != nil {
			m.log.Warn(ctx, "server logout failed, clearing local session anyway", "error", err)
		}
	}

	m.mu.Lock()
	m.session = nil
	m.epoch++
	m.setPhaseLocked(ctx, PhaseAuthorized)
	clearCtx := context.WithoutCancel(ctx)
	err := m.store.Clear(clearCtx)
	if err != nil {
		m.log.Warn(ctx, "clearing credential store failed, retrying", "error", err)
		err = m.store.Clear(clearCtx)
	}
	m.enqueueLocked(EventLoggedOut, nil)
	m.mu.Unlock()

	if err != nil {
		m.log.Error(ctx, "failed to clear credential store", "error", err)
		err = fmt.Errorf("clear credentials: %w", err)
	}
	m.log.Info(ctx, "logged out")
	m.flush()
	return err
}

// IsAuthenticated reports whether a session is installed.
func (m *Manager) IsAuthenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session.IsAuthenticated()
}

// CurrentPrincipal returns a copy of the logged-in principal.
func (m *Manager) CurrentPrincipal() (models.Principal, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.session.IsAuthenticated() {
		return models.Principal{}, false
	}
	return *m.session.Principal, true
}

// Snapshot returns a deep copy of the session, nil when unauthenticated.
func (m *Manager) Snapshot() *models.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session.Clone()
}

// AccessCredential returns the access credential to attach to outgoing
// requests, or "" without a session.
func (m *Manager) AccessCredential() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return ""
	}
	return m.session.AccessToken
}

func (m *Manager) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// Renew returns an access credential to retry a request that was rejected
// while carrying stale. If stale was already replaced, the current
// credential is returned straight away. Otherwise a refresh is performed,
// shared with every concurrent caller for the same session.
//
// When renewal is impossible the session is torn down and the error is
// returned; the caller should surface the original failure.
func (m *Manager) Renew(ctx context.Context, stale string) (string, error) {
	m.mu.Lock()
	sess, epoch := m.session, m.epoch
	if sess == nil || sess.RefreshToken == "" {
		m.mu.Unlock()
		// With no session the teardown is a no-op: whatever removed it has
		// already cleared the store and published, and concurrent failures
		// must not expire the same session twice. A session that lacks a
		// refresh credential is torn down here.
		m.teardown(ctx, epoch, common.ErrNoSession)
		return "", common.ErrNoSession
	}
	if sess.AccessToken != stale {
		access := sess.AccessToken
		m.mu.Unlock()
		m.log.Debug(ctx, "credential already renewed, reusing it")
		return access, nil
	}
	m.setPhaseLocked(ctx, PhaseAwaitingRefresh)
	refreshToken := sess.RefreshToken
	// joined under mu: the flight for this epoch cannot settle and be
	// forgotten between the staleness check above and the join
	ch := m.flights.DoChan(strconv.FormatUint(epoch, 10), func() (any, error) {
		return m.refresh(ctx, epoch, refreshToken)
	})
	m.mu.Unlock()

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// refresh runs once per epoch on behalf of every waiter. It is detached from
// the cancellation of whichever caller happened to start it.
func (m *Manager) refresh(ctx context.Context, epoch uint64, refreshToken string) (string, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.refreshTimeout)
	defer cancel()

	access, err := m.gw.Refresh(ctx, refreshToken)
	if err != nil {
		m.log.Warn(ctx, "refresh failed", "error", err)
		if m.teardown(ctx, epoch, err) {
			return "", err
		}
		return "", errors.Join(err, common.ErrSessionChanged)
	}

	m.mu.Lock()
	if m.session == nil || m.epoch != epoch {
		m.mu.Unlock()
		m.log.Info(ctx, "discarding refresh result for a replaced session")
		return "", common.ErrSessionChanged
	}
	next := m.session.Clone()
	next.AccessToken = access
	if err := m.store.Save(ctx, next); err != nil {
		// memory stays authoritative; a restart will simply refresh again
		m.log.Error(ctx, "failed to persist renewed credential", "error", err)
	}
	m.session = next
	m.setPhaseLocked(ctx, PhaseAuthorized)
	// settled: a failure with the new credential starts its own refresh
	// instead of joining this one
	m.flights.Forget(strconv.FormatUint(epoch, 10))
	m.enqueueLocked(EventRefreshed, nil)
	m.mu.Unlock()

	if exp, ok := next.AccessExpiry(); ok {
		m.log.Info(ctx, "access credential renewed", "user_id", next.Principal.ID, "expires_at", exp)
	} else {
		m.log.Info(ctx, "access credential renewed", "user_id", next.Principal.ID)
	}
	m.flush()
	return access, nil
}

// teardown destroys the session of the given epoch and publishes
// EventExpired. It is a no-op when that session is already gone, which is
// what makes the expiry event fire once. It reports whether it acted.
func (m *Manager) teardown(ctx context.Context, epoch uint64, cause error) bool {
	m.mu.Lock()
	if m.session == nil || m.epoch != epoch {
		m.mu.Unlock()
		return false
	}
	userID := m.session.Principal.ID
	m.session = nil
	m.epoch++
	m.setPhaseLocked(ctx, PhaseRejected)
	err := m.store.Clear(context.WithoutCancel(ctx))
	m.enqueueLocked(EventExpired, cause)
	m.mu.Unlock()

	if err != nil {
		m.log.Error(ctx, "failed to clear credential store", "error", err)
	}
	m.log.Warn(ctx, "session expired", "user_id", userID, "cause", cause)
	m.flush()
	return true
}
