package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/famwealth/internal/client/gateway"
	"github.com/dmitrijs2005/famwealth/internal/client/models"
	"github.com/dmitrijs2005/famwealth/internal/common"
	"github.com/dmitrijs2005/famwealth/internal/logging"
)

type fakeGateway struct {
	loginFn   func(ctx context.Context, email, password string) (*gateway.LoginResult, error)
	refreshFn func(ctx context.Context, refreshToken string) (string, error)
	logoutFn  func(ctx context.Context, accessToken string) error

	refreshCalls atomic.Int32
	logoutCalls  atomic.Int32
}

func (f *fakeGateway) Login(ctx context.Context, email, password string) (*gateway.LoginResult, error) {
	if f.loginFn == nil {
		return &gateway.LoginResult{
			AccessToken:  "AT1",
			RefreshToken: "RT1",
			Principal:    models.Principal{ID: 1, Email: email},
		}, nil
	}
	return f.loginFn(ctx, email, password)
}

func (f *fakeGateway) Refresh(ctx context.Context, refreshToken string) (string, error) {
	f.refreshCalls.Add(1)
	if f.refreshFn == nil {
		return "AT2", nil
	}
	return f.refreshFn(ctx, refreshToken)
}

func (f *fakeGateway) Logout(ctx context.Context, accessToken string) error {
	f.logoutCalls.Add(1)
	if f.logoutFn == nil {
		return nil
	}
	return f.logoutFn(ctx, accessToken)
}

type memStore struct {
	mu       sync.Mutex
	sess     *models.Session
	loadErr  error
	saveErr  error
	clearErr error
	// failClears limits clearErr to the first n calls; zero means every call
	failClears int
	clears     int
}

func (s *memStore) Load(context.Context) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sess.Clone(), s.loadErr
}

func (s *memStore) Save(_ context.Context, sess *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.sess = sess.Clone()
	return nil
}

func (s *memStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clears++
	if s.clearErr != nil && (s.failClears == 0 || s.clears <= s.failClears) {
		return s.clearErr
	}
	s.sess = nil
	return nil
}

func (s *memStore) current() *models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sess.Clone()
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) record(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) count(kind EventKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

func (r *recorder) kinds() []EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventKind, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Kind)
	}
	return out
}

func sample() *models.Session {
	return &models.Session{
		AccessToken:  "AT1",
		RefreshToken: "RT1",
		Principal:    &models.Principal{ID: 1, Email: "a@b.com"},
	}
}

func newManager(t *testing.T, gw *fakeGateway, store *memStore) (*Manager, *recorder) {
	t.Helper()
	m := NewManager(gw, store, logging.Nop(), WithRefreshTimeout(time.Second))
	rec := &recorder{}
	t.Cleanup(m.Subscribe(rec.record))
	return m, rec
}

// loggedIn returns a manager whose session was restored from the store.
func loggedIn(t *testing.T, gw *fakeGateway) (*Manager, *memStore, *recorder) {
	t.Helper()
	store := &memStore{sess: sample()}
	m, rec := newManager(t, gw, store)
	require.NoError(t, m.Restore(context.Background()))
	return m, store, rec
}

func TestLogin_Success_PersistsAndPublishes(t *testing.T) {
	store := &memStore{}
	m, rec := newManager(t, &fakeGateway{}, store)

	require.NoError(t, m.Login(context.Background(), "a@b.com", "pw"))

	assert.True(t, m.IsAuthenticated())
	p, ok := m.CurrentPrincipal()
	require.True(t, ok)
	assert.Equal(t, models.Principal{ID: 1, Email: "a@b.com"}, p)
	assert.Empty(t, cmp.Diff(sample(), store.current()))
	assert.Equal(t, []EventKind{EventLoggedIn}, rec.kinds())
	assert.Equal(t, PhaseAuthorized, m.Phase())
}

func TestLogin_Failure_LeavesStateUntouched(t *testing.T) {
	gw := &fakeGateway{}
	m, store, rec := loggedIn(t, gw)
	gw.loginFn = func(context.Context, string, string) (*gateway.LoginResult, error) {
		return nil, common.ErrInvalidCredentials
	}

	err := m.Login(context.Background(), "x@y.com", "bad")
	require.ErrorIs(t, err, common.ErrInvalidCredentials)

	assert.Empty(t, cmp.Diff(sample(), m.Snapshot()))
	assert.Empty(t, cmp.Diff(sample(), store.current()))
	assert.Equal(t, []EventKind{EventRestored}, rec.kinds())
}

func TestLogin_PersistFailure_KeepsPreviousSession(t *testing.T) {
	store := &memStore{saveErr: errors.New("disk full")}
	m, rec := newManager(t, &fakeGateway{}, store)

	err := m.Login(context.Background(), "a@b.com", "pw")
	require.Error(t, err)
	assert.False(t, m.IsAuthenticated())
	assert.Empty(t, rec.kinds())
}

func TestRestore(t *testing.T) {
	t.Run("valid session", func(t *testing.T) {
		m, _, rec := loggedIn(t, &fakeGateway{})
		assert.True(t, m.IsAuthenticated())
		assert.Equal(t, "AT1", m.AccessCredential())
		assert.Equal(t, []EventKind{EventRestored}, rec.kinds())
	})

	t.Run("empty store", func(t *testing.T) {
		m, rec := newManager(t, &fakeGateway{}, &memStore{})
		require.NoError(t, m.Restore(context.Background()))
		assert.False(t, m.IsAuthenticated())
		assert.Equal(t, "", m.AccessCredential())
		assert.Empty(t, rec.kinds())
	})

	t.Run("backend failure", func(t *testing.T) {
		m, _ := newManager(t, &fakeGateway{}, &memStore{loadErr: errors.New("io")})
		require.Error(t, m.Restore(context.Background()))
		assert.False(t, m.IsAuthenticated())
	})
}

func TestLogout_ClearsEvenWhenServerFails(t *testing.T) {
	gw := &fakeGateway{logoutFn: func(_ context.Context, at string) error {
		assert.Equal(t, "AT1", at)
		return common.ErrNetwork
	}}
	m, store, rec := loggedIn(t, gw)

	require.NoError(t, m.Logout(context.Background()))

	assert.False(t, m.IsAuthenticated())
	assert.Nil(t, m.Snapshot())
	assert.Nil(t, store.current())
	assert.EqualValues(t, 1, gw.logoutCalls.Load())
	assert.Equal(t, []EventKind{EventRestored, EventLoggedOut}, rec.kinds())
}

func TestLogout_WithoutSession_SkipsServer(t *testing.T) {
	gw := &fakeGateway{}
	m, rec := newManager(t, gw, &memStore{})

	require.NoError(t, m.Logout(context.Background()))
	assert.Zero(t, gw.logoutCalls.Load())
	assert.Equal(t, []EventKind{EventLoggedOut}, rec.kinds())
}

func TestLogout_StoreFailureIsReturned(t *testing.T) {
	m, store, _ := loggedIn(t, &fakeGateway{})
	store.clearErr = errors.New("locked")

	require.Error(t, m.Logout(context.Background()))
	assert.False(t, m.IsAuthenticated())
	assert.Equal(t, 2, store.clears)
}

func TestLogout_RetriesStoreClearOnce(t *testing.T) {
	m, store, rec := loggedIn(t, &fakeGateway{})
	store.mu.Lock()
	store.clearErr = errors.New("locked")
	store.failClears = 1
	store.mu.Unlock()

	require.NoError(t, m.Logout(context.Background()))
	assert.Nil(t, store.current())
	assert.Equal(t, 2, store.clears)
	assert.Equal(t, []EventKind{EventRestored, EventLoggedOut}, rec.kinds())

	// nothing comes back on the next start
	restarted, _ := newManager(t, &fakeGateway{}, store)
	require.NoError(t, restarted.Restore(context.Background()))
	assert.False(t, restarted.IsAuthenticated())
}

func TestRenew_RefreshesAndPersists(t *testing.T) {
	gw := &fakeGateway{refreshFn: func(_ context.Context, rt string) (string, error) {
		assert.Equal(t, "RT1", rt)
		return "AT2", nil
	}}
	m, store, rec := loggedIn(t, gw)

	got, err := m.Renew(context.Background(), "AT1")
	require.NoError(t, err)
	assert.Equal(t, "AT2", got)
	assert.Equal(t, "AT2", m.AccessCredential())
	assert.Equal(t, "AT2", store.current().AccessToken)
	assert.Equal(t, "RT1", store.current().RefreshToken)
	assert.Equal(t, PhaseAuthorized, m.Phase())
	assert.Equal(t, []EventKind{EventRestored, EventRefreshed}, rec.kinds())
}

func TestRenew_FailureWithRenewedCredential_StartsNewRefresh(t *testing.T) {
	gw := &fakeGateway{}
	gw.refreshFn = func(context.Context, string) (string, error) {
		if gw.refreshCalls.Load() == 1 {
			return "AT2", nil
		}
		return "AT3", nil
	}
	m, _, rec := loggedIn(t, gw)

	// hold delivery of the first renewal while its credential is rejected
	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	m.Subscribe(func(ev Event) {
		if ev.Kind == EventRefreshed {
			once.Do(func() {
				close(entered)
				<-release
			})
		}
	})

	first := make(chan string, 1)
	go func() {
		got, err := m.Renew(context.Background(), "AT1")
		assert.NoError(t, err)
		first <- got
	}()
	<-entered
	require.Equal(t, "AT2", m.AccessCredential())

	second := make(chan string, 1)
	go func() {
		got, err := m.Renew(context.Background(), "AT2")
		assert.NoError(t, err)
		second <- got
	}()

	require.Eventually(t, func() bool { return gw.refreshCalls.Load() == 2 }, time.Second, 5*time.Millisecond)
	close(release)

	assert.Equal(t, "AT2", <-first)
	assert.Equal(t, "AT3", <-second)
	assert.Equal(t, "AT3", m.AccessCredential())
	assert.Equal(t, 2, rec.count(EventRefreshed))
}

func TestRenew_AlreadyReplacedCredential_NoRefresh(t *testing.T) {
	gw := &fakeGateway{}
	m, _, _ := loggedIn(t, gw)

	got, err := m.Renew(context.Background(), "AT0")
	require.NoError(t, err)
	assert.Equal(t, "AT1", got)
	assert.Zero(t, gw.refreshCalls.Load())
}

func TestRenew_ConcurrentCallers_ShareOneRefresh(t *testing.T) {
	release := make(chan struct{})
	gw := &fakeGateway{refreshFn: func(context.Context, string) (string, error) {
		<-release
		return "AT2", nil
	}}
	m, _, rec := loggedIn(t, gw)

	const n = 20
	var wg sync.WaitGroup
	results := make([]string, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = m.Renew(context.Background(), "AT1")
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "AT2", results[i])
	}
	assert.EqualValues(t, 1, gw.refreshCalls.Load())
	assert.Equal(t, 1, rec.count(EventRefreshed))
}

func TestRenew_RejectedRefresh_ExpiresExactlyOnce(t *testing.T) {
	release := make(chan struct{})
	gw := &fakeGateway{refreshFn: func(context.Context, string) (string, error) {
		<-release
		return "", common.ErrRefreshRejected
	}}
	m, store, rec := loggedIn(t, gw)

	const n = 10
	var wg sync.WaitGroup
	var failed atomic.Int32
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.Renew(context.Background(), "AT1"); err != nil {
				failed.Add(1)
			}
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, n, failed.Load())
	assert.EqualValues(t, 1, gw.refreshCalls.Load())
	assert.Equal(t, 1, rec.count(EventExpired))
	assert.False(t, m.IsAuthenticated())
	assert.Nil(t, store.current())
	assert.Equal(t, PhaseRejected, m.Phase())
}

func TestRenew_ExpiredEventCarriesCause(t *testing.T) {
	gw := &fakeGateway{refreshFn: func(context.Context, string) (string, error) {
		return "", common.ErrRefreshRejected
	}}
	m, _, rec := loggedIn(t, gw)

	_, err := m.Renew(context.Background(), "AT1")
	require.ErrorIs(t, err, common.ErrRefreshRejected)

	rec.mu.Lock()
	last := rec.events[len(rec.events)-1]
	rec.mu.Unlock()
	assert.Equal(t, EventExpired, last.Kind)
	assert.Nil(t, last.Session)
	assert.ErrorIs(t, last.Err, common.ErrRefreshRejected)
}

func TestRenew_NetworkFailure_TearsDown(t *testing.T) {
	gw := &fakeGateway{refreshFn: func(context.Context, string) (string, error) {
		return "", common.ErrNetwork
	}}
	m, _, rec := loggedIn(t, gw)

	_, err := m.Renew(context.Background(), "AT1")
	require.ErrorIs(t, err, common.ErrNetwork)
	assert.False(t, m.IsAuthenticated())
	assert.Equal(t, 1, rec.count(EventExpired))
}

func TestRenew_NoSession(t *testing.T) {
	gw := &fakeGateway{}
	m, rec := newManager(t, gw, &memStore{})

	_, err := m.Renew(context.Background(), "")
	require.ErrorIs(t, err, common.ErrNoSession)
	assert.Zero(t, gw.refreshCalls.Load())
	assert.Zero(t, rec.count(EventExpired))
}

func TestRenew_LogoutDuringRefresh_DiscardsResult(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	gw := &fakeGateway{refreshFn: func(context.Context, string) (string, error) {
		close(started)
		<-release
		return "AT2", nil
	}}
	m, store, rec := loggedIn(t, gw)

	done := make(chan error, 1)
	go func() {
		_, err := m.Renew(context.Background(), "AT1")
		done <- err
	}()

	<-started
	require.NoError(t, m.Logout(context.Background()))
	close(release)

	require.ErrorIs(t, <-done, common.ErrSessionChanged)
	assert.False(t, m.IsAuthenticated())
	assert.Nil(t, store.current())
	assert.Zero(t, rec.count(EventRefreshed))
	assert.Zero(t, rec.count(EventExpired))
}

func TestRenew_ReloginDuringRefresh_KeepsNewSession(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	gw := &fakeGateway{refreshFn: func(context.Context, string) (string, error) {
		close(started)
		<-release
		return "", common.ErrRefreshRejected
	}}
	m, store, rec := loggedIn(t, gw)

	done := make(chan error, 1)
	go func() {
		_, err := m.Renew(context.Background(), "AT1")
		done <- err
	}()

	<-started
	gw.loginFn = func(_ context.Context, email, _ string) (*gateway.LoginResult, error) {
		return &gateway.LoginResult{AccessToken: "NEW", RefreshToken: "RT9", Principal: models.Principal{ID: 9, Email: email}}, nil
	}
	require.NoError(t, m.Login(context.Background(), "c@d.com", "pw"))
	close(release)

	err := <-done
	require.ErrorIs(t, err, common.ErrRefreshRejected)
	require.ErrorIs(t, err, common.ErrSessionChanged)
	assert.Equal(t, "NEW", m.AccessCredential())
	assert.Equal(t, "NEW", store.current().AccessToken)
	assert.Zero(t, rec.count(EventExpired))
}

func TestRenew_WaiterCancellation_DoesNotAbortRefresh(t *testing.T) {
	release := make(chan struct{})
	finished := make(chan struct{})
	gw := &fakeGateway{refreshFn: func(ctx context.Context, _ string) (string, error) {
		defer close(finished)
		<-release
		return "AT2", ctx.Err()
	}}
	m, _, _ := loggedIn(t, gw)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := m.Renew(ctx, "AT1")
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	close(release)
	<-finished
	require.Eventually(t, func() bool { return m.AccessCredential() == "AT2" }, time.Second, 5*time.Millisecond)
}

func TestSubscribe_Unsubscribe(t *testing.T) {
	m := NewManager(&fakeGateway{}, &memStore{}, logging.Nop())
	var calls atomic.Int32
	unsubscribe := m.Subscribe(func(Event) { calls.Add(1) })

	require.NoError(t, m.Login(context.Background(), "a@b.com", "pw"))
	unsubscribe()
	unsubscribe()
	require.NoError(t, m.Logout(context.Background()))

	assert.EqualValues(t, 1, calls.Load())
}

func TestSubscribe_EventCarriesSettledSnapshot(t *testing.T) {
	m := NewManager(&fakeGateway{}, &memStore{}, logging.Nop())
	var got *models.Session
	m.Subscribe(func(ev Event) {
		if ev.Kind == EventLoggedIn {
			got = ev.Session
		}
	})

	require.NoError(t, m.Login(context.Background(), "a@b.com", "pw"))
	require.NotNil(t, got)
	assert.Empty(t, cmp.Diff(sample(), got))

	got.AccessToken = "mutated"
	assert.Equal(t, "AT1", m.AccessCredential())
}

// holdLogger blocks the first log call with message msg until release is
// closed.
type holdLogger struct {
	msg     string
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (l *holdLogger) hold(msg string) {
	if msg == l.msg {
		l.once.Do(func() {
			close(l.entered)
			<-l.release
		})
	}
}

func (l *holdLogger) Debug(_ context.Context, msg string, _ ...any) { l.hold(msg) }
func (l *holdLogger) Info(_ context.Context, msg string, _ ...any)  { l.hold(msg) }
func (l *holdLogger) Warn(_ context.Context, msg string, _ ...any)  { l.hold(msg) }
func (l *holdLogger) Error(_ context.Context, msg string, _ ...any) { l.hold(msg) }
func (l *holdLogger) With(...any) logging.Logger                    { return l }

func TestSubscribe_EventsFollowChangeOrder(t *testing.T) {
	log := &holdLogger{msg: "session expired", entered: make(chan struct{}), release: make(chan struct{})}
	gw := &fakeGateway{refreshFn: func(context.Context, string) (string, error) {
		return "", common.ErrRefreshRejected
	}}
	m := NewManager(gw, &memStore{sess: sample()}, log)
	rec := &recorder{}
	m.Subscribe(rec.record)
	require.NoError(t, m.Restore(context.Background()))

	done := make(chan error, 1)
	go func() {
		_, err := m.Renew(context.Background(), "AT1")
		done <- err
	}()

	// teardown has changed the state but not delivered yet; a login lands
	<-log.entered
	require.NoError(t, m.Login(context.Background(), "c@d.com", "pw"))
	close(log.release)
	require.ErrorIs(t, <-done, common.ErrRefreshRejected)

	assert.Equal(t, []EventKind{EventRestored, EventExpired, EventLoggedIn}, rec.kinds())
	rec.mu.Lock()
	last := rec.events[len(rec.events)-1]
	rec.mu.Unlock()
	require.NotNil(t, last.Session)
	assert.Equal(t, "c@d.com", last.Session.Principal.Email)
	assert.True(t, m.IsAuthenticated())
}

func TestEnumStrings(t *testing.T) {
	assert.Equal(t, "awaiting_refresh", PhaseAwaitingRefresh.String())
	assert.Equal(t, "expired", EventExpired.String())
	assert.Equal(t, "unknown", EventKind(0).String())
}
