package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/dmitrijs2005/famwealth/internal/client/api"
	"github.com/dmitrijs2005/famwealth/internal/client/config"
	"github.com/dmitrijs2005/famwealth/internal/client/credstore"
	"github.com/dmitrijs2005/famwealth/internal/client/gateway"
	"github.com/dmitrijs2005/famwealth/internal/client/guard"
	"github.com/dmitrijs2005/famwealth/internal/client/session"
	"github.com/dmitrijs2005/famwealth/internal/client/storage"
	"github.com/dmitrijs2005/famwealth/internal/logging"
)

// App holds the wired client for the lifetime of one command or shell.
type App struct {
	config   *config.Config
	log      logging.Logger
	sessions *session.Manager
	api      *api.Client

	reader *bufio.Reader
	out    io.Writer

	closer      io.Closer
	unsubscribe func()
}

// NewApp opens the credential store, restores any persisted session and
// builds the guarded API client. Close must be called when done.
func NewApp(ctx context.Context, cfg *config.Config, log logging.Logger, in io.Reader, out io.Writer) (*App, error) {
	repo, closer, err := storage.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open credential store: %w", err)
	}

	store := credstore.New(repo, log)
	// the gateway must bypass the guard
	gw := gateway.New(cfg.ServerURL, &http.Client{Timeout: cfg.RequestTimeout}, log)
	mgr := session.NewManager(gw, store, log, session.WithRefreshTimeout(cfg.RequestTimeout))

	a := &App{
		config:   cfg,
		log:      log,
		sessions: mgr,
		reader:   bufio.NewReader(in),
		out:      out,
		closer:   closer,
	}
	a.unsubscribe = mgr.Subscribe(a.onSessionEvent)

	if err := mgr.Restore(ctx); err != nil {
		a.Close()
		return nil, err
	}

	// business calls go through the guard, which renews on 401 and retries once
	httpClient := guard.New(nil, mgr, log).Client(3 * cfg.RequestTimeout)
	a.api = api.New(cfg.ServerURL, httpClient)
	return a, nil
}

func (a *App) Close() {
	if a.unsubscribe != nil {
		a.unsubscribe()
	}
	if a.closer != nil {
		if err := a.closer.Close(); err != nil {
			a.log.Warn(context.Background(), "failed to close credential store", "error", err)
		}
	}
}

func (a *App) isLoggedIn() bool {
	return a.sessions.IsAuthenticated()
}

func (a *App) onSessionEvent(ev session.Event) {
	if ev.Kind == session.EventExpired {
		fmt.Fprintln(a.out, warnStyle.Render("Your session has expired. Please log in again."))
	}
}

// statusLine is shown in the shell prompt.
func (a *App) statusLine() string {
	p, ok := a.sessions.CurrentPrincipal()
	if !ok {
		return "(logged out)"
	}
	return fmt.Sprintf("(%s)", p.Email)
}
