// Package app wires the cookie store, API client, session state and the
// actions that mutate it into one container.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/artpar/artsy/internal/api"
	"github.com/artpar/artsy/internal/auth"
	"github.com/artpar/artsy/internal/config"
	"github.com/artpar/artsy/internal/cookies"
	"github.com/artpar/artsy/internal/cookies/sqlite"
	"github.com/artpar/artsy/internal/favorites"
	"github.com/artpar/artsy/internal/session"
)

// App is the application container. It owns the cookie store and closes it
// in Close.
type App struct {
	config    config.Config
	logger    *slog.Logger
	store     cookies.Store
	transport http.RoundTripper
	notifier  favorites.Notifier

	jar       *cookies.PersistentJar
	client    *api.Client
	state     *session.State
	resolver  *session.Resolver
	bootstrap *session.Bootstrap
	auth      *auth.Actions
	favorites *favorites.Synchronizer
}

// Option is a function that configures the App.
type Option func(*App)

// WithLogger sets the logger shared by every component.
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithCookieStore uses store instead of the SQLite file in the data
// directory. The App takes ownership of it.
func WithCookieStore(store cookies.Store) Option {
	return func(a *App) {
		a.store = store
	}
}

// WithTransport sets the HTTP transport of the API client.
func WithTransport(rt http.RoundTripper) Option {
	return func(a *App) {
		a.transport = rt
	}
}

// WithNotifier receives favorite toggle notifications. The default logs
// them.
func WithNotifier(n favorites.Notifier) Option {
	return func(a *App) {
		a.notifier = n
	}
}

// New builds the App from cfg. Cookies persisted by an earlier run are
// loaded before any request is made.
func New(cfg config.Config, opts ...Option) (*App, error) {
	a := &App{
		config: cfg,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.store == nil {
		store, err := openCookieStore(cfg)
		if err != nil {
			return nil, err
		}
		a.store = store
	}

	jar, err := cookies.NewPersistentJar(a.store, cookies.WithLogger(a.logger))
	if err != nil {
		a.store.Close()
		return nil, fmt.Errorf("failed to load cookies: %w", err)
	}
	a.jar = jar

	clientOpts := []api.Option{
		api.WithJar(jar),
		api.WithTimeout(cfg.HTTPTimeout),
		api.WithLogger(a.logger),
	}
	if a.transport != nil {
		clientOpts = append(clientOpts, api.WithTransport(a.transport))
	}
	client, err := api.NewClient(cfg.BaseURL, clientOpts...)
	if err != nil {
		a.store.Close()
		return nil, err
	}
	a.client = client

	if a.notifier == nil {
		a.notifier = favorites.LogNotifier{Logger: a.logger.With("component", "notify")}
	}

	a.state = session.NewState()
	a.resolver = session.NewResolver(client)
	a.bootstrap = session.NewBootstrap(a.resolver, a.state, a.logger)
	a.auth = auth.New(client, jar, a.state,
		auth.WithResolver(a.resolver),
		auth.WithLogger(a.logger),
	)
	a.favorites = favorites.New(client, a.state,
		favorites.WithNotifier(a.notifier),
		favorites.WithLogger(a.logger),
	)

	return a, nil
}

func openCookieStore(cfg config.Config) (cookies.Store, error) {
	path, err := cfg.CookieDBPath()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	store, err := sqlite.New(path)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// Start runs the startup identity check and waits for it.
func (a *App) Start(ctx context.Context) session.Status {
	return a.bootstrap.Run(ctx)
}

// Close ends subscriptions and closes the cookie store.
func (a *App) Close() error {
	a.state.Close()
	return a.store.Close()
}

// Config returns the application configuration.
func (a *App) Config() config.Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *slog.Logger {
	return a.logger
}

// Jar returns the persistent cookie jar.
func (a *App) Jar() *cookies.PersistentJar {
	return a.jar
}

// Client returns the shared API client.
func (a *App) Client() *api.Client {
	return a.client
}

// State returns the session state container.
func (a *App) State() *session.State {
	return a.state
}

// Bootstrap returns the startup identity check.
func (a *App) Bootstrap() *session.Bootstrap {
	return a.bootstrap
}

// Auth returns the sign-in and sign-out actions.
func (a *App) Auth() *auth.Actions {
	return a.auth
}

// Favorites returns the favorites synchronizer.
func (a *App) Favorites() *favorites.Synchronizer {
	return a.favorites
}
