// Package auth implements login, registration, logout and account
// deletion on top of the shared API client and session state.
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/artpar/artsy/internal/api"
	"github.com/artpar/artsy/internal/core"
	"github.com/artpar/artsy/internal/session"
)

// Client is the part of the API client used by Actions.
type Client interface {
	Login(ctx context.Context, email, password string) (api.Identity, error)
	CreateAccount(ctx context.Context, fullName, email, password string) (api.Identity, error)
	Logout(ctx context.Context) error
	DeleteAccount(ctx context.Context) error
}

// CookieClearer forgets every stored cookie.
type CookieClearer interface {
	Clear() error
}

// Actions are the only operations that replace the whole session.
type Actions struct {
	client   Client
	jar      CookieClearer
	state    *session.State
	resolver *session.Resolver
	logger   *slog.Logger
}

// Option configures Actions.
type Option func(*Actions)

// WithResolver refreshes the session from the identity endpoint after a
// successful login or registration.
func WithResolver(r *session.Resolver) Option {
	return func(a *Actions) {
		a.resolver = r
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Actions) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// New creates Actions.
func New(client Client, jar CookieClearer, state *session.State, opts ...Option) *Actions {
	a := &Actions{
		client: client,
		jar:    jar,
		state:  state,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With("component", "auth")
	return a
}

// Login signs in. Invalid input returns core.ValidationErrors without a
// request; a rejection wraps core.ErrBadCredentials.
func (a *Actions) Login(ctx context.Context, email, password string) (*core.Session, error) {
	const op = "login"
	if err := validateLogin(email, password); err != nil {
		return nil, err
	}

	id, err := a.client.Login(ctx, strings.TrimSpace(email), password)
	if err != nil {
		return nil, err
	}
	if id.Anonymous() {
		return nil, core.BusinessError(op, "", id.Message, core.ErrBadCredentials)
	}
	return a.establish(ctx, op, id.User.ToSession()), nil
}

// Register creates an account and signs in. A duplicate address wraps
// core.ErrEmailAlreadyExists and is attributed to the email field.
func (a *Actions) Register(ctx context.Context, fullName, email, password string) (*core.Session, error) {
	const op = "register"
	if err := validateRegister(fullName, email, password); err != nil {
		return nil, err
	}

	id, err := a.client.CreateAccount(ctx, strings.TrimSpace(fullName), strings.TrimSpace(email), password)
	if err != nil {
		return nil, err
	}
	if id.Anonymous() {
		if strings.Contains(strings.ToLower(id.Message), "already exists") {
			return nil, core.BusinessError(op, FieldEmail, id.Message, core.ErrEmailAlreadyExists)
		}
		return nil, core.BusinessError(op, "", id.Message, nil)
	}
	return a.establish(ctx, op, id.User.ToSession()), nil
}

// establish refreshes favorites through the resolver when possible and
// installs the session.
func (a *Actions) establish(ctx context.Context, op string, sess *core.Session) *core.Session {
	if a.resolver != nil {
		fresh, err := a.resolver.Resolve(ctx)
		switch {
		case err != nil:
			a.logger.Warn("session refresh failed, using sign-in payload", "op", op, "error", err)
		case fresh.IsAnonymous() || fresh.UserID != sess.UserID:
			a.logger.Warn("session refresh returned a different identity, using sign-in payload", "op", op)
		default:
			sess = fresh
		}
	}

	a.state.Replace(sess)
	a.logger.Info("signed in", "op", op, "user_id", sess.UserID, "favorites", sess.Favorites.Len())
	return sess
}

// Logout ends the session. The remote call is best effort: cookies and
// state are cleared after it returns whatever its outcome. The only error
// is a failure to clear the local cookie store.
func (a *Actions) Logout(ctx context.Context) error {
	return a.signOut("logout", a.client.Logout(ctx))
}

// DeleteAccount deletes the signed-in user with the same local policy as
// Logout.
func (a *Actions) DeleteAccount(ctx context.Context) error {
	return a.signOut("deleteaccount", a.client.DeleteAccount(ctx))
}

func (a *Actions) signOut(op string, remoteErr error) error {
	if remoteErr != nil {
		a.logger.Warn("remote call failed, clearing local session anyway", "op", op, "error", remoteErr)
	}

	a.state.Clear()
	if err := a.jar.Clear(); err != nil {
		return fmt.Errorf("%s: failed to clear cookies: %w", op, err)
	}
	a.logger.Info("signed out", "op", op)
	return nil
}
