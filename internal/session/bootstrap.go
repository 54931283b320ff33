package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/artpar/artsy/internal/core"
)

// Status is the bootstrap state.
type Status int

const (
	NotStarted Status = iota
	Checking
	Resolved
	ResolvedAnonymous
)

func (s Status) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case Checking:
		return "checking"
	case Resolved:
		return "resolved"
	case ResolvedAnonymous:
		return "resolved_anonymous"
	default:
		return "unknown"
	}
}

// Terminal reports whether the check has finished.
func (s Status) Terminal() bool {
	return s == Resolved || s == ResolvedAnonymous
}

// Bootstrap performs the startup identity check exactly once. Anything
// depending on who is signed in should wait for it.
type Bootstrap struct {
	resolver *Resolver
	state    *State
	logger   *slog.Logger

	once   sync.Once
	mu     sync.Mutex
	status Status
	done   chan struct{}
}

// NewBootstrap creates a bootstrap that stores its result in state.
func NewBootstrap(resolver *Resolver, state *State, logger *slog.Logger) *Bootstrap {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Bootstrap{
		resolver: resolver,
		state:    state,
		logger:   logger.With("component", "bootstrap"),
		done:     make(chan struct{}),
	}
}

// Run performs the check on the first call and returns the terminal
// status. Later and concurrent calls wait for the first one.
func (b *Bootstrap) Run(ctx context.Context) Status {
	b.once.Do(func() {
		b.check(ctx)
	})
	<-b.done
	return b.Status()
}

// Start runs the check in the background. The check is not tied to ctx's
// cancellation.
func (b *Bootstrap) Start(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	go b.Run(ctx)
}

// Wait blocks until the check finishes or ctx is done.
func (b *Bootstrap) Wait(ctx context.Context) (Status, error) {
	select {
	case <-b.done:
		return b.Status(), nil
	case <-ctx.Done():
		return b.Status(), ctx.Err()
	}
}

// Status returns the current state.
func (b *Bootstrap) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status
}

// Done is closed once the status is terminal.
func (b *Bootstrap) Done() <-chan struct{} {
	return b.done
}

func (b *Bootstrap) check(ctx context.Context) {
	b.setStatus(Checking)
	defer close(b.done)

	sess, err := b.resolver.Resolve(ctx)
	switch {
	case err != nil:
		if errors.Is(err, core.ErrTransport) {
			b.logger.Info("identity check failed, continuing anonymous", "error", err)
		} else {
			b.logger.Warn("identity check returned an unusable response, continuing anonymous", "error", err)
		}
		b.state.Clear()
		b.setStatus(ResolvedAnonymous)
	case sess.IsAnonymous():
		b.logger.Debug("no signed-in user")
		b.state.Clear()
		b.setStatus(ResolvedAnonymous)
	default:
		b.logger.Info("session restored", "user_id", sess.UserID, "favorites", sess.Favorites.Len())
		b.state.Replace(sess)
		b.setStatus(Resolved)
	}
}

func (b *Bootstrap) setStatus(s Status) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.status = s
}
