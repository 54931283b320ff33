// Package favorites toggles favorites against the server and projects the
// shared session into the views that display them.
package favorites

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/artpar/artsy/internal/api"
	"github.com/artpar/artsy/internal/core"
	"github.com/artpar/artsy/internal/session"
)

// Client is the part of the API client used by the Synchronizer.
type Client interface {
	ArtistData(ctx context.Context, id string) (core.ArtistData, error)
	AddFavourite(ctx context.Context, req api.AddFavouriteRequest) error
	DeleteFavourite(ctx context.Context, artistID string) error
}

// Outcome is how a toggle settled.
type Outcome int

const (
	Failed Outcome = iota
	Added
	Removed
	// Skipped means a toggle for the same artist was already in flight.
	Skipped
)

func (o Outcome) String() string {
	switch o {
	case Added:
		return "added"
	case Removed:
		return "removed"
	case Skipped:
		return "skipped"
	default:
		return "failed"
	}
}

// Result is delivered by ToggleAsync.
type Result struct {
	ArtistID string
	Outcome  Outcome
	Err      error
}

// Synchronizer adds and removes favorites on the server and applies the
// confirmed change to the shared State. At most one toggle per artist id
// is in flight; toggles for different ids run in parallel.
type Synchronizer struct {
	client   Client
	state    *session.State
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time

	mu      sync.Mutex
	pending map[string]struct{}
}

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithNotifier sets where settled toggles are reported.
func WithNotifier(n Notifier) Option {
	return func(s *Synchronizer) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Synchronizer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock sets the time source used for AddedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Synchronizer) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a Synchronizer.
func New(client Client, state *session.State, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		client:   client,
		state:    state,
		notifier: NotifierFunc(func(Notification) {}),
		logger:   slog.New(slog.DiscardHandler),
		now:      time.Now,
		pending:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "favorites")
	return s
}

// Toggle adds artist to the favorites if absent and removes it if present,
// blocking until the server answers. The local favorites change only after
// the server confirms. Once issued, the requests are not cancelled by ctx.
func (s *Synchronizer) Toggle(ctx context.Context, artist core.ArtistSummary) (Outcome, error) {
	sess, outcome, err := s.begin(artist)
	if sess == nil {
		return outcome, err
	}
	defer s.release(artist.ID)
	return s.run(ctx, sess, artist)
}

// ToggleAsync is Toggle without blocking the caller. A toggle for an id
// that is already pending is skipped before this returns. The channel
// receives exactly one Result and is then closed.
func (s *Synchronizer) ToggleAsync(ctx context.Context, artist core.ArtistSummary) <-chan Result {
	ch := make(chan Result, 1)

	sess, outcome, err := s.begin(artist)
	if sess == nil {
		ch <- Result{ArtistID: artist.ID, Outcome: outcome, Err: err}
		close(ch)
		return ch
	}

	go func() {
		outcome, err := func() (Outcome, error) {
			defer s.release(artist.ID)
			return s.run(ctx, sess, artist)
		}()
		ch <- Result{ArtistID: artist.ID, Outcome: outcome, Err: err}
		close(ch)
	}()
	return ch
}

// Pending reports whether a toggle for artistID is in flight.
func (s *Synchronizer) Pending(artistID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[artistID]
	return ok
}

// begin claims the pending slot for artist, then snapshots the session.
// The snapshot is read only while the slot is held, so a toggle never acts
// on favorites that an earlier toggle for the same id has since changed.
// A nil session means the toggle must not proceed.
func (s *Synchronizer) begin(artist core.ArtistSummary) (*core.Session, Outcome, error) {
	if artist.ID == "" {
		var errs core.ValidationErrors
		errs.Add("artistId", "Artist id cannot be empty")
		return nil, Failed, errs
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.pending[artist.ID]; busy {
		s.logger.Debug("toggle already pending", "artist_id", artist.ID)
		return nil, Skipped, nil
	}

	sess := s.state.Current()
	if sess.IsAnonymous() {
		return nil, Failed, fmt.Errorf("toggle favorite %s: %w", artist.ID, core.ErrAnonymous)
	}
	s.pending[artist.ID] = struct{}{}
	return sess, Failed, nil
}

func (s *Synchronizer) release(artistID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, artistID)
}

func (s *Synchronizer) run(ctx context.Context, sess *core.Session, artist core.ArtistSummary) (Outcome, error) {
	ctx = context.WithoutCancel(ctx)
	if sess.IsFavorite(artist.ID) {
		return s.remove(ctx, sess.UserID, artist)
	}
	return s.add(ctx, sess.UserID, artist)
}

func (s *Synchronizer) remove(ctx context.Context, userID string, artist core.ArtistSummary) (Outcome, error) {
	if err := s.client.DeleteFavourite(ctx, artist.ID); err != nil {
		s.fail(artist, "Could not remove from Favourites", err)
		return Failed, err
	}

	if !s.state.RemoveFavorite(userID, artist.ID) {
		s.logger.Debug("session changed before removal settled", "artist_id", artist.ID)
	}
	s.notifier.Notify(Notification{Level: Info, ArtistID: artist.ID, Message: MessageRemoved})
	return Removed, nil
}

func (s *Synchronizer) add(ctx context.Context, userID string, artist core.ArtistSummary) (Outcome, error) {
	data, err := s.client.ArtistData(ctx, artist.ID)
	if err != nil {
		s.fail(artist, "Could not load artist details", err)
		return Failed, err
	}

	title := data.Name
	if title == "" {
		title = artist.Name
	}
	req := api.AddFavouriteRequest{
		ArtistID:    artist.ID,
		Title:       title,
		BirthYear:   data.Birthday,
		DeathYear:   data.Deathday,
		Nationality: data.Nationality,
		Image:       artist.ImageURL,
	}
	if err := s.client.AddFavourite(ctx, req); err != nil {
		s.fail(artist, "Could not add to Favourites", err)
		return Failed, err
	}

	fav := core.Favorite{
		ArtistID:    artist.ID,
		Title:       title,
		BirthYear:   data.Birthday,
		Nationality: data.Nationality,
		AddedAt:     s.now(),
	}
	if !s.state.AddFavorite(userID, fav) {
		s.logger.Debug("session changed before addition settled", "artist_id", artist.ID)
	}
	s.notifier.Notify(Notification{Level: Info, ArtistID: artist.ID, Message: MessageAdded})
	return Added, nil
}

func (s *Synchronizer) fail(artist core.ArtistSummary, message string, err error) {
	s.logger.Warn("favorite toggle failed", "artist_id", artist.ID, "error", err)
	s.notifier.Notify(Notification{Level: Error, ArtistID: artist.ID, Message: message, Err: err})
}
