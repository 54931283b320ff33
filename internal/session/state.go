// Package session owns the single writable Session and decides, at
// startup, whether a user is signed in.
package session

import (
	"context"
	"sync"

	"github.com/artpar/artsy/internal/core"
)

// EventKind identifies what changed in the State.
type EventKind int

const (
	// Replaced means a new session was installed by bootstrap, login or register.
	Replaced EventKind = iota
	// Cleared means the session became anonymous.
	Cleared
	// FavoriteAdded means one favorite was inserted.
	FavoriteAdded
	// FavoriteRemoved means one favorite was removed.
	FavoriteRemoved
)

func (k EventKind) String() string {
	switch k {
	case Replaced:
		return "replaced"
	case Cleared:
		return "cleared"
	case FavoriteAdded:
		return "favorite_added"
	case FavoriteRemoved:
		return "favorite_removed"
	default:
		return "unknown"
	}
}

// Event is delivered to subscribers after every mutation. Session is a
// private snapshot taken right after the change; ArtistID is set for
// favorite events.
type Event struct {
	Kind     EventKind
	ArtistID string
	Session  *core.Session
}

const subscriberBuffer = 16

// State holds the current Session. Every read-modify-write happens under
// one lock and never performs I/O. Readers receive copies.
type State struct {
	mu      sync.Mutex
	current *core.Session
	subs    map[chan Event]struct{}
	closed  bool
	done    chan struct{}
}

// NewState creates an anonymous State.
func NewState() *State {
	return &State{
		subs: make(map[chan Event]struct{}),
		done: make(chan struct{}),
	}
}

// Current returns a copy of the session, or nil when anonymous.
func (s *State) Current() *core.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Clone()
}

// UserID returns the signed-in user id, or "" when anonymous.
func (s *State) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current.IsAnonymous() {
		return ""
	}
	return s.current.UserID
}

// IsFavorite reports whether artistID is a favorite of the signed-in user.
func (s *State) IsFavorite(artistID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.IsFavorite(artistID)
}

// Favorites returns the favorites newest first.
func (s *State) Favorites() []core.Favorite {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current.IsAnonymous() {
		return nil
	}
	return s.current.Favorites.Sorted()
}

// Replace installs a copy of sess. An anonymous sess clears the state.
func (s *State) Replace(sess *core.Session) {
	if sess.IsAnonymous() {
		s.Clear()
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = sess.Clone()
	if s.current.Favorites == nil {
		s.current.Favorites = core.NewFavoriteSet()
	}
	s.publishLocked(Event{Kind: Replaced})
}

// Clear makes the state anonymous.
func (s *State) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
	s.publishLocked(Event{Kind: Cleared})
}

// AddFavorite inserts f if userID is still the signed-in user. It reports
// whether the favorites changed.
func (s *State) AddFavorite(userID string, f core.Favorite) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ownedByLocked(userID) || !s.current.Favorites.Add(f) {
		return false
	}
	s.publishLocked(Event{Kind: FavoriteAdded, ArtistID: f.ArtistID})
	return true
}

// RemoveFavorite removes artistID if userID is still the signed-in user.
// It reports whether the favorites changed.
func (s *State) RemoveFavorite(userID, artistID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ownedByLocked(userID) || !s.current.Favorites.Remove(artistID) {
		return false
	}
	s.publishLocked(Event{Kind: FavoriteRemoved, ArtistID: artistID})
	return true
}

func (s *State) ownedByLocked(userID string) bool {
	return userID != "" && !s.current.IsAnonymous() && s.current.UserID == userID
}

// Subscribe returns a channel of events. Events are dropped for a
// subscriber whose buffer is full. The channel is closed when ctx is done
// or the State is closed.
func (s *State) Subscribe(ctx context.Context) <-chan Event {
	ch := make(chan Event, subscriberBuffer)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch
	}
	s.subs[ch] = struct{}{}
	s.mu.Unlock()

	if ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				s.unsubscribe(ch)
			case <-s.done:
			}
		}()
	}
	return ch
}

func (s *State) unsubscribe(ch chan Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subs[ch]; ok {
		delete(s.subs, ch)
		close(ch)
	}
}

// Close closes every subscription. The State remains readable.
func (s *State) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.done)
	for ch := range s.subs {
		close(ch)
	}
	clear(s.subs)
}

func (s *State) publishLocked(ev Event) {
	for ch := range s.subs {
		ev.Session = s.current.Clone()
		select {
		case ch <- ev:
		default:
		}
	}
}
