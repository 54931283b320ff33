package core

import (
	"slices"
	"time"
)

// Session is the signed-in user and their favorites. A nil *Session is
// the anonymous state.
type Session struct {
	UserID    string
	FullName  string
	AvatarURL string
	Favorites *FavoriteSet
}

// NewSession creates a session for the given user with the given favorites.
func NewSession(userID, fullName, avatarURL string, favorites ...Favorite) *Session {
	s := &Session{
		UserID:    userID,
		FullName:  fullName,
		AvatarURL: avatarURL,
		Favorites: NewFavoriteSet(),
	}
	for _, f := range favorites {
		s.Favorites.Add(f)
	}
	return s
}

// IsAnonymous reports whether no user is signed in.
func (s *Session) IsAnonymous() bool {
	return s == nil || s.UserID == ""
}

// Clone returns a deep copy. Cloning nil yields nil.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Favorites = s.Favorites.Clone()
	return &cp
}

// IsFavorite reports whether artistID is among the session's favorites.
func (s *Session) IsFavorite(artistID string) bool {
	if s.IsAnonymous() {
		return false
	}
	return s.Favorites.Has(artistID)
}

// Favorite is an artist the user has added to their favorites.
type Favorite struct {
	ArtistID    string    `json:"artistId" yaml:"artist_id"`
	Title       string    `json:"title" yaml:"title"`
	BirthYear   string    `json:"birthyear" yaml:"birth_year"`
	Nationality string    `json:"nationality" yaml:"nationality"`
	AddedAt     time.Time `json:"addedAt" yaml:"added_at"`
}

// FavoriteSet holds at most one Favorite per artist id, remembering
// insertion order. The zero value is not usable; use NewFavoriteSet.
type FavoriteSet struct {
	byID  map[string]int // artist id -> index into items
	items []Favorite
}

// NewFavoriteSet creates an empty set.
func NewFavoriteSet() *FavoriteSet {
	return &FavoriteSet{byID: make(map[string]int)}
}

// Add inserts f unless a favorite with the same artist id exists.
// It reports whether the set changed.
func (fs *FavoriteSet) Add(f Favorite) bool {
	if _, ok := fs.byID[f.ArtistID]; ok {
		return false
	}
	fs.byID[f.ArtistID] = len(fs.items)
	fs.items = append(fs.items, f)
	return true
}

// Remove deletes the favorite for artistID and reports whether it existed.
func (fs *FavoriteSet) Remove(artistID string) bool {
	idx, ok := fs.byID[artistID]
	if !ok {
		return false
	}
	fs.items = slices.Delete(fs.items, idx, idx+1)
	delete(fs.byID, artistID)
	for i := idx; i < len(fs.items); i++ {
		fs.byID[fs.items[i].ArtistID] = i
	}
	return true
}

// Has reports whether artistID is in the set.
func (fs *FavoriteSet) Has(artistID string) bool {
	if fs == nil {
		return false
	}
	_, ok := fs.byID[artistID]
	return ok
}

// Get returns the favorite for artistID.
func (fs *FavoriteSet) Get(artistID string) (Favorite, bool) {
	if fs == nil {
		return Favorite{}, false
	}
	idx, ok := fs.byID[artistID]
	if !ok {
		return Favorite{}, false
	}
	return fs.items[idx], true
}

// Len returns the number of favorites.
func (fs *FavoriteSet) Len() int {
	if fs == nil {
		return 0
	}
	return len(fs.items)
}

// Sorted returns the favorites newest first. Favorites added at the same
// instant keep the most recent insertion first.
func (fs *FavoriteSet) Sorted() []Favorite {
	if fs == nil {
		return nil
	}
	out := slices.Clone(fs.items)
	slices.Reverse(out)
	slices.SortStableFunc(out, func(a, b Favorite) int {
		return b.AddedAt.Compare(a.AddedAt)
	})
	return out
}

// Clone returns an independent copy of the set.
func (fs *FavoriteSet) Clone() *FavoriteSet {
	if fs == nil {
		return NewFavoriteSet()
	}
	cp := &FavoriteSet{
		byID:  make(map[string]int, len(fs.byID)),
		items: slices.Clone(fs.items),
	}
	for k, v := range fs.byID {
		cp.byID[k] = v
	}
	return cp
}
