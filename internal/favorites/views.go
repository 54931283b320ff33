package favorites

import (
	"fmt"
	"time"

	"github.com/artpar/artsy/internal/core"
)

// Entry is one row of the favorites timeline.
type Entry struct {
	core.Favorite `yaml:",inline"`
	Ago           string `json:"ago" yaml:"ago"`
}

// Timeline returns the session's favorites newest first, each labelled
// with how long ago it was added. Anonymous sessions have none.
func Timeline(sess *core.Session, now time.Time) []Entry {
	if sess.IsAnonymous() {
		return nil
	}
	sorted := sess.Favorites.Sorted()
	entries := make([]Entry, 0, len(sorted))
	for _, f := range sorted {
		entries = append(entries, Entry{Favorite: f, Ago: TimeAgo(f.AddedAt, now)})
	}
	return entries
}

// TimeAgo formats the whole seconds, minutes, hours or days between then
// and now. A zero then yields "".
func TimeAgo(then, now time.Time) string {
	if then.IsZero() {
		return ""
	}
	secs := int64(now.Sub(then) / time.Second)
	if secs < 0 {
		secs = 0
	}
	switch {
	case secs < 60:
		return fmt.Sprintf("%d seconds ago", secs)
	case secs < 3600:
		return fmt.Sprintf("%d minutes ago", secs/60)
	case secs < 86400:
		return fmt.Sprintf("%d hours ago", secs/3600)
	default:
		return fmt.Sprintf("%d days ago", secs/86400)
	}
}

// Marked is an artist from a search or similar-artists list with its
// favorite flag.
type Marked struct {
	core.ArtistSummary `yaml:",inline"`
	Favorite           bool `json:"favorite" yaml:"favorite"`
}

// Mark flags each artist that is in the session's favorites.
func Mark(sess *core.Session, artists []core.ArtistSummary) []Marked {
	out := make([]Marked, len(artists))
	for i, a := range artists {
		out[i] = Marked{ArtistSummary: a, Favorite: sess.IsFavorite(a.ID)}
	}
	return out
}

// IsFavorite reports whether the artist details star should be filled.
func IsFavorite(sess *core.Session, artistID string) bool {
	return sess.IsFavorite(artistID)
}
