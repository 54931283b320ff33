package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/artpar/artsy/internal/core"
)

// ErrMissingUserID is returned when a user payload has no _id.
var ErrMissingUserID = errors.New("user payload has no _id")

// OptionalString decodes a JSON string, number, boolean or null. Missing
// and null values decode to "".
type OptionalString string

// UnmarshalJSON implements json.Unmarshaler.
func (s *OptionalString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	switch data[0] {
	case '"':
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = OptionalString(v)
		return nil
	case '{', '[':
		return fmt.Errorf("expected scalar, got %s", data)
	default:
		*s = OptionalString(data)
		return nil
	}
}

// String returns the value.
func (s OptionalString) String() string {
	return string(s)
}

// User is the user payload returned by /api/me, /api/login and
// /api/createaccount. Only ID is required.
type User struct {
	ID         string         `json:"_id"`
	FullName   OptionalString `json:"fullname"`
	Gravatar   OptionalString `json:"gravatar"`
	Favourites []Favourite    `json:"favourites"`
}

// Validate checks the required fields.
func (u *User) Validate() error {
	if strings.TrimSpace(u.ID) == "" {
		return ErrMissingUserID
	}
	return nil
}

// Favourite is one entry of a user's favourites array. Every field is
// optional.
type Favourite struct {
	ArtistID    OptionalString `json:"artistId"`
	Title       OptionalString `json:"title"`
	BirthYear   OptionalString `json:"birthyear"`
	Nationality OptionalString `json:"nationality"`
	AddedAt     OptionalString `json:"addedAt"`
}

// AddedTime parses AddedAt as RFC 3339. Unparseable values yield the zero
// time, which sorts last.
func (f Favourite) AddedTime() time.Time {
	t, err := time.Parse(time.RFC3339Nano, f.AddedAt.String())
	if err != nil {
		return time.Time{}
	}
	return t
}

// ToSession converts a validated user payload to a Session. Favourites
// without an artist id are dropped; duplicates keep the first entry.
func (u *User) ToSession() *core.Session {
	s := core.NewSession(u.ID, u.FullName.String(), u.Gravatar.String())
	for _, f := range u.Favourites {
		if f.ArtistID == "" {
			continue
		}
		s.Favorites.Add(core.Favorite{
			ArtistID:    f.ArtistID.String(),
			Title:       f.Title.String(),
			BirthYear:   f.BirthYear.String(),
			Nationality: f.Nationality.String(),
			AddedAt:     f.AddedTime(),
		})
	}
	return s
}

// Identity is a decoded identity response. Exactly one of User and
// Message is set.
type Identity struct {
	User    *User
	Message string
}

// Anonymous reports whether the server answered with a message instead of
// a user.
func (i Identity) Anonymous() bool {
	return i.User == nil
}

type meResponse struct {
	Message *string `json:"message"`
	User    *User   `json:"user"`
}

type authResponse struct {
	Message *string `json:"message"`
	User
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type createAccountRequest struct {
	FullName string `json:"fullname"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AddFavouriteRequest is the body of POST /api/addtofavourites.
type AddFavouriteRequest struct {
	ArtistID    string `json:"artistId"`
	Title       string `json:"title"`
	BirthYear   string `json:"birthyear"`
	DeathYear   string `json:"deathyear"`
	Nationality string `json:"nationality"`
	Image       string `json:"image"`
}

type deleteFavouriteRequest struct {
	ID string `json:"id"`
}

type artistDataResponse struct {
	ID          OptionalString `json:"id"`
	Name        OptionalString `json:"name"`
	Birthday    OptionalString `json:"birthday"`
	Deathday    OptionalString `json:"deathday"`
	Nationality OptionalString `json:"nationality"`
}

type link struct {
	Href OptionalString `json:"href"`
}

// artistLinks is the HAL _links object attached to search and
// similar-artist results. The artist id is the last segment of self.href.
type artistLinks struct {
	Self      link `json:"self"`
	Thumbnail link `json:"thumbnail"`
}

func (l artistLinks) summary(name OptionalString) (core.ArtistSummary, bool) {
	href := strings.TrimSpace(l.Self.Href.String())
	id := href[strings.LastIndex(href, "/")+1:]
	if id == "" {
		return core.ArtistSummary{}, false
	}
	return core.ArtistSummary{
		ID:       id,
		Name:     name.String(),
		ImageURL: l.Thumbnail.Href.String(),
	}, true
}

type searchResult struct {
	Title OptionalString `json:"title"`
	Links artistLinks    `json:"_links"`
}

type similarArtist struct {
	Name  OptionalString `json:"name"`
	Links artistLinks    `json:"_links"`
}

type similarArtistsResponse struct {
	Embedded struct {
		Artists []similarArtist `json:"artists"`
	} `json:"_embedded"`
}
