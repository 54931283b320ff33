package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/artpar/artsy/internal/apitest"
	"github.com/artpar/artsy/internal/cookies"
	"github.com/artpar/artsy/internal/cookies/sqlite"
	"github.com/artpar/artsy/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)

	client, err := NewClient(server.URL)
	require.NoError(t, err)
	return client
}

func respond(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, body)
	}
}

func TestNewClient(t *testing.T) {
	t.Run("accepts http and https", func(t *testing.T) {
		for _, raw := range []string{"http://10.0.2.2:3000", "https://api.example.com/"} {
			c, err := NewClient(raw, WithTimeout(5*time.Second))
			require.NoError(t, err, raw)
			assert.Equal(t, raw, c.BaseURL().String())
		}
	})

	t.Run("rejects other schemes", func(t *testing.T) {
		_, err := NewClient("ftp://example.com")
		assert.Error(t, err)

		_, err = NewClient("://bad")
		assert.Error(t, err)
	})

	t.Run("no timeout by default", func(t *testing.T) {
		c, err := NewClient("http://localhost")
		require.NoError(t, err)
		assert.Zero(t, c.httpClient.Timeout)
		assert.Nil(t, c.Jar())
	})
}

func TestClient_Me(t *testing.T) {
	ctx := context.Background()

	t.Run("message means anonymous", func(t *testing.T) {
		c := newTestClient(t, respond(`{"message":"Access denied no token"}`))

		id, err := c.Me(ctx)
		require.NoError(t, err)
		assert.True(t, id.Anonymous())
		assert.Equal(t, "Access denied no token", id.Message)
	})

	t.Run("user payload", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Equal(t, "/api/me", r.URL.Path)
			assert.Equal(t, "application/json", r.Header.Get("Accept"))
			respond(`{"user":{"_id":"u1","fullname":"Ada","gravatar":null,
				"favourites":[{"artistId":"42","title":"Monet","birthyear":1840,"addedAt":"2025-05-01T12:00:00Z"},
				{"title":"no id"}]}}`)(w, r)
		})

		id, err := c.Me(ctx)
		require.NoError(t, err)
		require.False(t, id.Anonymous())

		s := id.User.ToSession()
		assert.Equal(t, "u1", s.UserID)
		assert.Equal(t, "Ada", s.FullName)
		assert.Equal(t, "", s.AvatarURL)
		require.Equal(t, 1, s.Favorites.Len())

		f, ok := s.Favorites.Get("42")
		require.True(t, ok)
		assert.Equal(t, "1840", f.BirthYear)
		assert.Equal(t, time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC), f.AddedAt.UTC())
	})

	t.Run("missing id is a server error", func(t *testing.T) {
		c := newTestClient(t, respond(`{"user":{"fullname":"Ada"}}`))

		_, err := c.Me(ctx)
		assert.ErrorIs(t, err, core.ErrServer)
	})

	t.Run("malformed body is a server error", func(t *testing.T) {
		c := newTestClient(t, respond(`<html>`))

		_, err := c.Me(ctx)
		assert.ErrorIs(t, err, core.ErrServer)
	})

	t.Run("empty object is a server error", func(t *testing.T) {
		c := newTestClient(t, respond(`{}`))

		_, err := c.Me(ctx)
		assert.ErrorIs(t, err, core.ErrServer)
	})

	t.Run("non-200 is a server error", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})

		_, err := c.Me(ctx)
		assert.ErrorIs(t, err, core.ErrServer)
		assert.NotErrorIs(t, err, core.ErrTransport)
	})

	t.Run("unreachable server is a transport error", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		c, err := NewClient(server.URL)
		require.NoError(t, err)
		server.Close()

		_, err = c.Me(ctx)
		assert.ErrorIs(t, err, core.ErrTransport)
	})
}

func TestClient_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("sends credentials and decodes the user", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/api/login", r.URL.Path)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, map[string]string{"email": "a@b.com", "password": "secret"}, body)

			respond(`{"_id":"u1","fullname":"A","gravatar":"g","favourites":[]}`)(w, r)
		})

		id, err := c.Login(ctx, "a@b.com", "secret")
		require.NoError(t, err)
		require.NotNil(t, id.User)
		assert.Equal(t, "u1", id.User.ID)
		assert.Equal(t, "g", id.User.Gravatar.String())
	})

	t.Run("rejection is a message", func(t *testing.T) {
		c := newTestClient(t, respond(`{"message":"Username or password is incorrect"}`))

		id, err := c.Login(ctx, "a@b.com", "wrong")
		require.NoError(t, err)
		assert.True(t, id.Anonymous())
		assert.Equal(t, "Username or password is incorrect", id.Message)
	})

	t.Run("user without id is a server error", func(t *testing.T) {
		c := newTestClient(t, respond(`{"fullname":"A"}`))

		_, err := c.Login(ctx, "a@b.com", "secret")
		assert.ErrorIs(t, err, core.ErrServer)
	})
}

func TestClient_CreateAccount(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/createaccount", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Ada", body["fullname"])

		respond(`{"message":"User already exists"}`)(w, r)
	})

	id, err := c.CreateAccount(context.Background(), "Ada", "a@b.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "User already exists", id.Message)
}

func TestClient_ArtistData(t *testing.T) {
	ctx := context.Background()

	t.Run("decodes optional fields", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "4d8b92b34eb68a1b2c0003f4", r.URL.Query().Get("id"))
			respond(`{"id":"4d8b92b34eb68a1b2c0003f4","name":"Claude Monet","birthday":"1840","deathday":null}`)(w, r)
		})

		data, err := c.ArtistData(ctx, "4d8b92b34eb68a1b2c0003f4")
		require.NoError(t, err)
		assert.Equal(t, core.ArtistData{
			ID:       "4d8b92b34eb68a1b2c0003f4",
			Name:     "Claude Monet",
			Birthday: "1840",
		}, data)
	})

	t.Run("falls back to the requested id", func(t *testing.T) {
		c := newTestClient(t, respond(`{"name":"X"}`))

		data, err := c.ArtistData(ctx, "42")
		require.NoError(t, err)
		assert.Equal(t, "42", data.ID)
	})

	t.Run("not found is a server error", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})

		_, err := c.ArtistData(ctx, "42")
		assert.ErrorIs(t, err, core.ErrServer)
	})
}

func TestClient_Search(t *testing.T) {
	ctx := context.Background()

	t.Run("short queries send nothing", func(t *testing.T) {
		server := apitest.New()
		t.Cleanup(server.Close)
		c, err := NewClient(server.URL)
		require.NoError(t, err)

		artists, err := c.Search(ctx, "mo")
		require.NoError(t, err)
		assert.Empty(t, artists)
		assert.Zero(t, server.RequestCount())
	})

	t.Run("decodes ids from self links", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/searchdata", r.URL.Path)
			assert.Equal(t, "monet", r.URL.Query().Get("q"))
			assert.Equal(t, "10", r.URL.Query().Get("size"))
			assert.Equal(t, "artist", r.URL.Query().Get("type"))
			respond(`[
				{"type":"artist","title":"Claude Monet","_links":{
					"self":{"href":"https://api.artsy.net/api/artists/4d8b92b34eb68a1b2c0003f4"},
					"thumbnail":{"href":"https://img/monet.jpg"}}},
				{"type":"artist","title":null,"_links":{"self":{"href":"https://api.artsy.net/api/artists/7"}}},
				{"type":"artist","title":"No link"},
				{"type":"artist","title":"Trailing","_links":{"self":{"href":"https://api.artsy.net/api/artists/"}}}
			]`)(w, r)
		})

		artists, err := c.Search(ctx, "monet")
		require.NoError(t, err)
		assert.Equal(t, []core.ArtistSummary{
			{ID: "4d8b92b34eb68a1b2c0003f4", Name: "Claude Monet", ImageURL: "https://img/monet.jpg"},
			{ID: "7"},
		}, artists)
	})

	t.Run("against the fake server", func(t *testing.T) {
		server := apitest.New()
		t.Cleanup(server.Close)
		server.AddArtist(core.ArtistData{ID: "42", Name: "Claude Monet"})
		server.AddArtist(core.ArtistData{ID: "7", Name: "Pierre-Auguste Renoir"})
		server.SetThumbnail("42", "https://img/42.jpg")
		c, err := NewClient(server.URL)
		require.NoError(t, err)

		artists, err := c.Search(ctx, "MON")
		require.NoError(t, err)
		assert.Equal(t, []core.ArtistSummary{{ID: "42", Name: "Claude Monet", ImageURL: "https://img/42.jpg"}}, artists)
	})

	t.Run("non-200 is a server error", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})

		_, err := c.Search(ctx, "monet")
		assert.ErrorIs(t, err, core.ErrServer)
	})

	t.Run("object body is a server error", func(t *testing.T) {
		c := newTestClient(t, respond(`{"message":"oops"}`))

		_, err := c.Search(ctx, "monet")
		assert.ErrorIs(t, err, core.ErrServer)
	})
}

func TestClient_SimilarArtists(t *testing.T) {
	ctx := context.Background()

	t.Run("decodes embedded artists", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/similarartists", r.URL.Path)
			assert.Equal(t, "42", r.URL.Query().Get("id"))
			respond(`{"_embedded":{"artists":[
				{"name":"Pierre-Auguste Renoir","_links":{
					"self":{"href":"https://api.artsy.net/api/artists/7"},
					"thumbnail":{"href":"https://img/7.jpg"}}}
			]}}`)(w, r)
		})

		artists, err := c.SimilarArtists(ctx, "42")
		require.NoError(t, err)
		assert.Equal(t, []core.ArtistSummary{{ID: "7", Name: "Pierre-Auguste Renoir", ImageURL: "https://img/7.jpg"}}, artists)
	})

	t.Run("missing embedded is empty", func(t *testing.T) {
		c := newTestClient(t, respond(`{}`))

		artists, err := c.SimilarArtists(ctx, "42")
		require.NoError(t, err)
		assert.Empty(t, artists)
	})

	t.Run("against the fake server", func(t *testing.T) {
		server := apitest.New()
		t.Cleanup(server.Close)
		server.AddArtist(core.ArtistData{ID: "42", Name: "Claude Monet"})
		server.AddArtist(core.ArtistData{ID: "7", Name: "Pierre-Auguste Renoir"})
		server.AddSimilar("42", "7")
		c, err := NewClient(server.URL)
		require.NoError(t, err)

		artists, err := c.SimilarArtists(ctx, "42")
		require.NoError(t, err)
		assert.Equal(t, []core.ArtistSummary{{ID: "7", Name: "Pierre-Auguste Renoir"}}, artists)
	})

	t.Run("transport failure", func(t *testing.T) {
		server := apitest.New()
		t.Cleanup(server.Close)
		server.Fail(http.MethodGet, "/api/similarartists", 0)
		c, err := NewClient(server.URL)
		require.NoError(t, err)

		_, err = c.SimilarArtists(ctx, "42")
		assert.ErrorIs(t, err, core.ErrTransport)
	})
}

func TestClient_Favourites(t *testing.T) {
	ctx := context.Background()

	t.Run("add posts the full record", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/api/addtofavourites", r.URL.Path)

			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, map[string]string{
				"artistId":    "42",
				"title":       "Monet",
				"birthyear":   "1840",
				"deathyear":   "1926",
				"nationality": "French",
				"image":       "https://img/42.jpg",
			}, body)
			w.WriteHeader(http.StatusCreated)
		})

		err := c.AddFavourite(ctx, AddFavouriteRequest{
			ArtistID:    "42",
			Title:       "Monet",
			BirthYear:   "1840",
			DeathYear:   "1926",
			Nationality: "French",
			Image:       "https://img/42.jpg",
		})
		assert.NoError(t, err)
	})

	t.Run("delete sends the id in the body", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodDelete, r.Method)
			assert.Equal(t, "/api/deletefavourites", r.URL.Path)

			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "42", body["id"])
			w.WriteHeader(http.StatusOK)
		})

		assert.NoError(t, c.DeleteFavourite(ctx, "42"))
	})

	t.Run("non-2xx is a server error", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})

		assert.ErrorIs(t, c.DeleteFavourite(ctx, "42"), core.ErrServer)
		assert.ErrorIs(t, c.Logout(ctx), core.ErrServer)
		assert.ErrorIs(t, c.DeleteAccount(ctx), core.ErrServer)
	})
}

func TestClient_CookieSession(t *testing.T) {
	ctx := context.Background()
	server := apitest.New()
	defer server.Close()
	server.AddUser("Ada", "a@b.com", "secret")

	store, err := sqlite.NewInMemory()
	require.NoError(t, err)
	defer store.Close()

	jar, err := cookies.NewPersistentJar(store)
	require.NoError(t, err)

	c, err := NewClient(server.URL, WithJar(jar))
	require.NoError(t, err)

	id, err := c.Me(ctx)
	require.NoError(t, err)
	assert.True(t, id.Anonymous())

	id, err = c.Login(ctx, "a@b.com", "secret")
	require.NoError(t, err)
	require.False(t, id.Anonymous())

	stored, err := store.List(ctx, cookies.QueryOptions{})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, apitest.SessionCookie, stored[0].Name)
	assert.True(t, stored[0].HostOnly)

	id, err = c.Me(ctx)
	require.NoError(t, err)
	require.False(t, id.Anonymous())
	assert.Equal(t, "Ada", id.User.FullName.String())

	require.NoError(t, c.Logout(ctx))
	n, err := jar.Count()
	require.NoError(t, err)
	assert.Zero(t, n)

	id, err = c.Me(ctx)
	require.NoError(t, err)
	assert.True(t, id.Anonymous())
}

func TestClient_TransportFailureFromServer(t *testing.T) {
	server := apitest.New()
	defer server.Close()
	server.Fail(http.MethodDelete, "/api/logout", 0)

	c, err := NewClient(server.URL)
	require.NoError(t, err)

	err = c.Logout(context.Background())
	assert.ErrorIs(t, err, core.ErrTransport)
}

func TestOptionalString(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"string", `"abc"`, "abc", false},
		{"null", `null`, "", false},
		{"number", `1840`, "1840", false},
		{"bool", `true`, "true", false},
		{"object", `{"a":1}`, "", true},
		{"array", `[1]`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s OptionalString
			err := json.Unmarshal([]byte(tt.input), &s)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.String())
		})
	}

	t.Run("missing field", func(t *testing.T) {
		var f Favourite
		require.NoError(t, json.Unmarshal([]byte(`{"artistId":"1"}`), &f))
		assert.Equal(t, "", f.Title.String())
		assert.True(t, f.AddedTime().IsZero())
	})
}
