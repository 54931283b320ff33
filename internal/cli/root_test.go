package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/artpar/artsy/internal/apitest"
	"github.com/artpar/artsy/internal/core"
	"github.com/artpar/artsy/internal/favorites"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	t       *testing.T
	server  *apitest.Server
	dataDir string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	server := apitest.New()
	t.Cleanup(server.Close)
	server.AddUser("A", "a@b.com", "secret")
	server.AddArtist(core.ArtistData{ID: "42", Name: "Claude Monet", Birthday: "1840", Nationality: "French"})
	return &harness{t: t, server: server, dataDir: t.TempDir()}
}

type result struct {
	stdout string
	stderr string
	err    error
}

func (h *harness) run(stdin string, args ...string) result {
	h.t.Helper()
	cmd := NewRootCommand("test")

	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{
		"--base-url", h.server.URL,
		"--data-dir", h.dataDir,
		"--log-level", "error",
	}, args...))

	err := cmd.Execute()
	return result{stdout: out.String(), stderr: errOut.String(), err: err}
}

func TestNewRootCommand(t *testing.T) {
	t.Run("creates root command", func(t *testing.T) {
		cmd := NewRootCommand("1.0.0")
		assert.Equal(t, "artsy", cmd.Use)
		assert.Equal(t, "1.0.0", cmd.Version)
	})

	t.Run("has persistent flags", func(t *testing.T) {
		cmd := NewRootCommand("1.0.0")
		for _, name := range []string{"env-file", "base-url", "data-dir", "timeout", "log-level", "log-format"} {
			assert.NotNil(t, cmd.PersistentFlags().Lookup(name), name)
		}
	})

	t.Run("has subcommands", func(t *testing.T) {
		cmd := NewRootCommand("1.0.0")
		for _, path := range [][]string{
			{"status"}, {"login"}, {"register"}, {"logout"}, {"delete-account"},
			{"favorites", "list"}, {"favorites", "toggle"}, {"cookies", "list"}, {"cookies", "clear"},
			{"search"}, {"similar"}, {"artist"},
		} {
			sub, _, err := cmd.Find(path)
			require.NoError(t, err, path)
			assert.Equal(t, path[len(path)-1], strings.Fields(sub.Use)[0])
		}
	})
}

func TestStatus_Anonymous(t *testing.T) {
	h := newHarness(t)

	res := h.run("", "status")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Not signed in")
}

func TestLoginFlow(t *testing.T) {
	h := newHarness(t)

	res := h.run("", "login", "--email", "a@b.com", "--password", "secret")
	require.NoError(t, res.err, res.stderr)
	assert.Contains(t, res.stdout, "Logged in successfully")

	res = h.run("", "status")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "A")
	assert.Contains(t, res.stdout, "Favorites: 0")

	res = h.run("", "favorites", "toggle", "42", "--image", "https://img/42.jpg")
	require.NoError(t, res.err, res.stderr)
	assert.Contains(t, res.stdout, favorites.MessageAdded)

	res = h.run("", "favorites", "list", "--json")
	require.NoError(t, res.err)
	var entries []favorites.Entry
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "42", entries[0].ArtistID)
	assert.Equal(t, "Claude Monet", entries[0].Title)
	assert.Contains(t, entries[0].Ago, "ago")

	res = h.run("", "favorites", "list", "--yaml")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "artist_id:")
	assert.Contains(t, res.stdout, "Claude Monet")

	res = h.run("", "favorites", "list")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Claude Monet")
	assert.Contains(t, res.stdout, "French")

	res = h.run("", "favorites", "toggle", "42")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, favorites.MessageRemoved)

	res = h.run("", "cookies", "list")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, apitest.SessionCookie)

	res = h.run("", "logout")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Logged out successfully")

	res = h.run("", "cookies", "list")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "No cookies")

	res = h.run("", "favorites", "list")
	assert.ErrorIs(t, res.err, core.ErrAnonymous)
}

func TestLogin_Errors(t *testing.T) {
	h := newHarness(t)

	t.Run("bad credentials", func(t *testing.T) {
		res := h.run("", "login", "--email", "a@b.com", "--password", "nope")
		assert.ErrorIs(t, res.err, core.ErrBadCredentials)
		assert.Contains(t, res.stderr, apitest.MessageBadCredentials)
	})

	t.Run("validation", func(t *testing.T) {
		before := h.server.RequestCount()
		res := h.run("", "login", "--password", "secret")
		assert.ErrorIs(t, res.err, core.ErrValidation)
		assert.Contains(t, res.stderr, "Email cannot be empty")
		assert.Equal(t, before, h.server.RequestCount())
	})

	t.Run("password from stdin", func(t *testing.T) {
		res := h.run("secret\n", "login", "--email", "a@b.com", "--password-stdin")
		require.NoError(t, res.err, res.stderr)
		assert.Contains(t, res.stdout, "Logged in successfully")
	})
}

func TestRegister(t *testing.T) {
	h := newHarness(t)

	res := h.run("", "register", "--fullname", "Ada", "--email", "ada@example.com", "--password", "pw")
	require.NoError(t, res.err, res.stderr)
	assert.Contains(t, res.stdout, "Registered successfully")
	assert.True(t, h.server.HasUser("ada@example.com"))

	res = h.run("", "register", "--fullname", "Ada", "--email", "ada@example.com", "--password", "pw")
	assert.ErrorIs(t, res.err, core.ErrEmailAlreadyExists)
	assert.Contains(t, res.stderr, "email:")
}

func TestDeleteAccount(t *testing.T) {
	h := newHarness(t)

	res := h.run("", "delete-account")
	assert.ErrorContains(t, res.err, "--yes")

	require.NoError(t, h.run("", "login", "--email", "a@b.com", "--password", "secret").err)
	res = h.run("", "delete-account", "--yes")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Deleted user successfully")
	assert.False(t, h.server.HasUser("a@b.com"))
}

func TestCookiesClear(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.run("", "login", "--email", "a@b.com", "--password", "secret").err)

	res := h.run("", "cookies", "clear", "--domain", "example.com")
	require.NoError(t, res.err)
	assert.Contains(t, h.run("", "cookies", "list").stdout, apitest.SessionCookie)

	res = h.run("", "cookies", "clear")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Cleared all cookies")
	assert.Contains(t, h.run("", "status").stdout, "Not signed in")
}

func TestFlagsOverrideEnvironment(t *testing.T) {
	h := newHarness(t)
	t.Setenv("ARTSY_BASE_URL", "ftp://invalid")

	res := h.run("", "status")
	assert.NoError(t, res.err)

	cmd := NewRootCommand("test")
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--data-dir", h.dataDir, "status"})
	assert.Error(t, cmd.Execute())
}

func TestArtistViews(t *testing.T) {
	h := newHarness(t)
	h.server.AddArtist(core.ArtistData{ID: "7", Name: "Pierre-Auguste Renoir", Nationality: "French"})
	h.server.AddSimilar("42", "7")

	res := h.run("", "search", "monet")
	require.NoError(t, res.err, res.stderr)
	assert.Contains(t, res.stdout, "Claude Monet")
	assert.Contains(t, res.stdout, "(42)")
	assert.NotContains(t, res.stdout, "★", "anonymous users see no markers")

	res = h.run("", "search", "mo")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "No artists found")

	require.NoError(t, h.run("", "login", "--email", "a@b.com", "--password", "secret").err)
	require.NoError(t, h.run("", "favorites", "toggle", "42").err)

	res = h.run("", "search", "monet", "--json")
	require.NoError(t, res.err)
	var marked []favorites.Marked
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &marked))
	require.Len(t, marked, 1)
	assert.Equal(t, "42", marked[0].ID)
	assert.True(t, marked[0].Favorite)

	res = h.run("", "similar", "42", "--json")
	require.NoError(t, res.err)
	marked = nil
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &marked))
	require.Len(t, marked, 1)
	assert.Equal(t, "Pierre-Auguste Renoir", marked[0].Name)
	assert.False(t, marked[0].Favorite)

	res = h.run("", "similar", "42")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "☆")

	res = h.run("", "artist", "42")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "★")
	assert.Contains(t, res.stdout, "Claude Monet")
	assert.Contains(t, res.stdout, "Nationality: French")
	assert.Contains(t, res.stdout, "1840 -")

	res = h.run("", "artist", "missing")
	assert.ErrorIs(t, res.err, core.ErrServer)
}
