package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/artpar/artsy/internal/core"
)

const maxBodySize = 4 << 20

// Client is the single HTTP transport shared by every session and
// favorites operation. The cookie jar attached to it carries the
// server-side session.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	logger     *slog.Logger
}

// Option is a function that configures the Client.
type Option func(*Client)

// NewClient creates a client for the API rooted at baseURL.
// There is no request timeout unless WithTimeout is given.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base URL %q: scheme must be http or https", baseURL)
	}

	client := &Client{
		httpClient: &http.Client{},
		baseURL:    u,
		logger:     slog.New(slog.DiscardHandler),
	}

	for _, opt := range opts {
		opt(client)
	}
	client.logger = client.logger.With("component", "api")

	return client, nil
}

// WithTimeout sets the request timeout. Zero means none.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithTransport sets a custom HTTP transport.
func WithTransport(transport http.RoundTripper) Option {
	return func(c *Client) {
		c.httpClient.Transport = transport
	}
}

// WithJar attaches the cookie jar used for every request and response.
func WithJar(jar http.CookieJar) Option {
	return func(c *Client) {
		c.httpClient.Jar = jar
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// BaseURL returns a copy of the API root.
func (c *Client) BaseURL() *url.URL {
	u := *c.baseURL
	return &u
}

// Jar returns the attached cookie jar, or nil.
func (c *Client) Jar() http.CookieJar {
	return c.httpClient.Jar
}

// Me asks the identity endpoint who the cookie session belongs to.
func (c *Client) Me(ctx context.Context) (Identity, error) {
	const op = "me"
	status, body, err := c.do(ctx, op, http.MethodGet, "/api/me", nil, nil)
	if err != nil {
		return Identity{}, err
	}
	if status != http.StatusOK {
		return Identity{}, core.ServerError(op, status, "")
	}

	var resp meResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Identity{}, core.ServerError(op, status, err.Error())
	}
	if resp.User != nil {
		if err := resp.User.Validate(); err != nil {
			return Identity{}, core.ServerError(op, status, err.Error())
		}
		return Identity{User: resp.User}, nil
	}
	if resp.Message != nil {
		return Identity{Message: *resp.Message}, nil
	}
	return Identity{}, core.ServerError(op, status, "neither user nor message in body")
}

// Login posts credentials. A rejection comes back as an Identity with a
// Message, not as an error.
func (c *Client) Login(ctx context.Context, email, password string) (Identity, error) {
	return c.authenticate(ctx, "login", "/api/login", loginRequest{Email: email, Password: password})
}

// CreateAccount registers a new user. A rejection comes back as an
// Identity with a Message, not as an error.
func (c *Client) CreateAccount(ctx context.Context, fullName, email, password string) (Identity, error) {
	return c.authenticate(ctx, "createaccount", "/api/createaccount", createAccountRequest{
		FullName: fullName,
		Email:    email,
		Password: password,
	})
}

func (c *Client) authenticate(ctx context.Context, op, path string, payload any) (Identity, error) {
	status, body, err := c.do(ctx, op, http.MethodPost, path, nil, payload)
	if err != nil {
		return Identity{}, err
	}
	if status != http.StatusOK {
		return Identity{}, core.ServerError(op, status, "")
	}

	var resp authResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Identity{}, core.ServerError(op, status, err.Error())
	}
	if resp.Message != nil {
		return Identity{Message: *resp.Message}, nil
	}
	if err := resp.User.Validate(); err != nil {
		return Identity{}, core.ServerError(op, status, err.Error())
	}
	user := resp.User
	return Identity{User: &user}, nil
}

// Logout ends the server-side session.
func (c *Client) Logout(ctx context.Context) error {
	return c.expectSuccess(ctx, "logout", http.MethodDelete, "/api/logout", nil, nil)
}

// DeleteAccount deletes the signed-in user.
func (c *Client) DeleteAccount(ctx context.Context) error {
	return c.expectSuccess(ctx, "deleteaccount", http.MethodDelete, "/api/deleteaccount", nil, nil)
}

// ArtistData fetches the full artist record.
func (c *Client) ArtistData(ctx context.Context, id string) (core.ArtistData, error) {
	const op = "artistdata"
	status, body, err := c.do(ctx, op, http.MethodGet, "/api/artistdata", url.Values{"id": {id}}, nil)
	if err != nil {
		return core.ArtistData{}, err
	}
	if status != http.StatusOK {
		return core.ArtistData{}, core.ServerError(op, status, "")
	}

	var resp artistDataResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return core.ArtistData{}, core.ServerError(op, status, err.Error())
	}

	data := core.ArtistData{
		ID:          resp.ID.String(),
		Name:        resp.Name.String(),
		Birthday:    resp.Birthday.String(),
		Deathday:    resp.Deathday.String(),
		Nationality: resp.Nationality.String(),
	}
	if data.ID == "" {
		data.ID = id
	}
	return data, nil
}

// MinSearchLength is the shortest query Search sends to the server.
const MinSearchLength = 3

const searchSize = 10

// Search looks up artists by name. Queries shorter than MinSearchLength
// return no results without a request. Results without an artist link are
// dropped.
func (c *Client) Search(ctx context.Context, query string) ([]core.ArtistSummary, error) {
	const op = "searchdata"
	if utf8.RuneCountInString(query) < MinSearchLength {
		return nil, nil
	}

	q := url.Values{
		"q":    {query},
		"size": {strconv.Itoa(searchSize)},
		"type": {"artist"},
	}
	status, body, err := c.do(ctx, op, http.MethodGet, "/api/searchdata", q, nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, core.ServerError(op, status, "")
	}

	var results []searchResult
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, core.ServerError(op, status, err.Error())
	}

	artists := make([]core.ArtistSummary, 0, len(results))
	for _, r := range results {
		if a, ok := r.Links.summary(r.Title); ok {
			artists = append(artists, a)
		}
	}
	return artists, nil
}

// SimilarArtists lists the artists related to id.
func (c *Client) SimilarArtists(ctx context.Context, id string) ([]core.ArtistSummary, error) {
	const op = "similarartists"
	status, body, err := c.do(ctx, op, http.MethodGet, "/api/similarartists", url.Values{"id": {id}}, nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, core.ServerError(op, status, "")
	}

	var resp similarArtistsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, core.ServerError(op, status, err.Error())
	}

	artists := make([]core.ArtistSummary, 0, len(resp.Embedded.Artists))
	for _, a := range resp.Embedded.Artists {
		if summary, ok := a.Links.summary(a.Name); ok {
			artists = append(artists, summary)
		}
	}
	return artists, nil
}

// AddFavourite records a favourite on the server.
func (c *Client) AddFavourite(ctx context.Context, req AddFavouriteRequest) error {
	return c.expectSuccess(ctx, "addtofavourites", http.MethodPost, "/api/addtofavourites", nil, req)
}

// DeleteFavourite removes a favourite on the server.
func (c *Client) DeleteFavourite(ctx context.Context, artistID string) error {
	return c.expectSuccess(ctx, "deletefavourites", http.MethodDelete, "/api/deletefavourites", nil,
		deleteFavouriteRequest{ID: artistID})
}

func (c *Client) expectSuccess(ctx context.Context, op, method, path string, query url.Values, payload any) error {
	status, _, err := c.do(ctx, op, method, path, query, payload)
	if err != nil {
		return err
	}
	if status < 200 || status > 299 {
		return core.ServerError(op, status, "")
	}
	return nil
}

// do executes one request and returns the status and body. Only failures
// before a response is read are returned as errors.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, payload any) (int, []byte, error) {
	u := c.baseURL.JoinPath(path)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var bodyReader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("%s: failed to encode request: %w", op, err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), bodyReader)
	if err != nil {
		return 0, nil, fmt.Errorf("%s: failed to create request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("request failed", "op", op, "method", method, "path", path, "error", err)
		return 0, nil, core.TransportError(op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return resp.StatusCode, nil, core.TransportError(op, err)
	}

	c.logger.Debug("request completed",
		"op", op,
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(startTime),
	)
	return resp.StatusCode, data, nil
}
