// Package apitest provides an in-memory implementation of the catalog API
// for tests. It records every request and can inject failures per route.
package apitest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/artpar/artsy/internal/core"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// SessionCookie is the name of the cookie carrying the server session.
const SessionCookie = "token"

// Messages returned in {message} bodies.
const (
	MessageNoToken        = "Access denied no token"
	MessageBadCredentials = "Username or password is incorrect"
	MessageUserExists     = "User already exists"
)

// Server wraps httptest.Server with an in-memory user and artist database.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	requests []*RecordedRequest
	users    map[string]*User // key: email
	sessions map[string]string
	artists  map[string]core.ArtistData
	images   map[string]string
	similar  map[string][]string
	failures map[string]int
	gates    map[string]chan struct{}
	nextID   int
	now      func() time.Time
}

// RecordedRequest stores request details for verification.
type RecordedRequest struct {
	Method  string
	Path    string
	Query   string
	Headers http.Header
	Body    []byte
	Time    time.Time
}

// User is a registered account.
type User struct {
	ID         string
	FullName   string
	Email      string
	Password   string
	Favourites []Favourite
}

// Favourite is a stored favourite.
type Favourite struct {
	ArtistID    string
	Title       string
	BirthYear   string
	DeathYear   string
	Nationality string
	Image       string
	AddedAt     time.Time
}

// New starts a server. Call Close when done.
func New() *Server {
	s := &Server{
		users:    make(map[string]*User),
		sessions: make(map[string]string),
		artists:  make(map[string]core.ArtistData),
		images:   make(map[string]string),
		similar:  make(map[string][]string),
		failures: make(map[string]int),
		gates:    make(map[string]chan struct{}),
		now:      time.Now,
	}
	s.Server = httptest.NewServer(s.router())
	return s
}

func (s *Server) router() http.Handler {
	r := mux.NewRouter()
	r.Use(s.recordingMiddleware, s.faultMiddleware)

	r.HandleFunc("/api/me", s.handleMe).Methods(http.MethodGet)
	r.HandleFunc("/api/login", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/api/createaccount", s.handleCreateAccount).Methods(http.MethodPost)
	r.HandleFunc("/api/logout", s.handleLogout).Methods(http.MethodDelete)
	r.HandleFunc("/api/deleteaccount", s.handleDeleteAccount).Methods(http.MethodDelete)
	r.HandleFunc("/api/artistdata", s.handleArtistData).Methods(http.MethodGet).Queries("id", "{id}")
	r.HandleFunc("/api/searchdata", s.handleSearch).Methods(http.MethodGet).Queries("q", "{q}")
	r.HandleFunc("/api/similarartists", s.handleSimilar).Methods(http.MethodGet).Queries("id", "{id}")
	r.HandleFunc("/api/addtofavourites", s.handleAddFavourite).Methods(http.MethodPost)
	r.HandleFunc("/api/deletefavourites", s.handleDeleteFavourite).Methods(http.MethodDelete)

	return r
}

// AddUser registers an account directly and returns its id.
func (s *Server) AddUser(fullName, email, password string, favourites ...Favourite) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.newUserLocked(fullName, email, password)
	u.Favourites = append(u.Favourites, favourites...)
	return u.ID
}

// ArtistLinkBase prefixes the self links of search and similar-artist
// results.
const ArtistLinkBase = "https://api.artsy.net/api/artists/"

// AddArtist makes an artist available through /api/artistdata and
// /api/searchdata.
func (s *Server) AddArtist(a core.ArtistData) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.artists[a.ID] = a
}

// SetThumbnail sets the thumbnail link returned for artist id.
func (s *Server) SetThumbnail(id, href string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.images[id] = href
}

// AddSimilar makes /api/similarartists?id=id list the given artists.
func (s *Server) AddSimilar(id string, similar ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.similar[id] = append(s.similar[id], similar...)
}

// Fail makes every following request to method+path fail. A status of 0
// drops the connection without a response.
func (s *Server) Fail(method, path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[routeKey(method, path)] = status
}

// Recover removes an injected failure.
func (s *Server) Recover(method, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failures, routeKey(method, path))
}

// Block holds requests to method+path until the returned function is
// called.
func (s *Server) Block(method, path string) (release func()) {
	gate := make(chan struct{})
	s.mu.Lock()
	s.gates[routeKey(method, path)] = gate
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.gates, routeKey(method, path))
			s.mu.Unlock()
			close(gate)
		})
	}
}

// Favourites returns the artist ids stored for email, oldest first.
func (s *Server) Favourites(email string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[email]
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(u.Favourites))
	for _, f := range u.Favourites {
		ids = append(ids, f.ArtistID)
	}
	return ids
}

// HasUser reports whether an account exists for email.
func (s *Server) HasUser(email string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.users[email]
	return ok
}

// Requests returns all recorded requests.
func (s *Server) Requests() []*RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]*RecordedRequest, len(s.requests))
	copy(result, s.requests)
	return result
}

// RequestCount returns the number of recorded requests.
func (s *Server) RequestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// CountRequests returns how many requests hit method+path.
func (s *Server) CountRequests(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.requests {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

// LastRequest returns the last recorded request.
func (s *Server) LastRequest() *RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return nil
	}
	return s.requests[len(s.requests)-1]
}

// recordingMiddleware records requests before handling them.
func (s *Server) recordingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(strings.NewReader(string(body)))

		s.mu.Lock()
		s.requests = append(s.requests, &RecordedRequest{
			Method:  r.Method,
			Path:    r.URL.Path,
			Query:   r.URL.RawQuery,
			Headers: r.Header.Clone(),
			Body:    body,
			Time:    time.Now(),
		})
		s.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

// faultMiddleware applies Block and Fail settings.
func (s *Server) faultMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := routeKey(r.Method, r.URL.Path)

		s.mu.Lock()
		gate := s.gates[key]
		s.mu.Unlock()
		if gate != nil {
			select {
			case <-gate:
			case <-r.Context().Done():
				return
			}
		}

		s.mu.Lock()
		status, failing := s.failures[key]
		s.mu.Unlock()
		if !failing {
			next.ServeHTTP(w, r)
			return
		}

		if status == 0 {
			dropConnection(w)
			return
		}
		writeJSON(w, status, map[string]string{"error": http.StatusText(status)})
	})
}

func dropConnection(w http.ResponseWriter) {
	hj, ok := w.(http.Hijacker)
	if !ok {
		panic(http.ErrAbortHandler)
	}
	conn, _, err := hj.Hijack()
	if err != nil {
		panic(http.ErrAbortHandler)
	}
	conn.Close()
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.currentUserLocked(r)
	if u == nil {
		writeJSON(w, http.StatusOK, map[string]string{"message": MessageNoToken})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": userJSON(u)})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[req.Email]
	if !ok || u.Password != req.Password {
		writeJSON(w, http.StatusOK, map[string]string{"message": MessageBadCredentials})
		return
	}
	s.startSessionLocked(w, u)
	writeJSON(w, http.StatusOK, userJSON(u))
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FullName string `json:"fullname"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[req.Email]; exists {
		writeJSON(w, http.StatusOK, map[string]string{"message": MessageUserExists})
		return
	}
	u := s.newUserLocked(req.FullName, req.Email, req.Password)
	s.startSessionLocked(w, u)
	writeJSON(w, http.StatusOK, userJSON(u))
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, err := r.Cookie(SessionCookie); err == nil {
		delete(s.sessions, c.Value)
	}
	endSession(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.currentUserLocked(r)
	if u == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": MessageNoToken})
		return
	}
	delete(s.users, u.Email)
	for token, email := range s.sessions {
		if email == u.Email {
			delete(s.sessions, token)
		}
	}
	endSession(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Account deleted"})
}

func (s *Server) handleArtistData(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	s.mu.Lock()
	a, ok := s.artists[id]
	s.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Artist not found"})
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.ToLower(mux.Vars(r)["q"])
	size, err := strconv.Atoi(r.URL.Query().Get("size"))
	if err != nil || size <= 0 {
		size = 10
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	results := make([]map[string]any, 0)
	if r.URL.Query().Get("type") == "artist" {
		ids := make([]string, 0, len(s.artists))
		for id, a := range s.artists {
			if strings.Contains(strings.ToLower(a.Name), query) {
				ids = append(ids, id)
			}
		}
		slices.Sort(ids)
		for _, id := range ids {
			if len(results) == size {
				break
			}
			results = append(results, map[string]any{
				"type":   "artist",
				"title":  s.artists[id].Name,
				"_links": s.linksLocked(id),
			})
		}
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleSimilar(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	s.mu.Lock()
	defer s.mu.Unlock()

	artists := make([]map[string]any, 0, len(s.similar[id]))
	for _, other := range s.similar[id] {
		artists = append(artists, map[string]any{
			"name":   s.artists[other].Name,
			"_links": s.linksLocked(other),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"_embedded": map[string]any{"artists": artists},
	})
}

func (s *Server) linksLocked(id string) map[string]any {
	links := map[string]any{
		"self": map[string]string{"href": ArtistLinkBase + id},
	}
	if img, ok := s.images[id]; ok {
		links["thumbnail"] = map[string]string{"href": img}
	}
	return links
}

func (s *Server) handleAddFavourite(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ArtistID    string `json:"artistId"`
		Title       string `json:"title"`
		BirthYear   string `json:"birthyear"`
		DeathYear   string `json:"deathyear"`
		Nationality string `json:"nationality"`
		Image       string `json:"image"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ArtistID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "artistId is required"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.currentUserLocked(r)
	if u == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": MessageNoToken})
		return
	}
	for _, f := range u.Favourites {
		if f.ArtistID == req.ArtistID {
			writeJSON(w, http.StatusOK, map[string]string{"message": "Already in favourites"})
			return
		}
	}
	u.Favourites = append(u.Favourites, Favourite{
		ArtistID:    req.ArtistID,
		Title:       req.Title,
		BirthYear:   req.BirthYear,
		DeathYear:   req.DeathYear,
		Nationality: req.Nationality,
		Image:       req.Image,
		AddedAt:     s.now(),
	})
	writeJSON(w, http.StatusOK, map[string]string{"message": "Added to favourites"})
}

func (s *Server) handleDeleteFavourite(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "id is required"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.currentUserLocked(r)
	if u == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": MessageNoToken})
		return
	}
	kept := u.Favourites[:0]
	for _, f := range u.Favourites {
		if f.ArtistID != req.ID {
			kept = append(kept, f)
		}
	}
	u.Favourites = kept
	writeJSON(w, http.StatusOK, map[string]string{"message": "Removed from favourites"})
}

func (s *Server) newUserLocked(fullName, email, password string) *User {
	s.nextID++
	u := &User{
		ID:       fmt.Sprintf("%024x", s.nextID),
		FullName: fullName,
		Email:    email,
		Password: password,
	}
	s.users[email] = u
	return u
}

func (s *Server) currentUserLocked(r *http.Request) *User {
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		return nil
	}
	email, ok := s.sessions[c.Value]
	if !ok {
		return nil
	}
	return s.users[email]
}

func (s *Server) startSessionLocked(w http.ResponseWriter, u *User) {
	token := uuid.NewString()
	s.sessions[token] = u.Email
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		MaxAge:   3600,
	})
}

func endSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:   SessionCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
}

func userJSON(u *User) map[string]any {
	favs := make([]map[string]string, 0, len(u.Favourites))
	for _, f := range u.Favourites {
		favs = append(favs, map[string]string{
			"artistId":    f.ArtistID,
			"title":       f.Title,
			"birthyear":   f.BirthYear,
			"nationality": f.Nationality,
			"addedAt":     f.AddedAt.UTC().Format(time.RFC3339Nano),
		})
	}
	return map[string]any{
		"_id":        u.ID,
		"fullname":   u.FullName,
		"gravatar":   "https://www.gravatar.com/avatar/" + u.ID,
		"favourites": favs,
	}
}

func writeJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(data)
}

func routeKey(method, path string) string {
	return method + " " + path
}
