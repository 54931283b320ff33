package cookies

import (
	"cmp"
	"context"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"
)

// PersistentJar implements http.CookieJar on top of a Store.
// Every accepted cookie is written through to the store before Save
// returns, so the table survives process restarts.
type PersistentJar struct {
	mu      sync.Mutex
	cookies map[string]*Cookie // key: name@domain
	store   Store
	logger  *slog.Logger
	now     func() time.Time
}

// JarOption configures a PersistentJar.
type JarOption func(*PersistentJar)

// WithLogger sets the logger used to report swallowed persistence errors.
func WithLogger(logger *slog.Logger) JarOption {
	return func(pj *PersistentJar) {
		if logger != nil {
			pj.logger = logger
		}
	}
}

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) JarOption {
	return func(pj *PersistentJar) {
		if now != nil {
			pj.now = now
		}
	}
}

// NewPersistentJar creates a new persistent cookie jar.
func NewPersistentJar(store Store, opts ...JarOption) (*PersistentJar, error) {
	pj := &PersistentJar{
		cookies: make(map[string]*Cookie),
		store:   store,
		logger:  slog.New(slog.DiscardHandler),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(pj)
	}
	pj.logger = pj.logger.With("component", "cookies")

	// Load existing cookies from store
	if err := pj.loadFromStore(); err != nil {
		return nil, err
	}

	return pj, nil
}

// loadFromStore loads all non-expired cookies into memory and drops the
// expired rows.
func (pj *PersistentJar) loadFromStore() error {
	ctx := context.Background()
	if n, err := pj.store.DeleteExpired(ctx); err != nil {
		pj.logger.Warn("failed to purge expired cookies", "error", err)
	} else if n > 0 {
		pj.logger.Debug("purged expired cookies", "count", n)
	}

	stored, err := pj.store.List(ctx, QueryOptions{IncludeExpired: false})
	if err != nil {
		return err
	}

	now := pj.now()
	for _, c := range stored {
		if c.ExpiredAt(now) {
			continue
		}
		pj.cookies[c.Key()] = c
	}
	return nil
}

// Save upserts records set by a response from u. Persistence errors are
// logged and swallowed: a lost cookie only means the user signs in again.
func (pj *PersistentJar) Save(u *url.URL, records []*Cookie) {
	pj.mu.Lock()
	defer pj.mu.Unlock()

	ctx := context.Background()
	now := pj.now()
	host := canonicalHost(u.Hostname())

	for _, c := range records {
		if !acceptable(host, c) {
			pj.logger.Debug("rejected cookie", "name", c.Name, "domain", c.Domain, "host", host)
			continue
		}

		key := c.Key()
		if c.ExpiredAt(now) {
			// Handle cookie deletion (Max-Age <= 0 or past Expires)
			delete(pj.cookies, key)
			if err := pj.store.Delete(ctx, c.Domain, c.Name); err != nil {
				pj.logger.Warn("failed to delete cookie", "name", c.Name, "domain", c.Domain, "error", err)
			}
			continue
		}

		rec := c.Clone()
		if old, ok := pj.cookies[key]; ok {
			rec.ID = old.ID
			rec.CreatedAt = old.CreatedAt
		}
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = now
		}
		rec.UpdatedAt = now

		persisted := rec.Clone()
		if err := pj.store.Set(ctx, persisted); err != nil {
			pj.logger.Warn("failed to persist cookie", "name", c.Name, "domain", c.Domain, "error", err)
		} else {
			rec.ID = persisted.ID
		}
		pj.cookies[key] = rec
	}
}

// acceptable applies the RFC 6265 storage rules that depend on the
// request host.
func acceptable(host string, c *Cookie) bool {
	if c.Name == "" || c.Domain == "" {
		return false
	}
	if c.HostOnly {
		return c.Domain == host
	}
	if c.Domain != host && !strings.HasSuffix(host, "."+c.Domain) {
		return false
	}
	if net.ParseIP(host) != nil {
		return c.Domain == host
	}
	if ps, _ := publicsuffix.PublicSuffix(c.Domain); ps == c.Domain && c.Domain != host {
		return false
	}
	return true
}

// SetCookies implements http.CookieJar.
func (pj *PersistentJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	now := pj.now()
	records := make([]*Cookie, 0, len(cookies))
	for _, hc := range cookies {
		records = append(records, fromHTTPCookie(u, hc, now))
	}
	pj.Save(u, records)
}

// CookiesFor returns copies of the stored cookies that should be sent with
// a request to u. Expired cookies found during the scan are evicted.
func (pj *PersistentJar) CookiesFor(u *url.URL) []*Cookie {
	pj.mu.Lock()
	defer pj.mu.Unlock()

	now := pj.now()
	var matched, expired []*Cookie
	for key, c := range pj.cookies {
		if c.ExpiredAt(now) {
			delete(pj.cookies, key)
			expired = append(expired, c)
			continue
		}
		if c.Matches(u, now) {
			matched = append(matched, c.Clone())
		}
	}

	ctx := context.Background()
	for _, c := range expired {
		if err := pj.store.Delete(ctx, c.Domain, c.Name); err != nil {
			pj.logger.Warn("failed to evict expired cookie", "name", c.Name, "domain", c.Domain, "error", err)
		}
	}

	// Longer paths first, then earlier creation (RFC 6265 5.4).
	slices.SortFunc(matched, func(a, b *Cookie) int {
		if c := cmp.Compare(len(b.Path), len(a.Path)); c != 0 {
			return c
		}
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
	return matched
}

// Cookies implements http.CookieJar.
func (pj *PersistentJar) Cookies(u *url.URL) []*http.Cookie {
	matched := pj.CookiesFor(u)
	out := make([]*http.Cookie, 0, len(matched))
	for _, c := range matched {
		out = append(out, &http.Cookie{Name: c.Name, Value: c.Value})
	}
	return out
}

// Clear removes all cookies from jar and store.
func (pj *PersistentJar) Clear() error {
	pj.mu.Lock()
	defer pj.mu.Unlock()

	pj.cookies = make(map[string]*Cookie)
	return pj.store.Clear(context.Background())
}

// ClearDomain removes all cookies for a domain.
func (pj *PersistentJar) ClearDomain(domain string) error {
	pj.mu.Lock()
	defer pj.mu.Unlock()

	domain = canonicalHost(domain)
	for key, c := range pj.cookies {
		if c.Domain == domain {
			delete(pj.cookies, key)
		}
	}
	return pj.store.DeleteByDomain(context.Background(), domain)
}

// Cleanup removes expired cookies from memory and the store.
func (pj *PersistentJar) Cleanup() (int64, error) {
	pj.mu.Lock()
	defer pj.mu.Unlock()

	now := pj.now()
	for key, c := range pj.cookies {
		if c.ExpiredAt(now) {
			delete(pj.cookies, key)
		}
	}
	return pj.store.DeleteExpired(context.Background())
}

// Count returns the number of stored cookies.
func (pj *PersistentJar) Count() (int64, error) {
	pj.mu.Lock()
	defer pj.mu.Unlock()

	return pj.store.Count(context.Background())
}

// ListAll returns all stored, unexpired cookies.
func (pj *PersistentJar) ListAll() ([]*Cookie, error) {
	pj.mu.Lock()
	defer pj.mu.Unlock()

	return pj.store.List(context.Background(), QueryOptions{
		IncludeExpired: false,
	})
}

// Store returns the underlying store (for closing).
func (pj *PersistentJar) Store() Store {
	return pj.store
}
