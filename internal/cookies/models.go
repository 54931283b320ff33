package cookies

import (
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Cookie represents a stored cookie with all attributes.
type Cookie struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Value     string    `json:"value"`
	Domain    string    `json:"domain"`
	Path      string    `json:"path"`
	Expires   time.Time `json:"expires"`
	Secure    bool      `json:"secure"`
	HttpOnly  bool      `json:"http_only"`
	HostOnly  bool      `json:"host_only"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Key identifies a cookie within the store. Two records with the same
// name and domain are the same cookie.
func (c *Cookie) Key() string {
	return c.Name + "@" + c.Domain
}

// IsExpired returns true if the cookie has expired.
func (c *Cookie) IsExpired() bool {
	return c.ExpiredAt(time.Now())
}

// ExpiredAt reports whether the cookie is expired at the given instant.
// A cookie whose expiry equals now is already expired.
func (c *Cookie) ExpiredAt(now time.Time) bool {
	if c.Expires.IsZero() {
		return false // Session cookie, never expires
	}
	return !c.Expires.After(now)
}

// IsSession returns true if this is a session cookie (no expiration).
func (c *Cookie) IsSession() bool {
	return c.Expires.IsZero()
}

// DomainMatches reports whether the cookie may be sent to host.
// Host-only cookies require an exact match; domain cookies also match
// any subdomain.
func (c *Cookie) DomainMatches(host string) bool {
	host = canonicalHost(host)
	if host == c.Domain {
		return true
	}
	if c.HostOnly {
		return false
	}
	return strings.HasSuffix(host, "."+c.Domain)
}

// PathMatches implements the RFC 6265 section 5.1.4 path-match.
func (c *Cookie) PathMatches(requestPath string) bool {
	if requestPath == "" {
		requestPath = "/"
	}
	if requestPath == c.Path {
		return true
	}
	if !strings.HasPrefix(requestPath, c.Path) {
		return false
	}
	return strings.HasSuffix(c.Path, "/") || requestPath[len(c.Path)] == '/'
}

// Matches reports whether the cookie should be attached to a request for u
// at the given instant.
func (c *Cookie) Matches(u *url.URL, now time.Time) bool {
	if c.ExpiredAt(now) {
		return false
	}
	if c.Secure && u.Scheme != "https" {
		return false
	}
	return c.DomainMatches(u.Hostname()) && c.PathMatches(u.EscapedPath())
}

// Clone returns a copy that does not share state with the receiver.
func (c *Cookie) Clone() *Cookie {
	cp := *c
	return &cp
}

// ToHTTPCookie converts to standard http.Cookie.
func (c *Cookie) ToHTTPCookie() *http.Cookie {
	hc := &http.Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Path:     c.Path,
		Secure:   c.Secure,
		HttpOnly: c.HttpOnly,
		Expires:  c.Expires,
	}
	if !c.HostOnly {
		hc.Domain = c.Domain
	}
	return hc
}

// FromHTTPCookie creates a Cookie from http.Cookie and the URL of the
// response that set it.
func FromHTTPCookie(u *url.URL, hc *http.Cookie) *Cookie {
	return fromHTTPCookie(u, hc, time.Now())
}

func fromHTTPCookie(u *url.URL, hc *http.Cookie, now time.Time) *Cookie {
	domain := canonicalHost(hc.Domain)
	hostOnly := domain == ""
	if hostOnly {
		domain = canonicalHost(u.Hostname())
	}

	path := hc.Path
	if path == "" || path[0] != '/' {
		path = defaultPath(u.EscapedPath())
	}

	// Max-Age takes precedence over Expires
	expires := hc.Expires
	if hc.MaxAge > 0 {
		expires = now.Add(time.Duration(hc.MaxAge) * time.Second)
	} else if hc.MaxAge < 0 {
		// MaxAge < 0 means delete cookie immediately
		expires = time.Unix(0, 0)
	}

	return &Cookie{
		Name:      hc.Name,
		Value:     hc.Value,
		Domain:    domain,
		Path:      path,
		Expires:   expires,
		Secure:    hc.Secure,
		HttpOnly:  hc.HttpOnly,
		HostOnly:  hostOnly,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// defaultPath returns the directory of the request path (RFC 6265 5.1.4).
func defaultPath(requestPath string) string {
	if requestPath == "" || requestPath[0] != '/' {
		return "/"
	}
	i := strings.LastIndex(requestPath, "/")
	if i == 0 {
		return "/"
	}
	return requestPath[:i]
}

func canonicalHost(host string) string {
	return strings.ToLower(strings.TrimPrefix(host, "."))
}

// QueryOptions for filtering cookies.
type QueryOptions struct {
	Domain         string // Filter by domain
	Name           string // Filter by cookie name
	IncludeExpired bool   // Include expired cookies
	Limit          int    // Max results (0 = no limit)
}
