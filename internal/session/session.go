// Package session builds the process-wide session shared by the form handler
// and the dashboard controller: the CSRF token captured once at bootstrap, the
// cookie jar that carries the backend session, and the notification facility.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"github.com/urbanmd/urbanmd/internal/logging"
	"github.com/urbanmd/urbanmd/internal/notify"
)

// DefaultCookieName is the cookie Django stores the CSRF token in.
const DefaultCookieName = "csrftoken"

// ErrNoCSRFToken is returned by RequireCSRF when bootstrap found no token.
var ErrNoCSRFToken = errors.New("session: no CSRF token")

// Session is read-only after construction.
type Session struct {
	baseURL   *url.URL
	csrfToken string
	jar       http.CookieJar
	notifier  notify.Notifier
}

// New builds a session from already known values.
func New(baseURL *url.URL, csrfToken string, jar http.CookieJar, notifier notify.Notifier) *Session {
	if notifier == nil {
		notifier = notify.NewCenter()
	}
	return &Session{baseURL: baseURL, csrfToken: csrfToken, jar: jar, notifier: notifier}
}

// CSRFToken returns the token captured at bootstrap, possibly empty.
func (s *Session) CSRFToken() string { return s.csrfToken }

// RequireCSRF returns the token or ErrNoCSRFToken.
func (s *Session) RequireCSRF() (string, error) {
	if s.csrfToken == "" {
		return "", ErrNoCSRFToken
	}
	return s.csrfToken, nil
}

// Notifier returns the shared notification facility.
func (s *Session) Notifier() notify.Notifier { return s.notifier }

// Jar returns the cookie jar holding the backend session cookies.
func (s *Session) Jar() http.CookieJar { return s.jar }

// BaseURL returns a copy of the backend root URL.
func (s *Session) BaseURL() *url.URL {
	u := *s.baseURL
	return &u
}

// Resolve turns a server-relative path (or absolute URL) into an absolute URL.
func (s *Session) Resolve(ref string) string {
	parsed, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return s.baseURL.ResolveReference(parsed).String()
}

// Options configures Bootstrap.
type Options struct {
	BaseURL string
	// DashboardPath is fetched when the cookie header holds no CSRF token,
	// letting the backend set it.
	DashboardPath string
	// CookieHeader seeds the jar, in document.cookie form ("a=1; b=2").
	CookieHeader string
	CookieName   string
	HTTPClient   *http.Client
	Notifier     notify.Notifier
	Logger       logging.Logger
}

// Bootstrap captures the CSRF token once: from the seeded cookie header when
// present, otherwise from the cookie the backend sets on the dashboard page.
// A missing token is not fatal; mutating requests will be sent without it.
func Bootstrap(ctx context.Context, opts Options) (*Session, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/") + "/")
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("session: invalid base url %q", opts.BaseURL)
	}
	name := opts.CookieName
	if name == "" {
		name = DefaultCookieName
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("session: create cookie jar: %w", err)
	}
	jar.SetCookies(base, SplitCookies(opts.CookieHeader))

	token, ok := ParseCookie(opts.CookieHeader, name)
	if !ok {
		token, err = fetchToken(ctx, opts, base, jar, name)
		if err != nil {
			logger.Warn("csrf bootstrap failed", "error", err)
		}
	}
	if token == "" {
		logger.Warn("no csrf cookie found", "cookie_name", name)
	}

	return New(base, token, jar, opts.Notifier), nil
}

func fetchToken(ctx context.Context, opts Options, base *url.URL, jar http.CookieJar, name string) (string, error) {
	client := &http.Client{Jar: jar}
	if opts.HTTPClient != nil {
		clone := *opts.HTTPClient
		clone.Jar = jar
		client = &clone
	}
	path := opts.DashboardPath
	if path == "" {
		path = "/"
	}
	target := base.ResolveReference(&url.URL{Path: path})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return "", fmt.Errorf("session: create bootstrap request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("session: bootstrap request failed: %w", err)
	}
	resp.Body.Close()

	for _, c := range jar.Cookies(base) {
		if c.Name == name {
			return decodeCookieValue(c.Value), nil
		}
	}
	return "", nil
}
