// Package session owns the cookie-bearing HTTP client that every grab
// stage shares. One Session lives for the whole run and is passed
// explicitly to each stage.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/packtgrab/packtgrab/pkg/logger"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"
)

const (
	// DefaultUserAgent is sent on every request unless overridden.
	DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_11_5) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/50.0.2661.102 Safari/537.36"

	// DefaultTimeout bounds page requests. Streams are bounded by their context only.
	DefaultTimeout = 60 * time.Second

	// AccountMarker is the substring of the final URL that marks a
	// successful login or claim.
	AccountMarker = "account"

	userAgentKey = "User-Agent"
)

// UserAgents maps short names accepted by --user-agent to full strings.
var UserAgents = map[string]string{
	"default": DefaultUserAgent,
	"firefox": "Mozilla/5.0 (X11; Linux x86_64; rv:128.0) Gecko/20100101 Firefox/128.0",
	"chrome":  "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
}

// ResolveUserAgent returns the full user agent for a short name, or s
// itself when it is not a known name. Empty means DefaultUserAgent.
func ResolveUserAgent(s string) string {
	if s == "" {
		return DefaultUserAgent
	}
	if ua, ok := UserAgents[strings.ToLower(s)]; ok {
		return ua
	}
	return s
}

// ErrStatus matches every *StatusError.
var ErrStatus = errors.New("unexpected response status")

// StatusError reports a response whose status code was not 200.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %d %s", e.URL, e.Code, http.StatusText(e.Code))
}

func (e *StatusError) Is(target error) bool {
	return target == ErrStatus
}

type Options struct {
	UserAgent string
	// Proxy is an http, https or socks5 URL. Empty falls back to the
	// proxy environment variables.
	Proxy   string
	Timeout time.Duration
	// Rate limits requests per second. Zero disables pacing.
	Rate float64
	// Log receives one line per request when Debug is set.
	Log   logger.Logger
	Debug bool
}

type Session struct {
	client  *http.Client
	ua      string
	timeout time.Duration
	limiter *rate.Limiter
	log     logger.Logger
	debug   bool
}

// Page is a fully read response.
type Page struct {
	// URL is the final URL after redirects.
	URL    *url.URL
	Status int
	Body   []byte
}

// Landed reports whether the page ended in the account area.
func (p *Page) Landed() bool {
	return Landed(p.URL)
}

// Landed reports whether u contains AccountMarker. Login and claim
// outcomes are decided by this test alone.
func Landed(u *url.URL) bool {
	if u == nil {
		return false
	}
	return strings.Contains(u.String(), AccountMarker)
}

func New(opts Options) (*Session, error) {
	client, err := newHTTPClient(opts.Proxy)
	if err != nil {
		return nil, err
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}
	client.Jar = jar

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	limit := rate.Inf
	if opts.Rate > 0 {
		limit = rate.Limit(opts.Rate)
	}
	log := opts.Log
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Session{
		client:  client,
		ua:      ResolveUserAgent(opts.UserAgent),
		timeout: timeout,
		limiter: rate.NewLimiter(limit, 1),
		log:     log,
		debug:   opts.Debug,
	}, nil
}

// SetCookies seeds the jar, e.g. with cookies imported from a browser.
func (s *Session) SetCookies(u *url.URL, cookies []*http.Cookie) {
	s.client.Jar.SetCookies(u, cookies)
}

// Cookies returns the cookies the jar would send to u.
func (s *Session) Cookies(u *url.URL) []*http.Cookie {
	return s.client.Jar.Cookies(u)
}

// Get fetches rawURL and reads the whole body.
func (s *Session) Get(ctx context.Context, rawURL string) (*Page, error) {
	return s.page(ctx, http.MethodGet, rawURL, nil)
}

// PostForm submits form as application/x-www-form-urlencoded, following
// redirects, and reads the final body.
func (s *Session) PostForm(ctx context.Context, rawURL string, form url.Values) (*Page, error) {
	return s.page(ctx, http.MethodPost, rawURL, form)
}

func (s *Session) page(ctx context.Context, method, rawURL string, form url.Values) (*Page, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.do(ctx, method, rawURL, form)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rawURL, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: resp.Request.URL.String(), Code: resp.StatusCode}
	}
	return &Page{URL: resp.Request.URL, Status: resp.StatusCode, Body: body}, nil
}

// Stream issues a GET and hands back the open response. The caller must
// close the body. Non-200 responses are closed and returned as *StatusError.
func (s *Session) Stream(ctx context.Context, rawURL string) (*http.Response, error) {
	resp, err := s.do(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &StatusError{URL: resp.Request.URL.String(), Code: resp.StatusCode}
	}
	return resp, nil
}

func (s *Session) do(ctx context.Context, method, rawURL string, form url.Values) (*http.Response, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set(userAgentKey, s.ua)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if s.debug {
		s.log.Info("%s %s", method, rawURL)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	if s.debug {
		s.log.Info("%s %s -> %d %s", method, rawURL, resp.StatusCode, resp.Request.URL)
	}
	return resp, nil
}
