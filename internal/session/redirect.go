package session

import (
	"errors"
	"fmt"
	"net/http"
)

// DefaultMaxRedirects matches Go's default http.Client behavior.
const DefaultMaxRedirects = 10

var (
	ErrTooManyRedirects      = errors.New("redirect loop detected")
	ErrCrossProtocolRedirect = errors.New("cross-protocol redirect not supported")
)

// safeHeaders survive a cross-origin redirect. Everything else set on the
// request is stripped; cookies are re-attached by the jar per host.
var safeHeaders = map[string]bool{
	"User-Agent":      true,
	"Accept":          true,
	"Accept-Language": true,
	"Accept-Encoding": true,
}

// RedirectPolicy returns a CheckRedirect function that caps the number of
// hops, refuses redirects off http/https, and strips non-safe headers
// when the host changes.
func RedirectPolicy(maxRedirects int) func(*http.Request, []*http.Request) error {
	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return fmt.Errorf("%w: exceeded %d hops (last URL: %s)",
				ErrTooManyRedirects, maxRedirects, via[len(via)-1].URL)
		}
		if len(via) == 0 {
			return nil
		}
		prev := via[len(via)-1]
		if isHTTPScheme(prev.URL.Scheme) && !isHTTPScheme(req.URL.Scheme) {
			return fmt.Errorf("%w: %s -> %s",
				ErrCrossProtocolRedirect, prev.URL.Scheme, req.URL.Scheme)
		}
		if prev.URL.Host != req.URL.Host {
			for key := range req.Header {
				if !safeHeaders[http.CanonicalHeaderKey(key)] {
					req.Header.Del(key)
				}
			}
		}
		return nil
	}
}

func isHTTPScheme(scheme string) bool {
	return scheme == "http" || scheme == "https"
}
