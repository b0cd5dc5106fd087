// Package grabber runs the claim pipeline against the publisher's site:
// login, captcha-gated claim, owned-book download with upload, title
// lookup and notification. Every stage takes the shared session and
// configuration explicitly.
package grabber

import (
	"context"
	"errors"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/packtgrab/packtgrab/internal/captcha"
	"github.com/packtgrab/packtgrab/internal/metrics"
	"github.com/packtgrab/packtgrab/internal/session"
	"github.com/packtgrab/packtgrab/pkg/config"
	"github.com/packtgrab/packtgrab/pkg/logger"
	"github.com/spf13/afero"
)

// DefaultBaseURL is the publisher's site root.
const DefaultBaseURL = "https://www.packtpub.com"

const (
	loginPath        = "/login"
	freeLearningPath = "/packt/offers/free-learning"
	myBooksPath      = "/account/my-ebooks"
)

var (
	// ErrLoginFailed means the login form was accepted but the final URL
	// did not land in the account area.
	ErrLoginFailed = errors.New("login failed")
	// ErrClaimFailed means the claim post did not land in the account area.
	ErrClaimFailed = errors.New("claim failed")
)

// Solver turns a reCAPTCHA challenge into a response token.
type Solver interface {
	Solve(ctx context.Context, task captcha.Task) (string, error)
}

// Progress wraps a download body so its progress can be shown. total is
// -1 when the size is unknown. Closing the returned reader ends the display.
type Progress interface {
	Track(name string, total int64, r io.Reader) io.ReadCloser
}

type Options struct {
	// BaseURL overrides DefaultBaseURL.
	BaseURL string
	Session *session.Session
	Config  *config.Config
	Log     logger.Logger
	// Solver overrides the anti-captcha client built from Config.
	Solver Solver
	// CaptchaOptions are passed to captcha.NewClient when Solver is nil.
	CaptchaOptions []captcha.Option
	// Fs receives downloads. Defaults to the OS filesystem.
	Fs       afero.Fs
	Metrics  *metrics.Recorder
	Progress Progress
	// NewSession builds the cookie-less session used for title lookups.
	NewSession func() (*session.Session, error)
}

type Grabber struct {
	base       *url.URL
	sess       *session.Session
	cfg        *config.Config
	log        logger.Logger
	solver     Solver
	captchaOpt []captcha.Option
	fs         afero.Fs
	metrics    *metrics.Recorder
	progress   Progress
	newSession func() (*session.Session, error)
}

func New(opts Options) (*Grabber, error) {
	raw := opts.BaseURL
	if raw == "" {
		raw = DefaultBaseURL
	}
	base, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, err
	}
	if opts.Session == nil {
		return nil, errors.New("grabber: nil session")
	}
	if opts.Config == nil {
		return nil, errors.New("grabber: nil config")
	}
	g := &Grabber{
		base:       base,
		sess:       opts.Session,
		cfg:        opts.Config,
		log:        opts.Log,
		solver:     opts.Solver,
		captchaOpt: opts.CaptchaOptions,
		fs:         opts.Fs,
		metrics:    opts.Metrics,
		progress:   opts.Progress,
		newSession: opts.NewSession,
	}
	if g.log == nil {
		g.log = logger.NewNopLogger()
	}
	if g.fs == nil {
		g.fs = afero.NewOsFs()
	}
	if g.newSession == nil {
		g.newSession = func() (*session.Session, error) {
			return session.New(session.Options{})
		}
	}
	return g, nil
}

func (g *Grabber) url(path string) string {
	return g.base.String() + path
}

// resolve turns a link scraped from a page into an absolute URL.
func (g *Grabber) resolve(ref string) (string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	return g.base.ResolveReference(u).String(), nil
}

// LoginURL, FreeLearningURL and MyBooksURL are the pages the pipeline visits.
func (g *Grabber) LoginURL() string        { return g.url(loginPath) }
func (g *Grabber) FreeLearningURL() string { return g.url(freeLearningPath) }
func (g *Grabber) MyBooksURL() string      { return g.url(myBooksPath) }

// observe records the stage outcome held in *err once the stage returns.
func (g *Grabber) observe(stage string, start time.Time, err *error) {
	g.metrics.Observe(stage, start, *err)
}
