package cmd

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/packtgrab/packtgrab/common"
	"github.com/packtgrab/packtgrab/internal/captcha"
	"github.com/packtgrab/packtgrab/internal/cookies"
	"github.com/packtgrab/packtgrab/internal/grabber"
	"github.com/packtgrab/packtgrab/internal/metrics"
	"github.com/packtgrab/packtgrab/internal/session"
	"github.com/packtgrab/packtgrab/pkg/config"
	"github.com/packtgrab/packtgrab/pkg/logger"
	"github.com/urfave/cli"
)

// cookieDomain scopes the cookies imported with --cookies.
const cookieDomain = "packtpub.com"

// env is what every command builds before talking to the site.
type env struct {
	log         logger.Logger
	cfg         *config.Config
	sess        *session.Session
	metrics     *metrics.Recorder
	metricsFile string
	// seeded is set when browser cookies were loaded into the jar.
	seeded bool
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newLogger(ctx *cli.Context) (logger.Logger, error) {
	if path := ctx.String("log"); path != "" {
		return logger.NewFileLogger(path)
	}
	return logger.NewStandardLogger(log.New(os.Stderr, "", 0)), nil
}

func sessionOptions(ctx *cli.Context, l logger.Logger) session.Options {
	return session.Options{
		UserAgent: ctx.String("user-agent"),
		Proxy:     ctx.String("proxy"),
		Timeout:   ctx.Duration("timeout"),
		Log:       l,
		Debug:     os.Getenv(common.DebugEnv) != "",
	}
}

func baseURL(ctx *cli.Context) string {
	if b := ctx.String("base-url"); b != "" {
		return b
	}
	return grabber.DefaultBaseURL
}

// setupEnv loads the configuration and builds the session. A configuration
// that cannot be read is returned as an error; everything else degrades.
func setupEnv(ctx *cli.Context) (*env, error) {
	l, err := newLogger(ctx)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(config.ConfigPath(ctx.String("config")))
	if err != nil {
		l.Close()
		return nil, err
	}
	sess, err := session.New(sessionOptions(ctx, l))
	if err != nil {
		l.Close()
		return nil, err
	}
	e := &env{log: l, cfg: cfg, sess: sess}

	if path := ctx.String("cookies"); path != "" {
		e.seeded = e.importCookies(path, baseURL(ctx))
	}
	if path := ctx.String("metrics-file"); path != "" {
		e.metrics = metrics.New()
		e.metricsFile = path
	}
	return e, nil
}

func (e *env) importCookies(path, base string) bool {
	jar, format, err := cookies.Import(path, cookieDomain)
	if err != nil {
		e.log.Warning("Could not import cookies from %s: %v", path, err)
		return false
	}
	if len(jar) == 0 {
		e.log.Warning("No %s cookies found in %s", cookieDomain, path)
		return false
	}
	u, err := url.Parse(base)
	if err != nil {
		e.log.Warning("Bad base URL %q: %v", base, err)
		return false
	}
	// Cookies are stored against the site URL; the jar applies its own
	// domain rules from there.
	for _, c := range jar {
		c.Domain = ""
	}
	e.sess.SetCookies(u, jar)
	e.log.Info("Imported %d cookies from %s (%s)", len(jar), path, format)
	return true
}

func (e *env) grabber(ctx *cli.Context, opts grabber.Options) (*grabber.Grabber, error) {
	opts.BaseURL = baseURL(ctx)
	opts.Session = e.sess
	opts.Config = e.cfg
	opts.Log = e.log
	opts.Metrics = e.metrics
	sopts := sessionOptions(ctx, e.log)
	opts.NewSession = func() (*session.Session, error) {
		return session.New(sopts)
	}
	return grabber.New(opts)
}

func captchaOptions(timeout time.Duration) []captcha.Option {
	policy := captcha.DefaultPollPolicy()
	if timeout > 0 {
		policy.Timeout = timeout
	}
	return []captcha.Option{captcha.WithPollPolicy(policy)}
}

// Close writes the metrics textfile, if requested, and closes the log.
func (e *env) Close() {
	if e.metrics != nil {
		if err := e.metrics.WriteTextfile(e.metricsFile, time.Now()); err != nil {
			e.log.Error("Could not write metrics to %s: %v", e.metricsFile, err)
		}
	}
	if err := e.log.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "packtgrab: close log: %v\n", err)
	}
}
