package grabber

import (
	"context"
	"net/url"
	"time"

	"github.com/packtgrab/packtgrab/internal/captcha"
	"github.com/packtgrab/packtgrab/internal/markup"
	"github.com/packtgrab/packtgrab/internal/metrics"
)

// Claim solves the free-learning reCAPTCHA and submits the claim form.
// The session must already be logged in.
func (g *Grabber) Claim(ctx context.Context) (err error) {
	defer g.observe(metrics.StageClaim, time.Now(), &err)
	return g.claim(ctx)
}

func (g *Grabber) claim(ctx context.Context) error {
	solver, err := g.captchaSolver()
	if err != nil {
		return err
	}

	page, err := g.sess.Get(ctx, g.FreeLearningURL())
	if err != nil {
		return err
	}
	siteKey, err := markup.SiteKey(page.Body)
	if err != nil {
		return err
	}
	action, err := markup.ClaimAction(page.Body)
	if err != nil {
		return err
	}
	target, err := g.resolve(action)
	if err != nil {
		return err
	}

	token, err := solver.Solve(ctx, captcha.Task{
		WebsiteURL: g.FreeLearningURL(),
		WebsiteKey: siteKey,
	})
	if err != nil {
		return err
	}
	g.log.Info("Captcha solved, submitting claim")

	res, err := g.sess.PostForm(ctx, target, url.Values{"g-recaptcha-response": {token}})
	if err != nil {
		return err
	}
	if !res.Landed() {
		return ErrClaimFailed
	}
	return nil
}

func (g *Grabber) captchaSolver() (Solver, error) {
	if g.solver != nil {
		return g.solver, nil
	}
	key, err := g.cfg.AntiCaptchaKey()
	if err != nil {
		return nil, err
	}
	opts := append([]captcha.Option{captcha.WithLogger(g.log)}, g.captchaOpt...)
	return captcha.NewClient(key, opts...), nil
}
