package grabber

import (
	"context"
	"net/url"
	"time"

	"github.com/packtgrab/packtgrab/internal/markup"
	"github.com/packtgrab/packtgrab/internal/metrics"
)

// Login submits the account login form. Success is decided only by the
// final URL landing in the account area. It is never retried.
func (g *Grabber) Login(ctx context.Context) (err error) {
	defer g.observe(metrics.StageLogin, time.Now(), &err)
	return g.login(ctx)
}

func (g *Grabber) login(ctx context.Context) error {
	name, pass, err := g.cfg.Login()
	if err != nil {
		return err
	}

	page, err := g.sess.Get(ctx, g.LoginURL())
	if err != nil {
		return err
	}
	form, err := markup.ParseLoginForm(page.Body)
	if err != nil {
		return err
	}

	res, err := g.sess.PostForm(ctx, g.LoginURL(), url.Values{
		"name":          {name},
		"pass":          {pass},
		"op":            {"Log in"},
		"form_build_id": {form.BuildID},
		"form_id":       {form.FormID},
	})
	if err != nil {
		return err
	}
	if !res.Landed() {
		return ErrLoginFailed
	}
	return nil
}

// SessionAlive reports whether the session already reaches the owned-books
// listing, e.g. because it was seeded with browser cookies.
func (g *Grabber) SessionAlive(ctx context.Context) bool {
	page, err := g.sess.Get(ctx, g.MyBooksURL())
	if err != nil || !page.Landed() {
		return false
	}
	_, err = markup.OwnedBooks(page.Body)
	return err == nil
}
