package grabber

import (
	"context"
	"time"

	"github.com/packtgrab/packtgrab/internal/markup"
	"github.com/packtgrab/packtgrab/internal/metrics"
)

// FreeTitle looks up today's free title with a fresh, cookie-less session.
func (g *Grabber) FreeTitle(ctx context.Context) (title string, err error) {
	defer g.observe(metrics.StageTitle, time.Now(), &err)

	sess, err := g.newSession()
	if err != nil {
		return "", err
	}
	page, err := sess.Get(ctx, g.FreeLearningURL())
	if err != nil {
		return "", err
	}
	title, err = markup.FreeTitle(page.Body)
	if err != nil {
		return "", err
	}
	g.log.Info("Today's free book is %s", title)
	return title, nil
}
