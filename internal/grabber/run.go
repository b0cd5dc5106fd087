package grabber

import (
	"context"
	"fmt"
	"time"

	"github.com/packtgrab/packtgrab/internal/metrics"
	"github.com/packtgrab/packtgrab/internal/notify"
)

// RunRequest selects the stages of one grab run.
type RunRequest struct {
	Claim bool
	// Download is nil when no download was requested.
	Download *DownloadRequest
	// Notifier is nil when no notification was requested.
	Notifier notify.Notifier
	// ProbeSession checks for a live session before submitting the login
	// form. Set it when the jar was seeded with browser cookies.
	ProbeSession bool
}

// Report summarizes a run.
type Report struct {
	Title         string
	LoggedIn      bool
	SessionReused bool
	Claimed       bool
	Download      *DownloadResult
	// Message is the follow-up notification text, empty when none applies.
	Message string
}

// Run executes the requested stages in order: title notification, login,
// claim, download, follow-up notification. Stage failures are logged and
// reflected in the report; none aborts the run.
func (g *Grabber) Run(ctx context.Context, req RunRequest) Report {
	var rep Report

	if req.Notifier != nil {
		title, err := g.FreeTitle(ctx)
		if err != nil {
			g.log.Error("Could not read today's free title: %v", err)
		}
		rep.Title = title
		g.notify(ctx, req.Notifier, fmt.Sprintf(notify.TitleFormat, title), "Notification")
	}

	if !req.Claim && req.Download == nil {
		return rep
	}

	if req.ProbeSession && g.SessionAlive(ctx) {
		g.log.Info("Browser session is still valid, skipping login")
		g.metrics.Stage(metrics.StageLogin, metrics.ResultSkipped)
		rep.LoggedIn, rep.SessionReused = true, true
	} else if err := g.Login(ctx); err != nil {
		g.log.Error("Login Failed. Check with your username and password configuration: %v", err)
		rep.Message = notify.ClaimFailed
	} else {
		g.log.Info("Successfully Login into PacktPub")
		rep.LoggedIn = true
	}

	if rep.LoggedIn {
		if req.Claim {
			g.claimStage(ctx, &rep)
		}
		if req.Download != nil {
			res, err := g.Download(ctx, *req.Download)
			if err != nil {
				g.log.Error("Download failed: %v", err)
			} else {
				g.log.Info("Downloaded %d of %d books (%d skipped, %d failed, %d uploaded)",
					len(res.Downloaded), res.Selected, res.Skipped, res.Failed, res.Uploaded)
			}
			rep.Download = &res
		}
	}

	if req.Notifier != nil && rep.Message != "" {
		g.notify(ctx, req.Notifier, rep.Message, "Additional message about claim or download")
	}
	return rep
}

func (g *Grabber) claimStage(ctx context.Context, rep *Report) {
	if err := g.Claim(ctx); err != nil {
		g.log.Error("%s: %v", notify.ClaimFailed, err)
		rep.Message = notify.ClaimFailed
		return
	}
	rep.Claimed = true
	if rep.Title == "" {
		title, err := g.FreeTitle(ctx)
		if err != nil {
			g.log.Warning("Could not read today's free title: %v", err)
		}
		rep.Title = title
	}
	rep.Message = fmt.Sprintf(notify.ClaimedFormat, rep.Title)
	g.log.Info("%s", rep.Message)
}

func (g *Grabber) notify(ctx context.Context, n notify.Notifier, msg, what string) {
	start := time.Now()
	err := n.Notify(ctx, msg)
	g.metrics.Observe(metrics.StageNotify, start, err)
	if err != nil {
		g.log.Error("%s NOT sent to %s: %v", what, n.Channel(), err)
		return
	}
	g.log.Info("%s sent to %s", what, n.Channel())
}
