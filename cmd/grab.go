package cmd

import (
	"fmt"

	cmdcommon "github.com/packtgrab/packtgrab/cmd/common"
	"github.com/packtgrab/packtgrab/common"
	"github.com/packtgrab/packtgrab/internal/grabber"
	"github.com/packtgrab/packtgrab/internal/notify"
	"github.com/packtgrab/packtgrab/internal/upload"
	"github.com/spf13/afero"
	"github.com/urfave/cli"
)

// grabChoices holds the validated enumerated flags of a grab run.
type grabChoices struct {
	format  common.BookFormat
	target  common.UploadTarget
	channel common.NotifyChannel
}

// parseGrabChoices validates the enumerated flags before any I/O happens.
func parseGrabChoices(ctx *cli.Context) (grabChoices, error) {
	var (
		c   grabChoices
		err error
	)
	if c.format, err = common.ParseBookFormat(ctx.String("type")); err != nil {
		return c, err
	}
	if c.target, err = common.ParseUploadTarget(ctx.String("upload")); err != nil {
		return c, err
	}
	if c.channel, err = common.ParseNotifyChannel(ctx.String("notify")); err != nil {
		return c, err
	}
	if ctx.IsSet("download") && ctx.Int("download") < 0 {
		return c, fmt.Errorf("invalid download count %d", ctx.Int("download"))
	}
	return c, nil
}

func grab(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	choices, err := parseGrabChoices(ctx)
	if err != nil {
		return err
	}
	claim := ctx.Bool("claim")
	download := ctx.IsSet("download")
	if !claim && !download && choices.channel == "" {
		if ctx.Command.Name == "" {
			return cmdcommon.Help(ctx)
		}
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}

	e, err := setupEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	var progress grabber.Progress
	if ctx.Bool("progress") {
		p := newBarProgress()
		defer p.Wait()
		progress = p
	}
	// Downloads and uploads share one filesystem.
	fsys := afero.NewOsFs()
	g, err := e.grabber(ctx, grabber.Options{
		CaptchaOptions: captchaOptions(ctx.Duration("captcha-timeout")),
		Fs:             fsys,
		Progress:       progress,
	})
	if err != nil {
		return err
	}

	req := grabber.RunRequest{Claim: claim, ProbeSession: e.seeded}
	if choices.channel != "" {
		n, err := notify.New(choices.channel, e.cfg)
		if err != nil {
			e.log.Error("%s notification disabled: %v", choices.channel, err)
		} else {
			req.Notifier = n
		}
	}
	if download {
		dl := &grabber.DownloadRequest{
			Count:     ctx.Int("download"),
			Format:    choices.format,
			Dir:       ctx.String("ddir"),
			UploadDir: ctx.String("udir"),
		}
		if choices.target != "" {
			up, err := upload.New(choices.target, e.cfg, upload.Options{Fs: fsys})
			if err != nil {
				e.log.Error("%s upload disabled: %v", choices.target, err)
			} else {
				dl.Uploader = up
			}
		}
		req.Download = dl
	}

	ctxRun, cancel := signalContext()
	defer cancel()
	g.Run(ctxRun, req)
	return nil
}
