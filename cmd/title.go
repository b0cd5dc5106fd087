package cmd

import (
	"fmt"

	cmdcommon "github.com/packtgrab/packtgrab/cmd/common"
	"github.com/packtgrab/packtgrab/internal/grabber"
	"github.com/packtgrab/packtgrab/internal/session"
	"github.com/packtgrab/packtgrab/pkg/config"
	"github.com/urfave/cli"
)

// title needs no credentials file.
func title(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	l, err := newLogger(ctx)
	if err != nil {
		return err
	}
	defer l.Close()

	opts := sessionOptions(ctx, l)
	sess, err := session.New(opts)
	if err != nil {
		return err
	}
	g, err := grabber.New(grabber.Options{
		BaseURL: baseURL(ctx),
		Session: sess,
		Config:  &config.Config{},
		Log:     l,
		NewSession: func() (*session.Session, error) {
			return session.New(opts)
		},
	})
	if err != nil {
		return err
	}

	ctxRun, cancel := signalContext()
	defer cancel()
	t, err := g.FreeTitle(ctxRun)
	if err != nil {
		cmdcommon.PrintRuntimeErr(ctx, "title", "lookup", err)
		return nil
	}
	fmt.Println(t)
	return nil
}
