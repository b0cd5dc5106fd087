package cmd

import (
	"github.com/packtgrab/packtgrab/internal/captcha"
	"github.com/packtgrab/packtgrab/internal/session"
	"github.com/urfave/cli"
)

var (
	configFlag = cli.StringFlag{
		Name:  "config",
		Usage: "credentials file, JSON or YAML (default: credential.json or $PACKTGRAB_CONFIG)",
	}
	logFlag = cli.StringFlag{
		Name:  "log",
		Usage: "append log entries to `FILE` instead of the terminal",
	}
	proxyFlag = cli.StringFlag{
		Name:  "proxy",
		Usage: "route requests through an http, https or socks5 proxy `URL`",
	}
	userAgentFlag = cli.StringFlag{
		Name:  "user-agent",
		Usage: "user agent name (default, firefox, chrome) or full string",
	}
	timeoutFlag = cli.DurationFlag{
		Name:  "timeout",
		Usage: "per-page request timeout",
		Value: session.DefaultTimeout,
	}
	cookiesFlag = cli.StringFlag{
		Name:  "cookies",
		Usage: "reuse a logged-in session from a Firefox/Chrome cookie database or Netscape cookies.txt `FILE`",
	}
	metricsFlag = cli.StringFlag{
		Name:  "metrics-file",
		Usage: "write Prometheus textfile metrics to `FILE` at exit",
	}
	baseURLFlag = cli.StringFlag{
		Name:   "base-url",
		Hidden: true,
	}

	sessionFlags = []cli.Flag{configFlag, logFlag, proxyFlag, userAgentFlag, timeoutFlag, baseURLFlag}

	grabFlags = append([]cli.Flag{
		cli.BoolFlag{
			Name:  "claim, c",
			Usage: "claim today's free book",
		},
		cli.IntFlag{
			Name:  "download, d",
			Usage: "download up to `N` owned books",
		},
		cli.StringFlag{
			Name:  "type, t",
			Usage: "book format to download: pdf or epub",
			Value: "pdf",
		},
		cli.StringFlag{
			Name:  "notify, n",
			Usage: "send a notification: ifttt or mailgun",
		},
		cli.StringFlag{
			Name:  "ddir",
			Usage: "download directory",
			Value: "./",
		},
		cli.StringFlag{
			Name:  "upload, u",
			Usage: "upload downloaded books: dropbox, ftp or sftp",
		},
		cli.StringFlag{
			Name:  "udir",
			Usage: "remote upload directory",
			Value: "/",
		},
		cli.DurationFlag{
			Name:  "captcha-timeout",
			Usage: "give up waiting for the captcha solver after this long",
			Value: captcha.DEF_SOLVE_TIMEOUT,
		},
		cli.BoolFlag{
			Name:  "progress",
			Usage: "show a progress bar per download",
		},
		cookiesFlag,
		metricsFlag,
	}, sessionFlags...)

	libraryFlags = append([]cli.Flag{
		cli.StringFlag{
			Name:  "csv",
			Usage: "write the listing to `FILE` as CSV",
		},
		cookiesFlag,
	}, sessionFlags...)

	titleFlags = []cli.Flag{logFlag, proxyFlag, userAgentFlag, timeoutFlag, baseURLFlag}
)
