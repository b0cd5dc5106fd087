// Package cmd implements the packtgrab command line.
package cmd

import (
	"fmt"
	"runtime"

	cmdcommon "github.com/packtgrab/packtgrab/cmd/common"
	"github.com/urfave/cli"
)

type BuildArgs struct {
	Version   string
	BuildType string
	Date      string
	Commit    string
}

func Execute(args []string, bArgs BuildArgs) error {
	app := cli.App{
		Name:                  "packtgrab",
		HelpName:              "packtgrab",
		Usage:                 "claims the daily free e-book from packtpub.com",
		Version:               fmt.Sprintf("%s-%s", bArgs.Version, bArgs.BuildType),
		UsageText:             "packtgrab [command] [flags...]",
		Description:           DESCRIPTION,
		CustomAppHelpTemplate: HELP_TEMPL,
		OnUsageError:          cmdcommon.UsageErrorCallback,
		Commands: []cli.Command{
			{
				Name:                   "grab",
				Aliases:                []string{"g"},
				Usage:                  "claim, download, upload and notify (default)",
				Description:            GrabDescription,
				CustomHelpTemplate:     CMD_HELP_TEMPL,
				OnUsageError:           cmdcommon.UsageErrorCallback,
				Action:                 grab,
				Flags:                  grabFlags,
				UseShortOptionHandling: true,
			},
			{
				Name:               "library",
				Aliases:            []string{"l"},
				Usage:              "list the books owned by the account",
				Description:        LibraryDescription,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				OnUsageError:       cmdcommon.UsageErrorCallback,
				Action:             library,
				Flags:              libraryFlags,
			},
			{
				Name:               "title",
				Aliases:            []string{"t"},
				Usage:              "print today's free title",
				Description:        TitleDescription,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				OnUsageError:       cmdcommon.UsageErrorCallback,
				Action:             title,
				Flags:              titleFlags,
			},
			{
				Name:               "secret",
				Usage:              "store or delete a secret in the OS keyring",
				Description:        SecretDescription,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Subcommands: []cli.Command{
					{
						Name:      "set",
						Usage:     "store a secret",
						ArgsUsage: "<pass|anti-captcha|dropbox> [value]",
						Action:    secretSet,
					},
					{
						Name:      "delete",
						Usage:     "remove a stored secret",
						ArgsUsage: "<pass|anti-captcha|dropbox>",
						Action:    secretDelete,
					},
				},
			},
			{
				Name:    "help",
				Aliases: []string{"h"},
				Usage:   "prints the help message",
				Action:  cmdcommon.Help,
			},
			{
				Name:               "version",
				Aliases:            []string{"v"},
				Usage:              "prints installed version of packtgrab",
				UsageText:          " ",
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Action:             cmdcommon.GetVersion,
			},
		},
		Action:                 grab,
		Flags:                  grabFlags,
		UseShortOptionHandling: true,
		HideHelp:               true,
		HideVersion:            true,
	}
	cmdcommon.VersionCmdStr = fmt.Sprintf("%s %s (%s_%s)\nBuild: %s=%s\n",
		app.Name,
		app.Version,
		runtime.GOOS,
		runtime.GOARCH,
		bArgs.Date, bArgs.Commit,
	)
	return app.Run(args)
}
