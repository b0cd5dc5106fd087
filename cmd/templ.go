package cmd

const HELP_TEMPL = `Usage: {{if .UsageText}}{{.UsageText}}{{else}}{{.HelpName}} {{if .VisibleFlags}}[global options]{{end}}{{if .Commands}} command [command options]{{end}} {{if .ArgsUsage}}{{.ArgsUsage}}{{else}}[arguments...]{{end}}{{end}}
{{.Description}}{{if .VisibleCommands}}
Commands:{{range .VisibleCategories}}{{if .Name}}

{{.Name}}:{{range .VisibleCommands}}
  {{join .Names ", "}}{{"\t"}}{{.Usage}}{{end}}{{else}}{{range .VisibleCommands}}
{{"\t"}}{{index .Names 0}}{{"\t:\t"}}{{.Usage}}{{end}}{{end}}{{end}}{{end}}{{if .VisibleFlags}}

Flags:{{range .VisibleFlags}}
  {{.}}{{end}}{{end}}

Use "{{.HelpName}} help <command>" for more information about any command.

`

const CMD_HELP_TEMPL = `{{if .Description}}{{.Description}}{{else}}{{.HelpName}} - {{.Usage}}

{{end}}Usage:
        {{.HelpName}} {{if .UsageText}}{{.UsageText}}{{else}}[arguments...]{{end}}{{if .VisibleFlags}}

Supported Flags:{{range .VisibleFlags}}
  {{.}}{{end}}{{end}}

`

const DESCRIPTION = `
packtgrab logs into your packtpub.com account, claims the free
e-book of the day, downloads your books and optionally copies
them to Dropbox, FTP or SFTP. It can announce the day's title
through an IFTTT webhook or a Mailgun email.

Credentials are read from credential.json (or YAML). Secrets
may also come from the environment or the OS keyring.
`

const (
	GrabDescription = `The grab command runs the pipeline: notify, login, claim,
download and upload, in that order. Only the stages selected
by flags run.

Example:
        packtgrab -c -n ifttt
        packtgrab grab -c -d 3 -t epub -u dropbox --udir /books/

`
	LibraryDescription = `The library command lists every book owned by the account
with the formats available for download.

Example:
        packtgrab library
        packtgrab library --csv books.csv

`
	TitleDescription = `The title command prints today's free title. It does not
log in.

Example:
        packtgrab title

`
	SecretDescription = `The secret command stores secrets in the OS keyring so they
can be left out of the credentials file. Supported keys are
pass, anti-captcha and dropbox. When no value is given it is
read from standard input.

Example:
        packtgrab secret set anti-captcha
        packtgrab secret delete pass

`
)
