package cmd

import (
	"fmt"
	"os"

	cmdcommon "github.com/packtgrab/packtgrab/cmd/common"
	"github.com/packtgrab/packtgrab/internal/grabber"
	"github.com/urfave/cli"
)

func library(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	e, err := setupEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	g, err := e.grabber(ctx, grabber.Options{})
	if err != nil {
		return err
	}
	ctxRun, cancel := signalContext()
	defer cancel()

	if !(e.seeded && g.SessionAlive(ctxRun)) {
		if err := g.Login(ctxRun); err != nil {
			cmdcommon.PrintRuntimeErr(ctx, "library", "login", err)
			return nil
		}
	}
	books, err := g.Library(ctxRun)
	if err != nil {
		cmdcommon.PrintRuntimeErr(ctx, "library", "list", err)
		return nil
	}
	entries := grabber.Entries(books)

	if path := ctx.String("csv"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			cmdcommon.PrintRuntimeErr(ctx, "library", "create_csv", err)
			return nil
		}
		defer f.Close()
		if err := grabber.WriteCSV(f, entries); err != nil {
			cmdcommon.PrintRuntimeErr(ctx, "library", "write_csv", err)
			return nil
		}
		fmt.Printf("Wrote %d books to %s\n", len(entries), path)
		return nil
	}

	if len(entries) == 0 {
		fmt.Println("No books found in your library.")
		return nil
	}
	rows := make([][]string, 0, len(entries))
	for _, en := range entries {
		rows = append(rows, []string{en.ID, en.Title, en.Formats})
	}
	cmdcommon.PrintTable(os.Stdout, []string{"ID", "Title", "Formats"}, []int{8, 52, 16}, rows)
	return nil
}
