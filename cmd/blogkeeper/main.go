package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/blogkeeper/cmd/blogkeeper/commands"
	kerrors "git.home.luguber.info/inful/blogkeeper/internal/errors"
	"git.home.luguber.info/inful/blogkeeper/internal/version"
)

func main() {
	var cli commands.CLI
	ctx := kong.Parse(&cli,
		kong.Name("blogkeeper"),
		kong.Description("Keeps a Hugo blog healthy: lints posts and site config, tracks content scans, verifies links, and runs a local authoring server with live reload."),
		kong.UsageOnError(),
		kong.Vars{
			"version": fmt.Sprintf("blogkeeper %s (commit %s, built %s)",
				version.Version, version.GitCommit, version.BuildTime),
		},
	)

	if err := ctx.Run(&commands.Global{Logger: slog.Default()}); err != nil {
		adapter := kerrors.NewCLIErrorAdapter(cli.Verbose, slog.Default())
		adapter.Report(err)
		os.Exit(adapter.ExitCodeFor(err))
	}
}
