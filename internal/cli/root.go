// Package cli wires easygit's cobra commands.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/sprite-ai/easygit/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "easygit",
	Short: "Browse GitHub commit history and revert commits from the terminal",
	Long: `easygit lists your GitHub repositories, their recent commits and the
per-file diffs of each commit, and can revert a commit on its remote branch.

Run without a subcommand to open the interactive browser.

Examples:
  easygit                                 # interactive browser
  easygit login                           # store an access token
  easygit commits octocat/hello --branch main
  easygit revert octocat/hello 1a2b3c4 --yes`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	RunE:          runBrowse,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default "+config.DefaultPath()+")")
	pf.String("store-backend", "", "token store: file, redis or memory")
	pf.String("api-url", "", "GitHub API base URL")
	pf.String("local-repo", "", "local checkout used as clone reference for reverts (remembered)")
	pf.Bool("debug", false, "log gateway requests to stderr")

	rootCmd.AddCommand(
		browseCmd,
		loginCmd,
		logoutCmd,
		reposCmd,
		commitsCmd,
		showCmd,
		revertCmd,
		serveCmd,
		versionCmd,
	)
}

// Execute runs the root command. An interrupt cancels the command's context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}
