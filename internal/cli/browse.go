package cli

import (
	"github.com/spf13/cobra"
	"github.com/sprite-ai/easygit/internal/credstore"
	"github.com/sprite-ai/easygit/internal/tui"
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Open the interactive browser (default command)",
	Long: `Open the full-screen browser: repositories, commits, changed files and
the diff of the selected file. Right click a commit (or press m) for the
revert / open / copy menu.

A stored token is restored on start; otherwise you are asked to sign in.`,
	Args: cobra.NoArgs,
	RunE: runBrowse,
}

func runBrowse(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd, logFile)
	if err != nil {
		return err
	}
	defer e.Close()

	opts := tui.Options{
		Keybindings: e.cfg.Keybindings,
		Theme:       e.cfg.Theme,
	}
	if w := e.watch(); w != nil {
		defer w.Stop()
		opts.Changes = w.Changes()
	}

	e.logger.Printf("starting browser (store %s, api %s)", e.cfg.Store.Backend, e.cfg.APIURL)
	return tui.Run(e.controller(), opts)
}

// watch follows the token file so a login or logout from another process is
// picked up. Only the file backend can be watched.
func (e *env) watch() *credstore.Watcher {
	fb, ok := e.backend.(*credstore.FileBackend)
	if !ok {
		return nil
	}
	w, err := credstore.NewWatcher(fb.Path(), e.sub("[watch] "))
	if err != nil {
		e.logger.Printf("credential watcher disabled: %v", err)
		return nil
	}
	w.Start()
	return w
}
