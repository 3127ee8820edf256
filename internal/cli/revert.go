package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"github.com/sprite-ai/easygit/internal/model"
	"github.com/sprite-ai/easygit/internal/revert"
)

const revertTimeout = 5 * time.Minute

var revertCmd = &cobra.Command{
	Use:   "revert <owner/repo> <sha>",
	Short: "Revert a commit on its remote branch",
	Long: `Clone the branch, commit the inverse of <sha> on top of it and push the
result. The branch defaults to the repository's default branch.

Asks for confirmation unless --yes is given; without a terminal --yes is
required.`,
	Args: cobra.ExactArgs(2),
	RunE: runRevert,
}

func init() {
	revertCmd.Flags().StringP("branch", "b", "", "branch to revert on (default: the repository's default branch)")
	revertCmd.Flags().BoolP("yes", "y", false, "skip the confirmation prompt")
}

func runRevert(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd, logQuiet)
	if err != nil {
		return err
	}
	defer e.Close()

	sess, err := e.session(cmd.Context())
	if err != nil {
		return err
	}
	repo, err := e.findRepo(cmd.Context(), sess, args[0])
	if err != nil {
		return err
	}
	branch, _ := cmd.Flags().GetString("branch")
	if branch == "" {
		branch = repo.DefaultBranch
	}
	sha := args[1]
	out := cmd.OutOrStdout()

	if yes, _ := cmd.Flags().GetBool("yes"); !yes {
		if !isTerminal(cmd.InOrStdin()) {
			return errors.New("refusing to revert without confirmation, pass --yes")
		}
		confirmed := false
		err := huh.NewConfirm().
			Title(fmt.Sprintf("Revert %s on %s (%s)?", model.ShortSHA(sha), repo.FullName, branch)).
			Description("A revert commit will be pushed to the remote branch.").
			Affirmative("Revert").
			Negative("Cancel").
			Value(&confirmed).
			Run()
		if err != nil {
			return err
		}
		if !confirmed {
			fmt.Fprintln(out, "Cancelled.")
			return nil
		}
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), revertTimeout)
	defer cancel()
	diag, err := e.reverter().RevertRemoteCommit(ctx, revert.Request{
		Owner:  repo.Owner(),
		Repo:   repo.Name,
		SHA:    sha,
		Branch: branch,
		Token:  sess.Token,
		Login:  sess.Login,
	})
	if err != nil {
		return err
	}
	e.logger.Print(diag)

	fmt.Fprintf(out, "Reverted %s on %s (%s)\n", model.ShortSHA(sha), repo.FullName, branch)
	return nil
}
