package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in with a GitHub personal access token",
	Long: `Validate a personal access token and store it for later sessions.

The token needs the repo scope to list private repositories and to push
reverts. When stdin is not a terminal the token is read from it:

  echo "$GITHUB_TOKEN" | easygit login`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored access token",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

func runLogin(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd, logQuiet)
	if err != nil {
		return err
	}
	defer e.Close()

	token, err := readToken(cmd.InOrStdin())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), callTimeout)
	defer cancel()
	user, err := e.gateway.ValidateToken(ctx, token)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	e.store.Save(token)
	e.logger.Printf("logged in as %s", user.Login)

	fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", user.Login)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd, logQuiet)
	if err != nil {
		return err
	}
	defer e.Close()

	e.store.Clear()
	fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
	return nil
}

// readToken prompts on a terminal and reads a single line otherwise.
func readToken(in io.Reader) (string, error) {
	if isTerminal(in) {
		var token string
		err := huh.NewInput().
			Title("GitHub personal access token").
			Description("Create one at https://github.com/settings/tokens (repo scope)").
			EchoMode(huh.EchoModePassword).
			Value(&token).
			Validate(requireToken).
			Run()
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(token), nil
	}

	data, err := io.ReadAll(io.LimitReader(in, 4096))
	if err != nil {
		return "", fmt.Errorf("reading token: %w", err)
	}
	line, _, _ := strings.Cut(string(data), "\n")
	token := strings.TrimSpace(line)
	if err := requireToken(token); err != nil {
		return "", err
	}
	return token, nil
}

func requireToken(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("token is required")
	}
	return nil
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
