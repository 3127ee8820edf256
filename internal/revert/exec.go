package revert

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ExecReverter reverts commits by running the git binary in a temporary
// directory. When a local checkout of the repository is known it is used as
// an object reference to avoid a full download.
type ExecReverter struct {
	Git    string
	Author Author
	Logger *log.Logger

	// URL maps owner/repo to a clone URL. Defaults to GitHubURL.
	URL func(owner, repo string) string

	// LocalRepoPath returns a local checkout to borrow objects from, or "".
	LocalRepoPath func() string
}

// NewExecReverter creates a reverter using git from PATH.
func NewExecReverter(author Author, localRepoPath func() string, logger *log.Logger) *ExecReverter {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &ExecReverter{
		Git:           "git",
		Author:        author,
		Logger:        logger,
		URL:           GitHubURL,
		LocalRepoPath: localRepoPath,
	}
}

// RevertRemoteCommit implements Reverter.
func (r *ExecReverter) RevertRemoteCommit(ctx context.Context, req Request) (string, error) {
	if err := req.Validate(); err != nil {
		return "", &ActionError{Op: "revert", Err: err}
	}

	tmp, err := os.MkdirTemp("", "easygit-revert-*")
	if err != nil {
		return "", &ActionError{Op: "clone", Err: err}
	}
	defer os.RemoveAll(tmp)

	url := r.URL
	if url == nil {
		url = GitHubURL
	}
	remote := url(req.Owner, req.Repo)
	auth := authConfig(remote, req.Token)
	author := authorFor(r.Author, req.Login)

	cloneArgs := append(auth, "clone", "--quiet", "--single-branch", "--no-tags", "--branch", req.Branch)
	if ref := r.reference(); ref != "" {
		cloneArgs = append(cloneArgs, "--reference-if-able", ref, "--dissociate")
	}
	cloneArgs = append(cloneArgs, remote, "work")

	r.logf("cloning %s (%s)", remote, req.Branch)
	if _, err := r.git(ctx, tmp, cloneArgs...); err != nil {
		return "", &ActionError{Op: "clone", Err: err}
	}

	work := filepath.Join(tmp, "work")
	identity := []string{"-c", "user.name=" + author.Name, "-c", "user.email=" + author.Email}
	if _, err := r.git(ctx, work, append(identity, "revert", "--no-edit", req.SHA)...); err != nil {
		_, _ = r.git(ctx, work, "revert", "--abort")
		return "", &ActionError{Op: "revert", Err: err}
	}

	head, err := r.git(ctx, work, "rev-parse", "HEAD")
	if err != nil {
		return "", &ActionError{Op: "revert", Err: err}
	}

	pushArgs := append(authConfig(remote, req.Token), "push", "--quiet", "origin", "HEAD:refs/heads/"+req.Branch)
	r.logf("pushing %s to %s", head, req.Branch)
	if _, err := r.git(ctx, work, pushArgs...); err != nil {
		return "", &ActionError{Op: "push", Err: err}
	}

	return fmt.Sprintf("Reverted %s on %s as %s", shortHash(req.SHA), req.Branch, shortHash(head)), nil
}

func (r *ExecReverter) reference() string {
	if r.LocalRepoPath == nil {
		return ""
	}
	p := r.LocalRepoPath()
	if p == "" {
		return ""
	}
	if _, err := os.Stat(filepath.Join(p, ".git")); err != nil {
		return ""
	}
	return p
}

// git runs one git command and returns its trimmed stdout. Stderr becomes the error text.
func (r *ExecReverter) git(ctx context.Context, dir string, args ...string) (string, error) {
	bin := r.Git
	if bin == "" {
		bin = "git"
	}
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", fmt.Errorf("git %s: %s", subcommand(args), msg)
	}
	return strings.TrimSpace(stdout.String()), nil
}

func (r *ExecReverter) logf(format string, args ...any) {
	if r.Logger != nil {
		r.Logger.Printf(format, args...)
	}
}

// authConfig passes the token as an HTTP header so it never lands in the
// clone's remote URL or config.
func authConfig(remote, token string) []string {
	if tokenAuth(remote, token) == nil {
		return nil
	}
	creds := base64.StdEncoding.EncodeToString([]byte("x-access-token:" + token))
	return []string{"-c", "http.extraHeader=Authorization: Basic " + creds}
}

// subcommand returns the first argument that is not part of a -c pair.
func subcommand(args []string) string {
	for i := 0; i < len(args); i++ {
		if args[i] == "-c" {
			i++
			continue
		}
		return args[i]
	}
	return ""
}
