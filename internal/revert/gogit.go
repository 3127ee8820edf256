package revert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/storage/memory"
)

// ErrConflict is returned when the inverse change does not apply cleanly to
// the branch head.
var ErrConflict = errors.New("revert conflicts with later changes")

// GoGitReverter reverts commits in an in-memory clone using go-git, so nothing
// is written to the local disk.
type GoGitReverter struct {
	Author Author
	Logger *log.Logger

	// URL maps owner/repo to a clone URL. Defaults to GitHubURL.
	URL func(owner, repo string) string

	now func() time.Time
}

// NewGoGitReverter creates a reverter that pushes to github.com.
func NewGoGitReverter(author Author, logger *log.Logger) *GoGitReverter {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &GoGitReverter{Author: author, Logger: logger, URL: GitHubURL, now: time.Now}
}

// RevertRemoteCommit implements Reverter.
func (r *GoGitReverter) RevertRemoteCommit(ctx context.Context, req Request) (string, error) {
	if err := req.Validate(); err != nil {
		return "", &ActionError{Op: "revert", Err: err}
	}

	url := r.cloneURL(req.Owner, req.Repo)
	branchRef := plumbing.NewBranchReferenceName(req.Branch)

	opts := &gogit.CloneOptions{
		URL:           url,
		ReferenceName: branchRef,
		SingleBranch:  true,
		Tags:          gogit.NoTags,
	}
	auth := tokenAuth(url, req.Token)
	if auth != nil {
		opts.Auth = auth
	}

	r.logf("cloning %s (%s)", url, req.Branch)
	repo, err := gogit.CloneContext(ctx, memory.NewStorage(), memfs.New(), opts)
	if err != nil {
		return "", &ActionError{Op: "clone", Err: err}
	}

	author := authorFor(r.Author, req.Login)
	newHash, err := revertCommit(repo, req.SHA, author, r.clock())
	if err != nil {
		return "", &ActionError{Op: "revert", Err: err}
	}

	push := &gogit.PushOptions{
		RemoteName: "origin",
		RefSpecs:   []config.RefSpec{config.RefSpec(branchRef + ":" + branchRef)},
	}
	if auth != nil {
		push.Auth = auth
	}
	r.logf("pushing %s to %s", newHash, branchRef)
	if err := repo.PushContext(ctx, push); err != nil {
		return "", &ActionError{Op: "push", Err: err}
	}

	return fmt.Sprintf("Reverted %s on %s as %s", shortHash(req.SHA), req.Branch, shortHash(newHash.String())), nil
}

func (r *GoGitReverter) cloneURL(owner, repo string) string {
	if r.URL != nil {
		return r.URL(owner, repo)
	}
	return GitHubURL(owner, repo)
}

func (r *GoGitReverter) clock() time.Time {
	if r.now != nil {
		return r.now()
	}
	return time.Now()
}

func (r *GoGitReverter) logf(format string, args ...any) {
	if r.Logger != nil {
		r.Logger.Printf(format, args...)
	}
}

// tokenAuth returns basic auth for HTTP(S) remotes. Local paths need none.
func tokenAuth(url, token string) *githttp.BasicAuth {
	if !strings.HasPrefix(url, "https://") && !strings.HasPrefix(url, "http://") {
		return nil
	}
	return &githttp.BasicAuth{Username: "x-access-token", Password: token}
}

// revertCommit applies the inverse of rev onto the checked-out HEAD and commits it.
func revertCommit(repo *gogit.Repository, rev string, author Author, when time.Time) (plumbing.Hash, error) {
	hash, err := repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("commit %s not found on branch: %w", shortHash(rev), err)
	}
	target, err := repo.CommitObject(*hash)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("could not read commit %s: %w", shortHash(rev), err)
	}

	switch target.NumParents() {
	case 0:
		return plumbing.ZeroHash, fmt.Errorf("cannot revert root commit %s", shortHash(target.Hash.String()))
	case 1:
	default:
		return plumbing.ZeroHash, fmt.Errorf("commit %s is a merge; reverting merges is not supported", shortHash(target.Hash.String()))
	}
	parent, err := target.Parent(0)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	headRef, err := repo.Head()
	if err != nil {
		return plumbing.ZeroHash, err
	}
	head, err := repo.CommitObject(headRef.Hash())
	if err != nil {
		return plumbing.ZeroHash, err
	}

	w, err := repo.Worktree()
	if err != nil {
		return plumbing.ZeroHash, err
	}

	// Base is the reverted commit, theirs is its parent: the change from base
	// to theirs is exactly the inverse of the commit.
	conflicts, err := applyThreeWay(w, target, head, parent)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	if len(conflicts) > 0 {
		return plumbing.ZeroHash, fmt.Errorf("%w: %s", ErrConflict, strings.Join(conflicts, ", "))
	}

	status, err := w.Status()
	if err != nil {
		return plumbing.ZeroHash, err
	}
	if status.IsClean() {
		return plumbing.ZeroHash, fmt.Errorf("commit %s is already reverted on this branch", shortHash(target.Hash.String()))
	}

	msg := fmt.Sprintf("Revert \"%s\"\n\nThis reverts commit %s.\n", strings.TrimSpace(firstLine(target.Message)), target.Hash)
	sig := &object.Signature{Name: author.Name, Email: author.Email, When: when}
	return w.Commit(msg, &gogit.CommitOptions{Author: sig, Committer: sig})
}

type treeEntry struct {
	hash    plumbing.Hash
	mode    filemode.FileMode
	content string
}

// applyThreeWay updates the worktree with the change from base to theirs,
// keeping ours wherever ours diverged from base. It returns the paths where
// both sides changed differently; those are left untouched.
func applyThreeWay(w *gogit.Worktree, base, ours, theirs *object.Commit) ([]string, error) {
	paths := make(map[string]struct{})
	for _, c := range []*object.Commit{base, ours, theirs} {
		files, err := c.Files()
		if err != nil {
			return nil, err
		}
		err = files.ForEach(func(f *object.File) error {
			paths[f.Name] = struct{}{}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	var conflicts []string
	for p := range paths {
		b, err := lookup(base, p)
		if err != nil {
			return nil, err
		}
		o, err := lookup(ours, p)
		if err != nil {
			return nil, err
		}
		t, err := lookup(theirs, p)
		if err != nil {
			return nil, err
		}

		switch {
		case o.hash == t.hash:
			// Ours already matches the reverted state.
		case b.hash == t.hash:
			// The commit did not touch this path.
		case b.hash == o.hash:
			if err := checkout(w, p, t); err != nil {
				return nil, err
			}
		default:
			conflicts = append(conflicts, p)
		}
	}

	sort.Strings(conflicts)
	return conflicts, nil
}

func lookup(c *object.Commit, p string) (treeEntry, error) {
	f, err := c.File(p)
	if err != nil {
		if errors.Is(err, object.ErrFileNotFound) {
			return treeEntry{hash: plumbing.ZeroHash}, nil
		}
		return treeEntry{}, err
	}
	content, err := f.Contents()
	if err != nil {
		return treeEntry{}, err
	}
	return treeEntry{hash: f.Hash, mode: f.Mode, content: content}, nil
}

// checkout writes e at p in the worktree and stages it; a zero hash removes p.
func checkout(w *gogit.Worktree, p string, e treeEntry) error {
	if e.hash == plumbing.ZeroHash {
		if _, err := w.Remove(p); err != nil {
			return fmt.Errorf("failed to remove %s: %w", p, err)
		}
		return nil
	}

	perm := os.FileMode(0644)
	if e.mode == filemode.Executable {
		perm = 0755
	}
	if dir := path.Dir(p); dir != "." {
		if err := w.Filesystem.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	if err := util.WriteFile(w.Filesystem, p, []byte(e.content), perm); err != nil {
		return fmt.Errorf("failed to write %s: %w", p, err)
	}
	if ch, ok := w.Filesystem.(billy.Change); ok {
		_ = ch.Chmod(p, perm)
	}
	if _, err := w.Add(p); err != nil {
		return fmt.Errorf("failed to stage %s: %w", p, err)
	}
	return nil
}

func firstLine(msg string) string {
	line, _, _ := strings.Cut(msg, "\n")
	return line
}

func shortHash(h string) string {
	if len(h) > 7 {
		return h[:7]
	}
	return h
}
