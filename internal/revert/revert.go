// Package revert reverts a single commit on a remote branch by cloning the
// branch into a temporary location, committing the inverse change, and pushing
// the result back.
package revert

import (
	"context"
	"fmt"
)

// Request identifies the commit to revert and the credential to push with.
type Request struct {
	Owner  string
	Repo   string
	SHA    string
	Branch string
	Token  string

	// Login is the pushing account, used for the commit identity when no
	// author is configured.
	Login string
}

// Validate checks that every field needed for a clone and push is present.
func (r Request) Validate() error {
	switch {
	case r.Owner == "" || r.Repo == "":
		return fmt.Errorf("repository is required")
	case r.SHA == "":
		return fmt.Errorf("commit sha is required")
	case r.Branch == "":
		return fmt.Errorf("branch is required")
	case r.Token == "":
		return fmt.Errorf("access token is required")
	}
	return nil
}

// Reverter reverts a commit on a remote branch. On success it returns a
// human-readable diagnostic; failures are *ActionError.
type Reverter interface {
	RevertRemoteCommit(ctx context.Context, req Request) (string, error)
}

// ActionError is a failed revert.
type ActionError struct {
	Op  string
	Err error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

// Author is the identity recorded on revert commits.
type Author struct {
	Name  string
	Email string
}

// authorFor fills unset author fields from the pushing account's login.
func authorFor(a Author, login string) Author {
	if a.Name == "" {
		a.Name = login
	}
	if a.Email == "" && login != "" {
		a.Email = login + "@users.noreply.github.com"
	}
	if a.Name == "" {
		a.Name = "easygit"
	}
	if a.Email == "" {
		a.Email = "easygit@users.noreply.github.com"
	}
	return a
}

// GitHubURL returns the HTTPS clone URL of a GitHub repository.
func GitHubURL(owner, repo string) string {
	return fmt.Sprintf("https://github.com/%s/%s.git", owner, repo)
}
