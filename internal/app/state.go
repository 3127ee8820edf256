package app

import "github.com/sprite-ai/easygit/internal/model"

// Phase is the session lifecycle stage.
type Phase int

const (
	PhaseLoggedOut Phase = iota
	PhaseRestoring
	PhaseLoggedIn
)

func (p Phase) String() string {
	switch p {
	case PhaseLoggedOut:
		return "logged_out"
	case PhaseRestoring:
		return "restoring"
	case PhaseLoggedIn:
		return "logged_in"
	default:
		return "unknown"
	}
}

// Selection is the chain of chosen repository, commit and file. A child is
// only set when its parent is.
type Selection struct {
	Repo   *model.Repository
	Commit *model.CommitSummary
	File   *model.CommitFile
}

// RepoID returns the selected repository's ID, or 0.
func (s Selection) RepoID() int64 {
	if s.Repo == nil {
		return 0
	}
	return s.Repo.ID
}

// CommitSHA returns the selected commit's SHA, or "".
func (s Selection) CommitSHA() string {
	if s.Commit == nil {
		return ""
	}
	return s.Commit.SHA
}

// Filename returns the selected file's name, or "".
func (s Selection) Filename() string {
	if s.File == nil {
		return ""
	}
	return s.File.Filename
}

// State is an immutable snapshot of everything the UI shows. The controller
// replaces slices rather than mutating them, so a copy is safe to read from
// another goroutine.
type State struct {
	Phase    Phase
	Session  model.Session
	LoginErr string

	Repos    []model.Repository
	ReposErr string

	Selection Selection

	Commits    []model.CommitSummary
	CommitsErr string

	Files    []model.CommitFile
	FilesErr string

	Loading model.LoadingMarker

	// Reverting is the SHA of a revert in flight, or "".
	Reverting string

	Toast *model.Toast
	Menu  model.ContextMenu
}

// LoggedIn reports whether a validated session is active.
func (s State) LoggedIn() bool {
	return s.Phase == PhaseLoggedIn && s.Session.Valid()
}
