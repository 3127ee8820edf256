// Package model defines the core data types shared across easygit.
package model

import (
	"strings"
	"time"
)

// Session is an authenticated GitHub identity.
type Session struct {
	Token string
	Login string
}

// Valid reports whether both the token and the login are present.
func (s Session) Valid() bool {
	return s.Token != "" && s.Login != ""
}

// Repository is a repository owned by or visible to the user.
type Repository struct {
	ID            int64
	FullName      string // "owner/name"
	Name          string
	OwnerLogin    string
	Private       bool
	Description   string
	DefaultBranch string
	HTMLURL       string
}

// Owner returns the owner segment of FullName.
func (r Repository) Owner() string {
	if owner, _, ok := strings.Cut(r.FullName, "/"); ok && owner != "" {
		return owner
	}
	return r.OwnerLogin
}

// CommitSummary is one entry of a branch's history.
type CommitSummary struct {
	SHA          string
	Message      string
	ShortMessage string // first line of Message
	AuthorName   string
	AuthorLogin  string
	AuthorDate   time.Time
	HTMLURL      string
}

// ShortSHA returns the abbreviated commit hash.
func (c CommitSummary) ShortSHA() string {
	return ShortSHA(c.SHA)
}

// ShortSHA abbreviates a hash to seven characters.
func ShortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}

// FirstLine returns the subject line of a commit message.
func FirstLine(msg string) string {
	line, _, _ := strings.Cut(msg, "\n")
	return strings.TrimRight(line, "\r")
}

// FileStatus is the change kind of a file within a commit.
type FileStatus int

const (
	StatusModified FileStatus = iota
	StatusAdded
	StatusRemoved
	StatusRenamed
	StatusCopied
	StatusChanged
	StatusUnchanged
)

func (s FileStatus) String() string {
	switch s {
	case StatusModified:
		return "modified"
	case StatusAdded:
		return "added"
	case StatusRemoved:
		return "removed"
	case StatusRenamed:
		return "renamed"
	case StatusCopied:
		return "copied"
	case StatusChanged:
		return "changed"
	case StatusUnchanged:
		return "unchanged"
	default:
		return "unknown"
	}
}

// ParseFileStatus maps the API's status string. Unknown values are treated as modified.
func ParseFileStatus(s string) FileStatus {
	switch s {
	case "added":
		return StatusAdded
	case "removed":
		return StatusRemoved
	case "renamed":
		return StatusRenamed
	case "copied":
		return StatusCopied
	case "changed":
		return StatusChanged
	case "unchanged":
		return StatusUnchanged
	default:
		return StatusModified
	}
}

// CommitFile is a single file change of a commit. Patch is empty for binary
// files, very large diffs and pure renames.
type CommitFile struct {
	Filename         string
	PreviousFilename string
	Status           FileStatus
	Additions        int
	Deletions        int
	Changes          int
	Patch            string
}

// CommitDetail is a commit with its changed files.
type CommitDetail struct {
	SHA        string
	Message    string
	AuthorName string
	AuthorDate time.Time
	Files      []CommitFile
}

// LoadingMarker names the class of background work currently outstanding.
// It is informational only.
type LoadingMarker int

const (
	LoadingNone LoadingMarker = iota
	LoadingLogin
	LoadingRestore
	LoadingRepos
	LoadingCommits
	LoadingFiles
)

func (l LoadingMarker) String() string {
	switch l {
	case LoadingNone:
		return ""
	case LoadingLogin:
		return "login"
	case LoadingRestore:
		return "restore"
	case LoadingRepos:
		return "repos"
	case LoadingCommits:
		return "commits"
	case LoadingFiles:
		return "files"
	default:
		return "unknown"
	}
}

// ToastKind categorizes a transient notification.
type ToastKind int

const (
	ToastSuccess ToastKind = iota
	ToastError
	ToastInfo
)

func (k ToastKind) String() string {
	switch k {
	case ToastSuccess:
		return "success"
	case ToastError:
		return "error"
	case ToastInfo:
		return "info"
	default:
		return "unknown"
	}
}

// Toast is a transient notification. ID distinguishes successive toasts so an
// expiry timer only clears the toast it was started for.
type Toast struct {
	ID      uint64
	Message string
	Kind    ToastKind
}

// MenuAction is an entry of the commit context menu.
type MenuAction int

const (
	ActionRevert MenuAction = iota
	ActionOpenInBrowser
	ActionCopySHA
)

// MenuActions lists the context menu entries in display order.
var MenuActions = []MenuAction{ActionRevert, ActionOpenInBrowser, ActionCopySHA}

func (a MenuAction) String() string {
	switch a {
	case ActionRevert:
		return "Revert commit"
	case ActionOpenInBrowser:
		return "Open on GitHub"
	case ActionCopySHA:
		return "Copy SHA"
	default:
		return "unknown"
	}
}

// ContextMenu is the ephemeral menu opened over a commit row.
type ContextMenu struct {
	Visible bool
	X, Y    int
	Target  CommitSummary
	Cursor  int
}
