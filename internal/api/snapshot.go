package api

import (
	"strings"
	"time"

	"github.com/bluekeyes/go-gitdiff/gitdiff"
	"github.com/sprite-ai/easygit/internal/app"
	"github.com/sprite-ai/easygit/internal/diff"
	"github.com/sprite-ai/easygit/internal/model"
)

// Snapshot is the JSON form of the controller state. The token never leaves
// the process.
type Snapshot struct {
	Phase      string `json:"phase"`
	Login      string `json:"login,omitempty"`
	LoginError string `json:"login_error,omitempty"`
	Loading    string `json:"loading,omitempty"`

	Repos      []repoJSON `json:"repos"`
	ReposError string     `json:"repos_error,omitempty"`

	SelectedRepo   int64  `json:"selected_repo,omitempty"`
	SelectedCommit string `json:"selected_commit,omitempty"`
	SelectedFile   string `json:"selected_file,omitempty"`

	Commits      []commitJSON `json:"commits"`
	CommitsError string       `json:"commits_error,omitempty"`

	Files      []fileJSON `json:"files"`
	FilesError string     `json:"files_error,omitempty"`

	// Diff is the parsed patch of the selected file.
	Diff *diffJSON `json:"diff,omitempty"`

	Reverting string     `json:"reverting,omitempty"`
	Toast     *toastJSON `json:"toast,omitempty"`
}

type repoJSON struct {
	ID            int64  `json:"id"`
	FullName      string `json:"full_name"`
	Private       bool   `json:"private"`
	Description   string `json:"description,omitempty"`
	DefaultBranch string `json:"default_branch"`
	HTMLURL       string `json:"html_url,omitempty"`
}

type commitJSON struct {
	SHA          string    `json:"sha"`
	ShortSHA     string    `json:"short_sha"`
	ShortMessage string    `json:"short_message"`
	AuthorName   string    `json:"author_name,omitempty"`
	AuthorLogin  string    `json:"author_login,omitempty"`
	AuthorDate   time.Time `json:"author_date"`
	HTMLURL      string    `json:"html_url,omitempty"`
}

type fileJSON struct {
	Filename         string `json:"filename"`
	PreviousFilename string `json:"previous_filename,omitempty"`
	Status           string `json:"status"`
	Additions        int    `json:"additions"`
	Deletions        int    `json:"deletions"`
}

type diffJSON struct {
	Name         string     `json:"name"`
	AddedLines   int        `json:"added_lines"`
	DeletedLines int        `json:"deleted_lines"`
	NoPatch      bool       `json:"no_patch,omitempty"`
	Error        string     `json:"error,omitempty"`
	Hunks        []hunkJSON `json:"hunks,omitempty"`
}

type hunkJSON struct {
	OldStart int        `json:"old_start"`
	OldLines int        `json:"old_lines"`
	NewStart int        `json:"new_start"`
	NewLines int        `json:"new_lines"`
	Comment  string     `json:"comment,omitempty"`
	Lines    []lineJSON `json:"lines"`
}

type lineJSON struct {
	Op   string `json:"op"` // "+", "-" or " "
	Text string `json:"text"`
}

type toastJSON struct {
	ID      uint64 `json:"id"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func newSnapshot(s app.State) Snapshot {
	snap := Snapshot{
		Phase:          s.Phase.String(),
		Login:          s.Session.Login,
		LoginError:     s.LoginErr,
		Loading:        s.Loading.String(),
		ReposError:     s.ReposErr,
		SelectedRepo:   s.Selection.RepoID(),
		SelectedCommit: s.Selection.CommitSHA(),
		SelectedFile:   s.Selection.Filename(),
		CommitsError:   s.CommitsErr,
		FilesError:     s.FilesErr,
		Reverting:      s.Reverting,
		Repos:          make([]repoJSON, 0, len(s.Repos)),
		Commits:        make([]commitJSON, 0, len(s.Commits)),
		Files:          make([]fileJSON, 0, len(s.Files)),
	}

	for _, r := range s.Repos {
		snap.Repos = append(snap.Repos, repoJSON{
			ID:            r.ID,
			FullName:      r.FullName,
			Private:       r.Private,
			Description:   r.Description,
			DefaultBranch: r.DefaultBranch,
			HTMLURL:       r.HTMLURL,
		})
	}
	for _, c := range s.Commits {
		snap.Commits = append(snap.Commits, commitJSON{
			SHA:          c.SHA,
			ShortSHA:     c.ShortSHA(),
			ShortMessage: c.ShortMessage,
			AuthorName:   c.AuthorName,
			AuthorLogin:  c.AuthorLogin,
			AuthorDate:   c.AuthorDate,
			HTMLURL:      c.HTMLURL,
		})
	}
	for _, f := range s.Files {
		snap.Files = append(snap.Files, fileJSON{
			Filename:         f.Filename,
			PreviousFilename: f.PreviousFilename,
			Status:           f.Status.String(),
			Additions:        f.Additions,
			Deletions:        f.Deletions,
		})
	}
	if s.Selection.File != nil {
		snap.Diff = newDiffJSON(*s.Selection.File)
	}
	if s.Toast != nil {
		snap.Toast = &toastJSON{ID: s.Toast.ID, Kind: s.Toast.Kind.String(), Message: s.Toast.Message}
	}
	return snap
}

func newDiffJSON(cf model.CommitFile) *diffJSON {
	f, err := diff.ParsePatch(cf)
	if err != nil {
		return &diffJSON{Name: cf.Filename, Error: err.Error()}
	}
	d := &diffJSON{
		Name:         f.Name(),
		AddedLines:   f.AddedLines,
		DeletedLines: f.DeletedLines,
		NoPatch:      f.NoPatch,
	}
	for _, frag := range f.Fragments {
		h := hunkJSON{
			OldStart: int(frag.OldPosition),
			OldLines: int(frag.OldLines),
			NewStart: int(frag.NewPosition),
			NewLines: int(frag.NewLines),
			Comment:  frag.Comment,
		}
		for _, line := range frag.Lines {
			h.Lines = append(h.Lines, lineJSON{Op: opString(line.Op), Text: strings.TrimSuffix(line.Line, "\n")})
		}
		d.Hunks = append(d.Hunks, h)
	}
	return d
}

func opString(op gitdiff.LineOp) string {
	switch op {
	case gitdiff.OpAdd:
		return "+"
	case gitdiff.OpDelete:
		return "-"
	default:
		return " "
	}
}
