package github

import (
	"time"

	"github.com/sprite-ai/easygit/internal/model"
)

// ghRepo is the GitHub API repository response shape.
type ghRepo struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	FullName      string `json:"full_name"`
	Private       bool   `json:"private"`
	Description   string `json:"description"`
	DefaultBranch string `json:"default_branch"`
	HTMLURL       string `json:"html_url"`
	Owner         struct {
		Login string `json:"login"`
	} `json:"owner"`
}

func (r ghRepo) toModel() model.Repository {
	return model.Repository{
		ID:            r.ID,
		FullName:      r.FullName,
		Name:          r.Name,
		OwnerLogin:    r.Owner.Login,
		Private:       r.Private,
		Description:   r.Description,
		DefaultBranch: r.DefaultBranch,
		HTMLURL:       r.HTMLURL,
	}
}

// ghCommit covers both the list and the single-commit response shapes.
type ghCommit struct {
	SHA     string `json:"sha"`
	HTMLURL string `json:"html_url"`
	Commit  struct {
		Message string `json:"message"`
		Author  struct {
			Name string    `json:"name"`
			Date time.Time `json:"date"`
		} `json:"author"`
	} `json:"commit"`
	Author *struct {
		Login string `json:"login"`
	} `json:"author"`
	Files []ghFile `json:"files"`
}

type ghFile struct {
	Filename         string `json:"filename"`
	PreviousFilename string `json:"previous_filename"`
	Status           string `json:"status"`
	Additions        int    `json:"additions"`
	Deletions        int    `json:"deletions"`
	Changes          int    `json:"changes"`
	Patch            string `json:"patch"`
}

func (gc ghCommit) toSummary() model.CommitSummary {
	s := model.CommitSummary{
		SHA:          gc.SHA,
		Message:      gc.Commit.Message,
		ShortMessage: model.FirstLine(gc.Commit.Message),
		AuthorName:   gc.Commit.Author.Name,
		AuthorDate:   gc.Commit.Author.Date,
		HTMLURL:      gc.HTMLURL,
	}
	if gc.Author != nil {
		s.AuthorLogin = gc.Author.Login
	}
	return s
}

func (gc ghCommit) toDetail() model.CommitDetail {
	d := model.CommitDetail{
		SHA:        gc.SHA,
		Message:    gc.Commit.Message,
		AuthorName: gc.Commit.Author.Name,
		AuthorDate: gc.Commit.Author.Date,
		Files:      make([]model.CommitFile, 0, len(gc.Files)),
	}
	for _, f := range gc.Files {
		d.Files = append(d.Files, model.CommitFile{
			Filename:         f.Filename,
			PreviousFilename: f.PreviousFilename,
			Status:           model.ParseFileStatus(f.Status),
			Additions:        f.Additions,
			Deletions:        f.Deletions,
			Changes:          f.Changes,
			Patch:            f.Patch,
		})
	}
	return d
}
