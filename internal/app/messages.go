package app

import (
	"github.com/sprite-ai/easygit/internal/github"
	"github.com/sprite-ai/easygit/internal/model"
)

// Result messages of background work. Each carries the generations that were
// current when the work started; Update drops results whose generation has
// moved on.

type validatedMsg struct {
	sessionGen uint64
	loadTag    uint64
	restore    bool
	token      string
	user       github.User
	err        error
}

type reposLoadedMsg struct {
	sessionGen uint64
	loadTag    uint64
	repos      []model.Repository
	err        error
}

type commitsLoadedMsg struct {
	sessionGen uint64
	repoGen    uint64
	loadTag    uint64
	repoID     int64
	branch     string
	commits    []model.CommitSummary
	err        error
}

type detailLoadedMsg struct {
	sessionGen uint64
	commitGen  uint64
	loadTag    uint64
	sha        string
	detail     model.CommitDetail
	err        error
}

type revertDoneMsg struct {
	sessionGen uint64
	repoID     int64
	fullName   string
	branch     string
	sha        string
	diag       string
	err        error
}

type openDoneMsg struct {
	url string
	err error
}

type copyDoneMsg struct {
	sha string
	err error
}

type toastExpiredMsg struct {
	id uint64
}
