// Package app holds the session and selection controller: the single owner of
// easygit's UI state. Blocking work is returned as tea.Cmds whose result
// messages are fed back through Update, so every transition happens on the
// caller's loop.
package app

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sprite-ai/easygit/internal/browser"
	"github.com/sprite-ai/easygit/internal/github"
	"github.com/sprite-ai/easygit/internal/model"
	"github.com/sprite-ai/easygit/internal/revert"
)

const (
	DefaultToastDuration = 3 * time.Second
	defaultFetchTimeout  = 30 * time.Second
	defaultRevertTimeout = 5 * time.Minute
)

// Gateway is the remote data source. *github.Client satisfies it.
type Gateway interface {
	ValidateToken(ctx context.Context, token string) (github.User, error)
	ListRepositories(ctx context.Context, token string) ([]model.Repository, error)
	ListCommits(ctx context.Context, token, owner, repo, branch string) ([]model.CommitSummary, error)
	GetCommitDetail(ctx context.Context, token, owner, repo, sha string) (model.CommitDetail, error)
}

// TokenStore persists the access token. *credstore.Store satisfies it.
type TokenStore interface {
	Load() string
	Save(token string)
	Clear()
}

// Options configures a Controller. Gateway and Store are required.
type Options struct {
	Gateway  Gateway
	Store    TokenStore
	Reverter revert.Reverter
	Opener   browser.Opener

	// Clipboard receives OSC52 sequences for CopySHA. Defaults to stdout.
	Clipboard io.Writer

	Logger        *log.Logger
	ToastDuration time.Duration
	FetchTimeout  time.Duration
	RevertTimeout time.Duration
}

// Controller owns the State snapshot. It is not safe for concurrent use; call
// it from one loop and run the returned commands anywhere.
type Controller struct {
	gateway   Gateway
	store     TokenStore
	reverter  revert.Reverter
	opener    browser.Opener
	clipboard io.Writer
	logger    *log.Logger

	toastDuration time.Duration
	fetchTimeout  time.Duration
	revertTimeout time.Duration

	state State

	sessionGen uint64
	repoGen    uint64
	commitGen  uint64
	loadTag    uint64
	toastSeq   uint64

	tick func(time.Duration, func(time.Time) tea.Msg) tea.Cmd
}

// New creates a logged-out controller.
func New(opts Options) *Controller {
	c := &Controller{
		gateway:       opts.Gateway,
		store:         opts.Store,
		reverter:      opts.Reverter,
		opener:        opts.Opener,
		clipboard:     opts.Clipboard,
		logger:        opts.Logger,
		toastDuration: opts.ToastDuration,
		fetchTimeout:  opts.FetchTimeout,
		revertTimeout: opts.RevertTimeout,
		tick:          tea.Tick,
	}
	if c.logger == nil {
		c.logger = log.New(io.Discard, "", 0)
	}
	if c.clipboard == nil {
		c.clipboard = os.Stdout
	}
	if c.toastDuration <= 0 {
		c.toastDuration = DefaultToastDuration
	}
	if c.fetchTimeout <= 0 {
		c.fetchTimeout = defaultFetchTimeout
	}
	if c.revertTimeout <= 0 {
		c.revertTimeout = defaultRevertTimeout
	}
	return c
}

// State returns the current snapshot.
func (c *Controller) State() State {
	return c.state
}

// setLoading marks a new fetch as the outstanding one and returns its tag.
func (c *Controller) setLoading(m model.LoadingMarker) uint64 {
	c.loadTag++
	c.state.Loading = m
	return c.loadTag
}

// finishLoading clears the marker only if tag is still the outstanding fetch.
func (c *Controller) finishLoading(tag uint64) {
	if tag == c.loadTag {
		c.state.Loading = model.LoadingNone
	}
}

// Restore validates a persisted token once at startup. It does nothing when
// there is no token or a session already exists.
func (c *Controller) Restore() tea.Cmd {
	if c.state.Session.Valid() {
		return nil
	}
	token := c.store.Load()
	if token == "" {
		return nil
	}
	c.sessionGen++
	c.state.Phase = PhaseRestoring
	c.state.LoginErr = ""
	tag := c.setLoading(model.LoadingRestore)
	return c.validate(c.sessionGen, tag, token, true)
}

// Login validates token and, on success, starts a session. It is a no-op
// while a session is active; log out first.
func (c *Controller) Login(token string) tea.Cmd {
	if c.state.LoggedIn() {
		c.logger.Printf("login ignored, already signed in as %s", c.state.Session.Login)
		return nil
	}
	token = strings.TrimSpace(token)
	if token == "" {
		c.state.LoginErr = "Enter a personal access token"
		return nil
	}
	c.sessionGen++
	c.state.LoginErr = ""
	tag := c.setLoading(model.LoadingLogin)
	return c.validate(c.sessionGen, tag, token, false)
}

func (c *Controller) validate(gen, tag uint64, token string, restore bool) tea.Cmd {
	gw, timeout := c.gateway, c.fetchTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		user, err := gw.ValidateToken(ctx, token)
		return validatedMsg{sessionGen: gen, loadTag: tag, restore: restore, token: token, user: user, err: err}
	}
}

// Logout ends the session, clears the stored token and empties every panel.
// Results of work started before the logout are dropped.
func (c *Controller) Logout() {
	c.sessionGen++
	c.repoGen++
	c.commitGen++
	c.loadTag++
	c.state = State{Phase: PhaseLoggedOut}
	c.store.Clear()
}

// SyncWithStore reconciles the session with the persisted token after the
// store changed outside this process.
func (c *Controller) SyncWithStore() tea.Cmd {
	token := c.store.Load()
	switch {
	case c.state.LoggedIn() && token == "":
		c.logger.Printf("stored token removed externally, logging out")
		c.Logout()
		return c.ShowToast(model.ToastInfo, "Signed out from another session")
	case c.state.Phase == PhaseLoggedOut && token != "":
		return c.Restore()
	}
	return nil
}

// SelectRepo selects repo and fetches its default branch's history. The
// commit and file selections are cleared before the fetch starts.
func (c *Controller) SelectRepo(repo model.Repository) tea.Cmd {
	if !c.state.LoggedIn() {
		return nil
	}
	if c.state.Selection.RepoID() == repo.ID {
		return nil
	}

	c.repoGen++
	c.commitGen++
	r := repo
	c.state.Selection = Selection{Repo: &r}
	c.state.Commits = nil
	c.state.CommitsErr = ""
	c.state.Files = nil
	c.state.FilesErr = ""
	c.state.Menu = model.ContextMenu{}

	return c.fetchCommits()
}

// SelectRepoByID selects the repository with id from the loaded list.
func (c *Controller) SelectRepoByID(id int64) tea.Cmd {
	for _, r := range c.state.Repos {
		if r.ID == id {
			return c.SelectRepo(r)
		}
	}
	return nil
}

// fetchCommits loads the selected repository's commits. Callers bump repoGen.
func (c *Controller) fetchCommits() tea.Cmd {
	repo := *c.state.Selection.Repo
	tag := c.setLoading(model.LoadingCommits)
	sessionGen, repoGen := c.sessionGen, c.repoGen
	token := c.state.Session.Token
	gw, timeout := c.gateway, c.fetchTimeout

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		commits, err := gw.ListCommits(ctx, token, repo.Owner(), repo.Name, repo.DefaultBranch)
		return commitsLoadedMsg{
			sessionGen: sessionGen,
			repoGen:    repoGen,
			loadTag:    tag,
			repoID:     repo.ID,
			branch:     repo.DefaultBranch,
			commits:    commits,
			err:        err,
		}
	}
}

// SelectCommit selects commit and fetches its files.
func (c *Controller) SelectCommit(commit model.CommitSummary) tea.Cmd {
	if !c.state.LoggedIn() || c.state.Selection.Repo == nil {
		return nil
	}
	if c.state.Selection.CommitSHA() == commit.SHA {
		return nil
	}

	c.commitGen++
	cm := commit
	c.state.Selection.Commit = &cm
	c.state.Selection.File = nil
	c.state.Files = nil
	c.state.FilesErr = ""

	repo := *c.state.Selection.Repo
	tag := c.setLoading(model.LoadingFiles)
	sessionGen, commitGen := c.sessionGen, c.commitGen
	token := c.state.Session.Token
	gw, timeout := c.gateway, c.fetchTimeout

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		detail, err := gw.GetCommitDetail(ctx, token, repo.Owner(), repo.Name, cm.SHA)
		return detailLoadedMsg{
			sessionGen: sessionGen,
			commitGen:  commitGen,
			loadTag:    tag,
			sha:        cm.SHA,
			detail:     detail,
			err:        err,
		}
	}
}

// SelectCommitBySHA selects the commit with sha from the loaded list.
func (c *Controller) SelectCommitBySHA(sha string) tea.Cmd {
	if cm, ok := c.findCommit(sha); ok {
		return c.SelectCommit(cm)
	}
	return nil
}

func (c *Controller) findCommit(sha string) (model.CommitSummary, bool) {
	for _, cm := range c.state.Commits {
		if cm.SHA == sha {
			return cm, true
		}
	}
	return model.CommitSummary{}, false
}

// SelectFile selects one of the loaded files. Unknown names are ignored.
func (c *Controller) SelectFile(filename string) {
	if c.state.Selection.Commit == nil {
		return
	}
	for _, f := range c.state.Files {
		if f.Filename == filename {
			file := f
			c.state.Selection.File = &file
			return
		}
	}
}

// OpenMenu shows the context menu for commit at the given screen position.
func (c *Controller) OpenMenu(commit model.CommitSummary, x, y int) {
	if !c.state.LoggedIn() || c.state.Selection.Repo == nil {
		return
	}
	c.state.Menu = model.ContextMenu{Visible: true, X: x, Y: y, Target: commit}
}

// CloseMenu hides the context menu.
func (c *Controller) CloseMenu() {
	c.state.Menu = model.ContextMenu{}
}

// MoveMenuCursor moves the highlighted menu entry, wrapping at the ends.
func (c *Controller) MoveMenuCursor(delta int) {
	if !c.state.Menu.Visible {
		return
	}
	n := len(model.MenuActions)
	c.state.Menu.Cursor = ((c.state.Menu.Cursor+delta)%n + n) % n
}

// ActivateMenu runs the highlighted menu entry.
func (c *Controller) ActivateMenu() tea.Cmd {
	if !c.state.Menu.Visible {
		return nil
	}
	switch model.MenuActions[c.state.Menu.Cursor] {
	case model.ActionRevert:
		return c.Revert()
	case model.ActionOpenInBrowser:
		return c.OpenExternally()
	case model.ActionCopySHA:
		return c.CopySHA()
	}
	return nil
}

// Revert reverts the menu's target commit on the selected repository's
// default branch. The menu closes immediately.
func (c *Controller) Revert() tea.Cmd {
	if !c.state.Menu.Visible {
		return nil
	}
	target := c.state.Menu.Target
	c.CloseMenu()

	if !c.state.LoggedIn() || c.state.Selection.Repo == nil {
		return nil
	}
	if c.reverter == nil {
		return c.ShowToast(model.ToastError, "Revert is not available")
	}

	repo := *c.state.Selection.Repo
	req := revert.Request{
		Owner:  repo.Owner(),
		Repo:   repo.Name,
		SHA:    target.SHA,
		Branch: repo.DefaultBranch,
		Token:  c.state.Session.Token,
		Login:  c.state.Session.Login,
	}
	c.state.Reverting = target.SHA
	sessionGen := c.sessionGen
	reverter, timeout := c.reverter, c.revertTimeout
	c.logger.Printf("reverting %s on %s (%s)", target.ShortSHA(), repo.FullName, repo.DefaultBranch)

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		diag, err := reverter.RevertRemoteCommit(ctx, req)
		return revertDoneMsg{
			sessionGen: sessionGen,
			repoID:     repo.ID,
			fullName:   repo.FullName,
			branch:     req.Branch,
			sha:        req.SHA,
			diag:       diag,
			err:        err,
		}
	}
}

// OpenExternally opens the menu's target commit in a browser.
func (c *Controller) OpenExternally() tea.Cmd {
	if !c.state.Menu.Visible {
		return nil
	}
	target := c.state.Menu.Target
	c.CloseMenu()

	url := target.HTMLURL
	if url == "" && c.state.Selection.Repo != nil {
		url = fmt.Sprintf("https://github.com/%s/commit/%s", c.state.Selection.Repo.FullName, target.SHA)
	}
	if url == "" {
		return nil
	}
	if c.opener == nil {
		return c.ShowToast(model.ToastError, "No browser available")
	}
	opener := c.opener
	return func() tea.Msg {
		return openDoneMsg{url: url, err: opener.Open(url)}
	}
}

// CopySHA copies the menu's target SHA to the terminal clipboard.
func (c *Controller) CopySHA() tea.Cmd {
	if !c.state.Menu.Visible {
		return nil
	}
	sha := c.state.Menu.Target.SHA
	c.CloseMenu()

	w := c.clipboard
	return func() tea.Msg {
		return copyDoneMsg{sha: sha, err: browser.CopyToClipboard(sha, w)}
	}
}

// Refresh reloads the repository list and, when a repository is selected,
// its commits. Selections are kept.
func (c *Controller) Refresh() tea.Cmd {
	if !c.state.LoggedIn() {
		return nil
	}
	cmds := []tea.Cmd{c.fetchRepos()}
	if c.state.Selection.Repo != nil {
		c.repoGen++
		cmds = append(cmds, c.fetchCommits())
	}
	return tea.Batch(cmds...)
}

func (c *Controller) fetchRepos() tea.Cmd {
	tag := c.setLoading(model.LoadingRepos)
	sessionGen := c.sessionGen
	token := c.state.Session.Token
	gw, timeout := c.gateway, c.fetchTimeout

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		repos, err := gw.ListRepositories(ctx, token)
		return reposLoadedMsg{sessionGen: sessionGen, loadTag: tag, repos: repos, err: err}
	}
}

// ShowToast replaces the current toast and schedules its expiry.
func (c *Controller) ShowToast(kind model.ToastKind, msg string) tea.Cmd {
	c.toastSeq++
	id := c.toastSeq
	c.state.Toast = &model.Toast{ID: id, Message: msg, Kind: kind}
	return c.tick(c.toastDuration, func(time.Time) tea.Msg {
		return toastExpiredMsg{id: id}
	})
}

// Update applies a result message and returns any follow-up work. Messages
// the controller does not own are ignored.
func (c *Controller) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case validatedMsg:
		return c.onValidated(msg)
	case reposLoadedMsg:
		return c.onReposLoaded(msg)
	case commitsLoadedMsg:
		c.onCommitsLoaded(msg)
	case detailLoadedMsg:
		c.onDetailLoaded(msg)
	case revertDoneMsg:
		return c.onRevertDone(msg)
	case openDoneMsg:
		if msg.err != nil {
			c.logger.Printf("open %s: %v", msg.url, msg.err)
			return c.ShowToast(model.ToastError, "Could not open browser: "+msg.err.Error())
		}
	case copyDoneMsg:
		if msg.err != nil {
			return c.ShowToast(model.ToastError, "Copy failed: "+msg.err.Error())
		}
		return c.ShowToast(model.ToastInfo, "Copied "+model.ShortSHA(msg.sha))
	case toastExpiredMsg:
		if c.state.Toast != nil && c.state.Toast.ID == msg.id {
			c.state.Toast = nil
		}
	}
	return nil
}

func (c *Controller) onValidated(msg validatedMsg) tea.Cmd {
	if msg.sessionGen != c.sessionGen {
		return nil
	}
	c.finishLoading(msg.loadTag)

	if msg.err != nil {
		loginErr := ""
		if msg.restore {
			c.logger.Printf("stored token rejected, clearing: %v", msg.err)
			c.store.Clear()
		} else {
			c.logger.Printf("login failed: %v", msg.err)
			loginErr = msg.err.Error()
		}
		c.repoGen++
		c.commitGen++
		c.state = State{Phase: PhaseLoggedOut, LoginErr: loginErr, Toast: c.state.Toast}
		return nil
	}

	c.state = State{
		Phase:   PhaseLoggedIn,
		Session: model.Session{Token: msg.token, Login: msg.user.Login},
		Toast:   c.state.Toast,
	}
	c.repoGen++
	c.commitGen++
	if !msg.restore {
		c.store.Save(msg.token)
	}
	c.logger.Printf("logged in as %s", msg.user.Login)
	return c.fetchRepos()
}

func (c *Controller) onReposLoaded(msg reposLoadedMsg) tea.Cmd {
	if msg.sessionGen != c.sessionGen {
		return nil
	}
	c.finishLoading(msg.loadTag)

	if msg.err != nil {
		c.logger.Printf("list repositories: %v", msg.err)
		c.state.ReposErr = msg.err.Error()
		return c.ShowToast(model.ToastError, "Could not load repositories: "+msg.err.Error())
	}
	c.state.ReposErr = ""
	c.state.Repos = msg.repos
	if c.state.Repos == nil {
		c.state.Repos = []model.Repository{}
	}
	return nil
}

func (c *Controller) onCommitsLoaded(msg commitsLoadedMsg) {
	if msg.sessionGen != c.sessionGen || msg.repoGen != c.repoGen {
		return
	}
	c.finishLoading(msg.loadTag)

	if msg.err != nil {
		c.logger.Printf("list commits for repo %d (%s): %v", msg.repoID, msg.branch, msg.err)
		c.state.Commits = []model.CommitSummary{}
		c.state.CommitsErr = msg.err.Error()
		return
	}
	c.state.CommitsErr = ""
	c.state.Commits = msg.commits
	if c.state.Commits == nil {
		c.state.Commits = []model.CommitSummary{}
	}
}

func (c *Controller) onDetailLoaded(msg detailLoadedMsg) {
	if msg.sessionGen != c.sessionGen || msg.commitGen != c.commitGen {
		return
	}
	c.finishLoading(msg.loadTag)

	if msg.err != nil {
		c.logger.Printf("get commit %s: %v", model.ShortSHA(msg.sha), msg.err)
		c.state.Files = []model.CommitFile{}
		c.state.FilesErr = msg.err.Error()
		return
	}
	c.state.FilesErr = ""
	c.state.Files = msg.detail.Files
	if c.state.Files == nil {
		c.state.Files = []model.CommitFile{}
	}
}

func (c *Controller) onRevertDone(msg revertDoneMsg) tea.Cmd {
	if msg.sessionGen != c.sessionGen {
		return nil
	}
	if c.state.Reverting == msg.sha {
		c.state.Reverting = ""
	}

	if msg.err != nil {
		c.logger.Printf("revert %s failed: %v", model.ShortSHA(msg.sha), msg.err)
		return c.ShowToast(model.ToastError, "Revert failed: "+msg.err.Error())
	}

	c.logger.Printf("revert %s: %s", model.ShortSHA(msg.sha), msg.diag)
	toast := c.ShowToast(model.ToastSuccess,
		fmt.Sprintf("Reverted %s on %s (%s)", model.ShortSHA(msg.sha), msg.fullName, msg.branch))

	if c.state.Selection.RepoID() != msg.repoID {
		return toast
	}
	c.repoGen++
	return tea.Batch(toast, c.fetchCommits())
}
