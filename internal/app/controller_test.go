package app

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sprite-ai/easygit/internal/credstore"
	"github.com/sprite-ai/easygit/internal/github"
	"github.com/sprite-ai/easygit/internal/model"
	"github.com/sprite-ai/easygit/internal/revert"
)

var (
	widgets = model.Repository{ID: 1, FullName: "acme/widgets", Name: "widgets", DefaultBranch: "main"}
	gadgets = model.Repository{ID: 2, FullName: "acme/gadgets", Name: "gadgets", DefaultBranch: "trunk"}

	commitA = model.CommitSummary{SHA: "abc1234567890", ShortMessage: "fix bug", HTMLURL: "https://github.com/acme/widgets/commit/abc1234567890"}
	commitB = model.CommitSummary{SHA: "def4567890123", ShortMessage: "add feature"}
)

type commitsCall struct {
	owner, repo, branch string
}

type fakeGateway struct {
	mu sync.Mutex

	users      map[string]string // token -> login
	repos      []model.Repository
	reposErr   error
	commits    map[string][]model.CommitSummary // full name -> commits
	commitsErr error
	details    map[string]model.CommitDetail
	detailErr  error

	validateCalls int
	reposCalls    int
	commitsCalls  []commitsCall
	detailCalls   []string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		users: map[string]string{"good": "octo"},
		repos: []model.Repository{widgets, gadgets},
		commits: map[string][]model.CommitSummary{
			"acme/widgets": {commitA, commitB},
			"acme/gadgets": {commitB},
		},
		details: map[string]model.CommitDetail{
			commitA.SHA: {SHA: commitA.SHA, Files: []model.CommitFile{
				{Filename: "main.go", Status: model.StatusModified, Patch: "@@ -1 +1 @@\n-a\n+b"},
				{Filename: "old.txt", Status: model.StatusRenamed, PreviousFilename: "older.txt"},
			}},
			commitB.SHA: {SHA: commitB.SHA},
		},
	}
}

func (g *fakeGateway) ValidateToken(_ context.Context, token string) (github.User, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.validateCalls++
	login, ok := g.users[token]
	if !ok {
		return github.User{}, &github.AuthError{Status: 401, Message: "Bad credentials"}
	}
	return github.User{Login: login}, nil
}

func (g *fakeGateway) ListRepositories(context.Context, string) ([]model.Repository, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.reposCalls++
	return g.repos, g.reposErr
}

func (g *fakeGateway) ListCommits(_ context.Context, _, owner, repo, branch string) ([]model.CommitSummary, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.commitsCalls = append(g.commitsCalls, commitsCall{owner, repo, branch})
	if g.commitsErr != nil {
		return nil, g.commitsErr
	}
	return g.commits[owner+"/"+repo], nil
}

func (g *fakeGateway) GetCommitDetail(_ context.Context, _, _, _, sha string) (model.CommitDetail, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.detailCalls = append(g.detailCalls, sha)
	if g.detailErr != nil {
		return model.CommitDetail{}, g.detailErr
	}
	return g.details[sha], nil
}

type fakeReverter struct {
	mu    sync.Mutex
	reqs  []revert.Request
	err   error
	onRun func()
}

func (r *fakeReverter) RevertRemoteCommit(_ context.Context, req revert.Request) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reqs = append(r.reqs, req)
	if r.onRun != nil {
		r.onRun()
	}
	if r.err != nil {
		return "", &revert.ActionError{Op: "push", Err: r.err}
	}
	return "Reverted " + model.ShortSHA(req.SHA), nil
}

type fakeOpener struct {
	urls []string
	err  error
}

func (o *fakeOpener) Open(url string) error {
	o.urls = append(o.urls, url)
	return o.err
}

type harness struct {
	c        *Controller
	gw       *fakeGateway
	store    *credstore.Store
	backend  *credstore.MemoryBackend
	reverter *fakeReverter
	opener   *fakeOpener
	clip     *bytes.Buffer
	ticks    []time.Duration
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		gw:       newFakeGateway(),
		backend:  credstore.NewMemoryBackend(),
		reverter: &fakeReverter{},
		opener:   &fakeOpener{},
		clip:     &bytes.Buffer{},
	}
	h.store = credstore.New(h.backend, nil)
	h.c = New(Options{
		Gateway:   h.gw,
		Store:     h.store,
		Reverter:  h.reverter,
		Opener:    h.opener,
		Clipboard: h.clip,
	})
	// Toast expiry is fired explicitly by tests.
	h.c.tick = func(d time.Duration, _ func(time.Time) tea.Msg) tea.Cmd {
		h.ticks = append(h.ticks, d)
		return nil
	}
	return h
}

// drain runs cmd and every follow-up command to completion.
func (h *harness) drain(cmd tea.Cmd) {
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if next == nil {
			continue
		}
		msg := next()
		if batch, ok := msg.(tea.BatchMsg); ok {
			queue = append(queue, batch...)
			continue
		}
		queue = append(queue, h.c.Update(msg))
	}
}

func (h *harness) login(t *testing.T) {
	t.Helper()
	h.drain(h.c.Login("good"))
	if !h.c.State().LoggedIn() {
		t.Fatalf("login failed: %+v", h.c.State())
	}
}

func TestLoginSuccess(t *testing.T) {
	h := newHarness(t)

	cmd := h.c.Login("  good  ")
	if h.c.State().Loading != model.LoadingLogin {
		t.Errorf("Loading = %v, want login", h.c.State().Loading)
	}
	h.drain(cmd)

	s := h.c.State()
	if s.Session.Login != "octo" || s.Session.Token != "good" {
		t.Errorf("Session = %+v", s.Session)
	}
	if s.Phase != PhaseLoggedIn {
		t.Errorf("Phase = %v", s.Phase)
	}
	if h.store.Load() != "good" {
		t.Error("token should be persisted after login")
	}
	if len(s.Repos) != 2 {
		t.Errorf("expected 2 repos, got %d", len(s.Repos))
	}
	if s.Loading != model.LoadingNone {
		t.Errorf("Loading = %v after settle", s.Loading)
	}
	if h.gw.validateCalls != 1 || h.gw.reposCalls != 1 {
		t.Errorf("calls: validate=%d repos=%d", h.gw.validateCalls, h.gw.reposCalls)
	}
}

func TestLoginEmptyToken(t *testing.T) {
	h := newHarness(t)
	if cmd := h.c.Login("   "); cmd != nil {
		t.Error("empty token should not issue a request")
	}
	if h.c.State().LoginErr == "" {
		t.Error("expected a login error")
	}
	if h.gw.validateCalls != 0 {
		t.Error("gateway should not be called")
	}
}

func TestLoginRejected(t *testing.T) {
	h := newHarness(t)
	h.drain(h.c.Login("bad"))

	s := h.c.State()
	if s.Session.Valid() {
		t.Error("no session expected")
	}
	if s.LoginErr != "Bad credentials" {
		t.Errorf("LoginErr = %q", s.LoginErr)
	}
	if h.store.Load() != "" {
		t.Error("rejected token must not be persisted")
	}
	if h.gw.validateCalls != 1 {
		t.Errorf("expected exactly one attempt, got %d", h.gw.validateCalls)
	}
	if s.Loading != model.LoadingNone {
		t.Errorf("Loading = %v", s.Loading)
	}
}

func TestLoginWhileLoggedInIsIgnored(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.drain(h.c.SelectRepo(widgets))
	h.drain(h.c.SelectCommit(commitA))

	if cmd := h.c.Login("bad"); cmd != nil {
		t.Fatal("login during an active session should not issue a request")
	}

	s := h.c.State()
	if !s.LoggedIn() || s.Session.Login != "octo" {
		t.Errorf("session should be untouched, got %v %+v", s.Phase, s.Session)
	}
	if s.Selection.RepoID() != widgets.ID || s.Selection.CommitSHA() != commitA.SHA {
		t.Errorf("selection should be untouched, got %d/%q", s.Selection.RepoID(), s.Selection.CommitSHA())
	}
	if s.LoginErr != "" {
		t.Errorf("LoginErr = %q", s.LoginErr)
	}
	if h.store.Load() != "good" {
		t.Errorf("stored token = %q", h.store.Load())
	}
	if h.gw.validateCalls != 1 {
		t.Errorf("validate calls = %d", h.gw.validateCalls)
	}
}

func TestRejectedValidationLeavesNoPartialSession(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.drain(h.c.SelectRepo(widgets))
	h.drain(h.c.SelectCommit(commitA))

	h.c.sessionGen++
	h.c.Update(validatedMsg{sessionGen: h.c.sessionGen, token: "bad", err: &github.AuthError{Status: 401, Message: "Bad credentials"}})

	s := h.c.State()
	if s.Phase != PhaseLoggedOut || s.Session.Valid() {
		t.Errorf("expected logged out, got %v %+v", s.Phase, s.Session)
	}
	if s.Selection.Repo != nil || s.Selection.Commit != nil || s.Selection.File != nil {
		t.Error("selection must not outlive the session")
	}
	if len(s.Repos) != 0 || len(s.Commits) != 0 || len(s.Files) != 0 {
		t.Errorf("lists must be empty, got %d/%d/%d", len(s.Repos), len(s.Commits), len(s.Files))
	}
	if s.LoginErr != "Bad credentials" {
		t.Errorf("LoginErr = %q", s.LoginErr)
	}
}

func TestRestoreValidToken(t *testing.T) {
	h := newHarness(t)
	h.store.Save("good")

	cmd := h.c.Restore()
	if h.c.State().Phase != PhaseRestoring || h.c.State().Loading != model.LoadingRestore {
		t.Errorf("state during restore = %v/%v", h.c.State().Phase, h.c.State().Loading)
	}
	h.drain(cmd)

	s := h.c.State()
	if !s.LoggedIn() || s.Session.Login != "octo" {
		t.Errorf("expected restored session, got %+v", s.Session)
	}
	if len(s.Repos) != 2 {
		t.Errorf("repos should be fetched after restore, got %d", len(s.Repos))
	}
}

func TestRestoreInvalidTokenSelfHeals(t *testing.T) {
	h := newHarness(t)
	h.store.Save("revoked")

	h.drain(h.c.Restore())

	s := h.c.State()
	if s.Phase != PhaseLoggedOut || s.Session.Valid() {
		t.Errorf("expected logged out, got %v %+v", s.Phase, s.Session)
	}
	if h.store.Load() != "" {
		t.Error("invalid stored token should be cleared")
	}
	if s.Toast != nil {
		t.Errorf("no toast expected, got %+v", s.Toast)
	}
	if s.LoginErr != "" {
		t.Errorf("no login error expected, got %q", s.LoginErr)
	}
}

func TestRestoreWithoutToken(t *testing.T) {
	h := newHarness(t)
	if cmd := h.c.Restore(); cmd != nil {
		t.Error("no token should mean no work")
	}
	if h.c.State().Phase != PhaseLoggedOut {
		t.Errorf("Phase = %v", h.c.State().Phase)
	}
}

func TestLogoutClearsEverything(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.drain(h.c.SelectRepo(widgets))
	h.drain(h.c.SelectCommit(commitA))
	h.c.SelectFile("main.go")
	h.c.OpenMenu(commitA, 3, 4)

	h.c.Logout()

	s := h.c.State()
	if s.Session.Valid() || s.Phase != PhaseLoggedOut {
		t.Error("session should be gone")
	}
	if h.store.Load() != "" {
		t.Error("token should be cleared")
	}
	if len(s.Repos) != 0 || len(s.Commits) != 0 || len(s.Files) != 0 || s.Selection.File != nil {
		t.Errorf("panels should be empty: %+v", s)
	}
	if s.Selection.Repo != nil || s.Selection.Commit != nil {
		t.Error("selection should be cleared")
	}
	if s.Menu.Visible {
		t.Error("menu should be closed")
	}

	// Idempotent.
	h.c.Logout()
	if h.c.State().Phase != PhaseLoggedOut {
		t.Error("second logout changed state")
	}
}

func TestLogoutDropsInFlightResults(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	cmd := h.c.SelectRepo(widgets)
	msg := cmd()

	h.c.Logout()
	h.c.Update(msg)

	s := h.c.State()
	if len(s.Commits) != 0 || s.Selection.Repo != nil {
		t.Errorf("late result leaked into logged-out state: %+v", s)
	}
}

func TestSelectRepoClearsSynchronously(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.drain(h.c.SelectRepo(widgets))
	h.drain(h.c.SelectCommit(commitA))
	h.c.SelectFile("main.go")

	h.gw.commitsErr = errors.New("boom")
	cmd := h.c.SelectRepo(gadgets)

	s := h.c.State()
	if s.Selection.Commit != nil || s.Selection.File != nil {
		t.Error("commit and file selection must clear before the fetch resolves")
	}
	if len(s.Commits) != 0 || len(s.Files) != 0 {
		t.Error("lists must clear before the fetch resolves")
	}
	if s.Selection.RepoID() != gadgets.ID {
		t.Errorf("selected repo = %d", s.Selection.RepoID())
	}
	if s.Loading != model.LoadingCommits {
		t.Errorf("Loading = %v", s.Loading)
	}

	h.drain(cmd)
	s = h.c.State()
	if s.Commits == nil || len(s.Commits) != 0 {
		t.Errorf("failed fetch should leave an empty list, got %v", s.Commits)
	}
	if s.CommitsErr != "boom" {
		t.Errorf("CommitsErr = %q", s.CommitsErr)
	}
	if s.Toast != nil {
		t.Error("commit fetch failures are shown inline, not as a toast")
	}
	if s.Loading != model.LoadingNone {
		t.Errorf("Loading = %v", s.Loading)
	}
}

func TestSelectRepoUsesOwnerNameAndDefaultBranch(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.drain(h.c.SelectRepo(gadgets))

	if len(h.gw.commitsCalls) != 1 {
		t.Fatalf("expected 1 commits call, got %d", len(h.gw.commitsCalls))
	}
	want := commitsCall{owner: "acme", repo: "gadgets", branch: "trunk"}
	if h.gw.commitsCalls[0] != want {
		t.Errorf("call = %+v, want %+v", h.gw.commitsCalls[0], want)
	}
}

func TestSelectSameRepoIsNoop(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.drain(h.c.SelectRepo(widgets))
	h.drain(h.c.SelectCommit(commitA))
	before := h.c.State()

	if cmd := h.c.SelectRepo(widgets); cmd != nil {
		t.Error("reselecting should not fetch")
	}
	if cmd := h.c.SelectCommit(commitA); cmd != nil {
		t.Error("reselecting a commit should not fetch")
	}

	after := h.c.State()
	if after.Selection.CommitSHA() != before.Selection.CommitSHA() || len(after.Files) != len(before.Files) {
		t.Error("state changed on a no-op selection")
	}
	if len(h.gw.commitsCalls) != 1 || len(h.gw.detailCalls) != 1 {
		t.Errorf("calls: commits=%d detail=%d", len(h.gw.commitsCalls), len(h.gw.detailCalls))
	}
}

func TestSelectWithoutSessionIsNoop(t *testing.T) {
	h := newHarness(t)
	if cmd := h.c.SelectRepo(widgets); cmd != nil {
		t.Error("no fetch without a session")
	}
	if h.c.State().Selection.Repo != nil {
		t.Error("selection should not change without a session")
	}

	h.login(t)
	if cmd := h.c.SelectCommit(commitA); cmd != nil {
		t.Error("no commit fetch without a repository")
	}
}

func TestStaleCommitResultsAreDropped(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	first := h.c.SelectRepo(widgets)
	second := h.c.SelectRepo(gadgets)

	// Completions arrive in reverse order.
	h.c.Update(second())
	if h.c.State().Loading != model.LoadingNone {
		t.Errorf("current fetch should clear Loading, got %v", h.c.State().Loading)
	}
	h.c.Update(first())

	s := h.c.State()
	if s.Selection.RepoID() != gadgets.ID {
		t.Errorf("selected repo = %d", s.Selection.RepoID())
	}
	if len(s.Commits) != 1 || s.Commits[0].SHA != commitB.SHA {
		t.Errorf("commits should belong to gadgets, got %+v", s.Commits)
	}
}

func TestStaleLoadingMarkerNotCleared(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	first := h.c.SelectRepo(widgets)
	second := h.c.SelectRepo(gadgets)

	h.c.Update(first())
	if h.c.State().Loading != model.LoadingCommits {
		t.Errorf("stale completion cleared Loading: %v", h.c.State().Loading)
	}
	if len(h.c.State().Commits) != 0 {
		t.Error("stale commits applied")
	}
	h.c.Update(second())
	if h.c.State().Loading != model.LoadingNone {
		t.Errorf("Loading = %v", h.c.State().Loading)
	}
}

func TestStaleDetailResultsAreDropped(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.drain(h.c.SelectRepo(widgets))

	first := h.c.SelectCommit(commitA)
	second := h.c.SelectCommit(commitB)
	h.c.Update(second())
	h.c.Update(first())

	s := h.c.State()
	if s.Selection.CommitSHA() != commitB.SHA {
		t.Errorf("selected commit = %s", s.Selection.CommitSHA())
	}
	if len(s.Files) != 0 {
		t.Errorf("files should belong to commit B (none), got %d", len(s.Files))
	}
	if s.Files == nil {
		t.Error("absent files should become an empty list")
	}
}

func TestDetailFromPreviousRepoDropped(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.drain(h.c.SelectRepo(widgets))
	detail := h.c.SelectCommit(commitA)

	h.drain(h.c.SelectRepo(gadgets))
	h.c.Update(detail())

	if len(h.c.State().Files) != 0 {
		t.Error("files of a commit from the previous repository leaked")
	}
}

func TestSelectCommitFailure(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.drain(h.c.SelectRepo(widgets))

	h.gw.detailErr = &github.APIError{Status: 500, Message: "get commit failed (500)"}
	h.drain(h.c.SelectCommit(commitA))

	s := h.c.State()
	if len(s.Files) != 0 || s.FilesErr != "get commit failed (500)" {
		t.Errorf("Files = %v, FilesErr = %q", s.Files, s.FilesErr)
	}
	if s.Selection.CommitSHA() != commitA.SHA {
		t.Error("selection stays on the commit after a failed fetch")
	}
}

func TestSelectFile(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.drain(h.c.SelectRepo(widgets))
	h.drain(h.c.SelectCommit(commitA))

	h.c.SelectFile("main.go")
	if h.c.State().Selection.Filename() != "main.go" {
		t.Errorf("selected file = %q", h.c.State().Selection.Filename())
	}

	h.c.SelectFile("missing.go")
	if h.c.State().Selection.Filename() != "main.go" {
		t.Error("unknown filename should be ignored")
	}

	h.c.SelectFile("old.txt")
	f := h.c.State().Selection.File
	if f == nil || f.Patch != "" || f.Status != model.StatusRenamed {
		t.Errorf("renamed file without patch should be selectable, got %+v", f)
	}
}

func TestMenu(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	h.c.OpenMenu(commitA, 1, 1)
	if h.c.State().Menu.Visible {
		t.Error("menu needs a selected repository")
	}

	h.drain(h.c.SelectRepo(widgets))
	h.c.OpenMenu(commitA, 10, 5)
	m := h.c.State().Menu
	if !m.Visible || m.X != 10 || m.Y != 5 || m.Target.SHA != commitA.SHA || m.Cursor != 0 {
		t.Errorf("menu = %+v", m)
	}

	h.c.MoveMenuCursor(-1)
	if got := h.c.State().Menu.Cursor; got != len(model.MenuActions)-1 {
		t.Errorf("cursor should wrap to the end, got %d", got)
	}
	h.c.MoveMenuCursor(1)
	if got := h.c.State().Menu.Cursor; got != 0 {
		t.Errorf("cursor should wrap to the start, got %d", got)
	}

	h.c.CloseMenu()
	if h.c.State().Menu.Visible {
		t.Error("menu should be closed")
	}
	if cmd := h.c.ActivateMenu(); cmd != nil {
		t.Error("activating a closed menu does nothing")
	}
}

func TestRevertSuccess(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.drain(h.c.SelectRepo(widgets))
	h.drain(h.c.SelectCommit(commitA))

	revertCommit := model.CommitSummary{SHA: "fff0000111222", ShortMessage: `Revert "fix bug"`}
	h.reverter.onRun = func() {
		h.gw.mu.Lock()
		h.gw.commits["acme/widgets"] = append([]model.CommitSummary{revertCommit}, h.gw.commits["acme/widgets"]...)
		h.gw.mu.Unlock()
	}

	h.c.OpenMenu(commitA, 0, 0)
	cmd := h.c.ActivateMenu()
	if h.c.State().Menu.Visible {
		t.Error("menu should close when the action is dispatched")
	}
	if h.c.State().Reverting != commitA.SHA {
		t.Errorf("Reverting = %q", h.c.State().Reverting)
	}
	h.drain(cmd)

	if len(h.reverter.reqs) != 1 {
		t.Fatalf("expected 1 revert, got %d", len(h.reverter.reqs))
	}
	want := revert.Request{Owner: "acme", Repo: "widgets", SHA: commitA.SHA, Branch: "main", Token: "good", Login: "octo"}
	if h.reverter.reqs[0] != want {
		t.Errorf("request = %+v, want %+v", h.reverter.reqs[0], want)
	}

	if len(h.gw.commitsCalls) != 2 {
		t.Errorf("expected exactly one refetch, got %d commit calls", len(h.gw.commitsCalls))
	}
	if h.gw.commitsCalls[1] != (commitsCall{"acme", "widgets", "main"}) {
		t.Errorf("refetch = %+v", h.gw.commitsCalls[1])
	}

	s := h.c.State()
	if len(s.Commits) != 3 || s.Commits[0].SHA != revertCommit.SHA {
		t.Errorf("revert commit should appear first, got %+v", s.Commits)
	}
	if s.Selection.CommitSHA() != commitA.SHA {
		t.Error("commit selection should be kept across the refetch")
	}
	if s.Toast == nil || s.Toast.Kind != model.ToastSuccess {
		t.Fatalf("expected success toast, got %+v", s.Toast)
	}
	for _, part := range []string{"abc1234", "acme/widgets", "main"} {
		if !strings.Contains(s.Toast.Message, part) {
			t.Errorf("toast %q should mention %q", s.Toast.Message, part)
		}
	}
	if len(h.ticks) != 1 {
		t.Errorf("expected one toast timer, got %d", len(h.ticks))
	}
	if s.Reverting != "" {
		t.Error("Reverting should clear")
	}
}

func TestRevertFailure(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.drain(h.c.SelectRepo(widgets))
	h.reverter.err = errors.New("remote rejected")
	before := len(h.gw.commitsCalls)

	h.c.OpenMenu(commitA, 0, 0)
	h.drain(h.c.Revert())

	if len(h.gw.commitsCalls) != before {
		t.Error("failed revert must not refetch")
	}
	s := h.c.State()
	if s.Toast == nil || s.Toast.Kind != model.ToastError {
		t.Fatalf("expected error toast, got %+v", s.Toast)
	}
	if !strings.Contains(s.Toast.Message, "remote rejected") {
		t.Errorf("toast %q should carry the underlying message", s.Toast.Message)
	}
	if len(h.ticks) != 1 {
		t.Errorf("expected one toast, got %d", len(h.ticks))
	}
	if len(s.Commits) != 2 {
		t.Error("commits should be unchanged")
	}
}

func TestRevertAfterSwitchingRepoSkipsRefetch(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.drain(h.c.SelectRepo(widgets))
	h.c.OpenMenu(commitA, 0, 0)
	cmd := h.c.Revert()

	h.drain(h.c.SelectRepo(gadgets))
	calls := len(h.gw.commitsCalls)
	h.drain(cmd)

	if len(h.gw.commitsCalls) != calls {
		t.Error("no refetch when the reverted repository is no longer selected")
	}
	if s := h.c.State(); s.Toast == nil || s.Toast.Kind != model.ToastSuccess {
		t.Errorf("expected success toast, got %+v", s.Toast)
	}
}

func TestOpenExternally(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.drain(h.c.SelectRepo(widgets))

	h.c.OpenMenu(commitA, 0, 0)
	h.c.MoveMenuCursor(1)
	h.drain(h.c.ActivateMenu())
	if len(h.opener.urls) != 1 || h.opener.urls[0] != commitA.HTMLURL {
		t.Errorf("opened %v", h.opener.urls)
	}
	if h.c.State().Menu.Visible {
		t.Error("menu should close")
	}

	h.c.OpenMenu(commitB, 0, 0)
	h.drain(h.c.OpenExternally())
	if got := h.opener.urls[1]; got != "https://github.com/acme/widgets/commit/"+commitB.SHA {
		t.Errorf("fallback url = %q", got)
	}

	h.opener.err = errors.New("no display")
	h.c.OpenMenu(commitA, 0, 0)
	h.drain(h.c.OpenExternally())
	if s := h.c.State(); s.Toast == nil || s.Toast.Kind != model.ToastError || s.Menu.Visible {
		t.Errorf("expected error toast and closed menu, got %+v", s)
	}
}

func TestCopySHA(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.drain(h.c.SelectRepo(widgets))

	h.c.OpenMenu(commitA, 0, 0)
	h.c.MoveMenuCursor(2)
	h.drain(h.c.ActivateMenu())

	if !strings.HasPrefix(h.clip.String(), "\x1b]52;c;") {
		t.Errorf("clipboard write = %q", h.clip.String())
	}
	if s := h.c.State(); s.Toast == nil || s.Toast.Kind != model.ToastInfo {
		t.Errorf("expected info toast, got %+v", s.Toast)
	}
}

func TestToastReplacesAndExpires(t *testing.T) {
	h := newHarness(t)

	h.c.ShowToast(model.ToastInfo, "first")
	first := h.c.State().Toast
	h.c.ShowToast(model.ToastError, "second")
	second := h.c.State().Toast

	if second.Message != "second" || second.ID == first.ID {
		t.Errorf("new toast should replace the old one: %+v", second)
	}
	for _, d := range h.ticks {
		if d != DefaultToastDuration {
			t.Errorf("toast duration = %v, want %v", d, DefaultToastDuration)
		}
	}

	// The first toast's timer fires: the second toast stays.
	h.c.Update(toastExpiredMsg{id: first.ID})
	if h.c.State().Toast == nil {
		t.Fatal("expiry of a replaced toast must not clear the current one")
	}
	h.c.Update(toastExpiredMsg{id: second.ID})
	if h.c.State().Toast != nil {
		t.Error("toast should expire")
	}
}

func TestToastTick(t *testing.T) {
	c := New(Options{Gateway: newFakeGateway(), Store: credstore.New(credstore.NewMemoryBackend(), nil), ToastDuration: 10 * time.Millisecond})
	cmd := c.ShowToast(model.ToastInfo, "hi")
	if cmd == nil {
		t.Fatal("expected a timer command")
	}
	msg := cmd()
	c.Update(msg)
	if c.State().Toast != nil {
		t.Error("toast should clear when its timer fires")
	}
}

func TestReposFailure(t *testing.T) {
	h := newHarness(t)
	h.gw.reposErr = &github.NetworkError{Op: "list repositories", Err: errors.New("dial tcp: refused")}
	h.drain(h.c.Login("good"))

	s := h.c.State()
	if !s.LoggedIn() {
		t.Error("session survives a failed repository listing")
	}
	if s.ReposErr == "" || s.Toast == nil || s.Toast.Kind != model.ToastError {
		t.Errorf("expected repos error and toast, got %q %+v", s.ReposErr, s.Toast)
	}
}

func TestRefresh(t *testing.T) {
	h := newHarness(t)
	if cmd := h.c.Refresh(); cmd != nil {
		t.Error("refresh without a session does nothing")
	}
	h.login(t)
	h.drain(h.c.SelectRepo(widgets))
	h.drain(h.c.SelectCommit(commitA))

	h.drain(h.c.Refresh())
	if h.gw.reposCalls != 2 || len(h.gw.commitsCalls) != 2 {
		t.Errorf("calls: repos=%d commits=%d", h.gw.reposCalls, len(h.gw.commitsCalls))
	}
	s := h.c.State()
	if s.Selection.CommitSHA() != commitA.SHA {
		t.Error("refresh keeps the selection")
	}
	if s.Loading != model.LoadingNone {
		t.Errorf("Loading = %v", s.Loading)
	}
}

func TestSyncWithStore(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	h.store.Clear()
	h.drain(h.c.SyncWithStore())
	s := h.c.State()
	if s.LoggedIn() {
		t.Error("external token removal should log out")
	}
	if s.Toast == nil || s.Toast.Kind != model.ToastInfo {
		t.Errorf("expected info toast, got %+v", s.Toast)
	}

	h.store.Save("good")
	h.drain(h.c.SyncWithStore())
	if !h.c.State().LoggedIn() {
		t.Error("a token saved elsewhere should be restored")
	}
}

func TestSelectByID(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.drain(h.c.SelectRepoByID(widgets.ID))
	h.drain(h.c.SelectCommitBySHA(commitA.SHA))

	s := h.c.State()
	if s.Selection.RepoID() != widgets.ID || s.Selection.CommitSHA() != commitA.SHA {
		t.Errorf("selection = %d/%s", s.Selection.RepoID(), s.Selection.CommitSHA())
	}
	if cmd := h.c.SelectRepoByID(999); cmd != nil {
		t.Error("unknown id is a no-op")
	}
}

func TestSequentialSelectionsSettleOnLatest(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	repos := []model.Repository{widgets, gadgets, widgets, gadgets, widgets}
	var cmds []tea.Cmd
	for _, r := range repos {
		cmds = append(cmds, h.c.SelectRepo(r))
	}
	// Deliver completions in reverse order.
	for i := len(cmds) - 1; i >= 0; i-- {
		if cmds[i] != nil {
			h.c.Update(cmds[i]())
		}
	}

	s := h.c.State()
	if s.Selection.RepoID() != widgets.ID {
		t.Fatalf("selected = %d", s.Selection.RepoID())
	}
	if len(s.Commits) != 2 {
		t.Errorf("commits should be widgets', got %d", len(s.Commits))
	}
}
