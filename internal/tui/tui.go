// Package tui implements the Bubble Tea terminal user interface.
package tui

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sprite-ai/easygit/internal/app"
	"github.com/sprite-ai/easygit/internal/config"
	"github.com/sprite-ai/easygit/internal/diff"
	"github.com/sprite-ai/easygit/internal/model"
)

const wheelStep = 3

// Options configures the terminal UI.
type Options struct {
	Keybindings config.Keybindings
	Theme       string

	// Changes signals that the credential store was modified by another
	// process. Nil disables the subscription.
	Changes <-chan struct{}
}

// credentialsChangedMsg is delivered when the token store changed on disk.
type credentialsChangedMsg struct{}

func waitForChange(ch <-chan struct{}) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return credentialsChangedMsg{}
	}
}

// Model is the top-level Bubble Tea model for easygit. Session and selection
// state live in the controller; the model only keeps view state.
type Model struct {
	ctrl    *app.Controller
	keys    keyMap
	styles  styles
	hl      *diff.Highlighter
	help    help.Model
	input   textinput.Model
	spinner spinner.Model
	changes <-chan struct{}

	width  int
	height int

	focus  panel
	cursor [3]int // repos, commits, files
	offset [4]int // list scroll offsets and diff scroll

	// Rendered diff of the selected file, keyed by commit and filename.
	file      *diff.File
	fileErr   string
	lines     []renderedLine
	linesKey  string
	splitView bool

	showHelp bool

	wasLoggedIn bool
	lastRepoID  int64
	lastSHA     string
}

// New creates a model driving ctrl.
func New(ctrl *app.Controller, opts Options) Model {
	in := textinput.New()
	in.Placeholder = "ghp_..."
	in.EchoMode = textinput.EchoPassword
	in.EchoCharacter = '•'
	in.Prompt = "Token: "
	in.CharLimit = 255
	in.Width = 40
	in.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot

	st := newStyles(config.PaletteFor(opts.Theme))
	sp.Style = st.panelTitle

	return Model{
		ctrl:    ctrl,
		keys:    newKeyMap(opts.Keybindings),
		styles:  st,
		hl:      diff.NewHighlighter(diff.StyleForTheme(opts.Theme)),
		help:    help.New(),
		input:   in,
		spinner: sp,
		changes: opts.Changes,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.ctrl.Restore(), waitForChange(m.changes))
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.clampView()
		return m, nil

	case credentialsChangedMsg:
		cmd := m.ctrl.SyncWithStore()
		m.sync()
		return m, tea.Batch(cmd, waitForChange(m.changes))

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if !m.ctrl.State().LoggedIn() {
			return m.updateLogin(msg)
		}
		return m.updateKey(msg)

	case tea.MouseMsg:
		if !m.ctrl.State().LoggedIn() {
			return m, nil
		}
		return m.updateMouse(msg)
	}

	cmd := m.ctrl.Update(msg)
	m.sync()
	if !m.wasLoggedIn {
		var inputCmd tea.Cmd
		m.input, inputCmd = m.input.Update(msg)
		return m, tea.Batch(cmd, inputCmd)
	}
	return m, cmd
}

func (m Model) updateLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEnter:
		s := m.ctrl.State()
		if s.Phase == app.PhaseRestoring || s.Loading == model.LoadingLogin {
			return m, nil
		}
		cmd := m.ctrl.Login(m.input.Value())
		m.sync()
		return m, cmd
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	s := m.ctrl.State()

	if m.showHelp {
		switch {
		case key.Matches(msg, m.keys.Help), key.Matches(msg, m.keys.Close):
			m.showHelp = false
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		}
		return m, nil
	}

	if s.Menu.Visible {
		var cmd tea.Cmd
		switch {
		case key.Matches(msg, m.keys.Up):
			m.ctrl.MoveMenuCursor(-1)
		case key.Matches(msg, m.keys.Down):
			m.ctrl.MoveMenuCursor(1)
		case key.Matches(msg, m.keys.Select):
			cmd = m.ctrl.ActivateMenu()
		case key.Matches(msg, m.keys.Close), key.Matches(msg, m.keys.Menu):
			m.ctrl.CloseMenu()
		case msg.Type == tea.KeyCtrlC:
			return m, tea.Quit
		}
		m.sync()
		return m, cmd
	}

	var cmd tea.Cmd
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true

	case key.Matches(msg, m.keys.NextPanel):
		m.focus = (m.focus + 1) % 4

	case key.Matches(msg, m.keys.PrevPanel):
		m.focus = (m.focus + 3) % 4

	case key.Matches(msg, m.keys.Up):
		m.move(-1)

	case key.Matches(msg, m.keys.Down):
		m.move(1)

	case key.Matches(msg, m.keys.PageUp):
		m.move(-m.page())

	case key.Matches(msg, m.keys.PageDown):
		m.move(m.page())

	case key.Matches(msg, m.keys.NextHunk):
		m.jumpToNextHunk()

	case key.Matches(msg, m.keys.PrevHunk):
		m.jumpToPrevHunk()

	case key.Matches(msg, m.keys.Toggle):
		m.splitView = !m.splitView

	case key.Matches(msg, m.keys.Select):
		cmd = m.activate(m.focus, m.cursor[min(m.focus, panelFiles)])

	case key.Matches(msg, m.keys.Menu):
		if m.focus == panelCommits && len(s.Commits) > 0 {
			i := m.cursor[panelCommits]
			r := m.layout().commits
			y := r.y + 2 + (i - m.offset[panelCommits]) + 1
			m.ctrl.OpenMenu(s.Commits[i], r.x+2, y)
		}

	case key.Matches(msg, m.keys.Refresh):
		cmd = m.ctrl.Refresh()

	case key.Matches(msg, m.keys.Logout):
		m.ctrl.Logout()

	case key.Matches(msg, m.keys.Close):
		if m.focus > panelRepos {
			m.focus--
		}
	}

	m.sync()
	return m, cmd
}

// activate selects item i of panel p and moves focus to the next panel.
func (m *Model) activate(p panel, i int) tea.Cmd {
	s := m.ctrl.State()
	switch p {
	case panelRepos:
		if i < len(s.Repos) {
			m.cursor[panelRepos] = i
			m.focus = panelCommits
			return m.ctrl.SelectRepo(s.Repos[i])
		}
	case panelCommits:
		if i < len(s.Commits) {
			m.cursor[panelCommits] = i
			m.focus = panelFiles
			return m.ctrl.SelectCommit(s.Commits[i])
		}
	case panelFiles:
		if i < len(s.Files) {
			m.cursor[panelFiles] = i
			m.focus = panelDiff
			m.ctrl.SelectFile(s.Files[i].Filename)
		}
	}
	return nil
}

func (m Model) updateMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if msg.Action != tea.MouseActionPress || m.showHelp {
		return m, nil
	}
	s := m.ctrl.State()
	l := m.layout()

	var cmd tea.Cmd
	switch msg.Button {
	case tea.MouseButtonLeft:
		if s.Menu.Visible {
			mr := menuRect(s.Menu, m.width, m.height)
			if i, ok := menuItemAt(mr, msg.X, msg.Y); ok {
				m.ctrl.MoveMenuCursor(i - s.Menu.Cursor)
				cmd = m.ctrl.ActivateMenu()
				m.sync()
				return m, cmd
			}
			if mr.contains(msg.X, msg.Y) {
				return m, nil
			}
			m.ctrl.CloseMenu()
		}
		for _, p := range []panel{panelRepos, panelCommits, panelFiles} {
			if i, ok := rowAt(l.rect(p), m.offset[p], m.listLen(p), msg.X, msg.Y); ok {
				cmd = m.activate(p, i)
				break
			}
			if l.rect(p).contains(msg.X, msg.Y) {
				m.focus = p
			}
		}
		if l.diff.contains(msg.X, msg.Y) {
			m.focus = panelDiff
		}

	case tea.MouseButtonRight:
		if i, ok := rowAt(l.commits, m.offset[panelCommits], len(s.Commits), msg.X, msg.Y); ok {
			m.focus = panelCommits
			m.cursor[panelCommits] = i
			m.ctrl.OpenMenu(s.Commits[i], msg.X, msg.Y)
		} else if s.Menu.Visible {
			m.ctrl.CloseMenu()
		}

	case tea.MouseButtonWheelUp, tea.MouseButtonWheelDown:
		delta := wheelStep
		if msg.Button == tea.MouseButtonWheelUp {
			delta = -delta
		}
		for _, p := range []panel{panelRepos, panelCommits, panelFiles, panelDiff} {
			if l.rect(p).contains(msg.X, msg.Y) {
				m.scroll(p, delta)
			}
		}
	}

	m.sync()
	return m, cmd
}

func (m Model) layout() layout {
	return computeLayout(m.width, m.height)
}

func (m Model) listLen(p panel) int {
	s := m.ctrl.State()
	switch p {
	case panelRepos:
		return len(s.Repos)
	case panelCommits:
		return len(s.Commits)
	case panelFiles:
		return len(s.Files)
	default:
		return len(m.lines)
	}
}

func (m Model) page() int {
	return visibleRows(m.layout().rect(m.focus))
}

// move shifts the cursor of the focused list, or scrolls the diff.
func (m *Model) move(delta int) {
	if m.focus == panelDiff {
		m.scroll(panelDiff, delta)
		return
	}
	m.cursor[m.focus] = clamp(m.cursor[m.focus]+delta, 0, m.listLen(m.focus)-1)
	m.ensureVisible(m.focus)
}

// scroll moves a panel's viewport without moving its cursor.
func (m *Model) scroll(p panel, delta int) {
	vis := visibleRows(m.layout().rect(p))
	m.offset[p] = clamp(m.offset[p]+delta, 0, m.listLen(p)-vis)
}

func (m *Model) ensureVisible(p panel) {
	vis := visibleRows(m.layout().rect(p))
	c := m.cursor[p]
	if c < m.offset[p] {
		m.offset[p] = c
	}
	if c >= m.offset[p]+vis {
		m.offset[p] = c - vis + 1
	}
}

func (m *Model) jumpToNextHunk() {
	for i := m.offset[panelDiff] + 1; i < len(m.lines); i++ {
		if m.lines[i].IsHunk {
			m.offset[panelDiff] = i
			return
		}
	}
}

func (m *Model) jumpToPrevHunk() {
	for i := m.offset[panelDiff] - 1; i >= 0; i-- {
		if m.lines[i].IsHunk {
			m.offset[panelDiff] = i
			return
		}
	}
}

// sync reconciles view state with the controller after a transition.
func (m *Model) sync() {
	s := m.ctrl.State()

	if loggedIn := s.LoggedIn(); loggedIn != m.wasLoggedIn {
		m.wasLoggedIn = loggedIn
		m.focus = panelRepos
		m.cursor = [3]int{}
		m.offset = [4]int{}
		m.showHelp = false
		m.input.Reset()
		if loggedIn {
			m.input.Blur()
		} else {
			m.input.Focus()
		}
	}
	if id := s.Selection.RepoID(); id != m.lastRepoID {
		m.lastRepoID = id
		m.cursor[panelCommits], m.offset[panelCommits] = 0, 0
	}
	if sha := s.Selection.CommitSHA(); sha != m.lastSHA {
		m.lastSHA = sha
		m.cursor[panelFiles], m.offset[panelFiles] = 0, 0
	}
	m.refreshLines(s)
	m.clampView()
}

func (m *Model) refreshLines(s app.State) {
	k := ""
	if s.Selection.File != nil {
		k = s.Selection.CommitSHA() + "\x00" + s.Selection.File.Filename
	}
	if k == m.linesKey {
		return
	}
	m.linesKey = k
	m.offset[panelDiff] = 0
	m.file, m.fileErr, m.lines = nil, "", nil
	if s.Selection.File == nil {
		return
	}

	f, err := diff.ParsePatch(*s.Selection.File)
	if err != nil {
		m.fileErr = err.Error()
		return
	}
	m.file = f
	if !f.NoPatch {
		m.lines = renderFile(f, m.hl)
	}
}

func (m *Model) clampView() {
	l := m.layout()
	for p := panelRepos; p <= panelFiles; p++ {
		n := m.listLen(p)
		m.cursor[p] = clamp(m.cursor[p], 0, n-1)
		m.offset[p] = clamp(m.offset[p], 0, n-visibleRows(l.rect(p)))
	}
	m.offset[panelDiff] = clamp(m.offset[panelDiff], 0, len(m.lines)-1)
}

// Run starts the TUI application.
func Run(ctrl *app.Controller, opts Options) error {
	p := tea.NewProgram(New(ctrl, opts), tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err := p.Run()
	return err
}
