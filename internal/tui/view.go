package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/sprite-ai/easygit/internal/app"
	"github.com/sprite-ai/easygit/internal/model"
)

// View implements tea.Model.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	s := m.ctrl.State()
	if !s.LoggedIn() {
		return m.renderLogin(s)
	}
	if m.showHelp {
		return m.renderHelp()
	}

	l := m.layout()
	left := lipgloss.JoinHorizontal(lipgloss.Top,
		m.renderRepos(s, l.repos),
		m.renderCommits(s, l.commits),
	)
	right := lipgloss.JoinVertical(lipgloss.Left,
		m.renderFiles(s, l.files),
		m.renderDiff(s, l.diff),
	)
	body := lipgloss.JoinHorizontal(lipgloss.Top, left, right)

	view := lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(s),
		body,
		m.renderStatusBar(),
		m.renderToast(s),
	)

	if s.Menu.Visible {
		r := menuRect(s.Menu, m.width, m.height)
		view = overlay(view, m.renderMenu(s.Menu), r.x, r.y)
	}
	return view
}

func (m Model) renderHeader(s app.State) string {
	left := " easygit  " + m.styles.dim.Render("@"+s.Session.Login)
	right := ""
	if s.Loading != model.LoadingNone {
		right = m.spinner.View() + " " + m.styles.dim.Render("loading "+s.Loading.String()) + " "
	}
	gap := max(m.width-lipgloss.Width(left)-lipgloss.Width(right), 0)
	return m.styles.header.MaxWidth(m.width).Render(left + strings.Repeat(" ", gap) + right)
}

// renderPanel frames content lines with a bordered box of exactly r's size.
func (m Model) renderPanel(p panel, title string, body []string, r rect) string {
	style := m.styles.panel
	if m.focus == p {
		style = m.styles.panelFocused
	}
	inner := r.w - 4
	lines := make([]string, 0, len(body)+1)
	lines = append(lines, m.styles.panelTitle.Render(truncate(title, inner)))
	lines = append(lines, body...)
	if limit := r.h - 2; len(lines) > limit {
		lines = lines[:max(limit, 0)]
	}
	return style.
		Width(r.w - 2).
		Height(r.h - 2).
		MaxHeight(r.h).
		Render(strings.Join(lines, "\n"))
}

// placeholder is the single dim, error or loading line shown in an empty panel.
func (m Model) placeholder(loading bool, errMsg, empty string) []string {
	switch {
	case loading:
		return []string{m.spinner.View() + " " + m.styles.dim.Render("Loading...")}
	case errMsg != "":
		return []string{m.styles.errText.Render(errMsg)}
	default:
		return []string{m.styles.dim.Render(empty)}
	}
}

// listRow renders one list entry, marking the cursor and the selection.
func (m Model) listRow(p panel, i int, selected bool, text string, inner int) string {
	prefix := "  "
	if m.focus == p && m.cursor[p] == i {
		prefix = m.styles.itemCursor.Render("> ")
	}
	text = truncate(text, inner-2)
	if selected {
		return prefix + m.styles.itemSelected.Render(text)
	}
	return prefix + m.styles.item.Render(text)
}

func (m Model) renderRepos(s app.State, r rect) string {
	inner := r.w - 4
	title := fmt.Sprintf("Repositories (%d)", len(s.Repos))

	if len(s.Repos) == 0 {
		body := m.placeholder(s.Loading == model.LoadingRepos, s.ReposErr, "No repositories")
		return m.renderPanel(panelRepos, title, body, r)
	}

	var body []string
	end := min(m.offset[panelRepos]+visibleRows(r), len(s.Repos))
	for i := m.offset[panelRepos]; i < end; i++ {
		repo := s.Repos[i]
		name := repo.FullName
		if repo.Private {
			name += " 🔒"
		}
		body = append(body, m.listRow(panelRepos, i, repo.ID == s.Selection.RepoID(), name, inner))
	}
	return m.renderPanel(panelRepos, title, body, r)
}

func (m Model) renderCommits(s app.State, r rect) string {
	inner := r.w - 4
	title := "Commits"
	if s.Selection.Repo != nil {
		title = fmt.Sprintf("Commits · %s", s.Selection.Repo.DefaultBranch)
	}

	if s.Selection.Repo == nil {
		return m.renderPanel(panelCommits, title, m.placeholder(false, "", "Select a repository"), r)
	}
	if len(s.Commits) == 0 {
		loading := s.Commits == nil || s.Loading == model.LoadingCommits
		body := m.placeholder(loading && s.CommitsErr == "", s.CommitsErr, "No commits")
		return m.renderPanel(panelCommits, title, body, r)
	}

	var body []string
	end := min(m.offset[panelCommits]+visibleRows(r), len(s.Commits))
	for i := m.offset[panelCommits]; i < end; i++ {
		c := s.Commits[i]
		sha := c.ShortSHA()
		if s.Reverting == c.SHA {
			sha = m.spinner.View() + " " + sha
		}
		text := fmt.Sprintf("%s %s", sha, c.ShortMessage)
		if who := commitAuthor(c); who != "" {
			text += " · " + who
		}
		body = append(body, m.listRow(panelCommits, i, c.SHA == s.Selection.CommitSHA(), text, inner))
	}
	return m.renderPanel(panelCommits, title, body, r)
}

func commitAuthor(c model.CommitSummary) string {
	if c.AuthorLogin != "" {
		return c.AuthorLogin
	}
	return c.AuthorName
}

func (m Model) renderFiles(s app.State, r rect) string {
	inner := r.w - 4
	title := "Files"
	if len(s.Files) > 0 {
		added, deleted := 0, 0
		for _, f := range s.Files {
			added += f.Additions
			deleted += f.Deletions
		}
		title = fmt.Sprintf("Files (%d) +%d -%d", len(s.Files), added, deleted)
	}

	if s.Selection.Commit == nil {
		return m.renderPanel(panelFiles, title, m.placeholder(false, "", "Select a commit"), r)
	}
	if len(s.Files) == 0 {
		loading := s.Files == nil || s.Loading == model.LoadingFiles
		body := m.placeholder(loading && s.FilesErr == "", s.FilesErr, "No files changed")
		return m.renderPanel(panelFiles, title, body, r)
	}

	var body []string
	end := min(m.offset[panelFiles]+visibleRows(r), len(s.Files))
	for i := m.offset[panelFiles]; i < end; i++ {
		f := s.Files[i]
		stats := fmt.Sprintf(" +%d -%d", f.Additions, f.Deletions)
		name := truncate(f.Filename, inner-4-len(stats))
		text := statusLetter(f.Status) + " " + name + stats
		body = append(body, m.listRow(panelFiles, i, f.Filename == s.Selection.Filename(), text, inner))
	}
	return m.renderPanel(panelFiles, title, body, r)
}

func statusLetter(st model.FileStatus) string {
	switch st {
	case model.StatusAdded:
		return "A"
	case model.StatusRemoved:
		return "D"
	case model.StatusRenamed:
		return "R"
	case model.StatusCopied:
		return "C"
	default:
		return "M"
	}
}

func (m Model) renderDiff(s app.State, r rect) string {
	inner := r.w - 4

	if s.Selection.File == nil {
		return m.renderPanel(panelDiff, "Diff", m.placeholder(false, "", "Select a file"), r)
	}
	if m.fileErr != "" {
		return m.renderPanel(panelDiff, s.Selection.File.Filename, m.placeholder(false, m.fileErr, ""), r)
	}
	if m.file == nil {
		return m.renderPanel(panelDiff, s.Selection.File.Filename, nil, r)
	}

	mode := "unified"
	if m.splitView {
		mode = "split"
	}
	title := fmt.Sprintf("%s  +%d -%d  %s", m.file.Name(), m.file.AddedLines, m.file.DeletedLines, mode)
	if m.file.NoPatch {
		body := m.placeholder(false, "", "No textual diff (binary, too large, or rename only)")
		return m.renderPanel(panelDiff, title, body, r)
	}

	var body []string
	end := min(m.offset[panelDiff]+visibleRows(r), len(m.lines))
	halfWidth := (inner - 3) / 2
	for i := m.offset[panelDiff]; i < end; i++ {
		if m.splitView {
			left, right := m.styles.styleLineSplit(m.lines[i], halfWidth)
			body = append(body, left+" │ "+right)
			continue
		}
		body = append(body, m.styles.styleLine(m.lines[i], inner))
	}
	return m.renderPanel(panelDiff, title, body, r)
}

func (m Model) renderStatusBar() string {
	return m.styles.statusBar.MaxWidth(m.width).Render(" " + m.help.View(m.keys))
}

func (m Model) renderToast(s app.State) string {
	var line string
	switch {
	case s.Toast != nil:
		switch s.Toast.Kind {
		case model.ToastSuccess:
			line = m.styles.toastSuccess.Render("✓ " + s.Toast.Message)
		case model.ToastError:
			line = m.styles.toastError.Render("✗ " + s.Toast.Message)
		default:
			line = m.styles.toastInfo.Render("• " + s.Toast.Message)
		}
	case s.Reverting != "":
		line = m.spinner.View() + " " + m.styles.dim.Render("Reverting "+model.ShortSHA(s.Reverting)+"...")
	}
	return lipgloss.NewStyle().MaxWidth(m.width).Render(" " + line)
}

func (m Model) renderMenu(menu model.ContextMenu) string {
	rows := make([]string, 0, len(model.MenuActions))
	for i, a := range model.MenuActions {
		st := m.styles.menuItem
		if i == menu.Cursor {
			st = m.styles.menuActive
		}
		rows = append(rows, st.Width(menuWidth-2).Render(a.String()))
	}
	return m.styles.menu.Render(strings.Join(rows, "\n"))
}

func (m Model) renderLogin(s app.State) string {
	var b strings.Builder
	b.WriteString(m.styles.loginTitle.Render("easygit"))
	b.WriteString("\n")
	b.WriteString(m.styles.dim.Render("Sign in with a GitHub personal access token"))
	b.WriteString("\n\n")

	switch {
	case s.Phase == app.PhaseRestoring:
		b.WriteString(m.spinner.View() + " Restoring session...")
	case s.Loading == model.LoadingLogin:
		b.WriteString(m.input.View())
		b.WriteString("\n\n")
		b.WriteString(m.spinner.View() + " Validating token...")
	default:
		b.WriteString(m.input.View())
		if s.LoginErr != "" {
			b.WriteString("\n\n")
			b.WriteString(m.styles.errText.Render(s.LoginErr))
		}
	}

	if s.Toast != nil {
		b.WriteString("\n\n")
		b.WriteString(m.styles.toastInfo.Render(s.Toast.Message))
	}
	b.WriteString("\n\n")
	b.WriteString(m.styles.dim.Render("enter sign in · ctrl+c quit"))

	box := m.styles.loginBox.Render(b.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func (m Model) renderHelp() string {
	var b strings.Builder
	b.WriteString(m.styles.fileHeader.Render("easygit keyboard shortcuts"))
	b.WriteString("\n\n")

	h := m.help
	h.ShowAll = true
	b.WriteString(h.View(m.keys))
	b.WriteString("\n\n")
	b.WriteString(m.styles.dim.Render("Right-click a commit, or press m on it, for revert and other actions."))
	b.WriteString("\n")
	b.WriteString(m.styles.dim.Render("Press ? or esc to close help"))
	return lipgloss.NewStyle().Padding(1, 2).Render(b.String())
}
