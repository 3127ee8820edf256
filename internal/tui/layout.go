package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/sprite-ai/easygit/internal/model"
)

type panel int

const (
	panelRepos panel = iota
	panelCommits
	panelFiles
	panelDiff
)

func (p panel) String() string {
	switch p {
	case panelRepos:
		return "Repositories"
	case panelCommits:
		return "Commits"
	case panelFiles:
		return "Files"
	case panelDiff:
		return "Diff"
	default:
		return ""
	}
}

const (
	menuWidth  = 20
	minPanelsH = 6
)

type rect struct {
	x, y, w, h int
}

func (r rect) contains(x, y int) bool {
	return x >= r.x && x < r.x+r.w && y >= r.y && y < r.y+r.h
}

// layout is the screen geometry. Row 0 is the header; the last two rows are
// the status bar and the toast line.
type layout struct {
	repos, commits, files, diff rect
}

func (l layout) rect(p panel) rect {
	switch p {
	case panelRepos:
		return l.repos
	case panelCommits:
		return l.commits
	case panelFiles:
		return l.files
	default:
		return l.diff
	}
}

func computeLayout(width, height int) layout {
	h := max(height-3, minPanelsH)
	reposW := max(width*22/100, 20)
	commitsW := max(width*33/100, 24)
	rightW := max(width-reposW-commitsW, 20)
	filesH := max(h/3, 5)
	diffH := max(h-filesH, 3)

	const top = 1
	return layout{
		repos:   rect{0, top, reposW, h},
		commits: rect{reposW, top, commitsW, h},
		files:   rect{reposW + commitsW, top, rightW, filesH},
		diff:    rect{reposW + commitsW, top + filesH, rightW, diffH},
	}
}

// visibleRows is the number of list items or diff lines a panel shows: the
// border takes two rows and the title one.
func visibleRows(r rect) int {
	return max(r.h-3, 1)
}

// rowAt maps a screen position to a list index inside r, given the panel's
// scroll offset and item count.
func rowAt(r rect, offset, n, x, y int) (int, bool) {
	if !r.contains(x, y) || x == r.x || x == r.x+r.w-1 {
		return 0, false
	}
	row := y - r.y - 2
	if row < 0 || row >= visibleRows(r) {
		return 0, false
	}
	i := offset + row
	if i >= n {
		return 0, false
	}
	return i, true
}

// menuRect places the context menu at its anchor, pulled back inside the screen.
func menuRect(menu model.ContextMenu, width, height int) rect {
	h := len(model.MenuActions) + 2
	x := min(menu.X, width-menuWidth)
	y := min(menu.Y, height-h)
	return rect{max(x, 0), max(y, 0), menuWidth, h}
}

// menuItemAt returns the menu entry under the pointer.
func menuItemAt(r rect, x, y int) (int, bool) {
	if !r.contains(x, y) {
		return 0, false
	}
	i := y - r.y - 1
	if i < 0 || i >= len(model.MenuActions) {
		return 0, false
	}
	return i, true
}

// overlay draws box over base with its top-left corner at (x, y). Rows to the
// right of the box are dropped.
func overlay(base, box string, x, y int) string {
	lines := strings.Split(base, "\n")
	for j, boxLine := range strings.Split(box, "\n") {
		row := y + j
		if row < 0 || row >= len(lines) {
			continue
		}
		left := ""
		if x > 0 {
			left = lipgloss.NewStyle().MaxWidth(x).Render(lines[row])
			if w := lipgloss.Width(left); w < x {
				left += strings.Repeat(" ", x-w)
			}
		}
		lines[row] = left + "\x1b[0m" + boxLine
	}
	return strings.Join(lines, "\n")
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	return min(max(v, lo), hi)
}
