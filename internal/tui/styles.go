package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/sprite-ai/easygit/internal/config"
)

type styles struct {
	// Panels
	panel        lipgloss.Style
	panelFocused lipgloss.Style
	panelTitle   lipgloss.Style

	// List rows
	item         lipgloss.Style
	itemSelected lipgloss.Style
	itemCursor   lipgloss.Style
	dim          lipgloss.Style
	errText      lipgloss.Style
	statusAdded  lipgloss.Style
	statusRemove lipgloss.Style

	// Diff view
	lineNumber  lipgloss.Style
	addedLine   lipgloss.Style
	deletedLine lipgloss.Style
	contextLine lipgloss.Style
	hunkHeader  lipgloss.Style
	fileHeader  lipgloss.Style

	// Chrome
	header       lipgloss.Style
	statusBar    lipgloss.Style
	toastSuccess lipgloss.Style
	toastError   lipgloss.Style
	toastInfo    lipgloss.Style
	menu         lipgloss.Style
	menuItem     lipgloss.Style
	menuActive   lipgloss.Style
	loginBox     lipgloss.Style
	loginTitle   lipgloss.Style
}

func newStyles(p config.Palette) styles {
	border := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		Padding(0, 1)

	return styles{
		panel:        border.BorderForeground(p.Border),
		panelFocused: border.BorderForeground(p.Accent),
		panelTitle:   lipgloss.NewStyle().Foreground(p.Accent).Bold(true),

		item: lipgloss.NewStyle().Foreground(p.Text),
		itemSelected: lipgloss.NewStyle().
			Foreground(p.Text).
			Background(p.Selection).
			Bold(true),
		itemCursor: lipgloss.NewStyle().
			Foreground(p.Accent).
			Bold(true),
		dim:          lipgloss.NewStyle().Foreground(p.Dim),
		errText:      lipgloss.NewStyle().Foreground(p.Error),
		statusAdded:  lipgloss.NewStyle().Foreground(p.Added),
		statusRemove: lipgloss.NewStyle().Foreground(p.Removed),

		lineNumber: lipgloss.NewStyle().
			Foreground(p.Dim).
			Width(4).
			Align(lipgloss.Right),
		addedLine:   lipgloss.NewStyle().Foreground(p.Added),
		deletedLine: lipgloss.NewStyle().Foreground(p.Removed),
		contextLine: lipgloss.NewStyle().Foreground(p.Text),
		hunkHeader:  lipgloss.NewStyle().Foreground(p.Hunk).Bold(true),
		fileHeader:  lipgloss.NewStyle().Foreground(p.Hunk).Bold(true),

		header: lipgloss.NewStyle().
			Foreground(p.Text).
			Bold(true),
		statusBar: lipgloss.NewStyle().
			Foreground(p.Dim),
		toastSuccess: lipgloss.NewStyle().Foreground(p.Success).Bold(true),
		toastError:   lipgloss.NewStyle().Foreground(p.Error).Bold(true),
		toastInfo:    lipgloss.NewStyle().Foreground(p.Info),
		menu: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(p.Accent),
		menuItem: lipgloss.NewStyle().Foreground(p.Text).Padding(0, 1),
		menuActive: lipgloss.NewStyle().
			Foreground(p.Text).
			Background(p.Selection).
			Bold(true).
			Padding(0, 1),
		loginBox: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(p.Accent).
			Padding(1, 2),
		loginTitle: lipgloss.NewStyle().Foreground(p.Accent).Bold(true),
	}
}
