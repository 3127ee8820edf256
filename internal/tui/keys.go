package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/sprite-ai/easygit/internal/config"
)

type keyMap struct {
	Up        key.Binding
	Down      key.Binding
	NextPanel key.Binding
	PrevPanel key.Binding
	Select    key.Binding
	Menu      key.Binding
	Close     key.Binding
	Refresh   key.Binding
	Logout    key.Binding
	Toggle    key.Binding
	NextHunk  key.Binding
	PrevHunk  key.Binding
	PageDown  key.Binding
	PageUp    key.Binding
	Help      key.Binding
	Quit      key.Binding
}

// newKeyMap builds bindings from user overrides layered on the defaults.
func newKeyMap(overrides config.Keybindings) keyMap {
	kb := config.MergeKeybindings(overrides)
	bind := func(action, desc string) key.Binding {
		keys := kb[action]
		return key.NewBinding(
			key.WithKeys(keys...),
			key.WithHelp(strings.Join(keys, "/"), desc),
		)
	}
	return keyMap{
		Up:        bind("up", "up"),
		Down:      bind("down", "down"),
		NextPanel: bind("next_panel", "next panel"),
		PrevPanel: bind("prev_panel", "prev panel"),
		Select:    bind("select", "select"),
		Menu:      bind("menu", "commit menu"),
		Close:     bind("close", "close"),
		Refresh:   bind("refresh", "refresh"),
		Logout:    bind("logout", "log out"),
		Toggle:    bind("toggle_split", "unified/split"),
		NextHunk:  bind("next_hunk", "next hunk"),
		PrevHunk:  bind("prev_hunk", "prev hunk"),
		PageDown:  bind("page_down", "page down"),
		PageUp:    bind("page_up", "page up"),
		Help:      bind("help", "help"),
		Quit:      bind("quit", "quit"),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.NextPanel, k.Select, k.Menu, k.Refresh, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PageUp, k.PageDown, k.NextPanel, k.PrevPanel},
		{k.Select, k.Menu, k.Close, k.Refresh},
		{k.NextHunk, k.PrevHunk, k.Toggle},
		{k.Logout, k.Help, k.Quit},
	}
}
