package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the dashboard.
type keyMap struct {
	up      key.Binding
	down    key.Binding
	enter   key.Binding
	back    key.Binding
	submit  key.Binding
	claim   key.Binding
	retry   key.Binding
	remove  key.Binding
	watch   key.Binding
	refresh key.Binding
	yes     key.Binding
	no      key.Binding
	quit    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		enter:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "details")),
		back:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		submit:  key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "summarize")),
		claim:   key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "claim")),
		retry:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "retry")),
		remove:  key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		watch:   key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "watch")),
		refresh: key.NewBinding(key.WithKeys("R", "ctrl+r"), key.WithHelp("R", "refresh")),
		yes:     key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "yes")),
		no:      key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "no")),
		quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.submit, k.claim, k.retry, k.remove, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.enter, k.back},
		{k.submit, k.claim, k.retry, k.remove, k.watch},
		{k.refresh, k.quit},
	}
}
