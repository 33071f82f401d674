package tui

import "github.com/charmbracelet/bubbles/key"

// keyMap holds the global bindings. Editing keys go to the editor.
type keyMap struct {
	Run         key.Binding
	Cancel      key.Binding
	DryRun      key.Binding
	NewTab      key.Binding
	CloseTab    key.Binding
	NextTab     key.Binding
	PrevTab     key.Binding
	NextProject key.Binding
	Focus       key.Binding
	Copy        key.Binding
	Help        key.Binding
	Quit        key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Run: key.NewBinding(
			key.WithKeys("ctrl+r", "f5"),
			key.WithHelp("ctrl+r", "run"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("ctrl+g", "f6"),
			key.WithHelp("ctrl+g", "cancel"),
		),
		DryRun: key.NewBinding(
			key.WithKeys("ctrl+x", "f7"),
			key.WithHelp("ctrl+x", "dry run"),
		),
		NewTab: key.NewBinding(
			key.WithKeys("ctrl+t"),
			key.WithHelp("ctrl+t", "new tab"),
		),
		CloseTab: key.NewBinding(
			key.WithKeys("ctrl+w"),
			key.WithHelp("ctrl+w", "close tab"),
		),
		NextTab: key.NewBinding(
			key.WithKeys("ctrl+pgdown", "alt+]"),
			key.WithHelp("alt+]", "next tab"),
		),
		PrevTab: key.NewBinding(
			key.WithKeys("ctrl+pgup", "alt+["),
			key.WithHelp("alt+[", "previous tab"),
		),
		NextProject: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("ctrl+l", "next project"),
		),
		Focus: key.NewBinding(
			key.WithKeys("ctrl+o"),
			key.WithHelp("ctrl+o", "editor/results"),
		),
		Copy: key.NewBinding(
			key.WithKeys("ctrl+y"),
			key.WithHelp("ctrl+y", "copy results"),
		),
		Help: key.NewBinding(
			key.WithKeys("f1"),
			key.WithHelp("f1", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+q", "ctrl+c"),
			key.WithHelp("ctrl+q", "quit"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Run, k.Cancel, k.NewTab, k.NextTab, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Run, k.Cancel, k.DryRun},
		{k.NewTab, k.CloseTab, k.NextTab, k.PrevTab},
		{k.NextProject, k.Focus, k.Copy, k.Help, k.Quit},
	}
}
