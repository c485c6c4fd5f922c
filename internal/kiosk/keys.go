package kiosk

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the key bindings for the gate terminal.
type KeyMap struct {
	Visitor    key.Binding
	Subscriber key.Binding
	EditSubID  key.Binding
	Up         key.Binding
	Down       key.Binding
	Select     key.Binding
	Checkin    key.Binding
	NewCycle   key.Binding
	Dismiss    key.Binding
	Retry      key.Binding
	Quit       key.Binding
}

// DefaultKeyMap returns the standard bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Visitor: key.NewBinding(
			key.WithKeys("v"),
			key.WithHelp("v", "visitor"),
		),
		Subscriber: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "subscriber"),
		),
		EditSubID: key.NewBinding(
			key.WithKeys("i"),
			key.WithHelp("i", "subscription id"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter", " "),
			key.WithHelp("enter", "select zone"),
		),
		Checkin: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "check in"),
		),
		NewCycle: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "new check-in"),
		),
		Dismiss: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "hide ticket"),
		),
		Retry: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reload gate"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Visitor, k.Subscriber, k.EditSubID, k.Select, k.Checkin, k.NewCycle, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Visitor, k.Subscriber, k.EditSubID},
		{k.Up, k.Down, k.Select, k.Checkin},
		{k.NewCycle, k.Dismiss, k.Retry, k.Quit},
	}
}
