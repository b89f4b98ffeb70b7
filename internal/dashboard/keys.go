package dashboard

import "github.com/charmbracelet/bubbles/key"

// keyMap holds the dashboard key bindings.
type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	Select   key.Binding
	Previous key.Binding
	Next     key.Binding
	Jump     key.Binding
	Date     key.Binding
	Latest   key.Binding
	Detail   key.Binding
	Refresh  key.Binding
	Quit     key.Binding
}

// ShortHelp returns the bindings for the help bar.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Select, k.Previous, k.Next, k.Date, k.Latest, k.Detail, k.Refresh, k.Quit}
}

// FullHelp returns the bindings grouped for expanded help.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Select},
		{k.Previous, k.Next, k.Jump},
		{k.Date, k.Latest, k.Detail, k.Refresh, k.Quit},
	}
}

// dateKeys holds the bindings active while the date field is focused.
type dateKeys struct {
	Submit key.Binding
	Cancel key.Binding
}

func (k dateKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.Cancel}
}

func (k dateKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Submit, k.Cancel}}
}

// DefaultKeyMap returns the dashboard key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "view storm"),
		),
		Previous: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←/h", "prev image"),
		),
		Next: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→/l", "next image"),
		),
		Jump: key.NewBinding(
			key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8", "9"),
			key.WithHelp("1-9", "jump to image"),
		),
		Date: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "date"),
		),
		Latest: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "latest"),
		),
		Detail: key.NewBinding(
			key.WithKeys("i"),
			key.WithHelp("i", "details"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// DateKeyMap returns the bindings used while entering a date.
func DateKeyMap() dateKeys {
	return dateKeys{
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "apply (empty for latest)"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
	}
}
