package listview

import (
	"strings"

	"charm.land/bubbles/v2/key"
)

type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Top      key.Binding
	Bottom   key.Binding
	Select   key.Binding
	Delete   key.Binding
	Actions  key.Binding
	Filter   key.Binding
	Refresh  key.Binding
	Cancel   key.Binding
	Quit     key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		PageUp:   key.NewBinding(key.WithKeys("pgup", "ctrl+b"), key.WithHelp("pgup", "page up")),
		PageDown: key.NewBinding(key.WithKeys("pgdown", "ctrl+f"), key.WithHelp("pgdn", "page down")),
		Top:      key.NewBinding(key.WithKeys("home", "g"), key.WithHelp("g", "top")),
		Bottom:   key.NewBinding(key.WithKeys("end", "G"), key.WithHelp("G", "bottom")),
		Select:   key.NewBinding(key.WithKeys("enter", "space"), key.WithHelp("enter", "select")),
		Delete:   key.NewBinding(key.WithKeys("d", "delete"), key.WithHelp("d", "delete")),
		Actions:  key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "actions")),
		Filter:   key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "filter")),
		Refresh:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Cancel:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// helpLine renders the short key legend shown in the status bar.
func (k keyMap) helpLine(extra map[string]string) string {
	bindings := []key.Binding{k.Up, k.Down, k.Select, k.Delete, k.Actions, k.Filter, k.Refresh, k.Quit}
	parts := make([]string, 0, len(bindings)+len(extra))
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	for _, name := range sortedKeys(extra) {
		parts = append(parts, name+" "+extra[name])
	}
	return strings.Join(parts, " • ")
}
