package director

import "fmt"

// Automatic tells the widget to size a row or section itself.
const Automatic = -1

// IndexPath addresses a row in the flat section/row space the widget sees.
type IndexPath struct {
	Section int
	Row     int
}

func (p IndexPath) String() string {
	return fmt.Sprintf("%d:%d", p.Section, p.Row)
}

// ActionKind names an entry in a row's handler table.
type ActionKind string

const (
	ActionClick           ActionKind = "click"
	ActionClickDelete     ActionKind = "clickDelete"
	ActionSelect          ActionKind = "select"
	ActionDeselect        ActionKind = "deselect"
	ActionWillSelect      ActionKind = "willSelect"
	ActionWillDisplay     ActionKind = "willDisplay"
	ActionShouldHighlight ActionKind = "shouldHighlight"
	ActionHeight          ActionKind = "height"
	ActionEstimatedHeight ActionKind = "estimatedHeight"
	ActionConfigure       ActionKind = "configure"
)

const customActionPrefix = "custom:"

// CustomAction returns the action kind used for widget-defined actions such as
// a key bound to a cell.
func CustomAction(key string) ActionKind {
	return ActionKind(customActionPrefix + key)
}

// ActionContext is passed to every handler.
// Cell is nil when the widget has no visible cell for the row.
type ActionContext struct {
	Kind ActionKind
	Cell Cell
	Path IndexPath
}

// Handler reacts to an action. The meaning of the result depends on the kind:
// click handlers return non-nil to keep the row selected, height handlers
// return an int, willSelect handlers return an IndexPath, shouldHighlight
// handlers return a bool. Other kinds ignore the result.
type Handler func(ActionContext) any

// Cell is a widget-owned view that a row configures.
type Cell interface {
	ReuseID() string
}

// View is a header or footer supplied by the application.
type View interface {
	Height() int
}

// EditStyle is the kind of edit the widget commits for a row.
type EditStyle int

const (
	EditNone EditStyle = iota
	EditDelete
	EditInsert
)

// EditAction is an extra swipe/menu action offered for a row.
type EditAction struct {
	Title   string
	Key     string
	Handler Handler
}

// Row describes one list row. Zero heights mean "not set".
type Row struct {
	ReuseID         string
	Configure       func(Cell)
	Height          int
	EstimatedHeight int
	Actions         map[ActionKind]Handler
	EditActions     []EditAction
}

// NewRow builds a row for the given reuse identifier.
func NewRow(reuseID string, configure func(Cell)) Row {
	return Row{ReuseID: reuseID, Configure: configure}
}

// On returns a copy of the row with h registered for kind.
func (r Row) On(kind ActionKind, h Handler) Row {
	actions := make(map[ActionKind]Handler, len(r.Actions)+1)
	for k, v := range r.Actions {
		actions[k] = v
	}
	actions[kind] = h
	r.Actions = actions
	return r
}

// WithHeight returns a copy of the row with a fixed height.
func (r Row) WithHeight(h int) Row {
	r.Height = h
	return r
}

// WithEditActions returns a copy of the row offering the given edit actions.
func (r Row) WithEditActions(actions ...EditAction) Row {
	r.EditActions = append([]EditAction(nil), actions...)
	return r
}

// HasAction reports whether a handler is registered for kind.
func (r Row) HasAction(kind ActionKind) bool {
	_, ok := r.Actions[kind]
	return ok
}

// Invoke calls the handler registered for kind. Unregistered kinds return nil.
func (r Row) Invoke(kind ActionKind, cell Cell, path IndexPath) any {
	h, ok := r.Actions[kind]
	if !ok || h == nil {
		return nil
	}
	return h(ActionContext{Kind: kind, Cell: cell, Path: path})
}

// Section is a static block of rows placed before or after the data section.
type Section struct {
	Rows         []Row
	HeaderTitle  string
	FooterTitle  string
	HeaderView   View
	FooterView   View
	HeaderHeight int
	FooterHeight int
}

// NewSection builds a section holding rows.
func NewSection(rows ...Row) Section {
	return Section{Rows: rows}
}

func (s Section) headerHeight() int {
	if s.HeaderHeight > 0 {
		return s.HeaderHeight
	}
	if s.HeaderView != nil {
		return s.HeaderView.Height()
	}
	return 0
}

func (s Section) footerHeight() int {
	if s.FooterHeight > 0 {
		return s.FooterHeight
	}
	if s.FooterView != nil {
		return s.FooterView.Height()
	}
	return 0
}

// Chrome holds the header and footer of the data section.
type Chrome struct {
	HeaderTitle  string
	FooterTitle  string
	HeaderView   View
	FooterView   View
	HeaderHeight int
	FooterHeight int
}

func (c Chrome) headerHeight() int {
	if c.HeaderView != nil {
		return c.HeaderView.Height()
	}
	return c.HeaderHeight
}

func (c Chrome) footerHeight() int {
	if c.FooterView != nil {
		return c.FooterView.Height()
	}
	return c.FooterHeight
}
