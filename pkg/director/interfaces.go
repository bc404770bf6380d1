package director

import "context"

// RowKind selects which row layout a record produces.
type RowKind string

// RowProducer is implemented by records shown in the data section.
// action is the select handler built by the director's action factory.
type RowProducer interface {
	Row(kind RowKind, action func()) Row
}

// Predicate filters a provider's results. Its syntax belongs to the provider;
// the empty predicate matches everything.
type Predicate string

// ResultGroup describes one group of a provider's results.
type ResultGroup struct {
	Name  string
	Count int
}

// ChangeType classifies a section or record change.
type ChangeType int

const (
	ChangeInsert ChangeType = iota + 1
	ChangeDelete
	ChangeMove
	ChangeUpdate
)

func (c ChangeType) String() string {
	switch c {
	case ChangeInsert:
		return "insert"
	case ChangeDelete:
		return "delete"
	case ChangeMove:
		return "move"
	case ChangeUpdate:
		return "update"
	default:
		return "unknown"
	}
}

// RecordChange describes how one record moved between two result snapshots.
// OldIndex is -1 for inserts, NewIndex is -1 for deletes.
type RecordChange struct {
	Type     ChangeType
	OldIndex int
	NewIndex int
	Fields   []string
}

// ChangeListener receives a provider's change notifications, possibly from a
// goroutine other than the UI loop.
type ChangeListener interface {
	WillChange()
	DidChangeSection(group ResultGroup, index int, change ChangeType)
	DidChangeRecord(record any, change RecordChange)
	DidChange()
}

// ResultProvider runs a query and exposes its results as a flat sequence.
type ResultProvider interface {
	// SetListener attaches l; nil detaches the current listener.
	SetListener(l ChangeListener)
	// RunQuery executes the query synchronously. It must be safe to call repeatedly.
	RunQuery(ctx context.Context) error
	// ResultGroups returns the current groups; nil means no rows.
	ResultGroups() []ResultGroup
	// RecordAt returns the record at a flat index within the first group.
	RecordAt(index int) any
	SetFilter(p Predicate)
}

// Queue runs work on the loop that owns the widget.
//
// Owns backs the affinity checks in SetProvider, Refresh and RefreshFilter.
// Implementations that cannot identify the calling goroutine may answer for
// the loop's phase instead (for example "an update is running"); such a check
// catches calls made while the loop is idle but not a stray goroutine that
// happens to run during an update.
type Queue interface {
	// Post schedules fn on the UI loop and returns immediately.
	Post(fn func())
	// Owns reports whether the caller is running on the UI loop.
	Owns() bool
}

// ListWidget is the rendering surface the director drives.
type ListWidget interface {
	// SetSource installs the data/event source; nil clears it.
	SetSource(src Source)
	ReloadData()
	Deselect(path IndexPath)
	// CellAt returns the visible cell at path, if any.
	CellAt(path IndexPath) (Cell, bool)
	// PathForCell is the reverse of CellAt.
	PathForCell(cell Cell) (IndexPath, bool)
	// DequeueCell returns a reusable cell for the reuse identifier.
	DequeueCell(reuseID string, path IndexPath) Cell
}

// Source is the callback surface a widget polls and notifies.
type Source interface {
	NumberOfSections() int
	NumberOfRows(section int) int
	CellForRow(path IndexPath) Cell
	HeightForRow(path IndexPath) int
	EstimatedHeightForRow(path IndexPath) int

	TitleForHeader(section int) string
	TitleForFooter(section int) string
	ViewForHeader(section int) View
	ViewForFooter(section int) View
	HeightForHeader(section int) int
	HeightForFooter(section int) int

	DidSelect(path IndexPath)
	DidDeselect(path IndexPath)
	WillDisplay(cell Cell, path IndexPath)
	ShouldHighlight(path IndexPath) bool
	WillSelect(path IndexPath) IndexPath

	CanEdit(path IndexPath) bool
	EditActions(path IndexPath) []EditAction
	CommitEdit(style EditStyle, path IndexPath)

	// CellAction delivers a custom action raised by a cell.
	CellAction(cell Cell, key string)
}

// HeightStrategy computes row heights when neither a handler nor the row
// provides one.
type HeightStrategy interface {
	Height(row Row, path IndexPath) int
	EstimatedHeight(row Row, path IndexPath) int
}

// CellRegisterer is told about every reuse identifier before the widget asks
// for its height.
type CellRegisterer interface {
	Register(reuseID string)
}
