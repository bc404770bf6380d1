// Package listview is a sectioned list widget for bubbletea. It is driven
// entirely through director.Source: the model polls counts, titles and cells
// on reload and reports selection, display and edit events back.
package listview

import (
	"fmt"
	"sort"
	"strings"

	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/spinner"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/go-logr/logr"
	"github.com/google/uuid"
	runewidth "github.com/mattn/go-runewidth"

	"github.com/oakwood-commons/listdirector/pkg/director"
)

// Renderer is implemented by header and footer views that draw themselves.
// Views that don't are drawn as blank space of their height.
type Renderer interface {
	Render(width int) string
}

// Options configure a Model.
type Options struct {
	Width   int
	Height  int
	NoColor bool
	Theme   Theme
	Title   string

	// Filter applies a filter expression. done runs on the update loop once
	// the filtered results are in. A non-nil error means done will never run.
	Filter func(expr string, done func()) error
	// Refresh re-runs the current query.
	Refresh func()
	// CellKeys maps a key press to a custom cell action key.
	CellKeys map[string]string
	// AltScreen draws the list in the alternate screen buffer.
	AltScreen bool

	Logger logr.Logger
}

type entryKind int

const (
	entryHeader entryKind = iota
	entryRow
	entryFooter
)

type entry struct {
	kind    entryKind
	section int
	row     int
	height  int
	auto    bool // height follows the cell's content
	title   string
	view    director.View
}

func (e entry) path() director.IndexPath {
	return director.IndexPath{Section: e.section, Row: e.row}
}

// Model is the bubbletea model. It implements director.ListWidget and hands
// out a director.Queue bound to its update loop.
type Model struct {
	opts  Options
	log   logr.Logger
	keys  keyMap
	queue *loopQueue

	source  director.Source
	entries []entry
	rows    []int // indexes into entries of row entries
	cursor  int   // index into rows, -1 when there are none
	offset  int   // first visible line
	width   int
	height  int

	selected  *director.IndexPath
	cells     map[director.IndexPath]*TextCell
	byHandle  map[uuid.UUID]director.IndexPath
	pool      map[string][]*TextCell
	displayed map[director.IndexPath]bool
	reloads   int

	input      textinput.Model
	filtering  bool
	filterExpr string
	refreshing bool
	spinner    spinner.Model

	menu     []director.EditAction
	menuOpen bool

	status    string
	statusErr bool
}

var _ director.ListWidget = (*Model)(nil)

// New creates an empty list. Attach a source with SetSource, usually by
// creating a director with the model as its widget and Queue().
func New(opts Options) *Model {
	if opts.Width <= 0 {
		opts.Width = 80
	}
	if opts.Height <= 0 {
		opts.Height = 24
	}
	if opts.Theme == (Theme{}) {
		opts.Theme = DefaultTheme()
	}

	ti := textinput.New()
	ti.Prompt = "filter ❯ "
	ti.Placeholder = `r.status == "open"`
	ti.CharLimit = 500
	ti.SetWidth(opts.Width - 12)

	s := spinner.New()
	s.Spinner = spinner.Dot

	return &Model{
		opts:      opts,
		log:       opts.Logger.WithName("listview"),
		keys:      defaultKeyMap(),
		queue:     newLoopQueue(),
		cursor:    -1,
		width:     opts.Width,
		height:    opts.Height,
		cells:     map[director.IndexPath]*TextCell{},
		byHandle:  map[uuid.UUID]director.IndexPath{},
		pool:      map[string][]*TextCell{},
		displayed: map[director.IndexPath]bool{},
		input:     ti,
		spinner:   s,
	}
}

// Queue returns the queue that runs work on this model's update loop.
func (m *Model) Queue() director.Queue { return m.queue }

// Drain runs posted work immediately. Use it only when no program is running,
// such as when rendering a snapshot.
func (m *Model) Drain() int { return m.queue.drain() }

// SetSource implements director.ListWidget.
func (m *Model) SetSource(src director.Source) {
	m.source = src
	if src == nil {
		m.entries, m.rows = nil, nil
		m.cursor = -1
		m.recycleCells()
	}
}

// ReloadData implements director.ListWidget. Cells are recycled and the
// layout is rebuilt from the source.
func (m *Model) ReloadData() {
	m.reloads++
	m.recycleCells()
	m.entries = m.entries[:0]
	m.rows = m.rows[:0]
	if m.source == nil {
		m.cursor = -1
		return
	}

	for s := 0; s < m.source.NumberOfSections(); s++ {
		if e, ok := m.chromeEntry(entryHeader, s); ok {
			m.entries = append(m.entries, e)
		}
		for r := 0; r < m.source.NumberOfRows(s); r++ {
			path := director.IndexPath{Section: s, Row: r}
			e := entry{kind: entryRow, section: s, row: r}
			e.height, e.auto = m.resolveRowHeight(path)
			m.rows = append(m.rows, len(m.entries))
			m.entries = append(m.entries, e)
		}
		if e, ok := m.chromeEntry(entryFooter, s); ok {
			m.entries = append(m.entries, e)
		}
	}

	if m.selected != nil && !m.valid(*m.selected) {
		m.selected = nil
	}
	switch {
	case len(m.rows) == 0:
		m.cursor = -1
	case m.cursor < 0:
		m.cursor = m.nextHighlightable(0, 1)
	default:
		m.cursor = min(m.cursor, len(m.rows)-1)
		if !m.highlightable(m.cursor) {
			m.cursor = m.nextHighlightable(m.cursor, 1)
		}
	}
	m.layout()
}

// Reloads counts ReloadData calls.
func (m *Model) Reloads() int { return m.reloads }

func (m *Model) chromeEntry(kind entryKind, section int) (entry, bool) {
	e := entry{kind: kind, section: section, row: -1}
	if kind == entryHeader {
		e.title = m.source.TitleForHeader(section)
		e.view = m.source.ViewForHeader(section)
		e.height = m.source.HeightForHeader(section)
	} else {
		e.title = m.source.TitleForFooter(section)
		e.view = m.source.ViewForFooter(section)
		e.height = m.source.HeightForFooter(section)
	}
	if e.height <= 0 && e.title != "" {
		e.height = 1
	}
	return e, e.height > 0
}

func (m *Model) resolveRowHeight(path director.IndexPath) (int, bool) {
	if h := m.source.HeightForRow(path); h > 0 {
		return h, false
	}
	if h := m.source.EstimatedHeightForRow(path); h > 0 {
		return h, true
	}
	return 1, true
}

func (m *Model) recycleCells() {
	for path, c := range m.cells {
		delete(m.byHandle, c.handle)
		delete(m.cells, path)
		m.pool[c.reuseID] = append(m.pool[c.reuseID], c)
	}
	clear(m.displayed)
}

// Deselect implements director.ListWidget.
func (m *Model) Deselect(path director.IndexPath) {
	if m.selected != nil && *m.selected == path {
		m.selected = nil
	}
}

// CellAt implements director.ListWidget.
func (m *Model) CellAt(path director.IndexPath) (director.Cell, bool) {
	c, ok := m.cells[path]
	if !ok {
		return nil, false
	}
	return c, true
}

// PathForCell implements director.ListWidget.
func (m *Model) PathForCell(cell director.Cell) (director.IndexPath, bool) {
	c, ok := cell.(*TextCell)
	if !ok || c == nil {
		return director.IndexPath{}, false
	}
	path, ok := m.byHandle[c.handle]
	return path, ok
}

// DequeueCell implements director.ListWidget.
func (m *Model) DequeueCell(reuseID string, path director.IndexPath) director.Cell {
	if c, ok := m.cells[path]; ok {
		if c.reuseID == reuseID {
			c.reset()
			return c
		}
		delete(m.byHandle, c.handle)
		m.pool[c.reuseID] = append(m.pool[c.reuseID], c)
	}
	var c *TextCell
	if free := m.pool[reuseID]; len(free) > 0 {
		c = free[len(free)-1]
		m.pool[reuseID] = free[:len(free)-1]
		c.reset()
	} else {
		c = newTextCell(reuseID)
	}
	m.cells[path] = c
	m.byHandle[c.handle] = path
	return c
}

// valid guards every per-row source call. Provider refreshes land before the
// matching reload, so the cached layout can briefly be ahead of the source.
func (m *Model) valid(path director.IndexPath) bool {
	if m.source == nil || path.Section < 0 || path.Row < 0 {
		return false
	}
	return path.Section < m.source.NumberOfSections() && path.Row < m.source.NumberOfRows(path.Section)
}

func (m *Model) rowPath(i int) director.IndexPath {
	return m.entries[m.rows[i]].path()
}

func (m *Model) highlightable(i int) bool {
	if i < 0 || i >= len(m.rows) {
		return false
	}
	path := m.rowPath(i)
	return m.valid(path) && m.source.ShouldHighlight(path)
}

// nextHighlightable scans from i in direction dir. It returns i's clamped
// value when nothing qualifies.
func (m *Model) nextHighlightable(i, dir int) int {
	for j := i; j >= 0 && j < len(m.rows); j += dir {
		if m.highlightable(j) {
			return j
		}
	}
	return max(min(i, len(m.rows)-1), 0)
}

func (m *Model) cellFor(path director.IndexPath) *TextCell {
	if c, ok := m.cells[path]; ok {
		return c
	}
	if !m.valid(path) {
		return nil
	}
	c, _ := m.source.CellForRow(path).(*TextCell)
	return c
}

func (m *Model) bodyHeight() int {
	return max(m.height-m.chromeLines(), 1)
}

func (m *Model) chromeLines() int {
	n := 1 // status bar
	if m.opts.Title != "" {
		n++
	}
	if m.filtering || m.menuOpen {
		n++
	}
	return n
}

// layout scrolls the cursor into view and materializes visible cells.
func (m *Model) layout() {
	if m.source == nil {
		return
	}
	// Materializing can change automatic heights, so settle twice.
	for range 2 {
		m.scrollToCursor()
		m.materializeVisible()
	}
}

func (m *Model) lineOf(entryIndex int) int {
	line := 0
	for i := 0; i < entryIndex; i++ {
		line += m.entries[i].height
	}
	return line
}

func (m *Model) totalLines() int {
	return m.lineOf(len(m.entries))
}

func (m *Model) scrollToCursor() {
	body := m.bodyHeight()
	if m.cursor >= 0 {
		idx := m.rows[m.cursor]
		start := m.lineOf(idx)
		end := start + m.entries[idx].height
		if start < m.offset {
			m.offset = start
		}
		if end > m.offset+body {
			m.offset = end - body
		}
	}
	m.offset = max(min(m.offset, m.totalLines()-body), 0)
}

func (m *Model) materializeVisible() {
	body := m.bodyHeight()
	line := 0
	visible := map[director.IndexPath]bool{}
	defer func() {
		// Rows that scrolled away get willDisplay again when they return.
		for path := range m.displayed {
			if !visible[path] {
				delete(m.displayed, path)
			}
		}
	}()
	for i := range m.entries {
		e := &m.entries[i]
		if line >= m.offset+body {
			break
		}
		inView := line+e.height > m.offset
		line += e.height
		if !inView || e.kind != entryRow {
			continue
		}
		path := e.path()
		c := m.cellFor(path)
		if c == nil {
			continue
		}
		visible[path] = true
		if e.auto {
			e.height = max(c.NaturalHeight(m.width), 1)
		}
		if !m.displayed[path] {
			m.displayed[path] = true
			m.source.WillDisplay(c, path)
		}
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	m.queue.started.Store(true)
	return m.queue.wait()
}

// Update implements tea.Model. Work posted to the queue runs here.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	m.queue.inLoop.Store(true)
	defer m.queue.inLoop.Store(false)

	var cmds []tea.Cmd
	switch msg := msg.(type) {
	case taskMsg:
		m.queue.drain()
		cmds = append(cmds, m.queue.wait())
	case tea.WindowSizeMsg:
		m.setSize(msg.Width, msg.Height)
	case spinner.TickMsg:
		if m.refreshing {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
	case tea.KeyPressMsg:
		cmds = append(cmds, m.handleKey(msg))
	}

	// Tasks posted while handling msg run before the frame is drawn.
	m.queue.drain()
	return m, tea.Batch(cmds...)
}

func (m *Model) setSize(w, h int) {
	if w > 0 {
		m.width = w
		m.input.SetWidth(max(w-12, 10))
	}
	if h > 0 {
		m.height = h
	}
	for i := range m.entries {
		e := &m.entries[i]
		if e.kind != entryRow || !e.auto {
			continue
		}
		if c, ok := m.cells[e.path()]; ok {
			e.height = max(c.NaturalHeight(m.width), 1)
		}
	}
	m.layout()
}

func (m *Model) handleKey(msg tea.KeyPressMsg) tea.Cmd {
	if m.filtering {
		return m.handleFilterKey(msg)
	}
	if m.menuOpen {
		m.handleMenuKey(msg)
		return nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit
	case key.Matches(msg, m.keys.Up):
		m.move(-1)
	case key.Matches(msg, m.keys.Down):
		m.move(1)
	case key.Matches(msg, m.keys.PageUp):
		m.move(-max(m.bodyHeight()-1, 1))
	case key.Matches(msg, m.keys.PageDown):
		m.move(max(m.bodyHeight()-1, 1))
	case key.Matches(msg, m.keys.Top):
		m.jump(m.nextHighlightable(0, 1))
	case key.Matches(msg, m.keys.Bottom):
		m.jump(m.nextHighlightable(len(m.rows)-1, -1))
	case key.Matches(msg, m.keys.Select):
		m.selectCursor()
	case key.Matches(msg, m.keys.Delete):
		m.deleteCursor()
	case key.Matches(msg, m.keys.Actions):
		m.openMenu()
	case key.Matches(msg, m.keys.Filter):
		m.filtering = true
		m.input.SetValue(m.filterExpr)
		m.input.SetCursor(len(m.filterExpr))
		m.input.Focus()
		m.layout()
	case key.Matches(msg, m.keys.Refresh):
		if m.opts.Refresh != nil {
			m.opts.Refresh()
			m.setStatus("refreshed", false)
		}
	case key.Matches(msg, m.keys.Cancel):
		m.status = ""
	default:
		if action, ok := m.opts.CellKeys[msg.String()]; ok {
			m.cellAction(action)
		}
	}
	return nil
}

func (m *Model) handleFilterKey(msg tea.KeyPressMsg) tea.Cmd {
	switch msg.String() {
	case "enter":
		expr := strings.TrimSpace(m.input.Value())
		m.filtering = false
		m.input.Blur()
		return m.applyFilter(expr)
	case "esc":
		m.filtering = false
		m.input.Blur()
		m.layout()
		return nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

// ApplyFilter submits expr as if typed into the filter bar.
func (m *Model) ApplyFilter(expr string) tea.Cmd {
	return m.applyFilter(strings.TrimSpace(expr))
}

func (m *Model) applyFilter(expr string) tea.Cmd {
	if m.opts.Filter == nil {
		return nil
	}
	m.refreshing = true
	err := m.opts.Filter(expr, func() {
		m.refreshing = false
		m.filterExpr = expr
		if expr == "" {
			m.setStatus("filter cleared", false)
		} else {
			m.setStatus("filter applied", false)
		}
	})
	if err != nil {
		m.refreshing = false
		m.setStatus(err.Error(), true)
		m.log.V(1).Info("filter rejected", "expr", expr, "error", err.Error())
		return nil
	}
	if !m.refreshing {
		return nil
	}
	return m.spinner.Tick
}

func (m *Model) handleMenuKey(msg tea.KeyPressMsg) {
	s := msg.String()
	if s == "esc" || s == "e" {
		m.menuOpen = false
		m.layout()
		return
	}
	if len(s) != 1 || s[0] < '1' || s[0] > '9' {
		return
	}
	i := int(s[0] - '1')
	if i >= len(m.menu) || m.cursor < 0 {
		return
	}
	a := m.menu[i]
	m.menuOpen = false
	path := m.rowPath(m.cursor)
	if a.Handler != nil && m.valid(path) {
		a.Handler(director.ActionContext{Kind: director.CustomAction(a.Key), Cell: m.cellFor(path), Path: path})
	}
	m.setStatus(a.Title, false)
	m.layout()
}

func (m *Model) move(delta int) {
	if m.cursor < 0 || delta == 0 {
		return
	}
	dir := 1
	if delta < 0 {
		dir = -1
	}
	target := max(min(m.cursor+delta, len(m.rows)-1), 0)
	if next := m.nextHighlightable(target, dir); m.highlightable(next) {
		m.jump(next)
		return
	}
	if prev := m.nextHighlightable(target, -dir); m.highlightable(prev) {
		m.jump(prev)
	}
}

func (m *Model) jump(i int) {
	if i < 0 || i >= len(m.rows) {
		return
	}
	m.cursor = i
	m.layout()
}

func (m *Model) indexOf(path director.IndexPath) int {
	for i := range m.rows {
		if m.rowPath(i) == path {
			return i
		}
	}
	return -1
}

// selectCursor runs the willSelect, deselect and select sequence for the
// cursor row.
func (m *Model) selectCursor() {
	if !m.highlightable(m.cursor) {
		return
	}
	path := m.rowPath(m.cursor)
	target := m.source.WillSelect(path)
	if target != path {
		i := m.indexOf(target)
		if i < 0 || !m.valid(target) {
			return
		}
		m.cursor = i
		m.layout()
	}
	if prev := m.selected; prev != nil && *prev != target && m.valid(*prev) {
		m.source.DidDeselect(*prev)
	}
	sel := target
	m.selected = &sel
	m.source.DidSelect(target)
}

func (m *Model) deleteCursor() {
	if m.cursor < 0 {
		return
	}
	path := m.rowPath(m.cursor)
	if !m.valid(path) || !m.source.CanEdit(path) {
		return
	}
	m.source.CommitEdit(director.EditDelete, path)
}

func (m *Model) openMenu() {
	if m.cursor < 0 {
		return
	}
	path := m.rowPath(m.cursor)
	if !m.valid(path) {
		return
	}
	m.menu = m.source.EditActions(path)
	if len(m.menu) == 0 {
		m.setStatus("no actions for this row", false)
		return
	}
	m.menuOpen = true
	m.layout()
}

func (m *Model) cellAction(action string) {
	if m.cursor < 0 {
		return
	}
	c := m.cellFor(m.rowPath(m.cursor))
	if c == nil {
		return
	}
	m.source.CellAction(c, action)
}

func (m *Model) setStatus(s string, isErr bool) {
	m.status = s
	m.statusErr = isErr
}

// SetStatus shows a message in the status bar.
func (m *Model) SetStatus(s string) { m.setStatus(s, false) }

// SetError shows err in the status bar in the error color.
func (m *Model) SetError(err error) {
	if err != nil {
		m.setStatus(err.Error(), true)
	}
}

// StatusText returns the status bar message.
func (m *Model) StatusText() string { return m.status }

// Cursor returns the path under the cursor.
func (m *Model) Cursor() (director.IndexPath, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return director.IndexPath{}, false
	}
	return m.rowPath(m.cursor), true
}

// Selected returns the selected path.
func (m *Model) Selected() (director.IndexPath, bool) {
	if m.selected == nil {
		return director.IndexPath{}, false
	}
	return *m.selected, true
}

// Refreshing reports whether a filter is waiting for results.
func (m *Model) Refreshing() bool { return m.refreshing }

// FilterExpr returns the filter in effect.
func (m *Model) FilterExpr() string { return m.filterExpr }

// View implements tea.Model.
func (m *Model) View() tea.View {
	v := tea.NewView(m.Render())
	v.AltScreen = m.opts.AltScreen
	return v
}

// Render draws the list as plain text with ANSI styling unless NoColor is set.
func (m *Model) Render() string {
	th := m.opts.Theme
	var out []string
	if m.opts.Title != "" {
		out = append(out, m.style(lipgloss.NewStyle().Bold(true).Foreground(th.HeaderFG), runewidth.Truncate(m.opts.Title, m.width, "…")))
	}

	body := m.bodyLines()
	for len(body) < m.bodyHeight() {
		body = append(body, "")
	}
	out = append(out, body...)

	switch {
	case m.filtering:
		out = append(out, m.input.View())
	case m.menuOpen:
		out = append(out, m.menuLine())
	}
	out = append(out, m.statusLine())
	return strings.Join(out, "\n")
}

func (m *Model) style(s lipgloss.Style, text string) string {
	if m.opts.NoColor {
		return text
	}
	return s.Render(text)
}

func (m *Model) bodyLines() []string {
	th := m.opts.Theme
	body := m.bodyHeight()
	var lines []string
	line := 0
	for i, e := range m.entries {
		if line >= m.offset+body {
			break
		}
		var block []string
		switch e.kind {
		case entryHeader, entryFooter:
			block = m.renderChrome(e)
		case entryRow:
			path := e.path()
			c, ok := m.cells[path]
			if !ok {
				block = make([]string, e.height)
				break
			}
			isCursor := m.cursor >= 0 && m.rows[m.cursor] == i
			dim := !m.displayedHighlightable(path)
			block = c.render(m.width, e.height, th, isCursor, dim, m.opts.NoColor)
			if m.selected != nil && *m.selected == path && !isCursor && m.opts.NoColor {
				block[0] = "* " + runewidth.Truncate(block[0], m.width-2, "")
			}
		}
		for _, l := range block {
			if line >= m.offset && line < m.offset+body {
				lines = append(lines, l)
			}
			line++
		}
	}
	return lines
}

func (m *Model) displayedHighlightable(path director.IndexPath) bool {
	return m.valid(path) && m.source.ShouldHighlight(path)
}

func (m *Model) renderChrome(e entry) []string {
	th := m.opts.Theme
	var block []string
	if r, ok := e.view.(Renderer); ok {
		block = strings.Split(r.Render(m.width), "\n")
	} else if e.title != "" {
		fg := th.HeaderFG
		text := strings.ToUpper(e.title)
		if e.kind == entryFooter {
			fg = th.FooterFG
			text = e.title
		}
		block = []string{m.style(lipgloss.NewStyle().Foreground(fg).Bold(e.kind == entryHeader), runewidth.Truncate(text, m.width, "…"))}
		if e.kind == entryHeader && e.height > 1 {
			block = append(block, m.style(lipgloss.NewStyle().Foreground(th.SeparatorColor), strings.Repeat("─", m.width)))
		}
	}
	for len(block) < e.height {
		block = append(block, "")
	}
	return block[:e.height]
}

func (m *Model) menuLine() string {
	parts := make([]string, len(m.menu))
	for i, a := range m.menu {
		parts[i] = fmt.Sprintf("%d %s", i+1, a.Title)
	}
	return m.style(lipgloss.NewStyle().Foreground(m.opts.Theme.InputFG), "actions: "+strings.Join(parts, "  ")+"  (esc)")
}

func (m *Model) statusLine() string {
	th := m.opts.Theme
	var left string
	switch {
	case m.refreshing:
		left = m.spinner.View() + " filtering…"
	case m.status != "":
		left = m.status
	default:
		left = m.keys.helpLine(m.opts.CellKeys)
	}
	if m.filterExpr != "" && !m.refreshing {
		left = "[" + m.filterExpr + "] " + left
	}
	right := fmt.Sprintf("%d rows", len(m.rows))
	if p, ok := m.Cursor(); ok {
		right = fmt.Sprintf("%s  %s", p, right)
	}
	gap := m.width - runewidth.StringWidth(right) - 1
	left = runewidth.FillRight(runewidth.Truncate(left, max(gap, 0), "…"), max(gap, 0))
	fg := th.StatusColor
	if m.statusErr {
		fg = th.StatusError
	}
	return m.style(lipgloss.NewStyle().Foreground(fg), left+" "+right)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
