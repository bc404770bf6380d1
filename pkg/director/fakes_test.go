package director

import (
	"context"
	"fmt"
)

// manualQueue collects posted work until drain is called.
type manualQueue struct {
	tasks   []func()
	foreign bool
}

func (q *manualQueue) Post(fn func()) { q.tasks = append(q.tasks, fn) }
func (q *manualQueue) Owns() bool     { return !q.foreign }

func (q *manualQueue) drain() {
	for len(q.tasks) > 0 {
		fn := q.tasks[0]
		q.tasks = q.tasks[1:]
		fn()
	}
}

type testCell struct {
	id    string
	title string
}

func (c *testCell) ReuseID() string { return c.id }

type fakeWidget struct {
	source     Source
	reloads    int
	deselected []IndexPath
	cells      map[IndexPath]*testCell
	events     *[]string
}

func newFakeWidget() *fakeWidget {
	return &fakeWidget{cells: map[IndexPath]*testCell{}}
}

func (w *fakeWidget) SetSource(src Source) { w.source = src }

func (w *fakeWidget) ReloadData() {
	w.reloads++
	if w.events != nil {
		*w.events = append(*w.events, "reload")
	}
}

func (w *fakeWidget) Deselect(path IndexPath) { w.deselected = append(w.deselected, path) }

func (w *fakeWidget) CellAt(path IndexPath) (Cell, bool) {
	c, ok := w.cells[path]
	return c, ok
}

func (w *fakeWidget) PathForCell(cell Cell) (IndexPath, bool) {
	for p, c := range w.cells {
		if Cell(c) == cell {
			return p, true
		}
	}
	return IndexPath{}, false
}

func (w *fakeWidget) DequeueCell(reuseID string, path IndexPath) Cell {
	c := &testCell{id: reuseID}
	w.cells[path] = c
	return c
}

// item is a record that produces rows.
type item struct {
	name  string
	click func(ActionContext) any
}

func (i item) Row(kind RowKind, action func()) Row {
	row := NewRow("item-"+string(kind), func(c Cell) {
		c.(*testCell).title = i.name
	}).On(ActionSelect, func(ActionContext) any {
		action()
		return nil
	})
	if i.click != nil {
		row = row.On(ActionClick, i.click)
	}
	return row
}

type fakeProvider struct {
	groups    []ResultGroup
	records   []any
	listener  ChangeListener
	filter    Predicate
	runs      int
	err       error
	onRun     func()
	listeners []ChangeListener
}

func newFakeProvider(records ...any) *fakeProvider {
	p := &fakeProvider{records: records}
	if len(records) > 0 {
		p.groups = []ResultGroup{{Name: "", Count: len(records)}}
	}
	return p
}

func (p *fakeProvider) SetListener(l ChangeListener) {
	p.listener = l
	p.listeners = append(p.listeners, l)
}

func (p *fakeProvider) RunQuery(context.Context) error {
	p.runs++
	if p.onRun != nil {
		p.onRun()
	}
	return p.err
}

func (p *fakeProvider) ResultGroups() []ResultGroup { return p.groups }

func (p *fakeProvider) RecordAt(index int) any {
	if index < 0 || index >= len(p.records) {
		panic(fmt.Sprintf("record %d out of range", index))
	}
	return p.records[index]
}

func (p *fakeProvider) SetFilter(pred Predicate) { p.filter = pred }

func staticRow(id string, hits *[]string) Row {
	return NewRow(id, nil).On(ActionSelect, func(ActionContext) any {
		if hits != nil {
			*hits = append(*hits, id)
		}
		return nil
	})
}
