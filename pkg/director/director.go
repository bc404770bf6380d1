// Package director binds a live query result set to a sectioned list widget.
//
// A Director lays the list out in three regions: static sections before the
// data, one data section mirroring a ResultProvider, and static sections after
// it. It answers the widget's data-source callbacks by translating flat
// (section, row) coordinates into rows, routes widget events to each row's
// handler table, and reloads the widget whenever the provider reports a
// finished change.
//
// All methods except the ChangeListener ones must be called on the UI loop
// described by the Queue. Provider notifications may arrive on any goroutine;
// the director only ever posts work back to the queue from them.
package director

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"
)

// State is the director's lifecycle state.
type State int

const (
	StateUninitialized State = iota
	StateBound
	StateRefreshing
	StateDetached
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateBound:
		return "bound"
	case StateRefreshing:
		return "refreshing"
	case StateDetached:
		return "detached"
	default:
		return "unknown"
	}
}

// ActionFactory builds the select handler handed to a record's Row method.
type ActionFactory[T RowProducer] func(record T) func()

// Config wires a Director.
type Config[T RowProducer] struct {
	Widget   ListWidget
	Provider ResultProvider
	Queue    Queue

	// RowKind is passed to every record's Row method.
	RowKind RowKind
	// Action builds the per-record select handler. Defaults to a debug log line.
	Action ActionFactory[T]

	SectionsBefore []Section
	SectionsAfter  []Section
	DataChrome     Chrome

	HeightStrategy HeightStrategy
	Registerer     CellRegisterer

	Logger logr.Logger
}

// Director is the sectioned list director. Create it with New.
type Director[T RowProducer] struct {
	widget   ListWidget // non-owning; cleared by Detach
	provider ResultProvider
	queue    Queue
	log      logr.Logger

	rowKind RowKind
	action  ActionFactory[T]

	sectionsBefore []Section
	sectionsAfter  []Section
	dataChrome     Chrome

	heightStrategy HeightStrategy
	registerer     CellRegisterer

	// sections is bookkeeping for the fluent mutation API only; routing
	// never reads it.
	sections []Section

	pending func()
	state   State
}

// New builds a director, installs it as the widget's source and binds the
// provider, running its query. It must be called on the UI loop.
func New[T RowProducer](ctx context.Context, cfg Config[T]) *Director[T] {
	d := &Director[T]{
		widget:         cfg.Widget,
		queue:          cfg.Queue,
		log:            cfg.Logger.WithName("director"),
		rowKind:        cfg.RowKind,
		action:         cfg.Action,
		sectionsBefore: append([]Section(nil), cfg.SectionsBefore...),
		sectionsAfter:  append([]Section(nil), cfg.SectionsAfter...),
		dataChrome:     cfg.DataChrome,
		heightStrategy: cfg.HeightStrategy,
		registerer:     cfg.Registerer,
	}
	if d.queue == nil {
		panic("director: Config.Queue is required")
	}
	if d.action == nil {
		d.action = d.defaultAction
	}
	if d.widget != nil {
		d.widget.SetSource(d)
	}
	if cfg.Provider != nil {
		d.SetProvider(ctx, cfg.Provider)
	}
	return d
}

func (d *Director[T]) defaultAction(_ T) func() {
	return func() {
		d.log.V(1).Info("row selected")
	}
}

// State returns the lifecycle state.
func (d *Director[T]) State() State {
	return d.state
}

// Provider returns the attached provider.
func (d *Director[T]) Provider() ResultProvider {
	return d.provider
}

// DataSectionIndex is the flat index of the data section.
func (d *Director[T]) DataSectionIndex() int {
	return len(d.sectionsBefore)
}

func (d *Director[T]) mustOwnQueue(op string) {
	if !d.queue.Owns() {
		panic(fmt.Errorf("%s: %w", op, ErrNotOnUIQueue))
	}
}

// SetProvider replaces the result provider. The previous provider stops
// notifying this director, the new query runs immediately and a reload is
// scheduled. A query failure is logged and leaves the widget untouched.
func (d *Director[T]) SetProvider(ctx context.Context, p ResultProvider) {
	d.mustOwnQueue("SetProvider")
	if d.state == StateDetached {
		d.log.Info("ignoring provider on detached director")
		return
	}
	if d.provider != nil {
		d.provider.SetListener(nil)
	}
	d.provider = p
	if p == nil {
		return
	}
	p.SetListener(d)
	if d.state == StateUninitialized {
		d.state = StateBound
	}
	if err := p.RunQuery(ctx); err != nil {
		d.log.Error(err, "query failed while attaching provider")
		return
	}
	d.Reload()
}

// Refresh re-runs the current query and schedules a reload.
func (d *Director[T]) Refresh(ctx context.Context) {
	d.mustOwnQueue("Refresh")
	if d.provider == nil || d.state == StateDetached {
		return
	}
	if err := d.provider.RunQuery(ctx); err != nil {
		d.log.Error(err, "query refresh failed")
		return
	}
	d.Reload()
}

// RefreshFilter replaces the provider's filter and re-runs the query. done,
// if non-nil, runs once right before the reload that shows the new results.
// Arming again before that reload drops the earlier done.
func (d *Director[T]) RefreshFilter(ctx context.Context, p Predicate, done func()) {
	d.mustOwnQueue("RefreshFilter")
	if d.provider == nil || d.state == StateDetached {
		return
	}
	d.provider.SetFilter(p)
	d.state = StateRefreshing
	if err := d.provider.RunQuery(ctx); err != nil {
		d.log.Error(err, "query failed after filter change", "predicate", string(p))
		d.state = StateBound
		return
	}
	d.pending = done
	d.DidChange()
}

// Reload schedules a full widget reload on the UI loop.
func (d *Director[T]) Reload() {
	d.queue.Post(func() {
		if d.widget != nil {
			d.widget.ReloadData()
		}
	})
}

// Detach disconnects the director from its provider and widget. It is final.
func (d *Director[T]) Detach() {
	if d.state == StateDetached {
		return
	}
	if d.provider != nil {
		d.provider.SetListener(nil)
	}
	if d.widget != nil {
		d.widget.SetSource(nil)
	}
	d.widget = nil
	d.pending = nil
	d.state = StateDetached
}

// WillChange is part of ChangeListener.
func (d *Director[T]) WillChange() {
	d.log.V(2).Info("provider will change")
}

// DidChangeSection is part of ChangeListener.
func (d *Director[T]) DidChangeSection(group ResultGroup, index int, change ChangeType) {
	d.log.V(2).Info("provider section changed", "group", group.Name, "index", index, "change", change.String())
}

// DidChangeRecord is part of ChangeListener.
func (d *Director[T]) DidChangeRecord(_ any, change RecordChange) {
	d.log.V(2).Info("provider record changed", "change", change.Type.String(), "old", change.OldIndex, "new", change.NewIndex)
}

// DidChange is part of ChangeListener. On the UI loop it fires and clears the
// pending completion, then reloads the widget once.
func (d *Director[T]) DidChange() {
	d.queue.Post(func() {
		if d.state == StateDetached {
			return
		}
		if done := d.pending; done != nil {
			d.pending = nil
			done()
		}
		if d.state == StateRefreshing {
			d.state = StateBound
		}
		if d.widget != nil {
			d.widget.ReloadData()
		}
	})
}

// RowAt resolves a flat coordinate to its row. Data-section rows are built
// from the provider's record on every call.
func (d *Director[T]) RowAt(path IndexPath) Row {
	data := d.DataSectionIndex()
	switch {
	case path.Section < data:
		return d.sectionsBefore[path.Section].Rows[path.Row]
	case path.Section == data:
		return d.recordRow(path.Row)
	default:
		return d.sectionsAfter[path.Section-data-1].Rows[path.Row]
	}
}

func (d *Director[T]) recordRow(index int) Row {
	rec := d.provider.RecordAt(index)
	t, ok := rec.(T)
	if !ok {
		panic(fmt.Errorf("record %d has type %T: %w", index, rec, ErrUnexpectedRecord))
	}
	return t.Row(d.rowKind, d.action(t))
}

func (d *Director[T]) staticSection(section int) (Section, error) {
	data := d.DataSectionIndex()
	switch {
	case section < 0:
	case section < data:
		return d.sectionsBefore[section], nil
	case section > data && section-data-1 < len(d.sectionsAfter):
		return d.sectionsAfter[section-data-1], nil
	}
	return Section{}, fmt.Errorf("section %d: %w", section, ErrSectionIndex)
}

// Invoke dispatches an action to the row at path. Unregistered kinds return nil.
func (d *Director[T]) Invoke(kind ActionKind, cell Cell, path IndexPath) any {
	return d.RowAt(path).Invoke(kind, cell, path)
}

// HasAction reports whether the row at path handles kind.
func (d *Director[T]) HasAction(kind ActionKind, path IndexPath) bool {
	return d.RowAt(path).HasAction(kind)
}
