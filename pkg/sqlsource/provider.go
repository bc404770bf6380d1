// Package sqlsource is a director.ResultProvider backed by a SQL query.
//
// The provider runs a SELECT, filters the rows with a CEL predicate, decodes
// each row into an application record and keeps the result as an immutable
// snapshot. Refreshes triggered through Exec or Watch diff the new snapshot
// against the old one and report the differences to the attached listener.
// Readers on the UI loop see a stable snapshot as long as Exec is called from
// that loop and Options.Queue is the loop's queue.
package sqlsource

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/go-logr/logr"

	"github.com/oakwood-commons/listdirector/internal/predicate"
	"github.com/oakwood-commons/listdirector/pkg/director"
)

// ErrUnknownColumn is returned when a filter reads a column the query does
// not select.
var ErrUnknownColumn = errors.New("filter references unknown column")

// Options configure a Provider.
type Options struct {
	// Query is the SELECT statement. Its ORDER BY defines record order.
	Query string
	Args  []any
	// KeyColumn identifies a record across refreshes. Without it, refreshes
	// report only section changes.
	KeyColumn string
	// GroupColumn, when set, splits consecutive rows with equal values into
	// result groups.
	GroupColumn string
	// Decode turns a row into the record returned by RecordAt. Defaults to
	// returning the Record itself.
	Decode func(Record) (any, error)
	// Queue, when set, is where Watch runs its refreshes. Use the list's UI
	// queue so the snapshot only changes on the loop that reads it.
	Queue  director.Queue
	Logger logr.Logger
}

type snapshot struct {
	columns []string
	rows    []Record
	records []any
	groups  []director.ResultGroup
}

// Provider runs Options.Query against a database. It is safe for concurrent use.
type Provider struct {
	db   *sql.DB
	opts Options
	log  logr.Logger

	mu       sync.RWMutex
	listener director.ChangeListener
	filter   director.Predicate
	snap     snapshot
	lastErr  error

	// refreshMu serializes refreshes so notification cycles never interleave.
	refreshMu sync.Mutex
	// watchPosted is set while a watcher refresh waits on Options.Queue.
	watchPosted atomic.Bool
}

var _ director.ResultProvider = (*Provider)(nil)

// New creates a provider; the query does not run until RunQuery.
func New(db *sql.DB, opts Options) *Provider {
	if opts.Decode == nil {
		opts.Decode = func(r Record) (any, error) { return r, nil }
	}
	return &Provider{
		db:   db,
		opts: opts,
		log:  opts.Logger.WithName("sqlsource"),
	}
}

// SetListener implements director.ResultProvider.
func (p *Provider) SetListener(l director.ChangeListener) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listener = l
}

// SetFilter implements director.ResultProvider. The predicate is a CEL
// expression over the row map r and is compiled on the next run.
func (p *Provider) SetFilter(pred director.Predicate) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.filter = pred
}

// Filter returns the current predicate.
func (p *Provider) Filter() director.Predicate {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.filter
}

// RunQuery implements director.ResultProvider. It replaces the results
// without notifying the listener. On error the previous results stay.
func (p *Provider) RunQuery(ctx context.Context) error {
	p.refreshMu.Lock()
	defer p.refreshMu.Unlock()

	next, err := p.load(ctx)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastErr = err
	if err != nil {
		return err
	}
	p.snap = next
	return nil
}

// LastError returns the error of the most recent run, or nil if it succeeded.
func (p *Provider) LastError() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastErr
}

// ResultGroups implements director.ResultProvider.
func (p *Provider) ResultGroups() []director.ResultGroup {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Clone(p.snap.groups)
}

// RecordAt implements director.ResultProvider. Out-of-range indexes return nil.
func (p *Provider) RecordAt(index int) any {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if index < 0 || index >= len(p.snap.records) {
		return nil
	}
	return p.snap.records[index]
}

// Len returns the number of records in the current results.
func (p *Provider) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.snap.records)
}

// Columns returns the columns of the last successful run.
func (p *Provider) Columns() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Clone(p.snap.columns)
}

// Exec runs a statement and then refreshes, notifying the listener.
func (p *Provider) Exec(ctx context.Context, stmt string, args ...any) (sql.Result, error) {
	res, err := p.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	if err := p.Refresh(ctx); err != nil {
		return res, fmt.Errorf("refresh after exec: %w", err)
	}
	return res, nil
}

// Refresh re-runs the query and reports what changed to the listener.
func (p *Provider) Refresh(ctx context.Context) error {
	p.refreshMu.Lock()
	defer p.refreshMu.Unlock()

	next, err := p.load(ctx)
	p.mu.Lock()
	p.lastErr = err
	if err != nil {
		p.mu.Unlock()
		return err
	}
	prev := p.snap
	p.snap = next
	listener := p.listener
	p.mu.Unlock()

	if listener == nil {
		return nil
	}
	p.notify(listener, prev, next)
	return nil
}

func (p *Provider) load(ctx context.Context) (snapshot, error) {
	p.mu.RLock()
	filter := p.filter
	p.mu.RUnlock()

	pred, err := predicate.Compile(string(filter))
	if err != nil {
		return snapshot{}, err
	}

	rows, err := p.db.QueryContext(ctx, p.opts.Query, p.opts.Args...)
	if err != nil {
		return snapshot{}, fmt.Errorf("run query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return snapshot{}, fmt.Errorf("read columns: %w", err)
	}
	for _, f := range pred.Fields() {
		if !slices.Contains(cols, f) {
			return snapshot{}, fmt.Errorf("%w: %q", ErrUnknownColumn, f)
		}
	}

	next := snapshot{columns: cols}
	dest := make([]any, len(cols))
	for rows.Next() {
		vals := make([]any, len(cols))
		for i := range vals {
			dest[i] = &vals[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return snapshot{}, fmt.Errorf("scan row: %w", err)
		}
		rec := Record{Columns: cols, Values: make(map[string]any, len(cols))}
		for i, c := range cols {
			rec.Values[c] = normalizeValue(vals[i])
		}
		ok, err := pred.Match(rec.Values)
		if err != nil {
			return snapshot{}, fmt.Errorf("filter row %d: %w", len(next.rows), err)
		}
		if !ok {
			continue
		}
		decoded, err := p.opts.Decode(rec)
		if err != nil {
			return snapshot{}, fmt.Errorf("decode row %d: %w", len(next.rows), err)
		}
		next.rows = append(next.rows, rec)
		next.records = append(next.records, decoded)
	}
	if err := rows.Err(); err != nil {
		return snapshot{}, fmt.Errorf("iterate rows: %w", err)
	}
	next.groups = groupRows(next.rows, p.opts.GroupColumn)
	p.log.V(1).Info("query loaded", "rows", len(next.rows), "groups", len(next.groups), "filter", pred.String())
	return next, nil
}

func groupRows(rows []Record, column string) []director.ResultGroup {
	if len(rows) == 0 {
		return nil
	}
	if column == "" {
		return []director.ResultGroup{{Count: len(rows)}}
	}
	var groups []director.ResultGroup
	for _, r := range rows {
		name := r.String(column)
		if n := len(groups); n > 0 && groups[n-1].Name == name {
			groups[n-1].Count++
			continue
		}
		groups = append(groups, director.ResultGroup{Name: name, Count: 1})
	}
	return groups
}
