package sqlsource

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/wI2L/jsondiff"

	"github.com/oakwood-commons/listdirector/pkg/director"
)

// notify reports the difference between two snapshots. It runs without p.mu held.
func (p *Provider) notify(l director.ChangeListener, prev, next snapshot) {
	l.WillChange()

	for _, sc := range diffGroups(prev.groups, next.groups) {
		l.DidChangeSection(sc.group, sc.index, sc.change)
	}
	if p.opts.KeyColumn != "" {
		for _, rc := range p.diffRecords(prev, next) {
			l.DidChangeRecord(rc.record, rc.change)
		}
	}

	l.DidChange()
}

type sectionChange struct {
	group  director.ResultGroup
	index  int
	change director.ChangeType
}

// diffGroups matches groups by name. Deletions are reported against the old
// layout, insertions against the new one.
func diffGroups(prev, next []director.ResultGroup) []sectionChange {
	var out []sectionChange
	for i, g := range prev {
		if !slices.ContainsFunc(next, func(n director.ResultGroup) bool { return n.Name == g.Name }) {
			out = append(out, sectionChange{group: g, index: i, change: director.ChangeDelete})
		}
	}
	for i, g := range next {
		if !slices.ContainsFunc(prev, func(o director.ResultGroup) bool { return o.Name == g.Name }) {
			out = append(out, sectionChange{group: g, index: i, change: director.ChangeInsert})
		}
	}
	return out
}

type recordChange struct {
	record any
	change director.RecordChange
}

func (p *Provider) diffRecords(prev, next snapshot) []recordChange {
	key := p.opts.KeyColumn
	oldIndex := make(map[string]int, len(prev.rows))
	for i, r := range prev.rows {
		oldIndex[r.Key(key)] = i
	}
	newIndex := make(map[string]int, len(next.rows))
	for i, r := range next.rows {
		newIndex[r.Key(key)] = i
	}

	var out []recordChange
	for i, r := range prev.rows {
		if _, ok := newIndex[r.Key(key)]; !ok {
			out = append(out, recordChange{
				record: prev.records[i],
				change: director.RecordChange{Type: director.ChangeDelete, OldIndex: i, NewIndex: -1},
			})
		}
	}
	for i, r := range next.rows {
		j, ok := oldIndex[r.Key(key)]
		if !ok {
			out = append(out, recordChange{
				record: next.records[i],
				change: director.RecordChange{Type: director.ChangeInsert, OldIndex: -1, NewIndex: i},
			})
			continue
		}
		if j != i {
			out = append(out, recordChange{
				record: next.records[i],
				change: director.RecordChange{Type: director.ChangeMove, OldIndex: j, NewIndex: i},
			})
		}
		fields, err := changedFields(prev.rows[j], r)
		if err != nil {
			p.log.Error(err, "diff record", "key", r.Key(key))
			continue
		}
		if len(fields) > 0 {
			out = append(out, recordChange{
				record: next.records[i],
				change: director.RecordChange{Type: director.ChangeUpdate, OldIndex: j, NewIndex: i, Fields: fields},
			})
		}
	}
	return out
}

// changedFields returns the top-level columns that differ between two rows.
func changedFields(a, b Record) ([]string, error) {
	patch, err := jsondiff.Compare(a.Values, b.Values)
	if err != nil {
		return nil, fmt.Errorf("compare records: %w", err)
	}
	var fields []string
	for _, op := range patch {
		f := columnFromPointer(op.Path)
		if f != "" && !slices.Contains(fields, f) {
			fields = append(fields, f)
		}
	}
	slices.Sort(fields)
	return fields, nil
}

// columnFromPointer returns the first segment of a JSON pointer.
func columnFromPointer(ptr string) string {
	ptr = strings.TrimPrefix(ptr, "/")
	if i := strings.IndexByte(ptr, '/'); i >= 0 {
		ptr = ptr[:i]
	}
	return strings.NewReplacer("~1", "/", "~0", "~").Replace(ptr)
}

// Watch polls the database for commits from any connection and refreshes
// when one is seen. It blocks until ctx is done. Refresh failures are logged
// and polling continues.
//
// With Options.Queue set the refresh is posted there, at most one at a time,
// instead of running on the watching goroutine.
func (p *Provider) Watch(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Second
	}
	conn, err := p.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open watch connection: %w", err)
	}
	defer conn.Close()

	last, err := dataVersion(ctx, conn)
	if err != nil {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		v, err := dataVersion(ctx, conn)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			p.log.Error(err, "poll data version")
			continue
		}
		if v == last {
			continue
		}
		last = v
		p.log.V(1).Info("database changed", "dataVersion", v)
		p.refreshFromWatch(ctx)
	}
}

func (p *Provider) refreshFromWatch(ctx context.Context) {
	q := p.opts.Queue
	if q == nil {
		if err := p.Refresh(ctx); err != nil {
			p.log.Error(err, "refresh after change")
		}
		return
	}
	if !p.watchPosted.CompareAndSwap(false, true) {
		return
	}
	q.Post(func() {
		p.watchPosted.Store(false)
		if ctx.Err() != nil {
			return
		}
		if err := p.Refresh(ctx); err != nil {
			p.log.Error(err, "refresh after change")
		}
	})
}

// dataVersion changes whenever another connection commits. It must be read on
// one pinned connection.
func dataVersion(ctx context.Context, conn *sql.Conn) (int64, error) {
	var v int64
	if err := conn.QueryRowContext(ctx, "PRAGMA data_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("read data_version: %w", err)
	}
	return v, nil
}
