package sqlsource

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/oakwood-commons/listdirector/pkg/director"
)

type recorder struct {
	mu     sync.Mutex
	events []string
	recs   []director.RecordChange
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, s)
}

func (r *recorder) WillChange() { r.add("will") }
func (r *recorder) DidChangeSection(g director.ResultGroup, i int, c director.ChangeType) {
	r.add(fmt.Sprintf("section %s %q@%d", c, g.Name, i))
}

func (r *recorder) DidChangeRecord(_ any, c director.RecordChange) {
	r.mu.Lock()
	r.recs = append(r.recs, c)
	r.mu.Unlock()
	r.add("record " + c.Type.String())
}
func (r *recorder) DidChange() { r.add("did") }

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "tasks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`CREATE TABLE tasks (id INTEGER PRIMARY KEY, title TEXT, status TEXT, priority INTEGER)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO tasks (id, title, status, priority) VALUES
		(1, 'write docs', 'open', 3),
		(2, 'fix build', 'open', 5),
		(3, 'ship it', 'done', 1)`)
	require.NoError(t, err)
	return db
}

func newTestProvider(t *testing.T, db *sql.DB, group string) *Provider {
	t.Helper()
	return New(db, Options{
		Query:       `SELECT id, title, status, priority FROM tasks ORDER BY status, id`,
		KeyColumn:   "id",
		GroupColumn: group,
	})
}

func TestRunQuery_LoadsWithoutNotifying(t *testing.T) {
	db := openTestDB(t)
	p := newTestProvider(t, db, "")
	rec := &recorder{}
	p.SetListener(rec)

	require.NoError(t, p.RunQuery(context.Background()))

	assert.Equal(t, []director.ResultGroup{{Count: 3}}, p.ResultGroups())
	assert.Equal(t, []string{"id", "title", "status", "priority"}, p.Columns())
	first, ok := p.RecordAt(0).(Record)
	require.True(t, ok)
	assert.Equal(t, "ship it", first.String("title"))
	assert.Equal(t, int64(3), first.Get("id"))
	assert.Nil(t, p.RecordAt(3))
	assert.Nil(t, p.RecordAt(-1))
	assert.Empty(t, rec.snapshot())
}

func TestRunQuery_GroupsConsecutiveValues(t *testing.T) {
	db := openTestDB(t)
	p := newTestProvider(t, db, "status")
	require.NoError(t, p.RunQuery(context.Background()))

	assert.Equal(t, []director.ResultGroup{{Name: "done", Count: 1}, {Name: "open", Count: 2}}, p.ResultGroups())
}

func TestRunQuery_EmptyResultHasNoGroups(t *testing.T) {
	db := openTestDB(t)
	p := newTestProvider(t, db, "")
	p.SetFilter(`r.priority > 100`)
	require.NoError(t, p.RunQuery(context.Background()))

	assert.Nil(t, p.ResultGroups())
	assert.Equal(t, 0, p.Len())
}

func TestRunQuery_Filter(t *testing.T) {
	db := openTestDB(t)
	p := newTestProvider(t, db, "")
	p.SetFilter(`r.status == "open" && r.priority >= 5`)
	require.NoError(t, p.RunQuery(context.Background()))

	require.Equal(t, 1, p.Len())
	assert.Equal(t, "fix build", p.RecordAt(0).(Record).String("title"))
	assert.Equal(t, director.Predicate(`r.status == "open" && r.priority >= 5`), p.Filter())
}

func TestRunQuery_ErrorKeepsPreviousResults(t *testing.T) {
	db := openTestDB(t)
	p := newTestProvider(t, db, "")
	require.NoError(t, p.RunQuery(context.Background()))

	p.SetFilter(`r.owner == "me"`)
	err := p.RunQuery(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownColumn))
	assert.Equal(t, 3, p.Len())
	assert.ErrorIs(t, p.LastError(), ErrUnknownColumn)

	p.SetFilter(`r.status ==`)
	require.Error(t, p.RunQuery(context.Background()))
	assert.Equal(t, 3, p.Len())

	p.SetFilter("")
	require.NoError(t, p.RunQuery(context.Background()))
	assert.NoError(t, p.LastError())
}

func TestRunQuery_Decode(t *testing.T) {
	db := openTestDB(t)
	p := New(db, Options{
		Query: `SELECT title FROM tasks ORDER BY id`,
		Decode: func(r Record) (any, error) {
			return "task:" + r.String("title"), nil
		},
	})
	require.NoError(t, p.RunQuery(context.Background()))
	assert.Equal(t, "task:write docs", p.RecordAt(0))

	p = New(db, Options{
		Query:  `SELECT title FROM tasks`,
		Decode: func(Record) (any, error) { return nil, errors.New("boom") },
	})
	require.ErrorContains(t, p.RunQuery(context.Background()), "boom")
}

func TestExec_NotifiesChangeCycle(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	p := newTestProvider(t, db, "status")
	require.NoError(t, p.RunQuery(ctx))
	rec := &recorder{}
	p.SetListener(rec)

	_, err := p.Exec(ctx, `INSERT INTO tasks (id, title, status, priority) VALUES (4, 'plan', 'backlog', 2)`)
	require.NoError(t, err)

	assert.Equal(t, []string{
		`will`,
		`section insert "backlog"@0`,
		`record insert`,
		`record move`,
		`record move`,
		`record move`,
		`did`,
	}, rec.snapshot())
	assert.Equal(t, director.RecordChange{Type: director.ChangeInsert, OldIndex: -1, NewIndex: 0}, rec.recs[0])
}

func TestExec_UpdateCarriesChangedFields(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	p := newTestProvider(t, db, "")
	require.NoError(t, p.RunQuery(ctx))
	rec := &recorder{}
	p.SetListener(rec)

	_, err := p.Exec(ctx, `UPDATE tasks SET title = 'write more docs', priority = 4 WHERE id = 1`)
	require.NoError(t, err)

	require.Len(t, rec.recs, 1)
	assert.Equal(t, director.RecordChange{
		Type:     director.ChangeUpdate,
		OldIndex: 1,
		NewIndex: 1,
		Fields:   []string{"priority", "title"},
	}, rec.recs[0])
	assert.Equal(t, []string{"will", "record update", "did"}, rec.snapshot())
}

func TestExec_DeleteLastOfGroup(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	p := newTestProvider(t, db, "status")
	require.NoError(t, p.RunQuery(ctx))
	rec := &recorder{}
	p.SetListener(rec)

	_, err := p.Exec(ctx, `DELETE FROM tasks WHERE id = 3`)
	require.NoError(t, err)

	events := rec.snapshot()
	assert.Equal(t, "will", events[0])
	assert.Equal(t, `section delete "done"@0`, events[1])
	assert.Contains(t, events, "record delete")
	assert.Equal(t, "did", events[len(events)-1])
}

func TestRefresh_WithoutKeyReportsOnlySections(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	p := New(db, Options{Query: `SELECT title FROM tasks`})
	require.NoError(t, p.RunQuery(ctx))
	rec := &recorder{}
	p.SetListener(rec)

	_, err := p.Exec(ctx, `DELETE FROM tasks`)
	require.NoError(t, err)
	assert.Equal(t, []string{`will`, `section delete ""@0`, `did`}, rec.snapshot())
}

func TestWatch_RefreshesOnExternalCommit(t *testing.T) {
	db := openTestDB(t)
	p := newTestProvider(t, db, "")
	require.NoError(t, p.RunQuery(context.Background()))
	rec := &recorder{}
	p.SetListener(rec)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Watch(ctx, 10*time.Millisecond) }()

	// Give the watcher time to read the initial version.
	time.Sleep(50 * time.Millisecond)
	_, err := db.Exec(`INSERT INTO tasks (id, title, status, priority) VALUES (9, 'late', 'open', 1)`)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return p.Len() == 4 }, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		ev := rec.snapshot()
		return len(ev) > 0 && ev[len(ev)-1] == "did"
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop")
	}
}

// loopQueue collects posted work until the test drains it.
type loopQueue struct {
	mu    sync.Mutex
	tasks []func()
}

func (q *loopQueue) Post(fn func()) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, fn)
}

func (q *loopQueue) Owns() bool { return true }

func (q *loopQueue) pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

func (q *loopQueue) drain() {
	q.mu.Lock()
	tasks := q.tasks
	q.tasks = nil
	q.mu.Unlock()
	for _, fn := range tasks {
		fn()
	}
}

func TestWatch_QueuedRefreshKeepsSnapshotUntilDrained(t *testing.T) {
	db := openTestDB(t)
	q := &loopQueue{}
	p := New(db, Options{
		Query:     `SELECT id, title, status, priority FROM tasks ORDER BY status, id`,
		KeyColumn: "id",
		Queue:     q,
	})
	require.NoError(t, p.RunQuery(context.Background()))
	rec := &recorder{}
	p.SetListener(rec)

	// A widget laid out these rows before the commit below.
	count := p.ResultGroups()[0].Count
	require.Equal(t, 3, count)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Watch(ctx, 10*time.Millisecond) }()

	time.Sleep(50 * time.Millisecond)
	_, err := db.Exec(`DELETE FROM tasks WHERE id IN (1, 2)`)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return q.pending() > 0 }, 2*time.Second, 10*time.Millisecond)

	// Until the loop runs the refresh, every laid-out index still resolves.
	assert.Equal(t, count, p.Len())
	for i := range count {
		assert.NotNil(t, p.RecordAt(i), "record %d", i)
	}
	assert.Empty(t, rec.snapshot())
	assert.Equal(t, 1, q.pending(), "one refresh is posted at a time")

	q.drain()
	assert.Equal(t, 1, p.Len())
	ev := rec.snapshot()
	require.NotEmpty(t, ev)
	assert.Equal(t, "did", ev[len(ev)-1])

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestColumnFromPointer(t *testing.T) {
	assert.Equal(t, "title", columnFromPointer("/title"))
	assert.Equal(t, "a/b", columnFromPointer("/a~1b"))
	assert.Equal(t, "tags", columnFromPointer("/tags/0"))
	assert.Equal(t, "", columnFromPointer(""))
}
