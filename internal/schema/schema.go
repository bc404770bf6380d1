// Package schema owns the demo database layout used by `listdirector init`
// and by tests that need a realistic table to browse.
package schema

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate applies every pending up migration to db.
func Migrate(db *sql.DB, log logr.Logger) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}
	// The database driver closes the *sql.DB it wraps, so only the source is
	// closed here and the caller keeps ownership of db.
	defer src.Close()

	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("wrap database: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.V(1).Info("schema up to date")
			return nil
		}
		return fmt.Errorf("apply migrations: %w", err)
	}
	version, dirty, err := m.Version()
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	log.Info("schema migrated", "version", version, "dirty", dirty)
	return nil
}

// Task is one demo row.
type Task struct {
	Title    string
	Detail   string
	Status   string
	Priority int
	Tags     []string
}

// DemoTasks is the data Seed inserts.
var DemoTasks = []Task{
	{Title: "Draft release notes", Detail: "Collect merged changes since the last tag", Status: "open", Priority: 3, Tags: []string{"docs"}},
	{Title: "Fix flaky watcher test", Detail: "Polling interval too tight on CI", Status: "open", Priority: 5, Tags: []string{"ci", "bug"}},
	{Title: "Review filter syntax", Detail: "CEL expressions over row columns", Status: "open", Priority: 2},
	{Title: "Theme picker", Detail: "Let users switch palettes at runtime", Status: "backlog", Priority: 1, Tags: []string{"ui"}},
	{Title: "Export to HTML", Detail: "Render every section as a document", Status: "done", Priority: 2, Tags: []string{"export"}},
	{Title: "Initial schema", Detail: "tasks and task_tags", Status: "done", Priority: 4},
}

// Seed inserts DemoTasks when the tasks table is empty. It returns the number
// of rows inserted.
func Seed(ctx context.Context, db *sql.DB) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count tasks: %w", err)
	}
	if n > 0 {
		return 0, nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin seed: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, t := range DemoTasks {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO tasks (title, detail, status, priority) VALUES (?, ?, ?, ?)`,
			t.Title, t.Detail, t.Status, t.Priority)
		if err != nil {
			return 0, fmt.Errorf("insert %q: %w", t.Title, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("insert %q: %w", t.Title, err)
		}
		for _, tag := range t.Tags {
			if _, err := tx.ExecContext(ctx, `INSERT INTO task_tags (task_id, tag) VALUES (?, ?)`, id, tag); err != nil {
				return 0, fmt.Errorf("tag %q: %w", t.Title, err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit seed: %w", err)
	}
	return len(DemoTasks), nil
}

// TaskQuery selects demo tasks with their tags folded into one column,
// grouped by status.
const TaskQuery = `SELECT t.id, t.title, t.detail, t.status, t.priority,
       COALESCE((SELECT group_concat(tag, ', ') FROM task_tags WHERE task_id = t.id), '') AS tags
  FROM tasks t
 ORDER BY t.status, t.priority DESC, t.id`
