package repository

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Tomlord1122/todo-list/internal/domain"
)

// DefaultSQLitePath is the default database file for SQLitePersister.
const DefaultSQLitePath = "./.storage/todo_list.db"

const sqliteSchema = `CREATE TABLE IF NOT EXISTS todo_items (
	id          INTEGER PRIMARY KEY,
	title       TEXT    NOT NULL,
	description TEXT    NOT NULL,
	due_date    TEXT    NOT NULL,
	created_at  TEXT    NOT NULL,
	completed   INTEGER NOT NULL
)`

// SQLitePersister mirrors the store into an embedded SQLite database.
// Timestamps are stored as RFC 3339 text.
type SQLitePersister struct {
	db   *sql.DB
	path string
}

// NewSQLitePersister opens (creating if needed) the database at path.
func NewSQLitePersister(path string) (*SQLitePersister, error) {
	if path == "" {
		path = DefaultSQLitePath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// One writer at a time; the store already serializes access.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create todo_items table: %w", err)
	}
	return &SQLitePersister{db: db, path: path}, nil
}

func (p *SQLitePersister) Name() string { return "sqlite" }

func (p *SQLitePersister) Load(ctx context.Context) (domain.TodoList, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, title, description, due_date, created_at, completed FROM todo_items ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query todo_items: %w", err)
	}
	defer rows.Close()

	list := domain.TodoList{}
	for rows.Next() {
		var (
			id                 int64
			item               domain.TodoItem
			dueDate, createdAt string
		)
		if err := rows.Scan(&id, &item.Title, &item.Description, &dueDate, &createdAt, &item.Completed); err != nil {
			return nil, fmt.Errorf("scan todo row: %w", err)
		}
		if id < 0 || id > int64(^uint32(0)) {
			continue
		}
		if item.DueDate, err = time.Parse(time.RFC3339Nano, dueDate); err != nil {
			return nil, fmt.Errorf("todo %d due_date: %w", id, err)
		}
		if item.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("todo %d created_at: %w", id, err)
		}
		item.DueDate = item.DueDate.UTC()
		item.CreatedAt = item.CreatedAt.UTC()
		list = append(list, domain.Entry{ID: uint32(id), Item: item})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate todo rows: %w", err)
	}
	return list, nil
}

func (p *SQLitePersister) Save(ctx context.Context, list domain.TodoList) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM todo_items`); err != nil {
		return fmt.Errorf("clear todo_items: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO todo_items (id, title, description, due_date, created_at, completed) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range list {
		if _, err := stmt.ExecContext(ctx,
			int64(e.ID),
			e.Item.Title,
			e.Item.Description,
			e.Item.DueDate.UTC().Format(time.RFC3339Nano),
			e.Item.CreatedAt.UTC().Format(time.RFC3339Nano),
			e.Item.Completed,
		); err != nil {
			return fmt.Errorf("insert todo %d: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (p *SQLitePersister) Health(ctx context.Context) map[string]string {
	stats := map[string]string{"path": p.path}
	if err := p.db.PingContext(ctx); err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("sqlite down: %v", err)
	}
	return stats
}

func (p *SQLitePersister) Close() error {
	return p.db.Close()
}
