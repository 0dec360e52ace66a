package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Tomlord1122/todo-list/internal/domain"
)

// DefaultStoragePath is where the file persister keeps its data unless
// configured otherwise.
const DefaultStoragePath = "./.storage/todo_list.json"

// FilePersister stores the whole todo map as one pretty-printed JSON object
// keyed by decimal id strings.
type FilePersister struct {
	path string
}

func NewFilePersister(path string) *FilePersister {
	if path == "" {
		path = DefaultStoragePath
	}
	return &FilePersister{path: path}
}

func (p *FilePersister) Name() string { return "file" }

// Path returns the location of the backing file.
func (p *FilePersister) Path() string { return p.path }

// Load reads the backing file. On first run the parent directory and an
// empty JSON object are created.
func (p *FilePersister) Load(ctx context.Context) (domain.TodoList, error) {
	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}

	data, err := os.ReadFile(p.path)
	if errors.Is(err, os.ErrNotExist) {
		if err := os.WriteFile(p.path, []byte("{}"), 0o644); err != nil {
			return nil, fmt.Errorf("create %s: %w", p.path, err)
		}
		slog.Info("created empty todo list", "path", p.path)
		return domain.TodoList{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p.path, err)
	}

	var list domain.TodoList
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("decode %s: %w", p.path, err)
	}
	return list, nil
}

// Save overwrites the backing file with list using the temp-file, fsync,
// rename sequence so a crash leaves either the old or the new contents.
func (p *FilePersister) Save(ctx context.Context, list domain.TodoList) error {
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("encode todos: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(p.path), ".todo_list-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, p.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

func (p *FilePersister) Close() error { return nil }
