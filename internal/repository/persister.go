package repository

import (
	"context"

	"github.com/Tomlord1122/todo-list/internal/domain"
)

// Persister mirrors the store to durable storage. Save always receives the
// full, id-ordered contents of the store.
type Persister interface {
	Name() string
	Load(ctx context.Context) (domain.TodoList, error)
	Save(ctx context.Context, list domain.TodoList) error
	Close() error
}

// HealthChecker is implemented by persisters that can report on the backing
// storage.
type HealthChecker interface {
	Health(ctx context.Context) map[string]string
}

// MemoryPersister keeps nothing. A store using it starts empty on every run.
type MemoryPersister struct{}

func NewMemoryPersister() *MemoryPersister { return &MemoryPersister{} }

func (*MemoryPersister) Name() string { return "memory" }

func (*MemoryPersister) Load(context.Context) (domain.TodoList, error) {
	return domain.TodoList{}, nil
}

func (*MemoryPersister) Save(context.Context, domain.TodoList) error { return nil }

func (*MemoryPersister) Close() error { return nil }
