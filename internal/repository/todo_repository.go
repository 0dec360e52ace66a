package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/Tomlord1122/todo-list/internal/domain"
)

// TodoRepository defines the interface for todo data operations
type TodoRepository interface {
	List(ctx context.Context) (domain.TodoList, error)
	Get(ctx context.Context, id uint32) (domain.TodoItem, error)
	Insert(ctx context.Context, item domain.TodoItem) (uint32, error)
	Update(ctx context.Context, id uint32, item domain.TodoItem) error
	Delete(ctx context.Context, id uint32) error
	Health(ctx context.Context) map[string]string
}

// IDStrategy selects how Insert picks a new id.
type IDStrategy string

const (
	// IDStrategySize uses the number of stored items as the new id. After a
	// delete this can land on an existing id and replace that item.
	IDStrategySize IDStrategy = "size"
	// IDStrategyNext uses the highest stored id plus one.
	IDStrategyNext IDStrategy = "next"
)

var (
	ErrUnknownIDStrategy = errors.New("unknown id strategy")
	ErrIDSpaceExhausted  = errors.New("no todo ids left")
)

// ParseIDStrategy maps a configuration value onto an IDStrategy. The empty
// string selects IDStrategySize.
func ParseIDStrategy(s string) (IDStrategy, error) {
	switch IDStrategy(s) {
	case "", IDStrategySize:
		return IDStrategySize, nil
	case IDStrategyNext:
		return IDStrategyNext, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownIDStrategy, s)
}

// TodoStore is the authoritative in-memory todo map. A single mutex covers
// every operation, reads included, and is held across the persister write.
type TodoStore struct {
	mu        sync.Mutex
	items     map[uint32]domain.TodoItem
	persister Persister
	strategy  IDStrategy
}

// NewTodoStore loads the initial contents from p and returns a store that
// writes its full contents back to p after every mutation.
func NewTodoStore(ctx context.Context, p Persister, strategy IDStrategy) (*TodoStore, error) {
	if p == nil {
		p = NewMemoryPersister()
	}
	if _, err := ParseIDStrategy(string(strategy)); err != nil {
		return nil, err
	}
	if strategy == "" {
		strategy = IDStrategySize
	}

	list, err := p.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load todos from %s: %w", p.Name(), err)
	}
	items := make(map[uint32]domain.TodoItem, len(list))
	for _, e := range list {
		items[e.ID] = e.Item
	}

	return &TodoStore{items: items, persister: p, strategy: strategy}, nil
}

// List returns every item in ascending id order.
func (s *TodoStore) List(ctx context.Context) (domain.TodoList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot(), nil
}

// Get returns the item stored under id, or domain.ErrNotFound.
func (s *TodoStore) Get(ctx context.Context, id uint32) (domain.TodoItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		return domain.TodoItem{}, fmt.Errorf("todo with ID %d: %w", id, domain.ErrNotFound)
	}
	return item, nil
}

// Insert stores item under a fresh id chosen by the store's IDStrategy.
func (s *TodoStore) Insert(ctx context.Context, item domain.TodoItem) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.nextID()
	if err != nil {
		return 0, err
	}
	if err := s.put(ctx, id, item); err != nil {
		return 0, err
	}
	return id, nil
}

// Update replaces the whole record at id. A missing id is inserted.
func (s *TodoStore) Update(ctx context.Context, id uint32, item domain.TodoItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.put(ctx, id, item)
}

// Delete removes id. Deleting a missing id is not an error.
func (s *TodoStore) Delete(ctx context.Context, id uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, existed := s.items[id]
	delete(s.items, id)
	if err := s.persist(ctx); err != nil {
		if existed {
			s.items[id] = prev
		}
		return err
	}
	return nil
}

// Health reports the store size and the persister's own health, if any.
func (s *TodoStore) Health(ctx context.Context) map[string]string {
	s.mu.Lock()
	count := len(s.items)
	s.mu.Unlock()

	stats := map[string]string{
		"status":  "up",
		"backend": s.persister.Name(),
		"todos":   strconv.Itoa(count),
	}
	if hc, ok := s.persister.(HealthChecker); ok {
		for k, v := range hc.Health(ctx) {
			stats[k] = v
		}
	}
	return stats
}

// Close releases the persister.
func (s *TodoStore) Close() error {
	return s.persister.Close()
}

// put writes item at id and persists, restoring the previous state when the
// write fails. Callers hold s.mu.
func (s *TodoStore) put(ctx context.Context, id uint32, item domain.TodoItem) error {
	prev, existed := s.items[id]
	s.items[id] = item
	if err := s.persist(ctx); err != nil {
		if existed {
			s.items[id] = prev
		} else {
			delete(s.items, id)
		}
		return err
	}
	return nil
}

func (s *TodoStore) persist(ctx context.Context) error {
	if err := s.persister.Save(ctx, s.snapshot()); err != nil {
		return fmt.Errorf("persist todos to %s: %w", s.persister.Name(), err)
	}
	return nil
}

func (s *TodoStore) nextID() (uint32, error) {
	switch s.strategy {
	case IDStrategyNext:
		if len(s.items) == 0 {
			return 0, nil
		}
		var highest uint32
		for id := range s.items {
			if id > highest {
				highest = id
			}
		}
		if highest == ^uint32(0) {
			return 0, ErrIDSpaceExhausted
		}
		return highest + 1, nil
	default:
		if uint64(len(s.items)) > uint64(^uint32(0)) {
			return 0, ErrIDSpaceExhausted
		}
		return uint32(len(s.items)), nil
	}
}

func (s *TodoStore) snapshot() domain.TodoList {
	list := make(domain.TodoList, 0, len(s.items))
	for id, item := range s.items {
		list = append(list, domain.Entry{ID: id, Item: item})
	}
	list.Sort()
	return list
}
