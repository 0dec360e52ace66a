package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Tomlord1122/todo-list/internal/domain"
	"github.com/Tomlord1122/todo-list/internal/events"
	"github.com/Tomlord1122/todo-list/internal/repository"
)

// --- Service Interface ---

// TodoService defines the operations for managing todos.
type TodoService interface {
	// ListTodos returns every todo in ascending id order.
	ListTodos(ctx context.Context) (domain.TodoList, error)

	// GetTodo returns the todo stored under id. Missing ids yield an error
	// wrapping domain.ErrNotFound.
	GetTodo(ctx context.Context, id uint32) (domain.TodoItem, error)

	// CreateTodo stores a new todo and returns its id.
	CreateTodo(ctx context.Context, item domain.TodoItem) (uint32, error)

	// UpdateTodo replaces the todo at id, creating it if absent.
	UpdateTodo(ctx context.Context, id uint32, item domain.TodoItem) error

	// DeleteTodo removes the todo at id. Missing ids are not an error.
	DeleteTodo(ctx context.Context, id uint32) error

	// Health reports the state of the underlying store.
	Health(ctx context.Context) map[string]string
}

// Notifier receives an event after every successful mutation.
type Notifier interface {
	Publish(e events.Event)
}

type noopNotifier struct{}

func (noopNotifier) Publish(events.Event) {}

// --- Service Implementation ---

type todoService struct {
	repo     repository.TodoRepository
	notifier Notifier
}

// NewTodoService creates a TodoService over repo. notifier may be nil.
func NewTodoService(repo repository.TodoRepository, notifier Notifier) TodoService {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &todoService{
		repo:     repo,
		notifier: notifier,
	}
}

func (s *todoService) ListTodos(ctx context.Context) (domain.TodoList, error) {
	list, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}
	return list, nil
}

func (s *todoService) GetTodo(ctx context.Context, id uint32) (domain.TodoItem, error) {
	return s.repo.Get(ctx, id)
}

func (s *todoService) CreateTodo(ctx context.Context, item domain.TodoItem) (uint32, error) {
	id, err := s.repo.Insert(ctx, item)
	if err != nil {
		return 0, fmt.Errorf("create todo: %w", err)
	}
	slog.Debug("todo created", "id", id, "title", item.Title)
	s.notifier.Publish(events.Event{Type: events.TypeInsert, ID: id, Item: &item})
	return id, nil
}

func (s *todoService) UpdateTodo(ctx context.Context, id uint32, item domain.TodoItem) error {
	if err := s.repo.Update(ctx, id, item); err != nil {
		return fmt.Errorf("update todo %d: %w", id, err)
	}
	slog.Debug("todo updated", "id", id)
	s.notifier.Publish(events.Event{Type: events.TypeUpdate, ID: id, Item: &item})
	return nil
}

func (s *todoService) DeleteTodo(ctx context.Context, id uint32) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete todo %d: %w", id, err)
	}
	slog.Debug("todo deleted", "id", id)
	s.notifier.Publish(events.Event{Type: events.TypeDelete, ID: id})
	return nil
}

func (s *todoService) Health(ctx context.Context) map[string]string {
	return s.repo.Health(ctx)
}
