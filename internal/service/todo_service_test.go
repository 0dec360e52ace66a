package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tomlord1122/todo-list/internal/domain"
	"github.com/Tomlord1122/todo-list/internal/events"
	"github.com/Tomlord1122/todo-list/internal/repository"
)

type recordingNotifier struct {
	events []events.Event
}

func (r *recordingNotifier) Publish(e events.Event) { r.events = append(r.events, e) }

type brokenPersister struct {
	repository.MemoryPersister
}

func (brokenPersister) Save(context.Context, domain.TodoList) error {
	return errors.New("read-only filesystem")
}

func newService(t *testing.T, p repository.Persister) (TodoService, *recordingNotifier) {
	t.Helper()
	store, err := repository.NewTodoStore(context.Background(), p, repository.IDStrategySize)
	require.NoError(t, err)
	n := &recordingNotifier{}
	return NewTodoService(store, n), n
}

func sampleItem() domain.TodoItem {
	return domain.TodoItem{
		Title:       "A",
		Description: "B",
		DueDate:     time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
		CreatedAt:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestServiceLifecyclePublishesEvents(t *testing.T) {
	ctx := context.Background()
	svc, n := newService(t, nil)

	id, err := svc.CreateTodo(ctx, sampleItem())
	require.NoError(t, err)
	assert.Equal(t, uint32(0), id)

	updated := sampleItem()
	updated.Completed = true
	require.NoError(t, svc.UpdateTodo(ctx, id, updated))

	got, err := svc.GetTodo(ctx, id)
	require.NoError(t, err)
	assert.True(t, got.Completed)

	require.NoError(t, svc.DeleteTodo(ctx, id))
	_, err = svc.GetTodo(ctx, id)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.Len(t, n.events, 3)
	assert.Equal(t, events.TypeInsert, n.events[0].Type)
	assert.Equal(t, events.TypeUpdate, n.events[1].Type)
	assert.True(t, n.events[1].Item.Completed)
	assert.Equal(t, events.TypeDelete, n.events[2].Type)
	assert.Nil(t, n.events[2].Item)
}

func TestServiceDoesNotPublishFailedMutations(t *testing.T) {
	ctx := context.Background()
	svc, n := newService(t, &brokenPersister{})

	_, err := svc.CreateTodo(ctx, sampleItem())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read-only filesystem")
	assert.Error(t, svc.UpdateTodo(ctx, 1, sampleItem()))
	assert.Error(t, svc.DeleteTodo(ctx, 1))

	assert.Empty(t, n.events)
	list, err := svc.ListTodos(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestServiceWithoutNotifier(t *testing.T) {
	store, err := repository.NewTodoStore(context.Background(), nil, repository.IDStrategySize)
	require.NoError(t, err)
	svc := NewTodoService(store, nil)

	_, err = svc.CreateTodo(context.Background(), sampleItem())
	require.NoError(t, err)
	assert.Equal(t, "1", svc.Health(context.Background())["todos"])
}
