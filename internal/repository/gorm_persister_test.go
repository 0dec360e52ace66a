package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/Tomlord1122/todo-list/internal/database"
)

func newPostgresService(t *testing.T) database.Service {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres container in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("todos"),
		postgres.WithUsername("todo"),
		postgres.WithPassword("todo"),
		postgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = ctr.Terminate(ctx)
	})

	host, err := ctr.Host(ctx)
	require.NoError(t, err)
	port, err := ctr.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	svc, err := database.New(database.Config{
		Host:     host,
		Port:     port.Port(),
		User:     "todo",
		Password: "todo",
		Database: "todos",
		LogLevel: "silent",
	})
	require.NoError(t, err)
	return svc
}

func TestGormPersisterRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc := newPostgresService(t)

	p, err := NewGormPersister(svc)
	require.NoError(t, err)
	s, err := NewTodoStore(ctx, p, IDStrategySize)
	require.NoError(t, err)

	for _, title := range []string{"a", "b", "c"} {
		_, err := s.Insert(ctx, newItem(title))
		require.NoError(t, err)
	}
	require.NoError(t, s.Delete(ctx, 1))

	want, err := s.List(ctx)
	require.NoError(t, err)

	reloaded, err := NewTodoStore(ctx, p, IDStrategySize)
	require.NoError(t, err)
	got, err := reloaded.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	for i := range want {
		assert.Equal(t, want[i].ID, got[i].ID)
		assert.Equal(t, want[i].Item.Title, got[i].Item.Title)
		assert.True(t, want[i].Item.DueDate.Equal(got[i].Item.DueDate))
		assert.True(t, want[i].Item.CreatedAt.Equal(got[i].Item.CreatedAt))
	}

	h := reloaded.Health(ctx)
	assert.Equal(t, "postgres", h["backend"])
	assert.Equal(t, "up", h["status"])

	require.NoError(t, s.Delete(ctx, 0))
	require.NoError(t, s.Delete(ctx, 2))
	empty, err := p.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
