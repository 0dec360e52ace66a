package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilePersisterCreatesEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", ".storage", "todo_list.json")
	p := NewFilePersister(path)

	list, err := p.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))
}

func TestFilePersisterReloadReproducesStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "todo_list.json")

	s, err := NewTodoStore(ctx, NewFilePersister(path), IDStrategySize)
	require.NoError(t, err)
	for _, title := range []string{"a", "b", "c", "d"} {
		_, err := s.Insert(ctx, newItem(title))
		require.NoError(t, err)
	}
	require.NoError(t, s.Delete(ctx, 1))
	done := newItem("c")
	done.Completed = true
	require.NoError(t, s.Update(ctx, 2, done))

	want, err := s.List(ctx)
	require.NoError(t, err)

	reloaded, err := NewTodoStore(ctx, NewFilePersister(path), IDStrategySize)
	require.NoError(t, err)
	got, err := reloaded.List(ctx)
	require.NoError(t, err)

	assert.Equal(t, want, got)
	_, err = reloaded.Get(ctx, 1)
	assert.Error(t, err)
}

func TestFilePersisterWritesPrettyIDKeyedObject(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "todo_list.json")

	s, err := NewTodoStore(ctx, NewFilePersister(path), IDStrategySize)
	require.NoError(t, err)
	_, err = s.Insert(ctx, newItem("a"))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"0":{"title":"a","description":"desc a","due_date":"2030-01-01T00:00:00Z","created_at":"2025-01-01T00:00:00Z","completed":false}}`, string(data))
	assert.Contains(t, string(data), "\n  \"0\": {")

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestFilePersisterDropsNonNumericKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "todo_list.json")
	item := `{"title":"A","description":"B","due_date":"2030-01-01T00:00:00Z","created_at":"2025-01-01T00:00:00Z","completed":false}`
	require.NoError(t, os.WriteFile(path, []byte(`{"5":`+item+`,"five":`+item+`}`), 0o644))

	list, err := NewFilePersister(path).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, uint32(5), list[0].ID)
}

func TestFilePersisterLoadsItemWithExtraKeys(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "todo_list.json")
	item := `{"title":"A","description":"B","due_date":"2030-01-01T00:00:00Z","created_at":"2025-01-01T00:00:00Z","completed":true,"priority":3}`
	require.NoError(t, os.WriteFile(path, []byte(`{"0":`+item+`}`), 0o644))

	s, err := NewTodoStore(ctx, NewFilePersister(path), IDStrategySize)
	require.NoError(t, err)
	got, err := s.Get(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, "A", got.Title)
	assert.True(t, got.Completed)
}

func TestFilePersisterRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "todo_list.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"0": {"title": `), 0o644))

	_, err := NewTodoStore(context.Background(), NewFilePersister(path), IDStrategySize)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode")
}

func TestFilePersisterDefaultPath(t *testing.T) {
	assert.Equal(t, DefaultStoragePath, NewFilePersister("").Path())
}
