package domain

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return ts.UTC()
}

func TestTodoItemRoundTrip(t *testing.T) {
	in := `{"title":"A","description":"B","due_date":"2030-01-01T00:00:00Z","created_at":"2025-01-01T00:00:00Z","completed":false}`

	var item TodoItem
	require.NoError(t, json.Unmarshal([]byte(in), &item))
	assert.Equal(t, "A", item.Title)
	assert.Equal(t, mustTime(t, "2030-01-01T00:00:00Z"), item.DueDate)

	out, err := json.Marshal(item)
	require.NoError(t, err)
	assert.JSONEq(t, in, string(out))
}

func TestTodoItemRequiresEveryField(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"title", `{"description":"B","due_date":"2030-01-01T00:00:00Z","created_at":"2025-01-01T00:00:00Z","completed":false}`, "title"},
		{"description", `{"title":"A","due_date":"2030-01-01T00:00:00Z","created_at":"2025-01-01T00:00:00Z","completed":false}`, "description"},
		{"due date", `{"title":"A","description":"B","created_at":"2025-01-01T00:00:00Z","completed":false}`, "due_date"},
		{"created at", `{"title":"A","description":"B","due_date":"2030-01-01T00:00:00Z","completed":false}`, "created_at"},
		{"completed", `{"title":"A","description":"B","due_date":"2030-01-01T00:00:00Z","created_at":"2025-01-01T00:00:00Z"}`, "completed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var item TodoItem
			err := json.Unmarshal([]byte(tt.body), &item)
			var missing *MissingFieldError
			require.True(t, errors.As(err, &missing), "got %v", err)
			assert.Equal(t, tt.field, missing.Field)
		})
	}
}

func TestTodoItemIgnoresUnknownField(t *testing.T) {
	body := `{"title":"A","description":"B","due_date":"2030-01-01T00:00:00Z","created_at":"2025-01-01T00:00:00Z","completed":false,"priority":1}`
	var item TodoItem
	require.NoError(t, json.Unmarshal([]byte(body), &item))
	assert.Equal(t, "A", item.Title)
	assert.Equal(t, mustTime(t, "2030-01-01T00:00:00Z"), item.DueDate)
}

func TestTodoItemNormalizesToUTC(t *testing.T) {
	body := `{"title":"A","description":"B","due_date":"2030-01-01T02:00:00+02:00","created_at":"2025-01-01T00:00:00Z","completed":true}`
	var item TodoItem
	require.NoError(t, json.Unmarshal([]byte(body), &item))
	assert.Equal(t, mustTime(t, "2030-01-01T00:00:00Z"), item.DueDate)
	assert.Equal(t, time.UTC, item.DueDate.Location())
}

func TestTodoListMarshalsInNumericOrder(t *testing.T) {
	due := mustTime(t, "2030-01-01T00:00:00Z")
	list := TodoList{
		{ID: 10, Item: TodoItem{Title: "ten", DueDate: due, CreatedAt: due}},
		{ID: 2, Item: TodoItem{Title: "two", DueDate: due, CreatedAt: due}},
		{ID: 0, Item: TodoItem{Title: "zero", DueDate: due, CreatedAt: due}},
	}

	out, err := json.Marshal(list)
	require.NoError(t, err)

	s := string(out)
	zero, two, ten := strings.Index(s, `"0":`), strings.Index(s, `"2":`), strings.Index(s, `"10":`)
	require.True(t, zero >= 0 && two >= 0 && ten >= 0, s)
	assert.Less(t, zero, two)
	assert.Less(t, two, ten)
	assert.Equal(t, uint32(10), list[0].ID, "marshal must not reorder the receiver")
}

func TestTodoListMarshalsEmptyAsObject(t *testing.T) {
	out, err := json.Marshal(TodoList{})
	require.NoError(t, err)
	assert.Equal(t, "{}", string(out))
}

func TestTodoListUnmarshalDropsInvalidKeys(t *testing.T) {
	item := `{"title":"A","description":"B","due_date":"2030-01-01T00:00:00Z","created_at":"2025-01-01T00:00:00Z","completed":false}`
	body := `{"3":` + item + `,"abc":` + item + `,"-1":` + item + `,"4294967296":` + item + `,"1":` + item + `}`

	var list TodoList
	require.NoError(t, json.Unmarshal([]byte(body), &list))
	require.Len(t, list, 2)
	assert.Equal(t, uint32(1), list[0].ID)
	assert.Equal(t, uint32(3), list[1].ID)

	got, ok := list.Get(3)
	require.True(t, ok)
	assert.Equal(t, "A", got.Title)
	_, ok = list.Get(7)
	assert.False(t, ok)
}

func TestParseID(t *testing.T) {
	id, err := ParseID("4294967295")
	require.NoError(t, err)
	assert.Equal(t, uint32(4294967295), id)

	for _, bad := range []string{"", "x", "-1", "4294967296", "1.5"} {
		_, err := ParseID(bad)
		assert.Error(t, err, bad)
	}
}
