package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"
)

// ErrNotFound is returned when no todo item exists for an id.
var ErrNotFound = errors.New("todo item not found")

// TodoItem is a single task record. Identity is assigned by the store and is
// not part of the item itself.
type TodoItem struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	DueDate     time.Time `json:"due_date"`
	CreatedAt   time.Time `json:"created_at"`
	Completed   bool      `json:"completed"`
}

// todoItemJSON mirrors TodoItem with pointer fields so that absent keys can
// be told apart from zero values.
type todoItemJSON struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	DueDate     *time.Time `json:"due_date"`
	CreatedAt   *time.Time `json:"created_at"`
	Completed   *bool      `json:"completed"`
}

// MissingFieldError reports a required key absent from an item payload.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing field %q", e.Field)
}

// UnmarshalJSON requires every field to be present and normalizes both
// timestamps to UTC. Unknown keys are ignored.
func (t *TodoItem) UnmarshalJSON(data []byte) error {
	var raw todoItemJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch {
	case raw.Title == nil:
		return &MissingFieldError{Field: "title"}
	case raw.Description == nil:
		return &MissingFieldError{Field: "description"}
	case raw.DueDate == nil:
		return &MissingFieldError{Field: "due_date"}
	case raw.CreatedAt == nil:
		return &MissingFieldError{Field: "created_at"}
	case raw.Completed == nil:
		return &MissingFieldError{Field: "completed"}
	}
	*t = TodoItem{
		Title:       *raw.Title,
		Description: *raw.Description,
		DueDate:     raw.DueDate.UTC(),
		CreatedAt:   raw.CreatedAt.UTC(),
		Completed:   *raw.Completed,
	}
	return nil
}

// Entry pairs an item with its id.
type Entry struct {
	ID   uint32
	Item TodoItem
}

// TodoList is an id-ordered sequence of entries. On the wire it is a JSON
// object keyed by decimal ids, emitted in ascending numeric order.
type TodoList []Entry

// Sort orders the list by ascending id.
func (l TodoList) Sort() {
	sort.Slice(l, func(i, j int) bool { return l[i].ID < l[j].ID })
}

// Get returns the item stored under id.
func (l TodoList) Get(id uint32) (TodoItem, bool) {
	for _, e := range l {
		if e.ID == id {
			return e.Item, true
		}
	}
	return TodoItem{}, false
}

func (l TodoList) MarshalJSON() ([]byte, error) {
	sorted := make(TodoList, len(l))
	copy(sorted, l)
	sorted.Sort()

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range sorted {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('"')
		buf.WriteString(strconv.FormatUint(uint64(e.ID), 10))
		buf.WriteString(`":`)
		item, err := json.Marshal(e.Item)
		if err != nil {
			return nil, fmt.Errorf("marshal todo %d: %w", e.ID, err)
		}
		buf.Write(item)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an id-keyed object. Keys that are not unsigned 32-bit
// integers are dropped.
func (l *TodoList) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(TodoList, 0, len(raw))
	for key, value := range raw {
		id, err := ParseID(key)
		if err != nil {
			continue
		}
		var item TodoItem
		if err := json.Unmarshal(value, &item); err != nil {
			return fmt.Errorf("todo %s: %w", key, err)
		}
		out = append(out, Entry{ID: id, Item: item})
	}
	out.Sort()
	*l = out
	return nil
}

// ParseID parses a decimal unsigned 32-bit todo id.
func ParseID(s string) (uint32, error) {
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid todo id %q: %w", s, err)
	}
	return uint32(id), nil
}
