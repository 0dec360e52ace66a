package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tomlord1122/todo-list/internal/config"
	"github.com/Tomlord1122/todo-list/internal/domain"
	"github.com/Tomlord1122/todo-list/internal/events"
	"github.com/Tomlord1122/todo-list/internal/repository"
	"github.com/Tomlord1122/todo-list/internal/server"
	"github.com/Tomlord1122/todo-list/internal/service"
)

func newClient(t *testing.T) *Client {
	t.Helper()
	store, err := repository.NewTodoStore(context.Background(), nil, repository.IDStrategySize)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	hub := events.NewHub(nil)
	go hub.Run(ctx)

	srv := httptest.NewServer(server.New(config.CORSConfig{}, service.NewTodoService(store, hub), hub).RegisterRoutes())
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})

	c, err := New(srv.URL, srv.Client())
	require.NoError(t, err)
	return c
}

func item(title string) domain.TodoItem {
	return domain.TodoItem{
		Title:       title,
		Description: "desc",
		DueDate:     time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
		CreatedAt:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestClientRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := newClient(t)

	id, ok, err := c.Insert(ctx, item("first"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint32(0), id)
	id, ok, err = c.Insert(ctx, item("second"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint32(1), id)

	got, err := c.View(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, item("second"), *got)

	done := item("second")
	done.Completed = true
	require.NoError(t, c.Update(ctx, 1, done))

	list, err := c.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, uint32(0), list[0].ID)
	assert.True(t, list[1].Item.Completed)

	require.NoError(t, c.Delete(ctx, 0))
	got, err = c.View(ctx, 0)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestClientSurfacesStatusErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "disk full", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, err := New(srv.URL, nil)
	require.NoError(t, err)

	_, _, err = c.Insert(context.Background(), item("x"))
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusInternalServerError, statusErr.Code)
	assert.Equal(t, "disk full", statusErr.Body)

	_, err = c.View(context.Background(), 3)
	assert.Error(t, err)
}

func TestInsertWithoutLocation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c, err := New(srv.URL, nil)
	require.NoError(t, err)

	id, ok, err := c.Insert(context.Background(), item("x"))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, id)
}

func TestInsertRejectsMalformedLocation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "/view/abc")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c, err := New(srv.URL, nil)
	require.NoError(t, err)

	_, _, err = c.Insert(context.Background(), item("x"))
	assert.ErrorContains(t, err, "unexpected Location")
}

func TestDefaultHTTPClientHasNoTimeout(t *testing.T) {
	c, err := New(DefaultServer, nil)
	require.NoError(t, err)
	assert.Zero(t, c.http.Timeout)
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := New("ftp://example.com", nil)
	assert.Error(t, err)
	_, err = New("://", nil)
	assert.Error(t, err)
}

func TestWatch(t *testing.T) {
	ctx := context.Background()
	c := newClient(t)

	sub, err := c.Watch(ctx)
	require.NoError(t, err)
	defer sub.Close()

	_, _, err = c.Insert(ctx, item("watched"))
	require.NoError(t, err)
	require.NoError(t, c.Delete(ctx, 0))

	ev, err := sub.Next()
	require.NoError(t, err)
	assert.Equal(t, events.TypeInsert, ev.Type)
	require.NotNil(t, ev.Item)
	assert.Equal(t, "watched", ev.Item.Title)

	ev, err = sub.Next()
	require.NoError(t, err)
	assert.Equal(t, events.TypeDelete, ev.Type)
	assert.Equal(t, uint32(0), ev.ID)
}

func TestWatchDisabled(t *testing.T) {
	store, err := repository.NewTodoStore(context.Background(), nil, repository.IDStrategySize)
	require.NoError(t, err)
	srv := httptest.NewServer(server.New(config.CORSConfig{}, service.NewTodoService(store, nil), nil).RegisterRoutes())
	defer srv.Close()

	c, err := New(srv.URL, srv.Client())
	require.NoError(t, err)

	_, err = c.Watch(context.Background())
	assert.ErrorIs(t, err, ErrWatchDisabled)
}
