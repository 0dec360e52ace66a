// Package client talks to the todo API over HTTP and subscribes to its
// websocket change feed.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/Tomlord1122/todo-list/internal/domain"
	"github.com/Tomlord1122/todo-list/internal/events"
)

const DefaultServer = "http://127.0.0.1:8081"

// ErrWatchDisabled is returned by Watch when the server does not serve the
// change feed.
var ErrWatchDisabled = errors.New("server change feed is disabled")

// StatusError is returned for any response outside the 2xx range other than
// a 404 from View.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("server returned %d %s", e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Body)
}

type Client struct {
	base *url.URL
	http *http.Client
}

// New returns a client for the API rooted at server. A nil httpClient means
// a plain http.Client with no timeout; requests are bounded by their context.
func New(server string, httpClient *http.Client) (*Client, error) {
	base, err := url.Parse(server)
	if err != nil {
		return nil, fmt.Errorf("parse server url %q: %w", server, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("server url %q: scheme must be http or https", server)
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{base: base, http: httpClient}, nil
}

func (c *Client) List(ctx context.Context) (domain.TodoList, error) {
	var list domain.TodoList
	resp, err := c.do(ctx, http.MethodGet, "list", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("decode todo list: %w", err)
	}
	return list, nil
}

// View returns the item with id, or nil when the server has none.
func (c *Client) View(ctx context.Context, id uint32) (*domain.TodoItem, error) {
	resp, err := c.do(ctx, http.MethodGet, "view/"+strconv.FormatUint(uint64(id), 10), nil)
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.Code == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	defer resp.Body.Close()
	var item domain.TodoItem
	if err := json.NewDecoder(resp.Body).Decode(&item); err != nil {
		return nil, fmt.Errorf("decode todo %d: %w", id, err)
	}
	return &item, nil
}

// Insert stores item. ok reports whether the server named the new id in its
// Location header; a response without one is still a success.
func (c *Client) Insert(ctx context.Context, item domain.TodoItem) (id uint32, ok bool, err error) {
	resp, err := c.do(ctx, http.MethodPost, "insert", &item)
	if err != nil {
		return 0, false, err
	}
	drain(resp)
	loc := resp.Header.Get("Location")
	if loc == "" {
		return 0, false, nil
	}
	id, err = domain.ParseID(path.Base(loc))
	if err != nil {
		return 0, false, fmt.Errorf("insert: unexpected Location %q: %w", loc, err)
	}
	return id, true, nil
}

func (c *Client) Update(ctx context.Context, id uint32, item domain.TodoItem) error {
	resp, err := c.do(ctx, http.MethodPut, "update/"+strconv.FormatUint(uint64(id), 10), &item)
	if err != nil {
		return err
	}
	drain(resp)
	return nil
}

func (c *Client) Delete(ctx context.Context, id uint32) error {
	resp, err := c.do(ctx, http.MethodDelete, "delete/"+strconv.FormatUint(uint64(id), 10), nil)
	if err != nil {
		return err
	}
	drain(resp)
	return nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, item *domain.TodoItem) (*http.Response, error) {
	var body io.Reader
	if item != nil {
		raw, err := json.Marshal(item)
		if err != nil {
			return nil, fmt.Errorf("encode todo: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.JoinPath(endpoint).String(), body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s /%s: %w", method, endpoint, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	return resp, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

// Subscription is an open /watch feed.
type Subscription struct {
	conn *websocket.Conn
}

// Watch opens the change feed. The hello event is consumed before returning.
func (c *Client) Watch(ctx context.Context) (*Subscription, error) {
	u := *c.base
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u = *u.JoinPath("watch")

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, ErrWatchDisabled
		}
		return nil, fmt.Errorf("failed to dial %s: %w", u.String(), err)
	}
	s := &Subscription{conn: conn}
	ev, err := s.Next()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if ev.Type != events.TypeHello {
		conn.Close()
		return nil, fmt.Errorf("watch: expected hello, got %q", ev.Type)
	}
	return s, nil
}

// Next blocks until the server sends an event or the connection fails.
func (s *Subscription) Next() (events.Event, error) {
	var ev events.Event
	if err := s.conn.ReadJSON(&ev); err != nil {
		return events.Event{}, fmt.Errorf("watch: %w", err)
	}
	return ev, nil
}

func (s *Subscription) Close() error {
	return s.conn.Close()
}
