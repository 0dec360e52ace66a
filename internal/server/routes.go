package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Tomlord1122/todo-list/internal/config"
	"github.com/Tomlord1122/todo-list/internal/domain"
)

// maxBodyBytes caps item payloads.
const maxBodyBytes = 1 << 20

func (s *Server) RegisterRoutes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cors.AllowedOrigins,
		AllowedMethods: s.cors.AllowedMethods,
		AllowedHeaders: s.cors.AllowedHeaders,
		MaxAge:         s.cors.MaxAge,
	}))

	r.Get("/", s.HelloWorldHandler)
	r.Get("/health", s.healthHandler)

	r.Get("/list", s.listTodosHandler)
	r.Get("/view/{id}", s.viewTodoHandler)
	r.Post("/insert", s.insertTodoHandler)
	r.Put("/update/{id}", s.updateTodoHandler)
	r.Delete("/delete/{id}", s.deleteTodoHandler)

	if s.hub != nil {
		r.Get("/watch", s.hub.ServeHTTP)
	}

	return r
}

// OriginChecker builds the websocket origin policy from the CORS settings.
// Requests without an Origin header (non-browser clients) and same-host
// requests are always accepted.
func OriginChecker(c config.CORSConfig) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if slices.Contains(c.AllowedOrigins, "*") || slices.Contains(c.AllowedOrigins, origin) {
			return true
		}
		u, err := url.Parse(origin)
		return err == nil && strings.EqualFold(u.Host, r.Host)
	}
}

func (s *Server) HelloWorldHandler(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Hello World from Todo List!"})
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	healthStats := s.todoService.Health(r.Context())
	if status, ok := healthStats["status"]; ok && status == "down" {
		respondWithJSON(w, http.StatusServiceUnavailable, healthStats)
		return
	}
	respondWithJSON(w, http.StatusOK, healthStats)
}

func (s *Server) listTodosHandler(w http.ResponseWriter, r *http.Request) {
	todos, err := s.todoService.ListTodos(r.Context())
	if err != nil {
		slog.Error("list todos", "err", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve todos")
		return
	}

	respondWithJSON(w, http.StatusOK, todos)
}

func (s *Server) viewTodoHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := todoID(w, r)
	if !ok {
		return
	}

	todo, err := s.todoService.GetTodo(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, fmt.Sprintf("Todo item with id %d not found", id))
		} else {
			slog.Error("get todo", "id", id, "err", err)
			respondWithError(w, http.StatusInternalServerError, "Failed to retrieve todo")
		}
		return
	}

	respondWithJSON(w, http.StatusOK, todo)
}

func (s *Server) insertTodoHandler(w http.ResponseWriter, r *http.Request) {
	item, ok := decodeTodoItem(w, r)
	if !ok {
		return
	}

	id, err := s.todoService.CreateTodo(r.Context(), item)
	if err != nil {
		slog.Error("create todo", "err", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to create todo")
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/view/%d", id))
	w.WriteHeader(http.StatusOK)
}

func (s *Server) updateTodoHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := todoID(w, r)
	if !ok {
		return
	}
	item, ok := decodeTodoItem(w, r)
	if !ok {
		return
	}

	if err := s.todoService.UpdateTodo(r.Context(), id, item); err != nil {
		slog.Error("update todo", "id", id, "err", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to update todo")
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (s *Server) deleteTodoHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := todoID(w, r)
	if !ok {
		return
	}

	if err := s.todoService.DeleteTodo(r.Context(), id); err != nil {
		slog.Error("delete todo", "id", id, "err", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to delete todo")
		return
	}

	w.WriteHeader(http.StatusOK)
}

// todoID parses the {id} path parameter, answering 400 when it is not an
// unsigned 32-bit integer.
func todoID(w http.ResponseWriter, r *http.Request) (uint32, bool) {
	idStr := chi.URLParam(r, "id")
	id, err := domain.ParseID(idStr)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid todo ID %q", idStr))
		return 0, false
	}
	return id, true
}

func decodeTodoItem(w http.ResponseWriter, r *http.Request) (domain.TodoItem, bool) {
	var item domain.TodoItem

	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	err := decoder.Decode(&item)
	if err == nil {
		return item, true
	}

	var syntaxError *json.SyntaxError
	var unmarshalTypeError *json.UnmarshalTypeError
	var missingFieldError *domain.MissingFieldError
	var maxBytesError *http.MaxBytesError
	if errors.As(err, &syntaxError) {
		msg := fmt.Sprintf("Request body contains badly-formed JSON (at position %d)", syntaxError.Offset)
		respondWithError(w, http.StatusBadRequest, msg)
	} else if errors.Is(err, io.ErrUnexpectedEOF) {
		respondWithError(w, http.StatusBadRequest, "Request body contains badly-formed JSON")
	} else if errors.As(err, &unmarshalTypeError) {
		msg := fmt.Sprintf("Request body contains an invalid value for the %q field (at position %d)", unmarshalTypeError.Field, unmarshalTypeError.Offset)
		respondWithError(w, http.StatusBadRequest, msg)
	} else if errors.As(err, &missingFieldError) {
		msg := fmt.Sprintf("Request body is missing the %q field", missingFieldError.Field)
		respondWithError(w, http.StatusBadRequest, msg)
	} else if errors.Is(err, io.EOF) {
		respondWithError(w, http.StatusBadRequest, "Request body must not be empty")
	} else if errors.As(err, &maxBytesError) {
		msg := fmt.Sprintf("Request body must not be larger than %d bytes", maxBytesError.Limit)
		respondWithError(w, http.StatusRequestEntityTooLarge, msg)
	} else {
		// time.Time parse failures land here
		slog.Debug("decode todo item", "err", err)
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Request body is invalid: %v", err))
	}
	return domain.TodoItem{}, false
}

// respondWithError writes message as a plain-text body.
func respondWithError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(code)
	_, _ = io.WriteString(w, message)
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal response", "err", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error preparing response")
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}
