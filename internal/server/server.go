package server

import (
	"net/http"

	"github.com/Tomlord1122/todo-list/internal/config"
	"github.com/Tomlord1122/todo-list/internal/events"
	"github.com/Tomlord1122/todo-list/internal/service"
)

type Server struct {
	cors        config.CORSConfig
	todoService service.TodoService
	hub         *events.Hub
}

// New returns the application handler set. hub may be nil, in which case
// /watch is not mounted.
func New(cors config.CORSConfig, todoService service.TodoService, hub *events.Hub) *Server {
	return &Server{
		cors:        cors,
		todoService: todoService,
		hub:         hub,
	}
}

func NewServer(cfg *config.Config, todoService service.TodoService, hub *events.Hub) *http.Server {
	appServer := New(cfg.CORS, todoService, hub)

	return &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      appServer.RegisterRoutes(),
		IdleTimeout:  cfg.Server.IdleTimeout,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}
