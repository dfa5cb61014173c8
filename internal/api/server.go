// Package api exposes the task tracker over HTTP/JSON.
package api

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"task-tracker/internal/service"
)

//go:embed web/templates/*.html web/static/*
var webFS embed.FS

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps are the collaborators every handler needs.
type Deps struct {
	Tasks *service.TaskService
	Users *service.UserService
	DB    Pinger
	Log   *zap.SugaredLogger
}

// Server holds the handler context shared by all requests. It is built once
// at startup and has no mutable state of its own.
type Server struct {
	engine *gin.Engine
	tasks  *service.TaskService
	users  *service.UserService
	db     Pinger
	log    *zap.SugaredLogger
	static fs.FS
	now    func() time.Time
}

func New(deps Deps) (*Server, error) {
	tmpl, err := template.ParseFS(webFS, "web/templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	static, err := fs.Sub(webFS, "web/static")
	if err != nil {
		return nil, fmt.Errorf("static files: %w", err)
	}

	s := &Server{
		engine: gin.New(),
		tasks:  deps.Tasks,
		users:  deps.Users,
		db:     deps.DB,
		log:    deps.Log,
		static: static,
		now:    time.Now,
	}

	s.engine.Use(gin.Recovery())
	s.engine.Use(requestLogger(s.log))
	s.engine.Use(corsMiddleware())
	s.engine.SetHTMLTemplate(tmpl)

	s.registerRoutes()
	return s, nil
}

// Handler returns the http.Handler serving every route.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) registerRoutes() {
	s.engine.GET("/", s.handleIndex)
	s.engine.GET("/static/*filepath", s.handleStatic)
	s.engine.GET("/healthz", s.handleHealth)

	api := s.engine.Group("/api")
	{
		api.POST("/login", s.handleLogin)
		api.GET("/users", s.handleListUsers)

		api.GET("/tasks", s.handleListTasks)
		api.POST("/tasks", s.handleCreateTask)
		api.PUT("/tasks/:id", s.handleUpdateTask)
		api.DELETE("/tasks/:id", s.handleDeleteTask)

		api.GET("/overdue", s.handleOverdue)
	}

	s.engine.NoRoute(func(c *gin.Context) {
		abort(c, newNotFoundError("not found"))
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		s.log.Errorw("health check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "error": "database unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
