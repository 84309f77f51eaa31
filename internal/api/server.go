// Package api exposes the QA Desk service over JSON/HTTP.
//
// The actor is taken from the X-Actor-ID, X-Actor-Name and X-Actor-Role
// headers. Core errors map to 403 (authorization), 422 (validation),
// 409 (conflict), 404 (not found) and 500 (persistence).
package api

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/qadesk/internal/service"
	"github.com/mesh-intelligence/qadesk/pkg/types"
)

// Server is the HTTP front end of a service.Service.
type Server struct {
	echo   *echo.Echo
	svc    *service.Service
	logger *zap.Logger
}

// NewServer builds the router. Nothing listens until Start.
func NewServer(svc *service.Service, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = newBodyValidator()
	e.HTTPErrorHandler = errorHandler(logger)

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(requestLogger(logger))
	e.Use(actorMiddleware("/health"))

	s := &Server{echo: e, svc: svc, logger: logger}
	s.routes()
	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.echo }

// Start listens on addr until Shutdown.
func (s *Server) Start(addr string) error {
	s.logger.Info("Starting HTTP server", zap.String("address", addr))
	err := s.echo.Start(addr)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) routes() {
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "healthy", "service": "qadesk"})
	})

	v1 := s.echo.Group("/api/v1")
	v1.GET("/projects", s.listProjects)
	v1.POST("/projects", s.createProject)
	v1.POST("/notifications/:nid/read", s.markNotificationRead)

	p := v1.Group("/projects/:pid")
	p.GET("", s.getProject)
	p.PATCH("", s.updateProject)
	p.DELETE("", s.deleteProject)
	p.GET("/capabilities", s.capabilities)
	p.POST("/members", s.addMember)
	p.DELETE("/members/:mid", s.removeMember)
	p.PUT("/members/:mid/role", s.setMemberRole)
	p.PUT("/permissions", s.setPermissions)
	p.PUT("/board/columns", s.setBoardColumns)

	p.GET("/testcases", s.listTestCases)
	p.POST("/testcases", s.createTestCase)
	p.GET("/testcases/:id", s.getTestCase)
	p.PATCH("/testcases/:id", s.updateTestCase)
	p.DELETE("/testcases/:id", s.deleteTestCase)
	p.GET("/testcases/:id/linked", s.linkedItems(types.TargetTestCase))
	p.PUT("/testcases/:id/bugs/:bugId", s.linkTestCaseBug)
	p.DELETE("/testcases/:id/bugs/:bugId", s.unlinkTestCaseBug)

	p.GET("/bugs", s.listBugs)
	p.POST("/bugs", s.createBug)
	p.GET("/bugs/:id", s.getBug)
	p.PATCH("/bugs/:id", s.updateBug)
	p.DELETE("/bugs/:id", s.deleteBug)
	p.GET("/bugs/:id/linked", s.linkedItems(types.TargetBug))
	p.PUT("/bugs/:id/tasks/:taskId", s.linkBugTask)
	p.DELETE("/bugs/:id/tasks/:taskId", s.unlinkBugTask)

	p.GET("/tasks", s.listTasks)
	p.POST("/tasks", s.createTask)
	p.GET("/tasks/:id", s.getTask)
	p.PATCH("/tasks/:id", s.updateTask)
	p.DELETE("/tasks/:id", s.deleteTask)
	p.GET("/tasks/:id/linked", s.linkedItems(types.TargetTask))
	p.GET("/tasks/:id/subtasks", s.subtasks)
	p.PUT("/tasks/:id/parent", s.setParent)
	p.POST("/tasks/:id/links", s.linkTaskTo)
	p.DELETE("/tasks/:id/links", s.unlinkTaskFrom)

	p.GET("/board", s.board)
	p.POST("/board/moves", s.moveTask)

	p.GET("/comments", s.thread)
	p.POST("/comments", s.postComment)
	p.PATCH("/comments/:cid", s.editComment)
	p.POST("/comments/:cid/resolve", s.resolveComment)
	p.DELETE("/comments/:cid", s.deleteComment)

	p.GET("/notes", s.listNotes)
	p.POST("/notes", s.createNote)
	p.PATCH("/notes/:id", s.updateNote)
	p.DELETE("/notes/:id", s.deleteNote)

	p.GET("/notifications", s.listNotifications)
}
