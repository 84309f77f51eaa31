package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mesh-intelligence/qadesk/internal/service"
	"github.com/mesh-intelligence/qadesk/pkg/types"
)

type editCommentRequest struct {
	Content string `json:"content" validate:"required"`
}

func (s *Server) postComment(c echo.Context) error {
	var req service.NewComment
	if err := bind(c, &req); err != nil {
		return err
	}
	cm, err := s.svc.PostComment(c.Request().Context(), actorOf(c), c.Param("pid"), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, cm)
}

// thread serves GET /comments?subjectType=Bug&subjectId=...&history=true.
func (s *Server) thread(c echo.Context) error {
	entries, err := s.svc.Thread(c.Request().Context(), actorOf(c), c.Param("pid"),
		types.SubjectType(c.QueryParam("subjectType")), c.QueryParam("subjectId"),
		c.QueryParam("history") == "true")
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entries)
}

func (s *Server) editComment(c echo.Context) error {
	var req editCommentRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	cm, err := s.svc.EditComment(c.Request().Context(), actorOf(c), c.Param("pid"), c.Param("cid"), req.Content)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cm)
}

func (s *Server) resolveComment(c echo.Context) error {
	cm, err := s.svc.ResolveComment(c.Request().Context(), actorOf(c), c.Param("pid"), c.Param("cid"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cm)
}

func (s *Server) deleteComment(c echo.Context) error {
	if err := s.svc.DeleteComment(c.Request().Context(), actorOf(c), c.Param("pid"), c.Param("cid")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) createNote(c echo.Context) error {
	var req service.NewNote
	if err := bind(c, &req); err != nil {
		return err
	}
	n, err := s.svc.CreateNote(c.Request().Context(), actorOf(c), c.Param("pid"), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, n)
}

func (s *Server) listNotes(c echo.Context) error {
	list, err := s.svc.ListNotes(c.Request().Context(), actorOf(c), c.Param("pid"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, list)
}

func (s *Server) updateNote(c echo.Context) error {
	var req service.NotePatch
	if err := bind(c, &req); err != nil {
		return err
	}
	n, err := s.svc.UpdateNote(c.Request().Context(), actorOf(c), c.Param("pid"), c.Param("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, n)
}

func (s *Server) deleteNote(c echo.Context) error {
	if err := s.svc.DeleteNote(c.Request().Context(), actorOf(c), c.Param("pid"), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
