package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mesh-intelligence/qadesk/internal/service"
	"github.com/mesh-intelligence/qadesk/pkg/types"
)

type memberRequest struct {
	MemberID    string     `json:"memberId" validate:"required"`
	DisplayName string     `json:"displayName"`
	LoginHandle string     `json:"loginHandle"`
	Role        types.Role `json:"role" validate:"required,oneof=QA DEV"`
}

type roleRequest struct {
	Role types.Role `json:"role" validate:"required,oneof=QA DEV"`
}

type columnsRequest struct {
	Columns []types.BoardColumn `json:"columns" validate:"required"`
}

func (s *Server) createProject(c echo.Context) error {
	var req service.NewProject
	if err := bind(c, &req); err != nil {
		return err
	}
	p, err := s.svc.CreateProject(c.Request().Context(), actorOf(c), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, p)
}

func (s *Server) listProjects(c echo.Context) error {
	list, err := s.svc.ListProjects(c.Request().Context(), actorOf(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, list)
}

func (s *Server) getProject(c echo.Context) error {
	p, err := s.svc.GetProject(c.Request().Context(), actorOf(c), c.Param("pid"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (s *Server) updateProject(c echo.Context) error {
	var req service.ProjectPatch
	if err := bind(c, &req); err != nil {
		return err
	}
	p, err := s.svc.UpdateProject(c.Request().Context(), actorOf(c), c.Param("pid"), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (s *Server) deleteProject(c echo.Context) error {
	if err := s.svc.DeleteProject(c.Request().Context(), actorOf(c), c.Param("pid")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) capabilities(c echo.Context) error {
	caps, err := s.svc.Capabilities(c.Request().Context(), actorOf(c), c.Param("pid"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, caps)
}

func (s *Server) addMember(c echo.Context) error {
	var req memberRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	p, err := s.svc.AddMember(c.Request().Context(), actorOf(c), c.Param("pid"), types.Member{
		MemberID:    req.MemberID,
		DisplayName: req.DisplayName,
		LoginHandle: req.LoginHandle,
		Role:        req.Role,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (s *Server) removeMember(c echo.Context) error {
	p, err := s.svc.RemoveMember(c.Request().Context(), actorOf(c), c.Param("pid"), c.Param("mid"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (s *Server) setMemberRole(c echo.Context) error {
	var req roleRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	p, err := s.svc.SetMemberRole(c.Request().Context(), actorOf(c), c.Param("pid"), c.Param("mid"), req.Role)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (s *Server) setPermissions(c echo.Context) error {
	var req types.PermissionOverrides
	if err := bind(c, &req); err != nil {
		return err
	}
	p, err := s.svc.SetPermissions(c.Request().Context(), actorOf(c), c.Param("pid"), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (s *Server) setBoardColumns(c echo.Context) error {
	var req columnsRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	p, err := s.svc.SetBoardColumns(c.Request().Context(), actorOf(c), c.Param("pid"), req.Columns)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (s *Server) listNotifications(c echo.Context) error {
	unread := c.QueryParam("unread") == "true"
	list, err := s.svc.ListNotifications(c.Request().Context(), actorOf(c), c.Param("pid"), unread)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, list)
}

func (s *Server) markNotificationRead(c echo.Context) error {
	n, err := s.svc.MarkNotificationRead(c.Request().Context(), actorOf(c), c.Param("nid"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, n)
}
