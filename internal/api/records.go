package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/mesh-intelligence/qadesk/internal/links"
	"github.com/mesh-intelligence/qadesk/internal/service"
	"github.com/mesh-intelligence/qadesk/internal/workflow"
	"github.com/mesh-intelligence/qadesk/pkg/types"
)

type testCaseResponse struct {
	TestCase *types.TestCase       `json:"testCase"`
	FollowUp *workflow.FollowUpBug `json:"followUp,omitempty"`
}

type linkPairResponse struct {
	TestCase *types.TestCase `json:"testCase,omitempty"`
	Bug      *types.Bug      `json:"bug,omitempty"`
	Task     *types.Task     `json:"task,omitempty"`
}

type parentRequest struct {
	ParentID string `json:"parentId"`
}

type taskLinkRequest struct {
	TargetType types.TargetType `json:"targetType" validate:"required,oneof=Task Bug TestCase"`
	TargetID   string           `json:"targetId" validate:"required"`
}

type moveRequest struct {
	TaskID string `json:"taskId" validate:"required"`
	Target string `json:"target" validate:"required"`
}

func (s *Server) createTestCase(c echo.Context) error {
	var req service.NewTestCase
	if err := bind(c, &req); err != nil {
		return err
	}
	tc, err := s.svc.CreateTestCase(c.Request().Context(), actorOf(c), c.Param("pid"), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, tc)
}

func (s *Server) listTestCases(c echo.Context) error {
	list, err := s.svc.ListTestCases(c.Request().Context(), actorOf(c), c.Param("pid"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, list)
}

func (s *Server) getTestCase(c echo.Context) error {
	tc, err := s.svc.GetTestCase(c.Request().Context(), actorOf(c), c.Param("pid"), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tc)
}

func (s *Server) updateTestCase(c echo.Context) error {
	var req service.TestCasePatch
	if err := bind(c, &req); err != nil {
		return err
	}
	tc, followUp, err := s.svc.UpdateTestCase(c.Request().Context(), actorOf(c), c.Param("pid"), c.Param("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, testCaseResponse{TestCase: tc, FollowUp: followUp})
}

func (s *Server) deleteTestCase(c echo.Context) error {
	if err := s.svc.DeleteTestCase(c.Request().Context(), actorOf(c), c.Param("pid"), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) linkTestCaseBug(c echo.Context) error {
	tc, bug, err := s.svc.LinkTestCaseBug(c.Request().Context(), actorOf(c), c.Param("pid"), c.Param("id"), c.Param("bugId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, linkPairResponse{TestCase: tc, Bug: bug})
}

func (s *Server) unlinkTestCaseBug(c echo.Context) error {
	tc, bug, err := s.svc.UnlinkTestCaseBug(c.Request().Context(), actorOf(c), c.Param("pid"), c.Param("id"), c.Param("bugId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, linkPairResponse{TestCase: tc, Bug: bug})
}

func (s *Server) createBug(c echo.Context) error {
	var req service.NewBug
	if err := bind(c, &req); err != nil {
		return err
	}
	bug, err := s.svc.CreateBug(c.Request().Context(), actorOf(c), c.Param("pid"), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, bug)
}

func (s *Server) listBugs(c echo.Context) error {
	list, err := s.svc.ListBugs(c.Request().Context(), actorOf(c), c.Param("pid"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, list)
}

func (s *Server) getBug(c echo.Context) error {
	bug, err := s.svc.GetBug(c.Request().Context(), actorOf(c), c.Param("pid"), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, bug)
}

func (s *Server) updateBug(c echo.Context) error {
	var req service.BugPatch
	if err := bind(c, &req); err != nil {
		return err
	}
	bug, err := s.svc.UpdateBug(c.Request().Context(), actorOf(c), c.Param("pid"), c.Param("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, bug)
}

func (s *Server) deleteBug(c echo.Context) error {
	if err := s.svc.DeleteBug(c.Request().Context(), actorOf(c), c.Param("pid"), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) linkBugTask(c echo.Context) error {
	bug, task, err := s.svc.LinkBugTask(c.Request().Context(), actorOf(c), c.Param("pid"), c.Param("id"), c.Param("taskId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, linkPairResponse{Bug: bug, Task: task})
}

func (s *Server) unlinkBugTask(c echo.Context) error {
	bug, task, err := s.svc.UnlinkBugTask(c.Request().Context(), actorOf(c), c.Param("pid"), c.Param("id"), c.Param("taskId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, linkPairResponse{Bug: bug, Task: task})
}

func (s *Server) linkedItems(kind types.TargetType) echo.HandlerFunc {
	return func(c echo.Context) error {
		items, err := s.svc.LinkedItems(c.Request().Context(), actorOf(c), c.Param("pid"), kind, c.Param("id"))
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, items)
	}
}

func (s *Server) createTask(c echo.Context) error {
	var req service.NewTask
	if err := bind(c, &req); err != nil {
		return err
	}
	task, err := s.svc.CreateTask(c.Request().Context(), actorOf(c), c.Param("pid"), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, task)
}

func (s *Server) listTasks(c echo.Context) error {
	list, err := s.svc.ListTasks(c.Request().Context(), actorOf(c), c.Param("pid"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, list)
}

func (s *Server) getTask(c echo.Context) error {
	task, err := s.svc.GetTask(c.Request().Context(), actorOf(c), c.Param("pid"), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, task)
}

func (s *Server) subtasks(c echo.Context) error {
	list, err := s.svc.Subtasks(c.Request().Context(), actorOf(c), c.Param("pid"), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, list)
}

func (s *Server) updateTask(c echo.Context) error {
	var req service.TaskPatch
	if err := bind(c, &req); err != nil {
		return err
	}
	task, err := s.svc.UpdateTask(c.Request().Context(), actorOf(c), c.Param("pid"), c.Param("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, task)
}

func (s *Server) deleteTask(c echo.Context) error {
	if err := s.svc.DeleteTask(c.Request().Context(), actorOf(c), c.Param("pid"), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) setParent(c echo.Context) error {
	var req parentRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	task, err := s.svc.SetParent(c.Request().Context(), actorOf(c), c.Param("pid"), c.Param("id"), req.ParentID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, task)
}

func (s *Server) linkTaskTo(c echo.Context) error {
	var req taskLinkRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	task, err := s.svc.LinkTaskTo(c.Request().Context(), actorOf(c), c.Param("pid"), c.Param("id"), req.TargetType, req.TargetID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, task)
}

// unlinkTaskFrom selects the link by ?index=N or ?target=ID.
func (s *Server) unlinkTaskFrom(c echo.Context) error {
	var sel links.LinkSelector
	switch {
	case c.QueryParam("index") != "":
		i, err := strconv.Atoi(c.QueryParam("index"))
		if err != nil {
			return types.Invalid("unlink task", "index must be an integer", "linkIndex")
		}
		sel = links.AtIndex(i)
	case c.QueryParam("target") != "":
		sel = links.ToTarget(c.QueryParam("target"))
	default:
		return types.Invalid("unlink task", "index or target is required", "linkIndex", "targetId")
	}
	task, err := s.svc.UnlinkTaskFrom(c.Request().Context(), actorOf(c), c.Param("pid"), c.Param("id"), sel)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, task)
}

func (s *Server) board(c echo.Context) error {
	b, err := s.svc.Board(c.Request().Context(), actorOf(c), c.Param("pid"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, b)
}

func (s *Server) moveTask(c echo.Context) error {
	var req moveRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	task, err := s.svc.MoveTask(c.Request().Context(), actorOf(c), c.Param("pid"), req.TaskID, req.Target)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, task)
}
