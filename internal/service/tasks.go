package service

import (
	"context"

	"github.com/mesh-intelligence/qadesk/internal/board"
	"github.com/mesh-intelligence/qadesk/internal/links"
	"github.com/mesh-intelligence/qadesk/internal/workflow"
	"github.com/mesh-intelligence/qadesk/pkg/types"
)

// NewTask is the input of CreateTask. Empty Priority and Status default to
// Medium and Backlog. ParentID nests the task under an existing task.
type NewTask struct {
	Title          string           `json:"title" validate:"required"`
	Description    string           `json:"description"`
	Status         types.TaskStatus `json:"status" validate:"omitempty,oneof=Backlog ToDo InProgress Done Archived"`
	Priority       types.Priority   `json:"priority" validate:"omitempty,oneof=Low Medium High"`
	Tags           []string         `json:"tags"`
	AdditionalInfo string           `json:"additionalInfo"`
	Attachments    []string         `json:"attachments" validate:"omitempty,dive,url"`
	ParentID       string           `json:"parentId"`
	AssignedTo     string           `json:"assignedTo"`
	Reporter       string           `json:"reporter"`
}

// TaskPatch changes task fields. Parent and links have their own
// operations.
type TaskPatch struct {
	Title           *string           `json:"title,omitempty"`
	Description     *string           `json:"description,omitempty"`
	Status          *types.TaskStatus `json:"status,omitempty"`
	Priority        *types.Priority   `json:"priority,omitempty"`
	Tags            *[]string         `json:"tags,omitempty"`
	AdditionalInfo  *string           `json:"additionalInfo,omitempty"`
	Attachments     *[]string         `json:"attachments,omitempty"`
	AssignedTo      *string           `json:"assignedTo,omitempty"`
	Reporter        *string           `json:"reporter,omitempty"`
	ExpectedVersion int64             `json:"expectedVersion,omitempty"`
}

// CreateTask adds a task, nesting it under ParentID when set.
func (s *Service) CreateTask(ctx context.Context, actor types.Actor, projectID string, in NewTask) (*types.Task, error) {
	const op = "create task"
	task := &types.Task{
		ProjectID:      projectID,
		Title:          in.Title,
		Description:    in.Description,
		Status:         in.Status,
		Priority:       in.Priority,
		Tags:           types.NormalizeTags(in.Tags),
		AdditionalInfo: in.AdditionalInfo,
		Attachments:    nonNil(in.Attachments),
		AssignedTo:     in.AssignedTo,
		Reporter:       in.Reporter,
		Links:          []types.TaskLink{},
		CreatedBy:      actor.ID,
	}
	if task.Priority == "" {
		task.Priority = types.PriorityMedium
	}
	if task.Status == "" {
		task.Status = types.TaskBacklog
	}

	err := s.update(ctx, op, actor, projectID, func(tx types.Tx, sc *scope) error {
		if err := sc.require(types.CapCreateTasks, op); err != nil {
			return err
		}
		if err := workflow.CheckTask(task); err != nil {
			return err
		}
		if err := tx.Tasks().Put(task); err != nil {
			return err
		}
		if in.ParentID == "" {
			return nil
		}
		nested, err := s.links.SetParent(tx, projectID, task.ID, in.ParentID)
		if err != nil {
			return err
		}
		task = nested
		return nil
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// GetTask returns one task.
func (s *Service) GetTask(ctx context.Context, actor types.Actor, projectID, id string) (*types.Task, error) {
	var out *types.Task
	err := s.view(ctx, "get task", actor, projectID, func(tx types.Tx, sc *scope) error {
		if err := sc.require(types.CapViewTasks, "get task"); err != nil {
			return err
		}
		var err error
		out, err = inProject(tx.Tasks(), types.KindTask, projectID, id)
		return err
	})
	return out, err
}

// ListTasks returns the project's tasks in creation order.
func (s *Service) ListTasks(ctx context.Context, actor types.Actor, projectID string) ([]*types.Task, error) {
	var out []*types.Task
	err := s.view(ctx, "list tasks", actor, projectID, func(tx types.Tx, sc *scope) error {
		if err := sc.require(types.CapViewTasks, "list tasks"); err != nil {
			return err
		}
		var err error
		out, err = tx.Tasks().Fetch(types.Filter{ProjectID: projectID})
		return err
	})
	return out, err
}

// Subtasks returns the direct children of a task.
func (s *Service) Subtasks(ctx context.Context, actor types.Actor, projectID, parentID string) ([]*types.Task, error) {
	var out []*types.Task
	err := s.view(ctx, "list subtasks", actor, projectID, func(tx types.Tx, sc *scope) error {
		if err := sc.require(types.CapViewTasks, "list subtasks"); err != nil {
			return err
		}
		if _, err := inProject(tx.Tasks(), types.KindTask, projectID, parentID); err != nil {
			return err
		}
		var err error
		out, err = tx.Tasks().Fetch(types.Filter{ProjectID: projectID, IndexKey: parentID})
		return err
	})
	return out, err
}

// UpdateTask applies patch.
func (s *Service) UpdateTask(ctx context.Context, actor types.Actor, projectID, id string, patch TaskPatch) (*types.Task, error) {
	const op = "update task"
	var out *types.Task
	err := s.update(ctx, op, actor, projectID, func(tx types.Tx, sc *scope) error {
		if err := sc.require(types.CapEditTasks, op); err != nil {
			return err
		}
		task, err := inProject(tx.Tasks(), types.KindTask, projectID, id)
		if err != nil {
			return err
		}
		if err := checkVersion(op, patch.ExpectedVersion, &task.Meta); err != nil {
			return err
		}

		if patch.Title != nil {
			task.Title = *patch.Title
		}
		if patch.Description != nil {
			task.Description = *patch.Description
		}
		if patch.Priority != nil {
			task.Priority = *patch.Priority
		}
		if patch.Tags != nil {
			task.Tags = types.NormalizeTags(*patch.Tags)
		}
		if patch.AdditionalInfo != nil {
			task.AdditionalInfo = *patch.AdditionalInfo
		}
		if patch.Attachments != nil {
			task.Attachments = nonNil(*patch.Attachments)
		}
		if patch.AssignedTo != nil {
			task.AssignedTo = *patch.AssignedTo
		}
		if patch.Reporter != nil {
			task.Reporter = *patch.Reporter
		}
		if patch.Status != nil {
			if err := workflow.TransitionTask(task, *patch.Status); err != nil {
				return err
			}
		}
		if err := workflow.CheckTask(task); err != nil {
			return err
		}
		if err := tx.Tasks().Put(task); err != nil {
			return err
		}
		out = task
		return nil
	})
	return out, err
}

// ChangeTaskStatus moves a task to status to.
func (s *Service) ChangeTaskStatus(ctx context.Context, actor types.Actor, projectID, id string, to types.TaskStatus) (*types.Task, error) {
	return s.UpdateTask(ctx, actor, projectID, id, TaskPatch{Status: &to})
}

// DeleteTask removes a task, its comments and every reference to it. Its
// subtasks become standalone.
func (s *Service) DeleteTask(ctx context.Context, actor types.Actor, projectID, id string) error {
	const op = "delete task"
	return s.update(ctx, op, actor, projectID, func(tx types.Tx, sc *scope) error {
		if err := sc.require(types.CapEditTasks, op); err != nil {
			return err
		}
		return s.links.DeleteTask(tx, projectID, id)
	})
}

// SetParent nests a task under parentID, or makes it top-level when
// parentID is empty.
func (s *Service) SetParent(ctx context.Context, actor types.Actor, projectID, taskID, parentID string) (*types.Task, error) {
	const op = "set parent"
	var out *types.Task
	err := s.update(ctx, op, actor, projectID, func(tx types.Tx, sc *scope) error {
		if err := sc.require(types.CapEditTasks, op); err != nil {
			return err
		}
		var err error
		out, err = s.links.SetParent(tx, projectID, taskID, parentID)
		return err
	})
	return out, err
}

// LinkTaskTo adds a one-directional link from a task.
func (s *Service) LinkTaskTo(ctx context.Context, actor types.Actor, projectID, taskID string, targetType types.TargetType, targetID string) (*types.Task, error) {
	const op = "link task"
	var out *types.Task
	err := s.update(ctx, op, actor, projectID, func(tx types.Tx, sc *scope) error {
		if err := sc.require(types.CapEditTasks, op); err != nil {
			return err
		}
		var err error
		out, err = s.links.LinkTaskTo(tx, projectID, taskID, targetType, targetID)
		return err
	})
	return out, err
}

// UnlinkTaskFrom removes the selected link from a task. Removing a link that
// a bug mirrors also needs QA or the bug's creator.
func (s *Service) UnlinkTaskFrom(ctx context.Context, actor types.Actor, projectID, taskID string, sel links.LinkSelector) (*types.Task, error) {
	const op = "unlink task"
	var out *types.Task
	err := s.update(ctx, op, actor, projectID, func(tx types.Tx, sc *scope) error {
		if err := sc.require(types.CapEditTasks, op); err != nil {
			return err
		}
		if err := checkUnlinkTaskBugs(tx, sc, op, projectID, taskID, sel); err != nil {
			return err
		}
		var err error
		out, err = s.links.UnlinkTaskFrom(tx, projectID, taskID, sel)
		return err
	})
	return out, err
}

// Board projects the project's tasks onto its configured columns.
func (s *Service) Board(ctx context.Context, actor types.Actor, projectID string) (*board.Board, error) {
	var out *board.Board
	err := s.view(ctx, "board", actor, projectID, func(tx types.Tx, sc *scope) error {
		if err := sc.require(types.CapViewTasks, "board"); err != nil {
			return err
		}
		tasks, err := tx.Tasks().Fetch(types.Filter{ProjectID: projectID})
		if err != nil {
			return err
		}
		out = board.Build(tasks, sc.project.BoardColumns)
		return nil
	})
	return out, err
}

// MoveTask applies a board drop. dropKey is "{scope}:{status}"; only the
// task's status changes.
func (s *Service) MoveTask(ctx context.Context, actor types.Actor, projectID, taskID, dropKey string) (*types.Task, error) {
	const op = "move task"
	var out *types.Task
	err := s.update(ctx, op, actor, projectID, func(tx types.Tx, sc *scope) error {
		if err := sc.require(types.CapEditTasks, op); err != nil {
			return err
		}
		drop, err := board.ParseDrop(dropKey, sc.project.BoardColumns)
		if err != nil {
			return err
		}
		tasks, err := tx.Tasks().Fetch(types.Filter{ProjectID: projectID})
		if err != nil {
			return err
		}
		if err := board.Build(tasks, sc.project.BoardColumns).CheckDrop(drop); err != nil {
			return err
		}
		task, err := inProject(tx.Tasks(), types.KindTask, projectID, taskID)
		if err != nil {
			return err
		}
		if err := board.Move(task, drop); err != nil {
			return err
		}
		if err := tx.Tasks().Put(task); err != nil {
			return err
		}
		out = task
		return nil
	})
	return out, err
}
