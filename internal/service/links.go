package service

import (
	"context"
	"errors"

	"github.com/mesh-intelligence/qadesk/internal/access"
	"github.com/mesh-intelligence/qadesk/internal/links"
	"github.com/mesh-intelligence/qadesk/pkg/types"
)

// LinkTestCaseBug links a test case and a bug on both sides. Linking an
// existing pair succeeds without change.
func (s *Service) LinkTestCaseBug(ctx context.Context, actor types.Actor, projectID, testCaseID, bugID string) (*types.TestCase, *types.Bug, error) {
	const op = "link test case and bug"
	var (
		tc  *types.TestCase
		bug *types.Bug
	)
	err := s.update(ctx, op, actor, projectID, func(tx types.Tx, sc *scope) error {
		if err := access.RequireAny(sc.caps, op, types.CapEditTestCases, types.CapEditBugs); err != nil {
			return err
		}
		var err error
		tc, bug, err = s.links.LinkTestCaseBug(tx, projectID, testCaseID, bugID)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return tc, bug, nil
}

// UnlinkTestCaseBug removes a test case and bug link. Besides the edit
// capability the actor must be QA or the bug's creator.
func (s *Service) UnlinkTestCaseBug(ctx context.Context, actor types.Actor, projectID, testCaseID, bugID string) (*types.TestCase, *types.Bug, error) {
	const op = "unlink test case and bug"
	var (
		tc  *types.TestCase
		bug *types.Bug
	)
	err := s.update(ctx, op, actor, projectID, func(tx types.Tx, sc *scope) error {
		if err := access.RequireAny(sc.caps, op, types.CapEditTestCases, types.CapEditBugs); err != nil {
			return err
		}
		if err := checkUnlinkBug(tx, sc, op, projectID, bugID); err != nil {
			return err
		}
		var err error
		tc, bug, err = s.links.UnlinkTestCaseBug(tx, projectID, testCaseID, bugID)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return tc, bug, nil
}

// LinkBugTask links a bug and a task on both sides.
func (s *Service) LinkBugTask(ctx context.Context, actor types.Actor, projectID, bugID, taskID string) (*types.Bug, *types.Task, error) {
	const op = "link bug and task"
	var (
		bug  *types.Bug
		task *types.Task
	)
	err := s.update(ctx, op, actor, projectID, func(tx types.Tx, sc *scope) error {
		if err := access.RequireAny(sc.caps, op, types.CapEditBugs, types.CapEditTasks); err != nil {
			return err
		}
		var err error
		bug, task, err = s.links.LinkBugTask(tx, projectID, bugID, taskID)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return bug, task, nil
}

// UnlinkBugTask removes a bug and task link under the same owner-or-QA rule
// as UnlinkTestCaseBug.
func (s *Service) UnlinkBugTask(ctx context.Context, actor types.Actor, projectID, bugID, taskID string) (*types.Bug, *types.Task, error) {
	const op = "unlink bug and task"
	var (
		bug  *types.Bug
		task *types.Task
	)
	err := s.update(ctx, op, actor, projectID, func(tx types.Tx, sc *scope) error {
		if err := access.RequireAny(sc.caps, op, types.CapEditBugs, types.CapEditTasks); err != nil {
			return err
		}
		if err := checkUnlinkBug(tx, sc, op, projectID, bugID); err != nil {
			return err
		}
		var err error
		bug, task, err = s.links.UnlinkBugTask(tx, projectID, bugID, taskID)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return bug, task, nil
}

// checkUnlinkBug applies the owner-or-QA rule. A bug that no longer exists
// has no owner to protect, so only QA may drop references to it.
func checkUnlinkBug(tx types.Tx, sc *scope, op, projectID, bugID string) error {
	bug, err := inProject(tx.Bugs(), types.KindBug, projectID, bugID)
	if err != nil && !errors.Is(err, types.ErrNotFound) {
		return err
	}
	if !access.CanUnlinkBug(sc.role, sc.actor.ID, bug) {
		return types.Forbidden(op, "only QA or the bug's creator can remove its links")
	}
	return nil
}

// checkUnlinkTaskBugs applies the owner-or-QA rule to every selected task
// link whose bug lists the task back. One-directional links are not checked.
func checkUnlinkTaskBugs(tx types.Tx, sc *scope, op, projectID, taskID string, sel links.LinkSelector) error {
	task, err := inProject(tx.Tasks(), types.KindTask, projectID, taskID)
	if err != nil {
		// Reported by the unlink itself.
		return nil
	}
	for _, l := range sel.Select(task) {
		if l.TargetType != types.TargetBug {
			continue
		}
		bug, err := inProject(tx.Bugs(), types.KindBug, projectID, l.TargetID)
		if errors.Is(err, types.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		if !bug.HasTask(task.ID) {
			continue
		}
		if !access.CanUnlinkBug(sc.role, sc.actor.ID, bug) {
			return types.Forbidden(op, "only QA or the bug's creator can remove its links")
		}
	}
	return nil
}

// LinkedItems lists the records linked to a test case, bug or task.
func (s *Service) LinkedItems(ctx context.Context, actor types.Actor, projectID string, kind types.TargetType, id string) ([]links.Item, error) {
	const op = "list linked items"
	var out []links.Item
	err := s.view(ctx, op, actor, projectID, func(tx types.Tx, sc *scope) error {
		var c types.Capability
		switch kind {
		case types.TargetTestCase:
			c = types.CapViewTestCases
		case types.TargetBug:
			c = types.CapViewBugs
		case types.TargetTask:
			c = types.CapViewTasks
		default:
			return types.Invalid(op, "unknown record type "+string(kind), "type")
		}
		if err := sc.require(c, op); err != nil {
			return err
		}
		var err error
		out, err = s.links.LinkedItems(tx, projectID, kind, id)
		return err
	})
	return out, err
}
