// Package links maintains the relationships between test cases, bugs and
// tasks.
//
// Two kinds of relationship exist. TestCase <-> Bug and Bug <-> Task links are
// symmetric: both records list each other and are written in the same
// transaction. Links added from a task (Task -> Task, Task -> TestCase,
// Task -> Bug) are one-directional references stored on the task only.
//
// Every operation runs against a types.Tx supplied by the caller, so a
// failure anywhere rolls back both sides.
package links

import (
	"errors"

	"github.com/mesh-intelligence/qadesk/pkg/types"
)

// DefaultMaxDepth allows exactly one level of subtasks.
const DefaultMaxDepth = 1

// Manager applies link mutations inside a transaction.
type Manager struct {
	// MaxDepth bounds the parent chain length of any task. Zero or less
	// disables the depth check; cycles are always rejected.
	MaxDepth int
}

// NewManager returns a Manager with the given nesting depth.
func NewManager(maxDepth int) *Manager {
	return &Manager{MaxDepth: maxDepth}
}

// load fetches a record and checks it belongs to projectID. A missing or
// foreign owner is reported as not found; a missing or foreign target as a
// validation error on field.
func load[R types.Record](table types.Table[R], op, kind, projectID, id, field string) (R, error) {
	var zero R
	rec, err := table.Get(id)
	if err != nil {
		if field != "" && errors.Is(err, types.ErrNotFound) {
			return zero, types.Invalid(op, kind+" "+id+" does not exist", field)
		}
		return zero, err
	}
	if rec.Scope() != projectID {
		if field != "" {
			return zero, types.Invalid(op, kind+" "+id+" belongs to another project", field)
		}
		return zero, types.NotFound(kind, id)
	}
	return rec, nil
}

// LinkTestCaseBug links a test case and a bug on both sides. Linking an
// already linked pair changes nothing and is not an error.
func (m *Manager) LinkTestCaseBug(tx types.Tx, projectID, testCaseID, bugID string) (*types.TestCase, *types.Bug, error) {
	const op = "link test case and bug"
	tc, err := load(tx.TestCases(), op, types.KindTestCase, projectID, testCaseID, "")
	if err != nil {
		return nil, nil, err
	}
	bug, err := load(tx.Bugs(), op, types.KindBug, projectID, bugID, "bugId")
	if err != nil {
		return nil, nil, err
	}

	if tc.AddBug(bug.ID) {
		if err := tx.TestCases().Put(tc); err != nil {
			return nil, nil, err
		}
	}
	if bug.AddTestCase(tc.ID) {
		if err := tx.Bugs().Put(bug); err != nil {
			return nil, nil, err
		}
	}
	return tc, bug, nil
}

// UnlinkTestCaseBug removes the link from both sides. Unlinking a pair that
// is not linked changes nothing. A bug that no longer exists is dropped from
// the test case.
func (m *Manager) UnlinkTestCaseBug(tx types.Tx, projectID, testCaseID, bugID string) (*types.TestCase, *types.Bug, error) {
	const op = "unlink test case and bug"
	tc, err := load(tx.TestCases(), op, types.KindTestCase, projectID, testCaseID, "")
	if err != nil {
		return nil, nil, err
	}
	if tc.RemoveBug(bugID) {
		if err := tx.TestCases().Put(tc); err != nil {
			return nil, nil, err
		}
	}

	bug, err := tx.Bugs().Get(bugID)
	if errors.Is(err, types.ErrNotFound) {
		return tc, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	if bug.RemoveTestCase(tc.ID) {
		if err := tx.Bugs().Put(bug); err != nil {
			return nil, nil, err
		}
	}
	return tc, bug, nil
}

// LinkBugTask links a bug and a task symmetrically: the task id goes on
// bug.LinkedTaskIDs and a {Bug, bugID} entry on task.Links. Idempotent.
func (m *Manager) LinkBugTask(tx types.Tx, projectID, bugID, taskID string) (*types.Bug, *types.Task, error) {
	const op = "link bug and task"
	bug, err := load(tx.Bugs(), op, types.KindBug, projectID, bugID, "")
	if err != nil {
		return nil, nil, err
	}
	task, err := load(tx.Tasks(), op, types.KindTask, projectID, taskID, "taskId")
	if err != nil {
		return nil, nil, err
	}

	if bug.AddTask(task.ID) {
		if err := tx.Bugs().Put(bug); err != nil {
			return nil, nil, err
		}
	}
	if task.AddLink(types.TargetBug, bug.ID) {
		if err := tx.Tasks().Put(task); err != nil {
			return nil, nil, err
		}
	}
	return bug, task, nil
}

// UnlinkBugTask removes a Bug <-> Task link from both sides. Idempotent.
func (m *Manager) UnlinkBugTask(tx types.Tx, projectID, bugID, taskID string) (*types.Bug, *types.Task, error) {
	const op = "unlink bug and task"
	bug, err := load(tx.Bugs(), op, types.KindBug, projectID, bugID, "")
	if err != nil {
		return nil, nil, err
	}
	if bug.RemoveTask(taskID) {
		if err := tx.Bugs().Put(bug); err != nil {
			return nil, nil, err
		}
	}

	task, err := tx.Tasks().Get(taskID)
	if errors.Is(err, types.ErrNotFound) {
		return bug, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	if i := task.LinkIndex(types.TargetBug, bug.ID); i >= 0 {
		task.RemoveLinkAt(i)
		if err := tx.Tasks().Put(task); err != nil {
			return nil, nil, err
		}
	}
	return bug, task, nil
}

// LinkTaskTo appends a one-directional link from a task. The target must
// exist in the same project and the (type, id) pair must not already be
// linked.
func (m *Manager) LinkTaskTo(tx types.Tx, projectID, taskID string, targetType types.TargetType, targetID string) (*types.Task, error) {
	const op = "link task"
	task, err := load(tx.Tasks(), op, types.KindTask, projectID, taskID, "")
	if err != nil {
		return nil, err
	}
	if !targetType.Valid() {
		return nil, types.Invalid(op, "unknown target type "+string(targetType), "targetType")
	}
	if targetType == types.TargetTask && targetID == task.ID {
		return nil, types.Invalid(op, "a task cannot link to itself", "targetId")
	}
	if err := m.checkTarget(tx, op, projectID, targetType, targetID); err != nil {
		return nil, err
	}
	if task.HasLink(targetType, targetID) {
		return nil, types.Conflict(op, "task "+task.ID+" already links to "+string(targetType)+" "+targetID)
	}

	task.AddLink(targetType, targetID)
	if err := tx.Tasks().Put(task); err != nil {
		return nil, err
	}
	return task, nil
}

func (m *Manager) checkTarget(tx types.Tx, op, projectID string, targetType types.TargetType, targetID string) error {
	var err error
	switch targetType {
	case types.TargetTask:
		_, err = load(tx.Tasks(), op, types.KindTask, projectID, targetID, "targetId")
	case types.TargetBug:
		_, err = load(tx.Bugs(), op, types.KindBug, projectID, targetID, "targetId")
	case types.TargetTestCase:
		_, err = load(tx.TestCases(), op, types.KindTestCase, projectID, targetID, "targetId")
	}
	return err
}

// LinkSelector picks the task link to remove, either by position or by
// target id.
type LinkSelector struct {
	index    int
	targetID string
}

// AtIndex selects the link at position i of task.Links.
func AtIndex(i int) LinkSelector { return LinkSelector{index: i} }

// ToTarget selects every link pointing at targetID.
func ToTarget(targetID string) LinkSelector { return LinkSelector{index: -1, targetID: targetID} }

// Select returns the links of task matched by sel without removing them.
func (sel LinkSelector) Select(task *types.Task) []types.TaskLink {
	if sel.index >= 0 || sel.targetID == "" {
		if sel.index < 0 || sel.index >= len(task.Links) {
			return nil
		}
		return []types.TaskLink{task.Links[sel.index]}
	}
	var out []types.TaskLink
	for _, l := range task.Links {
		if l.TargetID == sel.targetID {
			out = append(out, l)
		}
	}
	return out
}

// UnlinkTaskFrom removes the selected link record from a task. An index out
// of range is a validation error; a target id with no link is a no-op. When
// the removed link points at a bug that lists the task back, the bug's
// back-reference is removed too.
func (m *Manager) UnlinkTaskFrom(tx types.Tx, projectID, taskID string, sel LinkSelector) (*types.Task, error) {
	const op = "unlink task"
	task, err := load(tx.Tasks(), op, types.KindTask, projectID, taskID, "")
	if err != nil {
		return nil, err
	}

	removed := sel.Select(task)
	if sel.index >= 0 || sel.targetID == "" {
		if _, ok := task.RemoveLinkAt(sel.index); !ok {
			return nil, types.Invalid(op, "no link at that position", "linkIndex")
		}
	} else {
		task.RemoveLinksTo(sel.targetID)
	}
	if len(removed) == 0 {
		return task, nil
	}
	if err := tx.Tasks().Put(task); err != nil {
		return nil, err
	}

	for _, l := range removed {
		if l.TargetType != types.TargetBug {
			continue
		}
		bug, err := tx.Bugs().Get(l.TargetID)
		if errors.Is(err, types.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if bug.RemoveTask(task.ID) {
			if err := tx.Bugs().Put(bug); err != nil {
				return nil, err
			}
		}
	}
	return task, nil
}
