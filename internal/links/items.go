package links

import (
	"github.com/mesh-intelligence/qadesk/pkg/types"
)

// Item is one entry of a linked-items view.
type Item struct {
	Type       types.TargetType `json:"type"`
	ID         string           `json:"id"`
	FriendlyID string           `json:"friendlyId,omitempty"`
	Title      string           `json:"title"`
	Status     string           `json:"status"`
}

// LinkedItems lists the records linked to the given test case, bug or task.
// Membership is re-derived from the stored collections on every call:
//
//   - TestCase: bugs whose id is in its linkedBugIds, then tasks linking to it.
//   - Bug: test cases in its linkedTestCaseIds, then tasks in linkedTaskIds or
//     linking to it.
//   - Task: each link target in link order, followed by its subtasks.
//
// Ids that no longer resolve are left out.
func (m *Manager) LinkedItems(tx types.Tx, projectID string, kind types.TargetType, id string) ([]Item, error) {
	const op = "list linked items"
	items := []Item{}

	switch kind {
	case types.TargetTestCase:
		tc, err := load(tx.TestCases(), op, types.KindTestCase, projectID, id, "")
		if err != nil {
			return nil, err
		}
		bugs, err := tx.Bugs().Fetch(types.Filter{ProjectID: projectID})
		if err != nil {
			return nil, err
		}
		for _, b := range bugs {
			if tc.HasBug(b.ID) {
				items = append(items, bugItem(b))
			}
		}
		tasks, err := tx.Tasks().Fetch(types.Filter{ProjectID: projectID})
		if err != nil {
			return nil, err
		}
		for _, t := range tasks {
			if t.HasLink(types.TargetTestCase, tc.ID) {
				items = append(items, taskItem(t))
			}
		}

	case types.TargetBug:
		bug, err := load(tx.Bugs(), op, types.KindBug, projectID, id, "")
		if err != nil {
			return nil, err
		}
		tcs, err := tx.TestCases().Fetch(types.Filter{ProjectID: projectID})
		if err != nil {
			return nil, err
		}
		for _, tc := range tcs {
			if bug.HasTestCase(tc.ID) {
				items = append(items, testCaseItem(tc))
			}
		}
		tasks, err := tx.Tasks().Fetch(types.Filter{ProjectID: projectID})
		if err != nil {
			return nil, err
		}
		for _, t := range tasks {
			if bug.HasTask(t.ID) || t.HasLink(types.TargetBug, bug.ID) {
				items = append(items, taskItem(t))
			}
		}

	case types.TargetTask:
		task, err := load(tx.Tasks(), op, types.KindTask, projectID, id, "")
		if err != nil {
			return nil, err
		}
		for _, l := range task.Links {
			item, ok, err := resolve(tx, projectID, l)
			if err != nil {
				return nil, err
			}
			if ok {
				items = append(items, item)
			}
		}
		subtasks, err := tx.Tasks().Fetch(types.Filter{ProjectID: projectID, IndexKey: task.ID})
		if err != nil {
			return nil, err
		}
		for _, s := range subtasks {
			items = append(items, taskItem(s))
		}

	default:
		return nil, types.Invalid(op, "unknown record type "+string(kind), "type")
	}
	return items, nil
}

// resolve looks up a task link target. ok is false when it no longer exists
// in projectID.
func resolve(tx types.Tx, projectID string, l types.TaskLink) (Item, bool, error) {
	switch l.TargetType {
	case types.TargetTask:
		t, err := load(tx.Tasks(), "", types.KindTask, projectID, l.TargetID, "targetId")
		if err != nil {
			return Item{}, false, ignoreMissing(err)
		}
		return taskItem(t), true, nil
	case types.TargetBug:
		b, err := load(tx.Bugs(), "", types.KindBug, projectID, l.TargetID, "targetId")
		if err != nil {
			return Item{}, false, ignoreMissing(err)
		}
		return bugItem(b), true, nil
	case types.TargetTestCase:
		tc, err := load(tx.TestCases(), "", types.KindTestCase, projectID, l.TargetID, "targetId")
		if err != nil {
			return Item{}, false, ignoreMissing(err)
		}
		return testCaseItem(tc), true, nil
	}
	return Item{}, false, nil
}

// ignoreMissing drops the validation error load reports for an absent or
// foreign target.
func ignoreMissing(err error) error {
	if _, ok := err.(*types.ValidationError); ok {
		return nil
	}
	return err
}

func testCaseItem(tc *types.TestCase) Item {
	return Item{Type: types.TargetTestCase, ID: tc.ID, FriendlyID: tc.FriendlyID, Title: tc.Title, Status: string(tc.Status)}
}

func bugItem(b *types.Bug) Item {
	return Item{Type: types.TargetBug, ID: b.ID, FriendlyID: b.FriendlyID, Title: b.Title, Status: string(b.Status)}
}

func taskItem(t *types.Task) Item {
	return Item{Type: types.TargetTask, ID: t.ID, Title: t.Title, Status: string(t.Status)}
}
