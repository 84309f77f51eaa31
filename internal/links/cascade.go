package links

import (
	"github.com/mesh-intelligence/qadesk/pkg/types"
)

// DeleteTestCase removes a test case and every reference to it: bugs listing
// it and tasks linking to it are rewritten. References are found by scanning
// the project, not by trusting the test case's own link set.
func (m *Manager) DeleteTestCase(tx types.Tx, projectID, testCaseID string) error {
	tc, err := load(tx.TestCases(), "delete test case", types.KindTestCase, projectID, testCaseID, "")
	if err != nil {
		return err
	}

	bugs, err := tx.Bugs().Fetch(types.Filter{ProjectID: projectID})
	if err != nil {
		return err
	}
	for _, bug := range bugs {
		if bug.RemoveTestCase(tc.ID) {
			if err := tx.Bugs().Put(bug); err != nil {
				return err
			}
		}
	}
	if err := dropTaskLinks(tx, projectID, tc.ID, ""); err != nil {
		return err
	}
	return tx.TestCases().Delete(tc.ID)
}

// DeleteBug removes a bug, its comments, and every reference to it from test
// cases and tasks.
func (m *Manager) DeleteBug(tx types.Tx, projectID, bugID string) error {
	bug, err := load(tx.Bugs(), "delete bug", types.KindBug, projectID, bugID, "")
	if err != nil {
		return err
	}

	tcs, err := tx.TestCases().Fetch(types.Filter{ProjectID: projectID})
	if err != nil {
		return err
	}
	for _, tc := range tcs {
		if tc.RemoveBug(bug.ID) {
			if err := tx.TestCases().Put(tc); err != nil {
				return err
			}
		}
	}
	if err := dropTaskLinks(tx, projectID, bug.ID, ""); err != nil {
		return err
	}
	if err := DeleteComments(tx, projectID, types.SubjectBug, bug.ID); err != nil {
		return err
	}
	return tx.Bugs().Delete(bug.ID)
}

// DeleteTask removes a task, its comments and every reference to it. Its
// subtasks lose their parent and become standalone.
func (m *Manager) DeleteTask(tx types.Tx, projectID, taskID string) error {
	task, err := load(tx.Tasks(), "delete task", types.KindTask, projectID, taskID, "")
	if err != nil {
		return err
	}

	bugs, err := tx.Bugs().Fetch(types.Filter{ProjectID: projectID})
	if err != nil {
		return err
	}
	for _, bug := range bugs {
		if bug.RemoveTask(task.ID) {
			if err := tx.Bugs().Put(bug); err != nil {
				return err
			}
		}
	}
	if err := dropTaskLinks(tx, projectID, task.ID, task.ID); err != nil {
		return err
	}
	if err := DeleteComments(tx, projectID, types.SubjectTask, task.ID); err != nil {
		return err
	}
	return tx.Tasks().Delete(task.ID)
}

// dropTaskLinks removes links to targetID from every task in the project and
// clears parentId on tasks whose parent is targetID. skip names a task that
// is about to be deleted and need not be rewritten.
func dropTaskLinks(tx types.Tx, projectID, targetID, skip string) error {
	tasks, err := tx.Tasks().Fetch(types.Filter{ProjectID: projectID})
	if err != nil {
		return err
	}
	for _, t := range tasks {
		if t.ID == skip {
			continue
		}
		changed := t.RemoveLinksTo(targetID) > 0
		if t.ParentID == targetID {
			t.ParentID = ""
			changed = true
		}
		if changed {
			if err := tx.Tasks().Put(t); err != nil {
				return err
			}
		}
	}
	return nil
}

// DeleteComments removes every comment on the given subject, replies
// included.
func DeleteComments(tx types.Tx, projectID string, subjectType types.SubjectType, subjectID string) error {
	comments, err := tx.Comments().Fetch(types.Filter{ProjectID: projectID, IndexKey: subjectID})
	if err != nil {
		return err
	}
	for _, c := range comments {
		if c.SubjectType != subjectType {
			continue
		}
		if err := tx.Comments().Delete(c.ID); err != nil {
			return err
		}
	}
	return nil
}
