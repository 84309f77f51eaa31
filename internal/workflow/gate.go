// Package workflow implements the status gate for test cases, bugs and tasks.
//
// Any state may move to any other state, except that a record cannot leave
// Draft while one of its required fields is blank. The gate mutates the
// record's status only when the transition is accepted.
package workflow

import (
	"github.com/mesh-intelligence/qadesk/pkg/types"
)

// FollowUpBug is the draft handed back when a test case moves to Fail. The
// caller is expected to route the user to create it; the status change does
// not depend on it.
type FollowUpBug struct {
	ProjectID        string          `json:"projectId"`
	LinkedTestCaseID string          `json:"linkedTestCaseId"`
	Title            string          `json:"title"`
	StepsToReproduce string          `json:"stepsToReproduce"`
	ExpectedResult   string          `json:"expectedResult"`
	Severity         types.Severity  `json:"severity"`
	Status           types.BugStatus `json:"status"`
}

// Bug returns the follow-up as an unsaved Bug record.
func (f *FollowUpBug) Bug() *types.Bug {
	return &types.Bug{
		ProjectID:         f.ProjectID,
		Title:             f.Title,
		StepsToReproduce:  f.StepsToReproduce,
		ExpectedResult:    f.ExpectedResult,
		Severity:          f.Severity,
		Status:            f.Status,
		LinkedTestCaseIDs: []string{f.LinkedTestCaseID},
	}
}

// TransitionTestCase moves tc to status to. On Fail it returns the follow-up
// bug draft, otherwise nil.
func TransitionTestCase(tc *types.TestCase, to types.TestCaseStatus) (*FollowUpBug, error) {
	const op = "change test case status"
	if !to.Valid() {
		return nil, types.Invalid(op, "unknown status "+string(to), "status")
	}
	if tc.Status == types.TestCaseDraft && to != types.TestCaseDraft {
		if missing := tc.MissingRequired(); len(missing) > 0 {
			return nil, types.Invalid(op, "required fields missing to leave Draft", missing...)
		}
	}
	tc.Status = to
	if to != types.TestCaseFail {
		return nil, nil
	}
	return &FollowUpBug{
		ProjectID:        tc.ProjectID,
		LinkedTestCaseID: tc.ID,
		Title:            "Failed: " + tc.Title,
		StepsToReproduce: tc.Steps,
		ExpectedResult:   tc.ExpectedResult,
		Severity:         types.SeverityMedium,
		Status:           types.BugDraft,
	}, nil
}

// TransitionBug moves bug to status to.
func TransitionBug(bug *types.Bug, to types.BugStatus) error {
	const op = "change bug status"
	if !to.Valid() {
		return types.Invalid(op, "unknown status "+string(to), "status")
	}
	if bug.Status == types.BugDraft && to != types.BugDraft {
		if missing := bug.MissingRequired(); len(missing) > 0 {
			return types.Invalid(op, "required fields missing to leave Draft", missing...)
		}
	}
	bug.Status = to
	return nil
}

// TransitionTask moves task to status to. Tasks have no Draft state.
func TransitionTask(task *types.Task, to types.TaskStatus) error {
	if !to.Valid() {
		return types.Invalid("change task status", "unknown status "+string(to), "status")
	}
	task.Status = to
	return nil
}

// CheckTestCase validates a test case as stored: a known status, and the
// required fields whenever it is outside Draft.
func CheckTestCase(tc *types.TestCase) error {
	const op = "validate test case"
	if !tc.Status.Valid() {
		return types.Invalid(op, "unknown status "+string(tc.Status), "status")
	}
	if tc.Priority != "" && !tc.Priority.Valid() {
		return types.Invalid(op, "unknown priority "+string(tc.Priority), "priority")
	}
	if tc.Status != types.TestCaseDraft {
		if missing := tc.MissingRequired(); len(missing) > 0 {
			return types.Invalid(op, "required fields missing outside Draft", missing...)
		}
	}
	return nil
}

// CheckBug validates a bug as stored.
func CheckBug(bug *types.Bug) error {
	const op = "validate bug"
	if !bug.Status.Valid() {
		return types.Invalid(op, "unknown status "+string(bug.Status), "status")
	}
	if bug.Severity != "" && !bug.Severity.Valid() {
		return types.Invalid(op, "unknown severity "+string(bug.Severity), "severity")
	}
	if bug.Status != types.BugDraft {
		if missing := bug.MissingRequired(); len(missing) > 0 {
			return types.Invalid(op, "required fields missing outside Draft", missing...)
		}
	}
	return nil
}

// CheckTask validates a task as stored.
func CheckTask(task *types.Task) error {
	const op = "validate task"
	if !task.Status.Valid() {
		return types.Invalid(op, "unknown status "+string(task.Status), "status")
	}
	if task.Priority != "" && !task.Priority.Valid() {
		return types.Invalid(op, "unknown priority "+string(task.Priority), "priority")
	}
	if task.Title == "" {
		return types.Invalid(op, "title is required", "title")
	}
	return nil
}
