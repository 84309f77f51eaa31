package service

import (
	"context"
	"fmt"

	"github.com/mesh-intelligence/qadesk/internal/workflow"
	"github.com/mesh-intelligence/qadesk/pkg/types"
)

// NewTestCase is the input of CreateTestCase. Empty Priority and Status
// default to Medium and Draft.
type NewTestCase struct {
	Title          string               `json:"title"`
	Description    string               `json:"description"`
	Preconditions  string               `json:"preconditions"`
	Steps          string               `json:"steps"`
	ExpectedResult string               `json:"expectedResult"`
	Priority       types.Priority       `json:"priority" validate:"omitempty,oneof=Low Medium High"`
	Status         types.TestCaseStatus `json:"status" validate:"omitempty,oneof=Draft Todo InProgress Pass Fail"`
	Tags           []string             `json:"tags"`
}

// TestCasePatch changes test case fields. Nil fields are left alone; Status
// goes through the status gate after the other fields are applied.
type TestCasePatch struct {
	Title           *string               `json:"title,omitempty"`
	Description     *string               `json:"description,omitempty"`
	Preconditions   *string               `json:"preconditions,omitempty"`
	Steps           *string               `json:"steps,omitempty"`
	ExpectedResult  *string               `json:"expectedResult,omitempty"`
	Priority        *types.Priority       `json:"priority,omitempty"`
	Status          *types.TestCaseStatus `json:"status,omitempty"`
	Tags            *[]string             `json:"tags,omitempty"`
	ExpectedVersion int64                 `json:"expectedVersion,omitempty"`
}

// CreateTestCase adds a test case with the next TC-n friendly id.
func (s *Service) CreateTestCase(ctx context.Context, actor types.Actor, projectID string, in NewTestCase) (*types.TestCase, error) {
	const op = "create test case"
	tc := &types.TestCase{
		ProjectID:      projectID,
		Title:          in.Title,
		Description:    in.Description,
		Preconditions:  in.Preconditions,
		Steps:          in.Steps,
		ExpectedResult: in.ExpectedResult,
		Priority:       in.Priority,
		Status:         in.Status,
		Tags:           types.NormalizeTags(in.Tags),
		LinkedBugIDs:   []string{},
		CreatedBy:      actor.ID,
	}
	if tc.Priority == "" {
		tc.Priority = types.PriorityMedium
	}
	if tc.Status == "" {
		tc.Status = types.TestCaseDraft
	}

	err := s.update(ctx, op, actor, projectID, func(tx types.Tx, sc *scope) error {
		if err := sc.require(types.CapCreateTestCases, op); err != nil {
			return err
		}
		if err := workflow.CheckTestCase(tc); err != nil {
			return err
		}
		n, err := tx.NextSequence(projectID, types.KindTestCase)
		if err != nil {
			return err
		}
		tc.FriendlyID = fmt.Sprintf("TC-%d", n)
		return tx.TestCases().Put(tc)
	})
	if err != nil {
		return nil, err
	}
	return tc, nil
}

// GetTestCase returns one test case.
func (s *Service) GetTestCase(ctx context.Context, actor types.Actor, projectID, id string) (*types.TestCase, error) {
	var out *types.TestCase
	err := s.view(ctx, "get test case", actor, projectID, func(tx types.Tx, sc *scope) error {
		if err := sc.require(types.CapViewTestCases, "get test case"); err != nil {
			return err
		}
		var err error
		out, err = inProject(tx.TestCases(), types.KindTestCase, projectID, id)
		return err
	})
	return out, err
}

// ListTestCases returns the project's test cases in creation order.
func (s *Service) ListTestCases(ctx context.Context, actor types.Actor, projectID string) ([]*types.TestCase, error) {
	var out []*types.TestCase
	err := s.view(ctx, "list test cases", actor, projectID, func(tx types.Tx, sc *scope) error {
		if err := sc.require(types.CapViewTestCases, "list test cases"); err != nil {
			return err
		}
		var err error
		out, err = tx.TestCases().Fetch(types.Filter{ProjectID: projectID})
		return err
	})
	return out, err
}

// UpdateTestCase applies patch. When the status moves to Fail the returned
// follow-up describes the bug the caller should offer to create; the status
// change is committed either way.
func (s *Service) UpdateTestCase(ctx context.Context, actor types.Actor, projectID, id string, patch TestCasePatch) (*types.TestCase, *workflow.FollowUpBug, error) {
	const op = "update test case"
	var (
		out      *types.TestCase
		followUp *workflow.FollowUpBug
	)
	err := s.update(ctx, op, actor, projectID, func(tx types.Tx, sc *scope) error {
		if err := sc.require(types.CapEditTestCases, op); err != nil {
			return err
		}
		tc, err := inProject(tx.TestCases(), types.KindTestCase, projectID, id)
		if err != nil {
			return err
		}
		if err := checkVersion(op, patch.ExpectedVersion, &tc.Meta); err != nil {
			return err
		}

		if patch.Title != nil {
			tc.Title = *patch.Title
		}
		if patch.Description != nil {
			tc.Description = *patch.Description
		}
		if patch.Preconditions != nil {
			tc.Preconditions = *patch.Preconditions
		}
		if patch.Steps != nil {
			tc.Steps = *patch.Steps
		}
		if patch.ExpectedResult != nil {
			tc.ExpectedResult = *patch.ExpectedResult
		}
		if patch.Priority != nil {
			tc.Priority = *patch.Priority
		}
		if patch.Tags != nil {
			tc.Tags = types.NormalizeTags(*patch.Tags)
		}
		if patch.Status != nil {
			if followUp, err = workflow.TransitionTestCase(tc, *patch.Status); err != nil {
				return err
			}
		}
		if err := workflow.CheckTestCase(tc); err != nil {
			return err
		}
		if err := tx.TestCases().Put(tc); err != nil {
			return err
		}
		out = tc
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return out, followUp, nil
}

// ChangeTestCaseStatus moves a test case to status to.
func (s *Service) ChangeTestCaseStatus(ctx context.Context, actor types.Actor, projectID, id string, to types.TestCaseStatus) (*types.TestCase, *workflow.FollowUpBug, error) {
	return s.UpdateTestCase(ctx, actor, projectID, id, TestCasePatch{Status: &to})
}

// DeleteTestCase removes a test case and every reference to it.
func (s *Service) DeleteTestCase(ctx context.Context, actor types.Actor, projectID, id string) error {
	const op = "delete test case"
	return s.update(ctx, op, actor, projectID, func(tx types.Tx, sc *scope) error {
		if err := sc.require(types.CapEditTestCases, op); err != nil {
			return err
		}
		return s.links.DeleteTestCase(tx, projectID, id)
	})
}
