package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/qadesk/internal/access"
	"github.com/mesh-intelligence/qadesk/internal/workflow"
	"github.com/mesh-intelligence/qadesk/pkg/types"
)

// NewBug is the input of CreateBug. Empty Severity and Status default to
// Medium and Draft. LinkedTestCaseID links the new bug to a test case in the
// same transaction.
type NewBug struct {
	Title            string          `json:"title"`
	Description      string          `json:"description"`
	StepsToReproduce string          `json:"stepsToReproduce"`
	TestData         string          `json:"testData"`
	ExpectedResult   string          `json:"expectedResult"`
	ActualResult     string          `json:"actualResult"`
	Severity         types.Severity  `json:"severity" validate:"omitempty,oneof=Low Medium High Critical"`
	Status           types.BugStatus `json:"status" validate:"omitempty,oneof=Draft Opened Fixed Closed"`
	Tags             []string        `json:"tags"`
	Attachments      []string        `json:"attachments" validate:"omitempty,dive,url"`
	LinkedTestCaseID string          `json:"linkedTestCaseId"`
}

// NewBugFromFollowUp turns a failed test case's follow-up draft into a
// CreateBug input.
func NewBugFromFollowUp(f *workflow.FollowUpBug) NewBug {
	return NewBug{
		Title:            f.Title,
		StepsToReproduce: f.StepsToReproduce,
		ExpectedResult:   f.ExpectedResult,
		Severity:         f.Severity,
		Status:           f.Status,
		LinkedTestCaseID: f.LinkedTestCaseID,
	}
}

// BugPatch changes bug fields. Status needs EditBugStatus; every other field
// needs EditBugs.
type BugPatch struct {
	Title            *string          `json:"title,omitempty"`
	Description      *string          `json:"description,omitempty"`
	StepsToReproduce *string          `json:"stepsToReproduce,omitempty"`
	TestData         *string          `json:"testData,omitempty"`
	ExpectedResult   *string          `json:"expectedResult,omitempty"`
	ActualResult     *string          `json:"actualResult,omitempty"`
	Severity         *types.Severity  `json:"severity,omitempty"`
	Status           *types.BugStatus `json:"status,omitempty"`
	Tags             *[]string        `json:"tags,omitempty"`
	Attachments      *[]string        `json:"attachments,omitempty"`
	ExpectedVersion  int64            `json:"expectedVersion,omitempty"`
}

// editsContent reports whether the patch touches anything besides status.
func (p BugPatch) editsContent() bool {
	return p.Title != nil || p.Description != nil || p.StepsToReproduce != nil ||
		p.TestData != nil || p.ExpectedResult != nil || p.ActualResult != nil ||
		p.Severity != nil || p.Tags != nil || p.Attachments != nil
}

// CreateBug files a bug with the next BUG-n friendly id and notifies the
// other project members.
func (s *Service) CreateBug(ctx context.Context, actor types.Actor, projectID string, in NewBug) (*types.Bug, error) {
	const op = "create bug"
	bug := &types.Bug{
		ProjectID:         projectID,
		Title:             in.Title,
		Description:       in.Description,
		StepsToReproduce:  in.StepsToReproduce,
		TestData:          in.TestData,
		ExpectedResult:    in.ExpectedResult,
		ActualResult:      in.ActualResult,
		Severity:          in.Severity,
		Status:            in.Status,
		Tags:              types.NormalizeTags(in.Tags),
		Attachments:       nonNil(in.Attachments),
		LinkedTestCaseIDs: []string{},
		LinkedTaskIDs:     []string{},
		CreatedBy:         actor.ID,
	}
	if bug.Severity == "" {
		bug.Severity = types.SeverityMedium
	}
	if bug.Status == "" {
		bug.Status = types.BugDraft
	}

	err := s.update(ctx, op, actor, projectID, func(tx types.Tx, sc *scope) error {
		if err := sc.require(types.CapCreateBugs, op); err != nil {
			return err
		}
		if err := workflow.CheckBug(bug); err != nil {
			return err
		}
		if in.LinkedTestCaseID != "" {
			if _, err := inProject(tx.TestCases(), types.KindTestCase, projectID, in.LinkedTestCaseID); err != nil {
				if errors.Is(err, types.ErrNotFound) {
					return types.Invalid(op, "test case "+in.LinkedTestCaseID+" does not exist", "linkedTestCaseId")
				}
				return err
			}
		}

		n, err := tx.NextSequence(projectID, types.KindBug)
		if err != nil {
			return err
		}
		bug.FriendlyID = fmt.Sprintf("BUG-%d", n)
		if err := tx.Bugs().Put(bug); err != nil {
			return err
		}
		if in.LinkedTestCaseID != "" {
			if _, _, err := s.links.LinkTestCaseBug(tx, projectID, in.LinkedTestCaseID, bug.ID); err != nil {
				return err
			}
			if bug, err = tx.Bugs().Get(bug.ID); err != nil {
				return err
			}
		}
		return s.emit(tx, sc, types.EventBugCreated, types.SubjectBug, bug.ID, bug.Title,
			fmt.Sprintf("%s reported %s: %s", actorName(actor), bug.FriendlyID, bug.Title))
	})
	if err != nil {
		return nil, err
	}
	return bug, nil
}

// GetBug returns one bug.
func (s *Service) GetBug(ctx context.Context, actor types.Actor, projectID, id string) (*types.Bug, error) {
	var out *types.Bug
	err := s.view(ctx, "get bug", actor, projectID, func(tx types.Tx, sc *scope) error {
		if err := sc.require(types.CapViewBugs, "get bug"); err != nil {
			return err
		}
		var err error
		out, err = inProject(tx.Bugs(), types.KindBug, projectID, id)
		return err
	})
	return out, err
}

// ListBugs returns the project's bugs in creation order.
func (s *Service) ListBugs(ctx context.Context, actor types.Actor, projectID string) ([]*types.Bug, error) {
	var out []*types.Bug
	err := s.view(ctx, "list bugs", actor, projectID, func(tx types.Tx, sc *scope) error {
		if err := sc.require(types.CapViewBugs, "list bugs"); err != nil {
			return err
		}
		var err error
		out, err = tx.Bugs().Fetch(types.Filter{ProjectID: projectID})
		return err
	})
	return out, err
}

// UpdateBug applies patch. A status change notifies the bug's creator and
// commenters.
func (s *Service) UpdateBug(ctx context.Context, actor types.Actor, projectID, id string, patch BugPatch) (*types.Bug, error) {
	const op = "update bug"
	var out *types.Bug
	err := s.update(ctx, op, actor, projectID, func(tx types.Tx, sc *scope) error {
		if patch.editsContent() {
			if err := sc.require(types.CapEditBugs, op); err != nil {
				return err
			}
		}
		if patch.Status != nil {
			if err := sc.require(types.CapEditBugStatus, op); err != nil {
				return err
			}
		}
		if !patch.editsContent() && patch.Status == nil {
			if err := access.RequireAny(sc.caps, op, types.CapEditBugs, types.CapEditBugStatus); err != nil {
				return err
			}
		}

		bug, err := inProject(tx.Bugs(), types.KindBug, projectID, id)
		if err != nil {
			return err
		}
		if err := checkVersion(op, patch.ExpectedVersion, &bug.Meta); err != nil {
			return err
		}

		if patch.Title != nil {
			bug.Title = *patch.Title
		}
		if patch.Description != nil {
			bug.Description = *patch.Description
		}
		if patch.StepsToReproduce != nil {
			bug.StepsToReproduce = *patch.StepsToReproduce
		}
		if patch.TestData != nil {
			bug.TestData = *patch.TestData
		}
		if patch.ExpectedResult != nil {
			bug.ExpectedResult = *patch.ExpectedResult
		}
		if patch.ActualResult != nil {
			bug.ActualResult = *patch.ActualResult
		}
		if patch.Severity != nil {
			bug.Severity = *patch.Severity
		}
		if patch.Tags != nil {
			bug.Tags = types.NormalizeTags(*patch.Tags)
		}
		if patch.Attachments != nil {
			bug.Attachments = nonNil(*patch.Attachments)
		}

		from := bug.Status
		if patch.Status != nil {
			if err := workflow.TransitionBug(bug, *patch.Status); err != nil {
				return err
			}
		}
		if err := workflow.CheckBug(bug); err != nil {
			return err
		}
		if err := tx.Bugs().Put(bug); err != nil {
			return err
		}
		out = bug

		if bug.Status == from {
			return nil
		}
		return s.emit(tx, sc, types.EventBugStatusChanged, types.SubjectBug, bug.ID, bug.Title,
			fmt.Sprintf("%s moved %s from %s to %s", actorName(actor), bug.FriendlyID, from, bug.Status))
	})
	return out, err
}

// ChangeBugStatus moves a bug to status to. It needs EditBugStatus only.
func (s *Service) ChangeBugStatus(ctx context.Context, actor types.Actor, projectID, id string, to types.BugStatus) (*types.Bug, error) {
	return s.UpdateBug(ctx, actor, projectID, id, BugPatch{Status: &to})
}

// DeleteBug removes a bug, its comments and every reference to it.
func (s *Service) DeleteBug(ctx context.Context, actor types.Actor, projectID, id string) error {
	const op = "delete bug"
	return s.update(ctx, op, actor, projectID, func(tx types.Tx, sc *scope) error {
		if err := sc.require(types.CapEditBugs, op); err != nil {
			return err
		}
		return s.links.DeleteBug(tx, projectID, id)
	})
}

func actorName(a types.Actor) string {
	if a.Name != "" {
		return a.Name
	}
	return a.ID
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
