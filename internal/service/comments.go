package service

import (
	"context"
	"fmt"

	"github.com/mesh-intelligence/qadesk/internal/comments"
	"github.com/mesh-intelligence/qadesk/pkg/types"
)

// NewComment is the input of PostComment.
type NewComment struct {
	SubjectType types.SubjectType `json:"subjectType" validate:"required,oneof=Bug Task"`
	SubjectID   string            `json:"subjectId" validate:"required"`
	Content     string            `json:"content" validate:"required"`
	ParentID    string            `json:"parentId"`
}

// subjectCap is the capability needed to read or write a subject's thread.
func subjectCap(op string, st types.SubjectType) (types.Capability, error) {
	switch st {
	case types.SubjectBug:
		return types.CapViewBugs, nil
	case types.SubjectTask:
		return types.CapViewTasks, nil
	}
	return "", types.Invalid(op, "subject must be a Bug or a Task", "subjectType")
}

// member rejects actors outside the project.
func (sc *scope) member(op string) error {
	if sc.role == types.RoleNone {
		return types.Forbidden(op, "not a member of project "+sc.project.ID)
	}
	return nil
}

// PostComment adds a comment or reply to a bug or task thread.
func (s *Service) PostComment(ctx context.Context, actor types.Actor, projectID string, in NewComment) (*types.Comment, error) {
	const op = "post comment"
	var out *types.Comment
	err := s.update(ctx, op, actor, projectID, func(tx types.Tx, sc *scope) error {
		c, err := subjectCap(op, in.SubjectType)
		if err != nil {
			return err
		}
		if err := sc.require(c, op); err != nil {
			return err
		}
		out, err = comments.Post(tx, actor, comments.PostInput{
			ProjectID:   projectID,
			SubjectType: in.SubjectType,
			SubjectID:   in.SubjectID,
			Content:     in.Content,
			ParentID:    in.ParentID,
		})
		if err != nil {
			return err
		}

		title := ""
		if in.SubjectType == types.SubjectBug {
			bug, err := tx.Bugs().Get(in.SubjectID)
			if err != nil {
				return err
			}
			title = bug.Title
		}
		return s.emit(tx, sc, types.EventCommentAdded, in.SubjectType, in.SubjectID, title,
			fmt.Sprintf("%s commented on %s", actorName(actor), title))
	})
	return out, err
}

// ResolveComment marks a comment resolved. Only the author may resolve.
func (s *Service) ResolveComment(ctx context.Context, actor types.Actor, projectID, commentID string) (*types.Comment, error) {
	const op = "resolve comment"
	var out *types.Comment
	err := s.update(ctx, op, actor, projectID, func(tx types.Tx, sc *scope) error {
		if err := sc.member(op); err != nil {
			return err
		}
		var err error
		out, err = comments.Resolve(tx, actor, projectID, commentID)
		return err
	})
	return out, err
}

// EditComment replaces a comment's content. Only the author may edit.
func (s *Service) EditComment(ctx context.Context, actor types.Actor, projectID, commentID, content string) (*types.Comment, error) {
	const op = "edit comment"
	var out *types.Comment
	err := s.update(ctx, op, actor, projectID, func(tx types.Tx, sc *scope) error {
		if err := sc.member(op); err != nil {
			return err
		}
		var err error
		out, err = comments.Edit(tx, actor, projectID, commentID, content)
		return err
	})
	return out, err
}

// DeleteComment removes a comment and its replies. The author or a QA
// member may delete.
func (s *Service) DeleteComment(ctx context.Context, actor types.Actor, projectID, commentID string) error {
	const op = "delete comment"
	return s.update(ctx, op, actor, projectID, func(tx types.Tx, sc *scope) error {
		if err := sc.member(op); err != nil {
			return err
		}
		return comments.Delete(tx, actor, sc.role, projectID, commentID)
	})
}

// Thread returns the comments on a subject. Resolved comments are included
// only when history is set.
func (s *Service) Thread(ctx context.Context, actor types.Actor, projectID string, subjectType types.SubjectType, subjectID string, history bool) ([]comments.Entry, error) {
	const op = "view thread"
	var out []comments.Entry
	err := s.view(ctx, op, actor, projectID, func(tx types.Tx, sc *scope) error {
		c, err := subjectCap(op, subjectType)
		if err != nil {
			return err
		}
		if err := sc.require(c, op); err != nil {
			return err
		}
		out, err = comments.View(tx, projectID, subjectType, subjectID, history)
		return err
	})
	return out, err
}
