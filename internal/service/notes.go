package service

import (
	"context"
	"strings"

	"github.com/mesh-intelligence/qadesk/internal/access"
	"github.com/mesh-intelligence/qadesk/pkg/types"
)

// NewNote is the input of CreateNote.
type NewNote struct {
	Title   string `json:"title" validate:"required"`
	Content string `json:"content"`
}

// NotePatch changes note fields. Nil fields are left alone.
type NotePatch struct {
	Title           *string `json:"title,omitempty"`
	Content         *string `json:"content,omitempty"`
	ExpectedVersion int64   `json:"expectedVersion,omitempty"`
}

// CreateNote adds a project note. Any member with ViewNotes may write notes.
func (s *Service) CreateNote(ctx context.Context, actor types.Actor, projectID string, in NewNote) (*types.Note, error) {
	const op = "create note"
	if strings.TrimSpace(in.Title) == "" {
		return nil, types.Invalid(op, "title is required", "title")
	}
	note := &types.Note{ProjectID: projectID, Title: in.Title, Content: in.Content, CreatedBy: actor.ID}
	err := s.update(ctx, op, actor, projectID, func(tx types.Tx, sc *scope) error {
		if err := sc.require(types.CapViewNotes, op); err != nil {
			return err
		}
		return tx.Notes().Put(note)
	})
	if err != nil {
		return nil, err
	}
	return note, nil
}

// ListNotes returns the project's notes in creation order.
func (s *Service) ListNotes(ctx context.Context, actor types.Actor, projectID string) ([]*types.Note, error) {
	var out []*types.Note
	err := s.view(ctx, "list notes", actor, projectID, func(tx types.Tx, sc *scope) error {
		if err := sc.require(types.CapViewNotes, "list notes"); err != nil {
			return err
		}
		var err error
		out, err = tx.Notes().Fetch(types.Filter{ProjectID: projectID})
		return err
	})
	return out, err
}

// UpdateNote changes a note. Only its author or a QA member may.
func (s *Service) UpdateNote(ctx context.Context, actor types.Actor, projectID, id string, patch NotePatch) (*types.Note, error) {
	const op = "update note"
	var out *types.Note
	err := s.update(ctx, op, actor, projectID, func(tx types.Tx, sc *scope) error {
		note, err := s.ownNote(tx, sc, op, projectID, id)
		if err != nil {
			return err
		}
		if err := checkVersion(op, patch.ExpectedVersion, &note.Meta); err != nil {
			return err
		}
		if patch.Title != nil {
			if strings.TrimSpace(*patch.Title) == "" {
				return types.Invalid(op, "title is required", "title")
			}
			note.Title = *patch.Title
		}
		if patch.Content != nil {
			note.Content = *patch.Content
		}
		if err := tx.Notes().Put(note); err != nil {
			return err
		}
		out = note
		return nil
	})
	return out, err
}

// DeleteNote removes a note. Only its author or a QA member may.
func (s *Service) DeleteNote(ctx context.Context, actor types.Actor, projectID, id string) error {
	const op = "delete note"
	return s.update(ctx, op, actor, projectID, func(tx types.Tx, sc *scope) error {
		note, err := s.ownNote(tx, sc, op, projectID, id)
		if err != nil {
			return err
		}
		return tx.Notes().Delete(note.ID)
	})
}

func (s *Service) ownNote(tx types.Tx, sc *scope, op, projectID, id string) (*types.Note, error) {
	if err := sc.require(types.CapViewNotes, op); err != nil {
		return nil, err
	}
	note, err := inProject(tx.Notes(), types.KindNote, projectID, id)
	if err != nil {
		return nil, err
	}
	if !access.IsOwnerOrQA(sc.role, sc.actor.ID, note.CreatedBy) {
		return nil, types.Forbidden(op, "only the author or a QA member can change a note")
	}
	return note, nil
}
