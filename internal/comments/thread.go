// Package comments manages one-level comment threads on bugs and tasks.
package comments

import (
	"errors"
	"strings"

	"github.com/mesh-intelligence/qadesk/internal/access"
	"github.com/mesh-intelligence/qadesk/pkg/types"
)

// PostInput describes a new comment. ParentID is empty for a top-level
// comment.
type PostInput struct {
	ProjectID   string
	SubjectType types.SubjectType
	SubjectID   string
	Content     string
	ParentID    string
}

// Post creates a comment by actor. The subject must exist in the project. A
// reply must point at a top-level comment on the same subject: a reply to a
// reply is a conflict, a parent on another subject or a missing parent is a
// validation error.
func Post(tx types.Tx, actor types.Actor, in PostInput) (*types.Comment, error) {
	const op = "post comment"
	if !in.SubjectType.Valid() {
		return nil, types.Invalid(op, "subject must be a Bug or a Task", "subjectType")
	}
	if strings.TrimSpace(in.Content) == "" {
		return nil, types.Invalid(op, "content is required", "content")
	}
	if err := checkSubject(tx, in.ProjectID, in.SubjectType, in.SubjectID); err != nil {
		return nil, err
	}

	if in.ParentID != "" {
		parent, err := tx.Comments().Get(in.ParentID)
		if err != nil {
			if errors.Is(err, types.ErrNotFound) {
				return nil, types.Invalid(op, "parent comment "+in.ParentID+" does not exist", "parentId")
			}
			return nil, err
		}
		if parent.SubjectType != in.SubjectType || parent.SubjectID != in.SubjectID {
			return nil, types.Invalid(op, "parent comment is on a different subject", "parentId")
		}
		if !parent.IsTopLevel() {
			return nil, types.Conflict(op, "replies are one level deep; reply to the top-level comment instead")
		}
	}

	c := &types.Comment{
		ProjectID:   in.ProjectID,
		SubjectType: in.SubjectType,
		SubjectID:   in.SubjectID,
		UserID:      actor.ID,
		UserName:    actor.Name,
		Content:     in.Content,
		ParentID:    in.ParentID,
	}
	if err := tx.Comments().Put(c); err != nil {
		return nil, err
	}
	return c, nil
}

// checkSubject confirms the bug or task exists in projectID.
func checkSubject(tx types.Tx, projectID string, subjectType types.SubjectType, subjectID string) error {
	var scope string
	switch subjectType {
	case types.SubjectBug:
		bug, err := tx.Bugs().Get(subjectID)
		if err != nil {
			return err
		}
		scope = bug.ProjectID
	case types.SubjectTask:
		task, err := tx.Tasks().Get(subjectID)
		if err != nil {
			return err
		}
		scope = task.ProjectID
	}
	if scope != projectID {
		return types.NotFound(strings.ToLower(string(subjectType)), subjectID)
	}
	return nil
}

// get loads a comment and checks it belongs to projectID.
func get(tx types.Tx, projectID, commentID string) (*types.Comment, error) {
	c, err := tx.Comments().Get(commentID)
	if err != nil {
		return nil, err
	}
	if c.ProjectID != projectID {
		return nil, types.NotFound(types.KindComment, commentID)
	}
	return c, nil
}

// Resolve marks a comment resolved. Only its author may resolve it.
// Resolving twice is not an error.
func Resolve(tx types.Tx, actor types.Actor, projectID, commentID string) (*types.Comment, error) {
	c, err := get(tx, projectID, commentID)
	if err != nil {
		return nil, err
	}
	if c.UserID != actor.ID {
		return nil, types.Forbidden("resolve comment", "only the author can resolve a comment")
	}
	if c.Resolved {
		return c, nil
	}
	c.Resolve()
	if err := tx.Comments().Put(c); err != nil {
		return nil, err
	}
	return c, nil
}

// Edit replaces a comment's content. Only its author may edit it.
func Edit(tx types.Tx, actor types.Actor, projectID, commentID, content string) (*types.Comment, error) {
	const op = "edit comment"
	c, err := get(tx, projectID, commentID)
	if err != nil {
		return nil, err
	}
	if c.UserID != actor.ID {
		return nil, types.Forbidden(op, "only the author can edit a comment")
	}
	if strings.TrimSpace(content) == "" {
		return nil, types.Invalid(op, "content is required", "content")
	}
	c.Content = content
	if err := tx.Comments().Put(c); err != nil {
		return nil, err
	}
	return c, nil
}

// Delete removes a comment and, for a top-level comment, its replies. The
// author or a QA member may delete.
func Delete(tx types.Tx, actor types.Actor, role types.Role, projectID, commentID string) error {
	c, err := get(tx, projectID, commentID)
	if err != nil {
		return err
	}
	if !access.IsOwnerOrQA(role, actor.ID, c.UserID) {
		return types.Forbidden("delete comment", "only the author or a QA member can delete a comment")
	}
	if c.IsTopLevel() {
		siblings, err := tx.Comments().Fetch(types.Filter{ProjectID: projectID, IndexKey: c.SubjectID})
		if err != nil {
			return err
		}
		for _, r := range siblings {
			if r.ParentID == c.ID {
				if err := tx.Comments().Delete(r.ID); err != nil {
					return err
				}
			}
		}
	}
	return tx.Comments().Delete(c.ID)
}

// Entry is one top-level comment with its replies.
type Entry struct {
	Comment *types.Comment   `json:"comment"`
	Replies []*types.Comment `json:"replies"`
}

// View returns the thread on a subject: top-level comments in arrival
// order, each with its replies in arrival order. Resolved comments are left
// out unless history is set; the replies of a hidden top-level comment are
// hidden with it.
func View(tx types.Tx, projectID string, subjectType types.SubjectType, subjectID string, history bool) ([]Entry, error) {
	all, err := tx.Comments().Fetch(types.Filter{ProjectID: projectID, IndexKey: subjectID})
	if err != nil {
		return nil, err
	}
	return Thread(all, subjectType, subjectID, history), nil
}

// Thread groups comments into entries. Comments on other subjects are
// ignored, as are replies whose parent is not a visible top-level comment.
func Thread(all []*types.Comment, subjectType types.SubjectType, subjectID string, history bool) []Entry {
	entries := []Entry{}
	index := make(map[string]int)
	for _, c := range all {
		if c.SubjectType != subjectType || c.SubjectID != subjectID || !c.IsTopLevel() {
			continue
		}
		if c.Resolved && !history {
			continue
		}
		index[c.ID] = len(entries)
		entries = append(entries, Entry{Comment: c, Replies: []*types.Comment{}})
	}
	for _, c := range all {
		if c.SubjectType != subjectType || c.SubjectID != subjectID || c.IsTopLevel() {
			continue
		}
		if c.Resolved && !history {
			continue
		}
		i, ok := index[c.ParentID]
		if !ok {
			continue
		}
		entries[i].Replies = append(entries[i].Replies, c)
	}
	return entries
}

// Participants returns the distinct authors on a subject in order of first
// comment.
func Participants(tx types.Tx, projectID, subjectID string) ([]string, error) {
	all, err := tx.Comments().Fetch(types.Filter{ProjectID: projectID, IndexKey: subjectID})
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var out []string
	for _, c := range all {
		if c.UserID == "" || seen[c.UserID] {
			continue
		}
		seen[c.UserID] = true
		out = append(out, c.UserID)
	}
	return out, nil
}
