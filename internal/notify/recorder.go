// Package notify turns core events into Notification records.
package notify

import (
	"github.com/mesh-intelligence/qadesk/internal/comments"
	"github.com/mesh-intelligence/qadesk/pkg/types"
)

// Sink receives events inside the transaction that produced them. An error
// aborts that transaction.
type Sink interface {
	Emit(tx types.Tx, ev types.Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(tx types.Tx, ev types.Event) error

// Emit calls f.
func (f SinkFunc) Emit(tx types.Tx, ev types.Event) error { return f(tx, ev) }

// Discard drops every event.
var Discard Sink = SinkFunc(func(types.Tx, types.Event) error { return nil })

// Recorder writes one Notification per recipient.
//
//   - bug created: every project member except the actor
//   - bug status changed, comment on a bug: the bug's creator and everyone
//     who commented on it before, except the actor
//
// Events about tasks produce nothing.
type Recorder struct{}

var _ Sink = Recorder{}

// Emit records notifications for ev.
func (Recorder) Emit(tx types.Tx, ev types.Event) error {
	if ev.SubjectType != types.SubjectBug {
		return nil
	}

	var recipients []string
	switch ev.Kind {
	case types.EventBugCreated:
		project, err := tx.Projects().Get(ev.ProjectID)
		if err != nil {
			return err
		}
		for _, m := range project.Members {
			recipients = append(recipients, m.MemberID)
		}
	case types.EventBugStatusChanged, types.EventCommentAdded:
		bug, err := tx.Bugs().Get(ev.SubjectID)
		if err != nil {
			return err
		}
		participants, err := comments.Participants(tx, ev.ProjectID, ev.SubjectID)
		if err != nil {
			return err
		}
		recipients = append([]string{bug.CreatedBy}, participants...)
	default:
		return nil
	}

	seen := map[string]bool{ev.ActorID: true, "": true}
	for _, r := range recipients {
		if seen[r] {
			continue
		}
		seen[r] = true
		n := &types.Notification{
			RecipientUserID: r,
			ProjectID:       ev.ProjectID,
			SubjectBugID:    ev.SubjectID,
			SubjectTitle:    ev.SubjectTitle,
			Message:         ev.Message,
		}
		if err := tx.Notifications().Put(n); err != nil {
			return err
		}
	}
	return nil
}

// Inbox returns recipientID's notifications in projectID, oldest first.
// unreadOnly drops those already read.
func Inbox(tx types.Tx, projectID, recipientID string, unreadOnly bool) ([]*types.Notification, error) {
	all, err := tx.Notifications().Fetch(types.Filter{ProjectID: projectID, IndexKey: recipientID})
	if err != nil {
		return nil, err
	}
	if !unreadOnly {
		return all, nil
	}
	out := []*types.Notification{}
	for _, n := range all {
		if !n.Read {
			out = append(out, n)
		}
	}
	return out, nil
}

// MarkRead marks a notification read. Only its recipient may do so.
func MarkRead(tx types.Tx, recipientID, notificationID string) (*types.Notification, error) {
	n, err := tx.Notifications().Get(notificationID)
	if err != nil {
		return nil, err
	}
	if n.RecipientUserID != recipientID {
		return nil, types.Forbidden("mark notification read", "only the recipient can mark a notification read")
	}
	if n.Read {
		return n, nil
	}
	n.Read = true
	if err := tx.Notifications().Put(n); err != nil {
		return nil, err
	}
	return n, nil
}
