package types

// Notification is a per-user record produced from a core event about a bug.
type Notification struct {
	Meta
	RecipientUserID string `json:"recipientUserId"`
	ProjectID       string `json:"projectId"`
	SubjectBugID    string `json:"subjectBugId"`
	SubjectTitle    string `json:"subjectTitle"`
	Message         string `json:"message"`
	Read            bool   `json:"read"`
}

// Scope returns the owning project ID.
func (n *Notification) Scope() string { return n.ProjectID }

// IndexKey returns the recipient so an inbox can be fetched directly.
func (n *Notification) IndexKey() string { return n.RecipientUserID }

// EventKind names a logical event emitted by the core.
type EventKind string

// Event kinds.
const (
	EventBugCreated       EventKind = "bug.created"
	EventBugStatusChanged EventKind = "bug.statusChanged"
	EventCommentAdded     EventKind = "comment.added"
)

// Event is a logical change the core reports to the notification layer.
type Event struct {
	Kind         EventKind   `json:"kind"`
	ProjectID    string      `json:"projectId"`
	SubjectType  SubjectType `json:"subjectType"`
	SubjectID    string      `json:"subjectId"`
	SubjectTitle string      `json:"subjectTitle"`
	ActorID      string      `json:"actorId"`
	Message      string      `json:"message"`
}
