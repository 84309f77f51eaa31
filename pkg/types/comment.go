package types

// SubjectType names the kind of record a comment thread hangs off.
type SubjectType string

// Comment subject types.
const (
	SubjectBug  SubjectType = "Bug"
	SubjectTask SubjectType = "Task"
)

// Valid reports whether s is a known subject type.
func (s SubjectType) Valid() bool {
	return s == SubjectBug || s == SubjectTask
}

// Comment is a message on a bug or task. Replies reference a top-level
// comment on the same subject; threads are exactly one level deep.
type Comment struct {
	Meta
	ProjectID   string      `json:"projectId"`
	SubjectType SubjectType `json:"subjectType"`
	SubjectID   string      `json:"subjectId"`
	UserID      string      `json:"userId"`
	UserName    string      `json:"userName"`
	Content     string      `json:"content"`
	ParentID    string      `json:"parentId,omitempty"`
	Resolved    bool        `json:"resolved"`
}

// Scope returns the owning project ID.
func (c *Comment) Scope() string { return c.ProjectID }

// IndexKey returns the subject ID so a thread can be fetched directly.
func (c *Comment) IndexKey() string { return c.SubjectID }

// IsTopLevel reports whether the comment starts a thread.
func (c *Comment) IsTopLevel() bool { return c.ParentID == "" }

// Resolve marks the comment resolved. Idempotent; there is no unresolve.
func (c *Comment) Resolve() { c.Resolved = true }
