package types

// TaskStatus is the board state of a task.
type TaskStatus string

// Task states. Tasks have no Draft state.
const (
	TaskBacklog    TaskStatus = "Backlog"
	TaskToDo       TaskStatus = "ToDo"
	TaskInProgress TaskStatus = "InProgress"
	TaskDone       TaskStatus = "Done"
	TaskArchived   TaskStatus = "Archived"
)

// Valid reports whether s is a known task state.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskBacklog, TaskToDo, TaskInProgress, TaskDone, TaskArchived:
		return true
	}
	return false
}

// TargetType names the kind of record a task link points at.
type TargetType string

// Task link target types.
const (
	TargetTask     TargetType = "Task"
	TargetBug      TargetType = "Bug"
	TargetTestCase TargetType = "TestCase"
)

// Valid reports whether t is a known target type.
func (t TargetType) Valid() bool {
	return t == TargetTask || t == TargetBug || t == TargetTestCase
}

// TaskLink is a directional reference from a task to another record.
type TaskLink struct {
	TargetType TargetType `json:"targetType"`
	TargetID   string     `json:"targetId"`
}

// Task is a unit of work, optionally nested under a parent task.
type Task struct {
	Meta
	ProjectID      string     `json:"projectId"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Status         TaskStatus `json:"status"`
	Priority       Priority   `json:"priority"`
	Tags           []string   `json:"tags"`
	AdditionalInfo string     `json:"additionalInfo,omitempty"`
	Attachments    []string   `json:"attachments"`
	ParentID       string     `json:"parentId,omitempty"`
	AssignedTo     string     `json:"assignedTo,omitempty"`
	Reporter       string     `json:"reporter,omitempty"`
	Links          []TaskLink `json:"links"`
	CreatedBy      string     `json:"createdBy"`
}

// Scope returns the owning project ID.
func (t *Task) Scope() string { return t.ProjectID }

// IndexKey returns the parent task ID so subtasks can be listed directly.
func (t *Task) IndexKey() string { return t.ParentID }

// LinkIndex returns the position of the (targetType, targetID) link, or -1.
func (t *Task) LinkIndex(targetType TargetType, targetID string) int {
	for i, l := range t.Links {
		if l.TargetType == targetType && l.TargetID == targetID {
			return i
		}
	}
	return -1
}

// HasLink reports whether the task links to (targetType, targetID).
func (t *Task) HasLink(targetType TargetType, targetID string) bool {
	return t.LinkIndex(targetType, targetID) >= 0
}

// AddLink appends a link. Returns false, without appending, when the pair
// is already present.
func (t *Task) AddLink(targetType TargetType, targetID string) bool {
	if t.HasLink(targetType, targetID) {
		return false
	}
	t.Links = append(t.Links, TaskLink{TargetType: targetType, TargetID: targetID})
	return true
}

// RemoveLinkAt removes the link at index i and returns it.
func (t *Task) RemoveLinkAt(i int) (TaskLink, bool) {
	if i < 0 || i >= len(t.Links) {
		return TaskLink{}, false
	}
	l := t.Links[i]
	t.Links = append(t.Links[:i], t.Links[i+1:]...)
	return l, true
}

// RemoveLinksTo removes every link pointing at targetID, whatever its type,
// and returns how many were removed.
func (t *Task) RemoveLinksTo(targetID string) int {
	out := t.Links[:0]
	n := 0
	for _, l := range t.Links {
		if l.TargetID == targetID {
			n++
			continue
		}
		out = append(out, l)
	}
	if len(out) == 0 {
		out = []TaskLink{}
	}
	t.Links = out
	return n
}
