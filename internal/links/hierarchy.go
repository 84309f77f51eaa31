package links

import (
	"fmt"
	"strings"

	"github.com/mesh-intelligence/qadesk/pkg/types"
)

// CycleError reports a parent assignment that would make a task its own
// ancestor. Path runs from the proposed parent up to the task.
type CycleError struct {
	TaskID   string
	ParentID string
	Path     []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("set parent: conflict: making %s a subtask of %s creates a cycle: %s",
		e.TaskID, e.ParentID, strings.Join(e.Path, " -> "))
}

func (e *CycleError) Is(target error) bool { return target == types.ErrConflict }

// SetParent assigns parentID as taskID's parent, or clears it when parentID
// is empty. Self-parenting and cycles are conflicts; a chain deeper than
// MaxDepth is a validation error on parentId.
func (m *Manager) SetParent(tx types.Tx, projectID, taskID, parentID string) (*types.Task, error) {
	const op = "set parent"
	task, err := load(tx.Tasks(), op, types.KindTask, projectID, taskID, "")
	if err != nil {
		return nil, err
	}

	if parentID == "" {
		if task.ParentID == "" {
			return task, nil
		}
		task.ParentID = ""
		if err := tx.Tasks().Put(task); err != nil {
			return nil, err
		}
		return task, nil
	}

	if parentID == task.ID {
		return nil, types.Conflict(op, "a task cannot be its own parent")
	}
	parent, err := load(tx.Tasks(), op, types.KindTask, projectID, parentID, "parentId")
	if err != nil {
		return nil, err
	}
	if task.ParentID == parent.ID {
		return task, nil
	}

	all, err := tx.Tasks().Fetch(types.Filter{ProjectID: projectID})
	if err != nil {
		return nil, err
	}
	h := newHierarchy(all)

	parentDepth, path, err := h.ancestry(parent.ID, task.ID)
	if err != nil {
		return nil, err
	}
	if path != nil {
		return nil, &CycleError{TaskID: task.ID, ParentID: parent.ID, Path: path}
	}
	if m.MaxDepth > 0 {
		depth := parentDepth + 1 + h.height(task.ID)
		if depth > m.MaxDepth {
			return nil, types.Invalid(op,
				fmt.Sprintf("nesting depth %d exceeds the limit of %d", depth, m.MaxDepth), "parentId")
		}
	}

	task.ParentID = parent.ID
	if err := tx.Tasks().Put(task); err != nil {
		return nil, err
	}
	return task, nil
}

// hierarchy is a parent/child index over one project's tasks.
type hierarchy struct {
	parent   map[string]string
	children map[string][]string
}

func newHierarchy(tasks []*types.Task) *hierarchy {
	h := &hierarchy{
		parent:   make(map[string]string, len(tasks)),
		children: make(map[string][]string),
	}
	for _, t := range tasks {
		h.parent[t.ID] = t.ParentID
		if t.ParentID != "" {
			h.children[t.ParentID] = append(h.children[t.ParentID], t.ID)
		}
	}
	return h
}

// ancestry walks up from start. It returns start's depth (0 for a root) and,
// when avoid is met on the way, the path from start to avoid. The walk is
// bounded by the number of tasks, so a corrupt stored cycle is reported
// instead of looping.
func (h *hierarchy) ancestry(start, avoid string) (int, []string, error) {
	path := []string{start}
	depth := 0
	cur := start
	for steps := 0; ; steps++ {
		if cur == avoid {
			return depth, path, nil
		}
		if steps > len(h.parent) {
			return 0, nil, types.Conflict("set parent", "existing parent chain of "+start+" is cyclic")
		}
		next := h.parent[cur]
		if next == "" {
			return depth, nil, nil
		}
		if _, known := h.parent[next]; !known {
			// Dangling parent: the chain ends here.
			return depth, nil, nil
		}
		depth++
		path = append(path, next)
		cur = next
	}
}

// height returns the longest child chain below id, 0 for a leaf. Uses a
// breadth-first walk bounded by the task count.
func (h *hierarchy) height(id string) int {
	level := []string{id}
	seen := map[string]bool{id: true}
	height := 0
	for len(level) > 0 {
		var next []string
		for _, n := range level {
			for _, c := range h.children[n] {
				if !seen[c] {
					seen[c] = true
					next = append(next, c)
				}
			}
		}
		if len(next) == 0 {
			break
		}
		height++
		level = next
	}
	return height
}

// Kinship classifies a task on the board: Parent when another task points at
// it, Standalone when it has no parent and no children, Subtask otherwise.
type Kinship int

// Task kinship values.
const (
	Standalone Kinship = iota
	Parent
	Subtask
)

// Classify returns the kinship of every task in the set. A task whose parent
// is not in the set is classified Standalone.
func Classify(tasks []*types.Task) map[string]Kinship {
	present := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		present[t.ID] = true
	}
	hasChild := make(map[string]bool)
	for _, t := range tasks {
		if t.ParentID != "" && t.ParentID != t.ID && present[t.ParentID] {
			hasChild[t.ParentID] = true
		}
	}
	out := make(map[string]Kinship, len(tasks))
	for _, t := range tasks {
		switch {
		case t.ParentID != "" && t.ParentID != t.ID && present[t.ParentID]:
			out[t.ID] = Subtask
		case hasChild[t.ID]:
			out[t.ID] = Parent
		default:
			out[t.ID] = Standalone
		}
	}
	return out
}
