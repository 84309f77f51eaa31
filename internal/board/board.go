// Package board projects a project's tasks onto its status columns.
//
// Tasks are grouped into a standalone lane and one swimlane per parent task.
// Each lane is split into the project's configured columns by status. Tasks
// whose status has no column are collected in Unmapped rather than dropped.
package board

import (
	"strings"

	"github.com/mesh-intelligence/qadesk/internal/links"
	"github.com/mesh-intelligence/qadesk/internal/workflow"
	"github.com/mesh-intelligence/qadesk/pkg/types"
)

// ScopeStandalone is the lane key of tasks with no parent and no children.
const ScopeStandalone = "standalone"

// Column is one status column within a lane.
type Column struct {
	ID     string           `json:"id"`
	Title  string           `json:"title"`
	Status types.TaskStatus `json:"status"`
	// DropKey is the move target for this cell.
	DropKey string        `json:"dropKey"`
	Tasks   []*types.Task `json:"tasks"`
}

// Lane is a row of the board.
type Lane struct {
	Key string `json:"key"`
	// Parent is nil for the standalone lane.
	Parent  *types.Task `json:"parent,omitempty"`
	Columns []Column    `json:"columns"`
}

// Board is the projection of a task set.
type Board struct {
	Standalone Lane          `json:"standalone"`
	Swimlanes  []Lane        `json:"swimlanes"`
	Unmapped   []*types.Task `json:"unmapped"`
}

// Build partitions tasks onto columns. Tasks are taken in the order given;
// swimlanes follow the order of their parent tasks. A subtask whose parent is
// not in tasks is placed in the standalone lane.
func Build(tasks []*types.Task, columns []types.BoardColumn) *Board {
	kin := links.Classify(tasks)

	children := make(map[string][]*types.Task)
	for _, t := range tasks {
		if kin[t.ID] == links.Subtask {
			children[t.ParentID] = append(children[t.ParentID], t)
		}
	}

	b := &Board{
		Standalone: newLane(ScopeStandalone, nil, columns),
		Swimlanes:  []Lane{},
		Unmapped:   []*types.Task{},
	}
	for _, t := range tasks {
		if kin[t.ID] == links.Standalone {
			b.place(&b.Standalone, t)
		}
	}
	for _, t := range tasks {
		kids, ok := children[t.ID]
		if !ok {
			continue
		}
		lane := newLane(t.ID, t, columns)
		for _, c := range kids {
			b.place(&lane, c)
		}
		b.Swimlanes = append(b.Swimlanes, lane)
	}
	return b
}

func newLane(key string, parent *types.Task, columns []types.BoardColumn) Lane {
	lane := Lane{Key: key, Parent: parent, Columns: make([]Column, len(columns))}
	for i, c := range columns {
		lane.Columns[i] = Column{
			ID:      c.ID,
			Title:   c.Title,
			Status:  c.Status,
			DropKey: DropKey(key, c.Status),
			Tasks:   []*types.Task{},
		}
	}
	return lane
}

// place buckets t into the lane column matching its status, or Unmapped.
func (b *Board) place(lane *Lane, t *types.Task) {
	for i := range lane.Columns {
		if lane.Columns[i].Status == t.Status {
			lane.Columns[i].Tasks = append(lane.Columns[i].Tasks, t)
			return
		}
	}
	b.Unmapped = append(b.Unmapped, t)
}

// Count returns the number of task cards on the board, Unmapped included.
func (b *Board) Count() int {
	n := len(b.Unmapped)
	for _, lane := range append([]Lane{b.Standalone}, b.Swimlanes...) {
		for _, c := range lane.Columns {
			n += len(c.Tasks)
		}
	}
	return n
}

// HasLane reports whether scope names a lane of the board: the standalone
// lane or the swimlane of a parent task.
func (b *Board) HasLane(scope string) bool {
	if scope == ScopeStandalone {
		return true
	}
	for _, l := range b.Swimlanes {
		if l.Key == scope {
			return true
		}
	}
	return false
}

// CheckDrop rejects a drop whose scope is not a lane of b.
func (b *Board) CheckDrop(d Drop) error {
	if !b.HasLane(d.Scope) {
		return types.Invalid("move task", "no lane "+d.Scope+" on the board", "target")
	}
	return nil
}

// Drop is a parsed move target.
type Drop struct {
	Scope  string
	Status types.TaskStatus
}

// DropKey encodes a move target as "{scope}:{status}".
func DropKey(scope string, status types.TaskStatus) string {
	return scope + ":" + string(status)
}

// ParseDrop decodes a move target. The status must belong to one of the
// configured columns.
func ParseDrop(key string, columns []types.BoardColumn) (Drop, error) {
	const op = "move task"
	i := strings.LastIndex(key, ":")
	if i <= 0 || i == len(key)-1 {
		return Drop{}, types.Invalid(op, "drop target must be {scope}:{status}", "target")
	}
	d := Drop{Scope: key[:i], Status: types.TaskStatus(key[i+1:])}
	for _, c := range columns {
		if c.Status == d.Status {
			return d, nil
		}
	}
	return Drop{}, types.Invalid(op, "status "+string(d.Status)+" is not a board column", "target")
}

// Move applies a drop to task. Only the status changes; the task keeps its
// parent whichever lane it was dropped in.
func Move(task *types.Task, d Drop) error {
	return workflow.TransitionTask(task, d.Status)
}
