package board

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/mesh-intelligence/qadesk/pkg/types"
)

func task(id, parent string, status types.TaskStatus) *types.Task {
	return &types.Task{Meta: types.Meta{ID: id}, Title: id, ParentID: parent, Status: status}
}

func ids(tasks []*types.Task) []string {
	out := []string{}
	for _, t := range tasks {
		out = append(out, t.ID)
	}
	return out
}

func TestBuild(t *testing.T) {
	columns := types.DefaultBoardColumns()
	tasks := []*types.Task{
		task("solo", "", types.TaskToDo),
		task("epic", "", types.TaskInProgress),
		task("sub-1", "epic", types.TaskToDo),
		task("sub-2", "epic", types.TaskDone),
		task("archived", "", types.TaskArchived),
		task("orphan", "deleted", types.TaskBacklog),
		task("sub-3", "epic", types.TaskArchived),
	}

	b := Build(tasks, columns)

	require.Len(t, b.Standalone.Columns, 4)
	assert.Equal(t, ScopeStandalone, b.Standalone.Key)
	assert.Equal(t, []string{"orphan"}, ids(b.Standalone.Columns[0].Tasks))
	assert.Equal(t, []string{"solo"}, ids(b.Standalone.Columns[1].Tasks))
	assert.Empty(t, b.Standalone.Columns[2].Tasks, "parents are lane headers, not standalone cards")
	assert.Equal(t, "standalone:ToDo", b.Standalone.Columns[1].DropKey)

	require.Len(t, b.Swimlanes, 1)
	lane := b.Swimlanes[0]
	assert.Equal(t, "epic", lane.Key)
	assert.Equal(t, "epic", lane.Parent.ID)
	assert.Equal(t, []string{"sub-1"}, ids(lane.Columns[1].Tasks))
	assert.Equal(t, []string{"sub-2"}, ids(lane.Columns[3].Tasks))
	assert.Equal(t, "epic:Done", lane.Columns[3].DropKey)

	assert.Equal(t, []string{"archived", "sub-3"}, ids(b.Unmapped))
}

func TestBuild_EmptyColumns(t *testing.T) {
	b := Build([]*types.Task{task("a", "", types.TaskToDo)}, nil)
	assert.Empty(t, b.Standalone.Columns)
	assert.Equal(t, []string{"a"}, ids(b.Unmapped))
}

// Every task except lane headers lands in exactly one cell or Unmapped.
func TestBuild_PartitionProperty(t *testing.T) {
	statuses := []types.TaskStatus{types.TaskBacklog, types.TaskToDo, types.TaskInProgress, types.TaskDone, types.TaskArchived}

	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(0, 12).Draw(rt, "n")
		tasks := make([]*types.Task, n)
		for i := range tasks {
			parent := ""
			if i > 0 && rapid.Bool().Draw(rt, "hasParent") {
				// Parents are earlier, top-level tasks only.
				p := rapid.IntRange(0, i-1).Draw(rt, "parent")
				if tasks[p].ParentID == "" {
					parent = tasks[p].ID
				}
			}
			status := rapid.SampledFrom(statuses).Draw(rt, "status")
			tasks[i] = task(fmt.Sprintf("t%d", i), parent, status)
		}
		columns := types.DefaultBoardColumns()[:rapid.IntRange(0, 4).Draw(rt, "cols")]

		b := Build(tasks, columns)

		headers := map[string]bool{}
		for _, lane := range b.Swimlanes {
			headers[lane.Parent.ID] = true
		}
		seen := map[string]int{}
		for _, lane := range append([]Lane{b.Standalone}, b.Swimlanes...) {
			for _, c := range lane.Columns {
				for _, tk := range c.Tasks {
					if tk.Status != c.Status {
						rt.Fatalf("task %s (%s) in column %s", tk.ID, tk.Status, c.Status)
					}
					if lane.Parent != nil && tk.ParentID != lane.Parent.ID {
						rt.Fatalf("task %s in lane %s", tk.ID, lane.Key)
					}
					seen[tk.ID]++
				}
			}
		}
		for _, tk := range b.Unmapped {
			seen[tk.ID]++
		}
		for _, tk := range tasks {
			want := 1
			if headers[tk.ID] {
				want = 0
			}
			if seen[tk.ID] != want {
				rt.Fatalf("task %s placed %d times, want %d", tk.ID, seen[tk.ID], want)
			}
		}
		if b.Count() != len(tasks)-len(headers) {
			rt.Fatalf("count %d, want %d", b.Count(), len(tasks)-len(headers))
		}
	})
}

func TestParseDrop(t *testing.T) {
	columns := types.DefaultBoardColumns()

	tests := []struct {
		key     string
		want    Drop
		wantErr bool
	}{
		{key: "standalone:Done", want: Drop{Scope: ScopeStandalone, Status: types.TaskDone}},
		{key: "0190a1b2-parent:InProgress", want: Drop{Scope: "0190a1b2-parent", Status: types.TaskInProgress}},
		{key: "standalone:Archived", wantErr: true},
		{key: "standalone:", wantErr: true},
		{key: ":Done", wantErr: true},
		{key: "Done", wantErr: true},
		{key: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, err := ParseDrop(tt.key, columns)
			if tt.wantErr {
				var vErr *types.ValidationError
				require.ErrorAs(t, err, &vErr)
				assert.True(t, vErr.HasField("target"))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMove_KeepsParent(t *testing.T) {
	sub := task("sub", "epic", types.TaskToDo)

	// Dropped into another lane's column: status changes, parent does not.
	d, err := ParseDrop("standalone:Done", types.DefaultBoardColumns())
	require.NoError(t, err)
	require.NoError(t, Move(sub, d))

	assert.Equal(t, types.TaskDone, sub.Status)
	assert.Equal(t, "epic", sub.ParentID)
}

func TestCheckDrop(t *testing.T) {
	columns := types.DefaultBoardColumns()
	b := Build([]*types.Task{
		task("epic", "", types.TaskToDo),
		task("sub", "epic", types.TaskToDo),
		task("solo", "", types.TaskDone),
	}, columns)

	for _, key := range []string{"standalone:Done", "epic:InProgress"} {
		d, err := ParseDrop(key, columns)
		require.NoError(t, err)
		assert.NoError(t, b.CheckDrop(d), key)
	}

	// Neither a parent nor the standalone lane.
	for _, key := range []string{"garbage:Done", "solo:Done", "sub:Done"} {
		d, err := ParseDrop(key, columns)
		require.NoError(t, err)
		var vErr *types.ValidationError
		require.ErrorAs(t, b.CheckDrop(d), &vErr, key)
		assert.True(t, vErr.HasField("target"))
	}
}
