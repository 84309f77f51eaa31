package links

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/mesh-intelligence/qadesk/internal/sqlite"
	"github.com/mesh-intelligence/qadesk/pkg/types"
)

func newStore(t *testing.T) *sqlite.Backend {
	t.Helper()
	b := sqlite.NewBackend()
	require.NoError(t, b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}))
	t.Cleanup(func() { b.Detach() })
	return b
}

// fixture holds one project's worth of records created for a test.
type fixture struct {
	project string
	tcs     []*types.TestCase
	bugs    []*types.Bug
	tasks   []*types.Task
}

func seed(t require.TestingT, store types.Store, projectID string, nTC, nBug, nTask int) *fixture {
	f := &fixture{project: projectID}
	err := store.Update(context.Background(), func(tx types.Tx) error {
		for i := 0; i < nTC; i++ {
			tc := &types.TestCase{ProjectID: projectID, Title: fmt.Sprintf("tc %d", i), Status: types.TestCaseDraft}
			if err := tx.TestCases().Put(tc); err != nil {
				return err
			}
			f.tcs = append(f.tcs, tc)
		}
		for i := 0; i < nBug; i++ {
			bug := &types.Bug{ProjectID: projectID, Title: fmt.Sprintf("bug %d", i), Status: types.BugDraft, CreatedBy: "qa-1"}
			if err := tx.Bugs().Put(bug); err != nil {
				return err
			}
			f.bugs = append(f.bugs, bug)
		}
		for i := 0; i < nTask; i++ {
			task := &types.Task{ProjectID: projectID, Title: fmt.Sprintf("task %d", i), Status: types.TaskBacklog}
			if err := tx.Tasks().Put(task); err != nil {
				return err
			}
			f.tasks = append(f.tasks, task)
		}
		return nil
	})
	require.NoError(t, err)
	return f
}

func update(store types.Store, fn func(tx types.Tx) error) error {
	return store.Update(context.Background(), fn)
}

func getTC(t require.TestingT, store types.Store, id string) *types.TestCase {
	var tc *types.TestCase
	require.NoError(t, store.View(context.Background(), func(tx types.Tx) error {
		var err error
		tc, err = tx.TestCases().Get(id)
		return err
	}))
	return tc
}

func getBug(t require.TestingT, store types.Store, id string) *types.Bug {
	var bug *types.Bug
	require.NoError(t, store.View(context.Background(), func(tx types.Tx) error {
		var err error
		bug, err = tx.Bugs().Get(id)
		return err
	}))
	return bug
}

func getTask(t require.TestingT, store types.Store, id string) *types.Task {
	var task *types.Task
	require.NoError(t, store.View(context.Background(), func(tx types.Tx) error {
		var err error
		task, err = tx.Tasks().Get(id)
		return err
	}))
	return task
}

func TestLinkTestCaseBug_SymmetricAndIdempotent(t *testing.T) {
	store := newStore(t)
	f := seed(t, store, "p1", 1, 1, 0)
	m := NewManager(DefaultMaxDepth)
	tcID, bugID := f.tcs[0].ID, f.bugs[0].ID

	for i := 0; i < 2; i++ {
		require.NoError(t, update(store, func(tx types.Tx) error {
			_, _, err := m.LinkTestCaseBug(tx, "p1", tcID, bugID)
			return err
		}))
	}

	tc, bug := getTC(t, store, tcID), getBug(t, store, bugID)
	assert.Equal(t, []string{bugID}, tc.LinkedBugIDs)
	assert.Equal(t, []string{tcID}, bug.LinkedTestCaseIDs)
	assert.Equal(t, int64(2), tc.Version, "second link must not write")

	for i := 0; i < 2; i++ {
		require.NoError(t, update(store, func(tx types.Tx) error {
			_, _, err := m.UnlinkTestCaseBug(tx, "p1", tcID, bugID)
			return err
		}))
	}
	tc, bug = getTC(t, store, tcID), getBug(t, store, bugID)
	assert.Empty(t, tc.LinkedBugIDs)
	assert.Empty(t, bug.LinkedTestCaseIDs)
}

func TestLinkTestCaseBug_RepairsHalfLink(t *testing.T) {
	store := newStore(t)
	f := seed(t, store, "p1", 1, 1, 0)
	m := NewManager(DefaultMaxDepth)

	// Only the bug side is present.
	bug := f.bugs[0]
	bug.AddTestCase(f.tcs[0].ID)
	require.NoError(t, update(store, func(tx types.Tx) error { return tx.Bugs().Put(bug) }))

	require.NoError(t, update(store, func(tx types.Tx) error {
		_, _, err := m.LinkTestCaseBug(tx, "p1", f.tcs[0].ID, bug.ID)
		return err
	}))
	assert.Equal(t, []string{bug.ID}, getTC(t, store, f.tcs[0].ID).LinkedBugIDs)
	assert.Equal(t, []string{f.tcs[0].ID}, getBug(t, store, bug.ID).LinkedTestCaseIDs)
}

func TestLinkTestCaseBug_Validation(t *testing.T) {
	store := newStore(t)
	f := seed(t, store, "p1", 1, 1, 0)
	other := seed(t, store, "p2", 0, 1, 0)
	m := NewManager(DefaultMaxDepth)

	tests := []struct {
		name    string
		tcID    string
		bugID   string
		wantErr error
		field   string
	}{
		{name: "missing bug", tcID: f.tcs[0].ID, bugID: "nope", wantErr: types.ErrValidation, field: "bugId"},
		{name: "bug in another project", tcID: f.tcs[0].ID, bugID: other.bugs[0].ID, wantErr: types.ErrValidation, field: "bugId"},
		{name: "missing test case", tcID: "nope", bugID: f.bugs[0].ID, wantErr: types.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := update(store, func(tx types.Tx) error {
				_, _, err := m.LinkTestCaseBug(tx, "p1", tt.tcID, tt.bugID)
				return err
			})
			require.ErrorIs(t, err, tt.wantErr)
			if tt.field != "" {
				var vErr *types.ValidationError
				require.ErrorAs(t, err, &vErr)
				assert.True(t, vErr.HasField(tt.field))
			}
		})
	}
	assert.Empty(t, getTC(t, store, f.tcs[0].ID).LinkedBugIDs)
}

func TestLinkTestCaseBug_SymmetryProperty(t *testing.T) {
	store := newStore(t)
	m := NewManager(DefaultMaxDepth)
	run := 0

	rapid.Check(t, func(rt *rapid.T) {
		run++
		f := seed(rt, store, fmt.Sprintf("prop-%d", run), 3, 3, 0)
		ops := rapid.SliceOfN(rapid.Custom(func(rt *rapid.T) [3]int {
			return [3]int{
				rapid.IntRange(0, 1).Draw(rt, "link"),
				rapid.IntRange(0, 2).Draw(rt, "tc"),
				rapid.IntRange(0, 2).Draw(rt, "bug"),
			}
		}), 1, 20).Draw(rt, "ops")

		want := map[[2]int]bool{}
		for _, op := range ops {
			tcID, bugID := f.tcs[op[1]].ID, f.bugs[op[2]].ID
			err := update(store, func(tx types.Tx) error {
				var err error
				if op[0] == 1 {
					_, _, err = m.LinkTestCaseBug(tx, f.project, tcID, bugID)
				} else {
					_, _, err = m.UnlinkTestCaseBug(tx, f.project, tcID, bugID)
				}
				return err
			})
			if err != nil {
				rt.Fatalf("op %v: %v", op, err)
			}
			want[[2]int{op[1], op[2]}] = op[0] == 1
		}

		for i, tc := range f.tcs {
			gotTC := getTC(rt, store, tc.ID)
			for j, bug := range f.bugs {
				gotBug := getBug(rt, store, bug.ID)
				if gotTC.HasBug(bug.ID) != gotBug.HasTestCase(tc.ID) {
					rt.Fatalf("asymmetric link between tc %d and bug %d", i, j)
				}
				if gotTC.HasBug(bug.ID) != want[[2]int{i, j}] {
					rt.Fatalf("tc %d bug %d linked=%v, want %v", i, j, gotTC.HasBug(bug.ID), want[[2]int{i, j}])
				}
			}
			if len(gotTC.LinkedBugIDs) > len(f.bugs) {
				rt.Fatalf("duplicate entries: %v", gotTC.LinkedBugIDs)
			}
		}
	})
}

func TestLinkBugTask(t *testing.T) {
	store := newStore(t)
	f := seed(t, store, "p1", 0, 1, 1)
	m := NewManager(DefaultMaxDepth)
	bugID, taskID := f.bugs[0].ID, f.tasks[0].ID

	for i := 0; i < 2; i++ {
		require.NoError(t, update(store, func(tx types.Tx) error {
			_, _, err := m.LinkBugTask(tx, "p1", bugID, taskID)
			return err
		}))
	}
	assert.Equal(t, []string{taskID}, getBug(t, store, bugID).LinkedTaskIDs)
	assert.Equal(t, []types.TaskLink{{TargetType: types.TargetBug, TargetID: bugID}}, getTask(t, store, taskID).Links)

	require.NoError(t, update(store, func(tx types.Tx) error {
		_, _, err := m.UnlinkBugTask(tx, "p1", bugID, taskID)
		return err
	}))
	assert.Empty(t, getBug(t, store, bugID).LinkedTaskIDs)
	assert.Empty(t, getTask(t, store, taskID).Links)
}

func TestLinkTaskTo(t *testing.T) {
	store := newStore(t)
	f := seed(t, store, "p1", 1, 1, 2)
	m := NewManager(DefaultMaxDepth)
	taskID := f.tasks[0].ID

	link := func(tt types.TargetType, id string) error {
		return update(store, func(tx types.Tx) error {
			_, err := m.LinkTaskTo(tx, "p1", taskID, tt, id)
			return err
		})
	}

	require.NoError(t, link(types.TargetTestCase, f.tcs[0].ID))
	require.NoError(t, link(types.TargetBug, f.bugs[0].ID))
	require.NoError(t, link(types.TargetTask, f.tasks[1].ID))

	assert.ErrorIs(t, link(types.TargetBug, f.bugs[0].ID), types.ErrConflict, "duplicate pair")
	assert.ErrorIs(t, link(types.TargetTask, taskID), types.ErrValidation, "self link")
	assert.ErrorIs(t, link(types.TargetBug, "missing"), types.ErrValidation)
	assert.ErrorIs(t, link("Note", f.tcs[0].ID), types.ErrValidation)

	task := getTask(t, store, taskID)
	require.Len(t, task.Links, 3)
	assert.Equal(t, types.TargetTestCase, task.Links[0].TargetType)

	// Task-originated links are one-directional.
	assert.Empty(t, getBug(t, store, f.bugs[0].ID).LinkedTaskIDs)
	assert.Empty(t, getTC(t, store, f.tcs[0].ID).LinkedBugIDs)
}

func TestUnlinkTaskFrom(t *testing.T) {
	store := newStore(t)
	f := seed(t, store, "p1", 1, 1, 2)
	m := NewManager(DefaultMaxDepth)
	taskID, bugID := f.tasks[0].ID, f.bugs[0].ID

	require.NoError(t, update(store, func(tx types.Tx) error {
		if _, _, err := m.LinkBugTask(tx, "p1", bugID, taskID); err != nil {
			return err
		}
		if _, err := m.LinkTaskTo(tx, "p1", taskID, types.TargetTestCase, f.tcs[0].ID); err != nil {
			return err
		}
		_, err := m.LinkTaskTo(tx, "p1", taskID, types.TargetTask, f.tasks[1].ID)
		return err
	}))

	unlink := func(sel LinkSelector) error {
		return update(store, func(tx types.Tx) error {
			_, err := m.UnlinkTaskFrom(tx, "p1", taskID, sel)
			return err
		})
	}

	// By index: the test case link is second.
	require.NoError(t, unlink(AtIndex(1)))
	task := getTask(t, store, taskID)
	require.Len(t, task.Links, 2)
	assert.False(t, task.HasLink(types.TargetTestCase, f.tcs[0].ID))

	assert.ErrorIs(t, unlink(AtIndex(5)), types.ErrValidation)
	assert.ErrorIs(t, unlink(AtIndex(-1)), types.ErrValidation)
	require.NoError(t, unlink(ToTarget("not-linked")))

	// By target: removing the bug link clears the bug's back-reference.
	require.NoError(t, unlink(ToTarget(bugID)))
	assert.Empty(t, getBug(t, store, bugID).LinkedTaskIDs)
	assert.Len(t, getTask(t, store, taskID).Links, 1)
}

func TestSetParent(t *testing.T) {
	store := newStore(t)
	f := seed(t, store, "p1", 0, 0, 4)
	other := seed(t, store, "p2", 0, 0, 1)
	a, b, c, d := f.tasks[0].ID, f.tasks[1].ID, f.tasks[2].ID, f.tasks[3].ID

	setParent := func(m *Manager, task, parent string) error {
		return update(store, func(tx types.Tx) error {
			_, err := m.SetParent(tx, "p1", task, parent)
			return err
		})
	}

	oneLevel := NewManager(DefaultMaxDepth)
	require.NoError(t, setParent(oneLevel, b, a))
	assert.Equal(t, a, getTask(t, store, b).ParentID)
	require.NoError(t, setParent(oneLevel, b, a), "same parent again is a no-op")

	assert.ErrorIs(t, setParent(oneLevel, a, a), types.ErrConflict)
	assert.ErrorIs(t, setParent(oneLevel, c, "missing"), types.ErrValidation)
	assert.ErrorIs(t, setParent(oneLevel, c, other.tasks[0].ID), types.ErrValidation)

	// c under b would be depth 2.
	err := setParent(oneLevel, c, b)
	var vErr *types.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.True(t, vErr.HasField("parentId"))

	// a already has a child, so a under d would be depth 2 for b.
	assert.ErrorIs(t, setParent(oneLevel, a, d), types.ErrValidation)

	// Cycles are rejected whatever the depth limit.
	unlimited := NewManager(0)
	require.NoError(t, setParent(unlimited, c, b))
	err = setParent(unlimited, a, c)
	var cycle *CycleError
	require.ErrorAs(t, err, &cycle)
	assert.ErrorIs(t, err, types.ErrConflict)
	assert.Equal(t, []string{c, b, a}, cycle.Path)

	require.NoError(t, setParent(oneLevel, c, ""))
	assert.Empty(t, getTask(t, store, c).ParentID)
}

func TestClassify(t *testing.T) {
	tasks := []*types.Task{
		{Meta: types.Meta{ID: "parent"}},
		{Meta: types.Meta{ID: "child"}, ParentID: "parent"},
		{Meta: types.Meta{ID: "alone"}},
		{Meta: types.Meta{ID: "orphan"}, ParentID: "gone"},
	}
	got := Classify(tasks)
	assert.Equal(t, Parent, got["parent"])
	assert.Equal(t, Subtask, got["child"])
	assert.Equal(t, Standalone, got["alone"])
	assert.Equal(t, Standalone, got["orphan"])
}

func TestLinkSelectorSelect(t *testing.T) {
	task := &types.Task{Links: []types.TaskLink{
		{TargetType: types.TargetBug, TargetID: "b1"},
		{TargetType: types.TargetTestCase, TargetID: "tc1"},
		{TargetType: types.TargetBug, TargetID: "b1"},
	}}

	assert.Equal(t, []types.TaskLink{task.Links[1]}, AtIndex(1).Select(task))
	assert.Empty(t, AtIndex(3).Select(task))
	assert.Empty(t, AtIndex(-1).Select(task))
	assert.Len(t, ToTarget("b1").Select(task), 2)
	assert.Empty(t, ToTarget("nope").Select(task))
	assert.Len(t, task.Links, 3, "select does not mutate")
}
