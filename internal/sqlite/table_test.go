package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/mesh-intelligence/qadesk/pkg/types"
)

// setupBackend creates an attached Backend in a temp dir, detached on cleanup.
func setupBackend(t *testing.T) *Backend {
	t.Helper()
	b := NewBackend()
	config := types.Config{
		Backend: types.BackendSQLite,
		DataDir: t.TempDir(),
	}
	require.NoError(t, b.Attach(config))
	t.Cleanup(func() { b.Detach() })
	return b
}

func TestDocTable_PutAssignsMeta(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()

	bug := &types.Bug{ProjectID: "p1", Title: "Crash on save", Status: types.BugDraft}
	require.NoError(t, b.Update(ctx, func(tx types.Tx) error {
		return tx.Bugs().Put(bug)
	}))

	assert.NotEmpty(t, bug.ID)
	assert.Equal(t, int64(1), bug.Version)
	assert.False(t, bug.CreatedAt.IsZero())
	assert.Equal(t, bug.CreatedAt, bug.UpdatedAt)

	var got *types.Bug
	require.NoError(t, b.View(ctx, func(tx types.Tx) error {
		var err error
		got, err = tx.Bugs().Get(bug.ID)
		return err
	}))
	assert.Equal(t, "Crash on save", got.Title)
	assert.Equal(t, bug.ID, got.ID)
	assert.Equal(t, int64(1), got.Version)
}

func TestDocTable_VersionCheckedUpdate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(tc *types.TestCase)
		wantErr error
		wantVer int64
	}{
		{
			name:    "current version updates and bumps",
			mutate:  func(tc *types.TestCase) {},
			wantVer: 2,
		},
		{
			name:    "stale version conflicts",
			mutate:  func(tc *types.TestCase) { tc.Version = 0 },
			wantErr: types.ErrConflict,
		},
		{
			name:    "unknown id is not found",
			mutate:  func(tc *types.TestCase) { tc.ID = "missing" },
			wantErr: types.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := setupBackend(t)
			ctx := context.Background()

			tc := &types.TestCase{ProjectID: "p1", Title: "Login"}
			require.NoError(t, b.Update(ctx, func(tx types.Tx) error { return tx.TestCases().Put(tc) }))

			tt.mutate(tc)
			before := tc.Version
			tc.Title = "Login works"
			err := b.Update(ctx, func(tx types.Tx) error { return tx.TestCases().Put(tc) })

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				assert.Equal(t, before, tc.Version, "version restored on failure")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantVer, tc.Version)
		})
	}
}

func TestDocTable_DeleteAndGetMissing(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()

	note := &types.Note{ProjectID: "p1", Title: "Env", Content: "staging"}
	require.NoError(t, b.Update(ctx, func(tx types.Tx) error { return tx.Notes().Put(note) }))
	require.NoError(t, b.Update(ctx, func(tx types.Tx) error { return tx.Notes().Delete(note.ID) }))

	err := b.Update(ctx, func(tx types.Tx) error { return tx.Notes().Delete(note.ID) })
	assert.ErrorIs(t, err, types.ErrNotFound)

	err = b.View(ctx, func(tx types.Tx) error {
		_, err := tx.Notes().Get(note.ID)
		return err
	})
	var nf *types.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, types.KindNote, nf.Kind)
	assert.Equal(t, note.ID, nf.ID)
}

func TestDocTable_FetchFiltersAndOrders(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()

	require.NoError(t, b.Update(ctx, func(tx types.Tx) error {
		for _, c := range []*types.Comment{
			{ProjectID: "p1", SubjectType: types.SubjectBug, SubjectID: "bug-a", Content: "first"},
			{ProjectID: "p1", SubjectType: types.SubjectBug, SubjectID: "bug-b", Content: "other"},
			{ProjectID: "p1", SubjectType: types.SubjectBug, SubjectID: "bug-a", Content: "second"},
			{ProjectID: "p2", SubjectType: types.SubjectBug, SubjectID: "bug-a", Content: "foreign"},
		} {
			if err := tx.Comments().Put(c); err != nil {
				return err
			}
		}
		return nil
	}))

	var thread, project, none []*types.Comment
	require.NoError(t, b.View(ctx, func(tx types.Tx) error {
		var err error
		if thread, err = tx.Comments().Fetch(types.Filter{ProjectID: "p1", IndexKey: "bug-a"}); err != nil {
			return err
		}
		if project, err = tx.Comments().Fetch(types.Filter{ProjectID: "p1"}); err != nil {
			return err
		}
		none, err = tx.Comments().Fetch(types.Filter{ProjectID: "p3"})
		return err
	}))

	require.Len(t, thread, 2)
	assert.Equal(t, "first", thread[0].Content)
	assert.Equal(t, "second", thread[1].Content)
	assert.Len(t, project, 3)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestDocTable_IndexKeyFollowsUpdates(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()

	child := &types.Task{ProjectID: "p1", Title: "Child", Status: types.TaskBacklog}
	require.NoError(t, b.Update(ctx, func(tx types.Tx) error { return tx.Tasks().Put(child) }))

	child.ParentID = "parent-1"
	require.NoError(t, b.Update(ctx, func(tx types.Tx) error { return tx.Tasks().Put(child) }))

	var kids []*types.Task
	require.NoError(t, b.View(ctx, func(tx types.Tx) error {
		var err error
		kids, err = tx.Tasks().Fetch(types.Filter{IndexKey: "parent-1"})
		return err
	}))
	require.Len(t, kids, 1)
	assert.Equal(t, child.ID, kids[0].ID)
}

func TestTxn_NextSequence(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()

	var got []int64
	require.NoError(t, b.Update(ctx, func(tx types.Tx) error {
		for _, kind := range []string{types.KindBug, types.KindBug, types.KindTestCase, types.KindBug} {
			n, err := tx.NextSequence("p1", kind)
			if err != nil {
				return err
			}
			got = append(got, n)
		}
		n, err := tx.NextSequence("p2", types.KindBug)
		got = append(got, n)
		return err
	}))
	assert.Equal(t, []int64{1, 2, 1, 3, 1}, got)
}

func TestTxn_ConcurrentUpdatesSerialize(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()

	const writers = 8
	var g errgroup.Group
	for i := 0; i < writers; i++ {
		g.Go(func() error {
			return b.Update(ctx, func(tx types.Tx) error {
				_, err := tx.NextSequence("p1", types.KindBug)
				return err
			})
		})
	}
	require.NoError(t, g.Wait())

	var next int64
	require.NoError(t, b.Update(ctx, func(tx types.Tx) error {
		var err error
		next, err = tx.NextSequence("p1", types.KindBug)
		return err
	}))
	assert.Equal(t, int64(writers+1), next)
}
