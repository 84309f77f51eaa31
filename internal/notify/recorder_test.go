package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/qadesk/internal/sqlite"
	"github.com/mesh-intelligence/qadesk/pkg/types"
)

func setup(t *testing.T) (types.Store, *types.Project, *types.Bug) {
	t.Helper()
	store := sqlite.NewBackend()
	require.NoError(t, store.Attach(types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}))
	t.Cleanup(func() { store.Detach() })

	project := &types.Project{
		Name:      "Shop",
		CreatorID: "qa",
		Members: []types.Member{
			{MemberID: "qa", Role: types.RoleQA},
			{MemberID: "dev1", Role: types.RoleDEV},
			{MemberID: "dev2", Role: types.RoleDEV},
		},
	}
	bug := &types.Bug{Title: "Crash", Status: types.BugOpened, StepsToReproduce: "x", CreatedBy: "dev1"}
	require.NoError(t, store.Update(context.Background(), func(tx types.Tx) error {
		if err := tx.Projects().Put(project); err != nil {
			return err
		}
		bug.ProjectID = project.ID
		return tx.Bugs().Put(bug)
	}))
	return store, project, bug
}

func inbox(t *testing.T, store types.Store, projectID, user string) []*types.Notification {
	t.Helper()
	var out []*types.Notification
	require.NoError(t, store.View(context.Background(), func(tx types.Tx) error {
		var err error
		out, err = Inbox(tx, projectID, user, false)
		return err
	}))
	return out
}

func TestRecorder_BugCreated(t *testing.T) {
	store, project, bug := setup(t)

	require.NoError(t, store.Update(context.Background(), func(tx types.Tx) error {
		return Recorder{}.Emit(tx, types.Event{
			Kind: types.EventBugCreated, ProjectID: project.ID, SubjectType: types.SubjectBug,
			SubjectID: bug.ID, SubjectTitle: bug.Title, ActorID: "dev1", Message: "new bug",
		})
	}))

	assert.Empty(t, inbox(t, store, project.ID, "dev1"), "actor is not notified")
	for _, user := range []string{"qa", "dev2"} {
		got := inbox(t, store, project.ID, user)
		require.Len(t, got, 1, user)
		assert.Equal(t, bug.ID, got[0].SubjectBugID)
		assert.Equal(t, "Crash", got[0].SubjectTitle)
		assert.False(t, got[0].Read)
	}
}

func TestRecorder_CommentAddedNotifiesCreatorAndParticipants(t *testing.T) {
	store, project, bug := setup(t)
	ctx := context.Background()

	require.NoError(t, store.Update(ctx, func(tx types.Tx) error {
		return tx.Comments().Put(&types.Comment{
			ProjectID: project.ID, SubjectType: types.SubjectBug, SubjectID: bug.ID, UserID: "dev2", Content: "seen it",
		})
	}))
	require.NoError(t, store.Update(ctx, func(tx types.Tx) error {
		return Recorder{}.Emit(tx, types.Event{
			Kind: types.EventCommentAdded, ProjectID: project.ID, SubjectType: types.SubjectBug,
			SubjectID: bug.ID, ActorID: "qa", Message: "comment",
		})
	}))

	assert.Len(t, inbox(t, store, project.ID, "dev1"), 1, "bug creator")
	assert.Len(t, inbox(t, store, project.ID, "dev2"), 1, "earlier commenter")
	assert.Empty(t, inbox(t, store, project.ID, "qa"), "actor")
}

func TestRecorder_TaskEventsIgnored(t *testing.T) {
	store, project, _ := setup(t)
	require.NoError(t, store.Update(context.Background(), func(tx types.Tx) error {
		return Recorder{}.Emit(tx, types.Event{
			Kind: types.EventCommentAdded, ProjectID: project.ID, SubjectType: types.SubjectTask, SubjectID: "t1", ActorID: "qa",
		})
	}))
	assert.Empty(t, inbox(t, store, project.ID, "dev1"))
}

func TestMarkRead(t *testing.T) {
	store, project, bug := setup(t)
	ctx := context.Background()

	require.NoError(t, store.Update(ctx, func(tx types.Tx) error {
		return Recorder{}.Emit(tx, types.Event{
			Kind: types.EventBugStatusChanged, ProjectID: project.ID, SubjectType: types.SubjectBug,
			SubjectID: bug.ID, ActorID: "qa",
		})
	}))
	got := inbox(t, store, project.ID, "dev1")
	require.Len(t, got, 1)

	err := store.Update(ctx, func(tx types.Tx) error {
		_, err := MarkRead(tx, "dev2", got[0].ID)
		return err
	})
	assert.ErrorIs(t, err, types.ErrUnauthorized)

	require.NoError(t, store.Update(ctx, func(tx types.Tx) error {
		_, err := MarkRead(tx, "dev1", got[0].ID)
		return err
	}))

	var unread []*types.Notification
	require.NoError(t, store.View(ctx, func(tx types.Tx) error {
		var err error
		unread, err = Inbox(tx, project.ID, "dev1", true)
		return err
	}))
	assert.Empty(t, unread)
}
