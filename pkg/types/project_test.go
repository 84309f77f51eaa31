package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProject() *Project {
	return &Project{
		Name:         "Checkout",
		CreatorID:    "qa-1",
		Members:      []Member{{MemberID: "qa-1", Role: RoleQA}},
		Permissions:  DefaultPermissionOverrides(),
		BoardColumns: DefaultBoardColumns(),
	}
}

func TestProjectMembers(t *testing.T) {
	p := newTestProject()
	require.NoError(t, p.AddMember(Member{MemberID: "dev-1", Role: RoleDEV}))
	assert.Equal(t, RoleDEV, p.RoleOf("dev-1"))
	assert.Equal(t, RoleNone, p.RoleOf("stranger"))

	assert.ErrorIs(t, p.AddMember(Member{MemberID: "dev-1", Role: RoleDEV}), ErrConflict)
	assert.ErrorIs(t, p.AddMember(Member{MemberID: "x", Role: "ADMIN"}), ErrValidation)

	require.NoError(t, p.SetMemberRole("dev-1", RoleQA))
	assert.Equal(t, RoleQA, p.RoleOf("dev-1"))
	assert.ErrorIs(t, p.SetMemberRole("ghost", RoleQA), ErrNotFound)

	assert.ErrorIs(t, p.RemoveMember("qa-1"), ErrConflict)
	require.NoError(t, p.RemoveMember("dev-1"))
	assert.ErrorIs(t, p.RemoveMember("dev-1"), ErrNotFound)
	assert.NoError(t, p.Validate())
}

func TestProjectValidate(t *testing.T) {
	t.Run("creator must be a member", func(t *testing.T) {
		p := newTestProject()
		p.Members = nil
		var verr *ValidationError
		require.ErrorAs(t, p.Validate(), &verr)
		assert.True(t, verr.HasField("members"))
	})
	t.Run("name required", func(t *testing.T) {
		p := newTestProject()
		p.Name = "  "
		assert.ErrorIs(t, p.Validate(), ErrValidation)
	})
}

func TestValidateBoardColumns(t *testing.T) {
	assert.NoError(t, ValidateBoardColumns(DefaultBoardColumns()))
	assert.NoError(t, ValidateBoardColumns(nil))

	bad := map[string][]BoardColumn{
		"empty id":       {{ID: "", Status: TaskDone}},
		"colon in id":    {{ID: "a:b", Status: TaskDone}},
		"duplicate id":   {{ID: "a", Status: TaskDone}, {ID: "a", Status: TaskToDo}},
		"unknown status": {{ID: "a", Status: "Blocked"}},
		"status twice":   {{ID: "a", Status: TaskDone}, {ID: "b", Status: TaskDone}},
	}
	for name, cols := range bad {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, ValidateBoardColumns(cols), ErrValidation)
		})
	}
}

func TestDefaultBoardOmitsArchived(t *testing.T) {
	p := newTestProject()
	_, ok := p.Column(TaskArchived)
	assert.False(t, ok)
	col, ok := p.Column(TaskInProgress)
	require.True(t, ok)
	assert.Equal(t, "in-progress", col.ID)
}

func TestCapabilitySet(t *testing.T) {
	var none CapabilitySet
	assert.False(t, none.Any())

	s := CapabilitySet{EditBugStatus: true}
	assert.True(t, s.Any())
	assert.True(t, s.Has(CapEditBugStatus))
	assert.False(t, s.Has(CapEditBugs))
	assert.False(t, s.Has("deleteEverything"))
}
