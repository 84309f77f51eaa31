package integration

import (
	"net/http"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/qadesk/internal/workflow"
	"github.com/mesh-intelligence/qadesk/pkg/types"
)

var (
	qa  = types.Actor{ID: "qa-1", Name: "Quinn", Role: types.RoleQA}
	dev = types.Actor{ID: "dev-1", Name: "Dana", Role: types.RoleDEV}
)

type testCaseResponse struct {
	TestCase *types.TestCase      `json:"testCase"`
	FollowUp *workflow.FollowUpBug `json:"followUp"`
}

// seedProject runs a failed test case through to a fixed bug and returns the
// project ID.
func seedProject(t *testing.T, c *Client) string {
	t.Helper()
	var p types.Project
	require.Equal(t, http.StatusCreated, c.Do(qa, http.MethodPost, "/api/v1/projects", map[string]string{"name": "Checkout"}, &p))
	require.Equal(t, http.StatusOK, c.Do(qa, http.MethodPost, "/api/v1/projects/"+p.ID+"/members",
		map[string]string{"memberId": dev.ID, "displayName": dev.Name, "role": "DEV"}, &p))
	base := "/api/v1/projects/" + p.ID

	var tc types.TestCase
	require.Equal(t, http.StatusCreated, c.Do(qa, http.MethodPost, base+"/testcases", map[string]string{
		"title": "Pay by card", "steps": "Submit the form", "expectedResult": "Receipt shown", "status": "Todo",
	}, &tc))
	assert.Equal(t, "TC-1", tc.FriendlyID)

	var failed testCaseResponse
	require.Equal(t, http.StatusOK, c.Do(qa, http.MethodPatch, base+"/testcases/"+tc.ID, map[string]string{"status": "Fail"}, &failed))
	require.NotNil(t, failed.FollowUp)

	var bug types.Bug
	require.Equal(t, http.StatusCreated, c.Do(qa, http.MethodPost, base+"/bugs", map[string]any{
		"title":            failed.FollowUp.Title,
		"stepsToReproduce": failed.FollowUp.StepsToReproduce,
		"expectedResult":   failed.FollowUp.ExpectedResult,
		"severity":         failed.FollowUp.Severity,
		"status":           "Opened",
		"linkedTestCaseId": tc.ID,
	}, &bug))
	assert.Equal(t, []string{tc.ID}, bug.LinkedTestCaseIDs)

	// DEV may move the bug along but not rewrite it.
	assert.Equal(t, http.StatusForbidden, c.Do(dev, http.MethodPatch, base+"/bugs/"+bug.ID, map[string]string{"title": "Not a bug"}, nil))
	require.Equal(t, http.StatusOK, c.Do(dev, http.MethodPatch, base+"/bugs/"+bug.ID, map[string]string{"status": "Fixed"}, &bug))
	assert.Equal(t, types.BugFixed, bug.Status)

	require.Equal(t, http.StatusCreated, c.Do(dev, http.MethodPost, base+"/comments", map[string]string{
		"subjectType": "Bug", "subjectId": bug.ID, "content": "Fixed in the payment form",
	}, nil))
	return p.ID
}

func TestServeQAFlow(t *testing.T) {
	env := NewTestEnv(t)
	env.MustRun("init")
	c := env.Serve()

	pid := seedProject(t, c)
	base := "/api/v1/projects/" + pid

	var tc types.TestCase
	var cases []*types.TestCase
	require.Equal(t, http.StatusOK, c.Do(qa, http.MethodGet, base+"/testcases", nil, &cases))
	require.Len(t, cases, 1)
	require.Equal(t, http.StatusOK, c.Do(qa, http.MethodGet, base+"/testcases/"+cases[0].ID, nil, &tc))
	assert.Len(t, tc.LinkedBugIDs, 1)

	var inbox []*types.Notification
	require.Equal(t, http.StatusOK, c.Do(qa, http.MethodGet, base+"/notifications", nil, &inbox))
	assert.NotEmpty(t, inbox)

	assert.Equal(t, http.StatusUnauthorized, c.Do(types.Actor{}, http.MethodGet, "/api/v1/projects", nil, nil))
	assert.Equal(t, http.StatusNotFound, c.Do(types.Actor{ID: "stranger", Role: types.RoleQA}, http.MethodGet, base, nil, nil))
}

func TestExportImportRoundTrip(t *testing.T) {
	src := NewTestEnv(t)
	src.MustRun("init")
	pid := seedProject(t, src.Serve())

	snapshot := filepath.Join(t.TempDir(), "snapshot")
	src.MustRun("export", snapshot)
	assert.FileExists(t, filepath.Join(snapshot, "bugs.jsonl"))

	dst := NewTestEnv(t)
	dst.MustRun("init")
	dst.MustRun("import", snapshot)

	// A second import into a populated store is refused.
	assert.NotEqual(t, 0, dst.Run("import", snapshot).ExitCode)

	c := dst.Serve()
	var bugs []*types.Bug
	require.Equal(t, http.StatusOK, c.Do(qa, http.MethodGet, "/api/v1/projects/"+pid+"/bugs", nil, &bugs))
	require.Len(t, bugs, 1)
	assert.Equal(t, "BUG-1", bugs[0].FriendlyID)
	assert.Equal(t, types.BugFixed, bugs[0].Status)

	// Sequences survive the round trip.
	var next types.Bug
	require.Equal(t, http.StatusCreated, c.Do(qa, http.MethodPost, "/api/v1/projects/"+pid+"/bugs", map[string]string{
		"title": "Second", "stepsToReproduce": "Again", "status": "Opened",
	}, &next))
	assert.Equal(t, "BUG-2", next.FriendlyID)
}
