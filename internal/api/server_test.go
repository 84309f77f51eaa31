package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/qadesk/internal/service"
	"github.com/mesh-intelligence/qadesk/internal/sqlite"
	"github.com/mesh-intelligence/qadesk/pkg/types"
)

type client struct {
	t       *testing.T
	handler http.Handler
}

func newClient(t *testing.T) *client {
	t.Helper()
	store := sqlite.NewBackend()
	require.NoError(t, store.Attach(types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}))
	t.Cleanup(func() { store.Detach() })
	return &client{t: t, handler: NewServer(service.New(store), nil).Handler()}
}

// do sends body as JSON on behalf of actor and decodes the response into out
// when out is non-nil.
func (c *client) do(actor types.Actor, method, path string, body any, out any) *httptest.ResponseRecorder {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if actor.ID != "" {
		req.Header.Set(HeaderActorID, actor.ID)
		req.Header.Set(HeaderActorName, actor.Name)
		req.Header.Set(HeaderActorRole, string(actor.Role))
	}
	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)
	if out != nil && rec.Code < 300 {
		require.NoError(c.t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var body ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

var (
	qa  = types.Actor{ID: "qa-1", Name: "Quinn", Role: types.RoleQA}
	dev = types.Actor{ID: "dev-1", Name: "Dana", Role: types.RoleDEV}
)

func setupProject(t *testing.T, c *client) *types.Project {
	t.Helper()
	var p types.Project
	rec := c.do(qa, http.MethodPost, "/api/v1/projects", map[string]string{"name": "Checkout"}, &p)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = c.do(qa, http.MethodPost, "/api/v1/projects/"+p.ID+"/members",
		map[string]string{"memberId": dev.ID, "role": "DEV"}, &p)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return &p
}

func TestHealthNeedsNoActor(t *testing.T) {
	c := newClient(t)
	rec := c.do(types.Actor{}, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMissingActorIsUnauthenticated(t *testing.T) {
	c := newClient(t)
	rec := c.do(types.Actor{}, http.MethodGet, "/api/v1/projects", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, CodeUnauthenticated, decodeError(t, rec).Code)
}

func TestBugStatusFlowOverHTTP(t *testing.T) {
	c := newClient(t)
	p := setupProject(t, c)
	base := "/api/v1/projects/" + p.ID

	var bug types.Bug
	rec := c.do(qa, http.MethodPost, base+"/bugs", map[string]string{
		"title": "Pay button dead", "stepsToReproduce": "Click pay", "status": "Opened",
	}, &bug)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "BUG-1", bug.FriendlyID)

	rec = c.do(dev, http.MethodPatch, base+"/bugs/"+bug.ID, map[string]string{"status": "Fixed"}, &bug)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, types.BugFixed, bug.Status)

	rec = c.do(dev, http.MethodPatch, base+"/bugs/"+bug.ID, map[string]string{"title": "Renamed"}, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, CodeUnauthorized, decodeError(t, rec).Code)
}

func TestErrorStatusMapping(t *testing.T) {
	c := newClient(t)
	p := setupProject(t, c)
	base := "/api/v1/projects/" + p.ID

	t.Run("validation is 422 with fields", func(t *testing.T) {
		rec := c.do(qa, http.MethodPost, base+"/testcases", map[string]string{"title": "x", "status": "Pass"}, nil)
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		body := decodeError(t, rec)
		assert.Equal(t, CodeInvalidArgument, body.Code)
		assert.Contains(t, body.Fields, "steps")
	})

	t.Run("request tag validation is 422", func(t *testing.T) {
		rec := c.do(qa, http.MethodPost, base+"/bugs", map[string]string{"severity": "Huge"}, nil)
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, decodeError(t, rec).Fields, "severity")
	})

	t.Run("missing record is 404", func(t *testing.T) {
		rec := c.do(qa, http.MethodGet, base+"/tasks/nope", nil, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("duplicate task link is 409", func(t *testing.T) {
		var a, b types.Task
		c.do(qa, http.MethodPost, base+"/tasks", map[string]string{"title": "A"}, &a)
		c.do(qa, http.MethodPost, base+"/tasks", map[string]string{"title": "B"}, &b)
		link := map[string]string{"targetType": "Task", "targetId": b.ID}
		rec := c.do(qa, http.MethodPost, base+"/tasks/"+a.ID+"/links", link, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		rec = c.do(qa, http.MethodPost, base+"/tasks/"+a.ID+"/links", link, nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestFailedTestCaseReturnsFollowUp(t *testing.T) {
	c := newClient(t)
	p := setupProject(t, c)
	base := "/api/v1/projects/" + p.ID

	var tc types.TestCase
	rec := c.do(qa, http.MethodPost, base+"/testcases", map[string]string{
		"title": "Pay", "steps": "Click", "expectedResult": "Paid",
	}, &tc)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp testCaseResponse
	rec = c.do(qa, http.MethodPatch, base+"/testcases/"+tc.ID, map[string]string{"status": "Fail"}, &resp)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, types.TestCaseFail, resp.TestCase.Status)
	require.NotNil(t, resp.FollowUp)
	assert.Equal(t, tc.ID, resp.FollowUp.LinkedTestCaseID)
}

func TestBoardMoveOverHTTP(t *testing.T) {
	c := newClient(t)
	p := setupProject(t, c)
	base := "/api/v1/projects/" + p.ID

	var task types.Task
	c.do(dev, http.MethodPost, base+"/tasks", map[string]string{"title": "Wire"}, &task)

	rec := c.do(dev, http.MethodPost, base+"/board/moves", map[string]string{"taskId": task.ID, "target": "standalone:InProgress"}, &task)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, types.TaskInProgress, task.Status)

	rec = c.do(dev, http.MethodPost, base+"/board/moves", map[string]string{"taskId": task.ID, "target": "garbage"}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
