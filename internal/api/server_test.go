package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"task-tracker/internal/model"
	"task-tracker/internal/repository"
	"task-tracker/internal/service"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type testEnv struct {
	srv   *Server
	db    *gorm.DB
	users []model.User
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := repository.NewDB(filepath.Join(t.TempDir(), "tasks.db"), zap.NewNop().Sugar())
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	userSvc := service.NewUserService(repository.NewUserRepository(db))
	_, err = userSvc.SeedDemoUsers(context.Background())
	require.NoError(t, err)
	users, err := userSvc.List(context.Background())
	require.NoError(t, err)

	srv, err := New(Deps{
		Tasks: service.NewTaskService(repository.NewTaskRepository(db)),
		Users: userSvc,
		DB:    sqlDB,
		Log:   zap.NewNop().Sugar(),
	})
	require.NoError(t, err)

	return &testEnv{srv: srv, db: db, users: users}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) createTask(t *testing.T, body string) uint {
	t.Helper()

	rec := e.do(t, http.MethodPost, "/api/tasks", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		OK bool `json:"ok"`
		ID uint `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.OK)
	require.NotZero(t, resp.ID)
	return resp.ID
}

func (e *testEnv) listTasks(t *testing.T) []taskResponse {
	t.Helper()

	rec := e.do(t, http.MethodGet, "/api/tasks", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var tasks []taskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tasks))
	return tasks
}

func (e *testEnv) findTask(t *testing.T, id uint) taskResponse {
	t.Helper()

	for _, task := range e.listTasks(t) {
		if task.ID == id {
			return task
		}
	}
	t.Fatalf("task %d not listed", id)
	return taskResponse{}
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	var resp struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}

func TestCreateTask_Defaults(t *testing.T) {
	env := newTestEnv(t)

	id := env.createTask(t, `{"title":"Fix bug"}`)
	task := env.findTask(t, id)

	assert.Equal(t, "Fix bug", task.Title)
	assert.Equal(t, "Pending", task.Status)
	assert.Nil(t, task.Description)
	assert.Nil(t, task.Deadline)
	assert.Nil(t, task.AssignedUserID)
	assert.Nil(t, task.AssignedUserName)
}

func TestCreateTask_TitleRequired(t *testing.T) {
	env := newTestEnv(t)

	for name, body := range map[string]string{
		"missing title": `{"description":"x"}`,
		"empty title":   `{"title":""}`,
		"null title":    `{"title":null}`,
		"empty body":    "",
	} {
		t.Run(name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/tasks", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.JSONEq(t, `{"error":"title required"}`, rec.Body.String())
		})
	}

	assert.Empty(t, env.listTasks(t))
}

func TestCreateTask_InvalidBody(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/tasks", `{"title":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, errInvalidRequestBody, errorMessage(t, rec))

	rec = env.do(t, http.MethodPost, "/api/tasks", `{"title":"x","assignedUserId":"bob"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Empty(t, env.listTasks(t))
}

func TestCreateTask_FullPayload(t *testing.T) {
	env := newTestEnv(t)
	bob := env.users[1]

	id := env.createTask(t, `{"title":"Plan sprint","description":"next two weeks","status":"In Progress","deadline":"2024-01-15","assignedUserId":`+jsonNumber(bob.ID)+`}`)
	task := env.findTask(t, id)

	require.NotNil(t, task.Description)
	assert.Equal(t, "next two weeks", *task.Description)
	assert.Equal(t, "In Progress", task.Status)
	require.NotNil(t, task.Deadline)
	assert.Equal(t, "2024-01-15", *task.Deadline)
	require.NotNil(t, task.AssignedUserID)
	assert.Equal(t, bob.ID, *task.AssignedUserID)
	require.NotNil(t, task.AssignedUserName)
	assert.Equal(t, "bob", *task.AssignedUserName)
}

func TestCreateTask_LenientInputs(t *testing.T) {
	env := newTestEnv(t)

	t.Run("malformed deadline", func(t *testing.T) {
		id := env.createTask(t, `{"title":"Odd date","deadline":"not-a-date"}`)
		assert.Nil(t, env.findTask(t, id).Deadline)
	})

	t.Run("unknown assignee", func(t *testing.T) {
		id := env.createTask(t, `{"title":"Ghost","assignedUserId":999}`)
		task := env.findTask(t, id)
		require.NotNil(t, task.AssignedUserID)
		assert.Equal(t, uint(999), *task.AssignedUserID)
		assert.Nil(t, task.AssignedUserName)
	})

	t.Run("non-positive assignee", func(t *testing.T) {
		for _, raw := range []string{"0", "-1", "null"} {
			id := env.createTask(t, `{"title":"Nobody","assignedUserId":`+raw+`}`)
			task := env.findTask(t, id)
			assert.Nil(t, task.AssignedUserID, raw)
			assert.Nil(t, task.AssignedUserName, raw)
		}
	})

	t.Run("non-string deadline", func(t *testing.T) {
		for _, raw := range []string{"20240115", "true", "false", "null", `{"y":2024}`, "[]"} {
			id := env.createTask(t, `{"title":"Odd type","deadline":`+raw+`}`)
			assert.Nil(t, env.findTask(t, id).Deadline, raw)
		}
	})

	t.Run("snake_case assignee", func(t *testing.T) {
		id := env.createTask(t, `{"title":"Legacy","assigned_user_id":`+jsonNumber(env.users[0].ID)+`}`)
		task := env.findTask(t, id)
		require.NotNil(t, task.AssignedUserName)
		assert.Equal(t, "alice", *task.AssignedUserName)
	})
}

func TestListTasks_NewestFirst(t *testing.T) {
	env := newTestEnv(t)

	assert.Equal(t, "[]", strings.TrimSpace(env.do(t, http.MethodGet, "/api/tasks", "").Body.String()))

	for _, title := range []string{"one", "two", "three"} {
		id := env.createTask(t, `{"title":"`+title+`"}`)
		tasks := env.listTasks(t)
		require.NotEmpty(t, tasks)
		assert.Equal(t, id, tasks[0].ID)
		assert.Equal(t, title, tasks[0].Title)
	}
}

func TestDeadlineRoundTrip(t *testing.T) {
	env := newTestEnv(t)

	id := env.createTask(t, `{"title":"Pay invoice","deadline":"2024-01-15"}`)
	task := env.findTask(t, id)
	require.NotNil(t, task.Deadline)
	assert.Equal(t, "2024-01-15", *task.Deadline)
}

func TestUpdateTask_StatusOnly(t *testing.T) {
	env := newTestEnv(t)
	id := env.createTask(t, `{"title":"Write docs","description":"api section","deadline":"2024-01-15"}`)

	rec := env.do(t, http.MethodPut, "/api/tasks/"+jsonNumber(id), `{"status":"Done"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())

	task := env.findTask(t, id)
	assert.Equal(t, "Done", task.Status)
	assert.Equal(t, "Write docs", task.Title)
	require.NotNil(t, task.Description)
	assert.Equal(t, "api section", *task.Description)
	require.NotNil(t, task.Deadline)
	assert.Equal(t, "2024-01-15", *task.Deadline)
}

func TestUpdateTask_ClearDeadline(t *testing.T) {
	env := newTestEnv(t)
	id := env.createTask(t, `{"title":"Clear me","deadline":"2024-01-15"}`)

	rec := env.do(t, http.MethodPut, "/api/tasks/"+jsonNumber(id), `{"deadline":""}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, env.findTask(t, id).Deadline)

	rec = env.do(t, http.MethodPut, "/api/tasks/"+jsonNumber(id), `{"deadline":"2024-02-01"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, env.findTask(t, id).Deadline)

	rec = env.do(t, http.MethodPut, "/api/tasks/"+jsonNumber(id), `{"deadline":null}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, env.findTask(t, id).Deadline)
}

func TestUpdateTask_Fields(t *testing.T) {
	env := newTestEnv(t)
	id := env.createTask(t, `{"title":"Reassign","description":"old"}`)
	path := "/api/tasks/" + jsonNumber(id)

	rec := env.do(t, http.MethodPut, path, `{"assignedUserId":`+jsonNumber(env.users[1].ID)+`,"description":null}`)
	require.Equal(t, http.StatusOK, rec.Code)
	task := env.findTask(t, id)
	assert.Equal(t, "bob", *task.AssignedUserName)
	assert.Nil(t, task.Description)

	rec = env.do(t, http.MethodPut, path, `{"assigned_user_id":null,"title":""}`)
	require.Equal(t, http.StatusOK, rec.Code)
	task = env.findTask(t, id)
	assert.Nil(t, task.AssignedUserID)
	assert.Equal(t, "", task.Title)

	rec = env.do(t, http.MethodPut, path, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUpdateTask_NormalizesLooseValues(t *testing.T) {
	env := newTestEnv(t)
	id := env.createTask(t, `{"title":"Loose","deadline":"2024-01-15","assignedUserId":`+jsonNumber(env.users[0].ID)+`}`)
	path := "/api/tasks/" + jsonNumber(id)

	rec := env.do(t, http.MethodPut, path, `{"assignedUserId":-5}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	task := env.findTask(t, id)
	assert.Nil(t, task.AssignedUserID)
	require.NotNil(t, task.Deadline)

	rec = env.do(t, http.MethodPut, path, `{"deadline":false}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Nil(t, env.findTask(t, id).Deadline)

	rec = env.do(t, http.MethodPut, path, `{"deadline":"2024-03-01"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, env.findTask(t, id).Deadline)

	rec = env.do(t, http.MethodPut, path, `{"deadline":20240301}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Nil(t, env.findTask(t, id).Deadline)

	rec = env.do(t, http.MethodPut, path, `{"assigned_user_id":`+jsonNumber(env.users[1].ID)+`}`)
	require.Equal(t, http.StatusOK, rec.Code)
	task = env.findTask(t, id)
	require.NotNil(t, task.AssignedUserName)
	assert.Equal(t, "bob", *task.AssignedUserName)
	assert.Equal(t, "Loose", task.Title)
}

func TestUpdateTask_BadInput(t *testing.T) {
	env := newTestEnv(t)
	id := env.createTask(t, `{"title":"Stable"}`)

	rec := env.do(t, http.MethodPut, "/api/tasks/"+jsonNumber(id), `{"status":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/tasks/"+jsonNumber(id+50), `{"status":`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteTask_ThenNotFound(t *testing.T) {
	env := newTestEnv(t)
	id := env.createTask(t, `{"title":"Temporary"}`)
	path := "/api/tasks/" + jsonNumber(id)

	rec := env.do(t, http.MethodDelete, path, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
	assert.Empty(t, env.listTasks(t))

	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodDelete, path, "").Code)

	rec = env.do(t, http.MethodPut, path, `{"status":"Done"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "task not found", errorMessage(t, rec))

	for _, bad := range []string{"/api/tasks/abc", "/api/tasks/0", "/api/tasks/-1"} {
		assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodPut, bad, `{}`).Code, bad)
		assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodDelete, bad, "").Code, bad)
	}
}

func TestOverdue(t *testing.T) {
	env := newTestEnv(t)
	now := time.Now()
	yesterday := now.AddDate(0, 0, -1).Format(model.DateLayout)
	tomorrow := now.AddDate(0, 0, 1).Format(model.DateLayout)

	lateID := env.createTask(t, `{"title":"Late","deadline":"`+yesterday+`","assignedUserId":`+jsonNumber(env.users[0].ID)+`}`)
	env.createTask(t, `{"title":"Today","deadline":"`+now.Format(model.DateLayout)+`"}`)
	env.createTask(t, `{"title":"Later","deadline":"`+tomorrow+`"}`)
	env.createTask(t, `{"title":"Whenever"}`)
	env.createTask(t, `{"title":"Finished","deadline":"`+yesterday+`","status":"Done"}`)

	overdue := func() []overdueResponse {
		rec := env.do(t, http.MethodGet, "/api/overdue", "")
		require.Equal(t, http.StatusOK, rec.Code)
		var out []overdueResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
		return out
	}

	got := overdue()
	require.Len(t, got, 1)
	assert.Equal(t, lateID, got[0].ID)
	assert.Equal(t, "Late", got[0].Title)
	assert.Equal(t, yesterday, got[0].Deadline)
	require.NotNil(t, got[0].AssignedUser)
	assert.Equal(t, "alice", *got[0].AssignedUser)

	rec := env.do(t, http.MethodPut, "/api/tasks/"+jsonNumber(lateID), `{"status":"Done"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, overdue())
}

func TestOverdue_UsesServerClock(t *testing.T) {
	env := newTestEnv(t)
	env.srv.now = func() time.Time { return time.Date(2024, 1, 16, 0, 5, 0, 0, time.Local) }

	id := env.createTask(t, `{"title":"Invoice","deadline":"2024-01-15"}`)
	env.createTask(t, `{"title":"Report","deadline":"2024-01-16"}`)

	rec := env.do(t, http.MethodGet, "/api/overdue", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"id":`+jsonNumber(id)+`,"title":"Invoice","assignedUser":null,"deadline":"2024-01-15"}]`, rec.Body.String())
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	users := `"users":[{"id":` + jsonNumber(env.users[0].ID) + `,"name":"alice"},{"id":` + jsonNumber(env.users[1].ID) + `,"name":"bob"}]`

	tests := []struct {
		name string
		body string
		want string
	}{
		{"echo", `{"username":"carol","role":"pm"}`, `{"ok":true,"user":{"name":"carol","role":"pm"},` + users + `}`},
		{"defaults", `{}`, `{"ok":true,"user":{"name":"","role":"user"},` + users + `}`},
		{"no body", "", `{"ok":true,"user":{"name":"","role":"user"},` + users + `}`},
		{"garbage", `not json`, `{"ok":true,"user":{"name":"","role":"user"},` + users + `}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/login", tc.body)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.JSONEq(t, tc.want, rec.Body.String())
		})
	}
}

func TestListUsers(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/users", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var users []userResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &users))
	require.Len(t, users, 2)
	assert.Equal(t, "alice", users[0].Name)
	assert.Equal(t, "bob", users[1].Name)
}

func TestWebShell(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "<title>Task Tracker</title>")

	rec = env.do(t, http.MethodGet, "/static/app.js", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/api/tasks")

	for _, path := range []string{"/static/missing.js", "/static/", "/static/../server.go"} {
		assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, path, "").Code, path)
	}
}

func TestRequestIDHeader(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/users", "")
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req.Header.Set(requestIDHeader, "trace-123")
	rec = httptest.NewRecorder()
	env.srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "trace-123", rec.Header().Get(requestIDHeader))
}

type failingPinger struct{}

func (failingPinger) PingContext(context.Context) error { return errors.New("disk on fire") }

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())

	env.srv.db = failingPinger{}
	rec = env.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStorageFailureIsInternalError(t *testing.T) {
	env := newTestEnv(t)

	sqlDB, err := env.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	for _, tc := range []struct{ method, path, body string }{
		{http.MethodGet, "/api/tasks", ""},
		{http.MethodPost, "/api/tasks", `{"title":"x"}`},
		{http.MethodGet, "/api/overdue", ""},
		{http.MethodGet, "/api/users", ""},
	} {
		rec := env.do(t, tc.method, tc.path, tc.body)
		assert.Equal(t, http.StatusInternalServerError, rec.Code, tc.path)
		assert.Equal(t, http.StatusText(http.StatusInternalServerError), errorMessage(t, rec))
	}
}

func jsonNumber(id uint) string {
	b, _ := json.Marshal(id)
	return string(b)
}
