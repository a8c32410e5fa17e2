package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TWRT/sprint-manager/internal/client/calendar"
	"github.com/TWRT/sprint-manager/internal/client/identity"
	"github.com/TWRT/sprint-manager/internal/metrics"
	"github.com/TWRT/sprint-manager/internal/repository"
	"github.com/TWRT/sprint-manager/internal/service"
)

// fakeCalendar records calls and answers with a fixed status.
type fakeCalendar struct {
	mu      sync.Mutex
	status  int
	calls   []string
	nextId  int
	cookies []string
}

func (f *fakeCalendar) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, r.Method+" "+r.URL.Path)
	if cookie, err := r.Cookie("jwt"); err == nil {
		f.cookies = append(f.cookies, cookie.Value)
	}
	if f.status != http.StatusOK {
		w.WriteHeader(f.status)
		return
	}
	if r.URL.Path == "/new_task" {
		f.nextId++
		json.NewEncoder(w).Encode(map[string]any{
			"googleEventId": "evt-" + strconv.Itoa(f.nextId),
			"start":         map[string]string{"dateTime": "2018-12-31T17:41:00"},
		})
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (f *fakeCalendar) setStatus(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = status
}

func (f *fakeCalendar) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type testEnv struct {
	server   *httptest.Server
	calendar *fakeCalendar
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	identityServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie("jwt")
		if err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if cookie.Value == "outage-token" {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`<html>upstream down</html>`))
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"user_details": map[string]string{"sub": strings.TrimSuffix(cookie.Value, "-token")},
		})
	}))
	t.Cleanup(identityServer.Close)

	cal := &fakeCalendar{status: http.StatusOK}
	calendarServer := httptest.NewServer(cal)
	t.Cleanup(calendarServer.Close)

	db, err := repository.InitDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New()
	syncService := service.NewSyncService(
		calendar.NewCalendarClient(calendarServer.URL, "jwt", time.Second),
		repository.NewTaskRepository(db),
		m,
		logger,
	)

	router := SetupRouter(RouterDeps{
		SyncService:   syncService,
		Identity:      identity.NewIdentityClient(identityServer.URL, "jwt", time.Second),
		SessionCookie: "jwt",
		Logger:        logger,
		Metrics:       m,
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &testEnv{server: server, calendar: cal}
}

func (e *testEnv) do(t *testing.T, method, path, user, body string) (int, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, e.server.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.AddCookie(&http.Cookie{Name: "jwt", Value: user + "-token"})
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func (e *testEnv) tasks(t *testing.T, user string) []any {
	t.Helper()
	status, body := e.do(t, http.MethodGet, "/all", user, "")
	require.Equal(t, http.StatusOK, status)
	tasks, ok := body["tasks"].([]any)
	require.True(t, ok, "tasks must be a list: %v", body)
	return tasks
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	status, body := env.do(t, http.MethodGet, "/", "", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "200", body["status"])
}

func TestAuthGate(t *testing.T) {
	env := newTestEnv(t)

	routes := []struct{ method, path, body string }{
		{http.MethodGet, "/all", ""},
		{http.MethodPost, "/add", `{"task_name":"Sprint A","task_time":3}`},
		{http.MethodDelete, "/delete", `{"id":1}`},
		{http.MethodPut, "/update-task", `{"id":1,"task_name":"x","task_time":1}`},
		{http.MethodPatch, "/update-task", `{"id":1,"task_name":"x","task_time":1}`},
	}
	for _, route := range routes {
		status, body := env.do(t, route.method, route.path, "", route.body)
		assert.Equal(t, http.StatusUnauthorized, status, "%s %s", route.method, route.path)
		assert.Contains(t, body["error"], "Unauthenticated")
	}
	assert.Zero(t, env.calendar.callCount())
}

func TestCreateListDeleteRoundTrip(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.do(t, http.MethodPost, "/add", "alice", `{"task_name":"Sprint A","task_time":3}`)
	require.Equal(t, http.StatusOK, status, "%v", body)
	task := body["task"].(map[string]any)
	assert.Equal(t, "Sprint A", task["task_name"])
	assert.Equal(t, float64(3), task["task_time"])
	assert.Equal(t, "Mon Dec 31 17:41:00 2018", task["start_time"])
	assert.Equal(t, "alice", task["owner"])

	assert.Len(t, env.tasks(t, "alice"), 1)
	assert.Empty(t, env.tasks(t, "bob"))

	status, body = env.do(t, http.MethodDelete, "/delete", "alice", `{"id":`+jsonNumber(task["id"])+`}`)
	require.Equal(t, http.StatusOK, status, "%v", body)
	assert.Equal(t, "Successfully deleted task.", body["success"])
	assert.Empty(t, env.tasks(t, "alice"))

	assert.Equal(t, []string{"alice-token", "alice-token"}, env.calendar.cookies)
}

func TestCreateValidation(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.do(t, http.MethodPost, "/add", "alice", `{"task_name":"","task_time":""}`)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, body["error"], "Validation Error")
	assert.Zero(t, env.calendar.callCount())

	status, _ = env.do(t, http.MethodPost, "/add", "alice", `{"task_name":"Only a name","task_time":""}`)
	assert.Equal(t, http.StatusOK, status)
}

func TestCreateRemoteRejected(t *testing.T) {
	env := newTestEnv(t)
	env.calendar.setStatus(http.StatusForbidden)

	status, body := env.do(t, http.MethodPost, "/add", "alice", `{"task_name":"Sprint A","task_time":3}`)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Contains(t, body["error"], "Calendar Rejected")

	env.calendar.setStatus(http.StatusOK)
	assert.Empty(t, env.tasks(t, "alice"))
}

func TestDeleteRemoteRejectedKeepsTask(t *testing.T) {
	env := newTestEnv(t)

	_, body := env.do(t, http.MethodPost, "/add", "alice", `{"task_name":"Sprint A","task_time":3}`)
	id := jsonNumber(body["task"].(map[string]any)["id"])

	env.calendar.setStatus(http.StatusInternalServerError)
	status, _ := env.do(t, http.MethodDelete, "/delete", "alice", `{"id":`+id+`}`)
	assert.Equal(t, http.StatusInternalServerError, status)

	env.calendar.setStatus(http.StatusOK)
	assert.Len(t, env.tasks(t, "alice"), 1)
}

func TestCrossOwnerMutation(t *testing.T) {
	env := newTestEnv(t)

	_, body := env.do(t, http.MethodPost, "/add", "alice", `{"task_name":"Sprint A","task_time":3}`)
	id := jsonNumber(body["task"].(map[string]any)["id"])
	callsAfterCreate := env.calendar.callCount()

	status, body := env.do(t, http.MethodDelete, "/delete", "bob", `{"id":`+id+`}`)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, body["error"], "Not Found")

	status, _ = env.do(t, http.MethodPut, "/update-task", "bob", `{"id":`+id+`,"task_name":"mine now","task_time":1}`)
	assert.Equal(t, http.StatusNotFound, status)

	assert.Equal(t, callsAfterCreate, env.calendar.callCount())
	assert.Len(t, env.tasks(t, "alice"), 1)
}

func TestUpdateTask(t *testing.T) {
	env := newTestEnv(t)

	_, body := env.do(t, http.MethodPost, "/add", "alice", `{"task_name":"Sprint A","task_time":3}`)
	id := jsonNumber(body["task"].(map[string]any)["id"])

	status, body := env.do(t, http.MethodPatch, "/update-task", "alice", `{"id":"`+id+`","task_name":"Sprint A+","task_time":"5"}`)
	require.Equal(t, http.StatusOK, status, "%v", body)
	task := body["task"].(map[string]any)
	assert.Equal(t, "Sprint A+", task["task_name"])
	assert.Equal(t, float64(5), task["task_time"])

	env.calendar.setStatus(http.StatusBadGateway)
	status, _ = env.do(t, http.MethodPut, "/update-task", "alice", `{"id":`+id+`,"task_name":"lost","task_time":9}`)
	assert.Equal(t, http.StatusBadGateway, status)

	env.calendar.setStatus(http.StatusOK)
	tasks := env.tasks(t, "alice")
	require.Len(t, tasks, 1)
	assert.Equal(t, "Sprint A+", tasks[0].(map[string]any)["task_name"])
}

func TestMissingIdIsNotFound(t *testing.T) {
	env := newTestEnv(t)

	requests := []struct{ method, path, body string }{
		{http.MethodDelete, "/delete", `{}`},
		{http.MethodDelete, "/delete", `{"id":0}`},
		{http.MethodPut, "/update-task", `{"task_name":"x","task_time":1}`},
		{http.MethodPatch, "/update-task", `{"id":-3,"task_name":"x","task_time":1}`},
	}
	for _, req := range requests {
		status, body := env.do(t, req.method, req.path, "alice", req.body)
		assert.Equal(t, http.StatusNotFound, status, "%s %s %s", req.method, req.path, req.body)
		assert.Contains(t, body["error"], "Not Found")
	}
	assert.Zero(t, env.calendar.callCount())
}

func TestIdentityOutageIsBadGateway(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.do(t, http.MethodGet, "/all", "outage", "")
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Contains(t, body["error"], "Identity Unreachable")
	assert.Zero(t, env.calendar.callCount())
}

func jsonNumber(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}
