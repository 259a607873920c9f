package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayush/exercise-tracker/internal/logger"
	"github.com/ayush/exercise-tracker/internal/models"
	"github.com/ayush/exercise-tracker/internal/store"
	"github.com/ayush/exercise-tracker/internal/tracker"
)

type downPinger struct{}

func (downPinger) Ping(context.Context) error { return errors.New("down") }

// failingSyncStore reports an index sync failure after signalling on synced.
type failingSyncStore struct {
	*store.MemoryStore
	synced chan struct{}
}

func (s *failingSyncStore) SyncIndexes(context.Context) error {
	close(s.synced)
	return errors.New("indexes unavailable")
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestRouter(t *testing.T) (http.Handler, *store.MemoryStore) {
	t.Helper()
	dir := t.TempDir()
	index := filepath.Join(dir, "index.html")
	require.NoError(t, os.WriteFile(index, []byte("<h1>Exercise tracker</h1>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "style.css"), []byte("body{}"), 0o644))

	mem := store.NewMemoryStore()
	lg := logger.Discard()
	h := tracker.NewHandler(tracker.NewService(mem, lg), lg, index)
	return NewRouter(Options{PublicDir: dir, CORSOrigins: []string{"*"}}, h, mem, lg), mem
}

func doJSON(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func createUser(t *testing.T, h http.Handler, name string) models.User {
	t.Helper()
	rr := doJSON(t, h, http.MethodPost, "/api/users", `{"username":"`+name+`"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var u models.User
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &u))
	return u
}

func TestCreateUserDuplicatesAllowed(t *testing.T) {
	h, _ := newTestRouter(t)

	a := createUser(t, h, "sam")
	b := createUser(t, h, "sam")

	assert.Equal(t, "sam", a.Username)
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestCreateUserMissingUsername(t *testing.T) {
	h, mem := newTestRouter(t)

	rr := doJSON(t, h, http.MethodPost, "/api/users", `{}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.JSONEq(t, `{"error":"username is required"}`, rr.Body.String())

	users, _ := mem.ListUsers(context.Background())
	assert.Empty(t, users)
}

func TestCreateUserFromForm(t *testing.T) {
	h, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/users", strings.NewReader(url.Values{"username": {"kim"}}.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Body.String(), `"username":"kim"`)
}

func TestListUsers(t *testing.T) {
	h, _ := newTestRouter(t)

	rr := doJSON(t, h, http.MethodGet, "/api/users", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())

	u := createUser(t, h, "sam")
	rr = doJSON(t, h, http.MethodGet, "/api/users", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var users []models.User
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &users))
	assert.Equal(t, []models.User{u}, users)
}

func TestCreateExerciseDefaultsToToday(t *testing.T) {
	h, _ := newTestRouter(t)
	u := createUser(t, h, "sam")
	today := time.Now().Format("Mon Jan 02 2006")

	rr := doJSON(t, h, http.MethodPost, "/api/users/"+u.ID+"/exercises", `{"description":"run","duration":30}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp models.ExerciseResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, u.ID, resp.ID)
	assert.Equal(t, "sam", resp.Username)
	assert.Equal(t, "run", resp.Description)
	assert.Equal(t, 30, resp.Duration)
	// Either side of midnight is acceptable.
	assert.Contains(t, []string{today, time.Now().Format("Mon Jan 02 2006")}, resp.Date)
}

func TestCreateExerciseFormCoercesDuration(t *testing.T) {
	h, _ := newTestRouter(t)
	u := createUser(t, h, "sam")

	form := url.Values{"description": {"swim"}, "duration": {"45"}, "date": {"2024-01-01"}}
	req := httptest.NewRequest(http.MethodPost, "/api/users/"+u.ID+"/exercises", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.JSONEq(t,
		`{"id":"`+u.ID+`","username":"sam","duration":45,"description":"swim","date":"Mon Jan 01 2024"}`,
		rr.Body.String())
}

func TestCreateExerciseIntegralFloatDuration(t *testing.T) {
	h, _ := newTestRouter(t)
	u := createUser(t, h, "sam")

	rr := doJSON(t, h, http.MethodPost, "/api/users/"+u.ID+"/exercises", `{"description":"run","duration":30.0,"date":"2024-01-01"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp models.ExerciseResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 30, resp.Duration)
}

func TestCreateExerciseErrors(t *testing.T) {
	h, mem := newTestRouter(t)
	u := createUser(t, h, "sam")

	tests := []struct {
		name   string
		target string
		body   string
		status int
	}{
		{"missing description", "/api/users/" + u.ID + "/exercises", `{"duration":30}`, http.StatusBadRequest},
		{"missing duration", "/api/users/" + u.ID + "/exercises", `{"description":"run"}`, http.StatusBadRequest},
		{"non-numeric duration", "/api/users/" + u.ID + "/exercises", `{"description":"run","duration":"lots"}`, http.StatusBadRequest},
		{"duration over int32", "/api/users/" + u.ID + "/exercises", `{"description":"run","duration":9999999999}`, http.StatusBadRequest},
		{"fractional duration", "/api/users/" + u.ID + "/exercises", `{"description":"run","duration":12.5}`, http.StatusBadRequest},
		{"bad date", "/api/users/" + u.ID + "/exercises", `{"description":"run","duration":5,"date":"yesterday"}`, http.StatusBadRequest},
		{"unknown user", "/api/users/does-not-exist/exercises", `{"description":"run","duration":30}`, http.StatusNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := doJSON(t, h, http.MethodPost, tc.target, tc.body)
			require.Equal(t, tc.status, rr.Code, rr.Body.String())

			var body map[string]string
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}

	got, err := mem.ListExercises(context.Background(), store.ExerciseFilter{UID: u.ID, From: store.EpochDate, To: "9999-12-31"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLogs(t *testing.T) {
	h, _ := newTestRouter(t)
	u := createUser(t, h, "sam")

	for _, d := range []string{"2023-12-31", "2024-01-01", "2024-01-20", "2024-02-01"} {
		rr := doJSON(t, h, http.MethodPost, "/api/users/"+u.ID+"/exercises", `{"description":"run","duration":"25","date":"`+d+`"}`)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	}

	decode := func(rr *httptest.ResponseRecorder) models.LogResponse {
		t.Helper()
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		var resp models.LogResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, resp.Count, len(resp.Log))
		return resp
	}

	all := decode(doJSON(t, h, http.MethodGet, "/api/users/"+u.ID+"/logs", ""))
	assert.Equal(t, u.ID, all.ID)
	assert.Equal(t, "sam", all.Username)
	assert.Equal(t, 4, all.Count)
	assert.Equal(t, models.LogEntry{Description: "run", Duration: 25, Date: "Sun Dec 31 2023"}, all.Log[0])

	limited := decode(doJSON(t, h, http.MethodGet, "/api/users/"+u.ID+"/logs?limit=1", ""))
	assert.Equal(t, 1, limited.Count)

	ranged := decode(doJSON(t, h, http.MethodGet, "/api/users/"+u.ID+"/logs?from=2024-01-01&to=2024-01-31", ""))
	require.Equal(t, 2, ranged.Count)
	assert.Equal(t, "Mon Jan 01 2024", ranged.Log[0].Date)
	assert.Equal(t, "Sat Jan 20 2024", ranged.Log[1].Date)

	garbageLimit := decode(doJSON(t, h, http.MethodGet, "/api/users/"+u.ID+"/logs?limit=abc", ""))
	assert.Equal(t, 4, garbageLimit.Count)
}

func TestLogsErrors(t *testing.T) {
	h, _ := newTestRouter(t)
	u := createUser(t, h, "sam")

	rr := doJSON(t, h, http.MethodGet, "/api/users/unknown/logs", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = doJSON(t, h, http.MethodGet, "/api/users/"+u.ID+"/logs?to=Jan", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestIndexAndStatic(t *testing.T) {
	h, _ := newTestRouter(t)

	rr := doJSON(t, h, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Exercise tracker")

	rr = doJSON(t, h, http.MethodGet, "/public/style.css", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "body{}", rr.Body.String())

	rr = doJSON(t, h, http.MethodGet, "/style.css", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "body{}", rr.Body.String())

	rr = doJSON(t, h, http.MethodGet, "/nope.css", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestIndexServesPageWhenIndexSyncFails(t *testing.T) {
	dir := t.TempDir()
	index := filepath.Join(dir, "index.html")
	require.NoError(t, os.WriteFile(index, []byte("<h1>Exercise tracker</h1>"), 0o644))

	st := &failingSyncStore{MemoryStore: store.NewMemoryStore(), synced: make(chan struct{})}
	var out syncBuffer
	lg := logger.NewWriter(&out, "test", "WARN")
	h := NewRouter(Options{}, tracker.NewHandler(tracker.NewService(st, lg), lg, index), st, lg)

	rr := doJSON(t, h, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Exercise tracker")

	select {
	case <-st.synced:
	case <-time.After(5 * time.Second):
		t.Fatal("index sync never ran")
	}
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "index sync")
	}, 5*time.Second, 10*time.Millisecond)
}

func TestHealth(t *testing.T) {
	h, _ := newTestRouter(t)
	rr := doJSON(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())

	lg := logger.Discard()
	mem := store.NewMemoryStore()
	down := NewRouter(Options{}, tracker.NewHandler(tracker.NewService(mem, lg), lg, ""), downPinger{}, lg)
	rr = doJSON(t, down, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestTraceIDAndCORSHeaders(t *testing.T) {
	h, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req.Header.Set("X-Trace-ID", "trace-123")
	req.Header.Set("Origin", "http://example.test")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, "trace-123", rr.Header().Get("X-Trace-ID"))
	assert.NotEmpty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	h, _ := newTestRouter(t)
	doJSON(t, h, http.MethodGet, "/api/users", "")

	rr := doJSON(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `exercise_tracker_http_requests_total{method="GET",route="/api/users`)
}
