package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/nferrell/taskpool-api/internal/domain"
	"github.com/nferrell/taskpool-api/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTaskService implements TaskService for handler unit tests.
type fakeTaskService struct {
	submitted []string
	submitErr error
	stats     task.Stats
}

func (f *fakeTaskService) Submit(payload string) (*domain.Task, error) {
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	f.submitted = append(f.submitted, payload)
	return domain.NewTask(payload)
}

func (f *fakeTaskService) Stats() task.Stats {
	return f.stats
}

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
}

func newHandler(service TaskService) *TaskHandler {
	return NewTaskHandler(service, setupTestLogger())
}

func postTask(t *testing.T, handler *TaskHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/tasks", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler.CreateTask(w, req)
	return w
}

func TestCreateTask_Success(t *testing.T) {
	service := &fakeTaskService{}
	w := postTask(t, newHandler(service), `{"message": "process me"}`)

	require.Equal(t, http.StatusCreated, w.Code)

	var resp CreateTaskResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))

	id, err := uuid.Parse(resp.ID)
	assert.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)
	assert.Equal(t, []string{"process me"}, service.submitted)
}

func TestCreateTask_TrimsWhitespace(t *testing.T) {
	service := &fakeTaskService{}
	w := postTask(t, newHandler(service), `{"message": "  padded  "}`)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, []string{"padded"}, service.submitted)
}

func TestCreateTask_InvalidJSON(t *testing.T) {
	service := &fakeTaskService{}
	w := postTask(t, newHandler(service), `{not json`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, service.submitted)

	var resp map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.NotEmpty(t, resp["error"])
}

func TestCreateTask_MissingMessage(t *testing.T) {
	service := &fakeTaskService{}

	for _, body := range []string{`{}`, `{"message": ""}`, `{"message": "   "}`} {
		w := postTask(t, newHandler(service), body)
		assert.Equal(t, http.StatusBadRequest, w.Code, "body %q must be rejected", body)

		var resp map[string]string
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.NotEmpty(t, resp["error"])
	}
	assert.Empty(t, service.submitted)
}

func TestCreateTask_ServiceUnavailable(t *testing.T) {
	service := &fakeTaskService{submitErr: task.ErrDispatcherClosed}
	w := postTask(t, newHandler(service), `{"message": "anything"}`)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestGetStatistics_ReturnsSnapshot(t *testing.T) {
	service := &fakeTaskService{stats: task.Stats{
		ProcessedTasks:          10,
		Retries:                 4,
		Succeeded:               7,
		Failed:                  3,
		SuccessRate:             0.7,
		AverageProcessingTimeMs: 120,
		QueueLength:             2,
		IdleWorkers:             1,
		BusyWorkers:             3,
	}}

	req := httptest.NewRequest(http.MethodGet, "/statistics", nil)
	w := httptest.NewRecorder()
	newHandler(service).GetStatistics(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var got task.Stats
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Equal(t, service.stats, got)
}

func TestGetStatistics_FieldNames(t *testing.T) {
	service := &fakeTaskService{}

	req := httptest.NewRequest(http.MethodGet, "/statistics", nil)
	w := httptest.NewRecorder()
	newHandler(service).GetStatistics(w, req)

	var fields map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&fields))

	for _, name := range []string{
		"processedTasks", "retries", "succeeded", "failed", "successRate",
		"averageProcessingTimeMsPerAttempt", "queueLength", "idleWorkers", "busyWorkers",
	} {
		assert.Contains(t, fields, name)
	}
}
