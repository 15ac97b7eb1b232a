package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/nferrell/taskpool-api/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestServer wires a real dispatcher behind the HTTP surface, mirroring
// the production router.
func newTestServer(t *testing.T, cfg task.DispatcherConfig, executor task.Executor) *httptest.Server {
	t.Helper()

	dispatcher := task.NewDispatcher(cfg, executor, nil, setupTestLogger())
	t.Cleanup(dispatcher.Close)

	handler := NewTaskHandler(dispatcher, setupTestLogger())

	r := chi.NewRouter()
	r.Post("/tasks", handler.CreateTask)
	r.Get("/statistics", handler.GetStatistics)

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return server
}

func submitTask(t *testing.T, server *httptest.Server, message string) {
	t.Helper()
	body := fmt.Sprintf(`{"message": %q}`, message)
	resp, err := http.Post(server.URL+"/tasks", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

func fetchStats(t *testing.T, server *httptest.Server) task.Stats {
	t.Helper()
	resp, err := http.Get(server.URL + "/statistics")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stats task.Stats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	return stats
}

func TestEndToEnd_SingleTaskSucceeds(t *testing.T) {
	cfg := task.DispatcherConfig{
		MaxWorkers:  2,
		MaxAttempts: 3,
		RetryDelay:  10 * time.Millisecond,
		IdleTimeout: 5 * time.Second,
	}
	server := newTestServer(t, cfg, task.NewSimulatedExecutor(10*time.Millisecond, 0))

	submitTask(t, server, "reliable work")

	require.Eventually(t, func() bool {
		return fetchStats(t, server).ProcessedTasks == 1
	}, 5*time.Second, 10*time.Millisecond)

	stats := fetchStats(t, server)
	assert.Equal(t, 1, stats.Succeeded)
	assert.Equal(t, 0, stats.Failed)
	assert.Equal(t, 0, stats.Retries)
	assert.Equal(t, 1.0, stats.SuccessRate)
}

func TestEndToEnd_TaskExhaustsRetries(t *testing.T) {
	cfg := task.DispatcherConfig{
		MaxWorkers:  2,
		MaxAttempts: 3,
		RetryDelay:  10 * time.Millisecond,
		IdleTimeout: 5 * time.Second,
	}
	server := newTestServer(t, cfg, task.NewSimulatedExecutor(5*time.Millisecond, 100))

	submitTask(t, server, "doomed work")

	require.Eventually(t, func() bool {
		return fetchStats(t, server).ProcessedTasks == 1
	}, 5*time.Second, 10*time.Millisecond)

	stats := fetchStats(t, server)
	assert.Equal(t, 0, stats.Succeeded)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 2, stats.Retries)
}

func TestEndToEnd_BoundedConcurrencyUnderBurst(t *testing.T) {
	const workerCap = 2
	const burst = 6

	cfg := task.DispatcherConfig{
		MaxWorkers:  workerCap,
		MaxAttempts: 1,
		RetryDelay:  10 * time.Millisecond,
		IdleTimeout: 5 * time.Second,
	}
	server := newTestServer(t, cfg, task.NewSimulatedExecutor(500*time.Millisecond, 0))

	for i := 0; i < burst; i++ {
		submitTask(t, server, fmt.Sprintf("burst-%d", i))
	}

	require.Eventually(t, func() bool {
		return fetchStats(t, server).BusyWorkers == workerCap
	}, 2*time.Second, 5*time.Millisecond)

	stats := fetchStats(t, server)
	assert.Equal(t, workerCap, stats.BusyWorkers)
	assert.GreaterOrEqual(t, stats.QueueLength, burst-workerCap)

	require.Eventually(t, func() bool {
		return fetchStats(t, server).ProcessedTasks == burst
	}, 10*time.Second, 20*time.Millisecond)
}
