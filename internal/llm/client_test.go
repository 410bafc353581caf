package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(endpoint string, timeoutMs int) LLMConfig {
	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.Endpoint = endpoint
	cfg.Tasks = map[TaskType]TaskConfig{
		TaskClassify: {Temperature: 0, MaxTokens: 128, TimeoutMs: timeoutMs},
	}
	return cfg
}

func TestOllamaClient_Generate_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var req ollamaRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama3.2", req.Model)
		assert.False(t, req.Stream)
		assert.Equal(t, "json", req.Format)
		assert.Equal(t, "schema only", req.System)
		assert.Contains(t, req.Prompt, "get food")

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(ollamaResponse{Model: "llama3.2", Response: `{"action":"replace_category","category":"food"}`})
	}))
	defer srv.Close()

	client := NewOllamaClient(testConfig(srv.URL, 1000), NoopObserver{})
	resp, err := client.Generate(context.Background(), GenerateRequest{
		Task:         TaskClassify,
		SystemPrompt: "schema only",
		UserPrompt:   "get food",
		JSON:         true,
	})

	require.NoError(t, err)
	assert.Contains(t, resp.Text, "replace_category")
	assert.Equal(t, "llama3.2", resp.Model)
	assert.GreaterOrEqual(t, resp.LatencyMs, int64(0))
}

func TestOllamaClient_Generate_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	client := NewOllamaClient(testConfig(srv.URL, 50), NoopObserver{})
	_, err := client.Generate(context.Background(), GenerateRequest{Task: TaskClassify, UserPrompt: "test"})

	assert.ErrorIs(t, err, ErrTimeout)
}

func TestOllamaClient_Generate_Unavailable(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1", 1000) // nothing listening

	client := NewOllamaClient(cfg, NoopObserver{})
	_, err := client.Generate(context.Background(), GenerateRequest{Task: TaskClassify, UserPrompt: "test"})

	assert.ErrorIs(t, err, ErrOllamaUnavailable)
}

func TestOllamaClient_Generate_RetryOnServerError(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(ollamaResponse{Model: "llama3.2", Response: "ok"})
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL, 1000)
	cfg.MaxRetries = 1

	client := NewOllamaClient(cfg, NoopObserver{})
	resp, err := client.Generate(context.Background(), GenerateRequest{Task: TaskClassify, UserPrompt: "test"})

	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Text)
	assert.Equal(t, int32(2), attempts.Load())
}

func TestOllamaClient_Generate_ServerErrorExhaustsRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	client := NewOllamaClient(testConfig(srv.URL, 1000), NoopObserver{})
	_, err := client.Generate(context.Background(), GenerateRequest{Task: TaskClassify, UserPrompt: "test"})

	assert.ErrorIs(t, err, ErrRetryExhausted)
	assert.Equal(t, "RETRY_EXHAUSTED", ErrorCode(err))
}

func TestOllamaClient_Available(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	assert.True(t, NewOllamaClient(testConfig(srv.URL, 1000), nil).Available(context.Background()))
	assert.False(t, NewOllamaClient(testConfig("http://127.0.0.1:1", 1000), nil).Available(context.Background()))
}

func TestOllamaClient_ObserverReceivesOutcome(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	var events []CallEvent
	obs := observerFunc(func(e CallEvent) { events = append(events, e) })
	client := NewOllamaClient(testConfig(srv.URL, 50), MultiObserver{obs, NoopObserver{}})

	_, err := client.Generate(context.Background(), GenerateRequest{Task: TaskClassify, UserPrompt: "test"})

	assert.ErrorIs(t, err, ErrTimeout)
	require.Len(t, events, 1)
	assert.Equal(t, TaskClassify, events[0].Task)
	assert.False(t, events[0].Success)
	assert.Equal(t, "TIMEOUT", events[0].ErrorCode)
}

type observerFunc func(CallEvent)

func (f observerFunc) OnCallComplete(e CallEvent) { f(e) }
