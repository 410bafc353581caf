package service

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alexanderramin/waypoint/internal/llm"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_ClassifierLatency(t *testing.T) {
	m := NewMetrics()

	m.OnCallComplete(llm.CallEvent{Task: llm.TaskClassify, LatencyMs: 120, Success: true})
	m.OnCallComplete(llm.CallEvent{Task: llm.TaskClassify, LatencyMs: 1600, Success: false, ErrorCode: "timeout"})

	assert.Equal(t, 2, promtest.CollectAndCount(m.Classifier))
}

func TestMetrics_HandlerServesPrivateRegistry(t *testing.T) {
	m := NewMetrics()
	m.Triggers.WithLabelValues("weather").Inc()
	m.ObserveUseCase(context.Background(), UseCaseEvent{Name: "evaluate_trip", Duration: 15 * time.Millisecond, Success: true})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `waypoint_triggers_total{type="weather"} 1`)
	assert.Contains(t, string(body), `waypoint_use_case_duration_seconds_count{success="true",use_case="evaluate_trip"} 1`)
}

type captureObserver struct {
	events []UseCaseEvent
}

func (c *captureObserver) ObserveUseCase(_ context.Context, e UseCaseEvent) {
	c.events = append(c.events, e)
}

func TestUseCaseObserverOrNoop(t *testing.T) {
	assert.IsType(t, NoopUseCaseObserver{}, useCaseObserverOrNoop(nil))
	assert.IsType(t, NoopUseCaseObserver{}, useCaseObserverOrNoop([]UseCaseObserver{nil}))

	single := &captureObserver{}
	assert.Same(t, single, useCaseObserverOrNoop([]UseCaseObserver{nil, single}))

	a, b := &captureObserver{}, &captureObserver{}
	multi := useCaseObserverOrNoop([]UseCaseObserver{a, b})
	multi.ObserveUseCase(context.Background(), UseCaseEvent{Name: "x", Err: errors.New("boom")})
	assert.Len(t, a.events, 1)
	assert.Len(t, b.events, 1)
}
