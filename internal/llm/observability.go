package llm

import "log/slog"

// CallEvent records metadata about a single model invocation. Prompts and
// responses are never included.
type CallEvent struct {
	Task      TaskType
	Model     string
	LatencyMs int64
	Success   bool
	ErrorCode string
}

// Observer receives events about model calls for logging and metrics.
type Observer interface {
	OnCallComplete(event CallEvent)
}

// LogObserver logs call events through slog.
type LogObserver struct {
	logger *slog.Logger
}

func NewLogObserver(logger *slog.Logger) *LogObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogObserver{logger: logger}
}

func (o *LogObserver) OnCallComplete(event CallEvent) {
	attrs := []any{
		"event", "llm_call",
		"task", string(event.Task),
		"model", event.Model,
		"latency_ms", event.LatencyMs,
		"success", event.Success,
	}
	if !event.Success {
		attrs = append(attrs, "error_code", event.ErrorCode)
		o.logger.Warn("llm call failed", attrs...)
		return
	}
	o.logger.Info("llm call", attrs...)
}

// MultiObserver fans one event out to several observers.
type MultiObserver []Observer

func (m MultiObserver) OnCallComplete(event CallEvent) {
	for _, o := range m {
		if o != nil {
			o.OnCallComplete(event)
		}
	}
}

// NoopObserver discards all events. Useful for tests.
type NoopObserver struct{}

func (NoopObserver) OnCallComplete(CallEvent) {}
