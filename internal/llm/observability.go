package llm

import "go.uber.org/zap"

// LLMCallEvent records metadata about a single completion call.
type LLMCallEvent struct {
	Task      TaskType
	Model     string
	LatencyMs int64
	Success   bool
	ErrorCode string
}

// Observer receives an event after every completion call.
type Observer interface {
	OnCallComplete(event LLMCallEvent)
}

// LogObserver writes call events to a zap logger.
type LogObserver struct {
	log *zap.Logger
}

// NewLogObserver creates an Observer that logs to log.
func NewLogObserver(log *zap.Logger) *LogObserver {
	return &LogObserver{log: log.Named("llm")}
}

func (o *LogObserver) OnCallComplete(event LLMCallEvent) {
	fields := []zap.Field{
		zap.String("task", string(event.Task)),
		zap.String("model", event.Model),
		zap.Int64("latency_ms", event.LatencyMs),
	}
	if event.Success {
		o.log.Debug("llm call", fields...)
		return
	}
	o.log.Warn("llm call failed", append(fields, zap.String("error_code", event.ErrorCode))...)
}

// NoopObserver discards all events.
type NoopObserver struct{}

func (NoopObserver) OnCallComplete(LLMCallEvent) {}
