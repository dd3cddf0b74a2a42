package metrics

import (
	"sync"
	"time"
)

// RunMetrics tracks agent runs and the events they stream.
type RunMetrics struct {
	mu sync.RWMutex

	// Run metrics
	TotalRuns   int64
	FailedRuns  int64
	RunDuration time.Duration

	// Stream metrics
	OpenStreams    int64
	ClosedStreams  int64
	StreamDuration time.Duration

	// Event metrics
	TotalEvents  int64
	ErrorEvents  int64
	ToolCalls    int64
	PromptTokens int64
	OutputTokens int64
	EventsPerApp map[string]int64
}

// NewRunMetrics creates a new RunMetrics instance
func NewRunMetrics() *RunMetrics {
	return &RunMetrics{EventsPerApp: map[string]int64{}}
}

// RecordRun records a finished run
func (m *RunMetrics) RecordRun(success bool, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.TotalRuns++
	if !success {
		m.FailedRuns++
	}
	m.RunDuration += duration
}

// RecordStream records an SSE client opening and, with a duration, closing
func (m *RunMetrics) RecordStream(closed bool, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !closed {
		m.OpenStreams++
		return
	}

	m.ClosedStreams++
	m.StreamDuration += duration
}

// RecordEvent records one event emitted by an app
func (m *RunMetrics) RecordEvent(app string, failed bool, toolCalls int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.TotalEvents++
	if failed {
		m.ErrorEvents++
	}
	m.ToolCalls += int64(toolCalls)
	m.EventsPerApp[app]++
}

// RecordTokens records model token usage
func (m *RunMetrics) RecordTokens(prompt, output int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.PromptTokens += prompt
	m.OutputTokens += output
}

// GetMetrics returns a snapshot of the current metrics
func (m *RunMetrics) GetMetrics() map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()

	perApp := make(map[string]int64, len(m.EventsPerApp))
	for app, count := range m.EventsPerApp {
		perApp[app] = count
	}

	return map[string]any{
		"total_runs":          m.TotalRuns,
		"failed_runs":         m.FailedRuns,
		"avg_run_duration":    average(m.RunDuration, m.TotalRuns),
		"open_streams":        m.OpenStreams - m.ClosedStreams,
		"avg_stream_duration": average(m.StreamDuration, m.ClosedStreams),
		"total_events":        m.TotalEvents,
		"error_events":        m.ErrorEvents,
		"tool_calls":          m.ToolCalls,
		"prompt_tokens":       m.PromptTokens,
		"output_tokens":       m.OutputTokens,
		"events_per_app":      perApp,
	}
}

func average(total time.Duration, count int64) float64 {
	if count == 0 {
		return 0
	}

	return total.Seconds() / float64(count)
}
