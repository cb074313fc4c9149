package diagnostics

import "time"

type Severity string

const (
	Info Severity = "info"
	Warn Severity = "warning"
	Err  Severity = "error"
)

// Diagnostic is a structured event pushed to instrumentation clients.
type Diagnostic struct {
	Severity Severity       `json:"severity"`
	Code     string         `json:"code"`
	Summary  string         `json:"summary"`
	Detail   string         `json:"detail,omitempty"`
	Evidence map[string]any `json:"evidence,omitempty"`
}

// ScanStats is a point-in-time sample of the refresh engine's
// profiling counters. Both durations describe the most recent scan
// invocation at the time of sampling.
type ScanStats struct {
	RuntimeNS int64     `json:"runtime_ns"`
	LatencyNS int64     `json:"latency_ns"`
	SampledAt time.Time `json:"sampled_at"`
}
