package runner

// Outcome is the result of an execution that ran to completion, was
// cancelled, or timed out.
type Outcome struct {
	ExecutionID     string `json:"execution_id"`
	ExitCode        *int   `json:"exit_code,omitempty"` // nil when killed by a signal
	Signal          string `json:"signal,omitempty"`    // e.g. "SIGKILL"
	SignalNumber    int    `json:"signal_number,omitempty"`
	TimedOut        bool   `json:"timed_out"`
	DurationMs      int64  `json:"duration_ms"`
	Stdout          string `json:"stdout"` // may end in a partial UTF-8 sequence when truncated
	Stderr          string `json:"stderr"`
	StdoutTruncated bool   `json:"stdout_truncated"`
	StderrTruncated bool   `json:"stderr_truncated"`
	StdoutBytes     int    `json:"stdout_bytes"`
	StderrBytes     int    `json:"stderr_bytes"`
}
