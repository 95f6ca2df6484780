package model

// ExecutionStatusFailed labels a result the pipeline substituted after the
// sandbox call itself failed.
const ExecutionStatusFailed = "Execution Failed"

// ExecutionResult is embedded in a Solution. Error merges stderr and compile output.
type ExecutionResult struct {
	Status     string `json:"status"`
	StatusCode int    `json:"status_code"`
	Output     string `json:"output"`
	Error      string `json:"error"`
	Time       string `json:"time,omitempty"`
	Memory     int    `json:"memory,omitempty"`
	ExitCode   *int   `json:"exit_code,omitempty"`
	Token      string `json:"token,omitempty"`
	Polls      int    `json:"-"`
}

// DegradedResult is the placeholder attached when execution could not complete.
func DegradedResult(reason string) *ExecutionResult {
	return &ExecutionResult{Status: ExecutionStatusFailed, Error: reason}
}
