package executor

const (
	StatusInQueue    = 1
	StatusProcessing = 2
	StatusAccepted   = 3
)

const StatusUnknownLabel = "Unknown"

var statusLabels = map[int]string{
	1:  "In Queue",
	2:  "Processing",
	3:  "Accepted",
	4:  "Wrong Answer",
	5:  "Time Limit Exceeded",
	6:  "Compilation Error",
	7:  "Runtime Error (SIGSEGV)",
	8:  "Runtime Error (SIGXFSZ)",
	9:  "Runtime Error (SIGFPE)",
	10: "Runtime Error (SIGABRT)",
	11: "Runtime Error (NZEC)",
	12: "Runtime Error (Other)",
	13: "Internal Error",
	14: "Exec Format Error",
}

func StatusLabel(code int) string {
	if label, ok := statusLabels[code]; ok {
		return label
	}
	return StatusUnknownLabel
}

// IsBusy reports the queued and running states.
func IsBusy(code int) bool {
	return code == StatusInQueue || code == StatusProcessing
}
