package workflow

import "fmt"

// Status is the closed set of workflow states. Every stage goes through
// Transition so an illegal move is an error instead of a silently
// inconsistent record.
type Status string

const (
	StatusPending    Status = "pending"
	StatusValidating Status = "validating"
	StatusValidated  Status = "validated"
	StatusRejected   Status = "rejected"
	StatusAnalyzing  Status = "analyzing"
	StatusAnalyzed   Status = "analyzed"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

var allStatuses = map[Status]struct{}{
	StatusPending:    {},
	StatusValidating: {},
	StatusValidated:  {},
	StatusRejected:   {},
	StatusAnalyzing:  {},
	StatusAnalyzed:   {},
	StatusCompleted:  {},
	StatusFailed:     {},
}

var transitions = map[Status][]Status{
	StatusPending:    {StatusValidating, StatusValidated, StatusRejected},
	StatusValidating: {StatusValidated, StatusRejected},
	StatusValidated:  {StatusAnalyzing},
	StatusAnalyzing:  {StatusAnalyzed, StatusFailed},
	StatusAnalyzed:   {StatusCompleted, StatusFailed, StatusPending},
	// Applying an improved body restarts the pipeline; a failed analysis may
	// be redelivered by the queue.
	StatusCompleted: {StatusPending},
	StatusFailed:    {StatusAnalyzing, StatusPending},
	StatusRejected:  {},
}

func ParseStatus(raw string) (Status, error) {
	status := Status(raw)
	if _, ok := allStatuses[status]; !ok {
		return "", fmt.Errorf("unknown workflow status %q", raw)
	}
	return status, nil
}

// IsTerminal reports whether no further stage transitions occur from s.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusRejected
}

func TerminalStatuses() []string {
	return []string{string(StatusCompleted), string(StatusFailed), string(StatusRejected)}
}

func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition validates the move and returns the target status.
func Transition(from, to Status) (Status, error) {
	if !CanTransition(from, to) {
		return from, fmt.Errorf("illegal workflow transition %s -> %s", from, to)
	}
	return to, nil
}
