package jobs

import "time"

// Status is the lifecycle state of a maintenance job.
//
// Transitions are one-directional: queued -> running -> one of the
// terminal states. A job never leaves a terminal state.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
	StatusTimeout Status = "timeout"
)

// IsTerminal reports whether s is a final state.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusSuccess, StatusError, StatusTimeout:
		return true
	}
	return false
}

// Action is the kind of maintenance command a job runs.
type Action string

const (
	ActionHealthCheck Action = "health-check"
	ActionUpdate      Action = "update"
	ActionRestart     Action = "restart"
)

// Scope selects which part of the fleet an action targets.
type Scope string

const (
	ScopeAll      Scope = "all"
	ScopeSystem   Scope = "system"
	ScopeInstance Scope = "instance"
)

// Params carries the target of a job.
type Params struct {
	Scope    Scope  `json:"scope"`
	Instance string `json:"instance,omitempty"`
}

// Job is one asynchronous maintenance invocation tracked to a terminal
// outcome. Callers always receive copies; the registry owns the records.
type Job struct {
	ID         string     `json:"id"`
	Action     Action     `json:"action"`
	Params     Params     `json:"params"`
	Status     Status     `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	ExitCode   *int       `json:"exit_code,omitempty"`
	Output     string     `json:"output,omitempty"`
	Error      string     `json:"error,omitempty"`
}
