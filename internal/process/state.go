package process

// Status is the lifecycle state of an execution session.
type Status int

const (
	// StatusIdle means no process has been started.
	StatusIdle Status = iota

	// StatusRunning means the child process is alive and its output is being streamed.
	StatusRunning

	// StatusTerminated means the process exited or was killed.
	StatusTerminated
)

// String returns a human-readable name for the status.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusRunning:
		return "running"
	case StatusTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
