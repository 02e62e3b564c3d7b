package domain

// =============================================================================
// Status Events
// =============================================================================

// Level classifies a status event.
type Level string

const (
	LevelInfo    Level = "info"
	LevelError   Level = "error"
	LevelVerbose Level = "verbose" // build output lines from collaborators
)

// StatusEvent is one message on a deployment result stream.
type StatusEvent struct {
	Message     string      `json:"message"`
	Level       Level       `json:"level"`
	Deployments []Container `json:"deployments,omitempty"`
	Error       string      `json:"error,omitempty"`
	Log         string      `json:"log,omitempty"`
}

// InfoEvent creates an informational event.
func InfoEvent(message string) StatusEvent {
	return StatusEvent{Message: message, Level: LevelInfo}
}

// SuccessEvent creates the terminal event for a successful deployment.
func SuccessEvent(message string, deployments []Container) StatusEvent {
	return StatusEvent{
		Message:     message,
		Level:       LevelInfo,
		Deployments: deployments,
	}
}

// ErrorEvent creates the terminal event for a failed deployment.
func ErrorEvent(err, log string) StatusEvent {
	return StatusEvent{
		Message: err,
		Level:   LevelError,
		Error:   err,
		Log:     log,
	}
}

// VerboseEvent creates a progress event carrying one line of tool output.
func VerboseEvent(message string) StatusEvent {
	return StatusEvent{Message: message, Level: LevelVerbose}
}
