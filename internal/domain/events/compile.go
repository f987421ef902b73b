package events

// CompilePayload is the payload for compile_* events.
type CompilePayload struct {
	Source     string `json:"source"`
	Output     string `json:"output"`
	DurationMS int64  `json:"duration_ms,omitempty"`
	Error      string `json:"error,omitempty"`
}

// NewCompileStartedEvent creates a new compile_started event.
func NewCompileStartedEvent(source, output string) *BaseEvent {
	return NewEvent(EventTypeCompileStarted, CompilePayload{
		Source: source,
		Output: output,
	})
}

// NewCompileFinishedEvent creates a compile_finished event, or a
// compile_failed event when err is non-nil.
func NewCompileFinishedEvent(source, output string, durationMS int64, err error) *BaseEvent {
	payload := CompilePayload{
		Source:     source,
		Output:     output,
		DurationMS: durationMS,
	}
	if err != nil {
		payload.Error = err.Error()
		return NewEvent(EventTypeCompileFailed, payload)
	}
	return NewEvent(EventTypeCompileFinished, payload)
}
