package events

// CommandResultPayload is the payload for command_result events.
type CommandResultPayload struct {
	RequestID string      `json:"request_id,omitempty"`
	Command   string      `json:"command"`
	Data      interface{} `json:"data,omitempty"`
}

// NewCommandResultEvent creates the reply to a successful client command.
func NewCommandResultEvent(command, requestID string, data interface{}) *BaseEvent {
	return NewEvent(EventTypeCommandResult, CommandResultPayload{
		RequestID: requestID,
		Command:   command,
		Data:      data,
	})
}

// NewCommandErrorEvent creates the reply to a failed client command.
func NewCommandErrorEvent(requestID, code, message string) *BaseEvent {
	return NewEvent(EventTypeError, ErrorPayload{
		Code:      code,
		Message:   message,
		RequestID: requestID,
	})
}
