// Package events defines all event types used in lobo.
package events

import (
	"encoding/json"
	"time"
)

// EventType represents the type of event.
type EventType string

const (
	// Status surface
	EventTypeStatus EventType = "status"

	// Compile events
	EventTypeCompileStarted  EventType = "compile_started"
	EventTypeCompileFinished EventType = "compile_finished"
	EventTypeCompileFailed   EventType = "compile_failed"

	// Registry events
	EventTypeDirectoryAdded   EventType = "directory_added"
	EventTypeDirectoryRemoved EventType = "directory_removed"

	// Session events
	EventTypeWatchingStarted EventType = "watching_started"
	EventTypeWatchingStopped EventType = "watching_stopped"

	// Replies to WebSocket commands
	EventTypeCommandResult EventType = "command_result"

	EventTypeError EventType = "error"
)

// Event is the base interface for all events.
type Event interface {
	// Type returns the event type.
	Type() EventType

	// Timestamp returns when the event occurred.
	Timestamp() time.Time

	// ToJSON serializes the event to JSON.
	ToJSON() ([]byte, error)
}

// BaseEvent contains common fields for all events.
type BaseEvent struct {
	EventType EventType   `json:"event"`
	EventTime time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// Type returns the event type.
func (e *BaseEvent) Type() EventType {
	return e.EventType
}

// Timestamp returns when the event occurred.
func (e *BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

// ToJSON serializes the event to JSON.
func (e *BaseEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// NewEvent creates a new base event with the given type and payload.
func NewEvent(eventType EventType, payload interface{}) *BaseEvent {
	return &BaseEvent{
		EventType: eventType,
		EventTime: time.Now().UTC(),
		Payload:   payload,
	}
}

// StatusPayload is the payload for status events.
type StatusPayload struct {
	Text string `json:"text"`
}

// NewStatusEvent creates a new status event carrying the status line text.
func NewStatusEvent(text string) *BaseEvent {
	return NewEvent(EventTypeStatus, StatusPayload{Text: text})
}

// ErrorPayload is the payload for error events.
type ErrorPayload struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Path      string `json:"path,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// NewErrorEvent creates a new error event.
func NewErrorEvent(code, message, path string) *BaseEvent {
	return NewEvent(EventTypeError, ErrorPayload{
		Code:    code,
		Message: message,
		Path:    path,
	})
}
