package events

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestBaseEvent_Type(t *testing.T) {
	tests := []struct {
		name      string
		eventType EventType
	}{
		{"status", EventTypeStatus},
		{"compile_started", EventTypeCompileStarted},
		{"compile_finished", EventTypeCompileFinished},
		{"compile_failed", EventTypeCompileFailed},
		{"directory_added", EventTypeDirectoryAdded},
		{"watching_started", EventTypeWatchingStarted},
		{"error", EventTypeError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := NewEvent(tt.eventType, nil)

			if event.Type() != tt.eventType {
				t.Errorf("Type() = %v, want %v", event.Type(), tt.eventType)
			}
		})
	}
}

func TestBaseEvent_Timestamp(t *testing.T) {
	before := time.Now().UTC()
	event := NewEvent(EventTypeStatus, nil)
	after := time.Now().UTC()

	ts := event.Timestamp()

	if ts.Before(before) {
		t.Errorf("Timestamp() = %v, should be >= %v", ts, before)
	}
	if ts.After(after) {
		t.Errorf("Timestamp() = %v, should be <= %v", ts, after)
	}
}

func TestStatusEvent_ToJSON(t *testing.T) {
	event := NewStatusEvent("Compiling: /site/main.css")

	jsonBytes, err := event.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	var parsed struct {
		Event   string `json:"event"`
		Payload struct {
			Text string `json:"text"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(jsonBytes, &parsed); err != nil {
		t.Fatalf("failed to parse JSON: %v", err)
	}

	if parsed.Event != string(EventTypeStatus) {
		t.Errorf("JSON event = %v, want %v", parsed.Event, EventTypeStatus)
	}
	if parsed.Payload.Text != "Compiling: /site/main.css" {
		t.Errorf("JSON payload.text = %q", parsed.Payload.Text)
	}
}

func TestNewCompileFinishedEvent(t *testing.T) {
	ok := NewCompileFinishedEvent("/a/b.less", "/a/b.css", 12, nil)
	if ok.Type() != EventTypeCompileFinished {
		t.Errorf("Type() = %v, want %v", ok.Type(), EventTypeCompileFinished)
	}

	failed := NewCompileFinishedEvent("/a/b.less", "/a/b.css", 3, errors.New("exit status 1"))
	if failed.Type() != EventTypeCompileFailed {
		t.Errorf("Type() = %v, want %v", failed.Type(), EventTypeCompileFailed)
	}
	payload, isCompile := failed.Payload.(CompilePayload)
	if !isCompile {
		t.Fatalf("payload type = %T, want CompilePayload", failed.Payload)
	}
	if payload.Error != "exit status 1" {
		t.Errorf("payload.Error = %q, want %q", payload.Error, "exit status 1")
	}
}

func TestEventTypes_Constants(t *testing.T) {
	types := []EventType{
		EventTypeStatus,
		EventTypeCompileStarted,
		EventTypeCompileFinished,
		EventTypeCompileFailed,
		EventTypeDirectoryAdded,
		EventTypeDirectoryRemoved,
		EventTypeWatchingStarted,
		EventTypeWatchingStopped,
		EventTypeCommandResult,
		EventTypeError,
	}

	seen := make(map[EventType]bool)
	for _, et := range types {
		if seen[et] {
			t.Fatalf("duplicate event type: %s", et)
		}
		seen[et] = true
	}
}

func TestCommandEvents_ToJSON(t *testing.T) {
	ok := NewCommandResultEvent("list_directories", "req-1", []string{"/srv/site"})
	data, err := ok.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	var decoded struct {
		Event   string `json:"event"`
		Payload struct {
			RequestID string   `json:"request_id"`
			Command   string   `json:"command"`
			Data      []string `json:"data"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Event != "command_result" || decoded.Payload.RequestID != "req-1" || len(decoded.Payload.Data) != 1 {
		t.Errorf("decoded = %+v", decoded)
	}

	failed := NewCommandErrorEvent("req-2", "NOT_FOUND", "directory is not registered")
	if failed.Type() != EventTypeError {
		t.Errorf("Type() = %s, want %s", failed.Type(), EventTypeError)
	}
	if p := failed.Payload.(ErrorPayload); p.RequestID != "req-2" || p.Code != "NOT_FOUND" {
		t.Errorf("payload = %+v", p)
	}
}
