// Package commands defines the commands WebSocket clients may send to lobo.
package commands

import "encoding/json"

// CommandType represents the type of command.
type CommandType string

const (
	CommandAddDirectory    CommandType = "add_directory"
	CommandRemoveDirectory CommandType = "remove_directory"
	CommandListDirectories CommandType = "list_directories"
	CommandStartWatching   CommandType = "start_watching"
	CommandStopWatching    CommandType = "stop_watching"
	CommandGetStatus       CommandType = "get_status"
)

// Command represents a command received from a client.
type Command struct {
	Command   CommandType     `json:"command"`
	RequestID string          `json:"request_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// DirectoryPayload is the payload for add_directory and remove_directory.
type DirectoryPayload struct {
	Path string `json:"path"`
}

// ParseCommand parses a JSON command from raw bytes.
func ParseCommand(data []byte) (*Command, error) {
	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		return nil, err
	}
	return &cmd, nil
}

// ParseDirectoryPayload parses the payload of a directory command.
func (c *Command) ParseDirectoryPayload() (*DirectoryPayload, error) {
	var p DirectoryPayload
	if err := json.Unmarshal(c.Payload, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
