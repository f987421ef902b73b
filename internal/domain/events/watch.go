package events

// DirectoryPayload is the payload for directory_added and directory_removed events.
type DirectoryPayload struct {
	Path     string `json:"path"`
	Watching bool   `json:"watching"`
}

// WatchingPayload is the payload for watching_started and watching_stopped events.
type WatchingPayload struct {
	Directories []string `json:"directories"`
	Failed      []string `json:"failed,omitempty"`
}

// NewDirectoryAddedEvent creates a new directory_added event.
func NewDirectoryAddedEvent(path string, watching bool) *BaseEvent {
	return NewEvent(EventTypeDirectoryAdded, DirectoryPayload{
		Path:     path,
		Watching: watching,
	})
}

// NewDirectoryRemovedEvent creates a new directory_removed event.
func NewDirectoryRemovedEvent(path string) *BaseEvent {
	return NewEvent(EventTypeDirectoryRemoved, DirectoryPayload{Path: path})
}

// NewWatchingStartedEvent creates a new watching_started event.
func NewWatchingStartedEvent(directories, failed []string) *BaseEvent {
	return NewEvent(EventTypeWatchingStarted, WatchingPayload{
		Directories: directories,
		Failed:      failed,
	})
}

// NewWatchingStoppedEvent creates a new watching_stopped event.
func NewWatchingStoppedEvent(directories []string) *BaseEvent {
	return NewEvent(EventTypeWatchingStopped, WatchingPayload{Directories: directories})
}
