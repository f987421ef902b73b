package http

// DirectoryInfo describes one registered directory.
type DirectoryInfo struct {
	Path       string `json:"path"`
	Subscribed bool   `json:"subscribed"`
}

// StatusResponse is returned by GET /api/status.
type StatusResponse struct {
	State         string          `json:"state"`
	Status        string          `json:"status"`
	Directories   []DirectoryInfo `json:"directories"`
	Version       string          `json:"version"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	Clients       int             `json:"clients"`
}

// DirectoriesResponse is returned by GET /api/directories.
type DirectoriesResponse struct {
	Directories []DirectoryInfo `json:"directories"`
}

// DirectoryRequest is the body of POST /api/directories.
type DirectoryRequest struct {
	Path string `json:"path"`
}

// WatchingResponse is returned by the watching start and stop endpoints.
type WatchingResponse struct {
	State  string   `json:"state"`
	Failed []string `json:"failed,omitempty"`
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Path  string `json:"path,omitempty"`
}
