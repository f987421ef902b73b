package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/brianly1003/lobo/internal/domain"
	"github.com/brianly1003/lobo/internal/registry"
)

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"service":   "lobo",
		"timestamp": time.Now().Unix(),
	})
}

// handleStatus handles GET /api/status
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, StatusResponse{
		State:         string(s.ctrl.State()),
		Status:        s.ctrl.StatusText(),
		Directories:   directoryInfos(s.ctrl.Directories()),
		Version:       s.ctrl.Version(),
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Clients:       s.ws.ClientCount(),
	})
}

// handleListDirectories handles GET /api/directories
func (s *Server) handleListDirectories(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, DirectoriesResponse{
		Directories: directoryInfos(s.ctrl.Directories()),
	})
}

// handleAddDirectory handles POST /api/directories
func (s *Server) handleAddDirectory(w http.ResponseWriter, r *http.Request) {
	var req DirectoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: "invalid request body",
			Code:  domain.ErrCodeInvalidPayload,
		})
		return
	}

	dir, err := s.ctrl.AddDirectory(req.Path)
	if err != nil {
		s.respondError(w, err, dir.Path)
		return
	}

	s.respondJSON(w, http.StatusCreated, DirectoryInfo{
		Path:       dir.Path,
		Subscribed: !dir.Handle.IsZero(),
	})
}

// handleRemoveDirectory handles DELETE /api/directories?path=...
func (s *Server) handleRemoveDirectory(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		s.respondJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: "path query parameter is required",
			Code:  domain.ErrCodeInvalidPath,
		})
		return
	}

	removed, err := s.ctrl.RemoveDirectory(path)
	if err != nil {
		s.respondError(w, err, removed)
		return
	}

	s.respondJSON(w, http.StatusOK, DirectoryInfo{Path: removed})
}

// handleStartWatching handles POST /api/watching/start. Directories that
// could not be subscribed are listed in the reply; watching starts anyway.
func (s *Server) handleStartWatching(w http.ResponseWriter, r *http.Request) {
	err := s.ctrl.StartWatching()
	failed := domain.FailedPaths(err)
	if err != nil && len(failed) == 0 {
		s.respondError(w, err, "")
		return
	}

	s.respondJSON(w, http.StatusOK, WatchingResponse{
		State:  string(s.ctrl.State()),
		Failed: failed,
	})
}

// handleStopWatching handles POST /api/watching/stop
func (s *Server) handleStopWatching(w http.ResponseWriter, r *http.Request) {
	if err := s.ctrl.StopWatching(); err != nil {
		s.logger.Warn("Errors while stopping watching", "error", err)
	}
	s.respondJSON(w, http.StatusOK, WatchingResponse{State: string(s.ctrl.State())})
}

// respondError maps err to its HTTP status and error code.
func (s *Server) respondError(w http.ResponseWriter, err error, path string) {
	code := domain.ErrorCode(err)
	status := statusFor(code)

	var subErr *domain.SubscriptionError
	if errors.As(err, &subErr) {
		path = subErr.Path
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", "error", err, "path", path)
	}

	s.respondJSON(w, status, ErrorResponse{
		Error: err.Error(),
		Code:  code,
		Path:  path,
	})
}

func statusFor(code string) int {
	switch code {
	case domain.ErrCodeNotFound:
		return http.StatusNotFound
	case domain.ErrCodeAlreadyWatched:
		return http.StatusConflict
	case domain.ErrCodeSubscriptionFailed:
		return http.StatusUnprocessableEntity
	case domain.ErrCodeInvalidPath, domain.ErrCodeInvalidPayload:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func directoryInfos(entries []registry.WatchedDirectory) []DirectoryInfo {
	infos := make([]DirectoryInfo, 0, len(entries))
	for _, e := range entries {
		infos = append(infos, DirectoryInfo{Path: e.Path, Subscribed: !e.Handle.IsZero()})
	}
	return infos
}
