package http

import (
	"fmt"

	"github.com/brianly1003/lobo/internal/domain"
	"github.com/brianly1003/lobo/internal/domain/commands"
	"github.com/brianly1003/lobo/internal/domain/events"
	"github.com/brianly1003/lobo/internal/server/websocket"
)

// handleCommand executes a command sent over /ws and replies to the sender.
func (s *Server) handleCommand(client *websocket.Client, message []byte) {
	cmd, err := commands.ParseCommand(message)
	if err != nil {
		s.reply(client, events.NewCommandErrorEvent("", domain.ErrCodeInvalidPayload, "invalid command"))
		return
	}

	s.logger.Debug("Received command",
		"client_id", client.ID(),
		"command", string(cmd.Command),
	)

	result, err := s.execute(cmd)
	if err != nil {
		s.reply(client, events.NewCommandErrorEvent(cmd.RequestID, domain.ErrorCode(err), err.Error()))
		return
	}
	s.reply(client, events.NewCommandResultEvent(string(cmd.Command), cmd.RequestID, result))
}

func (s *Server) execute(cmd *commands.Command) (interface{}, error) {
	switch cmd.Command {
	case commands.CommandAddDirectory:
		p, err := cmd.ParseDirectoryPayload()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidPath, err)
		}
		dir, err := s.ctrl.AddDirectory(p.Path)
		if err != nil {
			return nil, err
		}
		return DirectoryInfo{Path: dir.Path, Subscribed: !dir.Handle.IsZero()}, nil

	case commands.CommandRemoveDirectory:
		p, err := cmd.ParseDirectoryPayload()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidPath, err)
		}
		removed, err := s.ctrl.RemoveDirectory(p.Path)
		if err != nil {
			return nil, err
		}
		return DirectoryInfo{Path: removed}, nil

	case commands.CommandListDirectories:
		return DirectoriesResponse{Directories: directoryInfos(s.ctrl.Directories())}, nil

	case commands.CommandStartWatching:
		err := s.ctrl.StartWatching()
		failed := domain.FailedPaths(err)
		if err != nil && len(failed) == 0 {
			return nil, err
		}
		return WatchingResponse{State: string(s.ctrl.State()), Failed: failed}, nil

	case commands.CommandStopWatching:
		if err := s.ctrl.StopWatching(); err != nil {
			s.logger.Warn("Errors while stopping watching", "error", err)
		}
		return WatchingResponse{State: string(s.ctrl.State())}, nil

	case commands.CommandGetStatus:
		return StatusResponse{
			State:       string(s.ctrl.State()),
			Status:      s.ctrl.StatusText(),
			Directories: directoryInfos(s.ctrl.Directories()),
			Version:     s.ctrl.Version(),
			Clients:     s.ws.ClientCount(),
		}, nil

	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownCommand, cmd.Command)
	}
}

func (s *Server) reply(client *websocket.Client, e events.Event) {
	data, err := e.ToJSON()
	if err != nil {
		s.logger.Error("Failed to encode reply", "error", err)
		return
	}
	client.Send(data)
}
