package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/roundsync/go/clients/room_api_client"
	"github.com/mcdev12/roundsync/go/internal/contextstore"
	"github.com/mcdev12/roundsync/go/internal/models"
)

// EntryAPI defines the room service calls made before a session exists.
type EntryAPI interface {
	CreateRoom(ctx context.Context) (*room_api_client.RoomResponse, error)
	GetRoomStatus(ctx context.Context, code string) (*room_api_client.RoomStatusResponse, error)
	JoinRoom(ctx context.Context, code, nickname string) (*room_api_client.PlayerResponse, error)
}

// JoinRoom joins the room with code and stores the resulting player context. A finished
// room is refused before any join request is sent.
func JoinRoom(ctx context.Context, api EntryAPI, contexts *contextstore.Store, code, nickname string) (*models.PlayerContext, error) {
	code = strings.TrimSpace(code)
	nickname = strings.TrimSpace(nickname)
	if code == "" || nickname == "" {
		return nil, ErrInvalidEntry
	}

	status, err := api.GetRoomStatus(ctx, code)
	if err != nil {
		return nil, err
	}
	if status.Status == models.RoomStatusFinished {
		log.Warn().Str("code", code).Str("room_id", status.RoomID).Msg("refusing to join finished room")
		return nil, ErrRoomFinished
	}

	resp, err := api.JoinRoom(ctx, code, nickname)
	if err != nil {
		return nil, err
	}

	pc := models.PlayerContext{
		PlayerID:    resp.PlayerID,
		RoomID:      resp.RoomID,
		DisplayName: resp.DisplayName,
		RoomCode:    code,
	}
	if err := contexts.SavePlayer(ctx, pc); err != nil {
		return nil, fmt.Errorf("joined room but could not store context: %w", err)
	}

	log.Info().Str("room_id", pc.RoomID).Str("player_id", pc.PlayerID).Str("display_name", pc.DisplayName).Msg("joined room")
	return &pc, nil
}

// CreateRoom creates a room and stores the host context.
func CreateRoom(ctx context.Context, api EntryAPI, contexts *contextstore.Store) (*models.HostContext, error) {
	resp, err := api.CreateRoom(ctx)
	if err != nil {
		return nil, err
	}

	hc := models.HostContext{
		RoomID:       resp.RoomID,
		RoomCode:     resp.Code,
		HostPlayerID: resp.HostPlayerID,
	}
	if err := contexts.SaveHost(ctx, hc); err != nil {
		return nil, fmt.Errorf("created room but could not store context: %w", err)
	}

	log.Info().Str("room_id", hc.RoomID).Str("code", hc.RoomCode).Msg("created room")
	return &hc, nil
}
