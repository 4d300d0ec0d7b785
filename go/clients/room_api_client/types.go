package room_api_client

import (
	"encoding/json"

	"github.com/mcdev12/roundsync/go/internal/models"
)

type RoomResponse struct {
	RoomID       string `json:"room_id"`
	Code         string `json:"code"`
	HostPlayerID string `json:"host_player_id"`
}

type RoomStatusResponse struct {
	RoomID       string            `json:"room_id"`
	Code         string            `json:"code"`
	Status       models.RoomStatus `json:"status"`
	CurrentRound int               `json:"current_round"`
	PlayerCount  int               `json:"player_count"`
}

type PlayerJoin struct {
	Nickname string `json:"nickname"`
}

type PlayerResponse struct {
	PlayerID    string `json:"player_id"`
	RoomID      string `json:"room_id"`
	DisplayName string `json:"display_name"`
}

type ActionSubmit struct {
	PlayerID string        `json:"player_id"`
	Choice   models.Choice `json:"choice"`
}

type MessageSubmit struct {
	SenderID string `json:"sender_id"`
	Content  string `json:"content"`
}

type IndicatorResponse struct {
	Symbol string `json:"symbol"`
}

type ActionResponse struct {
	Status string `json:"status"`
}

// StateResponse is the raw body of GET /rooms/{id}/state.
type StateResponse struct {
	Version   int64          `json:"version"`
	HasUpdate bool           `json:"has_update"`
	Data      *RoomStateData `json:"data,omitempty"`
}

// RoomStateData is the wire form of a snapshot. Message stays raw because the service sends
// either a string, an object, or null.
type RoomStateData struct {
	Room               models.Room         `json:"room"`
	Round              *models.Round       `json:"round,omitempty"`
	Players            []models.PlayerInfo `json:"players,omitempty"`
	Message            json.RawMessage     `json:"message,omitempty"`
	IndicatorsAssigned bool                `json:"indicators_assigned"`
	IndicatorSymbol    *string             `json:"indicator_symbol,omitempty"`
}

type wireMessage struct {
	FromPlayerID string `json:"from_player_id"`
	SenderID     string `json:"sender_id"`
	Content      string `json:"content"`
}
