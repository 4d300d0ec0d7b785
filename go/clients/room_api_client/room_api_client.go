package room_api_client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/mcdev12/roundsync/go/clients"
	"github.com/mcdev12/roundsync/go/internal/models"
)

// RoomApiClient is a thin typed wrapper around the room/game service. It holds no state and
// makes no decisions; callers own retries and rollback.
type RoomApiClient struct {
	*clients.BaseClient
}

func NewRoomApiClient(baseURL string) *RoomApiClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	client := &RoomApiClient{
		BaseClient: clients.NewBaseClient(baseURL),
	}
	client.SetHeader("Accept", "application/json")
	return client
}

// Rooms

func (c *RoomApiClient) CreateRoom(ctx context.Context) (*RoomResponse, error) {
	var resp RoomResponse
	if err := c.PostJSON(ctx, RoomsEndpoint, struct{}{}, &resp); err != nil {
		return nil, fmt.Errorf("failed to create room: %w", err)
	}
	return &resp, nil
}

func (c *RoomApiClient) GetRoomStatus(ctx context.Context, code string) (*RoomStatusResponse, error) {
	var resp RoomStatusResponse
	if err := c.GetJSON(ctx, roomByCodePath(code), &resp); err != nil {
		return nil, fmt.Errorf("failed to get room status: %w", err)
	}
	return &resp, nil
}

func (c *RoomApiClient) JoinRoom(ctx context.Context, code, nickname string) (*PlayerResponse, error) {
	var resp PlayerResponse
	if err := c.PostJSON(ctx, joinPath(code), PlayerJoin{Nickname: nickname}, &resp); err != nil {
		return nil, fmt.Errorf("failed to join room: %w", err)
	}
	return &resp, nil
}

// PollState asks for anything newer than version. playerID is optional; when set the
// snapshot carries the player's own choice and message perspective.
func (c *RoomApiClient) PollState(ctx context.Context, roomID string, version int64, playerID string) (*models.PollResult, error) {
	endpoint := statePath(roomID, version, playerID)

	var resp StateResponse
	if err := c.GetJSON(ctx, endpoint, &resp); err != nil {
		return nil, err
	}

	result := &models.PollResult{
		Version:   resp.Version,
		HasUpdate: resp.HasUpdate,
	}
	if !resp.HasUpdate || resp.Data == nil {
		return result, nil
	}

	snapshot, err := toSnapshot(endpoint, resp.Data, playerID)
	if err != nil {
		return nil, err
	}
	result.Snapshot = snapshot
	return result, nil
}

// Host controls. Each is fire-and-refresh: the next poll observes the effect.

func (c *RoomApiClient) StartGame(ctx context.Context, roomID string) error {
	return c.trigger(ctx, roomPath(roomID, "/start"), "start game")
}

func (c *RoomApiClient) NextRound(ctx context.Context, roomID string) error {
	return c.trigger(ctx, roomPath(roomID, "/rounds/next"), "advance round")
}

func (c *RoomApiClient) EndGame(ctx context.Context, roomID string) error {
	return c.trigger(ctx, roomPath(roomID, "/end"), "end game")
}

func (c *RoomApiClient) AssignIndicators(ctx context.Context, roomID string) error {
	return c.trigger(ctx, roomPath(roomID, "/indicators/assign"), "assign indicators")
}

func (c *RoomApiClient) PublishRoundResults(ctx context.Context, roomID string, roundNumber int) error {
	return c.trigger(ctx, roundPath(roomID, roundNumber, "/publish"), "publish round results")
}

func (c *RoomApiClient) trigger(ctx context.Context, endpoint, what string) error {
	var resp ActionResponse
	if err := c.PostJSON(ctx, endpoint, nil, &resp); err != nil {
		return fmt.Errorf("failed to %s: %w", what, err)
	}
	return nil
}

// Rounds

func (c *RoomApiClient) SubmitAction(ctx context.Context, roomID string, roundNumber int, playerID string, choice models.Choice) error {
	var resp ActionResponse
	req := ActionSubmit{PlayerID: playerID, Choice: choice}
	if err := c.PostJSON(ctx, roundPath(roomID, roundNumber, "/action"), req, &resp); err != nil {
		return fmt.Errorf("failed to submit action: %w", err)
	}
	return nil
}

func (c *RoomApiClient) GetRoundResult(ctx context.Context, roomID string, roundNumber int, playerID string) (*models.RoundResult, error) {
	var resp models.RoundResult
	if err := c.GetJSON(ctx, withPlayer(roundPath(roomID, roundNumber, "/result"), playerID), &resp); err != nil {
		return nil, fmt.Errorf("failed to get round result: %w", err)
	}
	// The service does not echo the round; stamp it so callers can match it to a snapshot.
	resp.RoundNumber = roundNumber
	return &resp, nil
}

// Messages

func (c *RoomApiClient) SendMessage(ctx context.Context, roomID string, roundNumber int, senderID, content string) error {
	var resp ActionResponse
	req := MessageSubmit{SenderID: senderID, Content: content}
	if err := c.PostJSON(ctx, roundPath(roomID, roundNumber, "/message"), req, &resp); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// Indicators and summary

func (c *RoomApiClient) GetPlayerIndicator(ctx context.Context, roomID, playerID string) (string, error) {
	var resp IndicatorResponse
	if err := c.GetJSON(ctx, withPlayer(roomPath(roomID, "/indicator"), playerID), &resp); err != nil {
		return "", fmt.Errorf("failed to get player indicator: %w", err)
	}
	return resp.Symbol, nil
}

func (c *RoomApiClient) GetGameSummary(ctx context.Context, roomID, playerID string) (*models.GameSummary, error) {
	var resp models.GameSummary
	if err := c.GetJSON(ctx, withPlayer(roomPath(roomID, "/summary"), playerID), &resp); err != nil {
		return nil, fmt.Errorf("failed to get game summary: %w", err)
	}
	return &resp, nil
}

func toSnapshot(endpoint string, data *RoomStateData, playerID string) (*models.RoomSnapshot, error) {
	msg, err := toMessage(data.Message, playerID)
	if err != nil {
		return nil, &clients.DecodeError{Endpoint: endpoint, Raw: string(data.Message), Err: err}
	}

	snapshot := &models.RoomSnapshot{
		Room:               data.Room,
		Round:              data.Round,
		Players:            data.Players,
		Message:            msg,
		IndicatorsAssigned: data.IndicatorsAssigned,
	}
	if data.IndicatorSymbol != nil {
		snapshot.IndicatorSymbol = *data.IndicatorSymbol
	}
	return snapshot, nil
}

// toMessage turns the loosely typed message field into the tagged variant. A bare string is
// the service echoing the caller's own message back.
func toMessage(raw json.RawMessage, playerID string) (models.Message, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return models.AbsentMessage(), nil
	}

	switch trimmed[0] {
	case '"':
		var content string
		if err := json.Unmarshal(trimmed, &content); err != nil {
			return models.Message{}, fmt.Errorf("decode message string: %w", err)
		}
		if content == "" {
			return models.AbsentMessage(), nil
		}
		return models.Message{Kind: models.MessageFromSelf, SenderID: playerID, Content: content}, nil

	case '{':
		var wm wireMessage
		if err := json.Unmarshal(trimmed, &wm); err != nil {
			return models.Message{}, fmt.Errorf("decode message object: %w", err)
		}
		sender := wm.FromPlayerID
		if sender == "" {
			sender = wm.SenderID
		}
		if sender == "" && wm.Content == "" {
			return models.AbsentMessage(), nil
		}
		if playerID != "" && sender == playerID {
			return models.Message{Kind: models.MessageFromSelf, SenderID: sender, Content: wm.Content}, nil
		}
		return models.Message{Kind: models.MessageFromOpponent, SenderID: sender, Content: wm.Content}, nil

	default:
		return models.Message{}, fmt.Errorf("unexpected message shape %q", string(trimmed))
	}
}
