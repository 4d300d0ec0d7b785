package room_api_client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/roundsync/go/clients"
	"github.com/mcdev12/roundsync/go/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *RoomApiClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewRoomApiClient(srv.URL)
}

func TestPollStateDecodesSnapshot(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/rooms/room-1/state", r.URL.Path)
		assert.Equal(t, "4", r.URL.Query().Get("version"))
		assert.Equal(t, "p1", r.URL.Query().Get("player_id"))

		_, _ = io.WriteString(w, `{
			"version": 5,
			"has_update": true,
			"data": {
				"room": {"room_id": "room-1", "code": "123456", "status": "PLAYING", "player_count": 4},
				"round": {"round_number": 5, "status": "waiting_actions", "submitted_actions": 1, "total_players": 4, "your_choice": null},
				"message": {"from_player_id": "p2", "content": "🙂"},
				"indicators_assigned": false
			}
		}`)
	})

	result, err := client.PollState(context.Background(), "room-1", 4, "p1")
	require.NoError(t, err)
	require.True(t, result.HasUpdate)
	require.NotNil(t, result.Snapshot)

	assert.Equal(t, int64(5), result.Version)
	assert.Equal(t, models.RoomStatusPlaying, result.Snapshot.Room.Status)
	assert.Equal(t, 5, result.Snapshot.RoundNumber())
	assert.False(t, result.Snapshot.Round.HasChoice())
	assert.Equal(t, models.MessageFromOpponent, result.Snapshot.Message.Kind)
	assert.Equal(t, "🙂", result.Snapshot.Message.Content)
}

func TestPollStateWithoutUpdate(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"version": 3, "has_update": false}`)
	})

	result, err := client.PollState(context.Background(), "room-1", 3, "")
	require.NoError(t, err)
	assert.False(t, result.HasUpdate)
	assert.Nil(t, result.Snapshot)
}

func TestPollStateMalformedBodyIsDataError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"version": "x"`)
	})

	_, err := client.PollState(context.Background(), "room-1", 0, "p1")
	require.Error(t, err)
	assert.True(t, clients.IsData(err))
}

func TestSubmitActionApplicationError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/rooms/room-1/rounds/3/action", r.URL.Path)

		var body ActionSubmit
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "p1", body.PlayerID)
		assert.Equal(t, models.ChoiceTurn, body.Choice)

		w.WriteHeader(http.StatusConflict)
		_, _ = io.WriteString(w, "already submitted")
	})

	err := client.SubmitAction(context.Background(), "room-1", 3, "p1", models.ChoiceTurn)
	require.Error(t, err)
	assert.True(t, clients.IsApplication(err))
	assert.Equal(t, http.StatusConflict, clients.StatusCode(err))

	var apiErr *clients.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "already submitted", apiErr.Body)
}

func TestTransportErrorClassification(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := NewRoomApiClient(url)
	_, err := client.PollState(context.Background(), "room-1", 0, "")
	require.Error(t, err)
	assert.True(t, clients.IsTransport(err))
}

func TestGetRoundResultStampsRoundNumber(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/rooms/room-1/rounds/7/result", r.URL.Path)
		_, _ = io.WriteString(w, `{"opponent_display_name":"Fox 2","your_choice":"TURN","opponent_choice":"ACCELERATE","your_payoff":-3,"opponent_payoff":10}`)
	})

	result, err := client.GetRoundResult(context.Background(), "room-1", 7, "p1")
	require.NoError(t, err)
	assert.Equal(t, 7, result.RoundNumber)
	assert.Equal(t, -3, result.YourPayoff)
	assert.Equal(t, models.ChoiceAccelerate, result.OpponentChoice)
}

func TestToMessage(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    models.MessageKind
		content string
		wantErr bool
	}{
		{name: "empty", raw: ``, want: models.MessageAbsent},
		{name: "null", raw: `null`, want: models.MessageAbsent},
		{name: "empty string", raw: `""`, want: models.MessageAbsent},
		{name: "own string", raw: `"👋"`, want: models.MessageFromSelf, content: "👋"},
		{name: "from self", raw: `{"from_player_id":"p1","content":"a"}`, want: models.MessageFromSelf, content: "a"},
		{name: "from opponent", raw: `{"sender_id":"p9","content":"b"}`, want: models.MessageFromOpponent, content: "b"},
		{name: "empty object", raw: `{}`, want: models.MessageAbsent},
		{name: "number", raw: `42`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := toMessage(json.RawMessage(tt.raw), "p1")
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, msg.Kind)
			assert.Equal(t, tt.content, msg.Content)
		})
	}
}
