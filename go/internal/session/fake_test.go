package session

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mcdev12/roundsync/go/clients"
	"github.com/mcdev12/roundsync/go/clients/room_api_client"
	"github.com/mcdev12/roundsync/go/internal/contextstore"
	"github.com/mcdev12/roundsync/go/internal/kvstore"
	"github.com/mcdev12/roundsync/go/internal/ledger"
	"github.com/mcdev12/roundsync/go/internal/models"
	"github.com/mcdev12/roundsync/go/internal/roomsync"
)

type submitCall struct {
	round  int
	choice models.Choice
}

// fakeRoom plays the room service. Every setSnapshot bumps the version so the next poll
// picks it up.
type fakeRoom struct {
	mu sync.Mutex

	version int64
	snap    *models.RoomSnapshot

	results     map[int]*models.RoundResult
	resultErrs  []error
	resultCalls int
	// resultGate holds GetRoundResult open until closed; resultEntered reports the hold.
	resultGate    chan struct{}
	resultEntered chan struct{}

	submitErr error
	submits   []submitCall

	messageErr error
	messages   []string

	indicator      string
	indicatorCalls int

	summary      *models.GameSummary
	summaryCalls int

	hostCalls []string

	roomStatus models.RoomStatus
	joinErr    error
	joinCalls  int
}

func newFakeRoom() *fakeRoom {
	return &fakeRoom{results: make(map[int]*models.RoundResult)}
}

func (f *fakeRoom) setSnapshot(snap *models.RoomSnapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.version++
	f.snap = snap
}

func (f *fakeRoom) PollState(ctx context.Context, roomID string, version int64, playerID string) (*models.PollResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.snap == nil || version >= f.version {
		return &models.PollResult{Version: version}, nil
	}
	return &models.PollResult{Version: f.version, HasUpdate: true, Snapshot: f.snap}, nil
}

func (f *fakeRoom) SubmitAction(ctx context.Context, roomID string, roundNumber int, playerID string, choice models.Choice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return f.submitErr
	}
	f.submits = append(f.submits, submitCall{round: roundNumber, choice: choice})
	return nil
}

func (f *fakeRoom) SendMessage(ctx context.Context, roomID string, roundNumber int, senderID, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.messageErr != nil {
		return f.messageErr
	}
	f.messages = append(f.messages, content)
	return nil
}

func (f *fakeRoom) GetRoundResult(ctx context.Context, roomID string, roundNumber int, playerID string) (*models.RoundResult, error) {
	f.mu.Lock()
	gate, entered := f.resultGate, f.resultEntered
	f.mu.Unlock()
	if gate != nil {
		select {
		case entered <- struct{}{}:
		default:
		}
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.resultCalls++
	if len(f.resultErrs) > 0 {
		err := f.resultErrs[0]
		f.resultErrs = f.resultErrs[1:]
		return nil, err
	}
	r, ok := f.results[roundNumber]
	if !ok {
		return nil, &clients.APIError{StatusCode: 404, Endpoint: "result"}
	}
	return r, nil
}

func (f *fakeRoom) GetPlayerIndicator(ctx context.Context, roomID, playerID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indicatorCalls++
	return f.indicator, nil
}

func (f *fakeRoom) GetGameSummary(ctx context.Context, roomID, playerID string) (*models.GameSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.summaryCalls++
	return f.summary, nil
}

func (f *fakeRoom) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hostCalls = append(f.hostCalls, call)
	return nil
}

func (f *fakeRoom) StartGame(ctx context.Context, roomID string) error {
	return f.record("start")
}

func (f *fakeRoom) PublishRoundResults(ctx context.Context, roomID string, roundNumber int) error {
	return f.record("publish:" + strconv.Itoa(roundNumber))
}

func (f *fakeRoom) NextRound(ctx context.Context, roomID string) error {
	return f.record("next")
}

func (f *fakeRoom) AssignIndicators(ctx context.Context, roomID string) error {
	return f.record("indicators")
}

func (f *fakeRoom) EndGame(ctx context.Context, roomID string) error {
	return f.record("end")
}

func (f *fakeRoom) CreateRoom(ctx context.Context) (*room_api_client.RoomResponse, error) {
	return &room_api_client.RoomResponse{RoomID: "room-1", Code: "ABCD", HostPlayerID: "host-1"}, nil
}

func (f *fakeRoom) GetRoomStatus(ctx context.Context, code string) (*room_api_client.RoomStatusResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	status := f.roomStatus
	if status == "" {
		status = models.RoomStatusWaiting
	}
	return &room_api_client.RoomStatusResponse{RoomID: "room-1", Code: code, Status: status, PlayerCount: 2}, nil
}

func (f *fakeRoom) JoinRoom(ctx context.Context, code, nickname string) (*room_api_client.PlayerResponse, error) {
	f.mu.Lock()
	f.joinCalls++
	f.mu.Unlock()
	if f.joinErr != nil {
		return nil, f.joinErr
	}
	return &room_api_client.PlayerResponse{PlayerID: "p1", RoomID: "room-1", DisplayName: nickname}, nil
}

func (f *fakeRoom) calls() (submits []submitCall, messages []string, host []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]submitCall(nil), f.submits...), append([]string(nil), f.messages...), append([]string(nil), f.hostCalls...)
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Sync = roomsync.Config{
		ActiveDelay:    5 * time.Millisecond,
		IdleDelay:      5 * time.Millisecond,
		RequestTimeout: time.Second,
	}
	cfg.RetryDelay = 5 * time.Millisecond
	return cfg
}

func playingSnapshot(round int, status models.RoundStatus) *models.RoomSnapshot {
	return &models.RoomSnapshot{
		Room: models.Room{ID: "room-1", Code: "ABCD", Status: models.RoomStatusPlaying, CurrentRound: round, PlayerCount: 2},
		Round: &models.Round{
			RoundNumber:  round,
			Status:       status,
			TotalPlayers: 2,
		},
		Players: []models.PlayerInfo{
			{PlayerID: "host-1", DisplayName: "Host", IsHost: true},
			{PlayerID: "p1", DisplayName: "Alice"},
			{PlayerID: "p2", DisplayName: "Bob"},
		},
		Message: models.AbsentMessage(),
	}
}

type playerHarness struct {
	api      *fakeRoom
	kv       *kvstore.MemoryStore
	contexts *contextstore.Store
	ledger   *ledger.Ledger
	player   *Player
	done     chan error
}

func startPlayer(t *testing.T, snap *models.RoomSnapshot) *playerHarness {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())

	h := &playerHarness{
		api:  newFakeRoom(),
		kv:   kvstore.NewMemoryStore(),
		done: make(chan error, 1),
	}
	h.contexts = contextstore.New(h.kv)
	h.ledger = ledger.New(h.kv)
	require.NoError(t, h.contexts.SavePlayer(ctx, models.PlayerContext{
		PlayerID:    "p1",
		RoomID:      "room-1",
		DisplayName: "Alice",
		RoomCode:    "ABCD",
	}))
	if snap != nil {
		h.api.setSnapshot(snap)
	}

	p, err := NewPlayer(ctx, h.api, h.contexts, h.ledger, testConfig())
	require.NoError(t, err)
	h.player = p

	go func() { h.done <- p.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-h.done:
		case <-time.After(2 * time.Second):
			t.Error("player did not stop")
		}
	})
	return h
}

func (h *playerHarness) view(t *testing.T) PlayerView {
	t.Helper()
	v, err := h.player.View(context.Background())
	require.NoError(t, err)
	return v
}

func (h *playerHarness) waitView(t *testing.T, cond func(PlayerView) bool) PlayerView {
	t.Helper()
	var last PlayerView
	require.Eventually(t, func() bool {
		v, err := h.player.View(context.Background())
		if err != nil {
			return false
		}
		last = v
		return cond(last)
	}, 2*time.Second, 5*time.Millisecond)
	return last
}
