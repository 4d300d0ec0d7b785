package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/roundsync/go/internal/contextstore"
	"github.com/mcdev12/roundsync/go/internal/kvstore"
	"github.com/mcdev12/roundsync/go/internal/models"
	"github.com/mcdev12/roundsync/go/internal/phase"
)

type hostHarness struct {
	api      *fakeRoom
	contexts *contextstore.Store
	host     *Host
	done     chan error
}

func startHost(t *testing.T, snap *models.RoomSnapshot) *hostHarness {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())

	h := &hostHarness{
		api:      newFakeRoom(),
		contexts: contextstore.New(kvstore.NewMemoryStore()),
		done:     make(chan error, 1),
	}
	require.NoError(t, h.contexts.SaveHost(ctx, models.HostContext{
		RoomID:       "room-1",
		RoomCode:     "ABCD",
		HostPlayerID: "host-1",
	}))
	if snap != nil {
		h.api.setSnapshot(snap)
	}

	host, err := NewHost(ctx, h.api, h.contexts, testConfig())
	require.NoError(t, err)
	h.host = host

	go func() { h.done <- host.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-h.done:
		case <-time.After(2 * time.Second):
			t.Error("host did not stop")
		}
	})
	return h
}

func (h *hostHarness) waitView(t *testing.T, cond func(HostView) bool) HostView {
	t.Helper()
	var last HostView
	require.Eventually(t, func() bool {
		last = h.host.View()
		return cond(last)
	}, 2*time.Second, 5*time.Millisecond)
	return last
}

func waitingSnapshot(players int) *models.RoomSnapshot {
	snap := &models.RoomSnapshot{
		Room:    models.Room{ID: "room-1", Code: "ABCD", Status: models.RoomStatusWaiting, PlayerCount: players},
		Players: []models.PlayerInfo{{PlayerID: "host-1", DisplayName: "Host", IsHost: true}},
		Message: models.AbsentMessage(),
	}
	return snap
}

func TestNewHostWithoutContext(t *testing.T) {
	_, err := NewHost(context.Background(), newFakeRoom(), contextstore.New(kvstore.NewMemoryStore()), testConfig())
	assert.ErrorIs(t, err, contextstore.ErrNoContext)
}

func TestHostStartNeedsEvenPlayers(t *testing.T) {
	ctx := context.Background()
	h := startHost(t, waitingSnapshot(3))

	v := h.waitView(t, func(v HostView) bool { return v.Snapshot != nil })
	assert.Equal(t, phase.HostRoomWaiting, v.Phase)
	assert.False(t, v.Controls.CanStart)
	assert.ErrorIs(t, h.host.StartGame(ctx), ErrControlUnavailable)

	h.api.setSnapshot(waitingSnapshot(4))
	v = h.waitView(t, func(v HostView) bool { return v.Controls.CanStart })
	assert.Equal(t, phase.HostPreGame, v.Phase)

	require.NoError(t, h.host.StartGame(ctx))
	_, _, calls := h.api.calls()
	assert.Equal(t, []string{"start"}, calls)
}

func TestHostControlsFollowRound(t *testing.T) {
	ctx := context.Background()
	h := startHost(t, playingSnapshot(2, models.RoundStatusWaitingActions))

	v := h.waitView(t, func(v HostView) bool { return v.Snapshot != nil })
	assert.Equal(t, phase.HostRoundRunning, v.Phase)
	assert.ErrorIs(t, h.host.PublishResults(ctx), ErrControlUnavailable)
	assert.ErrorIs(t, h.host.NextRound(ctx), ErrControlUnavailable)
	assert.ErrorIs(t, h.host.AssignIndicators(ctx), ErrControlUnavailable)

	h.api.setSnapshot(playingSnapshot(2, models.RoundStatusReadyToPublish))
	h.waitView(t, func(v HostView) bool { return v.Controls.CanPublish })
	require.NoError(t, h.host.PublishResults(ctx))

	h.api.setSnapshot(playingSnapshot(2, models.RoundStatusCompleted))
	v = h.waitView(t, func(v HostView) bool { return v.Controls.CanNextRound })
	assert.Equal(t, phase.HostRoundResult, v.Phase)
	require.NoError(t, h.host.NextRound(ctx))
	require.NoError(t, h.host.EndGame(ctx))

	_, _, calls := h.api.calls()
	assert.Equal(t, []string{"publish:2", "next", "end"}, calls)
}

func TestHostIndicatorPhase(t *testing.T) {
	ctx := context.Background()
	snap := playingSnapshot(6, models.RoundStatusCompleted)
	h := startHost(t, snap)

	v := h.waitView(t, func(v HostView) bool { return v.Snapshot != nil })
	assert.Equal(t, phase.HostIndicatorPhase, v.Phase)
	require.NoError(t, h.host.AssignIndicators(ctx))

	assigned := playingSnapshot(6, models.RoundStatusCompleted)
	assigned.IndicatorsAssigned = true
	h.api.setSnapshot(assigned)

	v = h.waitView(t, func(v HostView) bool { return v.Snapshot != nil && v.Snapshot.IndicatorsAssigned })
	assert.Equal(t, phase.HostRoundResult, v.Phase)
	assert.ErrorIs(t, h.host.AssignIndicators(ctx), ErrControlUnavailable)
}

func TestHostViewOrdersPlayers(t *testing.T) {
	snap := playingSnapshot(1, models.RoundStatusWaitingActions)
	snap.Round.SubmittedActions = 1
	snap.Round.PlayerSubmissions = []models.PlayerSubmission{
		{PlayerID: "p1", Submitted: true},
		{PlayerID: "p2", Submitted: false},
	}
	h := startHost(t, snap)

	v := h.waitView(t, func(v HostView) bool { return v.Snapshot != nil })
	require.Len(t, v.Players, 2)
	assert.Equal(t, "p2", v.Players[0].PlayerID)
	assert.Equal(t, "p1", v.Players[1].PlayerID)
	assert.InDelta(t, 0.5, v.SubmissionRatio, 1e-9)
	assert.Equal(t, models.RoundCategoryBasic, v.RoundCategory)
}

func TestHostFetchesSummaryWhenFinished(t *testing.T) {
	h := startHost(t, nil)
	h.api.mu.Lock()
	h.api.summary = &models.GameSummary{Players: []models.PlayerSummary{{DisplayName: "Alice", TotalPayoff: 30}}}
	h.api.mu.Unlock()

	snap := playingSnapshot(10, models.RoundStatusCompleted)
	snap.Room.Status = models.RoomStatusFinished
	h.api.setSnapshot(snap)

	v := h.waitView(t, func(v HostView) bool { return v.Summary != nil })
	assert.Equal(t, phase.HostGameSummary, v.Phase)
	assert.Equal(t, phase.Controls{}, v.Controls)
}

func TestHostExitClearsContext(t *testing.T) {
	ctx := context.Background()
	h := startHost(t, waitingSnapshot(2))

	require.NoError(t, h.host.Exit(ctx))
	<-h.host.Done()

	_, err := h.contexts.LoadHost(ctx)
	assert.ErrorIs(t, err, contextstore.ErrNoContext)
}
