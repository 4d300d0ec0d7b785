package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/mcdev12/roundsync/go/clients"
	"github.com/mcdev12/roundsync/go/internal/contextstore"
	"github.com/mcdev12/roundsync/go/internal/models"
	"github.com/mcdev12/roundsync/go/internal/phase"
	"github.com/mcdev12/roundsync/go/internal/roomsync"
)

// HostAPI defines what a host session needs from the room service.
type HostAPI interface {
	roomsync.Poller
	StartGame(ctx context.Context, roomID string) error
	PublishRoundResults(ctx context.Context, roomID string, roundNumber int) error
	NextRound(ctx context.Context, roomID string) error
	AssignIndicators(ctx context.Context, roomID string) error
	EndGame(ctx context.Context, roomID string) error
	GetGameSummary(ctx context.Context, roomID, playerID string) (*models.GameSummary, error)
}

// Host drives one room. Every control is fire-and-refresh: the call is made, then the
// synchronizer is woken to pick up the effect.
type Host struct {
	id       string
	api      HostAPI
	contexts *contextstore.Store
	cfg      Config
	clock    clockwork.Clock
	hc       models.HostContext
	syncer   *roomsync.Synchronizer

	mu      sync.RWMutex
	summary *models.GameSummary

	exitOnce sync.Once
	exited   chan struct{}
}

func NewHost(ctx context.Context, api HostAPI, contexts *contextstore.Store, cfg Config, opts ...Option) (*Host, error) {
	hc, err := contexts.LoadHost(ctx)
	if err != nil {
		return nil, err
	}

	o := buildOptions(opts)
	h := &Host{
		id:       uuid.NewString(),
		api:      api,
		contexts: contexts,
		cfg:      cfg,
		clock:    o.clock,
		hc:       *hc,
		syncer:   roomsync.New(api, hc.RoomID, "", cfg.Sync, roomsync.WithClock(o.clock)),
		exited:   make(chan struct{}),
	}

	log.Info().Str("session_id", h.id).Str("room_id", hc.RoomID).Msg("host session restored")
	return h, nil
}

func (h *Host) Context() models.HostContext {
	return h.hc
}

func (h *Host) Synchronizer() *roomsync.Synchronizer {
	return h.syncer
}

func (h *Host) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return h.syncer.Run(gctx)
	})
	g.Go(func() error {
		retryLoop(gctx, h.clock, h.cfg.retryDelay(), h.syncer.Changes(), h.exited, h.reconcile)
		cancel()
		return nil
	})
	return g.Wait()
}

func (h *Host) Done() <-chan struct{} {
	return h.exited
}

func (h *Host) reconcile(ctx context.Context) error {
	snap := h.syncer.State().Snapshot
	if !snap.Finished() {
		return nil
	}

	h.mu.RLock()
	have := h.summary != nil
	h.mu.RUnlock()
	if have {
		return nil
	}

	summary, err := h.api.GetGameSummary(ctx, h.hc.RoomID, "")
	if err != nil {
		log.Warn().Err(err).Str("session_id", h.id).Msg("failed to fetch game summary")
		return err
	}

	h.mu.Lock()
	h.summary = summary
	h.mu.Unlock()
	return nil
}

func (h *Host) StartGame(ctx context.Context) error {
	return h.trigger(ctx, "start game", func(c phase.Controls) bool { return c.CanStart },
		func(ctx context.Context, _ *models.RoomSnapshot) error {
			return h.api.StartGame(ctx, h.hc.RoomID)
		})
}

func (h *Host) PublishResults(ctx context.Context) error {
	return h.trigger(ctx, "publish results", func(c phase.Controls) bool { return c.CanPublish },
		func(ctx context.Context, snap *models.RoomSnapshot) error {
			return h.api.PublishRoundResults(ctx, h.hc.RoomID, snap.RoundNumber())
		})
}

func (h *Host) NextRound(ctx context.Context) error {
	return h.trigger(ctx, "next round", func(c phase.Controls) bool { return c.CanNextRound },
		func(ctx context.Context, _ *models.RoomSnapshot) error {
			return h.api.NextRound(ctx, h.hc.RoomID)
		})
}

func (h *Host) AssignIndicators(ctx context.Context) error {
	return h.trigger(ctx, "assign indicators", func(c phase.Controls) bool { return c.CanAssignIndicators },
		func(ctx context.Context, _ *models.RoomSnapshot) error {
			return h.api.AssignIndicators(ctx, h.hc.RoomID)
		})
}

func (h *Host) EndGame(ctx context.Context) error {
	return h.trigger(ctx, "end game", func(c phase.Controls) bool { return c.CanEnd },
		func(ctx context.Context, _ *models.RoomSnapshot) error {
			return h.api.EndGame(ctx, h.hc.RoomID)
		})
}

func (h *Host) trigger(ctx context.Context, what string, allowed func(phase.Controls) bool, call func(context.Context, *models.RoomSnapshot) error) error {
	snap := h.syncer.State().Snapshot
	if !allowed(phase.HostControls(snap, h.cfg.Rules)) {
		log.Debug().Str("session_id", h.id).Str("control", what).Msg("control not available")
		return ErrControlUnavailable
	}

	if err := call(ctx, snap); err != nil {
		log.Warn().Err(err).Str("session_id", h.id).Str("control", what).Msg("host control failed")
		return err
	}

	h.syncer.Wake()
	log.Info().Str("session_id", h.id).Str("room_id", h.hc.RoomID).Str("control", what).Msg("host control sent")
	return nil
}

func (h *Host) Resync() {
	h.syncer.Resync()
}

// Exit forgets the host context and stops Run.
func (h *Host) Exit(ctx context.Context) error {
	err := h.contexts.ClearHost(ctx)
	h.exitOnce.Do(func() { close(h.exited) })
	log.Info().Str("session_id", h.id).Str("room_id", h.hc.RoomID).Msg("host left room")
	return err
}

func (h *Host) View() HostView {
	st := h.syncer.State()
	snap := st.Snapshot

	h.mu.RLock()
	summary := h.summary
	h.mu.RUnlock()

	v := HostView{
		Host:          h.hc,
		Phase:         phase.DeriveHost(snap, h.cfg.Rules),
		Controls:      phase.HostControls(snap, h.cfg.Rules),
		Snapshot:      snap,
		Players:       phase.OrderPlayers(snap),
		Version:       st.Version,
		SyncError:     st.LastError,
		SyncErrorKind: st.ErrorKind,
		Summary:       summary,
		GeneratedAt:   h.clock.Now().UTC(),
	}
	if snap != nil && snap.Round != nil {
		v.SubmissionRatio = snap.Round.SubmissionRatio()
		v.RoundCategory = h.cfg.Rules.Category(snap.Round.RoundNumber)
	}
	return v
}

// HostView is everything the UI needs to draw the host console.
type HostView struct {
	Host            models.HostContext   `json:"host"`
	Phase           phase.HostPhase      `json:"phase"`
	Controls        phase.Controls       `json:"controls"`
	Snapshot        *models.RoomSnapshot `json:"snapshot"`
	Players         []phase.PlayerRow    `json:"players"`
	SubmissionRatio float64              `json:"submission_ratio"`
	RoundCategory   models.RoundCategory `json:"round_category,omitempty"`
	Version         int64                `json:"version"`
	SyncError       string               `json:"sync_error,omitempty"`
	SyncErrorKind   clients.ErrorKind    `json:"sync_error_kind,omitempty"`
	Summary         *models.GameSummary  `json:"summary,omitempty"`
	GeneratedAt     time.Time            `json:"generated_at"`
}
