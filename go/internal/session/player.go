package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/mcdev12/roundsync/go/clients"
	"github.com/mcdev12/roundsync/go/internal/contextstore"
	"github.com/mcdev12/roundsync/go/internal/ledger"
	"github.com/mcdev12/roundsync/go/internal/models"
	"github.com/mcdev12/roundsync/go/internal/phase"
	"github.com/mcdev12/roundsync/go/internal/roomsync"
)

// PlayerAPI defines what a player session needs from the room service.
type PlayerAPI interface {
	roomsync.Poller
	SubmitAction(ctx context.Context, roomID string, roundNumber int, playerID string, choice models.Choice) error
	SendMessage(ctx context.Context, roomID string, roundNumber int, senderID, content string) error
	GetRoundResult(ctx context.Context, roomID string, roundNumber int, playerID string) (*models.RoundResult, error)
	GetPlayerIndicator(ctx context.Context, roomID, playerID string) (string, error)
	GetGameSummary(ctx context.Context, roomID, playerID string) (*models.GameSummary, error)
}

// Player is one player's session in one room.
type Player struct {
	id       string
	api      PlayerAPI
	contexts *contextstore.Store
	ledger   *ledger.Ledger
	cfg      Config
	clock    clockwork.Clock
	pc       models.PlayerContext

	syncer  *roomsync.Synchronizer
	tracker *phase.Tracker

	mu            sync.RWMutex
	indicator     string
	indicatorSeen bool
	summary       *models.GameSummary

	// exitMu orders ledger writes against Exit; once left is set nothing is recorded.
	exitMu   sync.RWMutex
	left     bool
	exitOnce sync.Once
	exited   chan struct{}
}

// NewPlayer restores the stored player context. It fails with contextstore.ErrNoContext
// when there is none, which means the user has to join again.
func NewPlayer(ctx context.Context, api PlayerAPI, contexts *contextstore.Store, payoffs *ledger.Ledger, cfg Config, opts ...Option) (*Player, error) {
	pc, err := contexts.LoadPlayer(ctx)
	if err != nil {
		return nil, err
	}

	o := buildOptions(opts)
	p := &Player{
		id:       uuid.NewString(),
		api:      api,
		contexts: contexts,
		ledger:   payoffs,
		cfg:      cfg,
		clock:    o.clock,
		pc:       *pc,
		syncer:   roomsync.New(api, pc.RoomID, pc.PlayerID, cfg.Sync, roomsync.WithClock(o.clock)),
		tracker:  phase.NewTracker(cfg.Rules),
		exited:   make(chan struct{}),
	}

	log.Info().
		Str("session_id", p.id).
		Str("room_id", pc.RoomID).
		Str("player_id", pc.PlayerID).
		Msg("player session restored")
	return p, nil
}

func (p *Player) Context() models.PlayerContext {
	return p.pc
}

// Synchronizer is exposed so push transports can wake it.
func (p *Player) Synchronizer() *roomsync.Synchronizer {
	return p.syncer
}

// Run polls and reacts to room state until ctx ends or the player exits.
func (p *Player) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return p.syncer.Run(gctx)
	})
	g.Go(func() error {
		retryLoop(gctx, p.clock, p.cfg.retryDelay(), p.syncer.Changes(), p.exited, p.reconcile)
		cancel()
		return nil
	})
	g.Go(func() error {
		select {
		case <-p.exited:
			cancel()
		case <-gctx.Done():
		}
		return nil
	})
	return g.Wait()
}

// Done is closed after Exit.
func (p *Player) Done() <-chan struct{} {
	return p.exited
}

// reconcile brings local state in line with the latest snapshot and runs the fetches the
// new state calls for.
func (p *Player) reconcile(ctx context.Context) error {
	st := p.syncer.State()
	if p.tracker.Apply(st.Snapshot) {
		log.Info().
			Str("session_id", p.id).
			Int("round", st.Snapshot.RoundNumber()).
			Msg("entered new round")
	}

	var errs []error
	if round, ok := p.tracker.PendingResult(); ok {
		if err := p.fetchResult(ctx, round); err != nil {
			errs = append(errs, err)
		}
	}
	if err := p.refreshIndicator(ctx, st.Snapshot); err != nil {
		errs = append(errs, err)
	}
	if err := p.refreshSummary(ctx, st.Snapshot); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// fetchResult loads the result of a completed round and records the payoff. The ledger is
// written before the result is cached so a failed write is retried with the next fetch.
func (p *Player) fetchResult(ctx context.Context, round int) error {
	result, err := p.api.GetRoundResult(ctx, p.pc.RoomID, round, p.pc.PlayerID)
	if err != nil {
		log.Warn().Err(err).Str("session_id", p.id).Int("round", round).Msg("failed to fetch round result")
		return err
	}

	p.exitMu.RLock()
	defer p.exitMu.RUnlock()
	if p.left {
		log.Debug().Str("session_id", p.id).Int("round", round).Msg("dropping result that arrived after exit")
		return nil
	}

	if _, err := p.ledger.Record(ctx, p.pc.RoomID, p.pc.PlayerID, result.RoundNumber, result.YourPayoff); err != nil {
		log.Error().Err(err).Str("session_id", p.id).Int("round", round).Msg("failed to record payoff")
		return err
	}

	if !p.tracker.StoreResult(result) {
		log.Debug().Str("session_id", p.id).Int("round", round).Msg("result arrived for a round no longer shown")
	}
	return nil
}

func (p *Player) refreshIndicator(ctx context.Context, snap *models.RoomSnapshot) error {
	if snap == nil || !snap.IndicatorsAssigned {
		return nil
	}

	p.mu.RLock()
	known := p.indicator != ""
	p.mu.RUnlock()
	if known {
		return nil
	}

	symbol := snap.IndicatorSymbol
	if symbol == "" {
		var err error
		symbol, err = p.api.GetPlayerIndicator(ctx, p.pc.RoomID, p.pc.PlayerID)
		if err != nil {
			log.Warn().Err(err).Str("session_id", p.id).Msg("failed to fetch indicator")
			return err
		}
	}

	seen, err := p.contexts.IndicatorSeen(ctx, p.pc.RoomID, p.pc.PlayerID)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.indicator = symbol
	p.indicatorSeen = seen
	p.mu.Unlock()

	log.Info().Str("session_id", p.id).Str("indicator", symbol).Msg("indicator assigned")
	return nil
}

func (p *Player) refreshSummary(ctx context.Context, snap *models.RoomSnapshot) error {
	if !snap.Finished() {
		return nil
	}

	p.mu.RLock()
	have := p.summary != nil
	p.mu.RUnlock()
	if have {
		return nil
	}

	summary, err := p.api.GetGameSummary(ctx, p.pc.RoomID, p.pc.PlayerID)
	if err != nil {
		log.Warn().Err(err).Str("session_id", p.id).Msg("failed to fetch game summary")
		return err
	}

	p.mu.Lock()
	p.summary = summary
	p.mu.Unlock()
	return nil
}

// SubmitAction sends choice for the current round. The phase moves to waiting_result as
// soon as the choice is accepted locally; a failed request rolls it back.
func (p *Player) SubmitAction(ctx context.Context, choice models.Choice) error {
	round, err := p.currentRound()
	if err != nil {
		return err
	}
	if err := p.tracker.BeginSubmit(round, choice); err != nil {
		return err
	}

	if err := p.api.SubmitAction(ctx, p.pc.RoomID, round, p.pc.PlayerID, choice); err != nil {
		p.tracker.SubmitFailed(round, err)
		log.Warn().
			Err(err).
			Str("session_id", p.id).
			Int("round", round).
			Str("kind", string(clients.Kind(err))).
			Msg("action submission failed, rolled back")
		return err
	}

	p.tracker.SubmitSucceeded(round)
	p.syncer.Wake()

	log.Info().Str("session_id", p.id).Int("round", round).Str("choice", string(choice)).Msg("action submitted")
	return nil
}

// SetMessageDraft keeps the text being composed for this round.
func (p *Player) SetMessageDraft(draft string) error {
	round, err := p.currentRound()
	if err != nil {
		return err
	}
	return p.tracker.SetDraft(round, draft)
}

// SendMessage sends content, or the stored draft when content is empty.
func (p *Player) SendMessage(ctx context.Context, content string) error {
	round, err := p.currentRound()
	if err != nil {
		return err
	}
	if content == "" {
		content = p.tracker.Frame().Local.MessageDraft
	}

	trimmed, err := p.tracker.BeginMessage(round, content)
	if err != nil {
		return err
	}

	if err := p.api.SendMessage(ctx, p.pc.RoomID, round, p.pc.PlayerID, trimmed); err != nil {
		p.tracker.MessageFailed(round, err)
		log.Warn().Err(err).Str("session_id", p.id).Int("round", round).Msg("message send failed")
		return err
	}

	p.tracker.MessageSent(round)
	p.syncer.Wake()
	return nil
}

// CloseIndicatorDialog remembers that the player saw their indicator.
func (p *Player) CloseIndicatorDialog(ctx context.Context) error {
	if err := p.contexts.MarkIndicatorSeen(ctx, p.pc.RoomID, p.pc.PlayerID); err != nil {
		return err
	}
	p.mu.Lock()
	p.indicatorSeen = true
	p.mu.Unlock()
	return nil
}

// Resync drops the cursor and snapshot, e.g. after the client was away.
func (p *Player) Resync() {
	p.syncer.Resync()
}

// Exit clears everything stored for this player and room and stops Run. A result fetch
// still in flight finishes without touching the ledger.
func (p *Player) Exit(ctx context.Context) error {
	p.exitMu.Lock()
	p.left = true
	p.exitMu.Unlock()
	p.exitOnce.Do(func() { close(p.exited) })

	var errs []error
	if err := p.ledger.Clear(ctx, p.pc.RoomID, p.pc.PlayerID); err != nil {
		errs = append(errs, err)
	}
	if err := p.contexts.ClearIndicatorSeen(ctx, p.pc.RoomID, p.pc.PlayerID); err != nil {
		errs = append(errs, err)
	}
	if err := p.contexts.ClearPlayer(ctx); err != nil {
		errs = append(errs, err)
	}

	log.Info().Str("session_id", p.id).Str("room_id", p.pc.RoomID).Msg("player exited room")
	return errors.Join(errs...)
}

func (p *Player) currentRound() (int, error) {
	frame := p.tracker.Frame()
	if frame.Snapshot == nil || frame.Snapshot.Round == nil {
		return 0, phase.ErrNoRound
	}
	return frame.Snapshot.Round.RoundNumber, nil
}

// View is a consistent read-only rendering input.
func (p *Player) View(ctx context.Context) (PlayerView, error) {
	frame := p.tracker.Frame()
	st := p.syncer.State()

	history, err := p.ledger.History(ctx, p.pc.RoomID, p.pc.PlayerID)
	if err != nil {
		return PlayerView{}, fmt.Errorf("failed to load payoff history: %w", err)
	}

	p.mu.RLock()
	indicator := p.indicator
	seen := p.indicatorSeen
	summary := p.summary
	p.mu.RUnlock()

	v := PlayerView{
		Player:              p.pc,
		Phase:               frame.Phase,
		Snapshot:            frame.Snapshot,
		Local:               frame.Local,
		OpponentStatus:      frame.Opponent,
		Version:             st.Version,
		SyncError:           st.LastError,
		SyncErrorKind:       st.ErrorKind,
		Indicator:           indicator,
		IndicatorDialogOpen: indicator != "" && !seen,
		PayoffHistory:       history,
		TotalPayoff:         ledger.Sum(history),
		Summary:             summary,
		Rank:                -1,
		GeneratedAt:         p.clock.Now().UTC(),
	}

	if frame.Opponent == phase.OpponentSent {
		v.OpponentMessage = frame.Snapshot.Message.Content
	}
	if n := frame.Snapshot.RoundNumber(); n > 0 {
		v.RoundCategory = p.cfg.Rules.Category(n)
		v.CooperationHint = p.cfg.Rules.IsCooperationRound(n)
	}
	if summary != nil {
		v.Rank = summary.RankOf(p.pc.DisplayName)
	}
	return v, nil
}

// PlayerView is everything the UI needs to draw the player screen.
type PlayerView struct {
	Player              models.PlayerContext  `json:"player"`
	Phase               phase.Phase           `json:"phase"`
	Snapshot            *models.RoomSnapshot  `json:"snapshot"`
	Local               phase.Local           `json:"local"`
	OpponentStatus      phase.OpponentMessage `json:"opponent_status"`
	OpponentMessage     string                `json:"opponent_message,omitempty"`
	RoundCategory       models.RoundCategory  `json:"round_category,omitempty"`
	CooperationHint     bool                  `json:"cooperation_hint"`
	Version             int64                 `json:"version"`
	SyncError           string                `json:"sync_error,omitempty"`
	SyncErrorKind       clients.ErrorKind     `json:"sync_error_kind,omitempty"`
	Indicator           string                `json:"indicator,omitempty"`
	IndicatorDialogOpen bool                  `json:"indicator_dialog_open"`
	PayoffHistory       []models.PayoffRecord `json:"payoff_history"`
	TotalPayoff         int                   `json:"total_payoff"`
	Summary             *models.GameSummary   `json:"summary,omitempty"`
	Rank                int                   `json:"rank"`
	GeneratedAt         time.Time             `json:"generated_at"`
}
