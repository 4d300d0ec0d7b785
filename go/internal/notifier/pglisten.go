package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

// PGConfig holds configuration for the Postgres LISTEN transport.
type PGConfig struct {
	DSN                  string        `yaml:"dsn"`
	Channel              string        `yaml:"channel"`
	MinReconnectInterval time.Duration `yaml:"min_reconnect_interval"`
	MaxReconnectInterval time.Duration `yaml:"max_reconnect_interval"`
	PingInterval         time.Duration `yaml:"ping_interval"`
}

func DefaultPGConfig() PGConfig {
	return PGConfig{
		Channel:              "room_events",
		MinReconnectInterval: 10 * time.Second,
		MaxReconnectInterval: time.Minute,
		PingInterval:         90 * time.Second,
	}
}

// PGNotifier listens on a Postgres NOTIFY channel whose payloads are event envelopes.
type PGNotifier struct {
	cfg        PGConfig
	roomID     string
	dispatcher *Dispatcher
	clock      clockwork.Clock
}

func NewPGNotifier(cfg PGConfig, roomID string, waker Waker) *PGNotifier {
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = DefaultPGConfig().PingInterval
	}
	return &PGNotifier{
		cfg:        cfg,
		roomID:     roomID,
		dispatcher: NewDispatcher(roomID, waker),
		clock:      clockwork.NewRealClock(),
	}
}

func (n *PGNotifier) Run(ctx context.Context) error {
	l := pq.NewListener(
		n.cfg.DSN,
		n.cfg.MinReconnectInterval,
		n.cfg.MaxReconnectInterval,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				log.Error().Err(err).Msg("listener event")
			}
		},
	)
	defer l.Close()

	if err := l.Listen(n.cfg.Channel); err != nil {
		return fmt.Errorf("failed to listen to channel: %w", err)
	}

	log.Info().
		Str("channel", n.cfg.Channel).
		Str("room_id", n.roomID).
		Msg("listening for room notifications")

	ping := n.clock.NewTicker(n.cfg.PingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("pg notifier shutting down")
			return nil
		case note := <-l.Notify:
			if note == nil {
				// nil means the connection was re-established; events may have been missed
				n.dispatcher.Nudge()
				continue
			}
			n.dispatcher.Handle([]byte(note.Extra))
		case <-ping.Chan():
			if err := l.Ping(); err != nil {
				log.Error().Err(err).Msg("failed to ping listener")
			}
		}
	}
}
