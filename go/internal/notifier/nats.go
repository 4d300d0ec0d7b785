package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// NATSConfig holds configuration for the NATS push transport.
type NATSConfig struct {
	URL           string        `yaml:"url"`
	SubjectPrefix string        `yaml:"subject_prefix"`
	MaxReconnects int           `yaml:"max_reconnects"`
	ReconnectWait time.Duration `yaml:"reconnect_wait"`
}

func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		SubjectPrefix: "rooms",
		MaxReconnects: -1, // Infinite
		ReconnectWait: 2 * time.Second,
	}
}

// Subject returns the per-room event subject, e.g. rooms.<room_id>.events.
func Subject(prefix, roomID string) string {
	return fmt.Sprintf("%s.%s.events", prefix, roomID)
}

// NATSNotifier subscribes to the room's event subject.
type NATSNotifier struct {
	cfg        NATSConfig
	roomID     string
	dispatcher *Dispatcher
}

func NewNATSNotifier(cfg NATSConfig, roomID string, waker Waker) *NATSNotifier {
	return &NATSNotifier{
		cfg:        cfg,
		roomID:     roomID,
		dispatcher: NewDispatcher(roomID, waker),
	}
}

func (n *NATSNotifier) Run(ctx context.Context) error {
	subject := Subject(n.cfg.SubjectPrefix, n.roomID)

	opts := []nats.Option{
		nats.Name("roundsync-" + n.roomID),
		nats.MaxReconnects(n.cfg.MaxReconnects),
		nats.ReconnectWait(n.cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
			n.dispatcher.Nudge()
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(n.cfg.URL, opts...)
	if err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}
	defer nc.Close()

	msgCh := make(chan *nats.Msg, 64)
	sub, err := nc.ChanSubscribe(subject, msgCh)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", subject, err)
	}
	defer sub.Unsubscribe()

	log.Info().Str("room_id", n.roomID).Str("subject", subject).Msg("subscribed to room events")

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("subject", subject).Msg("NATS notifier shutting down")
			return nil
		case msg := <-msgCh:
			n.dispatcher.Handle(msg.Data)
		}
	}
}
