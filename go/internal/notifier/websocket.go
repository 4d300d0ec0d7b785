package notifier

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

const (
	heartbeatPing = "ping"
	heartbeatPong = "pong"
)

// ErrGaveUp is returned once the reconnect budget is spent.
var ErrGaveUp = errors.New("push channel gave up reconnecting")

// WebSocketConfig holds configuration for the room event socket.
type WebSocketConfig struct {
	BaseURL              string        `yaml:"base_url"`
	HeartbeatInterval    time.Duration `yaml:"heartbeat_interval"`
	ReconnectDelay       time.Duration `yaml:"reconnect_delay"`
	MaxReconnectAttempts int           `yaml:"max_reconnect_attempts"` // negative retries forever
	HandshakeTimeout     time.Duration `yaml:"handshake_timeout"`
	WriteTimeout         time.Duration `yaml:"write_timeout"`
}

func DefaultWebSocketConfig() WebSocketConfig {
	return WebSocketConfig{
		BaseURL:              "ws://0.0.0.0:8000",
		HeartbeatInterval:    30 * time.Second,
		ReconnectDelay:       2 * time.Second,
		MaxReconnectAttempts: 5,
		HandshakeTimeout:     10 * time.Second,
		WriteTimeout:         10 * time.Second,
	}
}

// WebSocketNotifier keeps a socket open to /ws/<room_id>, sending a text heartbeat and
// reconnecting after drops.
type WebSocketNotifier struct {
	cfg        WebSocketConfig
	roomID     string
	dispatcher *Dispatcher
	clock      clockwork.Clock
	dialer     *websocket.Dialer
}

type WebSocketOption func(*WebSocketNotifier)

func WithWebSocketClock(clock clockwork.Clock) WebSocketOption {
	return func(n *WebSocketNotifier) {
		n.clock = clock
	}
}

func NewWebSocketNotifier(cfg WebSocketConfig, roomID string, waker Waker, opts ...WebSocketOption) *WebSocketNotifier {
	n := &WebSocketNotifier{
		cfg:        cfg,
		roomID:     roomID,
		dispatcher: NewDispatcher(roomID, waker),
		clock:      clockwork.NewRealClock(),
		dialer: &websocket.Dialer{
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

func (n *WebSocketNotifier) Dispatcher() *Dispatcher {
	return n.dispatcher
}

// Run connects and keeps reconnecting until ctx ends or the attempt budget runs out.
// Consecutive failed attempts count against the budget; a successful connection resets it.
func (n *WebSocketNotifier) Run(ctx context.Context) error {
	endpoint, err := WebSocketURL(n.cfg.BaseURL, n.roomID)
	if err != nil {
		return err
	}

	attempts := 0
	for {
		connected, err := n.connect(ctx, endpoint)
		if ctx.Err() != nil {
			log.Info().Str("room_id", n.roomID).Msg("push socket stopped")
			return nil
		}
		if connected {
			attempts = 0
		}

		if n.cfg.MaxReconnectAttempts >= 0 && attempts >= n.cfg.MaxReconnectAttempts {
			log.Error().
				Err(err).
				Str("room_id", n.roomID).
				Int("attempts", attempts).
				Msg("push socket gave up, falling back to polling only")
			return ErrGaveUp
		}
		attempts++

		log.Warn().
			Err(err).
			Str("room_id", n.roomID).
			Int("attempt", attempts).
			Dur("delay", n.cfg.ReconnectDelay).
			Msg("push socket closed, reconnecting")

		timer := n.clock.NewTimer(n.cfg.ReconnectDelay)
		select {
		case <-ctx.Done():
			stopAndDrainTimer(timer)
			return nil
		case <-timer.Chan():
		}
	}
}

// connect runs one connection until it drops. It reports whether the handshake succeeded.
func (n *WebSocketNotifier) connect(ctx context.Context, endpoint string) (bool, error) {
	conn, _, err := n.dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("dial %s: %w", endpoint, err)
	}

	log.Info().Str("room_id", n.roomID).Str("url", endpoint).Msg("push socket connected")

	connCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer func() {
		cancel()
		conn.Close()
		wg.Wait()
	}()

	var writeMu sync.Mutex
	wg.Add(2)
	go func() {
		defer wg.Done()
		n.heartbeat(connCtx, conn, &writeMu)
	}()
	go func() {
		defer wg.Done()
		<-connCtx.Done()
		writeMu.Lock()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		writeMu.Unlock()
		conn.Close()
	}()

	// Anything published while we were away is only discoverable by polling.
	n.dispatcher.Nudge()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return true, err
		}
		if string(message) == heartbeatPong {
			continue
		}
		n.dispatcher.Handle(message)
	}
}

func (n *WebSocketNotifier) heartbeat(ctx context.Context, conn *websocket.Conn, writeMu *sync.Mutex) {
	if n.cfg.HeartbeatInterval <= 0 {
		return
	}

	ticker := n.clock.NewTicker(n.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			writeMu.Lock()
			if n.cfg.WriteTimeout > 0 {
				conn.SetWriteDeadline(time.Now().Add(n.cfg.WriteTimeout))
			}
			err := conn.WriteMessage(websocket.TextMessage, []byte(heartbeatPing))
			writeMu.Unlock()
			if err != nil {
				log.Debug().Err(err).Str("room_id", n.roomID).Msg("heartbeat failed")
				return
			}
		}
	}
}

// WebSocketURL builds the room socket address from an http(s) or ws(s) base.
func WebSocketURL(base, roomID string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid websocket base url: %w", err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported websocket scheme %q", u.Scheme)
	}

	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws/" + roomID
	return u.String(), nil
}

func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
