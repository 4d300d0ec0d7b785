package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/roundsync/go/clients/room_api_client"
	"github.com/mcdev12/roundsync/go/internal/contextstore"
	"github.com/mcdev12/roundsync/go/internal/dbconfig"
	"github.com/mcdev12/roundsync/go/internal/kvstore"
	"github.com/mcdev12/roundsync/go/internal/ledger"
	"github.com/mcdev12/roundsync/go/internal/notifier"
	"github.com/mcdev12/roundsync/go/internal/roomsync"
	"github.com/mcdev12/roundsync/go/internal/session"
)

// Services holds everything main runs. Exactly one of Player and Host is set.
type Services struct {
	API      *room_api_client.RoomApiClient
	Contexts *contextstore.Store
	Ledger   *ledger.Ledger
	Player   *session.Player
	Host     *session.Host
	Notifier notifier.Notifier
}

func setupServices(ctx context.Context, config *Config, kv kvstore.Store) (*Services, error) {
	// Store layer → Context/Ledger layer → Session layer → Push layer
	api := room_api_client.NewRoomApiClient(config.RoomAPI.BaseURL)
	contexts := contextstore.New(kv)
	payoffs := ledger.New(kv)

	services := &Services{
		API:      api,
		Contexts: contexts,
		Ledger:   payoffs,
	}

	var syncer *roomsync.Synchronizer
	switch config.Role {
	case RoleHost:
		if err := ensureHostContext(ctx, config, api, contexts); err != nil {
			return nil, err
		}
		host, err := session.NewHost(ctx, api, contexts, config.Session)
		if err != nil {
			return nil, fmt.Errorf("failed to restore host session: %w", err)
		}
		services.Host = host
		syncer = host.Synchronizer()

	default:
		if err := ensurePlayerContext(ctx, config, api, contexts); err != nil {
			return nil, err
		}
		player, err := session.NewPlayer(ctx, api, contexts, payoffs, config.Session)
		if err != nil {
			return nil, fmt.Errorf("failed to restore player session: %w", err)
		}
		services.Player = player
		syncer = player.Synchronizer()
	}

	services.Notifier = setupNotifier(config, syncer)
	return services, nil
}

// ensurePlayerContext joins with the configured code when no player context is stored.
func ensurePlayerContext(ctx context.Context, config *Config, api session.EntryAPI, contexts *contextstore.Store) error {
	_, err := contexts.LoadPlayer(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, contextstore.ErrNoContext) {
		return err
	}

	if config.Entry.RoomCode == "" {
		return fmt.Errorf("no stored player context and no room code configured: %w", err)
	}
	if _, err := session.JoinRoom(ctx, api, contexts, config.Entry.RoomCode, config.Entry.Nickname); err != nil {
		return fmt.Errorf("failed to join room %s: %w", config.Entry.RoomCode, err)
	}
	return nil
}

// ensureHostContext creates a room when asked to and no host context is stored.
func ensureHostContext(ctx context.Context, config *Config, api session.EntryAPI, contexts *contextstore.Store) error {
	_, err := contexts.LoadHost(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, contextstore.ErrNoContext) {
		return err
	}

	if !config.Entry.CreateRoom {
		return fmt.Errorf("no stored host context and create_room is off: %w", err)
	}
	hc, err := session.CreateRoom(ctx, api, contexts)
	if err != nil {
		return fmt.Errorf("failed to create room: %w", err)
	}
	log.Info().Str("code", hc.RoomCode).Msg("share this code with players")
	return nil
}

func setupNotifier(config *Config, syncer *roomsync.Synchronizer) notifier.Notifier {
	roomID := syncer.RoomID()

	switch config.Notifier.Kind {
	case "websocket":
		return notifier.NewWebSocketNotifier(config.Notifier.WebSocket, roomID, syncer)
	case "nats":
		return notifier.NewNATSNotifier(config.Notifier.NATS, roomID, syncer)
	case "pg":
		pgConfig := config.Notifier.Postgres
		if pgConfig.DSN == "" {
			pgConfig.DSN = config.Store.DSN
		}
		if pgConfig.DSN == "" {
			pgConfig.DSN = dbconfig.NewConfigFromEnv().DSN()
		}
		return notifier.NewPGNotifier(pgConfig, roomID, syncer)
	}

	log.Info().Msg("push notifications disabled, relying on polling")
	return nil
}
