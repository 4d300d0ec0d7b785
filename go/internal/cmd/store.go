package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/roundsync/go/internal/dbconfig"
	"github.com/mcdev12/roundsync/go/internal/kvstore"
	"github.com/mcdev12/roundsync/go/internal/kvstore/sqlstore"
)

// setupStore opens the configured key-value store. The returned func releases it.
func setupStore(ctx context.Context, config *Config) (kvstore.Store, func() error, error) {
	noop := func() error { return nil }

	switch config.Store.Driver {
	case "memory":
		log.Warn().Msg("using in-memory store, contexts and ledgers will not survive a restart")
		return kvstore.NewMemoryStore(), noop, nil

	case "file":
		fs, err := kvstore.OpenFileStore(config.Store.Path)
		if err != nil {
			return nil, nil, err
		}
		return fs, noop, nil

	case "sql":
		dsn := config.Store.DSN
		if dsn == "" {
			dbConfig := dbconfig.NewConfigFromEnv()
			dsn = dbConfig.DSN()
			log.Info().
				Str("host", dbConfig.Host).
				Int("port", dbConfig.Port).
				Str("database", dbConfig.Database).
				Msg("using database from environment")
		}
		s, err := sqlstore.Open(ctx, dsn)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	}

	return nil, nil, fmt.Errorf("unknown store driver %q", config.Store.Driver)
}
