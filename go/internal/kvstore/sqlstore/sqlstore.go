// Package sqlstore backs kvstore.Store with a Postgres table so contexts and ledgers
// survive across machines.
package sqlstore

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/roundsync/go/internal/kvstore"
	"github.com/mcdev12/roundsync/go/internal/kvstore/sqlstore/db"
	"github.com/mcdev12/roundsync/go/internal/sqlutil"
)

//go:embed schema.sql
var schema string

// Store implements kvstore.Store over the kv_entries table.
type Store struct {
	database *sql.DB
	queries  *db.Queries
}

var (
	_ kvstore.Store   = (*Store)(nil)
	_ kvstore.Updater = (*Store)(nil)
)

func New(database *sql.DB) *Store {
	return &Store{
		database: database,
		queries:  db.New(database),
	}
}

// Open connects with the lib/pq driver, pings and makes sure the table exists.
func Open(ctx context.Context, dsn string) (*Store, error) {
	database, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection: %w", err)
	}

	if err := database.PingContext(ctx); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := New(database)
	if err := s.EnsureSchema(ctx); err != nil {
		database.Close()
		return nil, err
	}

	log.Info().Msg("connected sql kv store")
	return s, nil
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.database.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply kv schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.database.Close()
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	row, err := s.queries.GetEntry(ctx, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, kvstore.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get kv entry %s: %w", key, err)
	}
	data, ok := sqlutil.FromNullRawMessage(row.Value)
	if !ok {
		return nil, kvstore.ErrNotFound
	}
	return data, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if !json.Valid(value) {
		return fmt.Errorf("value for %s is not valid JSON", key)
	}

	err := s.queries.UpsertEntry(ctx, db.UpsertEntryParams{
		Key:   key,
		Value: sqlutil.ToNullRawMessage(value),
	})
	if err != nil {
		return fmt.Errorf("failed to upsert kv entry %s: %w", key, err)
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, key string) error {
	if err := s.queries.DeleteEntry(ctx, key); err != nil {
		return fmt.Errorf("failed to delete kv entry %s: %w", key, err)
	}
	return nil
}

// Update locks the row for key and applies fn inside one transaction, so writers in other
// processes sharing the table queue behind each other. A missing key is created as a NULL
// placeholder first so there is a row to lock.
func (s *Store) Update(ctx context.Context, key string, fn kvstore.UpdateFunc) error {
	return sqlutil.InTx(ctx, s.database, s.queries.WithTx, func(q *db.Queries) error {
		if err := q.EnsureEntry(ctx, key); err != nil {
			return fmt.Errorf("failed to reserve kv entry %s: %w", key, err)
		}
		row, err := q.GetEntryForUpdate(ctx, key)
		if err != nil {
			return fmt.Errorf("failed to lock kv entry %s: %w", key, err)
		}

		current, found := sqlutil.FromNullRawMessage(row.Value)
		next, changed, err := fn(current, found)
		if err != nil || !changed {
			return err
		}
		if !json.Valid(next) {
			return fmt.Errorf("value for %s is not valid JSON", key)
		}

		return q.UpsertEntry(ctx, db.UpsertEntryParams{
			Key:   key,
			Value: sqlutil.ToNullRawMessage(next),
		})
	})
}

// Prefix lists every entry whose key starts with prefix. LIKE wildcards in prefix match
// literally.
func (s *Store) Prefix(ctx context.Context, prefix string) (map[string][]byte, error) {
	rows, err := s.queries.ListEntriesByPrefix(ctx, likePrefix(prefix))
	if err != nil {
		return nil, fmt.Errorf("failed to list kv entries: %w", err)
	}

	out := make(map[string][]byte, len(rows))
	for _, row := range rows {
		if data, ok := sqlutil.FromNullRawMessage(row.Value); ok {
			out[row.Key] = data
		}
	}
	return out, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePrefix(prefix string) string {
	return likeEscaper.Replace(prefix) + "%"
}
