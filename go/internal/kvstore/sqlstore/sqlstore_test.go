package sqlstore

import (
	"context"
	"os"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/roundsync/go/internal/kvstore"
)

// Runs only against a real database: ROUNDSYNC_TEST_DSN=postgres://... go test ./...
func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("ROUNDSYNC_TEST_DSN")
	if dsn == "" {
		t.Skip("ROUNDSYNC_TEST_DSN not set")
	}

	s, err := Open(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	prefix := "test_" + uuid.NewString() + "_"
	key := prefix + "ledger"
	lookalike := "testX" + strings.TrimPrefix(prefix, "test_") + "ledger"

	t.Cleanup(func() {
		_ = s.Remove(context.Background(), key)
		_ = s.Remove(context.Background(), lookalike)
	})

	_, err := s.Get(ctx, key)
	require.ErrorIs(t, err, kvstore.ErrNotFound)

	require.NoError(t, s.Set(ctx, key, []byte(`[{"round_number":1,"payoff":3}]`)))
	require.NoError(t, s.Set(ctx, key, []byte(`[{"round_number":1,"payoff":4}]`)))

	got, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"round_number":1,"payoff":4}]`, string(got))

	require.NoError(t, s.Set(ctx, lookalike, []byte(`[]`)))

	entries, err := s.Prefix(ctx, prefix)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Contains(t, entries, key)

	require.NoError(t, s.Remove(ctx, key))
	_, err = s.Get(ctx, key)
	assert.ErrorIs(t, err, kvstore.ErrNotFound)
}

func TestStoreUpdateSerializesWriters(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	key := "test_" + uuid.NewString() + "_counter"

	t.Cleanup(func() { _ = s.Remove(context.Background(), key) })

	const writers = 8
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Update(ctx, key, func(current []byte, found bool) ([]byte, bool, error) {
				n := 0
				if found {
					n, _ = strconv.Atoi(string(current))
				}
				return []byte(strconv.Itoa(n + 1)), true, nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(writers), string(got))
}

func TestLikePrefixEscapesWildcards(t *testing.T) {
	tests := []struct {
		prefix string
		want   string
	}{
		{prefix: "ledger_room-1_", want: `ledger\_room-1\_%`},
		{prefix: "100%", want: `100\%%`},
		{prefix: `a\b`, want: `a\\b%`},
		{prefix: "", want: "%"},
	}
	for _, tt := range tests {
		t.Run(tt.prefix, func(t *testing.T) {
			assert.Equal(t, tt.want, likePrefix(tt.prefix))
		})
	}
}
