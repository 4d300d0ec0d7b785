package kvstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runStoreContract(t *testing.T, s Store) {
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, "a", []byte(`{"n":1}`)))
	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.JSONEq(t, `{"n":1}`, string(got))

	require.NoError(t, s.Set(ctx, "a", []byte(`{"n":2}`)))
	got, err = s.Get(ctx, "a")
	require.NoError(t, err)
	assert.JSONEq(t, `{"n":2}`, string(got))

	require.NoError(t, s.Remove(ctx, "a"))
	_, err = s.Get(ctx, "a")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Remove(ctx, "never-set"))

	runUpdateContract(t, s)
}

func runUpdateContract(t *testing.T, s Store) {
	ctx := context.Background()

	err := Update(ctx, s, "counter", func(current []byte, found bool) ([]byte, bool, error) {
		assert.False(t, found)
		return []byte(`1`), true, nil
	})
	require.NoError(t, err)

	err = Update(ctx, s, "counter", func(current []byte, found bool) ([]byte, bool, error) {
		assert.True(t, found)
		assert.JSONEq(t, `1`, string(current))
		return []byte(`2`), false, nil
	})
	require.NoError(t, err)

	got, err := s.Get(ctx, "counter")
	require.NoError(t, err)
	assert.JSONEq(t, `1`, string(got))

	boom := errors.New("boom")
	err = Update(ctx, s, "counter", func(current []byte, found bool) ([]byte, bool, error) {
		return []byte(`3`), true, boom
	})
	assert.ErrorIs(t, err, boom)

	got, err = s.Get(ctx, "counter")
	require.NoError(t, err)
	assert.JSONEq(t, `1`, string(got))

	require.NoError(t, s.Remove(ctx, "counter"))
}

// plainStore hides Update so the get-then-set fallback runs.
type plainStore struct{ Store }

func TestUpdateFallback(t *testing.T) {
	runUpdateContract(t, plainStore{NewMemoryStore()})
}

func TestMemoryStore(t *testing.T) {
	runStoreContract(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	runStoreContract(t, mustOpenFileStore(t, filepath.Join(t.TempDir(), "store.json")))
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "store.json")

	first := mustOpenFileStore(t, path)
	require.NoError(t, SetJSON(ctx, first, Key("indicator_seen", "room", "p1"), true))

	second := mustOpenFileStore(t, path)
	var seen bool
	require.NoError(t, GetJSON(ctx, second, "indicator_seen_room_p1", &seen))
	assert.True(t, seen)
}

func TestFileStoreRejectsInvalidJSON(t *testing.T) {
	s := mustOpenFileStore(t, filepath.Join(t.TempDir(), "store.json"))
	require.Error(t, s.Set(context.Background(), "k", []byte("not json")))

	_, err := s.Get(context.Background(), "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOpenFileStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o644))

	_, err := OpenFileStore(path)
	assert.Error(t, err)
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	value := []byte(`"abc"`)
	require.NoError(t, s.Set(ctx, "k", value))
	value[1] = 'z'

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `"abc"`, string(got))
	assert.ElementsMatch(t, []string{"k"}, s.Keys())
}

func mustOpenFileStore(t *testing.T, path string) *FileStore {
	t.Helper()
	s, err := OpenFileStore(path)
	require.NoError(t, err)
	return s
}
