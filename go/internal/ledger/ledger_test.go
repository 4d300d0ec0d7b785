package ledger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/roundsync/go/internal/kvstore"
	"github.com/mcdev12/roundsync/go/internal/models"
)

func newTestLedger() (*Ledger, *kvstore.MemoryStore, *clockwork.FakeClock) {
	kv := kvstore.NewMemoryStore()
	clock := clockwork.NewFakeClockAt(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	return New(kv, WithClock(clock)), kv, clock
}

func TestRecordIsFirstWriteWins(t *testing.T) {
	ctx := context.Background()
	l, _, _ := newTestLedger()

	written, err := l.Record(ctx, "r1", "p1", 4, -3)
	require.NoError(t, err)
	assert.True(t, written)

	written, err = l.Record(ctx, "r1", "p1", 4, 10)
	require.NoError(t, err)
	assert.False(t, written)

	written, err = l.Record(ctx, "r1", "p1", 4, -3)
	require.NoError(t, err)
	assert.False(t, written)

	history, err := l.History(ctx, "r1", "p1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, -3, history[0].Payoff)

	total, err := l.Total(ctx, "r1", "p1")
	require.NoError(t, err)
	assert.Equal(t, -3, total)
}

func TestHistoryIsOrderedByRound(t *testing.T) {
	ctx := context.Background()
	l, _, clock := newTestLedger()

	for _, r := range []struct{ round, payoff int }{{3, 6}, {1, 10}, {2, -3}} {
		_, err := l.Record(ctx, "r1", "p1", r.round, r.payoff)
		require.NoError(t, err)
		clock.Advance(time.Second)
	}

	history, err := l.History(ctx, "r1", "p1")
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{history[0].RoundNumber, history[1].RoundNumber, history[2].RoundNumber})
	assert.Equal(t, time.Date(2025, 3, 1, 12, 0, 1, 0, time.UTC), history[0].RecordedAt)

	total, err := l.Total(ctx, "r1", "p1")
	require.NoError(t, err)
	assert.Equal(t, 13, total)
}

func TestLedgersAreKeyedByRoomAndPlayer(t *testing.T) {
	ctx := context.Background()
	l, kv, _ := newTestLedger()

	_, err := l.Record(ctx, "r1", "p1", 1, 5)
	require.NoError(t, err)
	_, err = l.Record(ctx, "r2", "p1", 1, 7)
	require.NoError(t, err)
	_, err = l.Record(ctx, "r1", "p2", 1, 9)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{
		"chicken_game_payoff_history_r1_p1",
		"chicken_game_payoff_history_r2_p1",
		"chicken_game_payoff_history_r1_p2",
	}, kv.Keys())
	for _, key := range kv.Keys() {
		assert.Contains(t, key, KeyPrefix)
	}

	total, err := l.Total(ctx, "r2", "p1")
	require.NoError(t, err)
	assert.Equal(t, 7, total)
}

func TestClearOnlyAffectsOneLedger(t *testing.T) {
	ctx := context.Background()
	l, _, _ := newTestLedger()

	_, err := l.Record(ctx, "r1", "p1", 1, 5)
	require.NoError(t, err)
	_, err = l.Record(ctx, "r1", "p2", 1, 9)
	require.NoError(t, err)

	require.NoError(t, l.Clear(ctx, "r1", "p1"))

	history, err := l.History(ctx, "r1", "p1")
	require.NoError(t, err)
	assert.Empty(t, history)

	total, err := l.Total(ctx, "r1", "p2")
	require.NoError(t, err)
	assert.Equal(t, 9, total)
}

func TestLoadCollapsesStoredDuplicates(t *testing.T) {
	ctx := context.Background()
	l, kv, _ := newTestLedger()

	stored := []models.PayoffRecord{
		{RoundNumber: 2, Payoff: 1},
		{RoundNumber: 1, Payoff: 4},
		{RoundNumber: 2, Payoff: 100},
	}
	require.NoError(t, kvstore.SetJSON(ctx, kv, Key("r1", "p1"), stored))

	total, err := l.Total(ctx, "r1", "p1")
	require.NoError(t, err)
	assert.Equal(t, 5, total)
}

func TestConcurrentRecordsOfSameRound(t *testing.T) {
	ctx := context.Background()
	l, _, _ := newTestLedger()

	var wg sync.WaitGroup
	results := make([]bool, 20)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			written, err := l.Record(ctx, "r1", "p1", 6, i)
			assert.NoError(t, err)
			results[i] = written
		}(i)
	}
	wg.Wait()

	writes := 0
	for _, w := range results {
		if w {
			writes++
		}
	}
	assert.Equal(t, 1, writes)

	history, err := l.History(ctx, "r1", "p1")
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestRecordRejectsInvalidRound(t *testing.T) {
	l, _, _ := newTestLedger()
	_, err := l.Record(context.Background(), "r1", "p1", 0, 5)
	assert.Error(t, err)
}

func TestRecordSurvivesFileStoreReopen(t *testing.T) {
	ctx := context.Background()
	path := t.TempDir() + "/ledger.json"

	fs, err := kvstore.OpenFileStore(path)
	require.NoError(t, err)
	_, err = New(fs).Record(ctx, "r1", "p1", 4, -3)
	require.NoError(t, err)

	reopened, err := kvstore.OpenFileStore(path)
	require.NoError(t, err)
	l := New(reopened)

	written, err := l.Record(ctx, "r1", "p1", 4, 10)
	require.NoError(t, err)
	assert.False(t, written)

	total, err := l.Total(ctx, "r1", "p1")
	require.NoError(t, err)
	assert.Equal(t, -3, total)
}
