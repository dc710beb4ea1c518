package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oregrid/internal/domain"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	s, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndHistory(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	loss := domain.RoundRecord{
		SessionID:     "session-a",
		RoundID:       100,
		Squares:       []uint8{3, 11, 19},
		BetPerBlock:   10_000_000,
		TotalBet:      30_000_000,
		Won:           false,
		WinningSquare: 7,
		NetProfit:     -30_000_000,
		SettledAt:     base,
	}
	win := domain.RoundRecord{
		SessionID:     "session-a",
		RoundID:       101,
		Squares:       []uint8{7},
		BetPerBlock:   20_000_000,
		TotalBet:      20_000_000,
		Won:           true,
		WinningSquare: 7,
		OreEarned:     2_000_000_000,
		SolEarned:     90_000_000,
		NetProfit:     40_000_000,
		SettledAt:     base.Add(time.Minute),
	}

	require.NoError(t, s.SaveRound(ctx, loss))
	require.NoError(t, s.SaveRound(ctx, win))

	got, err := s.History(ctx, "session-a")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, uint64(100), got[0].RoundID)
	assert.False(t, got[0].Won)
	assert.Equal(t, []uint8{3, 11, 19}, got[0].Squares)
	assert.Equal(t, int64(-30_000_000), got[0].NetProfit)

	assert.Equal(t, uint64(101), got[1].RoundID)
	assert.True(t, got[1].Won)
	assert.Equal(t, uint64(90_000_000), got[1].SolEarned)
	assert.Equal(t, uint64(2_000_000_000), got[1].OreEarned)
	assert.True(t, got[1].SettledAt.After(got[0].SettledAt))
}

func TestHistory_FiltersBySession(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.SaveRound(ctx, domain.RoundRecord{
		SessionID: "session-a", RoundID: 1, Squares: []uint8{0}, SettledAt: time.Now(),
	}))
	require.NoError(t, s.SaveRound(ctx, domain.RoundRecord{
		SessionID: "session-b", RoundID: 2, Squares: []uint8{1}, SettledAt: time.Now(),
	}))

	got, err := s.History(ctx, "session-b")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, uint64(2), got[0].RoundID)

	got, err = s.History(ctx, "session-missing")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRunSummary_Aggregates(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveRound(ctx, domain.RoundRecord{
		SessionID: "session-a", RoundID: 1, Squares: []uint8{0},
		Won: false, NetProfit: -30_000_000, SettledAt: base,
	}))
	require.NoError(t, s.SaveRound(ctx, domain.RoundRecord{
		SessionID: "session-a", RoundID: 2, Squares: []uint8{1},
		Won: true, NetProfit: 40_000_000, SettledAt: base.Add(time.Minute),
	}))

	run, err := s.Run(ctx, "session-a")
	require.NoError(t, err)
	assert.Equal(t, 2, run.Rounds)
	assert.Equal(t, 1, run.Wins)
	assert.Equal(t, 1, run.Losses)
	assert.Equal(t, int64(10_000_000), run.NetProfit)
	assert.Equal(t, base, run.StartedAt.UTC())
	assert.Equal(t, base.Add(time.Minute), run.LastSettledAt.UTC())

	_, err = s.Run(ctx, "session-missing")
	assert.Error(t, err)
}

func TestSquaresRoundTrip(t *testing.T) {
	assert.Equal(t, "3,11,19", joinSquares([]uint8{3, 11, 19}))
	assert.Equal(t, []uint8{3, 11, 19}, splitSquares("3,11,19"))
	assert.Equal(t, "", joinSquares(nil))
	assert.Nil(t, splitSquares(""))
}
