package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		BaseBet:               10_000_000, // 0.01 SOL
		Multiplier:            2.0,
		MaxConsecutiveLosses:  5,
		WarnConsecutiveLosses: 3,
	}
}

func TestOnLoss_DoublesStake(t *testing.T) {
	cfg := testConfig()
	s := New(cfg.BaseBet)

	cont, warn := s.OnLoss(cfg)
	require.True(t, cont)
	assert.False(t, warn)
	assert.Equal(t, uint64(20_000_000), s.CurrentBetPerBlock)

	cont, _ = s.OnLoss(cfg)
	require.True(t, cont)
	assert.Equal(t, uint64(40_000_000), s.CurrentBetPerBlock)

	cont, _ = s.OnLoss(cfg)
	require.True(t, cont)
	assert.Equal(t, uint64(80_000_000), s.CurrentBetPerBlock)
	assert.Equal(t, 3, s.ConsecutiveLosses)
	assert.Equal(t, 3, s.LossCount)
}

func TestOnLoss_FractionalMultiplierRounds(t *testing.T) {
	cfg := testConfig()
	cfg.Multiplier = 1.5
	s := New(1_000_001)

	cont, _ := s.OnLoss(cfg)
	require.True(t, cont)
	// round(1_000_001 * 1.5) = 1_500_002
	assert.Equal(t, uint64(1_500_002), s.CurrentBetPerBlock)
}

func TestOnLoss_WarnsAtAndPastThreshold(t *testing.T) {
	cfg := testConfig()
	s := New(cfg.BaseBet)

	_, warn := s.OnLoss(cfg)
	assert.False(t, warn)
	_, warn = s.OnLoss(cfg)
	assert.False(t, warn)
	_, warn = s.OnLoss(cfg)
	assert.True(t, warn, "warn exactly at threshold")
	_, warn = s.OnLoss(cfg)
	assert.True(t, warn, "warn past threshold")
}

func TestOnLoss_CapResetsAndStops(t *testing.T) {
	cfg := testConfig()
	s := New(cfg.BaseBet)
	s.RecordBet(50_000_000)

	var cont bool
	for i := 0; i < cfg.MaxConsecutiveLosses; i++ {
		cont, _ = s.OnLoss(cfg)
	}

	assert.False(t, cont, "betting stops at the loss cap")
	assert.Equal(t, cfg.BaseBet, s.CurrentBetPerBlock, "stake back to base")
	assert.Equal(t, 0, s.ConsecutiveLosses)
	assert.Equal(t, uint64(0), s.CurrentCycleBetLamports)
	assert.Equal(t, uint64(50_000_000), s.TotalBetLamports, "lifetime total untouched")
	assert.Equal(t, cfg.MaxConsecutiveLosses, s.LossCount)
}

func TestResetAfterWin(t *testing.T) {
	cfg := testConfig()
	s := New(cfg.BaseBet)

	s.OnLoss(cfg)
	s.OnLoss(cfg)
	s.RecordBet(70_000_000)

	s.ResetAfterWin(cfg)

	assert.Equal(t, cfg.BaseBet, s.CurrentBetPerBlock)
	assert.Equal(t, 0, s.ConsecutiveLosses)
	assert.Equal(t, uint64(0), s.CurrentCycleBetLamports)
	assert.Equal(t, 1, s.WinCount)
	assert.False(t, s.LastWinTime.IsZero())
	assert.Equal(t, uint64(70_000_000), s.TotalBetLamports)
	assert.Equal(t, uint64(0), s.TotalEarnedSol, "earnings credited separately")
}

func TestRecordBet_Accumulates(t *testing.T) {
	s := New(10_000_000)

	s.RecordBet(50_000_000)
	s.RecordBet(100_000_000)

	assert.Equal(t, uint64(150_000_000), s.TotalBetLamports)
	assert.Equal(t, uint64(150_000_000), s.CurrentCycleBetLamports)
}

func TestNetProfit(t *testing.T) {
	s := New(10_000_000)

	s.RecordBet(100_000_000)
	s.UpdateEarnings(5_000_000_000, 30_000_000)

	assert.Equal(t, int64(-70_000_000), s.NetProfit())

	s.UpdateEarnings(0, 170_000_000)
	assert.Equal(t, int64(100_000_000), s.NetProfit())
}

func TestWinRate(t *testing.T) {
	cfg := testConfig()
	s := New(cfg.BaseBet)

	assert.Equal(t, 0.0, s.WinRate(), "no rounds yet")

	s.OnLoss(cfg)
	s.OnLoss(cfg)
	s.OnLoss(cfg)
	s.ResetAfterWin(cfg)

	assert.InDelta(t, 25.0, s.WinRate(), 0.0001)
}

func TestStats_Snapshot(t *testing.T) {
	cfg := testConfig()
	s := New(cfg.BaseBet)

	s.OnLoss(cfg)
	s.RecordBet(20_000_000)
	s.ResetAfterWin(cfg)
	s.UpdateEarnings(300_000_000_000, 45_000_000)

	stats := s.Stats()
	assert.Equal(t, 2, stats.TotalRounds)
	assert.Equal(t, 1, stats.WinCount)
	assert.Equal(t, 1, stats.LossCount)
	assert.InDelta(t, 50.0, stats.WinRate, 0.0001)
	assert.Equal(t, uint64(300_000_000_000), stats.TotalEarnedOre)
	assert.Equal(t, int64(25_000_000), stats.NetProfit)
}
