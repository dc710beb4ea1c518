// Package strategy implements the martingale stake progression as a pure,
// I/O-free state machine. The engine owns the single lock guarding State;
// methods here never block.
package strategy

import (
	"math"
	"time"

	"oregrid/internal/domain"
)

// Config controls the progression. Amounts are lamports per square.
type Config struct {
	BaseBet               uint64
	Multiplier            float64
	MaxConsecutiveLosses  int
	WarnConsecutiveLosses int
}

// State tracks the current progression and lifetime statistics.
type State struct {
	CurrentRound            uint64
	CurrentBetPerBlock      uint64
	ConsecutiveLosses       int
	TotalBetLamports        uint64 // lifetime
	CurrentCycleBetLamports uint64 // resets on win or cap
	TotalEarnedOre          uint64 // lifetime, atomic ORE
	TotalEarnedSol          uint64 // lifetime, lamports
	LastWinTime             time.Time
	WinCount                int
	LossCount               int
}

// New starts a fresh progression at the base stake.
func New(baseBet uint64) *State {
	return &State{CurrentBetPerBlock: baseBet}
}

// OnLoss records a lost round and advances the progression. It returns
// whether betting should continue and whether the loss streak is at or past
// the warning threshold. Reaching the loss cap forcibly resets the stake to
// base and stops betting.
func (s *State) OnLoss(cfg Config) (continueBetting, shouldWarn bool) {
	s.ConsecutiveLosses++
	s.LossCount++

	shouldWarn = s.ConsecutiveLosses >= cfg.WarnConsecutiveLosses

	if s.ConsecutiveLosses >= cfg.MaxConsecutiveLosses {
		s.Reset(cfg)
		return false, shouldWarn
	}

	s.CurrentBetPerBlock = uint64(math.Round(float64(s.CurrentBetPerBlock) * cfg.Multiplier))
	return true, shouldWarn
}

// ResetAfterWin returns the progression to base after a won round. Earnings
// are credited separately via UpdateEarnings once the ledger confirms them.
func (s *State) ResetAfterWin(cfg Config) {
	s.ConsecutiveLosses = 0
	s.CurrentCycleBetLamports = 0
	s.CurrentBetPerBlock = cfg.BaseBet
	s.WinCount++
	s.LastWinTime = time.Now()
}

// Reset returns the stake to base and zeroes the streak and cycle totals
// without touching lifetime counters.
func (s *State) Reset(cfg Config) {
	s.ConsecutiveLosses = 0
	s.CurrentBetPerBlock = cfg.BaseBet
	s.CurrentCycleBetLamports = 0
}

// RecordBet adds a submitted stake to the lifetime and cycle totals.
func (s *State) RecordBet(totalBet uint64) {
	s.TotalBetLamports += totalBet
	s.CurrentCycleBetLamports += totalBet
}

// UpdateEarnings credits confirmed rewards after settlement.
func (s *State) UpdateEarnings(ore, sol uint64) {
	s.TotalEarnedOre += ore
	s.TotalEarnedSol += sol
}

// NetProfit is lifetime earnings minus lifetime stakes, in lamports.
func (s *State) NetProfit() int64 {
	return int64(s.TotalEarnedSol) - int64(s.TotalBetLamports)
}

// WinRate is the percentage of settled rounds won, 0 if none played.
func (s *State) WinRate() float64 {
	total := s.WinCount + s.LossCount
	if total == 0 {
		return 0
	}
	return float64(s.WinCount) / float64(total) * 100
}

// Stats snapshots the lifetime counters.
func (s *State) Stats() domain.Stats {
	return domain.Stats{
		TotalRounds:    s.WinCount + s.LossCount,
		WinCount:       s.WinCount,
		LossCount:      s.LossCount,
		WinRate:        s.WinRate(),
		TotalEarnedOre: s.TotalEarnedOre,
		NetProfit:      s.NetProfit(),
	}
}
