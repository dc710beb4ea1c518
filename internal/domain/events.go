package domain

import "time"

// LamportsPerSol converts between lamports and whole SOL.
const LamportsPerSol = 1_000_000_000

// OreAtomsPerOre converts between atomic ORE units and whole ORE.
const OreAtomsPerOre = 100_000_000_000

// BetEvent reports a stake submitted for a round.
type BetEvent struct {
	RoundID           uint64
	Squares           []uint8
	BetPerBlock       uint64 // lamports
	TotalBet          uint64 // lamports
	ConsecutiveLosses int
}

// WinEvent reports a settled round the agent won.
type WinEvent struct {
	RoundID       uint64
	WinningSquare uint8
	OreEarned     uint64 // atomic ORE
	SolEarned     uint64 // lamports
	NetProfit     int64  // lamports, earned minus the whole cycle's stakes
}

// LossEvent reports a settled round the agent lost.
type LossEvent struct {
	RoundID           uint64
	WinningSquare     uint8
	ConsecutiveLosses int
	NextBet           uint64 // lamports per block
}

// WarningEvent reports a loss streak at or past the warning threshold.
type WarningEvent struct {
	ConsecutiveLosses    int
	MaxConsecutiveLosses int
	CurrentBet           uint64 // lamports per block
}

// ClaimEvent reports accrued rewards swept back to the wallet.
type ClaimEvent struct {
	Amount     uint64 // lamports
	NewBalance uint64 // lamports
}

// Stats is a snapshot of the session's lifetime counters.
type Stats struct {
	TotalRounds    int
	WinCount       int
	LossCount      int
	WinRate        float64 // percentage
	TotalEarnedOre uint64  // atomic ORE
	NetProfit      int64   // lamports
}

// RoundRecord is the persisted outcome of one settled round.
type RoundRecord struct {
	SessionID     string
	RoundID       uint64
	Squares       []uint8
	BetPerBlock   uint64
	TotalBet      uint64
	Won           bool
	WinningSquare uint8
	OreEarned     uint64
	SolEarned     uint64
	NetProfit     int64
	SettledAt     time.Time
}
