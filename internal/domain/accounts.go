package domain

import (
	"encoding/binary"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// Board is the singleton account describing the current round and its slot
// window. It must be re-read from the ledger for every decision, never cached.
type Board struct {
	RoundID   uint64
	StartSlot uint64
	EndSlot   uint64
}

// Active reports whether betting is open at the given slot.
func (b Board) Active(slot uint64) bool {
	return slot >= b.StartSlot && slot < b.EndSlot
}

// Complete reports whether the round's slot window has closed.
func (b Board) Complete(slot uint64) bool {
	return slot >= b.EndSlot
}

// Round is the per-round account. The slot hash is written by the network
// after the round closes and seeds the winning-square selection.
type Round struct {
	ID             uint64
	Deployed       [TotalBlocks]uint64
	SlotHash       [32]uint8
	Count          [TotalBlocks]uint64
	ExpiresAt      uint64
	Motherlode     uint64
	RentPayer      solana.PublicKey
	TopMiner       solana.PublicKey
	TopMinerReward uint64
	TotalDeployed  uint64
	TotalVaulted   uint64
	TotalWinnings  uint64
}

// Rng derives the round's random value by XOR-ing the four little-endian
// 64-bit words of the slot hash. It reports false while the hash is still
// unset (all zero) or poisoned (all 0xFF).
func (r Round) Rng() (uint64, bool) {
	allZero, allMax := true, true
	for _, b := range r.SlotHash {
		if b != 0 {
			allZero = false
		}
		if b != 0xFF {
			allMax = false
		}
	}
	if allZero || allMax {
		return 0, false
	}
	rng := binary.LittleEndian.Uint64(r.SlotHash[0:8]) ^
		binary.LittleEndian.Uint64(r.SlotHash[8:16]) ^
		binary.LittleEndian.Uint64(r.SlotHash[16:24]) ^
		binary.LittleEndian.Uint64(r.SlotHash[24:32])
	return rng, true
}

// WinningSquare maps the round's random value onto the grid.
func (r Round) WinningSquare(rng uint64) uint8 {
	return uint8(rng % TotalBlocks)
}

// Miner is the per-authority account holding deployments for the active round
// and claimable rewards. CheckpointID trails RoundID until the miner settles
// the last round it played; a new deploy must checkpoint first.
type Miner struct {
	Authority          solana.PublicKey
	Deployed           [TotalBlocks]uint64
	Cumulative         [TotalBlocks]uint64
	CheckpointFee      uint64
	CheckpointID       uint64
	LastClaimOreAt     int64
	LastClaimSolAt     int64
	RewardsFactor      bin.Uint128
	RewardsSol         uint64
	RewardsOre         uint64
	RefinedOre         uint64
	RoundID            uint64
	LifetimeRewardsSol uint64
	LifetimeRewardsOre uint64
}

// NeedsCheckpoint reports whether the miner must settle a previous round
// before deploying again.
func (m Miner) NeedsCheckpoint() bool {
	return m.CheckpointID != m.RoundID
}
