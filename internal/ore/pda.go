package ore

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// ProgramID is the mainnet id of the game's on-chain program.
const ProgramID = "oreV3EG1i9BEgiAJ8b177Z2S2rMarzak4NMv1kULvWv"

var programID = solana.MustPublicKeyFromBase58(ProgramID)

// Derived-address seeds.
var (
	seedBoard      = []byte("board")
	seedRound      = []byte("round")
	seedMiner      = []byte("miner")
	seedAutomation = []byte("automation")
	seedTreasury   = []byte("treasury")
)

// ProgramKey returns the program id as a public key.
func ProgramKey() solana.PublicKey {
	return programID
}

// BoardAddress derives the singleton board account address.
func BoardAddress() solana.PublicKey {
	return mustFind(seedBoard)
}

// RoundAddress derives the round account address for a round id.
func RoundAddress(roundID uint64) solana.PublicKey {
	id := make([]byte, 8)
	binary.LittleEndian.PutUint64(id, roundID)
	return mustFind(seedRound, id)
}

// MinerAddress derives the miner account address for an authority.
func MinerAddress(authority solana.PublicKey) solana.PublicKey {
	return mustFind(seedMiner, authority.Bytes())
}

// AutomationAddress derives the automation account address for an authority.
func AutomationAddress(authority solana.PublicKey) solana.PublicKey {
	return mustFind(seedAutomation, authority.Bytes())
}

// TreasuryAddress derives the treasury account address.
func TreasuryAddress() solana.PublicKey {
	return mustFind(seedTreasury)
}

// mustFind derives a program address from seeds. Derivation only fails if no
// bump yields a valid address, which cannot happen for the fixed seed sets
// used here.
func mustFind(seeds ...[]byte) solana.PublicKey {
	addr, _, err := solana.FindProgramAddress(seeds, programID)
	if err != nil {
		panic(fmt.Sprintf("ore: derive address: %v", err))
	}
	return addr
}
