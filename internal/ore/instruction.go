package ore

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"

	"oregrid/internal/domain"
)

// Instruction opcodes of the on-chain program.
const (
	CheckpointOpcode byte = 2
	ClaimSolOpcode   byte = 3
	DeployOpcode     byte = 6
)

// SquareMask packs selected grid positions into the deploy bitmask: bit i is
// set iff cell i is selected.
func SquareMask(blocks []domain.BlockPosition) uint32 {
	var mask uint32
	for _, b := range blocks {
		mask |= 1 << b.Index
	}
	return mask
}

// EncodeDeployData serializes the deploy payload: opcode, 8-byte
// little-endian lamport amount per square, 4-byte little-endian square mask.
func EncodeDeployData(amount uint64, mask uint32) []byte {
	data := make([]byte, 13)
	data[0] = DeployOpcode
	binary.LittleEndian.PutUint64(data[1:9], amount)
	binary.LittleEndian.PutUint32(data[9:13], mask)
	return data
}

// NewDeployInstruction builds a Deploy covering all selected squares for one
// round with a single bitmask.
func NewDeployInstruction(signer, authority solana.PublicKey, amount uint64, roundID uint64, blocks []domain.BlockPosition) solana.Instruction {
	return solana.NewInstruction(
		programID,
		solana.AccountMetaSlice{
			solana.NewAccountMeta(signer, true, true),
			solana.NewAccountMeta(authority, true, false),
			solana.NewAccountMeta(AutomationAddress(authority), true, false),
			solana.NewAccountMeta(BoardAddress(), true, false),
			solana.NewAccountMeta(MinerAddress(authority), true, false),
			solana.NewAccountMeta(RoundAddress(roundID), true, false),
			solana.NewAccountMeta(solana.SystemProgramID, false, false),
		},
		EncodeDeployData(amount, SquareMask(blocks)),
	)
}

// NewCheckpointInstruction builds a Checkpoint settling the miner's rewards
// for the round it last played.
func NewCheckpointInstruction(signer, authority solana.PublicKey, minerRoundID uint64) solana.Instruction {
	return solana.NewInstruction(
		programID,
		solana.AccountMetaSlice{
			solana.NewAccountMeta(signer, true, true),
			solana.NewAccountMeta(BoardAddress(), true, false),
			solana.NewAccountMeta(MinerAddress(authority), true, false),
			solana.NewAccountMeta(RoundAddress(minerRoundID), true, false),
			solana.NewAccountMeta(TreasuryAddress(), true, false),
			solana.NewAccountMeta(solana.SystemProgramID, false, false),
		},
		[]byte{CheckpointOpcode},
	)
}

// NewClaimSolInstruction builds a ClaimReward sweeping accrued SOL to the
// signer.
func NewClaimSolInstruction(signer solana.PublicKey) solana.Instruction {
	return solana.NewInstruction(
		programID,
		solana.AccountMetaSlice{
			solana.NewAccountMeta(signer, true, true),
			solana.NewAccountMeta(MinerAddress(signer), true, false),
			solana.NewAccountMeta(solana.SystemProgramID, false, false),
		},
		[]byte{ClaimSolOpcode},
	)
}
