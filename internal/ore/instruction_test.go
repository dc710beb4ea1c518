package ore

import (
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oregrid/internal/domain"
)

var testSigner = solana.MustPublicKeyFromBase58("11111111111111111111111111111112")

func TestSquareMask(t *testing.T) {
	assert.Equal(t, uint32(0), SquareMask(nil))

	blocks := []domain.BlockPosition{
		domain.BlockFromIndex(0),
		domain.BlockFromIndex(7),
		domain.BlockFromIndex(24),
	}
	assert.Equal(t, uint32(1|1<<7|1<<24), SquareMask(blocks))
}

func TestEncodeDeployData(t *testing.T) {
	data := EncodeDeployData(10_000_000, 0b101)

	require.Len(t, data, 13)
	assert.Equal(t, DeployOpcode, data[0])
	assert.Equal(t, uint64(10_000_000), binary.LittleEndian.Uint64(data[1:9]))
	assert.Equal(t, uint32(0b101), binary.LittleEndian.Uint32(data[9:13]))
}

func TestNewDeployInstruction(t *testing.T) {
	blocks := []domain.BlockPosition{domain.BlockFromIndex(3)}
	ix := NewDeployInstruction(testSigner, testSigner, 10_000_000, 42, blocks)

	assert.Equal(t, programID, ix.ProgramID())

	accounts := ix.Accounts()
	require.Len(t, accounts, 7)
	assert.Equal(t, testSigner, accounts[0].PublicKey)
	assert.True(t, accounts[0].IsSigner)
	assert.True(t, accounts[0].IsWritable)
	assert.Equal(t, AutomationAddress(testSigner), accounts[2].PublicKey)
	assert.Equal(t, BoardAddress(), accounts[3].PublicKey)
	assert.Equal(t, MinerAddress(testSigner), accounts[4].PublicKey)
	assert.Equal(t, RoundAddress(42), accounts[5].PublicKey)
	assert.Equal(t, solana.SystemProgramID, accounts[6].PublicKey)
	assert.False(t, accounts[6].IsWritable)

	data, err := ix.Data()
	require.NoError(t, err)
	assert.Equal(t, EncodeDeployData(10_000_000, 1<<3), data)
}

func TestNewCheckpointInstruction(t *testing.T) {
	ix := NewCheckpointInstruction(testSigner, testSigner, 41)

	accounts := ix.Accounts()
	require.Len(t, accounts, 6)
	assert.Equal(t, RoundAddress(41), accounts[3].PublicKey, "settles the miner's last round, not the current one")
	assert.Equal(t, TreasuryAddress(), accounts[4].PublicKey)

	data, err := ix.Data()
	require.NoError(t, err)
	assert.Equal(t, []byte{CheckpointOpcode}, data)
}

func TestNewClaimSolInstruction(t *testing.T) {
	ix := NewClaimSolInstruction(testSigner)

	accounts := ix.Accounts()
	require.Len(t, accounts, 3)
	assert.Equal(t, testSigner, accounts[0].PublicKey)
	assert.Equal(t, MinerAddress(testSigner), accounts[1].PublicKey)

	data, err := ix.Data()
	require.NoError(t, err)
	assert.Equal(t, []byte{ClaimSolOpcode}, data)
}
