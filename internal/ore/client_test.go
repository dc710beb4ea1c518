package ore

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oregrid/internal/domain"
	"oregrid/internal/ports"
)

// accountsRPC serves canned account data keyed by address.
type accountsRPC struct {
	accounts map[solana.PublicKey][]byte
}

func (a *accountsRPC) GetSlot(context.Context) (uint64, error)                      { return 0, nil }
func (a *accountsRPC) GetBalance(context.Context, solana.PublicKey) (uint64, error) { return 0, nil }
func (a *accountsRPC) GetLatestBlockhash(context.Context) (solana.Hash, error) {
	return solana.Hash{}, nil
}
func (a *accountsRPC) SendAndConfirm(context.Context, *solana.Transaction) (solana.Signature, error) {
	return solana.Signature{}, nil
}

func (a *accountsRPC) GetAccountData(_ context.Context, addr solana.PublicKey) ([]byte, error) {
	data, ok := a.accounts[addr]
	if !ok {
		return nil, ports.ErrAccountNotFound
	}
	return data, nil
}

func TestClientBoard(t *testing.T) {
	board := domain.Board{RoundID: 9, StartSlot: 100, EndSlot: 200}
	c := NewClient(&accountsRPC{accounts: map[solana.PublicKey][]byte{
		BoardAddress(): encodeAccount(t, board),
	}})

	got, err := c.Board(context.Background())
	require.NoError(t, err)
	assert.Equal(t, board, got)
}

func TestClientRound(t *testing.T) {
	round := domain.Round{ID: 9, TotalDeployed: 77}
	c := NewClient(&accountsRPC{accounts: map[solana.PublicKey][]byte{
		RoundAddress(9): encodeAccount(t, round),
	}})

	got, err := c.Round(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, round, got)

	_, err = c.Round(context.Background(), 10)
	assert.Error(t, err, "missing rounds are errors, unlike miners")
}

func TestClientMiner(t *testing.T) {
	authority := solana.MustPublicKeyFromBase58("11111111111111111111111111111112")
	miner := domain.Miner{Authority: authority, RewardsSol: 5}
	c := NewClient(&accountsRPC{accounts: map[solana.PublicKey][]byte{
		MinerAddress(authority): encodeAccount(t, miner),
	}})

	got, err := c.Miner(context.Background(), authority)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, miner, *got)

	other := solana.MustPublicKeyFromBase58("11111111111111111111111111111113")
	got, err = c.Miner(context.Background(), other)
	require.NoError(t, err)
	assert.Nil(t, got, "an authority that never played has no miner account")
}

func TestClientMiner_MalformedTreatedAsAbsent(t *testing.T) {
	authority := solana.MustPublicKeyFromBase58("11111111111111111111111111111112")
	c := NewClient(&accountsRPC{accounts: map[solana.PublicKey][]byte{
		MinerAddress(authority): make([]byte, 12),
	}})

	got, err := c.Miner(context.Background(), authority)
	require.NoError(t, err)
	assert.Nil(t, got)
}
