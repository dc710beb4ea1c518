package ore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gagliardetto/solana-go"

	"oregrid/internal/domain"
	"oregrid/internal/ports"
)

// Client provides typed reads of the game's accounts over the ledger RPC.
// Implements ports.GameReader.
type Client struct {
	rpc ports.LedgerRPC
}

// NewClient wraps a ledger RPC with the game's account layouts.
func NewClient(rpc ports.LedgerRPC) *Client {
	return &Client{rpc: rpc}
}

// Board fetches and decodes the singleton board account.
func (c *Client) Board(ctx context.Context) (domain.Board, error) {
	data, err := c.rpc.GetAccountData(ctx, BoardAddress())
	if err != nil {
		return domain.Board{}, fmt.Errorf("ore.Board: %w", err)
	}
	board, err := DecodeAccount[domain.Board](data)
	if err != nil {
		return domain.Board{}, fmt.Errorf("ore.Board: %w", err)
	}
	return *board, nil
}

// Round fetches and decodes the round account for the given id.
func (c *Client) Round(ctx context.Context, roundID uint64) (domain.Round, error) {
	data, err := c.rpc.GetAccountData(ctx, RoundAddress(roundID))
	if err != nil {
		return domain.Round{}, fmt.Errorf("ore.Round(%d): %w", roundID, err)
	}
	round, err := DecodeAccount[domain.Round](data)
	if err != nil {
		return domain.Round{}, fmt.Errorf("ore.Round(%d): %w", roundID, err)
	}
	return *round, nil
}

// Miner fetches and decodes the miner account for an authority. Returns nil
// without error when the account does not exist; a malformed payload is
// logged and likewise treated as absent.
func (c *Client) Miner(ctx context.Context, authority solana.PublicKey) (*domain.Miner, error) {
	data, err := c.rpc.GetAccountData(ctx, MinerAddress(authority))
	if errors.Is(err, ports.ErrAccountNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ore.Miner: %w", err)
	}
	miner, err := DecodeAccount[domain.Miner](data)
	if err != nil {
		slog.Warn("ore: malformed miner account", "authority", authority, "err", err)
		return nil, nil
	}
	return miner, nil
}
