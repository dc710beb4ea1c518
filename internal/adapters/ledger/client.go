// Package ledger adapts the Solana JSON-RPC API to the narrow ports the
// engine consumes, with rate limiting in front of every call.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"golang.org/x/time/rate"

	"oregrid/internal/ports"
)

const (
	// Public RPC endpoints allow ~100 req/10s; stay well under.
	rpcRatePerSec = 8
	rpcBurst      = 4

	confirmTimeout      = 45 * time.Second
	confirmPollInterval = 500 * time.Millisecond
)

// Client implements ports.LedgerRPC over the Solana RPC API at confirmed
// commitment.
type Client struct {
	rpc     *rpc.Client
	limiter *rate.Limiter
}

// NewClient builds a rate-limited RPC client for the given endpoint.
func NewClient(rpcURL string) *Client {
	return &Client{
		rpc:     rpc.New(rpcURL),
		limiter: rate.NewLimiter(rpcRatePerSec, rpcBurst),
	}
}

func (c *Client) GetSlot(ctx context.Context) (uint64, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	slot, err := c.rpc.GetSlot(ctx, rpc.CommitmentConfirmed)
	if err != nil {
		return 0, fmt.Errorf("ledger.GetSlot: %w", err)
	}
	return slot, nil
}

func (c *Client) GetBalance(ctx context.Context, addr solana.PublicKey) (uint64, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	res, err := c.rpc.GetBalance(ctx, addr, rpc.CommitmentConfirmed)
	if err != nil {
		return 0, fmt.Errorf("ledger.GetBalance: %w", err)
	}
	return res.Value, nil
}

func (c *Client) GetAccountData(ctx context.Context, addr solana.PublicKey) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	res, err := c.rpc.GetAccountInfoWithOpts(ctx, addr, &rpc.GetAccountInfoOpts{
		Commitment: rpc.CommitmentConfirmed,
		Encoding:   solana.EncodingBase64,
	})
	if errors.Is(err, rpc.ErrNotFound) {
		return nil, ports.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ledger.GetAccountData: %w", err)
	}
	if res.Value == nil {
		return nil, ports.ErrAccountNotFound
	}
	return res.Value.Data.GetBinary(), nil
}

func (c *Client) GetLatestBlockhash(ctx context.Context) (solana.Hash, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return solana.Hash{}, err
	}
	res, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentConfirmed)
	if err != nil {
		return solana.Hash{}, fmt.Errorf("ledger.GetLatestBlockhash: %w", err)
	}
	return res.Value.Blockhash, nil
}

// SendAndConfirm submits the transaction and polls signature status until it
// reaches confirmed commitment or the confirmation window closes.
func (c *Client) SendAndConfirm(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return solana.Signature{}, err
	}
	sig, err := c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("ledger.SendAndConfirm: send: %w", err)
	}

	deadline := time.Now().Add(confirmTimeout)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return sig, ctx.Err()
		case <-time.After(confirmPollInterval):
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return sig, err
		}
		res, err := c.rpc.GetSignatureStatuses(ctx, false, sig)
		if err != nil || len(res.Value) == 0 || res.Value[0] == nil {
			continue
		}
		status := res.Value[0]
		if status.Err != nil {
			return sig, fmt.Errorf("ledger.SendAndConfirm: transaction failed: %v", status.Err)
		}
		switch status.ConfirmationStatus {
		case rpc.ConfirmationStatusConfirmed, rpc.ConfirmationStatusFinalized:
			return sig, nil
		}
	}
	return sig, fmt.Errorf("ledger.SendAndConfirm: confirmation timeout for %s", sig)
}
