// Package executor builds, signs, submits and confirms the game's
// transactions, retrying with exponential backoff. Every attempt re-fetches
// the recent-block reference and re-signs: stale references are the most
// common failure.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gagliardetto/solana-go"

	"oregrid/internal/domain"
	"oregrid/internal/ore"
	"oregrid/internal/ports"
)

const retryBaseDelay = 100 * time.Millisecond

// Executor submits transactions for one signer. Implements ports.BetExecutor.
type Executor struct {
	rpc        ports.LedgerRPC
	signer     ports.Signer
	maxRetries int
}

// New builds an Executor retrying each submission up to maxRetries times.
func New(rpc ports.LedgerRPC, signer ports.Signer, maxRetries int) *Executor {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Executor{rpc: rpc, signer: signer, maxRetries: maxRetries}
}

// ExecuteBet deploys betPerBlock lamports on each selected square with a
// single Deploy instruction.
func (e *Executor) ExecuteBet(ctx context.Context, roundID uint64, blocks []domain.BlockPosition, betPerBlock uint64) (solana.Signature, error) {
	authority := e.signer.PublicKey()
	ix := ore.NewDeployInstruction(authority, authority, betPerBlock, roundID, blocks)
	slog.Debug("executor: deploy", "round", roundID, "squares", domain.BlockIndices(blocks), "bet_per_block", betPerBlock)
	return e.submit(ctx, []solana.Instruction{ix})
}

// ExecuteCheckpointAndBet settles a prior round and deploys on the new one in
// a single atomic transaction. The checkpoint always precedes the deploy, so
// no partial-checkpoint state is ever observable.
func (e *Executor) ExecuteCheckpointAndBet(ctx context.Context, checkpointRoundID, betRoundID uint64, blocks []domain.BlockPosition, betPerBlock uint64) (solana.Signature, error) {
	authority := e.signer.PublicKey()
	checkpoint := ore.NewCheckpointInstruction(authority, authority, checkpointRoundID)
	deploy := ore.NewDeployInstruction(authority, authority, betPerBlock, betRoundID, blocks)
	slog.Debug("executor: checkpoint+deploy",
		"checkpoint_round", checkpointRoundID,
		"bet_round", betRoundID,
		"squares", domain.BlockIndices(blocks),
	)
	return e.submit(ctx, []solana.Instruction{checkpoint, deploy})
}

// ExecuteClaimSol sweeps accrued SOL rewards back to the wallet.
func (e *Executor) ExecuteClaimSol(ctx context.Context) (solana.Signature, error) {
	ix := ore.NewClaimSolInstruction(e.signer.PublicKey())
	return e.submit(ctx, []solana.Instruction{ix})
}

// submit runs the attempt loop. Only the final success or the last error is
// surfaced; intermediate failures are logged.
func (e *Executor) submit(ctx context.Context, instructions []solana.Instruction) (solana.Signature, error) {
	var lastErr error
	for attempt := 1; attempt <= e.maxRetries; attempt++ {
		sig, err := e.attempt(ctx, instructions)
		if err == nil {
			slog.Info("executor: transaction confirmed", "signature", sig)
			return sig, nil
		}
		lastErr = err
		slog.Warn("executor: transaction attempt failed", "attempt", attempt, "err", err)

		if attempt < e.maxRetries {
			delay := retryBaseDelay * (1 << uint(attempt))
			select {
			case <-ctx.Done():
				return solana.Signature{}, ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return solana.Signature{}, fmt.Errorf("executor.submit: failed after %d attempts: %w", e.maxRetries, lastErr)
}

// attempt fetches a fresh blockhash, builds and signs the transaction, and
// submits it for confirmation.
func (e *Executor) attempt(ctx context.Context, instructions []solana.Instruction) (solana.Signature, error) {
	blockhash, err := e.rpc.GetLatestBlockhash(ctx)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("fetch blockhash: %w", err)
	}

	tx, err := solana.NewTransaction(instructions, blockhash, solana.TransactionPayer(e.signer.PublicKey()))
	if err != nil {
		return solana.Signature{}, fmt.Errorf("build transaction: %w", err)
	}

	msg, err := tx.Message.MarshalBinary()
	if err != nil {
		return solana.Signature{}, fmt.Errorf("marshal message: %w", err)
	}
	sig, err := e.signer.Sign(msg)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("sign: %w", err)
	}
	tx.Signatures = []solana.Signature{sig}

	return e.rpc.SendAndConfirm(ctx, tx)
}
