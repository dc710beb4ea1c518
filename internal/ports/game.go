package ports

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"

	"oregrid/internal/domain"
)

// GameReader provides typed reads of the game's on-chain accounts. Every call
// hits the ledger; snapshots are immutable and never cached.
type GameReader interface {
	// Board returns the singleton board account.
	Board(ctx context.Context) (domain.Board, error)

	// Round returns the round account for the given id.
	Round(ctx context.Context, roundID uint64) (domain.Round, error)

	// Miner returns the miner account for an authority, or nil if the
	// authority has never played.
	Miner(ctx context.Context, authority solana.PublicKey) (*domain.Miner, error)
}

// BetExecutor submits the game's transactions.
type BetExecutor interface {
	// ExecuteBet deploys betPerBlock lamports on each selected square.
	ExecuteBet(ctx context.Context, roundID uint64, blocks []domain.BlockPosition, betPerBlock uint64) (solana.Signature, error)

	// ExecuteCheckpointAndBet settles checkpointRoundID and deploys on
	// betRoundID atomically in one transaction, checkpoint first.
	ExecuteCheckpointAndBet(ctx context.Context, checkpointRoundID, betRoundID uint64, blocks []domain.BlockPosition, betPerBlock uint64) (solana.Signature, error)

	// ExecuteClaimSol sweeps accrued SOL rewards back to the wallet.
	ExecuteClaimSol(ctx context.Context) (solana.Signature, error)
}

// MinerMirror is a read-only view of the miner account kept live by a push
// subscription.
type MinerMirror interface {
	// Miner returns the latest snapshot, if any notification arrived yet.
	Miner() (domain.Miner, bool)

	// WaitForUpdate blocks until the mirrored reward balance exceeds
	// baseline or the timeout elapses.
	WaitForUpdate(ctx context.Context, baseline uint64, timeout time.Duration) (domain.Miner, bool)
}
