package ports

import (
	"context"
	"errors"

	"github.com/gagliardetto/solana-go"
)

// ErrAccountNotFound is returned by GetAccountData when the address holds no
// account yet (e.g. a miner that never played).
var ErrAccountNotFound = errors.New("account not found")

// LedgerRPC is the narrow slice of the ledger RPC surface the agent consumes.
type LedgerRPC interface {
	// GetSlot returns the current ledger slot.
	GetSlot(ctx context.Context) (uint64, error)

	// GetBalance returns the lamport balance of an address.
	GetBalance(ctx context.Context, addr solana.PublicKey) (uint64, error)

	// GetAccountData returns the raw account bytes, including the leading
	// discriminator. Returns ErrAccountNotFound for missing accounts.
	GetAccountData(ctx context.Context, addr solana.PublicKey) ([]byte, error)

	// GetLatestBlockhash returns a fresh recent-block reference for signing.
	GetLatestBlockhash(ctx context.Context) (solana.Hash, error)

	// SendAndConfirm submits a signed transaction and blocks until it is
	// confirmed or fails.
	SendAndConfirm(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
}
