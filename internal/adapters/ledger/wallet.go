package ledger

import (
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
)

// Wallet implements ports.Signer over a base58-encoded 64-byte private key.
type Wallet struct {
	key solana.PrivateKey
}

// LoadWallet parses a base58 private key string.
func LoadWallet(base58Key string) (*Wallet, error) {
	key, err := solana.PrivateKeyFromBase58(strings.TrimSpace(base58Key))
	if err != nil {
		return nil, fmt.Errorf("ledger.LoadWallet: decode private key: %w", err)
	}
	if len(key) != 64 {
		return nil, fmt.Errorf("ledger.LoadWallet: expected 64-byte key, got %d bytes", len(key))
	}
	return &Wallet{key: key}, nil
}

// PublicKey returns the wallet's address.
func (w *Wallet) PublicKey() solana.PublicKey {
	return w.key.PublicKey()
}

// Sign signs an arbitrary byte buffer with the wallet key.
func (w *Wallet) Sign(message []byte) (solana.Signature, error) {
	return w.key.Sign(message)
}
