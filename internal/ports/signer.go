package ports

import "github.com/gagliardetto/solana-go"

// Signer exposes the wallet's public address and raw message signing. Key
// material never leaves the implementation.
type Signer interface {
	PublicKey() solana.PublicKey
	Sign(message []byte) (solana.Signature, error)
}
