package ore

import (
	"fmt"

	bin "github.com/gagliardetto/binary"
)

// discriminatorLen is the size of the leading account discriminator. Its
// value is never validated, only skipped.
const discriminatorLen = 8

// DecodeAccount interprets raw account bytes as a fixed-size little-endian
// record of type T, skipping the leading discriminator. It fails for any
// payload too short to hold the discriminator plus the full record. Decode
// failures are not retryable.
func DecodeAccount[T any](data []byte) (*T, error) {
	if len(data) < discriminatorLen {
		return nil, fmt.Errorf("ore.DecodeAccount: data too short: %d bytes", len(data))
	}
	out := new(T)
	dec := bin.NewBinDecoder(data[discriminatorLen:])
	if err := dec.Decode(out); err != nil {
		return nil, fmt.Errorf("ore.DecodeAccount: %w", err)
	}
	return out, nil
}
