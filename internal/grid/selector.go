// Package grid chooses which cells of the board to stake on.
package grid

import (
	"math/rand/v2"

	"oregrid/internal/domain"
)

// Selector picks the squares to bet on each round. Implementations must be
// safe for sequential reuse; the engine calls Select once per round.
type Selector interface {
	Select(count int) []domain.BlockPosition
}

// Random selects squares via a uniform permutation without replacement.
type Random struct{}

// Select returns count distinct squares, clamped to the grid size.
func (Random) Select(count int) []domain.BlockPosition {
	if count < 0 {
		count = 0
	}
	if count > domain.TotalBlocks {
		count = domain.TotalBlocks
	}
	perm := rand.Perm(domain.TotalBlocks)
	blocks := make([]domain.BlockPosition, count)
	for i := 0; i < count; i++ {
		blocks[i] = domain.BlockFromIndex(uint8(perm[i]))
	}
	return blocks
}

// Fixed always selects the same squares. Useful for deterministic tests.
type Fixed []uint8

func (f Fixed) Select(count int) []domain.BlockPosition {
	if count > len(f) {
		count = len(f)
	}
	blocks := make([]domain.BlockPosition, count)
	for i := 0; i < count; i++ {
		blocks[i] = domain.BlockFromIndex(f[i])
	}
	return blocks
}
