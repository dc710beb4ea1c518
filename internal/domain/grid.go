package domain

// GridSize is the side length of the betting grid.
const GridSize = 5

// TotalBlocks is the number of cells on the grid.
const TotalBlocks = GridSize * GridSize

// BlockPosition identifies one cell of the grid.
type BlockPosition struct {
	Row   uint8
	Col   uint8
	Index uint8 // Row*GridSize + Col
}

// BlockFromIndex builds a BlockPosition from a flat index in [0, TotalBlocks).
func BlockFromIndex(index uint8) BlockPosition {
	if index >= TotalBlocks {
		panic("domain.BlockFromIndex: index out of range")
	}
	return BlockPosition{
		Row:   index / GridSize,
		Col:   index % GridSize,
		Index: index,
	}
}

// BlockIndices flattens positions to their grid indices.
func BlockIndices(blocks []BlockPosition) []uint8 {
	out := make([]uint8, len(blocks))
	for i, b := range blocks {
		out[i] = b.Index
	}
	return out
}
