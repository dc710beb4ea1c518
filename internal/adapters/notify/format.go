package notify

import (
	"fmt"

	"oregrid/internal/domain"
)

func formatSol(lamports uint64) string {
	return fmt.Sprintf("%.6f SOL", float64(lamports)/domain.LamportsPerSol)
}

func formatSolSigned(lamports int64) string {
	return fmt.Sprintf("%.6f SOL", float64(lamports)/domain.LamportsPerSol)
}

func formatOre(atoms uint64) string {
	return fmt.Sprintf("%.6f ORE", float64(atoms)/domain.OreAtomsPerOre)
}
