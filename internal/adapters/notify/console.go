package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"

	"oregrid/internal/domain"
)

// Console implementa ports.Notifier con eventos compactos de una línea y una
// tabla de estadísticas.
type Console struct {
	out io.Writer
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole() *Console {
	return &Console{out: os.Stdout}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer) *Console {
	return &Console{out: w}
}

func (c *Console) stamp() string {
	return time.Now().Format("15:04:05")
}

func (c *Console) NotifyBet(_ context.Context, e domain.BetEvent) error {
	fmt.Fprintf(c.out, "[%s] BET round=#%d squares=%v per_block=%s total=%s streak=%d\n",
		c.stamp(), e.RoundID, e.Squares, formatSol(e.BetPerBlock), formatSol(e.TotalBet), e.ConsecutiveLosses)
	return nil
}

func (c *Console) NotifyWin(_ context.Context, e domain.WinEvent) error {
	fmt.Fprintf(c.out, "[%s] WIN round=#%d square=%d ore=%s sol=%s net=%s\n",
		c.stamp(), e.RoundID, e.WinningSquare, formatOre(e.OreEarned), formatSol(e.SolEarned), formatSolSigned(e.NetProfit))
	return nil
}

func (c *Console) NotifyLoss(_ context.Context, e domain.LossEvent) error {
	fmt.Fprintf(c.out, "[%s] LOSS round=#%d square=%d streak=%d next_bet=%s\n",
		c.stamp(), e.RoundID, e.WinningSquare, e.ConsecutiveLosses, formatSol(e.NextBet))
	return nil
}

func (c *Console) NotifyWarning(_ context.Context, e domain.WarningEvent) error {
	fmt.Fprintf(c.out, "[%s] WARNING loss streak %d/%d, current bet %s per block\n",
		c.stamp(), e.ConsecutiveLosses, e.MaxConsecutiveLosses, formatSol(e.CurrentBet))
	return nil
}

func (c *Console) NotifyClaim(_ context.Context, e domain.ClaimEvent) error {
	fmt.Fprintf(c.out, "[%s] CLAIM amount=%s balance=%s\n",
		c.stamp(), formatSol(e.Amount), formatSol(e.NewBalance))
	return nil
}

func (c *Console) NotifyStats(_ context.Context, s domain.Stats) error {
	fmt.Fprintf(c.out, "[%s] session stats\n", c.stamp())
	table := tablewriter.NewWriter(c.out)
	table.Header("Rounds", "Wins", "Losses", "Win rate", "ORE earned", "Net profit")
	table.Append(
		fmt.Sprintf("%d", s.TotalRounds),
		fmt.Sprintf("%d", s.WinCount),
		fmt.Sprintf("%d", s.LossCount),
		fmt.Sprintf("%.2f%%", s.WinRate),
		formatOre(s.TotalEarnedOre),
		formatSolSigned(s.NetProfit),
	)
	table.Render()
	return nil
}

func (c *Console) NotifyError(_ context.Context, msg string) error {
	fmt.Fprintf(c.out, "[%s] ERROR %s\n", c.stamp(), msg)
	return nil
}
