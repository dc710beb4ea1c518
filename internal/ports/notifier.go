package ports

import (
	"context"

	"oregrid/internal/domain"
)

// Notifier delivers human-readable events about the agent's play.
// Delivery is fire-and-forget: callers log failures and move on, a broken
// sink must never stall a round.
type Notifier interface {
	NotifyBet(ctx context.Context, e domain.BetEvent) error
	NotifyWin(ctx context.Context, e domain.WinEvent) error
	NotifyLoss(ctx context.Context, e domain.LossEvent) error
	NotifyWarning(ctx context.Context, e domain.WarningEvent) error
	NotifyClaim(ctx context.Context, e domain.ClaimEvent) error
	NotifyStats(ctx context.Context, s domain.Stats) error
	NotifyError(ctx context.Context, msg string) error
}
