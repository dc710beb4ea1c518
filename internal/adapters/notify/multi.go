package notify

import (
	"context"
	"errors"

	"oregrid/internal/domain"
	"oregrid/internal/ports"
)

// Multi fans out every event to all configured notifiers. Errors are joined
// so one failing sink never hides the others.
type Multi []ports.Notifier

func (m Multi) NotifyBet(ctx context.Context, e domain.BetEvent) error {
	return m.each(func(n ports.Notifier) error { return n.NotifyBet(ctx, e) })
}

func (m Multi) NotifyWin(ctx context.Context, e domain.WinEvent) error {
	return m.each(func(n ports.Notifier) error { return n.NotifyWin(ctx, e) })
}

func (m Multi) NotifyLoss(ctx context.Context, e domain.LossEvent) error {
	return m.each(func(n ports.Notifier) error { return n.NotifyLoss(ctx, e) })
}

func (m Multi) NotifyWarning(ctx context.Context, e domain.WarningEvent) error {
	return m.each(func(n ports.Notifier) error { return n.NotifyWarning(ctx, e) })
}

func (m Multi) NotifyClaim(ctx context.Context, e domain.ClaimEvent) error {
	return m.each(func(n ports.Notifier) error { return n.NotifyClaim(ctx, e) })
}

func (m Multi) NotifyStats(ctx context.Context, s domain.Stats) error {
	return m.each(func(n ports.Notifier) error { return n.NotifyStats(ctx, s) })
}

func (m Multi) NotifyError(ctx context.Context, msg string) error {
	return m.each(func(n ports.Notifier) error { return n.NotifyError(ctx, msg) })
}

func (m Multi) each(fn func(ports.Notifier) error) error {
	var errs []error
	for _, n := range m {
		if err := fn(n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
