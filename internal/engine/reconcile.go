package engine

import (
	"context"
	"log/slog"
	"time"

	"oregrid/internal/domain"
	"oregrid/internal/strategy"
)

// winParams carries everything a reconciliation task needs, captured by value
// when the win is detected. The task never re-reads live strategy state.
type winParams struct {
	roundID       uint64
	winningSquare uint8
	squares       []uint8
	betPerBlock   uint64
	totalBet      uint64
	solBefore     uint64
	oreBefore     uint64
	cycleBet      uint64
}

// reconcileWin confirms that the win's rewards were actually credited, claims
// them when past the threshold, and reports. It runs detached: failures are
// logged, never surfaced, and the next round is never delayed.
func (e *Engine) reconcileWin(ctx context.Context, p winParams) {
	solAfter, oreAfter := e.awaitRewards(ctx, p)

	solEarned := saturatingSub(solAfter, p.solBefore)
	oreEarned := saturatingSub(oreAfter, p.oreBefore)
	if solAfter <= p.solBefore {
		slog.Warn("engine: rewards never updated after win",
			"round", p.roundID, "before", p.solBefore, "after", solAfter)
	}

	e.maybeClaim(ctx, solAfter)

	netProfit := int64(solEarned) - int64(p.cycleBet)
	var stats domain.Stats
	e.guard.withLock(func(s *strategy.State) {
		s.UpdateEarnings(oreEarned, solEarned)
		stats = s.Stats()
	})
	slog.Info("engine: win reconciled",
		"round", p.roundID,
		"sol_earned", solEarned,
		"ore_earned", oreEarned,
		"cycle_bet", p.cycleBet,
		"net_profit", netProfit,
	)

	e.notify(ctx, func(ctx context.Context) error {
		return e.notifier.NotifyWin(ctx, domain.WinEvent{
			RoundID:       p.roundID,
			WinningSquare: p.winningSquare,
			OreEarned:     oreEarned,
			SolEarned:     solEarned,
			NetProfit:     netProfit,
		})
	})

	e.persistRound(ctx, domain.RoundRecord{
		SessionID:     e.cfg.SessionID,
		RoundID:       p.roundID,
		Squares:       p.squares,
		BetPerBlock:   p.betPerBlock,
		TotalBet:      p.totalBet,
		Won:           true,
		WinningSquare: p.winningSquare,
		OreEarned:     oreEarned,
		SolEarned:     solEarned,
		NetProfit:     netProfit,
		SettledAt:     time.Now(),
	})
	e.maybeNotifyStats(ctx, stats)
}

// awaitRewards waits for the credited reward balances: the push mirror first
// (fast path, bounded), then direct reads at a fixed interval up to a ceiling.
func (e *Engine) awaitRewards(ctx context.Context, p winParams) (solAfter, oreAfter uint64) {
	if miner, ok := e.mirror.WaitForUpdate(ctx, p.solBefore, e.t.mirrorWaitTimeout); ok {
		slog.Debug("engine: rewards updated via subscription", "rewards_sol", miner.RewardsSol)
		return miner.RewardsSol, miner.RewardsOre
	}

	slog.Debug("engine: subscription timeout, falling back to direct reads")
	if miner, err := e.game.Miner(ctx, e.authority); err == nil && miner != nil {
		solAfter, oreAfter = miner.RewardsSol, miner.RewardsOre
	}
	for retry := 0; solAfter <= p.solBefore && retry < maxRewardsRetries; retry++ {
		if !e.sleep(ctx, e.t.rewardsRetryInterval) {
			return solAfter, oreAfter
		}
		miner, err := e.game.Miner(ctx, e.authority)
		if err != nil || miner == nil {
			continue
		}
		solAfter, oreAfter = miner.RewardsSol, miner.RewardsOre
	}
	return solAfter, oreAfter
}

// maybeClaim sweeps accrued rewards back to the wallet once they cross the
// configured threshold.
func (e *Engine) maybeClaim(ctx context.Context, accrued uint64) {
	if e.cfg.AutoClaimThreshold == 0 || accrued < e.cfg.AutoClaimThreshold {
		return
	}
	slog.Info("engine: auto-claiming rewards", "accrued", accrued, "threshold", e.cfg.AutoClaimThreshold)

	if _, err := e.exec.ExecuteClaimSol(ctx); err != nil {
		slog.Error("engine: claim failed", "err", err)
		e.notifyError(ctx, "Failed to claim SOL: "+err.Error())
		return
	}
	newBalance, err := e.rpc.GetBalance(ctx, e.authority)
	if err != nil {
		slog.Warn("engine: balance fetch after claim failed", "err", err)
	}
	e.notify(ctx, func(ctx context.Context) error {
		return e.notifier.NotifyClaim(ctx, domain.ClaimEvent{
			Amount:     accrued,
			NewBalance: newBalance,
		})
	})
}

func saturatingSub(a, b uint64) uint64 {
	if a < b {
		return 0
	}
	return a - b
}
