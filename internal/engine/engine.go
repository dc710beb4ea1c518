// Package engine drives the per-round betting protocol: read board state,
// place the stake, wait for settlement, apply the outcome to the martingale
// progression, and reconcile rewards in the background.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/gagliardetto/solana-go"

	"oregrid/internal/domain"
	"oregrid/internal/grid"
	"oregrid/internal/ports"
	"oregrid/internal/strategy"
)

// timings groups the protocol's clocks. Tests shrink them.
type timings struct {
	slotDuration           time.Duration
	roundStartBuffer       time.Duration
	completionPollInterval time.Duration
	completionTimeout      time.Duration
	rngRetryInterval       time.Duration
	rewardsRetryInterval   time.Duration
	mirrorWaitTimeout      time.Duration
	defaultNextRoundWait   time.Duration
	errorCooldown          time.Duration
}

func defaultTimings() timings {
	return timings{
		slotDuration:           400 * time.Millisecond,
		roundStartBuffer:       2 * time.Second,
		completionPollInterval: 10 * time.Second,
		completionTimeout:      2 * time.Minute,
		rngRetryInterval:       2 * time.Second,
		rewardsRetryInterval:   2 * time.Second,
		mirrorWaitTimeout:      3 * time.Second,
		defaultNextRoundWait:   5 * time.Second,
		errorCooldown:          10 * time.Second,
	}
}

const (
	maxRngAttempts    = 20
	maxRewardsRetries = 10
)

// Config holds the engine's play parameters.
type Config struct {
	BlocksPerBet       int
	Martingale         strategy.Config
	MinBalance         uint64 // lamports; below this the process halts
	AutoClaimThreshold uint64 // lamports; 0 disables auto-claim
	StatsInterval      int    // settled rounds between stats notifications
	SessionID          string
}

// Engine orchestrates the betting rounds. It is sequential; the only other
// long-lived work is the mirror's connection worker and one detached
// reconciliation task per win.
type Engine struct {
	cfg       Config
	rpc       ports.LedgerRPC
	game      ports.GameReader
	exec      ports.BetExecutor
	mirror    ports.MinerMirror
	notifier  ports.Notifier
	store     ports.Storage
	selector  grid.Selector
	authority solana.PublicKey

	// state is shared with detached reconciliation tasks; guard holds only
	// for short in-memory sections, never across I/O.
	guard lockedState

	t timings
}

// New wires an Engine. store may be nil to disable persistence.
func New(
	cfg Config,
	rpc ports.LedgerRPC,
	game ports.GameReader,
	exec ports.BetExecutor,
	mirror ports.MinerMirror,
	selector grid.Selector,
	notifier ports.Notifier,
	store ports.Storage,
	authority solana.PublicKey,
) *Engine {
	e := &Engine{
		cfg:       cfg,
		rpc:       rpc,
		game:      game,
		exec:      exec,
		mirror:    mirror,
		notifier:  notifier,
		store:     store,
		selector:  selector,
		authority: authority,
		t:         defaultTimings(),
	}
	e.guard.state = strategy.New(cfg.Martingale.BaseBet)
	return e
}

// Run plays rounds until the context is cancelled, the loss cap pauses
// betting, or the balance drops below the configured floor.
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("engine: starting",
		"authority", e.authority,
		"base_bet", e.cfg.Martingale.BaseBet,
		"blocks_per_bet", e.cfg.BlocksPerBet,
		"max_consecutive_losses", e.cfg.Martingale.MaxConsecutiveLosses,
	)

	for {
		if ctx.Err() != nil {
			slog.Info("engine: stopped")
			return nil
		}

		// The floor is fatal on every iteration, including after a failed
		// round: a bet may already be on the board when a round errors.
		if halt, err := e.checkBalanceFloor(ctx); err != nil {
			slog.Warn("engine: balance check failed", "err", err)
		} else if halt {
			return fmt.Errorf("engine.Run: balance below minimum threshold")
		}

		cont, err := e.playRound(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Error("engine: round failed", "err", err)
			e.notifyError(ctx, err.Error())
			e.sleep(ctx, e.t.errorCooldown)
			continue
		}
		if !cont {
			slog.Warn("engine: max consecutive losses reached, betting paused")
			e.notifyError(ctx, "Max consecutive losses reached. Bot paused.")
			return nil
		}

		e.waitForNextRound(ctx)
	}
}

// playRound runs one pass of the per-round protocol. It returns false when
// the strategy's loss cap pauses betting.
func (e *Engine) playRound(ctx context.Context) (bool, error) {
	// (a) Fresh board read; adopt the round id if it changed.
	board, err := e.game.Board(ctx)
	if err != nil {
		return true, fmt.Errorf("engine.playRound: fetch board: %w", err)
	}
	roundID := board.RoundID

	e.guard.withLock(func(s *strategy.State) {
		if s.CurrentRound != roundID {
			slog.Info("engine: new round", "round", roundID)
			s.CurrentRound = roundID
		}
	})

	// (b) The round must be inside its slot window before betting.
	slot, err := e.rpc.GetSlot(ctx)
	if err != nil {
		return true, fmt.Errorf("engine.playRound: fetch slot: %w", err)
	}
	if !board.Active(slot) {
		e.backOffUntilStart(ctx, board, slot)
		return true, nil
	}

	// Baseline rewards; the post-win reconciliation measures against these.
	var solBefore, oreBefore uint64
	miner, err := e.game.Miner(ctx, e.authority)
	if err != nil {
		return true, fmt.Errorf("engine.playRound: fetch miner: %w", err)
	}
	if miner != nil {
		solBefore, oreBefore = miner.RewardsSol, miner.RewardsOre
	}

	// (c) Decide and submit the bet.
	blocks := e.selector.Select(e.cfg.BlocksPerBet)
	if len(blocks) == 0 {
		return true, fmt.Errorf("engine.playRound: selector returned no squares")
	}
	var betPerBlock uint64
	var losses int
	e.guard.withLock(func(s *strategy.State) {
		betPerBlock = s.CurrentBetPerBlock
		losses = s.ConsecutiveLosses
	})
	totalBet := betPerBlock * uint64(len(blocks))
	squares := domain.BlockIndices(blocks)

	e.notify(ctx, func(ctx context.Context) error {
		return e.notifier.NotifyBet(ctx, domain.BetEvent{
			RoundID:           roundID,
			Squares:           squares,
			BetPerBlock:       betPerBlock,
			TotalBet:          totalBet,
			ConsecutiveLosses: losses,
		})
	})

	if miner != nil && miner.NeedsCheckpoint() {
		slog.Info("engine: checkpoint needed", "settle_round", miner.RoundID, "bet_round", roundID)
		if _, err := e.exec.ExecuteCheckpointAndBet(ctx, miner.RoundID, roundID, blocks, betPerBlock); err != nil {
			return true, fmt.Errorf("engine.playRound: checkpoint+deploy: %w", err)
		}
	} else {
		if _, err := e.exec.ExecuteBet(ctx, roundID, blocks, betPerBlock); err != nil {
			return true, fmt.Errorf("engine.playRound: deploy: %w", err)
		}
	}
	e.guard.withLock(func(s *strategy.State) { s.RecordBet(totalBet) })

	// (d) Poll until the round's slot window closes.
	if err := e.waitForCompletion(ctx, board); err != nil {
		return true, err
	}

	// (e) Fetch the settled round, retrying while the rng is unset.
	round, rngOK, err := e.fetchSettledRound(ctx, roundID)
	if err != nil {
		return true, err
	}
	if !rngOK {
		slog.Warn("engine: rng never settled, skipping round", "round", roundID)
		return true, nil
	}

	// (f) Resolve the outcome.
	rng, _ := round.Rng()
	winning := round.WinningSquare(rng)
	won := slices.Contains(squares, winning)
	slog.Info("engine: round settled", "round", roundID, "winning_square", winning, "won", won)

	if won {
		e.handleWin(ctx, winParams{
			roundID:       roundID,
			winningSquare: winning,
			squares:       squares,
			betPerBlock:   betPerBlock,
			totalBet:      totalBet,
			solBefore:     solBefore,
			oreBefore:     oreBefore,
		})
		return true, nil
	}
	return e.handleLoss(ctx, roundID, winning, squares, betPerBlock, totalBet), nil
}

// backOffUntilStart sleeps until the round's start slot should have passed,
// using the known per-slot duration plus a small buffer.
func (e *Engine) backOffUntilStart(ctx context.Context, board domain.Board, slot uint64) {
	if slot < board.StartSlot {
		wait := time.Duration(board.StartSlot-slot)*e.t.slotDuration + e.t.roundStartBuffer
		slog.Debug("engine: round not started", "round", board.RoundID, "slot", slot, "start_slot", board.StartSlot, "wait", wait)
		e.sleep(ctx, wait)
		return
	}
	slog.Debug("engine: round window closed, waiting for next", "round", board.RoundID)
	e.sleep(ctx, e.t.defaultNextRoundWait)
}

// waitForCompletion polls the slot at a fixed interval until the round's end
// slot passes, bounded by a hard timeout that fails the round.
func (e *Engine) waitForCompletion(ctx context.Context, board domain.Board) error {
	deadline := time.Now().Add(e.t.completionTimeout)
	for {
		if !e.sleep(ctx, e.t.completionPollInterval) {
			return ctx.Err()
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("engine.waitForCompletion: round %d timed out after %s", board.RoundID, e.t.completionTimeout)
		}
		slot, err := e.rpc.GetSlot(ctx)
		if err != nil {
			slog.Warn("engine: slot poll failed", "err", err)
			continue
		}
		if board.Complete(slot) {
			return nil
		}
	}
}

// fetchSettledRound reads the round account, retrying a bounded number of
// times while the slot hash (and thus the rng) is still unset.
func (e *Engine) fetchSettledRound(ctx context.Context, roundID uint64) (domain.Round, bool, error) {
	round, err := e.game.Round(ctx, roundID)
	if err != nil {
		return domain.Round{}, false, fmt.Errorf("engine.fetchSettledRound: %w", err)
	}
	for attempt := 0; attempt < maxRngAttempts; attempt++ {
		if _, ok := round.Rng(); ok {
			return round, true, nil
		}
		slog.Debug("engine: rng not available yet", "round", roundID, "attempt", attempt+1)
		if !e.sleep(ctx, e.t.rngRetryInterval) {
			return domain.Round{}, false, ctx.Err()
		}
		round, err = e.game.Round(ctx, roundID)
		if err != nil {
			return domain.Round{}, false, fmt.Errorf("engine.fetchSettledRound: %w", err)
		}
	}
	_, ok := round.Rng()
	return round, ok, nil
}

// handleWin resets the progression immediately for bookkeeping and spawns the
// detached reconciliation task. All inputs are captured by value at spawn
// time; results merge back through the state lock.
func (e *Engine) handleWin(ctx context.Context, p winParams) {
	e.guard.withLock(func(s *strategy.State) {
		p.cycleBet = s.CurrentCycleBetLamports
		s.ResetAfterWin(e.cfg.Martingale)
	})

	// Detached: reward crediting lags settlement and must not delay the
	// next round. The task has no cancellation signal beyond process exit.
	go e.reconcileWin(context.WithoutCancel(ctx), p)
}

// handleLoss advances the martingale and reports. Returns false when the loss
// cap pauses betting.
func (e *Engine) handleLoss(ctx context.Context, roundID uint64, winning uint8, squares []uint8, betPerBlock, totalBet uint64) bool {
	var cont, warn bool
	var losses int
	var nextBet uint64
	var stats domain.Stats
	e.guard.withLock(func(s *strategy.State) {
		cont, warn = s.OnLoss(e.cfg.Martingale)
		losses = s.ConsecutiveLosses
		nextBet = s.CurrentBetPerBlock
		stats = s.Stats()
	})

	e.notify(ctx, func(ctx context.Context) error {
		return e.notifier.NotifyLoss(ctx, domain.LossEvent{
			RoundID:           roundID,
			WinningSquare:     winning,
			ConsecutiveLosses: losses,
			NextBet:           nextBet,
		})
	})
	if warn {
		e.notify(ctx, func(ctx context.Context) error {
			return e.notifier.NotifyWarning(ctx, domain.WarningEvent{
				ConsecutiveLosses:    losses,
				MaxConsecutiveLosses: e.cfg.Martingale.MaxConsecutiveLosses,
				CurrentBet:           nextBet,
			})
		})
	}

	e.persistRound(ctx, domain.RoundRecord{
		SessionID:     e.cfg.SessionID,
		RoundID:       roundID,
		Squares:       squares,
		BetPerBlock:   betPerBlock,
		TotalBet:      totalBet,
		Won:           false,
		WinningSquare: winning,
		NetProfit:     -int64(totalBet),
		SettledAt:     time.Now(),
	})
	e.maybeNotifyStats(ctx, stats)
	return cont
}

// checkBalanceFloor reports whether the wallet dropped below the configured
// minimum. That condition is fatal.
func (e *Engine) checkBalanceFloor(ctx context.Context) (bool, error) {
	if e.cfg.MinBalance == 0 {
		return false, nil
	}
	balance, err := e.rpc.GetBalance(ctx, e.authority)
	if err != nil {
		return false, err
	}
	if balance < e.cfg.MinBalance {
		slog.Error("engine: balance below floor", "balance", balance, "floor", e.cfg.MinBalance)
		e.notifyError(ctx, fmt.Sprintf("Balance too low: %.6f SOL. Please top up.",
			float64(balance)/domain.LamportsPerSol))
		return true, nil
	}
	return false, nil
}

// waitForNextRound sleeps until the next round should be underway, deriving
// the wait from the board's start slot when it is in the future.
func (e *Engine) waitForNextRound(ctx context.Context) {
	board, err := e.game.Board(ctx)
	if err != nil {
		slog.Warn("engine: board fetch failed before next round", "err", err)
		e.sleep(ctx, e.t.errorCooldown)
		return
	}
	slot, err := e.rpc.GetSlot(ctx)
	if err != nil {
		slog.Warn("engine: slot fetch failed before next round", "err", err)
		e.sleep(ctx, e.t.errorCooldown)
		return
	}
	if slot < board.StartSlot {
		wait := time.Duration(board.StartSlot-slot)*e.t.slotDuration + e.t.roundStartBuffer
		slog.Info("engine: next round not started", "wait", wait)
		e.sleep(ctx, wait)
		return
	}
	e.sleep(ctx, e.t.defaultNextRoundWait)
}

// maybeNotifyStats reports session statistics every StatsInterval settled
// rounds.
func (e *Engine) maybeNotifyStats(ctx context.Context, stats domain.Stats) {
	if e.cfg.StatsInterval <= 0 || stats.TotalRounds == 0 {
		return
	}
	if stats.TotalRounds%e.cfg.StatsInterval != 0 {
		return
	}
	e.notify(ctx, func(ctx context.Context) error {
		return e.notifier.NotifyStats(ctx, stats)
	})
}

// persistRound writes a settled round; storage failures are logged only.
func (e *Engine) persistRound(ctx context.Context, rec domain.RoundRecord) {
	if e.store == nil {
		return
	}
	if err := e.store.SaveRound(ctx, rec); err != nil {
		slog.Warn("engine: persist round failed", "round", rec.RoundID, "err", err)
	}
}

// notify delivers one event, logging failures. Sinks are never fatal.
func (e *Engine) notify(ctx context.Context, fn func(context.Context) error) {
	if err := fn(ctx); err != nil {
		slog.Warn("engine: notification failed", "err", err)
	}
}

func (e *Engine) notifyError(ctx context.Context, msg string) {
	e.notify(ctx, func(ctx context.Context) error {
		return e.notifier.NotifyError(ctx, msg)
	})
}

// sleep waits for d or context cancellation. Reports false when cancelled.
func (e *Engine) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
