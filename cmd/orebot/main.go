package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"

	"oregrid/config"
	"oregrid/internal/adapters/ledger"
	"oregrid/internal/adapters/notify"
	"oregrid/internal/adapters/storage"
	"oregrid/internal/domain"
	"oregrid/internal/engine"
	"oregrid/internal/executor"
	"oregrid/internal/grid"
	"oregrid/internal/ore"
	"oregrid/internal/ports"
	"oregrid/internal/strategy"
	"oregrid/internal/subscription"
)

const maxTxRetries = 3

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	wallet, err := ledger.LoadWallet(cfg.Wallet.PrivateKey)
	if err != nil {
		slog.Error("failed to load wallet", "err", err)
		os.Exit(1)
	}
	authority := wallet.PublicKey()

	sessionID := uuid.NewString()
	slog.Info("orebot starting",
		"config", *configPath,
		"authority", authority,
		"session", sessionID,
		"base_bet_sol", cfg.Martingale.BaseBetSol,
		"blocks_per_bet", cfg.Martingale.BlocksPerBet,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client := ledger.NewClient(cfg.RPC.URL)
	game := ore.NewClient(client)

	if err := checkStartupBalance(ctx, client, authority, cfg.Monitoring.MinBalanceLamports()); err != nil {
		slog.Error("startup balance check failed", "err", err)
		os.Exit(1)
	}
	logExistingRewards(ctx, game, authority)

	mirror := subscription.NewMinerMirror(cfg.RPC.URL, ore.MinerAddress(authority))
	go mirror.Run(ctx)

	notifiers := notify.Multi{notify.NewConsole()}
	if cfg.Discord.WebhookURL != "" {
		notifiers = append(notifiers, notify.NewDiscord(
			cfg.Discord.WebhookURL,
			cfg.Discord.StatsWebhookURL,
			cfg.Discord.WarnWebhookURL,
		))
	}

	var store ports.Storage
	if cfg.Storage.DSN != "" {
		sqlStore, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
		if err != nil {
			slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
			os.Exit(1)
		}
		defer sqlStore.Close()
		store = sqlStore
	}

	exec := executor.New(client, wallet, maxTxRetries)

	eng := engine.New(
		engine.Config{
			BlocksPerBet: cfg.Martingale.BlocksPerBet,
			Martingale: strategy.Config{
				BaseBet:               cfg.Martingale.BaseBetLamports(),
				Multiplier:            cfg.Martingale.Multiplier,
				MaxConsecutiveLosses:  cfg.Martingale.MaxConsecutiveLosses,
				WarnConsecutiveLosses: cfg.Martingale.WarnConsecutiveLosses,
			},
			MinBalance:         cfg.Monitoring.MinBalanceLamports(),
			AutoClaimThreshold: cfg.Monitoring.AutoClaimThresholdLamports(),
			StatsInterval:      cfg.Discord.StatsInterval,
			SessionID:          sessionID,
		},
		client, game, exec, mirror, grid.Random{}, notifiers, store, authority,
	)

	if err := eng.Run(ctx); err != nil {
		slog.Error("engine exited with error", "err", err)
		os.Exit(1)
	}

	slog.Info("orebot stopped cleanly")
}

func checkStartupBalance(ctx context.Context, rpc ports.LedgerRPC, authority solana.PublicKey, minBalance uint64) error {
	balance, err := rpc.GetBalance(ctx, authority)
	if err != nil {
		return fmt.Errorf("get balance: %w", err)
	}
	slog.Info("wallet balance", "sol", float64(balance)/domain.LamportsPerSol)
	if balance < minBalance {
		return fmt.Errorf("balance %.6f SOL below minimum %.6f SOL",
			float64(balance)/domain.LamportsPerSol, float64(minBalance)/domain.LamportsPerSol)
	}
	return nil
}

func logExistingRewards(ctx context.Context, game ports.GameReader, authority solana.PublicKey) {
	miner, err := game.Miner(ctx, authority)
	if err != nil {
		slog.Warn("could not fetch miner account", "err", err)
		return
	}
	if miner == nil {
		slog.Info("no miner account yet, it will be created on the first bet")
		return
	}
	slog.Info("existing miner rewards",
		"sol", float64(miner.RewardsSol)/domain.LamportsPerSol,
		"ore", float64(miner.RewardsOre)/domain.OreAtomsPerOre,
	)
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
