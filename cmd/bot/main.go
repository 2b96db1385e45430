package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"raydium-sniper-go/internal/config"
	"raydium-sniper-go/internal/jupiter"
	"raydium-sniper-go/internal/logger"
	"raydium-sniper-go/internal/rugcheck"
	"raydium-sniper-go/internal/sniper"
	"raydium-sniper-go/internal/solana"
	"raydium-sniper-go/internal/telegram"
	"raydium-sniper-go/internal/wallet"
)

const version = "1.0.0"

func main() {
	var (
		configPath  = flag.String("config", "", "Path to configuration file")
		envPath     = flag.String("env", "", "Path to .env file")
		network     = flag.String("network", "", "Network override (mainnet, devnet)")
		buyAmount   = flag.Float64("amount", 0, "Buy amount in SOL (overrides config)")
		logLevel    = flag.String("log-level", "", "Log level override (debug, info, warn, error)")
		showVersion = flag.Bool("version", false, "Show version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("raydium-sniper %s\n", version)
		os.Exit(0)
	}

	cfg, err := config.LoadConfig(*configPath, *envPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// CLI overrides
	if *network != "" {
		cfg.Network = *network
		cfg.RPCUrl = config.GetRPCEndpoint(*network)
		cfg.WSUrl = config.GetWSEndpoint(*network)
	}
	if *buyAmount > 0 {
		cfg.Trading.BuyAmountSOL = *buyAmount
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}

	appLog, err := logger.NewLogger(logger.LogConfig{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		LogToFile:   cfg.Logging.LogToFile,
		LogFilePath: cfg.Logging.LogFilePath,
		TradeLogDir: cfg.Logging.TradeLogDir,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	appLog.LogStartup(version, cfg.Network, cfg.RPCUrl)

	rpcClient := solana.NewClient(solana.ClientConfig{
		Endpoint: cfg.RPCUrl,
		APIKey:   cfg.RPCAPIKey,
		Timeout:  time.Duration(cfg.Advanced.RPCTimeoutSec) * time.Second,
	}, appLog.Logger)

	// Verify the RPC endpoint before committing to anything else
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	slot, err := rpcClient.GetSlot(ctx)
	cancel()
	if err != nil {
		appLog.WithError(err).Fatal("Failed to reach RPC endpoint")
	}
	appLog.WithField("slot", slot).Info("🌐 RPC endpoint reachable")

	w, err := wallet.NewWallet(wallet.WalletConfig{
		PrivateKey: cfg.PrivateKey,
		Mnemonic:   cfg.Mnemonic,
		Network:    cfg.Network,
	}, rpcClient, appLog.Logger)
	if err != nil {
		appLog.WithError(err).Fatal("Failed to initialize wallet")
	}

	runCtx, cancelRun := context.WithCancel(context.Background())
	defer cancelRun()

	balance, err := w.GetBalanceSOL(runCtx)
	if err != nil {
		appLog.WithError(err).Warn("Could not fetch wallet balance")
	} else {
		appLog.WithField("balance_sol", balance).Info("💰 Wallet balance")
	}

	journal, err := logger.NewTradeJournal(cfg.Logging.TradeLogDir, appLog)
	if err != nil {
		appLog.WithError(err).Fatal("Failed to open trade journal")
	}
	defer journal.Close()

	wsClient := solana.NewWSClient(cfg.WSUrl, appLog.Logger)
	if err := wsClient.Connect(); err != nil {
		appLog.WithError(err).Fatal("Failed to connect to WebSocket endpoint")
	}
	defer wsClient.Disconnect()

	jupClient := jupiter.NewClient(jupiter.ClientConfig{
		Endpoints:      cfg.Jupiter.Endpoints,
		MaxAttempts:    cfg.Jupiter.MaxAttempts,
		AttemptTimeout: time.Duration(cfg.Jupiter.AttemptTimeout) * time.Millisecond,
		RetryDelay:     time.Duration(cfg.Jupiter.RetryDelayMs) * time.Millisecond,
		Budget:         time.Duration(cfg.Jupiter.BudgetMs) * time.Millisecond,
		SlippageStepBP: cfg.Jupiter.SlippageStepBP,
		SlippageMaxBP:  cfg.Jupiter.SlippageMaxBP,
		OnlyDirect:     cfg.Jupiter.OnlyDirect,
	}, appLog.Logger)

	riskClient := rugcheck.NewClient(rugcheck.ClientConfig{
		BaseURL:   cfg.Risk.BaseURL,
		Threshold: int(cfg.Risk.Threshold),
		Timeout:   time.Duration(cfg.Risk.TimeoutMs) * time.Millisecond,
	}, rpcClient, appLog.Logger)

	watcher := sniper.NewWatcher(sniper.WatcherConfig{
		ProgramID:  config.RaydiumV4ProgramIDBase58(),
		MaxRetries: cfg.Advanced.MaxRetries,
		RetryDelay: time.Duration(cfg.Advanced.RetryDelayMs) * time.Millisecond,
	}, wsClient, rpcClient, appLog)

	executor := sniper.NewExecutor(sniper.ExecutorConfig{
		BuyAmountSOL: cfg.Trading.BuyAmountSOL,
		SlippageBP:   cfg.Trading.SlippageBP,
		PriorityFee:  cfg.Trading.PriorityFee,
	}, jupClient, w, rpcClient, appLog, journal)

	monitor := sniper.NewMonitor(sniper.MonitorConfig{
		PollInterval:    cfg.PollInterval(),
		TakeProfitRatio: cfg.Trading.TakeProfitRatio,
		StopLossRatio:   cfg.Trading.StopLossRatio,
	}, executor, appLog)

	pipeline := sniper.NewPipeline(cfg, watcher, riskClient, executor, monitor, w, appLog)

	var bot *telegram.Bot
	if cfg.Telegram.Enabled {
		bot = telegram.NewBot(telegram.BotConfig{
			Token:   cfg.Telegram.Token,
			ChatID:  cfg.Telegram.ChatID,
			BaseURL: cfg.Telegram.BaseURL,
		}, pipeline, appLog.Logger)
		pipeline.SetNotifier(bot)
		bot.Start(runCtx)
	}

	if err := pipeline.Start(runCtx); err != nil {
		appLog.WithError(err).Fatal("Failed to start pipeline")
	}

	appLog.WithField("program_id", config.RaydiumV4ProgramIDBase58()).Info("👀 Watching for new pools")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	appLog.LogShutdown(sig.String())
	cancelRun()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := pipeline.Stop(shutdownCtx); err != nil {
		appLog.WithError(err).Warn("Pipeline shutdown incomplete")
	}
	if bot != nil {
		bot.Stop()
	}
}
