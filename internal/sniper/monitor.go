package sniper

import (
	"context"
	"sync"
	"time"

	"raydium-sniper-go/internal/logger"
)

// ExitReason classifies why a position was closed
const (
	ExitTakeProfit = "take_profit"
	ExitStopLoss   = "stop_loss"
)

// ExitCallback is invoked once per position when the monitor stops watching
// it. result is nil when no exit was submitted: either the context ended
// first (empty reason) or the one exit attempt failed (reason set).
type ExitCallback func(position *Position, result *TradeResult, reason string)

// Monitor polls open positions and submits the exit swap when the price
// crosses either threshold. Each position gets its own goroutine; a position
// submits at most one exit.
type Monitor struct {
	executor        *Executor
	logger          *logger.Logger
	pollInterval    time.Duration
	takeProfitRatio float64
	stopLossRatio   float64

	wg sync.WaitGroup
}

// MonitorConfig contains monitor configuration
type MonitorConfig struct {
	PollInterval    time.Duration
	TakeProfitRatio float64
	StopLossRatio   float64
}

// NewMonitor creates a new position monitor
func NewMonitor(cfg MonitorConfig, executor *Executor, log *logger.Logger) *Monitor {
	return &Monitor{
		executor:        executor,
		logger:          log,
		pollInterval:    cfg.PollInterval,
		takeProfitRatio: cfg.TakeProfitRatio,
		stopLossRatio:   cfg.StopLossRatio,
	}
}

// Watch starts watching a position until it exits or ctx ends
func (m *Monitor) Watch(ctx context.Context, position *Position, onExit ExitCallback) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.watch(ctx, position, onExit)
	}()
}

// Wait blocks until all watched positions have finished
func (m *Monitor) Wait() {
	m.wg.Wait()
}

func (m *Monitor) watch(ctx context.Context, position *Position, onExit ExitCallback) {
	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if onExit != nil {
				onExit(position, nil, "")
			}
			return
		case <-ticker.C:
		}

		price, err := m.executor.CurrentPrice(ctx, position)
		if err != nil {
			// A missing quote on a thin pool is routine; keep polling
			m.logger.WithError(err).WithField("mint", position.Mint).Debug("Price poll failed")
			continue
		}

		ratio := price / position.EntryPrice
		m.logger.LogPositionUpdate(position.Mint, position.EntryPrice, price, ratio)

		var reason string
		switch {
		case ratio >= m.takeProfitRatio:
			reason = ExitTakeProfit
		case ratio <= m.stopLossRatio:
			reason = ExitStopLoss
		default:
			continue
		}

		// One exit attempt per position: the monitor terminates whether
		// or not the sell went through
		result, err := m.executor.Sell(ctx, position, reason)
		if err != nil {
			m.logger.WithError(err).WithField("mint", position.Mint).Error("❌ Exit submission failed, position abandoned")
			result = nil
		}

		if onExit != nil {
			onExit(position, result, reason)
		}
		return
	}
}
