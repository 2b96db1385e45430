package sniper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"raydium-sniper-go/internal/config"
	"raydium-sniper-go/internal/jupiter"
	"raydium-sniper-go/internal/logger"
	"raydium-sniper-go/internal/rugcheck"
	"raydium-sniper-go/internal/wallet"

	"github.com/sirupsen/logrus"
)

// State is the pipeline's current stage. Exactly one signal is in flight at
// a time; everything arriving while not Idle is dropped, never queued.
type State int32

const (
	StateIdle State = iota
	StateSignalReceived
	StateRiskCheck
	StateExecuting
	StateCooldown
)

// String returns a readable state name
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSignalReceived:
		return "signal_received"
	case StateRiskCheck:
		return "risk_check"
	case StateExecuting:
		return "executing"
	case StateCooldown:
		return "cooldown"
	default:
		return "unknown"
	}
}

// Notifier pushes operator notifications. Implementations must not block.
type Notifier interface {
	Notify(text string)
}

// Pipeline drives a signal from detection through risk gating, execution and
// position monitoring. A stale signal is worthless, so concurrent signals
// are dropped rather than queued; the cooldown after each run keeps the bot
// from machine-gunning its wallet into every block.
type Pipeline struct {
	cfg      *config.Config
	watcher  *Watcher
	risk     *rugcheck.Client
	executor *Executor
	monitor  *Monitor
	wallet   *wallet.Wallet
	logger   *logger.Logger
	notifier Notifier

	ctx  context.Context
	busy atomic.Bool

	state atomic.Int32

	mu              sync.Mutex
	positions       map[string]*Position
	signalsSeen     uint64
	signalsDropped  uint64
	tradesSubmitted uint64
}

// NewPipeline creates a new pipeline controller
func NewPipeline(cfg *config.Config, watcher *Watcher, risk *rugcheck.Client, executor *Executor, monitor *Monitor, w *wallet.Wallet, log *logger.Logger) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		watcher:   watcher,
		risk:      risk,
		executor:  executor,
		monitor:   monitor,
		wallet:    w,
		logger:    log,
		positions: make(map[string]*Position),
	}
}

// SetNotifier attaches an operator notifier. Must be called before Start.
func (p *Pipeline) SetNotifier(n Notifier) {
	p.notifier = n
}

// Start subscribes to the log stream and begins processing signals
func (p *Pipeline) Start(ctx context.Context) error {
	p.ctx = ctx
	return p.watcher.Start(p.handleSignal)
}

// Stop tears down the subscription and waits for open positions to finish
func (p *Pipeline) Stop(ctx context.Context) error {
	err := p.watcher.Suspend(ctx)
	p.monitor.Wait()
	return err
}

// State returns the pipeline's current stage
func (p *Pipeline) State() State {
	return State(p.state.Load())
}

func (p *Pipeline) setState(s State) {
	p.state.Store(int32(s))
}

// handleSignal is the subscription callback. It must return quickly, so the
// actual processing runs in its own goroutine once the busy gate is taken.
func (p *Pipeline) handleSignal(sig Signal) {
	p.mu.Lock()
	p.signalsSeen++
	p.mu.Unlock()

	if !p.busy.CompareAndSwap(false, true) {
		p.mu.Lock()
		p.signalsDropped++
		p.mu.Unlock()

		p.logger.WithField("signature", sig.Signature).Debug("Pipeline busy, signal dropped")
		return
	}

	go p.process(sig)
}

func (p *Pipeline) process(sig Signal) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.WithField("panic", r).Error("💥 Pipeline panicked, resetting")
			p.release()
		}
	}()

	ctx := p.ctx
	p.setState(StateSignalReceived)

	if p.cfg.Trading.SuspendWhileTrading {
		if err := p.watcher.Suspend(ctx); err != nil {
			p.logger.WithError(err).Warn("Failed to suspend subscription")
		}
	}

	tx, err := p.watcher.ResolveTransaction(ctx, sig.Signature)
	if err != nil {
		p.logger.WithError(err).WithField("signature", sig.Signature).Warn("Could not resolve signal transaction")
		p.release()
		return
	}

	candidate, err := ExtractCandidate(tx, p.wallet.PublicKeyString())
	if err != nil {
		p.logger.WithField("signature", sig.Signature).Debug("No mint candidate in transaction")
		p.release()
		return
	}

	p.logger.WithFields(logrus.Fields{
		"mint":   candidate.Mint,
		"source": candidate.Source,
	}).Info("🎯 Mint candidate extracted")

	p.setState(StateRiskCheck)
	verdict := p.risk.Assess(ctx, candidate.Mint)
	p.logger.LogRiskVerdict(candidate.Mint, verdict.Approved, float64(verdict.Score), verdict.Degraded)
	if !verdict.Approved {
		p.release()
		return
	}

	p.setState(StateExecuting)
	position, err := p.executor.Buy(ctx, candidate.Mint)
	if err != nil {
		if !errors.Is(err, jupiter.ErrRouteUnavailable) {
			p.notify(fmt.Sprintf("⚠️ Buy failed for %s: %v", candidate.Mint, err))
		}
		p.release()
		return
	}

	p.mu.Lock()
	p.positions[position.Mint] = position
	p.tradesSubmitted++
	p.mu.Unlock()

	p.notify(fmt.Sprintf("🟢 Bought %s\nspent %.4f SOL\ntx %s", position.Mint, position.SpentSOL, position.BuySignature))

	// The monitor owns the position from here; the pipeline itself goes
	// back through cooldown to idle and accepts new signals while the
	// position is still open.
	p.monitor.Watch(ctx, position, p.onExit)
	p.release()
}

// onExit runs once when the monitor stops watching the position
func (p *Pipeline) onExit(position *Position, result *TradeResult, reason string) {
	p.mu.Lock()
	delete(p.positions, position.Mint)
	if result != nil {
		p.tradesSubmitted++
	}
	p.mu.Unlock()

	switch {
	case result != nil:
		proceeds := config.ConvertLamportsToSOL(result.OutAmount)
		p.notify(fmt.Sprintf("🔴 Sold %s (%s)\nproceeds %.4f SOL\ntx %s", position.Mint, reason, proceeds, result.Signature))
	case reason != "":
		p.notify(fmt.Sprintf("⚠️ Exit failed for %s (%s), position abandoned", position.Mint, reason))
	}
}

// release runs the cooldown, re-arms the subscription if it was suspended
// and returns the pipeline to Idle. Every terminal outcome funnels through
// here so the busy gate can never leak.
func (p *Pipeline) release() {
	p.setState(StateCooldown)

	cooldown := p.cfg.Cooldown()
	if cooldown > 0 {
		select {
		case <-p.ctx.Done():
		case <-time.After(cooldown):
		}
	}

	if p.cfg.Trading.SuspendWhileTrading && p.ctx.Err() == nil {
		if err := p.watcher.Resume(); err != nil {
			p.logger.WithError(err).Error("❌ Failed to resume subscription")
		}
	}

	p.setState(StateIdle)
	p.busy.Store(false)
}

func (p *Pipeline) notify(text string) {
	if p.notifier != nil {
		p.notifier.Notify(text)
	}
}

// WalletBalanceSOL implements the operator status interface
func (p *Pipeline) WalletBalanceSOL(ctx context.Context) (float64, error) {
	return p.wallet.GetBalanceSOL(ctx)
}

// StatusText implements the operator status interface
func (p *Pipeline) StatusText() string {
	p.mu.Lock()
	open := make([]*Position, 0, len(p.positions))
	for _, position := range p.positions {
		open = append(open, position)
	}
	seen := p.signalsSeen
	dropped := p.signalsDropped
	trades := p.tradesSubmitted
	p.mu.Unlock()

	var b strings.Builder
	fmt.Fprintf(&b, "State: %s\n", p.State())
	fmt.Fprintf(&b, "Signals: %d seen, %d dropped\n", seen, dropped)
	fmt.Fprintf(&b, "Trades submitted: %d\n", trades)
	if len(open) == 0 {
		b.WriteString("Open positions: none\n")
	} else {
		fmt.Fprintf(&b, "Open positions: %d\n", len(open))
		for _, position := range open {
			fmt.Fprintf(&b, "  %s (%.4f SOL)\n", position.Mint, position.SpentSOL)
		}
	}
	return b.String()
}

// LogTail implements the operator status interface
func (p *Pipeline) LogTail() []string {
	return p.logger.History().Tail()
}
