package sniper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"raydium-sniper-go/internal/logger"
	"raydium-sniper-go/internal/solana"
)

// initMarker is the substring a pool-creation transaction leaves in its log
// messages (initialize, initialize2, ...). Matching the substring instead of
// an exact instruction name survives Raydium instruction renames.
const initMarker = "init"

// SignalHandler receives one signal per detected pool creation
type SignalHandler func(Signal)

// Watcher turns the raw program log stream into pool-creation signals and
// resolves their transactions once the node has indexed them.
type Watcher struct {
	ws         *solana.WSClient
	rpc        *solana.Client
	programID  string
	logger     *logger.Logger
	maxRetries int
	retryDelay time.Duration

	mu      sync.Mutex
	subID   int
	handler SignalHandler
}

// WatcherConfig contains watcher configuration
type WatcherConfig struct {
	ProgramID  string
	MaxRetries int
	RetryDelay time.Duration
}

// NewWatcher creates a new watcher
func NewWatcher(cfg WatcherConfig, ws *solana.WSClient, rpc *solana.Client, log *logger.Logger) *Watcher {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}

	return &Watcher{
		ws:         ws,
		rpc:        rpc,
		programID:  cfg.ProgramID,
		logger:     log,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
	}
}

// Start subscribes to the program's log stream and forwards matching
// notifications to handler
func (w *Watcher) Start(handler SignalHandler) error {
	w.mu.Lock()
	w.handler = handler
	w.mu.Unlock()

	return w.subscribe()
}

// Suspend tears down the log subscription. No signals are delivered between
// Suspend returning and the next Resume.
func (w *Watcher) Suspend(ctx context.Context) error {
	w.mu.Lock()
	id := w.subID
	w.subID = 0
	w.mu.Unlock()

	if id == 0 {
		return nil
	}
	return w.ws.Unsubscribe(ctx, id)
}

// Resume re-arms the subscription after a Suspend
func (w *Watcher) Resume() error {
	w.mu.Lock()
	active := w.subID != 0
	w.mu.Unlock()

	if active {
		return nil
	}
	return w.subscribe()
}

func (w *Watcher) subscribe() error {
	id, err := w.ws.SubscribeLogs(w.programID, w.onNotification)
	if err != nil {
		return fmt.Errorf("failed to subscribe to program logs: %w", err)
	}

	w.mu.Lock()
	w.subID = id
	w.mu.Unlock()
	return nil
}

// onNotification filters the raw stream down to pool-creation signals
func (w *Watcher) onNotification(n solana.LogsNotification) {
	signature := n.Result.Value.Signature
	logs := n.Result.Value.Logs

	if signature == "" || len(logs) == 0 {
		return
	}
	if n.Result.Value.Err != nil {
		return
	}
	if !hasInitMarker(logs) {
		return
	}

	w.logger.LogSignal(signature, n.Result.Context.Slot, len(logs))

	w.mu.Lock()
	handler := w.handler
	w.mu.Unlock()

	if handler != nil {
		handler(Signal{
			Signature: signature,
			Slot:      n.Result.Context.Slot,
			Logs:      logs,
		})
	}
}

// hasInitMarker reports whether any log line mentions pool initialization
func hasInitMarker(logs []string) bool {
	for _, line := range logs {
		if strings.Contains(strings.ToLower(line), initMarker) {
			return true
		}
	}
	return false
}

// ResolveTransaction fetches the parsed transaction behind a signal. The
// subscription runs at processed commitment while getTransaction serves
// confirmed, so the first fetches routinely miss; retry with a fixed delay
// until the node catches up or the budget runs out.
func (w *Watcher) ResolveTransaction(ctx context.Context, signature string) (*solana.ParsedTransaction, error) {
	var lastErr error
	for attempt := 0; attempt < w.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", ErrTxUnresolved, ctx.Err())
			case <-time.After(w.retryDelay):
			}
		}

		tx, err := w.rpc.GetParsedTransaction(ctx, signature)
		if err == nil {
			return tx, nil
		}
		lastErr = err

		if !errors.Is(err, solana.ErrTxNotFound) {
			return nil, err
		}

		w.logger.WithField("signature", signature).Debug("Transaction not indexed yet, retrying")
	}

	return nil, fmt.Errorf("%w after %d attempts: %v", ErrTxUnresolved, w.maxRetries, lastErr)
}
