package sniper

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type monitorFixture struct {
	rpc      *fakeRPC
	swaps    *fakeSwapService
	executor *Executor
	monitor  *Monitor
}

func newMonitorFixture(t *testing.T, sellPrice float64) *monitorFixture {
	t.Helper()

	rpc := newFakeRPC(t, func(method string, _ json.RawMessage) (string, bool) {
		if method == "sendTransaction" {
			return `"ExitSig1111"`, true
		}
		return "", false
	})

	rpcClient := rpc.client(t)
	w := newTestWallet(t, rpcClient)
	payload := unsignedSwapPayload(t, w.PublicKeyString())
	swaps := newFakeSwapService(t, payload, sellPrice)

	executor := NewExecutor(ExecutorConfig{
		BuyAmountSOL: 0.01,
		SlippageBP:   500,
		PriorityFee:  2_000_000,
	}, swaps.jupiterClient(t), w, rpcClient, newTestLogger(t), newTestJournal(t))

	monitor := NewMonitor(MonitorConfig{
		PollInterval:    5 * time.Millisecond,
		TakeProfitRatio: 1.5,
		StopLossRatio:   0.5,
	}, executor, newTestLogger(t))

	return &monitorFixture{rpc: rpc, swaps: swaps, executor: executor, monitor: monitor}
}

func testPosition() *Position {
	return &Position{
		Mint:         testMint,
		EntryPrice:   10, // lamports per raw token unit
		AmountTokens: 1_000_000,
		SpentSOL:     0.01,
		BuySignature: "BuySig1111",
		OpenedAt:     time.Now(),
	}
}

type exitRecorder struct {
	mu     sync.Mutex
	calls  int
	result *TradeResult
	reason string
	exited chan struct{}
	once   sync.Once
}

func newExitRecorder() *exitRecorder {
	return &exitRecorder{exited: make(chan struct{})}
}

func (r *exitRecorder) callback(_ *Position, result *TradeResult, reason string) {
	r.mu.Lock()
	r.calls++
	r.result = result
	r.reason = reason
	r.mu.Unlock()
	r.once.Do(func() { close(r.exited) })
}

func (r *exitRecorder) wait(t *testing.T) {
	t.Helper()
	select {
	case <-r.exited:
	case <-time.After(5 * time.Second):
		t.Fatal("monitor never exited")
	}
}

func TestMonitorTakeProfitExit(t *testing.T) {
	// Sell quote pays 20 lamports per token against an entry of 10,
	// a 2.0 ratio, well past the 1.5 take profit
	fix := newMonitorFixture(t, 20)
	rec := newExitRecorder()

	fix.monitor.Watch(context.Background(), testPosition(), rec.callback)
	rec.wait(t)
	fix.monitor.Wait()

	assert.Equal(t, 1, rec.calls)
	assert.Equal(t, ExitTakeProfit, rec.reason)
	require.NotNil(t, rec.result)
	assert.Equal(t, "ExitSig1111", rec.result.Signature)
	assert.Equal(t, 1, fix.rpc.callCount("sendTransaction"))
}

func TestMonitorStopLossExit(t *testing.T) {
	// 4 lamports per token against an entry of 10 is a 0.4 ratio
	fix := newMonitorFixture(t, 4)
	rec := newExitRecorder()

	fix.monitor.Watch(context.Background(), testPosition(), rec.callback)
	rec.wait(t)
	fix.monitor.Wait()

	assert.Equal(t, ExitStopLoss, rec.reason)
	assert.Equal(t, 1, fix.rpc.callCount("sendTransaction"))
}

func TestMonitorHoldsBetweenThresholds(t *testing.T) {
	// Ratio 1.1 triggers neither threshold
	fix := newMonitorFixture(t, 11)
	rec := newExitRecorder()

	ctx, cancel := context.WithCancel(context.Background())
	fix.monitor.Watch(ctx, testPosition(), rec.callback)

	require.Eventually(t, func() bool {
		return fix.swaps.quoteCount() >= 3
	}, 5*time.Second, time.Millisecond)

	assert.Equal(t, 0, fix.rpc.callCount("sendTransaction"))

	cancel()
	rec.wait(t)
	fix.monitor.Wait()

	// Cancellation reports no trade
	assert.Nil(t, rec.result)
	assert.Empty(t, rec.reason)
}

func TestMonitorTerminatesAfterFailedExit(t *testing.T) {
	// The node rejects every submission, so the one exit attempt fails
	rpc := newFakeRPC(t, func(method string, _ json.RawMessage) (string, bool) {
		return "", false
	})
	rpcClient := rpc.client(t)
	w := newTestWallet(t, rpcClient)
	payload := unsignedSwapPayload(t, w.PublicKeyString())
	swaps := newFakeSwapService(t, payload, 20)

	executor := NewExecutor(ExecutorConfig{
		BuyAmountSOL: 0.01,
		SlippageBP:   500,
	}, swaps.jupiterClient(t), w, rpcClient, newTestLogger(t), newTestJournal(t))

	monitor := NewMonitor(MonitorConfig{
		PollInterval:    5 * time.Millisecond,
		TakeProfitRatio: 1.5,
		StopLossRatio:   0.5,
	}, executor, newTestLogger(t))

	rec := newExitRecorder()
	monitor.Watch(context.Background(), testPosition(), rec.callback)
	rec.wait(t)
	monitor.Wait()

	// Terminated with the reason but no trade, and never polled again
	assert.Equal(t, 1, rec.calls)
	assert.Nil(t, rec.result)
	assert.Equal(t, ExitTakeProfit, rec.reason)
	assert.Equal(t, 1, rpc.callCount("sendTransaction"))
}

func TestMonitorToleratesPollErrors(t *testing.T) {
	fix := newMonitorFixture(t, 20)
	// jupiter client retries twice per poll, so three failures span
	// at least two poll cycles before a price comes through
	fix.swaps.setQuoteFails(3)
	rec := newExitRecorder()

	fix.monitor.Watch(context.Background(), testPosition(), rec.callback)
	rec.wait(t)
	fix.monitor.Wait()

	assert.Equal(t, ExitTakeProfit, rec.reason)
	assert.Equal(t, 1, fix.rpc.callCount("sendTransaction"))
}
