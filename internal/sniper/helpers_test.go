package sniper

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"raydium-sniper-go/internal/jupiter"
	"raydium-sniper-go/internal/logger"
	"raydium-sniper-go/internal/solana"
	"raydium-sniper-go/internal/wallet"

	"github.com/blocto/solana-go-sdk/types"
	solanago "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/require"
)

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.NewLogger(logger.LogConfig{Level: "error"})
	require.NoError(t, err)
	return log
}

// rpcHandler returns the raw JSON result for a method, or false to reply
// with a method-not-found error
type rpcHandler func(method string, params json.RawMessage) (string, bool)

// fakeRPC is an in-process JSON-RPC endpoint with per-method call counting
type fakeRPC struct {
	server  *httptest.Server
	handler rpcHandler

	mu    sync.Mutex
	calls map[string]int
}

func newFakeRPC(t *testing.T, handler rpcHandler) *fakeRPC {
	t.Helper()

	f := &fakeRPC{
		handler: handler,
		calls:   make(map[string]int),
	}

	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string          `json:"method"`
			Params json.RawMessage `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		f.mu.Lock()
		f.calls[req.Method]++
		f.mu.Unlock()

		result, ok := f.handler(req.Method, req.Params)
		if !ok {
			fmt.Fprintf(w, `{"jsonrpc":"2.0","id":1,"error":{"code":-32601,"message":"method not found"}}`)
			return
		}
		fmt.Fprintf(w, `{"jsonrpc":"2.0","id":1,"result":%s}`, result)
	}))
	t.Cleanup(f.server.Close)

	return f
}

func (f *fakeRPC) callCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeRPC) client(t *testing.T) *solana.Client {
	t.Helper()
	return solana.NewClient(solana.ClientConfig{
		Endpoint: f.server.URL,
		Timeout:  5 * time.Second,
	}, newTestLogger(t).Logger)
}

// newTestWallet creates a wallet with a throwaway key
func newTestWallet(t *testing.T, rpc *solana.Client) *wallet.Wallet {
	t.Helper()

	account := types.NewAccount()
	w, err := wallet.NewWallet(wallet.WalletConfig{
		PrivateKey: base58.Encode(account.PrivateKey),
	}, rpc, newTestLogger(t).Logger)
	require.NoError(t, err)
	return w
}

// unsignedSwapPayload builds a minimal transaction with the wallet as fee
// payer, standing in for what the routing service would return
func unsignedSwapPayload(t *testing.T, payerAddress string) string {
	t.Helper()

	payer := solanago.MustPublicKeyFromBase58(payerAddress)
	inst := system.NewTransferInstruction(1, payer, payer).Build()

	tx, err := solanago.NewTransaction(
		[]solanago.Instruction{inst},
		solanago.Hash{},
		solanago.TransactionPayer(payer),
	)
	require.NoError(t, err)

	payload, err := tx.ToBase64()
	require.NoError(t, err)
	return payload
}

// fakeSwapService serves /quote and /swap with a settable sell price
type fakeSwapService struct {
	server *httptest.Server

	mu         sync.Mutex
	quoteFails int     // initial /quote requests to fail
	sellPrice  float64 // lamports out per token in
	quoteCalls int
	swapCalls  int
	payload    string
}

func newFakeSwapService(t *testing.T, payload string, sellPrice float64) *fakeSwapService {
	t.Helper()

	f := &fakeSwapService{payload: payload, sellPrice: sellPrice}

	mux := http.NewServeMux()
	mux.HandleFunc("/quote", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.quoteCalls++
		fail := f.quoteFails > 0
		if fail {
			f.quoteFails--
		}
		price := f.sellPrice
		f.mu.Unlock()

		if fail {
			http.Error(w, "no route", http.StatusBadRequest)
			return
		}

		query := r.URL.Query()
		inputMint := query.Get("inputMint")
		outputMint := query.Get("outputMint")
		amount := query.Get("amount")

		var in, out string
		in = amount
		var amt uint64
		fmt.Sscan(amount, &amt)
		out = fmt.Sprintf("%d", uint64(float64(amt)*price))

		fmt.Fprintf(w, `{"inputMint":%q,"inAmount":%q,"outputMint":%q,"outAmount":%q}`,
			inputMint, in, outputMint, out)
	})
	mux.HandleFunc("/swap", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.swapCalls++
		f.mu.Unlock()
		fmt.Fprintf(w, `{"swapTransaction":%q}`, f.payload)
	})

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeSwapService) setSellPrice(price float64) {
	f.mu.Lock()
	f.sellPrice = price
	f.mu.Unlock()
}

func (f *fakeSwapService) setQuoteFails(n int) {
	f.mu.Lock()
	f.quoteFails = n
	f.mu.Unlock()
}

func (f *fakeSwapService) swapCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.swapCalls
}

func (f *fakeSwapService) quoteCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.quoteCalls
}

func (f *fakeSwapService) jupiterClient(t *testing.T) *jupiter.Client {
	t.Helper()
	return jupiter.NewClient(jupiter.ClientConfig{
		Endpoints:   []string{f.server.URL},
		MaxAttempts: 2,
	}, newTestLogger(t).Logger)
}

// newTestJournal creates a trade journal under a temp dir
func newTestJournal(t *testing.T) *logger.TradeJournal {
	t.Helper()
	journal, err := logger.NewTradeJournal(t.TempDir(), newTestLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { journal.Close() })
	return journal
}
