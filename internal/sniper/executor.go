package sniper

import (
	"context"
	"fmt"
	"time"

	"raydium-sniper-go/internal/config"
	"raydium-sniper-go/internal/jupiter"
	"raydium-sniper-go/internal/logger"
	"raydium-sniper-go/internal/solana"
	"raydium-sniper-go/internal/wallet"
)

// Executor runs the quote, build, sign, submit sequence for buys and sells.
// Submissions skip preflight with zero node-side retries; whether a swap
// actually lands is intentionally left unconfirmed, speed matters more than
// certainty in the first seconds of a pool's life.
type Executor struct {
	jupiter *jupiter.Client
	wallet  *wallet.Wallet
	rpc     *solana.Client
	logger  *logger.Logger
	journal *logger.TradeJournal

	buyAmountSOL float64
	slippageBP   int
	priorityFee  uint64
}

// ExecutorConfig contains executor configuration
type ExecutorConfig struct {
	BuyAmountSOL float64
	SlippageBP   int
	PriorityFee  uint64
}

// NewExecutor creates a new executor
func NewExecutor(cfg ExecutorConfig, jup *jupiter.Client, w *wallet.Wallet, rpc *solana.Client, log *logger.Logger, journal *logger.TradeJournal) *Executor {
	return &Executor{
		jupiter:      jup,
		wallet:       w,
		rpc:          rpc,
		logger:       log,
		journal:      journal,
		buyAmountSOL: cfg.BuyAmountSOL,
		slippageBP:   cfg.SlippageBP,
		priorityFee:  cfg.PriorityFee,
	}
}

// Buy swaps the configured SOL amount into mint and returns the resulting
// open position. The entry price is taken from the quote, not from the
// eventual fill.
func (e *Executor) Buy(ctx context.Context, mint string) (*Position, error) {
	e.logger.LogTradeAttempt("buy", mint, e.buyAmountSOL)

	lamports := config.ConvertSOLToLamports(e.buyAmountSOL)

	quote, err := e.jupiter.GetQuote(ctx, config.NativeSOLMintBase58(), mint, lamports, e.slippageBP)
	if err != nil {
		e.logger.LogTradeError("buy", mint, err)
		return nil, err
	}

	signature, err := e.submitSwap(ctx, quote)
	if err != nil {
		e.logger.LogTradeError("buy", mint, err)
		return nil, err
	}

	entryPrice := float64(quote.InAmount) / float64(quote.OutAmount)

	e.logger.LogTradeSuccess("buy", mint, e.buyAmountSOL, signature, entryPrice)
	if err := e.journal.LogBuy(mint, e.buyAmountSOL, quote.OutAmount, entryPrice, signature, "submitted"); err != nil {
		e.logger.WithError(err).Warn("Failed to journal buy")
	}

	return &Position{
		Mint:         mint,
		EntryPrice:   entryPrice,
		AmountTokens: quote.OutAmount,
		SpentSOL:     e.buyAmountSOL,
		BuySignature: signature,
		OpenedAt:     time.Now(),
	}, nil
}

// Sell swaps the position's full token amount back into SOL
func (e *Executor) Sell(ctx context.Context, position *Position, reason string) (*TradeResult, error) {
	e.logger.LogTradeAttempt("sell", position.Mint, float64(position.AmountTokens))

	quote, err := e.jupiter.GetQuote(ctx, position.Mint, config.NativeSOLMintBase58(), position.AmountTokens, e.slippageBP)
	if err != nil {
		e.logger.LogTradeError("sell", position.Mint, err)
		return nil, err
	}

	signature, err := e.submitSwap(ctx, quote)
	if err != nil {
		e.logger.LogTradeError("sell", position.Mint, err)
		return nil, err
	}

	price := float64(quote.OutAmount) / float64(quote.InAmount)
	proceedsSOL := config.ConvertLamportsToSOL(quote.OutAmount)
	profitSOL := proceedsSOL - position.SpentSOL

	e.logger.LogTradeSuccess("sell", position.Mint, proceedsSOL, signature, price)
	if err := e.journal.LogSell(position.Mint, proceedsSOL, position.AmountTokens, price, signature, "submitted", reason, profitSOL); err != nil {
		e.logger.WithError(err).Warn("Failed to journal sell")
	}

	return &TradeResult{
		Signature: signature,
		Mint:      position.Mint,
		InAmount:  quote.InAmount,
		OutAmount: quote.OutAmount,
		Price:     price,
	}, nil
}

// CurrentPrice quotes the sell direction for the position's full amount and
// returns the implied price in lamports per raw token unit
func (e *Executor) CurrentPrice(ctx context.Context, position *Position) (float64, error) {
	quote, err := e.jupiter.GetQuote(ctx, position.Mint, config.NativeSOLMintBase58(), position.AmountTokens, e.slippageBP)
	if err != nil {
		return 0, err
	}
	if quote.InAmount == 0 {
		return 0, fmt.Errorf("quote returned zero input amount")
	}
	return float64(quote.OutAmount) / float64(quote.InAmount), nil
}

// submitSwap builds, signs and fires the swap transaction
func (e *Executor) submitSwap(ctx context.Context, quote *jupiter.Quote) (string, error) {
	payload, err := e.jupiter.BuildSwap(ctx, quote, e.wallet.PublicKeyString(), e.priorityFee)
	if err != nil {
		return "", err
	}

	signed, err := e.wallet.SignSwapTransaction(payload)
	if err != nil {
		return "", err
	}

	signature, err := e.rpc.SendTransaction(ctx, signed, solana.SendOptions{
		SkipPreflight: true,
		MaxRetries:    0,
	})
	if err != nil {
		return "", fmt.Errorf("transaction submission failed: %w", err)
	}

	return signature, nil
}
