package sniper

import (
	"errors"
	"time"
)

// Signal is a pool-creation event picked off the log stream. It carries just
// enough to fetch the full transaction; everything else is resolved later.
type Signal struct {
	Signature string
	Slot      uint64
	Logs      []string
}

// Candidate is the mint extracted from a pool-creation transaction
type Candidate struct {
	Mint   string
	Source string // "token_balances" or "account_keys"
}

// Position is an open holding being watched for an exit
type Position struct {
	Mint         string
	EntryPrice   float64 // lamports per raw token unit
	AmountTokens uint64
	SpentSOL     float64
	BuySignature string
	OpenedAt     time.Time
}

// TradeResult describes a submitted swap. Submission is fire and forget;
// a result means the transaction was accepted by the RPC node, not that it
// landed on chain.
type TradeResult struct {
	Signature string
	Mint      string
	InAmount  uint64
	OutAmount uint64
	Price     float64 // lamports per raw token unit
}

var (
	// ErrNoCandidate means the transaction contained no plausible new mint
	ErrNoCandidate = errors.New("no mint candidate in transaction")

	// ErrTxUnresolved means the transaction never became fetchable within
	// the retry budget
	ErrTxUnresolved = errors.New("transaction not resolvable")
)
