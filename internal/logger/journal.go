package logger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// TradeJournal appends every buy and sell to a per-day JSONL file and keeps
// the session's records in memory for the operator status command. Records
// are best effort only; the journal does not survive restarts.
type TradeJournal struct {
	dir    string
	logger *Logger

	mu      sync.Mutex
	file    *os.File
	day     string
	records []TradeRecord
}

// TradeRecord is a single journal line
type TradeRecord struct {
	Timestamp    time.Time `json:"timestamp"`
	Side         string    `json:"side"` // "buy" or "sell"
	Mint         string    `json:"mint"`
	AmountSOL    float64   `json:"amount_sol"`
	AmountTokens uint64    `json:"amount_tokens"`
	Price        float64   `json:"price"`
	Signature    string    `json:"signature"`
	Status       string    `json:"status"`
	Reason       string    `json:"reason,omitempty"`
	ProfitSOL    float64   `json:"profit_sol,omitempty"`
}

// NewTradeJournal creates a journal writing under dir
func NewTradeJournal(dir string, logger *Logger) (*TradeJournal, error) {
	if dir == "" {
		dir = "logs/trades"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create trade journal directory %s: %w", dir, err)
	}

	return &TradeJournal{
		dir:    dir,
		logger: logger,
	}, nil
}

// LogBuy records a submitted buy
func (tj *TradeJournal) LogBuy(mint string, amountSOL float64, amountTokens uint64, price float64, signature, status string) error {
	return tj.append(TradeRecord{
		Timestamp:    time.Now(),
		Side:         "buy",
		Mint:         mint,
		AmountSOL:    amountSOL,
		AmountTokens: amountTokens,
		Price:        price,
		Signature:    signature,
		Status:       status,
	})
}

// LogSell records a submitted sell
func (tj *TradeJournal) LogSell(mint string, amountSOL float64, amountTokens uint64, price float64, signature, status, reason string, profitSOL float64) error {
	return tj.append(TradeRecord{
		Timestamp:    time.Now(),
		Side:         "sell",
		Mint:         mint,
		AmountSOL:    amountSOL,
		AmountTokens: amountTokens,
		Price:        price,
		Signature:    signature,
		Status:       status,
		Reason:       reason,
		ProfitSOL:    profitSOL,
	})
}

// Records returns all records written this session
func (tj *TradeJournal) Records() []TradeRecord {
	tj.mu.Lock()
	defer tj.mu.Unlock()

	out := make([]TradeRecord, len(tj.records))
	copy(out, tj.records)
	return out
}

// Close closes the underlying file
func (tj *TradeJournal) Close() error {
	tj.mu.Lock()
	defer tj.mu.Unlock()

	if tj.file != nil {
		err := tj.file.Close()
		tj.file = nil
		return err
	}
	return nil
}

func (tj *TradeJournal) append(record TradeRecord) error {
	tj.mu.Lock()
	defer tj.mu.Unlock()

	tj.records = append(tj.records, record)

	if err := tj.rotate(record.Timestamp); err != nil {
		return err
	}

	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal trade record: %w", err)
	}

	if _, err := tj.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to write trade record: %w", err)
	}
	return nil
}

// rotate opens the journal file for the record's day, one file per day
func (tj *TradeJournal) rotate(ts time.Time) error {
	day := ts.Format("2006-01-02")
	if tj.file != nil && tj.day == day {
		return nil
	}

	if tj.file != nil {
		tj.file.Close()
	}

	path := filepath.Join(tj.dir, "trades_"+day+".jsonl")
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open trade journal %s: %w", path, err)
	}

	tj.file = file
	tj.day = day
	return nil
}
