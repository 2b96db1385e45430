package wallet

import (
	"context"
	"encoding/base64"
	"fmt"

	"raydium-sniper-go/internal/config"
	"raydium-sniper-go/internal/solana"

	"github.com/blocto/solana-go-sdk/types"
	solanago "github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
	bip39 "github.com/tyler-smith/go-bip39"
)

// Wallet represents a Solana wallet. The key material is read-only after
// construction, so a single instance is safe to share across goroutines.
type Wallet struct {
	account   types.Account
	rpcClient *solana.Client
	logger    *logrus.Logger
}

// WalletConfig contains wallet configuration
type WalletConfig struct {
	PrivateKey string
	Mnemonic   string
	Network    string
}

// NewWallet creates a new wallet instance from a base58 private key or,
// when no key is given, from a BIP-39 mnemonic.
func NewWallet(cfg WalletConfig, rpcClient *solana.Client, logger *logrus.Logger) (*Wallet, error) {
	var account types.Account
	var err error

	switch {
	case cfg.PrivateKey != "":
		account, err = types.AccountFromBase58(cfg.PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("invalid private key: %w", err)
		}
	case cfg.Mnemonic != "":
		account, err = accountFromMnemonic(cfg.Mnemonic)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("private key or mnemonic is required")
	}

	wallet := &Wallet{
		account:   account,
		rpcClient: rpcClient,
		logger:    logger,
	}

	logger.WithFields(logrus.Fields{
		"public_key": wallet.PublicKeyString(),
		"network":    cfg.Network,
	}).Info("Wallet initialized")

	return wallet, nil
}

// accountFromMnemonic derives the account from a BIP-39 seed
func accountFromMnemonic(mnemonic string) (types.Account, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return types.Account{}, fmt.Errorf("invalid mnemonic phrase")
	}

	seed := bip39.NewSeed(mnemonic, "")
	account, err := types.AccountFromSeed(seed[:32])
	if err != nil {
		return types.Account{}, fmt.Errorf("failed to derive account from seed: %w", err)
	}
	return account, nil
}

// PublicKeyString returns the wallet's public key as base58 string
func (w *Wallet) PublicKeyString() string {
	return w.account.PublicKey.String()
}

// GetBalance returns the wallet's SOL balance in lamports
func (w *Wallet) GetBalance(ctx context.Context) (uint64, error) {
	balance, err := w.rpcClient.GetBalance(ctx, w.PublicKeyString())
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}

	w.logger.WithFields(logrus.Fields{
		"balance_lamports": balance,
		"balance_sol":      config.ConvertLamportsToSOL(balance),
	}).Debug("Retrieved wallet balance")

	return balance, nil
}

// GetBalanceSOL returns the wallet's SOL balance as float64
func (w *Wallet) GetBalanceSOL(ctx context.Context) (float64, error) {
	balance, err := w.GetBalance(ctx)
	if err != nil {
		return 0, err
	}
	return config.ConvertLamportsToSOL(balance), nil
}

// SignSwapTransaction deserializes a base64 swap payload from the routing
// service, signs it with the wallet key and returns it re-serialized.
func (w *Wallet) SignSwapTransaction(payload string) (string, error) {
	tx, err := solanago.TransactionFromBase64(payload)
	if err != nil {
		return "", fmt.Errorf("failed to deserialize swap transaction: %w", err)
	}

	signer := solanago.PrivateKey(w.account.PrivateKey)
	signerKey := signer.PublicKey()

	_, err = tx.Sign(func(key solanago.PublicKey) *solanago.PrivateKey {
		if key.Equals(signerKey) {
			return &signer
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to sign swap transaction: %w", err)
	}

	signed, err := tx.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("failed to serialize signed transaction: %w", err)
	}

	return base64.StdEncoding.EncodeToString(signed), nil
}
