package sniper

import (
	"testing"

	"raydium-sniper-go/internal/config"
	"raydium-sniper-go/internal/solana"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testMint       = "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU"
	testWalletAddr = "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"
)

func txWithBalances(balances ...solana.TokenBalance) *solana.ParsedTransaction {
	tx := &solana.ParsedTransaction{Meta: &solana.TransactionMeta{}}
	tx.Meta.PostTokenBalances = balances
	return tx
}

func txWithKeys(keys ...solana.AccountKey) *solana.ParsedTransaction {
	tx := &solana.ParsedTransaction{}
	tx.Transaction.Message.AccountKeys = keys
	return tx
}

func TestExtractCandidateFromTokenBalances(t *testing.T) {
	tx := txWithBalances(
		solana.TokenBalance{Mint: config.NativeSOLMintBase58()},
		solana.TokenBalance{Mint: testMint},
	)

	candidate, err := ExtractCandidate(tx, testWalletAddr)
	require.NoError(t, err)
	assert.Equal(t, testMint, candidate.Mint)
	assert.Equal(t, "token_balances", candidate.Source)
}

func TestExtractCandidateSkipsWrappedSOL(t *testing.T) {
	tx := txWithBalances(solana.TokenBalance{Mint: config.NativeSOLMintBase58()})

	_, err := ExtractCandidate(tx, testWalletAddr)
	assert.ErrorIs(t, err, ErrNoCandidate)
}

func TestExtractCandidateSkipsOwnWallet(t *testing.T) {
	tx := txWithBalances(solana.TokenBalance{Mint: testWalletAddr})

	_, err := ExtractCandidate(tx, testWalletAddr)
	assert.ErrorIs(t, err, ErrNoCandidate)
}

func TestExtractCandidateSkipsProgramOwnedBalance(t *testing.T) {
	tx := txWithBalances(
		solana.TokenBalance{Mint: "SomeMint1111111111111111111111111111111111", Owner: config.RaydiumV4ProgramIDBase58()},
		solana.TokenBalance{Mint: testMint},
	)

	candidate, err := ExtractCandidate(tx, testWalletAddr)
	require.NoError(t, err)
	assert.Equal(t, testMint, candidate.Mint)
}

func TestExtractCandidateFallsBackToAccountKeys(t *testing.T) {
	tx := txWithKeys(
		solana.AccountKey{Pubkey: "FeePayer1111111111111111111111111111111111", Signer: true},
		solana.AccountKey{Pubkey: config.RaydiumV4ProgramIDBase58()},
		solana.AccountKey{Pubkey: config.NativeSOLMintBase58()},
		solana.AccountKey{Pubkey: testWalletAddr},
		solana.AccountKey{Pubkey: testMint},
	)

	candidate, err := ExtractCandidate(tx, testWalletAddr)
	require.NoError(t, err)
	assert.Equal(t, testMint, candidate.Mint)
	assert.Equal(t, "account_keys", candidate.Source)
}

func TestExtractCandidatePrefersBalancesOverKeys(t *testing.T) {
	tx := txWithBalances(solana.TokenBalance{Mint: testMint})
	tx.Transaction.Message.AccountKeys = []solana.AccountKey{
		{Pubkey: "SomeOtherKey11111111111111111111111111111111"},
	}

	candidate, err := ExtractCandidate(tx, testWalletAddr)
	require.NoError(t, err)
	assert.Equal(t, "token_balances", candidate.Source)
}

func TestExtractCandidateNothingLeft(t *testing.T) {
	tx := txWithKeys(
		solana.AccountKey{Pubkey: "Signer111111111111111111111111111111111111", Signer: true},
		solana.AccountKey{Pubkey: base58.Encode(config.TokenProgramID)},
	)

	_, err := ExtractCandidate(tx, testWalletAddr)
	assert.ErrorIs(t, err, ErrNoCandidate)
}

func TestExtractCandidateNilInputs(t *testing.T) {
	_, err := ExtractCandidate(nil, testWalletAddr)
	assert.ErrorIs(t, err, ErrNoCandidate)

	_, err = ExtractCandidate(&solana.ParsedTransaction{}, testWalletAddr)
	assert.ErrorIs(t, err, ErrNoCandidate)
}
