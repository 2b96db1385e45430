package config

import "github.com/mr-tron/base58"

// Solana network constants
const (
	SolanaMainnetRPC = "https://api.mainnet-beta.solana.com"
	SolanaDevnetRPC  = "https://api.devnet.solana.com"

	// WebSocket endpoints
	SolanaMainnetWS = "wss://api.mainnet-beta.solana.com"
	SolanaDevnetWS  = "wss://api.devnet.solana.com"

	// Solana constants
	LamportsPerSol = 1_000_000_000

	// Transaction constants
	MaxRetries        = 3
	RetryDelayMs      = 1000
	ConfirmTimeoutSec = 30
)

// Jupiter routing endpoints. The first entry is the canonical public API,
// the rest are equivalent mirrors used by the quote client's failover.
var DefaultJupiterEndpoints = []string{
	"https://quote-api.jup.ag/v6",
	"https://public.jupiterapi.com",
	"https://jupiter-swap-api.quiknode.pro/v6",
}

// Rugcheck risk scoring service
const DefaultRugcheckBaseURL = "https://api.rugcheck.xyz"

// Telegram Bot API
const DefaultTelegramBaseURL = "https://api.telegram.org"

// Raydium and system program addresses
var (
	// Raydium Liquidity Pool V4 (verified)
	RaydiumV4ProgramID = mustDecodeBase58("675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8")

	// Raydium authority (verified)
	RaydiumAuthority = mustDecodeBase58("5Q544fKrFoe6tsEbD7S8EmxGTJYAKtTVhAW5Q5pge4j1")

	// System program
	SystemProgramID = mustDecodeBase58("11111111111111111111111111111111")

	// Token program
	TokenProgramID = mustDecodeBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")

	// Associated Token program
	AssociatedTokenProgramID = mustDecodeBase58("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL")

	// Rent sysvar
	RentProgramID = mustDecodeBase58("SysvarRent111111111111111111111111111111111")

	// Native SOL mint (wrapped SOL)
	NativeSOLMint = mustDecodeBase58("So11111111111111111111111111111111111111112")

	// Compute Budget Program ID
	ComputeBudgetProgramID = mustDecodeBase58("ComputeBudget111111111111111111111111111111")
)

// Trading constants
const (
	// Default slippage in basis points (1% = 100 bp)
	DefaultSlippageBP = 500 // 5%

	// Slippage added per quote retry round, and its hard cap
	DefaultSlippageStepBP = 1500
	DefaultSlippageMaxBP  = 9900

	// Default buy amount in SOL
	DefaultBuyAmountSOL = 0.01

	// Rugcheck score at or below which a token is tradable (lower = safer)
	DefaultRiskThreshold = 500

	// Cooldown between pipeline runs
	DefaultCooldownMs = 3000

	// Position monitor poll interval
	DefaultPollIntervalMs = 5000

	// Exit ratios relative to entry price
	DefaultTakeProfitRatio = 1.5
	DefaultStopLossRatio   = 0.5
)

// Helper function to decode base58 addresses and panic on error
// Used for compile-time constant addresses that should never fail
func mustDecodeBase58(addr string) []byte {
	decoded, err := base58.Decode(addr)
	if err != nil {
		panic("Invalid base58 address: " + addr + ", error: " + err.Error())
	}
	return decoded
}

// GetRPCEndpoint returns RPC endpoint based on network
func GetRPCEndpoint(network string) string {
	switch network {
	case "mainnet":
		return SolanaMainnetRPC
	case "devnet":
		return SolanaDevnetRPC
	default:
		return SolanaMainnetRPC
	}
}

// GetWSEndpoint returns WebSocket endpoint based on network
func GetWSEndpoint(network string) string {
	switch network {
	case "mainnet":
		return SolanaMainnetWS
	case "devnet":
		return SolanaDevnetWS
	default:
		return SolanaMainnetWS
	}
}

// RaydiumV4ProgramIDBase58 returns the Raydium V4 program id as base58
func RaydiumV4ProgramIDBase58() string {
	return base58.Encode(RaydiumV4ProgramID)
}

// NativeSOLMintBase58 returns the wrapped SOL mint as base58
func NativeSOLMintBase58() string {
	return base58.Encode(NativeSOLMint)
}

// ConvertSOLToLamports converts SOL to lamports
func ConvertSOLToLamports(sol float64) uint64 {
	return uint64(sol * LamportsPerSol)
}

// ConvertLamportsToSOL converts lamports to SOL
func ConvertLamportsToSOL(lamports uint64) float64 {
	return float64(lamports) / LamportsPerSol
}
