package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Network: "mainnet",
		RPCUrl:  SolanaMainnetRPC,
		WSUrl:   SolanaMainnetWS,
		Trading: TradingConfig{
			BuyAmountSOL:    0.01,
			SlippageBP:      500,
			TakeProfitRatio: 1.5,
			StopLossRatio:   0.5,
			PollIntervalMs:  5000,
			CooldownMs:      3000,
		},
		Jupiter: JupiterConfig{
			Endpoints:   DefaultJupiterEndpoints,
			MaxAttempts: 6,
		},
		Risk: RiskConfig{
			BaseURL:   DefaultRugcheckBaseURL,
			Threshold: 500,
		},
	}
}

func TestValidateConfigAccepts(t *testing.T) {
	require.NoError(t, ValidateConfig(validConfig()))
}

func TestValidateConfigRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing rpc url", func(c *Config) { c.RPCUrl = "" }},
		{"missing ws url", func(c *Config) { c.WSUrl = "" }},
		{"zero buy amount", func(c *Config) { c.Trading.BuyAmountSOL = 0 }},
		{"negative buy amount", func(c *Config) { c.Trading.BuyAmountSOL = -1 }},
		{"zero slippage", func(c *Config) { c.Trading.SlippageBP = 0 }},
		{"slippage above 100%", func(c *Config) { c.Trading.SlippageBP = 10001 }},
		{"take profit below entry", func(c *Config) { c.Trading.TakeProfitRatio = 0.9 }},
		{"stop loss above entry", func(c *Config) { c.Trading.StopLossRatio = 1.2 }},
		{"zero stop loss", func(c *Config) { c.Trading.StopLossRatio = 0 }},
		{"zero poll interval", func(c *Config) { c.Trading.PollIntervalMs = 0 }},
		{"negative cooldown", func(c *Config) { c.Trading.CooldownMs = -1 }},
		{"no jupiter endpoints", func(c *Config) { c.Jupiter.Endpoints = nil }},
		{"zero quote attempts", func(c *Config) { c.Jupiter.MaxAttempts = 0 }},
		{"negative risk threshold", func(c *Config) { c.Risk.Threshold = -1 }},
		{"telegram without token", func(c *Config) { c.Telegram.Enabled = true }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			assert.Error(t, ValidateConfig(cfg))
		})
	}
}

func TestDurationHelpers(t *testing.T) {
	cfg := validConfig()
	assert.Equal(t, 5*time.Second, cfg.PollInterval())
	assert.Equal(t, 3*time.Second, cfg.Cooldown())
}

func TestNetworkEndpoints(t *testing.T) {
	assert.Equal(t, SolanaMainnetRPC, GetRPCEndpoint("mainnet"))
	assert.Equal(t, SolanaDevnetRPC, GetRPCEndpoint("devnet"))
	assert.Equal(t, SolanaMainnetRPC, GetRPCEndpoint("unknown"))
	assert.Equal(t, SolanaDevnetWS, GetWSEndpoint("devnet"))
}

func TestLamportConversion(t *testing.T) {
	assert.Equal(t, uint64(1_000_000_000), ConvertSOLToLamports(1))
	assert.Equal(t, uint64(10_000_000), ConvertSOLToLamports(0.01))
	assert.InDelta(t, 0.5, ConvertLamportsToSOL(500_000_000), 1e-9)
}

func TestWellKnownAddresses(t *testing.T) {
	assert.Equal(t, "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8", RaydiumV4ProgramIDBase58())
	assert.Equal(t, "So11111111111111111111111111111111111111112", NativeSOLMintBase58())
	assert.Len(t, RaydiumV4ProgramID, 32)
	assert.Len(t, NativeSOLMint, 32)
}
