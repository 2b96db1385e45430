package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	// Network settings
	Network   string `mapstructure:"network" yaml:"network"`
	RPCUrl    string `mapstructure:"rpc_url" yaml:"rpc_url"`
	WSUrl     string `mapstructure:"ws_url" yaml:"ws_url"`
	RPCAPIKey string `mapstructure:"rpc_api_key" yaml:"rpc_api_key"`

	// Wallet settings
	PrivateKey string `mapstructure:"private_key" yaml:"private_key"`
	Mnemonic   string `mapstructure:"mnemonic" yaml:"mnemonic"`

	// Trading settings
	Trading TradingConfig `mapstructure:"trading" yaml:"trading"`

	// Jupiter routing settings
	Jupiter JupiterConfig `mapstructure:"jupiter" yaml:"jupiter"`

	// Risk gate settings
	Risk RiskConfig `mapstructure:"risk" yaml:"risk"`

	// Telegram settings
	Telegram TelegramConfig `mapstructure:"telegram" yaml:"telegram"`

	// Logging settings
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Advanced settings
	Advanced AdvancedConfig `mapstructure:"advanced" yaml:"advanced"`
}

// TradingConfig contains trading-related settings
type TradingConfig struct {
	BuyAmountSOL    float64 `mapstructure:"buy_amount_sol" yaml:"buy_amount_sol"`
	SlippageBP      int     `mapstructure:"slippage_bp" yaml:"slippage_bp"`
	PriorityFee     uint64  `mapstructure:"priority_fee" yaml:"priority_fee"`
	TakeProfitRatio float64 `mapstructure:"take_profit_ratio" yaml:"take_profit_ratio"`
	StopLossRatio   float64 `mapstructure:"stop_loss_ratio" yaml:"stop_loss_ratio"`
	PollIntervalMs  int64   `mapstructure:"poll_interval_ms" yaml:"poll_interval_ms"`
	CooldownMs      int64   `mapstructure:"cooldown_ms" yaml:"cooldown_ms"`

	// Suspend the log subscription while a buy is in flight and re-arm it
	// after the cooldown. Saves connections on rate-limited RPC plans.
	SuspendWhileTrading bool `mapstructure:"suspend_while_trading" yaml:"suspend_while_trading"`
}

// JupiterConfig contains quote routing settings
type JupiterConfig struct {
	Endpoints      []string `mapstructure:"endpoints" yaml:"endpoints"`
	MaxAttempts    int      `mapstructure:"max_attempts" yaml:"max_attempts"`
	AttemptTimeout int      `mapstructure:"attempt_timeout_ms" yaml:"attempt_timeout_ms"`
	RetryDelayMs   int      `mapstructure:"retry_delay_ms" yaml:"retry_delay_ms"`
	BudgetMs       int      `mapstructure:"budget_ms" yaml:"budget_ms"`
	SlippageStepBP int      `mapstructure:"slippage_step_bp" yaml:"slippage_step_bp"`
	SlippageMaxBP  int      `mapstructure:"slippage_max_bp" yaml:"slippage_max_bp"`
	OnlyDirect     bool     `mapstructure:"only_direct_routes" yaml:"only_direct_routes"`
}

// RiskConfig contains risk gate settings
type RiskConfig struct {
	BaseURL   string  `mapstructure:"base_url" yaml:"base_url"`
	Threshold float64 `mapstructure:"threshold" yaml:"threshold"`
	TimeoutMs int     `mapstructure:"timeout_ms" yaml:"timeout_ms"`
}

// TelegramConfig contains notification settings
type TelegramConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Token   string `mapstructure:"token" yaml:"token"`
	ChatID  string `mapstructure:"chat_id" yaml:"chat_id"`
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	LogToFile   bool   `mapstructure:"log_to_file" yaml:"log_to_file"`
	LogFilePath string `mapstructure:"log_file_path" yaml:"log_file_path"`
	TradeLogDir string `mapstructure:"trade_log_dir" yaml:"trade_log_dir"`
}

// AdvancedConfig contains advanced settings
type AdvancedConfig struct {
	MaxRetries        int `mapstructure:"max_retries" yaml:"max_retries"`
	RetryDelayMs      int `mapstructure:"retry_delay_ms" yaml:"retry_delay_ms"`
	ConfirmTimeoutSec int `mapstructure:"confirm_timeout_sec" yaml:"confirm_timeout_sec"`
	RPCTimeoutSec     int `mapstructure:"rpc_timeout_sec" yaml:"rpc_timeout_sec"`
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string, envPath string) (*Config, error) {
	config := &Config{}

	// First, load .env file if specified or default locations
	if err := loadEnvFile(envPath); err != nil {
		fmt.Printf("Warning: Failed to load .env file: %v\n", err)
	}

	// Set default values
	setDefaults()

	// Set config file path
	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		// Look for config in current directory and common config directories
		viper.SetConfigName("bot")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./configs")
		viper.AddConfigPath("$HOME/.raydium-sniper")
		viper.AddConfigPath("/etc/raydium-sniper/")
	}

	// Enable reading from environment variables
	viper.AutomaticEnv()
	viper.SetEnvPrefix("SNIPER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Manually bind environment variables that viper might miss
	bindEnvVariables()

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, continue with defaults and env vars
		fmt.Printf("Config file not found, using environment variables and defaults\n")
	} else {
		fmt.Printf("Using config file: %s\n", viper.ConfigFileUsed())
	}

	// Unmarshal config
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate and post-process config
	if err := ValidateConfig(config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// GetConfigFromEnv builds a config from environment variables only
func GetConfigFromEnv(envPath string) *Config {
	if err := loadEnvFile(envPath); err != nil {
		fmt.Printf("Warning: Failed to load .env file: %v\n", err)
	}

	setDefaults()
	bindEnvVariables()

	viper.AutomaticEnv()
	viper.SetEnvPrefix("SNIPER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		fmt.Printf("Warning: failed to unmarshal env config: %v\n", err)
	}
	return config
}

// loadEnvFile loads environment variables from .env file
func loadEnvFile(envPath string) error {
	var envFiles []string

	// If specific path provided, use it first
	if envPath != "" {
		envFiles = append(envFiles, envPath)
	}

	// Add default .env file locations
	envFiles = append(envFiles, []string{
		".env",
		"./.env",
		"configs/.env",
	}...)

	var envFile string
	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			envFile = file
			break
		}
	}

	if envFile == "" {
		if envPath != "" {
			return fmt.Errorf("specified .env file not found: %s", envPath)
		}
		return fmt.Errorf(".env file not found in any of the expected locations: %v", envFiles)
	}

	file, err := os.Open(envFile)
	if err != nil {
		return fmt.Errorf("failed to open .env file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	loadedCount := 0

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE format
		if strings.Contains(line, "=") {
			parts := strings.SplitN(line, "=", 2)
			if len(parts) == 2 {
				key := strings.TrimSpace(parts[0])
				value := strings.TrimSpace(parts[1])

				// Remove quotes if present
				if len(value) >= 2 {
					if (strings.HasPrefix(value, "\"") && strings.HasSuffix(value, "\"")) ||
						(strings.HasPrefix(value, "'") && strings.HasSuffix(value, "'")) {
						value = value[1 : len(value)-1]
					}
				}

				if err := os.Setenv(key, value); err == nil {
					loadedCount++
				}
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading .env file: %w", err)
	}

	fmt.Printf("Loaded %d environment variables from %s\n", loadedCount, envFile)
	return nil
}

// bindEnvVariables manually binds environment variables that viper might miss
func bindEnvVariables() {
	// Top-level variables
	viper.BindEnv("network", "SNIPER_NETWORK")
	viper.BindEnv("rpc_url", "SNIPER_RPC_URL")
	viper.BindEnv("ws_url", "SNIPER_WS_URL")
	viper.BindEnv("rpc_api_key", "SNIPER_RPC_API_KEY")
	viper.BindEnv("private_key", "SNIPER_PRIVATE_KEY")
	viper.BindEnv("mnemonic", "SNIPER_MNEMONIC")

	// Trading variables
	viper.BindEnv("trading.buy_amount_sol", "SNIPER_TRADING_BUY_AMOUNT_SOL")
	viper.BindEnv("trading.slippage_bp", "SNIPER_TRADING_SLIPPAGE_BP")
	viper.BindEnv("trading.priority_fee", "SNIPER_TRADING_PRIORITY_FEE")
	viper.BindEnv("trading.take_profit_ratio", "SNIPER_TRADING_TAKE_PROFIT_RATIO")
	viper.BindEnv("trading.stop_loss_ratio", "SNIPER_TRADING_STOP_LOSS_RATIO")
	viper.BindEnv("trading.poll_interval_ms", "SNIPER_TRADING_POLL_INTERVAL_MS")
	viper.BindEnv("trading.cooldown_ms", "SNIPER_TRADING_COOLDOWN_MS")
	viper.BindEnv("trading.suspend_while_trading", "SNIPER_TRADING_SUSPEND_WHILE_TRADING")

	// Jupiter variables
	viper.BindEnv("jupiter.max_attempts", "SNIPER_JUPITER_MAX_ATTEMPTS")
	viper.BindEnv("jupiter.attempt_timeout_ms", "SNIPER_JUPITER_ATTEMPT_TIMEOUT_MS")
	viper.BindEnv("jupiter.retry_delay_ms", "SNIPER_JUPITER_RETRY_DELAY_MS")
	viper.BindEnv("jupiter.budget_ms", "SNIPER_JUPITER_BUDGET_MS")

	// Risk variables
	viper.BindEnv("risk.base_url", "SNIPER_RISK_BASE_URL")
	viper.BindEnv("risk.threshold", "SNIPER_RISK_THRESHOLD")
	viper.BindEnv("risk.timeout_ms", "SNIPER_RISK_TIMEOUT_MS")

	// Telegram variables
	viper.BindEnv("telegram.enabled", "SNIPER_TELEGRAM_ENABLED")
	viper.BindEnv("telegram.token", "SNIPER_TELEGRAM_TOKEN")
	viper.BindEnv("telegram.chat_id", "SNIPER_TELEGRAM_CHAT_ID")

	// Logging variables
	viper.BindEnv("logging.level", "SNIPER_LOGGING_LEVEL")
	viper.BindEnv("logging.format", "SNIPER_LOGGING_FORMAT")
	viper.BindEnv("logging.log_to_file", "SNIPER_LOGGING_LOG_TO_FILE")
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("network", "mainnet")
	viper.SetDefault("rpc_url", SolanaMainnetRPC)
	viper.SetDefault("ws_url", SolanaMainnetWS)

	// Trading defaults
	viper.SetDefault("trading.buy_amount_sol", DefaultBuyAmountSOL)
	viper.SetDefault("trading.slippage_bp", DefaultSlippageBP)
	viper.SetDefault("trading.priority_fee", 2_000_000)
	viper.SetDefault("trading.take_profit_ratio", DefaultTakeProfitRatio)
	viper.SetDefault("trading.stop_loss_ratio", DefaultStopLossRatio)
	viper.SetDefault("trading.poll_interval_ms", DefaultPollIntervalMs)
	viper.SetDefault("trading.cooldown_ms", DefaultCooldownMs)
	viper.SetDefault("trading.suspend_while_trading", false)

	// Jupiter defaults
	viper.SetDefault("jupiter.endpoints", DefaultJupiterEndpoints)
	viper.SetDefault("jupiter.max_attempts", 6)
	viper.SetDefault("jupiter.attempt_timeout_ms", 3000)
	viper.SetDefault("jupiter.retry_delay_ms", 500)
	viper.SetDefault("jupiter.budget_ms", 20000)
	viper.SetDefault("jupiter.slippage_step_bp", DefaultSlippageStepBP)
	viper.SetDefault("jupiter.slippage_max_bp", DefaultSlippageMaxBP)
	viper.SetDefault("jupiter.only_direct_routes", true)

	// Risk defaults
	viper.SetDefault("risk.base_url", DefaultRugcheckBaseURL)
	viper.SetDefault("risk.threshold", DefaultRiskThreshold)
	viper.SetDefault("risk.timeout_ms", 4000)

	// Telegram defaults
	viper.SetDefault("telegram.enabled", false)
	viper.SetDefault("telegram.base_url", DefaultTelegramBaseURL)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")
	viper.SetDefault("logging.log_to_file", false)
	viper.SetDefault("logging.log_file_path", "logs/bot.log")
	viper.SetDefault("logging.trade_log_dir", "logs/trades")

	// Advanced defaults
	viper.SetDefault("advanced.max_retries", MaxRetries)
	viper.SetDefault("advanced.retry_delay_ms", RetryDelayMs)
	viper.SetDefault("advanced.confirm_timeout_sec", ConfirmTimeoutSec)
	viper.SetDefault("advanced.rpc_timeout_sec", 30)
}

// ValidateConfig validates the loaded configuration
func ValidateConfig(config *Config) error {
	if config.RPCUrl == "" {
		return fmt.Errorf("rpc_url is required")
	}
	if config.WSUrl == "" {
		return fmt.Errorf("ws_url is required")
	}

	if config.Trading.BuyAmountSOL <= 0 {
		return fmt.Errorf("trading.buy_amount_sol must be positive, got %v", config.Trading.BuyAmountSOL)
	}
	if config.Trading.SlippageBP <= 0 || config.Trading.SlippageBP > 10000 {
		return fmt.Errorf("trading.slippage_bp must be in (0, 10000], got %d", config.Trading.SlippageBP)
	}
	if config.Trading.TakeProfitRatio <= 1.0 {
		return fmt.Errorf("trading.take_profit_ratio must be greater than 1.0, got %v", config.Trading.TakeProfitRatio)
	}
	if config.Trading.StopLossRatio <= 0 || config.Trading.StopLossRatio >= 1.0 {
		return fmt.Errorf("trading.stop_loss_ratio must be in (0, 1), got %v", config.Trading.StopLossRatio)
	}
	if config.Trading.PollIntervalMs <= 0 {
		return fmt.Errorf("trading.poll_interval_ms must be positive, got %d", config.Trading.PollIntervalMs)
	}
	if config.Trading.CooldownMs < 0 {
		return fmt.Errorf("trading.cooldown_ms must not be negative, got %d", config.Trading.CooldownMs)
	}

	if len(config.Jupiter.Endpoints) == 0 {
		return fmt.Errorf("jupiter.endpoints must not be empty")
	}
	if config.Jupiter.MaxAttempts <= 0 {
		return fmt.Errorf("jupiter.max_attempts must be positive, got %d", config.Jupiter.MaxAttempts)
	}

	if config.Risk.Threshold < 0 {
		return fmt.Errorf("risk.threshold must not be negative, got %v", config.Risk.Threshold)
	}

	if config.Telegram.Enabled {
		if config.Telegram.Token == "" || config.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.token and telegram.chat_id are required when telegram is enabled")
		}
	}

	return nil
}

// PollInterval returns the monitor poll interval as a duration
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Trading.PollIntervalMs) * time.Millisecond
}

// Cooldown returns the pipeline cooldown as a duration
func (c *Config) Cooldown() time.Duration {
	return time.Duration(c.Trading.CooldownMs) * time.Millisecond
}
