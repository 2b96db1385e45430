package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Logger represents the application logger
type Logger struct {
	*logrus.Logger
	config  LogConfig
	history *History
}

// LogConfig contains logger configuration
type LogConfig struct {
	Level       string
	Format      string // "json" or "text"
	LogToFile   bool
	LogFilePath string
	TradeLogDir string
	HistorySize int
}

// NewLogger creates a new logger instance
func NewLogger(config LogConfig) (*Logger, error) {
	log := logrus.New()

	// Set log level
	level, err := logrus.ParseLevel(config.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %s: %w", config.Level, err)
	}
	log.SetLevel(level)

	log.SetOutput(os.Stdout)

	// Set log format based on configuration
	switch strings.ToLower(config.Format) {
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	case "text":
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05.000",
			ForceColors:     true,
			DisableQuote:    true,
		})
	default:
		log.SetFormatter(&CustomFormatter{})
	}

	// Create trade log directory if specified
	if config.TradeLogDir != "" {
		if err := os.MkdirAll(config.TradeLogDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create trade log directory %s: %w", config.TradeLogDir, err)
		}
	}

	if config.LogToFile && config.LogFilePath != "" {
		logDir := filepath.Dir(config.LogFilePath)
		if err := os.MkdirAll(logDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory %s: %w", logDir, err)
		}
	}

	if config.HistorySize <= 0 {
		config.HistorySize = 25
	}
	history := NewHistory(config.HistorySize)
	log.AddHook(history)

	return &Logger{
		Logger:  log,
		config:  config,
		history: history,
	}, nil
}

// History returns the in-memory tail of recent log lines
func (l *Logger) History() *History {
	return l.history
}

// CustomFormatter provides a clean, timestamped format for console output
type CustomFormatter struct{}

func (f *CustomFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	timestamp := entry.Time.Format("2006-01-02 15:04:05.000")
	level := strings.ToUpper(entry.Level.String())

	// Color coding for different log levels
	var levelColor string
	switch entry.Level {
	case logrus.DebugLevel:
		levelColor = "\033[36m" // Cyan
	case logrus.InfoLevel:
		levelColor = "\033[32m" // Green
	case logrus.WarnLevel:
		levelColor = "\033[33m" // Yellow
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		levelColor = "\033[31m" // Red
	default:
		levelColor = "\033[0m" // Reset
	}

	resetColor := "\033[0m"

	msg := fmt.Sprintf("%s [%s%s%s] %s",
		timestamp,
		levelColor,
		level,
		resetColor,
		entry.Message)

	// Add fields if present
	if len(entry.Data) > 0 {
		msg += " |"
		for key, value := range entry.Data {
			msg += fmt.Sprintf(" %s=%v", key, value)
		}
	}

	msg += "\n"
	return []byte(msg), nil
}

// WithField adds a field to the logger
func (l *Logger) WithField(key string, value interface{}) *logrus.Entry {
	return l.Logger.WithField(key, value)
}

// WithFields adds multiple fields to the logger
func (l *Logger) WithFields(fields logrus.Fields) *logrus.Entry {
	return l.Logger.WithFields(fields)
}

// WithError adds an error field to the logger
func (l *Logger) WithError(err error) *logrus.Entry {
	return l.Logger.WithError(err)
}

// Trading-specific logging methods

// LogSignal logs a pool-creation signal picked up from the log stream
func (l *Logger) LogSignal(signature string, slot uint64, logsCount int) {
	l.WithFields(logrus.Fields{
		"event":      "pool_signal",
		"signature":  signature,
		"slot":       slot,
		"logs_count": logsCount,
	}).Info("🔍 New pool signal detected")
}

// LogRiskVerdict logs the outcome of a risk assessment
func (l *Logger) LogRiskVerdict(mint string, approved bool, score float64, degraded bool) {
	entry := l.WithFields(logrus.Fields{
		"event":    "risk_verdict",
		"mint":     mint,
		"approved": approved,
		"score":    score,
		"degraded": degraded,
	})
	if approved {
		entry.Info("🛡️ Token passed risk check")
	} else {
		entry.Info("☣️ Token blocked by risk check")
	}
}

// LogTradeAttempt logs when a trade attempt is made
func (l *Logger) LogTradeAttempt(tradeType, mint string, amount float64) {
	l.WithFields(logrus.Fields{
		"event":  "trade_attempt",
		"type":   tradeType,
		"mint":   mint,
		"amount": amount,
	}).Info("💰 Trade attempt initiated")
}

// LogTradeSuccess logs when a trade submission succeeds
func (l *Logger) LogTradeSuccess(tradeType, mint string, amount float64, signature string, price float64) {
	l.WithFields(logrus.Fields{
		"event":     "trade_success",
		"type":      tradeType,
		"mint":      mint,
		"amount":    amount,
		"signature": signature,
		"price":     price,
	}).Info("✅ Trade submitted")
}

// LogTradeError logs when a trade fails
func (l *Logger) LogTradeError(tradeType, mint string, err error) {
	l.WithFields(logrus.Fields{
		"event": "trade_error",
		"type":  tradeType,
		"mint":  mint,
	}).WithError(err).Error("❌ Trade failed")
}

// LogPositionUpdate logs a monitor poll result
func (l *Logger) LogPositionUpdate(mint string, entryPrice, currentPrice, ratio float64) {
	l.WithFields(logrus.Fields{
		"event":         "position_update",
		"mint":          mint,
		"entry_price":   entryPrice,
		"current_price": currentPrice,
		"ratio":         ratio,
	}).Debug("📈 Position update")
}

// LogStartup logs application startup information
func (l *Logger) LogStartup(version, network, rpcUrl string) {
	l.WithFields(logrus.Fields{
		"event":   "startup",
		"version": version,
		"network": network,
		"rpc_url": rpcUrl,
	}).Info("🚀 Bot starting up")
}

// LogShutdown logs application shutdown information
func (l *Logger) LogShutdown(reason string) {
	l.WithFields(logrus.Fields{
		"event":  "shutdown",
		"reason": reason,
	}).Info("🛑 Bot shutting down")
}

// WithComponent returns a logger with component context
func (l *Logger) WithComponent(component string) *logrus.Entry {
	return l.WithField("component", component)
}

// WithToken returns a logger with token context
func (l *Logger) WithToken(mint string) *logrus.Entry {
	return l.WithField("mint", mint)
}
