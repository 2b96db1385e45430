package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// StatusProvider supplies the data behind the operator commands. The bot
// only formats and transports; it holds no trading state of its own.
type StatusProvider interface {
	WalletBalanceSOL(ctx context.Context) (float64, error)
	StatusText() string
	LogTail() []string
}

// Bot is a minimal long-polling Telegram client for operator notifications
// and a handful of read-only commands.
type Bot struct {
	token      string
	chatID     string
	baseURL    string
	httpClient *http.Client
	provider   StatusProvider
	logger     *logrus.Logger

	mu     sync.Mutex
	offset int64

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// BotConfig contains Telegram bot configuration
type BotConfig struct {
	Token   string
	ChatID  string
	BaseURL string
}

type update struct {
	UpdateID int64 `json:"update_id"`
	Message  *struct {
		Text string `json:"text"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
	} `json:"message"`
}

type updatesResponse struct {
	OK     bool     `json:"ok"`
	Result []update `json:"result"`
}

// NewBot creates a new bot instance
func NewBot(config BotConfig, provider StatusProvider, logger *logrus.Logger) *Bot {
	return &Bot{
		token:   config.Token,
		chatID:  config.ChatID,
		baseURL: config.BaseURL,
		httpClient: &http.Client{
			Timeout: 35 * time.Second,
		},
		provider: provider,
		logger:   logger,
	}
}

// Start launches the command polling loop
func (b *Bot) Start(ctx context.Context) {
	pollCtx, cancel := context.WithCancel(ctx)
	b.cancel = cancel

	b.wg.Add(1)
	go b.pollLoop(pollCtx)

	b.logger.Info("📱 Telegram bot started")
}

// Stop terminates the polling loop and waits for it to exit
func (b *Bot) Stop() {
	if b.cancel != nil {
		b.cancel()
	}
	b.wg.Wait()
}

// Notify sends a message to the configured chat. Delivery is best effort;
// a failed notification must never stall the trading pipeline.
func (b *Bot) Notify(text string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := b.sendMessage(ctx, b.chatID, text); err != nil {
			b.logger.WithError(err).Warn("Failed to send Telegram notification")
		}
	}()
}

func (b *Bot) pollLoop(ctx context.Context) {
	defer b.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		updates, err := b.getUpdates(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			b.logger.WithError(err).Debug("Telegram poll failed")
			select {
			case <-ctx.Done():
				return
			case <-time.After(5 * time.Second):
			}
			continue
		}

		for _, u := range updates {
			b.advanceOffset(u.UpdateID)
			if u.Message == nil {
				continue
			}
			b.handleCommand(ctx, strconv.FormatInt(u.Message.Chat.ID, 10), u.Message.Text)
		}
	}
}

func (b *Bot) advanceOffset(updateID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if updateID >= b.offset {
		b.offset = updateID + 1
	}
}

func (b *Bot) handleCommand(ctx context.Context, chatID, text string) {
	cmd := strings.ToLower(strings.TrimSpace(text))
	if i := strings.Index(cmd, "@"); i > 0 {
		cmd = cmd[:i]
	}

	var reply string
	switch cmd {
	case "/balance":
		balance, err := b.provider.WalletBalanceSOL(ctx)
		if err != nil {
			reply = fmt.Sprintf("Balance unavailable: %v", err)
		} else {
			reply = fmt.Sprintf("💰 Wallet balance: %.4f SOL", balance)
		}
	case "/status":
		reply = b.provider.StatusText()
	case "/log":
		tail := b.provider.LogTail()
		if len(tail) == 0 {
			reply = "Log is empty"
		} else {
			reply = strings.Join(tail, "\n")
		}
	default:
		return
	}

	if err := b.sendMessage(ctx, chatID, reply); err != nil {
		b.logger.WithError(err).Warn("Failed to reply to Telegram command")
	}
}

func (b *Bot) getUpdates(ctx context.Context) ([]update, error) {
	b.mu.Lock()
	offset := b.offset
	b.mu.Unlock()

	query := url.Values{}
	query.Set("timeout", "30")
	if offset > 0 {
		query.Set("offset", strconv.FormatInt(offset, 10))
	}

	endpoint := fmt.Sprintf("%s/bot%s/getUpdates?%s", b.baseURL, b.token, query.Encode())
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create getUpdates request: %w", err)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("getUpdates request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read getUpdates response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("getUpdates HTTP error %d", resp.StatusCode)
	}

	var parsed updatesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal updates: %w", err)
	}
	if !parsed.OK {
		return nil, fmt.Errorf("getUpdates returned not ok")
	}

	return parsed.Result, nil
}

func (b *Bot) sendMessage(ctx context.Context, chatID, text string) error {
	form := url.Values{}
	form.Set("chat_id", chatID)
	form.Set("text", text)

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", b.baseURL, b.token)
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create sendMessage request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sendMessage request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("sendMessage HTTP error %d", resp.StatusCode)
	}
	return nil
}
