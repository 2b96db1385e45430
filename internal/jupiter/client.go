package jupiter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrRouteUnavailable is returned when every configured endpoint failed to
// produce a route within the attempt and time budgets. For a token minted
// seconds ago this is the common case, not an exceptional one: the router's
// indexer simply hasn't seen the pool yet.
var ErrRouteUnavailable = errors.New("route unavailable")

// Client is a quote/swap client with multi-endpoint failover
type Client struct {
	endpoints      []string
	httpClient     *http.Client
	maxAttempts    int
	attemptTimeout time.Duration
	retryDelay     time.Duration
	budget         time.Duration
	slippageStepBP int
	slippageMaxBP  int
	onlyDirect     bool
	logger         *logrus.Logger

	// round-robin cursor, shared by every caller of GetQuote
	next atomic.Uint64
}

// ClientConfig contains configuration for the quote client
type ClientConfig struct {
	Endpoints      []string
	MaxAttempts    int
	AttemptTimeout time.Duration
	RetryDelay     time.Duration
	Budget         time.Duration
	SlippageStepBP int
	SlippageMaxBP  int
	OnlyDirect     bool
}

// Quote represents a priced swap proposal. It is only valid for a short
// window and is never persisted.
type Quote struct {
	InputMint   string
	OutputMint  string
	InAmount    uint64
	OutAmount   uint64
	SlippageBps int

	// Raw is the untouched quote response, passed back verbatim when
	// building the swap transaction.
	Raw json.RawMessage
}

// quoteResponse mirrors the fields we read from the routing API
type quoteResponse struct {
	InputMint  string `json:"inputMint"`
	InAmount   string `json:"inAmount"`
	OutputMint string `json:"outputMint"`
	OutAmount  string `json:"outAmount"`
}

// swapRequest is the build-swap request body
type swapRequest struct {
	QuoteResponse             json.RawMessage `json:"quoteResponse"`
	UserPublicKey             string          `json:"userPublicKey"`
	PrioritizationFeeLamports uint64          `json:"prioritizationFeeLamports,omitempty"`
	WrapAndUnwrapSol          bool            `json:"wrapAndUnwrapSol"`
}

// swapResponse is the build-swap response body
type swapResponse struct {
	SwapTransaction string `json:"swapTransaction"`
}

// NewClient creates a new quote client
func NewClient(config ClientConfig, logger *logrus.Logger) *Client {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 1
	}
	if config.AttemptTimeout <= 0 {
		config.AttemptTimeout = 3 * time.Second
	}

	return &Client{
		endpoints:      config.Endpoints,
		maxAttempts:    config.MaxAttempts,
		attemptTimeout: config.AttemptTimeout,
		retryDelay:     config.RetryDelay,
		budget:         config.Budget,
		slippageStepBP: config.SlippageStepBP,
		slippageMaxBP:  config.SlippageMaxBP,
		onlyDirect:     config.OnlyDirect,
		httpClient:     &http.Client{},
		logger:         logger,
	}
}

// GetQuote requests a quote, rotating through the configured endpoints with
// a fixed backoff. Slippage tolerance loosens on every retry up to the cap,
// trading price for fill probability. Stops after MaxAttempts calls or when
// the wall-clock budget runs out, whichever comes first.
func (c *Client) GetQuote(ctx context.Context, inputMint, outputMint string, amount uint64, slippageBps int) (*Quote, error) {
	if len(c.endpoints) == 0 {
		return nil, fmt.Errorf("%w: no endpoints configured", ErrRouteUnavailable)
	}

	deadline := time.Time{}
	if c.budget > 0 {
		deadline = time.Now().Add(c.budget)
	}

	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if !deadline.IsZero() && time.Now().After(deadline) {
			c.logger.WithFields(logrus.Fields{
				"output_mint": outputMint,
				"attempts":    attempt,
			}).Warn("⏰ Quote budget exhausted")
			break
		}

		endpoint := c.endpoints[int(c.next.Add(1)-1)%len(c.endpoints)]

		effectiveSlippage := c.escalatedSlippage(slippageBps, attempt)

		quote, err := c.fetchQuote(ctx, endpoint, inputMint, outputMint, amount, effectiveSlippage)
		if err == nil {
			c.logger.WithFields(logrus.Fields{
				"endpoint":     endpoint,
				"output_mint":  outputMint,
				"out_amount":   quote.OutAmount,
				"slippage_bps": effectiveSlippage,
				"attempt":      attempt + 1,
			}).Info("💱 Quote obtained")
			return quote, nil
		}

		lastErr = err
		c.logger.WithError(err).WithFields(logrus.Fields{
			"endpoint": endpoint,
			"attempt":  attempt + 1,
		}).Debug("Quote attempt failed")

		if attempt+1 < c.maxAttempts && c.retryDelay > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", ErrRouteUnavailable, ctx.Err())
			case <-time.After(c.retryDelay):
			}
		}
	}

	if lastErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrRouteUnavailable, lastErr)
	}
	return nil, ErrRouteUnavailable
}

// escalatedSlippage widens the tolerance per retry round
func (c *Client) escalatedSlippage(base, attempt int) int {
	if c.slippageStepBP <= 0 || attempt == 0 {
		return base
	}

	rounds := attempt / max(len(c.endpoints), 1)
	slippage := base + rounds*c.slippageStepBP
	if c.slippageMaxBP > 0 && slippage > c.slippageMaxBP {
		slippage = c.slippageMaxBP
	}
	return slippage
}

// fetchQuote performs a single quote request against one endpoint
func (c *Client) fetchQuote(ctx context.Context, endpoint, inputMint, outputMint string, amount uint64, slippageBps int) (*Quote, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.attemptTimeout)
	defer cancel()

	query := url.Values{}
	query.Set("inputMint", inputMint)
	query.Set("outputMint", outputMint)
	query.Set("amount", strconv.FormatUint(amount, 10))
	query.Set("slippageBps", strconv.Itoa(slippageBps))
	if c.onlyDirect {
		query.Set("onlyDirectRoutes", "true")
	}

	req, err := http.NewRequestWithContext(callCtx, "GET", endpoint+"/quote?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create quote request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("quote request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read quote response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("quote HTTP error %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var parsed quoteResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal quote: %w", err)
	}

	inAmount, err := strconv.ParseUint(parsed.InAmount, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid inAmount %q: %w", parsed.InAmount, err)
	}
	outAmount, err := strconv.ParseUint(parsed.OutAmount, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid outAmount %q: %w", parsed.OutAmount, err)
	}
	if outAmount == 0 {
		return nil, fmt.Errorf("quote returned zero output amount")
	}

	return &Quote{
		InputMint:   parsed.InputMint,
		OutputMint:  parsed.OutputMint,
		InAmount:    inAmount,
		OutAmount:   outAmount,
		SlippageBps: slippageBps,
		Raw:         json.RawMessage(body),
	}, nil
}

// BuildSwap asks the routing service to build the swap transaction for a
// previously obtained quote. Returns the base64-encoded unsigned payload.
func (c *Client) BuildSwap(ctx context.Context, quote *Quote, signerAddress string, priorityFee uint64) (string, error) {
	if len(c.endpoints) == 0 {
		return "", fmt.Errorf("%w: no endpoints configured", ErrRouteUnavailable)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.attemptTimeout)
	defer cancel()

	reqBody, err := json.Marshal(swapRequest{
		QuoteResponse:             quote.Raw,
		UserPublicKey:             signerAddress,
		PrioritizationFeeLamports: priorityFee,
		WrapAndUnwrapSol:          true,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal swap request: %w", err)
	}

	endpoint := c.endpoints[0]
	req, err := http.NewRequestWithContext(callCtx, "POST", endpoint+"/swap", bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to create swap request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("swap request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read swap response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("swap HTTP error %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var parsed swapResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to unmarshal swap response: %w", err)
	}
	if parsed.SwapTransaction == "" {
		return "", fmt.Errorf("swap response missing transaction payload")
	}

	return parsed.SwapTransaction, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
