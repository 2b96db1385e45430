package rugcheck

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"raydium-sniper-go/internal/solana"

	"github.com/sirupsen/logrus"
)

// splMintDataLen is the serialized size of an SPL mint account
const splMintDataLen = 82

// Client scores freshly minted tokens before the bot is allowed to buy them
type Client struct {
	baseURL    string
	threshold  int
	httpClient *http.Client
	rpcClient  *solana.Client
	logger     *logrus.Logger
}

// ClientConfig contains configuration for the risk client
type ClientConfig struct {
	BaseURL   string
	Threshold int
	Timeout   time.Duration
}

// Verdict is the outcome of a risk assessment. Assess always produces one;
// analysis failures degrade to an on-ledger check instead of erroring out.
type Verdict struct {
	Approved bool
	Score    int
	Degraded bool
	Reason   string
}

// reportResponse mirrors the fields we read from the scoring API
type reportResponse struct {
	Score int `json:"score"`
	Risks []struct {
		Name  string `json:"name"`
		Level string `json:"level"`
	} `json:"risks"`
}

// NewClient creates a new risk client
func NewClient(config ClientConfig, rpcClient *solana.Client, logger *logrus.Logger) *Client {
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}

	return &Client{
		baseURL:   config.BaseURL,
		threshold: config.Threshold,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		rpcClient: rpcClient,
		logger:    logger,
	}
}

// Assess scores a mint against the configured threshold. When the scoring
// service is unreachable or returns garbage, it falls back to reading the
// mint account itself and approves only if the mint authority is revoked.
// Assess never fails: the worst case is a rejection, not an error.
func (c *Client) Assess(ctx context.Context, mint string) Verdict {
	report, err := c.fetchReport(ctx, mint)
	if err == nil {
		approved := report.Score <= c.threshold
		verdict := Verdict{
			Approved: approved,
			Score:    report.Score,
		}
		if !approved {
			verdict.Reason = fmt.Sprintf("risk score %d above threshold %d", report.Score, c.threshold)
		}
		return verdict
	}

	c.logger.WithError(err).WithField("mint", mint).Warn("⚠️ Risk report unavailable, falling back to on-ledger check")
	return c.assessOnLedger(ctx, mint)
}

// fetchReport requests the token report from the scoring service
func (c *Client) fetchReport(ctx context.Context, mint string) (*reportResponse, error) {
	url := fmt.Sprintf("%s/v1/tokens/%s/report", c.baseURL, mint)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create report request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("report request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read report response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("report HTTP error %d", resp.StatusCode)
	}

	var report reportResponse
	if err := json.Unmarshal(body, &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}

	return &report, nil
}

// assessOnLedger reads the SPL mint account directly. A token whose mint
// authority is still live can be inflated at will, so in degraded mode only
// renounced mints pass.
func (c *Client) assessOnLedger(ctx context.Context, mint string) Verdict {
	account, err := c.rpcClient.GetAccountInfo(ctx, mint)
	if err != nil {
		return Verdict{
			Approved: false,
			Degraded: true,
			Reason:   fmt.Sprintf("mint account unreadable: %v", err),
		}
	}

	data, err := account.DecodeData()
	if err != nil {
		return Verdict{
			Approved: false,
			Degraded: true,
			Reason:   fmt.Sprintf("mint data undecodable: %v", err),
		}
	}

	hasMintAuthority, err := parseMintAuthority(data)
	if err != nil {
		return Verdict{
			Approved: false,
			Degraded: true,
			Reason:   err.Error(),
		}
	}

	if hasMintAuthority {
		return Verdict{
			Approved: false,
			Degraded: true,
			Reason:   "mint authority not revoked",
		}
	}

	c.logger.WithField("mint", mint).Info("🛡️ Degraded approval: mint authority revoked")
	return Verdict{
		Approved: true,
		Degraded: true,
	}
}

// parseMintAuthority reads the COption<Pubkey> at the head of the SPL mint
// layout and reports whether a mint authority is set
func parseMintAuthority(data []byte) (bool, error) {
	if len(data) < splMintDataLen {
		return false, fmt.Errorf("mint data too short: %d bytes", len(data))
	}

	tag := binary.LittleEndian.Uint32(data[0:4])
	switch tag {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("invalid mint authority tag %d", tag)
	}
}
