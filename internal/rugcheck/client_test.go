package rugcheck

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"raydium-sniper-go/internal/solana"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMint = "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU"

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	return log
}

func reportServer(t *testing.T, status, score int) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/tokens/"+testMint+"/report", r.URL.Path)
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		fmt.Fprintf(w, `{"score":%d,"risks":[]}`, score)
	}))
	t.Cleanup(server.Close)
	return server
}

// mintAccountData builds an SPL mint layout with the given authority tag
func mintAccountData(authorityTag uint32) string {
	data := make([]byte, splMintDataLen)
	binary.LittleEndian.PutUint32(data[0:4], authorityTag)
	return base64.StdEncoding.EncodeToString(data)
}

func mintRPCServer(t *testing.T, accountData string, found bool) *solana.Client {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string `json:"method"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "getAccountInfo", req.Method)

		if !found {
			fmt.Fprint(w, `{"jsonrpc":"2.0","id":1,"result":{"context":{"slot":1},"value":null}}`)
			return
		}
		fmt.Fprintf(w, `{"jsonrpc":"2.0","id":1,"result":{"context":{"slot":1},"value":{"data":[%q,"base64"],"executable":false,"lamports":1461600,"owner":"TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"}}}`, accountData)
	}))
	t.Cleanup(server.Close)

	return solana.NewClient(solana.ClientConfig{Endpoint: server.URL}, testLogger())
}

func TestAssessApprovesBelowThreshold(t *testing.T) {
	server := reportServer(t, http.StatusOK, 400)
	client := NewClient(ClientConfig{BaseURL: server.URL, Threshold: 500}, nil, testLogger())

	verdict := client.Assess(context.Background(), testMint)
	assert.True(t, verdict.Approved)
	assert.Equal(t, 400, verdict.Score)
	assert.False(t, verdict.Degraded)
}

func TestAssessApprovesAtThreshold(t *testing.T) {
	server := reportServer(t, http.StatusOK, 500)
	client := NewClient(ClientConfig{BaseURL: server.URL, Threshold: 500}, nil, testLogger())

	verdict := client.Assess(context.Background(), testMint)
	assert.True(t, verdict.Approved)
}

func TestAssessRejectsAboveThreshold(t *testing.T) {
	server := reportServer(t, http.StatusOK, 600)
	client := NewClient(ClientConfig{BaseURL: server.URL, Threshold: 500}, nil, testLogger())

	verdict := client.Assess(context.Background(), testMint)
	assert.False(t, verdict.Approved)
	assert.Equal(t, 600, verdict.Score)
	assert.NotEmpty(t, verdict.Reason)
}

func TestAssessDegradedApprovesRevokedAuthority(t *testing.T) {
	server := reportServer(t, http.StatusServiceUnavailable, 0)
	rpc := mintRPCServer(t, mintAccountData(0), true)
	client := NewClient(ClientConfig{BaseURL: server.URL, Threshold: 500}, rpc, testLogger())

	verdict := client.Assess(context.Background(), testMint)
	assert.True(t, verdict.Approved)
	assert.True(t, verdict.Degraded)
}

func TestAssessDegradedRejectsLiveAuthority(t *testing.T) {
	server := reportServer(t, http.StatusServiceUnavailable, 0)
	rpc := mintRPCServer(t, mintAccountData(1), true)
	client := NewClient(ClientConfig{BaseURL: server.URL, Threshold: 500}, rpc, testLogger())

	verdict := client.Assess(context.Background(), testMint)
	assert.False(t, verdict.Approved)
	assert.True(t, verdict.Degraded)
	assert.Equal(t, "mint authority not revoked", verdict.Reason)
}

func TestAssessDegradedRejectsUnreadableMint(t *testing.T) {
	server := reportServer(t, http.StatusServiceUnavailable, 0)
	rpc := mintRPCServer(t, "", false)
	client := NewClient(ClientConfig{BaseURL: server.URL, Threshold: 500}, rpc, testLogger())

	verdict := client.Assess(context.Background(), testMint)
	assert.False(t, verdict.Approved)
	assert.True(t, verdict.Degraded)
	assert.NotEmpty(t, verdict.Reason)
}

func TestParseMintAuthority(t *testing.T) {
	revoked := make([]byte, splMintDataLen)
	has, err := parseMintAuthority(revoked)
	require.NoError(t, err)
	assert.False(t, has)

	live := make([]byte, splMintDataLen)
	binary.LittleEndian.PutUint32(live[0:4], 1)
	has, err = parseMintAuthority(live)
	require.NoError(t, err)
	assert.True(t, has)

	_, err = parseMintAuthority(make([]byte, 10))
	assert.Error(t, err)

	bad := make([]byte, splMintDataLen)
	binary.LittleEndian.PutUint32(bad[0:4], 7)
	_, err = parseMintAuthority(bad)
	assert.Error(t, err)
}
