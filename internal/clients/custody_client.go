package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrInsufficientBalance is the only custody failure the ledger reasons
// about; anything else is treated as a transport error.
var ErrInsufficientBalance = errors.New("custody: insufficient balance")

// CustodyClient is the asset custody substrate. The vault never holds keys
// or signs transfers itself; it instructs the custody service and trusts the
// answer. "vault" is a reserved account name for the pool's own custody.
type CustodyClient interface {
	// Transfer moves amount of asset between custody accounts. Fails with
	// ErrInsufficientBalance when the source cannot cover the amount.
	Transfer(ctx context.Context, asset, from, to string, amount uint64) error
}

// VaultAccount is the custody account holding pooled funds.
const VaultAccount = "vault"

// FeeAccount is the custody account holding retained system fees.
const FeeAccount = "vault-fees"

// HTTPCustodyClient calls an external custody service over HTTP.
type HTTPCustodyClient struct {
	baseURL    string
	authToken  string
	httpClient *http.Client
}

// NewHTTPCustodyClient builds a custody client for the given service URL.
func NewHTTPCustodyClient(baseURL, authToken string, timeout time.Duration) *HTTPCustodyClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPCustodyClient{
		baseURL:    baseURL,
		authToken:  authToken,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type custodyTransferRequest struct {
	Asset  string `json:"asset"`
	From   string `json:"from"`
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

type custodyTransferResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (c *HTTPCustodyClient) Transfer(ctx context.Context, asset, from, to string, amount uint64) error {
	body, err := json.Marshal(custodyTransferRequest{Asset: asset, From: from, To: to, Amount: amount})
	if err != nil {
		return fmt.Errorf("failed to marshal transfer request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/transfers", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build transfer request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("custody transfer failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read custody response: %w", err)
	}

	var out custodyTransferResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("invalid custody response (status %d): %w", resp.StatusCode, err)
	}
	if !out.Success {
		if out.Code == "INSUFFICIENT_BALANCE" {
			return ErrInsufficientBalance
		}
		return fmt.Errorf("custody transfer rejected: %s", out.Error)
	}
	return nil
}

// NopCustodyClient accepts every transfer. Used in dev mode when no custody
// service is configured; the ledger's own liquidity checks still apply.
type NopCustodyClient struct{}

func (NopCustodyClient) Transfer(ctx context.Context, asset, from, to string, amount uint64) error {
	return nil
}
