package payout

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// TransferResult carries the settlement reference returned by the payout
// node on success.
type TransferResult struct {
	Reference string
}

// TransferCapability moves funds to a payout address. The idempotency key is
// forwarded to the external system so a retried transfer after an
// indeterminate outcome can be deduplicated there; the caller itself never
// retries automatically.
type TransferCapability interface {
	Transfer(ctx context.Context, destination string, amount int64, idempotencyKey string) (TransferResult, error)
}

// ErrRejected means the payout node processed the request and refused it.
// The funds did not move.
var ErrRejected = errors.New("transfer rejected by payout node")

// Unconfigured is the transfer capability used when no payout node is
// configured. Every transfer is refused without moving funds.
type Unconfigured struct{}

func (Unconfigured) Transfer(ctx context.Context, destination string, amount int64, idempotencyKey string) (TransferResult, error) {
	return TransferResult{}, fmt.Errorf("%w: no payout node configured", ErrRejected)
}

// NodeClient interfaces with a payout node's HTTP API.
type NodeClient struct {
	baseURL string
	client  *http.Client
}

// NewNodeClient builds a client for a payout node.
// Expects baseURL like: http://127.0.0.1:8545
func NewNodeClient(baseURL string) *NodeClient {
	return &NodeClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type transferRequest struct {
	Destination    string `json:"destination"`
	Amount         int64  `json:"amount"`
	IdempotencyKey string `json:"idempotency_key"`
}

type transferResponse struct {
	Success   bool   `json:"success"`
	Reference string `json:"reference"`
	Message   string `json:"message,omitempty"`
}

// Transfer submits a transfer and waits for the node's confirmation.
// A context deadline maps to ctx.Err(); callers must treat that as an
// inconclusive outcome, not a failure.
func (c *NodeClient) Transfer(ctx context.Context, destination string, amount int64, idempotencyKey string) (TransferResult, error) {
	body, err := json.Marshal(transferRequest{
		Destination:    destination,
		Amount:         amount,
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		return TransferResult{}, fmt.Errorf("marshal transfer request: %w", err)
	}

	url := c.baseURL + "/v1/transfers"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return TransferResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			// Deadline or cancellation: outcome unknown.
			return TransferResult{}, ctx.Err()
		}
		return TransferResult{}, fmt.Errorf("transfer request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return TransferResult{}, fmt.Errorf("%w: %s", ErrRejected, resp.Status)
	}

	var tr transferResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return TransferResult{}, fmt.Errorf("decode transfer response: %w", err)
	}
	if !tr.Success || tr.Reference == "" {
		return TransferResult{}, fmt.Errorf("%w: %s", ErrRejected, tr.Message)
	}
	return TransferResult{Reference: tr.Reference}, nil
}
