package authority

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Verifier checks registration details against an external citizen registry.
type Verifier interface {
	Verify(ctx context.Context, nationalID, name, phone, dateOfBirth string) (bool, error)
}

// Client talks to a citizen-registry verification API. The registry requires
// an exact match on all four fields; no normalization is applied here.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient builds a verification client for the given registry endpoint.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type verifyRequest struct {
	NationalID  string `json:"national_id"`
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	DateOfBirth string `json:"date_of_birth"`
}

type verifyResponse struct {
	Verified bool `json:"verified"`
}

// Verify performs the four-field exact-match lookup. It is a pure read on
// the external authority; no state changes on either side.
func (c *Client) Verify(ctx context.Context, nationalID, name, phone, dateOfBirth string) (bool, error) {
	body, err := json.Marshal(verifyRequest{
		NationalID:  nationalID,
		Name:        name,
		Phone:       phone,
		DateOfBirth: dateOfBirth,
	})
	if err != nil {
		return false, fmt.Errorf("marshal verify request: %w", err)
	}

	url := c.baseURL + "/v1/verify"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("verify request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("verify request failed: %s", resp.Status)
	}

	var vr verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		return false, fmt.Errorf("decode verify response: %w", err)
	}
	return vr.Verified, nil
}
