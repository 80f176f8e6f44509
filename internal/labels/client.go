// Package labels talks to the shop's label printer bridge, a small local
// HTTP service that drives the thermal printer.
package labels

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Label is one price tag.
type Label struct {
	ProductName string          `json:"productName" validate:"required,max=120"`
	Price       decimal.Decimal `json:"price"`
	SKU         string          `json:"sku,omitempty" validate:"max=64"`
	Copies      int             `json:"copies,omitempty" validate:"gte=0,lte=50"`
}

// Client wraps interactions with the printer bridge.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a new client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Ping checks if the bridge is reachable.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/health", c.baseURL), nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("printer bridge returned status %d", resp.StatusCode)
	}
	return nil
}

// Print sends a label to the bridge.
func (c *Client) Print(ctx context.Context, label Label) error {
	if label.Copies <= 0 {
		label.Copies = 1
	}
	body, err := json.Marshal(label)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/print", c.baseURL), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("printer bridge: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &BridgeError{Status: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
	}
	return nil
}

// BridgeError is a non-2xx answer from the bridge.
type BridgeError struct {
	Status  int
	Message string
}

func (e *BridgeError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("print failed with status %d", e.Status)
	}
	return fmt.Sprintf("print failed with status %d: %s", e.Status, e.Message)
}

// Retryable reports whether a later attempt may succeed.
func (e *BridgeError) Retryable() bool {
	return e.Status >= 500 || e.Status == http.StatusTooManyRequests
}
