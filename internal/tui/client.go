package tui

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"kanban-tracker/internal/domain"
)

// API is what the dashboard needs from the operator service.
type API interface {
	Ledger(ctx context.Context) (domain.LedgerResponse, error)
	ResetOne(ctx context.Context, row int) error
	ResetAll(ctx context.Context) error
	Clear(ctx context.Context) error
}

// Client talks to the operator HTTP API.
type Client struct {
	base string
	http *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: 5 * time.Second},
	}
}

func (c *Client) Ledger(ctx context.Context) (domain.LedgerResponse, error) {
	var out domain.LedgerResponse
	err := c.do(ctx, http.MethodGet, "/api/v1/orders", &out)
	return out, err
}

func (c *Client) ResetOne(ctx context.Context, row int) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/api/v1/orders/%d/reset", row), nil)
}

func (c *Client) ResetAll(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/v1/orders/reset", nil)
}

func (c *Client) Clear(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/orders", nil)
}

type problem struct {
	Type   string `json:"type"`
	Detail string `json:"detail"`
}

func (c *Client) do(ctx context.Context, method, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var p problem
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		if json.Unmarshal(body, &p) == nil && p.Detail != "" {
			return fmt.Errorf("%s %s: %s: %s", method, path, p.Type, p.Detail)
		}
		return fmt.Errorf("%s %s: %s", method, path, resp.Status)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
