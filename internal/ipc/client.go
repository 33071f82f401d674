package ipc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/beequen/beequen/internal/core"
)

// Client invokes channels of a running beequen server.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the server at baseURL, for example
// "http://127.0.0.1:7360".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/") + "/api/v1",
		http:    &http.Client{Timeout: 0},
	}
}

// Invoke calls channel with args and decodes the result into out, which may
// be nil. Failed invocations return a *core.DomainError.
func (c *Client) Invoke(ctx context.Context, channel string, out any, args ...any) error {
	encoded, err := NewArgs(args...)
	if err != nil {
		return err
	}
	body, err := json.Marshal(Request{Args: encoded})
	if err != nil {
		return err
	}

	resp, err := c.post(ctx, "/ipc/"+channel, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}
	var reply struct {
		Result json.RawMessage `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return fmt.Errorf("decoding %s reply: %w", channel, err)
	}
	if out == nil || len(reply.Result) == 0 {
		return nil
	}
	return json.Unmarshal(reply.Result, out)
}

// ExecuteFromMenu asks the UI attached to the server to run its current tab.
func (c *Client) ExecuteFromMenu(ctx context.Context) error {
	resp, err := c.post(ctx, "/menu/execute", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("menu execute: unexpected status %s", resp.Status)
	}
	return nil
}

// Ping checks that the server is up.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/ipc", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ping: unexpected status %s", resp.Status)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.http.Do(req)
}

func decodeError(resp *http.Response) error {
	var body ErrorBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Error == nil {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	return &core.DomainError{
		Category: body.Error.Category,
		Code:     body.Error.Code,
		Message:  body.Error.Message,
	}
}
