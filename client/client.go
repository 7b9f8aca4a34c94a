// client.go - HTTP client for a registry host.
//
// The client wraps the registry host's REST API and doubles as the
// submission transport: Invoke satisfies action.Transport, so a Submitter
// can hand calls straight to a remote host. Submission failures are
// returned as-is and are always safe to retry with the same nullifier,
// since the guard only commits on confirmed success.

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"anonsignal/internal/action"
	"anonsignal/internal/field"
	"anonsignal/internal/registry"
)

// Client talks to one registry host on behalf of one caller identity.
type Client struct {
	baseURL string
	caller  string
	http    *http.Client
}

// New creates a client. The caller identity rides on every request as the
// host's attested-identity header.
func New(baseURL, caller string) *Client {
	return &Client{
		baseURL: baseURL,
		caller:  caller,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return fmt.Errorf("client: encoding request: %w", err)
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return fmt.Errorf("client: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Caller", c.caller)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("client: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var eb errorBody
		if json.NewDecoder(resp.Body).Decode(&eb) == nil && eb.Error != "" {
			return fmt.Errorf("client: %s %s: %s (status %d)", method, path, eb.Error, resp.StatusCode)
		}
		return fmt.Errorf("client: %s %s: status %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("client: decoding response: %w", err)
	}
	return nil
}

// CurrentRoot fetches the host's current root.
func (c *Client) CurrentRoot(ctx context.Context) (field.Element, error) {
	var out struct {
		Root field.Element `json:"root"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/root", nil, &out); err != nil {
		return field.Element{}, err
	}
	return out.Root, nil
}

// RootAccepted reports whether root is or ever was the host's current root.
func (c *Client) RootAccepted(ctx context.Context, root field.Element) (bool, error) {
	var out struct {
		Accepted bool `json:"accepted"`
	}
	path := "/v1/roots/accepted?root=" + root.Hex()
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return false, err
	}
	return out.Accepted, nil
}

// Admin fetches the host's admin identity.
func (c *Client) Admin(ctx context.Context) (registry.Identity, error) {
	var out struct {
		Admin string `json:"admin"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/admin", nil, &out); err != nil {
		return "", err
	}
	return registry.Identity(out.Admin), nil
}

// Initialize performs first-time registry initialization as this caller.
func (c *Client) Initialize(ctx context.Context, initialRoot field.Element) error {
	body := map[string]string{"initial_root": initialRoot.Hex()}
	return c.do(ctx, http.MethodPost, "/v1/init", body, nil)
}

// SetRoot rotates the host's current root as this caller.
func (c *Client) SetRoot(ctx context.Context, newRoot field.Element) error {
	body := map[string]string{"new_root": newRoot.Hex()}
	return c.do(ctx, http.MethodPost, "/v1/root", body, nil)
}

// Invoke submits a call to the host. Implements action.Transport.
func (c *Client) Invoke(ctx context.Context, call action.Call) (string, error) {
	body := map[string]any{
		"contract_address": call.ContractAddress,
		"entry_point":      call.EntryPoint,
		"calldata":         call.Calldata,
	}
	var out struct {
		TxID string `json:"tx_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/actions", body, &out); err != nil {
		return "", err
	}
	return out.TxID, nil
}
