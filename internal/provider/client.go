// Package provider implements the HTTP client for the third-party voice-AI
// calling platform. The rest of the application talks to the provider only
// through this client.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"dialflow_backend/platform/config"
	"dialflow_backend/platform/logger"
)

// Client talks to the calling provider's REST API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     *logger.Logger
}

// NewClient creates a provider client from configuration.
func NewClient(cfg config.ProviderConfig, log *logger.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.GetProviderBaseURL(), "/"),
		apiKey:  cfg.GetProviderAPIKey(),
		http:    &http.Client{Timeout: 15 * time.Second},
		log:     log,
	}
}

// CreateCall asks the provider to place an outbound call with the given
// assistant. Metadata is echoed back on webhooks and call lookups.
func (c *Client) CreateCall(ctx context.Context, assistantProviderID, phoneNumber string, metadata map[string]any) (*Call, error) {
	payload := createCallRequest{
		AssistantID: assistantProviderID,
		Customer:    Customer{Number: phoneNumber},
		Metadata:    metadata,
	}

	var call Call
	if err := c.do(ctx, http.MethodPost, "/call", payload, &call); err != nil {
		return nil, fmt.Errorf("create call: %w", err)
	}

	c.log.Debug("provider call created", "providerCallId", call.ID, "assistantId", assistantProviderID)
	return &call, nil
}

// GetCall fetches the current state of a provider call.
func (c *Client) GetCall(ctx context.Context, providerCallID string) (*Call, error) {
	var call Call
	if err := c.do(ctx, http.MethodGet, "/call/"+providerCallID, nil, &call); err != nil {
		return nil, fmt.Errorf("get call %s: %w", providerCallID, err)
	}
	return &call, nil
}

// GetAssistant fetches a provider assistant, used to verify that a locally
// cached assistant still exists on the provider side.
func (c *Client) GetAssistant(ctx context.Context, providerAssistantID string) (*Assistant, error) {
	var assistant Assistant
	if err := c.do(ctx, http.MethodGet, "/assistant/"+providerAssistantID, nil, &assistant); err != nil {
		return nil, fmt.Errorf("get assistant %s: %w", providerAssistantID, err)
	}
	return &assistant, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("provider request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("provider returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
