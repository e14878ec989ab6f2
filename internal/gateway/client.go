package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/yegors/agentdeck/pkg/logger"
)

// Client handles HTTP requests to the conversation gateway
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logger.Logger
}

// NewClient creates a new gateway API client
func NewClient(baseURL string, timeout time.Duration, log *logger.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: log.Named("gateway-client"),
	}
}

// FetchProviders fetches the list of conversation-agent providers
func (c *Client) FetchProviders(ctx context.Context) ([]Provider, error) {
	var result providersResponse
	if err := c.getJSON(ctx, c.baseURL+"/api/v1/providers", &result); err != nil {
		return nil, err
	}
	return result.Providers, nil
}

// FetchStatistics fetches the gateway's cumulative usage statistics
func (c *Client) FetchStatistics(ctx context.Context) (*Statistics, error) {
	var result Statistics
	if err := c.getJSON(ctx, c.baseURL+"/api/v1/statistics", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) getJSON(ctx context.Context, url string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
