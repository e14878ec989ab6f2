package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/yegors/agentdeck/pkg/logger"
)

// Run is one podcast pipeline job run
type Run struct {
	ID                string `json:"id"`
	Status            string `json:"status"`
	CreatedAt         string `json:"created_at"`
	ArticlesCollected int    `json:"articles_collected"`
}

// Client handles HTTP requests to the podcast pipeline service
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logger.Logger
}

// NewClient creates a new pipeline API client
func NewClient(baseURL string, timeout time.Duration, log *logger.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: log.Named("pipeline-client"),
	}
}

// FetchRecentRuns fetches the most recent job runs, newest first
func (c *Client) FetchRecentRuns(ctx context.Context, limit int) ([]Run, error) {
	url := fmt.Sprintf("%s/api/runs?limit=%d", c.baseURL, limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var runs []Run
	if err := json.NewDecoder(resp.Body).Decode(&runs); err != nil {
		return nil, fmt.Errorf("failed to decode runs: %w", err)
	}
	return runs, nil
}
