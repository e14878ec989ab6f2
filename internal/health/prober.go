package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/yegors/agentdeck/pkg/logger"
)

// Prober issues bounded-time health checks. The timeout is enforced per
// probe through a request context, so a hanging endpoint resolves as
// StatusTimeout instead of blocking the cycle forever.
type Prober struct {
	httpClient *http.Client
	timeout    time.Duration
	logger     *logger.Logger
}

// NewProber creates a prober with the given per-probe timeout
func NewProber(timeout time.Duration, log *logger.Logger) *Prober {
	return &Prober{
		httpClient: &http.Client{},
		timeout:    timeout,
		logger:     log.Named("health-prober"),
	}
}

// Probe checks one target and classifies the outcome:
// 2xx with a JSON body -> online, non-2xx -> error, timeout -> timeout,
// any other transport failure -> offline.
func (p *Prober) Probe(ctx context.Context, target Target) Result {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	now := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.HealthURL, nil)
	if err != nil {
		return Result{Status: StatusOffline, Message: err.Error(), CheckedAt: now}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			p.logger.Debug("Health probe timed out",
				logger.String("target", target.Key),
				logger.Duration("timeout", p.timeout))
			return Result{
				Status:    StatusTimeout,
				Message:   fmt.Sprintf("no response within %s", p.timeout),
				CheckedAt: now,
			}
		}
		p.logger.Debug("Health probe transport failure",
			logger.String("target", target.Key),
			logger.Error(err))
		return Result{Status: StatusOffline, Message: err.Error(), CheckedAt: now}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{
			Status:    StatusError,
			Message:   fmt.Sprintf("unexpected status code: %d", resp.StatusCode),
			CheckedAt: now,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{Status: StatusOffline, Message: err.Error(), CheckedAt: now}
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return Result{
			Status:    StatusError,
			Message:   fmt.Sprintf("invalid health payload: %v", err),
			CheckedAt: now,
		}
	}

	return Result{Status: StatusOnline, Payload: payload, CheckedAt: now}
}
