package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yegors/agentdeck/pkg/logger"
)

func TestProbeOnline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok","version":"1.4.2","providers_available":2,"providers_total":3}`))
	}))
	defer server.Close()

	p := NewProber(time.Second, logger.NewNop())
	result := p.Probe(context.Background(), Target{Key: TargetGateway, HealthURL: server.URL + "/health"})

	assert.Equal(t, StatusOnline, result.Status)
	assert.Equal(t, "1.4.2", result.Payload["version"])
	assert.False(t, result.CheckedAt.IsZero())
}

func TestProbeNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	p := NewProber(time.Second, logger.NewNop())
	result := p.Probe(context.Background(), Target{Key: TargetPipeline, HealthURL: server.URL})

	assert.Equal(t, StatusError, result.Status)
	assert.Contains(t, result.Message, "500")
}

func TestProbeTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release // never responds within the probe window
	}))
	defer server.Close()
	defer close(release)

	p := NewProber(50*time.Millisecond, logger.NewNop())

	start := time.Now()
	result := p.Probe(context.Background(), Target{Key: TargetAutomation, HealthURL: server.URL})

	assert.Equal(t, StatusTimeout, result.Status)
	assert.Less(t, time.Since(start), 5*time.Second, "probe must not hang")
}

func TestProbeOffline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	p := NewProber(time.Second, logger.NewNop())
	result := p.Probe(context.Background(), Target{Key: TargetGateway, HealthURL: server.URL})

	assert.Equal(t, StatusOffline, result.Status)
	assert.NotEmpty(t, result.Message)
}

func TestProbeInvalidPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>not json</html>"))
	}))
	defer server.Close()

	p := NewProber(time.Second, logger.NewNop())
	result := p.Probe(context.Background(), Target{Key: TargetGateway, HealthURL: server.URL})

	require.Equal(t, StatusError, result.Status)
	assert.Contains(t, result.Message, "invalid health payload")
}
