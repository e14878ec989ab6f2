package health

import (
	"time"

	"github.com/yegors/agentdeck/internal/gateway"
	"github.com/yegors/agentdeck/internal/pipeline"
)

// Status classifies the outcome of one health probe
type Status string

const (
	StatusChecking Status = "checking"
	StatusOnline   Status = "online"
	StatusError    Status = "error"
	StatusTimeout  Status = "timeout"
	StatusOffline  Status = "offline"
)

// Well-known target keys. Secondary detail fetches only apply to the gateway
// and the pipeline.
const (
	TargetGateway    = "gateway"
	TargetPipeline   = "pipeline"
	TargetAutomation = "automation"
)

// Target is one statically configured external service to probe
type Target struct {
	Key       string // stable identifier (gateway, pipeline, automation)
	Name      string // display name
	HealthURL string // full health endpoint URL
}

// Result is the outcome of one probe against one target
type Result struct {
	Status    Status         `json:"status"`
	Message   string         `json:"message,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
	CheckedAt time.Time      `json:"checked_at"`
}

// Snapshot is the point-in-time view the dashboard renders. Results are
// replaced wholesale each cycle; detail fields keep their previous values
// when the owning service is not online.
type Snapshot struct {
	Results       map[string]Result
	Providers     []gateway.Provider
	Statistics    *gateway.Statistics
	Runs          []pipeline.Run
	LastRefreshed time.Time
}
