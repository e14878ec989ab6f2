package health

import (
	"context"
	"sync"
	"time"

	"github.com/yegors/agentdeck/internal/gateway"
	"github.com/yegors/agentdeck/internal/pipeline"
	"github.com/yegors/agentdeck/pkg/logger"
)

// recentRunsLimit bounds the pipeline run listing in the dashboard
const recentRunsLimit = 5

// Service maintains a best-effort health snapshot of a fixed list of
// external services and opportunistically pulls richer detail from services
// found healthy.
//
// Refresh cycles are strictly serialized: the poll loop runs each cycle to
// completion before waiting for the next trigger, so cycles never overlap
// even when one runs longer than the interval.
type Service struct {
	targets        []Target
	prober         *Prober
	gatewayClient  *gateway.Client
	pipelineClient *pipeline.Client
	interval       time.Duration
	logger         *logger.Logger

	mu       sync.RWMutex
	snapshot Snapshot
	started  bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	kick    chan struct{}
	updates chan struct{}
}

// NewService creates a health polling service. The initial snapshot reports
// every target as checking until the first cycle completes.
func NewService(
	targets []Target,
	prober *Prober,
	gatewayClient *gateway.Client,
	pipelineClient *pipeline.Client,
	interval time.Duration,
	log *logger.Logger,
) *Service {
	results := make(map[string]Result, len(targets))
	for _, t := range targets {
		results[t.Key] = Result{Status: StatusChecking}
	}

	return &Service{
		targets:        targets,
		prober:         prober,
		gatewayClient:  gatewayClient,
		pipelineClient: pipelineClient,
		interval:       interval,
		logger:         log.Named("health-service"),
		snapshot:       Snapshot{Results: results},
		kick:           make(chan struct{}, 1),
		updates:        make(chan struct{}, 1),
	}
}

// Start begins polling: one immediate cycle, then one per interval until
// Stop. Safe to call again after Stop; the dashboard view starts and stops
// the service as it mounts and unmounts.
func (s *Service) Start() error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.started = true
	s.mu.Unlock()

	s.logger.Info("Starting health polling",
		logger.Int("targets", len(s.targets)),
		logger.Duration("interval", s.interval))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.pollLoop()
	}()

	return nil
}

// Stop cancels the poll loop and waits for the in-flight cycle to finish
func (s *Service) Stop() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.cancel()
	s.started = false
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("Health polling stopped")
	return nil
}

// RefreshNow requests one extra cycle outside the schedule. Coalesced with
// any already-pending request.
func (s *Service) RefreshNow() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// Updates signals that the snapshot changed
func (s *Service) Updates() <-chan struct{} {
	return s.updates
}

func (s *Service) notify() {
	select {
	case s.updates <- struct{}{}:
	default:
	}
}

func (s *Service) pollLoop() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.refreshAll(s.ctx)

		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
		case <-s.kick:
		}
	}
}

// refreshAll probes every target sequentially, swaps the full result map in
// one step, then attempts the secondary detail fetches for healthy services.
// The last-refreshed timestamp advances regardless of probe outcomes.
func (s *Service) refreshAll(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	results := make(map[string]Result, len(s.targets))
	for _, target := range s.targets {
		results[target.Key] = s.prober.Probe(ctx, target)
	}

	s.mu.Lock()
	s.snapshot.Results = results
	s.snapshot.LastRefreshed = time.Now()
	s.mu.Unlock()
	s.notify()

	online := 0
	for _, r := range results {
		if r.Status == StatusOnline {
			online++
		}
	}
	s.logger.Debug("Health cycle complete",
		logger.Int("targets", len(s.targets)),
		logger.Int("online", online))

	s.fetchDetails(ctx, results)
}

// fetchDetails pulls provider/statistics data from a healthy gateway and the
// recent run list from a healthy pipeline. Failures here are logged only and
// never degrade the primary status.
func (s *Service) fetchDetails(ctx context.Context, results map[string]Result) {
	if r, ok := results[TargetGateway]; ok && r.Status == StatusOnline {
		providers, err := s.gatewayClient.FetchProviders(ctx)
		if err != nil {
			s.logger.Warn("Failed to fetch provider details", logger.Error(err))
		} else {
			s.mu.Lock()
			s.snapshot.Providers = providers
			s.mu.Unlock()
		}

		stats, err := s.gatewayClient.FetchStatistics(ctx)
		if err != nil {
			s.logger.Warn("Failed to fetch gateway statistics", logger.Error(err))
		} else {
			s.mu.Lock()
			s.snapshot.Statistics = stats
			s.mu.Unlock()
		}
	}

	if r, ok := results[TargetPipeline]; ok && r.Status == StatusOnline {
		runs, err := s.pipelineClient.FetchRecentRuns(ctx, recentRunsLimit)
		if err != nil {
			s.logger.Warn("Failed to fetch recent pipeline runs", logger.Error(err))
		} else {
			s.mu.Lock()
			s.snapshot.Runs = runs
			s.mu.Unlock()
		}
	}

	s.notify()
}

// Snapshot returns a copy of the current dashboard snapshot
func (s *Service) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make(map[string]Result, len(s.snapshot.Results))
	for k, v := range s.snapshot.Results {
		results[k] = v
	}

	out := Snapshot{
		Results:       results,
		LastRefreshed: s.snapshot.LastRefreshed,
		Statistics:    s.snapshot.Statistics,
	}
	out.Providers = append(out.Providers, s.snapshot.Providers...)
	out.Runs = append(out.Runs, s.snapshot.Runs...)
	return out
}

// Targets returns the configured target list in display order
func (s *Service) Targets() []Target {
	out := make([]Target, len(s.targets))
	copy(out, s.targets)
	return out
}
