// Package monitor drives a query through the ASearcher service and reports
// its progress on the console: health probe, submission, then polling.
package monitor

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/agent-protocol/asearcher-monitor/pkg/asearcher"
)

// HealthChecker probes service readiness.
type HealthChecker interface {
	Health(ctx context.Context) (*asearcher.HealthStatus, error)
}

// QuerySubmitter starts a query.
type QuerySubmitter interface {
	SubmitQuery(ctx context.Context, req *asearcher.QueryRequest) (*asearcher.QueryHandle, error)
}

// Service is the full set of calls a monitoring run makes. *asearcher.Client implements it.
type Service interface {
	HealthChecker
	QuerySubmitter
	SnapshotFetcher
}

// Probe runs the health check and renders its result. Any error is final.
func Probe(ctx context.Context, checker HealthChecker, renderer *Renderer) (*asearcher.HealthStatus, error) {
	status, err := checker.Health(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		renderer.HealthFailure(err)
		return nil, fmt.Errorf("health check failed: %w", err)
	}

	renderer.Health(status)
	return status, nil
}

// Submit sends req once and renders the returned handle. Any error is final.
func Submit(ctx context.Context, submitter QuerySubmitter, renderer *Renderer, req *asearcher.QueryRequest) (*asearcher.QueryHandle, error) {
	handle, err := submitter.SubmitQuery(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		renderer.SubmitFailure(err)
		return nil, fmt.Errorf("failed to start query: %w", err)
	}

	renderer.QueryStarted(handle)
	return handle, nil
}

// Config controls the polling phase.
type Config struct {
	PollInterval time.Duration
	PollTimeout  time.Duration
}

// DefaultConfig returns the fixed 2s interval and 1800s ceiling
func DefaultConfig() Config {
	return Config{
		PollInterval: DefaultPollInterval,
		PollTimeout:  DefaultPollTimeout,
	}
}

// Monitor runs the three phases against one service.
type Monitor struct {
	service  Service
	renderer *Renderer
	config   Config
	opts     []Option
	options  options
}

// New creates a monitor that reports to out
func New(service Service, out io.Writer, config Config, opts ...Option) *Monitor {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	return &Monitor{
		service:  service,
		renderer: NewRenderer(out),
		config:   config,
		opts:     opts,
		options:  o,
	}
}

// Renderer returns the renderer the monitor writes with
func (m *Monitor) Renderer() *Renderer {
	return m.renderer
}

// Run checks health, submits req and polls the query to the end. The
// returned error is the one that aborted the run; remote failures and
// timeouts are reported through the Outcome instead (see Outcome.Err).
func (m *Monitor) Run(ctx context.Context, req *asearcher.QueryRequest) (*Outcome, error) {
	m.renderer.Banner()

	m.renderer.Phase(1, "Health check")
	status, err := Probe(ctx, m.service, m.renderer)
	if err != nil {
		return nil, err
	}
	m.options.logger.Debug().Str("status", status.Status).Str("llm_status", status.LLMStatus).Msg("service healthy")

	m.renderer.Phase(2, "Submitting query")
	handle, err := Submit(ctx, m.service, m.renderer, req)
	if err != nil {
		return nil, err
	}
	m.options.logger.Info().Str("query_id", handle.QueryID).Msg("query submitted")

	m.renderer.Phase(3, "Monitoring query progress")
	return m.poller().Run(ctx, handle.QueryID)
}

// Watch polls an already submitted query
func (m *Monitor) Watch(ctx context.Context, queryID string) (*Outcome, error) {
	m.renderer.printf("👀 Watching query %s...\n", asearcher.QueryHandle{QueryID: queryID}.Short())
	return m.poller().Run(ctx, queryID)
}

func (m *Monitor) poller() *Poller {
	return NewPoller(m.service, m.renderer, m.config.PollInterval, m.config.PollTimeout, m.opts...)
}
