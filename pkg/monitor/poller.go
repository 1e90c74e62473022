package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/agent-protocol/asearcher-monitor/pkg/asearcher"
)

const (
	// DefaultPollInterval is the fixed delay between two polls.
	DefaultPollInterval = 2 * time.Second
	// DefaultPollTimeout is how long a query is monitored before giving up.
	DefaultPollTimeout = 1800 * time.Second
)

// OutcomeState is how monitoring of a query ended.
type OutcomeState string

const (
	OutcomeCompleted OutcomeState = "completed"
	OutcomeErrored   OutcomeState = "error"
	OutcomeCancelled OutcomeState = "cancelled"
	OutcomeTimedOut  OutcomeState = "timed_out"
)

// Outcome describes a finished monitoring loop.
type Outcome struct {
	QueryID string
	State   OutcomeState
	// Snapshot is the last snapshot fetched; nil if the loop timed out before the first fetch.
	Snapshot *asearcher.QuerySnapshot
	Elapsed  time.Duration
	Fetches  int
	Timeout  time.Duration
}

// Err returns the error matching a failed outcome, or nil for completed and
// cancelled queries.
func (o *Outcome) Err() error {
	switch o.State {
	case OutcomeErrored:
		msg := ""
		if o.Snapshot != nil {
			msg = o.Snapshot.ErrorMessage
		}
		return &asearcher.RemoteReportedError{QueryID: o.QueryID, Message: msg}
	case OutcomeTimedOut:
		return &asearcher.TimeoutError{QueryID: o.QueryID, Timeout: o.Timeout}
	}
	return nil
}

func outcomeState(status asearcher.QueryStatus) OutcomeState {
	switch status {
	case asearcher.QueryStatusError:
		return OutcomeErrored
	case asearcher.QueryStatusCancelled:
		return OutcomeCancelled
	default:
		return OutcomeCompleted
	}
}

// SnapshotFetcher fetches the current state of a query.
type SnapshotFetcher interface {
	GetQuery(ctx context.Context, queryID string) (*asearcher.QuerySnapshot, error)
}

// Option customizes a Poller or Monitor.
type Option func(*options)

type options struct {
	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
	logger zerolog.Logger
}

func defaultOptions() options {
	return options{
		now:    time.Now,
		sleep:  sleepContext,
		logger: zerolog.Nop(),
	}
}

// WithClock replaces the wall clock used to measure elapsed time.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithSleep replaces the function used to wait between polls.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(o *options) {
		o.sleep = sleep
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Poller repeatedly fetches a query and renders steps as they appear.
type Poller struct {
	fetcher  SnapshotFetcher
	renderer *Renderer
	interval time.Duration
	timeout  time.Duration
	opts     options
}

// NewPoller creates a poller. Zero interval or timeout select the defaults.
func NewPoller(fetcher SnapshotFetcher, renderer *Renderer, interval, timeout time.Duration, opts ...Option) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if timeout <= 0 {
		timeout = DefaultPollTimeout
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	return &Poller{
		fetcher:  fetcher,
		renderer: renderer,
		interval: interval,
		timeout:  timeout,
		opts:     o,
	}
}

// Run polls queryID until it reaches a terminal status or the timeout
// elapses. Steps are rendered once each, in order. A failed fetch ends the
// loop at once with that error; a cancelled context returns ctx.Err().
func (p *Poller) Run(ctx context.Context, queryID string) (*Outcome, error) {
	logger := p.opts.logger.With().Str("query_id", queryID).Logger()
	start := p.opts.now()
	outcome := &Outcome{QueryID: queryID, Timeout: p.timeout}
	rendered := 0

	for p.opts.now().Sub(start) < p.timeout {
		snapshot, err := p.fetcher.GetQuery(ctx, queryID)
		outcome.Fetches++
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			p.renderer.PollFailure(err)
			return nil, fmt.Errorf("failed to poll query %s: %w", queryID, err)
		}
		outcome.Snapshot = snapshot

		if len(snapshot.Steps) > rendered {
			for i := rendered; i < len(snapshot.Steps); i++ {
				p.renderer.Step(i, snapshot.Steps[i])
			}
			logger.Debug().Int("from", rendered).Int("to", len(snapshot.Steps)).Msg("rendered new steps")
			rendered = len(snapshot.Steps)
		}

		if snapshot.Status.Terminal() {
			outcome.State = outcomeState(snapshot.Status)
			outcome.Elapsed = p.opts.now().Sub(start)
			p.renderer.Summary(snapshot, outcome.Elapsed)
			logger.Info().Str("status", string(snapshot.Status)).Dur("elapsed", outcome.Elapsed).Int("steps", rendered).Msg("query finished")
			return outcome, nil
		}

		if err := p.opts.sleep(ctx, p.interval); err != nil {
			return nil, err
		}
	}

	outcome.State = OutcomeTimedOut
	outcome.Elapsed = p.opts.now().Sub(start)
	p.renderer.Timeout(p.timeout)
	logger.Warn().Dur("timeout", p.timeout).Int("fetches", outcome.Fetches).Msg("query timed out")
	return outcome, nil
}
