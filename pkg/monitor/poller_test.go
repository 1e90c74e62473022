package monitor

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/agent-protocol/asearcher-monitor/pkg/asearcher"
)

// fakeClock advances only when the poller sleeps.
type fakeClock struct {
	now    time.Time
	sleeps int
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.sleeps++
	c.now = c.now.Add(d)
	return nil
}

func (c *fakeClock) options() []Option {
	return []Option{WithClock(c.Now), WithSleep(c.Sleep)}
}

// scriptedFetcher returns its snapshots in order and repeats the last one.
type scriptedFetcher struct {
	snapshots []*asearcher.QuerySnapshot
	err       error
	errAt     int
	calls     int
	ids       []string
}

func (f *scriptedFetcher) GetQuery(ctx context.Context, queryID string) (*asearcher.QuerySnapshot, error) {
	f.calls++
	f.ids = append(f.ids, queryID)
	if f.err != nil && f.calls == f.errAt {
		return nil, f.err
	}
	i := f.calls - 1
	if i >= len(f.snapshots) {
		i = len(f.snapshots) - 1
	}
	return f.snapshots[i], nil
}

func steps(n int) []asearcher.Step {
	out := make([]asearcher.Step, n)
	for i := range out {
		out[i] = asearcher.Step{StepType: "thinking", Title: "step-" + string(rune('a'+i)), Content: "c"}
	}
	return out
}

func TestPollerRendersEachStepOnceInOrder(t *testing.T) {
	fetcher := &scriptedFetcher{snapshots: []*asearcher.QuerySnapshot{
		{Status: "polling", Steps: steps(1)},
		{Status: "polling", Steps: steps(1)},
		{Status: "polling", Steps: steps(3)},
		{Status: "running", Steps: steps(3)},
		{Status: "completed", Steps: steps(5)},
	}}
	clock := newFakeClock()
	var buf bytes.Buffer

	outcome, err := NewPoller(fetcher, NewRenderer(&buf), 0, 0, clock.options()...).Run(context.Background(), "q1")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if outcome.State != OutcomeCompleted {
		t.Errorf("Expected completed, got %s", outcome.State)
	}

	out := buf.String()
	last := -1
	for i := 1; i <= 5; i++ {
		header := "📝 Step " + string(rune('0'+i)) + ": thinking - step-" + string(rune('a'+i-1))
		if n := strings.Count(out, header); n != 1 {
			t.Errorf("Expected %q exactly once, found %d times", header, n)
		}
		pos := strings.Index(out, header)
		if pos < last {
			t.Errorf("Step %d rendered out of order", i)
		}
		last = pos
	}
}

func TestPollerStopsAtTerminalStatus(t *testing.T) {
	for _, status := range []asearcher.QueryStatus{"completed", "error", "cancelled"} {
		t.Run(string(status), func(t *testing.T) {
			fetcher := &scriptedFetcher{snapshots: []*asearcher.QuerySnapshot{
				{Status: "polling"},
				{Status: "polling"},
				{Status: status, ErrorMessage: "boom"},
				{Status: "polling"},
			}}
			clock := newFakeClock()
			var buf bytes.Buffer

			outcome, err := NewPoller(fetcher, NewRenderer(&buf), 2*time.Second, time.Hour, clock.options()...).Run(context.Background(), "q1")
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if fetcher.calls != 3 {
				t.Errorf("Expected exactly 3 fetches, got %d", fetcher.calls)
			}
			if clock.sleeps != 2 {
				t.Errorf("Expected 2 sleeps, got %d", clock.sleeps)
			}
			if outcome.Fetches != 3 {
				t.Errorf("Expected outcome to record 3 fetches, got %d", outcome.Fetches)
			}
			if string(outcome.State) != string(status) {
				t.Errorf("Expected state %s, got %s", status, outcome.State)
			}
			if outcome.Elapsed != 4*time.Second {
				t.Errorf("Expected elapsed 4s, got %v", outcome.Elapsed)
			}
		})
	}
}

func TestPollerFetchFailureAbortsWithoutSleep(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client, err := asearcher.NewClient(server.URL, nil)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	defer client.Close()

	clock := newFakeClock()
	var buf bytes.Buffer

	outcome, err := NewPoller(client, NewRenderer(&buf), 0, 0, clock.options()...).Run(context.Background(), "abc123")
	if outcome != nil {
		t.Errorf("Expected no outcome, got %+v", outcome)
	}
	var pe *asearcher.ProtocolError
	if !errors.As(err, &pe) || pe.StatusCode != http.StatusInternalServerError {
		t.Fatalf("Expected ProtocolError with status 500, got %v", err)
	}
	if clock.sleeps != 0 {
		t.Errorf("Expected no sleep after a failed fetch, got %d", clock.sleeps)
	}
	if buf.String() != "   ❌ Failed to get status: 500\n" {
		t.Errorf("Unexpected output %q", buf.String())
	}
}

func TestPollerFailureAfterProgress(t *testing.T) {
	fetcher := &scriptedFetcher{
		snapshots: []*asearcher.QuerySnapshot{{Status: "polling", Steps: steps(2)}},
		err:       &asearcher.TransportError{Op: "GET", URL: "http://x/query/q1", Err: errors.New("connection reset")},
		errAt:     2,
	}
	clock := newFakeClock()
	var buf bytes.Buffer

	_, err := NewPoller(fetcher, NewRenderer(&buf), 0, 0, clock.options()...).Run(context.Background(), "q1")
	if !asearcher.IsTransport(err) {
		t.Fatalf("Expected TransportError, got %v", err)
	}
	if fetcher.calls != 2 || clock.sleeps != 1 {
		t.Errorf("Expected 2 fetches and 1 sleep, got %d and %d", fetcher.calls, clock.sleeps)
	}
	if !strings.HasSuffix(buf.String(), "   ❌ Polling error: GET http://x/query/q1: connection reset\n") {
		t.Errorf("Unexpected output %q", buf.String())
	}
}

func TestPollerTimeout(t *testing.T) {
	fetcher := &scriptedFetcher{snapshots: []*asearcher.QuerySnapshot{{Status: "polling"}}}
	clock := newFakeClock()
	var buf bytes.Buffer
	timeout := 10 * time.Second

	outcome, err := NewPoller(fetcher, NewRenderer(&buf), 2*time.Second, timeout, clock.options()...).Run(context.Background(), "q1")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if outcome.State != OutcomeTimedOut {
		t.Fatalf("Expected timed out, got %s", outcome.State)
	}
	if outcome.Elapsed < timeout {
		t.Errorf("Timed out before the ceiling: %v < %v", outcome.Elapsed, timeout)
	}
	if fetcher.calls != 5 {
		t.Errorf("Expected 5 fetches at 0,2,4,6,8s, got %d", fetcher.calls)
	}

	var te *asearcher.TimeoutError
	if !errors.As(outcome.Err(), &te) || te.Timeout != timeout {
		t.Errorf("Expected TimeoutError, got %v", outcome.Err())
	}
	if !strings.HasSuffix(buf.String(), "\n⏰ Query timed out (10s)\n") {
		t.Errorf("Unexpected output %q", buf.String())
	}
}

func TestPollerContextCancelled(t *testing.T) {
	fetcher := &scriptedFetcher{snapshots: []*asearcher.QuerySnapshot{{Status: "polling"}}}
	ctx, cancel := context.WithCancel(context.Background())

	sleep := func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}

	var buf bytes.Buffer
	_, err := NewPoller(fetcher, NewRenderer(&buf), 0, 0, WithSleep(sleep)).Run(ctx, "q1")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if fetcher.calls != 1 {
		t.Errorf("Expected 1 fetch, got %d", fetcher.calls)
	}
}

func TestPollerScenario(t *testing.T) {
	first := asearcher.Step{StepType: "search", Title: "s1", Content: "Q"}
	second := asearcher.Step{StepType: "response", Title: "s2", Content: "answer 42"}
	fetcher := &scriptedFetcher{snapshots: []*asearcher.QuerySnapshot{
		{Status: "polling", Steps: []asearcher.Step{first}},
		{Status: "completed", Steps: []asearcher.Step{first, second}, PredAnswer: "42"},
	}}
	clock := newFakeClock()
	var buf bytes.Buffer

	outcome, err := NewPoller(fetcher, NewRenderer(&buf), 0, 0, clock.options()...).Run(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if outcome.Err() != nil {
		t.Errorf("Expected no outcome error, got %v", outcome.Err())
	}
	for _, id := range fetcher.ids {
		if id != "abc123" {
			t.Errorf("Expected polls for abc123, got %s", id)
		}
	}

	expected := "   📝 Step 1: search - s1\n" +
		"      Content: Q\n" +
		"   📝 Step 2: response - s2\n" +
		"      Content: answer 42\n" +
		"\n🏁 Query finished, status: completed\n" +
		"\n📋 Final answer:\n" +
		"42\n" +
		"\n📊 Statistics:\n" +
		"   Total steps: 2\n" +
		"   Elapsed: 2.00s\n" +
		"   Step types:\n" +
		"     - Search query: 1\n" +
		"     - Response generation: 1\n"
	if buf.String() != expected {
		t.Errorf("Expected:\n%s\nGot:\n%s", expected, buf.String())
	}
}

func TestOutcomeErr(t *testing.T) {
	errored := &Outcome{QueryID: "q1", State: OutcomeErrored, Snapshot: &asearcher.QuerySnapshot{ErrorMessage: "boom"}}
	var re *asearcher.RemoteReportedError
	if !errors.As(errored.Err(), &re) || re.Message != "boom" {
		t.Errorf("Expected RemoteReportedError, got %v", errored.Err())
	}

	if err := (&Outcome{State: OutcomeCancelled}).Err(); err != nil {
		t.Errorf("Expected no error for cancelled, got %v", err)
	}
}
