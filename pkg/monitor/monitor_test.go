package monitor

import (
	"bytes"
	"context"
	"errors"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/agent-protocol/asearcher-monitor/internal/mockserver"
	"github.com/agent-protocol/asearcher-monitor/pkg/asearcher"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// fakeService records the calls a run makes.
type fakeService struct {
	scriptedFetcher
	health      *asearcher.HealthStatus
	healthErr   error
	handle      *asearcher.QueryHandle
	submitErr   error
	submitCalls int
	submitted   *asearcher.QueryRequest
}

func (s *fakeService) Health(ctx context.Context) (*asearcher.HealthStatus, error) {
	return s.health, s.healthErr
}

func (s *fakeService) SubmitQuery(ctx context.Context, req *asearcher.QueryRequest) (*asearcher.QueryHandle, error) {
	s.submitCalls++
	s.submitted = req
	return s.handle, s.submitErr
}

func TestMonitorRunAgainstMockService(t *testing.T) {
	scenario := mockserver.DefaultScenario()
	scenario.StepsPerPoll = 3
	srv := httptest.NewServer(mockserver.New(mockserver.Config{Scenario: scenario}).Handler())
	defer srv.Close()

	client, err := asearcher.NewClient(srv.URL, nil)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	defer client.Close()

	clock := newFakeClock()
	var buf bytes.Buffer
	m := New(client, &buf, DefaultConfig(), clock.options()...)

	outcome, err := m.Run(context.Background(), asearcher.DefaultQueryRequest("How many moons does Mars have?"))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if outcome.State != OutcomeCompleted {
		t.Errorf("Expected completed, got %s", outcome.State)
	}
	// 7 steps at 3 per poll
	if outcome.Fetches != 3 {
		t.Errorf("Expected 3 fetches, got %d", outcome.Fetches)
	}
	if outcome.Elapsed.Seconds() != 4 {
		t.Errorf("Expected 4s elapsed, got %v", outcome.Elapsed)
	}

	out := buf.String()
	for _, want := range []string{
		"🧪 ASearcher agent service monitor",
		"1. Health check...",
		"\n2. Submitting query...",
		"\n3. Monitoring query progress...",
		"Content: How many moons does Mars have?",
		"   Total steps: 7",
		"   Elapsed: 4.00s",
		"     - User question: 1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, out)
		}
	}
	for i := 1; i <= 7; i++ {
		header := "📝 Step " + string(rune('0'+i)) + ":"
		if n := strings.Count(out, header); n != 1 {
			t.Errorf("Expected %q exactly once, found %d times", header, n)
		}
	}
}

func TestMonitorRunHealthFailure(t *testing.T) {
	service := &fakeService{healthErr: &asearcher.ProtocolError{Op: "health", StatusCode: 503}}
	var buf bytes.Buffer

	outcome, err := New(service, &buf, DefaultConfig(), newFakeClock().options()...).Run(context.Background(), asearcher.DefaultQueryRequest("q"))
	if err == nil {
		t.Fatal("Expected error")
	}
	if outcome != nil {
		t.Errorf("Expected no outcome, got %+v", outcome)
	}
	if service.submitCalls != 0 || service.calls != 0 {
		t.Errorf("Expected no submission or polling, got %d submits and %d polls", service.submitCalls, service.calls)
	}
	if !strings.Contains(buf.String(), "❌ Health check failed: 503") {
		t.Errorf("Unexpected output:\n%s", buf.String())
	}
}

func TestMonitorRunSubmitFailure(t *testing.T) {
	service := &fakeService{
		health:    &asearcher.HealthStatus{Status: "healthy", LLMStatus: "ready"},
		submitErr: &asearcher.ProtocolError{Op: "submit query", StatusCode: 200, Field: "query_id"},
	}
	var buf bytes.Buffer

	_, err := New(service, &buf, DefaultConfig(), newFakeClock().options()...).Run(context.Background(), asearcher.DefaultQueryRequest("q"))
	if !asearcher.IsProtocol(err) {
		t.Fatalf("Expected protocol error, got %v", err)
	}
	if service.submitCalls != 1 {
		t.Errorf("Expected exactly one submission, got %d", service.submitCalls)
	}
	if service.calls != 0 {
		t.Errorf("Expected no polling, got %d", service.calls)
	}
	if !strings.Contains(buf.String(), "response has no query_id") {
		t.Errorf("Unexpected output:\n%s", buf.String())
	}
}

func TestMonitorRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	service := &fakeService{healthErr: context.Canceled}
	var buf bytes.Buffer

	_, err := New(service, &buf, DefaultConfig()).Run(ctx, asearcher.DefaultQueryRequest("q"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if strings.Contains(buf.String(), "❌") {
		t.Errorf("Expected no failure output on cancellation, got:\n%s", buf.String())
	}
}

func TestMonitorWatch(t *testing.T) {
	service := &fakeService{scriptedFetcher: scriptedFetcher{snapshots: []*asearcher.QuerySnapshot{
		{Status: "running", Steps: steps(1)},
		{Status: "completed", Steps: steps(2), PredAnswer: "42"},
	}}}
	var buf bytes.Buffer

	outcome, err := New(service, &buf, DefaultConfig(), newFakeClock().options()...).Watch(context.Background(), "0123456789abcdef")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if outcome.State != OutcomeCompleted || outcome.QueryID != "0123456789abcdef" {
		t.Errorf("Unexpected outcome %+v", outcome)
	}
	if service.submitCalls != 0 {
		t.Errorf("Expected watch not to submit, got %d", service.submitCalls)
	}
	if !strings.HasPrefix(buf.String(), "👀 Watching query 01234567...") {
		t.Errorf("Unexpected output:\n%s", buf.String())
	}
}
