package monitor

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/agent-protocol/asearcher-monitor/pkg/asearcher"
)

// Renderer writes the console report of a monitoring run.
type Renderer struct {
	w io.Writer
}

// NewRenderer creates a renderer writing to w
func NewRenderer(w io.Writer) *Renderer {
	return &Renderer{w: w}
}

func (r *Renderer) printf(format string, args ...any) {
	fmt.Fprintf(r.w, format, args...)
}

// Banner prints the run header
func (r *Renderer) Banner() {
	r.printf("🧪 ASearcher agent service monitor\n")
	r.printf("%s\n", strings.Repeat("=", 40))
}

// Phase prints the heading of one of the numbered phases
func (r *Renderer) Phase(number int, title string) {
	if number > 1 {
		r.printf("\n")
	}
	r.printf("%d. %s...\n", number, title)
}

// Health prints a health payload. Optional fields are printed only when set.
func (r *Renderer) Health(status *asearcher.HealthStatus) {
	r.printf("   ✅ Service status: %s\n", status.Status)
	r.printf("   🤖 LLM status: %s\n", status.LLMStatus)
	r.optional("   🔧 LLM type: %s\n", status.LLMType)
	r.optional("   📋 Model name: %s\n", status.ModelName)
	r.optional("   📁 Model path: %s\n", status.ModelPath)
	r.optional("   🌐 Base URL: %s\n", status.OpenAIBaseURL)
	r.optional("   🔑 API key status: %s\n", status.APIKeyStatus)
}

func (r *Renderer) optional(format string, value *string) {
	if value == nil || *value == "" {
		return
	}
	r.printf(format, *value)
}

// HealthFailure prints why the health probe failed
func (r *Renderer) HealthFailure(err error) {
	var pe *asearcher.ProtocolError
	if errors.As(err, &pe) && pe.Field == "" && pe.Err == nil {
		r.printf("   ❌ Health check failed: %d\n", pe.StatusCode)
		return
	}
	r.printf("   ❌ Cannot connect to service: %v\n", err)
}

// QueryStarted announces a submitted query
func (r *Renderer) QueryStarted(handle *asearcher.QueryHandle) {
	r.printf("   ✅ Query started: %s...\n", handle.Short())
}

// SubmitFailure prints why the submission failed
func (r *Renderer) SubmitFailure(err error) {
	var pe *asearcher.ProtocolError
	switch {
	case errors.As(err, &pe) && pe.Field != "":
		r.printf("   ❌ Failed to start query: response has no %s\n", pe.Field)
	case errors.As(err, &pe) && pe.Err == nil:
		r.printf("   ❌ Failed to start query: %d\n", pe.StatusCode)
	default:
		r.printf("   ❌ Query submission error: %v\n", err)
	}
}

// Step prints the step at the zero-based index
func (r *Renderer) Step(index int, step asearcher.Step) {
	r.printf("   📝 Step %d: %s - %s\n", index+1, step.StepType, step.Title)

	if IsSearchResultsStep(step) {
		if results, ok := ParseSearchResults(step.Content); ok {
			r.searchResults(results)
			return
		}
	}

	r.printf("      Content: %s\n", step.Content)
}

func (r *Renderer) searchResults(results *SearchResults) {
	r.printf("      Content: %s\n", results.Header)
	for _, entry := range results.Entries {
		if !entry.HasLink {
			r.printf("        %s\n", entry.Text)
			continue
		}
		r.printf("        🔗 %s\n", entry.Label)
		if entry.URL != "" {
			r.printf("           URL: %s\n", entry.URL)
		}
	}
}

// PollFailure prints why fetching the query state failed
func (r *Renderer) PollFailure(err error) {
	var pe *asearcher.ProtocolError
	if errors.As(err, &pe) && pe.Field == "" && pe.Err == nil {
		r.printf("   ❌ Failed to get status: %d\n", pe.StatusCode)
		return
	}
	r.printf("   ❌ Polling error: %v\n", err)
}

// Summary prints the final report of a query that reached a terminal status
func (r *Renderer) Summary(snapshot *asearcher.QuerySnapshot, elapsed time.Duration) {
	r.printf("\n🏁 Query finished, status: %s\n", snapshot.Status)

	if snapshot.PredAnswer != "" {
		r.printf("\n📋 Final answer:\n")
		r.printf("%s\n", snapshot.PredAnswer)
	}

	if snapshot.ErrorMessage != "" {
		r.printf("\n❌ Error message: %s\n", snapshot.ErrorMessage)
	}

	r.printf("\n📊 Statistics:\n")
	r.printf("   Total steps: %d\n", len(snapshot.Steps))
	r.printf("   Elapsed: %.2fs\n", elapsed.Seconds())
	r.printf("   Step types:\n")
	for _, row := range CountStepTypes(snapshot.Steps) {
		r.printf("     - %s: %d\n", DisplayName(row.StepType), row.Count)
	}
}

// Timeout prints the timed out outcome
func (r *Renderer) Timeout(timeout time.Duration) {
	r.printf("\n⏰ Query timed out (%.0fs)\n", timeout.Seconds())
}

// Interrupted prints the user interrupt message
func (r *Renderer) Interrupted() {
	r.printf("\n🛑 Interrupted by user\n")
}

// Failure prints an error that ended the run outside of the numbered phases
func (r *Renderer) Failure(err error) {
	r.printf("\n❌ Run failed: %v\n", err)
}
