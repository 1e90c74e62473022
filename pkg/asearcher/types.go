// Package asearcher provides the wire types and HTTP client for the ASearcher agent service.
package asearcher

import "unicode/utf8"

// Default values for a query submitted by the monitor.
const (
	DefaultMaxTurns         = 32
	DefaultSearchClientType = "async-web-search-access"
	DefaultUseJina          = true
	DefaultTemperature      = 0.6
	DefaultMaxTokensPerCall = 4096
	DefaultAgentType        = "asearcher"
	DefaultPromptType       = "ASearcher"
)

// HealthStatus is the payload returned by GET /health.
// Only Status and LLMStatus are always present; the rest depend on how the
// service was configured.
type HealthStatus struct {
	Status        string  `json:"status"`
	LLMStatus     string  `json:"llm_status"`
	LLMType       *string `json:"llm_type,omitempty"`
	ModelName     *string `json:"model_name,omitempty"`
	ModelPath     *string `json:"model_path,omitempty"`
	OpenAIBaseURL *string `json:"openai_base_url,omitempty"`
	APIKeyStatus  *string `json:"api_key_status,omitempty"`
}

// QueryRequest is the job descriptor sent to POST /query.
type QueryRequest struct {
	Query            string  `json:"query" yaml:"query"`
	MaxTurns         int     `json:"max_turns" yaml:"max_turns"`
	SearchClientType string  `json:"search_client_type" yaml:"search_client_type"`
	UseJina          bool    `json:"use_jina" yaml:"use_jina"`
	Temperature      float64 `json:"temperature" yaml:"temperature"`
	MaxTokensPerCall int     `json:"max_tokens_per_call" yaml:"max_tokens_per_call"`
	AgentType        string  `json:"agent_type" yaml:"agent_type"`
	PromptType       string  `json:"prompt_type" yaml:"prompt_type"`
}

// DefaultQueryRequest returns a descriptor for query with the default limits.
func DefaultQueryRequest(query string) *QueryRequest {
	return &QueryRequest{
		Query:            query,
		MaxTurns:         DefaultMaxTurns,
		SearchClientType: DefaultSearchClientType,
		UseJina:          DefaultUseJina,
		Temperature:      DefaultTemperature,
		MaxTokensPerCall: DefaultMaxTokensPerCall,
		AgentType:        DefaultAgentType,
		PromptType:       DefaultPromptType,
	}
}

// QueryHandle identifies a submitted query.
type QueryHandle struct {
	QueryID string
}

// Short returns the first 8 characters of the query id.
func (h QueryHandle) Short() string {
	if utf8.RuneCountInString(h.QueryID) <= 8 {
		return h.QueryID
	}
	return string([]rune(h.QueryID)[:8])
}

// submitResponse is the body of a successful POST /query. QueryID is a
// pointer so that a missing field can be told apart from an empty one.
type submitResponse struct {
	QueryID *string `json:"query_id"`
}

// QueryStatus is the status reported for a query. The set is open: the
// service may report values the client has never seen.
type QueryStatus string

const (
	QueryStatusPending   QueryStatus = "pending"
	QueryStatusPolling   QueryStatus = "polling"
	QueryStatusRunning   QueryStatus = "running"
	QueryStatusCompleted QueryStatus = "completed"
	QueryStatusError     QueryStatus = "error"
	QueryStatusCancelled QueryStatus = "cancelled"
)

// Terminal reports whether the status ends monitoring.
func (s QueryStatus) Terminal() bool {
	switch s {
	case QueryStatusCompleted, QueryStatusError, QueryStatusCancelled:
		return true
	}
	return false
}

// StepType classifies a step. Values the client does not know are kept
// verbatim.
type StepType string

const (
	StepTypeQuestion        StepType = "question"
	StepTypeThinking        StepType = "thinking"
	StepTypeSearch          StepType = "search"
	StepTypeAccess          StepType = "access"
	StepTypeInfo            StepType = "info"
	StepTypeResponse        StepType = "response"
	StepTypeFinalResult     StepType = "final_result"
	StepTypeFinalResultDash StepType = "final-result"
	StepTypeError           StepType = "error"
	StepTypeCompleted       StepType = "completed"
	StepTypeCancelled       StepType = "cancelled"
	StepTypeUnknown         StepType = "unknown"
)

var knownStepTypes = map[StepType]struct{}{
	StepTypeQuestion:        {},
	StepTypeThinking:        {},
	StepTypeSearch:          {},
	StepTypeAccess:          {},
	StepTypeInfo:            {},
	StepTypeResponse:        {},
	StepTypeFinalResult:     {},
	StepTypeFinalResultDash: {},
	StepTypeError:           {},
	StepTypeCompleted:       {},
	StepTypeCancelled:       {},
}

// Known reports whether t is one of the step types the client understands.
func (t StepType) Known() bool {
	_, ok := knownStepTypes[t]
	return ok
}

// Step is one entry in a query's execution trace.
type Step struct {
	StepType StepType `json:"step_type"`
	Title    string   `json:"title"`
	Content  string   `json:"content"`
}

// QuerySnapshot is the full state of a query as returned by GET /query/{id}.
// Steps always holds the complete history, never a delta.
type QuerySnapshot struct {
	Status       QueryStatus `json:"status"`
	Steps        []Step      `json:"steps"`
	PredAnswer   string      `json:"pred_answer,omitempty"`
	ErrorMessage string      `json:"error_message,omitempty"`
}
