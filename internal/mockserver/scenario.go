package mockserver

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/agent-protocol/asearcher-monitor/pkg/asearcher"
)

// HealthInfo is what the mock reports on /health. Empty optional fields are
// left out of the payload.
type HealthInfo struct {
	Status        string `yaml:"status"`
	LLMStatus     string `yaml:"llm_status"`
	LLMType       string `yaml:"llm_type"`
	ModelName     string `yaml:"model_name"`
	ModelPath     string `yaml:"model_path"`
	OpenAIBaseURL string `yaml:"openai_base_url"`
	APIKeyStatus  string `yaml:"api_key_status"`
}

// ScenarioStep is one scripted step. Content may contain "{query}", which is
// replaced with the submitted query text.
type ScenarioStep struct {
	StepType string `yaml:"step_type"`
	Title    string `yaml:"title"`
	Content  string `yaml:"content"`
}

// Scenario scripts how every submitted query progresses.
type Scenario struct {
	Health HealthInfo     `yaml:"health"`
	Steps  []ScenarioStep `yaml:"steps"`
	// StepsPerPoll is how many new steps each GET /query/{id} reveals.
	StepsPerPoll int `yaml:"steps_per_poll"`
	// FinalStatus is reported once every step has been revealed.
	FinalStatus  string `yaml:"final_status"`
	PredAnswer   string `yaml:"pred_answer"`
	ErrorMessage string `yaml:"error_message"`
}

// DefaultScenario walks through every known step type, including a search
// results step in the service's native format.
func DefaultScenario() *Scenario {
	results := []string{
		"搜索结果: 找到 5 条相关网页",
		"1. HOPICO 专访 - 哔哩哔哩 (https://www.bilibili.com/video/BV1xx411c7mD)",
		"2. 每周必看 第 200 期 (https://www.bilibili.com/v/popular/weekly?num=200)",
		"3. 对方大同 个人空间 (https://space.bilibili.com/12345)",
		"4. 每周必看 往期回顾 (https://www.bilibili.com/v/popular/weekly)",
		"5. 相关讨论 (https://www.zhihu.com/question/1)",
		"以上结果按相关度排序，仅展示前 5 条。每条结果包含标题与链接，可继续访问网页以获取更多细节。",
	}

	return &Scenario{
		Health: HealthInfo{
			Status:    "healthy",
			LLMStatus: "ready",
			LLMType:   "openai",
			ModelName: "ASearcher-Web-7B",
		},
		Steps: []ScenarioStep{
			{StepType: "question", Title: "用户问题", Content: "{query}"},
			{StepType: "thinking", Title: "Agent思考", Content: "I need to search for the interview video first."},
			{StepType: "search", Title: "搜索查询", Content: "{query}"},
			{StepType: "info", Title: "获取搜索结果", Content: strings.Join(results, "\n")},
			{StepType: "access", Title: "网页访问", Content: "https://www.bilibili.com/v/popular/weekly?num=200"},
			{StepType: "response", Title: "响应生成", Content: "The video was featured in the weekly must-watch list."},
			{StepType: "final-result", Title: "最终结果", Content: "200"},
		},
		StepsPerPoll: 1,
		FinalStatus:  string(asearcher.QueryStatusCompleted),
		PredAnswer:   "200",
	}
}

// LoadScenario reads a scenario from a YAML file. Missing fields fall back
// to the default scenario.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}

	scenario := DefaultScenario()
	if err := yaml.Unmarshal(data, scenario); err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}
	if err := scenario.Validate(); err != nil {
		return nil, err
	}
	return scenario, nil
}

// Validate checks the scenario can drive a query to a terminal status.
func (s *Scenario) Validate() error {
	if s.StepsPerPoll <= 0 {
		return fmt.Errorf("steps_per_poll must be positive, got %d", s.StepsPerPoll)
	}
	if !asearcher.QueryStatus(s.FinalStatus).Terminal() {
		return fmt.Errorf("final_status must be completed, error or cancelled, got %q", s.FinalStatus)
	}
	return nil
}
