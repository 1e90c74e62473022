package monitor

import "github.com/agent-protocol/asearcher-monitor/pkg/asearcher"

var stepTypeDisplayNames = map[asearcher.StepType]string{
	asearcher.StepTypeQuestion:        "User question",
	asearcher.StepTypeThinking:        "Agent thinking",
	asearcher.StepTypeSearch:          "Search query",
	asearcher.StepTypeAccess:          "Web page access",
	asearcher.StepTypeInfo:            "Information",
	asearcher.StepTypeResponse:        "Response generation",
	asearcher.StepTypeFinalResult:     "Final result",
	asearcher.StepTypeFinalResultDash: "Final result",
	asearcher.StepTypeError:           "Error handling",
	asearcher.StepTypeCompleted:       "Completed",
	asearcher.StepTypeCancelled:       "Cancelled",
}

// DisplayName returns the human readable name of a step type, or the raw
// value for types without one.
func DisplayName(t asearcher.StepType) string {
	if name, ok := stepTypeDisplayNames[t]; ok {
		return name
	}
	return string(t)
}

// StepTypeCount is one row of the step type frequency table.
type StepTypeCount struct {
	StepType asearcher.StepType
	Count    int
}

// CountStepTypes tallies steps by type in order of first occurrence.
// Steps without a type are counted as "unknown".
func CountStepTypes(steps []asearcher.Step) []StepTypeCount {
	var counts []StepTypeCount
	index := make(map[asearcher.StepType]int)

	for _, step := range steps {
		stepType := step.StepType
		if stepType == "" {
			stepType = asearcher.StepTypeUnknown
		}
		if i, ok := index[stepType]; ok {
			counts[i].Count++
			continue
		}
		index[stepType] = len(counts)
		counts = append(counts, StepTypeCount{StepType: stepType, Count: 1})
	}

	return counts
}
