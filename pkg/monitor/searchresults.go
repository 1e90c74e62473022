package monitor

import (
	"strings"
	"unicode/utf8"

	"github.com/agent-protocol/asearcher-monitor/pkg/asearcher"
)

const (
	// searchResultsTitleMarker appears in the title of info steps that carry search results.
	searchResultsTitleMarker = "搜索结果"
	// searchResultsContentMarker must appear in the content for it to be parsed.
	searchResultsContentMarker = "搜索结果:"
	// searchResultsMinLength is the rune count the content must exceed to be parsed.
	searchResultsMinLength = 200
	// maxSearchResultEntries caps how many entries are rendered.
	maxSearchResultEntries = 3
)

var searchResultOrdinals = []string{"1.", "2.", "3.", "4.", "5."}

// SearchResultEntry is one ranked line of a search-results step.
type SearchResultEntry struct {
	// Text is the trimmed line as received.
	Text string
	// Label and URL are set when the line holds a parenthesized segment.
	Label   string
	URL     string
	HasLink bool
}

// SearchResults is the structured form of a search-results step.
type SearchResults struct {
	Header  string
	Entries []SearchResultEntry
}

// IsSearchResultsStep reports whether step is an info step announcing search results.
func IsSearchResultsStep(step asearcher.Step) bool {
	return step.StepType == asearcher.StepTypeInfo && strings.Contains(step.Title, searchResultsTitleMarker)
}

// ParseSearchResults extracts the header and up to three ranked entries from
// the content of a search-results step. It returns false when the content is
// too short or lacks the marker, in which case the content should be shown
// verbatim.
//
// The first line is the header. Following lines are trimmed; blank lines and
// lines that do not start with an ordinal from "1." to "5." are skipped. For
// an entry with both "(" and ")", the label is the text before the first "("
// and the URL runs from after that "(" to the next parenthesis.
func ParseSearchResults(content string) (*SearchResults, bool) {
	if !strings.Contains(content, searchResultsContentMarker) || utf8.RuneCountInString(content) <= searchResultsMinLength {
		return nil, false
	}

	lines := strings.Split(content, "\n")
	results := &SearchResults{Header: lines[0]}

	for _, line := range lines[1:] {
		if len(results.Entries) >= maxSearchResultEntries {
			break
		}
		line = strings.TrimSpace(line)
		if line == "" || !hasOrdinalPrefix(line) {
			continue
		}
		results.Entries = append(results.Entries, parseSearchResultEntry(line))
	}

	return results, true
}

func hasOrdinalPrefix(line string) bool {
	for _, ordinal := range searchResultOrdinals {
		if strings.HasPrefix(line, ordinal) {
			return true
		}
	}
	return false
}

func parseSearchResultEntry(line string) SearchResultEntry {
	entry := SearchResultEntry{Text: line}

	open := strings.Index(line, "(")
	if open < 0 || !strings.Contains(line, ")") {
		return entry
	}

	entry.HasLink = true
	entry.Label = strings.TrimSpace(line[:open])
	rest := line[open+1:]
	if end := strings.IndexAny(rest, "()"); end >= 0 {
		rest = rest[:end]
	}
	entry.URL = rest
	return entry
}
