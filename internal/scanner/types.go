package scanner

import "github.com/autolink/autolink/internal/patterns"

type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

const (
	CodeCustomPatternMissing = "custom_pattern_missing"
	CodeInvalidCustomPattern = "invalid_custom_pattern"
	CodeUnknownCategory      = "unknown_category"
)

// Item is one match. Start and End are byte offsets into the scanned text and
// Text is always text[Start:End].
type Item struct {
	Category patterns.Category `json:"category"`
	Start    int               `json:"start"`
	End      int               `json:"end"`
	Text     string            `json:"text"`
}

// Diagnostic reports a per-category problem that did not abort the scan.
type Diagnostic struct {
	Category patterns.Category `json:"category"`
	Severity Severity          `json:"severity"`
	Code     string            `json:"code"`
	Message  string            `json:"message"`
}

type Result struct {
	Items       []Item       `json:"items"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

// Counts returns the number of items per category.
func (r Result) Counts() map[patterns.Category]int {
	counts := make(map[patterns.Category]int)
	for _, item := range r.Items {
		counts[item.Category]++
	}
	return counts
}

func (r Result) HasErrors() bool {
	for _, d := range r.Diagnostics {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}
