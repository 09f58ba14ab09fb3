package scanner

import (
	"errors"

	"github.com/autolink/autolink/internal/patterns"
)

// Scanner runs categories against text using a fixed registry.
type Scanner struct {
	registry *patterns.Registry
}

func New(registry *patterns.Registry) *Scanner {
	if registry == nil {
		registry = patterns.NewRegistry("")
	}
	return &Scanner{registry: registry}
}

// Scan is the one-shot form of (*Scanner).Scan.
func Scan(text string, categories []patterns.Category, customPattern string) Result {
	return New(patterns.NewRegistry(customPattern)).Scan(text, categories)
}

// Scan returns matches grouped by category in the order categories were
// given. Categories are not deduplicated and items are never sorted by
// offset; overlapping matches from different categories are all kept.
func (s *Scanner) Scan(text string, categories []patterns.Category) Result {
	result := Result{Items: []Item{}}
	if text == "" || len(categories) == 0 {
		return result
	}

	reported := map[string]struct{}{}
	report := func(d Diagnostic) {
		key := string(d.Category) + "|" + d.Code
		if _, ok := reported[key]; ok {
			return
		}
		reported[key] = struct{}{}
		result.Diagnostics = append(result.Diagnostics, d)
	}

	for _, category := range categories {
		rule, err := s.registry.Resolve(category)
		if err != nil {
			var perr *patterns.InvalidPatternError
			switch {
			case errors.Is(err, patterns.ErrCustomPatternMissing):
				report(Diagnostic{
					Category: category,
					Severity: SeverityWarning,
					Code:     CodeCustomPatternMissing,
					Message:  err.Error(),
				})
			case errors.As(err, &perr):
				report(Diagnostic{
					Category: category,
					Severity: SeverityError,
					Code:     CodeInvalidCustomPattern,
					Message:  err.Error(),
				})
				continue
			default:
				report(Diagnostic{
					Category: category,
					Severity: SeverityError,
					Code:     CodeUnknownCategory,
					Message:  err.Error(),
				})
				continue
			}
		}

		result.Items = appendMatches(result.Items, text, rule)
	}

	return result
}

func appendMatches(items []Item, text string, rule patterns.Rule) []Item {
	for _, loc := range rule.Pattern.FindAllStringIndex(text, -1) {
		start, end := loc[0], loc[1]
		if start >= end {
			continue
		}
		matched := text[start:end]
		if !rule.Keep(matched) {
			continue
		}
		items = append(items, Item{
			Category: rule.Category,
			Start:    start,
			End:      end,
			Text:     matched,
		})
	}
	return items
}
