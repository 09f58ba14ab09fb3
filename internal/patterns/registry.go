package patterns

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrCustomPatternMissing is returned alongside a usable url rule when the
// custom category is resolved without a registered pattern.
var ErrCustomPatternMissing = errors.New("custom pattern is not set, falling back to url pattern")

// InvalidPatternError reports a custom pattern that does not compile.
type InvalidPatternError struct {
	Pattern string
	Err     error
}

func (e *InvalidPatternError) Error() string {
	return fmt.Sprintf("invalid custom pattern %q: %v", e.Pattern, e.Err)
}

func (e *InvalidPatternError) Unwrap() error {
	return e.Err
}

// Registry maps categories to rules. It is read-only after NewRegistry and
// safe for concurrent use.
type Registry struct {
	custom    string
	customRe  *regexp.Regexp
	customErr error
}

// NewRegistry compiles the custom pattern once. An empty pattern means no
// custom pattern is registered. A pattern that fails to compile is kept as an
// error and only surfaces when the custom category is resolved.
func NewRegistry(customPattern string) *Registry {
	r := &Registry{custom: customPattern}
	if customPattern == "" {
		return r
	}
	re, err := regexp.Compile(customPattern)
	if err != nil {
		r.customErr = &InvalidPatternError{Pattern: customPattern, Err: err}
		return r
	}
	r.customRe = re
	return r
}

func (r *Registry) CustomPattern() string {
	if r == nil {
		return ""
	}
	return r.custom
}

// Resolve returns the rule for c. For the custom category with no pattern it
// returns the url rule together with ErrCustomPatternMissing; callers treat
// that as a warning and use the rule.
func (r *Registry) Resolve(c Category) (Rule, error) {
	if c == CategoryCustom {
		return r.resolveCustom()
	}

	re, ok := builtins[c]
	if !ok {
		return Rule{}, fmt.Errorf("unknown category %q", c)
	}
	return Rule{Category: c, Pattern: re, Filter: filters[c]}, nil
}

func (r *Registry) resolveCustom() (Rule, error) {
	if r == nil || r.custom == "" {
		return Rule{
			Category: CategoryCustom,
			Pattern:  builtins[CategoryURL],
			Fallback: true,
		}, ErrCustomPatternMissing
	}
	if r.customErr != nil {
		return Rule{}, r.customErr
	}
	return Rule{Category: CategoryCustom, Pattern: r.customRe}, nil
}

// ValidatePattern reports whether p is usable as a custom pattern.
func ValidatePattern(p string) error {
	if _, err := regexp.Compile(p); err != nil {
		return &InvalidPatternError{Pattern: p, Err: err}
	}
	return nil
}
