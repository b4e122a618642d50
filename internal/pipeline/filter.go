package pipeline

import (
	"fmt"
	"regexp"
	"strings"
)

// Pattern represents a compiled step filter supporting substring and regex matching.
type Pattern struct {
	raw   string
	regex *regexp.Regexp
	lower string
}

// CompilePatterns transforms raw pattern strings into Pattern values.
// Patterns wrapped in slashes compile as regular expressions; everything
// else matches case-insensitively as a substring.
func CompilePatterns(patterns []string) ([]Pattern, error) {
	result := make([]Pattern, 0, len(patterns))
	for _, raw := range patterns {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if strings.HasPrefix(raw, "/") && strings.HasSuffix(raw, "/") && len(raw) >= 2 {
			expr := raw[1 : len(raw)-1]
			re, err := regexp.Compile(expr)
			if err != nil {
				return nil, fmt.Errorf("compile regexp %q: %w", raw, err)
			}
			result = append(result, Pattern{raw: raw, regex: re})
			continue
		}
		result = append(result, Pattern{raw: raw, lower: strings.ToLower(raw)})
	}
	return result, nil
}

// Match reports whether the pattern matches the supplied string.
func (p Pattern) Match(s string) bool {
	if s == "" {
		return false
	}
	if p.regex != nil {
		return p.regex.MatchString(s)
	}
	return strings.Contains(strings.ToLower(s), p.lower)
}

// FilterSteps applies only/skip patterns to steps, returning a new slice
// with matches. Empty only means every step is a candidate.
func FilterSteps(steps []Step, only, skip []Pattern) []Step {
	if len(steps) == 0 {
		return nil
	}
	result := make([]Step, 0, len(steps))
	for _, step := range steps {
		if len(only) > 0 && !matchesAny(step, only) {
			continue
		}
		if matchesAny(step, skip) {
			continue
		}
		result = append(result, step)
	}
	return result
}

func matchesAny(step Step, patterns []Pattern) bool {
	for _, p := range patterns {
		if p.Match(step.Name) || p.Match(step.Uses) || p.Match(step.Run) {
			return true
		}
	}
	return false
}
