package workflow

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ExpandSelection resolves user-supplied step patterns against known step
// names. Plain names pass through unchanged, even when unknown, so the
// planner can report them. Patterns containing glob metacharacters are
// matched with doublestar semantics and expand to the sorted list of known
// names they match; a pattern matching nothing is an ErrUnknownStep
// PlanError. The result preserves first-seen order and contains no
// duplicates.
func ExpandSelection(patterns, known []string) ([]string, error) {
	sortedKnown := append([]string(nil), known...)
	sort.Strings(sortedKnown)

	seen := make(map[string]struct{}, len(patterns))
	out := make([]string, 0, len(patterns))
	add := func(name string) {
		if _, dup := seen[name]; dup {
			return
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}

	var unmatched []string
	for _, raw := range patterns {
		pattern := strings.TrimSpace(raw)
		if pattern == "" {
			continue
		}
		if !isPattern(pattern) {
			add(pattern)
			continue
		}
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid step pattern %q: %w", pattern, doublestar.ErrBadPattern)
		}
		matched := false
		for _, name := range sortedKnown {
			ok, err := doublestar.Match(pattern, name)
			if err != nil {
				return nil, fmt.Errorf("matching step pattern %q: %w", pattern, err)
			}
			if ok {
				matched = true
				add(name)
			}
		}
		if !matched {
			unmatched = append(unmatched, pattern)
		}
	}
	if len(unmatched) > 0 {
		sort.Strings(unmatched)
		return nil, &PlanError{Kind: ErrUnknownStep, Steps: unmatched}
	}
	return out, nil
}

// SplitSelection splits comma-separated step lists such as "a,b, c" and
// drops empty entries.
func SplitSelection(values ...string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func isPattern(s string) bool {
	return strings.ContainsAny(s, "*?[{")
}
