package workflow

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// ErrConfiguration is the parent of every planning error. Errors matching it
// are fatal to a run: no step executes.
var ErrConfiguration = errors.New("workflow configuration error")

var (
	// ErrUnknownStep is reported when a requested step has no definition.
	ErrUnknownStep = errors.New("unknown workflow step")

	// ErrUnresolvedDependencies is reported when the remaining steps can
	// never become ready: a dependency is outside the requested set or the
	// steps form a cycle.
	ErrUnresolvedDependencies = errors.New("cannot resolve dependencies")
)

// PlanError describes why a plan could not be built. It matches both
// ErrConfiguration and its Kind sentinel under errors.Is.
type PlanError struct {
	// Kind is ErrUnknownStep or ErrUnresolvedDependencies.
	Kind error

	// Steps lists the offending step names, sorted.
	Steps []string
}

// Error implements error.
func (e *PlanError) Error() string {
	switch e.Kind {
	case ErrUnknownStep:
		return fmt.Sprintf("unknown workflow steps: %s", strings.Join(e.Steps, ", "))
	default:
		return fmt.Sprintf("cannot resolve dependencies for remaining steps: %s", strings.Join(e.Steps, ", "))
	}
}

// Unwrap exposes ErrConfiguration and Kind to errors.Is.
func (e *PlanError) Unwrap() []error {
	return []error{ErrConfiguration, e.Kind}
}

// Plan is an ordered list of levels. Every dependency of a step sits in an
// earlier level than the step itself; steps within one level are independent
// of each other and sorted by name.
type Plan [][]string

// BuildPlan partitions requested into levels. A step joins the earliest level
// in which all of its dependencies have already been placed, which makes
// each level as large as possible.
//
// Duplicate names in requested are collapsed. Names absent from steps yield
// a PlanError of kind ErrUnknownStep before any graph work. If at some round
// nothing is ready while steps remain, the remaining set is reported as
// ErrUnresolvedDependencies: either a dependency was not requested or the
// steps form a cycle.
func BuildPlan(steps map[string]StepDefinition, requested []string) (Plan, error) {
	seen := make(map[string]struct{}, len(requested))
	var unknown []string
	remaining := make([]string, 0, len(requested))
	for _, name := range requested {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		if _, ok := steps[name]; !ok {
			unknown = append(unknown, name)
			continue
		}
		remaining = append(remaining, name)
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, &PlanError{Kind: ErrUnknownStep, Steps: unknown}
	}

	var plan Plan
	placed := make(map[string]struct{}, len(remaining))
	for len(remaining) > 0 {
		var ready, blocked []string
		for _, name := range remaining {
			if dependenciesPlaced(steps[name].Dependencies, placed) {
				ready = append(ready, name)
			} else {
				blocked = append(blocked, name)
			}
		}
		if len(ready) == 0 {
			sort.Strings(blocked)
			return nil, &PlanError{Kind: ErrUnresolvedDependencies, Steps: blocked}
		}
		sort.Strings(ready)
		for _, name := range ready {
			placed[name] = struct{}{}
		}
		plan = append(plan, ready)
		remaining = blocked
	}
	return plan, nil
}

func dependenciesPlaced(deps []string, placed map[string]struct{}) bool {
	for _, dep := range deps {
		if _, ok := placed[dep]; !ok {
			return false
		}
	}
	return true
}

// Len returns the total number of steps across all levels.
func (p Plan) Len() int {
	n := 0
	for _, level := range p {
		n += len(level)
	}
	return n
}

// Steps returns every step in plan order.
func (p Plan) Steps() []string {
	out := make([]string, 0, p.Len())
	for _, level := range p {
		out = append(out, level...)
	}
	return out
}

// LevelOf returns the 0-based level index of name, or -1 if name is not in
// the plan.
func (p Plan) LevelOf(name string) int {
	for i, level := range p {
		for _, s := range level {
			if s == name {
				return i
			}
		}
	}
	return -1
}

// String renders the plan as "[a b] [c]".
func (p Plan) String() string {
	parts := make([]string, len(p))
	for i, level := range p {
		parts[i] = "[" + strings.Join(level, " ") + "]"
	}
	return strings.Join(parts, " ")
}

// Fingerprint returns a stable 16-hex-digit hash of the plan's shape. Two
// plans with the same levels in the same order share a fingerprint.
func (p Plan) Fingerprint() string {
	d := xxhash.New()
	for i, level := range p {
		if i > 0 {
			_, _ = d.WriteString("|")
		}
		_, _ = d.WriteString(strings.Join(level, ","))
	}
	return fmt.Sprintf("%016x", d.Sum64())
}

// newRunID derives a run identifier from the plan fingerprint and the start
// time in nanoseconds.
func newRunID(p Plan, startedNanos int64) string {
	return "run-" + p.Fingerprint()[:8] + "-" + strconv.FormatInt(startedNanos, 36)
}
