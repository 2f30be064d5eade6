// Package review holds the gated review model: gates, per-learner review
// states, the daily transition rule and dashboard arithmetic. It has no I/O.
package review

import (
	"fmt"
	"strings"
)

// Gate is the position of a review state in the two-gate pipeline.
type Gate string

const (
	Gate1     Gate = "GATE_1"
	Gate2     Gate = "GATE_2"
	Graduated Gate = "GRADUATED"

	// NotInReview is reported for items the learner has no state for.
	// It is never persisted.
	NotInReview Gate = "NOT_IN_REVIEW"
)

// Review intervals in days.
const (
	RetryIntervalDays   = 1
	PromoteIntervalDays = 7
)

// ParseGate parses a persisted gate value.
func ParseGate(s string) (Gate, error) {
	switch g := Gate(s); g {
	case Gate1, Gate2, Graduated:
		return g, nil
	}
	return "", fmt.Errorf("unknown gate %q", s)
}

// Next returns the gate reached after a correct answer.
func (g Gate) Next() Gate {
	switch g {
	case Gate1:
		return Gate2
	case Gate2, Graduated:
		return Graduated
	}
	return g
}

// Label is a short human form used by the CLI and TUI.
func (g Gate) Label() string {
	switch g {
	case Gate1:
		return "Gate 1"
	case Gate2:
		return "Gate 2"
	case Graduated:
		return "Graduated"
	case NotInReview:
		return "Not in review"
	}
	return string(g)
}

// GateFilter restricts today's review list by snapshot gate.
type GateFilter string

const (
	FilterAll   GateFilter = "ALL"
	FilterGate1 GateFilter = "GATE_1"
	FilterGate2 GateFilter = "GATE_2"
)

// ParseGateFilter accepts ALL, GATE_1 or GATE_2. An empty string means ALL.
// GRADUATED is rejected: graduated states never appear in a snapshot.
func ParseGateFilter(s string) (GateFilter, error) {
	switch f := GateFilter(strings.ToUpper(strings.TrimSpace(s))); f {
	case "":
		return FilterAll, nil
	case FilterAll, FilterGate1, FilterGate2:
		return f, nil
	}
	return "", fmt.Errorf("%w %q", ErrInvalidFilter, s)
}

// Match reports whether a snapshot gate passes the filter.
func (f GateFilter) Match(g Gate) bool {
	if f == FilterAll || f == "" {
		return g == Gate1 || g == Gate2
	}
	return Gate(f) == g
}
