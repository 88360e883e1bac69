// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package measurement

import (
	"fmt"
	"time"

	"github.com/sustainable-computing-io/joule-profiler/internal/source"
	"k8s.io/utils/ptr"
)

// TokenKind tells boundary markers apart
type TokenKind int

const (
	// StartKind marks the beginning of the workload
	StartKind TokenKind = iota
	// NamedKind marks a token printed by the workload
	NamedKind
	// EndKind marks the exit of the workload
	EndKind
)

// PhaseToken is a window boundary
type PhaseToken struct {
	Kind TokenKind
	Text string
}

func StartToken() PhaseToken { return PhaseToken{Kind: StartKind} }

func EndToken() PhaseToken { return PhaseToken{Kind: EndKind} }

func NamedToken(text string) PhaseToken { return PhaseToken{Kind: NamedKind, Text: text} }

func (t PhaseToken) String() string {
	switch t.Kind {
	case StartKind:
		return "START"
	case EndKind:
		return "END"
	default:
		return t.Text
	}
}

// Named returns the token text, or nil for the Start and End markers
func (t PhaseToken) Named() *string {
	if t.Kind != NamedKind {
		return nil
	}
	return ptr.To(t.Text)
}

// Phase is a boundary observed during a run. Line is the 1-based line of the
// workload output holding the token; nil for Start and End.
type Phase struct {
	Token     PhaseToken
	Timestamp time.Time
	Line      *int
}

// PhaseResult holds the metrics of the window between two consecutive boundaries
type PhaseResult struct {
	Name       string
	StartToken *string
	EndToken   *string
	StartLine  *int
	EndLine    *int
	Metrics    source.Metrics
	Duration   time.Duration
}

// NewPhaseResult returns the window bounded by begin and end
func NewPhaseResult(begin, end Phase, metrics source.Metrics) PhaseResult {
	return PhaseResult{
		Name:       fmt.Sprintf("%s -> %s", begin.Token, end.Token),
		StartToken: begin.Token.Named(),
		EndToken:   end.Token.Named(),
		StartLine:  begin.Line,
		EndLine:    end.Line,
		Metrics:    metrics,
		Duration:   end.Timestamp.Sub(begin.Timestamp),
	}
}

// PhaseMeasurementResult is the outcome of one multi-window iteration
type PhaseMeasurementResult struct {
	Phases   []PhaseResult
	Duration time.Duration
	ExitCode int
}

// Keys returns the metric names of all windows, in order of appearance and
// without duplicates
func (r *PhaseMeasurementResult) Keys() []string {
	var keys []string
	seen := map[string]bool{}
	for _, phase := range r.Phases {
		for _, m := range phase.Metrics {
			if !seen[m.Name] {
				seen[m.Name] = true
				keys = append(keys, m.Name)
			}
		}
	}
	return keys
}

// Result is the outcome of one single-window iteration
type Result struct {
	// Metrics sorted by name
	Metrics      source.Metrics
	Duration     time.Duration
	ExitCode     int
	MeasureCount uint64
	MeasureDelta time.Duration
}

// Keys returns the metric names of the result
func (r *Result) Keys() []string {
	keys := make([]string, len(r.Metrics))
	for i, m := range r.Metrics {
		keys[i] = m.Name
	}
	return keys
}
