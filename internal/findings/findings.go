// Package findings defines the audit result model shared by the check
// runner, the store and the report emitters.
package findings

import (
	"encoding/json"
	"time"
)

// Severity ranks a navigation defect. The values are lowercase to align
// with the database and report encodings.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityMajor    Severity = "major"
	SeverityMinor    Severity = "minor"
	SeverityInfo     Severity = "info"
)

// Valid reports whether s is one of the defined severity levels.
func (s Severity) Valid() bool {
	switch s {
	case SeverityCritical, SeverityMajor, SeverityMinor, SeverityInfo:
		return true
	}
	return false
}

// rank orders severities for sorting, most severe first.
func (s Severity) rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityMajor:
		return 1
	case SeverityMinor:
		return 2
	default:
		return 3
	}
}

// MoreSevere reports whether s outranks other.
func (s Severity) MoreSevere(other Severity) bool { return s.rank() < other.rank() }

// Finding is one navigation defect observed on one page. It maps directly
// to the findings table.
type Finding struct {
	ID    string `json:"id"`
	RunID string `json:"run_id"`

	// ObservedAt is the timestamp when the defect was observed.
	ObservedAt time.Time `json:"observed_at"`

	Page   string `json:"page"`   // URL of the audited page.
	Check  string `json:"check"`  // Name of the check that reported the defect.
	Region string `json:"region"` // Region kind the check ran against.

	Severity Severity `json:"severity"`
	Message  string   `json:"message"`

	// Selector addresses the offending element when the check could pin
	// one down.
	Selector string `json:"selector,omitempty"`

	// Details carries structured check-specific evidence (measured sizes,
	// contrast ratios).
	Details json.RawMessage `json:"details,omitempty"`
}

// Run groups the findings produced by one audit invocation.
type Run struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Targets    []string  `json:"targets"`
	Findings   []Finding `json:"findings"`
}

// CountBySeverity tallies the run's findings per severity level.
func (r *Run) CountBySeverity() map[Severity]int {
	counts := make(map[Severity]int)
	for _, f := range r.Findings {
		counts[f.Severity]++
	}
	return counts
}
