// Package issue defines the read-only issue record consumed by the report
// pipeline and decodes it from the tracker's JSON payload.
package issue

import (
	"slices"
	"strings"
	"time"
)

// Lifecycle states reported by the tracker.
const (
	StateOpen   = "OPEN"
	StateClosed = "CLOSED"
)

// Close reasons reported by the tracker.
const (
	ReasonCompleted  = "COMPLETED"
	ReasonNotPlanned = "NOT_PLANNED"
)

// Comment is a single issue comment.
type Comment struct {
	Author string
	Body   string
}

// Issue is one tracked bug report. It is never mutated after decoding.
type Issue struct {
	Number int
	Title  string

	CreatedAt time.Time
	UpdatedAt time.Time
	ClosedAt  time.Time

	// CreatedAtRaw and ClosedAtRaw keep the timestamps exactly as received
	// so reports can echo them verbatim.
	CreatedAtRaw string
	ClosedAtRaw  string

	State       string
	StateReason string
	Labels      []string
	URL         string
	Body        string
	Comments    []Comment
	ClosingPRs  []int
}

// HasLabel reports whether the issue carries the exact label name.
func (i Issue) HasLabel(name string) bool {
	return slices.Contains(i.Labels, name)
}

// HasLabelFold reports whether any label equals name ignoring case.
func (i Issue) HasLabelFold(name string) bool {
	for _, label := range i.Labels {
		if strings.EqualFold(label, name) {
			return true
		}
	}

	return false
}

// Closed reports whether the issue is in the CLOSED state.
func (i Issue) Closed() bool {
	return i.State == StateClosed
}

// Completed reports whether the issue was closed as completed.
func (i Issue) Completed() bool {
	return i.StateReason == ReasonCompleted
}

// NotPlanned reports whether the issue was closed as not planned.
func (i Issue) NotPlanned() bool {
	return i.StateReason == ReasonNotPlanned
}
