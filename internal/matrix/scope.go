// Package matrix turns a batch of issues into the ordered rows of a
// bug-to-test matrix.
package matrix

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/Sumatoshi-tech/bugmatrix/pkg/issue"
)

// Variant selects which issue states a report covers and which columns it shows.
type Variant string

// Report variants.
const (
	// VariantAll covers issues in every state with the test-blueprint columns.
	VariantAll Variant = "all"
	// VariantOpen covers open issues with the test-blueprint columns.
	VariantOpen Variant = "open"
	// VariantClosed covers closed issues and adds the classification columns.
	VariantClosed Variant = "closed"
)

// ErrUnknownVariant is returned for variant names outside [Variants].
var ErrUnknownVariant = errors.New("unknown report variant")

// Variants lists every supported variant.
func Variants() []Variant {
	return []Variant{VariantAll, VariantOpen, VariantClosed}
}

// ParseVariant resolves a variant name case-insensitively.
func ParseVariant(name string) (Variant, error) {
	v := Variant(strings.ToLower(strings.TrimSpace(name)))
	if !slices.Contains(Variants(), v) {
		return "", fmt.Errorf("%w: %q", ErrUnknownVariant, name)
	}

	return v, nil
}

// GHState is the --state value passed to the issue listing command.
func (v Variant) GHState() string {
	switch v {
	case VariantOpen:
		return "open"
	case VariantClosed:
		return "closed"
	default:
		return "all"
	}
}

// Classified reports whether the variant shows classification columns.
func (v Variant) Classified() bool {
	return v == VariantClosed
}

// Scope decides which retrieved issues enter the report.
type Scope struct {
	Variant  Variant
	BugLabel string
	Lookback time.Duration
	Now      time.Time
}

// Cutoff is the oldest creation time still in scope.
func (s Scope) Cutoff() time.Time {
	return s.Now.Add(-s.Lookback)
}

// Includes reports whether the issue carries the bug label, matches the
// variant's state and was created within the lookback window.
func (s Scope) Includes(iss issue.Issue) bool {
	if !iss.HasLabel(s.BugLabel) {
		return false
	}

	switch s.Variant {
	case VariantClosed:
		if !iss.Closed() {
			return false
		}
	case VariantOpen:
		if iss.State != issue.StateOpen {
			return false
		}
	case VariantAll:
	}

	return !iss.CreatedAt.Before(s.Cutoff())
}

// Filter keeps in-scope issues in their original order.
func (s Scope) Filter(issues []issue.Issue) []issue.Issue {
	out := make([]issue.Issue, 0, len(issues))

	for _, iss := range issues {
		if s.Includes(iss) {
			out = append(out, iss)
		}
	}

	return out
}
