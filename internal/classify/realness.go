package classify

import (
	"fmt"
	"strings"
)

// Realness is the verdict on whether an issue is a genuine defect.
type Realness string

// Realness verdicts, in rule order.
const (
	RealnessAdmin           Realness = "not a real bug (test/admin)"
	RealnessNonBug          Realness = "not a real bug (expected/non-repro)"
	RealnessConfirmed       Realness = "confirmed real bug"
	RealnessTrackedSibling  Realness = "likely real bug (duplicate/tracked by sibling)"
	RealnessDuplicate       Realness = "likely real bug (duplicate/tracked elsewhere)"
	RealnessTrackedExternal Realness = "likely real bug (tracked externally)"
	RealnessUnreferenced    Realness = "likely real bug (closed without direct fix reference)"
	RealnessUnclear         Realness = "unclear from issue content"
)

const duplicateLabel = "duplicate"

// NonBug reports whether the verdict rules the issue out as a defect.
func (r Realness) NonBug() bool {
	return r == RealnessAdmin || r == RealnessNonBug
}

// Likely reports whether the verdict is a "likely real bug" variant.
func (r Realness) Likely() bool {
	return strings.HasPrefix(string(r), "likely real bug")
}

// RealnessVerdict pairs a verdict with the signal that produced it.
type RealnessVerdict struct {
	Label    Realness
	Evidence string
}

type realnessRule struct {
	label Realness
	match func(c *Classifier, in Input) (string, bool)
}

var realnessRules = []realnessRule{
	{label: RealnessAdmin, match: func(c *Classifier, in Input) (string, bool) {
		hit, ok := c.rules.Admin.First(in.Text)

		return fmt.Sprintf("admin/test wording %q", hit), ok
	}},
	{label: RealnessNonBug, match: func(c *Classifier, in Input) (string, bool) {
		hit, ok := c.rules.NonBug.First(in.Text)

		return fmt.Sprintf("non-bug wording %q", hit), ok
	}},
	{label: RealnessConfirmed, match: func(_ *Classifier, in Input) (string, bool) {
		return "closed as COMPLETED", in.Issue.Completed()
	}},
	{label: RealnessTrackedSibling, match: func(_ *Classifier, in Input) (string, bool) {
		siblings := in.completedSiblings()
		if !in.Issue.NotPlanned() || len(siblings) == 0 {
			return "", false
		}

		return "closed as NOT_PLANNED; completed sibling " + refList(siblings), true
	}},
	{label: RealnessDuplicate, match: func(c *Classifier, in Input) (string, bool) {
		if !in.Issue.NotPlanned() {
			return "", false
		}

		if in.Issue.HasLabelFold(duplicateLabel) {
			return "closed as NOT_PLANNED; duplicate label", true
		}

		hit, ok := c.rules.Duplicate.First(in.Text)

		return fmt.Sprintf("closed as NOT_PLANNED; duplicate wording %q", hit), ok
	}},
	{label: RealnessTrackedExternal, match: func(c *Classifier, in Input) (string, bool) {
		if !in.Issue.NotPlanned() {
			return "", false
		}

		hit, ok := c.rules.ExternalTracking.First(in.Text)

		return fmt.Sprintf("closed as NOT_PLANNED; external tracking %q", hit), ok
	}},
	{label: RealnessUnreferenced, match: func(c *Classifier, in Input) (string, bool) {
		if !in.Issue.NotPlanned() {
			return "", false
		}

		signals := c.bugSignalLabels(in.Issue.Labels)
		if len(signals) == 0 {
			return "", false
		}

		return "closed as NOT_PLANNED; labels " + strings.Join(signals, ", "), true
	}},
	{label: RealnessUnclear, match: func(_ *Classifier, in Input) (string, bool) {
		if in.Issue.StateReason == "" {
			return "no close reason or decisive wording", true
		}

		return "close reason " + in.Issue.StateReason + " without decisive wording", true
	}},
}

// Realness walks the realness rules and returns the first verdict that fires.
func (c *Classifier) Realness(in Input) RealnessVerdict {
	for _, rule := range realnessRules {
		if evidence, ok := rule.match(c, in); ok {
			return RealnessVerdict{Label: rule.label, Evidence: evidence}
		}
	}

	return RealnessVerdict{Label: RealnessUnclear}
}

func (c *Classifier) bugSignalLabels(labels []string) []string {
	var out []string

	for _, label := range labels {
		lowered := strings.ToLower(label)

		for _, marker := range c.rules.BugSignalLabels {
			if strings.Contains(lowered, marker) {
				out = append(out, label)

				break
			}
		}
	}

	return out
}
