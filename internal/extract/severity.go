package extract

import (
	"cmp"
	"slices"
	"strings"
)

// Severity defaults.
const (
	// UnlabeledRank sorts issues without severity labels last.
	UnlabeledRank = 99
	// Unlabeled is reported for missing team or severity labels.
	Unlabeled = "Unlabeled"
	// unknownSeverityRank ranks sev-like labels that match no known tier.
	unknownSeverityRank = 50
)

const (
	teamPrefix     = "team-"
	severityPrefix = "sev"
)

var severityTiers = []struct {
	needles []string
	rank    int
}{
	{needles: []string{"sev0"}, rank: 0},
	{needles: []string{"sev1"}, rank: 1},
	{needles: []string{"sev2", "sev-2"}, rank: 2},
	{needles: []string{"sev3"}, rank: 3},
}

// SeverityRank returns the most urgent severity among labels as a rank and
// the label that produced it. Lower ranks are more urgent; ties keep the
// first label in list order.
func SeverityRank(labels []string) (int, string) {
	if len(labels) == 0 {
		return UnlabeledRank, Unlabeled
	}

	type candidate struct {
		rank  int
		label string
	}

	candidates := make([]candidate, 0, len(labels))
	for _, label := range labels {
		candidates = append(candidates, candidate{rank: tierOf(label), label: label})
	}

	slices.SortStableFunc(candidates, func(a, b candidate) int {
		return cmp.Compare(a.rank, b.rank)
	})

	return candidates[0].rank, candidates[0].label
}

func tierOf(label string) int {
	lowered := strings.ToLower(label)

	for _, tier := range severityTiers {
		for _, needle := range tier.needles {
			if strings.Contains(lowered, needle) {
				return tier.rank
			}
		}
	}

	return unknownSeverityRank
}

// SeverityLabels selects labels starting with "sev", case-insensitively.
func SeverityLabels(labels []string) []string {
	return withPrefix(labels, severityPrefix)
}

// TeamLabels selects labels starting with "team-", case-insensitively.
func TeamLabels(labels []string) []string {
	return withPrefix(labels, teamPrefix)
}

func withPrefix(labels []string, prefix string) []string {
	var out []string

	for _, label := range labels {
		if strings.HasPrefix(strings.ToLower(label), prefix) {
			out = append(out, label)
		}
	}

	return out
}

// JoinLabels joins labels with ", " or returns [Unlabeled] when empty.
func JoinLabels(labels []string) string {
	if len(labels) == 0 {
		return Unlabeled
	}

	return strings.Join(labels, ", ")
}

// MetadataGaps lists the triage labels missing from an issue.
func MetadataGaps(teams, severities []string) []string {
	var gaps []string

	if len(teams) == 0 {
		gaps = append(gaps, "Missing team label")
	}

	if len(severities) == 0 {
		gaps = append(gaps, "Missing severity label")
	}

	return gaps
}
