package classify

import (
	"fmt"
	"strings"
)

// Validity verdicts.
const (
	VerdictInvalid = "invalid"
	VerdictValid   = "valid bug"
	VerdictLikely  = "likely valid bug"
	VerdictReview  = "needs manual review"
)

// Confidence levels.
const (
	ConfidenceHigh       = "High"
	ConfidenceMediumHigh = "Medium-High"
	ConfidenceMedium     = "Medium"
	ConfidenceLow        = "Low"
)

// Validity is the final verdict with its confidence and a short analysis.
type Validity struct {
	Verdict    string
	Confidence string
	Analysis   string
}

type validityRule struct {
	verdict    string
	confidence func(realness RealnessVerdict, res Resolution) string
	match      func(realness RealnessVerdict, res Resolution) bool
}

func fixed(level string) func(RealnessVerdict, Resolution) string {
	return func(RealnessVerdict, Resolution) string { return level }
}

var validityRules = []validityRule{
	{
		verdict:    VerdictInvalid,
		confidence: fixed(ConfidenceHigh),
		match:      func(r RealnessVerdict, _ Resolution) bool { return r.Label.NonBug() },
	},
	{
		verdict:    VerdictValid,
		confidence: fixed(ConfidenceHigh),
		match: func(r RealnessVerdict, res Resolution) bool {
			return r.Label == RealnessConfirmed && res.Layer == LayerMobile
		},
	},
	{
		verdict:    VerdictValid,
		confidence: fixed(ConfidenceMediumHigh),
		match:      func(r RealnessVerdict, _ Resolution) bool { return r.Label == RealnessConfirmed },
	},
	{
		verdict: VerdictLikely,
		confidence: func(r RealnessVerdict, res Resolution) string {
			if r.Label == RealnessTrackedSibling || res.Layer.SiblingBased() {
				return ConfidenceMediumHigh
			}

			return ConfidenceMedium
		},
		match: func(r RealnessVerdict, _ Resolution) bool { return r.Label.Likely() },
	},
	{
		verdict:    VerdictReview,
		confidence: fixed(ConfidenceLow),
		match:      func(RealnessVerdict, Resolution) bool { return true },
	},
}

// Verdict combines the realness and resolution verdicts with the number of
// cluster siblings.
func Verdict(realness RealnessVerdict, res Resolution, siblingCount int) Validity {
	for _, rule := range validityRules {
		if !rule.match(realness, res) {
			continue
		}

		return Validity{
			Verdict:    rule.verdict,
			Confidence: rule.confidence(realness, res),
			Analysis:   analysis(realness, res, siblingCount),
		}
	}

	return Validity{Verdict: VerdictReview, Confidence: ConfidenceLow, Analysis: analysis(realness, res, siblingCount)}
}

func analysis(realness RealnessVerdict, res Resolution, siblingCount int) string {
	parts := []string{
		fmt.Sprintf("Realness: %s (%s)", realness.Label, realness.Evidence),
		fmt.Sprintf("Resolution: %s (%s)", res.Layer, res.Evidence),
	}

	switch siblingCount {
	case 0:
		parts = append(parts, "No title-cluster siblings")
	case 1:
		parts = append(parts, "1 title-cluster sibling")
	default:
		parts = append(parts, fmt.Sprintf("%d title-cluster siblings", siblingCount))
	}

	return strings.Join(parts, ". ") + "."
}
