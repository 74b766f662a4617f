package classify

import (
	"fmt"
	"strings"

	"github.com/Sumatoshi-tech/bugmatrix/internal/extract"
	"github.com/Sumatoshi-tech/bugmatrix/pkg/textutil"
)

// Recommended test type labels beyond the component-test labels of extract.
const (
	TestTypeNone        = "No new regression test"
	TestTypeAPIContract = "API contract test + UI fallback CVT"
	TestTypeThreeLayer  = "API contract + CVT + E2E smoke"
)

// planLimit bounds the implementation plan cell, in runes.
const planLimit = 700

// RecommendInput carries what the test recommendation needs.
type RecommendInput struct {
	Number     int
	Canonical  int
	Validity   Validity
	Resolution Resolution
	Fields     extract.Fields
}

// Recommendation is a test type and an implementation plan.
type Recommendation struct {
	TestType string
	Plan     string
}

type recommendRule struct {
	match func(in RecommendInput) bool
	build func(in RecommendInput) Recommendation
}

var recommendRules = []recommendRule{
	{
		match: func(in RecommendInput) bool { return in.Validity.Verdict == VerdictInvalid },
		build: func(RecommendInput) Recommendation {
			return Recommendation{
				TestType: TestTypeNone,
				Plan: "Not a product defect; keep a triage guardrail (reproduction checklist and " +
					"template validation) instead of a regression test.",
			}
		},
	},
	{
		match: func(in RecommendInput) bool { return in.Resolution.Layer == LayerAPI },
		build: func(in RecommendInput) Recommendation {
			return Recommendation{
				TestType: TestTypeAPIContract,
				Plan: "Add an API contract test pinning the response shape and error codes of the failing " +
					"endpoint. Add a Component View Test that renders the fallback state for a failed or " +
					"malformed response. " + in.Fields.Assertion,
			}
		},
	},
	{
		match: func(in RecommendInput) bool { return in.Resolution.Layer == LayerMixed },
		build: func(in RecommendInput) Recommendation {
			return Recommendation{
				TestType: TestTypeThreeLayer,
				Plan: "Cover each layer: an API contract test for the backend response, a Component View " +
					"Test for rendering (" + in.Fields.Mocks + "), and one E2E smoke run over the full flow.",
			}
		},
	},
	{
		match: func(RecommendInput) bool { return true },
		build: func(in RecommendInput) Recommendation {
			plan := fmt.Sprintf("Preconditions: %s Steps: %s. Assert: %s",
				in.Fields.Mocks, strings.TrimSuffix(in.Fields.StepsSnippet, "."), in.Fields.Assertion)
			if in.Fields.NeedsE2E {
				plan += " E2E: " + extract.E2EFallback(true)
			}

			if in.Canonical != 0 && in.Canonical != in.Number {
				plan += fmt.Sprintf(" Cross-reference: canonical regression owner is #%d.", in.Canonical)
			}

			return Recommendation{TestType: extract.PrimaryTestType(in.Fields.NeedsE2E), Plan: plan}
		},
	},
}

// Recommend picks the regression test for an issue. Component-level plans
// of rows that are not the canonical issue of their cluster point at the
// canonical one.
func Recommend(in RecommendInput) Recommendation {
	for _, rule := range recommendRules {
		if !rule.match(in) {
			continue
		}

		rec := rule.build(in)
		rec.Plan = textutil.Shorten(rec.Plan, planLimit)

		return rec
	}

	return Recommendation{}
}
