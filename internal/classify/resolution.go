package classify

import (
	"fmt"
	"strings"
)

// Layer names the part of the system that fixed, or should fix, an issue.
type Layer string

// Resolution layers.
const (
	LayerNA                  Layer = "N/A"
	LayerMobile              Layer = "mobile codebase"
	LayerMobileViaSibling    Layer = "mobile codebase (via sibling)"
	LayerLikelyMobileSibling Layer = "likely mobile (via sibling)"
	LayerMixed               Layer = "mixed/unclear"
	LayerAPI                 Layer = "likely API/backend"
	LayerLikelyMobile        Layer = "likely mobile"
	LayerUnknown             Layer = "unknown"
)

// MobileLeaning reports whether the layer points at the client codebase.
func (l Layer) MobileLeaning() bool {
	return strings.Contains(string(l), "mobile") && l != LayerMixed
}

// SiblingBased reports whether the layer was inferred from a cluster sibling.
func (l Layer) SiblingBased() bool {
	return strings.HasSuffix(string(l), "(via sibling)")
}

// Resolution is the resolution-layer verdict with its keyword signals.
type Resolution struct {
	Layer    Layer
	Evidence string
	// APISignal and MobileSignal record whether backend or client keywords
	// appear in the issue text, whichever rule decided the layer.
	APISignal    string
	MobileSignal string
}

type resolutionRule struct {
	layer Layer
	match func(in Input, realness RealnessVerdict, res Resolution) (string, bool)
}

var resolutionRules = []resolutionRule{
	{layer: LayerNA, match: func(_ Input, realness RealnessVerdict, _ Resolution) (string, bool) {
		return "realness verdict is " + string(realness.Label), realness.Label.NonBug()
	}},
	{layer: LayerMobile, match: func(in Input, _ RealnessVerdict, _ Resolution) (string, bool) {
		prs := in.Issue.ClosingPRs

		return "closed by PR " + refList(prs), len(prs) > 0
	}},
	{layer: LayerMobileViaSibling, match: func(in Input, _ RealnessVerdict, _ Resolution) (string, bool) {
		siblings := in.changeSiblings()

		return "sibling closed by linked change " + refList(siblings), len(siblings) > 0
	}},
	{layer: LayerLikelyMobileSibling, match: func(in Input, _ RealnessVerdict, _ Resolution) (string, bool) {
		siblings := in.completedSiblings()

		return "sibling closed as completed " + refList(siblings), len(siblings) > 0
	}},
	{layer: LayerMixed, match: func(_ Input, _ RealnessVerdict, res Resolution) (string, bool) {
		evidence := fmt.Sprintf("backend wording %q and client wording %q", res.APISignal, res.MobileSignal)

		return evidence, res.APISignal != "" && res.MobileSignal != ""
	}},
	{layer: LayerAPI, match: func(_ Input, _ RealnessVerdict, res Resolution) (string, bool) {
		return fmt.Sprintf("backend wording %q", res.APISignal), res.APISignal != ""
	}},
	{layer: LayerLikelyMobile, match: func(_ Input, _ RealnessVerdict, res Resolution) (string, bool) {
		return fmt.Sprintf("client wording %q", res.MobileSignal), res.MobileSignal != ""
	}},
	{layer: LayerUnknown, match: func(_ Input, _ RealnessVerdict, _ Resolution) (string, bool) {
		return "no linked change, sibling or layer wording", true
	}},
}

// ResolutionLayer decides which layer resolved the issue.
func (c *Classifier) ResolutionLayer(in Input, realness RealnessVerdict) Resolution {
	res := Resolution{Layer: LayerUnknown}
	res.APISignal, _ = c.rules.APIKeywords.First(in.Text)
	res.MobileSignal, _ = c.rules.MobileKeywords.First(in.Text)

	for _, rule := range resolutionRules {
		if evidence, ok := rule.match(in, realness, res); ok {
			res.Layer = rule.layer
			res.Evidence = evidence

			return res
		}
	}

	return res
}

// Mobile impact labels.
const (
	ImpactNone     = "No (non-bug)"
	ImpactIndirect = "indirect/unclear"
	ImpactYes      = "yes"
	ImpactUnclear  = "unclear"
)

// MobileImpact derives whether the client app is affected.
func MobileImpact(res Resolution) string {
	switch {
	case res.Layer == LayerNA:
		return ImpactNone
	case res.Layer == LayerAPI && res.MobileSignal == "":
		return ImpactIndirect
	case res.MobileSignal != "" || res.Layer.MobileLeaning():
		return ImpactYes
	default:
		return ImpactUnclear
	}
}
