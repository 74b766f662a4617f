// Package extract derives structured test-planning signals from issue text.
// Every function is total: when nothing matches, a defined fallback is
// returned.
package extract

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/Sumatoshi-tech/bugmatrix/internal/rules"
	"github.com/Sumatoshi-tech/bugmatrix/internal/sections"
	"github.com/Sumatoshi-tech/bugmatrix/pkg/issue"
	"github.com/Sumatoshi-tech/bugmatrix/pkg/textutil"
)

// Cell budgets, in runes.
const (
	summaryLimit        = 340
	describeLimit       = 220
	expectedLimit       = 180
	affectedLimit       = 150
	stepsLimit          = 260
	mocksLimit          = 320
	assertionLimit      = 220
	e2eFallbackLimit    = 240
	maxSnippetSteps     = 3
	maxCandidatePaths   = 2
	stepSeparator       = " -> "
	summarySeparator    = " — "
	candidateSeparator  = ", "
	expectedSummaryHead = "Expected: "
)

// Section heading aliases recognized in issue templates.
var (
	DescribeAliases = []string{"Describe the bug", "Bug Description", "Description", "Current Behavior"}
	ExpectedAliases = []string{"Expected behavior", "Expected Behavior"}
	StepsAliases    = []string{"Steps to reproduce", "Steps"}
	AffectedAliases = []string{"Affected Component", "Affected Components", "Affected component(s)"}
)

// Test type labels and end-to-end guidance for the blueprint columns.
const (
	TestTypeCVT         = "Component View Test"
	TestTypeCVTWithE2E  = "Component View Test + E2E smoke (integration-sensitive)"
	e2eRequiredGuidance = "Cover full device flow with real integration boundary " +
		"(permissions/scanner/deeplink/network), and verify final user-visible state."
	e2eOptionalGuidance = "Optional: run one E2E regression on the same path to confirm " +
		"controller + navigation wiring."
)

var (
	backtickPathPattern = regexp.MustCompile("`([^`]+(?:/[A-Za-z0-9_.-]+)+)`")
	stepMarkerPattern   = regexp.MustCompile(`(\d+\.)`)
	stepNumberPattern   = regexp.MustCompile(`^\d+[).\s-]*`)
)

var stepPlaceholders = map[string]struct{}{
	"_No response_": {},
	"No response":   {},
	"TBD":           {},
}

// Fields is everything extracted from one issue.
type Fields struct {
	Teams        []string
	Severities   []string
	SeverityRank int
	SeverityTop  string

	Describe string
	Expected string
	Steps    string
	Affected string

	Summary            string
	Paths              []string
	ComponentCandidate string
	StepsSnippet       string
	Assertion          string
	Mocks              string
	NeedsE2E           bool
	PrimaryTestType    string
	E2EFallback        string
	MetadataGaps       []string
}

// Extractor applies a rule set to issue text.
type Extractor struct {
	rules       *rules.Set
	barePattern *regexp.Regexp
}

// New creates an Extractor for the rule set.
func New(set *rules.Set) *Extractor {
	roots := make([]string, 0, len(set.PathRoots))
	for _, root := range set.PathRoots {
		roots = append(roots, regexp.QuoteMeta(root))
	}

	var bare *regexp.Regexp
	if len(roots) > 0 {
		bare = regexp.MustCompile(`\b(?:` + strings.Join(roots, "|") + `)/[A-Za-z0-9_./-]+`)
	}

	return &Extractor{rules: set, barePattern: bare}
}

// Extract runs every extractor over the issue.
func (e *Extractor) Extract(iss issue.Issue) Fields {
	sm := sections.Parse(iss.Body)

	fields := Fields{
		Teams:      TeamLabels(iss.Labels),
		Severities: SeverityLabels(iss.Labels),
		Describe:   sm.Lookup(DescribeAliases...),
		Expected:   sm.Lookup(ExpectedAliases...),
		Steps:      sm.Lookup(StepsAliases...),
		Affected:   sm.Lookup(AffectedAliases...),
		Paths:      e.ComponentPaths(iss.Body),
	}

	fields.SeverityRank, fields.SeverityTop = SeverityRank(fields.Severities)
	fields.Summary = ProblemSummary(iss.Title, sm)
	fields.ComponentCandidate = e.ComponentCandidate(fields.Paths, fields.Affected, iss.Title+" "+iss.Body)
	fields.StepsSnippet = textutil.Shorten(StepsSnippet(fields.Steps, iss.Title), stepsLimit)

	focus := strings.Join([]string{iss.Title, fields.Describe, fields.Expected, fields.Steps}, " ")
	fields.Assertion = textutil.Shorten(e.Assertion(focus), assertionLimit)
	fields.NeedsE2E = e.NeedsE2E(focus)

	mockText := strings.Join([]string{iss.Title, fields.Describe, fields.Expected}, " ")
	fields.Mocks = textutil.Shorten(e.Mocks(mockText, fields.ComponentCandidate), mocksLimit)

	fields.PrimaryTestType = PrimaryTestType(fields.NeedsE2E)
	fields.E2EFallback = textutil.Shorten(E2EFallback(fields.NeedsE2E), e2eFallbackLimit)
	fields.MetadataGaps = MetadataGaps(fields.Teams, fields.Severities)

	return fields
}

// ComponentPaths returns backtick-quoted and bare source paths mentioned in
// body, deduplicated in first-seen order. Paths at or above the configured
// length limit are dropped.
func (e *Extractor) ComponentPaths(body string) []string {
	var matches []string

	for _, m := range backtickPathPattern.FindAllStringSubmatch(body, -1) {
		matches = append(matches, m[1])
	}

	if e.barePattern != nil {
		matches = append(matches, e.barePattern.FindAllString(body, -1)...)
	}

	seen := make(map[string]struct{}, len(matches))

	var paths []string

	for _, match := range matches {
		path := strings.TrimSpace(match)
		if !strings.Contains(path, "/") || utf8.RuneCountInString(path) >= e.rules.MaxPathLength {
			continue
		}

		if _, dup := seen[path]; dup {
			continue
		}

		seen[path] = struct{}{}
		paths = append(paths, path)
	}

	return paths
}

// ComponentHint names the UI area the text most likely refers to.
func (e *Extractor) ComponentHint(text string) string {
	return e.rules.ComponentHints.Resolve(text)
}

// Assertion suggests what a component test should assert.
func (e *Extractor) Assertion(text string) string {
	return e.rules.Assertions.Resolve(text)
}

// Mocks suggests test preconditions for rendering the hinted component.
func (e *Extractor) Mocks(text, hint string) string {
	return fmt.Sprintf(e.rules.MockBase, hint) + " " + e.rules.Mocks.Resolve(text)
}

// NeedsE2E reports whether the text touches an integration boundary that a
// component test cannot cover.
func (e *Extractor) NeedsE2E(text string) bool {
	return e.rules.NeedsE2E.Any(text)
}

// ComponentCandidate picks the first available of: the first two extracted
// paths, the affected-component section, the inferred hint.
func (e *Extractor) ComponentCandidate(paths []string, affected, text string) string {
	head := paths[:min(len(paths), maxCandidatePaths)]

	return textutil.FirstNonEmpty(
		strings.Join(head, candidateSeparator),
		textutil.Shorten(affected, affectedLimit),
		e.ComponentHint(text),
	)
}

// StepsSnippet condenses a reproduction-steps block into at most three
// steps joined by arrows. Without usable steps it falls back to a sentence
// referencing the title.
func StepsSnippet(steps, title string) string {
	fallback := fmt.Sprintf("Trigger the user action described in '%s'.", title)
	if steps == "" {
		return fallback
	}

	source := stepMarkerPattern.ReplaceAllString(steps, "\n${1}")

	var kept []string

	for line := range strings.SplitSeq(source, "\n") {
		clean := stepNumberPattern.ReplaceAllString(textutil.Normalize(line), "")
		clean = strings.TrimSpace(strings.Trim(clean, "- "))

		if clean == "" {
			continue
		}

		if _, placeholder := stepPlaceholders[clean]; placeholder {
			continue
		}

		kept = append(kept, clean)
	}

	if len(kept) == 0 {
		return fallback
	}

	return strings.Join(kept[:min(len(kept), maxSnippetSteps)], stepSeparator)
}

// ProblemSummary combines the cleaned title with the bug description, or
// with the expected behaviour when no description exists.
func ProblemSummary(title string, sm *sections.Map) string {
	bits := []string{textutil.CleanTitle(title)}

	if describe := sm.Lookup(DescribeAliases...); describe != "" {
		bits = append(bits, textutil.Shorten(describe, describeLimit))
	} else if expected := sm.Lookup(ExpectedAliases...); expected != "" {
		bits = append(bits, expectedSummaryHead+textutil.Shorten(expected, expectedLimit))
	}

	return textutil.Shorten(strings.Join(bits, summarySeparator), summaryLimit)
}

// PrimaryTestType names the main test layer for the blueprint.
func PrimaryTestType(needsE2E bool) string {
	if needsE2E {
		return TestTypeCVTWithE2E
	}

	return TestTypeCVT
}

// E2EFallback describes the end-to-end coverage to pair with the component test.
func E2EFallback(needsE2E bool) string {
	if needsE2E {
		return e2eRequiredGuidance
	}

	return e2eOptionalGuidance
}
