package matrix

import (
	"time"

	"github.com/Sumatoshi-tech/bugmatrix/internal/classify"
	"github.com/Sumatoshi-tech/bugmatrix/internal/cluster"
	"github.com/Sumatoshi-tech/bugmatrix/internal/extract"
	"github.com/Sumatoshi-tech/bugmatrix/internal/rules"
	"github.com/Sumatoshi-tech/bugmatrix/pkg/issue"
	"github.com/Sumatoshi-tech/bugmatrix/pkg/textutil"
)

// Row is one issue of the matrix. Rows are created once and never mutated.
type Row struct {
	Number       int       `json:"number"`
	URL          string    `json:"url"`
	CreatedAt    time.Time `json:"created_at"`
	CreatedAtRaw string    `json:"created_at_raw"`
	UpdatedAt    time.Time `json:"updated_at,omitzero"`
	ClosedAtRaw  string    `json:"closed_at_raw,omitempty"`
	State        string    `json:"state"`
	StateReason  string    `json:"state_reason,omitempty"`
	Title        string    `json:"title"`

	TeamLabels     []string `json:"team_labels,omitempty"`
	SeverityLabels []string `json:"severity_labels,omitempty"`
	SeverityTop    string   `json:"severity_top"`
	SeverityRank   int      `json:"severity_rank"`

	Summary            string   `json:"summary"`
	ComponentCandidate string   `json:"component_candidate"`
	Mocks              string   `json:"mocks"`
	Steps              string   `json:"steps"`
	Assertions         string   `json:"assertions"`
	PrimaryTestType    string   `json:"primary_test_type"`
	E2EFallback        string   `json:"e2e_fallback"`
	MetadataGaps       []string `json:"metadata_gaps,omitempty"`

	Realness           classify.Realness `json:"realness,omitempty"`
	RealnessEvidence   string            `json:"realness_evidence,omitempty"`
	ResolutionLayer    classify.Layer    `json:"resolution_layer,omitempty"`
	ResolutionEvidence string            `json:"resolution_evidence,omitempty"`
	MobileImpact       string            `json:"mobile_impact,omitempty"`
	Verdict            string            `json:"verdict,omitempty"`
	Confidence         string            `json:"confidence,omitempty"`
	ValidityAnalysis   string            `json:"validity_analysis,omitempty"`
	RecommendedTest    string            `json:"recommended_test,omitempty"`
	TestPlan           string            `json:"test_plan,omitempty"`

	ClusterSiblings []int `json:"cluster_siblings,omitempty"`
	// CanonicalIssue is always a member of the row's title cluster, or the
	// row's own number when the issue is unclustered.
	CanonicalIssue int `json:"canonical_issue"`
}

// Teams joins the team labels, or returns "Unlabeled".
func (r Row) Teams() string {
	return extract.JoinLabels(r.TeamLabels)
}

// Severities joins the severity labels, or returns "Unlabeled".
func (r Row) Severities() string {
	return extract.JoinLabels(r.SeverityLabels)
}

// Builder composes extraction and classification into rows. A Builder only
// reads shared state and is safe for concurrent use.
type Builder struct {
	extractor  *extract.Extractor
	classifier *classify.Classifier
	clusters   *cluster.Index
}

// NewBuilder creates a Builder over a batch's cluster index.
func NewBuilder(set *rules.Set, clusters *cluster.Index) *Builder {
	return &Builder{
		extractor:  extract.New(set),
		classifier: classify.New(set),
		clusters:   clusters,
	}
}

// Build produces the row for one issue.
func (b *Builder) Build(iss issue.Issue) Row {
	fields := b.extractor.Extract(iss)
	cl := b.clusters.For(iss.Title)

	in := b.classifier.NewInput(iss, cl)
	realness := b.classifier.Realness(in)
	resolution := b.classifier.ResolutionLayer(in, realness)
	validity := classify.Verdict(realness, resolution, in.SiblingCount())
	canonical := cluster.Canonical(cl, iss.Number)

	rec := classify.Recommend(classify.RecommendInput{
		Number:     iss.Number,
		Canonical:  canonical,
		Validity:   validity,
		Resolution: resolution,
		Fields:     fields,
	})

	var siblings []int
	if cl != nil {
		siblings = cl.Siblings(iss.Number)
	}

	return Row{
		Number:       iss.Number,
		URL:          iss.URL,
		CreatedAt:    iss.CreatedAt,
		CreatedAtRaw: iss.CreatedAtRaw,
		UpdatedAt:    iss.UpdatedAt,
		ClosedAtRaw:  iss.ClosedAtRaw,
		State:        iss.State,
		StateReason:  iss.StateReason,
		Title:        textutil.CleanTitle(iss.Title),

		TeamLabels:     fields.Teams,
		SeverityLabels: fields.Severities,
		SeverityTop:    fields.SeverityTop,
		SeverityRank:   fields.SeverityRank,

		Summary:            fields.Summary,
		ComponentCandidate: fields.ComponentCandidate,
		Mocks:              fields.Mocks,
		Steps:              fields.StepsSnippet,
		Assertions:         fields.Assertion,
		PrimaryTestType:    fields.PrimaryTestType,
		E2EFallback:        fields.E2EFallback,
		MetadataGaps:       fields.MetadataGaps,

		Realness:           realness.Label,
		RealnessEvidence:   realness.Evidence,
		ResolutionLayer:    resolution.Layer,
		ResolutionEvidence: resolution.Evidence,
		MobileImpact:       classify.MobileImpact(resolution),
		Verdict:            validity.Verdict,
		Confidence:         validity.Confidence,
		ValidityAnalysis:   validity.Analysis,
		RecommendedTest:    rec.TestType,
		TestPlan:           rec.Plan,

		ClusterSiblings: siblings,
		CanonicalIssue:  canonical,
	}
}
