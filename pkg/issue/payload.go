package issue

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema.json
var payloadSchema []byte

// ErrInvalidPayload is returned for malformed or schema-violating payloads.
var ErrInvalidPayload = errors.New("invalid issue payload")

// maxReportedViolations caps how many schema violations are quoted in an error.
const maxReportedViolations = 5

// Fields lists the JSON fields requested from the tracker for every variant.
var Fields = []string{
	"number", "title", "createdAt", "updatedAt", "closedAt",
	"state", "labels", "url", "body",
}

// ClosedFields lists the extra fields needed to classify closed issues.
var ClosedFields = []string{
	"stateReason", "comments", "closedByPullRequestsReferences",
}

type wireLabel struct {
	Name string `json:"name"`
}

type wireAuthor struct {
	Login string `json:"login"`
}

type wireComment struct {
	Body   string      `json:"body"`
	Author *wireAuthor `json:"author"`
}

type wireReference struct {
	Number int `json:"number"`
}

type wireIssue struct {
	Number      int             `json:"number"`
	Title       string          `json:"title"`
	CreatedAt   string          `json:"createdAt"`
	UpdatedAt   string          `json:"updatedAt"`
	ClosedAt    string          `json:"closedAt"`
	State       string          `json:"state"`
	StateReason string          `json:"stateReason"`
	Labels      []wireLabel     `json:"labels"`
	URL         string          `json:"url"`
	Body        string          `json:"body"`
	Comments    []wireComment   `json:"comments"`
	ClosingPRs  []wireReference `json:"closedByPullRequestsReferences"`
}

// Validate checks a raw payload against the embedded JSON schema.
func Validate(data []byte) error {
	var document any

	decodeErr := json.Unmarshal(data, &document)
	if decodeErr != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPayload, decodeErr)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(payloadSchema),
		gojsonschema.NewGoLoader(document),
	)
	if err != nil {
		return fmt.Errorf("%w: schema: %w", ErrInvalidPayload, err)
	}

	if result.Valid() {
		return nil
	}

	violations := make([]string, 0, maxReportedViolations)
	for i, verr := range result.Errors() {
		if i == maxReportedViolations {
			violations = append(violations, fmt.Sprintf("and %d more", len(result.Errors())-i))

			break
		}

		violations = append(violations, verr.String())
	}

	return fmt.Errorf("%w: %s", ErrInvalidPayload, strings.Join(violations, "; "))
}

// Decode validates the payload and converts it into issues, keeping the
// payload order.
func Decode(data []byte) ([]Issue, error) {
	validateErr := Validate(data)
	if validateErr != nil {
		return nil, validateErr
	}

	var wire []wireIssue

	unmarshalErr := json.Unmarshal(data, &wire)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPayload, unmarshalErr)
	}

	issues := make([]Issue, 0, len(wire))

	for _, w := range wire {
		converted, err := w.toIssue()
		if err != nil {
			return nil, fmt.Errorf("%w: issue #%d: %w", ErrInvalidPayload, w.Number, err)
		}

		issues = append(issues, converted)
	}

	return issues, nil
}

func (w wireIssue) toIssue() (Issue, error) {
	created, err := ParseTimestamp(w.CreatedAt)
	if err != nil {
		return Issue{}, fmt.Errorf("createdAt: %w", err)
	}

	// updatedAt and closedAt are informational; unparsable values are treated as absent.
	updated, _ := ParseTimestamp(w.UpdatedAt)
	closed, _ := ParseTimestamp(w.ClosedAt)

	out := Issue{
		Number:       w.Number,
		Title:        w.Title,
		CreatedAt:    created,
		UpdatedAt:    updated,
		ClosedAt:     closed,
		CreatedAtRaw: w.CreatedAt,
		ClosedAtRaw:  w.ClosedAt,
		State:        w.State,
		StateReason:  w.StateReason,
		URL:          w.URL,
		Body:         w.Body,
		Labels:       make([]string, 0, len(w.Labels)),
		Comments:     make([]Comment, 0, len(w.Comments)),
		ClosingPRs:   make([]int, 0, len(w.ClosingPRs)),
	}

	for _, label := range w.Labels {
		out.Labels = append(out.Labels, label.Name)
	}

	for _, c := range w.Comments {
		comment := Comment{Body: c.Body}
		if c.Author != nil {
			comment.Author = c.Author.Login
		}

		out.Comments = append(out.Comments, comment)
	}

	for _, ref := range w.ClosingPRs {
		out.ClosingPRs = append(out.ClosingPRs, ref.Number)
	}

	return out, nil
}

// ParseTimestamp parses an ISO-8601 UTC timestamp with a trailing "Z".
// Empty input yields the zero time.
func ParseTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}

	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", value, err)
	}

	return parsed.UTC(), nil
}
