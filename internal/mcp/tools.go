package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/bugmatrix/internal/cluster"
	"github.com/Sumatoshi-tech/bugmatrix/internal/matrix"
	"github.com/Sumatoshi-tech/bugmatrix/pkg/issue"
)

// Tool name constants.
const (
	ToolNameClassify = "bugmatrix_classify"
	ToolNameTitleKey = "bugmatrix_title_key"
)

// Defaults applied to empty classify inputs.
const (
	defaultVariant      = matrix.VariantAll
	defaultBugLabel     = "type-bug"
	defaultLookbackDays = 30
)

// MaxPayloadBytes is the maximum allowed size for an inline issue payload (8 MB).
const MaxPayloadBytes = 8 << 20

// Sentinel errors for tool input validation.
var (
	// ErrEmptyPayload indicates the payload parameter is empty.
	ErrEmptyPayload = errors.New("payload parameter is required and must not be empty")
	// ErrPayloadTooLarge indicates the payload exceeds the size limit.
	ErrPayloadTooLarge = errors.New("payload exceeds maximum size")
	// ErrInvalidNow indicates the now parameter is not an RFC 3339 timestamp.
	ErrInvalidNow = errors.New("now must be an RFC 3339 timestamp")
	// ErrNoTitles indicates the titles parameter is empty.
	ErrNoTitles = errors.New("titles parameter is required and must not be empty")
)

// Input types (auto-generate JSON schemas via struct tags).

// ClassifyInput is the input schema for the bugmatrix_classify tool.
type ClassifyInput struct {
	BugLabel     string `json:"bug_label,omitempty"     jsonschema:"label marking bug reports (default: type-bug)"`
	LookbackDays int    `json:"lookback_days,omitempty" jsonschema:"creation-date window in days (default: 30)"`
	Now          string `json:"now,omitempty"           jsonschema:"RFC 3339 anchor of the lookback window (default: current time)"`
	Payload      string `json:"payload"                 jsonschema:"JSON array produced by gh issue list --json"`
	Variant      string `json:"variant,omitempty"       jsonschema:"all, open or closed (default: all)"`
}

// TitleKeyInput is the input schema for the bugmatrix_title_key tool.
type TitleKeyInput struct {
	Titles []string `json:"titles" jsonschema:"issue titles to normalize"`
}

// ClassifyResult is the JSON body of a classify call.
type ClassifyResult struct {
	Variant  matrix.Variant `json:"variant"`
	Fetched  int            `json:"fetched"`
	InScope  int            `json:"in_scope"`
	Clusters int            `json:"clusters"`
	Rows     []matrix.Row   `json:"rows"`
}

// TitleKey pairs a title with its cluster key.
type TitleKey struct {
	Title string `json:"title"`
	Key   string `json:"key"`
}

// Output type (used as structured output for generic AddTool).

// ToolOutput is a generic wrapper for tool results.
type ToolOutput struct {
	Data any `json:"data"`
}

func (s *Server) handleClassify(
	ctx context.Context,
	_ *mcpsdk.CallToolRequest,
	input ClassifyInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	scope, err := s.classifyScope(input)
	if err != nil {
		return errorResult(err)
	}

	issues, err := issue.Decode([]byte(input.Payload))
	if err != nil {
		return errorResult(err)
	}

	result, err := matrix.Generate(ctx, issues, matrix.Options{
		Scope:  scope,
		Rules:  s.rules,
		Tracer: s.tracer,
		Logger: s.logger,
	})
	if err != nil {
		return errorResult(fmt.Errorf("generate matrix: %w", err))
	}

	return jsonResult(ClassifyResult{
		Variant:  scope.Variant,
		Fetched:  result.Fetched,
		InScope:  result.InScope,
		Clusters: result.Clusters,
		Rows:     result.Rows,
	})
}

func (s *Server) classifyScope(input ClassifyInput) (matrix.Scope, error) {
	if input.Payload == "" {
		return matrix.Scope{}, ErrEmptyPayload
	}

	if len(input.Payload) > MaxPayloadBytes {
		return matrix.Scope{}, fmt.Errorf("%w: %d bytes (max %d)", ErrPayloadTooLarge, len(input.Payload), MaxPayloadBytes)
	}

	variant := defaultVariant
	if input.Variant != "" {
		parsed, err := matrix.ParseVariant(input.Variant)
		if err != nil {
			return matrix.Scope{}, err
		}

		variant = parsed
	}

	now := s.now()
	if input.Now != "" {
		parsed, err := time.Parse(time.RFC3339, input.Now)
		if err != nil {
			return matrix.Scope{}, fmt.Errorf("%w: %q", ErrInvalidNow, input.Now)
		}

		now = parsed
	}

	bugLabel := input.BugLabel
	if bugLabel == "" {
		bugLabel = defaultBugLabel
	}

	lookbackDays := input.LookbackDays
	if lookbackDays <= 0 {
		lookbackDays = defaultLookbackDays
	}

	return matrix.Scope{
		Variant:  variant,
		BugLabel: bugLabel,
		Lookback: time.Duration(lookbackDays) * 24 * time.Hour,
		Now:      now,
	}, nil
}

func handleTitleKey(
	_ context.Context,
	_ *mcpsdk.CallToolRequest,
	input TitleKeyInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if len(input.Titles) == 0 {
		return errorResult(ErrNoTitles)
	}

	keys := make([]TitleKey, 0, len(input.Titles))
	for _, title := range input.Titles {
		keys = append(keys, TitleKey{Title: title, Key: cluster.TitleKey(title)})
	}

	return jsonResult(keys)
}

// Result helpers.

// errorResult builds a CallToolResult with isError set.
func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: err.Error()},
		},
		IsError: true,
	}, ToolOutput{}, nil
}

// jsonResult builds a CallToolResult with JSON-encoded content.
func jsonResult(value any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encode result: %w", err))
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: string(data)},
		},
	}, ToolOutput{Data: value}, nil
}
