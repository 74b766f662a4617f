// Package source retrieves the issue payload, either from the gh CLI or
// from a previously saved JSON file.
package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	gh "github.com/cli/go-gh/v2"
	"github.com/dustin/go-humanize"

	"github.com/Sumatoshi-tech/bugmatrix/pkg/issue"
)

// Sentinel errors for issue retrieval.
var (
	// ErrRetrieval indicates the gh command failed.
	ErrRetrieval = errors.New("issue retrieval failed")
	// ErrNoRepository indicates GHSource was used without a repository.
	ErrNoRepository = errors.New("repository is required")
)

// DefaultBinary is the gh executable looked up on PATH.
const DefaultBinary = "gh"

// PathEnv names the variable go-gh reads to locate a non-default gh binary.
const PathEnv = "GH_PATH"

// maxStderrInError caps how much gh stderr is quoted in errors.
const maxStderrInError = 512

// Source yields the issues of one run.
type Source interface {
	Fetch(ctx context.Context) ([]issue.Issue, error)
}

// ghExec runs gh with the caller's auth; replaced in tests.
var ghExec = gh.ExecContext

// GHSource lists issues with `gh issue list`. The binary is found through
// PathEnv or PATH.
type GHSource struct {
	Repository string
	// State is passed to --state: open, closed or all.
	State string
	Limit int
	// Classified requests the extra fields used by the closed-issue classifiers.
	Classified bool
	Logger     *slog.Logger
}

// Args returns the gh arguments for the configured listing.
func (s *GHSource) Args() []string {
	fields := append([]string{}, issue.Fields...)
	if s.Classified {
		fields = append(fields, issue.ClosedFields...)
	}

	state := s.State
	if state == "" {
		state = "all"
	}

	return []string{
		"issue", "list",
		"--repo", s.Repository,
		"--state", state,
		"--limit", strconv.Itoa(s.Limit),
		"--json", strings.Join(fields, ","),
	}
}

// Fetch runs gh and decodes its JSON output.
func (s *GHSource) Fetch(ctx context.Context) ([]issue.Issue, error) {
	if s.Repository == "" {
		return nil, ErrNoRepository
	}

	args := s.Args()

	logger(s.Logger).DebugContext(ctx, "running gh", "repository", s.Repository, "state", s.State, "limit", s.Limit)

	stdout, stderr, runErr := ghExec(ctx, args...)
	if runErr != nil {
		return nil, fmt.Errorf("%w: gh %s: %w%s", ErrRetrieval, strings.Join(args[:2], " "),
			runErr, stderrSuffix(stderr.String()))
	}

	logger(s.Logger).InfoContext(ctx, "issues retrieved",
		"repository", s.Repository, "payload", humanize.Bytes(uint64(stdout.Len())))

	return issue.Decode(stdout.Bytes())
}

// ExportBinary points go-gh at binary through PathEnv. An empty value or the
// bare DefaultBinary keeps the PATH lookup.
func ExportBinary(binary string) error {
	if binary == "" || binary == DefaultBinary {
		return nil
	}

	setErr := os.Setenv(PathEnv, binary)
	if setErr != nil {
		return fmt.Errorf("set %s: %w", PathEnv, setErr)
	}

	return nil
}

func stderrSuffix(stderr string) string {
	trimmed := strings.TrimSpace(stderr)
	if trimmed == "" {
		return ""
	}

	if len(trimmed) > maxStderrInError {
		trimmed = trimmed[:maxStderrInError] + "..."
	}

	return ": " + trimmed
}

// FileSource reads a saved `gh issue list --json` payload.
type FileSource struct {
	Path   string
	Logger *slog.Logger
}

// Fetch reads and decodes the payload file.
func (s *FileSource) Fetch(ctx context.Context) ([]issue.Issue, error) {
	data, readErr := os.ReadFile(s.Path)
	if readErr != nil {
		return nil, fmt.Errorf("read issues %s: %w", s.Path, readErr)
	}

	logger(s.Logger).InfoContext(ctx, "issues loaded",
		"path", s.Path, "payload", humanize.Bytes(uint64(len(data))))

	issues, decodeErr := issue.Decode(data)
	if decodeErr != nil {
		return nil, fmt.Errorf("%s: %w", s.Path, decodeErr)
	}

	return issues, nil
}

func logger(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}

	return l
}
