package rules_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/bugmatrix/internal/rules"
)

func TestDefault_Loads(t *testing.T) {
	t.Parallel()

	set := rules.Default()

	assert.Len(t, set.ComponentHints.Rules, 11)
	assert.Len(t, set.Assertions.Rules, 7)
	assert.Len(t, set.Mocks.Rules, 6)
	assert.Equal(t, []string{"app", "tests", "ios", "android", "wdio"}, set.PathRoots)
	assert.Equal(t, 180, set.MaxPathLength)
	assert.Contains(t, set.BotAuthorLogins, "github-actions")
	assert.Same(t, set, rules.Default())
}

func TestTable_FirstMatchWins(t *testing.T) {
	t.Parallel()

	hints := rules.Default().ComponentHints

	// "perps" precedes "token" in priority.
	assert.Equal(t, "Perps/Predict view components", hints.Resolve("Perps token balance"))
	assert.Equal(t, "Asset list/detail components", hints.Resolve("Token detail shows zero"))
	assert.Equal(t, hints.Fallback, hints.Resolve("Something unrelated"))
}

func TestTable_MatchIsCaseInsensitive(t *testing.T) {
	t.Parallel()

	value, ok := rules.Default().Assertions.Match("App CRASH after tap")
	require.True(t, ok)
	assert.Equal(t, "Assert no freeze/crash path and that controls remain interactive after the action.", value)
}

func TestPatterns_First(t *testing.T) {
	t.Parallel()

	set := rules.Default()

	match, ok := set.NonBug.First("Closing: Cannot reproduce on 7.2")
	require.True(t, ok)
	assert.Equal(t, "cannot reproduce", match)

	assert.False(t, set.NonBug.Any("reproduced on every launch"))
	assert.True(t, set.NeedsE2E.Any("QR scanner opens blank camera"))
	assert.True(t, set.ExternalTracking.Any("Moved to JIRA"))
	assert.False(t, set.ExternalTracking.Any("stories feature"))
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()

	base := `
mocks: {base: 'Render %s.', fallback: 'x'}
component_hints: {fallback: 'x'}
assertions: {fallback: 'x'}
`

	_, err := rules.Parse([]byte(base + "needs_e2e: ['(unclosed']\n"))
	require.ErrorIs(t, err, rules.ErrInvalidPattern)

	_, err = rules.Parse([]byte("mocks: {base: 'no verb', fallback: 'x'}\n"))
	require.ErrorIs(t, err, rules.ErrMissingMockBase)

	_, err = rules.Parse([]byte("mocks: {base: 'Render %s.', fallback: 'x'}\nassertions: {fallback: 'x'}\n"))
	require.ErrorIs(t, err, rules.ErrMissingFallback)

	_, err = rules.Parse([]byte("component_hints: [not, a, map"))
	require.Error(t, err)

	set, err := rules.Parse([]byte(base))
	require.NoError(t, err)
	assert.Empty(t, set.NeedsE2E)
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "rules.yaml")
	content := `
mocks: {base: 'Render %s.', fallback: 'Mock nothing.'}
component_hints:
  fallback: 'Generic view'
  rules:
    - {pattern: 'wallet', value: 'Wallet view'}
assertions: {fallback: 'Assert it works.'}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	set, err := rules.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Wallet view", set.ComponentHints.Resolve("WALLET screen"))

	_, err = rules.LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
