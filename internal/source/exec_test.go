package source

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubGH(t *testing.T, stdout, stderr string, err error) *[]string {
	t.Helper()

	var gotArgs []string

	original := ghExec
	ghExec = func(_ context.Context, args ...string) (bytes.Buffer, bytes.Buffer, error) {
		gotArgs = args

		return *bytes.NewBufferString(stdout), *bytes.NewBufferString(stderr), err
	}

	t.Cleanup(func() { ghExec = original })

	return &gotArgs
}

func TestGHSource_PassesArgs(t *testing.T) {
	gotArgs := stubGH(t, "[]", "", nil)

	src := &GHSource{Repository: "acme/wallet", Limit: 3}

	issues, err := src.Fetch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, issues)
	assert.Equal(t, src.Args(), *gotArgs)
}

func TestGHSource_WrapsExecError(t *testing.T) {
	execErr := errors.New("gh execution failed: exit status 4")
	stubGH(t, "", "gh: To get started with GitHub CLI, please run:  gh auth login\n", execErr)

	_, err := (&GHSource{Repository: "acme/wallet", Limit: 3}).Fetch(context.Background())
	require.ErrorIs(t, err, ErrRetrieval)
	require.ErrorIs(t, err, execErr)
	assert.Contains(t, err.Error(), "gh issue list")
	assert.Contains(t, err.Error(), "gh auth login")
}

func TestStderrSuffix(t *testing.T) {
	t.Parallel()

	assert.Empty(t, stderrSuffix("  \n"))
	assert.Equal(t, ": boom", stderrSuffix("boom\n"))
	assert.Len(t, stderrSuffix(strings.Repeat("x", 2000)), len(": ")+maxStderrInError+len("..."))
}
