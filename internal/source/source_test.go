package source_test

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/bugmatrix/internal/source"
	"github.com/Sumatoshi-tech/bugmatrix/pkg/issue"
)

const payload = `[{"number": 12, "title": "Swap fails", "createdAt": "2026-10-10T10:00:00Z",
"state": "OPEN", "labels": [{"name": "type-bug"}], "url": "https://x/12", "body": "b"}]`

// fakeGH writes an executable script that records its arguments and prints
// out, and points GH_PATH at it. Tests using it stay sequential: exec of a
// freshly written file can fail with ETXTBSY while parallel tests fork.
func fakeGH(t *testing.T, out string, exitCode int) (binary, argsFile string) {
	t.Helper()

	dir := t.TempDir()
	binary = filepath.Join(dir, "gh")
	argsFile = filepath.Join(dir, "args")
	payloadFile := filepath.Join(dir, "payload.json")

	require.NoError(t, os.WriteFile(payloadFile, []byte(out), 0o600))

	script := "#!/bin/sh\n" +
		"printf '%s\\n' \"$@\" > '" + argsFile + "'\n" +
		"cat '" + payloadFile + "'\n" +
		"echo 'gh: simulated stderr' >&2\n" +
		"exit " + strconv.Itoa(exitCode) + "\n"
	require.NoError(t, os.WriteFile(binary, []byte(script), 0o700))
	t.Setenv(source.PathEnv, binary)

	return binary, argsFile
}

func TestGHSource_Args(t *testing.T) {
	t.Parallel()

	src := &source.GHSource{Repository: "acme/wallet", State: "closed", Limit: 1000, Classified: true}

	assert.Equal(t, []string{
		"issue", "list",
		"--repo", "acme/wallet",
		"--state", "closed",
		"--limit", "1000",
		"--json", "number,title,createdAt,updatedAt,closedAt,state,labels,url,body," +
			"stateReason,comments,closedByPullRequestsReferences",
	}, src.Args())

	plain := &source.GHSource{Repository: "acme/wallet", Limit: 5}
	assert.Contains(t, plain.Args(), "all")
	assert.Contains(t, plain.Args(), strings.Join(issue.Fields, ","))
}

func TestGHSource_Fetch(t *testing.T) {
	_, argsFile := fakeGH(t, payload, 0)
	src := &source.GHSource{Repository: "acme/wallet", State: "open", Limit: 10}

	issues, err := src.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, 12, issues[0].Number)

	recorded, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	assert.Equal(t, strings.Join(src.Args(), "\n")+"\n", string(recorded))
}

func TestGHSource_CommandFailure(t *testing.T) {
	fakeGH(t, "", 1)
	src := &source.GHSource{Repository: "acme/wallet", Limit: 10}

	_, err := src.Fetch(context.Background())
	require.ErrorIs(t, err, source.ErrRetrieval)
	assert.Contains(t, err.Error(), "simulated stderr")
}

func TestGHSource_MissingBinary(t *testing.T) {
	t.Setenv(source.PathEnv, filepath.Join(t.TempDir(), "no-such-gh"))

	src := &source.GHSource{Repository: "acme/wallet", Limit: 10}

	_, err := src.Fetch(context.Background())
	require.ErrorIs(t, err, source.ErrRetrieval)
}

func TestGHSource_InvalidPayload(t *testing.T) {
	fakeGH(t, `{"not": "a list"}`, 0)
	src := &source.GHSource{Repository: "acme/wallet", Limit: 10}

	_, err := src.Fetch(context.Background())
	require.ErrorIs(t, err, issue.ErrInvalidPayload)
}

func TestGHSource_RequiresRepository(t *testing.T) {
	t.Parallel()

	_, err := (&source.GHSource{}).Fetch(context.Background())
	require.ErrorIs(t, err, source.ErrNoRepository)
}

func TestExportBinary(t *testing.T) {
	t.Setenv(source.PathEnv, "")

	require.NoError(t, source.ExportBinary(source.DefaultBinary))
	assert.Empty(t, os.Getenv(source.PathEnv))

	require.NoError(t, source.ExportBinary("/opt/gh/bin/gh"))
	assert.Equal(t, "/opt/gh/bin/gh", os.Getenv(source.PathEnv))
}

func TestFileSource(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "issues.json")
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o600))

	issues, err := (&source.FileSource{Path: path}).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, "Swap fails", issues[0].Title)

	_, err = (&source.FileSource{Path: filepath.Join(t.TempDir(), "missing.json")}).Fetch(context.Background())
	require.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("[{"), 0o600))

	_, err = (&source.FileSource{Path: bad}).Fetch(context.Background())
	require.ErrorIs(t, err, issue.ErrInvalidPayload)
}
