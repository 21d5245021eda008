package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const older = `@prefix ferag: <http://example.org/ferag#> .
ferag:Alice a ferag:Person ; ferag:description "Engineer" .
`

const newer = `@prefix ferag: <http://example.org/ferag#> .
ferag:Alice a ferag:Person ; ferag:description "VP of AI" .
`

func TestMergeTriplesCommand(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.ttl")
	b := filepath.Join(dir, "b.ttl")
	out := filepath.Join(dir, "merged.ttl")
	require.NoError(t, os.WriteFile(a, []byte(older), 0o644))
	require.NoError(t, os.WriteFile(b, []byte(newer), 0o644))

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetArgs([]string{"merge", "triples", a, b, "-o", out})
	require.NoError(t, Execute())

	assert.Contains(t, stdout.String(), "Descriptions overridden by B: 1")
	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"VP of AI"`)
	assert.NotContains(t, string(raw), "Engineer")
}

func TestVerifyRejectsBadID(t *testing.T) {
	rootCmd.SetArgs([]string{"verify", "abc"})
	err := Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid rag id")
}
