package cli_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bodis/ai-review-cicd-actions/internal/adapters/inbound/cli"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "ai-review-config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestValidateCmd_DefaultsAreValid(t *testing.T) {
	tmpDir := t.TempDir()

	root := cli.NewRootCmdForTest()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"validate", tmpDir})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "configuration valid")
}

func TestValidateCmd_JSONOutput(t *testing.T) {
	tmpDir := t.TempDir()

	root := cli.NewRootCmdForTest()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"validate", tmpDir, "--json"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), `"aspects"`)
	assert.Contains(t, out.String(), `"blocking"`)
}

func TestValidateCmd_RejectsNegativeThreshold(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, "blocking:\n  max_findings:\n    high: -1\n")

	root := cli.NewRootCmdForTest()
	root.SetArgs([]string{"validate", tmpDir})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestValidateCmd_RejectsUnknownAspectKind(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, `
review:
  aspects:
    - name: mystery
      kind: quantum
      execution: parallel
`)

	root := cli.NewRootCmdForTest()
	root.SetArgs([]string{"validate", tmpDir})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown kind")
}

func TestValidateCmd_ExplicitConfigFlag(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "custom.yml")
	require.NoError(t, os.WriteFile(path, []byte("ai:\n  model: custom-model\n"), 0o644))

	root := cli.NewRootCmdForTest()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"validate", tmpDir, "--config", path, "--json"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "custom-model")
}
