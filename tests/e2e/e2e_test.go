package e2e_test

import (
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bodis/ai-review-cicd-actions/internal/domain"
)

var binaryPath string

func TestMain(m *testing.M) {
	// Build binary before running tests
	dir, err := os.MkdirTemp("", "ai-review-e2e")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(dir)

	binaryPath = filepath.Join(dir, "ai-review")
	cmd := exec.Command("go", "build", "-o", binaryPath, "../../cmd/ai-review")
	if out, err := cmd.CombinedOutput(); err != nil {
		panic("build failed: " + string(out))
	}

	os.Exit(m.Run())
}

func fixturePath(t *testing.T, name string) string {
	t.Helper()
	abs, err := filepath.Abs(filepath.Join("../../testdata/configs", name))
	require.NoError(t, err)
	return abs
}

func run(t *testing.T, args ...string) (string, int) {
	t.Helper()
	cmd := exec.Command(binaryPath, args...)
	out, err := cmd.CombinedOutput()
	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
	}
	return string(out), exitCode
}

// --- Version ---

func TestE2E_Version(t *testing.T) {
	out, code := run(t, "version")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "ai-review")
}

// --- Validate ---

func TestE2E_ValidateDefaults(t *testing.T) {
	out, code := run(t, "validate", t.TempDir())
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "configuration valid")
}

func TestE2E_ValidateStaticOnlyConfig(t *testing.T) {
	_, code := run(t, "validate", t.TempDir(), "--config", fixturePath(t, "static-only.yml"))
	assert.Equal(t, 0, code)
}

func TestE2E_ValidateInvalidConfig(t *testing.T) {
	_, code := run(t, "validate", t.TempDir(), "--config", fixturePath(t, "invalid.yml"))
	assert.NotEqual(t, 0, code)
}

// --- Review ---

// gitRepo builds a throwaway repository with a main branch and a feature
// branch that adds one Go file, so the local platform has a diff to
// review.
func gitRepo(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	dir := t.TempDir()
	git := func(args ...string) {
		t.Helper()
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=e2e", "GIT_AUTHOR_EMAIL=e2e@test",
			"GIT_COMMITTER_NAME=e2e", "GIT_COMMITTER_EMAIL=e2e@test")
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, "git %v: %s", args, out)
	}

	git("init", "-q")
	git("checkout", "-q", "-b", "main")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"),
		[]byte("package main\n\nfunc main() {}\n"), 0o644))
	git("add", ".")
	git("commit", "-q", "-m", "initial")

	git("checkout", "-q", "-b", "feature")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "handler.go"),
		[]byte("package main\n\nfunc handler() int { return 1 }\n"), 0o644))
	git("add", ".")
	git("commit", "-q", "-m", "add handler")

	return dir
}

func TestE2E_ReviewLocalDiffApproves(t *testing.T) {
	repo := gitRepo(t)

	// Static tools are not expected on the test machine; missing tools
	// are skipped, so a clean diff approves.
	_, code := run(t, "review",
		"--path", repo,
		"--base", "main",
		"--head", "feature",
		"--config", fixturePath(t, "static-only.yml"),
		"--no-post")
	assert.Equal(t, 0, code)

	data, err := os.ReadFile(filepath.Join(repo, ".ai-review", "report.json"))
	require.NoError(t, err)

	var report domain.ReviewReport
	require.NoError(t, json.Unmarshal(data, &report))
	assert.False(t, report.Verdict.ShouldBlock)
	assert.NotNil(t, report.Summary.CountsBySeverity)
}

func TestE2E_ReviewJSONOutput(t *testing.T) {
	repo := gitRepo(t)

	out, code := run(t, "review",
		"--path", repo,
		"--base", "main",
		"--head", "feature",
		"--config", fixturePath(t, "static-only.yml"),
		"--output", filepath.Join(repo, "report.json"),
		"--json",
		"--no-post")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, `"should_block"`)
}

func TestE2E_ReviewOutsideGitRepoFails(t *testing.T) {
	_, code := run(t, "review",
		"--path", t.TempDir(),
		"--config", fixturePath(t, "static-only.yml"),
		"--no-post")
	assert.NotEqual(t, 0, code)
}
