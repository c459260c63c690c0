// Package platform supplies the change request under review and reports
// the outcome back to the hosting service. GitHub Actions and GitLab CI
// are detected from their environments; anywhere else a local git
// adapter serves the diff and prints the summary.
package platform

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/bodis/ai-review-cicd-actions/internal/domain"
)

// statusContext names the commit status check this tool owns.
const statusContext = "ai-review"

// Options carries adapter inputs. Empty fields fall back to the
// corresponding CI environment variables.
type Options struct {
	RepoPath string // local checkout path
	BaseRev  string // local diff base, default main
	HeadRev  string // local diff head, default HEAD
	Number   int    // PR/MR number when not inferable from the environment
	Token    string
	Out      io.Writer // local adapter's summary destination
	Log      *zap.SugaredLogger
}

// Detect picks the adapter for the current environment: GitLab CI, then
// GitHub Actions, then the local git fallback.
func Detect(opts Options) (domain.Platform, error) {
	switch {
	case os.Getenv("GITLAB_CI") != "":
		return NewGitLab(opts)
	case os.Getenv("GITHUB_ACTIONS") != "":
		return NewGitHub(opts)
	default:
		return NewLocal(opts)
	}
}

// writePatch frames one file's bare hunks with git-style headers so the
// assembled output parses as a regular unified diff. Hosted APIs return
// hunks only.
func writePatch(b *strings.Builder, path, oldPath, status, hunks string) {
	if hunks == "" {
		return
	}
	if oldPath == "" {
		oldPath = path
	}
	oldSide, newSide := "a/"+oldPath, "b/"+path
	switch status {
	case "added":
		oldSide = "/dev/null"
	case "removed", "deleted":
		newSide = "/dev/null"
	}
	fmt.Fprintf(b, "diff --git a/%s b/%s\n--- %s\n+++ %s\n%s\n",
		oldPath, path, oldSide, newSide, strings.TrimRight(hunks, "\n"))
}
