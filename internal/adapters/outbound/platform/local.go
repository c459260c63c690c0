package platform

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"go.uber.org/zap"

	"github.com/bodis/ai-review-cicd-actions/internal/domain"
)

const defaultBaseRev = "main"

// Local serves a review from a git checkout, diffing a head revision
// (default HEAD) against a base revision. Summaries go to the
// configured writer; there is no commit status to set.
type Local struct {
	repoPath string
	baseRev  string
	headRev  string
	out      io.Writer
	log      *zap.SugaredLogger
}

func NewLocal(opts Options) (*Local, error) {
	repoPath := opts.RepoPath
	if repoPath == "" {
		repoPath = "."
	}
	baseRev := opts.BaseRev
	if baseRev == "" {
		baseRev = defaultBaseRev
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Local{repoPath: repoPath, baseRev: baseRev, headRev: opts.HeadRev, out: out, log: log}, nil
}

func (l *Local) Name() string { return "local" }

// Context diffs the merge base of the head and base revisions against
// the head, mirroring what a hosted PR diff would contain.
func (l *Local) Context(ctx context.Context) (*domain.ChangeRequest, error) {
	repo, err := git.PlainOpen(l.repoPath)
	if err != nil {
		return nil, fmt.Errorf("opening git repo at %s: %w", l.repoPath, err)
	}

	headName := l.headRev
	var headHash plumbing.Hash
	if l.headRev == "" {
		headRef, err := repo.Head()
		if err != nil {
			return nil, fmt.Errorf("resolving HEAD: %w", err)
		}
		headName = headRef.Name().Short()
		headHash = headRef.Hash()
	} else {
		h, err := repo.ResolveRevision(plumbing.Revision(l.headRev))
		if err != nil {
			return nil, fmt.Errorf("resolving head revision %q: %w", l.headRev, err)
		}
		headHash = *h
	}
	headCommit, err := repo.CommitObject(headHash)
	if err != nil {
		return nil, err
	}

	baseHash, err := repo.ResolveRevision(plumbing.Revision(l.baseRev))
	if err != nil {
		return nil, fmt.Errorf("resolving base revision %q: %w", l.baseRev, err)
	}
	baseCommit, err := repo.CommitObject(*baseHash)
	if err != nil {
		return nil, err
	}

	if bases, err := baseCommit.MergeBase(headCommit); err == nil && len(bases) > 0 {
		baseCommit = bases[0]
	}

	patch, err := baseCommit.PatchContext(ctx, headCommit)
	if err != nil {
		return nil, fmt.Errorf("diffing %s..%s: %w", l.baseRev, headName, err)
	}

	change := &domain.ChangeRequest{
		Title:      firstLine(headCommit.Message),
		Author:     headCommit.Author.Name,
		BaseBranch: l.baseRev,
		HeadBranch: headName,
		HeadSHA:    headHash.String(),
		RepoPath:   l.repoPath,
		Diff:       patch.String(),
	}
	for _, fp := range patch.FilePatches() {
		from, to := fp.Files()
		switch {
		case to != nil:
			change.ChangedFiles = append(change.ChangedFiles, to.Path())
		case from != nil:
			change.ChangedFiles = append(change.ChangedFiles, from.Path())
		}
	}

	l.log.Infow("built local change context",
		"base", l.baseRev, "head", change.HeadBranch, "files", len(change.ChangedFiles))
	return change, nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// PostSummary writes the rendered markdown to the output writer.
func (l *Local) PostSummary(_ context.Context, markdown string) error {
	_, err := fmt.Fprintln(l.out, markdown)
	return err
}

func (l *Local) UpdateStatus(_ context.Context, state domain.StatusState, description string) error {
	l.log.Infow("review status", "state", state, "description", description)
	return nil
}
