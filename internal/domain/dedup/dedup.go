// Package dedup merges findings that describe the same underlying issue.
// A deterministic exact pass groups findings with matching position and
// near-identical messages; an optional fuzzy pass asks a cheap AI
// classification call about findings from different sources that sit
// close together in the same file. Deduplication is a quality
// improvement, never a correctness requirement: any fuzzy failure falls
// back to keeping findings distinct.
package dedup

import (
	"context"

	"go.uber.org/zap"

	"github.com/bodis/ai-review-cicd-actions/internal/domain"
)

// Config tunes the two passes.
type Config struct {
	// Fuzzy enables the batched AI classification pass.
	Fuzzy bool
	// LineWindow is the maximum line distance between fuzzy candidates.
	LineWindow int
	// SimilarityThreshold is the word-overlap ratio at which two
	// messages count as near-identical in the exact pass.
	SimilarityThreshold float64
}

func DefaultConfig() Config {
	return Config{Fuzzy: true, LineWindow: 3, SimilarityThreshold: 0.7}
}

// Deduplicator merges finding lists. A nil client disables the fuzzy
// pass regardless of configuration.
type Deduplicator struct {
	client domain.AIClient
	cfg    Config
	log    *zap.SugaredLogger
}

func New(client domain.AIClient, cfg Config, log *zap.SugaredLogger) *Deduplicator {
	if cfg.LineWindow <= 0 {
		cfg.LineWindow = DefaultConfig().LineWindow
	}
	if cfg.SimilarityThreshold <= 0 {
		cfg.SimilarityThreshold = DefaultConfig().SimilarityThreshold
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Deduplicator{client: client, cfg: cfg, log: log}
}

// Dedupe lifts raw findings into merged findings and merges them.
func (d *Deduplicator) Dedupe(ctx context.Context, findings []domain.Finding) []domain.MergedFinding {
	lifted := make([]domain.MergedFinding, 0, len(findings))
	for _, f := range findings {
		lifted = append(lifted, domain.NewMergedFinding(f))
	}
	return d.Merge(ctx, lifted)
}

// Merge runs the exact pass and, when enabled, the fuzzy pass. Merging
// is idempotent: re-running over an already-merged list never lowers a
// severity and never drops an absorbed source.
func (d *Deduplicator) Merge(ctx context.Context, findings []domain.MergedFinding) []domain.MergedFinding {
	merged := d.exactPass(findings)
	if d.cfg.Fuzzy && d.client != nil {
		merged = d.fuzzyPass(ctx, merged)
	}
	return merged
}

// exactKey is the deterministic grouping key: findings can only be
// exact-duplicates when they point at the same place and category.
type exactKey struct {
	file     string
	line     int
	category domain.Category
}

func (d *Deduplicator) exactPass(findings []domain.MergedFinding) []domain.MergedFinding {
	type group struct {
		norm    string
		tokens  map[string]bool
		members []domain.MergedFinding
	}
	var ordered []*group
	buckets := make(map[exactKey][]*group)

	for _, f := range findings {
		key := exactKey{file: f.FilePath, line: f.LineNumber, category: f.Category}
		var target *group
		for _, g := range buckets[key] {
			if g.norm == normalizeMessage(f.Message) || similarity(g.tokens, tokenSet(f.Message)) >= d.cfg.SimilarityThreshold {
				target = g
				break
			}
		}
		if target == nil {
			target = &group{norm: normalizeMessage(f.Message), tokens: tokenSet(f.Message)}
			buckets[key] = append(buckets[key], target)
			ordered = append(ordered, target)
		}
		target.members = append(target.members, f)
	}

	out := make([]domain.MergedFinding, 0, len(ordered))
	for _, g := range ordered {
		out = append(out, mergeGroup(g.members))
	}
	return out
}

// mergeGroup collapses a duplicate group into one finding: the highest
// severity member is the representative (first wins a tie), the line is
// the earliest reported, the suggestion and rule id are the first
// non-empty ones, and sources are the sorted union of everything
// absorbed.
func mergeGroup(members []domain.MergedFinding) domain.MergedFinding {
	rep := members[0]
	for _, m := range members[1:] {
		if m.Severity.Rank() > rep.Severity.Rank() {
			rep = m
		}
	}
	out := rep

	line := 0
	for _, m := range members {
		if m.LineNumber > 0 && (line == 0 || m.LineNumber < line) {
			line = m.LineNumber
		}
	}
	out.LineNumber = line

	out.Suggestion = ""
	out.RuleID = ""
	for _, m := range members {
		if out.Suggestion == "" && m.Suggestion != "" {
			out.Suggestion = m.Suggestion
		}
		if out.RuleID == "" && m.RuleID != "" {
			out.RuleID = m.RuleID
		}
	}

	sets := make([][]string, 0, len(members))
	for _, m := range members {
		sets = append(sets, m.Sources)
	}
	out.Sources = domain.UnionSources(sets...)
	return out
}

// sourcesDisjoint reports whether two merged findings share no source.
// Only cross-source findings are fuzzy candidates; two reports from the
// same tool that survived the exact pass are genuinely distinct.
func sourcesDisjoint(a, b domain.MergedFinding) bool {
	for _, s := range a.Sources {
		if b.HasSource(s) {
			return false
		}
	}
	return true
}
