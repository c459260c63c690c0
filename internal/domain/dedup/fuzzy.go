package dedup

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bodis/ai-review-cicd-actions/internal/domain"
)

// classifyTimeout bounds one batched classification call.
const classifyTimeout = time.Minute

// fuzzyPass merges cross-source findings that sit close together in the
// same file when a classification call confirms they describe the same
// underlying issue. One batched call per file, never one per pair. Any
// failure leaves the candidates distinct.
func (d *Deduplicator) fuzzyPass(ctx context.Context, merged []domain.MergedFinding) []domain.MergedFinding {
	byFile := make(map[string][]int)
	for i, m := range merged {
		if m.LineNumber > 0 {
			byFile[m.FilePath] = append(byFile[m.FilePath], i)
		}
	}
	files := make([]string, 0, len(byFile))
	for f := range byFile {
		files = append(files, f)
	}
	sort.Strings(files)

	absorbed := make(map[int]bool)
	replacement := make(map[int]domain.MergedFinding)

	for _, file := range files {
		cands := d.candidates(merged, byFile[file])
		if len(cands) < 2 {
			continue
		}
		groups, err := d.classify(ctx, file, merged, cands)
		if err != nil {
			d.log.Debugw("fuzzy dedup skipped for file", "file", file, "error", err)
			continue
		}
		for _, group := range groups {
			members := make([]int, 0, len(group))
			for _, idx := range group {
				if !absorbed[idx] {
					members = append(members, idx)
				}
			}
			if len(members) < 2 || !spansSources(merged, members) {
				continue
			}
			sort.Ints(members)
			parts := make([]domain.MergedFinding, 0, len(members))
			for _, idx := range members {
				parts = append(parts, merged[idx])
			}
			replacement[members[0]] = mergeGroup(parts)
			for _, idx := range members[1:] {
				absorbed[idx] = true
			}
		}
	}

	out := make([]domain.MergedFinding, 0, len(merged))
	for i, m := range merged {
		if absorbed[i] {
			continue
		}
		if r, ok := replacement[i]; ok {
			out = append(out, r)
			continue
		}
		out = append(out, m)
	}
	return out
}

// candidates keeps the indexes that have at least one partner in the
// same file within the line window and with no shared source.
func (d *Deduplicator) candidates(merged []domain.MergedFinding, idxs []int) []int {
	var out []int
	for _, i := range idxs {
		for _, j := range idxs {
			if i == j {
				continue
			}
			dist := merged[i].LineNumber - merged[j].LineNumber
			if dist < 0 {
				dist = -dist
			}
			if dist <= d.cfg.LineWindow && sourcesDisjoint(merged[i], merged[j]) {
				out = append(out, i)
				break
			}
		}
	}
	return out
}

// spansSources reports whether the group covers at least two distinct
// sources; same-source groups stay unmerged even when the classifier
// says otherwise.
func spansSources(merged []domain.MergedFinding, members []int) bool {
	seen := make(map[string]bool)
	for _, idx := range members {
		for _, s := range merged[idx].Sources {
			seen[s] = true
		}
	}
	return len(seen) >= 2
}

type duplicateGroups struct {
	DuplicateGroups [][]int `json:"duplicate_groups"`
}

// classify sends one batched prompt for a file's candidates and maps the
// returned candidate-local groups back to indexes into merged.
func (d *Deduplicator) classify(ctx context.Context, file string, merged []domain.MergedFinding, cands []int) ([][]int, error) {
	cctx, cancel := context.WithTimeout(ctx, classifyTimeout)
	defer cancel()

	raw, err := d.client.Complete(cctx, buildClassifyPrompt(file, merged, cands))
	if err != nil {
		return nil, fmt.Errorf("classification call: %w", err)
	}

	var parsed duplicateGroups
	if err := json.Unmarshal([]byte(domain.ExtractJSON(raw)), &parsed); err != nil {
		return nil, fmt.Errorf("classification response is not valid JSON: %w", err)
	}

	seen := make(map[int]bool)
	var groups [][]int
	for _, group := range parsed.DuplicateGroups {
		var mapped []int
		for _, local := range group {
			if local < 0 || local >= len(cands) {
				return nil, fmt.Errorf("classification referenced finding index %d out of range", local)
			}
			if seen[local] {
				return nil, fmt.Errorf("classification referenced finding index %d twice", local)
			}
			seen[local] = true
			mapped = append(mapped, cands[local])
		}
		if len(mapped) >= 2 {
			groups = append(groups, mapped)
		}
	}
	return groups, nil
}

func buildClassifyPrompt(file string, merged []domain.MergedFinding, cands []int) string {
	var b strings.Builder
	b.WriteString("You are deduplicating code review findings.\n")
	fmt.Fprintf(&b, "The findings below were all reported for %s by different tools or reviewers.\n", file)
	b.WriteString("Decide which findings describe the same underlying issue.\n\nFindings:\n")
	for local, idx := range cands {
		m := merged[idx]
		fmt.Fprintf(&b, "[%d] line %d (%s, %s, %s): %s\n",
			local, m.LineNumber, strings.Join(m.Sources, "+"), m.Severity, m.Category, m.Message)
	}
	b.WriteString("\nRespond with only JSON, no code fences, in exactly this shape:\n")
	b.WriteString(`{"duplicate_groups": [[0, 1]]}` + "\n")
	b.WriteString("Each inner array lists the indexes of findings that are the same underlying issue.\n")
	b.WriteString("A finding that is unique must not appear in any group. Use an empty list when nothing matches.\n")
	return b.String()
}
