package domain

import (
	"sort"
	"strconv"
	"strings"
)

// ChangedLines maps file path to the set of line numbers added or
// modified by a unified diff.
type ChangedLines map[string]map[int]bool

// ParseChangedLines extracts the added-line sets from a unified diff. It
// tracks "+++ b/<path>" headers and "@@ -a,b +c,d @@" hunks; only lines
// present in the new version count.
func ParseChangedLines(diff string) ChangedLines {
	changed := make(ChangedLines)
	var file string
	line := 0
	inHunk := false

	for _, raw := range strings.Split(diff, "\n") {
		switch {
		case strings.HasPrefix(raw, "+++ "):
			file = parseDiffPath(strings.TrimPrefix(raw, "+++ "))
			inHunk = false
			if file != "" && changed[file] == nil {
				changed[file] = make(map[int]bool)
			}
		case strings.HasPrefix(raw, "@@"):
			start, ok := parseHunkStart(raw)
			if !ok {
				inHunk = false
				continue
			}
			line = start
			inHunk = file != ""
		case !inHunk:
		case strings.HasPrefix(raw, "+"):
			changed[file][line] = true
			line++
		case strings.HasPrefix(raw, "-"):
			// removed from the old version only
		case strings.HasPrefix(raw, "\\"):
			// "\ No newline at end of file"
		default:
			line++
		}
	}
	return changed
}

// parseDiffPath strips the a/ or b/ prefix from a diff header path.
// "/dev/null" means the file does not exist on that side.
func parseDiffPath(p string) string {
	p = strings.TrimSpace(p)
	if p == "/dev/null" {
		return ""
	}
	if strings.HasPrefix(p, "a/") || strings.HasPrefix(p, "b/") {
		return p[2:]
	}
	return p
}

// parseHunkStart reads the new-side start line from "@@ -a,b +c,d @@".
func parseHunkStart(raw string) (int, bool) {
	parts := strings.Fields(raw)
	for _, p := range parts {
		if !strings.HasPrefix(p, "+") {
			continue
		}
		numbers := strings.TrimPrefix(p, "+")
		if i := strings.Index(numbers, ","); i >= 0 {
			numbers = numbers[:i]
		}
		start, err := strconv.Atoi(numbers)
		if err != nil {
			return 0, false
		}
		return start, true
	}
	return 0, false
}

// Files lists the touched file paths in sorted order.
func (c ChangedLines) Files() []string {
	out := make([]string, 0, len(c))
	for f := range c {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Contains reports whether the given file line was added by the diff.
func (c ChangedLines) Contains(file string, line int) bool {
	lines, ok := c[file]
	if !ok {
		return false
	}
	return lines[line]
}

// FilterToChangedLines drops findings that fall outside the diff: a
// finding with a line number must sit on an added line, a file-level
// finding must reference a file the diff touches. Findings on files the
// diff never touches are dropped either way.
func FilterToChangedLines(findings []Finding, changed ChangedLines) []Finding {
	out := make([]Finding, 0, len(findings))
	for _, f := range findings {
		lines, ok := changed[f.FilePath]
		if !ok {
			continue
		}
		if f.FileLevel() || lines[f.LineNumber] {
			out = append(out, f)
		}
	}
	return out
}
