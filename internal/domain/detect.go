package domain

import (
	"path/filepath"
	"sort"
	"strings"
)

// ChangeProfile describes what kind of change a diff represents: which
// languages it touches and which change types it contains. It drives
// prompt context and lets static aspects skip runs with no matching files.
type ChangeProfile struct {
	Languages   []string `json:"languages"`
	ChangeTypes []string `json:"change_types"`
}

// extLanguages maps file extensions to review languages.
var extLanguages = map[string]string{
	".py":    "python",
	".pyi":   "python",
	".js":    "javascript",
	".jsx":   "javascript",
	".mjs":   "javascript",
	".ts":    "typescript",
	".tsx":   "typescript",
	".go":    "go",
	".java":  "java",
	".rb":    "ruby",
	".rs":    "rust",
	".c":     "c",
	".h":     "c",
	".cc":    "cpp",
	".cpp":   "cpp",
	".cs":    "csharp",
	".php":   "php",
	".sh":    "shell",
	".bash":  "shell",
	".sql":   "sql",
	".swift": "swift",
	".kt":    "kotlin",
}

// dependencyFiles are manifests whose change means the dependency set moved.
var dependencyFiles = map[string]bool{
	"go.mod":            true,
	"go.sum":            true,
	"package.json":      true,
	"package-lock.json": true,
	"yarn.lock":         true,
	"requirements.txt":  true,
	"pyproject.toml":    true,
	"pipfile":           true,
	"pipfile.lock":      true,
	"gemfile":           true,
	"cargo.toml":        true,
	"pom.xml":           true,
}

// DetectChangeProfile classifies a changed-file list. Output slices are
// sorted for determinism.
func DetectChangeProfile(files []string) ChangeProfile {
	languages := map[string]bool{}
	types := map[string]bool{}

	for _, f := range files {
		f = filepath.ToSlash(f)
		base := strings.ToLower(filepath.Base(f))
		ext := strings.ToLower(filepath.Ext(f))

		if lang, ok := extLanguages[ext]; ok {
			languages[lang] = true
		}

		switch {
		case dependencyFiles[base]:
			types["dependencies"] = true
		case isTestPath(f, base):
			types["tests"] = true
		case ext == ".md" || ext == ".rst" || strings.HasPrefix(f, "docs/"):
			types["documentation"] = true
		case strings.HasPrefix(f, ".github/") || base == ".gitlab-ci.yml" || strings.HasPrefix(f, ".circleci/"):
			types["ci"] = true
		case ext == ".yml" || ext == ".yaml" || ext == ".json" || ext == ".toml" || ext == ".ini" || base == "dockerfile":
			types["configuration"] = true
		case extLanguages[ext] != "":
			types["source"] = true
		}
	}

	return ChangeProfile{Languages: sortedKeys(languages), ChangeTypes: sortedKeys(types)}
}

func isTestPath(path, base string) bool {
	if strings.HasSuffix(base, "_test.go") || strings.HasPrefix(base, "test_") {
		return true
	}
	if strings.HasSuffix(base, ".test.js") || strings.HasSuffix(base, ".spec.js") ||
		strings.HasSuffix(base, ".test.ts") || strings.HasSuffix(base, ".spec.ts") {
		return true
	}
	for _, seg := range strings.Split(path, "/") {
		if seg == "tests" || seg == "test" || seg == "__tests__" {
			return true
		}
	}
	return false
}

// HasAnyLanguage reports whether the profile contains at least one of the
// given languages. An empty filter matches everything.
func (p ChangeProfile) HasAnyLanguage(langs []string) bool {
	if len(langs) == 0 {
		return true
	}
	for _, want := range langs {
		for _, have := range p.Languages {
			if strings.EqualFold(want, have) {
				return true
			}
		}
	}
	return false
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
