package prompt

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
)

//go:embed templates/*.md
var templateFS embed.FS

// Builtin returns the bundled template for an aspect name. Templates
// ship for security_review, architecture_review and code_quality_review;
// any other name reports false and must supply an inline prompt.
func Builtin(name string) (string, bool) {
	data, err := templateFS.ReadFile("templates/" + name + ".md")
	if err != nil {
		return "", false
	}
	return string(data), true
}

// overrideDirs are searched under the project root, in order, for a
// <aspect>.md file before the bundled template is used.
var overrideDirs = []string{
	"prompts",
	filepath.Join(".github", "prompts"),
	filepath.Join(".gitlab", "prompts"),
}

// Resolve returns the template for an aspect: a project override file
// when one exists, the bundled template otherwise. An error means the
// aspect has no template anywhere and cannot run.
func Resolve(projectPath, name string) (string, error) {
	if projectPath != "" {
		for _, dir := range overrideDirs {
			data, err := os.ReadFile(filepath.Join(projectPath, dir, name+".md"))
			if err == nil {
				return string(data), nil
			}
			if !os.IsNotExist(err) {
				return "", fmt.Errorf("reading prompt override for %q: %w", name, err)
			}
		}
	}
	if tpl, ok := Builtin(name); ok {
		return tpl, nil
	}
	return "", fmt.Errorf("no prompt template for aspect %q: checked prompts/, .github/prompts/, .gitlab/prompts/ and bundled templates", name)
}
