package domain_test

import (
	"testing"

	"github.com/bodis/ai-review-cicd-actions/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestDetectChangeProfile(t *testing.T) {
	profile := domain.DetectChangeProfile([]string{
		"src/app.py",
		"web/index.ts",
		"tests/test_app.py",
		"README.md",
		"requirements.txt",
		".github/workflows/ci.yml",
	})

	assert.Equal(t, []string{"python", "typescript"}, profile.Languages)
	assert.Equal(t, []string{"ci", "dependencies", "documentation", "source", "tests"}, profile.ChangeTypes)
}

func TestDetectChangeProfile_GoTests(t *testing.T) {
	profile := domain.DetectChangeProfile([]string{"internal/app/service_test.go"})
	assert.Equal(t, []string{"go"}, profile.Languages)
	assert.Equal(t, []string{"tests"}, profile.ChangeTypes)
}

func TestDetectChangeProfile_Empty(t *testing.T) {
	profile := domain.DetectChangeProfile(nil)
	assert.Empty(t, profile.Languages)
	assert.Empty(t, profile.ChangeTypes)
}

func TestChangeProfile_HasAnyLanguage(t *testing.T) {
	profile := domain.ChangeProfile{Languages: []string{"javascript", "python"}}

	assert.True(t, profile.HasAnyLanguage([]string{"python"}))
	assert.True(t, profile.HasAnyLanguage([]string{"go", "Python"}))
	assert.False(t, profile.HasAnyLanguage([]string{"go", "rust"}))
	assert.True(t, profile.HasAnyLanguage(nil), "no filter matches everything")
}
