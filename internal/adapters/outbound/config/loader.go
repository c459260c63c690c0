// Package config loads the effective review configuration by layering
// four sources: built-in defaults, an optional company-wide config, the
// project's own config file, and AI_REVIEW_* environment overrides.
// Later layers win; absent keys keep the earlier value.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/bodis/ai-review-cicd-actions/internal/domain"
)

//go:embed defaults.yml
var defaultsYAML []byte

// projectFileLocations are tried in order relative to the repo root.
var projectFileLocations = []string{
	filepath.Join(".github", "ai-review-config.yml"),
	filepath.Join(".github", "ai-review-config.yaml"),
	"ai-review-config.yml",
}

const fetchTimeout = 10 * time.Second

// Loader assembles the merged configuration for a repository.
type Loader struct {
	httpClient *http.Client
	log        *zap.SugaredLogger
}

func New(log *zap.SugaredLogger) *Loader {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Loader{
		httpClient: &http.Client{Timeout: fetchTimeout},
		log:        log,
	}
}

// Default returns the built-in configuration without any overlays.
func Default() (*domain.Config, error) {
	cfg := &domain.Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing built-in defaults: %w", err)
	}
	return cfg, nil
}

// Load merges all configuration layers for the repository at projectPath.
// projectFile, when non-empty, is used instead of the standard locations.
// A company config that cannot be fetched is skipped with a warning; an
// invalid final configuration is an error.
func (l *Loader) Load(projectPath, projectFile string) (*domain.Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}

	projData, projPath, err := l.readProjectFile(projectPath, projectFile)
	if err != nil {
		return nil, err
	}

	if source := l.companySource(cfg, projData); source != "" {
		data, err := l.fetchCompany(source)
		if err != nil {
			l.log.Warnw("company config unavailable, continuing without it",
				"source", source, "error", err)
		} else if err := yaml.Unmarshal(expandEnv(data), cfg); err != nil {
			return nil, domain.NewConfigError(
				fmt.Sprintf("parsing company config from %s", source), err)
		}
	}

	if projData != nil {
		if err := yaml.Unmarshal(expandEnv(projData), cfg); err != nil {
			return nil, domain.NewConfigError(fmt.Sprintf("parsing %s", projPath), err)
		}
		l.log.Debugw("loaded project config", "path", projPath)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (l *Loader) readProjectFile(projectPath, explicit string) ([]byte, string, error) {
	if explicit != "" {
		data, err := os.ReadFile(explicit)
		if err != nil {
			return nil, "", domain.NewConfigError(
				fmt.Sprintf("reading config file %s", explicit), err)
		}
		return data, explicit, nil
	}
	for _, rel := range projectFileLocations {
		path := filepath.Join(projectPath, rel)
		data, err := os.ReadFile(path)
		if err == nil {
			return data, path, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, "", fmt.Errorf("reading %s: %w", path, err)
		}
	}
	return nil, "", nil
}

// companySource resolves the company config source: the AI_REVIEW_COMPANY_CONFIG
// environment variable wins, then the project file's company.source, then the
// default config's. The project file is probed before the real merge so its
// source takes effect even though company config is a lower layer.
func (l *Loader) companySource(cfg *domain.Config, projData []byte) string {
	if v := os.Getenv("AI_REVIEW_COMPANY_CONFIG"); v != "" {
		return v
	}
	if projData != nil {
		var probe struct {
			Company domain.CompanyConfig `yaml:"company"`
		}
		if err := yaml.Unmarshal(projData, &probe); err == nil && probe.Company.Source != "" {
			return probe.Company.Source
		}
	}
	return cfg.Company.Source
}

// fetchCompany retrieves the company config. Supported source forms:
// github://org/repo/path[@branch], http(s):// URLs, file:// paths, and
// plain filesystem paths.
func (l *Loader) fetchCompany(source string) ([]byte, error) {
	switch {
	case strings.HasPrefix(source, "github://"):
		url, err := rawGitHubURL(source)
		if err != nil {
			return nil, err
		}
		return l.fetchURL(url)
	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		return l.fetchURL(source)
	case strings.HasPrefix(source, "file://"):
		return os.ReadFile(strings.TrimPrefix(source, "file://"))
	default:
		return os.ReadFile(source)
	}
}

// rawGitHubURL maps github://org/repo/path[@branch] to the corresponding
// raw.githubusercontent.com URL. The branch defaults to main.
func rawGitHubURL(source string) (string, error) {
	parts := strings.SplitN(strings.TrimPrefix(source, "github://"), "/", 3)
	if len(parts) < 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", fmt.Errorf("invalid github source %q, want github://org/repo/path[@branch]", source)
	}
	org, repo, filePath := parts[0], parts[1], parts[2]
	branch := "main"
	if at := strings.LastIndex(filePath, "@"); at >= 0 {
		filePath, branch = filePath[:at], filePath[at+1:]
	}
	return fmt.Sprintf("https://raw.githubusercontent.com/%s/%s/%s/%s",
		org, repo, branch, filePath), nil
}

func (l *Loader) fetchURL(url string) ([]byte, error) {
	resp, err := l.httpClient.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: status %d", url, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

var envRefPattern = regexp.MustCompile(`\$\{(\w+)\}`)

// expandEnv substitutes ${VAR_NAME} references with environment values
// before parsing. Unset variables expand to the empty string. Bare $VAR
// is left alone so prompt text is not mangled.
func expandEnv(data []byte) []byte {
	return envRefPattern.ReplaceAllFunc(data, func(m []byte) []byte {
		return []byte(os.Getenv(string(m[2 : len(m)-1])))
	})
}

// applyEnvOverrides layers AI_REVIEW_* variables on top of the merged
// file configuration. These sit between config files and CLI flags.
func applyEnvOverrides(cfg *domain.Config) {
	if v := os.Getenv("AI_REVIEW_PROVIDER"); v != "" {
		cfg.AI.Provider = v
	}
	if v := os.Getenv("AI_REVIEW_MODEL"); v != "" {
		cfg.AI.Model = v
	}
	if v := os.Getenv("AI_REVIEW_API_KEY"); v != "" {
		cfg.AI.APIKey = v
	}
	if v := os.Getenv("AI_REVIEW_ENDPOINT"); v != "" {
		cfg.AI.Endpoint = v
	}
	if v := os.Getenv("AI_REVIEW_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Review.Timeout = domain.Duration(d)
		}
	}
}
