package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration decodes YAML duration values. It accepts Go duration strings
// ("5m", "90s") and bare integers, which are taken as seconds.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, perr := time.ParseDuration(s)
		if perr != nil {
			return fmt.Errorf("invalid duration %q: %w", s, perr)
		}
		*d = Duration(parsed)
		return nil
	}
	var n int64
	if err := value.Decode(&n); err == nil {
		*d = Duration(time.Duration(n) * time.Second)
		return nil
	}
	return fmt.Errorf("invalid duration value on line %d", value.Line)
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Std converts to the standard library representation.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the merged pipeline configuration. Sources merge in order:
// embedded defaults, company config, project file, environment,
// command-line flags. Later sources override only the keys they set.
type Config struct {
	Version  int            `yaml:"version"  json:"version"`
	AI       AIConfig       `yaml:"ai"       json:"ai"`
	Review   ReviewConfig   `yaml:"review"   json:"review"`
	Dedup    DedupConfig    `yaml:"dedup"    json:"dedup"`
	Blocking BlockingPolicy `yaml:"blocking" json:"blocking"`
	Company  CompanyConfig  `yaml:"company"  json:"company,omitempty"`
	Context  ContextConfig  `yaml:"context"  json:"context,omitempty"`
}

// AIConfig selects and parameterizes the AI provider.
type AIConfig struct {
	Provider  string `yaml:"provider"   json:"provider"`
	Model     string `yaml:"model"      json:"model"`
	APIKey    string `yaml:"api_key"    json:"-"`
	Endpoint  string `yaml:"endpoint"   json:"endpoint,omitempty"`
	MaxTokens int    `yaml:"max_tokens" json:"max_tokens"`
	CacheSize int    `yaml:"cache_size" json:"cache_size"`
}

// ReviewConfig holds the run-wide review settings and the declared
// aspect order.
type ReviewConfig struct {
	OnlyChangedLines bool           `yaml:"only_changed_lines" json:"only_changed_lines"`
	Timeout          Duration       `yaml:"timeout"            json:"timeout"`
	Aspects          []AspectConfig `yaml:"aspects"            json:"aspects"`
}

// AspectConfig is the YAML form of one review aspect. Pointer fields
// distinguish "not specified" from explicit zero values so partial
// overrides keep the defaults.
type AspectConfig struct {
	Name      string        `yaml:"name"                json:"name"`
	Kind      AspectKind    `yaml:"kind"                json:"kind"`
	Execution ExecutionMode `yaml:"execution"           json:"execution"`
	Enabled   *bool         `yaml:"enabled,omitempty"   json:"enabled,omitempty"`
	Tools     []string      `yaml:"tools,omitempty"     json:"tools,omitempty"`
	Languages []string      `yaml:"languages,omitempty" json:"languages,omitempty"`

	// Prompt is an inline template for AI aspects. When empty, the
	// built-in template matching the aspect name is used.
	Prompt     string   `yaml:"prompt,omitempty"      json:"prompt,omitempty"`
	MaxRetries *int     `yaml:"max_retries,omitempty" json:"max_retries,omitempty"`
	Timeout    Duration `yaml:"timeout,omitempty"     json:"timeout,omitempty"`
}

// DedupConfig tunes the deduplication stage.
type DedupConfig struct {
	Enabled             bool    `yaml:"enabled"              json:"enabled"`
	Fuzzy               bool    `yaml:"fuzzy"                json:"fuzzy"`
	LineWindow          int     `yaml:"line_window"          json:"line_window"`
	SimilarityThreshold float64 `yaml:"similarity_threshold" json:"similarity_threshold"`
}

// CompanyConfig points at an organization-wide config layered between
// the embedded defaults and the project file. Source may be an https
// URL, a file:// URL, or a plain path.
type CompanyConfig struct {
	Source string `yaml:"source" json:"source,omitempty"`
}

// ContextConfig carries free-text project knowledge injected into AI
// prompts. Policies usually arrives through the company config layer.
type ContextConfig struct {
	Policies    string `yaml:"policies"     json:"policies,omitempty"`
	Project     string `yaml:"project"      json:"project,omitempty"`
	Constraints string `yaml:"constraints"  json:"constraints,omitempty"`
	CustomRules string `yaml:"custom_rules" json:"custom_rules,omitempty"`
}

// ReviewAspects converts the configured list into runtime aspects with
// defaults applied. AI aspects without an inline prompt keep an empty
// template; the caller resolves those against the built-in set before
// the run.
func (c Config) ReviewAspects() []ReviewAspect {
	aspects := make([]ReviewAspect, 0, len(c.Review.Aspects))
	for _, ac := range c.Review.Aspects {
		a := ReviewAspect{
			Name:           ac.Name,
			Kind:           ac.Kind,
			Execution:      ac.Execution,
			Enabled:        true,
			Tools:          ac.Tools,
			Languages:      ac.Languages,
			PromptTemplate: ac.Prompt,
			MaxRetries:     DefaultMaxRetries,
			Timeout:        DefaultAspectTimeout,
		}
		if ac.Enabled != nil {
			a.Enabled = *ac.Enabled
		}
		if ac.MaxRetries != nil {
			a.MaxRetries = *ac.MaxRetries
		}
		if ac.Timeout > 0 {
			a.Timeout = ac.Timeout.Std()
		}
		aspects = append(aspects, a)
	}
	return aspects
}

var validProviders = []string{"gemini", "anthropic", "azure"}

// Validate checks the merged configuration before a run starts. It
// covers everything except prompt template presence, which is checked
// after the built-in templates are resolved.
func (c Config) Validate() error {
	valid := false
	for _, p := range validProviders {
		if c.AI.Provider == p {
			valid = true
			break
		}
	}
	if !valid {
		return NewConfigError(fmt.Sprintf("unknown ai.provider %q (valid: gemini, anthropic, azure)", c.AI.Provider), nil)
	}
	if c.AI.Model == "" {
		return NewConfigError("ai.model must not be empty", nil)
	}
	if c.AI.MaxTokens < 0 {
		return NewConfigError(fmt.Sprintf("ai.max_tokens must be >= 0 (got %d)", c.AI.MaxTokens), nil)
	}

	if c.Review.Timeout < 0 {
		return NewConfigError("review.timeout must not be negative", nil)
	}
	if len(c.Review.Aspects) == 0 {
		return NewConfigError("review.aspects must declare at least one aspect", nil)
	}
	seen := make(map[string]bool, len(c.Review.Aspects))
	for i, a := range c.Review.Aspects {
		if a.Name == "" {
			return NewConfigError(fmt.Sprintf("review.aspects[%d] has no name", i), nil)
		}
		if seen[a.Name] {
			return NewConfigError(fmt.Sprintf("duplicate aspect name %q", a.Name), nil)
		}
		seen[a.Name] = true
		switch a.Kind {
		case AspectStatic:
			if len(a.Tools) == 0 {
				return NewConfigError(fmt.Sprintf("static aspect %q declares no tools", a.Name), nil)
			}
		case AspectAI:
			if a.MaxRetries != nil && *a.MaxRetries < 0 {
				return NewConfigError(fmt.Sprintf("aspect %q has negative max_retries", a.Name), nil)
			}
		default:
			return NewConfigError(fmt.Sprintf("aspect %q has unknown kind %q (valid: static, ai)", a.Name, a.Kind), nil)
		}
		switch a.Execution {
		case ExecutionParallel, ExecutionSequential:
		default:
			return NewConfigError(fmt.Sprintf("aspect %q has unknown execution mode %q (valid: parallel, sequential)", a.Name, a.Execution), nil)
		}
		if a.Timeout < 0 {
			return NewConfigError(fmt.Sprintf("aspect %q has negative timeout", a.Name), nil)
		}
	}

	if c.Dedup.LineWindow < 0 {
		return NewConfigError(fmt.Sprintf("dedup.line_window must be >= 0 (got %d)", c.Dedup.LineWindow), nil)
	}
	if c.Dedup.SimilarityThreshold < 0 || c.Dedup.SimilarityThreshold > 1 {
		return NewConfigError(fmt.Sprintf("dedup.similarity_threshold must be between 0.0 and 1.0 (got %.2f)", c.Dedup.SimilarityThreshold), nil)
	}

	if err := c.Blocking.Validate(); err != nil {
		return NewConfigError("blocking policy", err)
	}
	return nil
}
