package domain

import (
	"fmt"
	"time"
)

// AspectKind discriminates how an aspect produces findings: by shelling
// out to deterministic tools or by prompting an AI reviewer.
type AspectKind string

const (
	AspectStatic AspectKind = "static"
	AspectAI     AspectKind = "ai"
)

// ExecutionMode controls scheduling. Consecutive parallel aspects form one
// batch and run concurrently; a sequential aspect waits for everything
// declared before it.
type ExecutionMode string

const (
	ExecutionParallel   ExecutionMode = "parallel"
	ExecutionSequential ExecutionMode = "sequential"
)

const (
	// DefaultMaxRetries bounds the corrective round-trips for one AI
	// aspect: a single repair attempt after the initial call.
	DefaultMaxRetries = 1

	// DefaultAspectTimeout bounds one AI call.
	DefaultAspectTimeout = 5 * time.Minute
)

// ReviewAspect is the configuration unit describing one analysis. The
// aspect list is frozen for the duration of a run.
type ReviewAspect struct {
	Name      string
	Kind      AspectKind
	Execution ExecutionMode
	Enabled   bool

	// Static aspects.
	Tools     []string
	Languages []string

	// AI aspects. PromptTemplate is the resolved template text, with
	// placeholders still unexpanded; the renderer fills them per run.
	PromptTemplate string
	MaxRetries     int
	Timeout        time.Duration
}

func (a ReviewAspect) Validate() error {
	if a.Name == "" {
		return fmt.Errorf("aspect has no name")
	}
	switch a.Kind {
	case AspectStatic:
		if len(a.Tools) == 0 {
			return fmt.Errorf("static aspect %q declares no tools", a.Name)
		}
	case AspectAI:
		if a.PromptTemplate == "" {
			return fmt.Errorf("ai aspect %q has no prompt template", a.Name)
		}
		if a.MaxRetries < 0 {
			return fmt.Errorf("ai aspect %q has negative max_retries %d", a.Name, a.MaxRetries)
		}
		if a.Timeout < 0 {
			return fmt.Errorf("ai aspect %q has negative timeout", a.Name)
		}
	default:
		return fmt.Errorf("aspect %q has unknown kind %q", a.Name, a.Kind)
	}
	switch a.Execution {
	case ExecutionParallel, ExecutionSequential:
	default:
		return fmt.Errorf("aspect %q has unknown execution mode %q", a.Name, a.Execution)
	}
	return nil
}

// ValidateAspects checks a whole declared aspect list, including name
// uniqueness across the run.
func ValidateAspects(aspects []ReviewAspect) error {
	seen := make(map[string]bool, len(aspects))
	for _, a := range aspects {
		if err := a.Validate(); err != nil {
			return err
		}
		if seen[a.Name] {
			return fmt.Errorf("duplicate aspect name %q", a.Name)
		}
		seen[a.Name] = true
	}
	return nil
}
