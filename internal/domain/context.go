package domain

import "sync"

// PipelineContext is the mutable accumulator passed through one pipeline
// run. Findings are append-only; parallel aspects append concurrently, so
// access goes through the mutex. One context is owned by exactly one
// scheduler run and never shared across runs.
type PipelineContext struct {
	mu       sync.Mutex
	findings []Finding
	outputs  map[string]string
	order    []string
}

func NewPipelineContext() *PipelineContext {
	return &PipelineContext{outputs: make(map[string]string)}
}

// Append adds parsed findings to the accumulated list.
func (c *PipelineContext) Append(findings []Finding) {
	if len(findings) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.findings = append(c.findings, findings...)
}

// RecordOutput stores an aspect's raw output so later sequential aspects
// can reference it.
func (c *PipelineContext) RecordOutput(aspect, raw string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.outputs[aspect]; !ok {
		c.order = append(c.order, aspect)
	}
	c.outputs[aspect] = raw
}

// Findings returns a copy of the accumulated findings. Within a parallel
// batch the order reflects completion, not declaration.
func (c *PipelineContext) Findings() []Finding {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Finding, len(c.findings))
	copy(out, c.findings)
	return out
}

// Output returns the raw output recorded for an aspect, if any.
func (c *PipelineContext) Output(aspect string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.outputs[aspect]
	return raw, ok
}

// CompletedAspects lists aspects that recorded output, in completion order.
func (c *PipelineContext) CompletedAspects() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}
