package domain_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/bodis/ai-review-cicd-actions/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestPipelineContext_ConcurrentAppend(t *testing.T) {
	pctx := domain.NewPipelineContext()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			name := fmt.Sprintf("aspect-%d", n)
			pctx.Append([]domain.Finding{{
				FilePath: "a.py", Severity: domain.SeverityLow,
				Category: domain.CategoryStyle, Message: name, Source: name,
			}})
			pctx.RecordOutput(name, "raw")
		}(i)
	}
	wg.Wait()

	assert.Len(t, pctx.Findings(), 20)
	assert.Len(t, pctx.CompletedAspects(), 20)
	raw, ok := pctx.Output("aspect-7")
	assert.True(t, ok)
	assert.Equal(t, "raw", raw)
}

func TestPipelineContext_FindingsReturnsCopy(t *testing.T) {
	pctx := domain.NewPipelineContext()
	pctx.Append([]domain.Finding{{
		FilePath: "a.py", Severity: domain.SeverityLow,
		Category: domain.CategoryStyle, Message: "original", Source: "ruff",
	}})

	snapshot := pctx.Findings()
	snapshot[0].Message = "mutated"

	assert.Equal(t, "original", pctx.Findings()[0].Message)
}

func TestPipelineContext_OutputMissing(t *testing.T) {
	pctx := domain.NewPipelineContext()
	_, ok := pctx.Output("never-ran")
	assert.False(t, ok)
}
