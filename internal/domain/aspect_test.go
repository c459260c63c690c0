package domain_test

import (
	"testing"

	"github.com/bodis/ai-review-cicd-actions/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestReviewAspect_Validate(t *testing.T) {
	tests := []struct {
		name    string
		aspect  domain.ReviewAspect
		wantErr string
	}{
		{
			name: "valid static",
			aspect: domain.ReviewAspect{
				Name: "python_static_analysis", Kind: domain.AspectStatic,
				Execution: domain.ExecutionParallel, Tools: []string{"ruff"},
			},
		},
		{
			name: "valid ai",
			aspect: domain.ReviewAspect{
				Name: "security_review", Kind: domain.AspectAI,
				Execution: domain.ExecutionSequential, PromptTemplate: "Review {PR_DIFF}", MaxRetries: 1,
			},
		},
		{
			name:    "missing name",
			aspect:  domain.ReviewAspect{Kind: domain.AspectStatic, Execution: domain.ExecutionParallel, Tools: []string{"ruff"}},
			wantErr: "no name",
		},
		{
			name:    "static without tools",
			aspect:  domain.ReviewAspect{Name: "x", Kind: domain.AspectStatic, Execution: domain.ExecutionParallel},
			wantErr: "no tools",
		},
		{
			name:    "ai without prompt",
			aspect:  domain.ReviewAspect{Name: "x", Kind: domain.AspectAI, Execution: domain.ExecutionSequential},
			wantErr: "prompt",
		},
		{
			name: "negative retries",
			aspect: domain.ReviewAspect{
				Name: "x", Kind: domain.AspectAI, Execution: domain.ExecutionSequential,
				PromptTemplate: "p", MaxRetries: -1,
			},
			wantErr: "max_retries",
		},
		{
			name:    "unknown kind",
			aspect:  domain.ReviewAspect{Name: "x", Kind: "magic", Execution: domain.ExecutionParallel},
			wantErr: "kind",
		},
		{
			name:    "unknown execution mode",
			aspect:  domain.ReviewAspect{Name: "x", Kind: domain.AspectStatic, Tools: []string{"ruff"}, Execution: "eventually"},
			wantErr: "execution mode",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.aspect.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestValidateAspects_DuplicateNames(t *testing.T) {
	aspects := []domain.ReviewAspect{
		{Name: "dup", Kind: domain.AspectStatic, Execution: domain.ExecutionParallel, Tools: []string{"ruff"}},
		{Name: "dup", Kind: domain.AspectStatic, Execution: domain.ExecutionParallel, Tools: []string{"eslint"}},
	}
	assert.ErrorContains(t, domain.ValidateAspects(aspects), "duplicate aspect name")
}
