package application_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bodis/ai-review-cicd-actions/internal/application"
	"github.com/bodis/ai-review-cicd-actions/internal/domain"
)

// echoPipeline builds a pipeline whose prompts equal aspect names, so
// the client's recorded prompts trace the execution order.
func echoPipeline(client *fakeClient, budget time.Duration) *application.Pipeline {
	runner := application.NewRunner(application.RunnerConfig{
		Client:   client,
		Renderer: echoRenderer{},
		Change:   testChange(),
	})
	return application.NewPipeline(runner, budget, nil, nil)
}

func parallelAspect(name string) domain.ReviewAspect {
	a := aiAspect(name, 0)
	a.Execution = domain.ExecutionParallel
	return a
}

func sequentialAspect(name string) domain.ReviewAspect {
	return aiAspect(name, 0)
}

func TestPipelineParallelBatchRunsConcurrently(t *testing.T) {
	started := make(chan string, 2)
	proceed := make(chan struct{})
	client := &fakeClient{fn: func(_ context.Context, _ int, prompt string) (string, error) {
		started <- prompt
		<-proceed
		return emptyFindingsJSON, nil
	}}
	p := echoPipeline(client, 0)

	resCh := make(chan application.PipelineResult, 1)
	go func() {
		resCh <- p.Execute(context.Background(), []domain.ReviewAspect{
			parallelAspect("alpha"), parallelAspect("beta"),
		}, domain.NewPipelineContext())
	}()

	// both aspects must be in flight before either finishes
	for i := 0; i < 2; i++ {
		select {
		case <-started:
		case <-time.After(2 * time.Second):
			t.Fatal("parallel aspects did not start concurrently")
		}
	}
	close(proceed)

	select {
	case res := <-resCh:
		assert.Empty(t, res.Errors)
	case <-time.After(2 * time.Second):
		t.Fatal("pipeline did not finish")
	}
}

func TestPipelineSequentialRunsAfterBatchJoins(t *testing.T) {
	client := &fakeClient{fn: func(context.Context, int, string) (string, error) {
		return emptyFindingsJSON, nil
	}}
	p := echoPipeline(client, 0)

	aspects := []domain.ReviewAspect{
		parallelAspect("ruff"),
		parallelAspect("bandit"),
		sequentialAspect("security_review"),
		parallelAspect("style_review"),
	}
	res := p.Execute(context.Background(), aspects, domain.NewPipelineContext())
	require.Empty(t, res.Errors)

	prompts := client.allPrompts()
	require.Len(t, prompts, 4)
	assert.ElementsMatch(t, []string{"ruff", "bandit"}, prompts[:2])
	assert.Equal(t, "security_review", prompts[2])
	assert.Equal(t, "style_review", prompts[3])
}

func TestPipelineDisabledAspectsAreSkipped(t *testing.T) {
	client := &fakeClient{fn: func(context.Context, int, string) (string, error) {
		return validFindingJSON, nil
	}}
	p := echoPipeline(client, 0)

	off := parallelAspect("disabled_review")
	off.Enabled = false
	res := p.Execute(context.Background(), []domain.ReviewAspect{
		off, sequentialAspect("security_review"),
	}, domain.NewPipelineContext())

	assert.Len(t, res.Findings, 1)
	assert.Empty(t, res.Errors)
	assert.Equal(t, []string{"security_review"}, client.allPrompts())
}

func TestPipelineFailedAspectDoesNotCancelSiblings(t *testing.T) {
	client := &fakeClient{fn: func(_ context.Context, _ int, prompt string) (string, error) {
		if prompt == "broken_review" {
			return "", errors.New("connection refused")
		}
		time.Sleep(30 * time.Millisecond)
		return validFindingJSON, nil
	}}
	p := echoPipeline(client, 0)

	res := p.Execute(context.Background(), []domain.ReviewAspect{
		parallelAspect("broken_review"), parallelAspect("security_review"),
	}, domain.NewPipelineContext())

	assert.Len(t, res.Findings, 1)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "broken_review", res.Errors[0].Aspect)
	assert.Equal(t, domain.CauseClientError, res.Errors[0].Cause)
}

func TestPipelineCollectsOneErrorPerFailedAspect(t *testing.T) {
	client := &fakeClient{fn: func(context.Context, int, string) (string, error) {
		return "", errors.New("boom")
	}}
	p := echoPipeline(client, 0)

	res := p.Execute(context.Background(), []domain.ReviewAspect{
		parallelAspect("a"), parallelAspect("b"), sequentialAspect("c"),
	}, domain.NewPipelineContext())

	assert.Empty(t, res.Findings)
	require.Len(t, res.Errors, 3)
	names := make([]string, 0, 3)
	for _, e := range res.Errors {
		names = append(names, e.Aspect)
	}
	assert.ElementsMatch(t, []string{"a", "b", "c"}, names)
}

func TestPipelineGlobalBudgetAbandonsInFlightAspects(t *testing.T) {
	client := &fakeClient{fn: func(ctx context.Context, _ int, prompt string) (string, error) {
		if prompt == "fast_review" {
			return validFindingJSON, nil
		}
		<-ctx.Done()
		return "", ctx.Err()
	}}
	p := echoPipeline(client, 80*time.Millisecond)

	start := time.Now()
	res := p.Execute(context.Background(), []domain.ReviewAspect{
		sequentialAspect("fast_review"),
		sequentialAspect("hanging_review"),
		sequentialAspect("never_started_review"),
	}, domain.NewPipelineContext())
	elapsed := time.Since(start)

	assert.Less(t, elapsed, 3*time.Second)
	assert.Len(t, res.Findings, 1, "work finished before the deadline is kept")

	require.Len(t, res.Errors, 2)
	for _, e := range res.Errors {
		assert.Equal(t, domain.CauseTimeout, e.Cause)
	}
}

func TestPipelineEmptyAspectList(t *testing.T) {
	p := echoPipeline(&fakeClient{fn: func(context.Context, int, string) (string, error) {
		return emptyFindingsJSON, nil
	}}, 0)

	res := p.Execute(context.Background(), nil, domain.NewPipelineContext())
	assert.Empty(t, res.Findings)
	assert.Empty(t, res.Errors)
}
