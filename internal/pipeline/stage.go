package pipeline

import (
	"context"
	"time"

	"github.com/hyperjump/kotae/internal/llm"
	"github.com/hyperjump/kotae/internal/models"
)

// Stage names used in errors, logs and metrics.
const (
	stageRouter     = "router"
	stageWeather    = "weather"
	stageDocument   = "document"
	stageGeneration = "generation"
	stageEvaluation = "evaluation"
)

// stageResult is what a stage hands back to the orchestrator. Degraded is set
// when the stage recovered from a failure; the patch then carries the
// degraded fields.
type stageResult struct {
	Patch    models.StatePatch
	Degraded Kind
	Cause    error
}

// leafContext bounds a single call to an external service.
func leafContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

func complete(ctx context.Context, client llm.Client, timeout time.Duration, system, user string) (string, error) {
	ctx, cancel := leafContext(ctx, timeout)
	defer cancel()
	return client.Complete(ctx, system, user)
}

func strPtr(s string) *string { return &s }
