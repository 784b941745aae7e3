package pipeline

import (
	"context"
	"time"

	"github.com/hyperjump/kotae/internal/llm"
	"github.com/hyperjump/kotae/internal/models"
)

// generator answers the question from the branch context.
type generator struct {
	llm     llm.Client
	timeout time.Duration
}

func (g *generator) run(ctx context.Context, st models.QueryState) (stageResult, error) {
	system, user := documentAnswerPrompt, documentAnswerInput(st.Context, st.Question)
	if st.Route == models.RouteWeather {
		system, user = weatherAnswerPrompt, weatherAnswerInput(st.Context, st.Question)
	}
	answer, err := complete(ctx, g.llm, g.timeout, system, user)
	if err != nil {
		return stageResult{}, &StageError{Kind: KindGeneration, Stage: stageGeneration, Err: err}
	}
	return stageResult{Patch: models.StatePatch{Answer: &answer}}, nil
}
