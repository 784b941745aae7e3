package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/hyperjump/kotae/internal/llm"
	"github.com/hyperjump/kotae/internal/models"
)

// router classifies a question as weather or document.
type router struct {
	llm     llm.Client
	timeout time.Duration
}

func (r *router) run(ctx context.Context, st models.QueryState) (stageResult, error) {
	raw, err := complete(ctx, r.llm, r.timeout, routerSystemPrompt, st.Question)
	if err != nil {
		return stageResult{}, &StageError{Kind: KindClassification, Stage: stageRouter, Err: err}
	}
	route := ParseRoute(raw)
	return stageResult{Patch: models.StatePatch{Route: &route}}, nil
}

// ParseRoute maps raw classifier output to a route. Only the exact token
// "weather" (after trimming and lowercasing) selects the weather branch.
func ParseRoute(raw string) models.Route {
	if strings.ToLower(strings.TrimSpace(raw)) == "weather" {
		return models.RouteWeather
	}
	return models.RouteDocument
}
