package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/hyperjump/kotae/internal/llm"
	"github.com/hyperjump/kotae/internal/models"
)

// evaluator scores the answer with a rubric prompt. It never fails the query.
type evaluator struct {
	llm     llm.Client
	timeout time.Duration
}

func (e *evaluator) run(ctx context.Context, st models.QueryState) (stageResult, error) {
	raw, err := complete(ctx, e.llm, e.timeout, evaluationSystemPrompt,
		evaluationInput(st.Question, st.Context, st.Answer))
	if err != nil {
		return e.failed(err), nil
	}
	ev, err := ParseEvaluation(raw)
	if err != nil {
		return e.failed(err), nil
	}
	return stageResult{Patch: models.StatePatch{Evaluation: &ev}}, nil
}

func (e *evaluator) failed(err error) stageResult {
	return stageResult{
		Patch:    models.StatePatch{Evaluation: &models.Evaluation{Error: err.Error()}},
		Degraded: KindEvaluationParse,
		Cause:    err,
	}
}

// ParseEvaluation decodes rubric output. A ```json or ``` fence around the
// object is tolerated; all three scores must be present and integral.
func ParseEvaluation(raw string) (models.Evaluation, error) {
	s := strings.TrimSpace(raw)
	switch {
	case strings.HasPrefix(s, "```json"):
		s = strings.TrimPrefix(s, "```json")
	case strings.HasPrefix(s, "```"):
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))

	var scores struct {
		Relevance    *float64 `json:"relevance"`
		Accuracy     *float64 `json:"accuracy"`
		Completeness *float64 `json:"completeness"`
	}
	if err := json.Unmarshal([]byte(s), &scores); err != nil {
		return models.Evaluation{}, fmt.Errorf("invalid evaluation json: %w", err)
	}

	var ev models.Evaluation
	var errs []error
	for _, f := range []struct {
		name string
		val  *float64
		dst  *int
	}{
		{"relevance", scores.Relevance, &ev.Relevance},
		{"accuracy", scores.Accuracy, &ev.Accuracy},
		{"completeness", scores.Completeness, &ev.Completeness},
	} {
		switch {
		case f.val == nil:
			errs = append(errs, fmt.Errorf("missing %s", f.name))
		case *f.val < math.MinInt32 || *f.val > math.MaxInt32:
			errs = append(errs, fmt.Errorf("%s out of range: %v", f.name, *f.val))
		case math.Trunc(*f.val) != *f.val:
			errs = append(errs, fmt.Errorf("%s is not an integer: %v", f.name, *f.val))
		default:
			*f.dst = int(*f.val)
		}
	}
	if len(errs) > 0 {
		return models.Evaluation{}, errors.Join(errs...)
	}
	return ev, nil
}
