package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/retrieval"
	"github.com/hyperjump/kotae/pkg/utils"
	"go.uber.org/zap"
)

// Retriever finds candidate passages and reranks them. *retrieval.Engine implements it.
type Retriever interface {
	SimilaritySearch(ctx context.Context, query string, k int) ([]string, error)
	Rerank(ctx context.Context, query string, candidates []string, n int) ([]retrieval.Ranked, error)
}

// documentStage retrieves and reranks passages for the question.
type documentStage struct {
	retriever Retriever
	topK      int
	topN      int
	timeout   time.Duration
	logger    *zap.Logger
}

func (d *documentStage) run(ctx context.Context, st models.QueryState) (stageResult, error) {
	candidates, err := d.search(ctx, st.Question)
	if err != nil {
		return d.failed(err), nil
	}
	if len(candidates) == 0 {
		return stageResult{Patch: models.StatePatch{
			RetrievedPassages: []string{},
			RelevanceScores:   []float64{},
			Context:           strPtr(""),
		}}, nil
	}

	ranked, err := d.rerank(ctx, st.Question, candidates)
	if err != nil {
		return d.failed(err), nil
	}

	passages := make([]string, len(ranked))
	scores := make([]float64, len(ranked))
	for i, r := range ranked {
		passages[i] = r.Text
		scores[i] = r.Score
		if r.Score < 0 || r.Score > 1 {
			scores[i] = utils.Clamp01(r.Score)
			d.logger.Warn("relevance score out of range, clamped",
				zap.Int("rank", i),
				zap.Float64("score", r.Score),
				zap.Float64("clamped", scores[i]),
			)
		}
	}
	return stageResult{Patch: models.StatePatch{
		RetrievedPassages: passages,
		RelevanceScores:   scores,
		Context:           strPtr(strings.Join(passages, "\n\n")),
	}}, nil
}

func (d *documentStage) search(ctx context.Context, question string) ([]string, error) {
	ctx, cancel := leafContext(ctx, d.timeout)
	defer cancel()
	return d.retriever.SimilaritySearch(ctx, question, d.topK)
}

func (d *documentStage) rerank(ctx context.Context, question string, candidates []string) ([]retrieval.Ranked, error) {
	ctx, cancel := leafContext(ctx, d.timeout)
	defer cancel()
	return d.retriever.Rerank(ctx, question, candidates, d.topN)
}

func (d *documentStage) failed(err error) stageResult {
	return stageResult{
		Patch: models.StatePatch{
			RetrievedPassages: []string{},
			RelevanceScores:   []float64{},
			Context:           strPtr("Error retrieving documents: " + err.Error()),
		},
		Degraded: KindRetrieval,
		Cause:    err,
	}
}
