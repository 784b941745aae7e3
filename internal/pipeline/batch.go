package pipeline

import (
	"context"
	"time"

	"github.com/hyperjump/kotae/internal/models"
	"golang.org/x/sync/errgroup"
)

// BatchItem is the outcome of one question in a batch. Exactly one of State and Err is set.
type BatchItem struct {
	Question string
	State    *models.QueryState
	Err      error
	Elapsed  time.Duration
}

// RunMany answers questions concurrently, at most Config.BatchConcurrency at a
// time. Results are in input order. A failing question never affects the others.
func (o *Orchestrator) RunMany(ctx context.Context, questions []string) []BatchItem {
	items := make([]BatchItem, len(questions))
	// Plain Group rather than WithContext: one failure must not cancel siblings.
	var g errgroup.Group
	g.SetLimit(o.cfg.BatchConcurrency)
	for i, q := range questions {
		i, q := i, q
		g.Go(func() error {
			start := time.Now()
			st, err := o.Run(ctx, q)
			items[i] = BatchItem{Question: q, State: st, Err: err, Elapsed: time.Since(start)}
			return nil
		})
	}
	_ = g.Wait()
	return items
}
