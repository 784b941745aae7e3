// Package pipeline answers a question by routing it to a weather lookup or
// document retrieval, generating a grounded answer and grading that answer.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hyperjump/kotae/internal/llm"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/weather"
	"go.uber.org/zap"
)

type phase int

const (
	phaseStart phase = iota
	phaseRouted
	phaseBranched
	phaseGenerated
	phaseEvaluated
	phaseDone
)

func (p phase) String() string {
	return [...]string{"start", "routed", "branched", "generated", "evaluated", "done"}[p]
}

// Orchestrator runs the fixed stage sequence for each question.
// It is safe for concurrent use.
type Orchestrator struct {
	cfg     Config
	logger  *zap.Logger
	metrics *Metrics

	router    *router
	weather   *weatherStage
	document  *documentStage
	generator *generator
	evaluator *evaluator
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics records stage timings and outcomes on m.
func WithMetrics(m *Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// New builds an orchestrator. Zero values in cfg take DefaultConfig values.
func New(client llm.Client, fetcher weather.Fetcher, retriever Retriever, cfg Config, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:    cfg.withDefaults(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	timeout := o.cfg.StageTimeout
	o.router = &router{llm: client, timeout: timeout}
	o.weather = &weatherStage{llm: client, fetcher: fetcher, timeout: timeout}
	o.document = &documentStage{
		retriever: retriever,
		topK:      o.cfg.TopK,
		topN:      o.cfg.RerankTopN,
		timeout:   timeout,
		logger:    o.logger,
	}
	o.generator = &generator{llm: client, timeout: timeout}
	o.evaluator = &evaluator{llm: client, timeout: timeout}
	return o
}

// Config returns the effective configuration.
func (o *Orchestrator) Config() Config { return o.cfg }

// Run answers question. It fails only when routing, city extraction or answer
// generation fails; every other stage failure is recorded in the returned state.
func (o *Orchestrator) Run(ctx context.Context, question string) (*models.QueryState, error) {
	if strings.TrimSpace(question) == "" {
		return nil, models.ErrEmptyQuestion
	}
	state := models.NewQueryState(question)
	degraded := false

	for p := phaseStart; p != phaseDone; {
		var (
			stage string
			next  phase
			run   func(context.Context, models.QueryState) (stageResult, error)
		)
		switch p {
		case phaseStart:
			stage, next, run = stageRouter, phaseRouted, o.router.run
		case phaseRouted:
			switch state.Route {
			case models.RouteWeather:
				stage, run = stageWeather, o.weather.run
			case models.RouteDocument:
				stage, run = stageDocument, o.document.run
			default:
				return nil, fmt.Errorf("no branch for route %s", state.Route)
			}
			next = phaseBranched
		case phaseBranched:
			stage, next, run = stageGeneration, phaseGenerated, o.generator.run
		case phaseGenerated:
			stage, next, run = stageEvaluation, phaseEvaluated, o.evaluator.run
		case phaseEvaluated:
			p = phaseDone
			continue
		}

		start := time.Now()
		res, err := run(ctx, state)
		o.metrics.observeStage(stage, time.Since(start))
		if err != nil {
			o.recordFailure(state, err)
			return nil, err
		}
		if res.Degraded != "" {
			degraded = true
			o.metrics.recordDegraded(res.Degraded)
			o.logger.Warn("stage degraded",
				zap.String("stage", stage),
				zap.String("kind", string(res.Degraded)),
				zap.Error(res.Cause),
			)
		}
		state = state.Apply(res.Patch)
		o.logger.Debug("pipeline phase",
			zap.String("from", p.String()),
			zap.String("to", next.String()),
			zap.String("route", state.Route.String()),
			zap.Duration("elapsed", time.Since(start)),
		)
		p = next
	}

	outcome := outcomeOK
	if degraded {
		outcome = outcomeDegraded
	}
	o.metrics.recordQuery(state.Route.String(), outcome)
	return &state, nil
}

func (o *Orchestrator) recordFailure(state models.QueryState, err error) {
	outcome := "error"
	var se *StageError
	if errors.As(err, &se) {
		outcome = string(se.Kind)
	}
	o.metrics.recordQuery(state.Route.String(), outcome)
	o.logger.Warn("query failed", zap.String("route", state.Route.String()), zap.Error(err))
}
