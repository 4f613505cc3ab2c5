package usecases

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/0xcro3dile/docqa/internal/domain/entities"
)

// ProgressFunc receives every state transition synchronously, in order.
type ProgressFunc func(entities.ProgressEvent)

// PipelineOptions control failure handling.
type PipelineOptions struct {
	ErrorHandling entities.ErrorHandling
	RetryAttempts int // total attempts per step, at least 1
}

// PipelineRunner runs the team pipeline for one query.
type PipelineRunner interface {
	Run(ctx context.Context, q entities.Query, rc entities.RetrievedContext, report ProgressFunc) entities.PipelineResult
}

// Orchestrator runs the configured steps strictly in order, threading each
// step's output into the next.
type Orchestrator struct {
	steps  []entities.PipelineStep
	agents map[string]StepRunner
	opts   PipelineOptions
	tracer trace.Tracer
	logger *zap.Logger
	now    func() time.Time
}

// NewOrchestrator checks that every step has an agent.
func NewOrchestrator(steps []entities.PipelineStep, agents map[string]StepRunner, opts PipelineOptions, logger *zap.Logger) (*Orchestrator, error) {
	if len(steps) == 0 {
		return nil, fmt.Errorf("pipeline has no steps")
	}
	for i, s := range steps {
		if _, ok := agents[s.Agent]; !ok {
			return nil, fmt.Errorf("pipeline step %d (%s): unknown agent %q", i+1, s.Name, s.Agent)
		}
	}
	if opts.RetryAttempts < 1 {
		opts.RetryAttempts = 1
	}
	if opts.ErrorHandling == "" {
		opts.ErrorHandling = entities.StopOnError
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		steps:  append([]entities.PipelineStep(nil), steps...),
		agents: agents,
		opts:   opts,
		tracer: otel.Tracer("github.com/0xcro3dile/docqa/pipeline"),
		logger: logger.Named("pipeline"),
		now:    time.Now,
	}, nil
}

// Steps returns a copy of the configured step order.
func (o *Orchestrator) Steps() []entities.PipelineStep {
	return append([]entities.PipelineStep(nil), o.steps...)
}

// Run executes the pipeline. It never returns an error: failures are
// reported through the result's Status, FailedStep and Steps.
func (o *Orchestrator) Run(ctx context.Context, q entities.Query, rc entities.RetrievedContext, report ProgressFunc) entities.PipelineResult {
	ctx, span := o.tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.String("request.id", q.RequestID),
		attribute.Int("pipeline.steps", len(o.steps)),
		attribute.Int("context.passages", len(rc)),
	))
	defer span.End()

	total := len(o.steps)
	emit := func(i int, name string, state entities.StepState, msg string) {
		if report == nil {
			return
		}
		report(entities.ProgressEvent{StepIndex: i, StepName: name, State: state, Message: msg, Time: o.now()})
	}

	result := entities.PipelineResult{
		Sources: rc.Sources(),
		Steps:   make([]entities.StepResult, 0, total),
	}
	outputs := make(map[string]string, total)
	input := q.Text
	halted := false
	lastFailed := -1

	for i, step := range o.steps {
		emit(i, step.Name, entities.StatePending, fmt.Sprintf("Step %d/%d: %s queued", i+1, total, stepTitle(step)))

		res := o.runStep(ctx, i, step, q, rc, input, outputs, emit)
		result.Steps = append(result.Steps, res)

		if res.OK() {
			emit(i, step.Name, entities.StateCompleted, fmt.Sprintf("Step %d/%d: %s completed in %dms", i+1, total, stepTitle(step), res.ElapsedMs))
			outputs[step.Name] = res.Output
			input = res.Output
			continue
		}

		lastFailed = i
		emit(i, step.Name, entities.StateFailed, fmt.Sprintf("Step %d/%d: %s failed: %s", i+1, total, stepTitle(step), res.Error))
		o.logger.Warn("step failed",
			zap.String("request_id", q.RequestID),
			zap.String("step", step.Name),
			zap.Int("attempts", res.Attempts),
			zap.String("error", res.Error),
		)

		if o.opts.ErrorHandling != entities.Continue || step.Required {
			halted = true
			break
		}
	}

	if !halted && len(result.Steps) == total {
		if last := result.Steps[total-1]; last.OK() {
			result.FinalText = last.Output
		}
	}

	switch {
	case halted || result.FinalText == "":
		result.Status = entities.PipelineFailed
	case lastFailed >= 0:
		result.Status = entities.PipelinePartial
	default:
		result.Status = entities.PipelineComplete
	}

	if lastFailed >= 0 {
		result.FailedStep = lastFailed + 1
		failed := o.steps[lastFailed]
		if result.Status == entities.PipelineFailed {
			result.Error = fmt.Errorf("%w at step %d (%s)", entities.ErrPipelineHalted, lastFailed+1, failed.Name).Error()
		} else {
			result.Error = fmt.Sprintf("step %d (%s) failed, pipeline continued", lastFailed+1, failed.Name)
		}
	} else if result.Status == entities.PipelineFailed {
		result.Error = "pipeline produced no final output"
	}

	emit(total, "", entities.StateDone, fmt.Sprintf("Pipeline %s", result.Status))

	span.SetAttributes(attribute.String("pipeline.status", string(result.Status)))
	if result.Status == entities.PipelineFailed {
		span.SetStatus(codes.Error, result.Error)
	}
	o.logger.Info("pipeline finished",
		zap.String("request_id", q.RequestID),
		zap.String("status", string(result.Status)),
		zap.Int("steps_run", len(result.Steps)),
		zap.Int("failed_step", result.FailedStep),
	)
	return result
}

func (o *Orchestrator) runStep(
	ctx context.Context,
	i int,
	step entities.PipelineStep,
	q entities.Query,
	rc entities.RetrievedContext,
	input string,
	outputs map[string]string,
	emit func(int, string, entities.StepState, string),
) entities.StepResult {
	ctx, span := o.tracer.Start(ctx, "pipeline.step", trace.WithAttributes(
		attribute.String("step.name", step.Name),
		attribute.String("step.agent", step.Agent),
		attribute.Int("step.number", i+1),
	))
	defer span.End()

	prior := make(map[string]string, len(outputs))
	for k, v := range outputs {
		prior[k] = v
	}
	task := entities.AgentTask{
		StepName:    step.Name,
		Title:       step.Title,
		Description: step.Description,
		Query:       q.Text,
		Input:       input,
		Context:     rc,
		Outputs:     prior,
		Model:       q.Model,
	}

	runner := o.agents[step.Agent]
	var res entities.StepResult
	var elapsed int64
	attempt := 0
	for attempt < o.opts.RetryAttempts {
		attempt++
		msg := fmt.Sprintf("Step %d/%d: %s running", i+1, len(o.steps), stepTitle(step))
		if o.opts.RetryAttempts > 1 {
			msg = fmt.Sprintf("%s (attempt %d/%d)", msg, attempt, o.opts.RetryAttempts)
		}
		emit(i, step.Name, entities.StateRunning, msg)

		res = runner.Run(ctx, task)
		elapsed += res.ElapsedMs
		if res.OK() || ctx.Err() != nil {
			break
		}
	}

	res.StepName = step.Name
	res.Title = step.Title
	res.Agent = step.Agent
	res.StepNumber = i + 1
	res.Attempts = attempt
	res.ElapsedMs = elapsed
	res.EstimatedTime = step.EstimatedTime
	res.Description = step.Description
	if res.Status == "" {
		res.Status = entities.StepFailed
	}
	if !res.OK() {
		if res.Error == "" {
			res.Error = "step failed"
		}
		res.Output = ""
		span.SetStatus(codes.Error, res.Error)
	}
	span.SetAttributes(
		attribute.Int("step.attempts", attempt),
		attribute.String("step.status", string(res.Status)),
	)
	return res
}

func stepTitle(s entities.PipelineStep) string {
	if s.Title != "" {
		return s.Title
	}
	return s.Name
}
