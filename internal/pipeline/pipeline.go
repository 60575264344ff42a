// Package pipeline sequences moderation, task submission, completion polling
// and result retrieval for one image-to-video request.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/lulatiAI/ai-imagetovideogen-backend/internal/domain"
	"github.com/lulatiAI/ai-imagetovideogen-backend/internal/infra"
	"github.com/lulatiAI/ai-imagetovideogen-backend/internal/metrics"
)

// Stage names used in errors, logs and metrics.
const (
	StageModeration = "moderation"
	StageSubmission = "submission"
	StagePolling    = "polling"
	StageRetrieval  = "retrieval"
)

type Moderator interface {
	CheckSafety(ctx context.Context, imageURL string) (domain.ModerationVerdict, error)
}

type Submitter interface {
	Submit(ctx context.Context, req domain.GenerationRequest) (string, error)
}

type Waiter interface {
	Wait(ctx context.Context, taskID string) (domain.GenerationTask, error)
}

type Retriever interface {
	Fetch(ctx context.Context, url string) (*domain.RetrievedArtifact, error)
}

// Error reports the stage a run failed in. errors.Is still matches the
// domain error kind of the cause.
type Error struct {
	Stage  string
	TaskID string
	Err    error
}

func (e *Error) Error() string {
	msg := "pipeline " + e.Stage
	if e.TaskID != "" {
		msg += " (task " + e.TaskID + ")"
	}
	return msg + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Outcome is exactly one of an artifact or a rejection.
type Outcome struct {
	Artifact  *domain.RetrievedArtifact
	Rejection *domain.RejectionOutcome
	TaskID    string
}

func (o *Outcome) Rejected() bool { return o != nil && o.Rejection != nil }

// Options wires the collaborators of a Pipeline. Metrics and Logger are optional.
type Options struct {
	Moderator Moderator
	Submitter Submitter
	Waiter    Waiter
	Retriever Retriever
	Metrics   *metrics.Collector
	Logger    *infra.Logger
}

type Pipeline struct {
	moderator Moderator
	submitter Submitter
	waiter    Waiter
	retriever Retriever
	metrics   *metrics.Collector
	logger    *infra.Logger
}

func New(opts Options) (*Pipeline, error) {
	switch {
	case opts.Moderator == nil:
		return nil, errors.New("pipeline: moderator is required")
	case opts.Submitter == nil:
		return nil, errors.New("pipeline: submitter is required")
	case opts.Waiter == nil:
		return nil, errors.New("pipeline: waiter is required")
	case opts.Retriever == nil:
		return nil, errors.New("pipeline: retriever is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.NopLogger()
	}
	return &Pipeline{
		moderator: opts.Moderator,
		submitter: opts.Submitter,
		waiter:    opts.Waiter,
		retriever: opts.Retriever,
		metrics:   opts.Metrics,
		logger:    logger,
	}, nil
}

// Run screens the source image and, when it is safe, submits exactly one
// generation task, waits for it and downloads its first output. An unsafe
// image yields a rejection outcome and a nil error; nothing is submitted.
func (p *Pipeline) Run(ctx context.Context, req domain.GenerationRequest) (*Outcome, error) {
	out, err := p.run(ctx, req)
	switch {
	case err != nil:
		p.metrics.ObservePipeline(metrics.OutcomeFailed, domain.KindCode(err))
		infra.LoggerFrom(ctx, p.logger).Error().Err(err).Str("code", domain.KindCode(err)).Msg("pipeline: run failed")
	case out.Rejected():
		p.metrics.ObservePipeline(metrics.OutcomeRejected, "rejected")
	default:
		p.metrics.ObservePipeline(metrics.OutcomeSucceeded, "ok")
	}
	return out, err
}

func (p *Pipeline) run(ctx context.Context, req domain.GenerationRequest) (*Outcome, error) {
	log := infra.LoggerFrom(ctx, p.logger).With().Str("prompt_image", req.SourceImageURL()).Logger()

	start := time.Now()
	verdict, err := p.moderator.CheckSafety(ctx, req.SourceImageURL())
	p.metrics.ObserveStage(StageModeration, time.Since(start), err)
	if err != nil {
		return nil, &Error{Stage: StageModeration, Err: err}
	}
	if !verdict.Safe {
		log.Info().Strs("labels", verdict.FlaggedLabels).Msg("pipeline: image rejected by moderation")
		return &Outcome{Rejection: &domain.RejectionOutcome{Reason: verdict.FlaggedLabels}}, nil
	}

	start = time.Now()
	taskID, err := p.submitter.Submit(ctx, req)
	p.metrics.ObserveStage(StageSubmission, time.Since(start), err)
	if err != nil {
		return nil, &Error{Stage: StageSubmission, Err: err}
	}
	log = log.With().Str("task_id", taskID).Logger()
	log.Info().Str("model", req.Model()).Msg("pipeline: generation submitted")

	start = time.Now()
	task, err := p.waiter.Wait(ctx, taskID)
	p.metrics.ObserveStage(StagePolling, time.Since(start), err)
	if err != nil {
		return nil, &Error{Stage: StagePolling, TaskID: taskID, Err: err}
	}
	if len(task.OutputURLs) == 0 {
		return nil, &Error{Stage: StagePolling, TaskID: taskID, Err: domain.Errorf(domain.ErrEmptyOutput, "run", "task %s has no output", taskID)}
	}
	log.Info().Dur("took", time.Since(start)).Msg("pipeline: generation finished")

	start = time.Now()
	artifact, err := p.retriever.Fetch(ctx, task.OutputURLs[0])
	p.metrics.ObserveStage(StageRetrieval, time.Since(start), err)
	if err != nil {
		return nil, &Error{Stage: StageRetrieval, TaskID: taskID, Err: err}
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		if relErr := artifact.Release(); relErr != nil {
			log.Warn().Err(relErr).Msg("pipeline: release artifact")
		}
		return nil, &Error{Stage: StageRetrieval, TaskID: taskID, Err: ctxErr}
	}

	return &Outcome{Artifact: artifact, TaskID: taskID}, nil
}
