package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lulatiAI/ai-imagetovideogen-backend/internal/domain"
	"github.com/lulatiAI/ai-imagetovideogen-backend/internal/infra"
	"github.com/lulatiAI/ai-imagetovideogen-backend/internal/metrics"
)

const (
	DefaultPollInterval = 5 * time.Second
	DefaultPollTimeout  = 10 * time.Minute
)

// Clock abstracts time for the poll loop.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time                         { return time.Now() }
func (systemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// TaskSource returns a fresh snapshot of a generation task.
type TaskSource interface {
	Task(ctx context.Context, taskID string) (domain.GenerationTask, error)
}

// PollerOptions configures a Poller. Source is required.
type PollerOptions struct {
	Source   TaskSource
	Interval time.Duration
	Timeout  time.Duration
	Clock    Clock
	Metrics  *metrics.Collector
	Logger   *infra.Logger
}

// Poller waits for a generation task to reach a terminal status.
type Poller struct {
	source   TaskSource
	interval time.Duration
	timeout  time.Duration
	clock    Clock
	metrics  *metrics.Collector
	logger   *infra.Logger
}

func NewPoller(opts PollerOptions) (*Poller, error) {
	if opts.Source == nil {
		return nil, errors.New("pipeline: task source is required")
	}
	p := &Poller{
		source:   opts.Source,
		interval: opts.Interval,
		timeout:  opts.Timeout,
		clock:    opts.Clock,
		metrics:  opts.Metrics,
		logger:   opts.Logger,
	}
	if p.interval <= 0 {
		p.interval = DefaultPollInterval
	}
	if p.timeout <= 0 {
		p.timeout = DefaultPollTimeout
	}
	if p.timeout < p.interval {
		return nil, fmt.Errorf("pipeline: poll timeout %s is shorter than interval %s", p.timeout, p.interval)
	}
	if p.clock == nil {
		p.clock = systemClock{}
	}
	if p.logger == nil {
		p.logger = infra.NopLogger()
	}
	return p, nil
}

// Wait queries the task until it is terminal, the deadline passes or ctx is
// done. A SUCCEEDED task is only returned when it carries at least one
// output URL. Status query errors are returned unchanged and not retried.
func (p *Poller) Wait(ctx context.Context, taskID string) (domain.GenerationTask, error) {
	const op = "wait for task"

	deadline := p.clock.Now().Add(p.timeout)
	attempts := 0
	defer func() { p.metrics.ObservePollAttempts(attempts) }()

	for {
		attempts++
		task, err := p.source.Task(ctx, taskID)
		if err != nil {
			return domain.GenerationTask{}, err
		}

		switch task.Status {
		case domain.TaskStatusSucceeded:
			if len(task.OutputURLs) == 0 {
				return task, domain.Errorf(domain.ErrEmptyOutput, op, "task %s succeeded without output", taskID)
			}
			return task, nil
		case domain.TaskStatusFailed:
			failure := task.Failure
			if failure == "" {
				failure = "no reason given"
			}
			return task, domain.Errorf(domain.ErrGenerationFailed, op, "task %s: %s", taskID, failure)
		}

		remaining := deadline.Sub(p.clock.Now())
		if remaining <= 0 {
			return task, domain.Errorf(domain.ErrPollTimeout, op, "task %s still %s after %s", taskID, task.Status, p.timeout)
		}
		wait := p.interval
		if remaining < wait {
			wait = remaining
		}

		infra.LoggerFrom(ctx, p.logger).Debug().
			Str("task_id", taskID).
			Int("attempt", attempts).
			Dur("next_in", wait).
			Msg("pipeline: task not finished")

		select {
		case <-ctx.Done():
			return task, fmt.Errorf("%s %s: %w", op, taskID, ctx.Err())
		case <-p.clock.After(wait):
		}
	}
}
