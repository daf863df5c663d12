package services

import (
  "context"
  "fmt"

  "golang.org/x/sync/errgroup"
)

type stepFunc func(ctx context.Context) error

// workflowStep is one unit of a generation fan-out. A step with skip set
// still emits started/completed events, so the stream shows every step of
// the plan regardless of what the probe found.
type workflowStep struct {
  name string
  skip bool
  run  stepFunc
}

// stepRunner wraps step execution with status events on a single channel.
type stepRunner struct {
  notify  GenerationNotifier
  channel string
}

// runStep emits started, runs fn, then emits completed or error. A nil fn is
// a skip: the events fire and the step succeeds. Errors come back wrapped
// with the step name.
func (r *stepRunner) runStep(ctx context.Context, name string, fn stepFunc) error {
  r.notify.StepEvent(ctx, r.channel, StatusEvent{Step: name, Status: StepStarted})
  if fn != nil {
    if err := fn(ctx); err != nil {
      r.notify.StepEvent(ctx, r.channel, StatusEvent{Step: name, Status: StepError, Reason: reasonFor(err)})
      return fmt.Errorf("%s: %w", name, err)
    }
  }
  r.notify.StepEvent(ctx, r.channel, StatusEvent{Step: name, Status: StepCompleted})
  return nil
}

// fanOut runs each step in its own goroutine and joins. A failing step does
// not cancel its siblings; every step runs to its own completion or error,
// and the first error (if any) surfaces after the join.
func (r *stepRunner) fanOut(ctx context.Context, steps []workflowStep) error {
  var g errgroup.Group
  for _, step := range steps {
    step := step
    g.Go(func() error {
      run := step.run
      if step.skip {
        run = nil
      }
      return r.runStep(ctx, step.name, run)
    })
  }
  return g.Wait()
}
