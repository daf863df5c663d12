package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/courseloom/courseloom-backend/internal/sse"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []StatusEvent
}

func (n *recordingNotifier) StepEvent(_ context.Context, _ string, ev StatusEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

func (n *recordingNotifier) EntityUpdated(_ context.Context, _ string, _ sse.SSEEvent, _ any) {}

func (n *recordingNotifier) ordered() []StatusEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]StatusEvent, len(n.events))
	copy(out, n.events)
	return out
}

func (n *recordingNotifier) forStep(name string) []StatusEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []StatusEvent
	for _, ev := range n.events {
		if ev.Step == name {
			out = append(out, ev)
		}
	}
	return out
}

func TestRunStep_EmitsStartedThenCompleted(t *testing.T) {
	notifier := &recordingNotifier{}
	runner := &stepRunner{notify: notifier, channel: "c"}

	ran := false
	if err := runner.runStep(context.Background(), "alpha", func(ctx context.Context) error {
		ran = true
		return nil
	}); err != nil {
		t.Fatalf("runStep: %v", err)
	}
	if !ran {
		t.Fatalf("step body did not run")
	}

	got := notifier.forStep("alpha")
	if len(got) != 2 || got[0].Status != StepStarted || got[1].Status != StepCompleted {
		t.Fatalf("unexpected events: %+v", got)
	}
}

func TestRunStep_ErrorEmitsReasonAndWrapsStepName(t *testing.T) {
	notifier := &recordingNotifier{}
	runner := &stepRunner{notify: notifier, channel: "c"}

	boom := errors.New("model unavailable")
	err := runner.runStep(context.Background(), "alpha", func(ctx context.Context) error {
		return boom
	})
	if err == nil || !errors.Is(err, boom) {
		t.Fatalf("expected wrapped step error, got %v", err)
	}

	got := notifier.forStep("alpha")
	if len(got) != 2 || got[1].Status != StepError {
		t.Fatalf("unexpected events: %+v", got)
	}
	if got[1].Reason != reasonGeneration {
		t.Fatalf("expected reason %q, got %q", reasonGeneration, got[1].Reason)
	}
}

func TestRunStep_NotFoundAndPersistenceReasons(t *testing.T) {
	notifier := &recordingNotifier{}
	runner := &stepRunner{notify: notifier, channel: "c"}

	_ = runner.runStep(context.Background(), "missing", func(ctx context.Context) error {
		return fmt.Errorf("lookup: %w", ErrNotFound)
	})
	_ = runner.runStep(context.Background(), "write", func(ctx context.Context) error {
		return wrapPersistence(errors.New("insert failed"))
	})

	if got := notifier.forStep("missing"); got[1].Reason != reasonNotFound {
		t.Fatalf("expected not_found reason, got %q", got[1].Reason)
	}
	if got := notifier.forStep("write"); got[1].Reason != reasonPersistence {
		t.Fatalf("expected persistence reason, got %q", got[1].Reason)
	}
}

func TestRunStep_SkippedStepStillEmits(t *testing.T) {
	notifier := &recordingNotifier{}
	runner := &stepRunner{notify: notifier, channel: "c"}

	if err := runner.runStep(context.Background(), "skipped", nil); err != nil {
		t.Fatalf("skip step errored: %v", err)
	}
	got := notifier.forStep("skipped")
	if len(got) != 2 || got[0].Status != StepStarted || got[1].Status != StepCompleted {
		t.Fatalf("skip should still emit started+completed, got %+v", got)
	}
}

func TestFanOut_SiblingsRunToCompletionOnFailure(t *testing.T) {
	notifier := &recordingNotifier{}
	runner := &stepRunner{notify: notifier, channel: "c"}

	var mu sync.Mutex
	finished := map[string]bool{}
	mark := func(name string) {
		mu.Lock()
		finished[name] = true
		mu.Unlock()
	}

	boom := errors.New("boom")
	steps := []workflowStep{
		{name: "ok_one", run: func(ctx context.Context) error { mark("ok_one"); return nil }},
		{name: "fails", run: func(ctx context.Context) error { return boom }},
		{name: "ok_two", run: func(ctx context.Context) error { mark("ok_two"); return nil }},
		{name: "was_done", skip: true},
	}

	err := runner.fanOut(context.Background(), steps)
	if err == nil || !errors.Is(err, boom) {
		t.Fatalf("expected fan-out to surface step error, got %v", err)
	}

	if !finished["ok_one"] || !finished["ok_two"] {
		t.Fatalf("siblings did not run to completion: %+v", finished)
	}
	for _, name := range []string{"ok_one", "ok_two", "was_done"} {
		got := notifier.forStep(name)
		if len(got) != 2 || got[1].Status != StepCompleted {
			t.Fatalf("step %s missing completed event: %+v", name, got)
		}
	}
	if got := notifier.forStep("fails"); len(got) != 2 || got[1].Status != StepError {
		t.Fatalf("failing step missing error event: %+v", got)
	}
}
