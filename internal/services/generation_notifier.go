package services

import (
  "context"
  "encoding/json"

  "github.com/courseloom/courseloom-backend/internal/clients/redis"
  "github.com/courseloom/courseloom-backend/internal/logger"
  "github.com/courseloom/courseloom-backend/internal/sse"
)

type StepStatus string

const (
  StepStarted   StepStatus = "started"
  StepCompleted StepStatus = "completed"
  StepError     StepStatus = "error"
)

// StatusEvent is one progress frame on a generation channel. Reason is set
// only when Status is StepError.
type StatusEvent struct {
  Step   string     `json:"step"`
  Status StepStatus `json:"status"`
  Reason string     `json:"reason,omitempty"`
}

// GenerationNotifier streams workflow progress to subscribers. Delivery is
// best effort: a dead hub or bus never fails the workflow that emits.
type GenerationNotifier interface {
  StepEvent(ctx context.Context, channel string, event StatusEvent)
  EntityUpdated(ctx context.Context, channel string, event sse.SSEEvent, data any)
}

type generationNotifier struct {
  log *logger.Logger
  hub *sse.SSEHub
  bus redis.SSEBus
}

// NewGenerationNotifier builds a notifier over the local SSE hub and an
// optional redis bus for cross-instance fanout. bus may be nil.
func NewGenerationNotifier(log *logger.Logger, hub *sse.SSEHub, bus redis.SSEBus) GenerationNotifier {
  return &generationNotifier{
    log: log.With("service", "GenerationNotifier"),
    hub: hub,
    bus: bus,
  }
}

func (n *generationNotifier) StepEvent(ctx context.Context, channel string, event StatusEvent) {
  n.deliver(ctx, channel, sse.SSEEventGenerationStep, event)
}

func (n *generationNotifier) EntityUpdated(ctx context.Context, channel string, event sse.SSEEvent, data any) {
  n.deliver(ctx, channel, event, data)
}

func (n *generationNotifier) deliver(ctx context.Context, channel string, event sse.SSEEvent, data any) {
  payload, err := json.Marshal(data)
  if err != nil {
    n.log.Warn("Failed to marshal sse payload", "channel", channel, "event", event, "error", err)
    return
  }

  msg := sse.SSEMessage{
    Channel: channel,
    Event:   event,
    Data:    json.RawMessage(payload),
  }

  if n.hub != nil {
    n.hub.Broadcast(msg)
  }
  if n.bus != nil {
    if err := n.bus.Publish(ctx, msg); err != nil {
      n.log.Warn("Failed to publish sse message to redis", "channel", channel, "event", event, "error", err)
    }
  }
}
