package sse

import (
  "testing"

  "github.com/google/uuid"

  "github.com/courseloom/courseloom-backend/internal/logger"
)

func newTestHub(t *testing.T) *SSEHub {
  t.Helper()
  log, err := logger.New("development")
  if err != nil {
    t.Fatalf("logger: %v", err)
  }
  return NewSSEHub(log)
}

func TestBroadcast_DeliversToSubscribedChannelOnly(t *testing.T) {
  hub := newTestHub(t)
  subscribed := hub.NewSSEClient(uuid.New())
  other := hub.NewSSEClient(uuid.New())
  hub.AddChannel(subscribed, "run-1")
  hub.AddChannel(other, "run-2")

  hub.Broadcast(SSEMessage{Channel: "run-1", Event: SSEEventGenerationStep, Data: "payload"})

  select {
  case msg := <-subscribed.Outbound:
    if msg.Channel != "run-1" || msg.Event != SSEEventGenerationStep {
      t.Fatalf("unexpected message: %+v", msg)
    }
  default:
    t.Fatalf("subscribed client received nothing")
  }

  select {
  case msg := <-other.Outbound:
    t.Fatalf("unsubscribed client received %+v", msg)
  default:
  }
}

func TestBroadcast_DropsWhenBufferFull(t *testing.T) {
  hub := newTestHub(t)
  client := hub.NewSSEClient(uuid.New())
  hub.AddChannel(client, "run-1")

  // Fill the outbound buffer and then some; the overflow is dropped, not
  // blocked on.
  for i := 0; i < cap(client.Outbound)+5; i++ {
    hub.Broadcast(SSEMessage{Channel: "run-1", Event: SSEEventGenerationStep})
  }
  if len(client.Outbound) != cap(client.Outbound) {
    t.Fatalf("expected full buffer, got %d of %d", len(client.Outbound), cap(client.Outbound))
  }
}

func TestRemoveChannel_StopsDelivery(t *testing.T) {
  hub := newTestHub(t)
  client := hub.NewSSEClient(uuid.New())
  hub.AddChannel(client, "run-1")
  hub.RemoveChannel(client, "run-1")

  hub.Broadcast(SSEMessage{Channel: "run-1", Event: SSEEventGenerationStep})

  select {
  case msg := <-client.Outbound:
    t.Fatalf("removed client received %+v", msg)
  default:
  }
}
