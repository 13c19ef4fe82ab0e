package notify

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestNotifierDeliversEvents(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	n, err := NewNotifier(client, Config{
		Stream: "test:notifications",
		Block:  50 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("new notifier: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan Event, 1)
	n.Start(ctx, 1, func(_ context.Context, ev Event) error {
		got <- ev
		return nil
	})
	// Give the consumer group time to register before publishing.
	time.Sleep(100 * time.Millisecond)

	ev := Event{
		Kind:     "star",
		UserID:   "owner-1",
		ActorID:  "user-2",
		TargetID: "hub-1",
		Title:    "New star",
		Message:  "Someone starred your hub",
	}
	if err := n.Enqueue(ctx, ev); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	deadline := time.After(5 * time.Second)
	for {
		select {
		case delivered := <-got:
			if delivered != ev {
				t.Fatalf("delivered = %+v, want %+v", delivered, ev)
			}
			return
		case <-deadline:
			t.Fatalf("timed out waiting for delivery")
		default:
			mr.FastForward(time.Millisecond)
			time.Sleep(time.Millisecond)
		}
	}
}

func TestEnqueueRequiresKindAndUser(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	n, err := NewNotifier(client, Config{Stream: "test:notifications"})
	if err != nil {
		t.Fatalf("new notifier: %v", err)
	}
	if err := n.Enqueue(context.Background(), Event{Kind: "star"}); err == nil {
		t.Fatalf("expected error for missing userId")
	}
}
