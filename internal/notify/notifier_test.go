package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestPushPublishesToContentChannel(t *testing.T) {
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer client.Close()

	ctx := context.Background()
	sub := client.Subscribe(ctx, "quill:updates:content_1")
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	notifier := New(client)
	notifier.Push(ctx, Update{Type: "analysis_completed", ContentID: "content_1", Status: "analyzed"})

	select {
	case msg := <-sub.Channel():
		var update Update
		if err := json.Unmarshal([]byte(msg.Payload), &update); err != nil {
			t.Fatalf("payload is not JSON: %v", err)
		}
		if update.Type != "analysis_completed" || update.Status != "analyzed" {
			t.Errorf("update = %+v", update)
		}
		if update.Timestamp.IsZero() {
			t.Error("Push must stamp the update")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}
}

func TestPushSwallowsFailures(t *testing.T) {
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	s.Close()
	defer client.Close()

	// Redis is down; Push must not panic or block.
	notifier := New(client)
	notifier.Push(context.Background(), Update{Type: "validation_completed", ContentID: "content_2"})
}

func TestPushNilNotifierIsSafe(t *testing.T) {
	var notifier *Notifier
	notifier.Push(context.Background(), Update{Type: "noop", ContentID: "content_3"})
}
