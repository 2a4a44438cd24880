package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupTestBus(t *testing.T) (*Bus, *redis.Client) {
	t.Helper()
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewBus(client), client
}

func TestPublishAppendsToStream(t *testing.T) {
	bus, client := setupTestBus(t)
	ctx := context.Background()

	err := bus.Publish(ctx, Event{Topic: TopicContentCreated, ContentID: "content_1"})
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	length, err := client.XLen(ctx, bus.stream).Result()
	if err != nil {
		t.Fatalf("XLen failed: %v", err)
	}
	if length != 1 {
		t.Fatalf("stream length = %d, want 1", length)
	}
}

func TestRunDeliversAndAcks(t *testing.T) {
	bus, client := setupTestBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var received []Event
	done := make(chan struct{})
	handler := func(_ context.Context, event Event) error {
		mu.Lock()
		received = append(received, event)
		mu.Unlock()
		close(done)
		return nil
	}

	go func() { _ = bus.Run(ctx, handler) }()

	// Give the consumer group a moment to exist before publishing.
	time.Sleep(100 * time.Millisecond)
	if err := bus.Publish(ctx, Event{Topic: TopicContentValidated, ContentID: "content_2"}); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("handler was not invoked")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 1 || received[0].Topic != TopicContentValidated || received[0].ContentID != "content_2" {
		t.Fatalf("received = %+v", received)
	}

	// Acked entries leave the pending list.
	deadline := time.Now().Add(2 * time.Second)
	for {
		pending, err := client.XPending(context.Background(), bus.stream, bus.group).Result()
		if err == nil && pending.Count == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("entry was not acked, pending = %+v", pending)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestHandlerErrorLeavesEntryPending(t *testing.T) {
	bus, client := setupTestBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	var once sync.Once
	handler := func(context.Context, Event) error {
		once.Do(func() { close(done) })
		return errors.New("stage failed")
	}

	go func() { _ = bus.Run(ctx, handler) }()

	time.Sleep(100 * time.Millisecond)
	if err := bus.Publish(ctx, Event{Topic: TopicContentCreated, ContentID: "content_3"}); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("handler was not invoked")
	}
	cancel()

	pending, err := client.XPending(context.Background(), bus.stream, bus.group).Result()
	if err != nil {
		t.Fatalf("XPending failed: %v", err)
	}
	if pending.Count != 1 {
		t.Fatalf("pending count = %d, want 1", pending.Count)
	}
}

func TestDispatchAcksMalformedEntries(t *testing.T) {
	bus, client := setupTestBus(t)
	ctx := context.Background()

	if err := client.XGroupCreateMkStream(ctx, bus.stream, bus.group, "0").Err(); err != nil {
		t.Fatalf("create group: %v", err)
	}
	if err := client.XAdd(ctx, &redis.XAddArgs{
		Stream: bus.stream,
		Values: map[string]any{"event": "{not json"},
	}).Err(); err != nil {
		t.Fatalf("XAdd failed: %v", err)
	}

	streams, err := client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    bus.group,
		Consumer: bus.consumer,
		Streams:  []string{bus.stream, ">"},
		Count:    1,
	}).Result()
	if err != nil {
		t.Fatalf("XReadGroup failed: %v", err)
	}

	called := false
	handler := func(context.Context, Event) error { called = true; return nil }
	bus.dispatch(ctx, handler, streams[0].Messages[0])

	if called {
		t.Error("malformed entry must not reach the handler")
	}
	pending, err := client.XPending(ctx, bus.stream, bus.group).Result()
	if err != nil {
		t.Fatalf("XPending failed: %v", err)
	}
	if pending.Count != 0 {
		t.Errorf("malformed entry must be acked, pending = %d", pending.Count)
	}
}

func TestReclaimDropsAfterDeliveryCap(t *testing.T) {
	bus, client := setupTestBus(t)
	bus.minIdle = 0
	ctx := context.Background()

	if err := client.XGroupCreateMkStream(ctx, bus.stream, bus.group, "0").Err(); err != nil {
		t.Fatalf("create group: %v", err)
	}
	if err := bus.Publish(ctx, Event{Topic: TopicContentCreated, ContentID: "content_4"}); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	failing := func(context.Context, Event) error { return errors.New("always fails") }

	// First delivery.
	streams, err := client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    bus.group,
		Consumer: bus.consumer,
		Streams:  []string{bus.stream, ">"},
		Count:    1,
	}).Result()
	if err != nil {
		t.Fatalf("XReadGroup failed: %v", err)
	}
	bus.dispatch(ctx, failing, streams[0].Messages[0])

	// Redelivery via reclaim, then the cap kicks in.
	bus.reclaim(ctx, failing)
	bus.reclaim(ctx, failing)

	pending, err := client.XPending(ctx, bus.stream, bus.group).Result()
	if err != nil {
		t.Fatalf("XPending failed: %v", err)
	}
	if pending.Count != 0 {
		t.Errorf("entry past the delivery cap must be dropped, pending = %d", pending.Count)
	}
}
