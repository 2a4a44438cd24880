// Package events carries workflow events between stages over a Redis stream.
//
// Delivery mirrors the queue the handlers were written against: a consumer
// group with at-least-once delivery, redelivery of entries left pending for
// 90 seconds, and a hard cap of two delivery attempts before an entry is
// acknowledged and dropped with a log line.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Topics emitted between stages.
const (
	TopicContentCreated       = "content.created"
	TopicContentValidated     = "content.validated"
	TopicContentRejected      = "content.rejected"
	TopicContentAnalyzed      = "content.analyzed"
	TopicContentCompleted     = "content.completed"
	TopicImprovementRequested = "content.improvement.requested"
	TopicImprovementCompleted = "content.improvement.completed"
	TopicCommentAdded         = "comment.added"
	TopicVoteCast             = "vote.cast"
)

// Event is one workflow trigger. Data carries optional stage input beyond the
// content id (the recommendation stage receives the analysis this way).
type Event struct {
	Topic     string          `json:"topic"`
	ContentID string          `json:"contentId"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Handler processes one event. A returned error leaves the entry pending for
// redelivery.
type Handler func(ctx context.Context, event Event) error

type Bus struct {
	client       *redis.Client
	stream       string
	group        string
	consumer     string
	block        time.Duration
	minIdle      time.Duration
	maxDelivered int64
}

func NewBus(client *redis.Client) *Bus {
	return &Bus{
		client:       client,
		stream:       "quill:events",
		group:        "workflow",
		consumer:     "worker-1",
		block:        2 * time.Second,
		minIdle:      90 * time.Second,
		maxDelivered: 2,
	}
}

// Publish appends the event to the stream. Callers that have already
// committed their state write treat a publish failure as best-effort (logged,
// not propagated); Publish itself just reports the error.
func (b *Bus) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	err = b.client.XAdd(ctx, &redis.XAddArgs{
		Stream: b.stream,
		Values: map[string]any{"event": string(payload)},
	}).Err()
	if err != nil {
		return fmt.Errorf("publish %s: %w", event.Topic, err)
	}
	return nil
}

// Run consumes events until the context is cancelled. It creates the consumer
// group if needed, then alternates between reading new entries and reclaiming
// stale pending ones.
func (b *Bus) Run(ctx context.Context, handler Handler) error {
	err := b.client.XGroupCreateMkStream(ctx, b.stream, b.group, "0").Err()
	if err != nil && !isBusyGroup(err) {
		return fmt.Errorf("create consumer group: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		b.reclaim(ctx, handler)

		streams, err := b.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    b.group,
			Consumer: b.consumer,
			Streams:  []string{b.stream, ">"},
			Count:    10,
			Block:    b.block,
		}).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("events: read group: %v", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
			continue
		}

		for _, stream := range streams {
			for _, message := range stream.Messages {
				b.dispatch(ctx, handler, message)
			}
		}
	}
}

// reclaim redelivers entries another (or a crashed) consumer left pending.
// Entries that already hit the delivery cap are acked and dropped.
func (b *Bus) reclaim(ctx context.Context, handler Handler) {
	pending, err := b.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: b.stream,
		Group:  b.group,
		Idle:   b.minIdle,
		Start:  "-",
		End:    "+",
		Count:  10,
	}).Result()
	if err != nil || len(pending) == 0 {
		return
	}

	for _, entry := range pending {
		if entry.RetryCount >= b.maxDelivered {
			log.Printf("events: dropping entry %s after %d deliveries", entry.ID, entry.RetryCount)
			_ = b.client.XAck(ctx, b.stream, b.group, entry.ID).Err()
			continue
		}
		claimed, err := b.client.XClaim(ctx, &redis.XClaimArgs{
			Stream:   b.stream,
			Group:    b.group,
			Consumer: b.consumer,
			MinIdle:  b.minIdle,
			Messages: []string{entry.ID},
		}).Result()
		if err != nil {
			continue
		}
		for _, message := range claimed {
			b.dispatch(ctx, handler, message)
		}
	}
}

func (b *Bus) dispatch(ctx context.Context, handler Handler, message redis.XMessage) {
	raw, ok := message.Values["event"].(string)
	if !ok {
		log.Printf("events: entry %s has no event payload, acking", message.ID)
		_ = b.client.XAck(ctx, b.stream, b.group, message.ID).Err()
		return
	}

	var event Event
	if err := json.Unmarshal([]byte(raw), &event); err != nil {
		log.Printf("events: entry %s is malformed, acking: %v", message.ID, err)
		_ = b.client.XAck(ctx, b.stream, b.group, message.ID).Err()
		return
	}

	if err := handler(ctx, event); err != nil {
		// Leave pending; the reclaim pass redelivers after minIdle.
		log.Printf("events: handler %s for %s failed: %v", event.Topic, event.ContentID, err)
		return
	}
	_ = b.client.XAck(ctx, b.stream, b.group, message.ID).Err()
}

func isBusyGroup(err error) bool {
	return err != nil && len(err.Error()) >= 9 && err.Error()[:9] == "BUSYGROUP"
}
