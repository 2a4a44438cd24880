// Package notify pushes realtime updates to clients over Redis pub/sub.
//
// Every push is best-effort: the authoritative state write has already
// happened by the time Push is called, so failures here are logged and
// swallowed. Clients fall back to polling the read endpoints.
package notify

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Update is one realtime message for a content item.
type Update struct {
	Type      string    `json:"type"`
	ContentID string    `json:"contentId"`
	Status    string    `json:"status,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type Notifier struct {
	client *redis.Client
	prefix string
}

func New(client *redis.Client) *Notifier {
	return &Notifier{client: client, prefix: "quill:updates:"}
}

// Push publishes the update to the content item's channel. It never returns
// an error; a failed publish must not affect the caller's committed state.
func (n *Notifier) Push(ctx context.Context, update Update) {
	if n == nil || n.client == nil {
		return
	}
	if update.Timestamp.IsZero() {
		update.Timestamp = time.Now()
	}
	payload, err := json.Marshal(update)
	if err != nil {
		log.Printf("notify: marshal %s update for %s: %v", update.Type, update.ContentID, err)
		return
	}
	if err := n.client.Publish(ctx, n.prefix+update.ContentID, payload).Err(); err != nil {
		log.Printf("notify: push %s for %s: %v", update.Type, update.ContentID, err)
	}
}
