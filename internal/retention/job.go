// Package retention sweeps out content items that finished their workflow
// long ago, keeping the data set bounded.
package retention

import (
	"context"
	"fmt"
	"log"
	"time"

	"quill/api/internal/store"
	"quill/api/internal/workflow"
)

// maxRecordedIDs caps how many deleted ids a run record keeps.
const maxRecordedIDs = 100

// Store is the subset of the data store the sweep needs.
type Store interface {
	ListExpiredTerminal(ctx context.Context, statuses []string, cutoff time.Time) ([]store.ContentItem, error)
	DeleteContent(ctx context.Context, contentID string) (bool, error)
	CountContent(ctx context.Context) (int, error)
	InsertRetentionRun(ctx context.Context, run store.RetentionRun) error
}

// SearchIndex removes swept items from the search index.
type SearchIndex interface {
	DeleteContent(id string)
}

// Job deletes content items in a terminal workflow status that are older
// than the configured age. Items still moving through the workflow are
// never touched.
type Job struct {
	store  Store
	search SearchIndex
	maxAge time.Duration
}

func NewJob(st Store, search SearchIndex, maxAgeDays int) *Job {
	if maxAgeDays <= 0 {
		maxAgeDays = 90
	}
	return &Job{store: st, search: search, maxAge: time.Duration(maxAgeDays) * 24 * time.Hour}
}

// RunOnce performs a single sweep and records the outcome.
func (j *Job) RunOnce(ctx context.Context, now time.Time) (store.RetentionRun, error) {
	cutoff := now.Add(-j.maxAge)

	expired, err := j.store.ListExpiredTerminal(ctx, workflow.TerminalStatuses(), cutoff)
	if err != nil {
		return store.RetentionRun{}, fmt.Errorf("list expired content: %w", err)
	}

	run := store.RetentionRun{
		RanAt:      now,
		DeletedIDs: make([]string, 0, min(len(expired), maxRecordedIDs)),
	}

	var totalProcessing time.Duration
	for _, item := range expired {
		deleted, err := j.store.DeleteContent(ctx, item.ID)
		if err != nil {
			log.Printf("retention: delete %s: %v", item.ID, err)
			continue
		}
		if !deleted {
			continue
		}
		run.Deleted++
		if len(run.DeletedIDs) < maxRecordedIDs {
			run.DeletedIDs = append(run.DeletedIDs, item.ID)
		}
		if item.WorkflowStatus == string(workflow.StatusCompleted) {
			run.CompletedCount++
			totalProcessing += item.UpdatedAt.Sub(item.CreatedAt)
		}
		if j.search != nil {
			j.search.DeleteContent(item.ID)
		}
	}
	if run.CompletedCount > 0 {
		run.AvgProcessingMS = totalProcessing.Milliseconds() / int64(run.CompletedCount)
	}

	remaining, err := j.store.CountContent(ctx)
	if err != nil {
		log.Printf("retention: count remaining: %v", err)
	}
	run.Scanned = remaining + run.Deleted

	if err := j.store.InsertRetentionRun(ctx, run); err != nil {
		log.Printf("retention: record run: %v", err)
	}

	log.Printf("retention: swept %d of %d expired items, %d remain", run.Deleted, len(expired), remaining)
	return run, nil
}
