// Package workflow implements the content pipeline: validation, AI analysis,
// recommendation generation and on-demand improvement. Each stage is a
// handler triggered by an event, and each persists its authoritative status
// write before any best-effort notification or event emission.
package workflow

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"quill/api/internal/events"
	"quill/api/internal/llm"
	"quill/api/internal/notify"
	"quill/api/internal/store"
)

// Store is the slice of the content store the stages need.
type Store interface {
	GetContent(ctx context.Context, contentID string) (store.ContentItem, error)
	UpdateStatus(ctx context.Context, contentID, status string) error
	SetValidation(ctx context.Context, contentID string, result store.ValidationResult, status string) error
	SetAnalysis(ctx context.Context, contentID string, analysis store.AIAnalysisResult, status string) error
	SetRecommendations(ctx context.Context, contentID string, recommendations []store.Recommendation, status string) error
	SetImprovedContent(ctx context.Context, contentID string, improved store.ImprovedContent) error
}

// Publisher emits events between stages.
type Publisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// Notifier pushes best-effort realtime updates.
type Notifier interface {
	Push(ctx context.Context, update notify.Update)
}

type Engine struct {
	store           Store
	llm             llm.Client
	bus             Publisher
	notifier        Notifier
	analysisTimeout time.Duration
	improveTimeout  time.Duration
}

func NewEngine(dataStore Store, client llm.Client, bus Publisher, notifier Notifier, analysisTimeout, improveTimeout time.Duration) *Engine {
	if analysisTimeout <= 0 {
		analysisTimeout = 45 * time.Second
	}
	if improveTimeout <= 0 {
		improveTimeout = 50 * time.Second
	}
	return &Engine{
		store:           dataStore,
		llm:             client,
		bus:             bus,
		notifier:        notifier,
		analysisTimeout: analysisTimeout,
		improveTimeout:  improveTimeout,
	}
}

// Handle routes one event to its stage. Topics without a stage are
// notification-only and ignored here.
func (e *Engine) Handle(ctx context.Context, event events.Event) error {
	switch event.Topic {
	case events.TopicContentCreated:
		return e.RunValidation(ctx, event.ContentID)
	case events.TopicContentValidated:
		return e.RunAnalysis(ctx, event.ContentID)
	case events.TopicContentAnalyzed:
		return e.RunRecommendations(ctx, event.ContentID, event.Data)
	case events.TopicImprovementRequested:
		return e.RunImprovement(ctx, event.ContentID)
	default:
		return nil
	}
}

// RunValidation checks the submission rules and moves the item to validated
// or rejected.
func (e *Engine) RunValidation(ctx context.Context, contentID string) error {
	item, ok, err := e.loadContent(ctx, contentID, "validation")
	if err != nil || !ok {
		return err
	}

	result := Validate(item)

	next := StatusValidated
	topic := events.TopicContentValidated
	if !result.IsValid {
		next = StatusRejected
		topic = events.TopicContentRejected
	}
	if _, err := Transition(Status(item.WorkflowStatus), next); err != nil {
		return err
	}
	if err := e.store.SetValidation(ctx, contentID, result, string(next)); err != nil {
		return fmt.Errorf("persist validation for %s: %w", contentID, err)
	}

	// Status is committed; everything below is best-effort.
	e.push(ctx, "validation_completed", contentID, next)
	e.emit(ctx, events.Event{Topic: topic, ContentID: contentID})
	return nil
}

// RunAnalysis calls the model and persists the parsed (or fallback) analysis.
func (e *Engine) RunAnalysis(ctx context.Context, contentID string) error {
	item, ok, err := e.loadContent(ctx, contentID, "analysis")
	if err != nil || !ok {
		return err
	}

	if _, err := Transition(Status(item.WorkflowStatus), StatusAnalyzing); err != nil {
		return err
	}
	if err := e.store.UpdateStatus(ctx, contentID, string(StatusAnalyzing)); err != nil {
		return fmt.Errorf("mark %s analyzing: %w", contentID, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, e.analysisTimeout)
	defer cancel()
	raw, err := e.llm.Complete(callCtx, llm.BuildAnalysisPrompt(item.Title, item.Body, item.Language))
	if err != nil {
		// An analysis committed by an earlier attempt must not be collapsed
		// to failed by a later error.
		repaired := StatusFailed
		if item.Analysis != nil {
			repaired = StatusAnalyzed
		}
		if statusErr := e.store.UpdateStatus(ctx, contentID, string(repaired)); statusErr != nil {
			log.Printf("workflow: repair status for %s: %v", contentID, statusErr)
		}
		return fmt.Errorf("analysis call for %s: %w", contentID, err)
	}

	analysis := ParseAnalysis(llm.StripFences(raw), item.Body)
	if err := e.store.SetAnalysis(ctx, contentID, analysis, string(StatusAnalyzed)); err != nil {
		return fmt.Errorf("persist analysis for %s: %w", contentID, err)
	}

	e.push(ctx, "analysis_completed", contentID, StatusAnalyzed)
	payload, _ := json.Marshal(analysis)
	e.emit(ctx, events.Event{Topic: events.TopicContentAnalyzed, ContentID: contentID, Data: payload})
	return nil
}

// RunRecommendations derives the recommendation list from the analysis. The
// analysis travels in the event payload; the stored copy is the fallback.
func (e *Engine) RunRecommendations(ctx context.Context, contentID string, data json.RawMessage) error {
	item, ok, err := e.loadContent(ctx, contentID, "recommendations")
	if err != nil || !ok {
		return err
	}

	var analysis store.AIAnalysisResult
	if len(data) > 0 && json.Unmarshal(data, &analysis) == nil && !analysis.AnalyzedAt.IsZero() {
		// use the payload copy
	} else if item.Analysis != nil {
		analysis = *item.Analysis
	} else {
		log.Printf("workflow: recommendations for %s skipped, no analysis", contentID)
		return nil
	}

	if _, err := Transition(Status(item.WorkflowStatus), StatusCompleted); err != nil {
		return err
	}
	recommendations := BuildRecommendations(analysis)
	if err := e.store.SetRecommendations(ctx, contentID, recommendations, string(StatusCompleted)); err != nil {
		return fmt.Errorf("persist recommendations for %s: %w", contentID, err)
	}

	e.push(ctx, "recommendations_completed", contentID, StatusCompleted)
	e.emit(ctx, events.Event{Topic: events.TopicContentCompleted, ContentID: contentID})
	return nil
}

// RunImprovement generates a rewrite draft. The draft's status is persisted
// as failed before any error is returned, so a stalled generation never
// blocks future requests.
func (e *Engine) RunImprovement(ctx context.Context, contentID string) error {
	item, ok, err := e.loadContent(ctx, contentID, "improvement")
	if err != nil || !ok {
		return err
	}

	draft := store.ImprovedContent{
		OriginalBody: item.Body,
		Status:       store.ImprovementGenerating,
		GeneratedAt:  time.Now(),
	}
	if err := e.store.SetImprovedContent(ctx, contentID, draft); err != nil {
		return fmt.Errorf("persist improvement draft for %s: %w", contentID, err)
	}

	var strengths, weaknesses []string
	if item.Analysis != nil {
		strengths = item.Analysis.Strengths
		weaknesses = item.Analysis.Weaknesses
	}

	callCtx, cancel := context.WithTimeout(ctx, e.improveTimeout)
	defer cancel()
	raw, err := e.llm.Complete(callCtx, llm.BuildImprovementPrompt(item.Title, item.Body, strengths, weaknesses))
	improved := llm.StripFences(raw)
	if err != nil || strings.TrimSpace(improved) == "" {
		draft.Status = store.ImprovementFailed
		if persistErr := e.store.SetImprovedContent(ctx, contentID, draft); persistErr != nil {
			log.Printf("workflow: persist failed improvement for %s: %v", contentID, persistErr)
		}
		if err == nil {
			err = errors.New("model returned an empty rewrite")
		}
		return fmt.Errorf("improvement call for %s: %w", contentID, err)
	}

	draft.ImprovedBody = improved
	draft.Status = store.ImprovementCompleted
	if err := e.store.SetImprovedContent(ctx, contentID, draft); err != nil {
		return fmt.Errorf("persist improvement for %s: %w", contentID, err)
	}

	e.push(ctx, "improvement_completed", contentID, Status(item.WorkflowStatus))
	e.emit(ctx, events.Event{Topic: events.TopicImprovementCompleted, ContentID: contentID})
	return nil
}

// loadContent reads the item; a missing item is a logged no-op, not an error
// signal to the queue.
func (e *Engine) loadContent(ctx context.Context, contentID, stage string) (store.ContentItem, bool, error) {
	item, err := e.store.GetContent(ctx, contentID)
	if errors.Is(err, sql.ErrNoRows) {
		log.Printf("workflow: %s skipped, content %s not found", stage, contentID)
		return store.ContentItem{}, false, nil
	}
	if err != nil {
		return store.ContentItem{}, false, fmt.Errorf("load content %s: %w", contentID, err)
	}
	return item, true, nil
}

func (e *Engine) push(ctx context.Context, updateType, contentID string, status Status) {
	if e.notifier == nil {
		return
	}
	e.notifier.Push(ctx, notify.Update{
		Type:      updateType,
		ContentID: contentID,
		Status:    string(status),
	})
}

// emit publishes after the authoritative write; failures are logged and
// swallowed so they cannot roll back committed state.
func (e *Engine) emit(ctx context.Context, event events.Event) {
	if e.bus == nil {
		return
	}
	if err := e.bus.Publish(ctx, event); err != nil {
		log.Printf("workflow: emit %s for %s: %v", event.Topic, event.ContentID, err)
	}
}
