package app

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"quill/api/internal/config"
	"quill/api/internal/events"
	"quill/api/internal/export"
	"quill/api/internal/notify"
	"quill/api/internal/revisions"
	"quill/api/internal/search"
	"quill/api/internal/store"
	"quill/api/internal/util"
	"quill/api/internal/workflow"
)

type CreateContentInput struct {
	Title    string `json:"title"`
	Body     string `json:"body"`
	Author   string `json:"author"`
	Language string `json:"language"`
	UserID   string `json:"userId"`
}

type CommentInput struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
	Text     string `json:"text"`
	Type     string `json:"type"`
	TargetID string `json:"targetId"`
}

type VoteInput struct {
	UserID string `json:"userId"`
	Vote   string `json:"vote"`
}

type ImproveInput struct {
	UserID string `json:"userId"`
}

type ExportInput struct {
	Format                 string `json:"format"`
	IncludeRecommendations bool   `json:"includeRecommendations"`
	Archive                bool   `json:"archive"`
}

type dataStore interface {
	InsertContent(context.Context, store.ContentItem) error
	GetContent(context.Context, string) (store.ContentItem, error)
	ListContent(context.Context, string) ([]store.ContentItem, error)
	DeleteContent(context.Context, string) (bool, error)
	SetImprovedContent(context.Context, string, store.ImprovedContent) error
	ApplyImprovedBody(context.Context, string, string, store.ImprovedContent, string) error
	UpdateRecommendations(context.Context, string, []store.Recommendation) error
	InsertComment(context.Context, store.Comment) error
	ListComments(context.Context, string) ([]store.Comment, error)
	UpsertVote(ctx context.Context, contentID, recommendationID, userID, vote string) error
	ListVotes(ctx context.Context, contentID, recommendationID string) (map[string]string, error)
	LastRetentionRun(context.Context) (store.RetentionRun, error)
	Ping(ctx context.Context) error
}

type publisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type notifier interface {
	Push(ctx context.Context, update notify.Update)
}

type searchIndex interface {
	Search(q search.Query) search.Response
	IndexContent(rec search.ContentRecord)
	DeleteContent(id string)
}

type exporter interface {
	Export(ctx context.Context, req export.Request) (*export.Result, error)
}

type revisionService interface {
	EnsureRepo(contentID string, initial revisions.Snapshot, author string) error
	Commit(contentID string, snap revisions.Snapshot, author, message string) (revisions.Revision, error)
	History(contentID string, limit int) ([]revisions.Revision, error)
}

type Service struct {
	cfg       config.Config
	store     dataStore
	bus       publisher
	notifier  notifier
	search    searchIndex
	exporter  exporter
	revisions revisionService
}

func New(cfg config.Config, dataStore dataStore, bus publisher, n notifier, idx searchIndex, exp exporter, revs revisionService) *Service {
	return &Service{
		cfg:       cfg,
		store:     dataStore,
		bus:       bus,
		notifier:  n,
		search:    idx,
		exporter:  exp,
		revisions: revs,
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// CreateContent persists a new submission in pending status and kicks off the
// workflow by publishing content.created.
func (s *Service) CreateContent(ctx context.Context, input CreateContentInput) (map[string]any, error) {
	missing := make([]string, 0, 4)
	for _, field := range []struct {
		name  string
		value string
	}{
		{"title", input.Title},
		{"body", input.Body},
		{"author", input.Author},
		{"language", input.Language},
	} {
		if strings.TrimSpace(field.value) == "" {
			missing = append(missing, field.name)
		}
	}
	if len(missing) > 0 {
		return nil, domainError(http.StatusBadRequest, "VALIDATION_ERROR", "Missing required fields", map[string]any{"missing": missing})
	}

	item := store.ContentItem{
		ID:             util.NewTimeID("content"),
		Title:          input.Title,
		Body:           input.Body,
		Author:         input.Author,
		Language:       input.Language,
		UserID:         strings.TrimSpace(input.UserID),
		WorkflowStatus: string(workflow.StatusPending),
	}
	if err := s.store.InsertContent(ctx, item); err != nil {
		return nil, err
	}

	// The insert is committed; everything below is best-effort.
	if s.revisions != nil {
		if err := s.revisions.EnsureRepo(item.ID, revisions.Snapshot{
			Title:    item.Title,
			Body:     item.Body,
			Language: item.Language,
		}, item.Author); err != nil {
			log.Printf("app: init revisions for %s: %v", item.ID, err)
		}
	}
	if s.search != nil {
		s.search.IndexContent(contentRecord(item))
	}
	if err := s.bus.Publish(ctx, events.Event{Topic: events.TopicContentCreated, ContentID: item.ID}); err != nil {
		log.Printf("app: publish content.created for %s: %v", item.ID, err)
	}

	return map[string]any{
		"contentId": item.ID,
		"status":    item.WorkflowStatus,
		"message":   "Content submitted and queued for validation",
	}, nil
}

func (s *Service) GetContent(ctx context.Context, contentID string) (store.ContentItem, error) {
	item, err := s.store.GetContent(ctx, contentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.ContentItem{}, domainError(http.StatusNotFound, "NOT_FOUND", "Content not found", nil)
		}
		return store.ContentItem{}, err
	}
	return item, nil
}

func (s *Service) ListContent(ctx context.Context, userID string) ([]store.ContentItem, error) {
	return s.store.ListContent(ctx, userID)
}

func (s *Service) DeleteContent(ctx context.Context, contentID string) error {
	deleted, err := s.store.DeleteContent(ctx, contentID)
	if err != nil {
		return err
	}
	if !deleted {
		return domainError(http.StatusNotFound, "NOT_FOUND", "Content not found", nil)
	}
	if s.search != nil {
		s.search.DeleteContent(contentID)
	}
	return nil
}

func (s *Service) AddComment(ctx context.Context, contentID string, input CommentInput) (store.Comment, error) {
	if _, err := s.GetContent(ctx, contentID); err != nil {
		return store.Comment{}, err
	}
	if strings.TrimSpace(input.UserID) == "" || strings.TrimSpace(input.UserName) == "" || strings.TrimSpace(input.Text) == "" {
		return store.Comment{}, domainError(http.StatusBadRequest, "VALIDATION_ERROR", "userId, userName and text are required", nil)
	}

	commentType := strings.TrimSpace(input.Type)
	if commentType == "" {
		commentType = "general"
	}

	now := time.Now()
	comment := store.Comment{
		ID:        util.NewTimeID("comment"),
		ContentID: contentID,
		UserID:    input.UserID,
		UserName:  input.UserName,
		Text:      input.Text,
		Type:      commentType,
		TargetID:  strings.TrimSpace(input.TargetID),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.InsertComment(ctx, comment); err != nil {
		return store.Comment{}, err
	}

	s.notifier.Push(ctx, notify.Update{Type: "comment_added", ContentID: contentID})
	if err := s.bus.Publish(ctx, events.Event{Topic: events.TopicCommentAdded, ContentID: contentID}); err != nil {
		log.Printf("app: publish comment.added for %s: %v", contentID, err)
	}
	return comment, nil
}

func (s *Service) ListComments(ctx context.Context, contentID string) ([]store.Comment, error) {
	if _, err := s.GetContent(ctx, contentID); err != nil {
		return nil, err
	}
	return s.store.ListComments(ctx, contentID)
}

// CastVote records or replaces the caller's vote on a recommendation and
// writes recomputed totals back onto the recommendation list.
func (s *Service) CastVote(ctx context.Context, contentID, recommendationID string, input VoteInput) (store.Recommendation, error) {
	if strings.TrimSpace(input.UserID) == "" {
		return store.Recommendation{}, domainError(http.StatusBadRequest, "VALIDATION_ERROR", "userId is required", nil)
	}
	if input.Vote != "up" && input.Vote != "down" {
		return store.Recommendation{}, domainError(http.StatusBadRequest, "VALIDATION_ERROR", `vote must be "up" or "down"`, nil)
	}

	item, err := s.GetContent(ctx, contentID)
	if err != nil {
		return store.Recommendation{}, err
	}

	index := -1
	for i, rec := range item.Recommendations {
		if rec.ID == recommendationID {
			index = i
			break
		}
	}
	if index < 0 {
		return store.Recommendation{}, domainError(http.StatusNotFound, "NOT_FOUND", "Recommendation not found", nil)
	}

	if err := s.store.UpsertVote(ctx, contentID, recommendationID, input.UserID, input.Vote); err != nil {
		return store.Recommendation{}, err
	}

	votes, err := s.store.ListVotes(ctx, contentID, recommendationID)
	if err != nil {
		return store.Recommendation{}, err
	}
	totals := &store.VoteTotals{UserVotes: votes}
	for _, vote := range votes {
		if vote == "up" {
			totals.Upvotes++
		} else {
			totals.Downvotes++
		}
	}
	item.Recommendations[index].Votes = totals

	if err := s.store.UpdateRecommendations(ctx, contentID, item.Recommendations); err != nil {
		return store.Recommendation{}, err
	}

	s.notifier.Push(ctx, notify.Update{Type: "vote_cast", ContentID: contentID})
	if err := s.bus.Publish(ctx, events.Event{Topic: events.TopicVoteCast, ContentID: contentID}); err != nil {
		log.Printf("app: publish vote.cast for %s: %v", contentID, err)
	}
	return item.Recommendations[index], nil
}

// RequestImprovement starts an async rewrite. The generating draft is written
// before returning so repeated requests hit the 409 guard.
func (s *Service) RequestImprovement(ctx context.Context, contentID string) (map[string]any, error) {
	item, err := s.GetContent(ctx, contentID)
	if err != nil {
		return nil, err
	}
	if item.Analysis == nil {
		return nil, domainError(http.StatusBadRequest, "ANALYSIS_REQUIRED", "Content must be analyzed before an improvement can be requested", nil)
	}
	if item.Improved != nil && item.Improved.Status == store.ImprovementGenerating {
		return nil, domainError(http.StatusConflict, "IMPROVEMENT_IN_PROGRESS", "An improvement is already being generated", nil)
	}

	draft := store.ImprovedContent{
		OriginalBody: item.Body,
		Status:       store.ImprovementGenerating,
		GeneratedAt:  time.Now(),
	}
	if err := s.store.SetImprovedContent(ctx, contentID, draft); err != nil {
		return nil, err
	}

	if err := s.bus.Publish(ctx, events.Event{Topic: events.TopicImprovementRequested, ContentID: contentID}); err != nil {
		// Without the event no worker will pick the draft up; roll the
		// status back so the next request is not stuck behind the guard.
		draft.Status = store.ImprovementFailed
		if rollbackErr := s.store.SetImprovedContent(ctx, contentID, draft); rollbackErr != nil {
			log.Printf("app: roll back improvement draft for %s: %v", contentID, rollbackErr)
		}
		return nil, err
	}

	return map[string]any{
		"contentId": contentID,
		"status":    store.ImprovementGenerating,
		"message":   "Improvement generation started",
	}, nil
}

// ApplyImprovement swaps the body for the completed rewrite and resets the
// workflow so the new body is validated and analyzed from scratch.
func (s *Service) ApplyImprovement(ctx context.Context, contentID string) (store.ContentItem, error) {
	item, err := s.GetContent(ctx, contentID)
	if err != nil {
		return store.ContentItem{}, err
	}
	if item.Improved == nil || item.Improved.Status != store.ImprovementCompleted {
		return store.ContentItem{}, domainError(http.StatusBadRequest, "NO_IMPROVEMENT_READY", "No completed improvement draft to apply", nil)
	}
	if item.Improved.AppliedAt != nil {
		return store.ContentItem{}, domainError(http.StatusConflict, "ALREADY_APPLIED", "Improvement has already been applied", nil)
	}

	now := time.Now()
	improved := *item.Improved
	improved.AppliedAt = &now

	if err := s.store.ApplyImprovedBody(ctx, contentID, improved.ImprovedBody, improved, string(workflow.StatusPending)); err != nil {
		return store.ContentItem{}, err
	}

	// Reset is committed; everything below is best-effort.
	if s.revisions != nil {
		if _, err := s.revisions.Commit(contentID, revisions.Snapshot{
			Title:    item.Title,
			Body:     improved.ImprovedBody,
			Language: item.Language,
		}, item.Author, "Apply AI improvement"); err != nil {
			log.Printf("app: record revision for %s: %v", contentID, err)
		}
	}
	updated, err := s.store.GetContent(ctx, contentID)
	if err != nil {
		return store.ContentItem{}, err
	}
	if s.search != nil {
		s.search.IndexContent(contentRecord(updated))
	}
	s.notifier.Push(ctx, notify.Update{Type: "improvement_applied", ContentID: contentID, Status: updated.WorkflowStatus})
	if err := s.bus.Publish(ctx, events.Event{Topic: events.TopicContentCreated, ContentID: contentID}); err != nil {
		log.Printf("app: publish content.created for %s: %v", contentID, err)
	}
	return updated, nil
}

func (s *Service) Search(ctx context.Context, q search.Query) (search.Response, error) {
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: q.Text}, nil
	}
	return s.search.Search(q), nil
}

func (s *Service) Export(ctx context.Context, contentID string, input ExportInput) (*export.Result, error) {
	if s.exporter == nil {
		return nil, domainError(http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "Export is not configured", nil)
	}
	format := export.Format(strings.ToLower(strings.TrimSpace(input.Format)))
	switch format {
	case export.FormatPDF, export.FormatHTML, export.FormatMarkdown:
	case "":
		format = export.FormatHTML
	default:
		return nil, domainError(http.StatusBadRequest, "VALIDATION_ERROR", "format must be markdown, html or pdf", nil)
	}

	result, err := s.exporter.Export(ctx, export.Request{
		ContentID:              contentID,
		Format:                 format,
		IncludeRecommendations: input.IncludeRecommendations,
		Archive:                input.Archive,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || errors.Is(err, export.ErrContentUnavailable) {
			return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Content not found", nil)
		}
		if errors.Is(err, export.ErrPDFDependencyMissing) {
			return nil, domainError(http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "PDF rendering is not available", nil)
		}
		return nil, err
	}
	return result, nil
}

func (s *Service) Revisions(ctx context.Context, contentID string, limit int) ([]revisions.Revision, error) {
	if _, err := s.GetContent(ctx, contentID); err != nil {
		return nil, err
	}
	if s.revisions == nil {
		return []revisions.Revision{}, nil
	}
	history, err := s.revisions.History(contentID, limit)
	if err != nil {
		return nil, err
	}
	return history, nil
}

func (s *Service) RetentionLastRun(ctx context.Context) (store.RetentionRun, error) {
	run, err := s.store.LastRetentionRun(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.RetentionRun{}, domainError(http.StatusNotFound, "NO_RUNS", "Retention has not run yet", nil)
		}
		return store.RetentionRun{}, err
	}
	return run, nil
}

func contentRecord(item store.ContentItem) search.ContentRecord {
	return search.ContentRecord{
		ID:       item.ID,
		Title:    item.Title,
		Body:     item.Body,
		Author:   item.Author,
		Language: item.Language,
		Status:   item.WorkflowStatus,
		UserID:   item.UserID,
	}
}
