package export

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"quill/api/internal/store"
)

// ContentGetter is the slice of the data store the export source needs.
type ContentGetter interface {
	GetContent(ctx context.Context, contentID string) (store.ContentItem, error)
}

// StoreSource adapts the content store to the export DataStore interface.
type StoreSource struct {
	store ContentGetter
}

func NewStoreSource(st ContentGetter) *StoreSource {
	return &StoreSource{store: st}
}

func (s *StoreSource) GetContentForExport(ctx context.Context, id string) (ContentInfo, error) {
	item, err := s.store.GetContent(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ContentInfo{}, fmt.Errorf("%w: %s", ErrContentUnavailable, id)
		}
		return ContentInfo{}, err
	}

	info := ContentInfo{
		ID:        item.ID,
		Title:     item.Title,
		Body:      item.Body,
		Author:    item.Author,
		Language:  item.Language,
		Status:    item.WorkflowStatus,
		UpdatedAt: item.UpdatedAt,
	}
	if item.Analysis != nil {
		info.HasAnalysis = true
		info.Summary = item.Analysis.Summary
		info.QualityScore = item.Analysis.QualityScore
	}
	for _, rec := range item.Recommendations {
		info.Recommendations = append(info.Recommendations, RecommendationInfo{
			Title:       rec.Title,
			Description: rec.Description,
			Priority:    rec.Priority,
			Steps:       rec.ActionableSteps,
		})
	}
	return info, nil
}
