package export

import (
	"context"
	"fmt"
	"html/template"
	"time"
)

// DataStore defines the interface for data access
type DataStore interface {
	GetContentForExport(ctx context.Context, id string) (ContentInfo, error)
}

// ContentInfo holds the content item fields the export templates need
type ContentInfo struct {
	ID              string
	Title           string
	Body            string
	Author          string
	Language        string
	Status          string
	UpdatedAt       time.Time
	Summary         string
	QualityScore    float64
	HasAnalysis     bool
	Recommendations []RecommendationInfo
}

// RecommendationInfo holds recommendation fields for export
type RecommendationInfo struct {
	Title       string
	Description string
	Priority    string
	Steps       []string
}

// Service renders content items for export
type Service struct {
	store    DataStore
	archiver *Archiver
}

// NewService creates a new export service. archiver may be nil when object
// storage is not configured; exports are then returned inline only.
func NewService(store DataStore, archiver *Archiver) *Service {
	return &Service{store: store, archiver: archiver}
}

// Export generates an export in the requested format and, when an archiver is
// configured, uploads it and attaches a presigned download link.
func (s *Service) Export(ctx context.Context, req Request) (*Result, error) {
	info, err := s.store.GetContentForExport(ctx, req.ContentID)
	if err != nil {
		return nil, fmt.Errorf("get content: %w", err)
	}

	if req.Format == FormatMarkdown {
		res := &Result{
			Data:     []byte(info.Body),
			Filename: sanitizeFilename(info.Title) + ".md",
			MimeType: "text/markdown; charset=utf-8",
		}
		return s.archive(ctx, info.ID, res, req.Archive)
	}

	bodyHTML, err := bodyToHTML(info.Body)
	if err != nil {
		return nil, fmt.Errorf("render body: %w", err)
	}

	data := TemplateData{
		Title:        info.Title,
		Author:       info.Author,
		Language:     info.Language,
		Status:       info.Status,
		UpdatedAt:    info.UpdatedAt,
		BodyHTML:     template.HTML(bodyHTML),
		Summary:      info.Summary,
		QualityScore: info.QualityScore,
		HasAnalysis:  info.HasAnalysis,
	}
	if req.IncludeRecommendations {
		for _, rec := range info.Recommendations {
			data.Recommendations = append(data.Recommendations, TemplateRecommendation{
				Title:       rec.Title,
				Description: rec.Description,
				Priority:    rec.Priority,
				Steps:       rec.Steps,
			})
		}
	}

	html, err := RenderContentHTML(data)
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	var res *Result
	switch req.Format {
	case FormatPDF:
		res, err = exportPDF(html, info.Title)
		if err != nil {
			return nil, err
		}
	case FormatHTML:
		res = &Result{
			Data:     []byte(html),
			Filename: sanitizeFilename(info.Title) + ".html",
			MimeType: "text/html; charset=utf-8",
		}
	default:
		return nil, fmt.Errorf("unsupported format: %s", req.Format)
	}

	return s.archive(ctx, info.ID, res, req.Archive)
}

func (s *Service) archive(ctx context.Context, contentID string, res *Result, requested bool) (*Result, error) {
	if !requested || s.archiver == nil {
		return res, nil
	}
	key, err := s.archiver.Store(ctx, contentID, res)
	if err != nil {
		return nil, fmt.Errorf("archive export: %w", err)
	}
	res.ObjectKey = key
	if url, err := s.archiver.PresignedURL(ctx, key); err == nil {
		res.DownloadURL = url
	}
	return res, nil
}
