package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const contentColumns = `id, title, body, author, language, user_id, workflow_status,
	validation_result, ai_analysis, recommendations, improved_content, created_at, updated_at`

func (s *PostgresStore) InsertContent(ctx context.Context, item ContentItem) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO content_items (id, title, body, author, language, user_id, workflow_status)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7)
	`, item.ID, item.Title, item.Body, item.Author, item.Language, item.UserID, item.WorkflowStatus)
	if err != nil {
		return fmt.Errorf("insert content: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetContent(ctx context.Context, contentID string) (ContentItem, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+contentColumns+` FROM content_items WHERE id=$1`, contentID)
	return scanContent(row)
}

func (s *PostgresStore) ListContent(ctx context.Context, userID string) ([]ContentItem, error) {
	query := `SELECT ` + contentColumns + ` FROM content_items ORDER BY created_at DESC`
	args := []any{}
	if userID != "" {
		query = `SELECT ` + contentColumns + ` FROM content_items WHERE user_id=$1 ORDER BY created_at DESC`
		args = append(args, userID)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list content: %w", err)
	}
	defer rows.Close()

	items := make([]ContentItem, 0)
	for rows.Next() {
		item, err := scanContent(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate content: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) DeleteContent(ctx context.Context, contentID string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM content_items WHERE id=$1`, contentID)
	if err != nil {
		return false, fmt.Errorf("delete content: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete content rows: %w", err)
	}
	return affected > 0, nil
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, contentID, status string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE content_items SET workflow_status=$2, updated_at=NOW() WHERE id=$1
	`, contentID, status)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	return nil
}

func (s *PostgresStore) SetValidation(ctx context.Context, contentID string, result ValidationResult, status string) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal validation: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE content_items SET validation_result=$2, workflow_status=$3, updated_at=NOW() WHERE id=$1
	`, contentID, payload, status)
	if err != nil {
		return fmt.Errorf("set validation: %w", err)
	}
	return nil
}

func (s *PostgresStore) SetAnalysis(ctx context.Context, contentID string, analysis AIAnalysisResult, status string) error {
	payload, err := json.Marshal(analysis)
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE content_items SET ai_analysis=$2, workflow_status=$3, updated_at=NOW() WHERE id=$1
	`, contentID, payload, status)
	if err != nil {
		return fmt.Errorf("set analysis: %w", err)
	}
	return nil
}

func (s *PostgresStore) SetRecommendations(ctx context.Context, contentID string, recommendations []Recommendation, status string) error {
	payload, err := json.Marshal(recommendations)
	if err != nil {
		return fmt.Errorf("marshal recommendations: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE content_items SET recommendations=$2, workflow_status=$3, updated_at=NOW() WHERE id=$1
	`, contentID, payload, status)
	if err != nil {
		return fmt.Errorf("set recommendations: %w", err)
	}
	return nil
}

// UpdateRecommendations replaces the recommendation list without touching the
// workflow status; used by the vote handler to write back denormalized counts.
func (s *PostgresStore) UpdateRecommendations(ctx context.Context, contentID string, recommendations []Recommendation) error {
	payload, err := json.Marshal(recommendations)
	if err != nil {
		return fmt.Errorf("marshal recommendations: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE content_items SET recommendations=$2, updated_at=NOW() WHERE id=$1
	`, contentID, payload)
	if err != nil {
		return fmt.Errorf("update recommendations: %w", err)
	}
	return nil
}

func (s *PostgresStore) SetImprovedContent(ctx context.Context, contentID string, improved ImprovedContent) error {
	payload, err := json.Marshal(improved)
	if err != nil {
		return fmt.Errorf("marshal improved content: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE content_items SET improved_content=$2, updated_at=NOW() WHERE id=$1
	`, contentID, payload)
	if err != nil {
		return fmt.Errorf("set improved content: %w", err)
	}
	return nil
}

// ApplyImprovedBody swaps the body for the improved draft and resets the
// workflow back to the start: analysis, recommendations and validation are
// cleared so the pipeline re-runs against the new body.
func (s *PostgresStore) ApplyImprovedBody(ctx context.Context, contentID, body string, improved ImprovedContent, status string) error {
	payload, err := json.Marshal(improved)
	if err != nil {
		return fmt.Errorf("marshal improved content: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE content_items
		SET body=$2, improved_content=$3, workflow_status=$4,
			validation_result=NULL, ai_analysis=NULL, recommendations=NULL,
			updated_at=NOW()
		WHERE id=$1
	`, contentID, body, payload, status)
	if err != nil {
		return fmt.Errorf("apply improved body: %w", err)
	}
	return nil
}

func (s *PostgresStore) InsertComment(ctx context.Context, comment Comment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO content_comments (id, content_id, user_id, user_name, text, type, target_id)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''))
	`, comment.ID, comment.ContentID, comment.UserID, comment.UserName, comment.Text, comment.Type, comment.TargetID)
	if err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListComments(ctx context.Context, contentID string) ([]Comment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, content_id, user_id, user_name, text, type, COALESCE(target_id, ''), created_at, updated_at
		FROM content_comments
		WHERE content_id=$1
		ORDER BY created_at ASC
	`, contentID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	comments := make([]Comment, 0)
	for rows.Next() {
		var c Comment
		if err := rows.Scan(&c.ID, &c.ContentID, &c.UserID, &c.UserName, &c.Text, &c.Type, &c.TargetID, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}
	return comments, nil
}

// UpsertVote overwrites the caller's previous vote for the recommendation.
func (s *PostgresStore) UpsertVote(ctx context.Context, contentID, recommendationID, userID, vote string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO recommendation_votes (content_id, recommendation_id, user_id, vote)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (content_id, recommendation_id, user_id) DO UPDATE SET vote=EXCLUDED.vote, updated_at=NOW()
	`, contentID, recommendationID, userID, vote)
	if err != nil {
		return fmt.Errorf("upsert vote: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListVotes(ctx context.Context, contentID, recommendationID string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, vote FROM recommendation_votes
		WHERE content_id=$1 AND recommendation_id=$2
	`, contentID, recommendationID)
	if err != nil {
		return nil, fmt.Errorf("list votes: %w", err)
	}
	defer rows.Close()

	votes := make(map[string]string)
	for rows.Next() {
		var userID, vote string
		if err := rows.Scan(&userID, &vote); err != nil {
			return nil, fmt.Errorf("scan vote: %w", err)
		}
		votes[userID] = vote
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate votes: %w", err)
	}
	return votes, nil
}

// ListExpiredTerminal returns items in one of the given statuses whose
// creation time is before the cutoff.
func (s *PostgresStore) ListExpiredTerminal(ctx context.Context, statuses []string, cutoff time.Time) ([]ContentItem, error) {
	payload, err := json.Marshal(statuses)
	if err != nil {
		return nil, fmt.Errorf("marshal statuses: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+contentColumns+`
		FROM content_items
		WHERE created_at < $1
			AND workflow_status IN (SELECT jsonb_array_elements_text($2::jsonb))
		ORDER BY created_at ASC
	`, cutoff, payload)
	if err != nil {
		return nil, fmt.Errorf("list expired content: %w", err)
	}
	defer rows.Close()

	items := make([]ContentItem, 0)
	for rows.Next() {
		item, err := scanContent(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expired content: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) CountContent(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM content_items`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count content: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) InsertRetentionRun(ctx context.Context, run RetentionRun) error {
	ids, err := json.Marshal(run.DeletedIDs)
	if err != nil {
		return fmt.Errorf("marshal deleted ids: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO retention_runs (ran_at, scanned, deleted, deleted_ids, completed_count, avg_processing_ms)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, run.RanAt, run.Scanned, run.Deleted, ids, run.CompletedCount, run.AvgProcessingMS)
	if err != nil {
		return fmt.Errorf("insert retention run: %w", err)
	}
	return nil
}

func (s *PostgresStore) LastRetentionRun(ctx context.Context) (RetentionRun, error) {
	var run RetentionRun
	var ids []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT id, ran_at, scanned, deleted, deleted_ids, completed_count, avg_processing_ms
		FROM retention_runs
		ORDER BY ran_at DESC
		LIMIT 1
	`).Scan(&run.ID, &run.RanAt, &run.Scanned, &run.Deleted, &ids, &run.CompletedCount, &run.AvgProcessingMS)
	if err != nil {
		return RetentionRun{}, err
	}
	if err := json.Unmarshal(ids, &run.DeletedIDs); err != nil {
		return RetentionRun{}, fmt.Errorf("unmarshal deleted ids: %w", err)
	}
	return run, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContent(row rowScanner) (ContentItem, error) {
	var item ContentItem
	var userID sql.NullString
	var validation, analysis, recommendations, improved []byte

	err := row.Scan(
		&item.ID, &item.Title, &item.Body, &item.Author, &item.Language,
		&userID, &item.WorkflowStatus,
		&validation, &analysis, &recommendations, &improved,
		&item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return ContentItem{}, err
	}
	item.UserID = userID.String

	if len(validation) > 0 {
		item.Validation = &ValidationResult{}
		if err := json.Unmarshal(validation, item.Validation); err != nil {
			return ContentItem{}, fmt.Errorf("unmarshal validation: %w", err)
		}
	}
	if len(analysis) > 0 {
		item.Analysis = &AIAnalysisResult{}
		if err := json.Unmarshal(analysis, item.Analysis); err != nil {
			return ContentItem{}, fmt.Errorf("unmarshal analysis: %w", err)
		}
	}
	if len(recommendations) > 0 {
		if err := json.Unmarshal(recommendations, &item.Recommendations); err != nil {
			return ContentItem{}, fmt.Errorf("unmarshal recommendations: %w", err)
		}
	}
	if len(improved) > 0 {
		item.Improved = &ImprovedContent{}
		if err := json.Unmarshal(improved, item.Improved); err != nil {
			return ContentItem{}, fmt.Errorf("unmarshal improved content: %w", err)
		}
	}
	return item, nil
}
