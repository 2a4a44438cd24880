package store

import "time"

// ContentItem is the authoritative record for one submission. The JSON
// sub-structures are stored as JSONB columns and mutated wholesale by the
// workflow stages.
type ContentItem struct {
	ID              string            `json:"contentId"`
	Title           string            `json:"title"`
	Body            string            `json:"body"`
	Author          string            `json:"author"`
	Language        string            `json:"language"`
	UserID          string            `json:"userId,omitempty"`
	WorkflowStatus  string            `json:"workflowStatus"`
	Validation      *ValidationResult `json:"validationResult,omitempty"`
	Analysis        *AIAnalysisResult `json:"aiAnalysis,omitempty"`
	Recommendations []Recommendation  `json:"recommendations,omitempty"`
	Improved        *ImprovedContent  `json:"improvedContent,omitempty"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}

// ValidationResult is overwritten wholesale on each validation pass.
type ValidationResult struct {
	IsValid     bool      `json:"isValid"`
	Errors      []string  `json:"errors"`
	Warnings    []string  `json:"warnings"`
	ValidatedAt time.Time `json:"validatedAt"`
}

type AIAnalysisResult struct {
	Sentiment        string    `json:"sentiment"`
	Topics           []string  `json:"topics"`
	ReadabilityScore float64   `json:"readabilityScore"`
	WordCount        int       `json:"wordCount"`
	QualityScore     float64   `json:"qualityScore"`
	Summary          string    `json:"summary"`
	Strengths        []string  `json:"strengths"`
	Weaknesses       []string  `json:"weaknesses"`
	AnalyzedAt       time.Time `json:"analyzedAt"`
}

type Recommendation struct {
	ID              string      `json:"id"`
	Type            string      `json:"type"`
	Title           string      `json:"title"`
	Description     string      `json:"description"`
	Priority        string      `json:"priority"`
	ActionableSteps []string    `json:"actionableSteps"`
	Votes           *VoteTotals `json:"votes,omitempty"`
}

// VoteTotals is denormalized onto the recommendation; the vote map in
// recommendation_votes stays the source of truth and counts are recomputed
// from it on every write.
type VoteTotals struct {
	Upvotes   int               `json:"upvotes"`
	Downvotes int               `json:"downvotes"`
	UserVotes map[string]string `json:"userVotes"`
}

// ImprovedContent holds at most one rewrite draft per content item.
type ImprovedContent struct {
	OriginalBody string     `json:"originalBody"`
	ImprovedBody string     `json:"improvedBody"`
	Status       string     `json:"status"`
	GeneratedAt  time.Time  `json:"generatedAt"`
	AppliedAt    *time.Time `json:"appliedAt,omitempty"`
}

const (
	ImprovementGenerating = "generating"
	ImprovementCompleted  = "completed"
	ImprovementFailed     = "failed"
)

// Comment rows are append-only; never mutated after creation.
type Comment struct {
	ID        string    `json:"id"`
	ContentID string    `json:"contentId"`
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName"`
	Text      string    `json:"text"`
	Type      string    `json:"type"`
	TargetID  string    `json:"targetId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type RetentionRun struct {
	ID              int64     `json:"id"`
	RanAt           time.Time `json:"ranAt"`
	Scanned         int       `json:"scanned"`
	Deleted         int       `json:"deleted"`
	DeletedIDs      []string  `json:"deletedIds"`
	CompletedCount  int       `json:"completedCount"`
	AvgProcessingMS int64     `json:"avgProcessingMs"`
}
