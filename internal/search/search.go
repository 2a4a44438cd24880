package search

// Result is a single search hit returned to the caller.
type Result struct {
	ID       string `json:"contentId"`
	Title    string `json:"title"`
	Snippet  string `json:"snippet"`
	Author   string `json:"author"`
	Language string `json:"language"`
	Status   string `json:"status"`
}

// Query describes a search request.
type Query struct {
	Text           string
	FilterStatus   string // empty = all statuses
	FilterLanguage string
	Limit          int
	Offset         int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// ContentRecord is the data we index for a content item.
type ContentRecord struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Body     string `json:"body"`
	Author   string `json:"author"`
	Language string `json:"language"`
	Status   string `json:"status"`
	UserID   string `json:"userId,omitempty"`
}
