package search

import "strings"

// Query is a semantic search request.
type Query struct {
	Text   string `json:"query"`
	TeamID string `json:"teamId"`
	Limit  int    `json:"limit"`
}

// Normalized trims the text and applies the default limit.
func (q Query) Normalized() Query {
	q.Text = strings.TrimSpace(q.Text)
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	return q
}

// DefaultLimit caps results when a query does not set one.
const DefaultLimit = 20

// Article is a matched leaf.
type Article struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Similarity float64 `json:"similarity"`
}

// Category is a matched category, identified by name.
type Category struct {
	Name       string  `json:"name"`
	Similarity float64 `json:"similarity"`
}

// Overlap relates two categories sharing articles.
type Overlap struct {
	Category1      string  `json:"category1"`
	Category2      string  `json:"category2"`
	SharedArticles int     `json:"sharedArticles"`
	Similarity     float64 `json:"similarity"`
}

// Result is the search service response.
type Result struct {
	Articles   []Article  `json:"articles"`
	Categories []Category `json:"categories"`
	Overlaps   []Overlap  `json:"overlaps"`
	Summary    string     `json:"summary"`
}

// Empty reports whether nothing matched at all.
func (r Result) Empty() bool {
	return len(r.Articles) == 0 && len(r.Categories) == 0 && len(r.Overlaps) == 0
}
