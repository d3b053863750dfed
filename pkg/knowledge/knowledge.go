package knowledge

import (
	"context"
)

// Document is one knowledge base entry returned by a search.
type Document struct {
	ID       int64   `json:"id"`
	Title    string  `json:"title"`
	Category string  `json:"category"`
	Content  string  `json:"content"`
	Score    float64 `json:"score"`
}

// Retriever finds documents relevant to a query, optionally restricted to
// a set of categories. An empty category list means no restriction.
type Retriever interface {
	Search(ctx context.Context, query string, categories []string, topK int) ([]Document, error)
}
