package mock

import (
	"context"

	"qroute/internal/knowledge"
	"qroute/internal/tool/builtin"
)

// Interface compliance check.
var _ builtin.Searcher = (*Searcher)(nil)

// Searcher is a test double for builtin.Searcher.
// Set the function fields for the methods you need.
type Searcher struct {
	SearchFn       func(ctx context.Context, query string, limit int) ([]knowledge.Hit, error)
	FetchExtractFn func(ctx context.Context, pageID int64) (*knowledge.Page, error)
}

// Search delegates to SearchFn.
func (s *Searcher) Search(ctx context.Context, query string, limit int) ([]knowledge.Hit, error) {
	return s.SearchFn(ctx, query, limit)
}

// FetchExtract delegates to FetchExtractFn.
func (s *Searcher) FetchExtract(ctx context.Context, pageID int64) (*knowledge.Page, error) {
	return s.FetchExtractFn(ctx, pageID)
}
