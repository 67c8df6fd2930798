// Package catalog provides item suggestions backed by external book
// catalogs, fronted by a TTL cache.
package catalog

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/anved/listkeeper/internal/cache"
	"github.com/anved/listkeeper/internal/logutil"
	"github.com/anved/listkeeper/internal/store"
)

// Suggestion is one catalog suggestion: either the free-form OTHER entry
// echoing the query, or a BOOK hit from a provider.
type Suggestion struct {
	Kind     string   `json:"kind"`
	Title    string   `json:"title"`
	Source   string   `json:"source,omitempty"`
	SourceID string   `json:"source_id,omitempty"`
	Authors  []string `json:"authors,omitempty"`
	CoverURL string   `json:"cover_url,omitempty"`
	ISBN     string   `json:"isbn,omitempty"`
}

// SuggestionsResponse is the suggestions endpoint payload.
type SuggestionsResponse struct {
	Suggestions []Suggestion `json:"suggestions"`
}

// Provider searches an external catalog.
type Provider interface {
	Search(ctx context.Context, query string) []Suggestion
}

// Service combines provider results with the free-form fallback entry and
// memoizes provider responses in the cache.
type Service struct {
	provider Provider
	cache    cache.Cache
	logger   *slog.Logger
}

// NewService creates a catalog service. The cache may be nil, in which
// case every query hits the provider.
func NewService(provider Provider, c cache.Cache, logger *slog.Logger) *Service {
	return &Service{
		provider: provider,
		cache:    c,
		logger:   logutil.NoopIfNil(logger),
	}
}

// Suggest returns suggestions for a query. The first entry is always the
// free-form OTHER suggestion carrying the query itself, followed by book
// hits. A blank query yields no suggestions at all.
func (s *Service) Suggest(ctx context.Context, query string) *SuggestionsResponse {
	query = strings.TrimSpace(query)
	if query == "" {
		return &SuggestionsResponse{Suggestions: []Suggestion{}}
	}

	other := Suggestion{
		Kind:  store.ItemKindOther,
		Title: query,
	}

	books := s.searchCached(ctx, query)

	suggestions := make([]Suggestion, 0, len(books)+1)
	suggestions = append(suggestions, other)
	suggestions = append(suggestions, books...)
	return &SuggestionsResponse{Suggestions: suggestions}
}

func (s *Service) searchCached(ctx context.Context, query string) []Suggestion {
	key := "catalog:openlibrary:" + strings.ToLower(query)

	if s.cache != nil {
		if data, err := s.cache.Get(ctx, key); err == nil {
			var cached []Suggestion
			if err := json.Unmarshal(data, &cached); err == nil {
				return cached
			}
			// Corrupt entry, drop it and fall through to the provider.
			_ = s.cache.Delete(ctx, key)
		}
	}

	books := s.provider.Search(ctx, query)

	if s.cache != nil && len(books) > 0 {
		if data, err := json.Marshal(books); err == nil {
			if err := s.cache.Set(ctx, key, data, cache.TTLCatalog); err != nil {
				s.logger.Warn("catalog cache write failed", "error", err)
			}
		}
	}
	return books
}
