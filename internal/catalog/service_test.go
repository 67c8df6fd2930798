package catalog_test

import (
	"context"
	"testing"
	"time"

	"github.com/anved/listkeeper/internal/cache/memory"
	"github.com/anved/listkeeper/internal/catalog"
	"github.com/anved/listkeeper/internal/store"
)

// fakeProvider returns canned suggestions and counts calls.
type fakeProvider struct {
	results []catalog.Suggestion
	calls   int
}

func (p *fakeProvider) Search(ctx context.Context, query string) []catalog.Suggestion {
	p.calls++
	return p.results
}

func TestSuggest_OtherEntryFirst(t *testing.T) {
	provider := &fakeProvider{results: []catalog.Suggestion{
		{Kind: store.ItemKindBook, Title: "Dune", Source: catalog.SourceOpenLibrary},
	}}
	svc := catalog.NewService(provider, nil, nil)

	resp := svc.Suggest(context.Background(), "  dune  ")
	if len(resp.Suggestions) != 2 {
		t.Fatalf("expected 2 suggestions, got %d", len(resp.Suggestions))
	}

	first := resp.Suggestions[0]
	if first.Kind != store.ItemKindOther {
		t.Errorf("expected OTHER entry first, got %q", first.Kind)
	}
	if first.Title != "dune" {
		t.Errorf("expected trimmed query as title, got %q", first.Title)
	}

	if resp.Suggestions[1].Kind != store.ItemKindBook {
		t.Errorf("expected book hit second, got %q", resp.Suggestions[1].Kind)
	}
}

func TestSuggest_BlankQuery(t *testing.T) {
	provider := &fakeProvider{}
	svc := catalog.NewService(provider, nil, nil)

	resp := svc.Suggest(context.Background(), "   ")
	if len(resp.Suggestions) != 0 {
		t.Errorf("expected no suggestions for blank query, got %d", len(resp.Suggestions))
	}
	if provider.calls != 0 {
		t.Errorf("blank query must not hit the provider, got %d calls", provider.calls)
	}
}

func TestSuggest_CachesProviderResults(t *testing.T) {
	provider := &fakeProvider{results: []catalog.Suggestion{
		{Kind: store.ItemKindBook, Title: "Dune"},
	}}
	c := memory.New(time.Minute, 0)
	defer c.Close()

	svc := catalog.NewService(provider, c, nil)
	ctx := context.Background()

	svc.Suggest(ctx, "Dune")
	// Cache key is case-insensitive on the query.
	svc.Suggest(ctx, "dune")

	if provider.calls != 1 {
		t.Errorf("expected 1 provider call with warm cache, got %d", provider.calls)
	}
}

func TestSuggest_EmptyResultsNotCached(t *testing.T) {
	provider := &fakeProvider{}
	c := memory.New(time.Minute, 0)
	defer c.Close()

	svc := catalog.NewService(provider, c, nil)
	ctx := context.Background()

	svc.Suggest(ctx, "obscure")
	svc.Suggest(ctx, "obscure")

	if provider.calls != 2 {
		t.Errorf("empty results must not be cached, got %d provider calls", provider.calls)
	}
}

func TestSuggest_CorruptCacheEntryDropped(t *testing.T) {
	provider := &fakeProvider{results: []catalog.Suggestion{
		{Kind: store.ItemKindBook, Title: "Dune"},
	}}
	c := memory.New(time.Minute, 0)
	defer c.Close()

	ctx := context.Background()
	if err := c.Set(ctx, "catalog:openlibrary:dune", []byte("{not json"), time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	svc := catalog.NewService(provider, c, nil)
	resp := svc.Suggest(ctx, "dune")

	if provider.calls != 1 {
		t.Errorf("corrupt entry should fall through to the provider, got %d calls", provider.calls)
	}
	if len(resp.Suggestions) != 2 {
		t.Errorf("expected 2 suggestions, got %d", len(resp.Suggestions))
	}
}
