package catalog_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anved/listkeeper/internal/catalog"
	"github.com/anved/listkeeper/internal/httpclient"
	"github.com/anved/listkeeper/internal/store"
)

func testClient() *httpclient.Client {
	// SSRF protection off so the loopback test server is reachable.
	return httpclient.New(&httpclient.Config{
		SSRFMode:         "off",
		TimeoutMS:        5000,
		ConnectTimeoutMS: 2000,
		MaxRedirects:     1,
		MaxResponseBytes: 1 << 20,
	})
}

func TestSearch_NormalizesDocs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "dune" {
			t.Errorf("expected q=dune, got %q", got)
		}
		if got := r.URL.Query().Get("limit"); got != "10" {
			t.Errorf("expected limit=10, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"docs": [
				{
					"key": "/works/OL893415W",
					"title": "Dune",
					"author_name": ["Frank Herbert"],
					"cover_i": 12345,
					"isbn": ["9780441013593", "0441013597"]
				},
				{
					"key": "/works/OL999W",
					"title": "Dune Messiah"
				}
			]
		}`))
	}))
	defer srv.Close()

	provider := catalog.NewOpenLibraryProvider(testClient(), nil).WithBaseURL(srv.URL)

	results := provider.Search(context.Background(), "dune")
	if len(results) != 2 {
		t.Fatalf("expected 2 suggestions, got %d", len(results))
	}

	first := results[0]
	if first.Kind != store.ItemKindBook {
		t.Errorf("expected kind BOOK, got %q", first.Kind)
	}
	if first.Source != catalog.SourceOpenLibrary {
		t.Errorf("expected source OPEN_LIBRARY, got %q", first.Source)
	}
	if first.SourceID != "/works/OL893415W" {
		t.Errorf("unexpected source id %q", first.SourceID)
	}
	if len(first.Authors) != 1 || first.Authors[0] != "Frank Herbert" {
		t.Errorf("unexpected authors %v", first.Authors)
	}
	if first.CoverURL != "https://covers.openlibrary.org/b/id/12345-M.jpg" {
		t.Errorf("unexpected cover url %q", first.CoverURL)
	}
	if first.ISBN != "9780441013593" {
		t.Errorf("expected first ISBN, got %q", first.ISBN)
	}

	// Docs without cover or ISBN leave those fields empty.
	second := results[1]
	if second.CoverURL != "" || second.ISBN != "" {
		t.Errorf("expected empty cover/isbn, got %q / %q", second.CoverURL, second.ISBN)
	}
}

func TestSearch_ProviderErrorDegradesToNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	provider := catalog.NewOpenLibraryProvider(testClient(), nil).WithBaseURL(srv.URL)
	if results := provider.Search(context.Background(), "dune"); results != nil {
		t.Errorf("expected nil on upstream failure, got %v", results)
	}
}

func TestSearch_BadJSONDegradesToNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{not json"))
	}))
	defer srv.Close()

	provider := catalog.NewOpenLibraryProvider(testClient(), nil).WithBaseURL(srv.URL)
	if results := provider.Search(context.Background(), "dune"); results != nil {
		t.Errorf("expected nil on decode failure, got %v", results)
	}
}

func TestSearch_UnreachableDegradesToNil(t *testing.T) {
	provider := catalog.NewOpenLibraryProvider(testClient(), nil).
		WithBaseURL("http://127.0.0.1:1/search.json")
	if results := provider.Search(context.Background(), "dune"); results != nil {
		t.Errorf("expected nil when upstream is unreachable, got %v", results)
	}
}
