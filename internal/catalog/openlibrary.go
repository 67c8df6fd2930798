package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/anved/listkeeper/internal/httpclient"
	"github.com/anved/listkeeper/internal/logutil"
	"github.com/anved/listkeeper/internal/store"
)

const (
	openLibrarySearchURL = "https://openlibrary.org/search.json"
	openLibraryCoverURL  = "https://covers.openlibrary.org/b/id"

	// SourceOpenLibrary identifies suggestions originating from Open Library.
	SourceOpenLibrary = "OPEN_LIBRARY"

	defaultSearchLimit = 10
)

type openLibraryDoc struct {
	Key        string   `json:"key"`
	Title      string   `json:"title"`
	AuthorName []string `json:"author_name"`
	CoverI     int      `json:"cover_i"`
	ISBN       []string `json:"isbn"`
}

type openLibraryResponse struct {
	Docs []openLibraryDoc `json:"docs"`
}

// OpenLibraryProvider searches the Open Library catalog for books.
type OpenLibraryProvider struct {
	client  *httpclient.Client
	logger  *slog.Logger
	baseURL string
	limit   int
}

// NewOpenLibraryProvider creates an Open Library provider on top of the
// SSRF-guarded outbound client.
func NewOpenLibraryProvider(client *httpclient.Client, logger *slog.Logger) *OpenLibraryProvider {
	return &OpenLibraryProvider{
		client:  client,
		logger:  logutil.NoopIfNil(logger),
		baseURL: openLibrarySearchURL,
		limit:   defaultSearchLimit,
	}
}

// WithBaseURL overrides the search endpoint. Test hook.
func (p *OpenLibraryProvider) WithBaseURL(baseURL string) *OpenLibraryProvider {
	p.baseURL = baseURL
	return p
}

// Search queries Open Library and normalizes results into suggestions.
// Provider failures degrade to an empty result rather than an error:
// catalog suggestions are advisory and must not break item creation flows.
func (p *OpenLibraryProvider) Search(ctx context.Context, query string) []Suggestion {
	u, err := url.Parse(p.baseURL)
	if err != nil {
		return nil
	}
	q := u.Query()
	q.Set("q", query)
	q.Set("limit", fmt.Sprintf("%d", p.limit))
	q.Set("fields", "key,title,author_name,cover_i,isbn")
	u.RawQuery = q.Encode()

	body, resp, err := p.client.GetJSON(ctx, u.String())
	if err != nil {
		p.logger.Error("open library request failed", "error", err)
		return nil
	}
	if resp.StatusCode != http.StatusOK {
		p.logger.Warn("open library returned non-200", "status", resp.StatusCode)
		return nil
	}

	var data openLibraryResponse
	if err := json.Unmarshal(body, &data); err != nil {
		p.logger.Error("open library response decode failed", "error", err)
		return nil
	}

	suggestions := make([]Suggestion, 0, len(data.Docs))
	for _, doc := range data.Docs {
		suggestions = append(suggestions, normalizeDoc(doc))
	}
	return suggestions
}

func normalizeDoc(doc openLibraryDoc) Suggestion {
	s := Suggestion{
		Kind:     store.ItemKindBook,
		Title:    doc.Title,
		Source:   SourceOpenLibrary,
		SourceID: doc.Key,
	}
	if len(doc.AuthorName) > 0 {
		s.Authors = doc.AuthorName
	}
	if doc.CoverI != 0 {
		s.CoverURL = fmt.Sprintf("%s/%d-M.jpg", openLibraryCoverURL, doc.CoverI)
	}
	if len(doc.ISBN) > 0 {
		s.ISBN = doc.ISBN[0]
	}
	return s
}
