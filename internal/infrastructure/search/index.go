package search

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/simple"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/honeynil/BookShareService/internal/models"
)

//go:generate mockgen -source=index.go -destination=mocks/index_mock.go -package=searchmocks

// BookIndex is the full-text view of the book catalogue.
type BookIndex interface {
	IndexBook(book *models.Book) error
	IndexBooks(books []models.Book) error
	DeleteBook(id string) error
	Search(ctx context.Context, q string, limit int) ([]Hit, error)
}

type Hit struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

type Options struct {
	// Path of the on-disk index. Empty keeps the index in memory.
	Path string
}

// SearchIndex is safe for concurrent use.
type SearchIndex struct {
	mu    sync.RWMutex
	index bleve.Index
}

func NewSearchIndex(opts Options) (*SearchIndex, error) {
	if opts.Path == "" {
		index, err := bleve.NewMemOnly(buildMapping())
		if err != nil {
			return nil, fmt.Errorf("create in-memory index: %w", err)
		}
		slog.Info("created in-memory search index")
		return &SearchIndex{index: index}, nil
	}

	path := filepath.Clean(opts.Path)
	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr == nil {
			slog.Info("opened existing search index", "path", path)
			return &SearchIndex{index: index}, nil
		}
		slog.Warn("failed to open search index, recreating", "path", path, "error", openErr)
		if err := os.RemoveAll(path); err != nil {
			return nil, fmt.Errorf("remove broken index: %w", err)
		}
	}

	index, err := bleve.New(path, buildMapping())
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}
	slog.Info("created search index", "path", path)
	return &SearchIndex{index: index}, nil
}

func buildMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()
	im.DefaultAnalyzer = en.AnalyzerName

	doc := bleve.NewDocumentMapping()

	title := bleve.NewTextFieldMapping()
	title.Analyzer = en.AnalyzerName
	doc.AddFieldMappingsAt("title", title)

	author := bleve.NewTextFieldMapping()
	author.Analyzer = simple.Name
	doc.AddFieldMappingsAt("author", author)

	desc := bleve.NewTextFieldMapping()
	desc.Analyzer = en.AnalyzerName
	desc.Store = false
	doc.AddFieldMappingsAt("description", desc)

	genre := bleve.NewTextFieldMapping()
	genre.Analyzer = keyword.Name
	doc.AddFieldMappingsAt("genre", genre)

	status := bleve.NewTextFieldMapping()
	status.Analyzer = keyword.Name
	doc.AddFieldMappingsAt("status", status)

	im.DefaultMapping = doc
	return im
}

func toDocument(b *models.Book) map[string]any {
	genre := make([]string, 0, len(b.Genre))
	for _, g := range b.Genre {
		genre = append(genre, strings.ToLower(g))
	}
	return map[string]any{
		"title":       b.Title,
		"author":      b.Author,
		"description": b.Description,
		"genre":       genre,
		"status":      string(b.Status),
	}
}

func (s *SearchIndex) IndexBook(book *models.Book) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Index(book.ID, toDocument(book))
}

// IndexBooks writes books in batches of 500.
func (s *SearchIndex) IndexBooks(books []models.Book) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	const batchSize = 500
	for i := 0; i < len(books); i += batchSize {
		end := min(i+batchSize, len(books))
		batch := s.index.NewBatch()
		for j := i; j < end; j++ {
			if err := batch.Index(books[j].ID, toDocument(&books[j])); err != nil {
				return fmt.Errorf("batch index %s: %w", books[j].ID, err)
			}
		}
		if err := s.index.Batch(batch); err != nil {
			return fmt.Errorf("commit batch %d-%d: %w", i, end, err)
		}
	}
	return nil
}

func (s *SearchIndex) DeleteBook(id string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Delete(id)
}

// Search matches q against title, author, genre and description, with title
// and author hits ranked first.
func (s *SearchIndex) Search(ctx context.Context, q string, limit int) ([]Hit, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return []Hit{}, nil
	}
	if limit <= 0 {
		limit = 20
	}

	titleQ := bleve.NewMatchQuery(q)
	titleQ.SetField("title")
	titleQ.SetBoost(3)
	titleQ.SetFuzziness(1)

	authorQ := bleve.NewMatchQuery(q)
	authorQ.SetField("author")
	authorQ.SetBoost(2)

	genreQ := bleve.NewTermQuery(strings.ToLower(q))
	genreQ.SetField("genre")

	descQ := bleve.NewMatchQuery(q)
	descQ.SetField("description")

	req := bleve.NewSearchRequestOptions(query.NewDisjunctionQuery([]query.Query{titleQ, authorQ, genreQ, descQ}), limit, 0, false)

	s.mu.RLock()
	defer s.mu.RUnlock()

	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hits = append(hits, Hit{ID: h.ID, Score: h.Score})
	}
	return hits, nil
}

func (s *SearchIndex) DocumentCount() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.DocCount()
}

func (s *SearchIndex) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Close()
}
