package service

import (
	"context"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Rogue-Bear-Innovations/bookshelf-back/internal/db"
	"github.com/Rogue-Bear-Innovations/bookshelf-back/internal/network"
	"github.com/Rogue-Bear-Innovations/bookshelf-back/internal/remote"
	"github.com/Rogue-Bear-Innovations/bookshelf-back/internal/repository"
)

type BooksSource interface {
	BooksInfo(ctx context.Context, opts ...network.StreamOption) <-chan network.Response[[]remote.BookItem]
}

// BookWithMetadata pairs a cached book with the caller's metadata row, which
// is nil when the user never touched the book.
type BookWithMetadata struct {
	Book     db.Book
	Metadata *db.BookMetadata
}

func (b BookWithMetadata) IsFavourite() bool {
	return b.Metadata != nil && b.Metadata.IsFavourite
}

// Tags splits the free text tags on commas.
func (b BookWithMetadata) Tags() []string {
	if b.Metadata == nil || b.Metadata.Tags == nil {
		return []string{}
	}
	return SplitTags(*b.Metadata.Tags)
}

func SplitTags(s string) []string {
	parts := strings.Split(s, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}

// MergeAndSort attaches to every book the metadata row of userID with the same
// uid and orders the result by publication year, newest first. Books of the
// same year keep their relative order.
func MergeAndSort(books []db.Book, metadata []db.BookMetadata, userID uint64) []BookWithMetadata {
	byUID := make(map[string]*db.BookMetadata, len(metadata))
	for i := range metadata {
		if metadata[i].UserID != userID {
			continue
		}
		byUID[metadata[i].UID] = &metadata[i]
	}

	merged := make([]BookWithMetadata, len(books))
	for i := range books {
		merged[i] = BookWithMetadata{Book: books[i], Metadata: byUID[books[i].UID]}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Book.PublishedYear() > merged[j].Book.PublishedYear()
	})
	return merged
}

type Dashboard struct {
	books    *db.Books
	metadata *db.Metadata
	source   BooksSource
	logger   *zap.SugaredLogger
}

func NewDashboard(books *db.Books, metadata *db.Metadata, repo *repository.DashboardRepo, l *zap.SugaredLogger) *Dashboard {
	return newDashboard(books, metadata, repo, l)
}

func newDashboard(books *db.Books, metadata *db.Metadata, source BooksSource, l *zap.SugaredLogger) *Dashboard {
	return &Dashboard{
		books:    books,
		metadata: metadata,
		source:   source,
		logger:   l,
	}
}

func (s *Dashboard) FetchBooks(ctx context.Context, opts ...network.StreamOption) <-chan network.Response[[]remote.BookItem] {
	return s.source.BooksInfo(ctx, opts...)
}

// CacheBooks stores catalog items, skipping the ones without an id.
func (s *Dashboard) CacheBooks(ctx context.Context, items []remote.BookItem) error {
	books := make([]db.Book, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if item.ID == "" {
			continue
		}
		if _, ok := seen[item.ID]; ok {
			continue
		}
		seen[item.ID] = struct{}{}
		books = append(books, db.Book{
			UID:                  item.ID,
			Image:                item.Image,
			Score:                item.Score,
			Popularity:           item.Popularity,
			Title:                item.Title,
			PublishedChapterDate: item.PublishedChapterDate,
		})
	}
	return s.books.InsertAll(ctx, books)
}

// SyncBooks fetches the catalog and caches it, returning the number of items
// received.
func (s *Dashboard) SyncBooks(ctx context.Context, opts ...network.StreamOption) (int, error) {
	items, err := network.Await(s.FetchBooks(ctx, opts...))
	if err != nil {
		return 0, err
	}
	if err := s.CacheBooks(ctx, items); err != nil {
		return 0, err
	}
	s.logger.Infow("Books synced.", "count", len(items))
	return len(items), nil
}

func (s *Dashboard) BooksCount(ctx context.Context) (int64, error) {
	return s.books.Count(ctx)
}

func (s *Dashboard) AllBooks(ctx context.Context, userID uint64) ([]BookWithMetadata, error) {
	books, err := s.books.All(ctx)
	if err != nil {
		return nil, err
	}
	return s.merge(ctx, books, userID)
}

// Search matches query against titles; a blank query lists every book.
func (s *Dashboard) Search(ctx context.Context, userID uint64, query string) ([]BookWithMetadata, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.AllBooks(ctx, userID)
	}
	books, err := s.books.SearchByTitle(ctx, query)
	if err != nil {
		return nil, err
	}
	return s.merge(ctx, books, userID)
}

func (s *Dashboard) FilterByYear(ctx context.Context, userID uint64, year int) ([]BookWithMetadata, error) {
	books, err := s.books.ByYear(ctx, year)
	if err != nil {
		return nil, err
	}
	return s.merge(ctx, books, userID)
}

func (s *Dashboard) Years(ctx context.Context) ([]int, error) {
	return s.books.Years(ctx)
}

func (s *Dashboard) Favorites(ctx context.Context, userID uint64) ([]BookWithMetadata, error) {
	all, err := s.AllBooks(ctx, userID)
	if err != nil {
		return nil, err
	}
	favorites := make([]BookWithMetadata, 0)
	for _, b := range all {
		if b.IsFavourite() {
			favorites = append(favorites, b)
		}
	}
	return favorites, nil
}

func (s *Dashboard) MarkFavorite(ctx context.Context, userID uint64, uid string) error {
	_, err := s.SetFavorite(ctx, userID, uid, true)
	return err
}

// UnmarkFavorite clears the flag; a book the user never touched is left alone.
func (s *Dashboard) UnmarkFavorite(ctx context.Context, userID uint64, uid string) error {
	m, err := s.metadata.Get(ctx, uid, userID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil
		}
		return err
	}
	m.IsFavourite = false
	return s.metadata.Upsert(ctx, m)
}

// SetFavorite stores the flag and keeps the tags the user already has.
func (s *Dashboard) SetFavorite(ctx context.Context, userID uint64, uid string, favourite bool) (*db.BookMetadata, error) {
	m, err := s.editable(ctx, userID, uid)
	if err != nil {
		return nil, err
	}
	m.IsFavourite = favourite
	if err := s.metadata.Upsert(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// UpdateTags replaces the tags and keeps the favorite flag. Blank tags clear
// the column.
func (s *Dashboard) UpdateTags(ctx context.Context, userID uint64, uid, tags string) (*db.BookMetadata, error) {
	m, err := s.editable(ctx, userID, uid)
	if err != nil {
		return nil, err
	}
	if tags = strings.TrimSpace(tags); tags == "" {
		m.Tags = nil
	} else {
		m.Tags = &tags
	}
	if err := s.metadata.Upsert(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Dashboard) editable(ctx context.Context, userID uint64, uid string) (*db.BookMetadata, error) {
	if _, err := s.books.Get(ctx, uid); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}

	m, err := s.metadata.Get(ctx, uid, userID)
	switch {
	case err == nil:
		return m, nil
	case errors.Is(err, db.ErrNotFound):
		return &db.BookMetadata{UID: uid, UserID: userID}, nil
	default:
		return nil, err
	}
}

func (s *Dashboard) merge(ctx context.Context, books []db.Book, userID uint64) ([]BookWithMetadata, error) {
	metadata, err := s.metadata.ForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return MergeAndSort(books, metadata, userID), nil
}
