package catalog

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"libdesk/internal/domain"
)

// BookAPI is the part of the backend the catalog talks to.
type BookAPI interface {
	ListBooks(ctx context.Context, genre string) ([]domain.Book, error)
	AddBook(ctx context.Context, b domain.Book) (domain.Book, error)
	UpdateBook(ctx context.Context, b domain.Book) (domain.Book, error)
}

// Store holds the last fetched catalog. Readers never see a half-applied refresh.
type Store struct {
	api BookAPI

	mu       sync.RWMutex
	books    []domain.Book
	byID     map[int64]int
	loadedAt time.Time
}

func NewStore(api BookAPI) *Store {
	return &Store{api: api, byID: map[int64]int{}}
}

// Refresh replaces the snapshot with the full catalog.
func (s *Store) Refresh(ctx context.Context) error {
	books, err := s.api.ListBooks(ctx, "")
	if err != nil {
		return err
	}
	books = dedupeByTitle(books)

	// 索引を作ってから一括で差し替える
	byID := make(map[int64]int, len(books))
	for i, b := range books {
		byID[b.ID] = i
	}

	s.mu.Lock()
	s.books = books
	s.byID = byID
	s.loadedAt = time.Now()
	s.mu.Unlock()
	return nil
}

// Loaded reports whether Refresh has succeeded at least once.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.loadedAt.IsZero()
}

func (s *Store) Books() []domain.Book {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.books)
}

func (s *Store) Book(id int64) (domain.Book, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.byID[id]
	if !ok {
		return domain.Book{}, false
	}
	return s.books[i], true
}

// Put inserts or replaces one book without a full refresh.
func (s *Store) Put(b domain.Book) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i, ok := s.byID[b.ID]; ok {
		s.books[i] = b
		return
	}
	s.byID[b.ID] = len(s.books)
	s.books = append(s.books, b)
}

// ResolveBookDisplay never fails; unknown ids get placeholder text.
func (s *Store) ResolveBookDisplay(id int64) domain.BookDisplay {
	b, ok := s.Book(id)
	if !ok {
		return domain.BookDisplay{BookName: domain.UnknownBook, Author: domain.UnknownAuthor}
	}
	d := domain.BookDisplay{BookName: b.BookName, Author: b.Author}
	if d.BookName == "" {
		d.BookName = domain.UnknownBook
	}
	if d.Author == "" {
		d.Author = domain.UnknownAuthor
	}
	return d
}

// Genres lists distinct genres in the snapshot, sorted, first spelling wins.
func (s *Store) Genres() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := map[string]bool{}
	var out []string
	for _, b := range s.books {
		g := strings.TrimSpace(b.Genre)
		if g == "" {
			continue
		}
		k := domain.Fold(g)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, g)
	}
	// 大文字小文字を無視して並べる
	slices.SortFunc(out, func(a, b string) int { return strings.Compare(domain.Fold(a), domain.Fold(b)) })
	return out
}

// dedupeByTitle keeps the first book of every case-insensitive title.
// Untitled books are kept as they are.
func dedupeByTitle(books []domain.Book) []domain.Book {
	seen := make(map[string]bool, len(books))
	out := make([]domain.Book, 0, len(books))
	for _, b := range books {
		k := domain.Fold(b.BookName)
		if k != "" {
			if seen[k] {
				continue
			}
			seen[k] = true
		}
		out = append(out, b)
	}
	return out
}
