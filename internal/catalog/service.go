package catalog

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"libdesk/internal/domain"
	"libdesk/internal/libapi"
	"libdesk/internal/platform/apierr"
	"libdesk/internal/platform/logging"
	"libdesk/internal/platform/paging"
	"libdesk/internal/platform/validate"
)

// AllGenres is the genre filter value meaning "no filter".
const AllGenres = "All Genres"

const PageSize = 10

type Clock interface{ Now() time.Time }
type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type Service struct {
	store    *Store
	api      BookAPI
	validate *validator.Validate
	clock    Clock
	loc      *time.Location
}

func NewService(store *Store, api BookAPI, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		store:    store,
		api:      api,
		validate: validate.New(),
		clock:    realClock{},
		loc:      loc,
	}
}

func (s *Service) Store() *Store { return s.store }

// ensureLoaded fetches the catalog on first use.
func (s *Service) ensureLoaded(ctx context.Context) error {
	if s.store.Loaded() {
		return nil
	}
	return s.Refresh(ctx)
}

// POST /books/refresh
func (s *Service) Refresh(ctx context.Context) error {
	if err := s.store.Refresh(ctx); err != nil {
		return apierr.ErrUpstream("could not load books", err)
	}
	return nil
}

// GET /books
func (s *Service) List(ctx context.Context, q ListQuery, p paging.Page) (paging.Result[domain.Book], error) {
	var books []domain.Book
	genre := strings.TrimSpace(q.Genre)
	if genre == "" || domain.Fold(genre) == domain.Fold(AllGenres) {
		// 全件表示のたびにスナップショットを取り直す
		if err := s.Refresh(ctx); err != nil {
			return paging.Result[domain.Book]{}, err
		}
		books = s.store.Books()
	} else {
		// ジャンル指定はバックエンド側で絞り込む
		remote, err := s.api.ListBooks(ctx, genre)
		if err != nil {
			return paging.Result[domain.Book]{}, apierr.ErrUpstream("could not load books", err)
		}
		books = dedupeByTitle(remote)
	}
	return paging.Paginate(Search(books, q.Search), p), nil
}

// Search keeps books whose title, author or category contains term, ignoring case.
func Search(books []domain.Book, term string) []domain.Book {
	term = strings.TrimSpace(term)
	if term == "" {
		return books
	}
	out := make([]domain.Book, 0, len(books))
	for _, b := range books {
		if domain.ContainsFold(b.BookName, term) ||
			domain.ContainsFold(b.Author, term) ||
			domain.ContainsFold(b.Category, term) {
			out = append(out, b)
		}
	}
	return out
}

// GET /books/genres
func (s *Service) Genres(ctx context.Context) ([]string, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	return s.store.Genres(), nil
}

// Lookup finds a book in the snapshot, loading it first if needed.
func (s *Service) Lookup(ctx context.Context, id int64) (domain.Book, bool, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return domain.Book{}, false, err
	}
	b, ok := s.store.Book(id)
	return b, ok, nil
}

// Warm loads the snapshot if it has not been loaded yet.
func (s *Service) Warm(ctx context.Context) error { return s.ensureLoaded(ctx) }

// ResolveBookDisplay resolves from the current snapshot without loading it.
func (s *Service) ResolveBookDisplay(id int64) domain.BookDisplay {
	return s.store.ResolveBookDisplay(id)
}

// Books returns the current snapshot.
func (s *Service) Books() []domain.Book { return s.store.Books() }

// Remember stores a book the backend just confirmed.
func (s *Service) Remember(b domain.Book) { s.store.Put(b) }

// GET /books/:book_id/display
func (s *Service) Display(ctx context.Context, id int64) domain.BookDisplay {
	if err := s.ensureLoaded(ctx); err != nil {
		logging.FromContext(ctx).Warn("catalog unavailable for display lookup", "book_id", id, "err", err)
	}
	return s.store.ResolveBookDisplay(id)
}

// POST /books
func (s *Service) Add(ctx context.Context, in AddBookRequest) (domain.Book, error) {
	if err := validate.Struct(s.validate, in); err != nil {
		return domain.Book{}, err
	}

	b := domain.Book{
		BookName:          strings.TrimSpace(in.BookName),
		Author:            strings.TrimSpace(in.Author),
		ISBN:              strings.TrimSpace(in.ISBN),
		Category:          strings.TrimSpace(in.Category),
		Genre:             strings.TrimSpace(in.Genre),
		Quantity:          1,
		ImageURL:          strings.TrimSpace(in.ImageURL),
		Publisher:         strings.TrimSpace(in.Publisher),
		Language:          strings.TrimSpace(in.Language),
		Description:       in.Description,
		DateOfPublication: in.DateOfPublication,
	}
	if in.Quantity != nil {
		b.Quantity = *in.Quantity
	}
	if in.Ratings != nil {
		b.Ratings = *in.Ratings
	}
	// 未指定項目の既定値
	if b.Language == "" {
		b.Language = "English"
	}
	if b.DateOfPublication == "" {
		b.DateOfPublication = domain.DateOf(s.clock.Now(), s.loc).String()
	}
	b.AvailabilityStatus = domain.Available
	if in.AvailabilityStatus != "" {
		st, ok := domain.ParseAvailability(in.AvailabilityStatus)
		if !ok {
			return domain.Book{}, apierr.ErrInvalid("availabilityStatus must be Available, Borrowed, Reserved or Maintenance")
		}
		b.AvailabilityStatus = st
	}

	created, err := s.api.AddBook(ctx, b)
	if err != nil {
		return domain.Book{}, apierr.ErrUpstream("could not add book", err)
	}
	// ID が返らない backend もあるので、その場合は取り直す
	if created.ID != 0 {
		s.store.Put(created)
	} else if err := s.store.Refresh(ctx); err != nil {
		logging.FromContext(ctx).Warn("catalog refresh after add failed", "err", err)
	}
	logging.FromContext(ctx).Info("book added", "book_id", created.ID, "title", created.BookName)
	return created, nil
}

// PUT /books/:book_id
func (s *Service) Update(ctx context.Context, id int64, in UpdateBookRequest) (domain.Book, error) {
	if id <= 0 {
		return domain.Book{}, apierr.ErrInvalid("book_id must be positive")
	}
	if err := validate.Struct(s.validate, in); err != nil {
		return domain.Book{}, err
	}
	for name, v := range map[string]*string{"bookName": in.BookName, "author": in.Author, "isbn": in.ISBN, "category": in.Category, "genre": in.Genre} {
		if v != nil && strings.TrimSpace(*v) == "" {
			return domain.Book{}, apierr.ErrInvalid(name + " cannot be empty")
		}
	}
	if err := s.ensureLoaded(ctx); err != nil {
		return domain.Book{}, err
	}
	b, ok := s.store.Book(id)
	if !ok {
		return domain.Book{}, apierr.ErrNotFound("book not found")
	}

	// 部分更新: nil の項目は現状のまま
	setStr := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
		}
	}
	setStr(&b.BookName, in.BookName)
	setStr(&b.Author, in.Author)
	setStr(&b.ISBN, in.ISBN)
	setStr(&b.Category, in.Category)
	setStr(&b.Genre, in.Genre)
	setStr(&b.ImageURL, in.ImageURL)
	setStr(&b.Publisher, in.Publisher)
	setStr(&b.Language, in.Language)
	setStr(&b.DateOfPublication, in.DateOfPublication)
	if in.Description != nil {
		b.Description = *in.Description
	}
	if in.Ratings != nil {
		b.Ratings = *in.Ratings
	}
	// 冊数を変えたら貸出可否も合わせる（明示指定があればそちらを優先）
	if in.Quantity != nil {
		b.Quantity = *in.Quantity
		b.AvailabilityStatus = domain.AvailabilityFor(b.Quantity)
	}
	if in.AvailabilityStatus != nil {
		st, ok := domain.ParseAvailability(*in.AvailabilityStatus)
		if !ok {
			return domain.Book{}, apierr.ErrInvalid("availabilityStatus must be Available, Borrowed, Reserved or Maintenance")
		}
		b.AvailabilityStatus = st
	}

	updated, err := s.api.UpdateBook(ctx, b)
	if err != nil {
		if libapi.IsNotFound(err) {
			return domain.Book{}, apierr.ErrNotFound("book not found")
		}
		return domain.Book{}, apierr.ErrUpstream("could not update book", err)
	}
	s.store.Put(updated)
	return updated, nil
}
