package dashboard

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"libdesk/internal/borrowing"
	"libdesk/internal/domain"
	"libdesk/internal/platform/apierr"
	"libdesk/internal/platform/paging"
)

const (
	BookPreview    = 4
	MemberPreview  = 4
	OverduePreview = 5
)

type Books interface {
	Warm(ctx context.Context) error
	Books() []domain.Book
}

type Members interface {
	Warm(ctx context.Context) error
	Members() []domain.Member
}

type Ledger interface {
	Records(ctx context.Context) ([]domain.Borrowing, error)
	Overdue(ctx context.Context, p paging.Page) (paging.Result[borrowing.BorrowingView], error)
}

type Stats struct {
	TotalBooks    int `json:"totalBooks"`
	BorrowedBooks int `json:"borrowedBooks"`
	OverdueBooks  int `json:"overdueBooks"`
	ActiveMembers int `json:"activeMembers"`
}

type Summary struct {
	Stats   Stats                     `json:"stats"`
	Books   []domain.Book             `json:"books"`
	Members []domain.Member           `json:"members"`
	Overdue []borrowing.BorrowingView `json:"overdue"`
}

type Service struct {
	books   Books
	members Members
	ledger  Ledger
}

func NewService(books Books, members Members, ledger Ledger) *Service {
	return &Service{books: books, members: members, ledger: ledger}
}

// Summary loads the three snapshots in parallel and derives the counters.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	var recs []domain.Borrowing
	// 書籍・会員・貸出を並行で読み込む
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.books.Warm(gctx) })
	g.Go(func() error { return s.members.Warm(gctx) })
	g.Go(func() (err error) {
		recs, err = s.ledger.Records(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}

	// 延滞は件数と先頭数件だけ
	over, err := s.ledger.Overdue(ctx, paging.Page{Number: 1, Size: OverduePreview})
	if err != nil {
		return Summary{}, err
	}
	books := s.books.Books()
	members := s.members.Members()

	return Summary{
		Stats: Stats{
			TotalBooks:    len(books),
			BorrowedBooks: len(borrowing.CurrentlyBorrowed(recs)),
			OverdueBooks:  over.Total,
			ActiveMembers: len(members),
		},
		Books:   head(books, BookPreview),
		Members: head(members, MemberPreview),
		Overdue: over.Items,
	}, nil
}

func head[T any](items []T, n int) []T {
	if len(items) > n {
		items = items[:n]
	}
	return append(make([]T, 0, len(items)), items...)
}

// ---------- handler ----------

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	r.GET("/dashboard", h.Get)
}

// Get godoc
// @Summary  Dashboard counters and previews
// @Tags     dashboard
// @Success  200 {object} Summary
// @Router   /dashboard [get]
func (h *Handler) Get(c *gin.Context) {
	res, err := h.svc.Summary(c.Request.Context())
	if err != nil {
		apierr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
