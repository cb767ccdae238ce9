package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"libdesk/internal/borrowing"
	"libdesk/internal/domain"
	"libdesk/internal/platform/apierr"
	"libdesk/internal/platform/paging"
)

type fakeBooks struct {
	books []domain.Book
	err   error
}

func (f *fakeBooks) Warm(context.Context) error { return f.err }
func (f *fakeBooks) Books() []domain.Book       { return f.books }

type fakeMembers struct{ members []domain.Member }

func (f *fakeMembers) Warm(context.Context) error { return nil }
func (f *fakeMembers) Members() []domain.Member   { return f.members }

type fakeLedger struct {
	recs    []domain.Borrowing
	overdue []borrowing.BorrowingView
}

func (f *fakeLedger) Records(context.Context) ([]domain.Borrowing, error) { return f.recs, nil }

func (f *fakeLedger) Overdue(_ context.Context, p paging.Page) (paging.Result[borrowing.BorrowingView], error) {
	return paging.Paginate(f.overdue, p), nil
}

func fixture() (*fakeBooks, *fakeMembers, *fakeLedger) {
	books := &fakeBooks{}
	for i := int64(1); i <= 6; i++ {
		books.books = append(books.books, domain.Book{ID: i, BookName: "Book"})
	}
	members := &fakeMembers{members: []domain.Member{{ID: 1}, {ID: 2}, {ID: 3}}}
	ledger := &fakeLedger{
		recs: []domain.Borrowing{
			{ID: 1, ReturnStatus: domain.StatusBorrowed},
			{ID: 2, ReturnStatus: domain.StatusReturned},
			{ID: 3, ReturnStatus: domain.StatusUnknown},
		},
	}
	for i := int64(1); i <= 7; i++ {
		ledger.overdue = append(ledger.overdue, borrowing.BorrowingView{Borrowing: domain.Borrowing{ID: i}})
	}
	return books, members, ledger
}

func TestSummary(t *testing.T) {
	svc := NewService(fixture())
	got, err := svc.Summary(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	want := Stats{TotalBooks: 6, BorrowedBooks: 2, OverdueBooks: 7, ActiveMembers: 3}
	if got.Stats != want {
		t.Fatalf("stats = %+v, want %+v", got.Stats, want)
	}
	if len(got.Books) != BookPreview || len(got.Members) != 3 || len(got.Overdue) != OverduePreview {
		t.Fatalf("previews = %d books, %d members, %d overdue", len(got.Books), len(got.Members), len(got.Overdue))
	}
}

func TestSummaryPropagatesLoadFailure(t *testing.T) {
	books, members, ledger := fixture()
	books.err = apierr.ErrUpstream("could not load books", errors.New("down"))
	_, err := NewService(books, members, ledger).Summary(context.Background())
	if !apierr.Is(err, apierr.CodeUpstreamUnavailable) {
		t.Fatalf("err = %v", err)
	}
}

func TestHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, NewService(fixture()))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body struct {
		Stats Stats `json:"stats"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Stats.OverdueBooks != 7 {
		t.Fatalf("body = %s", w.Body)
	}
}
