package libapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"libdesk/internal/domain"
)

type recorded struct {
	Method      string
	Path        string
	Query       string
	Idempotency string
	Body        map[string]any
}

// newBackend serves fixed JSON bodies keyed by "METHOD /path" and records requests.
func newBackend(t *testing.T, routes map[string]string) (*Client, func() []recorded) {
	t.Helper()
	var mu sync.Mutex
	var calls []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery, Idempotency: r.Header.Get(idempotencyHeader)}
		if data, _ := io.ReadAll(r.Body); len(data) > 0 {
			_ = json.Unmarshal(data, &rec.Body)
		}
		mu.Lock()
		calls = append(calls, rec)
		mu.Unlock()

		body, ok := routes[r.Method+" "+r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"error":"no route"}`)
			return
		}
		if strings.HasPrefix(body, "!") {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = io.WriteString(w, `{"message":"`+body[1:]+`"}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 2*time.Second, time.UTC), func() []recorded {
		mu.Lock()
		defer mu.Unlock()
		return append([]recorded(nil), calls...)
	}
}

func TestListBooksNormalizesFieldVariants(t *testing.T) {
	c, _ := newBackend(t, map[string]string{
		"GET /books": `[
			{"bookId": 1, "bookName": "Dune", "author": "Herbert", "genre": "SciFi", "quantity": 2, "availabilityStatus": "available", "imageUrl": "a.png"},
			{"id": "2", "title": "Emma", "authorName": "Austen", "category": "Classic", "quantity": 0, "status": "BORROWED", "coverImage": "b.png", "ratings": "4.5"}
		]`,
	})

	books, err := c.ListBooks(context.Background(), "")
	if err != nil {
		t.Fatalf("ListBooks: %v", err)
	}
	if len(books) != 2 {
		t.Fatalf("want 2 books, got %d", len(books))
	}
	b := books[1]
	if b.ID != 2 || b.BookName != "Emma" || b.Author != "Austen" {
		t.Fatalf("unexpected book: %+v", b)
	}
	if b.Genre != "Classic" || b.Category != "Classic" {
		t.Fatalf("category/genre fallback failed: %+v", b)
	}
	if b.AvailabilityStatus != domain.Borrowed || b.ImageURL != "b.png" || b.Ratings != 4.5 {
		t.Fatalf("unexpected normalized fields: %+v", b)
	}
	if books[0].AvailabilityStatus != domain.Available {
		t.Fatalf("want Available, got %q", books[0].AvailabilityStatus)
	}
}

func TestListBooksSendsGenreFilter(t *testing.T) {
	c, calls := newBackend(t, map[string]string{"GET /books": `[]`})

	if _, err := c.ListBooks(context.Background(), "Science Fiction"); err != nil {
		t.Fatalf("ListBooks: %v", err)
	}
	got := calls()
	if len(got) != 1 || got[0].Query != "genre=Science+Fiction" {
		t.Fatalf("unexpected calls: %+v", got)
	}
	if got[0].Idempotency != "" {
		t.Fatalf("GET must not carry an idempotency key")
	}
}

func TestListBorrowingsParsesDatesAndStatus(t *testing.T) {
	c, _ := newBackend(t, map[string]string{
		"GET /borrowings": `[
			{"borrowingId": 7, "bookId": 1, "memberId": 3, "borrowingDate": "2025-01-01", "returnDate": "2025-01-15T00:00:00Z", "returnStatus": "borrowed"},
			{"id": 8, "bookId": 1, "memberId": 3, "borrowingDate": "2024-12-01", "returnDate": "2024-12-15", "returnStatus": "RETURNED"},
			{"id": 9, "bookId": 2, "memberId": 4, "borrowingDate": "2025-01-02", "returnStatus": "lost"}
		]`,
	})

	recs, err := c.ListBorrowings(context.Background())
	if err != nil {
		t.Fatalf("ListBorrowings: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("want 3, got %d", len(recs))
	}
	if recs[0].ID != 7 || recs[0].ReturnDate.String() != "2025-01-15" || recs[0].ReturnStatus != domain.StatusBorrowed {
		t.Fatalf("unexpected first record: %+v", recs[0])
	}
	if recs[1].ID != 8 || !recs[1].ReturnStatus.IsReturned() {
		t.Fatalf("unexpected second record: %+v", recs[1])
	}
	if recs[2].ReturnStatus != domain.StatusUnknown || !recs[2].ReturnDate.IsZero() {
		t.Fatalf("unexpected third record: %+v", recs[2])
	}
}

func TestWritesCarryIdempotencyKey(t *testing.T) {
	c, calls := newBackend(t, map[string]string{
		"POST /borrowings":    `{"borrowingId": 11, "bookId": 1, "memberId": 2, "borrowingDate": "2025-01-01", "returnDate": "2025-01-15", "returnStatus": "Borrowed"}`,
		"PUT /books/update/1": ``,
	})
	ctx := context.Background()

	b, err := c.CreateBorrowing(ctx, domain.Borrowing{
		BookID: 1, MemberID: 2,
		BorrowingDate: domain.NewDate(2025, 1, 1),
		ReturnDate:    domain.NewDate(2025, 1, 15),
		ReturnStatus:  domain.StatusBorrowed,
	})
	if err != nil {
		t.Fatalf("CreateBorrowing: %v", err)
	}
	if b.ID != 11 {
		t.Fatalf("want id 11, got %d", b.ID)
	}

	book := domain.Book{ID: 1, BookName: "Dune", Quantity: 0, AvailabilityStatus: domain.Borrowed}
	got, err := c.UpdateBook(ctx, book)
	if err != nil {
		t.Fatalf("UpdateBook: %v", err)
	}
	if got != book {
		t.Fatalf("empty response should fall back to the sent book, got %+v", got)
	}

	rs := calls()
	if len(rs) != 2 {
		t.Fatalf("want 2 calls, got %d", len(rs))
	}
	if rs[0].Idempotency == "" || rs[1].Idempotency == "" || rs[0].Idempotency == rs[1].Idempotency {
		t.Fatalf("each write needs its own idempotency key: %+v", rs)
	}
	if rs[0].Body["borrowingDate"] != "2025-01-01" || rs[0].Body["returnStatus"] != "Borrowed" {
		t.Fatalf("unexpected borrowing payload: %+v", rs[0].Body)
	}
	if rs[0].Body["actualReturnDate"] != nil {
		t.Fatalf("open borrowing must send null actualReturnDate, got %v", rs[0].Body["actualReturnDate"])
	}
	if rs[1].Body["availabilityStatus"] != "Borrowed" {
		t.Fatalf("unexpected book payload: %+v", rs[1].Body)
	}
}

func TestBackendErrorIsTyped(t *testing.T) {
	c, _ := newBackend(t, map[string]string{"GET /members": "!database down"})

	_, err := c.ListMembers(context.Background())
	if err == nil {
		t.Fatal("want error")
	}
	e, ok := err.(*Error)
	if !ok {
		t.Fatalf("want *Error, got %T", err)
	}
	if e.Status != http.StatusInternalServerError || e.Message != "database down" {
		t.Fatalf("unexpected error: %+v", e)
	}
	if IsNotFound(err) {
		t.Fatal("500 is not a not-found")
	}
	if err := c.DeleteMember(context.Background(), 99); !IsNotFound(err) {
		t.Fatalf("want not found, got %v", err)
	}
}

func TestListMembersNormalizesFieldVariants(t *testing.T) {
	c, _ := newBackend(t, map[string]string{
		"GET /members": `[{"id": 5, "fullName": "Ann Lee", "email": "ann@x.io", "phone": "0771234567", "role": "Student"}]`,
	})
	ms, err := c.ListMembers(context.Background())
	if err != nil {
		t.Fatalf("ListMembers: %v", err)
	}
	want := domain.Member{ID: 5, Name: "Ann Lee", Email: "ann@x.io", PhoneNumber: "0771234567", Role: "Student"}
	if len(ms) != 1 || ms[0] != want {
		t.Fatalf("got %+v, want %+v", ms, want)
	}
}

func TestLoginAcceptsBooleanAndPayload(t *testing.T) {
	tests := []struct {
		name string
		body string
		want LoginResult
	}{
		{"bool true", `true`, LoginResult{OK: true, Email: "a@b.c"}},
		{"bool false", `false`, LoginResult{OK: false, Email: "a@b.c"}},
		{"payload", `{"memberId": 3, "name": "Ann", "role": "Librarian"}`, LoginResult{OK: true, Email: "a@b.c", Name: "Ann", Role: "Librarian", MemberID: 3}},
		{"payload rejected", `{"success": false}`, LoginResult{OK: false, Email: "a@b.c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, calls := newBackend(t, map[string]string{"POST /members/auth/login": tt.body})
			got, err := c.Login(context.Background(), "a@b.c", "pw")
			if err != nil {
				t.Fatalf("Login: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
			if rs := calls(); rs[0].Body["email"] != "a@b.c" || rs[0].Body["password"] != "pw" {
				t.Fatalf("unexpected login body: %+v", rs[0].Body)
			}
		})
	}
}

func TestLoginUnauthorizedIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	got, err := NewClient(srv.URL, time.Second, time.UTC).Login(context.Background(), "a@b.c", "bad")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if got.OK {
		t.Fatal("401 must be a failed login")
	}
}
