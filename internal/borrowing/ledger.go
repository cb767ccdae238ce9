package borrowing

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"libdesk/internal/domain"
	"libdesk/internal/libapi"
	"libdesk/internal/platform/apierr"
	"libdesk/internal/platform/logging"
	"libdesk/internal/platform/paging"
	"libdesk/internal/platform/validate"
	"libdesk/internal/reconcile"
)

const (
	PageSize        = 5
	OverduePageSize = 15
)

// ===== 依存 =====

// LedgerAPI is the part of the library backend the ledger writes to.
type LedgerAPI interface {
	ListBorrowings(ctx context.Context) ([]domain.Borrowing, error)
	CreateBorrowing(ctx context.Context, b domain.Borrowing) (domain.Borrowing, error)
	UpdateBorrowing(ctx context.Context, b domain.Borrowing) (domain.Borrowing, error)
	UpdateBook(ctx context.Context, b domain.Book) (domain.Book, error)
}

type Books interface {
	Warm(ctx context.Context) error
	Lookup(ctx context.Context, id int64) (domain.Book, bool, error)
	Remember(b domain.Book)
	ResolveBookDisplay(id int64) domain.BookDisplay
}

type Members interface {
	Warm(ctx context.Context) error
	Lookup(ctx context.Context, id int64) (domain.Member, bool, error)
	ResolveMemberDisplay(id int64) domain.MemberDisplay
}

// Journal records issue failures that needed compensation.
type Journal interface {
	Record(ctx context.Context, f reconcile.Failure) (reconcile.Entry, error)
}

type Clock interface{ Now() time.Time }
type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type Deps struct {
	API      LedgerAPI
	Books    Books
	Members  Members
	Journal  Journal
	Forms    *Forms
	Policy   Policy
	Location *time.Location
}

// ===== Ledger本体 =====

type Ledger struct {
	api      LedgerAPI
	books    Books
	members  Members
	journal  Journal
	forms    *Forms
	policy   Policy
	loc      *time.Location
	clock    Clock
	validate *validator.Validate

	// 最後に取得した一覧。読み取りのたびに取り直す
	mu      sync.RWMutex
	records []domain.Borrowing

	hookMu    sync.Mutex
	onChanged []func(ctx context.Context)
}

func NewLedger(d Deps) *Ledger {
	if d.Location == nil {
		d.Location = time.Local
	}
	if d.Forms == nil {
		d.Forms = NewForms(0)
	}
	return &Ledger{
		api:      d.API,
		books:    d.Books,
		members:  d.Members,
		journal:  d.Journal,
		forms:    d.Forms,
		policy:   d.Policy,
		loc:      d.Location,
		clock:    realClock{},
		validate: validate.New(),
	}
}

func (l *Ledger) Policy() Policy { return l.policy }

func (l *Ledger) Location() *time.Location { return l.loc }

func (l *Ledger) Now() time.Time { return l.clock.Now() }

// OnChanged registers fn to run after every successful issue or return.
func (l *Ledger) OnChanged(fn func(ctx context.Context)) {
	l.hookMu.Lock()
	defer l.hookMu.Unlock()
	l.onChanged = append(l.onChanged, fn)
}

func (l *Ledger) changed(ctx context.Context) {
	l.hookMu.Lock()
	hooks := append([]func(context.Context){}, l.onChanged...)
	l.hookMu.Unlock()
	for _, fn := range hooks {
		fn(ctx)
	}
}

// ---------- snapshot ----------

// Refresh replaces the cached borrowings with the backend's list.
// POST /borrowings/refresh
func (l *Ledger) Refresh(ctx context.Context) error {
	_, err := l.fetch(ctx)
	return err
}

func (l *Ledger) fetch(ctx context.Context) ([]domain.Borrowing, error) {
	recs, err := l.api.ListBorrowings(ctx)
	if err != nil {
		return nil, apierr.ErrUpstream("could not load borrowings", err)
	}
	l.mu.Lock()
	l.records = recs
	l.mu.Unlock()
	logging.FromContext(ctx).Debug("borrowings refreshed", "count", len(recs))
	return append([]domain.Borrowing(nil), recs...), nil
}

// Records fetches the backend's current list. Nothing is served from the cache.
func (l *Ledger) Records(ctx context.Context) ([]domain.Borrowing, error) {
	return l.fetch(ctx)
}

func (l *Ledger) find(id int64) (domain.Borrowing, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, r := range l.records {
		if r.ID == id {
			return r, true
		}
	}
	return domain.Borrowing{}, false
}

// ---------- issue ----------

// Submit runs the issue form of one session. A submit while another is in
// flight is refused untouched; otherwise the input is kept as the form draft,
// checked without network, then issued.
func (l *Ledger) Submit(ctx context.Context, sessionID string, in IssueRequest) (IssueResult, error) {
	form := l.forms.Get(sessionID)
	// 送信中の二重送信は下書きも含めて何も変えない
	if form.InFlight() {
		return IssueResult{}, apierr.ErrInProgress()
	}
	form.keep(in)

	if err := validate.Struct(l.validate, in); err != nil {
		return IssueResult{}, err
	}
	issue, err := l.parseDates(in)
	if err != nil {
		return IssueResult{}, err
	}

	book, ok, err := l.books.Lookup(ctx, in.BookID)
	if err != nil {
		return IssueResult{}, err
	}
	if !ok {
		return IssueResult{}, apierr.ErrInvalid("bookId does not match a book in the catalog")
	}
	member, ok, err := l.members.Lookup(ctx, in.MemberID)
	if err != nil {
		return IssueResult{}, err
	}
	if !ok {
		return IssueResult{}, apierr.ErrInvalid("memberId does not match a member")
	}
	issue.Book = book
	issue.Member = member
	return l.IssueBook(ctx, form, issue)
}

func (l *Ledger) parseDates(in IssueRequest) (Issue, error) {
	var out Issue
	d, err := domain.ParseDate(in.IssueDate, l.loc)
	if err != nil || d.IsZero() {
		return Issue{}, apierr.ErrInvalid("issueDate must be YYYY-MM-DD")
	}
	out.IssueDate = d
	if strings.TrimSpace(in.DueDate) != "" {
		due, err := domain.ParseDate(in.DueDate, l.loc)
		if err != nil {
			return Issue{}, apierr.ErrInvalid("dueDate must be YYYY-MM-DD")
		}
		out.DueDate = due
	}
	return out, nil
}

func (l *Ledger) checkIssue(in *Issue) error {
	switch {
	case in.Book.ID <= 0:
		return apierr.ErrInvalid("book is required")
	case in.Member.ID <= 0:
		return apierr.ErrInvalid("member is required")
	case in.IssueDate.IsZero():
		return apierr.ErrInvalid("issueDate is required")
	}
	if in.DueDate.IsZero() {
		in.DueDate = l.policy.DueDate(in.IssueDate)
	}
	if in.DueDate.Before(in.IssueDate) {
		return apierr.ErrInvalid("dueDate cannot be before issueDate")
	}
	if in.Book.Quantity <= 0 {
		return apierr.ErrInvalid("no copies of this book are available")
	}
	return nil
}

// IssueBook creates the borrowing and takes one copy out of the book. Both
// writes go out together and are not cancelled with ctx. When only one
// succeeds it is undone and the failure is journaled.
func (l *Ledger) IssueBook(ctx context.Context, form *IssueForm, in Issue) (IssueResult, error) {
	if err := l.checkIssue(&in); err != nil {
		return IssueResult{}, err
	}
	gen, ok := form.tryBegin()
	if !ok {
		return IssueResult{}, apierr.ErrInProgress()
	}
	defer form.settle(gen)

	log := logging.FromContext(ctx)
	wctx := context.WithoutCancel(ctx)

	rec := domain.Borrowing{
		BookID:        in.Book.ID,
		MemberID:      in.Member.ID,
		BorrowerName:  in.Member.Name,
		BorrowerEmail: in.Member.Email,
		BorrowingDate: in.IssueDate,
		ReturnDate:    in.DueDate,
		ReturnStatus:  domain.StatusBorrowed,
	}
	taken := in.Book.AfterIssue()

	var (
		created            domain.Borrowing
		updated            domain.Book
		createErr, bookErr error
	)
	var g errgroup.Group
	g.Go(func() error {
		created, createErr = l.api.CreateBorrowing(wctx, rec)
		return createErr
	})
	g.Go(func() error {
		updated, bookErr = l.api.UpdateBook(wctx, taken)
		return bookErr
	})
	if err := g.Wait(); err == nil {
		form.clearIfGen(gen)
		l.books.Remember(updated)
		log.Info("book issued",
			"borrowing_id", created.ID, "book_id", in.Book.ID, "member_id", in.Member.ID,
			"due_date", in.DueDate.String(), "quantity", updated.Quantity)
		l.changed(wctx)
		return IssueResult{Borrowing: created, Book: updated}, nil
	}

	switch {
	case createErr != nil && bookErr != nil:
		log.Warn("issue failed", "book_id", in.Book.ID, "member_id", in.Member.ID, "err", errors.Join(createErr, bookErr))
		return IssueResult{}, apierr.ErrUpstream("could not issue book", errors.Join(createErr, bookErr))
	case createErr != nil:
		return IssueResult{}, l.restoreBook(wctx, in, createErr)
	default:
		return IssueResult{}, l.voidBorrowing(wctx, in, created, bookErr)
	}
}

// restoreBook puts the book back after the borrowing could not be created.
func (l *Ledger) restoreBook(ctx context.Context, in Issue, cause error) error {
	_, cerr := l.api.UpdateBook(ctx, in.Book)
	if cerr == nil {
		l.books.Remember(in.Book)
	}
	l.record(ctx, reconcile.Failure{
		BookID:      in.Book.ID,
		MemberID:    in.Member.ID,
		FailedStep:  reconcile.StepCreateBorrowing,
		Compensated: cerr == nil,
		Detail:      detail(cause, "restore book quantity", cerr),
	})
	if cerr != nil {
		return apierr.ErrPartial("book quantity changed but the borrowing was not created", errors.Join(cause, cerr))
	}
	return apierr.ErrUpstream("could not create borrowing", cause)
}

// voidBorrowing closes a borrowing whose book update failed. It is marked
// returned on the issue date so it never counts as out or overdue.
func (l *Ledger) voidBorrowing(ctx context.Context, in Issue, created domain.Borrowing, cause error) error {
	var cerr error
	if created.ID == 0 {
		cerr = errors.New("backend returned no borrowing id")
	} else {
		v := created
		v.ReturnStatus = domain.StatusReturned
		v.ActualReturnDate = in.IssueDate
		_, cerr = l.api.UpdateBorrowing(ctx, v)
	}
	l.record(ctx, reconcile.Failure{
		BorrowingID: created.ID,
		BookID:      in.Book.ID,
		MemberID:    in.Member.ID,
		FailedStep:  reconcile.StepUpdateBook,
		Compensated: cerr == nil,
		Detail:      detail(cause, "void borrowing", cerr),
	})
	if cerr != nil {
		return apierr.ErrPartial("borrowing created but the book was not updated", errors.Join(cause, cerr))
	}
	return apierr.ErrUpstream("could not update book", cause)
}

func (l *Ledger) record(ctx context.Context, f reconcile.Failure) {
	log := logging.FromContext(ctx)
	if l.journal == nil {
		log.Warn("issue failure not journaled", "book_id", f.BookID, "failed_step", f.FailedStep, "compensated", f.Compensated)
		return
	}
	if _, err := l.journal.Record(ctx, f); err != nil {
		log.Error("journal write failed", "book_id", f.BookID, "failed_step", f.FailedStep, "err", err)
	}
}

func detail(cause error, compensation string, cerr error) string {
	if cerr != nil {
		return fmt.Sprintf("%v; %s failed: %v", cause, compensation, cerr)
	}
	return fmt.Sprintf("%v; %s ok", cause, compensation)
}

// FormState reports the caller's issue form.
func (l *Ledger) FormState(sessionID string) FormState {
	f := l.forms.Get(sessionID)
	st := FormState{InFlight: f.InFlight()}
	if d, ok := f.Draft(); ok {
		st.Draft = &d
	}
	return st
}

// ResetForm clears the caller's issue form and its in-flight flag.
func (l *Ledger) ResetForm(sessionID string) { l.forms.Get(sessionID).Reset() }

// ---------- return ----------

// ReturnBook marks rec returned today. A record already returned is refused
// before any request is made.
func (l *Ledger) ReturnBook(ctx context.Context, rec domain.Borrowing) (domain.Borrowing, error) {
	if rec.ReturnStatus.IsReturned() {
		return domain.Borrowing{}, apierr.ErrPrecondition("book already returned")
	}
	if rec.ID <= 0 {
		return domain.Borrowing{}, apierr.ErrInvalid("borrowing id is required")
	}
	log := logging.FromContext(ctx)
	wctx := context.WithoutCancel(ctx)

	r := rec
	r.ReturnStatus = domain.StatusReturned
	r.ActualReturnDate = domain.DateOf(l.clock.Now(), l.loc)
	updated, err := l.api.UpdateBorrowing(wctx, r)
	if err != nil {
		if libapi.IsNotFound(err) {
			return domain.Borrowing{}, apierr.ErrNotFound("borrowing not found")
		}
		return domain.Borrowing{}, apierr.ErrUpstream("could not return book", err)
	}
	log.Info("book returned", "borrowing_id", updated.ID, "book_id", updated.BookID, "actual_return_date", updated.ActualReturnDate.String())

	if l.policy.RestockOnReturn {
		l.restock(wctx, updated.BookID)
	}
	l.changed(wctx)
	return updated, nil
}

// restock puts the copy back on the shelf. The return itself already
// succeeded, so failures are only logged.
func (l *Ledger) restock(ctx context.Context, bookID int64) {
	log := logging.FromContext(ctx)
	b, ok, err := l.books.Lookup(ctx, bookID)
	if err != nil || !ok {
		log.Warn("restock skipped, book not in catalog", "book_id", bookID, "err", err)
		return
	}
	updated, err := l.api.UpdateBook(ctx, b.AfterReturn())
	if err != nil {
		log.Warn("restock failed", "book_id", bookID, "err", err)
		return
	}
	l.books.Remember(updated)
}

// POST /borrowings/:borrowing_id/return
func (l *Ledger) ReturnByID(ctx context.Context, id int64) (domain.Borrowing, error) {
	if id <= 0 {
		return domain.Borrowing{}, apierr.ErrInvalid("borrowing_id must be positive")
	}
	// 他の端末で返却済みかもしれないので判定前に取り直す
	if err := l.Refresh(ctx); err != nil {
		return domain.Borrowing{}, err
	}
	rec, ok := l.find(id)
	if !ok {
		return domain.Borrowing{}, apierr.ErrNotFound("borrowing not found")
	}
	return l.ReturnBook(ctx, rec)
}

// ---------- views ----------

func (l *Ledger) warm(ctx context.Context) {
	log := logging.FromContext(ctx)
	if err := l.books.Warm(ctx); err != nil {
		log.Warn("catalog unavailable, book names fall back", "err", err)
	}
	if err := l.members.Warm(ctx); err != nil {
		log.Warn("members unavailable, member names fall back", "err", err)
	}
}

func (l *Ledger) view(r domain.Borrowing, today domain.Date) BorrowingView {
	bd := l.books.ResolveBookDisplay(r.BookID)
	md := l.members.ResolveMemberDisplay(r.MemberID)
	v := BorrowingView{
		Borrowing:   r,
		BookName:    bd.BookName,
		Author:      bd.Author,
		MemberName:  md.Name,
		MemberEmail: md.Email,
		MemberPhone: md.PhoneNumber,
	}
	if days, ok := daysPastDue(r, today); ok {
		fine := l.policy.Fine(days)
		v.Overdue = true
		v.DaysPastDue = days
		v.Fine = &fine
		v.FineDisplay = l.policy.FormatMoney(fine)
	}
	return v
}

func (l *Ledger) views(ctx context.Context, recs []domain.Borrowing) []BorrowingView {
	l.warm(ctx)
	today := domain.DateOf(l.clock.Now(), l.loc)
	out := make([]BorrowingView, 0, len(recs))
	for _, r := range recs {
		out = append(out, l.view(r, today))
	}
	return out
}

// GET /borrowings
func (l *Ledger) List(ctx context.Context, search string, p paging.Page) (paging.Result[BorrowingView], error) {
	recs, err := l.Records(ctx)
	if err != nil {
		return paging.Result[BorrowingView]{}, err
	}
	return paging.Paginate(Search(l.views(ctx, recs), search), p), nil
}

// Search keeps views whose id, book name, author, member id or borrower name
// contains term, ignoring case.
func Search(views []BorrowingView, term string) []BorrowingView {
	term = strings.TrimSpace(term)
	if term == "" {
		return views
	}
	out := make([]BorrowingView, 0, len(views))
	for _, v := range views {
		if strings.Contains(strconv.FormatInt(v.ID, 10), term) ||
			domain.ContainsFold(v.BookName, term) ||
			domain.ContainsFold(v.Author, term) ||
			strings.Contains(strconv.FormatInt(v.MemberID, 10), term) ||
			domain.ContainsFold(v.BorrowerName, term) {
			out = append(out, v)
		}
	}
	return out
}

// GET /borrowings/recent
func (l *Ledger) Recent(ctx context.Context, p paging.Page) (paging.Result[BorrowingView], error) {
	recs, err := l.Records(ctx)
	if err != nil {
		return paging.Result[BorrowingView]{}, err
	}
	recent := RecentlyBorrowed(recs, l.clock.Now(), l.loc)
	return paging.Paginate(l.views(ctx, recent), p), nil
}

// OverdueRecords computes the overdue list for now.
func (l *Ledger) OverdueRecords(ctx context.Context) ([]OverdueRecord, error) {
	recs, err := l.Records(ctx)
	if err != nil {
		return nil, err
	}
	return ComputeOverdue(recs, l.clock.Now(), l.loc, l.policy), nil
}

// GET /borrowings/overdue
func (l *Ledger) Overdue(ctx context.Context, p paging.Page) (paging.Result[BorrowingView], error) {
	over, err := l.OverdueRecords(ctx)
	if err != nil {
		return paging.Result[BorrowingView]{}, err
	}
	recs := make([]domain.Borrowing, 0, len(over))
	for _, o := range over {
		recs = append(recs, o.Borrowing)
	}
	return paging.Paginate(l.views(ctx, recs), p), nil
}
