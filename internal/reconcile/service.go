package reconcile

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	ulid "github.com/oklog/ulid/v2"

	"libdesk/internal/platform/apierr"
	"libdesk/internal/platform/logging"
	"libdesk/internal/platform/paging"
)

// -------------- Clock & ID --------------

type Clock interface{ Now() time.Time }
type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

type IDGen interface{ NewULID(t time.Time) string }
type ulidGen struct{}

func (ulidGen) NewULID(t time.Time) string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// -------------- Service --------------

type Service struct {
	store *Store
	clock Clock
	id    IDGen
}

func NewService(conn *sql.DB) *Service {
	return &Service{
		store: NewStore(conn),
		clock: realClock{},
		id:    ulidGen{},
	}
}

// Failure describes one failed half of an issue and what the compensation did.
type Failure struct {
	BorrowingID int64
	BookID      int64
	MemberID    int64
	FailedStep  Step
	Compensated bool
	Detail      string
}

// Record journals a failed issue. Compensated failures are stored already
// closed; the rest stay open for a librarian.
func (s *Service) Record(ctx context.Context, f Failure) (Entry, error) {
	now := s.clock.Now()
	// 補償できたものは記録だけ、できなかったものは未解決として残す
	status := StatusUnresolved
	if f.Compensated {
		status = StatusCompensated
	}
	e := Entry{
		ID:          s.id.NewULID(now),
		BorrowingID: f.BorrowingID,
		BookID:      f.BookID,
		MemberID:    f.MemberID,
		FailedStep:  f.FailedStep,
		Status:      status,
		Detail:      f.Detail,
		CreatedAt:   now,
	}
	if err := s.store.Insert(ctx, &e); err != nil {
		return Entry{}, fmt.Errorf("journal issue failure: %w", err)
	}
	logging.FromContext(ctx).Warn("issue failure journaled",
		"entry_id", e.ID, "book_id", e.BookID, "member_id", e.MemberID,
		"failed_step", e.FailedStep, "status", e.Status)
	return e, nil
}

// GET /reconciliations
func (s *Service) List(ctx context.Context, status string, p paging.Page) (paging.Result[EntryResponse], error) {
	var f Filter
	if v := strings.TrimSpace(status); v != "" {
		st := Status(strings.ToLower(v))
		switch st {
		case StatusCompensated, StatusUnresolved, StatusResolved:
		default:
			return paging.Result[EntryResponse]{}, apierr.ErrInvalid("status must be compensated, unresolved or resolved")
		}
		f.Status = &st
	}
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 {
		p.Size = 20
	}

	// 巨大な page でも OFFSET が溢れないようにする
	offset := math.MaxInt
	if p.Number-1 <= math.MaxInt/p.Size {
		offset = (p.Number - 1) * p.Size
	}
	entries, total, err := s.store.List(ctx, f, p.Size, offset)
	if err != nil {
		return paging.Result[EntryResponse]{}, err
	}
	items := make([]EntryResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, toResponse(e))
	}
	return paging.Result[EntryResponse]{
		Items:      items,
		Total:      total,
		Page:       p.Number,
		PageSize:   p.Size,
		TotalPages: (total + p.Size - 1) / p.Size,
	}, nil
}

// POST /reconciliations/:id/resolve
func (s *Service) Resolve(ctx context.Context, id, by string, in ResolveRequest) (EntryResponse, error) {
	if strings.TrimSpace(id) == "" {
		return EntryResponse{}, apierr.ErrInvalid("id required")
	}
	if _, err := ulid.ParseStrict(id); err != nil {
		return EntryResponse{}, apierr.ErrInvalid("id must be a ULID")
	}
	// 解決者はセッションのユーザ（by）で、メモは任意
	at := sql.NullTime{Time: s.clock.Now(), Valid: true}
	e, err := s.store.Resolve(ctx, id, by, in.Note, at)
	if err != nil {
		return EntryResponse{}, err
	}
	return toResponse(*e), nil
}
