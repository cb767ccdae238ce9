package borrowing

import (
	"cmp"
	"math"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"libdesk/internal/domain"
)

// RecentWindowDays bounds RecentlyBorrowed.
const RecentWindowDays = 7

// OverdueRecord is a borrowing past its due date with the fine owed so far.
type OverdueRecord struct {
	Borrowing   domain.Borrowing
	DaysPastDue int
	Fine        decimal.Decimal
	FineDisplay string
}

// ComputeOverdue keeps open borrowings whose due date is strictly before today
// in loc. Comparison is by calendar day. Output is sorted by DaysPastDue
// descending, then by borrowing id.
func ComputeOverdue(records []domain.Borrowing, now time.Time, loc *time.Location, p Policy) []OverdueRecord {
	today := domain.DateOf(now, loc)
	out := make([]OverdueRecord, 0)
	for _, r := range records {
		days, ok := daysPastDue(r, today)
		if !ok {
			continue
		}
		fine := p.Fine(days)
		out = append(out, OverdueRecord{
			Borrowing:   r,
			DaysPastDue: days,
			Fine:        fine,
			FineDisplay: p.FormatMoney(fine),
		})
	}
	slices.SortStableFunc(out, func(a, b OverdueRecord) int {
		if c := cmp.Compare(b.DaysPastDue, a.DaysPastDue); c != 0 {
			return c
		}
		return cmp.Compare(a.Borrowing.ID, b.Borrowing.ID)
	})
	return out
}

// daysPastDue returns whole days since the due date, and false when r is
// returned, has no due date or is not yet late.
func daysPastDue(r domain.Borrowing, today domain.Date) (int, bool) {
	if r.ReturnStatus.IsReturned() || r.ReturnDate.IsZero() {
		return 0, false
	}
	// 期限当日はまだ延滞ではない
	if !r.ReturnDate.Before(today) {
		return 0, false
	}
	return r.ReturnDate.DaysUntil(today), true
}

// IsOverdue reports whether r would appear in ComputeOverdue.
func IsOverdue(r domain.Borrowing, now time.Time, loc *time.Location) bool {
	_, ok := daysPastDue(r, domain.DateOf(now, loc))
	return ok
}

// RecentlyBorrowed keeps records borrowed within RecentWindowDays of now
// (absolute difference, rounded up to whole days), newest first.
func RecentlyBorrowed(records []domain.Borrowing, now time.Time, loc *time.Location) []domain.Borrowing {
	out := make([]domain.Borrowing, 0)
	for _, r := range records {
		if r.BorrowingDate.IsZero() {
			continue
		}
		// 貸出日はその日の 0 時として差をとる（未来日付も絶対値で数える）
		diff := now.Sub(r.BorrowingDate.In(loc))
		days := math.Ceil(math.Abs(diff.Hours()) / 24)
		if days <= RecentWindowDays {
			out = append(out, r)
		}
	}
	slices.SortStableFunc(out, func(a, b domain.Borrowing) int {
		switch {
		case a.BorrowingDate.After(b.BorrowingDate):
			return -1
		case a.BorrowingDate.Before(b.BorrowingDate):
			return 1
		default:
			return cmp.Compare(b.ID, a.ID)
		}
	})
	return out
}

// CurrentlyBorrowed keeps records not yet returned. Unknown statuses count as out.
func CurrentlyBorrowed(records []domain.Borrowing) []domain.Borrowing {
	out := make([]domain.Borrowing, 0)
	for _, r := range records {
		if !r.ReturnStatus.IsReturned() {
			out = append(out, r)
		}
	}
	return out
}
