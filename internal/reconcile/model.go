package reconcile

import (
	"database/sql"
	"time"
)

// Step names the half of the issue dual write that failed.
type Step string

const (
	StepCreateBorrowing Step = "create_borrowing"
	StepUpdateBook      Step = "update_book"
)

type Status string

const (
	// StatusCompensated: the surviving write was undone, nothing left to do.
	StatusCompensated Status = "compensated"
	// StatusUnresolved: compensation failed, backend is inconsistent.
	StatusUnresolved Status = "unresolved"
	StatusResolved   Status = "resolved"
)

// Entry is one journal record of a failed issue.
type Entry struct {
	ID          string
	BorrowingID int64 // 0 when the borrowing was never created
	BookID      int64
	MemberID    int64
	FailedStep  Step
	Status      Status
	Detail      string
	CreatedAt   time.Time
	ResolvedAt  sql.NullTime
	ResolvedBy  sql.NullString
	Note        sql.NullString
}

type Filter struct {
	Status *Status
}
