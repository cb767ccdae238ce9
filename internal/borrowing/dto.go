package borrowing

import (
	"github.com/shopspring/decimal"

	"libdesk/internal/domain"
)

// IssueRequest is the issue form as submitted. Dates are YYYY-MM-DD.
// An empty DueDate means issue date + the loan period.
type IssueRequest struct {
	BookID    int64  `json:"bookId" validate:"required,gt=0"`
	MemberID  int64  `json:"memberId" validate:"required,gt=0"`
	IssueDate string `json:"issueDate" validate:"required"`
	DueDate   string `json:"dueDate,omitempty"`
}

// Issue is a validated issue with both sides resolved.
type Issue struct {
	Book      domain.Book
	Member    domain.Member
	IssueDate domain.Date
	DueDate   domain.Date
}

type IssueResult struct {
	Borrowing domain.Borrowing `json:"borrowing"`
	Book      domain.Book      `json:"book"`
}

// FormState is what GET /borrowings/issue reports for the caller's form.
type FormState struct {
	InFlight bool          `json:"inFlight"`
	Draft    *IssueRequest `json:"draft"`
}

// BorrowingView is a borrowing with its cross-references resolved and the
// overdue figures derived for today.
type BorrowingView struct {
	domain.Borrowing
	BookName    string           `json:"bookName"`
	Author      string           `json:"author"`
	MemberName  string           `json:"memberName"`
	MemberEmail string           `json:"memberEmail"`
	MemberPhone string           `json:"memberPhone"`
	Overdue     bool             `json:"overdue"`
	DaysPastDue int              `json:"daysPastDue"`
	Fine        *decimal.Decimal `json:"fine,omitempty"`
	FineDisplay string           `json:"fineDisplay,omitempty"`
}
