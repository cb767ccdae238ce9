package reconcile

import "time"

type EntryResponse struct {
	ID          string     `json:"id"`
	BorrowingID int64      `json:"borrowing_id,omitempty"`
	BookID      int64      `json:"book_id"`
	MemberID    int64      `json:"member_id"`
	FailedStep  Step       `json:"failed_step"`
	Status      Status     `json:"status"`
	Detail      string     `json:"detail"`
	CreatedAt   time.Time  `json:"created_at"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
	ResolvedBy  *string    `json:"resolved_by,omitempty"`
	Note        *string    `json:"note,omitempty"`
}

type ResolveRequest struct {
	Note string `json:"note"`
}

func toResponse(e Entry) EntryResponse {
	r := EntryResponse{
		ID:          e.ID,
		BorrowingID: e.BorrowingID,
		BookID:      e.BookID,
		MemberID:    e.MemberID,
		FailedStep:  e.FailedStep,
		Status:      e.Status,
		Detail:      e.Detail,
		CreatedAt:   e.CreatedAt,
	}
	if e.ResolvedAt.Valid {
		t := e.ResolvedAt.Time
		r.ResolvedAt = &t
	}
	if e.ResolvedBy.Valid {
		s := e.ResolvedBy.String
		r.ResolvedBy = &s
	}
	if e.Note.Valid {
		s := e.Note.String
		r.Note = &s
	}
	return r
}
