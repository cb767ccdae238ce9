package libapi

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"libdesk/internal/domain"
	"libdesk/internal/platform/logging"
)

// The backend is not consistent about field names, so every wire struct carries
// all known spellings and normalize picks the first non-empty one.

// flexInt accepts a JSON number, a numeric string or null. Anything else reads as 0.
type flexInt int64

func (f *flexInt) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(bytes.TrimSpace(b), `"`)
	if len(b) == 0 || string(b) == "null" {
		*f = 0
		return nil
	}
	if n, err := strconv.ParseInt(string(b), 10, 64); err == nil {
		*f = flexInt(n)
		return nil
	}
	// "12.0" のような表記も受ける。数値でなければ 0（未設定扱い）
	v, _ := strconv.ParseFloat(string(b), 64)
	*f = flexInt(v)
	return nil
}

// flexFloat accepts a JSON number, a numeric string or null.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(bytes.TrimSpace(b), `"`)
	if len(b) == 0 || string(b) == "null" {
		*f = 0
		return nil
	}
	v, _ := strconv.ParseFloat(string(b), 64)
	*f = flexFloat(v)
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func firstNonZero(vals ...flexInt) int64 {
	for _, v := range vals {
		if v != 0 {
			return int64(v)
		}
	}
	return 0
}

// ---------- books ----------

type wireBook struct {
	BookID             flexInt   `json:"bookId"`
	ID                 flexInt   `json:"id"`
	BookName           string    `json:"bookName"`
	Title              string    `json:"title"`
	Author             string    `json:"author"`
	AuthorName         string    `json:"authorName"`
	ISBN               string    `json:"isbn"`
	Category           string    `json:"category"`
	Genre              string    `json:"genre"`
	Quantity           flexInt   `json:"quantity"`
	AvailabilityStatus string    `json:"availabilityStatus"`
	Status             string    `json:"status"`
	ImageURL           string    `json:"imageUrl"`
	Image              string    `json:"image"`
	CoverImage         string    `json:"coverImage"`
	Publisher          string    `json:"publisher"`
	Language           string    `json:"language"`
	Description        string    `json:"description"`
	DateOfPublication  string    `json:"dateOfPublication"`
	Ratings            flexFloat `json:"ratings"`
	NumberOfViewers    flexInt   `json:"numberOfViewers"`
	NumberOfReaders    flexInt   `json:"numberOfReaders"`
}

func (w wireBook) normalize(ctx context.Context) domain.Book {
	raw := firstNonEmpty(w.AvailabilityStatus, w.Status)
	status, ok := domain.ParseAvailability(raw)
	if !ok {
		logging.FromContext(ctx).Warn("unknown availability status", "book_id", firstNonZero(w.BookID, w.ID), "status", raw)
	}
	qty := int(w.Quantity)
	if qty < 0 {
		qty = 0
	}
	// category and genre fall back on each other
	return domain.Book{
		ID:                 firstNonZero(w.BookID, w.ID),
		BookName:           firstNonEmpty(w.BookName, w.Title),
		Author:             firstNonEmpty(w.Author, w.AuthorName),
		ISBN:               strings.TrimSpace(w.ISBN),
		Category:           firstNonEmpty(w.Category, w.Genre),
		Genre:              firstNonEmpty(w.Genre, w.Category),
		Quantity:           qty,
		AvailabilityStatus: status,
		ImageURL:           firstNonEmpty(w.ImageURL, w.Image, w.CoverImage),
		Publisher:          w.Publisher,
		Language:           w.Language,
		Description:        w.Description,
		DateOfPublication:  w.DateOfPublication,
		Ratings:            float64(w.Ratings),
		NumberOfViewers:    int(w.NumberOfViewers),
		NumberOfReaders:    int(w.NumberOfReaders),
	}
}

// normalizeOr uses fallback when the backend answered with an empty body.
func (w wireBook) normalizeOr(ctx context.Context, fallback domain.Book) domain.Book {
	if w.BookID == 0 && w.ID == 0 && w.BookName == "" && w.Title == "" {
		return fallback
	}
	return w.normalize(ctx)
}

type bookPayload struct {
	BookID             int64   `json:"bookId,omitempty"`
	BookName           string  `json:"bookName"`
	Author             string  `json:"author"`
	ISBN               string  `json:"isbn"`
	Category           string  `json:"category"`
	Genre              string  `json:"genre"`
	Quantity           int     `json:"quantity"`
	AvailabilityStatus string  `json:"availabilityStatus"`
	ImageURL           string  `json:"imageUrl"`
	Publisher          string  `json:"publisher"`
	Language           string  `json:"language"`
	Description        string  `json:"description"`
	DateOfPublication  string  `json:"dateOfPublication"`
	Ratings            float64 `json:"ratings"`
	NumberOfViewers    int     `json:"numberOfViewers"`
	NumberOfReaders    int     `json:"numberOfReaders"`
}

func encodeBook(b domain.Book) bookPayload {
	return bookPayload{
		BookID:             b.ID,
		BookName:           b.BookName,
		Author:             b.Author,
		ISBN:               b.ISBN,
		Category:           b.Category,
		Genre:              b.Genre,
		Quantity:           b.Quantity,
		AvailabilityStatus: string(b.AvailabilityStatus),
		ImageURL:           b.ImageURL,
		Publisher:          b.Publisher,
		Language:           b.Language,
		Description:        b.Description,
		DateOfPublication:  b.DateOfPublication,
		Ratings:            b.Ratings,
		NumberOfViewers:    b.NumberOfViewers,
		NumberOfReaders:    b.NumberOfReaders,
	}
}

// ---------- borrowings ----------

type wireBorrowing struct {
	BorrowingID      flexInt `json:"borrowingId"`
	ID               flexInt `json:"id"`
	BookID           flexInt `json:"bookId"`
	MemberID         flexInt `json:"memberId"`
	BorrowerName     string  `json:"borrowerName"`
	BorrowerEmail    string  `json:"borrowerEmail"`
	BorrowingDate    string  `json:"borrowingDate"`
	ReturnDate       string  `json:"returnDate"`
	ActualReturnDate string  `json:"actualReturnDate"`
	ReturnStatus     string  `json:"returnStatus"`
}

func (w wireBorrowing) normalize(ctx context.Context, loc *time.Location) domain.Borrowing {
	log := logging.FromContext(ctx)
	id := firstNonZero(w.BorrowingID, w.ID)

	status, ok := domain.ParseReturnStatus(w.ReturnStatus)
	if !ok {
		log.Warn("unknown return status", "borrowing_id", id, "status", w.ReturnStatus)
	}

	date := func(field, s string) domain.Date {
		d, err := domain.ParseDate(s, loc)
		if err != nil {
			log.Warn("unparseable date", "borrowing_id", id, "field", field, "value", s)
		}
		return d
	}

	return domain.Borrowing{
		ID:               id,
		BookID:           int64(w.BookID),
		MemberID:         int64(w.MemberID),
		BorrowerName:     strings.TrimSpace(w.BorrowerName),
		BorrowerEmail:    strings.TrimSpace(w.BorrowerEmail),
		BorrowingDate:    date("borrowingDate", w.BorrowingDate),
		ReturnDate:       date("returnDate", w.ReturnDate),
		ActualReturnDate: date("actualReturnDate", w.ActualReturnDate),
		ReturnStatus:     status,
	}
}

func (w wireBorrowing) normalizeOr(ctx context.Context, loc *time.Location, fallback domain.Borrowing) domain.Borrowing {
	if w.BorrowingID == 0 && w.ID == 0 && w.BookID == 0 {
		return fallback
	}
	return w.normalize(ctx, loc)
}

type borrowingPayload struct {
	BorrowingID      int64   `json:"borrowingId,omitempty"`
	BookID           int64   `json:"bookId"`
	MemberID         int64   `json:"memberId"`
	BorrowerName     string  `json:"borrowerName"`
	BorrowerEmail    string  `json:"borrowerEmail"`
	BorrowingDate    string  `json:"borrowingDate"`
	ReturnDate       string  `json:"returnDate"`
	ActualReturnDate *string `json:"actualReturnDate"`
	ReturnStatus     string  `json:"returnStatus"`
}

func encodeBorrowing(b domain.Borrowing) borrowingPayload {
	p := borrowingPayload{
		BorrowingID:   b.ID,
		BookID:        b.BookID,
		MemberID:      b.MemberID,
		BorrowerName:  b.BorrowerName,
		BorrowerEmail: b.BorrowerEmail,
		BorrowingDate: b.BorrowingDate.String(),
		ReturnDate:    b.ReturnDate.String(),
		ReturnStatus:  string(b.ReturnStatus),
	}
	if !b.ActualReturnDate.IsZero() {
		s := b.ActualReturnDate.String()
		p.ActualReturnDate = &s
	}
	return p
}

// ---------- members ----------

type wireMember struct {
	MemberID    flexInt `json:"memberId"`
	ID          flexInt `json:"id"`
	Name        string  `json:"name"`
	FullName    string  `json:"fullName"`
	Email       string  `json:"email"`
	PhoneNumber string  `json:"phoneNumber"`
	Phone       string  `json:"phone"`
	Address     string  `json:"address"`
	NIC         string  `json:"nic"`
	DateOfBirth string  `json:"dateOfBirth"`
	Gender      string  `json:"gender"`
	Role        string  `json:"role"`
}

func (w wireMember) normalize() domain.Member {
	return domain.Member{
		ID:          firstNonZero(w.MemberID, w.ID),
		Name:        firstNonEmpty(w.Name, w.FullName),
		Email:       strings.TrimSpace(w.Email),
		PhoneNumber: firstNonEmpty(w.PhoneNumber, w.Phone),
		Address:     w.Address,
		NIC:         w.NIC,
		DateOfBirth: w.DateOfBirth,
		Gender:      w.Gender,
		Role:        w.Role,
	}
}

func (w wireMember) normalizeOr(fallback domain.Member) domain.Member {
	if w.MemberID == 0 && w.ID == 0 && w.Name == "" && w.FullName == "" {
		return fallback
	}
	return w.normalize()
}

type memberPayload struct {
	MemberID    int64  `json:"memberId,omitempty"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
	Address     string `json:"address"`
	NIC         string `json:"nic"`
	DateOfBirth string `json:"dateOfBirth"`
	Gender      string `json:"gender"`
	Role        string `json:"role"`
	Password    string `json:"password,omitempty"`
}

func encodeMember(m domain.Member, password string) memberPayload {
	return memberPayload{
		MemberID:    m.ID,
		Name:        m.Name,
		Email:       m.Email,
		PhoneNumber: m.PhoneNumber,
		Address:     m.Address,
		NIC:         m.NIC,
		DateOfBirth: m.DateOfBirth,
		Gender:      m.Gender,
		Role:        m.Role,
		Password:    password,
	}
}

// ---------- login ----------

type wireLogin struct {
	Success       *bool   `json:"success"`
	Authenticated *bool   `json:"authenticated"`
	MemberID      flexInt `json:"memberId"`
	ID            flexInt `json:"id"`
	Email         string  `json:"email"`
	Name          string  `json:"name"`
	FullName      string  `json:"fullName"`
	Role          string  `json:"role"`
}

func decodeLogin(raw json.RawMessage, email string) (LoginResult, error) {
	raw = bytes.TrimSpace(raw)
	// 応答は true/false だけの場合とオブジェクトの場合がある
	switch {
	case len(raw) == 0, string(raw) == "null":
		return LoginResult{Email: email}, nil
	case raw[0] == 't' || raw[0] == 'f':
		var ok bool
		if err := json.Unmarshal(raw, &ok); err != nil {
			return LoginResult{}, err
		}
		return LoginResult{OK: ok, Email: email}, nil
	}

	var w wireLogin
	if err := json.Unmarshal(raw, &w); err != nil {
		return LoginResult{}, err
	}
	ok := true
	if w.Success != nil {
		ok = *w.Success
	}
	if w.Authenticated != nil {
		ok = ok && *w.Authenticated
	}
	return LoginResult{
		OK:       ok,
		Email:    firstNonEmpty(w.Email, email),
		Name:     firstNonEmpty(w.Name, w.FullName),
		Role:     w.Role,
		MemberID: firstNonZero(w.MemberID, w.ID),
	}, nil
}
