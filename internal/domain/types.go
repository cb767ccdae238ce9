package domain

type Book struct {
	ID                 int64              `json:"bookId"`
	BookName           string             `json:"bookName"`
	Author             string             `json:"author"`
	ISBN               string             `json:"isbn"`
	Category           string             `json:"category"`
	Genre              string             `json:"genre"`
	Quantity           int                `json:"quantity"`
	AvailabilityStatus AvailabilityStatus `json:"availabilityStatus"`
	ImageURL           string             `json:"imageUrl"`
	Publisher          string             `json:"publisher"`
	Language           string             `json:"language"`
	Description        string             `json:"description"`
	DateOfPublication  string             `json:"dateOfPublication"`
	Ratings            float64            `json:"ratings"`
	NumberOfViewers    int                `json:"numberOfViewers"`
	NumberOfReaders    int                `json:"numberOfReaders"`
}

// AfterIssue returns the book with one copy taken out and the status re-derived.
func (b Book) AfterIssue() Book {
	b.Quantity--
	if b.Quantity < 0 {
		b.Quantity = 0
	}
	b.AvailabilityStatus = AvailabilityFor(b.Quantity)
	return b
}

// AfterReturn puts one copy back.
func (b Book) AfterReturn() Book {
	b.Quantity++
	b.AvailabilityStatus = AvailabilityFor(b.Quantity)
	return b
}

type Member struct {
	ID          int64  `json:"memberId"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
	Address     string `json:"address"`
	NIC         string `json:"nic"`
	DateOfBirth string `json:"dateOfBirth"`
	Gender      string `json:"gender"`
	Role        string `json:"role"`
}

// Borrowing is one issue of one book to one member.
// ReturnDate is the due date fixed at issue time and never recalculated;
// ActualReturnDate stays zero until the book comes back.
type Borrowing struct {
	ID               int64        `json:"borrowingId"`
	BookID           int64        `json:"bookId"`
	MemberID         int64        `json:"memberId"`
	BorrowerName     string       `json:"borrowerName"`
	BorrowerEmail    string       `json:"borrowerEmail"`
	BorrowingDate    Date         `json:"borrowingDate"`
	ReturnDate       Date         `json:"returnDate"`
	ActualReturnDate Date         `json:"actualReturnDate"`
	ReturnStatus     ReturnStatus `json:"returnStatus"`
}

// BookDisplay is the cross-referenced view of a book.
type BookDisplay struct {
	BookName string `json:"bookName"`
	Author   string `json:"author"`
}

// MemberDisplay is the cross-referenced view of a member.
type MemberDisplay struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
}

const (
	UnknownBook   = "Unknown Book"
	UnknownAuthor = "Unknown Author"
	UnknownMember = "Unknown Member"
	NotAvailable  = "N/A"
)
