package catalog

type AddBookRequest struct {
	BookName           string   `json:"bookName" validate:"required"`
	Author             string   `json:"author" validate:"required"`
	ISBN               string   `json:"isbn" validate:"required"`
	Category           string   `json:"category" validate:"required"`
	Genre              string   `json:"genre" validate:"required"`
	Quantity           *int     `json:"quantity" validate:"omitempty,gte=1"`
	Ratings            *float64 `json:"ratings" validate:"omitempty,gte=0,lte=5"`
	AvailabilityStatus string   `json:"availabilityStatus"`
	ImageURL           string   `json:"imageUrl"`
	Publisher          string   `json:"publisher"`
	Language           string   `json:"language"`
	Description        string   `json:"description"`
	DateOfPublication  string   `json:"dateOfPublication" validate:"omitempty,datetime=2006-01-02"`
}

// UpdateBookRequest is a partial update; nil fields keep their value.
type UpdateBookRequest struct {
	BookName           *string  `json:"bookName"`
	Author             *string  `json:"author"`
	ISBN               *string  `json:"isbn"`
	Category           *string  `json:"category"`
	Genre              *string  `json:"genre"`
	Quantity           *int     `json:"quantity" validate:"omitempty,gte=0"`
	Ratings            *float64 `json:"ratings" validate:"omitempty,gte=0,lte=5"`
	AvailabilityStatus *string  `json:"availabilityStatus"`
	ImageURL           *string  `json:"imageUrl"`
	Publisher          *string  `json:"publisher"`
	Language           *string  `json:"language"`
	Description        *string  `json:"description"`
	DateOfPublication  *string  `json:"dateOfPublication" validate:"omitempty,datetime=2006-01-02"`
}

type ListQuery struct {
	Genre  string
	Search string
}

type GenresResponse struct {
	Genres []string `json:"genres"`
}
