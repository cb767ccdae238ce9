package membership

import "libdesk/internal/domain"

type AddMemberRequest struct {
	Name        string `json:"name" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	PhoneNumber string `json:"phoneNumber" validate:"required"`
	Address     string `json:"address"`
	NIC         string `json:"nic"`
	DateOfBirth string `json:"dateOfBirth" validate:"omitempty,datetime=2006-01-02"`
	Gender      string `json:"gender"`
	Role        string `json:"role"`
}

// AddMemberResponse carries the generated password once; it is not stored here.
type AddMemberResponse struct {
	Member          domain.Member `json:"member"`
	InitialPassword string        `json:"initialPassword"`
}

// UpdateMemberRequest is a partial update; nil fields keep their value.
type UpdateMemberRequest struct {
	Name        *string `json:"name"`
	Email       *string `json:"email" validate:"omitempty,email"`
	PhoneNumber *string `json:"phoneNumber"`
	Address     *string `json:"address"`
	NIC         *string `json:"nic"`
	DateOfBirth *string `json:"dateOfBirth" validate:"omitempty,datetime=2006-01-02"`
	Gender      *string `json:"gender"`
	Role        *string `json:"role"`
}
