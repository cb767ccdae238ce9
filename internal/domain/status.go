package domain

import (
	"strings"

	"golang.org/x/text/cases"
)

// Fold returns the case-folded form of s for case-insensitive comparison.
// A Caser is stateful, so a fresh one is built per call.
func Fold(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// ContainsFold reports whether substr is within s, ignoring case.
func ContainsFold(s, substr string) bool {
	return strings.Contains(Fold(s), Fold(substr))
}

type AvailabilityStatus string

const (
	Available   AvailabilityStatus = "Available"
	Borrowed    AvailabilityStatus = "Borrowed"
	Reserved    AvailabilityStatus = "Reserved"
	Maintenance AvailabilityStatus = "Maintenance"
)

// ParseAvailability maps any spelling to the canonical status. Empty input is
// Available; unrecognized input returns Available and ok=false.
func ParseAvailability(s string) (AvailabilityStatus, bool) {
	switch Fold(s) {
	case "", "available":
		return Available, true
	case "borrowed", "issued":
		return Borrowed, true
	case "reserved":
		return Reserved, true
	case "maintenance":
		return Maintenance, true
	default:
		return Available, false
	}
}

// AvailabilityFor derives the status an issue leaves behind.
func AvailabilityFor(quantity int) AvailabilityStatus {
	if quantity <= 0 {
		return Borrowed
	}
	return Available
}

type ReturnStatus string

const (
	StatusBorrowed ReturnStatus = "Borrowed"
	StatusReturned ReturnStatus = "Returned"
	// StatusUnknown marks a value the backend sent that matched no spelling.
	// It counts as not returned.
	StatusUnknown ReturnStatus = "Unknown"
)

// ParseReturnStatus is the single case-insensitive parser for borrowing status.
// ok is false only for unrecognized values.
func ParseReturnStatus(s string) (ReturnStatus, bool) {
	switch Fold(s) {
	case "returned", "return":
		return StatusReturned, true
	case "", "borrowed", "issued", "active", "overdue":
		return StatusBorrowed, true
	default:
		return StatusUnknown, false
	}
}

func (s ReturnStatus) IsReturned() bool { return s == StatusReturned }
