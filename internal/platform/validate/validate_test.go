package validate

import (
	"strings"
	"testing"

	"libdesk/internal/platform/apierr"
)

type sample struct {
	Name    string   `json:"name" validate:"required"`
	Email   string   `json:"email" validate:"required,email"`
	Ratings *float64 `json:"ratings" validate:"omitempty,gte=0,lte=5"`
}

func TestStructMessagesUseJSONNames(t *testing.T) {
	v := New()
	bad := 7.0
	err := Struct(v, sample{Email: "nope", Ratings: &bad})
	if !apierr.Is(err, apierr.CodeInvalidArgument) {
		t.Fatalf("want invalid argument, got %v", err)
	}
	for _, want := range []string{"name is required", "email must be a valid email", "ratings must be at most 5"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("message %q missing %q", err.Error(), want)
		}
	}

	ok := 4.5
	if err := Struct(v, sample{Name: "a", Email: "a@b.c", Ratings: &ok}); err != nil {
		t.Fatalf("valid input rejected: %v", err)
	}
	if err := Struct(v, sample{Name: "a", Email: "a@b.c"}); err != nil {
		t.Fatalf("omitted ratings rejected: %v", err)
	}
}

func TestVarNamesTheValue(t *testing.T) {
	v := New()
	err := Var(v, "email", "not-an-email", "required,email")
	if !apierr.Is(err, apierr.CodeInvalidArgument) || !strings.Contains(err.Error(), "email must be a valid email") {
		t.Fatalf("got %v", err)
	}
	if err := Var(v, "email", "", "required,email"); err == nil || !strings.Contains(err.Error(), "email is required") {
		t.Fatalf("got %v", err)
	}
	if err := Var(v, "email", "desk@lib.test", "required,email"); err != nil {
		t.Fatalf("valid address rejected: %v", err)
	}
}
