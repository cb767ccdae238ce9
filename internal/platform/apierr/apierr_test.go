package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestToHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{ErrInvalid("x"), http.StatusBadRequest},
		{ErrNotFound("x"), http.StatusNotFound},
		{ErrInProgress(), http.StatusConflict},
		{ErrPrecondition("x"), http.StatusPreconditionFailed},
		{ErrUnauthorized("x"), http.StatusUnauthorized},
		{ErrUpstream("x", errors.New("dial")), http.StatusBadGateway},
		{ErrPartial("x", nil), http.StatusBadGateway},
		{errors.New("plain"), http.StatusInternalServerError},
		{fmt.Errorf("wrapped: %w", ErrInvalid("x")), http.StatusBadRequest},
	}
	for _, tc := range cases {
		if got := ToHTTPStatus(tc.err); got != tc.want {
			t.Errorf("ToHTTPStatus(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestBodyFromHidesForeignErrors(t *testing.T) {
	b := BodyFrom(errors.New("secret dsn"))
	if b.Error.Code != CodeInternal || b.Error.Message != "internal error" {
		t.Fatalf("unexpected body: %+v", b)
	}

	up := BodyFrom(ErrUpstream("library backend unavailable", errors.New("timeout")))
	if !up.Error.Retryable || up.Error.Code != CodeUpstreamUnavailable {
		t.Fatalf("expected retryable upstream body, got %+v", up)
	}
}

func TestUnwrapKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := ErrUpstream("create borrowing", cause)
	if !errors.Is(err, cause) {
		t.Fatal("expected errors.Is to reach the cause")
	}
	if !Is(err, CodeUpstreamUnavailable) {
		t.Fatal("expected Is to match the code")
	}
}
