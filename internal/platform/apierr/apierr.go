package apierr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"libdesk/internal/platform/logging"
)

// ===== Error model (catalog/membership/borrowing で共通) =====
type Code string

const (
	CodeInvalidArgument     Code = "INVALID_ARGUMENT"
	CodeNotFound            Code = "NOT_FOUND"
	CodeConflict            Code = "CONFLICT"
	CodeIssueInProgress     Code = "ISSUE_IN_PROGRESS"
	CodePreconditionFailed  Code = "PRECONDITION_FAILED"
	CodeUnauthorized        Code = "UNAUTHORIZED"
	CodeUpstreamUnavailable Code = "UPSTREAM_UNAVAILABLE"
	CodePartialFailure      Code = "PARTIAL_FAILURE"
	CodeInternal            Code = "INTERNAL"
)

type APIError struct {
	Code      Code
	Message   string
	Retryable bool
	Err       error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

func ErrInvalid(msg string) *APIError {
	return &APIError{Code: CodeInvalidArgument, Message: msg}
}

func ErrNotFound(msg string) *APIError {
	return &APIError{Code: CodeNotFound, Message: msg}
}

func ErrConflict(msg string) *APIError {
	return &APIError{Code: CodeConflict, Message: msg}
}

func ErrPrecondition(msg string) *APIError {
	return &APIError{Code: CodePreconditionFailed, Message: msg}
}

func ErrUnauthorized(msg string) *APIError {
	return &APIError{Code: CodeUnauthorized, Message: msg}
}

func ErrInternal(msg string) *APIError {
	return &APIError{Code: CodeInternal, Message: msg}
}

// ErrInProgress is returned to a second submit while an issue request is in flight.
func ErrInProgress() *APIError {
	return &APIError{Code: CodeIssueInProgress, Message: "an issue request is already in flight"}
}

// ErrUpstream wraps a failed call to the library backend. The caller may retry.
func ErrUpstream(msg string, err error) *APIError {
	return &APIError{Code: CodeUpstreamUnavailable, Message: msg, Retryable: true, Err: err}
}

// ErrPartial reports a dual write that could not be compensated.
func ErrPartial(msg string, err error) *APIError {
	return &APIError{Code: CodePartialFailure, Message: msg, Err: err}
}

// CodeOf returns the code of err, or CodeInternal for foreign errors.
func CodeOf(err error) Code {
	var api *APIError
	if errors.As(err, &api) {
		return api.Code
	}
	return CodeInternal
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	var api *APIError
	return errors.As(err, &api) && api.Code == code
}

func ToHTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeInvalidArgument:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeIssueInProgress:
		return http.StatusConflict
	case CodePreconditionFailed:
		return http.StatusPreconditionFailed
	case CodeUpstreamUnavailable, CodePartialFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ---------- response helpers ----------

type errorDTO struct {
	Error struct {
		Code      Code   `json:"code"`
		Message   string `json:"message"`
		Retryable bool   `json:"retryable,omitempty"`
	} `json:"error"`
}

func Body(code Code, msg string) errorDTO {
	var e errorDTO
	e.Error.Code = code
	e.Error.Message = msg
	return e
}

func BodyFrom(err error) errorDTO {
	var api *APIError
	if errors.As(err, &api) {
		e := Body(api.Code, api.Message)
		e.Error.Retryable = api.Retryable
		return e
	}
	// 内部エラーの詳細はクライアントに返さない
	return Body(CodeInternal, "internal error")
}

// Abort writes err as a JSON error body with the mapped status.
func Abort(c *gin.Context, err error) {
	status := ToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
		logging.FromContext(c.Request.Context()).Error("request failed", "code", CodeOf(err), "err", err)
	}
	c.AbortWithStatusJSON(status, BodyFrom(err))
}
