// Package result defines the structured success/failure values
// returned across the core boundary. Nothing is panicked or thrown
// at callers; they decide whether and how to surface an error.
package result

import "fmt"

type Code string

const (
	CodeAuth         Code = "auth"
	CodeSubscription Code = "subscription"
	CodeSubmission   Code = "submission"
	CodeValidation   Code = "validation"
)

type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func Auth(message string, cause error) *Error {
	return &Error{Code: CodeAuth, Message: message, Cause: cause}
}

func Subscription(message string, cause error) *Error {
	return &Error{Code: CodeSubscription, Message: message, Cause: cause}
}

func Submission(message string, cause error) *Error {
	return &Error{Code: CodeSubmission, Message: message, Cause: cause}
}

func Validation(message string) *Error {
	return &Error{Code: CodeValidation, Message: message}
}

// Result is the uniform mutation outcome.
type Result struct {
	Success bool
	ID      string
	Err     *Error
}

func OK(id string) Result {
	return Result{Success: true, ID: id}
}

func Fail(err *Error) Result {
	return Result{Err: err}
}
