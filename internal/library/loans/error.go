package loans

import (
	"errors"
	"fmt"
)

type Code string

const (
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeNotFound        Code = "NOT_FOUND"
	CodeBookNotFound    Code = "BOOK_NOT_FOUND"
	CodePatronNotFound  Code = "PATRON_NOT_FOUND"
	CodeNoCopies        Code = "NO_COPIES_AVAILABLE"
	CodeBorrowLimit     Code = "BORROW_LIMIT_EXCEEDED"
	CodeNoActiveLoan    Code = "NO_ACTIVE_LOAN"
	CodeInternal        Code = "INTERNAL"
)

type APIError struct {
	Code    Code
	Message string
}

func (e *APIError) Error() string      { return fmt.Sprintf("%s: %s", e.Code, e.Message) }
func ErrInvalid(msg string) *APIError  { return &APIError{Code: CodeInvalidArgument, Message: msg} }
func ErrNotFound(msg string) *APIError { return &APIError{Code: CodeNotFound, Message: msg} }
func ErrInternal(msg string) *APIError { return &APIError{Code: CodeInternal, Message: msg} }

func ErrBookNotFound() *APIError {
	return &APIError{Code: CodeBookNotFound, Message: "book not found"}
}

func ErrPatronNotFound() *APIError {
	return &APIError{Code: CodePatronNotFound, Message: "patron not found"}
}

func ErrNoCopiesAvailable() *APIError {
	return &APIError{Code: CodeNoCopies, Message: "no copies of this book are currently available"}
}

func ErrBorrowLimitExceeded(limit int) *APIError {
	return &APIError{Code: CodeBorrowLimit, Message: fmt.Sprintf("borrowing limit of %d books reached", limit)}
}

func ErrNoActiveLoan() *APIError {
	return &APIError{Code: CodeNoActiveLoan, Message: "this book is not currently borrowed by this patron"}
}

func ToHTTPStatus(err error) int {
	var api *APIError
	if errors.As(err, &api) {
		switch api.Code {
		case CodeInvalidArgument:
			return 400
		case CodeNotFound, CodeBookNotFound, CodePatronNotFound, CodeNoActiveLoan:
			return 404
		case CodeNoCopies, CodeBorrowLimit:
			return 409
		default:
			return 500
		}
	}
	return 500
}
