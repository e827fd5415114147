package books

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// ===== Error model =====
type Code string

const (
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeNotFound        Code = "BOOK_NOT_FOUND"
	CodeDuplicateISBN   Code = "DUPLICATE_ISBN"
	CodeConflict        Code = "CONFLICT"
	CodeInternal        Code = "INTERNAL"
)

type APIError struct {
	Code    Code
	Message string
}

func (e *APIError) Error() string      { return fmt.Sprintf("%s: %s", e.Code, e.Message) }
func ErrInvalid(msg string) *APIError  { return &APIError{Code: CodeInvalidArgument, Message: msg} }
func ErrNotFound(msg string) *APIError { return &APIError{Code: CodeNotFound, Message: msg} }
func ErrDuplicate(msg string) *APIError {
	return &APIError{Code: CodeDuplicateISBN, Message: msg}
}
func ErrConflict(msg string) *APIError { return &APIError{Code: CodeConflict, Message: msg} }
func ErrInternal(msg string) *APIError { return &APIError{Code: CodeInternal, Message: msg} }

func toHTTPStatus(err error) int {
	var api *APIError
	if errors.As(err, &api) {
		switch api.Code {
		case CodeInvalidArgument:
			return 400
		case CodeNotFound:
			return 404
		case CodeDuplicateISBN, CodeConflict:
			return 409
		default:
			return 500
		}
	}
	return 500
}

// ===== Store interface =====

type BookStore interface {
	Insert(ctx context.Context, b *Book) error
	GetByISBN(ctx context.Context, isbn string) (*Book, error)
	List(ctx context.Context, p Page) ([]Book, int64, error)
	ListAll(ctx context.Context) ([]Book, error)
	UpdateByISBN(ctx context.Context, isbn string, in UpdateBookRequest) (*Book, error)
}

// ===== Service =====

type Service struct {
	store BookStore
}

func NewService(db *sql.DB) *Service { return &Service{store: NewStore(db)} }

// NewServiceWithStore はテスト用にストア実装を差し替える
func NewServiceWithStore(store BookStore) *Service { return &Service{store: store} }

// 蔵書登録。available_copies は total_copies で初期化される
func (s *Service) AddBook(ctx context.Context, in CreateBookRequest) (BookResponse, error) {
	title := strings.TrimSpace(in.Title)
	author := strings.TrimSpace(in.Author)

	if title == "" {
		return BookResponse{}, ErrInvalid("title is required")
	}
	if len([]rune(title)) > 200 {
		return BookResponse{}, ErrInvalid("title must be less than 200 characters")
	}
	if author == "" {
		return BookResponse{}, ErrInvalid("author is required")
	}
	if len([]rune(author)) > 100 {
		return BookResponse{}, ErrInvalid("author must be less than 100 characters")
	}
	if !isValidISBN(in.ISBN) {
		return BookResponse{}, ErrInvalid("isbn must be exactly 13 digits")
	}
	if in.TotalCopies <= 0 {
		return BookResponse{}, ErrInvalid("total_copies must be a positive integer")
	}

	b := &Book{
		ISBN:            in.ISBN,
		Title:           title,
		Author:          author,
		TotalCopies:     in.TotalCopies,
		AvailableCopies: in.TotalCopies,
	}
	if err := s.store.Insert(ctx, b); err != nil {
		return BookResponse{}, err
	}

	out, err := s.store.GetByISBN(ctx, b.ISBN)
	if err != nil {
		return BookResponse{}, err
	}
	return toDTO(out), nil
}

func (s *Service) GetBook(ctx context.Context, isbn string) (BookResponse, error) {
	b, err := s.store.GetByISBN(ctx, isbn)
	if err != nil {
		return BookResponse{}, err
	}
	return toDTO(b), nil
}

// 蔵書一覧（登録順）
func (s *Service) ListBooks(ctx context.Context, p Page) ([]BookResponse, int64, error) {
	items, total, err := s.store.List(ctx, p)
	if err != nil {
		return nil, 0, err
	}
	out := make([]BookResponse, 0, len(items))
	for i := range items {
		out = append(out, toDTO(&items[i]))
	}
	return out, total, nil
}

func (s *Service) UpdateBook(ctx context.Context, isbn string, in UpdateBookRequest) (BookResponse, error) {
	if in.Title != nil {
		t := strings.TrimSpace(*in.Title)
		if t == "" || len([]rune(t)) > 200 {
			return BookResponse{}, ErrInvalid("title must be 1..200 characters")
		}
		in.Title = &t
	}
	if in.Author != nil {
		a := strings.TrimSpace(*in.Author)
		if a == "" || len([]rune(a)) > 100 {
			return BookResponse{}, ErrInvalid("author must be 1..100 characters")
		}
		in.Author = &a
	}
	if in.TotalCopies != nil && *in.TotalCopies <= 0 {
		return BookResponse{}, ErrInvalid("total_copies must be a positive integer")
	}

	b, err := s.store.UpdateByISBN(ctx, isbn, in)
	if err != nil {
		return BookResponse{}, err
	}
	return toDTO(b), nil
}

func isValidISBN(isbn string) bool {
	if len(isbn) != 13 {
		return false
	}
	for _, r := range isbn {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
