package patrons

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Adam-Likogiannis/cisc327-library-management-a3-8089/internal/library/fees"
)

// ===== Error model =====
type Code string

const (
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeNotFound        Code = "PATRON_NOT_FOUND"
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
		case CodeConflict:
			return 409
		default:
			return 500
		}
	}
	return 500
}

// ===== Clock =====

type Clock interface{ Now() time.Time }
type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

// ===== Store interface =====

type PatronStore interface {
	Insert(ctx context.Context, p *Patron) error
	GetByID(ctx context.Context, id string) (*Patron, error)
	List(ctx context.Context, p Page) ([]Patron, int64, error)
	// Snapshot は利用者と未返却貸出を読み取り専用Txで一括取得する
	Snapshot(ctx context.Context, id string) (*Patron, []ActiveLoan, error)
}

// ===== Service =====

type Service struct {
	store       PatronStore
	schedule    fees.Schedule
	borrowLimit int
	clock       Clock
}

func NewService(db *sql.DB, schedule fees.Schedule, borrowLimit int) *Service {
	return &Service{store: NewStore(db), schedule: schedule, borrowLimit: borrowLimit, clock: realClock{}}
}

func NewServiceWith(store PatronStore, schedule fees.Schedule, borrowLimit int, clock Clock) *Service {
	return &Service{store: store, schedule: schedule, borrowLimit: borrowLimit, clock: clock}
}

// 利用者登録。IDは6桁の図書カード番号
func (s *Service) RegisterPatron(ctx context.Context, in RegisterPatronRequest) (PatronResponse, error) {
	if !isValidPatronID(in.PatronID) {
		return PatronResponse{}, ErrInvalid("patron_id must be exactly 6 digits")
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return PatronResponse{}, ErrInvalid("name is required")
	}
	if len([]rune(name)) > 100 {
		return PatronResponse{}, ErrInvalid("name must be less than 100 characters")
	}

	p := &Patron{PatronID: in.PatronID, Name: name}
	if err := s.store.Insert(ctx, p); err != nil {
		return PatronResponse{}, err
	}

	out, err := s.store.GetByID(ctx, p.PatronID)
	if err != nil {
		return PatronResponse{}, err
	}
	return toDTO(out), nil
}

func (s *Service) GetPatron(ctx context.Context, id string) (PatronResponse, error) {
	if !isValidPatronID(id) {
		return PatronResponse{}, ErrInvalid("patron_id must be exactly 6 digits")
	}
	p, err := s.store.GetByID(ctx, id)
	if err != nil {
		return PatronResponse{}, err
	}
	return toDTO(p), nil
}

func (s *Service) ListPatrons(ctx context.Context, p Page) ([]PatronResponse, int64, error) {
	items, total, err := s.store.List(ctx, p)
	if err != nil {
		return nil, 0, err
	}
	out := make([]PatronResponse, 0, len(items))
	for i := range items {
		out = append(out, toDTO(&items[i]))
	}
	return out, total, nil
}

// StatusReport は未返却貸出の明細・冊数・延滞状況・延滞料金合計をまとめる
func (s *Service) StatusReport(ctx context.Context, id string) (*StatusReport, error) {
	if !isValidPatronID(id) {
		return nil, ErrInvalid("patron_id must be exactly 6 digits")
	}

	p, loans, err := s.store.Snapshot(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	report := &StatusReport{
		PatronID:      p.PatronID,
		Name:          p.Name,
		BorrowedCount: len(loans),
		BorrowedBooks: make([]BorrowedBook, 0, len(loans)),
	}

	var totalFees float64
	var nextDue *time.Time
	for _, l := range loans {
		days := fees.DaysOverdue(l.DueDate, now)
		fee := s.schedule.Amount(days)
		totalFees += fee
		if days > 0 {
			report.OverdueCount++
		}
		if nextDue == nil || l.DueDate.Before(*nextDue) {
			d := l.DueDate
			nextDue = &d
		}
		report.BorrowedBooks = append(report.BorrowedBooks, BorrowedBook{
			LoanULID:      l.LoanULID,
			ISBN:          l.ISBN,
			Title:         l.Title,
			Author:        l.Author,
			BorrowDate:    l.BorrowDate,
			DueDate:       l.DueDate,
			IsOverdue:     days > 0,
			DaysOverdue:   days,
			DaysRemaining: fees.DaysUntil(l.DueDate, now),
			AccruedFee:    fee,
		})
	}

	report.NextDueDate = nextDue
	report.TotalFeesOwed = math.Round(totalFees*100) / 100
	if remaining := s.borrowLimit - report.BorrowedCount; remaining > 0 {
		report.RemainingAllowance = remaining
	}
	return report, nil
}

func isValidPatronID(id string) bool {
	if len(id) != 6 {
		return false
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
