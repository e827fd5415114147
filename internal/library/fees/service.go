package fees

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	ulid "github.com/oklog/ulid/v2"
)

// ---- Error model ----
type Code string

const (
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeNotFound        Code = "NOT_FOUND"
	CodeNoFeesDue       Code = "NO_FEES_DUE"
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
func ErrNoFeesDue() *APIError {
	return &APIError{Code: CodeNoFeesDue, Message: "no late fees to pay for this loan"}
}
func ErrConflict(msg string) *APIError { return &APIError{Code: CodeConflict, Message: msg} }
func ErrInternal(msg string) *APIError { return &APIError{Code: CodeInternal, Message: msg} }

func toHTTPStatus(err error) int {
	var ge *GatewayError
	if errors.As(err, &ge) {
		return 502
	}
	var api *APIError
	if errors.As(err, &api) {
		switch api.Code {
		case CodeInvalidArgument, CodeNoFeesDue:
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

// ---- Clock & ID ----
type Clock interface{ Now() time.Time }
type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

type IDGen interface{ NewULID(t time.Time) string }
type ulidGen struct{}

func (ulidGen) NewULID(t time.Time) string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// ---- Store interface ----

type PaymentStore interface {
	FindActiveLoan(ctx context.Context, patronID, isbn string) (*OwedLoan, error)
	InsertPayment(ctx context.Context, p *Payment) error
	GetByTransactionID(ctx context.Context, txn string) (*Payment, error)
	MarkRefunded(ctx context.Context, paymentID int64) (int64, error)
	ListByPatron(ctx context.Context, patronID string) ([]PaymentRecord, error)
}

// ---- Service ----

type Service struct {
	store    PaymentStore
	gateway  PaymentGateway
	schedule Schedule
	clock    Clock
	id       IDGen
}

func NewService(db *sql.DB, gateway PaymentGateway, schedule Schedule) *Service {
	return &Service{
		store:    NewStore(db),
		gateway:  gateway,
		schedule: schedule,
		clock:    realClock{},
		id:       ulidGen{},
	}
}

func NewServiceWith(store PaymentStore, gateway PaymentGateway, schedule Schedule, clock Clock, id IDGen) *Service {
	return &Service{store: store, gateway: gateway, schedule: schedule, clock: clock, id: id}
}

// 延滞料金の支払い。対象は (patron, isbn) の未返却貸出
func (s *Service) PayLateFees(ctx context.Context, req PayFeesRequest) (*PaymentResponse, error) {
	if !isValidPatronID(req.PatronID) {
		return nil, ErrInvalid("patron_id must be exactly 6 digits")
	}
	if strings.TrimSpace(req.ISBN) == "" {
		return nil, ErrInvalid("isbn is required")
	}

	loan, err := s.store.FindActiveLoan(ctx, req.PatronID, req.ISBN)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	days := DaysOverdue(loan.DueDate, now)
	amount := s.schedule.Amount(days)
	if amount <= 0 {
		return nil, ErrNoFeesDue()
	}

	txn, err := s.gateway.ProcessPayment(ctx, req.PatronID, amount,
		fmt.Sprintf("Late fees for %q", loan.Title))
	if err != nil {
		return nil, &GatewayError{Err: err}
	}

	p := &Payment{
		PaymentULID:   s.id.NewULID(now),
		LoanID:        loan.LoanID,
		PatronID:      req.PatronID,
		Amount:        amount,
		TransactionID: txn,
		PaidAt:        now,
	}
	if err := s.store.InsertPayment(ctx, p); err != nil {
		return nil, err
	}

	resp := paymentToDTO(p, loan.LoanULID, loan.ISBN, days)
	return &resp, nil
}

// 支払いの返金。誤請求時の巻き戻し用
func (s *Service) Refund(ctx context.Context, req RefundRequest) (*RefundResponse, error) {
	if !strings.HasPrefix(req.TransactionID, "txn_") {
		return nil, ErrInvalid("invalid transaction id")
	}
	if req.Amount <= 0 {
		return nil, ErrInvalid("refund amount must be greater than 0")
	}
	if req.Amount > s.schedule.Cap {
		return nil, ErrInvalid("refund amount exceeds maximum late fee")
	}

	p, err := s.store.GetByTransactionID(ctx, req.TransactionID)
	if err != nil {
		return nil, err
	}
	if p.Refunded {
		return nil, ErrConflict("payment already refunded")
	}
	if req.Amount > p.Amount {
		return nil, ErrInvalid("refund amount exceeds paid amount")
	}

	if err := s.gateway.RefundPayment(ctx, req.TransactionID, req.Amount); err != nil {
		return nil, &GatewayError{Err: err}
	}

	n, err := s.store.MarkRefunded(ctx, p.PaymentID)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrConflict("payment already refunded")
	}

	return &RefundResponse{TransactionID: req.TransactionID, Amount: req.Amount, Refunded: true}, nil
}

// 利用者の支払い履歴
func (s *Service) ListPayments(ctx context.Context, patronID string) ([]PaymentResponse, error) {
	if !isValidPatronID(patronID) {
		return nil, ErrInvalid("patron_id must be exactly 6 digits")
	}
	items, err := s.store.ListByPatron(ctx, patronID)
	if err != nil {
		return nil, err
	}
	out := make([]PaymentResponse, 0, len(items))
	for i := range items {
		out = append(out, paymentToDTO(&items[i].Payment, items[i].LoanULID, items[i].ISBN, 0))
	}
	return out, nil
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
